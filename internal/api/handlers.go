package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/leadfive-network/leadfive/internal/domain"
	"github.com/leadfive-network/leadfive/internal/infra/observability"
)

// Amounts cross the API as integer token units (6 decimals), matching the
// on-chain representation; formatted values are included for display.

// ─── Mutations ──────────────────────────────────────────────────────────────

type registerRequest struct {
	Address domain.Address `json:"address"`
	Sponsor domain.Address `json:"sponsor"`
	Tier    int            `json:"tier"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	if s.engine == nil {
		writeDomainError(w, domain.ErrReadOnlyBackend)
		return
	}
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	u, err := s.engine.Register(req.Address, req.Sponsor, req.Tier, s.now())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	s.observe()
	writeJSON(w, http.StatusCreated, u)
}

type upgradeRequest struct {
	Tier int `json:"tier"`
}

func (s *Server) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	if s.engine == nil {
		writeDomainError(w, domain.ErrReadOnlyBackend)
		return
	}
	var req upgradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	u, err := s.engine.Upgrade(domain.Address(chi.URLParam(r, "addr")), req.Tier, s.now())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	s.observe()
	writeJSON(w, http.StatusOK, u)
}

type withdrawRequest struct {
	Amount domain.Amount `json:"amount"`
}

func (s *Server) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	if s.engine == nil {
		writeDomainError(w, domain.ErrReadOnlyBackend)
		return
	}
	var req withdrawRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	rec, err := s.engine.Withdraw(domain.Address(chi.URLParam(r, "addr")), req.Amount, s.now())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	s.observe()
	writeJSON(w, http.StatusOK, rec)
}

// caller identifies the requester of a privileged operation. Signature
// verification belongs to the gateway in front of this API.
func caller(r *http.Request) domain.Address {
	return domain.NormalizeAddress(domain.Address(r.Header.Get("X-Caller-Address")))
}

func (s *Server) handleDeactivate(w http.ResponseWriter, r *http.Request) {
	if s.engine == nil {
		writeDomainError(w, domain.ErrReadOnlyBackend)
		return
	}
	if !s.engine.Roles().Holds(domain.RoleOwner, caller(r)) {
		writeDomainError(w, domain.ErrRoleDenied)
		return
	}
	if err := s.engine.Deactivate(domain.Address(chi.URLParam(r, "addr")), s.now()); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deactivated"})
}

func (s *Server) handleDistribute(w http.ResponseWriter, r *http.Request) {
	if s.engine == nil {
		writeDomainError(w, domain.ErrReadOnlyBackend)
		return
	}
	from := caller(r)
	if !s.engine.Roles().Holds(domain.RoleOperator, from) &&
		!s.engine.Roles().Holds(domain.RoleOwner, from) {
		writeDomainError(w, domain.ErrRoleDenied)
		return
	}
	name := domain.PoolName(chi.URLParam(r, "name"))
	if err := s.engine.Distribute(name, s.now()); err != nil {
		writeDomainError(w, err)
		return
	}
	s.observe()
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "distributed",
		"pool":   string(name),
	})
}

type roleTransferRequest struct {
	To domain.Address `json:"to"`
}

func (s *Server) handleRoleTransfer(w http.ResponseWriter, r *http.Request) {
	if s.engine == nil {
		writeDomainError(w, domain.ErrReadOnlyBackend)
		return
	}
	var req roleTransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	role := domain.Role(chi.URLParam(r, "role"))
	if err := s.engine.Roles().Transfer(role, caller(r), req.To); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"role":   string(role),
		"holder": string(s.engine.Roles().Holder(role)),
	})
}

// observe refreshes the stats-derived gauges after a committed mutation.
func (s *Server) observe() {
	pools, err := s.engine.PoolBalances(context.Background())
	if err != nil {
		return
	}
	observability.ObserveStats(s.engine.Stats(), pools)
}

// ─── Queries ────────────────────────────────────────────────────────────────

type userResponse struct {
	*domain.User
	TotalInvestedUSDT string `json:"total_invested_usdt"`
	TotalEarningsUSDT string `json:"total_earnings_usdt"`
	WithdrawableUSDT  string `json:"withdrawable_usdt"`
	RankName          string `json:"rank_name"`
}

func (s *Server) handleUserInfo(w http.ResponseWriter, r *http.Request) {
	u, err := s.backend.UserInfo(r.Context(), domain.Address(chi.URLParam(r, "addr")))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, userResponse{
		User:              u,
		TotalInvestedUSDT: domain.FormatUSDT(u.TotalInvested),
		TotalEarningsUSDT: domain.FormatUSDT(u.TotalEarnings),
		WithdrawableUSDT:  domain.FormatUSDT(u.Withdrawable),
		RankName:          u.Rank.String(),
	})
}

func (s *Server) handleEarnings(w http.ResponseWriter, r *http.Request) {
	earnings, err := s.backend.PoolEarnings(r.Context(), domain.Address(chi.URLParam(r, "addr")))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	bySource := make(map[string]domain.Amount, domain.NumEarningsSources)
	var total domain.Amount
	for i, amt := range earnings {
		bySource[domain.EarningsSource(i).String()] = amt
		total += amt
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"by_source":  bySource,
		"total":      total,
		"total_usdt": domain.FormatUSDT(total),
	})
}

func (s *Server) handleDownline(w http.ResponseWriter, r *http.Request) {
	if s.engine == nil {
		writeDomainError(w, domain.ErrReadOnlyBackend)
		return
	}
	depth := queryInt(r, "depth", 3)
	entries, err := s.engine.Downline(domain.Address(chi.URLParam(r, "addr")), depth)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"depth":   depth,
		"count":   len(entries),
		"entries": entries,
	})
}

func (s *Server) handlePools(w http.ResponseWriter, r *http.Request) {
	pools, err := s.backend.PoolBalances(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"pools": pools})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if s.engine == nil {
		writeDomainError(w, domain.ErrReadOnlyBackend)
		return
	}
	writeJSON(w, http.StatusOK, s.engine.Stats())
}

func (s *Server) handlePlan(w http.ResponseWriter, r *http.Request) {
	if s.engine == nil {
		writeDomainError(w, domain.ErrReadOnlyBackend)
		return
	}
	writeJSON(w, http.StatusOK, s.engine.Plan())
}

func (s *Server) handleWithdrawals(w http.ResponseWriter, r *http.Request) {
	if s.engine == nil {
		writeDomainError(w, domain.ErrReadOnlyBackend)
		return
	}
	limit := queryInt(r, "limit", 50)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"withdrawals": s.engine.Withdrawals(limit),
	})
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if s.events == nil {
		writeError(w, http.StatusNotFound, "event log not configured")
		return
	}
	events, err := s.events.RecentEvents(queryInt(r, "limit", 100))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"events": events})
}

func (s *Server) handleUserEvents(w http.ResponseWriter, r *http.Request) {
	if s.events == nil {
		writeError(w, http.StatusNotFound, "event log not configured")
		return
	}
	events, err := s.events.EventsByUser(domain.Address(chi.URLParam(r, "addr")), queryInt(r, "limit", 100))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"events": events})
}
