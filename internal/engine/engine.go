// Package engine implements the referral ledger core: user registry,
// unilevel placement, multi-pool commission distribution and the withdrawal
// ledger. It is the InMemorySimulation ledger backend.
//
// Concurrency model mirrors an on-chain ledger: one global write lock, so
// every operation (register, upgrade, distribute, withdraw) commits
// atomically with no partial visibility. Reads take the shared lock and see
// the last committed state.
//
// Every operation is expressed as an input event. The event is appended to
// the sink (write-ahead) before any state is touched; after validation the
// apply step cannot fail, so a committed event and the in-memory state never
// diverge and replaying the log rebuilds identical state.
package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/leadfive-network/leadfive/internal/domain"
)

// PoolWeighting selects how a pool balance is split among eligible users.
type PoolWeighting string

const (
	WeightEqual        PoolWeighting = "equal"
	WeightTeamWeighted PoolWeighting = "team_weighted"
)

// Config controls engine behavior.
type Config struct {
	// Root is the distinguished sponsorless user, registered at init.
	Root domain.Address

	// RootTier is the package tier assigned to the root user.
	RootTier int

	// Weighting selects the pool distribution policy.
	Weighting PoolWeighting

	// DistributionIntervals is the minimum time between distributions,
	// per pool.
	DistributionIntervals map[domain.PoolName]time.Duration
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		Root:      "0x0000000000000000000000000000000000000001",
		RootTier:  4,
		Weighting: WeightEqual,
		DistributionIntervals: map[domain.PoolName]time.Duration{
			domain.PoolLeader: 14 * 24 * time.Hour,
			domain.PoolClub:   30 * 24 * time.Hour,
			domain.PoolHelp:   7 * 24 * time.Hour,
		},
	}
}

// Engine owns all ledger state. It implements domain.LedgerBackend.
type Engine struct {
	mu sync.RWMutex

	plan     *domain.Plan
	cfg      Config
	roles    *domain.Roles
	rootAddr domain.Address
	sink     domain.EventSink // nil disables persistence (tests)

	users    map[domain.Address]*domain.User
	children map[domain.Address][]domain.Address
	pools    map[domain.PoolName]*domain.Pool
	nextID   uint64

	withdrawals []domain.WithdrawalRecord

	stats domain.Stats

	// replaying suppresses sink appends while the log is being re-executed.
	replaying bool
}

// New creates an engine with the root user already registered. The root is
// the only sponsorless user; it pays nothing in and earns from its downline.
func New(plan *domain.Plan, cfg Config, roles *domain.Roles, sink domain.EventSink) (*Engine, error) {
	if err := plan.Validate(); err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}
	if _, err := plan.PackageByTier(cfg.RootTier); err != nil {
		return nil, fmt.Errorf("engine: root tier: %w", err)
	}
	root := domain.NormalizeAddress(cfg.Root)
	if root == "" {
		return nil, fmt.Errorf("engine: root address required")
	}

	e := &Engine{
		plan:     plan,
		cfg:      cfg,
		roles:    roles,
		rootAddr: root,
		sink:     sink,
		users:    make(map[domain.Address]*domain.User),
		children: make(map[domain.Address][]domain.Address),
		pools:    make(map[domain.PoolName]*domain.Pool),
		nextID:   1,
	}
	for _, name := range domain.PoolNames() {
		e.pools[name] = &domain.Pool{Name: name}
	}

	e.users[root] = &domain.User{
		ID:          e.nextID,
		Address:     root,
		PackageTier: cfg.RootTier,
		IsActive:    true,
	}
	e.nextID++
	return e, nil
}

// Plan returns the immutable compensation plan.
func (e *Engine) Plan() *domain.Plan { return e.plan }

// Root returns the root user's address.
func (e *Engine) Root() domain.Address { return e.rootAddr }

// Roles returns the privileged-address registry.
func (e *Engine) Roles() *domain.Roles { return e.roles }

// ─── Event plumbing ─────────────────────────────────────────────────────────

// newEvent builds an event with a fresh ID. Called under the write lock.
func newEvent(typ domain.EventType, at time.Time) domain.Event {
	return domain.Event{
		ID:        uuid.NewString(),
		Type:      typ,
		Timestamp: at.UTC(),
	}
}

// append sends an event to the sink. Input events are appended before state
// mutation; derived (audit) events after. Suppressed during replay.
func (e *Engine) append(ev domain.Event) error {
	if e.sink == nil || e.replaying {
		return nil
	}
	return e.sink.Append(ev)
}

// emitCommission appends a derived commission audit event. Best-effort by
// design: the input event is the replay source of truth.
func (e *Engine) emitCommission(recipient, payer domain.Address, amount domain.Amount, source domain.EarningsSource, at time.Time) {
	if e.sink == nil || e.replaying || amount == 0 {
		return
	}
	ev := newEvent(domain.EventCommissionDistributed, at)
	ev.User = recipient
	ev.Counterparty = payer
	ev.Amount = amount
	ev.Source = source.String()
	_ = e.sink.Append(ev)
}

// ─── Crediting ──────────────────────────────────────────────────────────────

// credit pays amount to a user, clamping at the earnings cap. Capped and
// inactive recipients forfeit their share to the treasury — forfeits are not
// forwarded to other ancestors. Every unit of amount is accounted for:
// credited to the user or swept to the treasury.
//
// The root user deposits nothing and is exempt from the cap.
func (e *Engine) credit(u *domain.User, amount domain.Amount, source domain.EarningsSource, payer domain.Address, at time.Time) domain.Amount {
	if amount <= 0 {
		return 0
	}
	if u == nil || !u.IsActive || u.IsCapped {
		e.stats.Treasury += amount
		return 0
	}

	credited := amount
	if u.Address != e.rootAddr {
		limit := e.plan.EarningsCap(u.TotalInvested)
		if room := limit - u.TotalEarnings; credited >= room {
			if room < 0 {
				room = 0
			}
			credited = room
			u.IsCapped = true
			e.stats.Treasury += amount - credited
		}
	}
	if credited <= 0 {
		return 0
	}

	u.TotalEarnings += credited
	u.Withdrawable += credited
	u.EarningsBySource[source] += credited
	e.stats.TotalEarned += credited

	e.emitCommission(u.Address, payer, credited, source, at)
	return credited
}

// ─── Queries (LedgerBackend) ────────────────────────────────────────────────

// UserInfo returns a copy of the user record for an address.
func (e *Engine) UserInfo(_ context.Context, addr domain.Address) (*domain.User, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	u, ok := e.users[domain.NormalizeAddress(addr)]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

// PoolEarnings returns the per-source earnings breakdown for an address.
func (e *Engine) PoolEarnings(_ context.Context, addr domain.Address) ([domain.NumEarningsSources]domain.Amount, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	u, ok := e.users[domain.NormalizeAddress(addr)]
	if !ok {
		return [domain.NumEarningsSources]domain.Amount{}, domain.ErrUserNotFound
	}
	return u.EarningsBySource, nil
}

// PoolBalances returns the current shared pool states.
func (e *Engine) PoolBalances(_ context.Context) ([]domain.Pool, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make([]domain.Pool, 0, len(e.pools))
	for _, name := range domain.PoolNames() {
		out = append(out, *e.pools[name])
	}
	return out, nil
}

// Stats returns the global reconciliation totals.
func (e *Engine) Stats() domain.Stats {
	e.mu.RLock()
	defer e.mu.RUnlock()

	s := e.stats
	s.Users = len(e.users)
	s.PoolBalances = 0
	for _, p := range e.pools {
		s.PoolBalances += p.Balance
	}
	return s
}

// DownlineEntry is one node of a genealogy query result.
type DownlineEntry struct {
	User  domain.User `json:"user"`
	Depth int         `json:"depth"`
}

// Downline returns the subtree under addr up to maxDepth levels,
// breadth-first. Depth 1 is the user's direct referrals.
func (e *Engine) Downline(addr domain.Address, maxDepth int) ([]DownlineEntry, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	addr = domain.NormalizeAddress(addr)
	if _, ok := e.users[addr]; !ok {
		return nil, domain.ErrUserNotFound
	}
	if maxDepth <= 0 {
		maxDepth = 1
	}

	var out []DownlineEntry
	frontier := e.children[addr]
	for depth := 1; depth <= maxDepth && len(frontier) > 0; depth++ {
		var next []domain.Address
		for _, child := range frontier {
			out = append(out, DownlineEntry{User: *e.users[child], Depth: depth})
			next = append(next, e.children[child]...)
		}
		frontier = next
	}
	return out, nil
}

// Withdrawals returns the most recent withdrawal records, newest first.
func (e *Engine) Withdrawals(limit int) []domain.WithdrawalRecord {
	e.mu.RLock()
	defer e.mu.RUnlock()

	n := len(e.withdrawals)
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]domain.WithdrawalRecord, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		out = append(out, e.withdrawals[i])
	}
	return out
}

// upline returns the ancestor chain of u starting at its sponsor, bounded by
// maxLevels (0 = unbounded, used by the team-size walk which must reach the
// root).
func (e *Engine) upline(u *domain.User, maxLevels int) []*domain.User {
	var chain []*domain.User
	for cur := u.Sponsor; cur != ""; {
		anc, ok := e.users[cur]
		if !ok {
			break
		}
		chain = append(chain, anc)
		if maxLevels > 0 && len(chain) >= maxLevels {
			break
		}
		cur = anc.Sponsor
	}
	return chain
}
