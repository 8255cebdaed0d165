// Package chain implements the read-only ledger backend that relays queries
// to a deployed on-chain contract through its JSON gateway. It serves the
// same domain.LedgerBackend interface as the in-memory engine, so the query
// layer never knows which one it is talking to.
package chain

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/leadfive-network/leadfive/internal/domain"
)

// Client is a relay over a contract gateway's HTTP API.
type Client struct {
	baseURL    string
	httpClient *http.Client

	retries int
	backoff time.Duration
}

// NewClient creates a relay client. Transient gateway failures are retried
// with exponential backoff before surfacing as ErrChainUnavailable.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		retries:    3,
		backoff:    200 * time.Millisecond,
	}
}

// ─── Gateway Wire Types ─────────────────────────────────────────────────────
// The gateway mirrors the contract's view functions; amounts cross the wire
// as integer token units.

type userInfoResponse struct {
	ID              uint64 `json:"id"`
	Address         string `json:"address"`
	Referrer        string `json:"referrer"`
	PackageTier     int    `json:"package_tier"`
	TotalInvested   int64  `json:"total_invested"`
	TotalEarnings   int64  `json:"total_earnings"`
	Withdrawable    int64  `json:"withdrawable"`
	IsCapped        bool   `json:"is_capped"`
	IsActive        bool   `json:"is_active"`
	Rank            int    `json:"rank"`
	DirectReferrals int    `json:"direct_referrals"`
	TeamSize        int    `json:"team_size"`
	RegisteredAt    int64  `json:"registered_at"`
}

type poolEarningsResponse struct {
	Earnings [domain.NumEarningsSources]int64 `json:"earnings"`
}

type poolBalancesResponse struct {
	Pools []struct {
		Name            string `json:"name"`
		Balance         int64  `json:"balance"`
		LastDistributed int64  `json:"last_distributed"`
	} `json:"pools"`
}

// ─── LedgerBackend ──────────────────────────────────────────────────────────

// UserInfo fetches a user record from the contract.
func (c *Client) UserInfo(ctx context.Context, addr domain.Address) (*domain.User, error) {
	addr = domain.NormalizeAddress(addr)
	var resp userInfoResponse
	if err := c.get(ctx, "/users/"+string(addr), &resp); err != nil {
		return nil, err
	}

	u := &domain.User{
		ID:              resp.ID,
		Address:         domain.NormalizeAddress(domain.Address(resp.Address)),
		Sponsor:         domain.NormalizeAddress(domain.Address(resp.Referrer)),
		PackageTier:     resp.PackageTier,
		TotalInvested:   domain.Amount(resp.TotalInvested),
		TotalEarnings:   domain.Amount(resp.TotalEarnings),
		Withdrawable:    domain.Amount(resp.Withdrawable),
		IsCapped:        resp.IsCapped,
		IsActive:        resp.IsActive,
		Rank:            domain.LeaderRank(resp.Rank),
		DirectReferrals: resp.DirectReferrals,
		TeamSize:        resp.TeamSize,
	}
	if resp.RegisteredAt > 0 {
		u.RegisteredAt = time.Unix(resp.RegisteredAt, 0).UTC()
	}
	return u, nil
}

// PoolEarnings fetches the per-source earnings breakdown for an address.
func (c *Client) PoolEarnings(ctx context.Context, addr domain.Address) ([domain.NumEarningsSources]domain.Amount, error) {
	addr = domain.NormalizeAddress(addr)
	var resp poolEarningsResponse
	if err := c.get(ctx, "/users/"+string(addr)+"/earnings", &resp); err != nil {
		return [domain.NumEarningsSources]domain.Amount{}, err
	}

	var out [domain.NumEarningsSources]domain.Amount
	for i, v := range resp.Earnings {
		out[i] = domain.Amount(v)
	}
	return out, nil
}

// PoolBalances fetches the shared pool states.
func (c *Client) PoolBalances(ctx context.Context) ([]domain.Pool, error) {
	var resp poolBalancesResponse
	if err := c.get(ctx, "/pools", &resp); err != nil {
		return nil, err
	}

	out := make([]domain.Pool, 0, len(resp.Pools))
	for _, p := range resp.Pools {
		pool := domain.Pool{
			Name:    domain.PoolName(p.Name),
			Balance: domain.Amount(p.Balance),
		}
		if p.LastDistributed > 0 {
			pool.LastDistributed = time.Unix(p.LastDistributed, 0).UTC()
		}
		out = append(out, pool)
	}
	return out, nil
}

// ─── Transport ──────────────────────────────────────────────────────────────

// get issues a GET with retries. A 404 maps to ErrUserNotFound; transport
// errors and 5xx responses retry, then map to ErrChainUnavailable.
func (c *Client) get(ctx context.Context, path string, out any) error {
	var lastErr error
	for attempt := 0; attempt <= c.retries; attempt++ {
		if attempt > 0 {
			delay := c.backoff << (attempt - 1)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		data, retryable, err := c.do(ctx, path)
		if err == nil {
			if err := json.Unmarshal(data, out); err != nil {
				return fmt.Errorf("chain: decode %s: %w", path, err)
			}
			return nil
		}
		if !retryable {
			return err
		}
		lastErr = err
	}
	return fmt.Errorf("%w: %v", domain.ErrChainUnavailable, lastErr)
}

func (c *Client) do(ctx context.Context, path string) (data []byte, retryable bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, false, fmt.Errorf("chain: create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, true, fmt.Errorf("chain: do request: %w", err)
	}
	defer resp.Body.Close()

	data, err = io.ReadAll(resp.Body)
	if err != nil {
		return nil, true, fmt.Errorf("chain: read body: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		return data, false, nil
	case resp.StatusCode == http.StatusNotFound:
		return nil, false, domain.ErrUserNotFound
	case resp.StatusCode >= 500:
		return nil, true, fmt.Errorf("chain: gateway error %d: %s", resp.StatusCode, string(data))
	default:
		return nil, false, fmt.Errorf("chain: gateway error %d: %s", resp.StatusCode, string(data))
	}
}
