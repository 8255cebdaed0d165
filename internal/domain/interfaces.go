package domain

import "context"

// ─── Ledger Backend ─────────────────────────────────────────────────────────

// LedgerBackend is the read surface shared by the in-memory simulation and
// the on-chain relay. The dashboard query layer is written against this
// interface so it cannot tell the two apart.
//
// Implementations:
//   - engine.Engine  — full in-memory ledger (authoritative in simulate mode)
//   - chain.Client   — read-only mirror of the deployed contract
type LedgerBackend interface {
	// UserInfo returns the user record for an address.
	UserInfo(ctx context.Context, addr Address) (*User, error)

	// PoolEarnings returns the per-source earnings breakdown for an address,
	// in getPoolEarnings order: direct, level, upline, leader, help.
	PoolEarnings(ctx context.Context, addr Address) ([NumEarningsSources]Amount, error)

	// PoolBalances returns the current shared pool states.
	PoolBalances(ctx context.Context) ([]Pool, error)
}
