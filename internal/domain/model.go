// Package domain contains pure business types with ZERO infrastructure imports.
// This is the innermost ring of clean architecture — it depends on nothing.
package domain

import (
	"fmt"
	"strings"
	"time"
)

// ─── Money ──────────────────────────────────────────────────────────────────

// Amount is a fixed-point USDT value with 6 decimal places.
// All money math is integer math; rates are basis points (10000 = 100%).
type Amount = int64

// UnitsPerUSDT is the number of Amount units in one USDT.
const UnitsPerUSDT Amount = 1_000_000

// BpsDenominator is the basis-point scale.
const BpsDenominator int64 = 10_000

// USDT converts a whole-USDT value to Amount units.
func USDT(v int64) Amount { return v * UnitsPerUSDT }

// ApplyBps returns amount * bps / 10000, truncating toward zero.
func ApplyBps(amount Amount, bps int64) Amount {
	return amount * bps / BpsDenominator
}

// FormatUSDT renders an Amount as a human-readable USDT string.
func FormatUSDT(a Amount) string {
	sign := ""
	if a < 0 {
		sign = "-"
		a = -a
	}
	whole := a / UnitsPerUSDT
	frac := a % UnitsPerUSDT
	if frac == 0 {
		return fmt.Sprintf("%s%d USDT", sign, whole)
	}
	s := strings.TrimRight(fmt.Sprintf("%06d", frac), "0")
	return fmt.Sprintf("%s%d.%s USDT", sign, whole, s)
}

// ─── Addresses ──────────────────────────────────────────────────────────────

// Address identifies a participant wallet. Stored lowercased so lookups are
// case-insensitive, as on-chain addresses are.
type Address string

// NormalizeAddress lowercases an address for map keys and comparisons.
func NormalizeAddress(a Address) Address {
	return Address(strings.ToLower(strings.TrimSpace(string(a))))
}

// ─── Leader Ranks ───────────────────────────────────────────────────────────

// LeaderRank is a user's leadership qualification level.
type LeaderRank int

const (
	RankNone LeaderRank = iota
	RankShiningStar
	RankSilverStar
)

// String returns the rank name used in the API and the event log.
func (r LeaderRank) String() string {
	switch r {
	case RankShiningStar:
		return "shining-star"
	case RankSilverStar:
		return "silver-star"
	default:
		return "none"
	}
}

// ─── Earnings Sources ───────────────────────────────────────────────────────

// EarningsSource identifies which part of the compensation plan paid a credit.
// The order matches the contract's getPoolEarnings uint128[5] layout.
type EarningsSource int

const (
	SourceDirect EarningsSource = iota
	SourceLevel
	SourceUpline
	SourceLeader // leader and club pool payouts share this slot
	SourceHelp

	NumEarningsSources = 5
)

// String returns the source name used in commission events.
func (s EarningsSource) String() string {
	switch s {
	case SourceDirect:
		return "direct"
	case SourceLevel:
		return "level"
	case SourceUpline:
		return "upline"
	case SourceLeader:
		return "leader"
	case SourceHelp:
		return "help"
	default:
		return "unknown"
	}
}

// ─── User ───────────────────────────────────────────────────────────────────

// User is a registered participant. Created on registration, mutated by the
// commission engine (earnings, cap) and the withdrawal ledger (withdrawable
// balance). Never deleted — deactivation is a soft flag.
type User struct {
	ID               uint64                     `json:"id"`
	Address          Address                    `json:"address"`
	Sponsor          Address                    `json:"sponsor,omitempty"` // empty only for the root user
	PackageTier      int                        `json:"package_tier"`
	TotalInvested    Amount                     `json:"total_invested"`
	TotalEarnings    Amount                     `json:"total_earnings"`
	Withdrawable     Amount                     `json:"withdrawable_amount"`
	EarningsBySource [NumEarningsSources]Amount `json:"earnings_by_source"`
	IsCapped         bool                       `json:"is_capped"`
	IsActive         bool                       `json:"is_active"`
	Rank             LeaderRank                 `json:"leader_rank"`
	DirectReferrals  int                        `json:"direct_referrals"`
	TeamSize         int                        `json:"team_size"` // downline only, excludes self
	RegisteredAt     time.Time                  `json:"registration_time"`
	LastWithdrawalAt time.Time                  `json:"last_withdrawal_at,omitempty"`
}

// ─── Pools ──────────────────────────────────────────────────────────────────

// PoolName identifies one of the shared reward pools.
type PoolName string

const (
	PoolLeader PoolName = "leader"
	PoolClub   PoolName = "club"
	PoolHelp   PoolName = "help"
)

// PoolNames lists the shared pools in display order.
func PoolNames() []PoolName {
	return []PoolName{PoolLeader, PoolClub, PoolHelp}
}

// Pool is a shared balance credited by the commission engine and drained by
// periodic distribution.
type Pool struct {
	Name            PoolName  `json:"name"`
	Balance         Amount    `json:"balance"`
	LastDistributed time.Time `json:"last_distribution_time,omitempty"`
}

// ─── Withdrawals ────────────────────────────────────────────────────────────

// WithdrawalRecord is an append-only ledger entry for one processed
// withdrawal. Amount = Withdrawn + Reinvested + Fee, always.
type WithdrawalRecord struct {
	ID         string    `json:"id"`
	User       Address   `json:"user"`
	Amount     Amount    `json:"amount"`
	Withdrawn  Amount    `json:"withdrawn"`
	Reinvested Amount    `json:"reinvested"`
	Fee        Amount    `json:"fee"`
	Timestamp  time.Time `json:"timestamp"`
}

// ─── Reconciliation ─────────────────────────────────────────────────────────

// Stats are the global totals used for conservation-of-funds checks.
// The exact identity, holding after every committed operation, is
//
//	TotalInvested == AdminFees + TotalEarned + PoolBalances + Treasury
//
// TotalInvested counts deposits plus reinvested withdrawal portions (a
// reinvestment is a cash-out immediately re-contributed to the help pool).
// TotalEarned is cumulative credited earnings and never decreases; cash-outs
// and withdrawal fees are movements out of already-credited balances, tracked
// separately below.
type Stats struct {
	Users          int    `json:"users"`
	TotalInvested  Amount `json:"total_invested"`
	TotalEarned    Amount `json:"total_earned"`
	TotalWithdrawn Amount `json:"total_withdrawn"`  // cash-outs paid to users
	WithdrawalFees Amount `json:"withdrawal_fees"`  // treasury fee on cash-outs
	PoolBalances   Amount `json:"pool_balances"`    // sum of undistributed pools
	Treasury       Amount `json:"treasury"`         // sweeps, forfeits, dust
	AdminFees      Amount `json:"admin_fees"`       // deposit-side platform fee
}
