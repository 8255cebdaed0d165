package domain

import "time"

// ─── Event Log ──────────────────────────────────────────────────────────────
// Every state-changing operation appends exactly one input event; commission
// credits additionally append derived audit events. Input events carry the
// full operation inputs, so replaying them through the (deterministic)
// engine rebuilds identical state — mirroring blockchain semantics.

// EventType classifies an event-log record.
type EventType string

const (
	EventUserRegistered        EventType = "USER_REGISTERED"
	EventPackageUpgraded       EventType = "PACKAGE_UPGRADED"
	EventCommissionDistributed EventType = "COMMISSION_DISTRIBUTED"
	EventPoolDistributed       EventType = "POOL_DISTRIBUTED"
	EventWithdrawalProcessed   EventType = "WITHDRAWAL_PROCESSED"
	EventUserDeactivated       EventType = "USER_DEACTIVATED"
)

// InputEvent reports whether events of this type are required to rebuild
// state by replay. Derived events are audit-only.
func (t EventType) InputEvent() bool {
	switch t {
	case EventUserRegistered, EventPackageUpgraded,
		EventWithdrawalProcessed, EventUserDeactivated, EventPoolDistributed:
		return true
	default:
		return false
	}
}

// Event is one append-only event-log record.
type Event struct {
	ID        string    `json:"id"`
	Seq       int64     `json:"seq"` // assigned by the store, dense from 1
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`

	// Principal parties. User is always set; Counterparty is the sponsor on
	// registration and the payer on commission events.
	User         Address `json:"user"`
	Counterparty Address `json:"counterparty,omitempty"`

	// Money moved by this event, meaning depends on Type.
	Amount Amount `json:"amount,omitempty"`

	// Type-specific fields.
	PackageTier int      `json:"package_tier,omitempty"` // registration, upgrade
	Source      string   `json:"source,omitempty"`       // commission: direct|level|upline|leader|help
	Pool        PoolName `json:"pool,omitempty"`         // pool distribution
	Weighting   string   `json:"weighting,omitempty"`    // pool distribution: equal|team_weighted
	Reinvested  Amount   `json:"reinvested,omitempty"`   // withdrawal
	Fee         Amount   `json:"fee,omitempty"`          // withdrawal
}

// EventSink receives committed events for persistence and fan-out.
// Append must be durable before the operation is reported as committed.
type EventSink interface {
	Append(ev Event) error
}
