package engine

import (
	"fmt"

	"github.com/leadfive-network/leadfive/internal/domain"
)

// ─── Replay ─────────────────────────────────────────────────────────────────

// Replay re-executes an ordered event log against a fresh engine, rebuilding
// the exact pre-shutdown state. Only input events are applied; derived
// commission events are regenerated implicitly (and not re-appended — the
// sink is suppressed for the duration).
//
// The engine must be freshly constructed: replaying onto live state is a
// programming error and fails on the first conflicting event.
func (e *Engine) Replay(events []domain.Event) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.replaying = true
	defer func() { e.replaying = false }()

	for _, ev := range events {
		if !ev.Type.InputEvent() {
			continue
		}
		if err := e.applyEvent(ev); err != nil {
			return fmt.Errorf("replay: event %s (seq %d): %w", ev.Type, ev.Seq, err)
		}
	}
	return nil
}

// applyEvent validates and applies one input event. Validation runs against
// the rebuilt state, so a log produced by this engine always replays
// cleanly; a failure means the log is corrupt or truncated out of order.
func (e *Engine) applyEvent(ev domain.Event) error {
	switch ev.Type {
	case domain.EventUserRegistered:
		checked, err := e.buildRegister(ev.User, ev.Counterparty, ev.PackageTier, ev.Timestamp)
		if err != nil {
			return err
		}
		checked.ID = ev.ID
		e.applyRegister(checked)

	case domain.EventPackageUpgraded:
		checked, err := e.buildUpgrade(ev.User, ev.PackageTier, ev.Timestamp)
		if err != nil {
			return err
		}
		checked.ID = ev.ID
		e.applyUpgrade(checked)

	case domain.EventWithdrawalProcessed:
		checked, err := e.buildWithdraw(ev.User, ev.Amount, ev.Timestamp)
		if err != nil {
			return err
		}
		checked.ID = ev.ID
		e.applyWithdraw(checked)

	case domain.EventPoolDistributed:
		checked, err := e.buildDistribute(ev.Pool, ev.Timestamp)
		if err != nil {
			return err
		}
		checked.ID = ev.ID
		// Split the pool under the policy in force when the event was
		// logged, not whatever the config says now.
		if ev.Weighting != "" {
			checked.Weighting = ev.Weighting
		}
		e.applyDistribute(checked)

	case domain.EventUserDeactivated:
		if _, ok := e.users[ev.User]; !ok {
			return domain.ErrUserNotFound
		}
		e.applyDeactivate(ev)

	default:
		return fmt.Errorf("unknown input event type %q", ev.Type)
	}
	return nil
}
