package engine

import (
	"time"

	"github.com/leadfive-network/leadfive/internal/domain"
)

// ─── Withdrawal Ledger ──────────────────────────────────────────────────────

// Withdraw cashes out part of a user's withdrawable balance. The amount is
// split into a paid portion and a mandatory reinvestment per the user's
// introduction tier; the treasury fee applies to the paid portion only.
// Reinvested funds flow into the help pool and raise the user's invested
// total (and therefore the earnings cap). TotalEarnings is never reduced —
// earnings history is immutable once credited.
//
// The global write lock serializes withdrawals, so the same withdrawable
// balance can never be spent twice.
func (e *Engine) Withdraw(addr domain.Address, amount domain.Amount, at time.Time) (*domain.WithdrawalRecord, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	ev, err := e.buildWithdraw(addr, amount, at)
	if err != nil {
		return nil, err
	}
	if err := e.append(ev); err != nil {
		return nil, err
	}
	rec := e.applyWithdraw(ev)
	return &rec, nil
}

func (e *Engine) buildWithdraw(addr domain.Address, amount domain.Amount, at time.Time) (domain.Event, error) {
	addr = domain.NormalizeAddress(addr)

	u, ok := e.users[addr]
	if !ok {
		return domain.Event{}, domain.ErrUserNotFound
	}
	if amount < e.plan.MinWithdrawal {
		return domain.Event{}, domain.ErrBelowMinimum
	}
	if amount > u.Withdrawable {
		return domain.Event{}, domain.ErrInsufficientWithdrawable
	}
	if !u.LastWithdrawalAt.IsZero() && at.Sub(u.LastWithdrawalAt) < e.plan.WithdrawalInterval {
		return domain.Event{}, domain.ErrRateLimited
	}

	split := e.plan.SplitFor(u.DirectReferrals)
	paidPortion := domain.ApplyBps(amount, split.WithdrawBps)
	reinvested := amount - paidPortion // remainder reinvests, no dust
	fee := domain.ApplyBps(paidPortion, e.plan.WithdrawalFeeBps)

	ev := newEvent(domain.EventWithdrawalProcessed, at)
	ev.User = addr
	ev.Amount = amount
	ev.Reinvested = reinvested
	ev.Fee = fee
	return ev, nil
}

func (e *Engine) applyWithdraw(ev domain.Event) domain.WithdrawalRecord {
	u := e.users[ev.User]
	paid := ev.Amount - ev.Reinvested - ev.Fee

	u.Withdrawable -= ev.Amount
	u.LastWithdrawalAt = ev.Timestamp

	// Reinvestment re-enters the system as inflow routed to the help pool.
	if ev.Reinvested > 0 {
		u.TotalInvested += ev.Reinvested
		e.stats.TotalInvested += ev.Reinvested
		e.pools[domain.PoolHelp].Balance += ev.Reinvested
		e.uncapIfRoom(u)
	}

	e.stats.TotalWithdrawn += paid
	e.stats.WithdrawalFees += ev.Fee

	rec := domain.WithdrawalRecord{
		ID:         ev.ID,
		User:       ev.User,
		Amount:     ev.Amount,
		Withdrawn:  paid,
		Reinvested: ev.Reinvested,
		Fee:        ev.Fee,
		Timestamp:  ev.Timestamp,
	}
	e.withdrawals = append(e.withdrawals, rec)
	return rec
}
