package engine

import (
	"time"

	"github.com/leadfive-network/leadfive/internal/domain"
)

// ─── Commission Flow ────────────────────────────────────────────────────────

// settleDeposit allocates a qualifying payment (registration or upgrade)
// according to the plan:
//
//	platform fee → direct bonus → level walk → upline split → shared pools
//
// Capped, inactive or missing recipients forfeit their share to the
// treasury; forfeits are never forwarded. Whatever the integer math leaves
// unallocated is swept to the treasury last, so the deposit is always
// accounted for exactly:
//
//	amount == fee + credits + pool credits + treasury sweeps
//
// Runs under the write lock after the input event is durable; nothing here
// can fail.
func (e *Engine) settleDeposit(payer *domain.User, amount domain.Amount, at time.Time) {
	fee := domain.ApplyBps(amount, e.plan.AdminFeeBps)
	e.stats.AdminFees += fee
	distributable := amount - fee

	var assigned domain.Amount

	// Direct bonus to the immediate sponsor.
	direct := domain.ApplyBps(distributable, e.plan.DirectBonusBps)
	e.credit(e.users[payer.Sponsor], direct, domain.SourceDirect, payer.Address, at)
	assigned += direct

	// Level bonus: depth-bounded upline walk. The sponsor is level 1.
	levels := e.upline(payer, len(e.plan.LevelBonusBps))
	for i, bps := range e.plan.LevelBonusBps {
		share := domain.ApplyBps(distributable, bps)
		if i < len(levels) {
			e.credit(levels[i], share, domain.SourceLevel, payer.Address, at)
		} else {
			e.stats.Treasury += share
		}
		assigned += share
	}

	// Upline bonus: equal split across a fixed number of ancestor slots.
	// Slots above the root are forfeited, as is the division remainder.
	uplineTotal := domain.ApplyBps(distributable, e.plan.UplineBonusBps)
	perSlot := uplineTotal / int64(e.plan.UplineSlots)
	uplines := e.upline(payer, e.plan.UplineSlots)
	for slot := 0; slot < e.plan.UplineSlots; slot++ {
		if slot < len(uplines) {
			e.credit(uplines[slot], perSlot, domain.SourceUpline, payer.Address, at)
		} else {
			e.stats.Treasury += perSlot
		}
		assigned += perSlot
	}

	// Shared pools.
	for _, alloc := range []struct {
		pool domain.PoolName
		bps  int64
	}{
		{domain.PoolLeader, e.plan.LeaderPoolBps},
		{domain.PoolClub, e.plan.ClubPoolBps},
		{domain.PoolHelp, e.plan.HelpPoolBps},
	} {
		share := domain.ApplyBps(distributable, alloc.bps)
		e.pools[alloc.pool].Balance += share
		assigned += share
	}

	// Integer rounding dust.
	e.stats.Treasury += distributable - assigned
}
