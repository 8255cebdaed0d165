package engine

import (
	"sort"
	"time"

	"github.com/leadfive-network/leadfive/internal/domain"
)

// ─── Pool Distribution ──────────────────────────────────────────────────────

// Distribute drains a shared pool to its currently-eligible users. The
// pre-distribution balance is fully allocated: eligible shares are credited
// (cap clamps sweep to the treasury) and the integer-division remainder is
// swept to the treasury, never lost silently. The pool balance is zero
// afterwards and the eligibility clock restarts.
//
// Eligibility:
//
//	leader → rank ShiningStar or above
//	club   → active users at or above the club tier
//	help   → active, non-capped users
func (e *Engine) Distribute(pool domain.PoolName, at time.Time) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	ev, err := e.buildDistribute(pool, at)
	if err != nil {
		return err
	}
	if err := e.append(ev); err != nil {
		return err
	}
	e.applyDistribute(ev)
	return nil
}

func (e *Engine) buildDistribute(pool domain.PoolName, at time.Time) (domain.Event, error) {
	p, ok := e.pools[pool]
	if !ok {
		return domain.Event{}, domain.ErrUnknownPool
	}
	if p.Balance <= 0 {
		return domain.Event{}, domain.ErrPoolEmpty
	}
	// A replayed distribution proved its interval when it was committed;
	// the interval configured now must not invalidate an existing log.
	if !e.replaying {
		interval := e.cfg.DistributionIntervals[pool]
		if !p.LastDistributed.IsZero() && at.Sub(p.LastDistributed) < interval {
			return domain.Event{}, domain.ErrNotEligiblePeriod
		}
	}
	if len(e.eligible(pool)) == 0 {
		return domain.Event{}, domain.ErrNoEligibleUsers
	}

	ev := newEvent(domain.EventPoolDistributed, at)
	ev.Pool = pool
	ev.Amount = p.Balance
	ev.Weighting = string(e.cfg.Weighting)
	return ev, nil
}

func (e *Engine) applyDistribute(ev domain.Event) {
	p := e.pools[ev.Pool]
	balance := p.Balance
	recipients := e.eligible(ev.Pool)

	source := domain.SourceLeader
	if ev.Pool == domain.PoolHelp {
		source = domain.SourceHelp
	}

	// Shares are computed in token units, not basis points, so the
	// integer-division dust is bounded by the recipient count.
	weights, total := e.poolWeights(PoolWeighting(ev.Weighting), recipients)
	var paid domain.Amount
	for i, r := range recipients {
		share := balance * weights[i] / total
		e.credit(r, share, source, "", ev.Timestamp)
		paid += share
	}

	// Rounding dust goes to the treasury, never lost.
	e.stats.Treasury += balance - paid

	p.Balance = 0
	p.LastDistributed = ev.Timestamp
}

// eligible returns the users qualifying for a pool, in registration order
// (map iteration would make replay non-deterministic).
func (e *Engine) eligible(pool domain.PoolName) []*domain.User {
	ordered := make([]*domain.User, 0, len(e.users))
	for _, u := range e.users {
		ordered = append(ordered, u)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].ID < ordered[j].ID })

	var out []*domain.User
	for _, u := range ordered {
		if !u.IsActive {
			continue
		}
		switch pool {
		case domain.PoolLeader:
			if u.Rank >= domain.RankShiningStar {
				out = append(out, u)
			}
		case domain.PoolClub:
			if u.PackageTier >= e.plan.ClubTierMin {
				out = append(out, u)
			}
		case domain.PoolHelp:
			if !u.IsCapped {
				out = append(out, u)
			}
		}
	}
	return out
}

// poolWeights returns each recipient's integer weight under a weighting
// policy, plus the total weight. The policy comes from the distribution
// event, so replay splits a pool the way it was actually split; events
// logged before the policy was recorded fall back to the configured one.
func (e *Engine) poolWeights(policy PoolWeighting, recipients []*domain.User) ([]int64, int64) {
	if policy == "" {
		policy = e.cfg.Weighting
	}
	weights := make([]int64, len(recipients))
	var total int64
	for i, r := range recipients {
		w := int64(1)
		if policy == WeightTeamWeighted {
			w = int64(r.TeamSize) + 1
		}
		weights[i] = w
		total += w
	}
	return weights, total
}
