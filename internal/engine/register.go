package engine

import (
	"fmt"
	"time"

	"github.com/leadfive-network/leadfive/internal/domain"
)

// ─── Registration ───────────────────────────────────────────────────────────

// Register creates a user under a sponsor and runs the commission flow for
// the package payment. The sponsor must already be registered and active;
// only the root user is sponsorless, and it exists from engine init.
func (e *Engine) Register(addr, sponsor domain.Address, tier int, at time.Time) (*domain.User, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	ev, err := e.buildRegister(addr, sponsor, tier, at)
	if err != nil {
		return nil, err
	}
	if err := e.append(ev); err != nil {
		return nil, err
	}
	u := e.applyRegister(ev)
	cp := *u
	return &cp, nil
}

// buildRegister validates inputs and produces the input event.
// No state is mutated here — validation failures leave nothing behind.
func (e *Engine) buildRegister(addr, sponsor domain.Address, tier int, at time.Time) (domain.Event, error) {
	addr = domain.NormalizeAddress(addr)
	sponsor = domain.NormalizeAddress(sponsor)

	if addr == "" {
		return domain.Event{}, fmt.Errorf("register: address required")
	}
	if _, exists := e.users[addr]; exists {
		return domain.Event{}, domain.ErrAlreadyRegistered
	}
	pkg, err := e.plan.PackageByTier(tier)
	if err != nil {
		return domain.Event{}, err
	}
	sp, ok := e.users[sponsor]
	if !ok || !sp.IsActive {
		return domain.Event{}, domain.ErrInvalidSponsor
	}

	ev := newEvent(domain.EventUserRegistered, at)
	ev.User = addr
	ev.Counterparty = sponsor
	ev.Amount = pkg.Price
	ev.PackageTier = tier
	return ev, nil
}

// applyRegister mutates state from a validated registration event.
func (e *Engine) applyRegister(ev domain.Event) *domain.User {
	u := &domain.User{
		ID:            e.nextID,
		Address:       ev.User,
		Sponsor:       ev.Counterparty,
		PackageTier:   ev.PackageTier,
		TotalInvested: ev.Amount,
		IsActive:      true,
		RegisteredAt:  ev.Timestamp,
	}
	e.nextID++
	e.users[ev.User] = u

	e.place(u)
	e.stats.TotalInvested += ev.Amount
	e.settleDeposit(u, ev.Amount, ev.Timestamp)
	return u
}

// ─── Placement ──────────────────────────────────────────────────────────────

// place appends u as a unilevel child of its sponsor (no spillover), then
// walks the full upline to the root bumping team sizes and recomputing
// leader ranks. The walk runs inside the registration's lock section, so a
// retry after a failed registration can never double-count.
func (e *Engine) place(u *domain.User) {
	sp := e.users[u.Sponsor]
	e.children[u.Sponsor] = append(e.children[u.Sponsor], u.Address)
	sp.DirectReferrals++

	for _, anc := range e.upline(u, 0) {
		anc.TeamSize++
		anc.Rank = e.plan.RankFor(anc.TeamSize, anc.DirectReferrals)
	}
}

// ─── Package Upgrade ────────────────────────────────────────────────────────

// Upgrade moves a user to a higher package tier, charging the full price of
// the new tier and running the same commission flow as a registration. The
// larger invested total raises the earnings cap, which can un-cap a user.
func (e *Engine) Upgrade(addr domain.Address, newTier int, at time.Time) (*domain.User, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	ev, err := e.buildUpgrade(addr, newTier, at)
	if err != nil {
		return nil, err
	}
	if err := e.append(ev); err != nil {
		return nil, err
	}
	u := e.applyUpgrade(ev)
	cp := *u
	return &cp, nil
}

func (e *Engine) buildUpgrade(addr domain.Address, newTier int, at time.Time) (domain.Event, error) {
	addr = domain.NormalizeAddress(addr)

	u, ok := e.users[addr]
	if !ok {
		return domain.Event{}, domain.ErrUserNotFound
	}
	if !u.IsActive {
		return domain.Event{}, domain.ErrUserNotFound
	}
	pkg, err := e.plan.PackageByTier(newTier)
	if err != nil {
		return domain.Event{}, err
	}
	if newTier <= u.PackageTier {
		return domain.Event{}, domain.ErrInvalidUpgrade
	}

	ev := newEvent(domain.EventPackageUpgraded, at)
	ev.User = addr
	ev.Counterparty = u.Sponsor
	ev.Amount = pkg.Price
	ev.PackageTier = newTier
	return ev, nil
}

func (e *Engine) applyUpgrade(ev domain.Event) *domain.User {
	u := e.users[ev.User]
	u.PackageTier = ev.PackageTier
	u.TotalInvested += ev.Amount
	e.uncapIfRoom(u)

	e.stats.TotalInvested += ev.Amount
	e.settleDeposit(u, ev.Amount, ev.Timestamp)
	return u
}

// uncapIfRoom clears the capped flag when a larger invested total reopens
// earnings headroom.
func (e *Engine) uncapIfRoom(u *domain.User) {
	if u.IsCapped && u.TotalEarnings < e.plan.EarningsCap(u.TotalInvested) {
		u.IsCapped = false
	}
}

// ─── Deactivation ───────────────────────────────────────────────────────────

// Deactivate soft-disables a user: the record and its placement remain (team
// sizes are history, not membership), but the user stops receiving credits
// and is skipped by bonus walks and pool distributions.
func (e *Engine) Deactivate(addr domain.Address, at time.Time) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	addr = domain.NormalizeAddress(addr)
	u, ok := e.users[addr]
	if !ok {
		return domain.ErrUserNotFound
	}
	if !u.IsActive {
		return nil
	}

	ev := newEvent(domain.EventUserDeactivated, at)
	ev.User = addr
	if err := e.append(ev); err != nil {
		return err
	}
	e.applyDeactivate(ev)
	return nil
}

func (e *Engine) applyDeactivate(ev domain.Event) {
	e.users[ev.User].IsActive = false
}
