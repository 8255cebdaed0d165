package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/leadfive-network/leadfive/internal/domain"
)

// ─── Commission Math ────────────────────────────────────────────────────────

func TestCommission_DirectBonus(t *testing.T) {
	e := newTestEngine(t)
	plan := e.Plan()

	mustRegister(t, e, "0xAlice", root, 2) // 50 USDT

	price := domain.USDT(50)
	distributable := price - domain.ApplyBps(price, plan.AdminFeeBps)
	wantDirect := domain.ApplyBps(distributable, plan.DirectBonusBps)

	earnings, err := e.PoolEarnings(context.Background(), root)
	if err != nil {
		t.Fatalf("PoolEarnings: %v", err)
	}
	if earnings[domain.SourceDirect] != wantDirect {
		t.Errorf("direct earnings = %s, want %s",
			domain.FormatUSDT(earnings[domain.SourceDirect]), domain.FormatUSDT(wantDirect))
	}
	checkConservation(t, e)
}

func TestCommission_LevelWalk(t *testing.T) {
	e := newTestEngine(t)
	plan := e.Plan()

	// root -> A -> B; B's deposit pays A at level 1 and root at level 2.
	mustRegister(t, e, "0xA", root, 2)
	mustRegister(t, e, "0xB", "0xA", 1) // 30 USDT

	price := domain.USDT(30)
	distributable := price - domain.ApplyBps(price, plan.AdminFeeBps)

	a, _ := e.PoolEarnings(context.Background(), "0xA")
	rootEarnings, _ := e.PoolEarnings(context.Background(), root)

	if want := domain.ApplyBps(distributable, plan.LevelBonusBps[0]); a[domain.SourceLevel] != want {
		t.Errorf("A level earnings = %d, want %d (level 1 of B's deposit)", a[domain.SourceLevel], want)
	}

	// Root earned level bonuses from both deposits: level 1 of A's 50 and
	// level 2 of B's 30.
	priceA := domain.USDT(50)
	distA := priceA - domain.ApplyBps(priceA, plan.AdminFeeBps)
	wantRoot := domain.ApplyBps(distA, plan.LevelBonusBps[0]) +
		domain.ApplyBps(distributable, plan.LevelBonusBps[1])
	if rootEarnings[domain.SourceLevel] != wantRoot {
		t.Errorf("root level earnings = %d, want %d", rootEarnings[domain.SourceLevel], wantRoot)
	}
	checkConservation(t, e)
}

func TestCommission_UplineSplit(t *testing.T) {
	e := newTestEngine(t)
	plan := e.Plan()

	mustRegister(t, e, "0xA", root, 4) // 200 USDT

	price := domain.USDT(200)
	distributable := price - domain.ApplyBps(price, plan.AdminFeeBps)
	perSlot := domain.ApplyBps(distributable, plan.UplineBonusBps) / int64(plan.UplineSlots)

	rootEarnings, _ := e.PoolEarnings(context.Background(), root)
	if rootEarnings[domain.SourceUpline] != perSlot {
		t.Errorf("root upline earnings = %d, want one slot %d", rootEarnings[domain.SourceUpline], perSlot)
	}

	// The other 29 slots have no ancestor — their shares are forfeited to
	// the treasury, not redistributed.
	s := e.Stats()
	if s.Treasury == 0 {
		t.Error("expected forfeited upline slots in treasury")
	}
	checkConservation(t, e)
}

func TestCommission_PoolRouting(t *testing.T) {
	e := newTestEngine(t)
	plan := e.Plan()

	mustRegister(t, e, "0xA", root, 3) // 100 USDT

	price := domain.USDT(100)
	distributable := price - domain.ApplyBps(price, plan.AdminFeeBps)

	pools, _ := e.PoolBalances(context.Background())
	want := map[domain.PoolName]domain.Amount{
		domain.PoolLeader: domain.ApplyBps(distributable, plan.LeaderPoolBps),
		domain.PoolClub:   domain.ApplyBps(distributable, plan.ClubPoolBps),
		domain.PoolHelp:   domain.ApplyBps(distributable, plan.HelpPoolBps),
	}
	for _, p := range pools {
		if p.Balance != want[p.Name] {
			t.Errorf("%s pool = %d, want %d", p.Name, p.Balance, want[p.Name])
		}
	}
	checkConservation(t, e)
}

func TestCommission_AdminFee(t *testing.T) {
	e := newTestEngine(t)
	mustRegister(t, e, "0xA", root, 1) // 30 USDT

	s := e.Stats()
	if want := domain.ApplyBps(domain.USDT(30), e.Plan().AdminFeeBps); s.AdminFees != want {
		t.Errorf("admin fees = %d, want %d", s.AdminFees, want)
	}
}

// ─── Earnings Cap ───────────────────────────────────────────────────────────

// The clamp example: cap 200, earnings 195, credit 20 → 5 credited, capped,
// the 15 overflow forfeited to the treasury and not retroactively recovered.
func TestCredit_ClampsAtCap(t *testing.T) {
	e := newTestEngine(t)
	mustRegister(t, e, "0xAlice", root, 2) // invested 50, cap 200

	e.mu.Lock()
	u := e.users["0xalice"]
	u.TotalEarnings = domain.USDT(195)
	e.stats.TotalEarned += domain.USDT(195)
	e.stats.TotalInvested += domain.USDT(195) // keep the books balanced for the check below

	credited := e.credit(u, domain.USDT(20), domain.SourceDirect, root, testTime(0))
	e.mu.Unlock()

	if credited != domain.USDT(5) {
		t.Errorf("credited = %s, want 5 USDT", domain.FormatUSDT(credited))
	}
	if !u.IsCapped {
		t.Error("user should be capped after clamping credit")
	}
	if u.TotalEarnings != domain.USDT(200) {
		t.Errorf("TotalEarnings = %s, want exactly the 200 USDT cap", domain.FormatUSDT(u.TotalEarnings))
	}

	// The forfeited 15 USDT sits in the treasury.
	s := e.Stats()
	if s.Treasury < domain.USDT(15) {
		t.Errorf("treasury = %s, want at least the 15 USDT overflow", domain.FormatUSDT(s.Treasury))
	}
}

func TestCredit_SkipsCappedAndInactive(t *testing.T) {
	e := newTestEngine(t)
	mustRegister(t, e, "0xAlice", root, 1)

	e.mu.Lock()
	u := e.users["0xalice"]
	u.IsCapped = true
	before := u.TotalEarnings
	treasuryBefore := e.stats.Treasury

	if got := e.credit(u, domain.USDT(10), domain.SourceLevel, root, testTime(0)); got != 0 {
		t.Errorf("credit to capped user = %d, want 0", got)
	}
	if u.TotalEarnings != before {
		t.Error("capped user's earnings changed")
	}
	if e.stats.Treasury != treasuryBefore+domain.USDT(10) {
		t.Error("forfeited credit not swept to treasury")
	}
	e.mu.Unlock()
}

// The root never deposits, so a zero-invested cap would silence it forever.
func TestCredit_RootIsCapExempt(t *testing.T) {
	e := newTestEngine(t)
	for _, addr := range []domain.Address{"0xU1", "0xU2", "0xU3"} {
		mustRegister(t, e, addr, root, 4)
	}

	rootInfo, _ := e.UserInfo(context.Background(), root)
	if rootInfo.IsCapped {
		t.Error("root became capped")
	}
	if rootInfo.TotalEarnings == 0 {
		t.Error("root earned nothing from direct downline deposits")
	}
	checkConservation(t, e)
}

func TestCapEnforcement_NeverExceeded(t *testing.T) {
	e := newTestEngine(t)

	// A cheap sponsor under heavy tier-4 volume caps quickly: invested 30,
	// cap 120, while each downline registration pays ~76 USDT direct.
	mustRegister(t, e, "0xSponsor", root, 1)
	for _, addr := range []domain.Address{"0xU1", "0xU2", "0xU3", "0xU4"} {
		mustRegister(t, e, addr, "0xSponsor", 4)
	}

	u, _ := e.UserInfo(context.Background(), "0xSponsor")
	capLimit := e.Plan().EarningsCap(u.TotalInvested)
	if u.TotalEarnings > capLimit {
		t.Errorf("earnings %s exceed cap %s",
			domain.FormatUSDT(u.TotalEarnings), domain.FormatUSDT(capLimit))
	}
	if !u.IsCapped {
		t.Error("sponsor should be capped after 4 premium registrations")
	}
	checkConservation(t, e)
}

// ─── Upgrades ───────────────────────────────────────────────────────────────

func TestUpgrade_RaisesTierAndCap(t *testing.T) {
	e := newTestEngine(t)
	mustRegister(t, e, "0xAlice", root, 1)

	u, err := e.Upgrade("0xAlice", 3, testTime(time.Hour))
	if err != nil {
		t.Fatalf("Upgrade: %v", err)
	}
	if u.PackageTier != 3 {
		t.Errorf("tier = %d, want 3", u.PackageTier)
	}
	if want := domain.USDT(130); u.TotalInvested != want { // 30 + 100
		t.Errorf("TotalInvested = %s, want %s", domain.FormatUSDT(u.TotalInvested), domain.FormatUSDT(want))
	}
	checkConservation(t, e)
}

func TestUpgrade_Failures(t *testing.T) {
	e := newTestEngine(t)
	mustRegister(t, e, "0xAlice", root, 2)

	tests := []struct {
		name string
		addr domain.Address
		tier int
		want error
	}{
		{"unknown user", "0xNobody", 3, domain.ErrUserNotFound},
		{"same tier", "0xAlice", 2, domain.ErrInvalidUpgrade},
		{"downgrade", "0xAlice", 1, domain.ErrInvalidUpgrade},
		{"unknown tier", "0xAlice", 9, domain.ErrInvalidPackage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := e.Upgrade(tt.addr, tt.tier, testTime(0)); !errors.Is(err, tt.want) {
				t.Errorf("Upgrade = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestUpgrade_CanUncap(t *testing.T) {
	e := newTestEngine(t)
	mustRegister(t, e, "0xAlice", root, 1)

	e.mu.Lock()
	u := e.users["0xalice"]
	u.TotalEarnings = e.plan.EarningsCap(u.TotalInvested)
	u.IsCapped = true
	e.stats.TotalEarned += u.TotalEarnings
	e.stats.TotalInvested += u.TotalEarnings
	e.mu.Unlock()

	if _, err := e.Upgrade("0xAlice", 4, testTime(time.Hour)); err != nil {
		t.Fatalf("Upgrade: %v", err)
	}
	after, _ := e.UserInfo(context.Background(), "0xAlice")
	if after.IsCapped {
		t.Error("upgrade should un-cap a user whose cap grew past earnings")
	}
}

// ─── Conservation Under Load ────────────────────────────────────────────────

func TestConservation_RandomishSequence(t *testing.T) {
	e := newTestEngine(t)

	sponsors := []domain.Address{root}
	addrs := []domain.Address{
		"0x10", "0x11", "0x12", "0x13", "0x14", "0x15", "0x16", "0x17",
		"0x18", "0x19", "0x1a", "0x1b", "0x1c", "0x1d", "0x1e", "0x1f",
	}
	for i, addr := range addrs {
		sponsor := sponsors[i%len(sponsors)]
		tier := i%4 + 1
		mustRegister(t, e, addr, sponsor, tier)
		sponsors = append(sponsors, addr)
		checkConservation(t, e)
	}

	// A few upgrades on top.
	for _, addr := range []domain.Address{"0x10", "0x12", "0x14"} {
		if _, err := e.Upgrade(addr, 4, testTime(time.Hour)); err != nil &&
			!errors.Is(err, domain.ErrInvalidUpgrade) {
			t.Fatalf("Upgrade(%s): %v", addr, err)
		}
		checkConservation(t, e)
	}
}
