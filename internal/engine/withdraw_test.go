package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/leadfive-network/leadfive/internal/domain"
)

// fund registers enough downline under addr that it accumulates a
// withdrawable balance from direct bonuses.
func fund(t *testing.T, e *Engine, addr domain.Address, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		child := domain.Address("0xfund" + string(rune('a'+i)))
		mustRegister(t, e, child, addr, 4)
	}
}

// ─── Withdrawal Splits ──────────────────────────────────────────────────────

func TestWithdraw_SplitAndFee(t *testing.T) {
	e := newTestEngine(t)
	mustRegister(t, e, "0xAlice", root, 4)
	fund(t, e, "0xAlice", 2) // 2 directs -> 70/30 split

	amount := domain.USDT(100)
	rec, err := e.Withdraw("0xAlice", amount, testTime(time.Hour))
	if err != nil {
		t.Fatalf("Withdraw: %v", err)
	}

	paidPortion := domain.ApplyBps(amount, 7000)
	wantFee := domain.ApplyBps(paidPortion, 500)
	if rec.Reinvested != amount-paidPortion {
		t.Errorf("Reinvested = %s, want %s", domain.FormatUSDT(rec.Reinvested), domain.FormatUSDT(amount-paidPortion))
	}
	if rec.Fee != wantFee {
		t.Errorf("Fee = %s, want %s", domain.FormatUSDT(rec.Fee), domain.FormatUSDT(wantFee))
	}
	if rec.Withdrawn != amount-rec.Reinvested-rec.Fee {
		t.Errorf("Withdrawn = %d, want amount minus reinvest minus fee", rec.Withdrawn)
	}
	checkConservation(t, e)
}

func TestWithdraw_SplitImprovesWithDirects(t *testing.T) {
	e := newTestEngine(t)
	mustRegister(t, e, "0xAlice", root, 4)
	fund(t, e, "0xAlice", 5) // 5 directs -> 75/25 split

	amount := domain.USDT(100)
	rec, err := e.Withdraw("0xAlice", amount, testTime(time.Hour))
	if err != nil {
		t.Fatalf("Withdraw: %v", err)
	}
	if want := domain.ApplyBps(amount, 2500); rec.Reinvested != want {
		t.Errorf("Reinvested = %s, want 25%% (%s)", domain.FormatUSDT(rec.Reinvested), domain.FormatUSDT(want))
	}
}

// ─── Balance & State Effects ────────────────────────────────────────────────

func TestWithdraw_DebitsBalanceAndRoutesReinvestment(t *testing.T) {
	e := newTestEngine(t)
	mustRegister(t, e, "0xAlice", root, 4)
	fund(t, e, "0xAlice", 2)

	before, _ := e.UserInfo(context.Background(), "0xAlice")
	helpBefore := poolBalance(t, e, domain.PoolHelp)

	amount := domain.USDT(50)
	rec, err := e.Withdraw("0xAlice", amount, testTime(time.Hour))
	if err != nil {
		t.Fatalf("Withdraw: %v", err)
	}

	after, _ := e.UserInfo(context.Background(), "0xAlice")
	if after.Withdrawable != before.Withdrawable-amount {
		t.Errorf("Withdrawable = %d, want %d", after.Withdrawable, before.Withdrawable-amount)
	}
	if after.TotalEarnings != before.TotalEarnings {
		t.Error("withdrawal must not change lifetime earnings")
	}
	if after.TotalInvested != before.TotalInvested+rec.Reinvested {
		t.Errorf("TotalInvested = %d, want %d (reinvestment raises the cap base)",
			after.TotalInvested, before.TotalInvested+rec.Reinvested)
	}
	if got := poolBalance(t, e, domain.PoolHelp); got != helpBefore+rec.Reinvested {
		t.Errorf("help pool = %d, want %d (reinvestment routed in)", got, helpBefore+rec.Reinvested)
	}

	s := e.Stats()
	if s.TotalWithdrawn != rec.Withdrawn {
		t.Errorf("stats.TotalWithdrawn = %d, want %d", s.TotalWithdrawn, rec.Withdrawn)
	}
	if s.WithdrawalFees != rec.Fee {
		t.Errorf("stats.WithdrawalFees = %d, want %d", s.WithdrawalFees, rec.Fee)
	}
	checkConservation(t, e)
}

func TestWithdraw_Failures(t *testing.T) {
	e := newTestEngine(t)
	mustRegister(t, e, "0xAlice", root, 4)
	fund(t, e, "0xAlice", 1)

	alice, _ := e.UserInfo(context.Background(), "0xAlice")

	tests := []struct {
		name   string
		addr   domain.Address
		amount domain.Amount
		want   error
	}{
		{"unknown user", "0xNobody", domain.USDT(10), domain.ErrUserNotFound},
		{"below minimum", "0xAlice", domain.USDT(9), domain.ErrBelowMinimum},
		{"over balance", "0xAlice", alice.Withdrawable + 1, domain.ErrInsufficientWithdrawable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := e.Withdraw(tt.addr, tt.amount, testTime(time.Hour)); !errors.Is(err, tt.want) {
				t.Errorf("Withdraw = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestWithdraw_RateLimited(t *testing.T) {
	e := newTestEngine(t)
	mustRegister(t, e, "0xAlice", root, 4)
	fund(t, e, "0xAlice", 2)

	if _, err := e.Withdraw("0xAlice", domain.USDT(20), testTime(time.Hour)); err != nil {
		t.Fatalf("first withdrawal: %v", err)
	}

	_, err := e.Withdraw("0xAlice", domain.USDT(20), testTime(2*time.Hour))
	if !errors.Is(err, domain.ErrRateLimited) {
		t.Fatalf("second withdrawal inside 24h = %v, want ErrRateLimited", err)
	}

	if _, err := e.Withdraw("0xAlice", domain.USDT(20), testTime(26*time.Hour)); err != nil {
		t.Errorf("withdrawal after interval: %v", err)
	}
}

func TestWithdraw_ReinvestmentCanUncap(t *testing.T) {
	e := newTestEngine(t)
	mustRegister(t, e, "0xAlice", root, 1) // invested 30, cap 120
	fund(t, e, "0xAlice", 2)               // direct bonuses blow past the cap

	u, _ := e.UserInfo(context.Background(), "0xAlice")
	if !u.IsCapped {
		t.Fatal("setup: user should be capped")
	}

	// Reinvested portion raises invested, reopening headroom.
	if _, err := e.Withdraw("0xAlice", u.Withdrawable, testTime(time.Hour)); err != nil {
		t.Fatalf("Withdraw: %v", err)
	}
	after, _ := e.UserInfo(context.Background(), "0xAlice")
	if after.IsCapped {
		t.Error("reinvestment raised the cap but the flag stayed set")
	}
	checkConservation(t, e)
}

func TestWithdrawals_NewestFirst(t *testing.T) {
	e := newTestEngine(t)
	mustRegister(t, e, "0xAlice", root, 4)
	fund(t, e, "0xAlice", 2)

	amounts := []domain.Amount{domain.USDT(10), domain.USDT(20), domain.USDT(30)}
	for i, amt := range amounts {
		if _, err := e.Withdraw("0xAlice", amt, testTime(time.Duration(i+1)*25*time.Hour)); err != nil {
			t.Fatalf("Withdraw #%d: %v", i, err)
		}
	}

	recs := e.Withdrawals(2)
	if len(recs) != 2 {
		t.Fatalf("got %d records, want 2", len(recs))
	}
	if recs[0].Amount != domain.USDT(30) || recs[1].Amount != domain.USDT(20) {
		t.Errorf("order = [%d, %d], want newest first", recs[0].Amount, recs[1].Amount)
	}

	if all := e.Withdrawals(0); len(all) != 3 {
		t.Errorf("Withdrawals(0) returned %d records, want all 3", len(all))
	}
}
