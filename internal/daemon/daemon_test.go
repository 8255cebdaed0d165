package daemon

import (
	"context"
	"testing"
	"time"

	"github.com/leadfive-network/leadfive/internal/domain"
)

func localTestConfig(t *testing.T) Config {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Ledger.DataDir = t.TempDir()
	return cfg
}

func TestDaemon_StatePersistsAcrossRestart(t *testing.T) {
	cfg := localTestConfig(t)
	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	rootAddr := domain.Address(cfg.Ledger.Root)

	d1, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := d1.Engine().Register("0xAlice", rootAddr, 3, at); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if _, err := d1.Engine().Register("0xBob", "0xAlice", 2, at.Add(time.Minute)); err != nil {
		t.Fatalf("Register: %v", err)
	}
	statsBefore := d1.Engine().Stats()
	d1.close()

	// A second daemon over the same data dir replays the log.
	d2, err := New(cfg)
	if err != nil {
		t.Fatalf("New after restart: %v", err)
	}
	defer d2.close()

	if got := d2.Engine().Stats(); got != statsBefore {
		t.Errorf("stats diverged after restart:\nreplayed: %+v\noriginal: %+v", got, statsBefore)
	}
	u, err := d2.Engine().UserInfo(context.Background(), "0xAlice")
	if err != nil {
		t.Fatalf("UserInfo after restart: %v", err)
	}
	if u.PackageTier != 3 || u.DirectReferrals != 1 {
		t.Errorf("replayed user = tier %d, directs %d", u.PackageTier, u.DirectReferrals)
	}
}

func TestDaemon_RelayModeHasNoEngine(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Ledger.Mode = "relay"
	cfg.Chain.GatewayURL = "https://gateway.example.com"

	d, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if d.Engine() != nil {
		t.Error("relay daemon should have no local engine")
	}
}

func TestDaemon_RejectsInvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Ledger.Mode = "relay" // missing gateway URL

	if _, err := New(cfg); err == nil {
		t.Error("New accepted an invalid config")
	}
}
