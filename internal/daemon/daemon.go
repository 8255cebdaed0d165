package daemon

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/leadfive-network/leadfive/internal/api"
	"github.com/leadfive-network/leadfive/internal/domain"
	"github.com/leadfive-network/leadfive/internal/engine"
	"github.com/leadfive-network/leadfive/internal/infra/chain"
	"github.com/leadfive-network/leadfive/internal/infra/observability"
	"github.com/leadfive-network/leadfive/internal/infra/sqlite"
)

// Daemon is the assembled ledger process.
type Daemon struct {
	cfg    Config
	engine *engine.Engine // nil in relay mode
	store  *sqlite.DB     // nil in relay mode
	server *api.Server
}

// New assembles a daemon from configuration. In local mode the event log is
// opened and replayed before the daemon is returned, so a non-nil Daemon is
// always ready to serve.
func New(cfg Config) (*Daemon, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	d := &Daemon{cfg: cfg}

	if cfg.Ledger.Mode == "relay" {
		timeout := time.Duration(cfg.Chain.TimeoutSeconds) * time.Second
		backend := chain.NewClient(cfg.Chain.GatewayURL, timeout)
		d.server = api.NewServer(nil, backend)
		if cfg.API.Metrics {
			d.server.EnableMetrics()
		}
		log.Printf("[daemon] relay mode, gateway %s", cfg.Chain.GatewayURL)
		return d, nil
	}

	if err := os.MkdirAll(cfg.Ledger.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("daemon: create data dir: %w", err)
	}
	store, err := sqlite.Open(filepath.Join(cfg.Ledger.DataDir, "events.db"))
	if err != nil {
		return nil, err
	}

	roles := domain.NewRoles(domain.Address(cfg.Ledger.Owner))
	sink := observability.MetricsSink{Next: store}
	eng, err := engine.New(domain.DefaultPlan(), cfg.EngineConfig(), roles, sink)
	if err != nil {
		store.Close()
		return nil, err
	}

	events, err := store.Events()
	if err != nil {
		store.Close()
		return nil, err
	}
	if len(events) > 0 {
		start := time.Now()
		if err := eng.Replay(events); err != nil {
			store.Close()
			return nil, err
		}
		log.Printf("[daemon] replayed %d events in %s", len(events), time.Since(start).Round(time.Millisecond))
	}

	pools, _ := eng.PoolBalances(context.Background())
	observability.ObserveStats(eng.Stats(), pools)

	d.engine = eng
	d.store = store
	d.server = api.NewServer(eng, eng)
	d.server.SetEventStore(store)
	if cfg.API.Metrics {
		d.server.EnableMetrics()
	}
	return d, nil
}

// Engine returns the local engine, or nil in relay mode.
func (d *Daemon) Engine() *engine.Engine { return d.engine }

// Run serves the HTTP API until ctx is canceled, then shuts down gracefully.
func (d *Daemon) Run(ctx context.Context) error {
	addr := net.JoinHostPort(d.cfg.API.Host, strconv.Itoa(d.cfg.API.Port))
	srv := &http.Server{
		Addr:              addr,
		Handler:           d.server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	if d.cfg.Pools.AutoDistribute && d.engine != nil {
		go d.distributionLoop(ctx)
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("[daemon] listening on %s", addr)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		d.close()
		return err
	case <-ctx.Done():
	}

	log.Printf("[daemon] shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	d.close()
	return err
}

func (d *Daemon) close() {
	if d.store != nil {
		if err := d.store.Close(); err != nil {
			log.Printf("[daemon] closing event store: %v", err)
		}
	}
}

// distributionLoop periodically sweeps the pools, distributing any whose
// interval has elapsed. Ineligible pools (empty, inside their interval, or
// without qualified recipients) are simply skipped until the next tick.
func (d *Daemon) distributionLoop(ctx context.Context) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			for _, name := range domain.PoolNames() {
				err := d.engine.Distribute(name, now)
				switch {
				case err == nil:
					log.Printf("[daemon] distributed %s pool", name)
				case errors.Is(err, domain.ErrPoolEmpty),
					errors.Is(err, domain.ErrNotEligiblePeriod),
					errors.Is(err, domain.ErrNoEligibleUsers):
					// not due yet
				default:
					log.Printf("[daemon] distributing %s pool: %v", name, err)
				}
			}
		}
	}
}
