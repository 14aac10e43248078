package main

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/market-intel/internal/audit"
	"github.com/sells-group/market-intel/internal/config"
	"github.com/sells-group/market-intel/internal/db"
	"github.com/sells-group/market-intel/internal/editor"
	"github.com/sells-group/market-intel/internal/model"
	"github.com/sells-group/market-intel/internal/monitoring"
	"github.com/sells-group/market-intel/internal/resilience"
	"github.com/sells-group/market-intel/internal/store"
)

// appEnv bundles the wired collaborators shared by commands.
type appEnv struct {
	Store     store.Store
	Audit     *audit.Log
	Editor    *editor.Service
	Metrics   *monitoring.Metrics
	Registry  *prometheus.Registry
	Collector *monitoring.Collector
}

func (e *appEnv) Close() {
	if err := e.Store.Close(); err != nil {
		zap.L().Warn("close store", zap.Error(err))
	}
}

func initStore(ctx context.Context, c *config.Config) (store.Store, error) {
	switch c.Store.Driver {
	case "sqlite":
		dsn := c.Store.DatabaseURL
		if dsn == "" {
			dsn = "market-intel.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, c.Store.DatabaseURL, db.PoolConfig{
			MaxConns: c.Store.MaxConns,
			MinConns: c.Store.MinConns,
		})
	case "sheets":
		return store.NewSheets(ctx, store.SheetsConfig{
			SpreadsheetID:     c.Sheets.SpreadsheetID,
			CredentialsBase64: c.Sheets.CredentialsBase64,
			CredentialsFile:   c.Sheets.CredentialsFile,
			RecordsSheet:      c.Sheets.RecordsSheet,
			HistorySheet:      c.Sheets.HistorySheet,
			RequestsPerMinute: c.Sheets.RequestsPerMinute,
			Breaker:           resilience.NewConfig("sheets", c.Sheets.BreakerFailures, c.Sheets.BreakerResetSecs),
		})
	case "memory":
		return store.NewMemory(), nil
	default:
		return nil, eris.Errorf("unsupported store driver: %s", c.Store.Driver)
	}
}

// newEnv opens and migrates the store and wires the editor on top of it.
func newEnv(ctx context.Context, c *config.Config, mode string) (*appEnv, error) {
	if err := c.Validate(mode); err != nil {
		return nil, err
	}
	st, err := initStore(ctx, c)
	if err != nil {
		return nil, eris.Wrap(err, "init store")
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close() //nolint:errcheck
		return nil, eris.Wrap(err, "migrate store")
	}
	return wire(st, c), nil
}

func wire(st store.Store, c *config.Config) *appEnv {
	reg := prometheus.NewRegistry()
	metrics := monitoring.NewMetrics(reg)
	log := audit.New(st, audit.WithObserver(func(_ model.Action, err error) {
		metrics.ObserveAudit(err)
	}))

	return &appEnv{
		Store:    st,
		Audit:    log,
		Metrics:  metrics,
		Registry: reg,
		Editor: editor.New(st, log, c.Catalog,
			editor.WithMetrics(metrics),
			editor.WithCacheTTL(time.Duration(c.Cache.TTLSecs)*time.Second),
			editor.WithTenorWindow(c.Tenor.WindowYears),
		),
		Collector: monitoring.NewCollector(st, st),
	}
}
