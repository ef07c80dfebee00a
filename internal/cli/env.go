package cli

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/runnerr0/dreamlog/internal/backup"
	"github.com/runnerr0/dreamlog/internal/config"
	"github.com/runnerr0/dreamlog/internal/entitlement"
	"github.com/runnerr0/dreamlog/internal/insight"
	"github.com/runnerr0/dreamlog/internal/journal"
	"github.com/runnerr0/dreamlog/internal/logging"
	"github.com/runnerr0/dreamlog/internal/storage"
	"github.com/runnerr0/dreamlog/internal/symbols"
	"github.com/runnerr0/dreamlog/internal/usage"
)

// env is everything a command needs, wired from one config.
type env struct {
	cfg        *config.Config
	configPath string
	dbPath     string
	logger     *zap.Logger
	registry   *prometheus.Registry

	db       *sql.DB
	store    *storage.SQLiteStore
	journal  *journal.Service
	symbols  *symbols.Aggregator
	analyzer *insight.Analyzer
	gate     *usage.Gate
	backup   *backup.Service
	verifier entitlement.Verifier
	receipts *entitlement.ReceiptVerifier // nil when no public key is configured

	stdin io.Reader
	now   func() time.Time
}

// openEnv loads the config, opens the database and wires the services.
func openEnv(globals *GlobalFlags) (*env, error) {
	resolved, err := config.Path(globals.Config)
	if err != nil {
		return nil, err
	}
	cfg, err := config.LoadOrCreateAt(resolved)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	logCfg := cfg.Logging
	if globals.Verbose {
		logCfg = logging.Verbose(logCfg)
	}
	logger, err := logging.New(logCfg)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}

	dbPath := globals.DBPath
	if dbPath == "" {
		if dbPath, err = cfg.DatabasePath(); err != nil {
			return nil, err
		}
	} else if dbPath, err = config.ResolvePath(dbPath); err != nil {
		return nil, err
	}

	db, err := storage.Open(dbPath, cfg.Storage.SQLiteJournalMode)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	store, err := storage.NewSQLiteStore(db)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("init store: %w", err)
	}

	gen, err := insight.NewGenerator(cfg.AI)
	if err != nil {
		logger.Debug("text generation unavailable", zap.Error(err))
		gen = nil
	}

	verifier, receipts := newVerifier(cfg.Entitlement, logger)

	e := newEnv(cfg, store, gen, verifier, logger)
	e.configPath = resolved
	e.dbPath = dbPath
	e.db = db
	e.receipts = receipts
	return e, nil
}

// newEnv wires the services over an open store.
func newEnv(cfg *config.Config, store *storage.SQLiteStore, gen insight.Generator, verifier entitlement.Verifier, logger *zap.Logger) *env {
	if logger == nil {
		logger = zap.NewNop()
	}
	registry := prometheus.NewRegistry()
	agg := symbols.NewAggregator(store, logger)
	premium := entitlement.Premium{Verifier: verifier, ProductID: cfg.Entitlement.ProductID}

	return &env{
		cfg:      cfg,
		logger:   logger,
		registry: registry,
		store:    store,
		journal:  journal.New(store, agg, logger),
		symbols:  agg,
		analyzer: insight.NewAnalyzer(gen, insight.OptionsFromConfig(cfg.AI), logger, insight.NewMetrics(registry)),
		gate:     usage.NewGate(store, premium, cfg.Usage.MonthlyLimit, logger),
		backup:   backup.New(store, logger),
		verifier: verifier,
		stdin:    os.Stdin,
		now:      time.Now,
	}
}

// newVerifier builds the receipt verifier. Without a usable public key
// nobody is premium.
func newVerifier(cfg config.EntitlementConfig, logger *zap.Logger) (entitlement.Verifier, *entitlement.ReceiptVerifier) {
	if cfg.PublicKeyFile == "" {
		return entitlement.Static{}, nil
	}
	keyPath, err := config.ResolvePath(cfg.PublicKeyFile)
	if err != nil {
		return entitlement.Static{Err: err}, nil
	}
	key, err := entitlement.LoadPublicKey(keyPath)
	if err != nil {
		logger.Warn("receipt public key not loaded", zap.String("path", keyPath), zap.Error(err))
		return entitlement.Static{}, nil
	}
	receiptPath, err := config.ResolvePath(cfg.ReceiptFile)
	if err != nil {
		return entitlement.Static{Err: err}, nil
	}
	rv := entitlement.NewReceiptVerifier(receiptPath, key)
	return rv, rv
}

// Close writes the metrics textfile when configured and releases the store.
func (e *env) Close() {
	if path := e.cfg.Metrics.Textfile; path != "" {
		if resolved, err := config.ResolvePath(path); err == nil {
			if err := prometheus.WriteToTextfile(resolved, e.registry); err != nil {
				e.logger.Warn("metrics textfile not written", zap.String("path", resolved), zap.Error(err))
			}
		}
	}
	if e.store != nil {
		e.store.Close()
	}
	if e.db != nil {
		e.db.Close()
	}
	_ = e.logger.Sync()
}

// withEnv opens the environment, runs fn with an interruptible context and
// closes everything afterwards.
func withEnv(globals *GlobalFlags, fn func(ctx context.Context, e *env) error) error {
	e, err := openEnv(globals)
	if err != nil {
		return err
	}
	defer e.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return fn(ctx, e)
}
