package integration

import (
	"errors"
	"fmt"
	"io/ioutil"
	"path/filepath"
	"time"

	"github.com/ethereum/go-ethereum/core/rawdb"
	"github.com/ethereum/go-ethereum/ethdb"
	"github.com/sirupsen/logrus"

	"github.com/rony4d/go-opera-insurance/bookkeeping"
	"github.com/rony4d/go-opera-insurance/evmcore"
	"github.com/rony4d/go-opera-insurance/opera/genesis"
)

const dbNamespace = "insurance/db/"

// Config describes one engine instance.
type Config struct {
	DataDir string
	Preset  PresetConfig

	// Genesis initializes an empty datadir. With a populated datadir it
	// must match the stored genesis, or be nil.
	Genesis *genesis.Genesis

	// BookkeepingPath is the SQLite journal file. Empty disables the journal.
	BookkeepingPath string

	BlockPeriod time.Duration
	Logger      logrus.FieldLogger
}

// Engine is an opened chain with its hosted ledger and optional journal.
type Engine struct {
	DB      ethdb.Database
	Chain   *evmcore.Chain
	Journal *bookkeeping.Journal

	log logrus.FieldLogger
}

// ChainDataDir returns where the chain database of a datadir lives.
func ChainDataDir(dataDir string) string {
	return filepath.Join(dataDir, "chaindata")
}

// MakeEngine opens the database, the chain and the journal.
func MakeEngine(cfg Config) (*Engine, error) {
	logger := cfg.Logger
	if logger == nil {
		discard := logrus.New()
		discard.Out = ioutil.Discard
		logger = discard
	}

	db, err := openDatabase(cfg)
	if err != nil {
		return nil, err
	}
	chain, err := evmcore.OpenChain(db, cfg.Genesis, evmcore.ChainConfig{
		GroupCache:  cfg.Preset.GroupCache,
		BlockPeriod: cfg.BlockPeriod,
		Logger:      logger.WithField("module", "chain"),
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	e := &Engine{DB: db, Chain: chain, log: logger}
	if cfg.BookkeepingPath != "" {
		e.Journal, err = bookkeeping.Open(cfg.BookkeepingPath, logger)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("open bookkeeping journal: %w", err)
		}
		chain.Subscribe(e.Journal)
	}
	logger.WithFields(logrus.Fields{
		"preset": cfg.Preset.Name,
		"db":     cfg.Preset.DBPreset,
		"head":   chain.Head().NumberU64(),
	}).Info("Engine ready")
	return e, nil
}

func openDatabase(cfg Config) (ethdb.Database, error) {
	switch cfg.Preset.DBPreset {
	case DBMemory:
		return rawdb.NewMemoryDatabase(), nil
	case DBLevelDB, "":
		if cfg.DataDir == "" {
			return nil, errors.New("leveldb preset needs a datadir")
		}
		path := ChainDataDir(cfg.DataDir)
		db, err := rawdb.NewLevelDBDatabase(path, cfg.Preset.CacheMB, cfg.Preset.Handles, dbNamespace, false)
		if err != nil {
			return nil, fmt.Errorf("open chain database %s: %w", path, err)
		}
		return db, nil
	default:
		return nil, fmt.Errorf("unknown database preset %q", cfg.Preset.DBPreset)
	}
}

// Close releases the journal and the database. Calls not yet sealed lose
// their balance changes, so callers seal first.
func (e *Engine) Close() error {
	var errs []error
	if e.Journal != nil {
		if err := e.Journal.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := e.DB.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
