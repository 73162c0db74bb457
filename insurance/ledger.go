package insurance

import (
	"errors"
	"fmt"
	"io/ioutil"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"
)

// Bank moves value between external accounts. Snapshot and
// RevertToSnapshot follow the go-ethereum StateDB convention so that a
// failed operation can undo transfers it already executed.
type Bank interface {
	Transfer(from, to common.Address, amount *big.Int) error
	Snapshot() int
	RevertToSnapshot(id int)
}

// EventSink receives committed premium events for off-ledger bookkeeping.
type EventSink interface {
	HandlePremiumPaid(ev PremiumPaid) error
}

// Config assembles a Ledger.
type Config struct {
	Store Store
	Clock Clock

	// Bank is optional; without it the ledger only keeps accounts and
	// queued transfers are dropped.
	Bank Bank

	// Account is the external account holding the pooled funds.
	Account common.Address

	// Genesis initializes an empty store. Ignored if the store already
	// holds a meta block.
	Genesis *Meta

	Logger logrus.FieldLogger
}

// Ledger applies operations one at a time, each as a whole unit of work.
type Ledger struct {
	mu sync.Mutex

	store   Store
	clock   Clock
	bank    Bank
	account common.Address
	sinks   []EventSink

	log logrus.FieldLogger
}

// NewLedger opens the ledger kept in cfg.Store, writing cfg.Genesis first
// if the store is empty.
func NewLedger(cfg Config) (*Ledger, error) {
	if cfg.Store == nil {
		return nil, errors.New("ledger store is required")
	}
	if cfg.Clock == nil {
		return nil, errors.New("ledger clock is required")
	}
	logger := cfg.Logger
	if logger == nil {
		discard := logrus.New()
		discard.Out = ioutil.Discard
		logger = discard
	}
	l := &Ledger{
		store:   cfg.Store,
		clock:   cfg.Clock,
		bank:    cfg.Bank,
		account: cfg.Account,
		log:     logger,
	}

	meta, err := cfg.Store.Meta()
	if err != nil {
		return nil, fmt.Errorf("load meta: %w", err)
	}
	if meta != nil {
		return l, nil
	}
	if cfg.Genesis == nil {
		return nil, errors.New("empty store and no genesis")
	}
	if err := cfg.Genesis.Constants.Validate(); err != nil {
		return nil, fmt.Errorf("genesis constants: %w", err)
	}
	if err := cfg.Genesis.Params.Validate(); err != nil {
		return nil, fmt.Errorf("genesis parameters: %w", err)
	}
	if cfg.Genesis.Owner == NONE {
		return nil, errors.New("genesis owner is the zero address")
	}
	genesis := cfg.Genesis.copy()
	genesis.Root = NONE
	if err := cfg.Store.Commit(&WriteSet{Meta: genesis}); err != nil {
		return nil, fmt.Errorf("write genesis: %w", err)
	}
	l.log.WithField("owner", genesis.Owner.Hex()).Info("Ledger initialized")
	return l, nil
}

// Account returns the external account holding the pooled funds.
func (l *Ledger) Account() common.Address { return l.account }

// Subscribe registers a sink for committed premium events.
func (l *Ledger) Subscribe(sink EventSink) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sinks = append(l.sinks, sink)
}

// apply runs fn as one unit of work. Either every staged write, transfer
// and event commits, or none of them does.
func (l *Ledger) apply(op string, caller common.Address, fn func(tx *txn) error) (*txn, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	tx, err := newTxn(l.store, op, caller, l.clock.Now())
	if err != nil {
		return nil, err
	}
	logger := l.log.WithFields(logrus.Fields{"op": op, "caller": caller.Hex(), "block": tx.now})

	if err := fn(tx); err != nil {
		logger.WithError(err).Debug("Operation rejected")
		return nil, err
	}
	if err := l.commit(tx); err != nil {
		logger.WithError(err).Warn("Operation rolled back")
		return nil, err
	}
	for _, ev := range tx.events {
		for _, sink := range l.sinks {
			if err := sink.HandlePremiumPaid(ev); err != nil {
				logger.WithError(err).Warn("Event sink failed")
			}
		}
	}
	logger.Debug("Operation committed")
	return tx, nil
}

func (l *Ledger) commit(tx *txn) error {
	snap := -1
	if l.bank != nil && len(tx.transfers) > 0 {
		snap = l.bank.Snapshot()
		for _, t := range tx.transfers {
			if err := l.bank.Transfer(t.from, t.to, t.amount); err != nil {
				l.bank.RevertToSnapshot(snap)
				return fmt.Errorf("%s: transfer %s from %s to %s: %w", tx.op, t.amount, t.from.Hex(), t.to.Hex(), err)
			}
		}
	}
	ws := tx.writeSet()
	if ws.Empty() {
		return nil
	}
	if err := l.store.Commit(ws); err != nil {
		if snap >= 0 {
			l.bank.RevertToSnapshot(snap)
		}
		return fmt.Errorf("%s: commit: %w", tx.op, err)
	}
	return nil
}

// view runs a read-only function under the ledger lock.
func (l *Ledger) view(fn func(tx *txn) error) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	tx, err := newTxn(l.store, "view", NONE, l.clock.Now())
	if err != nil {
		return err
	}
	return fn(tx)
}
