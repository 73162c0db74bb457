// Package bookkeeping keeps an off-ledger journal of committed premium
// payments in SQLite. The ledger remains the source of truth; the journal
// serves reporting and reconciliation.
package bookkeeping

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Fantom-foundation/lachesis-base/inter/idx"
	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"github.com/rony4d/go-opera-insurance/insurance"
)

//go:embed schema.sql
var schemaSQL string

// Record is one journaled premium payment.
type Record struct {
	ID         string
	Member     common.Address
	Value      *big.Int
	Block      idx.Block
	RecordedAt time.Time
}

// Journal is an insurance.EventSink writing to a SQLite database.
type Journal struct {
	db   *sql.DB
	path string
	now  func() time.Time
	log  logrus.FieldLogger
}

// Open opens or creates the journal database at path.
func Open(path string, logger logrus.FieldLogger) (*Journal, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create journal directory: %w", err)
	}
	db, err := sql.Open("sqlite", path+
		"?_pragma=journal_mode(WAL)"+
		"&_pragma=busy_timeout(5000)"+
		"&_pragma=synchronous(NORMAL)")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// SQLite handles concurrent writes poorly
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(time.Hour)

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Journal{
		db:   db,
		path: path,
		now:  func() time.Time { return time.Now().UTC() },
		log:  logger.WithField("module", "bookkeeping"),
	}, nil
}

func (j *Journal) Close() error {
	return j.db.Close()
}

func (j *Journal) Path() string {
	return j.path
}

// HandlePremiumPaid journals a committed premium event.
func (j *Journal) HandlePremiumPaid(ev insurance.PremiumPaid) error {
	rec, err := j.Record(context.Background(), ev)
	if err != nil {
		return err
	}
	j.log.WithFields(logrus.Fields{"id": rec.ID, "member": rec.Member.Hex(), "block": rec.Block}).Debug("Journaled premium")
	return nil
}

// Record inserts ev under a fresh record ID.
func (j *Journal) Record(ctx context.Context, ev insurance.PremiumPaid) (*Record, error) {
	rec := &Record{
		ID:         uuid.New().String(),
		Member:     ev.Member,
		Value:      new(big.Int).Set(ev.Value),
		Block:      ev.Block,
		RecordedAt: j.now(),
	}
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO premiums (id, member, value, block, recorded_at)
		 VALUES (?, ?, ?, ?, ?)`,
		rec.ID, memberKey(rec.Member), rec.Value.String(), int64(rec.Block), rec.RecordedAt.Format(time.RFC3339Nano))
	if err != nil {
		return nil, fmt.Errorf("insert premium: %w", err)
	}
	return rec, nil
}

// Premiums returns the journaled premiums of member in block order.
func (j *Journal) Premiums(ctx context.Context, member common.Address) ([]Record, error) {
	return j.query(ctx,
		`SELECT id, member, value, block, recorded_at FROM premiums
		 WHERE member = ? ORDER BY block, recorded_at`,
		memberKey(member))
}

// List returns up to limit most recent premiums, newest first.
func (j *Journal) List(ctx context.Context, limit int) ([]Record, error) {
	return j.query(ctx,
		`SELECT id, member, value, block, recorded_at FROM premiums
		 ORDER BY block DESC, recorded_at DESC LIMIT ?`,
		limit)
}

// TotalPremiums sums the premiums journaled for member. Values are uint256,
// so the sum is computed outside SQLite.
func (j *Journal) TotalPremiums(ctx context.Context, member common.Address) (*big.Int, error) {
	recs, err := j.Premiums(ctx, member)
	if err != nil {
		return nil, err
	}
	total := new(big.Int)
	for _, r := range recs {
		total.Add(total, r.Value)
	}
	return total, nil
}

func (j *Journal) query(ctx context.Context, q string, args ...interface{}) ([]Record, error) {
	rows, err := j.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []Record
	for rows.Next() {
		var (
			r                         Record
			member, value, recordedAt string
			block                     int64
		)
		if err := rows.Scan(&r.ID, &member, &value, &block, &recordedAt); err != nil {
			return nil, err
		}
		r.Member = common.HexToAddress(member)
		v, ok := new(big.Int).SetString(value, 10)
		if !ok {
			return nil, fmt.Errorf("record %s has malformed value %q", r.ID, value)
		}
		r.Value = v
		r.Block = idx.Block(block)
		if r.RecordedAt, err = time.Parse(time.RFC3339Nano, recordedAt); err != nil {
			j.log.WithError(err).WithField("id", r.ID).Warn("Malformed recorded_at")
		}
		recs = append(recs, r)
	}
	return recs, rows.Err()
}

func memberKey(addr common.Address) string {
	return strings.ToLower(addr.Hex())
}
