package insurance_test

import (
	"errors"
	"fmt"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/rawdb"
	"github.com/stretchr/testify/require"

	"github.com/rony4d/go-opera-insurance/insurance"
	"github.com/rony4d/go-opera-insurance/insurance/kvstore"
)

var (
	owner    = addr(0xff)
	pool     = addr(0xee)
	errBank  = errors.New("bank refused")
	errStore = errors.New("disk full")
)

func addr(n int) common.Address {
	return common.BigToAddress(big.NewInt(int64(n)))
}

// memBank is an in-memory insurance.Bank with journal based snapshots.
type memBank struct {
	balances map[common.Address]*big.Int
	journal  []func()
	failOn   common.Address
}

func newMemBank() *memBank {
	return &memBank{balances: make(map[common.Address]*big.Int)}
}

func (b *memBank) balance(a common.Address) *big.Int {
	if v, ok := b.balances[a]; ok {
		return v
	}
	return new(big.Int)
}

func (b *memBank) fund(a common.Address, v int64) {
	b.balances[a] = big.NewInt(v)
}

func (b *memBank) Transfer(from, to common.Address, amount *big.Int) error {
	if to == b.failOn {
		return errBank
	}
	if b.balance(from).Cmp(amount) < 0 {
		return fmt.Errorf("%s: insufficient funds", from.Hex())
	}
	prevFrom, prevTo := new(big.Int).Set(b.balance(from)), new(big.Int).Set(b.balance(to))
	b.journal = append(b.journal, func() {
		b.balances[from] = prevFrom
		b.balances[to] = prevTo
	})
	b.balances[from] = new(big.Int).Sub(prevFrom, amount)
	b.balances[to] = new(big.Int).Add(b.balance(to), amount)
	return nil
}

func (b *memBank) Snapshot() int { return len(b.journal) }

func (b *memBank) RevertToSnapshot(id int) {
	for i := len(b.journal) - 1; i >= id; i-- {
		b.journal[i]()
	}
	b.journal = b.journal[:id]
}

// flakyStore fails the next Commit when armed.
type flakyStore struct {
	insurance.Store
	armed bool
}

func (s *flakyStore) Commit(ws *insurance.WriteSet) error {
	if s.armed {
		s.armed = false
		return errStore
	}
	return s.Store.Commit(ws)
}

type recordingSink struct {
	events []insurance.PremiumPaid
}

func (s *recordingSink) HandlePremiumPaid(ev insurance.PremiumPaid) error {
	s.events = append(s.events, ev)
	return nil
}

type testLedger struct {
	*insurance.Ledger
	clock *insurance.ManualClock
	bank  *memBank
	store *flakyStore
	sink  *recordingSink
}

func testGenesis() *insurance.Meta {
	return &insurance.Meta{
		Owner: owner,
		Constants: insurance.Constants{
			MaxLevel:             4,
			MaxMembers:           3,
			WaitBlocks:           10,
			WaitNextPayoutBlocks: 5,
		},
		Params: insurance.Parameters{
			MaxPayout:      big.NewInt(1000),
			PremiumDivisor: big.NewInt(2),
			PayoutDivisor:  big.NewInt(2),
		},
	}
}

func newTestLedger(t *testing.T) *testLedger {
	t.Helper()
	kv, err := kvstore.New(rawdb.NewMemoryDatabase(), 16)
	require.NoError(t, err)
	tl := &testLedger{
		clock: insurance.NewManualClock(1),
		bank:  newMemBank(),
		store: &flakyStore{Store: kv},
		sink:  &recordingSink{},
	}
	tl.Ledger, err = insurance.NewLedger(insurance.Config{
		Store:   tl.store,
		Clock:   tl.clock,
		Bank:    tl.bank,
		Account: pool,
		Genesis: testGenesis(),
	})
	require.NoError(t, err)
	tl.Subscribe(tl.sink)
	return tl
}

// branch addresses: root 1, level 3 group 2, level 2 group 3, leaf 4.
var (
	rootSP   = addr(1)
	regionSP = addr(2)
	distSP   = addr(3)
	leafSP   = addr(4)
)

func (tl *testLedger) buildBranch(t *testing.T) {
	t.Helper()
	require.NoError(t, tl.CreateTopGroup(owner, rootSP, "root", "Alice", "alice@example.org"))
	require.NoError(t, tl.CreateGroup(rootSP, regionSP, "region", "Bob", "bob@example.org"))
	require.NoError(t, tl.CreateGroup(regionSP, distSP, "district", "Carol", "carol@example.org"))
	require.NoError(t, tl.CreateGroup(distSP, leafSP, "village", "Dave", "dave@example.org"))
}

func (tl *testLedger) group(t *testing.T, sp common.Address) *insurance.Group {
	t.Helper()
	g, ok, err := tl.Groups(sp)
	require.NoError(t, err)
	require.True(t, ok, "group %s", sp.Hex())
	return g
}
