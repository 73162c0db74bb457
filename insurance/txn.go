package insurance

import (
	"fmt"
	"math/big"

	"github.com/Fantom-foundation/lachesis-base/inter/idx"
	"github.com/ethereum/go-ethereum/common"
)

// transfer is an external value movement queued by an operation and
// executed against the Bank only when the operation commits.
type transfer struct {
	from, to common.Address
	amount   *big.Int
}

// txn is the unit of work of one operation. Reads go through an overlay of
// copied records, writes are staged, and nothing reaches the store before
// the ledger commits it.
type txn struct {
	store  Store
	op     string
	caller common.Address
	now    idx.Block

	meta      *Meta
	metaDirty bool

	groups      map[common.Address]*Group
	memberships map[common.Address]*Membership
	dirtyGroups map[common.Address]bool
	dirtyMships map[common.Address]bool

	members  []SeqEntry
	children []SeqEntry

	transfers []transfer
	events    []PremiumPaid
}

func newTxn(store Store, op string, caller common.Address, now idx.Block) (*txn, error) {
	meta, err := store.Meta()
	if err != nil {
		return nil, fmt.Errorf("load meta: %w", err)
	}
	if meta == nil {
		return nil, fmt.Errorf("ledger is not initialized")
	}
	return &txn{
		store:       store,
		op:          op,
		caller:      caller,
		now:         now,
		meta:        meta.copy(),
		groups:      make(map[common.Address]*Group),
		memberships: make(map[common.Address]*Membership),
		dirtyGroups: make(map[common.Address]bool),
		dirtyMships: make(map[common.Address]bool),
	}, nil
}

// group returns the working copy of a group, or nil if it does not exist.
func (tx *txn) group(addr common.Address) (*Group, error) {
	if g, ok := tx.groups[addr]; ok {
		return g, nil
	}
	g, err := tx.store.Group(addr)
	if err != nil {
		return nil, fmt.Errorf("load group %s: %w", addr.Hex(), err)
	}
	if g != nil {
		g = g.Copy()
	}
	tx.groups[addr] = g
	return g, nil
}

func (tx *txn) putGroup(addr common.Address, g *Group) {
	tx.groups[addr] = g
	tx.dirtyGroups[addr] = true
}

func (tx *txn) membership(addr common.Address) (*Membership, error) {
	if m, ok := tx.memberships[addr]; ok {
		return m, nil
	}
	m, err := tx.store.Membership(addr)
	if err != nil {
		return nil, fmt.Errorf("load membership %s: %w", addr.Hex(), err)
	}
	if m != nil {
		m = m.Copy()
	}
	tx.memberships[addr] = m
	return m, nil
}

func (tx *txn) putMembership(addr common.Address, m *Membership) {
	tx.memberships[addr] = m
	tx.dirtyMships[addr] = true
}

func (tx *txn) setMeta(fn func(m *Meta)) {
	fn(tx.meta)
	tx.metaDirty = true
}

func (tx *txn) appendMember(group common.Address, index uint64, member common.Address) {
	tx.members = append(tx.members, SeqEntry{Group: group, Index: index, Addr: member})
}

func (tx *txn) appendChild(group common.Address, index uint64, child common.Address) {
	tx.children = append(tx.children, SeqEntry{Group: group, Index: index, Addr: child})
}

func (tx *txn) queueTransfer(from, to common.Address, amount *big.Int) {
	tx.transfers = append(tx.transfers, transfer{from: from, to: to, amount: new(big.Int).Set(amount)})
}

func (tx *txn) emit(ev PremiumPaid) {
	tx.events = append(tx.events, ev)
}

func (tx *txn) fail(kind error, format string, args ...interface{}) error {
	return fail(tx.op, kind, format, args...)
}

func (tx *txn) requireOwner() error {
	if tx.caller != tx.meta.Owner {
		return tx.fail(ErrUnauthorized, "caller %s is not the owner", tx.caller.Hex())
	}
	return nil
}

func (tx *txn) writeSet() *WriteSet {
	ws := &WriteSet{
		Groups:      make(map[common.Address]*Group, len(tx.dirtyGroups)),
		Memberships: make(map[common.Address]*Membership, len(tx.dirtyMships)),
		Members:     tx.members,
		Children:    tx.children,
	}
	if tx.metaDirty {
		ws.Meta = tx.meta
	}
	for addr := range tx.dirtyGroups {
		ws.Groups[addr] = tx.groups[addr]
	}
	for addr := range tx.dirtyMships {
		ws.Memberships[addr] = tx.memberships[addr]
	}
	return ws
}

func positive(x *big.Int) bool {
	return x != nil && x.Sign() > 0
}
