package insurance

import (
	"github.com/ethereum/go-ethereum/common"
)

// Store is the persisted layout: the Group and Membership tables, the
// append-only member and child sequences, and the meta block.
//
// Getters return (nil, nil) for absent records. Commit must apply the whole
// WriteSet or nothing.
type Store interface {
	Meta() (*Meta, error)
	Group(spokesperson common.Address) (*Group, error)
	Membership(member common.Address) (*Membership, error)
	GroupMember(group common.Address, index uint64) (common.Address, error)
	GroupChild(group common.Address, index uint64) (common.Address, error)

	Commit(ws *WriteSet) error
}

// SeqEntry is one appended element of a group sequence.
type SeqEntry struct {
	Group common.Address
	Index uint64
	Addr  common.Address
}

// WriteSet is everything a single operation changes.
type WriteSet struct {
	Meta        *Meta // nil if unchanged
	Groups      map[common.Address]*Group
	Memberships map[common.Address]*Membership
	Members     []SeqEntry
	Children    []SeqEntry
}

// Empty reports whether the set carries no writes.
func (ws *WriteSet) Empty() bool {
	return ws.Meta == nil && len(ws.Groups) == 0 && len(ws.Memberships) == 0 &&
		len(ws.Members) == 0 && len(ws.Children) == 0
}
