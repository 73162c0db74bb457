// Package kvstore persists the insurance ledger in a go-ethereum key-value
// database. Records are RLP encoded; every operation's writes are applied
// through one batch so a commit is all-or-nothing.
package kvstore

import (
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethdb"
	"github.com/ethereum/go-ethereum/rlp"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/rony4d/go-opera-insurance/insurance"
)

// DefaultCacheSize is the number of decoded records kept per table.
const DefaultCacheSize = 4096

// Store implements insurance.Store on an ethdb key-value store.
type Store struct {
	db ethdb.KeyValueStore

	mu          sync.Mutex // serializes Commit against cache refills
	groups      *lru.Cache[common.Address, *insurance.Group]
	memberships *lru.Cache[common.Address, *insurance.Membership]
}

// New wraps db. cacheSize <= 0 selects DefaultCacheSize.
func New(db ethdb.KeyValueStore, cacheSize int) (*Store, error) {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	groups, err := lru.New[common.Address, *insurance.Group](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("group cache: %w", err)
	}
	memberships, err := lru.New[common.Address, *insurance.Membership](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("membership cache: %w", err)
	}
	return &Store{db: db, groups: groups, memberships: memberships}, nil
}

func (s *Store) Meta() (*insurance.Meta, error) {
	var meta insurance.Meta
	ok, err := s.get(metaKey, &meta)
	if err != nil || !ok {
		return nil, err
	}
	return &meta, nil
}

func (s *Store) Group(addr common.Address) (*insurance.Group, error) {
	if g, ok := s.groups.Get(addr); ok {
		return g.Copy(), nil
	}
	var g insurance.Group
	ok, err := s.get(groupKey(addr), &g)
	if err != nil || !ok {
		return nil, err
	}
	s.groups.Add(addr, g.Copy())
	return &g, nil
}

func (s *Store) Membership(addr common.Address) (*insurance.Membership, error) {
	if m, ok := s.memberships.Get(addr); ok {
		return m.Copy(), nil
	}
	var m insurance.Membership
	ok, err := s.get(membershipKey(addr), &m)
	if err != nil || !ok {
		return nil, err
	}
	s.memberships.Add(addr, m.Copy())
	return &m, nil
}

func (s *Store) GroupMember(group common.Address, index uint64) (common.Address, error) {
	return s.seq(memberSeqPrefix, group, index)
}

func (s *Store) GroupChild(group common.Address, index uint64) (common.Address, error) {
	return s.seq(childSeqPrefix, group, index)
}

func (s *Store) seq(prefix []byte, group common.Address, index uint64) (common.Address, error) {
	key := seqKey(prefix, group, index)
	ok, err := s.db.Has(key)
	if err != nil {
		return common.Address{}, err
	}
	if !ok {
		return common.Address{}, fmt.Errorf("sequence entry %s/%d: %w", group.Hex(), index, insurance.ErrNotFound)
	}
	raw, err := s.db.Get(key)
	if err != nil {
		return common.Address{}, err
	}
	return common.BytesToAddress(raw), nil
}

// Commit writes the whole set in one batch. Caches are refreshed only
// after the batch reached the database.
func (s *Store) Commit(ws *insurance.WriteSet) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	batch := s.db.NewBatch()
	if ws.Meta != nil {
		if err := put(batch, metaKey, ws.Meta); err != nil {
			return err
		}
	}
	for addr, g := range ws.Groups {
		if err := put(batch, groupKey(addr), g); err != nil {
			return err
		}
	}
	for addr, m := range ws.Memberships {
		if err := put(batch, membershipKey(addr), m); err != nil {
			return err
		}
	}
	for _, e := range ws.Members {
		if err := batch.Put(seqKey(memberSeqPrefix, e.Group, e.Index), e.Addr.Bytes()); err != nil {
			return err
		}
	}
	for _, e := range ws.Children {
		if err := batch.Put(seqKey(childSeqPrefix, e.Group, e.Index), e.Addr.Bytes()); err != nil {
			return err
		}
	}
	if err := batch.Write(); err != nil {
		return fmt.Errorf("write batch: %w", err)
	}

	for addr, g := range ws.Groups {
		s.groups.Add(addr, g.Copy())
	}
	for addr, m := range ws.Memberships {
		s.memberships.Add(addr, m.Copy())
	}
	return nil
}

func (s *Store) get(key []byte, val interface{}) (bool, error) {
	ok, err := s.db.Has(key)
	if err != nil || !ok {
		return false, err
	}
	raw, err := s.db.Get(key)
	if err != nil {
		return false, err
	}
	if err := rlp.DecodeBytes(raw, val); err != nil {
		return false, fmt.Errorf("decode %x: %w", key, err)
	}
	return true, nil
}

func put(w ethdb.KeyValueWriter, key []byte, val interface{}) error {
	enc, err := rlp.EncodeToBytes(val)
	if err != nil {
		return fmt.Errorf("encode %x: %w", key, err)
	}
	return w.Put(key, enc)
}
