// Package genesis defines the configuration structures and validation logic
// for the genesis of an insurance network. The genesis establishes the
// network rules, the ledger owner and the initially funded accounts that
// all nodes must agree on.
//
// Key concepts:
//   - Rules: network preset (tree shape, waiting periods, parameters)
//   - Owner: the only account allowed to run administrative operations
//   - Alloc: pre-funded accounts of the host chain
//
// The genesis is either generated programmatically for local networks
// (see evmcore.FakeGenesis) or loaded from a YAML or JSON file.
package genesis

import (
	"errors"
	"fmt"
	"math/big"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"

	"github.com/rony4d/go-opera-insurance/insurance"
	"github.com/rony4d/go-opera-insurance/opera"
)

// Genesis is the complete definition of a network's initial state.
type Genesis struct {
	Rules opera.Rules

	// Owner becomes the ledger owner. Immutable afterwards.
	Owner common.Address

	// Alloc funds host chain accounts, in wei.
	Alloc map[common.Address]*big.Int

	// Time is the genesis header timestamp, in unix seconds.
	Time uint64
}

// Validate rejects a genesis that cannot initialize a ledger.
func (g *Genesis) Validate() error {
	if g.Owner == insurance.NONE {
		return errors.New("genesis owner is the zero address")
	}
	if err := g.Rules.Validate(); err != nil {
		return fmt.Errorf("genesis rules: %w", err)
	}
	for addr, balance := range g.Alloc {
		if balance == nil || balance.Sign() < 0 {
			return fmt.Errorf("genesis alloc of %s is negative", addr.Hex())
		}
	}
	return nil
}

// Meta returns the ledger meta block the genesis describes. The root is
// always unset, the top group is created by the owner afterwards.
func (g *Genesis) Meta() *insurance.Meta {
	return &insurance.Meta{
		Owner:     g.Owner,
		Root:      insurance.NONE,
		Constants: g.Rules.Constants(),
		Params:    g.Rules.Parameters(),
	}
}

// allocEntry is the RLP form of one Alloc entry.
type allocEntry struct {
	Addr    common.Address
	Balance *big.Int
}

type genesisRLP struct {
	Rules opera.RulesRLP
	Owner common.Address
	Alloc []allocEntry
	Time  uint64
}

// Hash identifies the genesis. Allocations are hashed in address order so
// the result does not depend on map iteration.
func (g *Genesis) Hash() (common.Hash, error) {
	enc := genesisRLP{
		Rules: opera.RulesRLP(g.Rules),
		Owner: g.Owner,
		Time:  g.Time,
	}
	for addr, balance := range g.Alloc {
		enc.Alloc = append(enc.Alloc, allocEntry{Addr: addr, Balance: balance})
	}
	sort.Slice(enc.Alloc, func(i, j int) bool {
		return enc.Alloc[i].Addr.Hex() < enc.Alloc[j].Addr.Hex()
	})
	raw, err := rlp.EncodeToBytes(&enc)
	if err != nil {
		return common.Hash{}, fmt.Errorf("encode genesis: %w", err)
	}
	return crypto.Keccak256Hash(raw), nil
}
