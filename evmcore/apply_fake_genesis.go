// Copyright 2015 The go-ethereum Authors
// This file is part of the go-ethereum library.
//
// The go-ethereum library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The go-ethereum library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the go-ethereum library. If not, see <http://www.gnu.org/licenses/>.

package evmcore

import (
	"crypto/ecdsa"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/state"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/params"

	"github.com/rony4d/go-opera-insurance/opera"
	"github.com/rony4d/go-opera-insurance/opera/genesis"
)

// FakeGenesisTime is the default timestamp used for fake genesis blocks,
// in unix seconds (December 22, 2020).
const FakeGenesisTime uint64 = 1608600000

// fakeKeyLabel domain-separates FakeKey seeds.
var fakeKeyLabel = []byte("opera-insurance/fakekey")

// FakeBalance is the host balance of every fake account: one million ether.
var FakeBalance = new(big.Int).Mul(big.NewInt(1000000), big.NewInt(params.Ether))

// ApplyFakeGenesis writes the initial account balances and returns the
// genesis block (block number 0).
//
// Process:
//  1. Sets initial balances for all specified accounts
//  2. Commits the state to the database and computes the state root
//  3. Creates a genesis block with the computed state root
//
// time is in unix seconds, as in genesis files.
func ApplyFakeGenesis(statedb *state.StateDB, time uint64, balances map[common.Address]*big.Int) (*EvmBlock, error) {
	for acc, balance := range balances {
		statedb.SetBalance(acc, balance)
	}

	root, err := flush(statedb, true, false)
	if err != nil {
		return nil, err
	}

	return genesisBlock(time, root), nil
}

// flush commits state changes to the database and returns the state root hash.
//
// This function performs a two-phase commit:
//  1. Commits pending state changes to the state trie, dropping empty
//     accounts when deleteEmptyObjects is set
//  2. Commits the trie to the underlying database
//
// capCache additionally caps the trie cache, used for the regular block
// commits of a long running chain.
func flush(statedb *state.StateDB, deleteEmptyObjects, capCache bool) (root common.Hash, err error) {
	root, err = statedb.Commit(deleteEmptyObjects)
	if err != nil {
		return
	}

	err = statedb.Database().TrieDB().Commit(root, false, nil)
	if err != nil {
		return
	}

	// Cap(0) removes all nodes that are not referenced by the current root
	if capCache {
		err = statedb.Database().TrieDB().Cap(0)
	}

	return
}

// genesisBlock creates a genesis block (block number 0) with the specified parameters.
//
// Genesis Block Properties:
//   - Number: 0 (genesis block)
//   - ParentHash: zero (no parent)
//   - Root: State root hash from committed state
//   - TxHash: Empty root hash (no calls in genesis)
func genesisBlock(time uint64, root common.Hash) *EvmBlock {
	return NewEvmBlock(&EvmHeader{
		Number: big.NewInt(0),
		Time:   time * 1e9,
		Root:   root,
	}, nil, nil)
}

// MustApplyFakeGenesis is a convenience wrapper around ApplyFakeGenesis that
// terminates the process on error. Genesis creation failure is fatal.
func MustApplyFakeGenesis(statedb *state.StateDB, time uint64, balances map[common.Address]*big.Int) *EvmBlock {
	block, err := ApplyFakeGenesis(statedb, time, balances)
	if err != nil {
		log.Crit("ApplyFakeGenesis", "err", err)
	}
	return block
}

// FakeKey returns the deterministic fake private key n.
//
// The key is the Keccak256 of a fixed label and n, so every process derives
// the same key for the same n.
//
// Example:
//
//	key0 := FakeKey(0)  // the owner of a fake genesis
//	key1 := FakeKey(1)  // a spokesperson or member account
//	key0Again := FakeKey(0)  // Same as key0 (deterministic)
func FakeKey(n int) *ecdsa.PrivateKey {
	seed := crypto.Keccak256(fakeKeyLabel, common.LeftPadBytes(big.NewInt(int64(n)).Bytes(), 32))

	key, err := crypto.ToECDSA(seed)
	if err != nil {
		// a hash above the curve order is practically impossible
		panic(err)
	}

	return key
}

// FakeAccount returns the address of FakeKey(n).
func FakeAccount(n int) common.Address {
	return crypto.PubkeyToAddress(FakeKey(n).PublicKey)
}

// FakeGenesis returns a genesis owned by FakeAccount(0) that funds the fake
// accounts 0..accounts-1 with FakeBalance each.
func FakeGenesis(accounts int, rules opera.Rules) *genesis.Genesis {
	g := &genesis.Genesis{
		Rules: rules.Copy(),
		Owner: FakeAccount(0),
		Alloc: make(map[common.Address]*big.Int, accounts),
		Time:  FakeGenesisTime,
	}
	for i := 0; i < accounts; i++ {
		g.Alloc[FakeAccount(i)] = new(big.Int).Set(FakeBalance)
	}
	return g
}
