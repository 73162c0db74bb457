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

// Package evmcore hosts the insurance ledger on a minimal EVM-style chain.
// It provides the pieces the ledger expects from its host: authenticated
// callers, account balances that move with premiums and payouts, and a
// monotonically increasing block number used as the ledger clock.
//
// Key concepts:
//   - EvmHeader/EvmBlock: the sealed block format of the host chain
//   - StateBank: balances kept in a go-ethereum state.StateDB
//   - Chain: applies calls to the contract and seals blocks
//
// The "dummy" blocks carry no proof of work and no transactions trie; they
// only anchor the state root, the executed calls and their logs.

package evmcore

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
)

// EvmHeader represents the header of a sealed host block.
type EvmHeader struct {
	// Hash is the Keccak256 of the RLP of all other fields.
	Hash common.Hash `rlp:"-"`

	Number     *big.Int    // Block number (height in the chain)
	ParentHash common.Hash // Hash of the parent block
	Root       common.Hash // State root (Merkle root of account balances)
	TxHash     common.Hash // Hash over the call hashes of the block
	Time       uint64      // Block timestamp, unix nanoseconds
	LogCount   uint64      // Number of logs emitted by the block's calls
}

// EvmBlock represents a sealed block with the calls it executed and the
// logs they produced.
type EvmBlock struct {
	EvmHeader               // Embedded header (contains block metadata)
	Calls     []common.Hash // Hashes of the calls executed in this block
	Logs      []*types.Log  // Logs in emission order
}

// NewEvmBlock constructs a new EvmBlock from a header, the executed calls
// and their logs. It computes TxHash and the block hash, and stamps every
// log with the block hash.
//
// The TxHash is set to EmptyRootHash if there are no calls, otherwise it is
// the Keccak256 of the concatenated call hashes.
func NewEvmBlock(h *EvmHeader, calls []common.Hash, logs []*types.Log) *EvmBlock {
	b := &EvmBlock{
		EvmHeader: *h, // copy header struct
		Calls:     calls,
		Logs:      logs,
	}

	if len(calls) == 0 {
		b.EvmHeader.TxHash = types.EmptyRootHash
	} else {
		buf := make([]byte, 0, len(calls)*common.HashLength)
		for _, c := range calls {
			buf = append(buf, c.Bytes()...)
		}
		b.EvmHeader.TxHash = crypto.Keccak256Hash(buf)
	}
	b.EvmHeader.LogCount = uint64(len(logs))
	b.EvmHeader.Hash = b.EvmHeader.computeHash()

	for _, l := range logs {
		l.BlockHash = b.EvmHeader.Hash
	}
	return b
}

// NumberU64 returns the block number as uint64.
func (h *EvmHeader) NumberU64() uint64 {
	return h.Number.Uint64()
}

func (h *EvmHeader) computeHash() common.Hash {
	enc, err := rlp.EncodeToBytes(h)
	if err != nil {
		// every field is RLP-encodable
		panic(err)
	}
	return crypto.Keccak256Hash(enc)
}

// EthHeader converts the header into go-ethereum's format so standard
// tooling can display it. Extra carries the host block hash, since the
// Ethereum header hash is computed differently.
func (h *EvmHeader) EthHeader() *types.Header {
	return &types.Header{
		Number:     new(big.Int).Set(h.Number),
		ParentHash: h.ParentHash,
		Root:       h.Root,
		TxHash:     h.TxHash,
		Difficulty: new(big.Int),
		Time:       h.Time / 1e9,
		Extra:      h.Hash.Bytes(),
	}
}
