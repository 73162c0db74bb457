package evmcore

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/state"
)

// ErrInsufficientFunds is returned when a transfer exceeds the sender's
// host balance.
var ErrInsufficientFunds = errors.New("insufficient funds for transfer")

// StateBank keeps the host account balances the ledger moves premiums and
// payouts between. It implements insurance.Bank.
type StateBank struct {
	statedb *state.StateDB
}

func NewStateBank(statedb *state.StateDB) *StateBank {
	return &StateBank{statedb: statedb}
}

// Transfer moves amount from one account to another.
func (b *StateBank) Transfer(from, to common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return fmt.Errorf("invalid transfer amount %v", amount)
	}
	if have := b.statedb.GetBalance(from); have.Cmp(amount) < 0 {
		return fmt.Errorf("%w: %s has %s, needs %s", ErrInsufficientFunds, from.Hex(), have, amount)
	}
	b.statedb.SubBalance(from, amount)
	b.statedb.AddBalance(to, amount)
	return nil
}

func (b *StateBank) Snapshot() int { return b.statedb.Snapshot() }

func (b *StateBank) RevertToSnapshot(id int) { b.statedb.RevertToSnapshot(id) }

// Balance returns a copy of the host balance of addr.
func (b *StateBank) Balance(addr common.Address) *big.Int {
	return new(big.Int).Set(b.statedb.GetBalance(addr))
}

func (b *StateBank) reset(statedb *state.StateDB) {
	b.statedb = statedb
}
