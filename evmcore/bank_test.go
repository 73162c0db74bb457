package evmcore

import (
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/rawdb"
	"github.com/ethereum/go-ethereum/core/state"
	"github.com/stretchr/testify/require"
)

func TestStateBank(t *testing.T) {
	require := require.New(t)

	statedb, err := state.New(common.Hash{}, state.NewDatabase(rawdb.NewMemoryDatabase()), nil)
	require.NoError(err)
	a, b := FakeAccount(0), FakeAccount(1)
	block := MustApplyFakeGenesis(statedb, FakeGenesisTime, map[common.Address]*big.Int{a: big.NewInt(100)})
	statedb, err = state.New(block.Root, statedb.Database(), nil)
	require.NoError(err)

	bank := NewStateBank(statedb)
	require.NoError(bank.Transfer(a, b, big.NewInt(40)))
	require.Equal(int64(60), bank.Balance(a).Int64())
	require.Equal(int64(40), bank.Balance(b).Int64())

	err = bank.Transfer(b, a, big.NewInt(41))
	require.True(errors.Is(err, ErrInsufficientFunds))
	require.Equal(int64(40), bank.Balance(b).Int64())

	snap := bank.Snapshot()
	require.NoError(bank.Transfer(a, b, big.NewInt(60)))
	require.Equal(0, bank.Balance(a).Sign())
	bank.RevertToSnapshot(snap)
	require.Equal(int64(60), bank.Balance(a).Int64())

	require.Error(bank.Transfer(a, b, big.NewInt(-1)))
}
