package evmcore

import (
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/rawdb"
	"github.com/ethereum/go-ethereum/core/state"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethdb"
	"github.com/ethereum/go-ethereum/params"
	"github.com/stretchr/testify/require"

	"github.com/rony4d/go-opera-insurance/insurance"
	"github.com/rony4d/go-opera-insurance/opera"
	"github.com/rony4d/go-opera-insurance/opera/contracts/socialinsurance"
)

func openTestChain(t *testing.T, db ethdb.Database, accounts int) *Chain {
	t.Helper()
	chain, err := OpenChain(db, FakeGenesis(accounts, opera.FakeNetRules()), ChainConfig{})
	require.NoError(t, err)
	return chain
}

func mustPack(t *testing.T, method string, args ...interface{}) []byte {
	t.Helper()
	input, err := socialinsurance.Pack(method, args...)
	require.NoError(t, err)
	return input
}

func callAs(t *testing.T, chain *Chain, n int, method string, args ...interface{}) *Receipt {
	t.Helper()
	r, err := chain.Call(FakeAccount(n), nil, mustPack(t, method, args...))
	require.NoError(t, err, method)
	require.Equal(t, types.ReceiptStatusSuccessful, r.Status)
	return r
}

// buildBranch creates one branch of the tree: fake account 1 leads the top
// group, 2 and 3 the intermediate groups and 4 the local group.
func buildBranch(t *testing.T, chain *Chain) {
	t.Helper()
	callAs(t, chain, 0, "createTopGroup", FakeAccount(1), "root", "Alice", "alice@example.org")
	callAs(t, chain, 1, "createGroup", FakeAccount(2), "region", "Bob", "bob@example.org")
	callAs(t, chain, 2, "createGroup", FakeAccount(3), "district", "Carol", "carol@example.org")
	callAs(t, chain, 3, "createGroup", FakeAccount(4), "village", "Dave", "dave@example.org")
}

func TestOpenChain_Genesis(t *testing.T) {
	require := require.New(t)

	db := rawdb.NewMemoryDatabase()
	chain := openTestChain(t, db, 3)

	head := chain.Head()
	require.Equal(uint64(0), head.NumberU64())
	require.Equal(types.EmptyRootHash, head.TxHash)
	require.Equal(FakeGenesisTime*1e9, head.Time)
	require.EqualValues(1, chain.Now())

	for i := 0; i < 3; i++ {
		require.Equal(0, chain.Balance(FakeAccount(i)).Cmp(FakeBalance))
	}
	owner, err := chain.Ledger().Owner()
	require.NoError(err)
	require.Equal(FakeAccount(0), owner)

	_, err = OpenChain(rawdb.NewMemoryDatabase(), nil, ChainConfig{})
	require.ErrorIs(err, ErrNoGenesis)
}

func TestOpenChain_Reopen(t *testing.T) {
	require := require.New(t)

	db := rawdb.NewMemoryDatabase()
	chain := openTestChain(t, db, 5)
	buildBranch(t, chain)
	_, err := chain.Advance(3)
	require.NoError(err)
	head := chain.Head()
	require.Equal(uint64(3), head.NumberU64())

	reopened, err := OpenChain(db, nil, ChainConfig{})
	require.NoError(err)
	require.Equal(head.Hash, reopened.Head().Hash)
	require.EqualValues(4, reopened.Now())

	root, err := reopened.Ledger().RootSpokesperson()
	require.NoError(err)
	require.Equal(FakeAccount(1), root)

	_, err = OpenChain(db, FakeGenesis(6, opera.FakeNetRules()), ChainConfig{})
	require.ErrorIs(err, ErrGenesisMismatch)

	_, err = OpenChain(db, FakeGenesis(5, opera.FakeNetRules()), ChainConfig{})
	require.NoError(err)
}

func TestChain_PremiumMovesFunds(t *testing.T) {
	require := require.New(t)

	chain := openTestChain(t, rawdb.NewMemoryDatabase(), 6)
	buildBranch(t, chain)
	callAs(t, chain, 4, "admitMember", FakeAccount(5))

	premium := big.NewInt(params.Ether)
	r, err := chain.Call(FakeAccount(5), premium, nil)
	require.NoError(err)
	require.Equal("fallback", r.Method)
	require.Len(r.Logs, 1)
	require.Equal(socialinsurance.PremiumEventID, r.Logs[0].Topics[0])
	require.Equal(r.TxHash, r.Logs[0].TxHash)

	require.Equal(0, chain.Balance(socialinsurance.ContractAddress).Cmp(premium))
	want := new(big.Int).Sub(FakeBalance, premium)
	require.Equal(0, chain.Balance(FakeAccount(5)).Cmp(want))

	block, err := chain.Seal()
	require.NoError(err)
	require.Len(block.Logs, 1)
	require.Equal(block.Hash, block.Logs[0].BlockHash)
	require.NotEqual(types.EmptyRootHash, block.TxHash)

	ev, err := socialinsurance.ParsePremiumLog(block.Logs[0])
	require.NoError(err)
	require.Equal(FakeAccount(5), ev.Member)
	require.Equal(0, ev.Value.Cmp(premium))

	// balances survive the seal
	require.Equal(0, chain.Balance(socialinsurance.ContractAddress).Cmp(premium))
}

func TestChain_FailedCallKeepsBalances(t *testing.T) {
	require := require.New(t)

	chain := openTestChain(t, rawdb.NewMemoryDatabase(), 6)
	r, err := chain.Call(FakeAccount(5), big.NewInt(params.Ether), nil)
	require.True(errors.Is(err, insurance.ErrUnauthorized))
	require.Equal(types.ReceiptStatusFailed, r.Status)
	require.Equal(insurance.CodeTypeUnauthorized, r.Code)

	require.Equal(0, chain.Balance(FakeAccount(5)).Cmp(FakeBalance))
	require.Equal(0, chain.Balance(socialinsurance.ContractAddress).Sign())
}

func TestChain_PayoutNeedsPooledFunds(t *testing.T) {
	require := require.New(t)

	chain := openTestChain(t, rawdb.NewMemoryDatabase(), 6)
	buildBranch(t, chain)
	callAs(t, chain, 4, "admitMember", FakeAccount(5))
	_, err := chain.Call(FakeAccount(5), big.NewInt(1000), nil)
	require.NoError(err)

	_, err = chain.Advance(opera.FakeLedgerRules().WaitBlocks)
	require.NoError(err)

	callAs(t, chain, 4, "payout", FakeAccount(5), big.NewInt(400))
	want := new(big.Int).Sub(FakeBalance, big.NewInt(600))
	require.Equal(0, chain.Balance(FakeAccount(5)).Cmp(want))
	require.Equal(int64(600), chain.Balance(socialinsurance.ContractAddress).Int64())
}

func TestChain_ApplyTransaction(t *testing.T) {
	require := require.New(t)

	chain := openTestChain(t, rawdb.NewMemoryDatabase(), 2)
	input := mustPack(t, "createTopGroup", FakeAccount(1), "root", "Alice", "alice@example.org")

	tx, err := types.SignTx(NewCall(0, nil, input), chain.Signer(), FakeKey(0))
	require.NoError(err)
	r, err := chain.ApplyTransaction(tx)
	require.NoError(err)
	require.Equal(FakeAccount(0), r.From)
	require.Equal(tx.Hash(), r.TxHash)
	require.Equal(uint64(1), chain.Nonce(FakeAccount(0)))

	// replay
	_, err = chain.ApplyTransaction(tx)
	require.ErrorIs(err, ErrNonceMismatch)

	// a rejected call still consumes the nonce
	tx, err = types.SignTx(NewCall(1, nil, input), chain.Signer(), FakeKey(0))
	require.NoError(err)
	r, err = chain.ApplyTransaction(tx)
	require.ErrorIs(err, insurance.ErrDuplicate)
	require.Equal(types.ReceiptStatusFailed, r.Status)
	require.Equal(uint64(2), chain.Nonce(FakeAccount(0)))

	// signed by someone else: the owner check sees the real sender
	tx, err = types.SignTx(NewCall(0, nil, input), chain.Signer(), FakeKey(1))
	require.NoError(err)
	_, err = chain.ApplyTransaction(tx)
	require.ErrorIs(err, insurance.ErrUnauthorized)

	wrong := types.NewTransaction(2, common.HexToAddress("0x01"), new(big.Int), 0, new(big.Int), input)
	wrong, err = types.SignTx(wrong, chain.Signer(), FakeKey(0))
	require.NoError(err)
	_, err = chain.ApplyTransaction(wrong)
	require.ErrorIs(err, ErrUnknownRecipient)
}

func TestChain_HeadersLink(t *testing.T) {
	require := require.New(t)

	chain := openTestChain(t, rawdb.NewMemoryDatabase(), 1)
	head, err := chain.Advance(4)
	require.NoError(err)
	require.Equal(uint64(4), head.NumberU64())

	for n := uint64(1); n <= 4; n++ {
		h, err := chain.Header(n)
		require.NoError(err)
		parent, err := chain.Header(n - 1)
		require.NoError(err)
		require.Equal(parent.Hash, h.ParentHash)
		require.Greater(h.Time, parent.Time)
	}
	_, err = chain.Header(5)
	require.Error(err)
}

func TestEvmHeader_EthHeader(t *testing.T) {
	require := require.New(t)

	chain := openTestChain(t, rawdb.NewMemoryDatabase(), 2)
	callAs(t, chain, 0, "createTopGroup", FakeAccount(1), "Root", "Ruth", "ruth@example.org")
	block, err := chain.Seal()
	require.NoError(err)

	eth := block.EthHeader()
	require.Equal(uint64(1), eth.Number.Uint64())
	require.Equal(block.ParentHash, eth.ParentHash)
	require.Equal(block.Root, eth.Root)
	require.Equal(block.TxHash, eth.TxHash)
	require.Equal(block.Time/1e9, eth.Time)
	require.Equal(block.Hash.Bytes(), eth.Extra)

	// the conversion copies the number
	eth.Number.SetUint64(7)
	require.Equal(uint64(1), block.NumberU64())
}

func TestFakeKey_Deterministic(t *testing.T) {
	require := require.New(t)

	require.Equal(FakeAccount(3), FakeAccount(3))
	require.NotEqual(FakeAccount(3), FakeAccount(4))

	owner := FakeAccount(0)
	for i := 0; i < 10; i++ {
		require.Equal(owner, FakeAccount(0), "derivation %d", i)
		require.Equal(crypto.FromECDSA(FakeKey(0)), crypto.FromECDSA(FakeKey(0)))
	}

	g := FakeGenesis(4, opera.FakeNetRules())
	require.Equal(FakeAccount(0), g.Owner)
	require.Len(g.Alloc, 4)
	require.NoError(g.Validate())
}

func TestMustApplyFakeGenesis(t *testing.T) {
	require := require.New(t)

	statedb, err := state.New(common.Hash{}, state.NewDatabase(rawdb.NewMemoryDatabase()), nil)
	require.NoError(err)
	block := MustApplyFakeGenesis(statedb, FakeGenesisTime, map[common.Address]*big.Int{
		FakeAccount(0): big.NewInt(10),
	})
	require.Equal(uint64(0), block.NumberU64())
	require.NotEqual(common.Hash{}, block.Root)
	require.Equal(block.Hash, block.computeHash())
}
