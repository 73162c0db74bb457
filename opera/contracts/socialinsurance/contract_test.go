package socialinsurance

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/rawdb"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/core/vm"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"

	"github.com/rony4d/go-opera-insurance/insurance"
	"github.com/rony4d/go-opera-insurance/insurance/kvstore"
)

var (
	testOwner  = common.HexToAddress("0xff")
	testRoot   = common.HexToAddress("0x01")
	testRegion = common.HexToAddress("0x02")
)

func newTestContract(t *testing.T) (*Contract, *insurance.ManualClock) {
	t.Helper()
	store, err := kvstore.New(rawdb.NewMemoryDatabase(), 0)
	require.NoError(t, err)
	clock := insurance.NewManualClock(1)
	ledger, err := insurance.NewLedger(insurance.Config{
		Store:   store,
		Clock:   clock,
		Account: ContractAddress,
		Genesis: &insurance.Meta{
			Owner: testOwner,
			Constants: insurance.Constants{
				MaxLevel:             2,
				MaxMembers:           4,
				WaitBlocks:           3,
				WaitNextPayoutBlocks: 2,
			},
			Params: insurance.Parameters{
				MaxPayout:      big.NewInt(500),
				PremiumDivisor: big.NewInt(2),
				PayoutDivisor:  big.NewInt(4),
			},
		},
	})
	require.NoError(t, err)
	return New(ledger), clock
}

func call(t *testing.T, c *Contract, caller common.Address, value *big.Int, method string, args ...interface{}) (*Result, error) {
	t.Helper()
	var input []byte
	if method != "" {
		var err error
		input, err = Pack(method, args...)
		require.NoError(t, err)
	}
	return c.Call(Call{Caller: caller, Value: value, Input: input})
}

func mustCall(t *testing.T, c *Contract, caller common.Address, method string, args ...interface{}) []interface{} {
	t.Helper()
	res, err := call(t, c, caller, nil, method, args...)
	require.NoError(t, err, method)
	require.Equal(t, method, res.Method)
	out, err := Unpack(method, res.Return)
	require.NoError(t, err)
	return out
}

func TestABI(t *testing.T) {
	require := require.New(t)

	require.Equal(crypto.Keccak256Hash([]byte("LOG_memberPaidPremium(address,uint256)")), PremiumEventID)
	require.Len(ABI().Methods, len(handlers))
	for name := range ABI().Methods {
		_, ok := handlers[name]
		require.True(ok, name)
	}

	_, err := Pack("noSuchMethod")
	require.Error(err)
	_, err = Unpack("noSuchMethod", nil)
	require.Error(err)
}

func TestContract_Getters(t *testing.T) {
	require := require.New(t)
	c, _ := newTestContract(t)

	require.Equal(testOwner, mustCall(t, c, testRoot, "owner")[0])
	require.Equal(common.Address{}, mustCall(t, c, testRoot, "rootSpokesperson")[0])
	require.Equal(uint8(0), mustCall(t, c, testRoot, "NONE")[0])
	require.Equal(insurance.LocalLevel, mustCall(t, c, testRoot, "LOCAL_LEVEL")[0])
	require.Equal(uint8(2), mustCall(t, c, testRoot, "MAX_LEVEL")[0])
	require.Equal(uint8(4), mustCall(t, c, testRoot, "MAX_MEMBERS")[0])
	require.Equal(uint64(3), mustCall(t, c, testRoot, "WAIT_BLOCKS")[0])
	require.Equal(uint64(2), mustCall(t, c, testRoot, "WAIT_NEXT_PAYOUT_BLOCKS")[0])
	require.Equal(int64(500), mustCall(t, c, testRoot, "maxPayout")[0].(*big.Int).Int64())
	require.Equal(int64(2), mustCall(t, c, testRoot, "premiumDivisor")[0].(*big.Int).Int64())
	require.Equal(int64(4), mustCall(t, c, testRoot, "payoutDivisor")[0].(*big.Int).Int64())

	// unknown keys read as zero records
	g := mustCall(t, c, testRoot, "groups", common.HexToAddress("0x99"))
	require.Len(g, 10)
	require.Equal(common.Address{}, g[0])
	require.Equal(0, g[1].(*big.Int).Sign())
	require.Equal(uint8(0), g[3])
	require.Equal("", g[7])

	m := mustCall(t, c, testRoot, "members", common.HexToAddress("0x99"))
	require.Equal(common.Address{}, m[0])
	require.Equal(uint64(0), m[3])

	require.Equal(false, mustCall(t, c, testRoot, "isMember", common.HexToAddress("0x99"))[0])
}

func TestContract_Flow(t *testing.T) {
	require := require.New(t)
	c, clock := newTestContract(t)
	member := common.HexToAddress("0x100")

	mustCall(t, c, testOwner, "createTopGroup", testRoot, "root", "Alice", "alice@example.org")
	mustCall(t, c, testRoot, "createGroup", testRegion, "region", "Bob", "bob@example.org")
	mustCall(t, c, testRegion, "admitMember", member)

	require.Equal(testRoot, mustCall(t, c, member, "rootSpokesperson")[0])
	require.Equal(testRegion, mustCall(t, c, member, "group_children", testRoot, big.NewInt(0))[0])
	require.Equal(member, mustCall(t, c, member, "group_members", testRegion, big.NewInt(0))[0])
	require.Equal(true, mustCall(t, c, member, "isMember", member)[0])

	res, err := call(t, c, member, big.NewInt(80), "")
	require.NoError(err)
	require.Equal("fallback", res.Method)
	require.Len(res.Logs, 1)
	log := res.Logs[0]
	require.Equal(ContractAddress, log.Address)
	require.Equal(uint64(1), log.BlockNumber)
	ev, err := ParsePremiumLog(log)
	require.NoError(err)
	require.Equal(member, ev.Member)
	require.Equal(int64(80), ev.Value.Int64())

	g := mustCall(t, c, member, "groups", testRegion)
	require.Equal(testRoot, g[0])
	require.Equal(int64(80), g[1].(*big.Int).Int64())
	require.Equal(uint8(1), g[3])
	require.Equal(uint8(1), g[4])
	require.Equal("region", g[7])
	require.Equal("Bob", g[8])
	require.Equal("bob@example.org", g[9])

	mustCall(t, c, testOwner, "propagatePremium", testRegion, big.NewInt(80))
	require.Equal(int64(40), mustCall(t, c, member, "groups", testRoot)[1].(*big.Int).Int64())

	forwarded := mustCall(t, c, testOwner, "propagatePayout", testRegion, big.NewInt(100))
	require.Equal(int64(25), forwarded[0].(*big.Int).Int64())

	clock.Advance(3)
	mustCall(t, c, testRegion, "payout", member, big.NewInt(20))
	m := mustCall(t, c, member, "members", member)
	require.Equal(testRegion, m[0])
	require.Equal(int64(80), m[1].(*big.Int).Int64())
	require.Equal(int64(20), m[2].(*big.Int).Int64())
	require.Equal(uint64(1), m[3])

	mustCall(t, c, testOwner, "setParameter", big.NewInt(7), big.NewInt(3), big.NewInt(5))
	require.Equal(int64(7), mustCall(t, c, member, "maxPayout")[0].(*big.Int).Int64())
	mustCall(t, c, testOwner, "setMaxPayout", big.NewInt(9))
	require.Equal(int64(9), mustCall(t, c, member, "maxPayout")[0].(*big.Int).Int64())
}

func TestContract_Reverts(t *testing.T) {
	require := require.New(t)
	c, _ := newTestContract(t)

	_, err := c.Call(Call{Caller: testOwner, Input: []byte{0x01, 0x02}})
	require.ErrorIs(err, vm.ErrExecutionReverted)

	_, err = c.Call(Call{Caller: testOwner, Input: []byte{0xde, 0xad, 0xbe, 0xef}})
	require.ErrorIs(err, vm.ErrExecutionReverted)

	_, err = call(t, c, testOwner, big.NewInt(1), "owner")
	require.ErrorIs(err, vm.ErrExecutionReverted)

	_, err = c.Call(Call{Caller: testOwner, Value: big.NewInt(-1)})
	require.ErrorIs(err, vm.ErrExecutionReverted)

	input, err := Pack("admitMember", common.HexToAddress("0x5"))
	require.NoError(err)
	_, err = c.Call(Call{Caller: testOwner, Input: input[:20]})
	require.ErrorIs(err, vm.ErrExecutionReverted)
}

func TestContract_LedgerErrors(t *testing.T) {
	require := require.New(t)
	c, _ := newTestContract(t)

	_, err := call(t, c, testRoot, nil, "createTopGroup", testRoot, "root", "", "")
	require.ErrorIs(err, insurance.ErrUnauthorized)
	require.Equal(insurance.CodeTypeUnauthorized, insurance.Code(err))

	_, err = call(t, c, testRoot, big.NewInt(10), "")
	require.ErrorIs(err, insurance.ErrUnauthorized)

	_, err = call(t, c, testRoot, nil, "group_members", testRoot, new(big.Int).Lsh(big.NewInt(1), 100))
	require.ErrorIs(err, insurance.ErrNotFound)
	_, err = call(t, c, testRoot, nil, "group_children", testRoot, big.NewInt(0))
	require.ErrorIs(err, insurance.ErrNotFound)

	mustCall(t, c, testOwner, "createTopGroup", testRoot, "root", "", "")
	_, err = call(t, c, testRoot, nil, "admitMember", common.HexToAddress("0x5"))
	require.ErrorIs(err, insurance.ErrCapacity)
}

func TestParsePremiumLog_Foreign(t *testing.T) {
	_, err := ParsePremiumLog(&types.Log{Address: common.HexToAddress("0x1"), Topics: []common.Hash{PremiumEventID}})
	require.ErrorIs(t, err, ErrNotPremiumLog)
	_, err = ParsePremiumLog(&types.Log{Address: ContractAddress})
	require.ErrorIs(t, err, ErrNotPremiumLog)
}
