package socialinsurance

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

var (
	// ContractAddress is the account holding the pooled funds and the
	// address every call is sent to.
	ContractAddress = common.HexToAddress("0xd100ec0000000000000000000000000000000051")

	// ContractABI describes the call surface. Getter names and output
	// layouts (groups, members, group_members, the constants) stay
	// compatible with deployed callers.
	ContractABI = `[
	{"type":"function","name":"createTopGroup","stateMutability":"nonpayable","inputs":[
		{"name":"_spokesperson","type":"address"},{"name":"_name","type":"string"},
		{"name":"_spokespersonName","type":"string"},{"name":"_spokespersonContact","type":"string"}],"outputs":[]},
	{"type":"function","name":"createGroup","stateMutability":"nonpayable","inputs":[
		{"name":"_spokesperson","type":"address"},{"name":"_name","type":"string"},
		{"name":"_spokespersonName","type":"string"},{"name":"_spokespersonContact","type":"string"}],"outputs":[]},
	{"type":"function","name":"admitMember","stateMutability":"nonpayable","inputs":[
		{"name":"_member","type":"address"}],"outputs":[]},
	{"type":"function","name":"isMember","stateMutability":"view","inputs":[
		{"name":"_member","type":"address"}],"outputs":[{"name":"","type":"bool"}]},
	{"type":"function","name":"payout","stateMutability":"nonpayable","inputs":[
		{"name":"_member","type":"address"},{"name":"_payout","type":"uint256"}],"outputs":[]},
	{"type":"function","name":"propagatePremium","stateMutability":"nonpayable","inputs":[
		{"name":"_spokesperson","type":"address"},{"name":"_premium","type":"uint256"}],"outputs":[]},
	{"type":"function","name":"propagatePayout","stateMutability":"nonpayable","inputs":[
		{"name":"_spokesperson","type":"address"},{"name":"_payout","type":"uint256"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"setMaxPayout","stateMutability":"nonpayable","inputs":[
		{"name":"_new_maxPayout","type":"uint256"}],"outputs":[]},
	{"type":"function","name":"setParameter","stateMutability":"nonpayable","inputs":[
		{"name":"_maxPayout","type":"uint256"},{"name":"_premiumDivisor","type":"uint256"},
		{"name":"_payoutDivisor","type":"uint256"}],"outputs":[]},
	{"type":"function","name":"groups","stateMutability":"view","inputs":[{"name":"","type":"address"}],"outputs":[
		{"name":"parentGroup","type":"address"},{"name":"balance","type":"uint256"},
		{"name":"payouts","type":"uint256"},{"name":"level","type":"uint8"},
		{"name":"numberOfMembers","type":"uint8"},{"name":"numberOfChildren","type":"uint8"},
		{"name":"lastPayoutAt","type":"uint64"},{"name":"name","type":"string"},
		{"name":"spokespersonName","type":"string"},{"name":"spokespersonContact","type":"string"}]},
	{"type":"function","name":"members","stateMutability":"view","inputs":[{"name":"","type":"address"}],"outputs":[
		{"name":"group_spokesperson","type":"address"},{"name":"balance","type":"uint256"},
		{"name":"payouts","type":"uint256"},{"name":"joinedAt","type":"uint64"}]},
	{"type":"function","name":"group_members","stateMutability":"view","inputs":[
		{"name":"","type":"address"},{"name":"","type":"uint256"}],"outputs":[{"name":"","type":"address"}]},
	{"type":"function","name":"group_children","stateMutability":"view","inputs":[
		{"name":"","type":"address"},{"name":"","type":"uint256"}],"outputs":[{"name":"","type":"address"}]},
	{"type":"function","name":"owner","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"address"}]},
	{"type":"function","name":"rootSpokesperson","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"address"}]},
	{"type":"function","name":"NONE","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint8"}]},
	{"type":"function","name":"LOCAL_LEVEL","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint8"}]},
	{"type":"function","name":"MAX_LEVEL","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint8"}]},
	{"type":"function","name":"MAX_MEMBERS","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint8"}]},
	{"type":"function","name":"WAIT_BLOCKS","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint64"}]},
	{"type":"function","name":"WAIT_NEXT_PAYOUT_BLOCKS","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint64"}]},
	{"type":"function","name":"maxPayout","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"premiumDivisor","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"payoutDivisor","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"fallback","stateMutability":"payable"},
	{"type":"event","name":"LOG_memberPaidPremium","anonymous":false,"inputs":[
		{"indexed":false,"name":"_member","type":"address"},{"indexed":false,"name":"_value","type":"uint256"}]}
]`
)

// PremiumEventName is the ABI name of the premium log.
const PremiumEventName = "LOG_memberPaidPremium"

var (
	contractABI abi.ABI

	// PremiumEventID is the first topic of every premium log.
	PremiumEventID common.Hash
)

// init parses the ABI once; a malformed definition is a programming error.
func init() {
	parsed, err := abi.JSON(strings.NewReader(ContractABI))
	if err != nil {
		panic(err)
	}
	for name := range handlers {
		if _, exist := parsed.Methods[name]; !exist {
			panic("unknown social insurance method " + name)
		}
	}
	event, exist := parsed.Events[PremiumEventName]
	if !exist {
		panic("missing premium event")
	}
	contractABI = parsed
	PremiumEventID = event.ID
}

// ABI returns the parsed contract ABI.
func ABI() abi.ABI { return contractABI }
