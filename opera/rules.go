// Package opera defines the network rules of the insurance ledger.
//
// This package provides:
//   - Network identification constants (MainNet, TestNet, FakeNet)
//   - Ledger rules: the tree shape and the waiting periods, fixed at genesis
//   - Economy rules: the initial owner-tunable parameters
//   - Block rules for the host chain simulator
//
// The Rules type is the single configuration structure a genesis is built
// from; every node of one network must agree on it.

package opera

import (
	"encoding/json"
	"math/big"
	"time"

	"github.com/Fantom-foundation/lachesis-base/inter/idx"
	ethparams "github.com/ethereum/go-ethereum/params"

	"github.com/rony4d/go-opera-insurance/insurance"
)

// Network identification constants
const (
	// MainNetworkID is the chain ID of the production network (0xfa = 250)
	MainNetworkID uint64 = 0xfa

	// TestNetworkID is the chain ID of the public test network (0xfa2 = 4002)
	TestNetworkID uint64 = 0xfa2

	// FakeNetworkID is the chain ID of local networks (0xfa3 = 4003)
	FakeNetworkID uint64 = 0xfa3

	// DefaultMaxLevel is the level of the top group: four tiers from the
	// root down to the local groups.
	DefaultMaxLevel uint8 = 4

	// DefaultMaxMembers caps both the members of a local group and the
	// child groups of any group.
	DefaultMaxMembers uint8 = 12
)

// RulesRLP is the RLP-serializable form of Rules. It is what gets persisted
// with the genesis so a restarted node can detect a mismatching network.
type RulesRLP struct {
	Name      string // Network name identifier (e.g., "main", "test", "fake")
	NetworkID uint64 // Chain ID used for transaction signing

	// Ledger options - shape of the group tree and waiting periods
	Ledger LedgerRules

	// Economy options - initial payout cap and propagation divisors
	Economy EconomyRules

	// Blockchain options - host chain block production (not RLP-encoded)
	Blocks BlocksRules `rlp:"-"`
}

// Rules describes the complete configuration for an insurance network.
//
// Note: Copy() must deep-copy every *big.Int so presets never share state.
type Rules RulesRLP

// LedgerRules are the constants of the ledger. They cannot be changed
// after genesis.
type LedgerRules struct {
	// MaxLevel is the level of the top group. Local groups sit at level 1.
	MaxLevel uint8

	// MaxMembers is the cap on members per local group and on children
	// per group.
	MaxMembers uint8

	// WaitBlocks is the minimum membership age, in blocks, before a
	// member can receive a payout.
	WaitBlocks idx.Block

	// WaitNextPayoutBlocks is the minimum distance, in blocks, between two
	// payouts of the same group.
	WaitNextPayoutBlocks idx.Block
}

// EconomyRules are the initial values of the owner-tunable parameters.
type EconomyRules struct {
	// MaxPayout caps a single payout and a single payout propagation
	MaxPayout *big.Int

	// PremiumDivisor divides premiums forwarded to the parent group
	PremiumDivisor *big.Int

	// PayoutDivisor divides payouts drawn from the parent group
	PayoutDivisor *big.Int
}

// BlocksRules contains rules for the host chain simulator.
type BlocksRules struct {
	// BlockPeriod is the nominal time between two sealed blocks. It only
	// drives header timestamps, the ledger counts blocks.
	BlockPeriod time.Duration
}

// MainNetRules returns the configuration rules for the production network.
// Waiting periods assume one-second blocks: 48 hours of membership before
// the first payout and 96 minutes between two payouts of a group.
func MainNetRules() Rules {
	return Rules{
		Name:      "main",
		NetworkID: MainNetworkID,
		Ledger:    DefaultLedgerRules(),
		Economy:   DefaultEconomyRules(),
		Blocks: BlocksRules{
			BlockPeriod: time.Second,
		},
	}
}

// TestNetRules returns the configuration rules for the test network.
// Testnet uses the same parameters as mainnet for realistic testing.
func TestNetRules() Rules {
	return Rules{
		Name:      "test",
		NetworkID: TestNetworkID,
		Ledger:    DefaultLedgerRules(),
		Economy:   DefaultEconomyRules(),
		Blocks: BlocksRules{
			BlockPeriod: time.Second,
		},
	}
}

// FakeNetRules returns the configuration rules for local networks.
// Waiting periods shrink to a handful of blocks so a whole payout cycle
// fits in a short session.
func FakeNetRules() Rules {
	return Rules{
		Name:      "fake",
		NetworkID: FakeNetworkID,
		Ledger:    FakeLedgerRules(),
		Economy:   FakeEconomyRules(),
		Blocks: BlocksRules{
			BlockPeriod: 100 * time.Millisecond,
		},
	}
}

// DefaultLedgerRules returns the mainnet ledger constants.
func DefaultLedgerRules() LedgerRules {
	return LedgerRules{
		MaxLevel:             DefaultMaxLevel,
		MaxMembers:           DefaultMaxMembers,
		WaitBlocks:           172800, // 48h of 1s blocks
		WaitNextPayoutBlocks: 5760,   // 96m of 1s blocks
	}
}

// FakeLedgerRules returns accelerated ledger constants for local networks.
func FakeLedgerRules() LedgerRules {
	cfg := DefaultLedgerRules()
	cfg.WaitBlocks = 10
	cfg.WaitNextPayoutBlocks = 5
	return cfg
}

// DefaultEconomyRules returns the mainnet parameters: payouts capped at
// 10 ether, premiums and payouts halved at every hop.
func DefaultEconomyRules() EconomyRules {
	return EconomyRules{
		MaxPayout:      new(big.Int).Mul(big.NewInt(10), big.NewInt(ethparams.Ether)),
		PremiumDivisor: big.NewInt(2),
		PayoutDivisor:  big.NewInt(2),
	}
}

// FakeEconomyRules returns the local network parameters.
func FakeEconomyRules() EconomyRules {
	cfg := DefaultEconomyRules()
	cfg.MaxPayout = new(big.Int).Mul(big.NewInt(100), big.NewInt(ethparams.Ether))
	return cfg
}

// Constants converts the ledger rules into ledger constants.
func (r Rules) Constants() insurance.Constants {
	return insurance.Constants{
		MaxLevel:             r.Ledger.MaxLevel,
		MaxMembers:           r.Ledger.MaxMembers,
		WaitBlocks:           r.Ledger.WaitBlocks,
		WaitNextPayoutBlocks: r.Ledger.WaitNextPayoutBlocks,
	}
}

// Parameters converts the economy rules into ledger parameters.
func (r Rules) Parameters() insurance.Parameters {
	return insurance.Parameters{
		MaxPayout:      r.Economy.MaxPayout,
		PremiumDivisor: r.Economy.PremiumDivisor,
		PayoutDivisor:  r.Economy.PayoutDivisor,
	}.Copy()
}

// ChainID returns the network ID as an EIP-155 chain ID.
func (r Rules) ChainID() *big.Int {
	return new(big.Int).SetUint64(r.NetworkID)
}

// Validate checks that the rules describe a usable ledger.
func (r Rules) Validate() error {
	if err := r.Constants().Validate(); err != nil {
		return err
	}
	return r.Parameters().Validate()
}

// Copy creates a deep copy of Rules.
// This is necessary because Rules contains pointer types (*big.Int) that
// would be shared in a shallow copy, leading to unintended mutations.
func (r Rules) Copy() Rules {
	cp := r
	cp.Economy = EconomyRules{
		MaxPayout:      copyBig(r.Economy.MaxPayout),
		PremiumDivisor: copyBig(r.Economy.PremiumDivisor),
		PayoutDivisor:  copyBig(r.Economy.PayoutDivisor),
	}
	return cp
}

func copyBig(x *big.Int) *big.Int {
	if x == nil {
		return nil
	}
	return new(big.Int).Set(x)
}

// String returns a JSON representation of Rules for debugging and logging.
func (r Rules) String() string {
	b, _ := json.Marshal(&r)
	return string(b)
}

// RulesByName returns the preset rules of a named network.
func RulesByName(name string) (Rules, bool) {
	switch name {
	case "main", "mainnet":
		return MainNetRules(), true
	case "test", "testnet":
		return TestNetRules(), true
	case "fake", "fakenet":
		return FakeNetRules(), true
	}
	return Rules{}, false
}
