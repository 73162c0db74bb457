package socialinsurance

import (
	"math/big"

	"github.com/Fantom-foundation/lachesis-base/inter/idx"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/rony4d/go-opera-insurance/insurance"
)

func idxBlock(n uint64) idx.Block { return idx.Block(n) }

func none() ([]interface{}, []*types.Log, error) { return nil, nil, nil }

func handleCreateTopGroup(c *Contract, call *Call, args []interface{}) ([]interface{}, []*types.Log, error) {
	err := c.ledger.CreateTopGroup(call.Caller, argAddress(args, 0), argString(args, 1), argString(args, 2), argString(args, 3))
	if err != nil {
		return nil, nil, err
	}
	return none()
}

func handleCreateGroup(c *Contract, call *Call, args []interface{}) ([]interface{}, []*types.Log, error) {
	err := c.ledger.CreateGroup(call.Caller, argAddress(args, 0), argString(args, 1), argString(args, 2), argString(args, 3))
	if err != nil {
		return nil, nil, err
	}
	return none()
}

func handleAdmitMember(c *Contract, call *Call, args []interface{}) ([]interface{}, []*types.Log, error) {
	if err := c.ledger.AdmitMember(call.Caller, argAddress(args, 0)); err != nil {
		return nil, nil, err
	}
	return none()
}

func handleIsMember(c *Contract, _ *Call, args []interface{}) ([]interface{}, []*types.Log, error) {
	ok, err := c.ledger.IsMember(argAddress(args, 0))
	if err != nil {
		return nil, nil, err
	}
	return []interface{}{ok}, nil, nil
}

func handlePayout(c *Contract, call *Call, args []interface{}) ([]interface{}, []*types.Log, error) {
	if err := c.ledger.Payout(call.Caller, argAddress(args, 0), argBig(args, 1)); err != nil {
		return nil, nil, err
	}
	return none()
}

func handlePropagatePremium(c *Contract, call *Call, args []interface{}) ([]interface{}, []*types.Log, error) {
	if err := c.ledger.PropagatePremium(call.Caller, argAddress(args, 0), argBig(args, 1)); err != nil {
		return nil, nil, err
	}
	return none()
}

func handlePropagatePayout(c *Contract, call *Call, args []interface{}) ([]interface{}, []*types.Log, error) {
	forwarded, err := c.ledger.PropagatePayout(call.Caller, argAddress(args, 0), argBig(args, 1))
	if err != nil {
		return nil, nil, err
	}
	return []interface{}{forwarded}, nil, nil
}

func handleSetMaxPayout(c *Contract, call *Call, args []interface{}) ([]interface{}, []*types.Log, error) {
	if err := c.ledger.SetMaxPayout(call.Caller, argBig(args, 0)); err != nil {
		return nil, nil, err
	}
	return none()
}

func handleSetParameter(c *Contract, call *Call, args []interface{}) ([]interface{}, []*types.Log, error) {
	if err := c.ledger.SetParameter(call.Caller, argBig(args, 0), argBig(args, 1), argBig(args, 2)); err != nil {
		return nil, nil, err
	}
	return none()
}

// handleGroups mirrors a mapping getter: an unknown key yields zero values.
func handleGroups(c *Contract, _ *Call, args []interface{}) ([]interface{}, []*types.Log, error) {
	g, ok, err := c.ledger.Groups(argAddress(args, 0))
	if err != nil {
		return nil, nil, err
	}
	if !ok {
		g = &insurance.Group{Balance: new(big.Int), Payouts: new(big.Int)}
	}
	return []interface{}{
		g.Parent, g.Balance, g.Payouts, g.Level, g.MemberCount, g.ChildCount,
		uint64(g.LastPayoutAt), g.Name, g.SpokespersonName, g.SpokespersonContact,
	}, nil, nil
}

func handleMembers(c *Contract, _ *Call, args []interface{}) ([]interface{}, []*types.Log, error) {
	m, ok, err := c.ledger.Members(argAddress(args, 0))
	if err != nil {
		return nil, nil, err
	}
	if !ok {
		m = &insurance.Membership{Balance: new(big.Int), Payouts: new(big.Int)}
	}
	return []interface{}{m.Group, m.Balance, m.Payouts, uint64(m.JoinedAt)}, nil, nil
}

func handleGroupMembers(c *Contract, _ *Call, args []interface{}) ([]interface{}, []*types.Log, error) {
	index := argBig(args, 1)
	if !index.IsUint64() {
		return nil, nil, &insurance.Error{Op: "group_members", Kind: insurance.ErrNotFound, Detail: "index out of range"}
	}
	member, err := c.ledger.GroupMember(argAddress(args, 0), index.Uint64())
	if err != nil {
		return nil, nil, err
	}
	return []interface{}{member}, nil, nil
}

func handleGroupChildren(c *Contract, _ *Call, args []interface{}) ([]interface{}, []*types.Log, error) {
	index := argBig(args, 1)
	if !index.IsUint64() {
		return nil, nil, &insurance.Error{Op: "group_children", Kind: insurance.ErrNotFound, Detail: "index out of range"}
	}
	child, err := c.ledger.GroupChild(argAddress(args, 0), index.Uint64())
	if err != nil {
		return nil, nil, err
	}
	return []interface{}{child}, nil, nil
}

func handleOwner(c *Contract, _ *Call, _ []interface{}) ([]interface{}, []*types.Log, error) {
	return metaOutput(c, func(m *insurance.Meta) interface{} { return m.Owner })
}

func handleRootSpokesperson(c *Contract, _ *Call, _ []interface{}) ([]interface{}, []*types.Log, error) {
	return metaOutput(c, func(m *insurance.Meta) interface{} { return m.Root })
}

// handleNone returns the legacy numeric sentinel; the address form of
// "none" is the zero address.
func handleNone(_ *Contract, _ *Call, _ []interface{}) ([]interface{}, []*types.Log, error) {
	return []interface{}{uint8(0)}, nil, nil
}

func handleLocalLevel(_ *Contract, _ *Call, _ []interface{}) ([]interface{}, []*types.Log, error) {
	return []interface{}{insurance.LocalLevel}, nil, nil
}

func handleMaxLevel(c *Contract, _ *Call, _ []interface{}) ([]interface{}, []*types.Log, error) {
	return metaOutput(c, func(m *insurance.Meta) interface{} { return m.Constants.MaxLevel })
}

func handleMaxMembers(c *Contract, _ *Call, _ []interface{}) ([]interface{}, []*types.Log, error) {
	return metaOutput(c, func(m *insurance.Meta) interface{} { return m.Constants.MaxMembers })
}

func handleWaitBlocks(c *Contract, _ *Call, _ []interface{}) ([]interface{}, []*types.Log, error) {
	return metaOutput(c, func(m *insurance.Meta) interface{} { return uint64(m.Constants.WaitBlocks) })
}

func handleWaitNextPayoutBlocks(c *Contract, _ *Call, _ []interface{}) ([]interface{}, []*types.Log, error) {
	return metaOutput(c, func(m *insurance.Meta) interface{} { return uint64(m.Constants.WaitNextPayoutBlocks) })
}

func handleMaxPayout(c *Contract, _ *Call, _ []interface{}) ([]interface{}, []*types.Log, error) {
	return metaOutput(c, func(m *insurance.Meta) interface{} { return m.Params.MaxPayout })
}

func handlePremiumDivisor(c *Contract, _ *Call, _ []interface{}) ([]interface{}, []*types.Log, error) {
	return metaOutput(c, func(m *insurance.Meta) interface{} { return m.Params.PremiumDivisor })
}

func handlePayoutDivisor(c *Contract, _ *Call, _ []interface{}) ([]interface{}, []*types.Log, error) {
	return metaOutput(c, func(m *insurance.Meta) interface{} { return m.Params.PayoutDivisor })
}

func metaOutput(c *Contract, field func(m *insurance.Meta) interface{}) ([]interface{}, []*types.Log, error) {
	meta, err := c.ledger.Meta()
	if err != nil {
		return nil, nil, err
	}
	return []interface{}{field(meta)}, nil, nil
}
