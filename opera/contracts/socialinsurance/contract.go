// Package socialinsurance exposes the insurance ledger through an
// Ethereum-style call surface.
//
// Overview:
//
//	Every call carries an authenticated caller, an attached value and
//	ABI-encoded calldata. The first 4 bytes select the method; the rest
//	are its arguments. A call with empty calldata and a positive value is
//	a premium payment (the fallback entry) and yields one
//	LOG_memberPaidPremium log.
//
// Failure model:
//   - Malformed calldata, unknown selectors and value sent to a
//     non-payable method revert with vm.ErrExecutionReverted.
//   - Ledger rejections are returned unchanged so callers can inspect the
//     error kind with errors.Is.
//   - A failed call leaves no state behind.
package socialinsurance

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/core/vm"

	"github.com/rony4d/go-opera-insurance/insurance"
)

// Call is one authenticated invocation.
type Call struct {
	Caller common.Address
	Value  *big.Int
	Input  []byte
}

// Result is the outcome of a successful call.
type Result struct {
	Method string
	Return []byte       // ABI-encoded outputs
	Logs   []*types.Log // BlockNumber is set, the host fills in hashes and indexes
}

type handler func(c *Contract, call *Call, args []interface{}) ([]interface{}, []*types.Log, error)

var handlers = map[string]handler{
	"createTopGroup":          handleCreateTopGroup,
	"createGroup":             handleCreateGroup,
	"admitMember":             handleAdmitMember,
	"isMember":                handleIsMember,
	"payout":                  handlePayout,
	"propagatePremium":        handlePropagatePremium,
	"propagatePayout":         handlePropagatePayout,
	"setMaxPayout":            handleSetMaxPayout,
	"setParameter":            handleSetParameter,
	"groups":                  handleGroups,
	"members":                 handleMembers,
	"group_members":           handleGroupMembers,
	"group_children":          handleGroupChildren,
	"owner":                   handleOwner,
	"rootSpokesperson":        handleRootSpokesperson,
	"NONE":                    handleNone,
	"LOCAL_LEVEL":             handleLocalLevel,
	"MAX_LEVEL":               handleMaxLevel,
	"MAX_MEMBERS":             handleMaxMembers,
	"WAIT_BLOCKS":             handleWaitBlocks,
	"WAIT_NEXT_PAYOUT_BLOCKS": handleWaitNextPayoutBlocks,
	"maxPayout":               handleMaxPayout,
	"premiumDivisor":          handlePremiumDivisor,
	"payoutDivisor":           handlePayoutDivisor,
}

// Contract dispatches calls to a ledger.
type Contract struct {
	ledger *insurance.Ledger
}

func New(ledger *insurance.Ledger) *Contract {
	return &Contract{ledger: ledger}
}

// Ledger returns the ledger behind the call surface.
func (c *Contract) Ledger() *insurance.Ledger { return c.ledger }

// Call executes one invocation.
func (c *Contract) Call(call Call) (*Result, error) {
	if call.Value == nil {
		call.Value = new(big.Int)
	}
	if call.Value.Sign() < 0 {
		return nil, vm.ErrExecutionReverted
	}

	if len(call.Input) == 0 {
		logs, err := c.payPremium(&call)
		if err != nil {
			return nil, err
		}
		return &Result{Method: "fallback", Logs: logs}, nil
	}
	if len(call.Input) < 4 {
		return nil, vm.ErrExecutionReverted
	}
	method, err := contractABI.MethodById(call.Input[:4])
	if err != nil {
		return nil, vm.ErrExecutionReverted
	}
	h, ok := handlers[method.Name]
	if !ok {
		return nil, vm.ErrExecutionReverted
	}
	if call.Value.Sign() > 0 && !method.IsPayable() {
		return nil, vm.ErrExecutionReverted
	}
	args, err := method.Inputs.Unpack(call.Input[4:])
	if err != nil {
		return nil, vm.ErrExecutionReverted
	}

	outs, logs, err := h(c, &call, args)
	if err != nil {
		return nil, err
	}
	ret, err := method.Outputs.Pack(outs...)
	if err != nil {
		return nil, fmt.Errorf("pack %s outputs: %w", method.Name, err)
	}
	return &Result{Method: method.Name, Return: ret, Logs: logs}, nil
}

func (c *Contract) payPremium(call *Call) ([]*types.Log, error) {
	ev, err := c.ledger.PayPremium(call.Caller, call.Value)
	if err != nil {
		return nil, err
	}
	log, err := PremiumLog(ev)
	if err != nil {
		return nil, err
	}
	return []*types.Log{log}, nil
}

// Pack encodes a call to the named method.
func Pack(method string, args ...interface{}) ([]byte, error) {
	if _, ok := contractABI.Methods[method]; !ok {
		return nil, fmt.Errorf("unknown method %q", method)
	}
	return contractABI.Pack(method, args...)
}

// Unpack decodes the return data of the named method.
func Unpack(method string, ret []byte) ([]interface{}, error) {
	m, ok := contractABI.Methods[method]
	if !ok {
		return nil, fmt.Errorf("unknown method %q", method)
	}
	return m.Outputs.Unpack(ret)
}

// PremiumLog encodes a premium event as an Ethereum log.
func PremiumLog(ev *insurance.PremiumPaid) (*types.Log, error) {
	event := contractABI.Events[PremiumEventName]
	data, err := event.Inputs.NonIndexed().Pack(ev.Member, ev.Value)
	if err != nil {
		return nil, fmt.Errorf("pack premium log: %w", err)
	}
	return &types.Log{
		Address:     ContractAddress,
		Topics:      []common.Hash{event.ID},
		Data:        data,
		BlockNumber: uint64(ev.Block),
	}, nil
}

// ErrNotPremiumLog is returned by ParsePremiumLog for foreign logs.
var ErrNotPremiumLog = errors.New("not a premium log")

// ParsePremiumLog decodes a log produced by PremiumLog.
func ParsePremiumLog(log *types.Log) (*insurance.PremiumPaid, error) {
	if log.Address != ContractAddress || len(log.Topics) == 0 || log.Topics[0] != PremiumEventID {
		return nil, ErrNotPremiumLog
	}
	values, err := contractABI.Events[PremiumEventName].Inputs.NonIndexed().Unpack(log.Data)
	if err != nil {
		return nil, fmt.Errorf("unpack premium log: %w", err)
	}
	member, ok := values[0].(common.Address)
	if !ok {
		return nil, ErrNotPremiumLog
	}
	value, ok := values[1].(*big.Int)
	if !ok {
		return nil, ErrNotPremiumLog
	}
	return &insurance.PremiumPaid{Member: member, Value: value, Block: idxBlock(log.BlockNumber)}, nil
}

// argument accessors; Unpack already checked the types against the ABI.

func argAddress(args []interface{}, i int) common.Address { return args[i].(common.Address) }
func argBig(args []interface{}, i int) *big.Int          { return args[i].(*big.Int) }
func argString(args []interface{}, i int) string         { return args[i].(string) }
