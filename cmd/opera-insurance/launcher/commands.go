package launcher

import (
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"strconv"
	"strings"

	"github.com/Fantom-foundation/lachesis-base/inter/idx"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"gopkg.in/urfave/cli.v1"

	"github.com/rony4d/go-opera-insurance/evmcore"
	"github.com/rony4d/go-opera-insurance/flags"
	"github.com/rony4d/go-opera-insurance/opera/contracts/socialinsurance"
)

var (
	initCommand = cli.Command{
		Action:    initGenesis,
		Name:      "init",
		Usage:     "Initialize the datadir from the fakenet or a genesis file",
		ArgsUsage: " ",
		Description: `
The init command writes the genesis balances and the ledger constants into
an empty datadir. Running it again with the same genesis is a no-op.`,
	}
	callCommand = cli.Command{
		Action:    callLedger,
		Name:      "call",
		Usage:     "Call a ledger method and seal the block",
		ArgsUsage: "[<method> [args...]]",
		Flags:     flags.CallFlags(),
		Description: `
Arguments are parsed by the method's ABI types: addresses as 0x-hex or #n for
fake account n, integers as decimal or 0x-hex. Without a method the call pays
a premium of --value.

A #n sender signs the call with fake key n. A hex --from is taken as already
authenticated and runs unsigned, so any address can be impersonated. Use it
on development datadirs only.`,
	}
	advanceCommand = cli.Command{
		Action:    advanceClock,
		Name:      "advance",
		Usage:     "Seal empty blocks to move the ledger clock",
		ArgsUsage: " ",
		Flags:     flags.AdvanceFlags(),
	}
	inspectCommand = cli.Command{
		Name:  "inspect",
		Usage: "Read ledger state",
		Subcommands: []cli.Command{
			{
				Action:    inspectGroup,
				Name:      "group",
				Usage:     "Show a group and its members or children",
				ArgsUsage: "<spokesperson>",
			},
			{
				Action:    inspectMember,
				Name:      "member",
				Usage:     "Show a membership",
				ArgsUsage: "<member>",
			},
			{
				Action:    inspectTree,
				Name:      "tree",
				Usage:     "Verify the tree and print totals",
				ArgsUsage: " ",
			},
			{
				Action:    inspectBlock,
				Name:      "block",
				Usage:     "Show a sealed block header in go-ethereum JSON form",
				ArgsUsage: "[<number>]",
			},
			{
				Action:    inspectPremiums,
				Name:      "premiums",
				Usage:     "List journaled premiums of a member",
				ArgsUsage: "<member>",
			},
		},
	}
	demoCommand = cli.Command{
		Action: runDemo,
		Name:   "demo",
		Usage:  "Build a branch, admit a member and pay a premium in memory",
	}
	dumpConfigCommand = cli.Command{
		Action:      dumpConfig,
		Name:        "dumpconfig",
		Usage:       "Show configuration values",
		ArgsUsage:   " ",
		Description: `The dumpconfig command shows configuration values.`,
	}
)

func initGenesis(ctx *cli.Context) error {
	env, err := openEnvironment(ctx, true)
	if err != nil {
		return err
	}
	defer env.Close()

	head := env.engine.Chain.Head()
	owner, err := env.engine.Chain.Ledger().Owner()
	if err != nil {
		return err
	}
	w := ctx.App.Writer
	fmt.Fprintf(w, "datadir %s\n", env.cfg.Node.DataDir)
	fmt.Fprintf(w, "head    %d %s\n", head.NumberU64(), head.Hash.Hex())
	fmt.Fprintf(w, "owner   %s\n", owner.Hex())
	return nil
}

func callLedger(ctx *cli.Context) error {
	if !ctx.IsSet("from") {
		return errors.New("--from is required")
	}
	from, key, err := parseAccount(ctx.String("from"))
	if err != nil {
		return err
	}
	value, ok := math.ParseBig256(ctx.String("value"))
	if !ok {
		return fmt.Errorf("invalid --value %q", ctx.String("value"))
	}

	var (
		method *abi.Method
		input  []byte
	)
	if name := ctx.Args().First(); name != "" {
		m, ok := socialinsurance.ABI().Methods[name]
		if !ok {
			return fmt.Errorf("unknown method %q", name)
		}
		args, err := parseArgs(m, ctx.Args().Tail())
		if err != nil {
			return err
		}
		if input, err = socialinsurance.Pack(name, args...); err != nil {
			return err
		}
		method = &m
	}

	env, err := openEnvironment(ctx, false)
	if err != nil {
		return err
	}
	defer env.Close()
	chain := env.engine.Chain

	var (
		r       *evmcore.Receipt
		callErr error
	)
	if key != nil {
		tx, err := types.SignTx(evmcore.NewCall(chain.Nonce(from), value, input), chain.Signer(), key)
		if err != nil {
			return err
		}
		r, callErr = chain.ApplyTransaction(tx)
	} else {
		r, callErr = chain.Call(from, value, input)
	}
	if r == nil {
		return callErr
	}

	w := ctx.App.Writer
	if method == nil || !method.IsConstant() {
		block, err := chain.Seal()
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "block   %d %s\n", block.NumberU64(), block.Hash.Hex())
	}
	if err := printReceipt(w, r, method); err != nil {
		return err
	}
	if callErr != nil {
		return fmt.Errorf("call rejected with code %d: %w", r.Code, callErr)
	}
	return nil
}

func advanceClock(ctx *cli.Context) error {
	env, err := openEnvironment(ctx, false)
	if err != nil {
		return err
	}
	defer env.Close()

	head, err := env.engine.Chain.Advance(idx.Block(ctx.Uint64("blocks")))
	if err != nil {
		return err
	}
	fmt.Fprintf(ctx.App.Writer, "head    %d %s\n", head.NumberU64(), head.Hash.Hex())
	fmt.Fprintf(ctx.App.Writer, "clock   %d\n", env.engine.Chain.Now())
	return nil
}

func inspectGroup(ctx *cli.Context) error {
	addr, err := argAccount(ctx)
	if err != nil {
		return err
	}
	env, err := openEnvironment(ctx, false)
	if err != nil {
		return err
	}
	defer env.Close()
	ledger := env.engine.Chain.Ledger()

	g, ok, err := ledger.Groups(addr)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%s leads no group", addr.Hex())
	}
	w := ctx.App.Writer
	fmt.Fprintf(w, "group        %s (%s)\n", addr.Hex(), g.Name)
	fmt.Fprintf(w, "spokesperson %s <%s>\n", g.SpokespersonName, g.SpokespersonContact)
	fmt.Fprintf(w, "parent       %s\n", g.Parent.Hex())
	fmt.Fprintf(w, "level        %d\n", g.Level)
	fmt.Fprintf(w, "balance      %s\n", g.Balance)
	fmt.Fprintf(w, "payouts      %s\n", g.Payouts)
	if g.HasPaidOut {
		fmt.Fprintf(w, "last payout  %d\n", g.LastPayoutAt)
	}
	for i := uint64(0); i < uint64(g.ChildCount); i++ {
		child, err := ledger.GroupChild(addr, i)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "child %-6d %s\n", i, child.Hex())
	}
	for i := uint64(0); i < uint64(g.MemberCount); i++ {
		member, err := ledger.GroupMember(addr, i)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "member %-5d %s\n", i, member.Hex())
	}
	return nil
}

func inspectMember(ctx *cli.Context) error {
	addr, err := argAccount(ctx)
	if err != nil {
		return err
	}
	env, err := openEnvironment(ctx, false)
	if err != nil {
		return err
	}
	defer env.Close()

	m, ok, err := env.engine.Chain.Ledger().Members(addr)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%s is not a member", addr.Hex())
	}
	w := ctx.App.Writer
	fmt.Fprintf(w, "member    %s\n", addr.Hex())
	fmt.Fprintf(w, "group     %s\n", m.Group.Hex())
	fmt.Fprintf(w, "joined    %d\n", m.JoinedAt)
	fmt.Fprintf(w, "premiums  %s\n", m.Balance)
	fmt.Fprintf(w, "payouts   %s\n", m.Payouts)
	fmt.Fprintf(w, "account   %s\n", env.engine.Chain.Balance(addr))
	return nil
}

func inspectTree(ctx *cli.Context) error {
	env, err := openEnvironment(ctx, false)
	if err != nil {
		return err
	}
	defer env.Close()

	stats, err := env.engine.Chain.Ledger().Verify()
	if err != nil {
		return err
	}
	w := ctx.App.Writer
	fmt.Fprintf(w, "groups   %d\n", stats.Groups)
	fmt.Fprintf(w, "members  %d\n", stats.Members)
	fmt.Fprintf(w, "balance  %s\n", stats.TotalBalance)
	fmt.Fprintf(w, "pool     %s\n", env.engine.Chain.Balance(socialinsurance.ContractAddress))
	return nil
}

func inspectBlock(ctx *cli.Context) error {
	env, err := openEnvironment(ctx, false)
	if err != nil {
		return err
	}
	defer env.Close()
	chain := env.engine.Chain

	head := chain.Head()
	if ctx.NArg() > 0 {
		n, err := strconv.ParseUint(ctx.Args().First(), 0, 64)
		if err != nil {
			return fmt.Errorf("invalid block number %q", ctx.Args().First())
		}
		if head, err = chain.Header(n); err != nil {
			return err
		}
	}
	out, err := json.MarshalIndent(head.EthHeader(), "", "  ")
	if err != nil {
		return err
	}
	w := ctx.App.Writer
	fmt.Fprintf(w, "block   %d %s\n", head.NumberU64(), head.Hash.Hex())
	fmt.Fprintf(w, "logs    %d\n", head.LogCount)
	fmt.Fprintf(w, "%s\n", out)
	return nil
}

func inspectPremiums(ctx *cli.Context) error {
	addr, err := argAccount(ctx)
	if err != nil {
		return err
	}
	env, err := openEnvironment(ctx, false)
	if err != nil {
		return err
	}
	defer env.Close()
	if env.engine.Journal == nil {
		return errors.New("bookkeeping journal is disabled")
	}

	recs, err := env.engine.Journal.Premiums(context.Background(), addr)
	if err != nil {
		return err
	}
	w := ctx.App.Writer
	total := new(big.Int)
	for _, r := range recs {
		fmt.Fprintf(w, "%s block %-8d %s\n", r.ID, r.Block, r.Value)
		total.Add(total, r.Value)
	}
	fmt.Fprintf(w, "total %s in %d payments\n", total, len(recs))
	return nil
}

func dumpConfig(ctx *cli.Context) error {
	cfg, err := MakeAllConfigs(ctx)
	if err != nil {
		return err
	}
	out, err := tomlSettings.Marshal(&cfg)
	if err != nil {
		return err
	}
	_, err = ctx.App.Writer.Write(out)
	return err
}

func printReceipt(w io.Writer, r *evmcore.Receipt, method *abi.Method) error {
	fmt.Fprintf(w, "tx      %s\n", r.TxHash.Hex())
	fmt.Fprintf(w, "from    %s\n", r.From.Hex())
	fmt.Fprintf(w, "status  %d (code %d)\n", r.Status, r.Code)
	if r.Err != nil {
		fmt.Fprintf(w, "error   %v\n", r.Err)
		return nil
	}
	if method != nil && len(method.Outputs) > 0 {
		outs, err := socialinsurance.Unpack(method.Name, r.Return)
		if err != nil {
			return err
		}
		for i, out := range outs {
			name := method.Outputs[i].Name
			if name == "" {
				name = strconv.Itoa(i)
			}
			fmt.Fprintf(w, "  %-20s %v\n", name, out)
		}
	}
	for _, l := range r.Logs {
		ev, err := socialinsurance.ParsePremiumLog(l)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "log     %s paid %s at block %d\n", ev.Member.Hex(), ev.Value, ev.Block)
	}
	return nil
}

// parseAccount accepts a hex address or #n for fake account n. Only fake
// accounts come with a key.
func parseAccount(s string) (common.Address, *ecdsa.PrivateKey, error) {
	if strings.HasPrefix(s, "#") {
		n, err := strconv.Atoi(s[1:])
		if err != nil || n < 0 {
			return common.Address{}, nil, fmt.Errorf("invalid fake account %q", s)
		}
		key := evmcore.FakeKey(n)
		return crypto.PubkeyToAddress(key.PublicKey), key, nil
	}
	if !common.IsHexAddress(s) {
		return common.Address{}, nil, fmt.Errorf("invalid address %q", s)
	}
	return common.HexToAddress(s), nil, nil
}

func argAccount(ctx *cli.Context) (common.Address, error) {
	if ctx.NArg() != 1 {
		return common.Address{}, fmt.Errorf("expected one address argument, got %d", ctx.NArg())
	}
	addr, _, err := parseAccount(ctx.Args().First())
	return addr, err
}

func parseArgs(method abi.Method, raw []string) ([]interface{}, error) {
	if len(raw) != len(method.Inputs) {
		return nil, fmt.Errorf("%s takes %d arguments, got %d", method.Name, len(method.Inputs), len(raw))
	}
	args := make([]interface{}, len(raw))
	for i, in := range method.Inputs {
		v, err := parseArg(in.Type, raw[i])
		if err != nil {
			return nil, fmt.Errorf("%s argument %d: %w", method.Name, i, err)
		}
		args[i] = v
	}
	return args, nil
}

func parseArg(t abi.Type, s string) (interface{}, error) {
	switch t.T {
	case abi.AddressTy:
		addr, _, err := parseAccount(s)
		return addr, err
	case abi.StringTy:
		return s, nil
	case abi.BoolTy:
		b, err := strconv.ParseBool(s)
		return b, err
	case abi.UintTy:
		switch t.Size {
		case 8:
			v, err := strconv.ParseUint(s, 0, 8)
			return uint8(v), err
		case 64:
			v, err := strconv.ParseUint(s, 0, 64)
			return v, err
		}
		v, ok := math.ParseBig256(s)
		if !ok {
			return nil, fmt.Errorf("invalid integer %q", s)
		}
		return v, nil
	}
	return nil, fmt.Errorf("unsupported type %s", t)
}
