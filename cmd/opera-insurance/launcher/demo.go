package launcher

import (
	"errors"
	"fmt"
	"io"
	"math/big"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/params"
	"gopkg.in/urfave/cli.v1"

	"github.com/rony4d/go-opera-insurance/evmcore"
	"github.com/rony4d/go-opera-insurance/insurance"
	"github.com/rony4d/go-opera-insurance/integration"
	"github.com/rony4d/go-opera-insurance/opera"
	"github.com/rony4d/go-opera-insurance/opera/contracts/socialinsurance"
)

// demo accounts: #0 owns the ledger, #1..#4 lead one branch from the root
// down to a local group, #5 is the member.
const (
	demoRoot = iota + 1
	demoRegion
	demoDistrict
	demoVillage
	demoMember
)

func runDemo(ctx *cli.Context) error {
	cfg, err := MakeAllConfigs(ctx)
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg.Node.Logging, os.Stderr)
	if err != nil {
		return err
	}
	engine, err := integration.MakeEngine(integration.Config{
		Preset:  integration.MemoryPreset(),
		Genesis: evmcore.FakeGenesis(demoMember+1, opera.FakeNetRules()),
		Logger:  logger,
	})
	if err != nil {
		return err
	}
	defer engine.Close()

	return demoScenario(ctx.App.Writer, engine.Chain)
}

type demoRunner struct {
	w     io.Writer
	chain *evmcore.Chain
}

func (d *demoRunner) call(from int, value *big.Int, method string, args ...interface{}) (*evmcore.Receipt, error) {
	var input []byte
	if method != "" {
		var err error
		if input, err = socialinsurance.Pack(method, args...); err != nil {
			return nil, err
		}
	}
	r, err := d.chain.Call(evmcore.FakeAccount(from), value, input)
	if method == "" {
		method = "premium"
	}
	if err != nil {
		fmt.Fprintf(d.w, "#%d %-16s rejected: %v\n", from, method, err)
	} else {
		fmt.Fprintf(d.w, "#%d %-16s ok\n", from, method)
	}
	return r, err
}

func (d *demoRunner) must(from int, value *big.Int, method string, args ...interface{}) error {
	_, err := d.call(from, value, method, args...)
	return err
}

func demoScenario(w io.Writer, chain *evmcore.Chain) error {
	d := &demoRunner{w: w, chain: chain}
	acc := evmcore.FakeAccount

	steps := []struct {
		from   int
		method string
		args   []interface{}
	}{
		{0, "createTopGroup", []interface{}{acc(demoRoot), "Root", "Ruth", "ruth@example.org"}},
		{demoRoot, "createGroup", []interface{}{acc(demoRegion), "Region", "Abe", "abe@example.org"}},
		{demoRegion, "createGroup", []interface{}{acc(demoDistrict), "District", "Bea", "bea@example.org"}},
		{demoDistrict, "createGroup", []interface{}{acc(demoVillage), "Village", "Cal", "cal@example.org"}},
		{demoVillage, "admitMember", []interface{}{acc(demoMember)}},
	}
	for _, s := range steps {
		if err := d.must(s.from, nil, s.method, s.args...); err != nil {
			return err
		}
	}

	premium := big.NewInt(params.Ether)
	r, err := d.call(demoMember, premium, "")
	if err != nil {
		return err
	}
	if len(r.Logs) != 1 {
		return fmt.Errorf("premium produced %d logs", len(r.Logs))
	}
	ev, err := socialinsurance.ParsePremiumLog(r.Logs[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "log: %s paid %s\n", ev.Member.Hex(), ev.Value)

	village, _, err := chain.Ledger().Groups(acc(demoVillage))
	if err != nil {
		return err
	}
	if village.Balance.Cmp(premium) != 0 {
		return fmt.Errorf("village balance %s, want %s", village.Balance, premium)
	}
	fmt.Fprintf(w, "village balance %s\n", village.Balance)

	if err := expectKind(d, demoVillage, "admitMember", acc(demoMember), insurance.ErrDuplicate); err != nil {
		return err
	}
	if err := expectKind(d, demoDistrict, "admitMember", common.HexToAddress("0x5ee"), insurance.ErrCapacity); err != nil {
		return err
	}

	block, err := chain.Seal()
	if err != nil {
		return err
	}
	stats, err := chain.Ledger().Verify()
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "sealed block %d with %d calls, %d groups, %d members, pool %s\n",
		block.NumberU64(), len(block.Calls), stats.Groups, stats.Members, chain.Balance(socialinsurance.ContractAddress))
	return nil
}

func expectKind(d *demoRunner, from int, method string, arg common.Address, kind error) error {
	_, err := d.call(from, nil, method, arg)
	if !errors.Is(err, kind) {
		return fmt.Errorf("%s by #%d: got %v, want %v", method, from, err, kind)
	}
	return nil
}
