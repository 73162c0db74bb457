package genesis

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"math/big"
	"path/filepath"
	"strings"

	"github.com/Fantom-foundation/lachesis-base/inter/idx"
	"github.com/ethereum/go-ethereum/common"
	gmath "github.com/ethereum/go-ethereum/common/math"
	"gopkg.in/yaml.v3"

	"github.com/rony4d/go-opera-insurance/opera"
)

// File is the on-disk genesis format. Amounts are strings holding a decimal
// or 0x-prefixed hex integer so they survive YAML and JSON without losing
// precision. Omitted ledger and economy fields keep the preset values of
// the named network.
type File struct {
	Network string            `yaml:"network" json:"network"`
	Owner   string            `yaml:"owner" json:"owner"`
	Time    uint64            `yaml:"time" json:"time"`
	Ledger  *LedgerFile       `yaml:"ledger,omitempty" json:"ledger,omitempty"`
	Economy *EconomyFile      `yaml:"economy,omitempty" json:"economy,omitempty"`
	Alloc   map[string]string `yaml:"alloc,omitempty" json:"alloc,omitempty"`
}

type LedgerFile struct {
	MaxLevel             *uint8  `yaml:"maxLevel,omitempty" json:"maxLevel,omitempty"`
	MaxMembers           *uint8  `yaml:"maxMembers,omitempty" json:"maxMembers,omitempty"`
	WaitBlocks           *uint64 `yaml:"waitBlocks,omitempty" json:"waitBlocks,omitempty"`
	WaitNextPayoutBlocks *uint64 `yaml:"waitNextPayoutBlocks,omitempty" json:"waitNextPayoutBlocks,omitempty"`
}

type EconomyFile struct {
	MaxPayout      string `yaml:"maxPayout,omitempty" json:"maxPayout,omitempty"`
	PremiumDivisor string `yaml:"premiumDivisor,omitempty" json:"premiumDivisor,omitempty"`
	PayoutDivisor  string `yaml:"payoutDivisor,omitempty" json:"payoutDivisor,omitempty"`
}

// LoadFile reads a genesis from path. Files ending in .json are decoded as
// JSON, anything else as YAML. Unknown fields are rejected.
func LoadFile(path string) (*Genesis, error) {
	raw, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f File
	if strings.EqualFold(filepath.Ext(path), ".json") {
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.DisallowUnknownFields()
		err = dec.Decode(&f)
	} else {
		dec := yaml.NewDecoder(bytes.NewReader(raw))
		dec.KnownFields(true)
		err = dec.Decode(&f)
	}
	if err != nil {
		return nil, fmt.Errorf("decode genesis %s: %w", path, err)
	}
	g, err := f.Genesis()
	if err != nil {
		return nil, fmt.Errorf("genesis %s: %w", path, err)
	}
	return g, nil
}

// Genesis converts the file form into a validated Genesis.
func (f *File) Genesis() (*Genesis, error) {
	network := f.Network
	if network == "" {
		network = "fake"
	}
	rules, ok := opera.RulesByName(network)
	if !ok {
		return nil, fmt.Errorf("unknown network %q", f.Network)
	}
	if f.Ledger != nil {
		if f.Ledger.MaxLevel != nil {
			rules.Ledger.MaxLevel = *f.Ledger.MaxLevel
		}
		if f.Ledger.MaxMembers != nil {
			rules.Ledger.MaxMembers = *f.Ledger.MaxMembers
		}
		if f.Ledger.WaitBlocks != nil {
			rules.Ledger.WaitBlocks = idx.Block(*f.Ledger.WaitBlocks)
		}
		if f.Ledger.WaitNextPayoutBlocks != nil {
			rules.Ledger.WaitNextPayoutBlocks = idx.Block(*f.Ledger.WaitNextPayoutBlocks)
		}
	}
	if f.Economy != nil {
		for _, field := range []struct {
			name string
			raw  string
			dst  **big.Int
		}{
			{"maxPayout", f.Economy.MaxPayout, &rules.Economy.MaxPayout},
			{"premiumDivisor", f.Economy.PremiumDivisor, &rules.Economy.PremiumDivisor},
			{"payoutDivisor", f.Economy.PayoutDivisor, &rules.Economy.PayoutDivisor},
		} {
			if field.raw == "" {
				continue
			}
			v, err := parseAmount(field.raw)
			if err != nil {
				return nil, fmt.Errorf("economy.%s: %w", field.name, err)
			}
			*field.dst = v
		}
	}

	if !common.IsHexAddress(f.Owner) {
		return nil, fmt.Errorf("owner %q is not an address", f.Owner)
	}
	g := &Genesis{
		Rules: rules,
		Owner: common.HexToAddress(f.Owner),
		Alloc: make(map[common.Address]*big.Int, len(f.Alloc)),
		Time:  f.Time,
	}
	for addr, amount := range f.Alloc {
		if !common.IsHexAddress(addr) {
			return nil, fmt.Errorf("alloc key %q is not an address", addr)
		}
		v, err := parseAmount(amount)
		if err != nil {
			return nil, fmt.Errorf("alloc %s: %w", addr, err)
		}
		g.Alloc[common.HexToAddress(addr)] = v
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}
	return g, nil
}

func parseAmount(s string) (*big.Int, error) {
	v, ok := gmath.ParseBig256(strings.TrimSpace(s))
	if !ok {
		return nil, fmt.Errorf("invalid amount %q", s)
	}
	return v, nil
}
