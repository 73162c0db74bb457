package launcher

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"
	"unicode"

	"github.com/naoina/toml"
	"gopkg.in/urfave/cli.v1"

	"github.com/rony4d/go-opera-insurance/evmcore"
	"github.com/rony4d/go-opera-insurance/integration"
	"github.com/rony4d/go-opera-insurance/opera"
	"github.com/rony4d/go-opera-insurance/opera/genesis"
)

// noBookkeeping disables the premium journal when used as its path.
const noBookkeeping = "none"

// Config aggregates every subsystem's configuration the launcher needs.
type Config struct {
	Node        NodeConfig
	Ledger      LedgerConfig
	Bookkeeping BookkeepingConfig
}

type NodeConfig struct {
	DataDir string
	Name    string
	Logging LoggingConfig
}

type LoggingConfig struct {
	Verbosity int
	Format    string
	Color     bool
	SentryDSN string `toml:",omitempty"`
}

type LedgerConfig struct {
	Network     string
	FakeNet     int
	Genesis     string `toml:",omitempty"`
	BlockPeriod time.Duration

	Preset     string
	CacheMB    int // zero keeps the preset value
	Handles    int
	GroupCache int
}

type BookkeepingConfig struct {
	Path string // empty selects <datadir>/bookkeeping.db
}

// These settings ensure that TOML keys use the same names as Go struct fields.
var tomlSettings = toml.Config{
	NormFieldName: func(rt reflect.Type, key string) string {
		return key
	},
	FieldToKey: func(rt reflect.Type, field string) string {
		return field
	},
	MissingField: func(rt reflect.Type, field string) error {
		var link string
		if unicode.IsUpper(rune(rt.Name()[0])) && rt.PkgPath() != "main" {
			link = fmt.Sprintf(", see https://godoc.org/%s#%s for available fields", rt.PkgPath(), rt.Name())
		}
		return fmt.Errorf("field '%s' is not defined in %s%s", field, rt.String(), link)
	},
}

func defaultConfig() Config {
	d := DefaultConfig()
	return Config{
		Node: NodeConfig{
			DataDir: resolvePath(d.Node.DataDir),
			Name:    d.Node.Name,
			Logging: LoggingConfig{
				Verbosity: d.Logging.Verbosity,
				Format:    d.Logging.Format,
				Color:     d.Logging.Color,
			},
		},
		Ledger: LedgerConfig{
			Network:     d.Ledger.Network,
			FakeNet:     d.Ledger.FakeNet,
			BlockPeriod: d.Ledger.BlockPeriod,
			Preset:      d.Storage.Preset,
		},
	}
}

// MakeAllConfigs merges defaults, the optional config file and CLI
// overrides into a single config struct.
func MakeAllConfigs(ctx *cli.Context) (Config, error) {
	cfg := defaultConfig()

	if file := ctx.GlobalString("config"); file != "" {
		if err := loadConfigFile(file, &cfg); err != nil {
			return cfg, err
		}
	}

	applyCLIOverrides(ctx, &cfg)

	if _, err := cfg.PresetConfig(); err != nil {
		return cfg, err
	}
	if _, ok := opera.RulesByName(cfg.Ledger.Network); !ok {
		return cfg, fmt.Errorf("unknown network %q", cfg.Ledger.Network)
	}
	return cfg, nil
}

func loadConfigFile(file string, cfg *Config) error {
	f, err := os.Open(file)
	if err != nil {
		return err
	}
	defer f.Close()

	err = tomlSettings.NewDecoder(bufio.NewReader(f)).Decode(cfg)
	// Add file name to errors that have a line number.
	if _, ok := err.(*toml.LineError); ok {
		err = errors.New(file + ", " + err.Error())
	}
	return err
}

func applyCLIOverrides(ctx *cli.Context, cfg *Config) {
	if ctx.GlobalIsSet("datadir") {
		cfg.Node.DataDir = resolvePath(ctx.GlobalString("datadir"))
	}
	if ctx.GlobalIsSet("identity") {
		cfg.Node.Name = ctx.GlobalString("identity")
	}

	if ctx.GlobalIsSet("log.format") {
		cfg.Node.Logging.Format = ctx.GlobalString("log.format")
	}
	if ctx.GlobalIsSet("log.verbosity") {
		cfg.Node.Logging.Verbosity = ctx.GlobalInt("log.verbosity")
	}
	if ctx.GlobalIsSet("log.color") {
		cfg.Node.Logging.Color = ctx.GlobalBool("log.color")
	}
	if ctx.GlobalIsSet("sentry.dsn") {
		cfg.Node.Logging.SentryDSN = ctx.GlobalString("sentry.dsn")
	}

	if ctx.GlobalIsSet("network") {
		cfg.Ledger.Network = ctx.GlobalString("network")
	}
	if ctx.GlobalIsSet("fakenet") {
		cfg.Ledger.Network = "fakenet"
		cfg.Ledger.FakeNet = ctx.GlobalInt("fakenet")
	}
	if ctx.GlobalIsSet("genesis") {
		cfg.Ledger.Genesis = resolvePath(ctx.GlobalString("genesis"))
	}
	if ctx.GlobalIsSet("blockperiod") {
		cfg.Ledger.BlockPeriod = ctx.GlobalDuration("blockperiod")
	}

	if ctx.GlobalIsSet("preset") {
		cfg.Ledger.Preset = ctx.GlobalString("preset")
	}
	if ctx.GlobalIsSet("cache") {
		cfg.Ledger.CacheMB = ctx.GlobalInt("cache")
	}
	if ctx.GlobalIsSet("handles") {
		cfg.Ledger.Handles = ctx.GlobalInt("handles")
	}
	if ctx.GlobalIsSet("groupcache") {
		cfg.Ledger.GroupCache = ctx.GlobalInt("groupcache")
	}

	if ctx.GlobalIsSet("bookkeeping.db") {
		path := ctx.GlobalString("bookkeeping.db")
		if path != noBookkeeping {
			path = resolvePath(path)
		}
		cfg.Bookkeeping.Path = path
	}
}

// PresetConfig resolves the named storage preset with the explicit cache
// settings layered on top.
func (c *Config) PresetConfig() (integration.PresetConfig, error) {
	preset, err := integration.GetPresetByName(c.Ledger.Preset)
	if err != nil {
		return preset, err
	}
	integration.ApplyPreset(&preset, integration.PresetConfig{
		CacheMB:    c.Ledger.CacheMB,
		Handles:    c.Ledger.Handles,
		GroupCache: c.Ledger.GroupCache,
	})
	return preset, nil
}

// Genesis returns the genesis a fresh datadir is initialized with: the
// --genesis file if given, a fakenet genesis otherwise.
func (c *Config) Genesis() (*genesis.Genesis, error) {
	if c.Ledger.Genesis != "" {
		return genesis.LoadFile(c.Ledger.Genesis)
	}
	rules, ok := opera.RulesByName(c.Ledger.Network)
	if !ok {
		return nil, fmt.Errorf("unknown network %q", c.Ledger.Network)
	}
	if rules.Name != opera.FakeNetRules().Name {
		return nil, fmt.Errorf("network %q needs a --genesis file", c.Ledger.Network)
	}
	if c.Ledger.FakeNet <= 0 {
		return nil, fmt.Errorf("fakenet needs at least one account, got %d", c.Ledger.FakeNet)
	}
	return evmcore.FakeGenesis(c.Ledger.FakeNet, rules), nil
}

// BlockPeriod is the configured period, or the one of the network rules.
func (c *Config) BlockPeriod() time.Duration {
	if c.Ledger.BlockPeriod > 0 {
		return c.Ledger.BlockPeriod
	}
	rules, _ := opera.RulesByName(c.Ledger.Network)
	return rules.Blocks.BlockPeriod
}

// BookkeepingPath returns the journal file, or "" when disabled.
func (c *Config) BookkeepingPath() string {
	switch c.Bookkeeping.Path {
	case noBookkeeping:
		return ""
	case "":
		return filepath.Join(c.Node.DataDir, DefaultConfig().Bookkeeping.File)
	}
	return c.Bookkeeping.Path
}

func ensureDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create datadir %s: %w", dir, err)
	}
	return nil
}

func resolvePath(p string) string {
	if strings.HasPrefix(p, "~") {
		return filepath.Join(GuessHomeDir(), strings.TrimPrefix(p, "~"))
	}
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(GuessWorkDir(), p)
}

func GuessWorkDir() string {
	if wd, err := os.Getwd(); err == nil {
		return wd
	}
	return "."
}

func GuessHomeDir() string {
	if dir, err := os.UserHomeDir(); err == nil {
		return dir
	}
	return "."
}
