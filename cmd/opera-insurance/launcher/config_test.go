package launcher_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gopkg.in/urfave/cli.v1"

	"github.com/rony4d/go-opera-insurance/cmd/opera-insurance/launcher"
	"github.com/rony4d/go-opera-insurance/evmcore"
	"github.com/rony4d/go-opera-insurance/flags"
)

// runConfigFromArgs runs MakeAllConfigs inside a synthetic CLI app carrying
// the launcher's global flags.
func runConfigFromArgs(t *testing.T, args []string) (launcher.Config, error) {
	t.Helper()

	app := cli.NewApp()
	app.HideHelp = true
	app.HideVersion = true

	app.Flags = append(app.Flags, flags.CommonFlags()...)
	app.Flags = append(app.Flags, flags.LedgerFlags()...)
	app.Flags = append(app.Flags, flags.NodeFlags()...)

	var (
		got    launcher.Config
		cfgErr error
	)
	app.Action = func(c *cli.Context) error {
		got, cfgErr = launcher.MakeAllConfigs(c)
		return nil
	}

	if err := app.Run(append([]string{"opera-insurance"}, args...)); err != nil {
		t.Fatalf("app.Run failed: %v", err)
	}
	return got, cfgErr
}

func mustConfig(t *testing.T, args ...string) launcher.Config {
	t.Helper()
	cfg, err := runConfigFromArgs(t, args)
	if err != nil {
		t.Fatalf("MakeAllConfigs(%v) failed: %v", args, err)
	}
	return cfg
}

func TestMakeAllConfigs_defaults(t *testing.T) {
	cfg := mustConfig(t)

	wantDir := filepath.Join(launcher.GuessHomeDir(), ".opera-insurance")
	if cfg.Node.DataDir != wantDir {
		t.Fatalf("DataDir = %q, want %q", cfg.Node.DataDir, wantDir)
	}
	if cfg.Node.Name != "opera-insurance" {
		t.Fatalf("Name = %q, want opera-insurance", cfg.Node.Name)
	}
	if cfg.Ledger.Network != "fakenet" || cfg.Ledger.FakeNet != 10 {
		t.Fatalf("network = %q/%d, want fakenet/10", cfg.Ledger.Network, cfg.Ledger.FakeNet)
	}
	if cfg.Ledger.Preset != "default" {
		t.Fatalf("Preset = %q, want default", cfg.Ledger.Preset)
	}
	if cfg.Node.Logging.Verbosity != 3 || cfg.Node.Logging.Format != "text" {
		t.Fatalf("logging = %+v, want verbosity 3 text", cfg.Node.Logging)
	}
	if got, want := cfg.BookkeepingPath(), filepath.Join(wantDir, "bookkeeping.db"); got != want {
		t.Fatalf("BookkeepingPath = %q, want %q", got, want)
	}
}

// TestMakeAllConfigs_flagOverrides feeds representative flag combinations
// through the CLI and checks the fields each one should change.
func TestMakeAllConfigs_flagOverrides(t *testing.T) {
	tmp := t.TempDir()

	tests := []struct {
		name string
		args []string
		want func(t *testing.T, cfg launcher.Config)
	}{
		{
			name: "datadir and identity",
			args: []string{"--datadir", tmp, "--identity", "village-node"},
			want: func(t *testing.T, cfg launcher.Config) {
				if cfg.Node.DataDir != tmp {
					t.Fatalf("DataDir = %q, want %q", cfg.Node.DataDir, tmp)
				}
				if cfg.Node.Name != "village-node" {
					t.Fatalf("Name = %q, want village-node", cfg.Node.Name)
				}
			},
		},
		{
			name: "relative datadir",
			args: []string{"--datadir", "node-data"},
			want: func(t *testing.T, cfg launcher.Config) {
				want := filepath.Join(launcher.GuessWorkDir(), "node-data")
				if cfg.Node.DataDir != want {
					t.Fatalf("DataDir = %q, want %q", cfg.Node.DataDir, want)
				}
			},
		},
		{
			name: "logging",
			args: []string{"--log.format", "json", "--log.verbosity", "5", "--log.color"},
			want: func(t *testing.T, cfg launcher.Config) {
				l := cfg.Node.Logging
				if l.Format != "json" || l.Verbosity != 5 || !l.Color {
					t.Fatalf("logging = %+v, want json/5/color", l)
				}
			},
		},
		{
			name: "fakenet selects the fake network",
			args: []string{"--network", "testnet", "--fakenet", "3"},
			want: func(t *testing.T, cfg launcher.Config) {
				if cfg.Ledger.Network != "fakenet" || cfg.Ledger.FakeNet != 3 {
					t.Fatalf("network = %q/%d, want fakenet/3", cfg.Ledger.Network, cfg.Ledger.FakeNet)
				}
			},
		},
		{
			name: "block period",
			args: []string{"--blockperiod", "2s"},
			want: func(t *testing.T, cfg launcher.Config) {
				if cfg.BlockPeriod() != 2*time.Second {
					t.Fatalf("BlockPeriod = %v, want 2s", cfg.BlockPeriod())
				}
			},
		},
		{
			name: "preset with cache override",
			args: []string{"--preset", "lite", "--cache", "99"},
			want: func(t *testing.T, cfg launcher.Config) {
				p, err := cfg.PresetConfig()
				if err != nil {
					t.Fatalf("PresetConfig: %v", err)
				}
				if p.Name != "lite" || p.CacheMB != 99 || p.Handles != 64 {
					t.Fatalf("preset = %+v, want lite with cache 99 and 64 handles", p)
				}
			},
		},
		{
			name: "bookkeeping disabled",
			args: []string{"--bookkeeping.db", "none"},
			want: func(t *testing.T, cfg launcher.Config) {
				if p := cfg.BookkeepingPath(); p != "" {
					t.Fatalf("BookkeepingPath = %q, want disabled", p)
				}
			},
		},
		{
			name: "bookkeeping path",
			args: []string{"--bookkeeping.db", filepath.Join(tmp, "premiums.db")},
			want: func(t *testing.T, cfg launcher.Config) {
				if p := cfg.BookkeepingPath(); p != filepath.Join(tmp, "premiums.db") {
					t.Fatalf("BookkeepingPath = %q", p)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.want(t, mustConfig(t, tt.args...))
		})
	}
}

func TestMakeAllConfigs_rejectsUnknownValues(t *testing.T) {
	for _, args := range [][]string{
		{"--preset", "huge"},
		{"--network", "moonnet"},
	} {
		if _, err := runConfigFromArgs(t, args); err == nil {
			t.Fatalf("MakeAllConfigs(%v) succeeded, want error", args)
		}
	}
}

func TestMakeAllConfigs_configFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "config.toml")
	body := `
[Node]
DataDir = "` + filepath.ToSlash(filepath.Join(dir, "from-file")) + `"
Name = "district-node"

[Node.Logging]
Verbosity = 4
Format = "json"

[Ledger]
Network = "testnet"
Preset = "full"
`
	if err := os.WriteFile(file, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := mustConfig(t, "--config", file, "--identity", "flag-wins")

	if cfg.Node.DataDir != filepath.Join(dir, "from-file") {
		t.Fatalf("DataDir = %q, want the file value", cfg.Node.DataDir)
	}
	if cfg.Node.Name != "flag-wins" {
		t.Fatalf("Name = %q, want the flag to override the file", cfg.Node.Name)
	}
	if cfg.Node.Logging.Verbosity != 4 || cfg.Node.Logging.Format != "json" {
		t.Fatalf("logging = %+v, want the file values", cfg.Node.Logging)
	}
	if cfg.Ledger.Network != "testnet" || cfg.Ledger.Preset != "full" {
		t.Fatalf("ledger = %+v, want the file values", cfg.Ledger)
	}
	// unset keys keep their defaults
	if cfg.Ledger.FakeNet != 10 {
		t.Fatalf("FakeNet = %d, want the default", cfg.Ledger.FakeNet)
	}
}

func TestMakeAllConfigs_configFileUnknownField(t *testing.T) {
	file := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(file, []byte("[Node]\nBogus = 1\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := runConfigFromArgs(t, []string{"--config", file})
	if err == nil {
		t.Fatal("unknown field accepted")
	}
	if !strings.Contains(err.Error(), "Bogus") {
		t.Fatalf("error %q does not name the field", err)
	}
}

func TestConfig_Genesis(t *testing.T) {
	cfg := mustConfig(t, "--fakenet", "4")
	g, err := cfg.Genesis()
	if err != nil {
		t.Fatalf("Genesis: %v", err)
	}
	if len(g.Alloc) != 4 {
		t.Fatalf("alloc has %d accounts, want 4", len(g.Alloc))
	}
	if g.Owner != evmcore.FakeAccount(0) {
		t.Fatalf("owner = %s, want fake account 0", g.Owner.Hex())
	}

	cfg = mustConfig(t, "--network", "mainnet")
	if _, err := cfg.Genesis(); err == nil {
		t.Fatal("mainnet without a genesis file succeeded")
	}

	cfg = mustConfig(t, "--fakenet", "0")
	if _, err := cfg.Genesis(); err == nil {
		t.Fatal("fakenet without accounts succeeded")
	}
}
