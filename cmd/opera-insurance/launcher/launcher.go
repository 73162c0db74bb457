package launcher

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/urfave/cli.v1"

	"github.com/rony4d/go-opera-insurance/flags"
	"github.com/rony4d/go-opera-insurance/integration"
)

var (
	// Git SHA1 commit hash of the release (set via linker flags).
	gitCommit = ""

	app = flags.NewApp(gitCommit, "hierarchical mutual-aid insurance ledger")
)

func init() {
	app.Flags = append(app.Flags, flags.CommonFlags()...)
	app.Flags = append(app.Flags, flags.LedgerFlags()...)
	app.Flags = append(app.Flags, flags.NodeFlags()...)

	app.Commands = []cli.Command{
		initCommand,
		callCommand,
		advanceCommand,
		inspectCommand,
		demoCommand,
		dumpConfigCommand,
	}
	app.Action = func(ctx *cli.Context) error {
		return cli.ShowAppHelp(ctx)
	}
}

// Launch runs the command line.
func Launch(args []string) error {
	return app.Run(args)
}

// environment is what every command works with.
type environment struct {
	cfg    Config
	log    *logrus.Logger
	engine *integration.Engine
}

func (env *environment) Close() {
	if env.engine == nil {
		return
	}
	if err := env.engine.Close(); err != nil {
		env.log.WithError(err).Warn("Engine close failed")
	}
}

// openEnvironment merges the config, sets up logging and opens the engine.
// The genesis is only consulted when fresh is set or the database lives in
// memory; otherwise the datadir must already be initialized.
func openEnvironment(ctx *cli.Context, fresh bool) (*environment, error) {
	cfg, err := MakeAllConfigs(ctx)
	if err != nil {
		return nil, err
	}
	logger, err := newLogger(cfg.Node.Logging, os.Stderr)
	if err != nil {
		return nil, err
	}
	preset, err := cfg.PresetConfig()
	if err != nil {
		return nil, err
	}

	ecfg := integration.Config{
		DataDir:     cfg.Node.DataDir,
		Preset:      preset,
		BlockPeriod: cfg.BlockPeriod(),
		Logger:      logger.WithField("node", cfg.Node.Name),
	}
	if preset.DBPreset != integration.DBMemory {
		if err := ensureDir(cfg.Node.DataDir); err != nil {
			return nil, err
		}
		ecfg.BookkeepingPath = cfg.BookkeepingPath()
	}
	if fresh || preset.DBPreset == integration.DBMemory {
		if ecfg.Genesis, err = cfg.Genesis(); err != nil {
			return nil, err
		}
	}

	engine, err := integration.MakeEngine(ecfg)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.Node.DataDir, err)
	}
	return &environment{cfg: cfg, log: logger, engine: engine}, nil
}
