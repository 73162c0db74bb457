package launcher

import "time"

// Defaults bundles the baseline values the launcher uses before the config
// file and flags override them.
type Defaults struct {
	Node        NodeDefaults
	Ledger      LedgerDefaults
	Storage     StorageDefaults
	Logging     LoggingDefaults
	Bookkeeping BookkeepingDefaults
}

// NodeDefaults captures top-level instance settings.
type NodeDefaults struct {
	DataDir string // filesystem root holding chaindata and the bookkeeping journal
	Name    string // instance name shown in logs
}

// LedgerDefaults select the network a fresh datadir is initialized with.
type LedgerDefaults struct {
	Network     string        // mainnet, testnet or fakenet rules
	FakeNet     int           // funded deterministic accounts of a fakenet genesis
	BlockPeriod time.Duration // zero takes the period of the network rules
}

// StorageDefaults configure the database.
type StorageDefaults struct {
	Preset string // lite, default, full or memory
}

type LoggingDefaults struct {
	Verbosity int    // 0=fatal, 1=error, 2=warn, 3=info, 4=debug, 5=trace
	Format    string // text or json
	Color     bool   // ANSI colors; best disabled when piping to files
}

type BookkeepingDefaults struct {
	File string // journal file name inside the datadir
}

// DefaultConfig returns a fully populated Defaults instance.
func DefaultConfig() Defaults {
	return Defaults{
		Node: NodeDefaults{
			DataDir: "~/.opera-insurance",
			Name:    "opera-insurance",
		},
		Ledger: LedgerDefaults{
			Network: "fakenet",
			FakeNet: 10,
		},
		Storage: StorageDefaults{
			Preset: "default",
		},
		Logging: LoggingDefaults{
			Verbosity: 3,
			Format:    "text",
			Color:     true,
		},
		Bookkeeping: BookkeepingDefaults{
			File: "bookkeeping.db",
		},
	}
}
