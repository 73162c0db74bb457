package flags

import (
	"gopkg.in/urfave/cli.v1"
)

// LedgerFlags select the network and its genesis.
func LedgerFlags() []cli.Flag {
	return []cli.Flag{
		cli.StringFlag{
			Name:  "network",
			Usage: "Network rules to start from (mainnet|testnet|fakenet)",
			Value: "fakenet",
		},
		cli.IntFlag{
			Name:  "fakenet",
			Usage: "Run a fake network funding this many deterministic accounts; #0 owns the ledger",
		},
		cli.StringFlag{
			Name:  "genesis",
			Usage: "Genesis file (YAML or JSON) used to initialize an empty datadir",
		},
		cli.DurationFlag{
			Name:  "blockperiod",
			Usage: "Timestamp distance between sealed blocks",
		},
	}
}

// CallFlags identify the caller of a ledger call.
func CallFlags() []cli.Flag {
	return []cli.Flag{
		cli.StringFlag{
			Name:  "from",
			Usage: "Caller address, or #n for fake account n (signed with its deterministic key)",
		},
		cli.StringFlag{
			Name:  "value",
			Usage: "Wei attached to the call; with no method this pays a premium",
			Value: "0",
		},
	}
}

// AdvanceFlags control the clock.
func AdvanceFlags() []cli.Flag {
	return []cli.Flag{
		cli.Uint64Flag{
			Name:  "blocks",
			Usage: "Number of empty blocks to seal",
			Value: 1,
		},
	}
}
