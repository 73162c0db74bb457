package flags

import (
	"gopkg.in/urfave/cli.v1"
)

// NodeFlags hold knobs specific to the local instance: identity, storage
// preset and caches.
func NodeFlags() []cli.Flag {
	return []cli.Flag{
		cli.StringFlag{
			Name:  "identity",
			Usage: "Custom instance name shown in logs",
		},
		cli.StringFlag{
			Name:  "preset",
			Usage: "Storage preset (lite|default|full|memory)",
			Value: "default",
		},
		cli.IntFlag{
			Name:  "cache",
			Usage: "Megabytes of memory allocated to the database cache",
		},
		cli.IntFlag{
			Name:  "handles",
			Usage: "Database file handles",
		},
		cli.IntFlag{
			Name:  "groupcache",
			Usage: "Number of decoded group and membership records cached per table",
		},
		cli.StringFlag{
			Name:  "bookkeeping.db",
			Usage: "SQLite premium journal (defaults to <datadir>/bookkeeping.db, 'none' disables)",
		},
	}
}
