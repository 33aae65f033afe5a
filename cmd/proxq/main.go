// Command proxq runs queries against a SQL database through a proximity
// scheduler and prints the results as tables.
//
//	proxq run --driver postgres --dsn "$PROXQ_DSN" "select 1" "select 2"
//
// Every flag can also be set from the environment (PROXQ_DSN, PROXQ_CACHE_MAX,
// ...) or from a TOML file given with --config.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := NewRootCommand(os.Stdout, os.Stderr).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
