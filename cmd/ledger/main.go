// Command ledger is a terminal front-end for the ledger service.
//
// Every sub-command corresponds to one screen: it restores the stored
// session, asks the client where that screen may be shown, and either runs
// it or explains why not.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
