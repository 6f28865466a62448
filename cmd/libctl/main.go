// Command libctl is the operator tool for the library catalog: schema
// migrations, seeding, consistency checks and search reindexing.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
