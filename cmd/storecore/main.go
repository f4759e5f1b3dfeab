// Command storecore drives and inspects the storage core: a concurrent
// benchmark workload, a write-ahead log dumper and a config printer.
package main

import (
	"os"
)

func main() {
	if err := NewRootCommand(os.Stdout, os.Stderr).Execute(); err != nil {
		os.Exit(1)
	}
}
