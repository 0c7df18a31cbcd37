// Command htp interprets observations about House-Tree-Person drawings.
package main

import (
	"fmt"
	"os"

	"github.com/custodia-labs/htp-rag/internal/adapters/driving/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
