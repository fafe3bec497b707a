// Command calsync keeps Google Calendar sync cursors for connected users and
// emits a change record for every event that changed since the last sync.
package main

import (
	"fmt"
	"os"

	"github.com/custodia-labs/calsync/internal/adapters/driving/cli"
)

// version is set at build time via -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := cli.Execute(version, build); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
