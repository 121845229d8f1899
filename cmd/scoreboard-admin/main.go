// Command scoreboard-admin administers the scoreboard database.
package main

import (
	"os"

	"github.com/okian/scoreboard/internal/cli"
)

func main() {
	os.Exit(cli.Execute(os.Args[1:], os.Stdout, os.Stderr))
}
