// Package main implements the pgraph CLI. It builds program graphs of C++
// translation units and writes them as node and edge tables.
package main

import (
	"os"

	"github.com/l3aro/pgraph/cmd/pgraph/commands"
)

var (
	version   = "dev"
	buildTime = ""
)

func main() {
	commands.SetVersion(version, buildTime)
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
