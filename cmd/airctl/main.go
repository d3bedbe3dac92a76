package main

import (
	"os"

	"github.com/couchcryptid/campus-air-dashboard/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
