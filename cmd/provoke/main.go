package main

import (
	"os"

	"github.com/provoke-dev/provoke/cmd/provoke/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
