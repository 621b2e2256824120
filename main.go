package main

import (
	"os"

	"github.com/tempohq/tempo/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
