package main

import (
	"os"

	"github.com/fiona-trading/fiona/cmd/fiona/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
