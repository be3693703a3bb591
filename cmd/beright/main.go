package main

import (
	"os"

	"github.com/bnema/beright/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
