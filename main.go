package main

import (
	"os"

	"github.com/alphapile/pilesched/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
