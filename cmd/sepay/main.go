package main

import (
	"os"

	"github.com/sepay/sepay-go"
	"github.com/sepay/sepay-go/internal/cli"
)

func main() {
	if err := cli.Execute(sepay.Version); err != nil {
		os.Exit(1)
	}
}
