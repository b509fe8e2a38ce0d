package main

import (
	"os"

	"github.com/kursadbilgin/notify-dispatch/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
