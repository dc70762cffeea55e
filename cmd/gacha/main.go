// Command gacha operates gacha reward pools.
package main

import (
	"os"

	"github.com/bitfsorg/libgacha-go/internal/cli"
)

func main() {
	os.Exit(cli.Execute(os.Args[1:], os.Stdout, os.Stderr))
}
