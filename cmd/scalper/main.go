// Command scalper runs the crypto scalping engine and its control commands.
package main

import (
	"os"

	"crypto-scalper/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
