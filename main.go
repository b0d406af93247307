package main

import (
	"os"

	"facilityops/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
