package main

import (
	"os"

	"a2disk/cmd/a2kit/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
