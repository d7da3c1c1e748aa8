package main

import (
	"github.com/tickerfactor/factorctl/cmd/factorctl/cmd"
)

func main() {
	cmd.Execute()
}
