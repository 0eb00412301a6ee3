package main

import (
	"github.com/spf13/cobra"
)

var version = "dev"

// @title        Thesis portal gateway
// @version      1.0
// @description  Local session gateway: session signal, navigation and backend pass-through.
// @BasePath     /
func main() {
	cobra.CheckErr(newRootCmd().Execute())
}
