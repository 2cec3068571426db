package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var preamble = `muscat ` + Version + `

muscat indexes a music collection into a relational catalog and serves
browse/search queries over it through a virtual file system.

muscat comes with ABSOLUTELY NO WARRANTY. This is free software, and you
are welcome to redistribute it under certain conditions. See the GNU
General Public Licence for details.`

var rootCmd = &cobra.Command{
	Use:     "muscat",
	Short:   "muscat music catalog indexer",
	Long:    preamble,
	Version: Version,
}

func execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Printf("%v\n", err)
		os.Exit(1)
	}
}
