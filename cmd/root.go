package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/compudj/tracecompass/cmd/bench"
)

const (
	Version = "0.1.0"
)

var (

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "statehistory",
		Short: "time-indexed state history store",
		Long: fmt.Sprintf(`statehistory (v%s)

A time-indexed interval store that records the history of discrete
attribute values while a trace is being processed, with an asynchronous
insertion pipeline and a read-consistency protocol for queries against
data still in flight.`, Version),
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of statehistory",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("statehistory v%s\n", Version)
		},
	}
)

func init() {
	// Add Commands
	RootCmd.AddCommand(bench.BenchCommands)
	RootCmd.AddCommand(versionCmd)
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
