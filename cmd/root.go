// Package cmd contains the gridkv command line interface: diagnostic and
// benchmarking commands that exercise the client against a running cluster.
package cmd

import (
	"fmt"
	"os"

	"github.com/gridkv/gridkv-go/cmd/perf"
	"github.com/gridkv/gridkv-go/cmd/ping"
	"github.com/gridkv/gridkv-go/cmd/util"
	"github.com/spf13/cobra"
)

const (
	Version = "0.3.1"
)

var (

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "gridkv",
		Short: "client for a partitioned in-memory data grid",
		Long: fmt.Sprintf(`gridkv (v%s)

A Go client core for a partitioned in-memory data grid: asynchronous
request multiplexing, partition-aware routing and deadline-bound
retries over a custom binary protocol.`, Version),
	}

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of gridkv",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("gridkv v%s\n", Version)
		},
	}
)

func init() {
	// Add Commands
	RootCmd.AddCommand(ping.PingCmd)
	RootCmd.AddCommand(perf.PerfCmd)
	RootCmd.AddCommand(versionCmd)

	// Add Flags
	util.SetupClientFlags(RootCmd)
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	util.InitClientConfig()
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
