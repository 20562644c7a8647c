package cmd

import (
	"fmt"
	"os"

	"github.com/ValentinKolb/mkv/cmd/kv"
	"github.com/ValentinKolb/mkv/cmd/serve"
	"github.com/ValentinKolb/mkv/cmd/util"
	"github.com/spf13/cobra"
)

const (
	Version = "0.1.0"
)

var (

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "mkv",
		Short: "provider agnostic key-value data access layer",
		Long: fmt.Sprintf(`mkv (v%s)

A key-value data access layer written in Go. Collections of JSON values
are stored in memory, in SQLite or replicated with RAFT, optionally behind
a cache, and can be served to remote clients.`, Version),
		SilenceUsage: true,
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of mkv",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("mkv v%s\n", Version)
		},
	}
)

func init() {
	// Add Commands
	RootCmd.AddCommand(serve.ServeCmd)
	RootCmd.AddCommand(kv.KeyValueCommands)
	RootCmd.AddCommand(versionCmd)

	// Add Flags
	key := "serializer"
	RootCmd.PersistentFlags().String(key, "json", util.WrapString("serializer to use (json, gob, binary)"))
	key = "transport"
	RootCmd.PersistentFlags().String(key, "http", util.WrapString("transport to use (http, tcp, unix)"))
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
