package kv

import (
	"context"

	"github.com/ValentinKolb/mkv/cmd/util"
	"github.com/ValentinKolb/mkv/lib/store"
	"github.com/ValentinKolb/mkv/rpc/client"
	"github.com/spf13/cobra"
)

var (
	rpcStore *store.Store

	// KeyValueCommands represents the KV command group
	KeyValueCommands = &cobra.Command{
		Use:                "kv",
		Short:              "Perform key-value operations on a collection of a server",
		PersistentPreRunE:  setupKVClient,
		PersistentPostRunE: closeKVClient,
	}
)

func init() {
	// Initialize viper
	cobra.OnInitialize(util.InitConfig)

	// Add common RPC flags to the KV command
	util.SetupRPCClientFlags(KeyValueCommands)

	// Add subcommands
	KeyValueCommands.AddCommand(
		getCmd,
		setCmd,
		hasCmd,
		delCmd,
		incCmd,
		decCmd,
		pushCmd,
		ensureCmd,
		keysCmd,
		valuesCmd,
		sizeCmd,
		clearCmd,
		randomCmd,
		exportCmd,
		importCmd,
	)
}

// setupKVClient initializes the store on top of the remote provider
func setupKVClient(cmd *cobra.Command, _ []string) error {
	// Bind command flags to viper
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}

	// Get client configuration components
	config := util.GetClientConfig()
	collection := util.GetCollection()

	// Get serializer and transport
	s, err := util.GetSerializer()
	if err != nil {
		return err
	}

	t, err := util.GetClientTransport()
	if err != nil {
		return err
	}

	prov, err := client.NewRPCProvider(
		collection,
		*config,
		t,
		s,
	)
	if err != nil {
		return err
	}

	rpcStore, err = store.New(cmd.Context(), store.Options{
		Name:     collection,
		Provider: prov,
	})
	return err
}

// closeKVClient closes the store and the transport
func closeKVClient(_ *cobra.Command, _ []string) error {
	if rpcStore == nil {
		return nil
	}
	return rpcStore.Close()
}

// ctx returns the context of a command
func ctx(cmd *cobra.Command) context.Context {
	if c := cmd.Context(); c != nil {
		return c
	}
	return context.Background()
}
