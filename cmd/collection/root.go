package collection

import (
	"github.com/ValentinKolb/dORM/cmd/util"
	"github.com/ValentinKolb/dORM/lib/orm"
	"github.com/ValentinKolb/dORM/rpc/client"
	"github.com/spf13/cobra"
)

var (
	rpcEngine orm.IEngine

	// CollectionCommands represents the collection command group
	CollectionCommands = &cobra.Command{
		Use:               "collection",
		Short:             "Perform collection operations (define, create, find, ...)",
		PersistentPreRunE: setupEngineClient,
	}

	// EphemeralCommands represents the ephemeral entry command group
	EphemeralCommands = &cobra.Command{
		Use:               "eph",
		Short:             "Perform ephemeral entry operations (set, get, ttl, rm)",
		PersistentPreRunE: setupEngineClient,
	}
)

func init() {
	// Initialize viper
	cobra.OnInitialize(util.InitClientConfig)

	for _, group := range []*cobra.Command{CollectionCommands, EphemeralCommands} {
		// Add common RPC flags
		util.SetupRPCClientFlags(group)

		// Set default shard ID for engine operations (different from KV and Lock defaults)
		group.PersistentFlags().Int("shard", 300, util.WrapString("ID of the shard to connect to"))
	}

	// Add collection subcommands
	CollectionCommands.AddCommand(defineCmd)
	CollectionCommands.AddCommand(describeCmd)
	CollectionCommands.AddCommand(dropCmd)
	CollectionCommands.AddCommand(createCmd)
	CollectionCommands.AddCommand(findCmd)
	CollectionCommands.AddCommand(updateCmd)
	CollectionCommands.AddCommand(destroyCmd)

	// Add ephemeral subcommands
	EphemeralCommands.AddCommand(ephSetCmd)
	EphemeralCommands.AddCommand(ephGetCmd)
	EphemeralCommands.AddCommand(ephTTLCmd)
	EphemeralCommands.AddCommand(ephRmCmd)

	// Flags for individual subcommands
	dropCmd.Flags().StringSlice("relations", nil, util.WrapString("Related collections whose records reference the dropped one and are purged along with it (comma separated)"))
	findCmd.Flags().Int("limit", 0, util.WrapString("Maximum number of records to return (0 = no limit)"))
	findCmd.Flags().Int("skip", 0, util.WrapString("Number of matching records to skip"))
	findCmd.Flags().String("sort", "", util.WrapString("Attributes to sort by, comma separated. Prefix with '-' for descending order (e.g. '-age,name')"))
}

// setupEngineClient initializes the RPC engine client
func setupEngineClient(cmd *cobra.Command, _ []string) error {
	// Bind command flags to viper
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}

	// Get client configuration components
	config := util.GetClientConfig()
	shardId := util.GetShardID()

	// Get serializer and transport
	s, err := util.GetSerializer()
	if err != nil {
		return err
	}

	t, err := util.GetTransport()
	if err != nil {
		return err
	}

	// Create the engine client
	rpcEngine, err = client.NewRPCEngine(
		shardId,
		*config,
		t,
		s,
	)

	return err
}
