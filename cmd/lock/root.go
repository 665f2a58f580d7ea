package lock

import (
	"encoding/hex"
	"fmt"

	"github.com/ValentinKolb/dORM/cmd/util"
	"github.com/ValentinKolb/dORM/lib/lockmgr"
	"github.com/ValentinKolb/dORM/rpc/client"
	"github.com/spf13/cobra"
)

var (
	rpcLockMgr     lockmgr.ILockManager
	acquireTimeout uint64

	// LockCommands represents the lock command group
	LockCommands = &cobra.Command{
		Use:               "lock",
		Short:             "Perform lock operations",
		PersistentPreRunE: setupLockClient,
	}

	acquireCmd = &cobra.Command{
		Use:   "acquire [key]",
		Short: "Acquire a lock",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			acquired, ownerID, err := rpcLockMgr.AcquireLock(key, acquireTimeout)
			if err != nil {
				return fmt.Errorf("failed to acquire lock: %v", err)
			}
			if !acquired {
				fmt.Println("acquired=false")
				return nil
			}

			// the hex owner ID is what release expects back
			fmt.Printf("acquired=true, ownerId=%s\n", hex.EncodeToString(ownerID))
			return nil
		},
	}

	releaseCmd = &cobra.Command{
		Use:   "release [key] [ownerID]",
		Short: "Release a previously acquired lock",
		Long:  "Release a lock using the key and owner ID. The owner ID is the hex string returned by the acquire command.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			ownerID, err := hex.DecodeString(args[1])
			if err != nil {
				return fmt.Errorf("invalid owner ID format: %v", err)
			}

			released, err := rpcLockMgr.ReleaseLock(key, ownerID)
			if err != nil {
				return fmt.Errorf("failed to release lock: %v", err)
			}
			fmt.Printf("released=%v\n", released)
			return nil
		},
	}
)

func init() {
	// Initialize viper
	cobra.OnInitialize(util.InitClientConfig)

	// Add subcommands to lock command
	LockCommands.AddCommand(acquireCmd)
	LockCommands.AddCommand(releaseCmd)

	// Add common RPC flags to the lock command
	util.SetupRPCClientFlags(LockCommands)

	// Set default shard ID for lock operations (different from KV default)
	LockCommands.PersistentFlags().Int("shard", 200, util.WrapString("ID of the shard to connect to"))

	// Add flags specific to acquire
	acquireCmd.Flags().Uint64Var(&acquireTimeout, "timeout", 30, "Lock timeout in seconds (0 for no timeout)")
}

// setupLockClient initializes the lock manager client
func setupLockClient(cmd *cobra.Command, _ []string) error {
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

	// Create the lock manager client
	rpcLockMgr, err = client.NewRPCLockMgr(
		shardId,
		*config,
		t,
		s,
	)

	return err
}
