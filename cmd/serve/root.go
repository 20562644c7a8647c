package serve

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	cmdUtil "github.com/ValentinKolb/mkv/cmd/util"
	"github.com/ValentinKolb/mkv/lib/middleware/autoensure"
	"github.com/ValentinKolb/mkv/lib/middleware/cache"
	"github.com/ValentinKolb/mkv/lib/util"
	"github.com/ValentinKolb/mkv/rpc/common"
	"github.com/ValentinKolb/mkv/rpc/server"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	serveCmdConfig = &common.ServerConfig{}
	ServeCmd       = &cobra.Command{
		Use:     "serve",
		Short:   "Start the mkv server",
		Long:    `Start the mkv server with the specified configuration. The configuration can be set via command line flags or environment variables. The format of the environment variables is MKV_<flag> (e.g. MKV_CACHE_MAX_SIZE=500)`,
		PreRunE: processConfig,
		RunE:    run,
	}
)

func init() {
	// initialize viper
	cobra.OnInitialize(cmdUtil.InitConfig)

	// add flags
	key := "collections"
	ServeCmd.PersistentFlags().String(key, "default=memory", cmdUtil.WrapString("Comma-separated list of collections to serve. Format: NAME=TYPE where TYPE is one of: memory, sqlite, replicated(SHARD_ID)"))

	key = "cache"
	ServeCmd.PersistentFlags().Bool(key, false, cmdUtil.WrapString("Enable the cache middleware for all collections"))

	key = "cache-max-size"
	ServeCmd.PersistentFlags().Int(key, cache.DefaultConfig().MaxSize, cmdUtil.WrapString("Maximum number of cached entries per collection"))

	key = "cache-max-age"
	ServeCmd.PersistentFlags().Duration(key, cache.DefaultConfig().MaxAge, cmdUtil.WrapString("Lifetime of a cached entry (e.g. 30s, 5m)"))

	key = "auto-ensure"
	ServeCmd.PersistentFlags().String(key, "", cmdUtil.WrapString("Enable the auto ensure middleware with the given JSON default value (e.g. '{\"visits\":0}')"))

	key = "rtt-millisecond"
	ServeCmd.PersistentFlags().Int(key, 100, cmdUtil.WrapString("(Replicated Collections) RTTMillisecond defines the average Round Trip Time (RTT) in milliseconds between two NodeHost instances. \nOther raft configuration parameters (ElectionRTT=value/10, HeartbeatRTT=value/100) are derived from this value"))

	key = "snapshot-entries"
	ServeCmd.PersistentFlags().Int(key, 10, cmdUtil.WrapString("(Replicated Collections) SnapshotEntries defines how often the state machine should be snapshotted automatically. It is defined in terms of the number of applied Raft log entries. SnapshotEntries can be set to 0 to disable such automatic snapshotting (not recommended)"))

	key = "compaction-overhead"
	ServeCmd.PersistentFlags().Int(key, 5, cmdUtil.WrapString("(Replicated Collections) CompactionOverhead defines the number of snapshots that should be retained in the system. Recommended value is about 1/2 of SnapshotEntries"))

	key = "data-dir"
	ServeCmd.PersistentFlags().String(key, "data", cmdUtil.WrapString("DataDir is the directory used for sqlite databases and raft snapshots"))

	key = "replica-id"
	ServeCmd.PersistentFlags().String(key, "", cmdUtil.WrapString("(Replicated Collections) ReplicaID is the unique identifier for this NodeHost instance (e.g. 'node-1')"))

	key = "cluster-members"
	ServeCmd.PersistentFlags().String(key, "", cmdUtil.WrapString("(Replicated Collections) ClusterMembers is a comma-separated list of NodeHost addresses in the format 'node-1=localhost:63001,node-2=localhost:63002,...'"))

	key = "timeout"
	ServeCmd.PersistentFlags().Int64(key, 5, cmdUtil.WrapString("Timeout of a single request in seconds"))

	key = "endpoint"
	ServeCmd.PersistentFlags().String(key, "0.0.0.0:8080", cmdUtil.WrapString("The address on which the API will listen (e.g. localhost:8080, /tmp/mkv.sock, ...)"))

	key = "workers-per-conn"
	ServeCmd.PersistentFlags().Int(key, 16, cmdUtil.WrapString("Maximum number of concurrent requests per connection (ignored for http)"))

	key = "log-level"
	ServeCmd.PersistentFlags().String(key, "info", cmdUtil.WrapString("LogLevel is the level at which logs will be output (debug, info, warn, error)"))
}

// processConfig reads the configuration from the command line flags and environment variables and converts them to the server configuration
func processConfig(cmd *cobra.Command, _ []string) error {
	// bind the flags to viper
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	// parse collections
	cols, err := common.ParseCollections(viper.GetString("collections"))
	if err != nil {
		return err
	}
	serveCmdConfig.Collections = cols

	// parse middleware
	if viper.GetBool("cache") {
		cfg, err := cache.ParseOptions(map[string]any{
			"maxSize": viper.GetInt("cache-max-size"),
			"maxAge":  viper.GetDuration("cache-max-age"),
		})
		if err != nil {
			return err
		}
		serveCmdConfig.Cache = &cfg
	}

	if raw := viper.GetString("auto-ensure"); raw != "" {
		var def any
		if err := json.Unmarshal([]byte(raw), &def); err != nil {
			return fmt.Errorf("invalid auto ensure default value: %w", err)
		}
		serveCmdConfig.AutoEnsure = &autoensure.Config{DefaultValue: def}
	}

	// read the configuration from the command line flags and environment variables
	serveCmdConfig.RTTMillisecond = viper.GetUint64("rtt-millisecond")
	serveCmdConfig.SnapshotEntries = viper.GetUint64("snapshot-entries")
	serveCmdConfig.CompactionOverhead = viper.GetUint64("compaction-overhead")
	serveCmdConfig.DataDir = viper.GetString("data-dir")
	serveCmdConfig.TimeoutSecond = viper.GetInt64("timeout")
	serveCmdConfig.Transport.Endpoint = viper.GetString("endpoint")
	serveCmdConfig.Transport.WorkersPerConn = viper.GetInt("workers-per-conn")
	serveCmdConfig.LogLevel = viper.GetString("log-level")

	// parse replica id
	if id := viper.GetString("replica-id"); id != "" {
		serveCmdConfig.ReplicaID = util.HashString(id, 0)
	} else if serveCmdConfig.HasReplicated() {
		// error only if cluster mode
		return fmt.Errorf("ReplicaId is required for replicated collections")
	}

	// parse cluster members
	if clusterMembers := viper.GetString("cluster-members"); clusterMembers != "" {
		serveCmdConfig.ClusterMembers = make(map[uint64]string)
		for _, member := range cmdUtil.SplitList(clusterMembers) {
			name, addr, ok := strings.Cut(member, "=")
			if !ok || name == "" || addr == "" {
				return fmt.Errorf("invalid cluster member format: %s (expected ID=address)", member)
			}
			serveCmdConfig.ClusterMembers[util.HashString(name, 0)] = addr
		}
	} else if serveCmdConfig.HasReplicated() {
		// error only if cluster mode
		return fmt.Errorf("ClusterMembers is required for replicated collections")
	}

	// test if the replica id is in the cluster members (only for cluster mode)
	if _, ok := serveCmdConfig.ClusterMembers[serveCmdConfig.ReplicaID]; !ok && serveCmdConfig.HasReplicated() {
		return fmt.Errorf("no address found for replica ID %d in cluster members", serveCmdConfig.ReplicaID)
	}

	return common.InitLoggers(serveCmdConfig.LogLevel)
}

// run starts the mkv server
func run(_ *cobra.Command, _ []string) error {
	s, err := cmdUtil.GetSerializer()
	if err != nil {
		return err
	}

	t, err := cmdUtil.GetServerTransport()
	if err != nil {
		return err
	}

	serv := server.NewRPCServer(
		*serveCmdConfig,
		t,
		s,
	)

	// close the server on interrupt, Serve returns once the transport is closed
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		if err := serv.Close(); err != nil {
			server.Logger.Errorf("failed to close server: %v", err)
		}
	}()

	return serv.Serve()
}
