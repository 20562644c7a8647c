package common

import (
	"encoding/json"
	"fmt"
	"math"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/ValentinKolb/mkv/lib/middleware/autoensure"
	"github.com/ValentinKolb/mkv/lib/middleware/cache"
	"github.com/lni/dragonboat/v4/config"
)

// --------------------------------------------------------------------------
// helper functions for to interface with Dragonboat (for the server config)
// --------------------------------------------------------------------------

// Dragonboat uses RTT (Round Trip Time) to determine the timing of elections and heartbeats.
// These default values are selected according to the RAFT Paper
const (
	electionRTTFactor  = 10
	heartbeatRTTFactor = 1
)

// ToDragonboatConfig converts the ServerConfig to Dragonboat Config
func (c *ServerConfig) ToDragonboatConfig(shardId uint64) config.Config {
	return config.Config{
		ReplicaID:          c.ReplicaID,
		ShardID:            shardId,
		ElectionRTT:        electionRTTFactor,  // = c.RTTMillisecond * 10
		HeartbeatRTT:       heartbeatRTTFactor, // = c.RTTMillisecond * 1
		CheckQuorum:        true,
		SnapshotEntries:    c.SnapshotEntries,
		CompactionOverhead: c.CompactionOverhead,
		MaxInMemLogSize:    0,
	}
}

// ToNodeHostConfig creates a NodeHostConfig for Dragonboat
func (c *ServerConfig) ToNodeHostConfig() config.NodeHostConfig {
	return config.NodeHostConfig{
		WALDir:         filepath.Join(c.DataDir, "raft"),
		NodeHostDir:    filepath.Join(c.DataDir, "raft"),
		RTTMillisecond: c.RTTMillisecond,
		RaftAddress:    c.ClusterMembers[c.ReplicaID],
	}
}

// --------------------------------------------------------------------------
// Transport configuration structs (shared by client and server)
// --------------------------------------------------------------------------

// SocketConf holds buffer sizes for socket based transports (tcp, unix)
type SocketConf struct {
	WriteBufferSize int
	ReadBufferSize  int
}

// TCPConf holds tcp specific socket options
type TCPConf struct {
	TCPNoDelay      bool
	TCPKeepAliveSec int
	TCPLingerSec    int
}

// ServerTransportConfig configures the server side of a transport
type ServerTransportConfig struct {
	// Endpoint is the listen address (host:port or a unix socket path)
	Endpoint string
	// WorkersPerConn limits concurrent requests per connection (tcp, unix)
	WorkersPerConn int
	// BufferSize is the size of pooled read buffers in bytes (tcp, unix)
	BufferSize int
	SocketConf
	TCPConf
}

// ClientTransportConfig configures the client side of a transport
type ClientTransportConfig struct {
	Endpoints              []string
	RetryCount             int
	ConnectionsPerEndpoint int
	SocketConf
	TCPConf
}

// --------------------------------------------------------------------------
// RPC server configuration struct
// --------------------------------------------------------------------------

// ProviderType selects the backend of a collection
type ProviderType string

const (
	ProviderMemory     ProviderType = "memory"
	ProviderSQLite     ProviderType = "sqlite"
	ProviderReplicated ProviderType = "replicated"
)

// CollectionConfig describes a single named collection served by the server
type CollectionConfig struct {
	// Name of the collection, used for routing requests
	Name string
	// Provider is the backend type
	Provider ProviderType
	// ShardID is the raft shard of a replicated collection
	ShardID uint64
}

// String formats the collection the way it is given on the command line
func (c CollectionConfig) String() string {
	if c.Provider == ProviderReplicated {
		return fmt.Sprintf("%s=%s(%d)", c.Name, c.Provider, c.ShardID)
	}
	return fmt.Sprintf("%s=%s", c.Name, c.Provider)
}

// ParseCollections parses a comma-separated list of collections in the format
// NAME=TYPE where TYPE is one of memory, sqlite or replicated(SHARD_ID)
func ParseCollections(s string) ([]CollectionConfig, error) {
	var cols []CollectionConfig
	seen := map[string]bool{}
	shards := map[uint64]string{}

	for _, def := range strings.Split(s, ",") {
		def = strings.TrimSpace(def)
		if def == "" {
			continue
		}

		name, typ, ok := strings.Cut(def, "=")
		name, typ = strings.TrimSpace(name), strings.TrimSpace(typ)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid collection format: %s (expected NAME=TYPE)", def)
		}
		if seen[name] {
			return nil, fmt.Errorf("collection %s is defined twice", name)
		}
		seen[name] = true

		col := CollectionConfig{Name: name}
		switch {
		case typ == string(ProviderMemory):
			col.Provider = ProviderMemory
		case typ == string(ProviderSQLite):
			col.Provider = ProviderSQLite
		case strings.HasPrefix(typ, string(ProviderReplicated)+"(") && strings.HasSuffix(typ, ")"):
			raw := strings.TrimSuffix(strings.TrimPrefix(typ, string(ProviderReplicated)+"("), ")")
			shardID, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 64)
			if err != nil || shardID == 0 {
				return nil, fmt.Errorf("invalid shard ID %q of collection %s", raw, name)
			}
			if other, exists := shards[shardID]; exists {
				return nil, fmt.Errorf("shard %d is used by %s and %s", shardID, other, name)
			}
			shards[shardID] = name
			col.Provider = ProviderReplicated
			col.ShardID = shardID
		default:
			return nil, fmt.Errorf("invalid collection type: %s (expected one of: memory, sqlite, replicated(ID))", typ)
		}
		cols = append(cols, col)
	}

	if len(cols) == 0 {
		return nil, fmt.Errorf("no collections configured")
	}
	return cols, nil
}

// ServerConfig holds all configuration parameters of a server node
type ServerConfig struct {
	// Collections served by this node
	Collections []CollectionConfig

	// Middleware applied to every collection, nil disables it
	Cache      *cache.Config
	AutoEnsure *autoensure.Config

	// Dragonboat parameters
	RTTMillisecond     uint64
	SnapshotEntries    uint64
	CompactionOverhead uint64
	DataDir            string
	ReplicaID          uint64
	ClusterMembers     map[uint64]string

	// request timeout, also bounds every raft request
	TimeoutSecond int64

	// Transport settings
	Transport ServerTransportConfig

	// Logging configuration
	LogLevel string
}

// HasReplicated checks if the configuration contains any replicated collection
func (c *ServerConfig) HasReplicated() bool {
	for _, col := range c.Collections {
		if col.Provider == ProviderReplicated {
			return true
		}
	}
	return false
}

// SQLitePath returns the database file of a sqlite collection
func (c *ServerConfig) SQLitePath(collection string) string {
	return filepath.Join(c.DataDir, collection+".db")
}

// String returns a formatted string representation of the configuration
func (c *ServerConfig) String() string {
	var sb strings.Builder

	// Create helper functions for consistent formatting
	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	// RPC settings
	addSection("RPC Server")
	addField("Endpoint", c.Transport.Endpoint)
	addField("Timeout", fmt.Sprintf("%d sec", c.TimeoutSecond))

	// Logging configuration
	addSection("Logging")
	addField("Log Level", c.LogLevel)

	// Collections
	addSection("Collections")
	for _, col := range c.Collections {
		value := string(col.Provider)
		if col.Provider == ProviderReplicated {
			value = fmt.Sprintf("%s (shard %d)", col.Provider, col.ShardID)
		}
		addField(col.Name, value)
	}

	// Middleware
	addSection("Middleware")
	if c.Cache != nil {
		addField("Cache", fmt.Sprintf("maxSize=%d maxAge=%s", c.Cache.MaxSize, c.Cache.MaxAge))
	} else {
		addField("Cache", "disabled")
	}
	if c.AutoEnsure != nil {
		def, _ := json.Marshal(c.AutoEnsure.DefaultValue)
		addField("Auto Ensure", string(def))
	} else {
		addField("Auto Ensure", "disabled")
	}

	// Storage
	addSection("Storage")
	addField("Data Directory", c.DataDir)

	if c.HasReplicated() {
		// Node Identity
		addSection("Node Identity")
		addField("RAFT Address", c.ClusterMembers[c.ReplicaID])
		addField("Node ID", strconv.FormatUint(c.ReplicaID, 10))

		// RAFT parameters
		addSection("RAFT Parameters")
		addField("Round Trip Time (ms)", fmt.Sprintf("%d ms", c.RTTMillisecond))
		addField("Election RTT (ms)", fmt.Sprintf("%d", c.RTTMillisecond*electionRTTFactor))
		addField("Heartbeat RTT (ms)", fmt.Sprintf("%d", c.RTTMillisecond*heartbeatRTTFactor))
		addField("Check Quorum", fmt.Sprintf("%t", true))
		addField("Snapshot Entries", fmt.Sprintf("%d", c.SnapshotEntries))
		addField("Compaction Overhead", fmt.Sprintf("%d", c.CompactionOverhead))

		addSection("Cluster")
		sb.WriteString("  Initial Cluster Members:\n")

		// Sort keys for consistent output
		var keys []uint64
		for k := range c.ClusterMembers {
			keys = append(keys, k)
		}
		sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

		for _, k := range keys {
			sb.WriteString(fmt.Sprintf("    Node %d: %s\n", k, c.ClusterMembers[k]))
		}
	}
	return sb.String()
}

// --------------------------------------------------------------------------
// RPC client configuration struct
// --------------------------------------------------------------------------

type ClientConfig struct {
	TimeoutSecond int
	Transport     ClientTransportConfig
}

// String returns a formatted string representation of the client configuration
func (c *ClientConfig) String() string {
	var sb strings.Builder

	// Create helper functions for consistent formatting
	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	// General Client Settings
	addSection("Client Configuration")
	addField("Timeout", fmt.Sprintf("%d sec", c.TimeoutSecond))
	addField("Retry Count", strconv.Itoa(c.Transport.RetryCount))
	addField("Connections Per Endpoint", strconv.Itoa(int(math.Max(1, float64(c.Transport.ConnectionsPerEndpoint)))))

	// Endpoints
	addSection("Endpoints")
	for i, endpoint := range c.Transport.Endpoints {
		addField(strconv.Itoa(i), endpoint)
	}

	return sb.String()
}
