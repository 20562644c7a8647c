package common

import (
	"strings"
	"testing"

	"github.com/ValentinKolb/mkv/lib/middleware/cache"
	"github.com/ValentinKolb/mkv/lib/payload"
	"github.com/lni/dragonboat/v4/logger"
)

func TestParseCollections(t *testing.T) {
	cols, err := ParseCollections("users=memory, log=sqlite,orders=replicated(100)")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	want := []CollectionConfig{
		{Name: "users", Provider: ProviderMemory},
		{Name: "log", Provider: ProviderSQLite},
		{Name: "orders", Provider: ProviderReplicated, ShardID: 100},
	}
	if len(cols) != len(want) {
		t.Fatalf("Expected %d collections, got %d", len(want), len(cols))
	}
	for i := range want {
		if cols[i] != want[i] {
			t.Errorf("Collection %d: expected %+v, got %+v", i, want[i], cols[i])
		}
	}

	if got := cols[2].String(); got != "orders=replicated(100)" {
		t.Errorf("Expected 'orders=replicated(100)', got %q", got)
	}
}

func TestParseCollectionsErrors(t *testing.T) {
	testCases := []string{
		"",
		"users",
		"=memory",
		"users=redis",
		"users=memory,users=sqlite",
		"a=replicated(x)",
		"a=replicated(0)",
		"a=replicated(1),b=replicated(1)",
	}

	for _, tc := range testCases {
		if _, err := ParseCollections(tc); err == nil {
			t.Errorf("Expected error for %q", tc)
		}
	}
}

func TestServerConfig(t *testing.T) {
	config := ServerConfig{
		Collections: []CollectionConfig{
			{Name: "users", Provider: ProviderMemory},
			{Name: "orders", Provider: ProviderReplicated, ShardID: 7},
		},
		Cache:          &cache.Config{MaxSize: 5},
		DataDir:        "/data",
		RTTMillisecond: 100,
		ReplicaID:      1,
		ClusterMembers: map[uint64]string{1: "localhost:63001"},
	}

	if !config.HasReplicated() {
		t.Errorf("Expected config to have replicated collections")
	}
	if got := config.SQLitePath("log"); got != "/data/log.db" {
		t.Errorf("Expected /data/log.db, got %s", got)
	}

	dc := config.ToDragonboatConfig(7)
	if dc.ShardID != 7 || dc.ReplicaID != 1 {
		t.Errorf("Expected shard 7 replica 1, got shard %d replica %d", dc.ShardID, dc.ReplicaID)
	}
	if dc.ElectionRTT != electionRTTFactor || dc.HeartbeatRTT != heartbeatRTTFactor {
		t.Errorf("Unexpected rtt settings: election %d heartbeat %d", dc.ElectionRTT, dc.HeartbeatRTT)
	}

	nh := config.ToNodeHostConfig()
	if nh.RaftAddress != "localhost:63001" {
		t.Errorf("Expected raft address localhost:63001, got %s", nh.RaftAddress)
	}

	out := config.String()
	for _, want := range []string{"users", "replicated (shard 7)", "maxSize=5", "localhost:63001"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected config string to contain %q", want)
		}
	}
}

func TestMessagePayload(t *testing.T) {
	req, err := NewRequest(payload.NewGet("ada", nil))
	if err != nil {
		t.Fatalf("Failed to create request: %v", err)
	}
	if req.Method != payload.MethodGet || len(req.Body) == 0 {
		t.Errorf("Unexpected request %s", req)
	}

	p, err := req.Payload()
	if err != nil {
		t.Fatalf("Failed to decode payload: %v", err)
	}
	if get, ok := p.(*payload.GetPayload); !ok || get.Key != "ada" {
		t.Errorf("Expected get payload for ada, got %+v", p)
	}

	// empty body gives an empty payload of the method
	p, err = (&Message{Method: payload.MethodSize}).Payload()
	if err != nil {
		t.Fatalf("Failed to decode payload: %v", err)
	}
	if _, ok := p.(*payload.SizePayload); !ok {
		t.Errorf("Expected size payload, got %T", p)
	}

	if _, err := (&Message{Method: "explode"}).Payload(); !payload.IsKind(err, payload.KindInternalError) {
		t.Errorf("Expected InternalError for unknown method, got %v", err)
	}
}

func TestMessageRejectsHooks(t *testing.T) {
	_, err := NewRequest(payload.NewEach(func(any, string) {}))
	if !payload.IsKind(err, payload.KindInvalidValueType) {
		t.Errorf("Expected InvalidValueType, got %v", err)
	}
}

func TestErrorResponse(t *testing.T) {
	msg := NewErrorResponse(payload.MethodSet, "collection %s not found", "users")
	if !msg.IsError() {
		t.Errorf("Expected error response")
	}
	if msg.Err != "collection users not found" {
		t.Errorf("Unexpected error %q", msg.Err)
	}
}

func TestParseLogLevel(t *testing.T) {
	testCases := map[string]logger.LogLevel{
		"debug":   logger.DEBUG,
		"info":    logger.INFO,
		"warn":    logger.WARNING,
		"warning": logger.WARNING,
		"error":   logger.ERROR,
	}
	for in, want := range testCases {
		got, err := ParseLogLevel(in)
		if err != nil || got != want {
			t.Errorf("ParseLogLevel(%q): expected %v, got %v (%v)", in, want, got, err)
		}
	}

	if _, err := ParseLogLevel("loud"); err == nil {
		t.Errorf("Expected error for unknown level")
	}
}
