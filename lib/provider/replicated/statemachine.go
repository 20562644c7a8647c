package replicated

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/ValentinKolb/mkv/lib/export"
	"github.com/ValentinKolb/mkv/lib/payload"
	"github.com/ValentinKolb/mkv/lib/provider"
	"github.com/ValentinKolb/mkv/lib/provider/engine"
	"github.com/ValentinKolb/mkv/lib/provider/memory"
	sm "github.com/lni/dragonboat/v4/statemachine"
)

// Proposal result codes (sm.Result.Value)
const (
	resultApplied uint64 = iota // Data holds the encoded result payload
	resultInvalid               // Data holds an error message
)

// snapshot is the content of a snapshot file
type snapshot struct {
	Sequence uint64           `json:"sequence"`
	Export   *export.Document `json:"export"`
}

// --------------------------------------------------------------------------
// State Machine Implementation
// --------------------------------------------------------------------------

// StateMachine applies replicated payloads to a memory engine
type StateMachine struct {
	name      string
	shardID   uint64
	replicaID uint64
	engine    *engine.Engine
}

// NewStateMachineFactory returns the function Dragonboat uses to create the
// state machine of a replica. name is the store name of the shard.
func NewStateMachineFactory(name string) sm.CreateConcurrentStateMachineFunc {
	return func(shardID uint64, replicaID uint64) sm.IConcurrentStateMachine {
		return NewStateMachine(name, shardID, replicaID)
	}
}

// NewStateMachine creates a state machine with an empty engine
func NewStateMachine(name string, shardID, replicaID uint64) *StateMachine {
	e := memory.New()
	_ = e.Init(context.Background(), name)
	return &StateMachine{
		name:      name,
		shardID:   shardID,
		replicaID: replicaID,
		engine:    e,
	}
}

// Lookup handles reads. query must be a payload, it is dispatched to the
// engine directly and returned with its result.
func (fsm *StateMachine) Lookup(query interface{}) (interface{}, error) {
	p, ok := query.(payload.Payload)
	if !ok {
		return nil, payload.NewError(payload.KindInternalError, "", "invalid query type: %T", query)
	}
	if p.Meta().Method.IsMutating() {
		return nil, payload.NewError(payload.KindInternalError, p.Meta().Method, "mutations must be proposed")
	}
	return provider.Dispatch(context.Background(), fsm.engine, p), nil
}

// Update applies committed commands in log order
func (fsm *StateMachine) Update(entries []sm.Entry) ([]sm.Entry, error) {
	if len(entries) == 0 {
		return entries, nil
	}

	start := time.Now()
	ctx := context.Background()

	for idx, e := range entries {
		cmd, err := DecodeCommand(e.Cmd)
		if err != nil {
			entries[idx].Result = sm.Result{Value: resultInvalid, Data: []byte(err.Error())}
			continue
		}

		res := provider.Dispatch(ctx, fsm.engine, cmd)
		data, err := json.Marshal(res)
		if err != nil {
			entries[idx].Result = sm.Result{Value: resultInvalid, Data: []byte(fmt.Sprintf("failed to encode result: %v", err))}
			continue
		}
		entries[idx].Result = sm.Result{Value: resultApplied, Data: data}
	}

	if elapsed := time.Since(start); elapsed > time.Millisecond {
		log.Infof("state machine %s took long to update. Batch of %d entries took %.2fms", fsm.name, len(entries), float64(elapsed)/float64(time.Millisecond))
	}
	return entries, nil
}

// PrepareSnapshot takes a consistent copy of the engine
func (fsm *StateMachine) PrepareSnapshot() (interface{}, error) {
	entries, seq, err := fsm.engine.Snapshot(context.Background())
	if err != nil {
		return nil, err
	}
	return &snapshot{Sequence: seq, Export: export.New(fsm.name, entries)}, nil
}

// SaveSnapshot writes the copy taken by PrepareSnapshot
func (fsm *StateMachine) SaveSnapshot(ctx interface{}, writer io.Writer, _ sm.ISnapshotFileCollection, _ <-chan struct{}) error {
	snap, ok := ctx.(*snapshot)
	if !ok {
		return fmt.Errorf("invalid snapshot context type: %T", ctx)
	}
	return json.NewEncoder(writer).Encode(snap)
}

// RecoverFromSnapshot replaces the engine content with a saved snapshot
func (fsm *StateMachine) RecoverFromSnapshot(r io.Reader, _ []sm.SnapshotFile, _ <-chan struct{}) error {
	var snap snapshot
	if err := json.NewDecoder(r).Decode(&snap); err != nil {
		return fmt.Errorf("failed to decode snapshot: %w", err)
	}
	if snap.Export == nil {
		return fmt.Errorf("snapshot without export document")
	}
	return fsm.engine.Restore(context.Background(), snap.Export.Entries, snap.Sequence)
}

// Close performs any necessary cleanup
func (fsm *StateMachine) Close() error {
	return fsm.engine.Close()
}
