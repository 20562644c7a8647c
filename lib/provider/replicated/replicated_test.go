package replicated

import (
	"bytes"
	"encoding/json"
	"errors"
	"reflect"
	"testing"

	"github.com/ValentinKolb/mkv/lib/path"
	"github.com/ValentinKolb/mkv/lib/payload"
	sm "github.com/lni/dragonboat/v4/statemachine"
)

// apply proposes payloads to the state machine the way the raft log would
func apply(t *testing.T, fsm *StateMachine, ps ...payload.Payload) []sm.Entry {
	t.Helper()
	entries := make([]sm.Entry, len(ps))
	for i, p := range ps {
		cmd, err := EncodeCommand(p)
		if err != nil {
			t.Fatalf("EncodeCommand(%s) failed: %v", p.Meta().Method, err)
		}
		entries[i] = sm.Entry{Index: uint64(i + 1), Cmd: cmd}
	}
	res, err := fsm.Update(entries)
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	return res
}

// result merges the result of entry into p
func result(t *testing.T, e sm.Entry, p payload.Payload) payload.Payload {
	t.Helper()
	if e.Result.Value != resultApplied {
		t.Fatalf("Expected applied result, got %d: %s", e.Result.Value, e.Result.Data)
	}
	if err := payload.Merge(p, e.Result.Data); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestUpdateAndLookup(t *testing.T) {
	fsm := NewStateMachine("orders", 1, 1)
	defer fsm.Close()

	inc := payload.NewInc("counter", nil)
	res := apply(t, fsm,
		payload.NewSet("counter", nil, 1),
		inc,
		payload.NewPush("tags", nil, "x", false),
	)
	if got := result(t, res[1], payload.NewInc("counter", nil)).(*payload.IncPayload); got.Data != 2 {
		t.Errorf("Expected inc result 2, got %v", got.Data)
	}
	if got := result(t, res[2], payload.NewPush("tags", nil, "x", false)).(*payload.PushPayload); got.Error == nil {
		t.Errorf("Expected push on absent key to fail, got %v", got.Data)
	} else if got.Error.Kind != payload.KindMissingData {
		t.Errorf("Expected MissingData, got %v", got.Error)
	}

	out, err := fsm.Lookup(payload.NewGet("counter", nil))
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if get := out.(*payload.GetPayload); !get.Loaded || get.Data != 2.0 {
		t.Errorf("Expected counter 2, got %v", get.Data)
	}

	// local reads may use hooks
	filter := payload.NewFilter(payload.MatchFunc(func(v any, _ string) bool { return v == 2.0 }))
	out, _ = fsm.Lookup(filter)
	if len(out.(*payload.FilterPayload).Data) != 1 {
		t.Errorf("Expected hooked filter to match counter, got %v", filter.Data)
	}

	if _, err := fsm.Lookup(payload.NewSet("x", nil, 1)); err == nil {
		t.Error("Expected Lookup to reject mutations")
	}
	if _, err := fsm.Lookup("not a payload"); err == nil {
		t.Error("Expected Lookup to reject unknown queries")
	}
}

func TestInvalidCommands(t *testing.T) {
	fsm := NewStateMachine("orders", 1, 1)
	res, err := fsm.Update([]sm.Entry{
		{Index: 1, Cmd: nil},
		{Index: 2, Cmd: []byte("garbage")},
		{Index: 3, Cmd: []byte(`{"method":"get","body":{}}`)},
	})
	if err != nil {
		t.Fatal(err)
	}
	for i, e := range res {
		if e.Result.Value != resultInvalid {
			t.Errorf("Expected entry %d to be rejected", i)
		}
	}
}

func TestHookedMutationsAreRejected(t *testing.T) {
	for _, p := range []payload.Payload{
		payload.NewUpdate("a", nil, func(any) any { return 1 }),
		payload.NewRemove("a", nil, payload.MatchFunc(func(any, string) bool { return true })),
	} {
		if _, err := EncodeCommand(p); !errors.Is(err, payload.ErrInvalidValueType) {
			t.Errorf("%s: expected InvalidValueType, got %v", p.Meta().Method, err)
		}
	}
	if _, err := EncodeCommand(payload.NewRemove("a", path.Path{"list"}, payload.MatchValue("x"))); err != nil {
		t.Errorf("Expected literal remove to be replicable, got %v", err)
	}
}

func TestSnapshotRecovery(t *testing.T) {
	src := NewStateMachine("orders", 1, 1)
	apply(t, src,
		payload.NewSet("b", nil, map[string]any{"n": 1}),
		payload.NewSet("a", nil, "x"),
		payload.NewAutoKey(),
	)

	ctx, err := src.PrepareSnapshot()
	if err != nil {
		t.Fatalf("PrepareSnapshot failed: %v", err)
	}
	// writes after PrepareSnapshot are not part of the snapshot
	apply(t, src, payload.NewSet("late", nil, true))

	var buf bytes.Buffer
	if err := src.SaveSnapshot(ctx, &buf, nil, nil); err != nil {
		t.Fatalf("SaveSnapshot failed: %v", err)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(buf.Bytes(), &raw); err != nil || raw["export"] == nil {
		t.Fatalf("Expected snapshot to embed an export document, got %s", buf.String())
	}

	dst := NewStateMachine("orders", 1, 2)
	if err := dst.RecoverFromSnapshot(&buf, nil, nil); err != nil {
		t.Fatalf("RecoverFromSnapshot failed: %v", err)
	}
	out, _ := dst.Lookup(payload.NewKeys())
	if keys := out.(*payload.KeysPayload).Data; !reflect.DeepEqual(keys, []string{"b", "a"}) {
		t.Errorf("Expected keys [b a], got %v", keys)
	}

	res := apply(t, dst, payload.NewAutoKey())
	if got := result(t, res[0], payload.NewAutoKey()).(*payload.AutoKeyPayload); got.Data != "2" {
		t.Errorf("Expected autoKey sequence to continue at 2, got %s", got.Data)
	}
}
