// Package replicated implements a provider whose data is replicated with the
// Dragonboat RAFT library.
//
// Architecture:
//
//   - Provider: implements provider.Provider on top of a Dragonboat NodeHost.
//     Mutating payloads (set, inc, push, clear, ...) are encoded as JSON
//     commands and proposed to the shard with SyncPropose. Reads (get, keys,
//     filter, ...) are passed to the local state machine with SyncRead, which
//     waits until all committed entries are applied, so reads are
//     linearizable.
//
//   - StateMachine: a Dragonboat IConcurrentStateMachine holding a memory
//     engine. Committed commands are decoded back into payloads and applied to
//     the engine, the result payload (including a domain error) is returned
//     as the proposal result.
//
// Hooks:
//
//	Reads never leave the node, so read payloads may carry Go hooks
//	(predicates for filter, map functions, ...). Writes are replicated and
//	must be deterministic on every replica, mutating payloads with hooks
//	(update, remove with a predicate) therefore fail with InvalidValueType.
//
// Snapshots:
//
//	Snapshots are taken from a consistent copy of the engine (PrepareSnapshot)
//	and written as a JSON object holding the autoKey sequence and an export
//	document (see lib/export).
//
// Usage:
//
//	nh, err := dragonboat.NewNodeHost(nodeHostConfig)
//	if err != nil { ... }
//
//	err = nh.StartConcurrentReplica(members, false, replicated.NewStateMachineFactory("orders"), shardConfig)
//	if err != nil { ... }
//
//	prov := replicated.New(nh, shardID, 5*time.Second)
//	s, err := store.New(ctx, store.Options{Name: "orders", Provider: prov})
package replicated
