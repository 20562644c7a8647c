// Package common provides the data structures shared by the RPC client and
// server: the message envelope, configuration structures and the logger setup.
//
// The package focuses on:
//   - Message protocol definition for client/server communication
//   - Configuration structures for client and server components
//   - Custom logging implementation integrated with Dragonboat
//   - Utilities for Dragonboat (RAFT) integration
//
// Key Components:
//
//   - Message: Envelope of every request and response. A request carries the
//     method and the JSON encoded payload, the response carries the processed
//     payload (including a payload error, if any). Err is reserved for requests
//     the server could not process at all (unknown collection, broken body).
//
//   - ServerConfig: Configuration of a server node. It lists the collections
//     with their backend (memory, sqlite or replicated on a raft shard), the
//     middleware applied to every collection, RAFT parameters and transport
//     settings. Provides utilities for converting to Dragonboat configurations.
//
//   - ClientConfig: Configuration for clients, controlling endpoints, timeouts
//     and retry behavior.
//
//   - Logger: Custom logging implementation that integrates with Dragonboat's
//     logging system while providing consistent formatting across the application.
package common
