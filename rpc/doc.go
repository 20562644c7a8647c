// Package rpc lets collections of a store live in another process.
// It is the communication layer between an application and a server that hosts
// named collections, each backed by its own provider and middleware.
//
// The package is organized into several subpackages:
//
//   - common: Core data structures and utilities used across the RPC system,
//     including the Message envelope, configuration structures, and logging.
//
//   - transport: Network communication abstractions with pluggable implementations
//     (TCP, Unix sockets, HTTP).
//
//   - serializer: Message serialization with multiple format options (Binary, JSON, GOB)
//     for converting between Message objects and byte arrays.
//
//   - client: A provider.Provider that forwards payloads to a remote collection,
//     so a local store can wrap it like any other backend.
//
//   - server: The server that hosts collections and answers requests for them.
package rpc
