// Package cmd implements the command-line interface of mkv. It provides a
// hierarchical command structure with operations for running the server and
// interacting with it as a client.
//
// The package is organized into several subpackages:
//
//   - kv: Commands for key-value operations on a collection (get, set, inc, keys, export, ...)
//   - serve: Commands for starting and configuring the mkv server
//   - util: Shared utilities for command-line processing and configuration (internal use)
//
// All flags can also be set via environment variables with the prefix MKV_
// (e.g. MKV_TRANSPORT_ENDPOINTS). .env and .env.local are loaded on start.
//
// See mkv -help for a list of all commands.
package cmd
