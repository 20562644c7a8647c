// Package tcp implements TCP socket-based transport for the mkv RPC system.
// It provides concrete implementations of the base package's connector
// interfaces and applies the socket options of common.TCPConf and
// common.SocketConf to every connection on both sides.
//
// This package builds on the base package's transport functionality, inheriting its
// performance optimizations including connection pooling, buffer reuse, and request
// routing. See the base package documentation for detailed information on the underlying
// transport mechanisms and performance characteristics.
//
// Key Components:
//
//   - clientConnector: TCP-specific implementation of base.IClientConnector
//
//   - serverConnector: TCP-specific implementation of base.IServerConnector
//
// The server buffer size defaults to 64 KB and can be set with
// ServerTransportConfig.BufferSize.
package tcp
