// Package cmd implements the command-line interface for the dORM distributed
// collection engine. It provides a hierarchical command structure with
// operations for running the server and interacting with it as a client.
//
// The package is organized into several subpackages:
//
//   - kv: Commands for key-value store operations (get, set, delete, etc.)
//   - collection: Commands for collection operations (define, create, find, etc.)
//     and ephemeral entries
//   - lock: Commands for locking operations (acquire, release)
//   - serve: Commands for starting and configuring the dORM server
//   - util: Shared utilities for command-line processing and configuration (internal use)
//
// See dorm -help for a list of all commands.
package cmd
