// Package cmd implements the command-line interface for the statehistory
// interval store. It provides a hierarchical command structure with
// operations for exercising and benchmarking the history backends.
//
// The package is organized into several subpackages:
//
//   - bench: Commands for benchmarking the threaded history backend
//   - util: Shared utilities for command-line processing and configuration (internal use)
//
// See statehistory -help for a list of all commands.
package cmd
