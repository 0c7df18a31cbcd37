// Package domain defines the core entities of the drawing interpretation
// service.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - WorkflowState: The record threaded through one interpretation run
//   - Decision: A normalised yes/no judgement
//   - Passage: An entry in the read-only passage pool
//   - Category: The drawing subject an observation was made on
//   - AppSettings: Provider, retrieval and engine configuration
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
