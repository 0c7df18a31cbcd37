// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
// The interpretation workflow lives here: a small directed graph of
// nodes (workflow.go), the nodes themselves (nodes.go), their branch
// conditions (conditions.go) and the weighted hybrid retriever
// (hybrid.go). AnalysisService is the boundary used by every driving
// adapter.
//
// Services are pure Go with no CGO dependencies.
package services
