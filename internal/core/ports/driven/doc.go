// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the application to function:
//
//   - LLMService: Text generation used by every reasoning node
//   - PromptCatalog: Immutable prompt templates keyed by node name
//   - PassageStore: The read-only passage pool
//   - Ranker: Lexical and semantic ranking over the pool
//   - ConfigStore: Application configuration
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - EmbeddingService: Query embeddings for the in-process semantic ranker.
//     Without it only the pgvector backend can rank semantically.
//   - AnswerCache: Caches final answers. Without it every request runs the workflow.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter package
package driven
