/*
Package ports defines the driven ports (interfaces) of the Bookflow orchestrator.

These interfaces decouple the turn engine from storage backends, language
collaborators and coordination primitives.

# Key Interfaces

  - SessionStore: persists per-user session snapshots (memory or Redis).
  - DistributedLocker: serialises turns for one user across replicas.
  - Catalog / Committer: read the bookstore context and apply mutations atomically.
  - Classifier: turns raw text into an intent plus loose slot values.
  - TextGenerator: renders natural-language replies from structured results.
  - AuditLog: records the state trace of each turn.
*/
package ports
