/*
Package domain contains the core domain models of the Bookflow orchestrator.

It defines the conversation state machine vocabulary (States and Conditions),
the session snapshot, the typed slot accumulator and per-intent requests, the
bookstore entities (Book, Cart, Order) and the tagged ActionResult produced by
action handlers. The package is kept pure and free of I/O so every adapter
(storage, transport, text generation) can share it.

# Key Entities

  - State / Condition: the closed vocabulary of the turn graph.
  - Session: per-user snapshot (current state, slots, pending intent, history).
  - Slots / Request: loose accumulated slots and the typed request built from them.
  - ActionResult: Success, Failure or NeedsConfirmation, plus the mutations to commit.
  - Message: the reply delivered to the user (text plus attachments).
*/
package domain
