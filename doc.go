/*
Package bookflow is a conversational bookstore orchestrator: it turns free-form
chat messages into searches, cart changes, orders and payments.

Every message runs through a small deterministic state machine (the turn
graph). Language understanding and reply generation are pluggable ports, so the
graph, not a model, decides what happens to the user's cart and orders.

# Turn Graph

	VALIDATE_INPUT --valid_input--> LOAD_CONTEXT --context_loaded--> APPLY_ACTION
	APPLY_ACTION --action_completed--> PERSIST --persisted--> BUILD_RESPONSE --response_built--> DONE
	VALIDATE_INPUT --missing_data--> ASK_INPUT --user_responded--> VALIDATE_INPUT

Failures while loading context, applying the action or persisting route to
BUILD_RESPONSE through action_failed, so the user always gets an answer and a
failed commit never leaves partial changes behind.

# Sessions

Each user has one session. Turns for the same user are serialised; turns for
different users run in parallel. A session waiting for missing data (ASK_INPUT)
resumes with the next message, and an idle session with unfinished work is
reset after the configured TTL.

# Usage

	eng, err := bookflow.New()
	if err != nil {
		log.Fatal(err)
	}

	reply, err := eng.HandleTurn(ctx, "ana", "Añade 2 copias de Dune")
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(reply.Text)

With no options the engine runs entirely in memory with a rule-based Spanish
classifier and a seeded catalog. Use WithStore for SQLite, WithSessionStore and
WithLocker for Redis, and WithGenerator for LLM-phrased replies.
*/
package bookflow
