package domain

// State is a node of the per-turn conversation graph.
type State string

const (
	StateValidateInput State = "VALIDATE_INPUT"
	StateLoadContext   State = "LOAD_CONTEXT"
	StateApplyAction   State = "APPLY_ACTION"
	StatePersist       State = "PERSIST"
	StateBuildResponse State = "BUILD_RESPONSE"
	StateDone          State = "DONE"
	StateAskInput      State = "ASK_INPUT"
)

// States lists every known state in graph order.
var States = []State{
	StateValidateInput,
	StateAskInput,
	StateLoadContext,
	StateApplyAction,
	StatePersist,
	StateBuildResponse,
	StateDone,
}

// Valid reports whether s is one of the known states.
func (s State) Valid() bool {
	for _, known := range States {
		if s == known {
			return true
		}
	}
	return false
}

// Terminal reports whether s ends a turn.
func (s State) Terminal() bool {
	return s == StateDone
}

// Condition labels an edge of the graph. The set is closed.
type Condition string

const (
	CondValidInput      Condition = "valid_input"
	CondMissingData     Condition = "missing_data"
	CondUserResponded   Condition = "user_responded"
	CondContextLoaded   Condition = "context_loaded"
	CondActionCompleted Condition = "action_completed"
	CondActionFailed    Condition = "action_failed"
	CondPersisted       Condition = "persisted"
	CondResponseBuilt   Condition = "response_built"
)

// Conditions is the closed set of edge labels.
var Conditions = []Condition{
	CondValidInput,
	CondMissingData,
	CondUserResponded,
	CondContextLoaded,
	CondActionCompleted,
	CondActionFailed,
	CondPersisted,
	CondResponseBuilt,
}

// Valid reports whether c belongs to the closed condition set.
func (c Condition) Valid() bool {
	for _, known := range Conditions {
		if c == known {
			return true
		}
	}
	return false
}
