package model

import "time"

// Extraction is the per-turn result of the extraction model call. Values holds
// one entry per recognised field; a nil value is the none-marker.
type Extraction struct {
	Values  map[string]*string
	Source  string
	CostUSD float64
}

// ReplyKind selects which narration prompt answers the turn.
type ReplyKind string

const (
	ReplySuccess   ReplyKind = "success"
	ReplyFirstTurn ReplyKind = "first_turn"
	ReplyExhausted ReplyKind = "exhausted"
	ReplyMissing   ReplyKind = "missing"
)

// ReplyInput feeds the narration graph.
type ReplyInput struct {
	SessionID string
	Kind      ReplyKind
	Context   TurnContext
	Fields    FieldSet
	Missing   []string
}

// Reply is the narration produced for the user.
type Reply struct {
	Text    string
	CostUSD float64
}

// TurnState is the graph-local state shared by the nodes of one invocation.
type TurnState struct {
	SessionID string
	Stage     string
	Keys      []string
	CostUSD   float64
}

// Recorder receives model call measurements. Implementations must be safe for
// concurrent use.
type Recorder interface {
	ObserveModelCall(stage string, d time.Duration, err error)
	AddModelCost(stage, modelName string, usd float64)
}

// NopRecorder discards every measurement.
type NopRecorder struct{}

func (NopRecorder) ObserveModelCall(string, time.Duration, error) {}
func (NopRecorder) AddModelCost(string, string, float64)          {}
