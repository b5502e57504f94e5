package ir

// NOTE: These are journal types, not part of the program representation.

// Generation status values recorded in the edit journal.
const (
	StatusCommitted = "committed"
	StatusRejected  = "rejected"
)

// SessionRecord describes one live session in the journal: the engine
// build and rendering constants its edit cycles ran under.
type SessionRecord struct {
	ID            string  `json:"id"` // UUIDv7, so IDs sort by start time
	EngineVersion string  `json:"engine_version"`
	IRVersion     string  `json:"ir_version"`
	SampleRate    float64 `json:"sample_rate"`
	BlockSize     int     `json:"block_size"`
}

// GenerationRecord is one edit cycle as recorded in the journal.
//
// Committed records carry the plan summary of the cycle. Rejected records
// carry the error code, message, and details; their counts are zero
// because nothing was applied.
type GenerationRecord struct {
	Seq          int64             `json:"seq"` // Assigned by the journal, increasing
	SessionID    string            `json:"session_id"`
	Generation   int64             `json:"generation"`             // Engine generation after the cycle
	ProgramHash  string            `json:"program_hash,omitempty"` // Empty when parsing failed
	Source       string            `json:"source"`
	Status       string            `json:"status"`
	ErrorCode    string            `json:"error_code,omitempty"`
	ErrorMessage string            `json:"error_message,omitempty"`
	ErrorDetails map[string]string `json:"error_details,omitempty"`
	Summary      PlanSummary       `json:"summary"`
}

// Committed reports whether the cycle was applied.
func (r GenerationRecord) Committed() bool {
	return r.Status == StatusCommitted
}

// PlanSummary counts the operations of one edit plan.
type PlanSummary struct {
	Adds    int `json:"adds"`
	Removes int `json:"removes"`
	Updates int `json:"updates"`
	Deletes int `json:"deletes"`
}

// Empty reports whether the plan had no operations at all.
func (s PlanSummary) Empty() bool {
	return s.Adds == 0 && s.Removes == 0 && s.Updates == 0 && s.Deletes == 0
}
