package models

// ConnectionCandidate is a discovered similarity connection to another source.
// Strength is in [0,1]; Evidence is a human-readable explanation.
type ConnectionCandidate struct {
	SourceID string  `json:"source_id"`
	Strength float64 `json:"strength"`
	Evidence string  `json:"evidence"`
}
