package models

// BackfillConfig configures one backfill run. Zero values mean defaults:
// BatchSize 10 (capped at 100), MaxRetries 3, SkipExisting true.
type BackfillConfig struct {
	BatchSize    int    `json:"batch_size,omitempty"`
	DryRun       bool   `json:"dry_run,omitempty"`
	SkipExisting *bool  `json:"skip_existing,omitempty"`
	MaxRetries   int    `json:"max_retries,omitempty"`
	UserID       string `json:"user_id,omitempty"`
}

// SkipExistingOrDefault returns SkipExisting, defaulting to true when unset.
func (c *BackfillConfig) SkipExistingOrDefault() bool {
	if c.SkipExisting != nil {
		return *c.SkipExisting
	}
	return true
}

// BackfillFailure records one record whose embedding could not be generated.
type BackfillFailure struct {
	RecordID string `json:"record_id"`
	Error    string `json:"error"`
}

// BackfillResult is the report for one backfill run. Counts accumulate
// monotonically during the run and are never mutated after it completes.
type BackfillResult struct {
	Processed  int               `json:"processed"`
	Failed     int               `json:"failed"`
	Skipped    int               `json:"skipped"`
	DurationMs int64             `json:"duration_ms"`
	Failures   []BackfillFailure `json:"failures,omitempty"`
}
