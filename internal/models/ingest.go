// ABOUTME: Reporting structures for ingestion runs and indexed sources
// ABOUTME: Counts are informational only
package models

// IngestStats summarises one reconciliation pass
type IngestStats struct {
	Documents int `json:"documents" yaml:"documents"`
	Added     int `json:"added" yaml:"added"`
	Deleted   int `json:"deleted" yaml:"deleted"`
	Skipped   int `json:"skipped" yaml:"skipped"`
}

// SourceSummary describes what the index currently holds for one source
type SourceSummary struct {
	Source       string   `json:"source" yaml:"source"`
	Chunks       int      `json:"chunks" yaml:"chunks"`
	Fingerprints []string `json:"fingerprints" yaml:"fingerprints"`
}
