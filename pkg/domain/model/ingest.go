package model

import "time"

// IngestReport summarizes one knowledge base ingestion run
type IngestReport struct {
	Source  string
	Files   int
	Chunks  int
	Skipped int
	Elapsed time.Duration
}
