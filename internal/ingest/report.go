package ingest

import "time"

// Report summarizes one ingestion run.
type Report struct {
	RunDate       time.Time
	RowsRead      int
	RowsMatched   int
	RowsMalformed int

	SalesInserted int
	SalesSkipped  int
	ItemsInserted int
	ItemsSkipped  int
}

// FactsInserted is the total number of new fact rows written.
func (r *Report) FactsInserted() int {
	return r.SalesInserted + r.ItemsInserted
}

// FactsSkipped is the total number of fact rows skipped as duplicates.
func (r *Report) FactsSkipped() int {
	return r.SalesSkipped + r.ItemsSkipped
}
