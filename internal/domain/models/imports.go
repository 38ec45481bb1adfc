package models

// ImportRow is one normalized tabular row headed for reconciliation.
// Keys and string values are trimmed before any matching happens.
type ImportRow map[string]string

// ImportRowError pinpoints a single row that could not be inserted.
type ImportRowError struct {
	Row    int    `json:"row"`
	Value  string `json:"value,omitempty"`
	Reason string `json:"reason"`
}

// ImportResult summarizes one reconciliation call. Row errors are
// accumulated, never thrown: the caller always gets the full picture.
type ImportResult struct {
	BatchID  string           `json:"batch_id"`
	Category string           `json:"category"`
	Imported int              `json:"imported"`
	Skipped  int              `json:"skipped"`
	Errors   []ImportRowError `json:"errors"`
}

// SpreadsheetImportResult aggregates per-sheet outcomes for a multi-sheet
// spreadsheet import.
type SpreadsheetImportResult struct {
	Imported int                      `json:"imported"`
	Skipped  int                      `json:"skipped"`
	Sheets   map[string]*ImportResult `json:"sheets"`
	Errors   []ImportRowError         `json:"errors"`
}
