package domain

// Run is one generation run recorded in the workspace ledger.
type Run struct {
	ID             string `json:"id"`
	StartedAt      string `json:"started_at" format:"date-time"`
	FinishedAt     string `json:"finished_at,omitempty" format:"date-time"`
	Status         string `json:"status" enum:"running,completed,failed,canceled"`
	Path           string `json:"path"`
	FilesRequested int    `json:"files_requested"`
	FilesWritten   int    `json:"files_written"`
	LinesPerFile   int    `json:"lines_per_file"`
	Workers        int    `json:"workers"`
	Error          string `json:"error,omitempty"`
}

// RunFile is the per-file outcome of a run.
type RunFile struct {
	RunID    string `json:"run_id"`
	Idx      int    `json:"idx"`
	Name     string `json:"name"`
	Lines    int    `json:"lines"`
	Bytes    int64  `json:"bytes"`
	Checksum string `json:"checksum,omitempty"`
	Status   string `json:"status" enum:"written,failed"`
	Error    string `json:"error,omitempty"`
}

// Event is one append-only ledger entry, view with 'mockline log tail'.
type Event struct {
	ID      int64  `json:"id"`
	TS      string `json:"ts" format:"date-time"`
	Type    string `json:"type"`
	RunID   string `json:"run_id,omitempty"`
	Payload string `json:"payload"`
}
