package indexer

import "sync"

// IndexingStatus is a best-effort snapshot of the single running (or most
// recently finished) indexing job. It is written by the indexer (the job
// itself and its per-file worker goroutines) and read concurrently by status
// callers (spec.md §5): readers must not observe individual-field tearing,
// so every read/write goes through the owning statusBox's mutex rather than
// sharing the record.
type IndexingStatus struct {
	IsIndexing     bool   `json:"is_indexing"`
	Message        string `json:"message"`
	TotalFiles     int    `json:"total_files"`
	ProcessedFiles int    `json:"processed_files"`
	Cancelled      bool   `json:"cancelled"`
	// CurrentFile is the path currently being processed. Best-effort and
	// racy under bounded parallelism: with more than one worker in flight it
	// reflects whichever file's goroutine updated it last, not necessarily
	// the only file in progress (spec.md §3).
	CurrentFile string `json:"current_file,omitempty"`
}

// statusBox owns the single IndexingStatus record and serializes access.
type statusBox struct {
	mu  sync.Mutex
	cur IndexingStatus
}

func (b *statusBox) Snapshot() IndexingStatus {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.cur
}

func (b *statusBox) Set(s IndexingStatus) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cur = s
}

func (b *statusBox) Update(fn func(*IndexingStatus)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fn(&b.cur)
}
