package errclass

import "time"

// Record is one classified failure kept for operator diagnostics.
type Record struct {
	Category   Category
	Message    string
	OccurredAt time.Time
}

// History accumulates per-file failure records and derives error-rate
// statistics. It is purely additive and never drives control flow. State is
// owned by the main processing flow and needs no locking.
type History struct {
	files map[string]*fileHistory
	clock func() time.Time
}

type fileHistory struct {
	firstAt time.Time
	records []Record
}

// NewHistory creates an empty History.
func NewHistory() *History {
	return &History{
		files: make(map[string]*fileHistory),
		clock: time.Now,
	}
}

// Record classifies err, appends it to the file's history and returns the
// category.
func (h *History) Record(fileName string, err error) Category {
	cat := Classify(err)
	now := h.clock()

	fh, ok := h.files[fileName]
	if !ok {
		fh = &fileHistory{firstAt: now}
		h.files[fileName] = fh
	}
	fh.records = append(fh.records, Record{
		Category:   cat,
		Message:    err.Error(),
		OccurredAt: now,
	})
	return cat
}

// Records returns the failure records for fileName in occurrence order.
func (h *History) Records(fileName string) []Record {
	fh, ok := h.files[fileName]
	if !ok {
		return nil
	}
	out := make([]Record, len(fh.records))
	copy(out, fh.records)
	return out
}

// ErrorRate returns errors per elapsed hour since the file's first error.
// Inside the first hour the raw count is returned so a burst of early
// failures is not inflated into an absurd hourly rate.
func (h *History) ErrorRate(fileName string) float64 {
	fh, ok := h.files[fileName]
	if !ok || len(fh.records) == 0 {
		return 0
	}
	elapsed := h.clock().Sub(fh.firstAt)
	if elapsed < time.Hour {
		return float64(len(fh.records))
	}
	return float64(len(fh.records)) / elapsed.Hours()
}
