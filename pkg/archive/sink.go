package archive

import (
	"encoding/json"
	"fmt"
	"io"
)

// ProgressRecord is one operator-facing diagnostic line. The Kind field
// discriminates diagnostics from archived data, so the two may share a
// stream without ambiguity.
type ProgressRecord struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

const (
	// ProgressKindLog marks a crawl progress notice.
	ProgressKindLog = "log"
	// ProgressKindSleep marks an inter-request delay notice.
	ProgressKindSleep = "sleep"
)

// Sink writes archived records and progress diagnostics as JSON lines, one
// value per line. Records and diagnostics go to separate writers so the
// archive stream stays machine-readable on its own.
type Sink struct {
	records  *json.Encoder
	progress *json.Encoder
}

// NewSink creates a sink writing archive records to records and progress
// diagnostics to progress.
func NewSink(records, progress io.Writer) *Sink {
	rec := json.NewEncoder(records)
	rec.SetEscapeHTML(false)
	prog := json.NewEncoder(progress)
	prog.SetEscapeHTML(false)
	return &Sink{records: rec, progress: prog}
}

// EmitRecord writes one archived value as a single JSON line.
func (s *Sink) EmitRecord(v interface{}) error {
	if err := s.records.Encode(v); err != nil {
		return fmt.Errorf("failed to emit record: %w", err)
	}
	return nil
}

// Progress writes one diagnostic line with the given kind.
func (s *Sink) Progress(kind, format string, args ...interface{}) error {
	rec := ProgressRecord{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
	}
	if err := s.progress.Encode(rec); err != nil {
		return fmt.Errorf("failed to emit progress record: %w", err)
	}
	return nil
}
