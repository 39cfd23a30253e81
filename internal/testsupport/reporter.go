package testsupport

import (
	"strings"
	"sync"

	"epub2audio/internal/logging"
)

// ReportedRecord captures one call made to a RecordingReporter.
type ReportedRecord struct {
	Level   string
	Message string
	Err     error
	Attrs   map[string]string
}

// RecordingReporter implements logging.Reporter and keeps every record.
type RecordingReporter struct {
	mu      sync.Mutex
	records []ReportedRecord
}

var _ logging.Reporter = (*RecordingReporter)(nil)

func (r *RecordingReporter) Event(msg string, attrs ...logging.Attr) {
	r.add("event", msg, nil, attrs)
}

func (r *RecordingReporter) Warning(msg string, attrs ...logging.Attr) {
	r.add("warning", msg, nil, attrs)
}

func (r *RecordingReporter) Fatal(msg string, err error, attrs ...logging.Attr) {
	r.add("fatal", msg, err, attrs)
}

// Records returns a copy of everything reported so far.
func (r *RecordingReporter) Records() []ReportedRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]ReportedRecord(nil), r.records...)
}

// Warnings returns the warning records whose message contains substr.
func (r *RecordingReporter) Warnings(substr string) []ReportedRecord {
	var out []ReportedRecord
	for _, record := range r.Records() {
		if record.Level == "warning" && strings.Contains(record.Message, substr) {
			out = append(out, record)
		}
	}
	return out
}

func (r *RecordingReporter) add(level, msg string, err error, attrs []logging.Attr) {
	values := make(map[string]string, len(attrs))
	for _, attr := range attrs {
		values[attr.Key] = attr.Value.String()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, ReportedRecord{Level: level, Message: msg, Err: err, Attrs: values})
}
