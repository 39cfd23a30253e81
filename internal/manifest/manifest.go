package manifest

import (
	"encoding/json"
)

// CurrentVersion is the schema version of the in-memory record.
const CurrentVersion = 1

// Manifest is the ordered chapter list of one book.
type Manifest struct {
	Version int
	Entries []Entry
}

// New wraps entries in a current-version manifest.
func New(entries []Entry) Manifest {
	return Manifest{Version: CurrentVersion, Entries: entries}
}

// Len returns the number of entries.
func (m Manifest) Len() int {
	return len(m.Entries)
}

// MarshalJSON writes the bare entry array; the version is not persisted.
func (m Manifest) MarshalJSON() ([]byte, error) {
	entries := m.Entries
	if entries == nil {
		entries = []Entry{}
	}
	return json.Marshal(entries)
}

// UnmarshalJSON reads a bare entry array.
func (m *Manifest) UnmarshalJSON(data []byte) error {
	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return err
	}
	m.Version = CurrentVersion
	m.Entries = entries
	return nil
}

// Merge returns rebuilt with stage-owned fields carried over from existing.
// Entries are matched by order; builder-owned fields come from rebuilt, and
// entries absent from rebuilt are dropped.
func Merge(existing, rebuilt Manifest) Manifest {
	previous := make(map[int]Entry, len(existing.Entries))
	for _, entry := range existing.Entries {
		previous[entry.Order] = entry
	}

	merged := make([]Entry, 0, len(rebuilt.Entries))
	for _, entry := range rebuilt.Entries {
		if old, ok := previous[entry.Order]; ok {
			if entry.Markdown == nil && !entry.markdownNull {
				entry.Markdown, entry.markdownNull = old.Markdown, old.markdownNull
			}
			if entry.Audio == nil && !entry.audioNull {
				entry.Audio, entry.audioNull = old.Audio, old.audioNull
			}
			if len(old.extra) > 0 {
				extra := make(map[string]json.RawMessage, len(old.extra)+len(entry.extra))
				for key, value := range old.extra {
					extra[key] = value
				}
				for key, value := range entry.extra {
					extra[key] = value
				}
				entry.extra = extra
			}
		}
		merged = append(merged, entry)
	}
	return New(merged)
}
