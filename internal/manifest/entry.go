package manifest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// Entry is one chapter-bearing navigation point.
type Entry struct {
	// Order is the 1-based position of the navigation point in the source
	// document, counted over every point including dropped ones.
	Order         int
	ChapterNumber *int
	ChapterTitle  string
	ChapterPath   string
	// Markdown and Audio are nil when absent or null; an empty string is
	// kept as "".
	Markdown *string
	Audio    *string

	// An explicit null is written back as null while the field stays nil.
	markdownNull bool
	audioNull    bool
	extra        map[string]json.RawMessage
}

const (
	keyOrder         = "order"
	keyChapterNumber = "chapterNumber"
	keyChapterTitle  = "chapterTitle"
	keyChapterPath   = "chapterPath"
	keyMarkdown      = "markdown"
	keyAudio         = "audio"
)

// Snake-case keys written by earlier tooling; read but never written.
var legacyKeys = map[string]string{
	"chapter_number": keyChapterNumber,
	"chapter_title":  keyChapterTitle,
	"chapter_path":   keyChapterPath,
}

// Number returns the chapter number, or 0 when unset.
func (e Entry) Number() int {
	if e.ChapterNumber == nil {
		return 0
	}
	return *e.ChapterNumber
}

// HasAudio reports whether a non-empty audio path is recorded.
func (e Entry) HasAudio() bool {
	return e.Audio != nil && *e.Audio != ""
}

// HasMarkdown reports whether a non-empty markdown path is recorded.
func (e Entry) HasMarkdown() bool {
	return e.Markdown != nil && *e.Markdown != ""
}

// Extra returns the raw value of a key this package does not model.
func (e Entry) Extra(key string) (json.RawMessage, bool) {
	raw, ok := e.extra[key]
	return raw, ok
}

// IntPtr and StringPtr build optional field values.
func IntPtr(v int) *int { return &v }

func StringPtr(v string) *string { return &v }

// MarshalJSON writes the known keys in a fixed order followed by preserved
// unknown keys in sorted order.
func (e Entry) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	first := true
	write := func(key string, value any) error {
		raw, err := json.Marshal(value)
		if err != nil {
			return fmt.Errorf("marshal %s: %w", key, err)
		}
		return writeRaw(&buf, &first, key, raw)
	}

	if err := write(keyOrder, e.Order); err != nil {
		return nil, err
	}
	if err := write(keyChapterNumber, e.ChapterNumber); err != nil {
		return nil, err
	}
	if err := write(keyChapterTitle, e.ChapterTitle); err != nil {
		return nil, err
	}
	if err := write(keyChapterPath, e.ChapterPath); err != nil {
		return nil, err
	}
	if e.Markdown != nil || e.markdownNull {
		if err := write(keyMarkdown, e.Markdown); err != nil {
			return nil, err
		}
	}
	if e.Audio != nil || e.audioNull {
		if err := write(keyAudio, e.Audio); err != nil {
			return nil, err
		}
	}

	keys := make([]string, 0, len(e.extra))
	for key := range e.extra {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if err := writeRaw(&buf, &first, key, e.extra[key]); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func writeRaw(buf *bytes.Buffer, first *bool, key string, raw json.RawMessage) error {
	if !*first {
		buf.WriteByte(',')
	}
	*first = false
	name, err := json.Marshal(key)
	if err != nil {
		return err
	}
	buf.Write(name)
	buf.WriteByte(':')
	buf.Write(raw)
	return nil
}

// UnmarshalJSON reads known keys (including snake_case spellings) and keeps
// everything else for re-serialization.
func (e *Entry) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	for legacy, current := range legacyKeys {
		raw, ok := fields[legacy]
		if !ok {
			continue
		}
		if _, exists := fields[current]; !exists {
			fields[current] = raw
		}
		delete(fields, legacy)
	}

	*e = Entry{}
	decode := func(key string, target any) error {
		raw, ok := fields[key]
		if !ok {
			return nil
		}
		delete(fields, key)
		if err := json.Unmarshal(raw, target); err != nil {
			return fmt.Errorf("decode %s: %w", key, err)
		}
		return nil
	}

	if err := decode(keyOrder, &e.Order); err != nil {
		return err
	}
	if err := decode(keyChapterNumber, &e.ChapterNumber); err != nil {
		return err
	}
	if err := decode(keyChapterTitle, &e.ChapterTitle); err != nil {
		return err
	}
	if err := decode(keyChapterPath, &e.ChapterPath); err != nil {
		return err
	}
	if err := decodeOptionalString(fields, keyMarkdown, &e.Markdown, &e.markdownNull); err != nil {
		return err
	}
	if err := decodeOptionalString(fields, keyAudio, &e.Audio, &e.audioNull); err != nil {
		return err
	}
	if len(fields) > 0 {
		e.extra = fields
	}
	return nil
}

// A JSON null leaves target nil and sets isNull.
func decodeOptionalString(fields map[string]json.RawMessage, key string, target **string, isNull *bool) error {
	raw, ok := fields[key]
	if !ok {
		return nil
	}
	delete(fields, key)
	var value *string
	if err := json.Unmarshal(raw, &value); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	*target = value
	*isNull = value == nil
	return nil
}
