package roster

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

// ExportFileName is the suggested download name of an exported project.
const ExportFileName = "timetable-data.json"

// Export renders the current state as an indented project document.
func (s *Store) Export() ([]byte, error) {
	snap := s.Snapshot()
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode project: %w", err)
	}
	return data, nil
}

// ImportFrom reads a whole project document from r and imports it.
func (s *Store) ImportFrom(r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedProject, err)
	}
	return s.Import(data)
}

// Import replaces teachers, classes, subjects and the schedule with the
// content of a project document. The document must be a JSON object with
// array-valued "teachers" and "classes"; subjects and schedule default to
// empty. On any error the current state is left untouched.
func (s *Store) Import(data []byte) error {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedProject, err)
	}

	if !isJSONArray(doc["teachers"]) || !isJSONArray(doc["classes"]) {
		return ErrInvalidProjectFormat
	}

	var snap Snapshot
	if err := json.Unmarshal(doc["teachers"], &snap.Teachers); err != nil {
		return fmt.Errorf("%w: teachers: %v", ErrInvalidProjectFormat, err)
	}
	if err := json.Unmarshal(doc["classes"], &snap.Classes); err != nil {
		return fmt.Errorf("%w: classes: %v", ErrInvalidProjectFormat, err)
	}
	if isJSONArray(doc["subjects"]) {
		if err := json.Unmarshal(doc["subjects"], &snap.Subjects); err != nil {
			return fmt.Errorf("%w: subjects: %v", ErrInvalidProjectFormat, err)
		}
	}
	if isJSONObject(doc["schedule"]) {
		if err := json.Unmarshal(doc["schedule"], &snap.Schedule); err != nil {
			return fmt.Errorf("%w: schedule: %v", ErrInvalidProjectFormat, err)
		}
	}

	s.mu.Lock()
	s.setLocked(snap)
	s.validateLocked()
	for _, t := range s.teachers {
		s.trackIDLocked(t.ID)
	}
	err := s.commitLocked()
	counts := []any{"teachers", len(s.teachers), "classes", len(s.classes), "subjects", len(s.subjects)}
	s.mu.Unlock()

	s.opts.logger.Info("project imported", counts...)
	s.notify(Change{Kind: ChangeProject})
	return err
}

// trackIDLocked keeps generated ids ahead of numeric ids already in use.
func (s *Store) trackIDLocked(id string) {
	var n int64
	if _, err := fmt.Sscan(id, &n); err == nil && n > s.lastID {
		s.lastID = n
	}
}

func isJSONArray(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && raw[0] == '['
}

func isJSONObject(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && raw[0] == '{'
}
