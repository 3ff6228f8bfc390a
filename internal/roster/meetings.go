package roster

import (
	"encoding/json"
	"fmt"
	"slices"
	"sync"
)

// Weekly slot bounds for meetings.
const (
	MinSlot = 1
	MaxSlot = 7
)

// DefaultMeetings is installed when no meeting list has been stored yet.
var DefaultMeetings = []Meeting{
	{Name: "職員会議", Day: 3, Period: 6},
	{Name: "学年会議", Day: 2, Period: 6},
	{Name: "教科会議", Day: 4, Period: 6},
	{Name: "委員会", Day: 5, Period: 6},
	{Name: "PTA会議", Day: 1, Period: 7},
	{Name: "特別支援会議", Day: 3, Period: 7},
	{Name: "安全対策会議", Day: 2, Period: 7},
	{Name: "研修会議", Day: 4, Period: 7},
}

// MeetingStore is the recurring staff meeting catalog. It is persisted under
// its own key, independent of the Entity Store blob.
type MeetingStore struct {
	listeners

	mu       sync.RWMutex
	meetings []Meeting

	persist Persistence
	opts    options
}

// NewMeetingStore returns an empty catalog backed by p. Call Load to read it.
func NewMeetingStore(p Persistence, opts ...Option) *MeetingStore {
	return &MeetingStore{
		meetings: []Meeting{},
		persist:  p,
		opts:     buildOptions(opts),
	}
}

// Load reads the catalog. A missing or unreadable list is replaced by
// DefaultMeetings, and a legacy list of plain names is converted to records
// with round-robin slots. Either upgrade is written back immediately.
func (m *MeetingStore) Load() {
	var raw []json.RawMessage
	loaded := m.persist.Load(KeyMeetings, &raw)

	m.mu.Lock()
	defer m.mu.Unlock()

	switch {
	case !loaded:
		m.meetings = slices.Clone(DefaultMeetings)
		m.opts.logger.Info("installing default meetings", "count", len(m.meetings))
		if err := m.commitLocked(); err != nil {
			m.opts.logger.Warn("failed to persist default meetings", "error", err)
		}
	case isLegacyMeetingList(raw):
		m.meetings = migrateMeetingNames(raw)
		m.opts.logger.Info("migrated legacy meeting list", "count", len(m.meetings))
		if err := m.commitLocked(); err != nil {
			m.opts.logger.Warn("failed to persist migrated meetings", "error", err)
		}
	default:
		m.meetings = decodeMeetings(raw, m.opts)
	}
}

// Meetings returns a copy of the catalog in display order.
func (m *MeetingStore) Meetings() []Meeting {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.meetings)
}

// Names returns the meeting names in display order.
func (m *MeetingStore) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, len(m.meetings))
	for i, mt := range m.meetings {
		names[i] = mt.Name
	}
	return names
}

// Add appends a meeting. Names are compared exactly after trimming.
func (m *MeetingStore) Add(name string, day, period int) (Meeting, error) {
	mt := Meeting{Name: normalizeName(name), Day: day, Period: period}
	if err := ValidateMeeting(mt); err != nil {
		return Meeting{}, err
	}

	m.mu.Lock()
	if slices.ContainsFunc(m.meetings, func(x Meeting) bool { return x.Name == mt.Name }) {
		m.mu.Unlock()
		return Meeting{}, fmt.Errorf("meeting %s: %w", mt.Name, ErrDuplicate)
	}
	m.meetings = append(m.meetings, mt)
	err := m.commitLocked()
	m.mu.Unlock()

	m.notify(Change{Kind: ChangeMeetings})
	return mt, err
}

// Remove deletes the meeting at index. confirm must repeat the meeting name;
// a mismatch leaves the catalog unchanged. Out-of-range indexes are a no-op.
func (m *MeetingStore) Remove(index int, confirm string) (bool, error) {
	m.mu.Lock()
	if index < 0 || index >= len(m.meetings) {
		m.mu.Unlock()
		return false, nil
	}
	name := m.meetings[index].Name
	if normalizeName(confirm) != name {
		m.mu.Unlock()
		return false, ErrConfirmationMismatch
	}
	m.meetings = slices.Delete(m.meetings, index, index+1)
	err := m.commitLocked()
	m.mu.Unlock()

	m.notify(Change{Kind: ChangeMeetings, Removed: []string{name}})
	return true, err
}

// Replace rebuilds the catalog from list in order. Entries with an empty
// name are dropped and later duplicates of a name are ignored. Any invalid
// slot rejects the whole list.
func (m *MeetingStore) Replace(list []Meeting) error {
	next := make([]Meeting, 0, len(list))
	var errs ValidationErrors
	for i, mt := range list {
		mt.Name = normalizeName(mt.Name)
		if mt.Name == "" || slices.ContainsFunc(next, func(x Meeting) bool { return x.Name == mt.Name }) {
			continue
		}
		if !validSlot(mt.Day) || !validSlot(mt.Period) {
			errs.add(fmt.Sprintf("meetings[%d]", i), "day and period must be between 1 and 7", mt.Name, ErrInvalidSlot)
			continue
		}
		next = append(next, mt)
	}
	if err := errs.err(); err != nil {
		return err
	}
	return m.install(next)
}

// ResetToDefaults replaces the catalog with DefaultMeetings.
func (m *MeetingStore) ResetToDefaults() error {
	return m.install(slices.Clone(DefaultMeetings))
}

func (m *MeetingStore) install(next []Meeting) error {
	m.mu.Lock()
	var removed []string
	for _, old := range m.meetings {
		if !slices.ContainsFunc(next, func(x Meeting) bool { return x.Name == old.Name }) {
			removed = append(removed, old.Name)
		}
	}
	m.meetings = next
	err := m.commitLocked()
	m.mu.Unlock()

	m.notify(Change{Kind: ChangeMeetings, Removed: removed})
	return err
}

func (m *MeetingStore) commitLocked() error {
	if !m.persist.Save(KeyMeetings, m.meetings) {
		return ErrSaveFailed
	}
	return nil
}

// ValidateMeeting checks name and slot bounds.
func ValidateMeeting(mt Meeting) error {
	var errs ValidationErrors
	if mt.Name == "" {
		errs.add("name", "meeting name is required", nil, ErrEmptyName)
	}
	if !validSlot(mt.Day) {
		errs.add("day", "day must be between 1 and 7", mt.Day, ErrInvalidSlot)
	}
	if !validSlot(mt.Period) {
		errs.add("period", "period must be between 1 and 7", mt.Period, ErrInvalidSlot)
	}
	return errs.err()
}

func validSlot(n int) bool {
	return n >= MinSlot && n <= MaxSlot
}

// isLegacyMeetingList reports whether raw is a non-empty list of JSON strings.
func isLegacyMeetingList(raw []json.RawMessage) bool {
	if len(raw) == 0 {
		return false
	}
	for _, r := range raw {
		var s string
		if json.Unmarshal(r, &s) != nil {
			return false
		}
	}
	return true
}

// migrateMeetingNames converts plain names to records: weekday cycles
// Monday to Friday and the first four meetings take period 6, the rest 7.
func migrateMeetingNames(raw []json.RawMessage) []Meeting {
	out := make([]Meeting, 0, len(raw))
	for i, r := range raw {
		var name string
		_ = json.Unmarshal(r, &name)
		period := 7
		if i < 4 {
			period = 6
		}
		out = append(out, Meeting{Name: normalizeName(name), Day: i%5 + 1, Period: period})
	}
	return out
}

func decodeMeetings(raw []json.RawMessage, o options) []Meeting {
	out := make([]Meeting, 0, len(raw))
	for i, r := range raw {
		var mt Meeting
		if err := json.Unmarshal(r, &mt); err != nil || mt.Name == "" {
			o.logger.Warn("skipping unreadable meeting", "index", i)
			continue
		}
		out = append(out, mt)
	}
	return out
}
