// Package roster holds the school roster: the Entity Store of teachers,
// classes and subjects, the meeting catalog, special-support hour budgets,
// and the project import/export gateway. Every mutation is persisted in full
// through a Persistence before subscribers are notified.
package roster

import (
	"log/slog"
	"maps"
	"slices"
	"sync"
	"time"
)

// Storage keys
const (
	KeyRosterData   = "timetable-data"
	KeyLegacyRoster = "timetable-generator-data"
	KeyPrefix       = "timetable-"
	KeyMeetings     = "school-meetings"
	KeyHoursConfig  = "special-support-hours-config"
)

// Catalog limits
const (
	MaxGrade        = 6
	DefaultGrades   = 3
	ClassesPerGrade = 15
)

// Persistence is the storage contract the stores depend on.
// storage.Adapter satisfies it.
type Persistence interface {
	Save(key string, value any) bool
	Load(key string, target any) bool
	Cleanup(prefix, keep string) int
}

// ChangeKind names the collection a Change touched.
type ChangeKind string

const (
	ChangeTeachers ChangeKind = "teachers"
	ChangeClasses  ChangeKind = "classes"
	ChangeSubjects ChangeKind = "subjects"
	ChangeProject  ChangeKind = "project"
	ChangeMeetings ChangeKind = "meetings"
	ChangeHours    ChangeKind = "hours"
)

// Change is delivered to subscribers after a mutation has been persisted.
// Removed lists the class ids or meeting names that no longer exist.
// DroppedTeachers names the teachers deleted because none of their assigned
// classes remained.
type Change struct {
	Kind            ChangeKind
	Removed         []string
	DroppedTeachers []string
}

// Listener receives changes. It runs after the store lock is released.
type Listener func(Change)

type options struct {
	logger *slog.Logger
	now    func() time.Time
}

// Option configures a store.
type Option func(*options)

// WithLogger sets the logger used for load/save diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithClock overrides time.Now, used for teacher ids and snapshot timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func buildOptions(opts []Option) options {
	o := options{logger: slog.Default(), now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// listeners is embedded by every store that publishes changes.
type listeners struct {
	mu  sync.Mutex
	fns []Listener
}

// Subscribe registers l for every future change.
func (ls *listeners) Subscribe(l Listener) {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	ls.fns = append(ls.fns, l)
}

func (ls *listeners) notify(c Change) {
	ls.mu.Lock()
	fns := slices.Clone(ls.fns)
	ls.mu.Unlock()

	for _, fn := range fns {
		fn(c)
	}
}

// Store is the Entity Store: the authoritative in-memory teachers, classes,
// subjects and schedule for the running process.
type Store struct {
	listeners

	mu       sync.RWMutex
	teachers []Teacher
	classes  []ClassRoom
	subjects []Subject
	schedule Schedule
	lastID   int64

	persist Persistence
	opts    options
}

// NewStore returns an empty store backed by p. Call Load to read persisted state.
func NewStore(p Persistence, opts ...Option) *Store {
	return &Store{
		teachers: []Teacher{},
		classes:  []ClassRoom{},
		subjects: []Subject{},
		schedule: Schedule{},
		persist:  p,
		opts:     buildOptions(opts),
	}
}

// Load replaces in-memory state with the persisted blob. When the canonical
// key is absent, the legacy generator key is adopted once and re-saved in the
// canonical form. A missing or unreadable blob leaves the store empty.
func (s *Store) Load() {
	var snap Snapshot
	loaded := s.persist.Load(KeyRosterData, &snap)

	migrated := false
	if !loaded {
		var legacy Snapshot
		if s.persist.Load(KeyLegacyRoster, &legacy) {
			snap, loaded, migrated = legacy, true, true
			s.opts.logger.Info("adopting legacy roster data", "key", KeyLegacyRoster)
		}
	}

	s.mu.Lock()
	if loaded {
		s.setLocked(snap)
		s.validateLocked()
		for _, t := range s.teachers {
			s.trackIDLocked(t.ID)
		}
		s.opts.logger.Info("loaded roster from storage",
			"teachers", len(s.teachers),
			"classes", len(s.classes),
			"subjects", len(s.subjects))
	} else {
		s.setLocked(Snapshot{})
		s.opts.logger.Info("no roster data found in storage")
	}
	if migrated {
		if err := s.commitLocked(); err != nil {
			s.opts.logger.Warn("failed to persist migrated roster", "error", err)
		}
	}
	s.mu.Unlock()
}

// Snapshot returns a deep copy of the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return Snapshot{
		Teachers:  cloneTeachers(s.teachers),
		Classes:   slices.Clone(s.classes),
		Subjects:  slices.Clone(s.subjects),
		Schedule:  maps.Clone(s.schedule),
		Timestamp: s.opts.now().UnixMilli(),
	}
}

// Save persists the current state without changing it.
func (s *Store) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.commitLocked()
}

// Reload re-reads the persisted blob, discarding in-memory state, and
// notifies subscribers. Storage is authoritative, so nothing is reconciled.
func (s *Store) Reload() {
	s.Load()
	s.notify(Change{Kind: ChangeProject})
}

// Reset clears teachers, classes, subjects and the schedule.
func (s *Store) Reset() error {
	s.mu.Lock()
	removed := classIDs(s.classes)
	s.setLocked(Snapshot{})
	err := s.commitLocked()
	s.mu.Unlock()

	s.notify(Change{Kind: ChangeProject, Removed: removed})
	return err
}

// ValidateData strips teachers, classes and subjects that have no name.
func (s *Store) ValidateData() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.validateLocked()
}

func (s *Store) validateLocked() {
	s.teachers = slices.DeleteFunc(s.teachers, func(t Teacher) bool { return t.Name == "" })
	s.classes = slices.DeleteFunc(s.classes, func(c ClassRoom) bool { return c.Name == "" })
	s.subjects = slices.DeleteFunc(s.subjects, func(sub Subject) bool { return sub.Name == "" })

	for i := range s.teachers {
		normalizeLoadedTeacher(&s.teachers[i])
	}
	for i := range s.classes {
		s.classes[i].Type = s.normalizeClassType(s.classes[i])
	}
}

// setLocked installs snap, replacing nil collections with empty ones so that
// persisted and in-memory forms compare equal.
func (s *Store) setLocked(snap Snapshot) {
	s.teachers = snap.Teachers
	s.classes = snap.Classes
	s.subjects = snap.Subjects
	s.schedule = snap.Schedule
	if s.teachers == nil {
		s.teachers = []Teacher{}
	}
	if s.classes == nil {
		s.classes = []ClassRoom{}
	}
	if s.subjects == nil {
		s.subjects = []Subject{}
	}
	if s.schedule == nil {
		s.schedule = Schedule{}
	}
}

// commitLocked writes the whole state under the canonical key and drops
// stale keys sharing its prefix (caller must hold the write lock).
func (s *Store) commitLocked() error {
	snap := Snapshot{
		Teachers:  s.teachers,
		Classes:   s.classes,
		Subjects:  s.subjects,
		Schedule:  s.schedule,
		Timestamp: s.opts.now().UnixMilli(),
	}
	if !s.persist.Save(KeyRosterData, snap) {
		return ErrSaveFailed
	}
	s.persist.Cleanup(KeyPrefix, KeyRosterData)
	return nil
}

func cloneTeachers(in []Teacher) []Teacher {
	out := make([]Teacher, len(in))
	for i, t := range in {
		out[i] = cloneTeacher(t)
	}
	return out
}

func cloneTeacher(t Teacher) Teacher {
	t.Meetings = slices.Clone(t.Meetings)
	subjects := make([]SubjectAssignment, len(t.Subjects))
	for i, a := range t.Subjects {
		subjects[i] = SubjectAssignment{Subject: a.Subject, Classes: slices.Clone(a.Classes)}
	}
	t.Subjects = subjects
	return t
}
