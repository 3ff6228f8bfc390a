package roster

import (
	"slices"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Teachers returns a copy of all teachers in roster order.
func (s *Store) Teachers() []Teacher {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneTeachers(s.teachers)
}

// Teacher returns the teacher at index.
func (s *Store) Teacher(index int) (Teacher, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if index < 0 || index >= len(s.teachers) {
		return Teacher{}, false
	}
	return cloneTeacher(s.teachers[index]), true
}

// AddTeacher validates t, assigns it a new id and appends it.
func (s *Store) AddTeacher(t Teacher) (Teacher, error) {
	s.mu.Lock()
	t, err := s.prepareTeacherLocked(t)
	if err != nil {
		s.mu.Unlock()
		return Teacher{}, err
	}
	t.ID = s.nextIDLocked()
	s.teachers = append(s.teachers, t)
	err = s.commitLocked()
	s.mu.Unlock()

	s.notify(Change{Kind: ChangeTeachers})
	return cloneTeacher(t), err
}

// UpdateTeacher replaces the teacher at index, keeping its id. An index
// outside the roster is a caller bug and returns ErrIndexOutOfRange.
func (s *Store) UpdateTeacher(index int, t Teacher) (Teacher, error) {
	s.mu.Lock()
	if index < 0 || index >= len(s.teachers) {
		s.mu.Unlock()
		return Teacher{}, ErrIndexOutOfRange
	}
	t, err := s.prepareTeacherLocked(t)
	if err != nil {
		s.mu.Unlock()
		return Teacher{}, err
	}
	t.ID = s.teachers[index].ID
	s.teachers[index] = t
	err = s.commitLocked()
	s.mu.Unlock()

	s.notify(Change{Kind: ChangeTeachers})
	return cloneTeacher(t), err
}

// RemoveTeacher deletes the teacher at index. Out-of-range indexes are a no-op.
func (s *Store) RemoveTeacher(index int) (bool, error) {
	s.mu.Lock()
	if index < 0 || index >= len(s.teachers) {
		s.mu.Unlock()
		return false, nil
	}
	s.teachers = slices.Delete(s.teachers, index, index+1)
	err := s.commitLocked()
	s.mu.Unlock()

	s.notify(Change{Kind: ChangeTeachers})
	return true, err
}

// RemoveMeetingRefs drops the given meeting names from every teacher and
// returns how many teachers changed.
func (s *Store) RemoveMeetingRefs(names []string) (int, error) {
	if len(names) == 0 {
		return 0, nil
	}

	s.mu.Lock()
	changed := 0
	for i := range s.teachers {
		before := len(s.teachers[i].Meetings)
		s.teachers[i].Meetings = slices.DeleteFunc(s.teachers[i].Meetings, func(m string) bool {
			return slices.Contains(names, m)
		})
		if len(s.teachers[i].Meetings) != before {
			changed++
		}
	}
	if changed == 0 {
		s.mu.Unlock()
		return 0, nil
	}
	err := s.commitLocked()
	s.mu.Unlock()

	s.notify(Change{Kind: ChangeTeachers})
	return changed, err
}

// ValidateTeacher checks the fields a teacher needs before it is stored.
// It expects a normalized teacher (see NormalizeTeacher).
func ValidateTeacher(t Teacher) error {
	var errs ValidationErrors
	if t.Name == "" {
		errs.add("name", "teacher name is required", nil, ErrEmptyName)
	}
	if t.Grade < 1 || t.Grade > MaxGrade {
		errs.add("grade", "grade must be between 1 and "+strconv.Itoa(MaxGrade), t.Grade, ErrInvalidGrade)
	}
	if !t.Role.Valid() {
		errs.add("role", "role must be homeroom or assistant", string(t.Role), ErrInvalidRole)
	}
	if len(t.Subjects) == 0 {
		errs.add("subjects", "at least one subject with one class is required", nil, ErrNoAssignments)
	}
	return errs.err()
}

// NormalizeTeacher trims and NFC-normalizes names, derives roleText, drops
// blank or class-less assignments and deduplicates classes and meetings.
func NormalizeTeacher(t Teacher) Teacher {
	t.Name = normalizeName(t.Name)
	t.RoleText = t.Role.Text()

	subjects := make([]SubjectAssignment, 0, len(t.Subjects))
	for _, a := range t.Subjects {
		a.Subject = normalizeName(a.Subject)
		if a.Subject == "" {
			continue
		}
		classes := make([]ClassRef, 0, len(a.Classes))
		for _, c := range a.Classes {
			c.ClassID = strings.TrimSpace(c.ClassID)
			if c.ClassID == "" || slices.ContainsFunc(classes, func(x ClassRef) bool { return x.ClassID == c.ClassID }) {
				continue
			}
			classes = append(classes, c)
		}
		if len(classes) == 0 {
			continue
		}
		subjects = append(subjects, SubjectAssignment{Subject: a.Subject, Classes: classes})
	}
	t.Subjects = subjects

	meetings := make([]string, 0, len(t.Meetings))
	for _, m := range t.Meetings {
		m = normalizeName(m)
		if m == "" || slices.Contains(meetings, m) {
			continue
		}
		meetings = append(meetings, m)
	}
	t.Meetings = meetings
	return t
}

// prepareTeacherLocked normalizes and validates t and fills class names
// from the class catalog (caller must hold the lock).
func (s *Store) prepareTeacherLocked(t Teacher) (Teacher, error) {
	t = NormalizeTeacher(t)
	if err := ValidateTeacher(t); err != nil {
		return Teacher{}, err
	}
	for i := range t.Subjects {
		for j := range t.Subjects[i].Classes {
			ref := &t.Subjects[i].Classes[j]
			if c, ok := s.findClassLocked(ref.ClassID); ok {
				ref.ClassName = c.Name
			}
		}
	}
	return t, nil
}

// nextIDLocked derives a teacher id from the current time in milliseconds,
// bumping it when two teachers are created within the same millisecond.
func (s *Store) nextIDLocked() string {
	id := s.opts.now().UnixMilli()
	if id <= s.lastID {
		id = s.lastID + 1
	}
	for s.teacherIDExistsLocked(strconv.FormatInt(id, 10)) {
		id++
	}
	s.lastID = id
	return strconv.FormatInt(id, 10)
}

func (s *Store) teacherIDExistsLocked(id string) bool {
	return slices.ContainsFunc(s.teachers, func(t Teacher) bool { return t.ID == id })
}

// normalizeLoadedTeacher fixes up collections of a teacher read from storage
// or an import without rejecting it.
func normalizeLoadedTeacher(t *Teacher) {
	if t.Subjects == nil {
		t.Subjects = []SubjectAssignment{}
	}
	for i := range t.Subjects {
		if t.Subjects[i].Classes == nil {
			t.Subjects[i].Classes = []ClassRef{}
		}
	}
	if t.Meetings == nil {
		t.Meetings = []string{}
	}
	if t.RoleText == "" {
		t.RoleText = t.Role.Text()
	}
}

func normalizeName(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}
