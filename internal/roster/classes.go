package roster

import (
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"
)

var (
	regularClassName = regexp.MustCompile(`^(\d+)年(\d+)組$`)
	specialClassName = regexp.MustCompile(`^(\d+)年特支(\d+)組$`)
)

// ClassID returns the stable id of class number n in grade.
func ClassID(grade, n int) string {
	return fmt.Sprintf("%d-%d", grade, n)
}

// ClassName returns the display name of regular class number n in grade.
func ClassName(grade, n int) string {
	return fmt.Sprintf("%d年%d組", grade, n)
}

// NewClass returns an active regular class.
func NewClass(grade, n int) ClassRoom {
	return ClassRoom{
		ID:     ClassID(grade, n),
		Name:   ClassName(grade, n),
		Grade:  grade,
		Type:   ClassRegular,
		Active: true,
	}
}

// gradeClasses returns the ClassesPerGrade default classes of grade.
func gradeClasses(grade int) []ClassRoom {
	out := make([]ClassRoom, 0, ClassesPerGrade)
	for n := 1; n <= ClassesPerGrade; n++ {
		out = append(out, NewClass(grade, n))
	}
	return out
}

// Classes returns a copy of all classes.
func (s *Store) Classes() []ClassRoom {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.classes)
}

// Class returns the class with id.
func (s *Store) Class(id string) (ClassRoom, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.findClassLocked(id)
}

// GetActiveClasses returns the classes whose active flag is set.
func (s *Store) GetActiveClasses() []ClassRoom {
	return s.filterClasses(func(c ClassRoom) bool { return c.Active })
}

// GetClassesByGrade returns the classes of grade.
func (s *Store) GetClassesByGrade(grade int) []ClassRoom {
	return s.filterClasses(func(c ClassRoom) bool { return c.Grade == grade })
}

// SpecialSupportClasses returns the classes of type special_support.
func (s *Store) SpecialSupportClasses() []ClassRoom {
	return s.filterClasses(func(c ClassRoom) bool { return c.Type == ClassSpecialSupport })
}

func (s *Store) filterClasses(keep func(ClassRoom) bool) []ClassRoom {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []ClassRoom{}
	for _, c := range s.classes {
		if keep(c) {
			out = append(out, c)
		}
	}
	return out
}

// AddClass appends c. The id must be unique and the name non-empty.
func (s *Store) AddClass(c ClassRoom) (ClassRoom, error) {
	c.ID = strings.TrimSpace(c.ID)
	c.Name = normalizeName(c.Name)
	c.Type = s.normalizeClassType(c)

	var errs ValidationErrors
	if c.ID == "" {
		errs.add("id", "class id is required", nil, ErrEmptyName)
	}
	if c.Name == "" {
		errs.add("name", "class name is required", nil, ErrEmptyName)
	}
	if c.Grade < 1 || c.Grade > MaxGrade {
		errs.add("grade", "grade must be between 1 and "+strconv.Itoa(MaxGrade), c.Grade, ErrInvalidGrade)
	}
	if err := errs.err(); err != nil {
		return ClassRoom{}, err
	}

	s.mu.Lock()
	if _, ok := s.findClassLocked(c.ID); ok {
		s.mu.Unlock()
		return ClassRoom{}, fmt.Errorf("class %s: %w", c.ID, ErrDuplicate)
	}
	s.classes = append(s.classes, c)
	err := s.commitLocked()
	s.mu.Unlock()

	s.notify(Change{Kind: ChangeClasses})
	return c, err
}

// RemoveClass deletes the class with id. Unknown ids are a no-op.
func (s *Store) RemoveClass(id string) (bool, error) {
	s.mu.Lock()
	idx := s.classIndexLocked(id)
	if idx < 0 {
		s.mu.Unlock()
		return false, nil
	}
	s.classes = slices.Delete(s.classes, idx, idx+1)
	dropped := s.syncClassRefsLocked()
	err := s.commitLocked()
	s.mu.Unlock()

	s.notify(Change{Kind: ChangeClasses, Removed: []string{id}, DroppedTeachers: dropped})
	return true, err
}

// ToggleClassType flips a class between regular and special support and
// rewrites its display name to match. The id does not change.
func (s *Store) ToggleClassType(id string) (ClassRoom, bool, error) {
	s.mu.Lock()
	idx := s.classIndexLocked(id)
	if idx < 0 {
		s.mu.Unlock()
		return ClassRoom{}, false, nil
	}
	toggleTypeLocked(&s.classes[idx])
	c := s.classes[idx]
	s.syncClassRefsLocked()
	err := s.commitLocked()
	s.mu.Unlock()

	s.notify(Change{Kind: ChangeClasses})
	return c, true, err
}

// ToggleClassActive flips the active flag of a class.
func (s *Store) ToggleClassActive(id string) (ClassRoom, bool, error) {
	s.mu.Lock()
	idx := s.classIndexLocked(id)
	if idx < 0 {
		s.mu.Unlock()
		return ClassRoom{}, false, nil
	}
	s.classes[idx].Active = !s.classes[idx].Active
	c := s.classes[idx]
	err := s.commitLocked()
	s.mu.Unlock()

	s.notify(Change{Kind: ChangeClasses})
	return c, true, err
}

// InitializeDefaultClasses replaces every class with ClassesPerGrade regular
// classes for each of grades 1..DefaultGrades.
func (s *Store) InitializeDefaultClasses() error {
	classes := make([]ClassRoom, 0, DefaultGrades*ClassesPerGrade)
	for grade := 1; grade <= DefaultGrades; grade++ {
		classes = append(classes, gradeClasses(grade)...)
	}

	s.mu.Lock()
	before := classIDs(s.classes)
	s.classes = classes
	dropped := s.syncClassRefsLocked()
	err := s.commitLocked()
	removed := missingIDs(before, s.classes)
	s.mu.Unlock()

	s.notify(Change{Kind: ChangeClasses, Removed: removed, DroppedTeachers: dropped})
	return err
}

// AddGradeClasses discards every class of grade, including special-support
// and inactive customizations, and regenerates its ClassesPerGrade regular
// classes. Other grades are left as they are.
func (s *Store) AddGradeClasses(grade int) error {
	if grade < 1 || grade > MaxGrade {
		return fmt.Errorf("grade %d: %w", grade, ErrInvalidGrade)
	}

	s.mu.Lock()
	before := classIDs(s.classes)
	kept := slices.DeleteFunc(s.classes, func(c ClassRoom) bool { return c.Grade == grade })
	removedCount := len(before) - len(kept)
	s.classes = append(kept, gradeClasses(grade)...)
	dropped := s.syncClassRefsLocked()
	err := s.commitLocked()
	removed := missingIDs(before, s.classes)
	s.mu.Unlock()

	s.opts.logger.Debug("regenerated grade classes", "grade", grade, "replaced", removedCount, "total", len(before)-removedCount+ClassesPerGrade)
	s.notify(Change{Kind: ChangeClasses, Removed: removed, DroppedTeachers: dropped})
	return err
}

// RemoveInactiveClasses deletes every inactive class and returns them.
func (s *Store) RemoveInactiveClasses() ([]ClassRoom, error) {
	s.mu.Lock()
	var removed []ClassRoom
	for _, c := range s.classes {
		if !c.Active {
			removed = append(removed, c)
		}
	}
	if len(removed) == 0 {
		s.mu.Unlock()
		return nil, nil
	}
	s.classes = slices.DeleteFunc(s.classes, func(c ClassRoom) bool { return !c.Active })
	dropped := s.syncClassRefsLocked()
	err := s.commitLocked()
	s.mu.Unlock()

	s.notify(Change{Kind: ChangeClasses, Removed: classIDs(removed), DroppedTeachers: dropped})
	return removed, err
}

// BulkToggleSpecialSupport turns every active regular class of grade into a
// special-support class. A grade of 0 targets all grades.
func (s *Store) BulkToggleSpecialSupport(grade int) ([]ClassRoom, error) {
	s.mu.Lock()
	var changed []ClassRoom
	for i := range s.classes {
		c := &s.classes[i]
		if c.Type != ClassRegular || !c.Active || (grade != 0 && c.Grade != grade) {
			continue
		}
		toggleTypeLocked(c)
		changed = append(changed, *c)
	}
	if len(changed) == 0 {
		s.mu.Unlock()
		return nil, nil
	}
	s.syncClassRefsLocked()
	err := s.commitLocked()
	s.mu.Unlock()

	s.notify(Change{Kind: ChangeClasses})
	return changed, err
}

func toggleTypeLocked(c *ClassRoom) {
	if c.Type == ClassRegular {
		c.Type = ClassSpecialSupport
		c.Name = regularClassName.ReplaceAllString(c.Name, "${1}年特支${2}組")
	} else {
		c.Type = ClassRegular
		c.Name = specialClassName.ReplaceAllString(c.Name, "${1}年${2}組")
	}
}

// syncClassRefsLocked drops teacher assignments to classes that no longer
// exist and refreshes the class names of the remaining ones. A teacher left
// without any assignment is removed, since a teacher needs at least one
// assigned class. The names of removed teachers are returned.
func (s *Store) syncClassRefsLocked() []string {
	names := make(map[string]string, len(s.classes))
	for _, c := range s.classes {
		names[c.ID] = c.Name
	}

	var dropped []string
	kept := s.teachers[:0]
	for _, t := range s.teachers {
		had := len(t.Subjects) > 0
		for j := range t.Subjects {
			a := &t.Subjects[j]
			a.Classes = slices.DeleteFunc(a.Classes, func(ref ClassRef) bool {
				_, ok := names[ref.ClassID]
				return !ok
			})
			for k := range a.Classes {
				a.Classes[k].ClassName = names[a.Classes[k].ClassID]
			}
		}
		t.Subjects = slices.DeleteFunc(t.Subjects, func(a SubjectAssignment) bool { return len(a.Classes) == 0 })
		if had && len(t.Subjects) == 0 {
			dropped = append(dropped, t.Name)
			continue
		}
		kept = append(kept, t)
	}
	clear(s.teachers[len(kept):])
	s.teachers = kept
	if len(dropped) > 0 {
		s.opts.logger.Info("removed teachers without remaining classes", "teachers", dropped)
	}
	return dropped
}

func (s *Store) findClassLocked(id string) (ClassRoom, bool) {
	if idx := s.classIndexLocked(id); idx >= 0 {
		return s.classes[idx], true
	}
	return ClassRoom{}, false
}

func (s *Store) classIndexLocked(id string) int {
	return slices.IndexFunc(s.classes, func(c ClassRoom) bool { return c.ID == id })
}

// normalizeClassType maps legacy spellings of c's type onto ClassType
// values. An empty type means regular; any other unknown type is coerced to
// regular with a warning.
func (s *Store) normalizeClassType(c ClassRoom) ClassType {
	switch c.Type {
	case ClassSpecialSupport, "special-support", "特別支援":
		return ClassSpecialSupport
	case ClassRegular, "":
		return ClassRegular
	default:
		s.opts.logger.Warn("unknown class type, treating as regular", "class", c.ID, "type", string(c.Type))
		return ClassRegular
	}
}

func classIDs(classes []ClassRoom) []string {
	ids := make([]string, len(classes))
	for i, c := range classes {
		ids[i] = c.ID
	}
	return ids
}

// missingIDs returns the ids in before that no class in after carries.
func missingIDs(before []string, after []ClassRoom) []string {
	var out []string
	for _, id := range before {
		if !slices.ContainsFunc(after, func(c ClassRoom) bool { return c.ID == id }) {
			out = append(out, id)
		}
	}
	return out
}
