package roster

import (
	"fmt"
	"slices"
)

// DefaultSubjectColor is used when a subject is added without a color.
const DefaultSubjectColor = "#4CAF50"

// DefaultSubjects is the junior high school subject catalog offered by SeedSubjects.
var DefaultSubjects = []Subject{
	{Name: "国語", Color: "#E57373"},
	{Name: "社会", Color: "#FFB74D"},
	{Name: "数学", Color: "#64B5F6"},
	{Name: "理科", Color: "#81C784"},
	{Name: "音楽", Color: "#BA68C8"},
	{Name: "美術", Color: "#F06292"},
	{Name: "保健体育", Color: "#4DB6AC"},
	{Name: "技術・家庭", Color: "#A1887F"},
	{Name: "外国語", Color: "#7986CB"},
	{Name: "道徳", Color: "#FFD54F"},
	{Name: "総合", Color: "#90A4AE"},
	{Name: "特活", Color: "#AED581"},
}

// Subjects returns a copy of the subject catalog.
func (s *Store) Subjects() []Subject {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.subjects)
}

// AddSubject appends sub. Names are unique.
func (s *Store) AddSubject(sub Subject) (Subject, error) {
	sub.Name = normalizeName(sub.Name)
	if sub.Name == "" {
		var errs ValidationErrors
		errs.add("name", "subject name is required", nil, ErrEmptyName)
		return Subject{}, errs.err()
	}
	if sub.Color == "" {
		sub.Color = DefaultSubjectColor
	}

	s.mu.Lock()
	if s.hasSubjectLocked(sub.Name) {
		s.mu.Unlock()
		return Subject{}, fmt.Errorf("subject %s: %w", sub.Name, ErrDuplicate)
	}
	s.subjects = append(s.subjects, sub)
	err := s.commitLocked()
	s.mu.Unlock()

	s.notify(Change{Kind: ChangeSubjects})
	return sub, err
}

// RemoveSubject deletes the subject at index. Out-of-range indexes are a no-op.
func (s *Store) RemoveSubject(index int) (bool, error) {
	s.mu.Lock()
	if index < 0 || index >= len(s.subjects) {
		s.mu.Unlock()
		return false, nil
	}
	s.subjects = slices.Delete(s.subjects, index, index+1)
	err := s.commitLocked()
	s.mu.Unlock()

	s.notify(Change{Kind: ChangeSubjects})
	return true, err
}

// SeedSubjects adds every DefaultSubjects entry that is not yet in the
// catalog and returns how many were added.
func (s *Store) SeedSubjects() (int, error) {
	s.mu.Lock()
	added := 0
	for _, sub := range DefaultSubjects {
		if s.hasSubjectLocked(sub.Name) {
			continue
		}
		s.subjects = append(s.subjects, sub)
		added++
	}
	if added == 0 {
		s.mu.Unlock()
		return 0, nil
	}
	err := s.commitLocked()
	s.mu.Unlock()

	s.notify(Change{Kind: ChangeSubjects})
	return added, err
}

func (s *Store) hasSubjectLocked(name string) bool {
	return slices.ContainsFunc(s.subjects, func(sub Subject) bool { return sub.Name == name })
}
