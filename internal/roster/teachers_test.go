package roster

import (
	"errors"
	"reflect"
	"strconv"
	"testing"
)

func TestAddTeacherScenario(t *testing.T) {
	s, a := newTestStore(t)

	added, err := s.AddTeacher(tanaka())
	if err != nil {
		t.Fatalf("AddTeacher() failed: %v", err)
	}
	if added.ID != strconv.FormatInt(testEpoch.UnixMilli(), 10) {
		t.Errorf("id = %q, want creation timestamp", added.ID)
	}
	if added.RoleText != "学級担任" {
		t.Errorf("roleText = %q, want 学級担任", added.RoleText)
	}

	teachers := s.Teachers()
	if len(teachers) != 1 {
		t.Fatalf("teachers = %d, want 1", len(teachers))
	}

	reloaded := NewStore(a, testOptions()...)
	reloaded.Load()
	got := reloaded.Teachers()
	if len(got) != 1 || !reflect.DeepEqual(got[0], teachers[0]) {
		t.Errorf("reloaded teacher differs:\n got %+v\nwant %+v", got, teachers)
	}
}

func TestAddTeacherUniqueIDs(t *testing.T) {
	s, _ := newTestStore(t)

	first, err := s.AddTeacher(tanaka())
	if err != nil {
		t.Fatal(err)
	}
	second, err := s.AddTeacher(tanaka())
	if err != nil {
		t.Fatal(err)
	}
	if first.ID == second.ID {
		t.Errorf("two teachers created in the same millisecond share id %s", first.ID)
	}
}

func TestAddTeacherValidation(t *testing.T) {
	tests := []struct {
		name    string
		teacher Teacher
		wantErr []error
	}{
		{
			name:    "empty",
			teacher: Teacher{},
			wantErr: []error{ErrEmptyName, ErrInvalidGrade, ErrInvalidRole, ErrNoAssignments},
		},
		{
			name:    "blank name",
			teacher: Teacher{Name: "   ", Grade: 1, Role: RoleHomeroom, Subjects: tanaka().Subjects},
			wantErr: []error{ErrEmptyName},
		},
		{
			name:    "grade too high",
			teacher: Teacher{Name: "Kato", Grade: MaxGrade + 1, Role: RoleHomeroom, Subjects: tanaka().Subjects},
			wantErr: []error{ErrInvalidGrade},
		},
		{
			name:    "unknown role",
			teacher: Teacher{Name: "Kato", Grade: 1, Role: "principal", Subjects: tanaka().Subjects},
			wantErr: []error{ErrInvalidRole},
		},
		{
			name: "subject without classes",
			teacher: Teacher{Name: "Kato", Grade: 1, Role: RoleAssistant,
				Subjects: []SubjectAssignment{{Subject: "Math"}}},
			wantErr: []error{ErrNoAssignments},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newTestStore(t)
			_, err := s.AddTeacher(tt.teacher)
			if err == nil {
				t.Fatal("expected validation error")
			}
			var verrs *ValidationErrors
			if !errors.As(err, &verrs) {
				t.Fatalf("expected *ValidationErrors, got %T", err)
			}
			if len(verrs.Errors) != len(tt.wantErr) {
				t.Errorf("got %d errors, want %d: %v", len(verrs.Errors), len(tt.wantErr), err)
			}
			for _, want := range tt.wantErr {
				if !errors.Is(err, want) {
					t.Errorf("expected error to match %v", want)
				}
			}
			if len(s.Teachers()) != 0 {
				t.Error("invalid teacher was stored")
			}
		})
	}
}

func TestNormalizeTeacher(t *testing.T) {
	in := Teacher{
		Name: "  Suzuki  ",
		Role: RoleAssistant,
		Subjects: []SubjectAssignment{
			{Subject: " ", Classes: []ClassRef{{ClassID: "1-1"}}},
			{Subject: "English", Classes: []ClassRef{{ClassID: "1-1"}, {ClassID: "1-1"}, {ClassID: " "}}},
			{Subject: "Art"},
		},
		Meetings: []string{"委員会", " 委員会 ", ""},
	}

	got := NormalizeTeacher(in)
	if got.Name != "Suzuki" {
		t.Errorf("name = %q", got.Name)
	}
	if got.RoleText != "副担任" {
		t.Errorf("roleText = %q", got.RoleText)
	}
	want := []SubjectAssignment{{Subject: "English", Classes: []ClassRef{{ClassID: "1-1"}}}}
	if !reflect.DeepEqual(got.Subjects, want) {
		t.Errorf("subjects = %+v, want %+v", got.Subjects, want)
	}
	if !reflect.DeepEqual(got.Meetings, []string{"委員会"}) {
		t.Errorf("meetings = %v", got.Meetings)
	}
}

func TestAddTeacherFillsClassNames(t *testing.T) {
	s, _ := newTestStore(t)
	s.InitializeDefaultClasses()

	added, err := s.AddTeacher(tanaka())
	if err != nil {
		t.Fatal(err)
	}
	if got := added.Subjects[0].Classes[0].ClassName; got != "2年1組" {
		t.Errorf("className = %q, want 2年1組", got)
	}
}

func TestUpdateTeacher(t *testing.T) {
	s, _ := newTestStore(t)
	added, _ := s.AddTeacher(tanaka())

	changed := tanaka()
	changed.Name = "Tanaka Jr."
	changed.Role = RoleAssistant
	updated, err := s.UpdateTeacher(0, changed)
	if err != nil {
		t.Fatalf("UpdateTeacher() failed: %v", err)
	}
	if updated.ID != added.ID {
		t.Errorf("update changed id from %s to %s", added.ID, updated.ID)
	}
	if got, _ := s.Teacher(0); got.Name != "Tanaka Jr." || got.RoleText != "副担任" {
		t.Errorf("teacher not updated: %+v", got)
	}

	if _, err := s.UpdateTeacher(5, changed); !errors.Is(err, ErrIndexOutOfRange) {
		t.Errorf("expected ErrIndexOutOfRange, got %v", err)
	}
}

func TestRemoveTeacher(t *testing.T) {
	s, _ := newTestStore(t)
	s.AddTeacher(tanaka())

	for _, idx := range []int{-1, 1, 7} {
		removed, err := s.RemoveTeacher(idx)
		if removed || err != nil {
			t.Errorf("RemoveTeacher(%d) = %v, %v; want no-op", idx, removed, err)
		}
	}
	if len(s.Teachers()) != 1 {
		t.Fatal("out-of-range removal changed the roster")
	}

	removed, err := s.RemoveTeacher(0)
	if !removed || err != nil {
		t.Fatalf("RemoveTeacher(0) = %v, %v", removed, err)
	}
	if len(s.Teachers()) != 0 {
		t.Error("teacher not removed")
	}
}

func TestTeacherEditsSurviveReload(t *testing.T) {
	named := func(name string, classID string) Teacher {
		teacher := tanaka()
		teacher.Name = name
		teacher.Subjects[0].Classes = []ClassRef{{ClassID: classID}}
		return teacher
	}

	steps := []struct {
		name  string
		apply func(s *Store) error
		want  []string
	}{
		{"add first", func(s *Store) error {
			_, err := s.AddTeacher(named("Aoki", "1-1"))
			return err
		}, []string{"Aoki"}},
		{"add second", func(s *Store) error {
			_, err := s.AddTeacher(named("Baba", "1-2"))
			return err
		}, []string{"Aoki", "Baba"}},
		{"add more", func(s *Store) error {
			for _, n := range []string{"Chiba", "Doi", "Endo"} {
				if _, err := s.AddTeacher(named(n, "2-1")); err != nil {
					return err
				}
			}
			return nil
		}, []string{"Aoki", "Baba", "Chiba", "Doi", "Endo"}},
		{"update middle", func(s *Store) error {
			_, err := s.UpdateTeacher(2, named("Chiba", "3-3"))
			return err
		}, []string{"Aoki", "Baba", "Chiba", "Doi", "Endo"}},
		{"remove first", func(s *Store) error {
			_, err := s.RemoveTeacher(0)
			return err
		}, []string{"Baba", "Chiba", "Doi", "Endo"}},
		{"remove middle", func(s *Store) error {
			_, err := s.RemoveTeacher(1)
			return err
		}, []string{"Baba", "Doi", "Endo"}},
		{"remove last", func(s *Store) error {
			_, err := s.RemoveTeacher(2)
			return err
		}, []string{"Baba", "Doi"}},
		{"remove out of range", func(s *Store) error {
			_, err := s.RemoveTeacher(9)
			return err
		}, []string{"Baba", "Doi"}},
		{"add after removals", func(s *Store) error {
			_, err := s.AddTeacher(named("Fujii", "1-1"))
			return err
		}, []string{"Baba", "Doi", "Fujii"}},
		{"remove all", func(s *Store) error {
			for range 3 {
				if _, err := s.RemoveTeacher(0); err != nil {
					return err
				}
			}
			return nil
		}, []string{}},
	}

	s, a := newTestStore(t)
	if err := s.InitializeDefaultClasses(); err != nil {
		t.Fatal(err)
	}
	for _, step := range steps {
		if err := step.apply(s); err != nil {
			t.Fatalf("%s: %v", step.name, err)
		}

		names := []string{}
		for _, teacher := range s.Teachers() {
			names = append(names, teacher.Name)
		}
		if !reflect.DeepEqual(names, step.want) {
			t.Errorf("%s: teachers = %v, want %v", step.name, names, step.want)
		}

		reloaded := NewStore(a, testOptions()...)
		reloaded.Load()
		sameState(t, reloaded.Snapshot(), s.Snapshot())
	}

	if got := s.Teachers(); len(got) != 0 {
		t.Fatalf("teachers left: %+v", got)
	}
}

func TestReloadDiscardsUnsavedState(t *testing.T) {
	s, a := newTestStore(t)
	s.InitializeDefaultClasses()
	if _, err := s.AddTeacher(tanaka()); err != nil {
		t.Fatal(err)
	}

	other := NewStore(a, testOptions()...)
	other.Load()
	if _, err := other.RemoveTeacher(0); err != nil {
		t.Fatal(err)
	}

	var change Change
	s.Subscribe(func(c Change) { change = c })
	s.Reload()

	if n := len(s.Teachers()); n != 0 {
		t.Errorf("teachers after reload = %d, want 0", n)
	}
	if change.Kind != ChangeProject {
		t.Errorf("change kind = %q, want %q", change.Kind, ChangeProject)
	}
	sameState(t, s.Snapshot(), other.Snapshot())
}

func TestRemoveMeetingRefs(t *testing.T) {
	s, _ := newTestStore(t)
	teacher := tanaka()
	teacher.Meetings = []string{"職員会議", "委員会"}
	s.AddTeacher(teacher)
	s.AddTeacher(tanaka())

	n, err := s.RemoveMeetingRefs([]string{"委員会", "unknown"})
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("changed = %d, want 1", n)
	}
	if got := s.Teachers()[0].Meetings; !reflect.DeepEqual(got, []string{"職員会議"}) {
		t.Errorf("meetings = %v", got)
	}
}
