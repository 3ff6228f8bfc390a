package commands

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/klabast/wb-services/timetable-roster/internal/roster"
)

func newTeachersCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "teachers",
		Short: "Manage teachers",
	}
	cmd.AddCommand(
		newTeachersListCmd(e),
		newTeachersAddCmd(e),
		newTeachersRemoveCmd(e),
	)
	return cmd
}

func newTeachersListCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List teachers",
		Args:  cobra.NoArgs,
		RunE: withRoster(e, func(cmd *cobra.Command, _ []string, r *roster.Roster) error {
			teachers := r.Store.Teachers()
			if len(teachers) == 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), cliMuted.Render("No teachers."))
				return nil
			}

			rows := make([][]string, 0, len(teachers))
			for i, t := range teachers {
				rows = append(rows, []string{
					strconv.Itoa(i),
					t.Name,
					strconv.Itoa(t.Grade),
					t.RoleText,
					formatAssignments(t.Subjects),
					strings.Join(t.Meetings, ", "),
				})
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"#", "氏名", "学年", "役割", "担当", "会議"}, rows))
			return nil
		}),
	}
}

func formatAssignments(subjects []roster.SubjectAssignment) string {
	parts := make([]string, 0, len(subjects))
	for _, a := range subjects {
		ids := make([]string, 0, len(a.Classes))
		for _, c := range a.Classes {
			ids = append(ids, c.ClassID)
		}
		parts = append(parts, a.Subject+"("+strings.Join(ids, ",")+")")
	}
	return strings.Join(parts, " ")
}

// parseAssignment reads "SUBJECT=ID,ID,...".
func parseAssignment(s string) (roster.SubjectAssignment, error) {
	subject, ids, ok := strings.Cut(s, "=")
	if !ok || strings.TrimSpace(subject) == "" {
		return roster.SubjectAssignment{}, fmt.Errorf("invalid --subject %q, want SUBJECT=CLASS[,CLASS...]", s)
	}
	a := roster.SubjectAssignment{Subject: strings.TrimSpace(subject)}
	for _, id := range strings.Split(ids, ",") {
		if id = strings.TrimSpace(id); id != "" {
			a.Classes = append(a.Classes, roster.ClassRef{ClassID: id})
		}
	}
	return a, nil
}

func newTeachersAddCmd(e *env) *cobra.Command {
	var (
		name     string
		grade    int
		role     string
		subjects []string
		meetings []string
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a teacher",
		Long: `Add a teacher. On a terminal without --name an interactive form is shown;
otherwise the teacher is built from flags, e.g.

  timetable-roster teachers add --name 田中 --grade 2 --role homeroom \
    --subject 数学=2-1,2-2 --meeting 職員会議`,
		Args: cobra.NoArgs,
		RunE: withRoster(e, func(cmd *cobra.Command, _ []string, r *roster.Roster) error {
			var t roster.Teacher
			if name == "" && isInteractive() {
				form, err := teacherForm(r)
				if err != nil {
					return err
				}
				t = form
			} else {
				t = roster.Teacher{Name: name, Grade: grade, Role: roster.Role(role), Meetings: meetings}
				for _, s := range subjects {
					a, err := parseAssignment(s)
					if err != nil {
						return err
					}
					t.Subjects = append(t.Subjects, a)
				}
			}

			added, err := r.Store.AddTeacher(t)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), successCard("Teacher added",
				"ID:   "+added.ID,
				"氏名: "+added.Name,
				"担当: "+formatAssignments(added.Subjects)))
			return nil
		}),
	}

	f := cmd.Flags()
	f.StringVar(&name, "name", "", "teacher name")
	f.IntVar(&grade, "grade", 1, "grade (1-"+strconv.Itoa(roster.MaxGrade)+")")
	f.StringVar(&role, "role", string(roster.RoleHomeroom), "homeroom or assistant")
	f.StringArrayVar(&subjects, "subject", nil, "assignment SUBJECT=CLASS[,CLASS...] (repeatable)")
	f.StringArrayVar(&meetings, "meeting", nil, "meeting name (repeatable)")
	return cmd
}

// teacherForm collects a teacher with one subject assignment interactively.
func teacherForm(r *roster.Roster) (roster.Teacher, error) {
	var (
		t       = roster.Teacher{Grade: 1, Role: roster.RoleHomeroom}
		subject string
		classes []string
	)

	grades := make([]huh.Option[int], 0, roster.MaxGrade)
	for g := 1; g <= roster.MaxGrade; g++ {
		grades = append(grades, huh.NewOption(strconv.Itoa(g)+"年", g))
	}

	subjectOpts := make([]huh.Option[string], 0)
	for _, s := range r.Store.Subjects() {
		subjectOpts = append(subjectOpts, huh.NewOption(s.Name, s.Name))
	}

	classOpts := make([]huh.Option[string], 0)
	for _, c := range r.Store.GetActiveClasses() {
		classOpts = append(classOpts, huh.NewOption(c.Name, c.ID))
	}

	meetingOpts := make([]huh.Option[string], 0)
	for _, name := range r.Meetings.Names() {
		meetingOpts = append(meetingOpts, huh.NewOption(name, name))
	}

	var subjectField huh.Field
	if len(subjectOpts) > 0 {
		subjectField = huh.NewSelect[string]().Title("教科").Options(subjectOpts...).Value(&subject)
	} else {
		subjectField = huh.NewInput().Title("教科").Value(&subject).Validate(required("教科"))
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("氏名").Value(&t.Name).Validate(required("氏名")),
			huh.NewSelect[int]().Title("学年").Options(grades...).Value(&t.Grade),
			huh.NewSelect[roster.Role]().Title("役割").Options(
				huh.NewOption(roster.RoleHomeroom.Text(), roster.RoleHomeroom),
				huh.NewOption(roster.RoleAssistant.Text(), roster.RoleAssistant),
			).Value(&t.Role),
		),
		huh.NewGroup(
			subjectField,
			huh.NewMultiSelect[string]().Title("担当クラス").Options(classOpts...).Value(&classes),
		),
		huh.NewGroup(
			huh.NewMultiSelect[string]().Title("参加する会議").Options(meetingOpts...).Value(&t.Meetings),
		),
	)
	if err := form.Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return roster.Teacher{}, ErrCancelled
		}
		return roster.Teacher{}, fmt.Errorf("teacher form: %w", err)
	}

	a := roster.SubjectAssignment{Subject: subject}
	for _, id := range classes {
		a.Classes = append(a.Classes, roster.ClassRef{ClassID: id})
	}
	t.Subjects = []roster.SubjectAssignment{a}
	return t, nil
}

func required(field string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%sを入力してください", field)
		}
		return nil
	}
}

func newTeachersRemoveCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <index>",
		Short: "Remove the teacher at index (see 'teachers list')",
		Args:  cobra.ExactArgs(1),
		RunE: withRoster(e, func(cmd *cobra.Command, args []string, r *roster.Roster) error {
			index, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid index %q: %w", args[0], roster.ErrIndexOutOfRange)
			}
			t, found := r.Store.Teacher(index)
			ok, err := r.Store.RemoveTeacher(index)
			if err != nil {
				return err
			}
			if !ok || !found {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), warnCard("No teacher at index "+args[0]))
				return nil
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), successCard("Teacher removed", "氏名: "+t.Name))
			return nil
		}),
	}
}
