package commands

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/klabast/wb-services/timetable-roster/internal/roster"
)

func newSubjectsCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "subjects",
		Short: "Manage the subject catalog",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List subjects",
		Args:  cobra.NoArgs,
		RunE: withRoster(e, func(cmd *cobra.Command, _ []string, r *roster.Roster) error {
			subjects := r.Store.Subjects()
			if len(subjects) == 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), cliMuted.Render("No subjects. Run 'timetable-roster subjects seed' for the defaults."))
				return nil
			}
			rows := make([][]string, 0, len(subjects))
			for i, s := range subjects {
				swatch := lipgloss.NewStyle().Foreground(lipgloss.Color(s.Color)).Render("■")
				rows = append(rows, []string{strconv.Itoa(i), s.Name, swatch + " " + s.Color})
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"#", "教科", "色"}, rows))
			return nil
		}),
	}

	var color string
	add := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a subject",
		Args:  cobra.ExactArgs(1),
		RunE: withRoster(e, func(cmd *cobra.Command, args []string, r *roster.Roster) error {
			s, err := r.Store.AddSubject(roster.Subject{Name: args[0], Color: color})
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), successCard("Subject added", s.Name+" "+s.Color))
			return nil
		}),
	}
	add.Flags().StringVar(&color, "color", roster.DefaultSubjectColor, "display color")

	remove := &cobra.Command{
		Use:   "remove <index>",
		Short: "Remove the subject at index",
		Args:  cobra.ExactArgs(1),
		RunE: withRoster(e, func(cmd *cobra.Command, args []string, r *roster.Roster) error {
			index, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid index %q: %w", args[0], roster.ErrIndexOutOfRange)
			}
			ok, err := r.Store.RemoveSubject(index)
			if err != nil {
				return err
			}
			if !ok {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), warnCard("No subject at index "+args[0]))
				return nil
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), successCard("Subject removed"))
			return nil
		}),
	}

	seed := &cobra.Command{
		Use:   "seed",
		Short: "Add the default subjects that are missing",
		Args:  cobra.NoArgs,
		RunE: withRoster(e, func(cmd *cobra.Command, _ []string, r *roster.Roster) error {
			n, err := r.Store.SeedSubjects()
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), successCard(fmt.Sprintf("Added %d subjects", n)))
			return nil
		}),
	}

	cmd.AddCommand(list, add, remove, seed)
	return cmd
}
