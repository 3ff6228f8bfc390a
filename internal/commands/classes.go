package commands

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/klabast/wb-services/timetable-roster/internal/roster"
)

func newClassesCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "classes",
		Short: "Manage classes",
	}
	cmd.AddCommand(
		newClassesListCmd(e),
		newClassesInitCmd(e),
		newClassesAddGradeCmd(e),
		newClassesToggleTypeCmd(e),
		newClassesToggleActiveCmd(e),
		newClassesRemoveCmd(e),
		newClassesPurgeInactiveCmd(e),
		newClassesBulkSpecialCmd(e),
	)
	return cmd
}

func newClassesListCmd(e *env) *cobra.Command {
	var (
		grade  int
		active bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List classes",
		Args:  cobra.NoArgs,
		RunE: withRoster(e, func(cmd *cobra.Command, _ []string, r *roster.Roster) error {
			classes := r.Store.Classes()
			if grade > 0 {
				classes = r.Store.GetClassesByGrade(grade)
			}

			rows := make([][]string, 0, len(classes))
			for _, c := range classes {
				if active && !c.Active {
					continue
				}
				rows = append(rows, classRow(c))
			}
			if len(rows) == 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), cliMuted.Render("No classes. Run 'timetable-roster classes init' to create the defaults."))
				return nil
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"ID", "名前", "学年", "種別", "状態"}, rows))
			return nil
		}),
	}

	cmd.Flags().IntVarP(&grade, "grade", "g", 0, "only this grade")
	cmd.Flags().BoolVar(&active, "active", false, "only active classes")
	return cmd
}

func classRow(c roster.ClassRoom) []string {
	kind := "通常"
	if c.Type == roster.ClassSpecialSupport {
		kind = "特別支援"
	}
	state := "有効"
	if !c.Active {
		state = "無効"
	}
	return []string{c.ID, c.Name, strconv.Itoa(c.Grade), kind, state}
}

func newClassesInitCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Replace all classes with the default grades",
		Long: fmt.Sprintf(`Replace every class with %d grades of %d regular classes each.
Special-support hours of classes that disappear are dropped.`, roster.DefaultGrades, roster.ClassesPerGrade),
		Args: cobra.NoArgs,
		RunE: withRoster(e, func(cmd *cobra.Command, _ []string, r *roster.Roster) error {
			if err := r.Store.InitializeDefaultClasses(); err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), successCard("Default classes created",
				fmt.Sprintf("Classes: %d", len(r.Store.Classes()))))
			return nil
		}),
	}
}

func newClassesAddGradeCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "add-grade <grade>",
		Short: "Regenerate the default classes of one grade",
		Args:  cobra.ExactArgs(1),
		RunE: withRoster(e, func(cmd *cobra.Command, args []string, r *roster.Roster) error {
			grade, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid grade %q: %w", args[0], roster.ErrInvalidGrade)
			}
			if err := r.Store.AddGradeClasses(grade); err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), successCard(fmt.Sprintf("Grade %d regenerated", grade),
				fmt.Sprintf("Classes: %d", len(r.Store.GetClassesByGrade(grade)))))
			return nil
		}),
	}
}

func newClassesToggleTypeCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "toggle-type <id>",
		Short: "Switch a class between regular and special support",
		Args:  cobra.ExactArgs(1),
		RunE: withRoster(e, func(cmd *cobra.Command, args []string, r *roster.Roster) error {
			c, ok, err := r.Store.ToggleClassType(args[0])
			return reportClassChange(cmd, args[0], c, ok, err)
		}),
	}
}

func newClassesToggleActiveCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "toggle-active <id>",
		Short: "Enable or disable a class",
		Args:  cobra.ExactArgs(1),
		RunE: withRoster(e, func(cmd *cobra.Command, args []string, r *roster.Roster) error {
			c, ok, err := r.Store.ToggleClassActive(args[0])
			return reportClassChange(cmd, args[0], c, ok, err)
		}),
	}
}

func reportClassChange(cmd *cobra.Command, id string, c roster.ClassRoom, ok bool, err error) error {
	if err != nil {
		return err
	}
	if !ok {
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), warnCard("Class not found", "ID: "+id))
		return nil
	}
	row := classRow(c)
	_, _ = fmt.Fprintln(cmd.OutOrStdout(), successCard("Class updated", row[1]+" ("+row[3]+", "+row[4]+")"))
	return nil
}

func newClassesRemoveCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id>",
		Short: "Remove a class",
		Args:  cobra.ExactArgs(1),
		RunE: withRoster(e, func(cmd *cobra.Command, args []string, r *roster.Roster) error {
			ok, err := r.Store.RemoveClass(args[0])
			if err != nil {
				return err
			}
			if !ok {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), warnCard("Class not found", "ID: "+args[0]))
				return nil
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), successCard("Class removed", "ID: "+args[0]))
			return nil
		}),
	}
}

func newClassesPurgeInactiveCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "purge-inactive",
		Short: "Remove every inactive class",
		Args:  cobra.NoArgs,
		RunE: withRoster(e, func(cmd *cobra.Command, _ []string, r *roster.Roster) error {
			removed, err := r.Store.RemoveInactiveClasses()
			if err != nil {
				return err
			}
			details := make([]string, 0, len(removed))
			for _, c := range removed {
				details = append(details, c.ID+" "+c.Name)
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), successCard(fmt.Sprintf("Removed %d inactive classes", len(removed)), details...))
			return nil
		}),
	}
}

func newClassesBulkSpecialCmd(e *env) *cobra.Command {
	var grade int

	cmd := &cobra.Command{
		Use:   "bulk-special-support",
		Short: "Convert active regular classes to special support",
		Long:  "Convert every active regular class of --grade, or of all grades when --grade is omitted.",
		Args:  cobra.NoArgs,
		RunE: withRoster(e, func(cmd *cobra.Command, _ []string, r *roster.Roster) error {
			changed, err := r.Store.BulkToggleSpecialSupport(grade)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), successCard(fmt.Sprintf("Converted %d classes", len(changed))))
			return nil
		}),
	}

	cmd.Flags().IntVarP(&grade, "grade", "g", 0, "only this grade")
	return cmd
}
