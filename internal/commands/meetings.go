package commands

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/klabast/wb-services/timetable-roster/internal/roster"
)

var dayNames = map[int]string{1: "月", 2: "火", 3: "水", 4: "木", 5: "金", 6: "土", 7: "日"}

func newMeetingsCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "meetings",
		Short: "Manage recurring staff meetings",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List meetings",
		Args:  cobra.NoArgs,
		RunE: withRoster(e, func(cmd *cobra.Command, _ []string, r *roster.Roster) error {
			meetings := r.Meetings.Meetings()
			rows := make([][]string, 0, len(meetings))
			for i, m := range meetings {
				rows = append(rows, []string{strconv.Itoa(i), m.Name, dayNames[m.Day], strconv.Itoa(m.Period) + "限"})
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"#", "会議", "曜日", "時限"}, rows))
			return nil
		}),
	}

	var day, period int
	add := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a meeting",
		Args:  cobra.ExactArgs(1),
		RunE: withRoster(e, func(cmd *cobra.Command, args []string, r *roster.Roster) error {
			m, err := r.Meetings.Add(args[0], day, period)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), successCard("Meeting added",
				fmt.Sprintf("%s (%s曜 %d限)", m.Name, dayNames[m.Day], m.Period)))
			return nil
		}),
	}
	add.Flags().IntVar(&day, "day", 1, "day of week, 1 (Mon) to 7 (Sun)")
	add.Flags().IntVar(&period, "period", 6, "period, 1 to 7")

	var confirmName string
	remove := &cobra.Command{
		Use:   "remove <index>",
		Short: "Remove the meeting at index",
		Long: `Remove a meeting. The meeting name must be confirmed with --confirm, or typed
into the prompt on a terminal. Teachers attending it are updated.`,
		Args: cobra.ExactArgs(1),
		RunE: withRoster(e, func(cmd *cobra.Command, args []string, r *roster.Roster) error {
			index, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid index %q: %w", args[0], roster.ErrIndexOutOfRange)
			}
			meetings := r.Meetings.Meetings()
			if index < 0 || index >= len(meetings) {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), warnCard("No meeting at index "+args[0]))
				return nil
			}

			if confirmName == "" && isInteractive() {
				if confirmName, err = promptMeetingName(meetings[index].Name); err != nil {
					return err
				}
			}

			ok, err := r.Meetings.Remove(index, confirmName)
			if err != nil {
				return err
			}
			if ok {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), successCard("Meeting removed", meetings[index].Name))
			}
			return nil
		}),
	}
	remove.Flags().StringVar(&confirmName, "confirm", "", "meeting name, to confirm removal")

	reset := &cobra.Command{
		Use:   "reset",
		Short: "Restore the default meetings",
		Args:  cobra.NoArgs,
		RunE: withRoster(e, func(cmd *cobra.Command, _ []string, r *roster.Roster) error {
			if err := r.Meetings.ResetToDefaults(); err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), successCard("Meetings reset",
				fmt.Sprintf("Meetings: %d", len(r.Meetings.Meetings()))))
			return nil
		}),
	}

	cmd.AddCommand(list, add, remove, reset)
	return cmd
}

func promptMeetingName(name string) (string, error) {
	var typed string
	err := huh.NewForm(huh.NewGroup(
		huh.NewInput().
			Title(fmt.Sprintf("会議「%s」を削除します", name)).
			Description("確認のため会議名を入力してください").
			Value(&typed),
	)).Run()
	if errors.Is(err, huh.ErrUserAborted) {
		return "", ErrCancelled
	}
	return typed, err
}
