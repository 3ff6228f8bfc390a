package commands

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/klabast/wb-services/timetable-roster/internal/roster"
)

func newHoursCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hours",
		Short: "Manage special-support weekly hours",
	}

	show := &cobra.Command{
		Use:   "show <class>",
		Short: "Show the weekly hour budget of a class",
		Args:  cobra.ExactArgs(1),
		RunE: withRoster(e, func(cmd *cobra.Command, args []string, r *roster.Roster) error {
			cfg, saved := r.Hours.Get(args[0])
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), renderHours(args[0], cfg, saved))
			return nil
		}),
	}

	set := &cobra.Command{
		Use:   "set <class> CODE=N...",
		Short: "Set weekly hours of a class",
		Long: `Update individual subjects of a class budget, e.g.

  timetable-roster hours set 1-1 special-kokugo=5 special-sugaku=3

Subjects not named keep their current value.`,
		Args: cobra.MinimumNArgs(2),
		RunE: withRoster(e, func(cmd *cobra.Command, args []string, r *roster.Roster) error {
			cfg, _ := r.Hours.Get(args[0])
			for _, pair := range args[1:] {
				code, n, err := parseHours(pair)
				if err != nil {
					return err
				}
				cfg[code] = n
			}
			if err := r.Hours.Save(args[0], cfg); err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), renderHours(args[0], cfg, true))
			return nil
		}),
	}

	reset := &cobra.Command{
		Use:   "reset <class>",
		Short: "Drop a class budget so it falls back to the defaults",
		Args:  cobra.ExactArgs(1),
		RunE: withRoster(e, func(cmd *cobra.Command, args []string, r *roster.Roster) error {
			ok, err := r.Hours.Reset(args[0])
			if err != nil {
				return err
			}
			if !ok {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), cliMuted.Render("No saved budget for "+args[0]+"."))
				return nil
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), successCard("Budget reset", "Class: "+args[0]))
			return nil
		}),
	}

	cmd.AddCommand(show, set, reset)
	return cmd
}

func parseHours(pair string) (string, int, error) {
	code, value, ok := strings.Cut(pair, "=")
	if !ok {
		return "", 0, fmt.Errorf("invalid %q, want CODE=N", pair)
	}
	known := false
	for _, s := range roster.HoursSubjects {
		if s.Code == code {
			known = true
			break
		}
	}
	if !known {
		return "", 0, fmt.Errorf("unknown subject code %q", code)
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return "", 0, fmt.Errorf("invalid hours %q: %w", value, roster.ErrInvalidHours)
	}
	return code, n, nil
}

func renderHours(classID string, cfg roster.HoursConfig, saved bool) string {
	rows := make([][]string, 0, len(roster.HoursSubjects))
	for _, s := range roster.HoursSubjects {
		rows = append(rows, []string{s.Code, s.Name, strconv.Itoa(cfg[s.Code])})
	}

	total := roster.Total(cfg)
	status := roster.Status(total)
	summary := fmt.Sprintf("合計 %d / %d時間", total, roster.TargetWeeklyHours)
	switch status {
	case roster.HoursGood:
		summary = cliSuccess.Render(summary)
	case roster.HoursWarning:
		summary = cliWarn.Render(summary)
	}

	title := "Class " + classID
	if !saved {
		title += " (defaults)"
	}
	return infoCard(title, renderTable([]string{"コード", "教科", "時間"}, rows)+"\n"+summary)
}
