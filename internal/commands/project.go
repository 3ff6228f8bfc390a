package commands

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/klabast/wb-services/timetable-roster/internal/roster"
)

func newExportCmd(e *env) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the roster as a project file",
		Long: `Write teachers, classes, subjects and the schedule as a project document.
Without -o the document is written to stdout.`,
		Args: cobra.NoArgs,
		RunE: withRoster(e, func(cmd *cobra.Command, _ []string, r *roster.Roster) error {
			data, err := r.Store.Export()
			if err != nil {
				return err
			}
			if output == "" {
				_, err := cmd.OutOrStdout().Write(append(data, '\n'))
				return err
			}

			if err := os.MkdirAll(filepath.Dir(output), 0o755); err != nil {
				return fmt.Errorf("create output directory: %w", err)
			}
			if err := os.WriteFile(output, data, 0o644); err != nil {
				return fmt.Errorf("write export: %w", err)
			}
			_, _ = fmt.Fprintln(cmd.ErrOrStderr(), successCard("Exported roster", "File: "+output))
			return nil
		}),
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (e.g. "+roster.ExportFileName+")")
	return cmd
}

func newImportCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Replace the roster with a project file",
		Args:  cobra.ExactArgs(1),
		RunE: withRoster(e, func(cmd *cobra.Command, args []string, r *roster.Roster) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open project: %w", err)
			}
			defer func() { _ = f.Close() }()

			if err := r.Store.ImportFrom(f); err != nil {
				return importError(err)
			}

			sum := r.Summarize()
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), successCard("Imported project",
				fmt.Sprintf("Teachers: %d", sum.Teachers),
				fmt.Sprintf("Classes:  %d", sum.Classes),
				fmt.Sprintf("Subjects: %d", sum.Subjects),
			))
			return nil
		}),
	}
}

// importError maps import failures to the messages the web UI shows.
func importError(err error) error {
	switch {
	case errors.Is(err, roster.ErrInvalidProjectFormat):
		return fmt.Errorf("無効なファイル形式です: %w", err)
	case errors.Is(err, roster.ErrMalformedProject):
		return fmt.Errorf("ファイルの読み込みに失敗しました: %w", err)
	default:
		return err
	}
}

func newResetCmd(e *env) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete all teachers, classes, subjects and the schedule",
		Long: `Reset the roster to an empty project. Meetings and special-support hours
of removed classes are reconciled as usual. Requires --yes unless confirmed
interactively.`,
		Args: cobra.NoArgs,
		RunE: withRoster(e, func(cmd *cobra.Command, _ []string, r *roster.Roster) error {
			if !yes {
				if !isInteractive() {
					return errors.New("refusing to reset without --yes")
				}
				ok, err := confirm("全データを削除しますか？", "この操作は元に戻せません。")
				if err != nil {
					return err
				}
				if !ok {
					_, _ = fmt.Fprintln(cmd.OutOrStdout(), cliMuted.Render("Reset cancelled."))
					return nil
				}
			}

			if err := r.Store.Reset(); err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), successCard("Roster reset"))
			return nil
		}),
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip confirmation")
	return cmd
}

func newCleanupCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup",
		Short: "Remove stale roster keys from storage",
		Long: `Delete every "` + roster.KeyPrefix + `" key except the canonical roster key.
This removes data left behind by the legacy generator format.`,
		Args: cobra.NoArgs,
		RunE: withRoster(e, func(cmd *cobra.Command, _ []string, _ *roster.Roster) error {
			n := e.adapter.Cleanup(roster.KeyPrefix, roster.KeyRosterData)
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), successCard("Storage cleaned up", fmt.Sprintf("Removed keys: %d", n)))
			return nil
		}),
	}
}

// confirm asks a yes/no question on the terminal.
func confirm(title, description string) (bool, error) {
	var ok bool
	err := huh.NewForm(huh.NewGroup(
		huh.NewConfirm().
			Title(title).
			Description(description).
			Affirmative("はい").
			Negative("いいえ").
			Value(&ok),
	)).Run()
	if errors.Is(err, huh.ErrUserAborted) {
		return false, ErrCancelled
	}
	return ok, err
}
