package commands

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"github.com/klabast/wb-services/timetable-roster/internal/roster"
)

func newSummaryCmd(e *env) *cobra.Command {
	var plain bool

	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Print a roster report",
		Long: `Print counts of every collection, the classes per grade and the hour budget
of each special-support class as a markdown report. On a terminal the report
is rendered; use --plain for raw markdown.`,
		Args: cobra.NoArgs,
		RunE: withRoster(e, func(cmd *cobra.Command, _ []string, r *roster.Roster) error {
			md := summaryMarkdown(r)
			if plain || !stdoutIsTerminal() {
				_, err := fmt.Fprint(cmd.OutOrStdout(), md)
				return err
			}

			width, _ := terminalWidth()
			renderer, err := glamour.NewTermRenderer(
				glamour.WithAutoStyle(),
				glamour.WithWordWrap(width),
			)
			if err != nil {
				return fmt.Errorf("create renderer: %w", err)
			}
			out, err := renderer.Render(md)
			if err != nil {
				return fmt.Errorf("render summary: %w", err)
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), out)
			return err
		}),
	}

	cmd.Flags().BoolVar(&plain, "plain", false, "print raw markdown")
	return cmd
}

func summaryMarkdown(r *roster.Roster) string {
	sum := r.Summarize()

	var b strings.Builder
	b.WriteString("# 時間割名簿\n\n")
	b.WriteString("| 項目 | 件数 |\n|---|---:|\n")
	fmt.Fprintf(&b, "| 教員 | %d |\n", sum.Teachers)
	fmt.Fprintf(&b, "| クラス | %d |\n", sum.Classes)
	fmt.Fprintf(&b, "| 有効なクラス | %d |\n", sum.ActiveClasses)
	fmt.Fprintf(&b, "| 特別支援学級 | %d |\n", sum.SpecialClasses)
	fmt.Fprintf(&b, "| 教科 | %d |\n", sum.Subjects)
	fmt.Fprintf(&b, "| 会議 | %d |\n", sum.Meetings)

	b.WriteString("\n## 学年別クラス\n\n")
	listed := false
	for g := 1; g <= roster.MaxGrade; g++ {
		classes := r.Store.GetClassesByGrade(g)
		if len(classes) == 0 {
			continue
		}
		listed = true
		names := make([]string, 0, len(classes))
		for _, c := range classes {
			names = append(names, c.Name)
		}
		fmt.Fprintf(&b, "- **%d年** (%d): %s\n", g, len(classes), strings.Join(names, "、"))
	}
	if !listed {
		b.WriteString("クラスがありません。\n")
	}

	special := r.Store.SpecialSupportClasses()
	if len(special) > 0 {
		b.WriteString("\n## 特別支援学級の週時数\n\n")
		b.WriteString("| クラス | 合計 | 状態 |\n|---|---:|---|\n")
		for _, c := range special {
			cfg, _ := r.Hours.Get(c.ID)
			total := roster.Total(cfg)
			fmt.Fprintf(&b, "| %s | %d / %d | %s |\n", c.Name, total, roster.TargetWeeklyHours, roster.Status(total))
		}
	}
	return b.String()
}
