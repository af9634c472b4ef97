package cmd

import (
	"cmp"
	"fmt"
	"os"
	"slices"
	"time"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/theirongolddev/cstats/internal/cli"
	"github.com/theirongolddev/cstats/internal/source"
)

var projectsCmd = &cobra.Command{
	Use:   "projects",
	Short: "Session logs on disk, grouped by project",
	RunE:  runProjects,
}

func init() {
	rootCmd.AddCommand(projectsCmd)
}

// projectLogs summarizes the session logs of one project directory.
type projectLogs struct {
	Project    string    `json:"project"`
	Dir        string    `json:"dir"`
	Sessions   int       `json:"sessions"`
	Bytes      int64     `json:"bytes"`
	LastActive time.Time `json:"lastActive"`
}

func runProjects(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	claudeDir := cfg.ClaudeDirPath()
	projects := summarizeProjects(source.SessionFiles(claudeDir), os.Stat)

	if flagJSON {
		return printJSON(projects)
	}
	if len(projects) == 0 {
		printEmpty(claudeDir)
		return nil
	}

	loc, err := cfg.Location()
	if err != nil {
		return err
	}
	rows := make([][]string, 0, len(projects))
	for _, p := range projects {
		rows = append(rows, []string{
			cli.Truncate(p.Project, 28),
			cli.FormatNumber(uint64(p.Sessions)),
			formatBytes(p.Bytes),
			p.LastActive.In(loc).Format("2006-01-02 15:04"),
		})
	}

	fmt.Println()
	fmt.Println(cli.RenderTitle(fmt.Sprintf("PROJECTS  %d with session logs", len(projects))))
	fmt.Println()
	fmt.Print(cli.RenderTable(cli.Table{
		Headers: []string{"Project", "Sessions", "Log size", "Last active"},
		Rows:    rows,
	}))
	fmt.Println()
	return nil
}

// summarizeProjects groups files by project directory, most recently active
// first. Files that cannot be stat'ed still count as sessions.
func summarizeProjects(files []source.DiscoveredFile, stat func(string) (os.FileInfo, error)) []projectLogs {
	groups := lo.GroupBy(files, func(f source.DiscoveredFile) string { return f.ProjectDir })

	out := make([]projectLogs, 0, len(groups))
	for dir, group := range groups {
		p := projectLogs{Project: group[0].Project, Dir: dir}
		sessions := make(map[string]struct{}, len(group))
		for _, f := range group {
			sessions[f.SessionID] = struct{}{}
			info, err := stat(f.Path)
			if err != nil {
				continue
			}
			p.Bytes += info.Size()
			if info.ModTime().After(p.LastActive) {
				p.LastActive = info.ModTime()
			}
		}
		p.Sessions = len(sessions)
		out = append(out, p)
	}
	slices.SortFunc(out, func(a, b projectLogs) int {
		if c := b.LastActive.Compare(a.LastActive); c != 0 {
			return c
		}
		return cmp.Compare(a.Dir, b.Dir)
	})
	return out
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
