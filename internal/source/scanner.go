package source

import (
	"os"
	"path/filepath"
	"strings"
)

const (
	projectsDirName = "projects"
	historyFileName = "history.jsonl"
	statsCacheName  = "stats-cache.json"
	sessionExt      = ".jsonl"
)

// HistoryPath returns the chronological activity log path under claudeDir.
func HistoryPath(claudeDir string) string {
	return filepath.Join(claudeDir, historyFileName)
}

// StatsCachePath returns the persisted stats cache path under claudeDir.
func StatsCachePath(claudeDir string) string {
	return filepath.Join(claudeDir, statsCacheName)
}

// SessionFiles lists the session logs found directly inside each project
// directory of <claudeDir>/projects. Directories that cannot be read yield no
// files. The order of the result is unspecified.
func SessionFiles(claudeDir string) []DiscoveredFile {
	projectsDir := filepath.Join(claudeDir, projectsDirName)

	projects, err := os.ReadDir(projectsDir)
	if err != nil {
		return nil
	}

	var files []DiscoveredFile
	for _, p := range projects {
		projectPath := filepath.Join(projectsDir, p.Name())
		if !isDir(p, projectPath) {
			continue
		}

		entries, err := os.ReadDir(projectPath)
		if err != nil {
			continue
		}
		project := decodeProjectName(p.Name())

		for _, e := range entries {
			name := e.Name()
			if !hasSessionExt(name) {
				continue
			}
			path := filepath.Join(projectPath, name)
			if isDir(e, path) {
				continue
			}
			files = append(files, DiscoveredFile{
				Path:       path,
				Project:    project,
				ProjectDir: p.Name(),
				SessionID:  name[:len(name)-len(sessionExt)],
			})
		}
	}
	return files
}

// FilterSessions keeps the files whose session id is in ids.
func FilterSessions(files []DiscoveredFile, ids map[string]struct{}) []DiscoveredFile {
	var out []DiscoveredFile
	for _, f := range files {
		if _, ok := ids[f.SessionID]; ok {
			out = append(out, f)
		}
	}
	return out
}

func hasSessionExt(name string) bool {
	return len(name) > len(sessionExt) &&
		strings.EqualFold(name[len(name)-len(sessionExt):], sessionExt)
}

// isDir resolves symlinked entries so linked project folders are followed.
func isDir(e os.DirEntry, path string) bool {
	if e.Type()&os.ModeSymlink == 0 {
		return e.IsDir()
	}
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// decodeProjectName extracts a human-readable project name from the encoded directory name.
// Claude Code encodes absolute paths by replacing "/" with "-", so:
//
//	"-Users-tayloreernisse-projects-gitlore" -> "gitlore"
//	"-Users-tayloreernisse-projects-my-cool-project" -> "my-cool-project"
//
// We find the last known path component ("projects", "repos", "src", "code", "home")
// and take everything after it. Falls back to the last non-empty segment.
func decodeProjectName(dirName string) string {
	parts := strings.Split(dirName, "-")

	knownParents := map[string]bool{
		"projects": true, "repos": true, "src": true,
		"code": true, "workspace": true, "dev": true,
	}

	for i := len(parts) - 2; i >= 0; i-- {
		if knownParents[strings.ToLower(parts[i])] {
			name := strings.Join(parts[i+1:], "-")
			if name != "" {
				return name
			}
		}
	}

	for i := len(parts) - 1; i >= 0; i-- {
		if parts[i] != "" {
			return parts[i]
		}
	}

	return dirName
}

// CountProjects returns the number of unique projects in a set of discovered files.
func CountProjects(files []DiscoveredFile) int {
	seen := make(map[string]struct{})
	for _, f := range files {
		seen[f.ProjectDir] = struct{}{}
	}
	return len(seen)
}
