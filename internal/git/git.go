package git

import (
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
)

// Status contains git information about a store file
type Status struct {
	IsRepo  bool
	Tracked bool
	Ignored bool
}

// IsGitRepo checks if dir is inside a git work tree
func IsGitRepo(dir string) bool {
	cmd := exec.Command("git", "rev-parse", "--is-inside-work-tree")
	cmd.Dir = dir
	return cmd.Run() == nil
}

// IsTracked checks if a file is tracked by git
func IsTracked(dir, path string) bool {
	cmd := exec.Command("git", "ls-files", "--", path)
	cmd.Dir = dir
	output, err := cmd.Output()
	if err != nil {
		return false
	}
	return len(strings.TrimSpace(string(output))) > 0
}

// IsIgnored checks if a file is ignored by git (handles all .gitignore files)
func IsIgnored(dir, path string) bool {
	cmd := exec.Command("git", "check-ignore", "-q", "--", path)
	cmd.Dir = dir
	// exit code 0 means ignored
	return cmd.Run() == nil
}

// CheckStore checks the store file at path against the repository that
// contains it.
func CheckStore(path string) *Status {
	dir, name := filepath.Split(path)
	if dir == "" {
		dir = "."
	}
	if !IsGitRepo(dir) {
		return &Status{}
	}
	return &Status{
		IsRepo:  true,
		Tracked: IsTracked(dir, name),
		Ignored: IsIgnored(dir, name),
	}
}

// Format formats the status for display. Returns "" outside a repository.
func Format(status *Status, name string, encrypted bool) string {
	if !status.IsRepo {
		return ""
	}

	var result strings.Builder
	result.WriteString("\nGit:\n")

	switch {
	case encrypted && status.Tracked:
		result.WriteString(fmt.Sprintf("   ok: %s is tracked (encrypted)\n", name))
	case encrypted:
		result.WriteString(fmt.Sprintf("   ok: %s is not tracked\n", name))
	case status.Tracked:
		result.WriteString(fmt.Sprintf("   error: %s holds plaintext and is tracked (run: git rm --cached %s)\n", name, name))
	case !status.Ignored:
		result.WriteString(fmt.Sprintf("   warning: %s holds plaintext and is not in .gitignore\n", name))
	default:
		result.WriteString(fmt.Sprintf("   ok: %s is in .gitignore\n", name))
	}

	return result.String()
}
