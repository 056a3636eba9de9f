package scanner

import (
	"os"
	"strings"

	ignore "github.com/sabhiram/go-gitignore"
)

// ignoreRules holds one compiled ignore file and the directory it applies
// to, relative to the scan root ("" for the root itself).
type ignoreRules struct {
	base    string
	matcher *ignore.GitIgnore
}

// loadIgnoreFile compiles the ignore file at file. A missing file yields
// nil rules and no error.
func loadIgnoreFile(file, base string) (*ignoreRules, error) {
	if _, err := os.Stat(file); err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	m, err := ignore.CompileIgnoreFile(file)
	if err != nil {
		return nil, err
	}
	return &ignoreRules{base: base, matcher: m}, nil
}

// matches reports whether relPath (slash separated, relative to the scan
// root) is excluded by these rules. Directories carry a trailing slash.
func (r *ignoreRules) matches(relPath string) bool {
	if r.base != "" {
		if !strings.HasPrefix(relPath, r.base+"/") {
			return false
		}
		relPath = strings.TrimPrefix(relPath, r.base+"/")
	}
	return r.matcher.MatchesPath(relPath)
}

// ignoreStack is every ignore file loaded so far. Rules only apply below
// their own directory.
type ignoreStack []*ignoreRules

func (s ignoreStack) ignored(relPath string) bool {
	for _, r := range s {
		if r.matches(relPath) {
			return true
		}
	}
	return false
}
