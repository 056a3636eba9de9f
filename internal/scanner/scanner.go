// Package scanner finds the C++ translation units below a path. It honours
// gitignore-style .pgraphignore files and skips build and VCS directories.
package scanner

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// FileInfo represents a discovered translation unit.
type FileInfo struct {
	Path     string // Relative path from root
	FullPath string // Absolute path
	Size     int64  // File size in bytes
}

// Options configures the scanner behavior.
type Options struct {
	SkipHidden      bool     // Skip hidden files and directories (starting with .)
	FollowSymlinks  bool     // Follow file symlinks that stay within root
	DefaultExcludes []string // Directory names never descended into
	IgnoreFileName  string   // Name of the ignore file (default: .pgraphignore)
	Extensions      []string // Source extensions, compared case-insensitively
}

// DefaultExtensions lists the file extensions treated as translation units.
var DefaultExtensions = []string{".cpp", ".cc", ".cxx", ".c++"}

// DefaultOptions returns scanner options with sensible defaults.
func DefaultOptions() Options {
	return Options{
		SkipHidden:     true,
		FollowSymlinks: false,
		IgnoreFileName: ".pgraphignore",
		Extensions:     DefaultExtensions,
		DefaultExcludes: []string{
			".git",
			".hg",
			".svn",
			".pgraph",
			"build",
			"cmake-build-debug",
			"cmake-build-release",
			"CMakeFiles",
			"third_party",
			"node_modules",
			"vendor",
			"out",
			"bin",
			"obj",
		},
	}
}

// Scanner provides file tree scanning capabilities.
type Scanner struct {
	opts Options
	exts map[string]bool
}

// New creates a new Scanner with the given options.
func New(opts Options) *Scanner {
	exts := make(map[string]bool, len(opts.Extensions))
	for _, e := range opts.Extensions {
		exts[strings.ToLower(e)] = true
	}
	return &Scanner{opts: opts, exts: exts}
}

// IsSource reports whether name carries one of the configured extensions.
func (s *Scanner) IsSource(name string) bool {
	return s.exts[strings.ToLower(filepath.Ext(name))]
}

// Scan returns the translation units below root in path order. When root is
// a file it is returned as is, whatever its extension.
func (s *Scanner) Scan(ctx context.Context, root string) ([]FileInfo, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("getting absolute path: %w", err)
	}

	rootInfo, err := os.Stat(absRoot)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", root, err)
	}
	if !rootInfo.IsDir() {
		return []FileInfo{{
			Path:     filepath.ToSlash(filepath.Base(absRoot)),
			FullPath: absRoot,
			Size:     rootInfo.Size(),
		}}, nil
	}

	var rules ignoreStack
	var files []FileInfo

	err = filepath.Walk(absRoot, func(path string, info os.FileInfo, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if walkErr != nil {
			// unreadable entries are skipped
			return nil
		}

		relPath, err := filepath.Rel(absRoot, path)
		if err != nil {
			return nil
		}
		relSlash := filepath.ToSlash(relPath)

		if info.IsDir() {
			if relPath != "." {
				if s.opts.SkipHidden && isHidden(info.Name()) {
					return filepath.SkipDir
				}
				if s.isDefaultExcluded(info.Name()) || rules.ignored(relSlash+"/") {
					return filepath.SkipDir
				}
			}
			base := relSlash
			if relPath == "." {
				base = ""
			}
			r, err := loadIgnoreFile(filepath.Join(path, s.opts.IgnoreFileName), base)
			if err != nil {
				return fmt.Errorf("loading %s: %w", filepath.Join(relPath, s.opts.IgnoreFileName), err)
			}
			if r != nil {
				rules = append(rules, r)
			}
			return nil
		}

		if s.opts.SkipHidden && isHidden(info.Name()) {
			return nil
		}
		if !s.IsSource(info.Name()) || rules.ignored(relSlash) {
			return nil
		}

		if info.Mode()&os.ModeSymlink != 0 {
			target, ok := s.resolveSymlink(absRoot, path)
			if !ok {
				return nil
			}
			info = target
		}

		files = append(files, FileInfo{
			Path:     relSlash,
			FullPath: path,
			Size:     info.Size(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking directory: %w", err)
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, nil
}

// resolveSymlink follows a file symlink when allowed and when its target
// stays within root.
func (s *Scanner) resolveSymlink(absRoot, path string) (os.FileInfo, bool) {
	if !s.opts.FollowSymlinks {
		return nil, false
	}
	realPath, err := filepath.EvalSymlinks(path)
	if err != nil {
		return nil, false
	}
	realAbs, err := filepath.Abs(realPath)
	if err != nil {
		return nil, false
	}
	if !strings.HasPrefix(realAbs, absRoot+string(filepath.Separator)) {
		return nil, false
	}
	info, err := os.Stat(realAbs)
	if err != nil || info.IsDir() {
		return nil, false
	}
	return info, true
}

func isHidden(name string) bool {
	return strings.HasPrefix(name, ".")
}

// isDefaultExcluded checks if the name matches default exclusion patterns.
func (s *Scanner) isDefaultExcluded(name string) bool {
	for _, exclude := range s.opts.DefaultExcludes {
		if strings.EqualFold(name, exclude) {
			return true
		}
	}
	return false
}

// Scan is a convenience function that scans root with default options.
func Scan(ctx context.Context, root string) ([]FileInfo, error) {
	return New(DefaultOptions()).Scan(ctx, root)
}
