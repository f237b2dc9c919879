package project

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
)

// Globs returns the include and exclude globs of cfg, with the parser's
// defaults applied.
func Globs(cfg *Config) (include, exclude []string, err error) {
	include = cfg.Include
	if len(include) == 0 {
		include = DefaultIncludeGlobs[cfg.Parser]
	}
	exclude = append(append([]string{}, cfg.Exclude...), DefaultExcludeGlobs[cfg.Parser]...)

	if cfg.Parser == ParserCustom && len(include) == 0 {
		return nil, nil, errors.New("Include globs must specified in config file for custom parsers")
	}
	if len(include) == 0 {
		return nil, nil, errors.New("No include globs specified in config file")
	}
	return include, exclude, nil
}

// DiscoverFiles walks rootDir applying the include/exclude globs of cfg.
// Returns a sorted slice of absolute file paths for deterministic output.
func DiscoverFiles(rootDir string, cfg *Config, logger *slog.Logger) ([]string, error) {
	if logger == nil {
		logger = slog.Default()
	}
	include, exclude, err := Globs(cfg)
	if err != nil {
		return nil, err
	}

	for _, pattern := range exclude {
		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf("invalid exclude pattern: %s", pattern)
		}
	}
	for _, pattern := range include {
		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf("invalid include pattern: %s", pattern)
		}
	}

	absRoot, err := filepath.Abs(rootDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve root path: %w", err)
	}

	var files []string
	err = filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			logger.Debug("walk error", "path", path, "error", err)
			return nil
		}

		relPath, err := filepath.Rel(absRoot, path)
		if err != nil {
			relPath = path
		}
		relPath = filepath.ToSlash(relPath)

		if Matches(exclude, relPath) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if Matches(include, relPath) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if len(files) > MaxFilesWarning {
		logger.Warn(fmt.Sprintf("Matching number of files was excessively large (%d) - consider using more specific include/exclude globs in your config file.", len(files)))
	}

	sort.Strings(files)
	return files, nil
}

// Matches reports whether the slash-separated relative path matches any of
// the globs.
func Matches(globs []string, relPath string) bool {
	for _, pattern := range globs {
		if m, _ := doublestar.PathMatch(pattern, relPath); m {
			return true
		}
	}
	return false
}
