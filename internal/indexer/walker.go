package indexer

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	apperrors "github.com/Adithya-Monish-Kumar-K/concurrent-text-search/pkg/errors"
)

// DefaultExtensions are the file suffixes treated as text when none are
// configured.
var DefaultExtensions = []string{".txt", ".text"}

// IsTextFile reports whether the lower-cased name of path ends in one of
// extensions.
func IsTextFile(path string, extensions []string) bool {
	if len(extensions) == 0 {
		extensions = DefaultExtensions
	}
	lower := strings.ToLower(path)
	for _, ext := range extensions {
		if strings.HasSuffix(lower, strings.ToLower(ext)) {
			return true
		}
	}
	return false
}

// ListCandidateFiles returns the regular text files beneath root in lexical
// walk order. root may itself be a file. Directories that cannot be read
// are skipped and reported through skipped, which may be nil.
func ListCandidateFiles(root string, extensions []string, skipped func(path string, err error)) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", apperrors.ErrInvalidPath, root, err)
	}
	if info.Mode().IsRegular() {
		if IsTextFile(root, extensions) {
			return []string{root}, nil
		}
		return nil, nil
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is neither a file nor a directory", apperrors.ErrInvalidPath, root)
	}

	var files []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			if skipped != nil {
				skipped(path, err)
			}
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if !IsTextFile(path, extensions) {
			return nil
		}
		if d.Type().IsRegular() || isLinkToFile(path, d) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: walking %s: %v", apperrors.ErrInvalidPath, root, err)
	}
	return files, nil
}

// isLinkToFile follows symbolic links to regular files. Links to
// directories are not followed.
func isLinkToFile(path string, d fs.DirEntry) bool {
	if d.Type()&fs.ModeSymlink == 0 {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
