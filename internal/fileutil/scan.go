package fileutil

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

var videoExtensions = map[string]struct{}{
	".mkv":  {},
	".mp4":  {},
	".avi":  {},
	".mov":  {},
	".wmv":  {},
	".flv":  {},
	".webm": {},
	".m4v":  {},
	".ts":   {},
	".mpg":  {},
	".mpeg": {},
}

// VideoExtensions returns the recognized extensions in sorted order.
func VideoExtensions() []string {
	exts := make([]string, 0, len(videoExtensions))
	for ext := range videoExtensions {
		exts = append(exts, ext)
	}
	slices.Sort(exts)
	return exts
}

// IsVideoFile reports whether name carries a recognized extension. The
// comparison ignores case.
func IsVideoFile(name string) bool {
	_, ok := videoExtensions[strings.ToLower(filepath.Ext(name))]
	return ok
}

// ListVideoFiles returns the regular video files under root in lexical order.
// Without recursive only root's direct children are considered.
func ListVideoFiles(root string, recursive bool) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("source directory not found: %s", root)
		}
		return nil, classify(err, root)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("not a directory: %s", root)
	}

	var files []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			if path != root && !recursive {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Type().IsRegular() && IsVideoFile(d.Name()) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, classify(err, root)
	}
	slices.Sort(files)
	return files, nil
}

// CountVideoFiles counts what ListVideoFiles would return.
func CountVideoFiles(root string, recursive bool) (int, error) {
	files, err := ListVideoFiles(root, recursive)
	if err != nil {
		return 0, err
	}
	return len(files), nil
}
