package ingest

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/joseph-ayodele/invoice-extractor/constants"
	"github.com/joseph-ayodele/invoice-extractor/internal/common"
)

// Discover lists the supported files directly inside dir, sorted by name.
// Subdirectories and hidden files are skipped.
func Discover(dir string) ([]string, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, common.NotFoundError(dir)
	}
	if !info.IsDir() {
		return nil, common.WrapError(common.ErrInvalidInput, fmt.Sprintf("%s is not a directory", dir))
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dir %s: %w", dir, err)
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() || IsHidden(e.Name()) {
			continue
		}
		if !AllowedExt(filepath.Ext(e.Name())) {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	sort.Strings(paths)
	return paths, nil
}

// AllowedExt checks if a file extension is one the pipeline can process.
func AllowedExt(ext string) bool {
	return constants.IsSupportedExt(ext)
}

// IsHidden checks if a file or directory is hidden (starts with '.').
func IsHidden(path string) bool {
	return strings.HasPrefix(filepath.Base(path), ".")
}

// Fingerprint returns the hex sha256 of the file contents.
func Fingerprint(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hash %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
