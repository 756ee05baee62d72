package pdf

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ValidatePath checks that the input exists, is a regular file and carries a
// .pdf extension. Runs before any workspace or network activity.
func ValidatePath(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("document not found: %s", path)
		}
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory, expected a PDF file", path)
	}
	if !strings.EqualFold(filepath.Ext(path), ".pdf") {
		return fmt.Errorf("%s: unsupported extension, expected .pdf", path)
	}
	return nil
}

// Stem returns the document name without directory or extension, used as
// the job identifier and output file stem.
func Stem(path string) string {
	return strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
}
