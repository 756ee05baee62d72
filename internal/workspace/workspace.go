// Package workspace manages per-job exclusive temporary directories for
// rendered pages, cropped images and intermediate artifacts. Workspaces are
// never shared across jobs.
package workspace

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// Workspace is a job-exclusive scratch area.
type Workspace struct {
	Dir       string
	ImagesDir string
}

// New creates a workspace for the named job under the system temp root. The
// job name is combined with a random suffix so parallel runs over documents
// with the same stem never collide.
func New(jobName string) (*Workspace, error) {
	dir := filepath.Join(os.TempDir(), "docmark", fmt.Sprintf("%s-%s", jobName, uuid.NewString()[:8]))
	imagesDir := filepath.Join(dir, "images")
	if err := os.MkdirAll(imagesDir, 0o755); err != nil {
		return nil, fmt.Errorf("create workspace: %w", err)
	}
	return &Workspace{Dir: dir, ImagesDir: imagesDir}, nil
}

// PagePath returns the canonical path of a rendered page image.
func (w *Workspace) PagePath(page int) string {
	return filepath.Join(w.Dir, fmt.Sprintf("page_%d.png", page))
}

// WriteFile writes an intermediate artifact into the workspace root.
func (w *Workspace) WriteFile(name string, data []byte) error {
	return os.WriteFile(filepath.Join(w.Dir, name), data, 0o644)
}

// Cleanup removes the workspace unless retention was requested.
func (w *Workspace) Cleanup(retain bool) error {
	if retain {
		return nil
	}
	return os.RemoveAll(w.Dir)
}
