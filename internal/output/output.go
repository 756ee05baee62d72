// Package output places finished artifacts next to the source document:
// the styled markup file, the per-document images directory and the
// description sidecar.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spherical/docmark/internal/pdf"
)

// Paths are the final on-disk locations for one document's artifacts.
type Paths struct {
	Markup    string // <dir>/<stem>.html
	ImagesDir string // <dir>/images/<stem>/
}

// FinalPaths derives the artifact locations from the source document path.
func FinalPaths(pdfPath string) Paths {
	dir := filepath.Dir(pdfPath)
	stem := pdf.Stem(pdfPath)
	return Paths{
		Markup:    filepath.Join(dir, stem+".html"),
		ImagesDir: filepath.Join(dir, "images", stem),
	}
}

// SaveMarkup writes the final markup document.
func SaveMarkup(path, markup string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	if err := os.WriteFile(path, []byte(markup), 0o644); err != nil {
		return fmt.Errorf("write markup: %w", err)
	}
	return nil
}

// DescriptionEntry is one record in the image_descriptions.json sidecar.
type DescriptionEntry struct {
	SuggestedName string `json:"suggested_name"`
	Description   string `json:"description"`
}

// SaveDescriptions writes the description sidecar into the images directory.
func SaveDescriptions(imagesDir string, descriptions map[string]DescriptionEntry) error {
	if len(descriptions) == 0 {
		return nil
	}
	if err := os.MkdirAll(imagesDir, 0o755); err != nil {
		return fmt.Errorf("create images dir: %w", err)
	}
	data, err := json.MarshalIndent(descriptions, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal descriptions: %w", err)
	}
	path := filepath.Join(imagesDir, "image_descriptions.json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write descriptions: %w", err)
	}
	return nil
}

// CopyImages copies the workspace images that pass the filter into the final
// images directory. A nil filter copies everything.
func CopyImages(srcDir, dstDir string, keep func(name string) bool) error {
	entries, err := os.ReadDir(srcDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read images dir: %w", err)
	}

	copied := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if keep != nil && !keep(entry.Name()) {
			continue
		}
		if copied == 0 {
			if err := os.MkdirAll(dstDir, 0o755); err != nil {
				return fmt.Errorf("create images dir: %w", err)
			}
		}
		if err := copyFile(filepath.Join(srcDir, entry.Name()), filepath.Join(dstDir, entry.Name())); err != nil {
			return err
		}
		copied++
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create %s: %w", dst, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("copy %s: %w", src, err)
	}
	return out.Close()
}

// RewriteImagePaths rewrites image references in generated markup from the
// flat "images/" prefix the model was told to use into the per-document
// "images/<stem>/" directory the files actually land in.
func RewriteImagePaths(markup, stem string) string {
	return strings.ReplaceAll(markup, `src="images/`, fmt.Sprintf(`src="images/%s/`, stem))
}
