// Package pdf is the document access layer: page rendering, text extraction
// and embedded image extraction for source documents.
package pdf

import (
	"bytes"
	"fmt"
	"image/png"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/gen2brain/go-fitz"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// EmbeddedImage is one image object extracted from a page.
type EmbeddedImage struct {
	Data   []byte
	Format string // original format, e.g. "png", "jpg"
}

// Document is the access contract consumed by the processing strategies.
// Page indices are 1-based throughout.
type Document interface {
	PageCount() int
	// RenderPage rasterizes a page to PNG bytes at the given scale, where
	// 1.0 is 72 DPI.
	RenderPage(page int, scale float64) ([]byte, error)
	// ExtractText returns page text prefixed with a "## Page N" marker.
	ExtractText(page int) (string, error)
	ExtractEmbeddedImages(page int) ([]EmbeddedImage, error)
	Close() error
}

// Opener opens a document at a filesystem path. Injected into strategies so
// tests can substitute a fake access layer.
type Opener func(path string) (Document, error)

type fitzDocument struct {
	path string
	doc  *fitz.Document
}

// Open opens a PDF through MuPDF.
func Open(path string) (Document, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("open document: %w", err)
	}
	doc, err := fitz.New(path)
	if err != nil {
		return nil, fmt.Errorf("open document %s: %w", path, err)
	}
	return &fitzDocument{path: path, doc: doc}, nil
}

func (d *fitzDocument) PageCount() int { return d.doc.NumPage() }

func (d *fitzDocument) RenderPage(page int, scale float64) ([]byte, error) {
	if scale <= 0 {
		scale = 2.0
	}
	img, err := d.doc.ImageDPI(page-1, 72*scale)
	if err != nil {
		return nil, fmt.Errorf("render page %d: %w", page, err)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode page %d: %w", page, err)
	}
	return buf.Bytes(), nil
}

func (d *fitzDocument) ExtractText(page int) (string, error) {
	text, err := d.doc.Text(page - 1)
	if err != nil {
		return "", fmt.Errorf("extract text from page %d: %w", page, err)
	}
	return fmt.Sprintf("\n## Page %d\n\n%s\n", page, text), nil
}

// ExtractEmbeddedImages pulls the page's image objects out through pdfcpu
// into a scratch directory, then reads them back in deterministic order.
func (d *fitzDocument) ExtractEmbeddedImages(page int) ([]EmbeddedImage, error) {
	scratch, err := os.MkdirTemp("", "docmark-extract-*")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(scratch)

	conf := model.NewDefaultConfiguration()
	pages := []string{strconv.Itoa(page)}
	if err := api.ExtractImagesFile(d.path, scratch, pages, conf); err != nil {
		return nil, fmt.Errorf("extract images from page %d: %w", page, err)
	}

	entries, err := os.ReadDir(scratch)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	images := make([]EmbeddedImage, 0, len(names))
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(scratch, name))
		if err != nil {
			return nil, err
		}
		ext := filepath.Ext(name)
		if ext != "" {
			ext = ext[1:]
		}
		images = append(images, EmbeddedImage{Data: data, Format: ext})
	}
	return images, nil
}

func (d *fitzDocument) Close() error {
	return d.doc.Close()
}
