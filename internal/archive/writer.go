package archive

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/nao1215/rpdarchive/internal/model"
)

// Artifact file names.
const (
	// DirName is the archive subdirectory holding the JSON artifacts.
	DirName = "rpd"

	IndexFile  = "rpd-index.json"
	LinksFile  = "RarePepeDirectory_Links.json"
	SeriesFile = "RarePepeDirectory_Series_Data.json"
)

// Writer writes the archive artifacts under <out>/rpd and mirrors the
// links and series files into the site data directory when it exists.
type Writer struct {
	dir         string
	siteDataDir string
	logger      *slog.Logger
}

// Option configures a Writer.
type Option func(*Writer)

// WithSiteDataDir sets the directory that receives copies of the links and
// series files. A directory that does not exist is skipped.
func WithSiteDataDir(dir string) Option {
	return func(w *Writer) {
		w.siteDataDir = dir
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Writer) {
		w.logger = logger
	}
}

// NewWriter creates a writer for the archive rooted at outDir.
func NewWriter(outDir string, opts ...Option) *Writer {
	w := &Writer{
		dir:    filepath.Join(outDir, DirName),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Dir returns the artifact directory.
func (w *Writer) Dir() string {
	return w.dir
}

// WriteIndex writes rpd-index.json, one record per asset in the given
// order.
func (w *Writer) WriteIndex(assets []model.Asset) (string, error) {
	if assets == nil {
		assets = []model.Asset{}
	}
	path := filepath.Join(w.dir, IndexFile)
	if err := writeJSON(path, assets); err != nil {
		return "", err
	}
	return path, nil
}

// WriteLinks writes the name to URL index and its mirror. It returns every
// path written.
func (w *Writer) WriteLinks(links model.LinkIndex) ([]string, error) {
	if links == nil {
		links = model.LinkIndex{}
	}
	return w.writeMirrored(LinksFile, links)
}

// WriteSeries writes the series map and its mirror. It returns every path
// written.
func (w *Writer) WriteSeries(series *model.SeriesMap) ([]string, error) {
	if series == nil {
		series = model.NewSeriesMap()
	}
	return w.writeMirrored(SeriesFile, series)
}

func (w *Writer) writeMirrored(name string, v any) ([]string, error) {
	data, err := Encode(v)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", name, err)
	}

	path := filepath.Join(w.dir, name)
	if err := WriteFileAtomic(path, data); err != nil {
		return nil, err
	}
	paths := []string{path}

	if w.siteDataDir == "" {
		return paths, nil
	}
	info, err := os.Stat(w.siteDataDir)
	if err != nil || !info.IsDir() {
		w.logger.Debug("site data directory not found, skipping mirror", "dir", w.siteDataDir)
		return paths, nil
	}
	mirror := filepath.Join(w.siteDataDir, name)
	if err := WriteFileAtomic(mirror, data); err != nil {
		return paths, err
	}
	return append(paths, mirror), nil
}

// Encode renders v as two-space indented JSON with a trailing newline.
// HTML characters are not escaped, so URLs keep their '&'.
func Encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeJSON(path string, v any) error {
	data, err := Encode(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}
	return WriteFileAtomic(path, data)
}

// WriteFileAtomic writes data to path through a temporary file in the same
// directory, creating the directory if needed.
func WriteFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create temp file for %s: %w", path, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil { //nolint:gosec // archive files are meant to be shared
		_ = os.Remove(tmpName)
		return fmt.Errorf("chmod %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("rename %s: %w", path, err)
	}
	return nil
}
