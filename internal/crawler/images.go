package crawler

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"unicode"
)

// ErrEmptyFilename is returned when an asset name has no usable characters.
var ErrEmptyFilename = errors.New("asset name yields an empty file name")

// ImageDirName is the archive subdirectory holding card images.
const ImageDirName = "pepes"

// Downloader saves a URL to a local file.
type Downloader interface {
	Download(ctx context.Context, rawURL, dest string) error
}

// ImageSaver downloads card images into <archive>/pepes.
type ImageSaver struct {
	downloader Downloader
	dir        string
}

// NewImageSaver creates a saver writing into dir.
func NewImageSaver(downloader Downloader, dir string) *ImageSaver {
	return &ImageSaver{downloader: downloader, dir: dir}
}

// Save downloads imageURL for assetName and returns the archive-relative
// path "pepes/<name>.<ext>".
func (s *ImageSaver) Save(ctx context.Context, assetName, imageURL string) (string, error) {
	safe := SanitizeFilename(assetName)
	if safe == "" {
		return "", ErrEmptyFilename
	}
	file := safe + "." + ImageExtension(imageURL)
	if err := s.downloader.Download(ctx, imageURL, filepath.Join(s.dir, file)); err != nil {
		return "", err
	}
	return ImageDirName + "/" + file, nil
}

// SanitizeFilename keeps letters, digits, '.', '_' and '-'.
func SanitizeFilename(name string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '.' || r == '_' || r == '-' {
			return r
		}
		return -1
	}, name)
}

// ImageExtension picks png, gif or webp when the URL mentions one, else jpg.
func ImageExtension(imageURL string) string {
	lower := strings.ToLower(imageURL)
	switch {
	case strings.Contains(lower, ".png"):
		return "png"
	case strings.Contains(lower, ".gif"):
		return "gif"
	case strings.Contains(lower, ".webp"):
		return "webp"
	default:
		return "jpg"
	}
}
