// Package exfix infers capture dates for image files and writes them into
// EXIF metadata and filesystem timestamps.
package exfix

import (
	"path/filepath"
	"strings"
	"time"
)

// Config holds the knobs for a run. The format and extension sets are plain
// data so tests can substitute alternates.
type Config struct {
	// Patterns are tried in order when scanning text for an embedded date,
	// most specific first.
	Patterns []Pattern

	// ManualLayouts are the accepted layouts for a user-supplied date.
	ManualLayouts []string

	// Extensions is the lowercase extension allow-list. Files outside it are
	// skipped, not failed.
	Extensions map[string]bool

	// ExifFields are the EXIF date tags read from a file, most trustworthy
	// first.
	ExifFields []string

	// MinYear and MaxYear bound plausible capture years for auto-detected
	// candidates.
	MinYear int
	MaxYear int

	DryRun bool
	Backup bool
}

// DefaultConfig returns the production configuration.
func DefaultConfig() *Config {
	return &Config{
		Patterns: DefaultPatterns(),
		ManualLayouts: []string{
			"2006-01-02",
			"2006:01:02",
			"02-01-2006",
			"01-02-2006",
			"20060102",
			"2006-01-02 15:04:05",
			"2006:01:02 15:04:05",
		},
		Extensions: map[string]bool{
			".jpg":  true,
			".jpeg": true,
			".png":  true,
			".tiff": true,
			".tif":  true,
			".bmp":  true,
			".gif":  true,
			".webp": true,
			".heic": true,
			".raw":  true,
			".cr2":  true,
			".nef":  true,
			".orf":  true,
			".arw":  true,
		},
		ExifFields: []string{
			"DateTimeOriginal",
			"CreateDate",
			"DateTime",
			"DateTimeDigitized",
			"ModifyDate",
			"FileModifyDate",
		},
		MinYear: 1970,
		MaxYear: time.Now().Year() + 1,
	}
}

// Supported reports whether the file's extension is in the allow-list.
func (c *Config) Supported(path string) bool {
	return c.Extensions[strings.ToLower(filepath.Ext(path))]
}

// Summary counts per-file outcomes for one run.
type Summary struct {
	Processed int
	Skipped   int
	Failed    int
}
