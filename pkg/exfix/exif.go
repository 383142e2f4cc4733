package exfix

import (
	"fmt"
	"os"
	"strings"
	"time"

	exiftool "github.com/barasher/go-exiftool"
	goexif "github.com/rwcarlsen/goexif/exif"
	"k8s.io/klog/v2"
)

// exifDate is the layout exiftool uses for date tags.
var exifDate = "2006:01:02 15:04:05"

// writeTags are the EXIF tags overwritten when applying a capture date.
var writeTags = []string{"DateTimeOriginal", "CreateDate", "ModifyDate"}

// A MetadataSource returns a file's EXIF date fields as text for the
// resolver to scan.
type MetadataSource interface {
	DateText(path string) (string, error)
}

// A TagWriter overwrites a file's capture date tags in place.
type TagWriter interface {
	WriteCaptureDate(path string, when time.Time) error
}

// Tool reads and writes EXIF tags through a single stay-open exiftool
// process. It satisfies both MetadataSource and TagWriter.
type Tool struct {
	et     *exiftool.Exiftool
	fields []string
}

// NewTool starts exiftool. An error here means the binary is unavailable,
// which is fatal to the whole run.
func NewTool(fields []string) (*Tool, error) {
	et, err := exiftool.NewExiftool()
	if err != nil {
		return nil, fmt.Errorf("start exiftool: %w", err)
	}
	return &Tool{et: et, fields: fields}, nil
}

// Close shuts the exiftool process down.
func (t *Tool) Close() error {
	return t.et.Close()
}

// DateText returns the configured date fields as one "Tag: value" line each,
// most trustworthy tag first. When exiftool cannot extract anything from a
// file, a native EXIF decode is tried before giving up.
func (t *Tool) DateText(path string) (string, error) {
	fis := t.et.ExtractMetadata(path)
	fi := fis[0]
	if fi.Err != nil {
		klog.V(1).Infof("exiftool extract failed for %s, trying native decode: %v", path, fi.Err)
		return nativeDateText(path)
	}

	var b strings.Builder
	for _, field := range t.fields {
		v, err := fi.GetString(field)
		if err != nil {
			continue
		}
		fmt.Fprintf(&b, "%s: %s\n", field, v)
	}
	return b.String(), nil
}

// WriteCaptureDate overwrites the capture date tags, replacing the file in
// place with no backup copy.
func (t *Tool) WriteCaptureDate(path string, when time.Time) error {
	fm := exiftool.FileMetadata{File: path, Fields: map[string]interface{}{}}
	ds := when.Format(exifDate)
	for _, tag := range writeTags {
		fm.SetString(tag, ds)
	}

	fms := []exiftool.FileMetadata{fm}
	t.et.WriteMetadata(fms)
	if fms[0].Err != nil {
		return fmt.Errorf("write tags for %s: %w", path, fms[0].Err)
	}
	return nil
}

// nativeDateText decodes EXIF date tags without exiftool. It only understands
// JPEG and TIFF containers, but that covers most files exiftool chokes on.
func nativeDateText(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	x, err := goexif.Decode(f)
	if err != nil {
		return "", fmt.Errorf("decode exif: %w", err)
	}

	var b strings.Builder
	for _, name := range []goexif.FieldName{goexif.DateTimeOriginal, goexif.DateTimeDigitized, goexif.DateTime} {
		tag, err := x.Get(name)
		if err != nil {
			continue
		}
		if s, err := tag.StringVal(); err == nil {
			fmt.Fprintf(&b, "%s: %s\n", name, s)
		}
	}
	return b.String(), nil
}
