package exfix

import (
	"fmt"
	"os"
	"time"

	"github.com/otiai10/copy"
	"k8s.io/klog/v2"
)

// backupSuffix names the copy taken aside before a destructive rewrite.
const backupSuffix = ".exfix-bak"

// Applier writes a resolved capture date into a file's EXIF tags and
// filesystem timestamps. Both writes are irreversible unless Backup is set.
type Applier struct {
	Writer TagWriter
	Backup bool
	DryRun bool
}

// Apply stamps the date onto one file. A failed EXIF write is an error; a
// failed timestamp update after a successful EXIF write is only logged, since
// the metadata is already correct.
func (a *Applier) Apply(path string, when time.Time) error {
	if a.DryRun {
		klog.Infof("dry-run: would set %s to %s", path, when.Format("2006-01-02 15:04:05"))
		return nil
	}

	if a.Backup {
		if err := copy.Copy(path, path+backupSuffix); err != nil {
			return fmt.Errorf("backup: %w", err)
		}
	}

	if err := a.Writer.WriteCaptureDate(path, when); err != nil {
		return fmt.Errorf("metadata write: %w", err)
	}

	// Creation time is not settable on most platforms; atime and mtime are.
	if err := os.Chtimes(path, when, when); err != nil {
		klog.Warningf("EXIF updated but timestamps not set for %s: %v", path, err)
	}
	return nil
}
