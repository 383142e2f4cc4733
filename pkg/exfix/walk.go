package exfix

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/karrick/godirwalk"
	"k8s.io/klog/v2"
)

// Walker applies date fixing to a file or to every supported file under a
// directory, one file at a time.
type Walker struct {
	Config   *Config
	Source   MetadataSource
	Resolver *Resolver
	Applier  *Applier
}

// NewWalker wires a Walker from a config and an exiftool-backed Tool.
func NewWalker(c *Config, tool *Tool) *Walker {
	return &Walker{
		Config:   c,
		Source:   tool,
		Resolver: NewResolver(c),
		Applier:  &Applier{Writer: tool, Backup: c.Backup, DryRun: c.DryRun},
	}
}

// Run processes root, recursing if it is a directory. Per-file failures are
// counted and logged but never abort the batch; only a missing root or an
// invalid manual date is returned as an error.
func (w *Walker) Run(root, manual string) (*Summary, error) {
	if manual != "" {
		if _, err := w.Resolver.Manual(manual); err != nil {
			return nil, err
		}
	}

	fi, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", root, err)
	}

	s := &Summary{}
	if !fi.IsDir() {
		w.Process(root, manual, s)
		return s, nil
	}

	err = godirwalk.Walk(root, &godirwalk.Options{
		Callback: func(path string, de *godirwalk.Dirent) error {
			if path != root && filepath.Base(path)[0] == '.' {
				return godirwalk.SkipThis
			}
			if de.IsDir() {
				return nil
			}
			w.Process(path, manual, s)
			return nil
		},
	})
	if err != nil {
		return s, fmt.Errorf("walk %s: %w", root, err)
	}
	return s, nil
}

// Process handles one file and records its outcome in s.
func (w *Walker) Process(path, manual string, s *Summary) {
	if !w.Config.Supported(path) {
		klog.Infof("skipping %s: unsupported extension", path)
		s.Skipped++
		return
	}

	if err := w.fix(path, manual); err != nil {
		if errors.Is(err, ErrDateNotFound) {
			klog.Warningf("skipping %s: %v", path, err)
		} else {
			klog.Errorf("%s: %v", path, err)
		}
		s.Failed++
		return
	}
	s.Processed++
}

func (w *Walker) fix(path, manual string) error {
	var when time.Time
	var err error

	if manual != "" {
		// Validated once in Run; reparsed here so every file in the batch
		// gets the identical value.
		when, err = w.Resolver.Manual(manual)
	} else {
		text, terr := w.Source.DateText(path)
		if terr != nil {
			klog.V(1).Infof("no EXIF text for %s: %v", path, terr)
		}
		when, err = w.Resolver.Resolve(text, filepath.Base(path), path, "")
	}
	if err != nil {
		return err
	}

	klog.Infof("%s -> %s", path, when.Format("2006-01-02 15:04:05"))
	return w.Applier.Apply(path, when)
}
