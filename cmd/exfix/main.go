// exfix infers a capture date for image files and writes it into their EXIF
// tags and filesystem timestamps.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"k8s.io/klog/v2"

	"github.com/fsnotify/fsnotify"
	"github.com/karrick/godirwalk"

	"github.com/ddemuro/exfix/pkg/exfix"
)

var (
	dryRun    = flag.Bool("n", false, "dry-run mode, don't change anything")
	backup    = flag.Bool("backup", false, "copy each file aside before rewriting it")
	watchFlag = flag.Bool("watch", false, "keep watching the directory and fix new files")
)

func main() {
	klog.InitFlags(nil)
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "usage: %s [flags] <path> [manual-date]\n", filepath.Base(os.Args[0]))
		os.Exit(2)
	}

	root := flag.Arg(0)
	manual := ""
	if flag.NArg() > 1 {
		manual = flag.Arg(1)
	}

	c := exfix.DefaultConfig()
	c.DryRun = *dryRun
	c.Backup = *backup

	tool, err := exfix.NewTool(c.ExifFields)
	if err != nil {
		klog.Exitf("exiftool failed: %v", err)
	}
	defer func() {
		if err := tool.Close(); err != nil {
			klog.Errorf("close exiftool: %v", err)
		}
	}()

	w := exfix.NewWalker(c, tool)
	s, err := w.Run(root, manual)
	if err != nil {
		klog.Exitf("run failed: %v", err)
	}

	fmt.Printf("processed %d, skipped %d, failed %d\n", s.Processed, s.Skipped, s.Failed)

	if *watchFlag {
		fi, err := os.Stat(root)
		if err != nil || !fi.IsDir() {
			klog.Exitf("-watch needs a directory")
		}
		if err := watch(w, root, manual); err != nil {
			klog.Exitf("watch failed: %v", err)
		}
	}
}

// watch keeps fixing dates on files that appear under root after the initial
// pass.
func watch(w *exfix.Walker, root, manual string) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("new watcher: %w", err)
	}
	defer fw.Close()

	dirs := []string{root}
	err = godirwalk.Walk(root, &godirwalk.Options{
		Callback: func(path string, de *godirwalk.Dirent) error {
			if path != root && filepath.Base(path)[0] == '.' {
				return godirwalk.SkipThis
			}
			if de.IsDir() {
				dirs = append(dirs, path)
			}
			return nil
		},
	})
	if err != nil {
		return fmt.Errorf("walk: %w", err)
	}

	slices.Sort(dirs)
	dirs = slices.Compact(dirs)

	klog.Infof("watching %d dirs ...", len(dirs))
	for _, d := range dirs {
		if err := fw.Add(d); err != nil {
			return fmt.Errorf("add %s: %w", d, err)
		}
	}

	for {
		select {
		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			fi, err := os.Stat(event.Name)
			if err != nil {
				continue
			}
			if fi.IsDir() {
				if err := fw.Add(event.Name); err != nil {
					klog.Errorf("add %s: %v", event.Name, err)
				}
				continue
			}
			s := &exfix.Summary{}
			w.Process(event.Name, manual, s)
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			klog.Errorf("watch error: %v", err)
		}
	}
}
