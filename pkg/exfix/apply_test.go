package exfix

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestApplyIdempotent(t *testing.T) {
	dir := t.TempDir()
	jpg := filepath.Join(dir, "a.jpg")
	writeFile(t, jpg)

	fw := &fakeWriter{wrote: map[string]time.Time{}}
	a := &Applier{Writer: fw}
	when := date(2021, time.March, 15, 9, 24, 0)

	for i := 0; i < 2; i++ {
		if err := a.Apply(jpg, when); err != nil {
			t.Fatalf("Apply #%d error: %v", i+1, err)
		}
		if got := fw.wrote[jpg]; !got.Equal(when) {
			t.Errorf("Apply #%d wrote %v, want %v", i+1, got, when)
		}
		fi, err := os.Stat(jpg)
		if err != nil {
			t.Fatalf("stat: %v", err)
		}
		if !fi.ModTime().Equal(when) {
			t.Errorf("Apply #%d mtime = %v, want %v", i+1, fi.ModTime(), when)
		}
	}
	if fw.calls != 2 {
		t.Errorf("writer called %d times, want 2", fw.calls)
	}
}

func TestApplyBackup(t *testing.T) {
	dir := t.TempDir()
	jpg := filepath.Join(dir, "a.jpg")
	writeFile(t, jpg)
	orig, err := os.ReadFile(jpg)
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	fw := &fakeWriter{wrote: map[string]time.Time{}}
	a := &Applier{Writer: fw, Backup: true}
	if err := a.Apply(jpg, date(2021, time.March, 15, 0, 0, 0)); err != nil {
		t.Fatalf("Apply error: %v", err)
	}

	bak, err := os.ReadFile(jpg + backupSuffix)
	if err != nil {
		t.Fatalf("backup missing: %v", err)
	}
	if string(bak) != string(orig) {
		t.Errorf("backup content differs from original")
	}
}

func TestApplyDryRun(t *testing.T) {
	dir := t.TempDir()
	jpg := filepath.Join(dir, "a.jpg")
	writeFile(t, jpg)
	before, err := os.Stat(jpg)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}

	fw := &fakeWriter{wrote: map[string]time.Time{}}
	a := &Applier{Writer: fw, DryRun: true}
	if err := a.Apply(jpg, date(2021, time.March, 15, 0, 0, 0)); err != nil {
		t.Fatalf("Apply error: %v", err)
	}

	if fw.calls != 0 {
		t.Errorf("writer called %d times in dry-run", fw.calls)
	}
	after, err := os.Stat(jpg)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if !after.ModTime().Equal(before.ModTime()) {
		t.Errorf("dry-run changed mtime from %v to %v", before.ModTime(), after.ModTime())
	}
}

func TestApplyWriterError(t *testing.T) {
	dir := t.TempDir()
	jpg := filepath.Join(dir, "a.jpg")
	writeFile(t, jpg)
	before, err := os.Stat(jpg)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}

	toolErr := errors.New("exiftool exploded")
	a := &Applier{Writer: &fakeWriter{err: toolErr}}
	if err := a.Apply(jpg, date(2021, time.March, 15, 0, 0, 0)); !errors.Is(err, toolErr) {
		t.Fatalf("Apply error = %v, want wrapped writer error", err)
	}

	// A failed metadata write must leave the timestamps alone.
	after, err := os.Stat(jpg)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if !after.ModTime().Equal(before.ModTime()) {
		t.Errorf("failed apply changed mtime")
	}
}
