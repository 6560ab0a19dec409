// Package watch reruns a generation when its schema file changes or on
// a cron schedule.
package watch

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/robfig/cron/v3"
)

const debounce = 500 * time.Millisecond

// Files watches the schema file and invokes rerun on every debounced
// write until the context ends. The schema source must be a file path.
func Files(ctx context.Context, schemaPath string, rerun func()) error {
	info, err := os.Stat(schemaPath)
	if err != nil {
		return fmt.Errorf("watch %s: %w", schemaPath, err)
	}
	if info.IsDir() {
		return fmt.Errorf("watch %s: is a directory", schemaPath)
	}
	abs, err := filepath.Abs(schemaPath)
	if err != nil {
		return err
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()
	// Watch the parent directory: editors replace files on save, which
	// drops a watch held on the file itself.
	if err := w.Add(filepath.Dir(abs)); err != nil {
		return err
	}

	var mu sync.Mutex
	var pending *time.Timer
	trigger := func() {
		mu.Lock()
		defer mu.Unlock()
		if pending != nil {
			pending.Stop()
		}
		pending = time.AfterFunc(debounce, rerun)
	}
	defer func() {
		mu.Lock()
		defer mu.Unlock()
		if pending != nil {
			pending.Stop()
		}
	}()

	log.Printf("watching %s", schemaPath)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case evt, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !evt.Has(fsnotify.Write) && !evt.Has(fsnotify.Create) {
				continue
			}
			evtAbs, err := filepath.Abs(evt.Name)
			if err != nil || evtAbs != abs {
				continue
			}
			trigger()
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Printf("watch error: %v", err)
		}
	}
}

// Cron invokes rerun on the schedule until the context ends.
func Cron(ctx context.Context, expr string, rerun func()) error {
	c := cron.New()
	if _, err := c.AddFunc(expr, rerun); err != nil {
		return fmt.Errorf("cron %q: %w", expr, err)
	}
	c.Start()
	defer c.Stop()
	log.Printf("scheduled %q", expr)
	<-ctx.Done()
	return ctx.Err()
}
