package engine

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"mockline/internal/events"
)

// Clear removes {base}*.json under dir. Deletion failures log a warning
// and never abort; removed names are returned and the removal is
// recorded in the ledger.
func (e Engine) Clear(ctx context.Context, dir, base string) ([]string, error) {
	return e.clear(ctx, "", dir, base)
}

func (e Engine) clear(ctx context.Context, runID, dir, base string) ([]string, error) {
	pattern := filepath.Join(dir, base+"*.json")
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("glob %s: %w", pattern, err)
	}
	var removed []string
	for _, m := range matches {
		if err := os.Remove(m); err != nil {
			log.Printf("warning: could not remove %s: %v", m, err)
			continue
		}
		removed = append(removed, filepath.Base(m))
	}
	if e.DB == nil || len(removed) == 0 {
		return removed, nil
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return removed, err
	}
	defer tx.Rollback()
	if err := e.Events.Append(ctx, tx, events.TypeFilesCleared, runID, events.EventPayload{
		"dir":     dir,
		"base":    base,
		"removed": len(removed),
	}); err != nil {
		return removed, err
	}
	return removed, tx.Commit()
}
