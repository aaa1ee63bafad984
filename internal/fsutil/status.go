// SPDX-License-Identifier: MIT

// Package fsutil provides durable file write helpers.
package fsutil

import (
	"encoding/json"
	"fmt"

	"github.com/ManuGH/stepwatch/internal/log"
	"github.com/google/renameio/v2"
)

// WriteJSONAtomic writes v as JSON to path with full durability
// guarantees: temp file, fsync, atomic rename. External tooling reading
// the status file never observes a partial write.
func WriteJSONAtomic(path string, v any) error {
	pending, err := renameio.NewPendingFile(path)
	if err != nil {
		return fmt.Errorf("create pending file: %w", err)
	}
	defer func() {
		// renameio removes the temp file if not committed
		if err := pending.Cleanup(); err != nil {
			logger := log.WithComponent("fsutil")
			logger.Debug().Err(err).Msg("cleanup pending file")
		}
	}()

	enc := json.NewEncoder(pending)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode JSON: %w", err)
	}

	// CloseAtomicallyReplace: fsync + rename (durable + atomic)
	if err := pending.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("atomically replace file: %w", err)
	}
	return nil
}
