// SPDX-License-Identifier: MIT

package daemon

import (
	"fmt"
	"net/http"

	"github.com/rs/zerolog"
)

// Deps bundles everything the daemon manager needs to run.
type Deps struct {
	Logger         zerolog.Logger
	APIHandler     http.Handler
	MetricsHandler http.Handler // nil disables the metrics listener
	MetricsAddr    string
	Scheduler      *Scheduler
}

// Validate ensures required dependencies are present.
func (d Deps) Validate() error {
	if d.APIHandler == nil {
		return fmt.Errorf("API handler is required")
	}
	if d.Scheduler == nil {
		return fmt.Errorf("scheduler is required")
	}
	if d.MetricsHandler != nil && d.MetricsAddr == "" {
		return fmt.Errorf("metrics handler set but no metrics address")
	}
	return nil
}
