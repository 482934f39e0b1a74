// ABOUTME: Observer hooks for pipeline stages, chat outcomes and ingestion runs
// ABOUTME: Lets metrics collectors watch core code without core importing them
package core

import (
	"time"

	"github.com/harper/folio/internal/models"
)

// Chat outcomes reported to an Observer
const (
	OutcomeOK            = "ok"
	OutcomeNotConfigured = "not_configured"
	OutcomeUnavailable   = "unavailable"
)

// Observer receives pipeline, chat and ingestion measurements
type Observer interface {
	ObserveStage(stage string, d time.Duration, err error)
	ObserveChat(outcome string)
	ObserveIngest(stats models.IngestStats)
}

type nopObserver struct{}

func (nopObserver) ObserveStage(string, time.Duration, error) {}
func (nopObserver) ObserveChat(string)                        {}
func (nopObserver) ObserveIngest(models.IngestStats)          {}

func observerOrNop(o Observer) Observer {
	if o == nil {
		return nopObserver{}
	}
	return o
}
