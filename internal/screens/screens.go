// Package screens binds list controllers, filters and aggregates into the
// view models each page of the client renders.
package screens

import (
	"time"

	"fintrack/internal/aggregate"
	"fintrack/internal/api"
	"fintrack/internal/events"
	"fintrack/internal/listsync"
	"fintrack/internal/log"
)

// Deps is what every screen needs from the application context.
type Deps struct {
	Client      *api.Client
	Publisher   events.Publisher
	Notify      func(listsync.Notice)
	Logger      *log.Logger
	Thresholds  aggregate.Thresholds
	RecentLimit int
	Clock       func() time.Time
}

func (d Deps) clock() func() time.Time {
	if d.Clock == nil {
		return time.Now
	}
	return d.Clock
}

func (d Deps) logger() *log.Logger {
	return log.OrDiscard(d.Logger)
}

func (d Deps) thresholds() aggregate.Thresholds {
	if d.Thresholds.Over.IsZero() {
		return aggregate.DefaultThresholds()
	}
	return d.Thresholds
}
