// Package progress maintains the de-duplicated progress event ledger, grades
// quiz submissions, and recomputes certificate eligibility after every
// write.
package progress

import (
	"log/slog"

	"github.com/skillpath-labs/skillpath/internal/course"
	"github.com/skillpath-labs/skillpath/internal/store"
)

// Notifier receives ledger events that were actually written, for pushing to
// live subscribers. Implementations must not block.
type Notifier interface {
	NotifyProgress(userID string, ev course.ProgressEvent)
}

// Service is the progress ledger front end.
type Service struct {
	store    store.Store
	notifier Notifier
	logger   *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithNotifier attaches a live-progress notifier.
func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// NewService creates a progress service.
func NewService(st store.Store, opts ...Option) *Service {
	s := &Service{store: st, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) notify(userID string, ev course.ProgressEvent) {
	if s.notifier != nil {
		s.notifier.NotifyProgress(userID, ev)
	}
}
