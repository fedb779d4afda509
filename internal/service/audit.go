package service

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"aurabot/internal/model"
)

// AuditSink is the subset of the audit repository the service uses.
type AuditSink interface {
	Insert(ctx context.Context, entry *model.AuditEntry) error
}

// AuditService writes audit records through a buffered channel and a
// single background writer, so recording never blocks a game action.
// When the buffer is full the record is dropped and logged.
type AuditService struct {
	sink AuditSink
	ch   chan *model.AuditEntry
	done chan struct{}
}

// NewAuditService creates the service and starts its writer goroutine.
func NewAuditService(sink AuditSink, buffer int) *AuditService {
	s := &AuditService{
		sink: sink,
		ch:   make(chan *model.AuditEntry, buffer),
		done: make(chan struct{}),
	}
	go s.run()
	return s
}

// Record queues an audit entry without blocking.
func (s *AuditService) Record(kind string, accountID int64, username, message string) {
	entry := &model.AuditEntry{
		Kind:      kind,
		AccountID: accountID,
		Username:  username,
		Message:   message,
	}

	select {
	case s.ch <- entry:
	default:
		log.Warn().
			Str("kind", kind).
			Int64("account_id", accountID).
			Msg("Audit buffer full, dropping record")
	}
}

// Close stops accepting records, flushes the buffer and waits for the
// writer to finish.
func (s *AuditService) Close() {
	close(s.ch)
	<-s.done
}

func (s *AuditService) run() {
	defer close(s.done)

	for entry := range s.ch {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := s.sink.Insert(ctx, entry); err != nil {
			log.Error().Err(err).
				Str("kind", entry.Kind).
				Int64("account_id", entry.AccountID).
				Msg("Failed to write audit record")
		}
		cancel()
	}
}
