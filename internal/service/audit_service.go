package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/dmehra2102/prod-golang-projects/cleftcare/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/cleftcare/pkg/metrics"
)

type AuditRepository interface {
	CreateBatch(ctx context.Context, entries []*domain.AuditLog) error
}

const (
	auditBufferSize = 10_000
	auditBatchSize  = 100
	auditFlushEvery = time.Second
)

// AuditService persists audit entries off the request path. Entries are
// written in batches of up to batchSize, at least every flushEvery.
type AuditService struct {
	repo    AuditRepository
	log     *zap.Logger
	metrics *metrics.Collector

	batchSize  int
	flushEvery time.Duration

	mu      sync.RWMutex
	closed  bool
	entries chan *domain.AuditLog
	done    chan struct{}
}

func NewAuditService(repo AuditRepository, m *metrics.Collector, log *zap.Logger) *AuditService {
	return newAuditService(repo, m, log, auditBufferSize, auditBatchSize, auditFlushEvery)
}

func newAuditService(repo AuditRepository, m *metrics.Collector, log *zap.Logger, bufferSize, batchSize int, flushEvery time.Duration) *AuditService {
	svc := &AuditService{
		repo:       repo,
		log:        log,
		metrics:    m,
		batchSize:  batchSize,
		flushEvery: flushEvery,
		entries:    make(chan *domain.AuditLog, bufferSize),
		done:       make(chan struct{}),
	}
	go svc.worker()
	return svc
}

// LogAsync queues an entry. It never blocks: when the queue is full, or
// the service has been shut down, the entry is dropped and counted.
func (s *AuditService) LogAsync(_ context.Context, entry AuditEntry) {
	al := &domain.AuditLog{
		UserID:       entry.UserID,
		UserRole:     entry.UserRole,
		Action:       entry.Action,
		ResourceType: entry.ResourceType,
		ResourceID:   entry.ResourceID,
		IPAddress:    entry.IPAddress,
		RequestID:    entry.RequestID,
		StatusCode:   entry.StatusCode,
		Changes:      entry.Changes,
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.closed {
		select {
		case s.entries <- al:
			return
		default:
		}
	}

	s.metrics.AuditBufferDropped.Inc()
	s.log.Warn("audit entry dropped",
		zap.Bool("shut_down", s.closed),
		zap.String("action", string(entry.Action)),
		zap.String("resource", entry.ResourceType),
		zap.String("resource_id", entry.ResourceID),
	)
}

// Shutdown flushes what is queued and stops the worker. Safe to call more
// than once.
func (s *AuditService) Shutdown() {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.entries)
	}
	s.mu.Unlock()

	select {
	case <-s.done:
	case <-time.After(10 * time.Second):
		s.log.Warn("audit service shutdown timed out; some entries may be lost")
	}
}

func (s *AuditService) worker() {
	defer close(s.done)

	ticker := time.NewTicker(s.flushEvery)
	defer ticker.Stop()

	batch := make([]*domain.AuditLog, 0, s.batchSize)
	flush := func() {
		if len(batch) == 0 {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.repo.CreateBatch(ctx, batch); err != nil {
			s.log.Error("failed to persist audit logs", zap.Int("entries", len(batch)), zap.Error(err))
		} else {
			s.metrics.AuditEntriesTotal.Add(float64(len(batch)))
		}
		batch = make([]*domain.AuditLog, 0, s.batchSize)
	}

	for {
		select {
		case entry, ok := <-s.entries:
			if !ok {
				flush()
				return
			}
			batch = append(batch, entry)
			if len(batch) >= s.batchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		}
	}
}
