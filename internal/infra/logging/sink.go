package logging

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"telegram-vpn-orders/internal/domain/model"
	"telegram-vpn-orders/internal/domain/ports/repository"

	"github.com/rs/zerolog"
)

var _ zerolog.LevelWriter = (*Sink)(nil)

// Sink mirrors log lines into a LogRepository. Lines are queued and written by a single
// goroutine; when the queue is full the line is dropped rather than blocking the caller.
// Debug and trace lines are kept only while detailed logging is on, and so is the
// per-line metadata.
type Sink struct {
	repo     repository.LogRepository
	detailed atomic.Bool
	dropped  atomic.Int64

	mu     sync.RWMutex
	closed bool
	queue  chan *model.LogEntry
	once   sync.Once
	done   chan struct{}
}

func NewSink(repo repository.LogRepository, detailed bool, buffer int) *Sink {
	if buffer <= 0 {
		buffer = 256
	}
	s := &Sink{
		repo:  repo,
		queue: make(chan *model.LogEntry, buffer),
		done:  make(chan struct{}),
	}
	s.detailed.Store(detailed)
	go s.run()
	return s
}

func (s *Sink) SetDetailed(on bool) { s.detailed.Store(on) }
func (s *Sink) Detailed() bool     { return s.detailed.Load() }

// Dropped is the number of lines lost to a full queue, a decode error, or a write
// after Close.
func (s *Sink) Dropped() int64 { return s.dropped.Load() }

func (s *Sink) Write(p []byte) (int, error) {
	return s.WriteLevel(zerolog.NoLevel, p)
}

func (s *Sink) WriteLevel(level zerolog.Level, p []byte) (int, error) {
	detailed := s.detailed.Load()
	if !detailed && (level == zerolog.DebugLevel || level == zerolog.TraceLevel) {
		return len(p), nil
	}

	entry, err := decodeLine(p, detailed)
	if err != nil {
		s.dropped.Add(1)
		return len(p), nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		s.dropped.Add(1)
		return len(p), nil
	}
	select {
	case s.queue <- entry:
	default:
		s.dropped.Add(1)
	}
	return len(p), nil
}

// Close drains the queue and stops the writer goroutine. Later writes are dropped.
// Safe to call more than once.
func (s *Sink) Close() {
	s.once.Do(func() {
		s.mu.Lock()
		s.closed = true
		close(s.queue)
		s.mu.Unlock()
		<-s.done
	})
}

func (s *Sink) run() {
	defer close(s.done)
	for e := range s.queue {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := s.repo.Append(ctx, e); err != nil {
			s.dropped.Add(1)
		}
		cancel()
	}
}

// decodeLine turns one zerolog JSON line into a LogEntry. Fields other than the
// well-known ones become metadata when withMeta is set.
func decodeLine(p []byte, withMeta bool) (*model.LogEntry, error) {
	var fields map[string]any
	if err := json.Unmarshal(p, &fields); err != nil {
		return nil, err
	}

	e := &model.LogEntry{Level: "info", Timestamp: time.Now()}
	if v, ok := fields[zerolog.LevelFieldName].(string); ok && v != "" {
		e.Level = v
	}
	if v, ok := fields[zerolog.MessageFieldName].(string); ok {
		e.Message = v
	}
	if v, ok := fields[zerolog.TimestampFieldName].(string); ok {
		if ts, err := time.Parse(zerolog.TimeFieldFormat, v); err == nil {
			e.Timestamp = ts
		}
	}
	if v, ok := fields["user_id"].(string); ok {
		e.UserID = v
	}

	if withMeta {
		delete(fields, zerolog.LevelFieldName)
		delete(fields, zerolog.MessageFieldName)
		delete(fields, zerolog.TimestampFieldName)
		delete(fields, "user_id")
		if len(fields) > 0 {
			e.Metadata = fields
		}
	}
	return e, nil
}
