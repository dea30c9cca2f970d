// Package health watches the messaging connection with a periodic probe and reports
// process vitals for the admin API.
package health

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"telegram-vpn-orders/internal/domain/model"
	"telegram-vpn-orders/internal/domain/ports/adapter"
	"telegram-vpn-orders/internal/infra/metrics"

	"github.com/rs/zerolog"
)

const DefaultProbeTimeout = 10 * time.Second

type Options struct {
	IntervalMinutes int
	ProbeTimeout    time.Duration
	// BotRunning feeds Snapshot.BotRunning.
	BotRunning func() bool
	// AfterCheck runs after every probe, e.g. to refresh pool gauges.
	AfterCheck func()
	// Recover is invoked after a failed probe. The default only records the attempt.
	Recover func(ctx context.Context, cause error)
}

type Memory struct {
	Alloc      uint64 `json:"alloc"`
	TotalAlloc uint64 `json:"total_alloc"`
	Sys        uint64 `json:"sys"`
	HeapInUse  uint64 `json:"heap_in_use"`
	NumGC      uint32 `json:"num_gc"`
}

// Snapshot is the point-in-time health report.
type Snapshot struct {
	Status          string    `json:"status"`
	Connected       bool      `json:"connected"`
	BotRunning      bool      `json:"bot_running"`
	Uptime          string    `json:"uptime"`
	UptimeSeconds   int64     `json:"uptime_seconds"`
	Memory          Memory    `json:"memory"`
	Goroutines      int       `json:"goroutines"`
	IntervalMinutes int       `json:"interval_minutes"`
	LastCheck       time.Time `json:"last_check,omitempty"`
	LastError       string    `json:"last_error,omitempty"`
	Timestamp       time.Time `json:"timestamp"`
}

// Supervisor probes the transport on a timer. Check may also be called directly; timer
// ticks and direct calls may overlap since both only record results.
type Supervisor struct {
	prober  adapter.Prober
	opts    Options
	log     *zerolog.Logger
	started time.Time
	unit    time.Duration

	connected atomic.Bool
	interval  atomic.Int64 // minutes

	resultMu  sync.RWMutex
	lastCheck time.Time
	lastErr   string

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
	rearm  chan struct{}
}

func NewSupervisor(prober adapter.Prober, opts Options, logger *zerolog.Logger) *Supervisor {
	if opts.IntervalMinutes <= 0 {
		opts.IntervalMinutes = model.DefaultHealthCheckInterval
	}
	if opts.ProbeTimeout <= 0 {
		opts.ProbeTimeout = DefaultProbeTimeout
	}
	l := logger.With().Str("component", "health").Logger()
	s := &Supervisor{
		prober:  prober,
		opts:    opts,
		log:     &l,
		started: time.Now(),
		unit:    time.Minute,
		rearm:   make(chan struct{}, 1),
	}
	s.interval.Store(int64(opts.IntervalMinutes))
	if s.opts.Recover == nil {
		s.opts.Recover = s.recordRecovery
	}
	return s
}

// Start launches the timer loop. Starting a running supervisor replaces the old loop so
// there is never more than one.
func (s *Supervisor) Start(parent context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()

	ctx, cancel := context.WithCancel(parent)
	s.cancel = cancel
	s.done = make(chan struct{})
	go s.loop(ctx, s.done)
	s.log.Info().Int("interval_minutes", s.Interval()).Msg("health supervisor started")
}

// Stop cancels the loop and waits for it. Safe to call when not running.
func (s *Supervisor) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopLocked() {
		s.log.Info().Msg("health supervisor stopped")
	}
}

func (s *Supervisor) stopLocked() bool {
	if s.cancel == nil {
		return false
	}
	s.cancel()
	<-s.done
	s.cancel = nil
	s.done = nil
	return true
}

func (s *Supervisor) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancel != nil
}

func (s *Supervisor) Interval() int { return int(s.interval.Load()) }

// SetInterval changes the period; a running timer is re-armed with it.
func (s *Supervisor) SetInterval(minutes int) {
	if minutes <= 0 || int64(minutes) == s.interval.Load() {
		return
	}
	s.interval.Store(int64(minutes))
	select {
	case s.rearm <- struct{}{}:
	default:
	}
	s.log.Info().Int("interval_minutes", minutes).Msg("health check interval changed")
}

func (s *Supervisor) period() time.Duration {
	return time.Duration(s.interval.Load()) * s.unit
}

func (s *Supervisor) loop(ctx context.Context, done chan struct{}) {
	ticker := time.NewTicker(s.period())
	defer func() {
		ticker.Stop()
		close(done)
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.rearm:
			ticker.Reset(s.period())
		case <-ticker.C:
			s.Check(ctx)
		}
	}
}

// Check probes the transport once, bounded by the probe timeout, records the outcome and
// returns a fresh snapshot.
func (s *Supervisor) Check(ctx context.Context) Snapshot {
	probeCtx, cancel := context.WithTimeout(ctx, s.opts.ProbeTimeout)
	err := s.prober.Probe(probeCtx)
	cancel()

	ok := err == nil
	s.connected.Store(ok)
	metrics.ObserveHealthCheck(ok)

	s.resultMu.Lock()
	s.lastCheck = time.Now()
	s.lastErr = ""
	if err != nil {
		s.lastErr = err.Error()
	}
	s.resultMu.Unlock()

	if err != nil {
		s.log.Error().Err(err).Dur("timeout", s.opts.ProbeTimeout).Msg("transport health check failed")
		s.opts.Recover(ctx, err)
	} else {
		s.log.Debug().Msg("transport health check passed")
	}
	if s.opts.AfterCheck != nil {
		s.opts.AfterCheck()
	}
	return s.Snapshot()
}

func (s *Supervisor) Connected() bool { return s.connected.Load() }

// Snapshot reports the last recorded state without probing.
func (s *Supervisor) Snapshot() Snapshot {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	uptime := time.Since(s.started)

	s.resultMu.RLock()
	lastCheck, lastErr := s.lastCheck, s.lastErr
	s.resultMu.RUnlock()

	snap := Snapshot{
		Connected:       s.connected.Load(),
		Uptime:          uptime.Round(time.Second).String(),
		UptimeSeconds:   int64(uptime.Seconds()),
		Goroutines:      runtime.NumGoroutine(),
		IntervalMinutes: s.Interval(),
		LastCheck:       lastCheck,
		LastError:       lastErr,
		Timestamp:       time.Now().UTC(),
		Memory: Memory{
			Alloc:      ms.Alloc,
			TotalAlloc: ms.TotalAlloc,
			Sys:        ms.Sys,
			HeapInUse:  ms.HeapInuse,
			NumGC:      ms.NumGC,
		},
	}
	if s.opts.BotRunning != nil {
		snap.BotRunning = s.opts.BotRunning()
	}
	switch {
	case lastCheck.IsZero():
		snap.Status = "unknown"
	case snap.Connected:
		snap.Status = "ok"
	default:
		snap.Status = "degraded"
	}
	return snap
}

// recordRecovery does not rebuild the transport; restarts are left to the process
// supervisor or the admin API.
func (s *Supervisor) recordRecovery(_ context.Context, cause error) {
	s.log.Warn().Err(cause).Msg("transport unreachable, recovery attempt recorded")
}
