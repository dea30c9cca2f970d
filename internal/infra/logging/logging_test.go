//go:build !integration

package logging

import (
	"context"
	"testing"

	"telegram-vpn-orders/internal/infra/db/memory"

	"github.com/rs/zerolog"
)

func newSinkLogger(s *Sink) zerolog.Logger {
	return zerolog.New(zerolog.MultiLevelWriter(s)).With().Timestamp().Logger()
}

func TestSink(t *testing.T) {
	ctx := context.Background()
	zerolog.SetGlobalLevel(zerolog.TraceLevel)
	defer zerolog.SetGlobalLevel(zerolog.InfoLevel)

	t.Run("should persist message, user and metadata when detailed", func(t *testing.T) {
		repo := memory.NewLogRepo(10)
		sink := NewSink(repo, true, 8)
		log := newSinkLogger(sink)

		log.Warn().Str("user_id", "42").Int64("order_id", 7).Msg("payment proof forwarded")
		sink.Close()

		entries, _ := repo.List(ctx, "", 0)
		if len(entries) != 1 {
			t.Fatalf("expected 1 entry, got %d", len(entries))
		}
		e := entries[0]
		if e.Level != "warn" || e.Message != "payment proof forwarded" || e.UserID != "42" {
			t.Errorf("unexpected entry: %+v", e)
		}
		if e.Metadata["order_id"] != float64(7) {
			t.Errorf("expected order_id metadata, got %v", e.Metadata)
		}
	})

	t.Run("should skip verbose lines and metadata when not detailed", func(t *testing.T) {
		repo := memory.NewLogRepo(10)
		sink := NewSink(repo, false, 8)
		log := newSinkLogger(sink)

		log.Debug().Msg("noise")
		log.Info().Str("k", "v").Msg("kept")
		sink.Close()

		entries, _ := repo.List(ctx, "", 0)
		if len(entries) != 1 || entries[0].Message != "kept" {
			t.Fatalf("expected only the info line, got %+v", entries)
		}
		if entries[0].Metadata != nil {
			t.Errorf("expected no metadata, got %v", entries[0].Metadata)
		}
	})

	t.Run("should pick up a detailed toggle at runtime", func(t *testing.T) {
		repo := memory.NewLogRepo(10)
		sink := NewSink(repo, false, 8)
		log := newSinkLogger(sink)

		log.Debug().Msg("dropped")
		sink.SetDetailed(true)
		log.Debug().Msg("kept")
		sink.Close()

		entries, _ := repo.List(ctx, "debug", 0)
		if len(entries) != 1 || entries[0].Message != "kept" {
			t.Fatalf("expected one debug entry, got %+v", entries)
		}
	})

	t.Run("should close idempotently", func(t *testing.T) {
		sink := NewSink(memory.NewLogRepo(1), true, 1)
		sink.Close()
		sink.Close()
	})
	t.Run("should drop and count writes after close", func(t *testing.T) {
		repo := memory.NewLogRepo(10)
		sink := NewSink(repo, true, 8)
		log := newSinkLogger(sink)

		log.Info().Msg("before close")
		sink.Close()
		log.Error().Msg("admin API stopped")

		if sink.Dropped() != 1 {
			t.Errorf("expected 1 dropped line, got %d", sink.Dropped())
		}
		entries, _ := repo.List(ctx, "", 0)
		if len(entries) != 1 || entries[0].Message != "before close" {
			t.Errorf("expected only the line written before close, got %+v", entries)
		}
	})
}

func TestSetLevel(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.InfoLevel)

	SetLevel("debug")
	if zerolog.GlobalLevel() != zerolog.DebugLevel {
		t.Errorf("expected debug, got %s", zerolog.GlobalLevel())
	}
	SetLevel("nonsense")
	if zerolog.GlobalLevel() != zerolog.InfoLevel {
		t.Errorf("expected fallback to info, got %s", zerolog.GlobalLevel())
	}
}

func TestContextHelpers(t *testing.T) {
	ctx := WithTraceID(context.Background(), NewTraceID())
	if len(TraceIDFrom(ctx)) != 26 {
		t.Errorf("expected a 26-char ULID, got %q", TraceIDFrom(ctx))
	}
}
