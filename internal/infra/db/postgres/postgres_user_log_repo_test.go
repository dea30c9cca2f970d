//go:build integration

package postgres

import (
	"context"
	"testing"
	"time"

	"telegram-vpn-orders/internal/domain/model"
)

func TestUserRepo_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode.")
	}

	repo := NewPostgresUserRepo(testPool)
	ctx := context.Background()
	cleanup(t)

	t.Run("should keep one row per telegram id", func(t *testing.T) {
		u1, _ := model.NewChatUser("7", "alice", "Alice", "")
		u2, _ := model.NewChatUser("7", "alice2", "Alice", "")
		if err := repo.Create(ctx, u1); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		if err := repo.Create(ctx, u2); err != nil {
			t.Fatalf("second Create failed: %v", err)
		}
		if u2.ID != u1.ID || u2.Username != "alice" {
			t.Errorf("expected the existing row, got %+v", u2)
		}
		n, _ := repo.Count(ctx)
		if n != 1 {
			t.Errorf("expected 1 user, got %d", n)
		}
	})

	t.Run("should bump last activity", func(t *testing.T) {
		before, _ := repo.FindByTelegramID(ctx, "7")
		time.Sleep(10 * time.Millisecond)
		if err := repo.Touch(ctx, "7"); err != nil {
			t.Fatalf("Touch failed: %v", err)
		}
		after, _ := repo.FindByTelegramID(ctx, "7")
		if !after.LastActiveAt.After(before.LastActiveAt) {
			t.Errorf("expected LastActiveAt to move forward")
		}
	})
}

func TestLogRepo_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode.")
	}

	repo := NewPostgresLogRepo(testPool, 3)
	ctx := context.Background()
	cleanup(t)

	t.Run("should trim to the retention size and filter by level", func(t *testing.T) {
		for i, lvl := range []string{"info", "error", "info", "warn", "error"} {
			e := &model.LogEntry{Level: lvl, Message: "m", Timestamp: time.Now().Add(time.Duration(i) * time.Millisecond)}
			if i == 4 {
				e.Metadata = map[string]any{"order": float64(9)}
			}
			if err := repo.Append(ctx, e); err != nil {
				t.Fatalf("Append failed: %v", err)
			}
		}

		all, err := repo.List(ctx, "", 0)
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		if len(all) != 3 {
			t.Fatalf("expected 3 retained entries, got %d", len(all))
		}
		if all[0].Metadata["order"] != float64(9) {
			t.Errorf("expected metadata on the newest entry, got %v", all[0].Metadata)
		}

		errs, _ := repo.List(ctx, "error", 10)
		if len(errs) != 1 {
			t.Errorf("expected 1 retained error entry, got %d", len(errs))
		}
	})

	t.Run("should clear everything", func(t *testing.T) {
		if err := repo.Clear(ctx); err != nil {
			t.Fatalf("Clear failed: %v", err)
		}
		all, _ := repo.List(ctx, "", 0)
		if len(all) != 0 {
			t.Errorf("expected empty log, got %d", len(all))
		}
	})
}
