package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"microcourse_backend/internal/util"
)

func TestMemoryQuizSessionStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryQuizSessionStore(time.Minute)
	clock := time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)
	store.kv.now = func() time.Time { return clock }

	session := newSession(2, 80, false)
	_ = session.Start(&stubAwarder{})
	_ = session.Select(1)
	if err := store.Save(ctx, session); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := store.Get(ctx, "user-1", "module-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Phase != PhaseQuiz || got.States[0].Selected == nil || *got.States[0].Selected != 1 {
		t.Fatalf("session did not round trip: %+v", got)
	}

	got.Current = 1
	if again, _ := store.Get(ctx, "user-1", "module-1"); again.Current != 0 {
		t.Fatalf("Get must return an independent copy")
	}

	if _, err := store.Get(ctx, "user-2", "module-1"); !errors.Is(err, util.ErrQuizSessionNotFound) {
		t.Fatalf("other user: want ErrQuizSessionNotFound, got %v", err)
	}

	clock = clock.Add(time.Minute)
	if _, err := store.Get(ctx, "user-1", "module-1"); !errors.Is(err, util.ErrQuizSessionNotFound) {
		t.Fatalf("expired session: want ErrQuizSessionNotFound, got %v", err)
	}

	_ = store.Save(ctx, session)
	_ = store.Delete(ctx, "user-1", "module-1")
	if _, err := store.Get(ctx, "user-1", "module-1"); !errors.Is(err, util.ErrQuizSessionNotFound) {
		t.Fatalf("deleted session: want ErrQuizSessionNotFound, got %v", err)
	}
}

func TestMemoryTokenRevoker(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryTokenRevoker()
	clock := time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)
	r.kv.now = func() time.Time { return clock }

	if err := r.Revoke(ctx, "jti-expired", 0); err != nil {
		t.Fatalf("Revoke: %v", err)
	}
	if revoked, _ := r.IsRevoked(ctx, "jti-expired"); revoked {
		t.Fatalf("already expired token should not be stored")
	}

	_ = r.Revoke(ctx, "jti-1", time.Hour)
	if revoked, _ := r.IsRevoked(ctx, "jti-1"); !revoked {
		t.Fatalf("token should be revoked")
	}
	clock = clock.Add(time.Hour)
	if revoked, _ := r.IsRevoked(ctx, "jti-1"); revoked {
		t.Fatalf("revocation should lapse with the token")
	}
}
