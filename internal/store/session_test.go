package store

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestSessionRepository_CreateAndUpdate(t *testing.T) {
	repo := newTestStore(t).Sessions()

	s := &Session{ID: uuid.NewString(), Source: "0"}
	if err := repo.Create(s); err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	if s.StartedAt.IsZero() {
		t.Error("Create() should set StartedAt")
	}

	got, err := repo.Get(s.ID)
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if got.EndedAt != nil {
		t.Error("new session should not have an end time")
	}

	ended := s.StartedAt.Add(time.Minute)
	s.EndedAt = &ended
	s.Frames = 900
	s.HandFrames = 420
	s.LevelUpdates = 37
	s.Errors = 2
	s.LastLevel = 62.5
	if err := repo.Update(s); err != nil {
		t.Fatalf("Update() failed: %v", err)
	}

	got, err = repo.Get(s.ID)
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if got.Frames != 900 || got.HandFrames != 420 || got.LevelUpdates != 37 || got.Errors != 2 || got.LastLevel != 62.5 {
		t.Errorf("counters not persisted: %+v", got)
	}
	if got.EndedAt == nil || !got.EndedAt.Equal(ended) {
		t.Errorf("EndedAt = %v, want %v", got.EndedAt, ended)
	}
	if got.Source != "0" {
		t.Errorf("Source = %q, want 0", got.Source)
	}
}

func TestSessionRepository_List(t *testing.T) {
	repo := newTestStore(t).Sessions()

	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	for i := 0; i < 3; i++ {
		s := &Session{ID: uuid.NewString(), Source: "0", StartedAt: base.Add(time.Duration(i) * time.Hour)}
		if err := repo.Create(s); err != nil {
			t.Fatal(err)
		}
	}

	all, err := repo.List(0)
	if err != nil {
		t.Fatalf("List() failed: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 sessions, got %d", len(all))
	}
	if !all[0].StartedAt.After(all[1].StartedAt) || !all[1].StartedAt.After(all[2].StartedAt) {
		t.Error("sessions should be listed newest first")
	}

	limited, err := repo.List(2)
	if err != nil {
		t.Fatalf("List(2) failed: %v", err)
	}
	if len(limited) != 2 {
		t.Errorf("List(2) returned %d sessions", len(limited))
	}
}

func TestSessionRepository_NotFound(t *testing.T) {
	repo := newTestStore(t).Sessions()

	if _, err := repo.Get("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() error = %v, want ErrNotFound", err)
	}
	if err := repo.Update(&Session{ID: "missing"}); !errors.Is(err, ErrNotFound) {
		t.Errorf("Update() error = %v, want ErrNotFound", err)
	}
}
