package store

import (
	"errors"
	"testing"
)

func TestSessionRepository_CreateEnd(t *testing.T) {
	s := newTestStore(t)
	repo := s.Sessions()

	sess := &Session{Backend: "mpv", Device: "0"}
	if err := repo.Create(sess); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if sess.ID == "" {
		t.Fatal("Create() did not assign an ID")
	}

	got, err := repo.GetByID(sess.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.Backend != "mpv" || got.Device != "0" || got.EndedAt != nil {
		t.Errorf("GetByID() = %+v", got)
	}

	if err := repo.End(sess.ID); err != nil {
		t.Fatalf("End() error = %v", err)
	}
	got, _ = repo.GetByID(sess.ID)
	if got.EndedAt == nil {
		t.Error("EndedAt not set after End()")
	}
}

func TestSessionRepository_NotFound(t *testing.T) {
	repo := newTestStore(t).Sessions()

	if _, err := repo.GetByID("nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetByID() error = %v, want ErrNotFound", err)
	}
	if err := repo.End("nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("End() error = %v, want ErrNotFound", err)
	}
}

func TestEventRepository_AppendList(t *testing.T) {
	s := newTestStore(t)

	a := &Session{Backend: "memory"}
	b := &Session{Backend: "memory"}
	s.Sessions().Create(a)
	s.Sessions().Create(b)

	events := []*Event{
		{SessionID: a.ID, OldCode: 0, NewCode: 1, Command: "pause"},
		{SessionID: a.ID, OldCode: 0, NewCode: 2, Command: "volume_up(10)", Before: 95, After: 100},
		{SessionID: b.ID, OldCode: 0, NewCode: 3, Command: "volume_down(10)", Error: "volume_down: read: player not ready"},
	}
	for _, e := range events {
		if err := s.Events().Append(e); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
	}

	t.Run("all newest first", func(t *testing.T) {
		got, err := s.Events().List(EventFilter{})
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if len(got) != 3 {
			t.Fatalf("List() returned %d events, want 3", len(got))
		}
		if got[0].Command != "volume_down(10)" || !got[0].Failed() {
			t.Errorf("first event = %+v", got[0])
		}
	})

	t.Run("by session", func(t *testing.T) {
		got, _ := s.Events().List(EventFilter{SessionID: a.ID})
		if len(got) != 2 {
			t.Fatalf("List() returned %d events, want 2", len(got))
		}
		if got[0].After != 100 || got[0].Before != 95 {
			t.Errorf("values = %v -> %v, want 95 -> 100", got[0].Before, got[0].After)
		}
	})

	t.Run("limit", func(t *testing.T) {
		got, _ := s.Events().List(EventFilter{Limit: 1})
		if len(got) != 1 {
			t.Errorf("List() returned %d events, want 1", len(got))
		}
	})

	t.Run("session counts", func(t *testing.T) {
		got, _ := s.Sessions().GetByID(a.ID)
		if got.Commands != 2 {
			t.Errorf("Commands = %d, want 2", got.Commands)
		}
	})
}

func TestSessionRepository_Prune(t *testing.T) {
	s := newTestStore(t)
	repo := s.Sessions()

	var ids []string
	for i := 0; i < 4; i++ {
		sess := &Session{Backend: "memory"}
		repo.Create(sess)
		s.Events().Append(&Event{SessionID: sess.ID, NewCode: 1, Command: "pause"})
		ids = append(ids, sess.ID)
	}

	n, err := repo.Prune(2)
	if err != nil {
		t.Fatalf("Prune() error = %v", err)
	}
	if n != 2 {
		t.Errorf("Prune() removed %d sessions, want 2", n)
	}

	left, _ := repo.List(0)
	if len(left) != 2 || left[0].ID != ids[3] || left[1].ID != ids[2] {
		t.Errorf("remaining sessions = %v, want newest two", left)
	}

	// Events of pruned sessions go with them.
	events, _ := s.Events().List(EventFilter{})
	if len(events) != 2 {
		t.Errorf("events after prune = %d, want 2", len(events))
	}

	if n, _ := repo.Prune(0); n != 0 {
		t.Errorf("Prune(0) removed %d sessions, want 0", n)
	}
}
