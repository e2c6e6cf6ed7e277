package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/lastminutejob75/standardiste/internal/fsm"
)

func TestMemStore_GetOrCreate(t *testing.T) {
	m := NewMemStore(15 * time.Minute)
	ctx := context.Background()

	s1, created, err := m.GetOrCreate(ctx, "cabinet", "conv-1", ChannelVoice, t0)
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	if !created {
		t.Error("first call must create")
	}

	s1.State = fsm.QualifName
	if err := m.Save(ctx, s1); err != nil {
		t.Fatalf("Save: %v", err)
	}

	s2, created, err := m.GetOrCreate(ctx, "cabinet", "conv-1", ChannelVoice, t0)
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	if created {
		t.Error("second call must not create")
	}
	if s2.State != fsm.QualifName {
		t.Errorf("state = %s, want saved state", s2.State)
	}
}

func TestMemStore_TenantIsolation(t *testing.T) {
	m := NewMemStore(15 * time.Minute)
	ctx := context.Background()

	a, _, _ := m.GetOrCreate(ctx, "cabinet", "conv-1", ChannelVoice, t0)
	a.Qualification.Name = "Jean Dupont"
	m.Save(ctx, a)

	b, created, _ := m.GetOrCreate(ctx, "garage", "conv-1", ChannelVoice, t0)
	if !created {
		t.Fatal("same conv ID under another tenant must be a distinct session")
	}
	if b.Qualification.Name != "" {
		t.Error("tenant data leaked across the key boundary")
	}
}

func TestMemStore_Delete(t *testing.T) {
	m := NewMemStore(15 * time.Minute)
	ctx := context.Background()

	m.GetOrCreate(ctx, "cabinet", "conv-1", ChannelVoice, t0)
	if m.Len() != 1 {
		t.Fatalf("len = %d, want 1", m.Len())
	}
	if err := m.Delete(ctx, "cabinet", "conv-1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if m.Len() != 0 {
		t.Errorf("len = %d, want 0", m.Len())
	}

	_, created, _ := m.GetOrCreate(ctx, "cabinet", "conv-1", ChannelVoice, t0)
	if !created {
		t.Error("deleted session must be recreated fresh")
	}
}

func TestMemStore_Touch(t *testing.T) {
	m := NewMemStore(15 * time.Minute)
	ctx := context.Background()

	s, _, _ := m.GetOrCreate(ctx, "cabinet", "conv-1", ChannelVoice, t0)
	later := t0.Add(5 * time.Minute)
	if err := m.Touch(ctx, "cabinet", "conv-1", later); err != nil {
		t.Fatalf("Touch: %v", err)
	}
	if !s.LastSeenAt.Equal(later) {
		t.Errorf("last seen = %v, want %v", s.LastSeenAt, later)
	}
}

func TestMemStore_SweepEvictsDeadSessions(t *testing.T) {
	m := NewMemStore(15 * time.Minute)
	ctx := context.Background()

	m.GetOrCreate(ctx, "cabinet", "stale", ChannelVoice, t0)
	fresh, _, _ := m.GetOrCreate(ctx, "cabinet", "fresh", ChannelVoice, t0)
	fresh.LastSeenAt = t0.Add(29 * time.Minute)

	// The sweeper only reclaims sessions idle past twice the TTL; lazy
	// expiry handles anything younger.
	m.sweep(t0.Add(30*time.Minute + time.Second))

	if m.Len() != 1 {
		t.Fatalf("len = %d, want 1", m.Len())
	}
	if _, created, _ := m.GetOrCreate(ctx, "cabinet", "fresh", ChannelVoice, t0); created {
		t.Error("recently seen session must survive the sweep")
	}
}

func TestMemStore_ConcurrentAccess(t *testing.T) {
	m := NewMemStore(15 * time.Minute)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			conv := string(rune('a' + i%10))
			s, _, err := m.GetOrCreate(ctx, "cabinet", conv, ChannelText, t0)
			if err != nil {
				t.Errorf("GetOrCreate: %v", err)
				return
			}
			if err := m.Save(ctx, s); err != nil {
				t.Errorf("Save: %v", err)
			}
		}(i)
	}
	wg.Wait()

	if m.Len() != 10 {
		t.Errorf("len = %d, want 10", m.Len())
	}
}
