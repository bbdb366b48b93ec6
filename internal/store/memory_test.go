package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fluxdna/timegate/internal/core"
)

func testMemory() (*Memory, *time.Time) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s := NewMemoryWithClock(func() time.Time { return now })
	return s, &now
}

func TestMemory_PutGetRoundtrip(t *testing.T) {
	s, _ := testMemory()
	ctx := context.Background()

	if err := s.Put(ctx, "k", []byte("v"), time.Hour); err != nil {
		t.Fatal(err)
	}
	got, err := s.Get(ctx, "k")
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "v" {
		t.Errorf("got %q, want %q", got, "v")
	}
}

func TestMemory_GetAbsent(t *testing.T) {
	s, _ := testMemory()

	_, err := s.Get(context.Background(), "nope")
	if !errors.Is(err, core.ErrNotFoundOrExpired) {
		t.Fatalf("expected ErrNotFoundOrExpired, got %v", err)
	}
}

func TestMemory_LazyExpiry(t *testing.T) {
	s, now := testMemory()
	ctx := context.Background()

	if err := s.Put(ctx, "k", []byte("v"), time.Hour); err != nil {
		t.Fatal(err)
	}

	*now = now.Add(time.Hour + time.Second)

	if _, err := s.Get(ctx, "k"); !errors.Is(err, core.ErrNotFoundOrExpired) {
		t.Fatalf("expected expiry, got %v", err)
	}
	if _, err := s.TTL(ctx, "k"); !errors.Is(err, core.ErrNotFoundOrExpired) {
		t.Fatalf("expected expiry from TTL, got %v", err)
	}
	_, err := s.Update(ctx, "k", func(old []byte) ([]byte, time.Duration, error) {
		t.Fatal("transform must not run on an expired entry")
		return nil, 0, nil
	})
	if !errors.Is(err, core.ErrNotFoundOrExpired) {
		t.Fatalf("expected expiry from Update, got %v", err)
	}
}

func TestMemory_TTLReporting(t *testing.T) {
	s, now := testMemory()
	ctx := context.Background()

	if err := s.Put(ctx, "k", []byte("v"), time.Hour); err != nil {
		t.Fatal(err)
	}

	ttl, err := s.TTL(ctx, "k")
	if err != nil {
		t.Fatal(err)
	}
	if ttl != time.Hour {
		t.Errorf("ttl = %s, want 1h", ttl)
	}

	*now = now.Add(20 * time.Minute)

	ttl, err = s.TTL(ctx, "k")
	if err != nil {
		t.Fatal(err)
	}
	if ttl != 40*time.Minute {
		t.Errorf("ttl = %s, want 40m", ttl)
	}
}

func TestMemory_UpdateAppliesTransform(t *testing.T) {
	s, _ := testMemory()
	ctx := context.Background()

	if err := s.Put(ctx, "k", []byte("1"), time.Hour); err != nil {
		t.Fatal(err)
	}

	next, err := s.Update(ctx, "k", func(old []byte) ([]byte, time.Duration, error) {
		if string(old) != "1" {
			t.Errorf("transform saw %q, want %q", old, "1")
		}
		return []byte("2"), 0, nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if string(next) != "2" {
		t.Errorf("update returned %q, want %q", next, "2")
	}

	got, err := s.Get(ctx, "k")
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "2" {
		t.Errorf("stored %q, want %q", got, "2")
	}
}

// A zero cap keeps the entry's existing expiry; it must not reset the TTL
// to the original duration or make the entry immortal.
func TestMemory_UpdatePreservesTTL(t *testing.T) {
	s, now := testMemory()
	ctx := context.Background()

	if err := s.Put(ctx, "k", []byte("v"), time.Hour); err != nil {
		t.Fatal(err)
	}
	*now = now.Add(30 * time.Minute)

	if _, err := s.Update(ctx, "k", func(old []byte) ([]byte, time.Duration, error) {
		return []byte("v2"), 0, nil
	}); err != nil {
		t.Fatal(err)
	}

	ttl, err := s.TTL(ctx, "k")
	if err != nil {
		t.Fatal(err)
	}
	if ttl != 30*time.Minute {
		t.Errorf("ttl after update = %s, want 30m", ttl)
	}
}

// A cap only ever shortens the remaining TTL, never extends it.
func TestMemory_UpdateTTLCap(t *testing.T) {
	s, _ := testMemory()
	ctx := context.Background()

	tests := []struct {
		name string
		ttl  time.Duration
		cap  time.Duration
		want time.Duration
	}{
		{"cap shortens", time.Hour, 10 * time.Minute, 10 * time.Minute},
		{"cap larger than remaining is ignored", 10 * time.Minute, time.Hour, 10 * time.Minute},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := s.Put(ctx, "k", []byte("v"), tt.ttl); err != nil {
				t.Fatal(err)
			}
			if _, err := s.Update(ctx, "k", func(old []byte) ([]byte, time.Duration, error) {
				return []byte("v2"), tt.cap, nil
			}); err != nil {
				t.Fatal(err)
			}
			ttl, err := s.TTL(ctx, "k")
			if err != nil {
				t.Fatal(err)
			}
			if ttl != tt.want {
				t.Errorf("ttl = %s, want %s", ttl, tt.want)
			}
		})
	}
}

func TestMemory_UpdateAbort(t *testing.T) {
	s, _ := testMemory()
	ctx := context.Background()

	if err := s.Put(ctx, "k", []byte("v"), time.Hour); err != nil {
		t.Fatal(err)
	}

	_, err := s.Update(ctx, "k", func(old []byte) ([]byte, time.Duration, error) {
		return nil, 0, core.ErrUpdateAborted
	})
	if !errors.Is(err, core.ErrUpdateAborted) {
		t.Fatalf("expected abort error, got %v", err)
	}

	got, err := s.Get(ctx, "k")
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "v" {
		t.Errorf("aborted update changed the value to %q", got)
	}
}

func TestMemory_Delete(t *testing.T) {
	s, _ := testMemory()
	ctx := context.Background()

	if err := s.Put(ctx, "k", []byte("v"), time.Hour); err != nil {
		t.Fatal(err)
	}
	if err := s.Delete(ctx, "k"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Get(ctx, "k"); !errors.Is(err, core.ErrNotFoundOrExpired) {
		t.Fatalf("expected absence after delete, got %v", err)
	}
	// deleting an absent key is fine
	if err := s.Delete(ctx, "k"); err != nil {
		t.Fatal(err)
	}
}
