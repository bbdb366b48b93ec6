package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/fluxdna/timegate/internal/core"
)

// fakeGateway emulates the Upstash-style REST command surface the backend
// speaks: single-key commands as paths, EVAL as a command array on the root.
type fakeGateway struct {
	mu   sync.Mutex
	data map[string]fakeEntry

	// failEvals makes the next n EVAL calls report a CAS conflict without
	// applying, to exercise the retry loop.
	failEvals int
	evalCalls int
}

type fakeEntry struct {
	value     string
	expiresAt time.Time
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{data: map[string]fakeEntry{}}
}

func (g *fakeGateway) live(key string) (fakeEntry, bool) {
	e, ok := g.data[key]
	if !ok || time.Now().After(e.expiresAt) {
		delete(g.data, key)
		return fakeEntry{}, false
	}
	return e, true
}

func reply(w http.ResponseWriter, result any) {
	_ = json.NewEncoder(w).Encode(map[string]any{"result": result})
}

func (g *fakeGateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("Authorization") != "Bearer fake-token" {
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]any{"error": "unauthorized"})
		return
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	path := strings.TrimPrefix(r.URL.Path, "/")
	switch {
	case path == "" && r.Method == http.MethodPost:
		g.handleEval(w, r)
	case path == "ping":
		reply(w, "PONG")
	case strings.HasPrefix(path, "get/"):
		e, ok := g.live(strings.TrimPrefix(path, "get/"))
		if !ok {
			reply(w, nil)
			return
		}
		reply(w, e.value)
	case strings.HasPrefix(path, "set/"):
		key := strings.TrimPrefix(path, "set/")
		px, _ := strconv.ParseInt(r.URL.Query().Get("PX"), 10, 64)
		body, _ := io.ReadAll(r.Body)
		g.data[key] = fakeEntry{
			value:     string(body),
			expiresAt: time.Now().Add(time.Duration(px) * time.Millisecond),
		}
		reply(w, "OK")
	case strings.HasPrefix(path, "pttl/"):
		e, ok := g.live(strings.TrimPrefix(path, "pttl/"))
		if !ok {
			reply(w, -2)
			return
		}
		reply(w, time.Until(e.expiresAt).Milliseconds())
	case strings.HasPrefix(path, "del/"):
		delete(g.data, strings.TrimPrefix(path, "del/"))
		reply(w, 1)
	default:
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]any{"error": "unknown command"})
	}
}

// handleEval emulates the compare-and-swap script. Caller holds mu.
func (g *fakeGateway) handleEval(w http.ResponseWriter, r *http.Request) {
	var args []string
	if err := json.NewDecoder(r.Body).Decode(&args); err != nil || len(args) != 7 || args[0] != "EVAL" {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]any{"error": "malformed eval"})
		return
	}
	key, old, next := args[3], args[4], args[5]
	capMs, _ := strconv.ParseInt(args[6], 10, 64)

	g.evalCalls++
	if g.failEvals > 0 {
		g.failEvals--
		reply(w, 0) // conflict
		return
	}

	e, ok := g.live(key)
	if !ok {
		reply(w, -2)
		return
	}
	if e.value != old {
		reply(w, 0)
		return
	}

	expiresAt := e.expiresAt
	if capMs > 0 {
		if capped := time.Now().Add(time.Duration(capMs) * time.Millisecond); capped.Before(expiresAt) {
			expiresAt = capped
		}
	}
	g.data[key] = fakeEntry{value: next, expiresAt: expiresAt}
	reply(w, 1)
}

func testREST(t *testing.T) (*REST, *fakeGateway) {
	t.Helper()
	gw := newFakeGateway()
	ts := httptest.NewServer(gw)
	t.Cleanup(ts.Close)

	s, err := NewREST(RESTConfig{URL: ts.URL, Token: "fake-token"})
	if err != nil {
		t.Fatal(err)
	}
	return s, gw
}

func TestREST_RequiresURLAndToken(t *testing.T) {
	if _, err := NewREST(RESTConfig{URL: "https://x"}); err == nil {
		t.Error("expected error without token")
	}
	if _, err := NewREST(RESTConfig{Token: "t"}); err == nil {
		t.Error("expected error without url")
	}
}

func TestREST_PutGetDelete(t *testing.T) {
	s, _ := testREST(t)
	ctx := context.Background()

	if err := s.Put(ctx, "k", []byte(`{"v":1}`), time.Hour); err != nil {
		t.Fatal(err)
	}
	got, err := s.Get(ctx, "k")
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != `{"v":1}` {
		t.Errorf("got %q", got)
	}

	if err := s.Delete(ctx, "k"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Get(ctx, "k"); !errors.Is(err, core.ErrNotFoundOrExpired) {
		t.Fatalf("expected absence after delete, got %v", err)
	}
}

func TestREST_TTL(t *testing.T) {
	s, _ := testREST(t)
	ctx := context.Background()

	if err := s.Put(ctx, "k", []byte("v"), time.Hour); err != nil {
		t.Fatal(err)
	}
	ttl, err := s.TTL(ctx, "k")
	if err != nil {
		t.Fatal(err)
	}
	if ttl <= 59*time.Minute || ttl > time.Hour {
		t.Errorf("ttl = %s, want ~1h", ttl)
	}

	if _, err := s.TTL(ctx, "absent"); !errors.Is(err, core.ErrNotFoundOrExpired) {
		t.Fatalf("expected ErrNotFoundOrExpired, got %v", err)
	}
}

func TestREST_Update(t *testing.T) {
	s, _ := testREST(t)
	ctx := context.Background()

	if err := s.Put(ctx, "k", []byte("1"), time.Hour); err != nil {
		t.Fatal(err)
	}
	next, err := s.Update(ctx, "k", func(old []byte) ([]byte, time.Duration, error) {
		n, _ := strconv.Atoi(string(old))
		return []byte(strconv.Itoa(n + 1)), 0, nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if string(next) != "2" {
		t.Errorf("update returned %q, want 2", next)
	}
	got, err := s.Get(ctx, "k")
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "2" {
		t.Errorf("stored %q, want 2", got)
	}
}

func TestREST_UpdateRetriesOnConflict(t *testing.T) {
	s, gw := testREST(t)
	ctx := context.Background()

	if err := s.Put(ctx, "k", []byte("1"), time.Hour); err != nil {
		t.Fatal(err)
	}
	gw.mu.Lock()
	gw.failEvals = 2
	gw.mu.Unlock()

	calls := 0
	next, err := s.Update(ctx, "k", func(old []byte) ([]byte, time.Duration, error) {
		calls++
		return []byte("2"), 0, nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if string(next) != "2" {
		t.Errorf("update returned %q", next)
	}
	if calls != 3 {
		t.Errorf("transform ran %d times, want 3 (two conflicts then success)", calls)
	}
}

func TestREST_UpdateGivesUpUnderContention(t *testing.T) {
	s, gw := testREST(t)
	ctx := context.Background()

	if err := s.Put(ctx, "k", []byte("1"), time.Hour); err != nil {
		t.Fatal(err)
	}
	gw.mu.Lock()
	gw.failEvals = maxCASAttempts + 1
	gw.mu.Unlock()

	_, err := s.Update(ctx, "k", func(old []byte) ([]byte, time.Duration, error) {
		return []byte("2"), 0, nil
	})
	if !errors.Is(err, core.ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable after exhausted retries, got %v", err)
	}
}

func TestREST_UpdateMissingKey(t *testing.T) {
	s, _ := testREST(t)

	_, err := s.Update(context.Background(), "absent", func(old []byte) ([]byte, time.Duration, error) {
		t.Fatal("transform must not run for a missing key")
		return nil, 0, nil
	})
	if !errors.Is(err, core.ErrNotFoundOrExpired) {
		t.Fatalf("expected ErrNotFoundOrExpired, got %v", err)
	}
}

func TestREST_UpdateAbortDoesNotWrite(t *testing.T) {
	s, _ := testREST(t)
	ctx := context.Background()

	if err := s.Put(ctx, "k", []byte("v"), time.Hour); err != nil {
		t.Fatal(err)
	}
	_, err := s.Update(ctx, "k", func(old []byte) ([]byte, time.Duration, error) {
		return nil, 0, fmt.Errorf("checked and declined: %w", core.ErrUpdateAborted)
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

func TestREST_GatewayErrorIsUnavailable(t *testing.T) {
	gw := newFakeGateway()
	ts := httptest.NewServer(gw)
	t.Cleanup(ts.Close)

	s, err := NewREST(RESTConfig{URL: ts.URL, Token: "wrong-token"})
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Ping(context.Background()); !errors.Is(err, core.ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
}

func TestREST_Ping(t *testing.T) {
	s, _ := testREST(t)
	if err := s.Ping(context.Background()); err != nil {
		t.Fatal(err)
	}
}
