package audit

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/fluxdna/timegate/internal/core"
)

func TestFingerprint(t *testing.T) {
	fp := Fingerprint("some-token-id")

	if !strings.HasPrefix(fp, "tg1:") {
		t.Errorf("fingerprint %q missing version prefix", fp)
	}
	if len(fp) != len("tg1:")+16 {
		t.Errorf("fingerprint %q has unexpected length %d", fp, len(fp))
	}
	if fp != Fingerprint("some-token-id") {
		t.Error("fingerprint is not deterministic")
	}
	if fp == Fingerprint("other-token-id") {
		t.Error("distinct token ids should not collide")
	}
	// the raw id must never leak through
	if strings.Contains(fp, "some-token-id") {
		t.Errorf("fingerprint %q contains the raw token id", fp)
	}
}

func TestInMemoryAuditor_GetRecent(t *testing.T) {
	a := NewInMemoryAuditor()
	for i := 0; i < 5; i++ {
		if err := a.Log(core.AuditEntry{ID: strconv.Itoa(i), Action: "link.access"}); err != nil {
			t.Fatal(err)
		}
	}

	entries, err := a.GetRecent(3)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 3 {
		t.Fatalf("got %d entries, want 3", len(entries))
	}
	// most recent entries, oldest first
	for i, want := range []string{"2", "3", "4"} {
		if entries[i].ID != want {
			t.Errorf("entries[%d].ID = %q, want %q", i, entries[i].ID, want)
		}
	}

	entries, err = a.GetRecent(100)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 5 {
		t.Errorf("oversized limit returned %d entries, want 5", len(entries))
	}
}

func TestInMemoryAuditor_Find(t *testing.T) {
	a := NewInMemoryAuditor()
	actions := []string{"link.issue", "link.access", "link.access", "link.revoke"}
	for i, action := range actions {
		if err := a.Log(core.AuditEntry{ID: strconv.Itoa(i), Action: action}); err != nil {
			t.Fatal(err)
		}
	}

	entries, err := a.Find(func(e core.AuditEntry) bool {
		return e.Action == "link.access"
	}, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d matches, want 2", len(entries))
	}

	entries, err = a.Find(func(e core.AuditEntry) bool { return true }, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 || entries[0].ID != "2" || entries[1].ID != "3" {
		t.Errorf("limited find should keep the newest matches, got %+v", entries)
	}
}

func TestFileAuditor_AppendsJSONLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.log")

	a, err := NewFileAuditor(path)
	if err != nil {
		t.Fatal(err)
	}

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	wrote := []core.AuditEntry{
		{ID: "req-1", Time: now, Action: "link.issue", TokenFingerprint: "tg1:aa", Granted: true},
		{ID: "req-2", Time: now, Action: "link.access", TokenFingerprint: "tg1:aa", Reason: "max_clicks"},
	}
	for _, e := range wrote {
		if err := a.Log(e); err != nil {
			t.Fatal(err)
		}
	}
	if err := a.Close(); err != nil {
		t.Fatal(err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	var got []core.AuditEntry
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var e core.AuditEntry
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			t.Fatalf("line %q is not valid json: %v", scanner.Text(), err)
		}
		got = append(got, e)
	}
	if err := scanner.Err(); err != nil {
		t.Fatal(err)
	}

	if len(got) != len(wrote) {
		t.Fatalf("got %d lines, want %d", len(got), len(wrote))
	}
	for i := range wrote {
		if got[i].ID != wrote[i].ID || got[i].Action != wrote[i].Action || got[i].Reason != wrote[i].Reason {
			t.Errorf("line %d mismatch: got %+v, want %+v", i, got[i], wrote[i])
		}
	}

	// reopening appends instead of truncating
	a, err = NewFileAuditor(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := a.Log(core.AuditEntry{ID: "req-3", Action: "link.revoke"}); err != nil {
		t.Fatal(err)
	}
	if err := a.Close(); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if lines := strings.Count(string(data), "\n"); lines != 3 {
		t.Errorf("got %d lines after reopen, want 3", lines)
	}
}
