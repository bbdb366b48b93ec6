package policy

import (
	"errors"
	"testing"
)

func TestNew_RejectsBadRules(t *testing.T) {
	tests := []struct {
		name  string
		rules []Rule
	}{
		{"empty kind", []Rule{{Kind: ""}}},
		{"duplicate kind", []Rule{{Kind: "results"}, {Kind: "results"}}},
		{"bad expression", []Rule{{Kind: "results", Expr: "max_clicks <=="}}},
		{"non-bool expression", []Rule{{Kind: "results", Expr: "max_clicks + 1"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.rules); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestEvaluate(t *testing.T) {
	engine, err := New([]Rule{
		{
			Kind:           "results",
			MaxClicksLimit: 5,
			MaxTTLHours:    48,
		},
		{
			Kind: "document",
			Expr: `max_clicks <= 3 && user_id != ""`,
		},
	})
	if err != nil {
		t.Fatalf("building engine: %v", err)
	}

	tests := []struct {
		name    string
		req     Request
		allowed bool
	}{
		{
			"within limits",
			Request{UserID: "u", LinkKind: "results", MaxClicks: 3, TTLHours: 24},
			true,
		},
		{
			"at limits",
			Request{UserID: "u", LinkKind: "results", MaxClicks: 5, TTLHours: 48},
			true,
		},
		{
			"too many clicks",
			Request{UserID: "u", LinkKind: "results", MaxClicks: 6, TTLHours: 24},
			false,
		},
		{
			"too long ttl",
			Request{UserID: "u", LinkKind: "results", MaxClicks: 3, TTLHours: 72},
			false,
		},
		{
			"unknown kind",
			Request{UserID: "u", LinkKind: "mystery", MaxClicks: 1, TTLHours: 1},
			false,
		},
		{
			"expression allows",
			Request{UserID: "u", LinkKind: "document", MaxClicks: 3, TTLHours: 24},
			true,
		},
		{
			"expression rejects clicks",
			Request{UserID: "u", LinkKind: "document", MaxClicks: 4, TTLHours: 24},
			false,
		},
		{
			"expression rejects empty user",
			Request{UserID: "", LinkKind: "document", MaxClicks: 1, TTLHours: 24},
			false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := engine.Evaluate(tt.req)
			if tt.allowed && err != nil {
				t.Errorf("expected allow, got %v", err)
			}
			if !tt.allowed && !errors.Is(err, ErrDenied) {
				t.Errorf("expected ErrDenied, got %v", err)
			}
		})
	}
}

func TestEvaluate_EmptyRuleSetAllowsEverything(t *testing.T) {
	engine, err := New(nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := engine.Evaluate(Request{LinkKind: "anything", MaxClicks: 1000, TTLHours: 1e6}); err != nil {
		t.Errorf("empty rule set should allow, got %v", err)
	}
}
