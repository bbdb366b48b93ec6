package policy

import (
	"errors"
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// ErrDenied is returned when an issuance request violates the configured
// policy for its link kind.
var ErrDenied = errors.New("issuance denied by policy")

// Request is the issuance request as seen by policy expressions.
type Request struct {
	UserID    string  `expr:"user_id"`
	SessionID string  `expr:"session_id"`
	LinkKind  string  `expr:"link_kind"`
	MaxClicks int     `expr:"max_clicks"`
	TTLHours  float64 `expr:"ttl_hours"`
}

// Rule constrains issuance for one link kind. Zero limits mean "no limit";
// Expr, when set, must additionally evaluate to true for the request.
type Rule struct {
	// Kind this rule applies to (e.g. "results", "document").
	Kind string `yaml:"kind" json:"kind"`

	// Description explains the intent of the rule.
	Description string `yaml:"description" json:"description"`

	// MaxClicksLimit is the largest quota an issuer may request.
	MaxClicksLimit int `yaml:"max_clicks_limit" json:"max_clicks_limit"`

	// MaxTTLHours is the longest lifetime an issuer may request.
	MaxTTLHours float64 `yaml:"max_ttl_hours" json:"max_ttl_hours"`

	// Expr is an optional expression for more complex restrictions,
	// evaluated against the Request fields (e.g. `max_clicks <= 3`).
	Expr string `yaml:"expr" json:"expr"`

	compiled *vm.Program
}

// Engine evaluates issuance requests against the configured rules.
// An empty rule set allows everything; a non-empty set requires a rule for
// the requested kind, so adding the first rule closes all other kinds.
type Engine struct {
	rules map[string]*Rule
}

// New compiles all rule expressions up front so a bad expression fails at
// startup, not on the first matching request.
func New(rules []Rule) (*Engine, error) {
	byKind := make(map[string]*Rule, len(rules))
	for i := range rules {
		r := rules[i]
		if r.Kind == "" {
			return nil, fmt.Errorf("policy rule at index %d has empty kind", i)
		}
		if _, ok := byKind[r.Kind]; ok {
			return nil, fmt.Errorf("duplicate policy rule for kind %q", r.Kind)
		}
		if r.Expr != "" {
			prog, err := expr.Compile(r.Expr,
				expr.Env(Request{}),
				expr.AsBool(),
			)
			if err != nil {
				return nil, fmt.Errorf("compiling expr for kind %q: %w", r.Kind, err)
			}
			r.compiled = prog
		}
		byKind[r.Kind] = &r
	}
	return &Engine{rules: byKind}, nil
}

// Evaluate returns nil if the request may proceed, or an error wrapping
// ErrDenied with the specific violation.
func (e *Engine) Evaluate(req Request) error {
	if len(e.rules) == 0 {
		return nil
	}

	rule, ok := e.rules[req.LinkKind]
	if !ok {
		return fmt.Errorf("%w: no rule for link kind %q", ErrDenied, req.LinkKind)
	}

	if rule.MaxClicksLimit > 0 && req.MaxClicks > rule.MaxClicksLimit {
		return fmt.Errorf("%w: max_clicks %d exceeds limit %d for kind %q",
			ErrDenied, req.MaxClicks, rule.MaxClicksLimit, req.LinkKind)
	}
	if rule.MaxTTLHours > 0 && req.TTLHours > rule.MaxTTLHours {
		return fmt.Errorf("%w: ttl %.1fh exceeds limit %.1fh for kind %q",
			ErrDenied, req.TTLHours, rule.MaxTTLHours, req.LinkKind)
	}

	if rule.compiled != nil {
		out, err := expr.Run(rule.compiled, req)
		if err != nil {
			return fmt.Errorf("evaluating policy expr for kind %q: %w", req.LinkKind, err)
		}
		if ok, _ := out.(bool); !ok {
			return fmt.Errorf("%w: expression %q rejected request", ErrDenied, rule.Expr)
		}
	}
	return nil
}

// Kinds returns the configured link kinds, for config validation output.
func (e *Engine) Kinds() []string {
	kinds := make([]string, 0, len(e.rules))
	for k := range e.rules {
		kinds = append(kinds, k)
	}
	return kinds
}
