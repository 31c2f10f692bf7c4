package aggregates

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	domainagg "github.com/yungbote/scopes-backend/internal/domain/aggregates"
	"github.com/yungbote/scopes-backend/internal/domain/alias"
	"github.com/yungbote/scopes-backend/internal/domain/scope"
	"github.com/yungbote/scopes-backend/internal/observability"
	"github.com/yungbote/scopes-backend/internal/platform/dbctx"
)

func runWrite(t *testing.T, op string, bodyErr error) (*spyHooks, error) {
	t.Helper()
	hooks := &spyHooks{}
	err := executeWrite(context.Background(), BaseDeps{Runner: spyTxRunner{}, Hooks: hooks}, op,
		func(_ dbctx.Context) error { return bodyErr })
	if len(hooks.Operations) != 1 || hooks.Operations[0].Name != op {
		t.Fatalf("operations: want one %q, got %+v", op, hooks.Operations)
	}
	return hooks, err
}

func TestExecuteWriteClassifiesOutcomes(t *testing.T) {
	cases := []struct {
		name      string
		err       error
		status    string
		conflicts int
		retries   int
	}{
		{name: "success", status: "success"},
		{name: "lost race", err: &scope.VersionMismatchError{Expected: 1, Actual: 2}, status: string(domainagg.CodeConflict), conflicts: 1},
		{name: "taken alias", err: alias.ErrDuplicateAlias, status: string(domainagg.CodeConflict), conflicts: 1},
		{name: "locked", err: errors.New("database is locked"), status: string(domainagg.CodeRetryable), retries: 1},
		{name: "deadline", err: context.DeadlineExceeded, status: string(domainagg.CodeRetryable), retries: 1},
		{name: "exhausted", err: alias.ErrGenerationExhausted, status: string(domainagg.CodeInvariantViolation)},
		{name: "bad title", err: scope.ErrTitleEmpty, status: string(domainagg.CodeValidation)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			hooks, err := runWrite(t, "Scopes.Scope.UpdateTitle", tc.err)
			if (err == nil) != (tc.err == nil) {
				t.Fatalf("error: want=%v got=%v", tc.err, err)
			}
			if got := hooks.Operations[0].Status; got != tc.status {
				t.Fatalf("status: want=%s got=%s", tc.status, got)
			}
			if len(hooks.Conflicts) != tc.conflicts || len(hooks.Retries) != tc.retries {
				t.Fatalf("counters: conflicts=%v retries=%v", hooks.Conflicts, hooks.Retries)
			}
			if tc.err != nil && !errors.Is(err, tc.err) {
				t.Fatalf("mapped error lost its cause: %v", err)
			}
		})
	}
}

func TestExecuteWriteDefaultsBlankOperation(t *testing.T) {
	hooks := &spyHooks{}
	_ = executeWrite(context.Background(), BaseDeps{Runner: spyTxRunner{}, Hooks: hooks}, "  ",
		func(_ dbctx.Context) error { return nil })
	if hooks.Operations[0].Name != "aggregate.write" {
		t.Fatalf("blank op name: got=%q", hooks.Operations[0].Name)
	}
}

func TestAggregateErrorStatus(t *testing.T) {
	if got := aggregateErrorStatus(nil); got != "success" {
		t.Fatalf("nil status: want=success got=%s", got)
	}
	if got := aggregateErrorStatus(scope.ErrAlreadyDeleted); got != string(domainagg.CodeConflict) {
		t.Fatalf("deleted status: got=%s", got)
	}
	if got := aggregateErrorStatus(errors.New("boom")); got != string(domainagg.CodeInternal) {
		t.Fatalf("unknown status: got=%s", got)
	}
}

func TestObservabilityHooksFeedMetrics(t *testing.T) {
	if _, ok := NewObservabilityHooks(nil).(noopHooks); !ok {
		t.Fatalf("nil metrics should give noop hooks")
	}
	m := observability.New()
	h := NewObservabilityHooks(m)
	h.ObserveOperation("Scopes.Alias.SetCanonical", "conflict", time.Millisecond)
	h.IncConflict("Scopes.Alias.SetCanonical")

	var out strings.Builder
	if err := m.WritePrometheus(&out); err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(out.String(), `op="Scopes.Alias.SetCanonical"`) {
		t.Fatalf("metrics missing operation label:\n%s", out.String())
	}
}

func TestAggregateContractsOwnTheirTransactions(t *testing.T) {
	deps := StreamDeps{}
	for _, agg := range []domainagg.Aggregate{NewScopeAggregate(deps), NewAliasAggregate(deps)} {
		c := agg.Contract()
		if !c.RequiresAggregateOwnedTx() {
			t.Fatalf("%s: aggregate must own its write transaction", c.Name)
		}
		if c.ReadPolicy != domainagg.ReadPolicyInvariantScoped {
			t.Fatalf("%s: read policy=%s", c.Name, c.ReadPolicy)
		}
	}
}

type spyTxRunner struct{}

func (spyTxRunner) InTx(ctx context.Context, fn func(dbc dbctx.Context) error) error {
	if fn == nil {
		return nil
	}
	return fn(dbctx.Context{Ctx: ctx})
}

type spyHooks struct {
	Operations []spyOperation
	Conflicts  []string
	Retries    []string
}

type spyOperation struct {
	Name   string
	Status string
}

func (h *spyHooks) ObserveOperation(name, status string, _ time.Duration) {
	h.Operations = append(h.Operations, spyOperation{Name: name, Status: status})
}

func (h *spyHooks) IncConflict(name string) {
	h.Conflicts = append(h.Conflicts, name)
}

func (h *spyHooks) IncRetry(name string) {
	h.Retries = append(h.Retries, name)
}
