package alias

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/yungbote/scopes-backend/internal/domain/scope"
)

func TestParseName(t *testing.T) {
	cases := []struct {
		in      string
		want    Name
		wantErr bool
	}{
		{in: "  Auth-Feature ", want: "auth-feature"},
		{in: "a1", want: "a1"},
		{in: "snake_case_ok", want: "snake_case_ok"},
		{in: "a", wantErr: true},
		{in: "1abc", wantErr: true},
		{in: "abc-", wantErr: true},
		{in: "ab--cd", wantErr: true},
		{in: "ab__cd", wantErr: true},
		{in: "ab cd", wantErr: true},
		{in: "a" + strings.Repeat("b", MaxNameLength), wantErr: true},
	}
	for _, tc := range cases {
		got, err := ParseName(tc.in)
		if tc.wantErr {
			if !errors.Is(err, ErrInvalidName) {
				t.Fatalf("ParseName(%q): want ErrInvalidName got %v", tc.in, err)
			}
			continue
		}
		if err != nil {
			t.Fatalf("ParseName(%q): %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("ParseName(%q): want=%q got=%q", tc.in, tc.want, got)
		}
	}
}

func TestGenerateNameDeterministicAndValid(t *testing.T) {
	id := scope.NewID()
	a := GenerateName(id, 0)
	b := GenerateName(id, 0)
	if a != b {
		t.Fatalf("not deterministic: %s vs %s", a, b)
	}
	if GenerateName(id, 1) == a {
		t.Fatalf("attempt should change the token")
	}
	if _, err := ParseName(string(a)); err != nil {
		t.Fatalf("generated name %q is not valid: %v", a, err)
	}
	if parts := strings.Split(string(a), "-"); len(parts) != 3 || len(parts[2]) != 4 {
		t.Fatalf("unexpected shape %q", a)
	}
}

func TestGenerateNameSeedsFromEntropyNotTime(t *testing.T) {
	var u1, u2 ulid.ULID
	_ = u1.SetTime(1000)
	_ = u2.SetTime(2000)
	copy(u1[6:], []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10})
	copy(u2[6:], []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10})

	w1 := strings.Split(string(GenerateName(scope.ID{ULID: u1}, 0)), "-")
	w2 := strings.Split(string(GenerateName(scope.ID{ULID: u2}, 0)), "-")
	if w1[0] != w2[0] || w1[1] != w2[1] {
		t.Fatalf("same entropy should pick the same words: %v vs %v", w1, w2)
	}
}

func TestGenerateRetriesThenExhausts(t *testing.T) {
	id := scope.NewID()
	calls := 0
	name, err := Generate(id, 10, func(n Name) (bool, error) {
		calls++
		return calls < 3, nil
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if name != GenerateName(id, 2) {
		t.Fatalf("want third candidate got %s", name)
	}

	_, err = Generate(id, 4, func(Name) (bool, error) { return true, nil })
	if !errors.Is(err, ErrGenerationExhausted) {
		t.Fatalf("want ErrGenerationExhausted got %v", err)
	}

	boom := errors.New("boom")
	if _, err := Generate(id, 4, func(Name) (bool, error) { return false, boom }); !errors.Is(err, boom) {
		t.Fatalf("want lookup error got %v", err)
	}
}

func fixedEnv() Env {
	return Env{Now: time.Unix(50, 0).UTC()}
}

func TestSetCanonicalLifecycle(t *testing.T) {
	sid := scope.NewID()
	s := NewSet(sid)

	assigned, err := s.Assign("quiet-river-a4f7", true, fixedEnv())
	if err != nil {
		t.Fatalf("Assign canonical: %v", err)
	}
	s, _ = Evolve(s, assigned)
	custom, err := s.Assign("auth-feature", false, fixedEnv())
	if err != nil {
		t.Fatalf("Assign custom: %v", err)
	}
	s, _ = Evolve(s, custom)

	if _, err := s.Assign("auth-feature", false, fixedEnv()); !errors.Is(err, ErrDuplicateAlias) {
		t.Fatalf("owner re-add: want ErrDuplicateAlias got %v", err)
	}
	if _, err := s.Assign("other", true, fixedEnv()); !errors.Is(err, ErrCanonicalExists) {
		t.Fatalf("second canonical: want ErrCanonicalExists got %v", err)
	}
	if _, err := s.Remove("quiet-river-a4f7", fixedEnv()); !errors.Is(err, ErrCannotRemoveCanonical) {
		t.Fatalf("remove canonical: want ErrCannotRemoveCanonical got %v", err)
	}

	swap, changed, err := s.Promote("auth-feature", fixedEnv())
	if err != nil || !changed {
		t.Fatalf("Promote: changed=%v err=%v", changed, err)
	}
	if swap.NewAliasID != custom.AliasID || swap.OldAliasID != assigned.AliasID {
		t.Fatalf("swap ids mismatch: %+v", swap)
	}
	s, _ = Evolve(s, swap)
	canon, _ := s.Canonical()
	if canon.Name != "auth-feature" {
		t.Fatalf("canonical: want auth-feature got %s", canon.Name)
	}
	old, ok := s.Find("quiet-river-a4f7")
	if !ok || old.IsCanonical {
		t.Fatalf("old alias should remain as custom: %+v ok=%v", old, ok)
	}

	removed, err := s.Remove("quiet-river-a4f7", fixedEnv())
	if err != nil {
		t.Fatalf("Remove demoted: %v", err)
	}
	s, _ = Evolve(s, removed)
	if len(s.Aliases) != 1 || s.Version != 4 {
		t.Fatalf("after remove: aliases=%d version=%d", len(s.Aliases), s.Version)
	}

	if _, changed, _ := s.Promote("auth-feature", fixedEnv()); changed {
		t.Fatalf("promoting the canonical alias should be a no-op")
	}
}

func TestPromoteUnknownNameInsertsAlias(t *testing.T) {
	s := NewSet(scope.NewID())
	a, _ := s.Assign("first-one", true, fixedEnv())
	s, _ = Evolve(s, a)

	swap, changed, err := s.Promote("brand-new", fixedEnv())
	if err != nil || !changed {
		t.Fatalf("Promote: changed=%v err=%v", changed, err)
	}
	next, err := ApplyEvent(s, swap)
	if err != nil {
		t.Fatalf("ApplyEvent: %v", err)
	}
	if len(next.Aliases) != 2 || len(s.Aliases) != 1 {
		t.Fatalf("fold should copy: next=%d prev=%d", len(next.Aliases), len(s.Aliases))
	}
	got, ok := next.Find("brand-new")
	if !ok || !got.IsCanonical || got.ID != swap.NewAliasID {
		t.Fatalf("inserted alias mismatch: %+v", got)
	}
}

func TestRename(t *testing.T) {
	s := NewSet(scope.NewID())
	a, _ := s.Assign("before", false, fixedEnv())
	s, _ = Evolve(s, a)
	ev, err := s.Rename("before", "after", fixedEnv())
	if err != nil {
		t.Fatalf("Rename: %v", err)
	}
	s, _ = Evolve(s, ev)
	if _, ok := s.Find("after"); !ok {
		t.Fatalf("renamed alias missing")
	}
	if _, err := s.Rename("missing", "x1", fixedEnv()); !errors.Is(err, ErrAliasNotFound) {
		t.Fatalf("want ErrAliasNotFound got %v", err)
	}
}

func TestApplyEventRejectsNil(t *testing.T) {
	s := Set{ScopeID: scope.NewID(), Version: 2}
	got, err := ApplyEvent(s, nil)
	if !errors.Is(err, ErrUnknownEvent) {
		t.Fatalf("nil event: want ErrUnknownEvent, got %v", err)
	}
	if got.Version != 2 || got.ScopeID != s.ScopeID {
		t.Fatalf("state changed on nil event: %+v", got)
	}
	if _, err := Evolve(s, nil); !errors.Is(err, ErrUnknownEvent) {
		t.Fatalf("evolve nil: %v", err)
	}
}
