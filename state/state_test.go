package state

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"
)

type pair struct{ A, B int }

func listProvider(name Capability) Provider {
	return Provide(name, []string{}, map[string]Reducer[[]string]{
		"push": func(cur []string, args any) ([]string, error) {
			s, ok := args.(string)
			if !ok {
				return nil, errors.New("push expects a string")
			}
			return append(cur, s), nil
		},
		"poison": func(cur []string, _ any) ([]string, error) {
			cur[0] = "mutated"
			return nil, errors.New("refused")
		},
		"explode": func([]string, any) ([]string, error) {
			panic("boom")
		},
	}, WithClone(slices.Clone[[]string]))
}

func intProvider(name Capability) Provider {
	return Provide(name, 0, map[string]Reducer[int]{
		"add": func(n int, args any) (int, error) { return n + args.(int), nil },
	})
}

func TestApply_CommitsAndReturnsValue(t *testing.T) {
	s := MustCompose([]Provider{intProvider("n")})
	h := MustUse[int](s, "n")

	got, err := h.Apply(context.Background(), "add", 3)
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if got != 3 || h.Get() != 3 {
		t.Fatalf("expected 3, got returned=%d current=%d", got, h.Get())
	}
	if _, version := h.Snapshot(); version != 1 {
		t.Fatalf("expected version 1, got %d", version)
	}
}

func TestApply_FailuresLeaveValueUntouched(t *testing.T) {
	ctx := context.Background()
	s := MustCompose([]Provider{listProvider("list")})
	h := MustUse[[]string](s, "list")
	if _, err := h.Apply(ctx, "push", "a"); err != nil {
		t.Fatalf("push failed: %v", err)
	}

	tests := []struct {
		name string
		op   string
		args any
		is   error
	}{
		{"unknown operation", "shuffle", nil, ErrUnknownOperation},
		{"reducer error", "push", 42, nil},
		{"reducer mutates then fails", "poison", nil, nil},
		{"reducer panics", "explode", nil, nil},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := h.Apply(ctx, tc.op, tc.args)
			if err == nil {
				t.Fatal("expected error")
			}
			if tc.is != nil && !errors.Is(err, tc.is) {
				t.Fatalf("expected %v, got %v", tc.is, err)
			}
			got, version := h.Snapshot()
			if !slices.Equal(got, []string{"a"}) {
				t.Fatalf("committed value changed: %v", got)
			}
			if version != 1 {
				t.Fatalf("version changed: %d", version)
			}
		})
	}
}

func TestApply_CanceledContext(t *testing.T) {
	h := MustUse[int](MustCompose([]Provider{intProvider("n")}), "n")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := h.Apply(ctx, "add", 1); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if h.Get() != 0 {
		t.Fatalf("expected 0, got %d", h.Get())
	}
}

func TestGet_ReturnsCopy(t *testing.T) {
	h := MustUse[[]string](MustCompose([]Provider{listProvider("list")}), "list")
	if _, err := h.Apply(context.Background(), "push", "a"); err != nil {
		t.Fatalf("push failed: %v", err)
	}
	v := h.Get()
	v[0] = "tampered"
	if got := h.Get(); got[0] != "a" {
		t.Fatalf("external mutation leaked into container: %v", got)
	}
}

func TestSubscribe_OnlyOwnCapability(t *testing.T) {
	ctx := context.Background()
	s := MustCompose([]Provider{intProvider("a"), intProvider("b")})
	a := MustUse[int](s, "a")
	b := MustUse[int](s, "b")

	var aChanges, bChanges []Change[int]
	cancelA := a.Subscribe(func(c Change[int]) { aChanges = append(aChanges, c) })
	defer cancelA()
	b.Subscribe(func(c Change[int]) { bChanges = append(bChanges, c) })

	if _, err := b.Apply(ctx, "add", 5); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if len(aChanges) != 0 {
		t.Fatalf("subscriber of a re-evaluated on b change: %v", aChanges)
	}
	if len(bChanges) != 1 || bChanges[0].Value != 5 || bChanges[0].Version != 1 || bChanges[0].Operation != "add" {
		t.Fatalf("unexpected b changes: %+v", bChanges)
	}
}

func TestSubscribe_NotNotifiedOnFailure(t *testing.T) {
	h := MustUse[int](MustCompose([]Provider{intProvider("n")}), "n")
	calls := 0
	h.Subscribe(func(Change[int]) { calls++ })
	_, _ = h.Apply(context.Background(), "multiply", 2)
	if calls != 0 {
		t.Fatalf("expected no notification, got %d", calls)
	}
}

func TestSubscribe_Cancel(t *testing.T) {
	h := MustUse[int](MustCompose([]Provider{intProvider("n")}), "n")
	calls := 0
	cancel := h.Subscribe(func(Change[int]) { calls++ })
	keep := h.Subscribe(func(Change[int]) {})
	defer keep()
	if n := h.c.Subscribers(); n != 2 {
		t.Fatalf("expected 2 subscribers, got %d", n)
	}
	cancel()
	cancel()
	if n := h.c.Subscribers(); n != 1 {
		t.Fatalf("expected 1 subscriber after double cancel, got %d", n)
	}
	_, _ = h.Apply(context.Background(), "add", 1)
	if calls != 0 {
		t.Fatalf("expected no calls after cancel, got %d", calls)
	}
}

func TestSubscribe_MayReadAndApplyReentrantly(t *testing.T) {
	ctx := context.Background()
	h := MustUse[int](MustCompose([]Provider{intProvider("n")}), "n")
	var seen []int
	h.Subscribe(func(c Change[int]) {
		seen = append(seen, h.Get())
		if c.Value == 1 {
			_, _ = h.Apply(ctx, "add", 1)
		}
	})
	if _, err := h.Apply(ctx, "add", 1); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if h.Get() != 2 {
		t.Fatalf("expected 2, got %d", h.Get())
	}
	if len(seen) != 2 {
		t.Fatalf("expected two notifications, got %v", seen)
	}
}

func TestCompose_IndependentScopes(t *testing.T) {
	providers := []Provider{listProvider("list")}
	s1 := MustCompose(providers)
	s2 := MustCompose(providers)

	if _, err := MustUse[[]string](s1, "list").Apply(context.Background(), "push", "x"); err != nil {
		t.Fatalf("push failed: %v", err)
	}
	if got := MustUse[[]string](s2, "list").Get(); len(got) != 0 {
		t.Fatalf("scope B observed scope A's state: %v", got)
	}
}

func TestCompose_OrderDoesNotMatter(t *testing.T) {
	ctx := context.Background()
	forward := MustCompose([]Provider{intProvider("a"), intProvider("b")})
	reverse := MustCompose([]Provider{intProvider("b"), intProvider("a")})

	for _, s := range []*Scope{forward, reverse} {
		_, _ = MustUse[int](s, "a").Apply(ctx, "add", 2)
		_, _ = MustUse[int](s, "b").Apply(ctx, "add", 7)
	}
	f, _ := forward.Snapshot()
	r, _ := reverse.Snapshot()
	if f["a"] != r["a"] || f["b"] != r["b"] {
		t.Fatalf("composition order changed behavior: %v vs %v", f, r)
	}
	if got := reverse.Capabilities(); !slices.Equal(got, []Capability{"b", "a"}) {
		t.Fatalf("unexpected capability order: %v", got)
	}
}

func TestCompose_DuplicateCapability(t *testing.T) {
	_, err := Compose([]Provider{intProvider("n"), intProvider("n")})
	if !errors.Is(err, ErrDuplicateCapability) {
		t.Fatalf("expected ErrDuplicateCapability, got %v", err)
	}
}

func TestUse_Errors(t *testing.T) {
	s := MustCompose([]Provider{intProvider("n")})
	closed := MustCompose([]Provider{intProvider("n")})
	closed.Close()

	tests := []struct {
		name  string
		scope *Scope
		cap   Capability
		is    error
	}{
		{"nil scope", nil, "n", ErrScopeNotComposed},
		{"closed scope", closed, "n", ErrScopeNotComposed},
		{"missing capability", s, "cart", ErrScopeNotComposed},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Use[int](tc.scope, tc.cap); !errors.Is(err, tc.is) {
				t.Fatalf("expected %v, got %v", tc.is, err)
			}
		})
	}

	if _, err := Use[string](s, "n"); !errors.Is(err, ErrCapabilityMismatch) {
		t.Fatalf("expected ErrCapabilityMismatch, got %v", err)
	}
}

func TestClose_RejectsApplyAndDropsSubscribers(t *testing.T) {
	s := MustCompose([]Provider{intProvider("n")})
	h := MustUse[int](s, "n")
	calls := 0
	h.Subscribe(func(Change[int]) { calls++ })

	s.Close()
	s.Close()

	if n := h.c.Subscribers(); n != 0 {
		t.Fatalf("expected subscribers dropped on close, got %d", n)
	}
	h.Subscribe(func(Change[int]) { calls++ })
	if n := h.c.Subscribers(); n != 0 {
		t.Fatalf("expected subscribe on a closed scope to be a no-op, got %d", n)
	}
	if _, err := h.Apply(context.Background(), "add", 1); !errors.Is(err, ErrScopeNotComposed) {
		t.Fatalf("expected ErrScopeNotComposed after close, got %v", err)
	}
	if calls != 0 {
		t.Fatalf("expected no notifications after close, got %d", calls)
	}
	if _, err := s.Snapshot(); !errors.Is(err, ErrScopeNotComposed) {
		t.Fatalf("expected ErrScopeNotComposed from Snapshot, got %v", err)
	}
}

func TestWatch_ReceivesEveryCapability(t *testing.T) {
	ctx := context.Background()
	s := MustCompose([]Provider{intProvider("a"), listProvider("list")})
	var events []Event
	cancel, err := s.Watch(func(e Event) { events = append(events, e) })
	if err != nil {
		t.Fatalf("Watch failed: %v", err)
	}

	_, _ = MustUse[int](s, "a").Apply(ctx, "add", 1)
	_, _ = MustUse[[]string](s, "list").Apply(ctx, "push", "x")
	cancel()
	_, _ = MustUse[int](s, "a").Apply(ctx, "add", 1)

	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].Capability != "a" || events[0].Value != 1 {
		t.Errorf("unexpected first event: %+v", events[0])
	}
	if events[1].Capability != "list" || events[1].Operation != "push" {
		t.Errorf("unexpected second event: %+v", events[1])
	}
}

func TestApplyHook_ObservesSuccessAndFailure(t *testing.T) {
	var results []ApplyResult
	s := MustCompose([]Provider{intProvider("n")}, WithApplyHook(func(r ApplyResult) {
		results = append(results, r)
	}))
	h := MustUse[int](s, "n")
	_, _ = h.Apply(context.Background(), "add", 1)
	_, _ = h.Apply(context.Background(), "nope", nil)

	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Err != nil || results[0].Version != 1 {
		t.Errorf("unexpected success result: %+v", results[0])
	}
	if !errors.Is(results[1].Err, ErrUnknownOperation) || results[1].Operation != "nope" {
		t.Errorf("unexpected failure result: %+v", results[1])
	}
}

func TestConcurrentApply_NoTornReads(t *testing.T) {
	ctx := context.Background()
	s := MustCompose([]Provider{
		Provide[pair]("pair", pair{}, map[string]Reducer[pair]{
			"bump": func(p pair, _ any) (pair, error) {
				p.A++
				p.B++
				return p, nil
			},
		}),
	})
	h := MustUse[pair](s, "pair")

	const writers, perWriter = 8, 200
	var wg sync.WaitGroup
	for range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range perWriter {
				if _, err := h.Apply(ctx, "bump", nil); err != nil {
					t.Errorf("Apply failed: %v", err)
					return
				}
			}
		}()
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for range 1000 {
			if p := h.Get(); p.A != p.B {
				t.Errorf("torn read: %+v", p)
				return
			}
		}
	}()

	wg.Wait()
	<-done
	if p, version := h.Snapshot(); p.A != writers*perWriter || version != writers*perWriter {
		t.Fatalf("expected %d commits, got value %+v version %d", writers*perWriter, p, version)
	}
}

func TestContext_RoundTrip(t *testing.T) {
	s := MustCompose([]Provider{intProvider("n")})
	ctx := WithScope(context.Background(), s)

	got, err := FromContext(ctx)
	if err != nil || got != s {
		t.Fatalf("expected stored scope, got %v, %v", got, err)
	}
	if _, err := UseFromContext[int](ctx, "n"); err != nil {
		t.Fatalf("UseFromContext failed: %v", err)
	}
	if _, err := FromContext(context.Background()); !errors.Is(err, ErrScopeNotComposed) {
		t.Fatalf("expected ErrScopeNotComposed without scope, got %v", err)
	}
}
