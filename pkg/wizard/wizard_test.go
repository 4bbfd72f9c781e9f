package wizard_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-multistep/pkg/wizard"
)

func namedPage(name string) wizard.Page {
	return wizard.PageFunc(func(_ context.Context, _ wizard.Props) ([]byte, error) {
		return []byte(name), nil
	})
}

func threePages() []wizard.Page {
	return []wizard.Page{namedPage("page 1"), namedPage("page 2"), namedPage("page 3")}
}

func mustForm(t *testing.T, pages []wizard.Page, options ...wizard.Option) *wizard.Form {
	t.Helper()
	form, err := wizard.New(pages, options...)
	if err != nil {
		t.Fatalf("new form: %v", err)
	}
	return form
}

func rendered(t *testing.T, form *wizard.Form) string {
	t.Helper()
	out, err := form.Render(context.Background())
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	return string(out)
}

func waitSettled(t *testing.T, sub *wizard.Submission) {
	t.Helper()
	if sub == nil {
		t.Fatalf("expected a submission")
	}
	select {
	case <-sub.Done():
	case <-time.After(2 * time.Second):
		t.Fatalf("submission did not settle")
	}
}

func TestNew_RequiresPages(t *testing.T) {
	if _, err := wizard.New(nil); !errors.Is(err, wizard.ErrNoPages) {
		t.Fatalf("expected ErrNoPages, got %v", err)
	}
	if _, err := wizard.New([]wizard.Page{namedPage("a"), nil}); !errors.Is(err, wizard.ErrNilPage) {
		t.Fatalf("expected ErrNilPage, got %v", err)
	}
}

func TestRender_FirstPageInitially(t *testing.T) {
	form := mustForm(t, threePages())
	if got := rendered(t, form); got != "page 1" {
		t.Fatalf("expected page 1, got %q", got)
	}
	if form.Index() != 0 {
		t.Fatalf("expected index 0, got %d", form.Index())
	}
}

func TestInitialValues(t *testing.T) {
	form := mustForm(t, threePages())
	if diff := cmp.Diff(map[string]any{}, form.Values()); diff != "" {
		t.Fatalf("default values mismatch (-want +got):\n%s", diff)
	}

	seed := map[string]any{"someProp": "some value"}
	var seen map[string]any
	page := wizard.PageFunc(func(_ context.Context, props wizard.Props) ([]byte, error) {
		seen = props.Values
		return nil, nil
	})
	form = mustForm(t, []wizard.Page{page}, wizard.WithValues(seed))
	if _, err := form.Render(context.Background()); err != nil {
		t.Fatalf("render: %v", err)
	}
	if diff := cmp.Diff(seed, seen); diff != "" {
		t.Fatalf("initial values mismatch (-want +got):\n%s", diff)
	}

	seed["someProp"] = "mutated"
	if got, _ := form.Value("someProp"); got != "some value" {
		t.Fatalf("expected seed to be copied, got %v", got)
	}

	nilSeeded := mustForm(t, threePages(), wizard.WithValues(nil))
	if len(nilSeeded.Values()) != 0 {
		t.Fatalf("expected nil seed to yield empty values")
	}
}

func TestNext_Saturates(t *testing.T) {
	form := mustForm(t, threePages())
	form.Next()
	if got := rendered(t, form); got != "page 2" {
		t.Fatalf("expected page 2, got %q", got)
	}
	form.Next()
	if got := rendered(t, form); got != "page 3" {
		t.Fatalf("expected page 3, got %q", got)
	}
	form.Next()
	if got := rendered(t, form); got != "page 3" {
		t.Fatalf("expected to stay on page 3, got %q", got)
	}
}

func TestPrevious_Saturates(t *testing.T) {
	form := mustForm(t, threePages())
	form.Next()
	form.Next()
	form.Next()
	form.Previous()
	if got := rendered(t, form); got != "page 2" {
		t.Fatalf("expected page 2, got %q", got)
	}
	form.Previous()
	if got := rendered(t, form); got != "page 1" {
		t.Fatalf("expected page 1, got %q", got)
	}
	form.Previous()
	if got := rendered(t, form); got != "page 1" {
		t.Fatalf("expected to stay on page 1, got %q", got)
	}
}

func TestNavigation_ClampedForAnyLength(t *testing.T) {
	for n := 1; n <= 5; n++ {
		pages := make([]wizard.Page, n)
		for i := range pages {
			pages[i] = namedPage(fmt.Sprintf("p%d", i))
		}
		for k := 0; k <= n+2; k++ {
			form := mustForm(t, pages)
			for i := 0; i < k; i++ {
				form.Next()
			}
			if want := min(k, n-1); form.Index() != want {
				t.Fatalf("n=%d next x%d: want %d, got %d", n, k, want, form.Index())
			}
			start := form.Index()
			for j := 0; j <= n+1; j++ {
				probe := mustForm(t, pages)
				for i := 0; i < start; i++ {
					probe.Next()
				}
				for i := 0; i < j; i++ {
					probe.Previous()
				}
				if want := max(start-j, 0); probe.Index() != want {
					t.Fatalf("n=%d from %d previous x%d: want %d, got %d", n, start, j, want, probe.Index())
				}
			}
		}
	}
}

func TestEdit_ReturnsToFirstPageKeepingValues(t *testing.T) {
	form := mustForm(t, threePages())
	form.Submit(map[string]any{"a": 1})
	form.Next()
	form.Edit()
	if got := rendered(t, form); got != "page 1" {
		t.Fatalf("expected page 1, got %q", got)
	}
	if diff := cmp.Diff(map[string]any{"a": 1}, form.Values()); diff != "" {
		t.Fatalf("values changed by edit (-want +got):\n%s", diff)
	}
}

func TestSubmit_NonLastStepMergesAndAdvances(t *testing.T) {
	var last wizard.Props
	capture := func(name string) wizard.Page {
		return wizard.PageFunc(func(_ context.Context, props wizard.Props) ([]byte, error) {
			last = props
			return []byte(name), nil
		})
	}
	calls := 0
	handler := func(context.Context, wizard.SubmitRequest) error {
		calls++
		return nil
	}
	form := mustForm(t, []wizard.Page{capture("page 1"), capture("page 2"), capture("page 3")},
		wizard.WithSubmitHandler(handler))

	if sub := form.Submit(map[string]any{"someProp": "value"}); sub != nil {
		t.Fatalf("expected no submission on a middle step")
	}
	if got := rendered(t, form); got != "page 2" {
		t.Fatalf("expected page 2, got %q", got)
	}
	if last.Submitting {
		t.Fatalf("expected submitting to stay false")
	}
	if diff := cmp.Diff(map[string]any{"someProp": "value"}, last.Values); diff != "" {
		t.Fatalf("values mismatch (-want +got):\n%s", diff)
	}

	form.Submit(map[string]any{"otherProp": "other value"})
	if got := rendered(t, form); got != "page 3" {
		t.Fatalf("expected page 3, got %q", got)
	}
	want := map[string]any{"someProp": "value", "otherProp": "other value"}
	if diff := cmp.Diff(want, last.Values); diff != "" {
		t.Fatalf("values mismatch (-want +got):\n%s", diff)
	}
	if last.Error != "" || calls != 0 {
		t.Fatalf("expected no handler call and no error, got calls=%d error=%q", calls, last.Error)
	}
}

func TestSubmit_ShallowMergeOverwrites(t *testing.T) {
	form := mustForm(t, threePages(), wizard.WithValues(map[string]any{
		"nested": map[string]any{"keep": true},
	}))
	form.Submit(map[string]any{"a": 1})
	form.Submit(map[string]any{"b": 2})
	form.Submit(map[string]any{"a": 3, "nested": map[string]any{"new": true}})

	want := map[string]any{"a": 3, "b": 2, "nested": map[string]any{"new": true}}
	if diff := cmp.Diff(want, form.Values()); diff != "" {
		t.Fatalf("merge mismatch (-want +got):\n%s", diff)
	}
}

func TestSubmit_LastStepStartsSubmission(t *testing.T) {
	release := make(chan struct{})
	var (
		mu  sync.Mutex
		got []map[string]any
	)
	handler := func(_ context.Context, req wizard.SubmitRequest) error {
		mu.Lock()
		got = append(got, req.Values)
		mu.Unlock()
		<-release
		req.Resolve()
		return nil
	}
	form := mustForm(t, threePages(), wizard.WithSubmitHandler(handler))
	form.Next()
	form.Next()
	form.Next()

	sub := form.Submit(map[string]any{"prop": "value"})
	if sub == nil {
		t.Fatalf("expected submission on the last step")
	}
	props := form.Props(context.Background())
	if !props.Submitting {
		t.Fatalf("expected submitting to be true synchronously")
	}
	if got := rendered(t, form); got != "page 3" {
		t.Fatalf("expected page 3, got %q", got)
	}

	close(release)
	waitSettled(t, sub)

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 1 {
		t.Fatalf("expected handler called once, got %d", len(got))
	}
	if diff := cmp.Diff(map[string]any{"prop": "value"}, got[0]); diff != "" {
		t.Fatalf("handler values mismatch (-want +got):\n%s", diff)
	}
}

func TestSubmit_ResolveClearsStatus(t *testing.T) {
	handler := func(_ context.Context, req wizard.SubmitRequest) error {
		req.Resolve()
		return nil
	}
	form := mustForm(t, threePages(), wizard.WithSubmitHandler(handler))
	form.Next()
	form.Next()

	sub := form.Submit(map[string]any{"prop": "value"})
	waitSettled(t, sub)

	if err := sub.Err(); err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	snap := form.Snapshot()
	if snap.Submitting || snap.Error != "" {
		t.Fatalf("expected settled status, got submitting=%v error=%q", snap.Submitting, snap.Error)
	}
}

func TestSubmit_RejectWithoutValue(t *testing.T) {
	handler := func(_ context.Context, req wizard.SubmitRequest) error {
		req.Reject()
		return nil
	}
	form := mustForm(t, []wizard.Page{namedPage("only")}, wizard.WithSubmitHandler(handler))
	sub := form.Submit(nil)
	waitSettled(t, sub)

	snap := form.Snapshot()
	if snap.Submitting {
		t.Fatalf("expected submitting false")
	}
	if snap.Error != "" || snap.Cause != nil {
		t.Fatalf("expected empty error, got %q (%v)", snap.Error, snap.Cause)
	}
	var submitErr *wizard.SubmitError
	if !errors.As(sub.Err(), &submitErr) {
		t.Fatalf("expected SubmitError, got %v", sub.Err())
	}
}

func TestSubmit_RejectWithValue(t *testing.T) {
	handler := func(_ context.Context, req wizard.SubmitRequest) error {
		go req.Reject("some error")
		return nil
	}
	form := mustForm(t, threePages(), wizard.WithSubmitHandler(handler))
	form.Edit()
	form.Next()
	form.Next()

	sub := form.Submit(map[string]any{"prop": "value"})
	waitSettled(t, sub)

	props := form.Props(context.Background())
	if props.Submitting {
		t.Fatalf("expected submitting false")
	}
	if props.Error != "some error" {
		t.Fatalf("expected error %q, got %q", "some error", props.Error)
	}
	if props.Cause != "some error" {
		t.Fatalf("expected raw cause passed through, got %v", props.Cause)
	}
	if got := rendered(t, form); got != "page 3" {
		t.Fatalf("expected to stay on the last page, got %q", got)
	}
}

func TestSubmit_HandlerErrorAndPanicReject(t *testing.T) {
	boom := errors.New("transport down")
	form := mustForm(t, []wizard.Page{namedPage("only")}, wizard.WithSubmitHandler(
		func(context.Context, wizard.SubmitRequest) error { return boom },
	))
	sub := form.Submit(nil)
	waitSettled(t, sub)
	if !errors.Is(sub.Err(), boom) {
		t.Fatalf("expected wrapped transport error, got %v", sub.Err())
	}
	if form.Snapshot().Error != "transport down" {
		t.Fatalf("unexpected error state %q", form.Snapshot().Error)
	}

	form = mustForm(t, []wizard.Page{namedPage("only")}, wizard.WithSubmitHandler(
		func(context.Context, wizard.SubmitRequest) error { panic("bad handler") },
	))
	sub = form.Submit(nil)
	waitSettled(t, sub)
	if !strings.Contains(form.Snapshot().Error, "bad handler") {
		t.Fatalf("expected panic surfaced as error, got %q", form.Snapshot().Error)
	}
}

func TestSubmit_FirstSettlementWins(t *testing.T) {
	second := make(chan struct{})
	handler := func(_ context.Context, req wizard.SubmitRequest) error {
		req.Resolve()
		req.Reject("late failure")
		close(second)
		return errors.New("also ignored")
	}
	form := mustForm(t, []wizard.Page{namedPage("only")}, wizard.WithSubmitHandler(handler))
	sub := form.Submit(nil)
	waitSettled(t, sub)
	<-second

	if sub.Err() != nil {
		t.Fatalf("expected first (successful) settlement to win, got %v", sub.Err())
	}
	if snap := form.Snapshot(); snap.Error != "" || snap.Submitting {
		t.Fatalf("unexpected state after double settlement: %+v", snap)
	}
}

func TestSubmit_RetryClearsPreviousError(t *testing.T) {
	attempt := 0
	handler := func(_ context.Context, req wizard.SubmitRequest) error {
		attempt++
		if attempt == 1 {
			req.Reject("first failure")
			return nil
		}
		req.Resolve()
		return nil
	}
	form := mustForm(t, []wizard.Page{namedPage("only")}, wizard.WithSubmitHandler(handler))
	waitSettled(t, form.Submit(nil))
	if form.Snapshot().Error != "first failure" {
		t.Fatalf("expected first failure recorded")
	}

	waitSettled(t, form.Submit(map[string]any{"retry": true}))
	if snap := form.Snapshot(); snap.Error != "" || snap.Submitting {
		t.Fatalf("expected retry to clear error, got %+v", snap)
	}
}

func TestSubmit_LastStepWithoutHandlerIsNoop(t *testing.T) {
	form := mustForm(t, []wizard.Page{namedPage("a"), namedPage("b")})
	form.Next()
	if sub := form.Submit(map[string]any{"x": 1}); sub != nil {
		t.Fatalf("expected no submission without handler")
	}
	snap := form.Snapshot()
	if snap.Submitting || snap.Error != "" || snap.Index != 1 {
		t.Fatalf("unexpected state %+v", snap)
	}
	if diff := cmp.Diff(map[string]any{"x": 1}, snap.Values); diff != "" {
		t.Fatalf("values mismatch (-want +got):\n%s", diff)
	}
}

func TestScenario_ThreeStepsImmediateResolve(t *testing.T) {
	states := make(chan bool, 8)
	handler := func(_ context.Context, req wizard.SubmitRequest) error {
		req.Resolve()
		return nil
	}
	form := mustForm(t, threePages(),
		wizard.WithSubmitHandler(handler),
		wizard.WithOnChange(func(s wizard.Snapshot) { states <- s.Submitting }),
	)
	form.Next()
	form.Next()
	sub := form.Submit(map[string]any{"p": "v"})
	waitSettled(t, sub)

	if got := rendered(t, form); got != "page 3" {
		t.Fatalf("expected page 3, got %q", got)
	}
	if diff := cmp.Diff([]bool{false, false, true, false}, collect(t, states, 4)); diff != "" {
		t.Fatalf("submitting transitions mismatch (-want +got):\n%s", diff)
	}
	if got, _ := form.Value("p"); got != "v" {
		t.Fatalf("expected accumulated p=v, got %v", got)
	}
}

func TestProps_OperationsBoundToForm(t *testing.T) {
	var props wizard.Props
	page := wizard.PageFunc(func(_ context.Context, p wizard.Props) ([]byte, error) {
		props = p
		return nil, nil
	})
	form := mustForm(t, []wizard.Page{page, page, page})
	if _, err := form.Render(context.Background()); err != nil {
		t.Fatalf("render: %v", err)
	}
	if !props.IsFirst() || props.Count != 3 {
		t.Fatalf("unexpected props position %d/%d", props.Index, props.Count)
	}

	props.Next()
	props.Next()
	if form.Index() != 2 {
		t.Fatalf("expected bound Next to move form, got %d", form.Index())
	}
	props.Previous()
	props.Edit()
	if form.Index() != 0 {
		t.Fatalf("expected bound Edit to reset, got %d", form.Index())
	}

	props.Values["leak"] = true
	if _, ok := form.Value("leak"); ok {
		t.Fatalf("expected props values to be a snapshot")
	}
	props.Submit(map[string]any{"via": "props"})
	if form.Index() != 1 {
		t.Fatalf("expected bound Submit to advance")
	}
}

func TestRender_WrapsPageError(t *testing.T) {
	boom := errors.New("boom")
	form := mustForm(t, []wizard.Page{wizard.PageFunc(func(context.Context, wizard.Props) ([]byte, error) {
		return nil, boom
	})})
	_, err := form.Render(context.Background())
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped page error, got %v", err)
	}
}

func TestClose_IgnoresLateSettlement(t *testing.T) {
	var (
		mu      sync.Mutex
		resolve func()
		notes   int
	)
	ready := make(chan struct{})
	handler := func(_ context.Context, req wizard.SubmitRequest) error {
		mu.Lock()
		resolve = req.Resolve
		mu.Unlock()
		close(ready)
		return nil
	}
	form := mustForm(t, []wizard.Page{namedPage("only")},
		wizard.WithSubmitHandler(handler),
		wizard.WithOnChange(func(wizard.Snapshot) {
			mu.Lock()
			notes++
			mu.Unlock()
		}),
	)
	sub := form.Submit(nil)
	<-ready
	form.Close()

	mu.Lock()
	fn := resolve
	before := notes
	mu.Unlock()
	fn()
	waitSettled(t, sub)

	if !form.Snapshot().Submitting {
		t.Fatalf("expected closed form state to stay untouched")
	}
	mu.Lock()
	defer mu.Unlock()
	if notes != before {
		t.Fatalf("expected no change notification after close")
	}
	if form.Submit(nil) != nil {
		t.Fatalf("expected submit on closed form to be ignored")
	}
}

func TestSubmission_WaitHonoursContext(t *testing.T) {
	block := make(chan struct{})
	defer close(block)
	form := mustForm(t, []wizard.Page{namedPage("only")}, wizard.WithSubmitHandler(
		func(_ context.Context, req wizard.SubmitRequest) error {
			<-block
			req.Resolve()
			return nil
		},
	))
	sub := form.Submit(nil)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := sub.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if sub.Settled() {
		t.Fatalf("expected submission to stay pending")
	}
}

func TestSubmitHandlerFunc(t *testing.T) {
	fail := errors.New("nope")
	form := mustForm(t, []wizard.Page{namedPage("only")}, wizard.WithSubmitHandler(
		wizard.SubmitHandlerFunc(func(_ context.Context, values map[string]any) error {
			if values["ok"] == true {
				return nil
			}
			return fail
		}),
	))
	waitSettled(t, form.Submit(map[string]any{"ok": false}))
	if form.Snapshot().Error != "nope" {
		t.Fatalf("expected failure surfaced, got %q", form.Snapshot().Error)
	}
	sub := form.Submit(map[string]any{"ok": true})
	if err := sub.Wait(context.Background()); err != nil {
		t.Fatalf("expected success, got %v", err)
	}
}

func TestOnChange_ListenersRunInOrder(t *testing.T) {
	var calls []string
	form := mustForm(t, threePages(),
		wizard.WithOnChange(func(s wizard.Snapshot) { calls = append(calls, fmt.Sprintf("a%d", s.Index)) }),
		wizard.WithOnChange(nil),
		wizard.WithOnChange(func(s wizard.Snapshot) { calls = append(calls, fmt.Sprintf("b%d", s.Index)) }),
	)
	form.Next()
	form.Edit()
	if diff := cmp.Diff([]string{"a1", "b1", "a0", "b0"}, calls); diff != "" {
		t.Fatalf("listener calls mismatch (-want +got):\n%s", diff)
	}
}

func TestOnChange_SettlementListenerSeesDoneSubmission(t *testing.T) {
	release := make(chan struct{})
	handler := func(_ context.Context, req wizard.SubmitRequest) error {
		<-release
		req.Reject("server down")
		return nil
	}

	var sub *wizard.Submission
	seen := make(chan error, 1)
	form := mustForm(t, []wizard.Page{namedPage("only")},
		wizard.WithSubmitHandler(handler),
		wizard.WithOnChange(func(s wizard.Snapshot) {
			if s.Submitting || s.Error == "" {
				return
			}
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			err := sub.Wait(ctx)
			if sub.Err() == nil {
				err = errors.New("sub.Err reported nil inside the listener")
			}
			seen <- err
		}),
	)
	sub = form.Submit(nil)
	close(release)

	select {
	case err := <-seen:
		var submitErr *wizard.SubmitError
		if !errors.As(err, &submitErr) || submitErr.Message() != "server down" {
			t.Fatalf("expected the rejection from Wait inside the listener, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("settlement listener did not finish")
	}
}

func collect(t *testing.T, ch <-chan bool, n int) []bool {
	t.Helper()
	out := make([]bool, 0, n)
	for len(out) < n {
		select {
		case v := <-ch:
			out = append(out, v)
		case <-time.After(2 * time.Second):
			t.Fatalf("expected %d notifications, got %d", n, len(out))
		}
	}
	return out
}
