package submit_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/goliatone/go-multistep/pkg/submit"
	"github.com/goliatone/go-multistep/pkg/wizard"
)

func lastStepForm(t *testing.T, handler wizard.SubmitHandler) *wizard.Form {
	t.Helper()
	page := wizard.PageFunc(func(context.Context, wizard.Props) ([]byte, error) { return nil, nil })
	form, err := wizard.New([]wizard.Page{page}, wizard.WithSubmitHandler(handler),
		wizard.WithValues(map[string]any{"email": "a@example.com"}))
	if err != nil {
		t.Fatalf("new form: %v", err)
	}
	return form
}

func TestEncode(t *testing.T) {
	values := map[string]any{
		"name":     "Ada",
		"channels": []any{"email", "sms"},
		"address":  map[string]any{"city": "London"},
	}

	pretty, err := submit.Encode(values, submit.FormatPrettyText)
	if err != nil {
		t.Fatalf("encode pretty: %v", err)
	}
	want := "address.city=London\nchannels[0]=email\nchannels[1]=sms\nname=Ada\n"
	if diff := cmp.Diff(want, string(pretty)); diff != "" {
		t.Fatalf("pretty mismatch (-want +got):\n%s", diff)
	}

	form, err := submit.Encode(values, submit.FormatFormURLEncoded)
	if err != nil {
		t.Fatalf("encode form: %v", err)
	}
	parsed, err := url.ParseQuery(string(form))
	if err != nil {
		t.Fatalf("parse form: %v", err)
	}
	wantForm := url.Values{
		"name":         {"Ada"},
		"channels[]":   {"email", "sms"},
		"address.city": {"London"},
	}
	if diff := cmp.Diff(wantForm, parsed); diff != "" {
		t.Fatalf("form mismatch (-want +got):\n%s", diff)
	}

	if _, err := submit.Encode(values, submit.Format("xml")); err == nil {
		t.Fatalf("expected unknown format error")
	}
}

func TestParseFormat(t *testing.T) {
	cases := map[string]submit.Format{
		"":       submit.FormatJSON,
		"JSON":   submit.FormatJSON,
		"form":   submit.FormatFormURLEncoded,
		"pretty": submit.FormatPrettyText,
		"text":   submit.FormatPrettyText,
	}
	for in, want := range cases {
		got, err := submit.ParseFormat(in)
		if err != nil || got != want {
			t.Fatalf("ParseFormat(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := submit.ParseFormat("yaml"); err == nil {
		t.Fatalf("expected error for unknown format")
	}
}

func TestHTTP_Success(t *testing.T) {
	var (
		gotBody   map[string]any
		gotHeader string
		gotType   string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeader = r.Header.Get("X-Token")
		gotType = r.Header.Get("Content-Type")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	handler, err := submit.HTTP(srv.URL, submit.WithHeader("X-Token", "secret"), submit.WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("new transport: %v", err)
	}
	form := lastStepForm(t, handler)
	sub := form.Submit(map[string]any{"plan": "team"})
	if err := sub.Wait(context.Background()); err != nil {
		t.Fatalf("expected success, got %v", err)
	}

	if diff := cmp.Diff(map[string]any{"email": "a@example.com", "plan": "team"}, gotBody); diff != "" {
		t.Fatalf("body mismatch (-want +got):\n%s", diff)
	}
	if gotHeader != "secret" || gotType != "application/json" {
		t.Fatalf("unexpected headers token=%q type=%q", gotHeader, gotType)
	}
	if snap := form.Snapshot(); snap.Submitting || snap.Error != "" {
		t.Fatalf("unexpected form state %+v", snap)
	}
}

func TestHTTP_RejectsNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			t.Errorf("expected PUT, got %s", r.Method)
		}
		body, _ := io.ReadAll(r.Body)
		if _, err := url.ParseQuery(string(body)); err != nil {
			t.Errorf("expected form body, got %q", body)
		}
		http.Error(w, "email taken", http.StatusConflict)
	}))
	defer srv.Close()

	handler, err := submit.HTTP(srv.URL, submit.WithMethod("put"), submit.WithFormat(submit.FormatFormURLEncoded))
	if err != nil {
		t.Fatalf("new transport: %v", err)
	}
	form := lastStepForm(t, handler)
	err = form.Submit(nil).Wait(context.Background())

	var status *submit.StatusError
	if !errors.As(err, &status) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if status.StatusCode != http.StatusConflict || status.Body != "email taken" {
		t.Fatalf("unexpected status error %+v", status)
	}
	if got := form.Snapshot().Error; got != status.Error() {
		t.Fatalf("expected form error %q, got %q", status.Error(), got)
	}
}

func TestHTTP_RetryReusesIdempotencyKeyAndTraces(t *testing.T) {
	var (
		mu   sync.Mutex
		keys []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		keys = append(keys, r.Header.Get(submit.IdempotencyHeader))
		attempt := len(keys)
		mu.Unlock()
		if attempt == 1 {
			http.Error(w, "try again", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	defer func() { _ = provider.Shutdown(context.Background()) }()

	handler, err := submit.HTTP(srv.URL, submit.WithTracer(provider.Tracer("test")))
	if err != nil {
		t.Fatalf("new transport: %v", err)
	}
	form := lastStepForm(t, handler)
	if err := form.Submit(map[string]any{"plan": "team"}).Wait(context.Background()); err == nil {
		t.Fatalf("expected first attempt to fail")
	}
	if err := form.Submit(map[string]any{"plan": "team"}).Wait(context.Background()); err != nil {
		t.Fatalf("expected retry to succeed, got %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(keys) != 2 || keys[0] != keys[1] {
		t.Fatalf("expected the same key on retry, got %v", keys)
	}
	if _, err := uuid.Parse(keys[0]); err != nil {
		t.Fatalf("expected uuid key, got %q: %v", keys[0], err)
	}

	spans := recorder.Ended()
	if len(spans) != 2 {
		t.Fatalf("expected two spans, got %d", len(spans))
	}
	if spans[0].Name() != "submit.http" || spans[0].Status().Code != codes.Error {
		t.Fatalf("expected failed first span, got %s %v", spans[0].Name(), spans[0].Status())
	}
	if spans[1].Status().Code == codes.Error {
		t.Fatalf("expected successful second span, got %v", spans[1].Status())
	}
}

func TestHTTP_RequiresEndpoint(t *testing.T) {
	if _, err := submit.HTTP("  "); err == nil {
		t.Fatalf("expected endpoint error")
	}
}

func TestWriter(t *testing.T) {
	var buf bytes.Buffer
	form := lastStepForm(t, submit.Writer(&buf, submit.FormatJSON))
	if err := form.Submit(map[string]any{"plan": "team"}).Wait(context.Background()); err != nil {
		t.Fatalf("submit: %v", err)
	}
	want := "{\"email\":\"a@example.com\",\"plan\":\"team\"}\n"
	if diff := cmp.Diff(want, buf.String()); diff != "" {
		t.Fatalf("writer output mismatch (-want +got):\n%s", diff)
	}
}

func TestStatusError_FieldErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
		want map[string][]string
	}{
		{
			name: "list and single messages",
			body: `{"errors":{"/email":["taken","invalid"],"name":"required","form":[]}}`,
			want: map[string][]string{"/email": {"taken", "invalid"}, "name": {"required"}},
		},
		{name: "plain text", body: "email taken"},
		{name: "no errors key", body: `{"message":"nope"}`},
		{name: "malformed", body: `{"errors":`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := (&submit.StatusError{StatusCode: http.StatusUnprocessableEntity, Body: tt.body}).FieldErrors()
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Fatalf("field errors mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
