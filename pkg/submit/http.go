package submit

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/goliatone/go-multistep/pkg/wizard"
)

const (
	maxErrorBody = 4 << 10

	// IdempotencyHeader carries a key derived from the endpoint and the
	// encoded body, so a retried submission of the same values reuses it.
	IdempotencyHeader = "Idempotency-Key"

	tracerName = "github.com/goliatone/go-multistep/pkg/submit"
)

// StatusError reports a non-2xx response from the submission endpoint.
type StatusError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return "submit: " + e.Status
	}
	return "submit: " + e.Status + ": " + e.Body
}

// HTTPOption configures the HTTP transport.
type HTTPOption func(*httpTransport)

// WithHTTPClient overrides the client used to send submissions.
func WithHTTPClient(client *http.Client) HTTPOption {
	return func(t *httpTransport) {
		if client != nil {
			t.client = client
		}
	}
}

// WithMethod overrides the HTTP method (default POST).
func WithMethod(method string) HTTPOption {
	return func(t *httpTransport) {
		if m := strings.ToUpper(strings.TrimSpace(method)); m != "" {
			t.method = m
		}
	}
}

// WithFormat selects the request body encoding (default JSON).
func WithFormat(format Format) HTTPOption {
	return func(t *httpTransport) {
		if format != "" {
			t.format = format
		}
	}
}

// WithHeader adds a request header.
func WithHeader(name, value string) HTTPOption {
	return func(t *httpTransport) {
		if name = strings.TrimSpace(name); name != "" {
			t.headers.Set(name, value)
		}
	}
}

// WithLogger sets the logger used for request outcomes.
func WithLogger(logger *slog.Logger) HTTPOption {
	return func(t *httpTransport) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// WithTracer overrides the tracer used for submission spans. Defaults to the
// global OpenTelemetry provider.
func WithTracer(tracer trace.Tracer) HTTPOption {
	return func(t *httpTransport) {
		if tracer != nil {
			t.tracer = tracer
		}
	}
}

type httpTransport struct {
	endpoint string
	client   *http.Client
	method   string
	format   Format
	headers  http.Header
	logger   *slog.Logger
	tracer   trace.Tracer
}

// HTTP returns a submit handler that sends the accumulated values to endpoint.
// Transport failures and non-2xx responses reject the submission.
func HTTP(endpoint string, options ...HTTPOption) (wizard.SubmitHandler, error) {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return nil, errors.New("submit: endpoint is required")
	}
	t := &httpTransport{
		endpoint: endpoint,
		client:   http.DefaultClient,
		method:   http.MethodPost,
		format:   FormatJSON,
		headers:  make(http.Header),
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		tracer:   otel.Tracer(tracerName),
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(t)
	}
	return wizard.SubmitHandlerFunc(t.send), nil
}

func (t *httpTransport) send(ctx context.Context, values map[string]any) (err error) {
	ctx, span := t.tracer.Start(ctx, "submit.http", trace.WithSpanKind(trace.SpanKindClient), trace.WithAttributes(
		attribute.String("http.request.method", t.method),
		attribute.String("url.full", t.endpoint),
		attribute.String("multistep.submit.format", string(t.format)),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	body, err := Encode(values, t.format)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, t.method, t.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("submit: build request: %w", err)
	}
	for name, vals := range t.headers {
		for _, v := range vals {
			req.Header.Add(name, v)
		}
	}
	req.Header.Set("Content-Type", t.format.ContentType())
	if req.Header.Get(IdempotencyHeader) == "" {
		req.Header.Set(IdempotencyHeader, idempotencyKey(t.method, t.endpoint, body))
	}

	resp, err := t.client.Do(req)
	if err != nil {
		t.logger.Warn("submission request failed", "endpoint", t.endpoint, "error", err)
		return fmt.Errorf("submit: %s %s: %w", t.method, t.endpoint, err)
	}
	defer resp.Body.Close()
	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		t.logger.Warn("submission rejected", "endpoint", t.endpoint, "status", resp.StatusCode)
		return &StatusError{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       strings.TrimSpace(string(raw)),
		}
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	t.logger.Info("submission accepted", "endpoint", t.endpoint, "status", resp.StatusCode)
	return nil
}

func idempotencyKey(method, endpoint string, body []byte) string {
	name := make([]byte, 0, len(method)+len(endpoint)+len(body)+2)
	name = append(name, method...)
	name = append(name, ' ')
	name = append(name, endpoint...)
	name = append(name, '\n')
	name = append(name, body...)
	return uuid.NewSHA1(uuid.NameSpaceURL, name).String()
}
