package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/spf13/cobra"

	"github.com/goliatone/go-multistep/pkg/flow"
	"github.com/goliatone/go-multistep/pkg/submit"
	"github.com/goliatone/go-multistep/pkg/wizard"
)

// sinkFlags selects where the final submission goes. At most one target may
// be set; without any the values are printed.
type sinkFlags struct {
	url        string
	method     string
	format     string
	sqlite     string
	postgres   string
	amqpURL    string
	exchange   string
	routingKey string
}

func (s *sinkFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&s.url, "submit-url", "", "Endpoint receiving the final submission")
	cmd.Flags().StringVar(&s.method, "method", "", "HTTP method used with --submit-url")
	cmd.Flags().StringVar(&s.format, "format", "", "Submission format: json, form or pretty")
	cmd.Flags().StringVar(&s.sqlite, "sqlite", "", "Store submissions in this SQLite database")
	cmd.Flags().StringVar(&s.postgres, "postgres", "", "Store submissions in this PostgreSQL database (DSN)")
	cmd.Flags().StringVar(&s.amqpURL, "amqp-url", "", "Publish submissions to this AMQP broker")
	cmd.Flags().StringVar(&s.exchange, "exchange", "multistep", "AMQP exchange used with --amqp-url")
	cmd.Flags().StringVar(&s.routingKey, "routing-key", "", "AMQP routing key (defaults to <flow>.submitted)")
	cmd.MarkFlagsMutuallyExclusive("submit-url", "sqlite", "postgres", "amqp-url")
}

// build returns the handler and a cleanup closing any connection it opened.
// Command-line settings take precedence over the flow's submit block.
func (s *sinkFlags) build(ctx context.Context, f flow.Flow, out io.Writer, logger *slog.Logger) (wizard.SubmitHandler, func(), error) {
	noop := func() {}
	sinkOpts := []submit.SinkOption{submit.WithFlowName(f.Name), submit.WithSinkLogger(logger)}

	switch {
	case s.sqlite != "":
		db, err := submit.OpenSQLite(s.sqlite)
		if err != nil {
			return nil, noop, err
		}
		handler, err := submit.SQL(ctx, db, sinkOpts...)
		if err != nil {
			_ = db.Close()
			return nil, noop, err
		}
		return handler, func() { _ = db.Close() }, nil

	case s.postgres != "":
		db, err := submit.OpenPostgres(ctx, s.postgres)
		if err != nil {
			return nil, noop, err
		}
		handler, err := submit.SQL(ctx, db, append(sinkOpts, submit.WithDollarPlaceholders())...)
		if err != nil {
			_ = db.Close()
			return nil, noop, err
		}
		return handler, func() { _ = db.Close() }, nil

	case s.amqpURL != "":
		conn, err := amqp.Dial(s.amqpURL)
		if err != nil {
			return nil, noop, fmt.Errorf("connect to broker: %w", err)
		}
		ch, err := conn.Channel()
		if err != nil {
			_ = conn.Close()
			return nil, noop, fmt.Errorf("open channel: %w", err)
		}
		key := s.routingKey
		if key == "" {
			key = f.Name + ".submitted"
		}
		handler, err := submit.AMQP(ch, s.exchange, key, sinkOpts...)
		if err != nil {
			_ = conn.Close()
			return nil, noop, err
		}
		return handler, func() { _ = ch.Close(); _ = conn.Close() }, nil
	}

	handler, err := httpOrWriter(f.Submit, s.url, s.method, s.format, out, logger)
	return handler, noop, err
}

func httpOrWriter(cfg flow.SubmitConfig, url, method, format string, out io.Writer, logger *slog.Logger) (wizard.SubmitHandler, error) {
	if url == "" {
		url = cfg.URL
	}
	if method == "" {
		method = cfg.Method
	}
	if format == "" {
		format = cfg.Format
	}

	if url == "" {
		if format == "" {
			format = string(submit.FormatPrettyText)
		}
		parsed, err := submit.ParseFormat(format)
		if err != nil {
			return nil, err
		}
		if out == nil {
			return nil, errors.New("no output for submissions")
		}
		return submit.Writer(out, parsed), nil
	}

	parsed, err := submit.ParseFormat(format)
	if err != nil {
		return nil, err
	}
	opts := []submit.HTTPOption{
		submit.WithFormat(parsed),
		submit.WithLogger(logger),
		submit.WithHTTPClient(&http.Client{Timeout: 30 * time.Second}),
	}
	if method != "" {
		opts = append(opts, submit.WithMethod(method))
	}
	for name, value := range cfg.Headers {
		opts = append(opts, submit.WithHeader(name, os.ExpandEnv(value)))
	}
	return submit.HTTP(url, opts...)
}
