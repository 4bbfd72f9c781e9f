package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-multistep/pkg/flow"
)

// sourceFlags selects where the flow definition comes from.
type sourceFlags struct {
	path      string
	embedded  string
	openapi   string
	operation string
}

func (s *sourceFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&s.path, "flow", "", "Flow definition path (YAML or JSON)")
	cmd.Flags().StringVar(&s.embedded, "embedded", "", "Name of a bundled example flow (see `multistep flows`)")
	cmd.Flags().StringVar(&s.openapi, "openapi", "", "OpenAPI document path or URL to derive the flow from")
	cmd.Flags().StringVar(&s.operation, "operation", "", "Operation ID used with --openapi")
	cmd.MarkFlagsMutuallyExclusive("flow", "embedded", "openapi")
}

func (s *sourceFlags) load(ctx context.Context) (flow.Flow, error) {
	switch {
	case s.path != "":
		return flow.LoadFile(s.path)
	case s.embedded != "":
		store, err := flow.LoadFS(flow.EmbeddedFS())
		if err != nil {
			return flow.Flow{}, err
		}
		f, ok := store.Flow(s.embedded)
		if !ok {
			return flow.Flow{}, fmt.Errorf("unknown embedded flow %q (available: %s)", s.embedded, strings.Join(store.Names(), ", "))
		}
		return f, nil
	case s.openapi != "":
		if s.operation == "" {
			return flow.Flow{}, errors.New("--operation is required with --openapi")
		}
		data, err := readSource(ctx, s.openapi)
		if err != nil {
			return flow.Flow{}, err
		}
		return flow.FromOpenAPI(ctx, data, s.operation)
	default:
		return flow.Flow{}, errors.New("one of --flow, --embedded or --openapi is required")
	}
}

func readSource(ctx context.Context, raw string) ([]byte, error) {
	path := strings.TrimSpace(raw)
	if !strings.HasPrefix(path, "http://") && !strings.HasPrefix(path, "https://") {
		return os.ReadFile(path)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("fetch %s: %s", path, resp.Status)
	}
	return io.ReadAll(resp.Body)
}
