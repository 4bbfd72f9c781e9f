package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	theme "github.com/goliatone/go-theme"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/goliatone/go-multistep/pkg/metrics"
	"github.com/goliatone/go-multistep/pkg/renderers/vanilla"
	"github.com/goliatone/go-multistep/pkg/wizard"
)

func serveCmd() *cobra.Command {
	var (
		source       sourceFlags
		sink         sinkFlags
		addr         string
		themePath    string
		themeVariant string
		templatesDir string
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve a flow as HTML pages",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			logger := slog.Default()

			f, err := source.load(ctx)
			if err != nil {
				return fmt.Errorf("load flow: %w", err)
			}
			handler, closeSink, err := sink.build(ctx, f, cmd.OutOrStdout(), logger)
			if err != nil {
				return fmt.Errorf("configure submission: %w", err)
			}
			defer closeSink()

			opts := []vanilla.Option{vanilla.WithLogger(logger), vanilla.WithTemplatesDir(templatesDir)}
			if themePath != "" {
				manifest, err := loadManifest(themePath)
				if err != nil {
					return err
				}
				opts = append(opts, vanilla.WithThemeSelector(vanilla.StaticSelector{Manifest: manifest}, manifest.Name, themeVariant))
			}
			renderer, err := vanilla.New(opts...)
			if err != nil {
				return err
			}

			reg := prometheus.NewRegistry()
			m, err := metrics.New(reg)
			if err != nil {
				return err
			}
			form, err := renderer.Form(f,
				wizard.WithSubmitHandler(m.Instrument(f.Name, handler)),
				wizard.WithOnChange(m.Observe(f.Name)),
			)
			if err != nil {
				return fmt.Errorf("build form: %w", err)
			}
			defer form.Close()
			h, err := renderer.Handler(form, f)
			if err != nil {
				return err
			}

			mux := http.NewServeMux()
			mux.Handle("/", h)
			mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
			srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}

			go func() {
				<-ctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = srv.Shutdown(shutdownCtx)
			}()

			fmt.Fprintf(cmd.OutOrStdout(), "Serving %q on http://%s/\n", f.Name, addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	source.register(cmd)
	sink.register(cmd)
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8080", "Listen address")
	cmd.Flags().StringVar(&themePath, "theme", "", "Theme manifest (JSON) providing tokens and assets")
	cmd.Flags().StringVar(&themeVariant, "variant", "", "Theme variant")
	cmd.Flags().StringVar(&templatesDir, "templates", "", "Directory holding templates/step.tmpl and templates/done.tmpl overrides")
	return cmd
}

func loadManifest(path string) (*theme.Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read theme manifest: %w", err)
	}
	var manifest theme.Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("parse theme manifest %s: %w", path, err)
	}
	return &manifest, nil
}
