package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/goliatone/go-multistep/pkg/drafts"
	"github.com/goliatone/go-multistep/pkg/renderers/tui"
	"github.com/goliatone/go-multistep/pkg/wizard"
)

// draftFlags enable resumable sessions backed by Redis.
type draftFlags struct {
	redisAddr string
	id        string
}

func (d *draftFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&d.redisAddr, "draft-redis", "", "Redis address used to save and resume drafts")
	cmd.Flags().StringVar(&d.id, "draft-id", "", "Draft id to resume (defaults to the flow name)")
}

// open returns nil when drafts are disabled.
func (d *draftFlags) open() (*drafts.RedisStore, func(), error) {
	if d.redisAddr == "" {
		return nil, func() {}, nil
	}
	client := redis.NewClient(&redis.Options{Addr: d.redisAddr})
	return drafts.NewRedisStore(client), func() { _ = client.Close() }, nil
}

func runCmd() *cobra.Command {
	var (
		source sourceFlags
		sink   sinkFlags
		draft  draftFlags
		plain  bool
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Walk a flow in the terminal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
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

			theme := tui.StyledTheme()
			if plain {
				theme = tui.Theme{ErrorPrefix: "! "}
			}
			runner := tui.New(tui.WithLogger(logger), tui.WithTheme(theme))
			opts := []wizard.Option{wizard.WithSubmitHandler(handler)}

			store, closeStore, err := draft.open()
			if err != nil {
				return err
			}
			defer closeStore()
			draftID := draft.id
			if draftID == "" {
				draftID = f.Name
			}
			if store != nil {
				values, err := drafts.Restore(ctx, store, draftID, f.Values)
				if err != nil {
					return fmt.Errorf("restore draft: %w", err)
				}
				f.Values = values
				opts = append(opts, wizard.WithOnChange(drafts.Autosave(context.WithoutCancel(ctx), store, draftID, logger)))
			}

			form, err := runner.Form(f, opts...)
			if err != nil {
				return fmt.Errorf("build form: %w", err)
			}
			err = runner.Run(ctx, form)
			switch {
			case errors.Is(err, tui.ErrAborted):
				fmt.Fprintln(cmd.ErrOrStderr(), "Aborted.")
				return nil
			case err != nil:
				return err
			}
			if store != nil {
				if err := store.Delete(context.WithoutCancel(ctx), draftID); err != nil {
					logger.Warn("draft not removed", "draft", draftID, "error", err)
				}
			}
			return nil
		},
	}
	source.register(cmd)
	sink.register(cmd)
	draft.register(cmd)
	cmd.Flags().BoolVar(&plain, "plain", false, "Disable coloured prefixes")
	return cmd
}
