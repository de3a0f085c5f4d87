package main

import (
	"context"

	"github.com/MacJediWizard/checkin/internal/config"
	"github.com/MacJediWizard/checkin/internal/devserver"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
)

func newDevServerCmd(opts *globalOptions) *cobra.Command {
	var (
		addr    string
		metrics bool
	)

	cmd := &cobra.Command{
		Use:   "devserver",
		Short: "Run an in-memory development backend",
		Long: `Run an in-memory backend that serves the full route surface.
State is lost when the process exits.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, flush := newLogger(opts, cmd.ErrOrStderr())
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), flushTimeout)
				defer cancel()
				_ = flush(ctx)
			}()
			if config.LoadEnvironment() != config.EnvDevelopment {
				gin.SetMode(gin.ReleaseMode)
			}

			srvOpts := devserver.Options{Logger: logger}
			if metrics {
				reg := prometheus.NewRegistry()
				reg.MustRegister(
					collectors.NewGoCollector(),
					collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
				)
				srvOpts.Registry = reg
			}

			return devserver.New(srvOpts).ListenAndServe(cmd.Context(), addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")
	cmd.Flags().BoolVar(&metrics, "metrics", true, "serve runtime metrics on /metrics")

	return cmd
}
