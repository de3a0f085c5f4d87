// Package main is the entrypoint for the checkin CLI.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/MacJediWizard/checkin/internal/api"
	"github.com/MacJediWizard/checkin/internal/config"
	"github.com/MacJediWizard/checkin/internal/dal"
	"github.com/MacJediWizard/checkin/internal/devserver"
	"github.com/MacJediWizard/checkin/internal/httpclient"
	"github.com/MacJediWizard/checkin/internal/logging"
	"github.com/MacJediWizard/checkin/internal/telemetry"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// Build-time variables set via ldflags.
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", api.DisplayMessage(err))
		stop()
		os.Exit(1)
	}
}

// globalOptions are the persistent flags shared by every command.
type globalOptions struct {
	configPath  string
	serverURL   string
	jsonLogs    bool
	quiet       bool
	metricsFile string
}

func (o *globalOptions) path() (string, error) {
	if o.configPath != "" {
		return o.configPath, nil
	}
	return config.DefaultConfigPath()
}

// loadFileConfig reads the config file only, without the environment overlay.
// Commands that persist settings save this copy.
func (o *globalOptions) loadFileConfig() (*config.ClientConfig, string, error) {
	path, err := o.path()
	if err != nil {
		return nil, "", err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", fmt.Errorf("load config: %w", err)
	}
	return cfg, path, nil
}

// flushTimeout bounds telemetry delivery when a command exits.
const flushTimeout = 3 * time.Second

// app holds the wired client stack for one command invocation.
type app struct {
	opts     *globalOptions
	cfg      *config.ClientConfig
	logger   zerolog.Logger
	flush    logging.FlushFunc
	registry *prometheus.Registry
	svc      *dal.Service
	out      io.Writer
}

func newApp(cmd *cobra.Command, opts *globalOptions) (*app, error) {
	cfg, _, err := opts.loadFileConfig()
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnv()
	if opts.serverURL != "" {
		cfg.ServerURL = strings.TrimSuffix(opts.serverURL, "/")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration (run 'checkin config set-server <url>'): %w", err)
	}

	logger, flush := newLogger(opts, cmd.ErrOrStderr())
	a := &app{
		opts:   opts,
		cfg:    cfg,
		logger: logger,
		flush:  flush,
		out:    cmd.OutOrStdout(),
	}
	if err := a.wire(cmd); err != nil {
		_ = a.close()
		return nil, err
	}
	return a, nil
}

// wire builds the HTTP client, credentials and data-access service.
func (a *app) wire(cmd *cobra.Command) error {
	cfg, logger := a.cfg, a.logger

	hc, err := httpclient.NewWithConfig(cfg)
	if err != nil {
		return fmt.Errorf("create HTTP client: %w", err)
	}
	if p := cfg.GetProxyConfig(); p != nil {
		logger.Debug().Str("proxy", httpclient.ProxyInfo(p)).Msg("using proxy")
	}

	clientOpts := []api.Option{
		api.WithHTTPClient(hc),
		api.WithLogger(logger),
		api.WithDefaultHeader("User-Agent", "checkin/"+Version),
	}
	if a.opts.metricsFile != "" {
		a.registry = prometheus.NewRegistry()
		m, err := api.NewMetrics(a.registry, devserver.ErrorCodes...)
		if err != nil {
			return fmt.Errorf("register client metrics: %w", err)
		}
		clientOpts = append(clientOpts, api.WithMetrics(m))
	}
	switch {
	case cfg.AccessToken != "":
		clientOpts = append(clientOpts, api.WithCredentials(api.StaticToken(cfg.AccessToken)))
	case cfg.HasClientCredentials():
		provider, err := api.NewClientCredentialsProvider(cmd.Context(), api.ClientCredentialsConfig{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Issuer:       cfg.Issuer,
			TokenURL:     cfg.TokenURL,
		}, hc)
		if err != nil {
			return fmt.Errorf("configure service credentials: %w", err)
		}
		clientOpts = append(clientOpts, api.WithCredentials(provider))
	}

	client, err := api.NewClient(cfg.ServerURL, clientOpts...)
	if err != nil {
		return fmt.Errorf("create API client: %w", err)
	}
	a.svc = dal.New(client)
	return nil
}

// close writes the metrics textfile, if requested, and flushes telemetry.
func (a *app) close() error {
	var err error
	if a.registry != nil {
		if werr := prometheus.WriteToTextfile(a.opts.metricsFile, a.registry); werr != nil {
			err = fmt.Errorf("write metrics file: %w", werr)
		}
	}
	ctx, cancel := context.WithTimeout(context.Background(), flushTimeout)
	defer cancel()
	if ferr := a.flush(ctx); ferr != nil {
		a.logger.Debug().Err(ferr).Msg("telemetry reports not delivered")
	}
	return err
}

func newLogger(opts *globalOptions, w io.Writer) (zerolog.Logger, logging.FlushFunc) {
	var sink telemetry.Sink
	if endpoint := config.TelemetryEndpoint(); config.TelemetryEnabled() && endpoint != "" {
		sink = telemetry.NewHTTPSink(endpoint, Version)
	}

	logger, flush := logging.New(logging.Options{
		Environment: config.LoadEnvironment(),
		Output:      w,
		Console:     !opts.jsonLogs,
		Sink:        sink,
	})
	if opts.quiet {
		logger = logger.Level(zerolog.ErrorLevel)
	}
	return logger, flush
}

// printJSON writes v as indented JSON.
func (a *app) printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	_, err = fmt.Fprintln(a.out, string(data))
	return err
}

// runWithApp builds the app and hands it to fn.
func runWithApp(opts *globalOptions, fn func(cmd *cobra.Command, a *app, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, opts)
		if err != nil {
			return err
		}
		runErr := fn(cmd, a, args)
		if err := a.close(); err != nil && runErr == nil {
			return err
		}
		return runErr
	}
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:   "checkin",
		Short: "Check-in client - attendance from the command line",
		Long: `checkin talks to a check-in backend: register and log in, look up
users, record attendance and issue QR check-in codes.

Run 'checkin config set-server <url>' and then 'checkin login' to get started.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file (default ~/.checkin/config.yml)")
	rootCmd.PersistentFlags().StringVar(&opts.serverURL, "server", "", "backend URL, overrides the config file")
	rootCmd.PersistentFlags().BoolVar(&opts.jsonLogs, "json-logs", false, "write logs as JSON instead of console format")
	rootCmd.PersistentFlags().BoolVarP(&opts.quiet, "quiet", "q", false, "only log errors")
	rootCmd.PersistentFlags().StringVar(&opts.metricsFile, "metrics-file", "", "write client request metrics to this file in Prometheus text format on exit")

	rootCmd.AddCommand(
		newVersionCmd(),
		newConfigCmd(opts),
		newLoginCmd(opts),
		newRefreshCmd(opts),
		newLogoutCmd(opts),
		newRegisterCmd(opts),
		newUsersCmd(opts),
		newAttendanceCmd(opts),
		newQRCmd(opts),
		newDevServerCmd(opts),
	)

	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "checkin %s\n", Version)
			fmt.Fprintf(out, "  Commit:     %s\n", Commit)
			fmt.Fprintf(out, "  Built:      %s\n", BuildDate)
			fmt.Fprintf(out, "  Go version: %s\n", runtime.Version())
			fmt.Fprintf(out, "  OS/Arch:    %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	}
}
