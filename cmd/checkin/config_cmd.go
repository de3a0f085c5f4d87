package main

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/MacJediWizard/checkin/internal/config"
	"github.com/MacJediWizard/checkin/internal/httpclient"
	"github.com/spf13/cobra"
)

func newConfigCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage client configuration",
	}

	cmd.AddCommand(
		newConfigShowCmd(opts),
		newConfigSetServerCmd(opts),
		newConfigPathCmd(opts),
	)

	return cmd
}

func newConfigShowCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, path, err := opts.loadFileConfig()
			if err != nil {
				return err
			}
			cfg.ApplyEnv()

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Config file:  %s\n", path)
			fmt.Fprintf(out, "Environment:  %s\n", config.LoadEnvironment())
			fmt.Fprintln(out)

			if cfg.ServerURL == "" {
				fmt.Fprintln(out, "Server is not configured. Run 'checkin config set-server <url>' to set up.")
				return nil
			}

			fmt.Fprintf(out, "Server URL:   %s\n", cfg.ServerURL)
			fmt.Fprintf(out, "Timeout:      %s\n", cfg.Timeout())
			fmt.Fprintf(out, "Logged in:    %v\n", cfg.IsLoggedIn())
			if cfg.IsLoggedIn() {
				fmt.Fprintf(out, "Access token: %s\n", maskToken(cfg.AccessToken))
			}
			if cfg.HasClientCredentials() {
				fmt.Fprintf(out, "Client ID:    %s\n", cfg.ClientID)
			}
			if p := cfg.GetProxyConfig(); p != nil {
				fmt.Fprintf(out, "Proxy:        %s\n", httpclient.ProxyInfo(p))
			}
			return nil
		},
	}
}

func newConfigSetServerCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "set-server <url>",
		Short: "Set the backend URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			serverURL := args[0]

			parsed, err := url.Parse(serverURL)
			if err != nil {
				return fmt.Errorf("invalid server URL: %w", err)
			}
			if parsed.Scheme != "http" && parsed.Scheme != "https" {
				return fmt.Errorf("server URL must use http or https scheme")
			}

			cfg, path, err := opts.loadFileConfig()
			if err != nil {
				return err
			}
			cfg.ServerURL = strings.TrimSuffix(serverURL, "/")

			if err := cfg.Save(path); err != nil {
				return fmt.Errorf("save config: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Server URL set to: %s\n", cfg.ServerURL)
			return nil
		},
	}
}

func newConfigPathCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the config file path",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := opts.path()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
}

// maskToken shows only the first and last four characters of a token.
func maskToken(token string) string {
	if len(token) <= 12 {
		return "****"
	}
	return token[:4] + "..." + token[len(token)-4:]
}
