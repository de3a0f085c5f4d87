package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/MacJediWizard/checkin/pkg/models"
	"github.com/spf13/cobra"
)

// readSecret returns value, or prompts for it on stdin when empty.
func readSecret(cmd *cobra.Command, prompt, value string) (string, error) {
	if value != "" {
		return value, nil
	}
	fmt.Fprint(cmd.ErrOrStderr(), prompt)
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read input: %w", err)
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return "", errors.New("password cannot be empty")
	}
	return line, nil
}

// saveTokens persists a token pair to the config file.
func (a *app) saveTokens(resp models.AuthResponse) error {
	cfg, path, err := a.opts.loadFileConfig()
	if err != nil {
		return err
	}
	if cfg.ServerURL == "" {
		cfg.ServerURL = a.cfg.ServerURL
	}
	cfg.AccessToken = resp.AccessToken
	cfg.RefreshToken = resp.RefreshToken
	if err := cfg.Save(path); err != nil {
		return fmt.Errorf("save config: %w", err)
	}
	return nil
}

func newLoginCmd(opts *globalOptions) *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and store the access token",
		RunE: runWithApp(opts, func(cmd *cobra.Command, a *app, args []string) error {
			pw, err := readSecret(cmd, "Password: ", password)
			if err != nil {
				return err
			}

			resp, err := a.svc.Login(cmd.Context(), models.LoginRequest{Email: email, Password: pw})
			if err != nil {
				return err
			}
			if err := a.saveTokens(resp); err != nil {
				return err
			}

			a.logger.Info().Str("user_id", resp.User.ID).Msg("logged in")
			return a.printJSON(resp.User)
		}),
	}

	cmd.Flags().StringVar(&email, "email", "", "account email (required)")
	cmd.Flags().StringVar(&password, "password", "", "account password (prompted when omitted)")
	_ = cmd.MarkFlagRequired("email")

	return cmd
}

func newRefreshCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Exchange the stored refresh token for a new token pair",
		RunE: runWithApp(opts, func(cmd *cobra.Command, a *app, args []string) error {
			if a.cfg.RefreshToken == "" {
				return errors.New("no refresh token stored (run 'checkin login' first)")
			}

			resp, err := a.svc.RefreshToken(cmd.Context(), models.RefreshTokenRequest{RefreshToken: a.cfg.RefreshToken})
			if err != nil {
				return err
			}
			if err := a.saveTokens(resp); err != nil {
				return err
			}

			a.logger.Info().Str("user_id", resp.User.ID).Msg("tokens refreshed")
			return a.printJSON(resp.User)
		}),
	}
}

func newLogoutCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the session and forget stored tokens",
		RunE: runWithApp(opts, func(cmd *cobra.Command, a *app, args []string) error {
			if a.cfg.IsLoggedIn() {
				// Local tokens are cleared even if the backend call fails.
				if err := a.svc.Logout(cmd.Context()); err != nil {
					a.logger.Warn().Err(err).Msg("backend logout failed")
				}
			}

			cfg, path, err := opts.loadFileConfig()
			if err != nil {
				return err
			}
			cfg.ClearTokens()
			if err := cfg.Save(path); err != nil {
				return fmt.Errorf("save config: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), "Logged out.")
			return nil
		}),
	}
}

func newRegisterCmd(opts *globalOptions) *cobra.Command {
	var (
		email, password string
		profile         models.Profile
	)

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Register a new account",
		Long: `Register a new account and store its tokens.

With only --email and --password this performs the basic registration step.
Passing --first-name and --last-name completes registration with the full profile.`,
		RunE: runWithApp(opts, func(cmd *cobra.Command, a *app, args []string) error {
			pw, err := readSecret(cmd, "Password: ", password)
			if err != nil {
				return err
			}

			var resp models.AuthResponse
			if profile.FirstName != "" || profile.LastName != "" {
				resp, err = a.svc.CompleteRegistration(cmd.Context(), models.CompleteRegisterRequest{
					Email:    email,
					Password: pw,
					Profile:  profile,
				})
			} else {
				resp, err = a.svc.Register(cmd.Context(), models.BasicRegisterRequest{Email: email, Password: pw})
			}
			if err != nil {
				return err
			}
			if err := a.saveTokens(resp); err != nil {
				return err
			}
			return a.printJSON(resp.User)
		}),
	}

	f := cmd.Flags()
	f.StringVar(&email, "email", "", "account email (required)")
	f.StringVar(&password, "password", "", "account password (prompted when omitted)")
	f.StringVar(&profile.FirstName, "first-name", "", "first name")
	f.StringVar(&profile.LastName, "last-name", "", "last name")
	f.StringVar(&profile.Bio, "bio", "", "short bio")
	f.StringVar(&profile.DateOfBirth, "date-of-birth", "", "date of birth (YYYY-MM-DD)")
	f.StringVar(&profile.Gender, "gender", "", "gender")
	f.BoolVar(&profile.Member, "member", false, "register as a member")
	f.BoolVar(&profile.Visitor, "visitor", false, "register as a visitor")
	f.StringVar(&profile.PhoneNumber, "phone", "", "phone number")
	f.StringVar(&profile.Profession, "profession", "", "profession")
	f.StringVar(&profile.UserHouseAddress, "address", "", "home address")
	f.StringVar(&profile.CampusState, "campus-state", "", "campus state")
	f.StringVar(&profile.CampusCountry, "campus-country", "", "campus country")
	f.StringVar(&profile.EmergencyContactName, "emergency-name", "", "emergency contact name")
	f.StringVar(&profile.EmergencyContactPhone, "emergency-phone", "", "emergency contact phone")
	f.StringVar(&profile.EmergencyContactEmail, "emergency-email", "", "emergency contact email")
	f.StringVar(&profile.EmergencyContactRelationship, "emergency-relationship", "", "emergency contact relationship")
	_ = cmd.MarkFlagRequired("email")

	return cmd
}
