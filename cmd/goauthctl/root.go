package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/spf13/cobra"

	goAuthClient "github.com/MrEthical07/goAuthClient"
)

type rootOptions struct {
	configPath   string
	baseURL      string
	trusted      []string
	store        string
	redisAddr    string
	profile      string
	ssmParameter string
	verbose      bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "goauthctl",
		Short:         "Manage a bearer-token session against an identity backend",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&opts.configPath, "config", os.Getenv("GOAUTHCTL_CONFIG"), "YAML config file")
	pf.StringVar(&opts.baseURL, "base-url", "", "identity backend base URL (overrides config)")
	pf.StringArrayVar(&opts.trusted, "trusted-origin", nil, "extra origin that may receive the bearer token, repeatable")
	pf.StringVar(&opts.store, "store", "", "credential store: memory, redis or ssm (overrides config)")
	pf.StringVar(&opts.redisAddr, "redis-addr", "", "redis address for the redis store")
	pf.StringVar(&opts.profile, "profile", "", "session profile name")
	pf.StringVar(&opts.ssmParameter, "ssm-parameter", "", "parameter name for the ssm store")
	pf.BoolVarP(&opts.verbose, "verbose", "v", false, "log renewal activity to stderr")

	root.AddCommand(
		newLoginCmd(opts),
		newTokenCmd(opts),
		newStatusCmd(opts),
		newCallCmd(opts),
		newLogoutCmd(opts),
		newLintCmd(opts),
	)
	return root
}

func (o *rootOptions) config() (goAuthClient.Config, error) {
	cfg := goAuthClient.DefaultConfig()
	if o.configPath != "" {
		loaded, err := goAuthClient.LoadConfigFile(o.configPath)
		if err != nil {
			return cfg, err
		}
		cfg = loaded
	}
	if o.baseURL != "" {
		cfg.Endpoints.BaseURL = o.baseURL
	}
	if len(o.trusted) > 0 {
		cfg.Endpoints.TrustedOrigins = append(cfg.Endpoints.TrustedOrigins, o.trusted...)
	}
	if o.store != "" {
		cfg.Store.Backend = goAuthClient.StoreBackend(o.store)
	}
	if o.redisAddr != "" {
		cfg.Store.RedisAddr = o.redisAddr
	}
	if o.profile != "" {
		cfg.Store.Profile = o.profile
	}
	if o.ssmParameter != "" {
		cfg.Store.SSMParameter = o.ssmParameter
	}
	return cfg, cfg.Validate()
}

func (o *rootOptions) client(cmd *cobra.Command) (*goAuthClient.Client, error) {
	cfg, err := o.config()
	if err != nil {
		return nil, err
	}
	logger := slog.New(slog.DiscardHandler)
	if o.verbose {
		logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
	return goAuthClient.New().WithConfig(cfg).WithLogger(logger).BuildContext(cmd.Context())
}

func newLoginCmd(opts *rootOptions) *cobra.Command {
	var username, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and store the credential pair",
		Long: `Log in with a username and password and store the returned token pair.

The password may also be supplied through GOAUTHCTL_PASSWORD.

Examples:
  goauthctl login --base-url https://auth.example.com --store redis --redis-addr 127.0.0.1:6379 -u alice`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				password = os.Getenv("GOAUTHCTL_PASSWORD")
			}
			if username == "" || password == "" {
				return errors.New("--username and --password (or GOAUTHCTL_PASSWORD) are required")
			}
			c, err := opts.client(cmd)
			if err != nil {
				return err
			}
			defer c.Close()

			claims, err := c.Login(cmd.Context(), username, password)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "logged in as %s (user %s), token expires %s\n",
				claims.Subject, claims.UserID, claims.Expiry().Format("2006-01-02T15:04:05Z07:00"))
			return nil
		},
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "username")
	cmd.Flags().StringVarP(&password, "password", "p", "", "password")
	return cmd
}

func newTokenCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "token",
		Short: "Print a currently valid access token, renewing if needed",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.client(cmd)
			if err != nil {
				return err
			}
			defer c.Close()

			token, err := c.AccessToken(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
}

type statusView struct {
	Authenticated   bool     `json:"authenticated"`
	HasRefreshToken bool     `json:"hasRefreshToken"`
	Decision        string   `json:"decision"`
	Subject         string   `json:"sub,omitempty"`
	UserID          string   `json:"userId,omitempty"`
	Email           string   `json:"email,omitempty"`
	Roles           []string `json:"roles,omitempty"`
	ExpiresAt       string   `json:"expiresAt,omitempty"`
	RenewAt         string   `json:"renewAt,omitempty"`
}

func newStatusCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "status",
		Aliases: []string{"whoami"},
		Short:   "Show the stored session without contacting the backend",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.client(cmd)
			if err != nil {
				return err
			}
			defer c.Close()

			st, err := c.Status(cmd.Context())
			if err != nil {
				return err
			}
			view := statusView{
				Authenticated:   st.Authenticated,
				HasRefreshToken: st.HasRefreshToken,
				Decision:        st.Decision,
			}
			if st.Claims != nil {
				view.Subject = st.Claims.Subject
				view.UserID = st.Claims.UserID
				view.Email = st.Claims.Email
				view.Roles = st.Claims.Roles
				view.ExpiresAt = st.ExpiresAt.UTC().Format("2006-01-02T15:04:05Z")
				view.RenewAt = st.RenewAt.UTC().Format("2006-01-02T15:04:05Z")
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(view)
		},
	}
}

func newCallCmd(opts *rootOptions) *cobra.Command {
	var data string
	var headers []string
	cmd := &cobra.Command{
		Use:   "call METHOD URL",
		Short: "Send an authorized request and print the response body",
		Long: `Send a request with the stored bearer token. An authentication rejection is
answered with one renewal and one retry.

Examples:
  goauthctl call GET https://api.example.com/v1/projects
  goauthctl call POST https://api.example.com/v1/tasks -d '{"title":"x"}' -H 'Content-Type: application/json'`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.client(cmd)
			if err != nil {
				return err
			}
			defer c.Close()

			var body io.Reader
			if data != "" {
				body = strings.NewReader(data)
			}
			req, err := http.NewRequestWithContext(cmd.Context(), strings.ToUpper(args[0]), args[1], body)
			if err != nil {
				return err
			}
			for _, h := range headers {
				name, value, ok := strings.Cut(h, ":")
				if !ok {
					return fmt.Errorf("invalid header %q, want Name: value", h)
				}
				req.Header.Add(strings.TrimSpace(name), strings.TrimSpace(value))
			}

			resp, err := c.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()
			if _, err := io.Copy(cmd.OutOrStdout(), resp.Body); err != nil {
				return err
			}
			if resp.StatusCode >= 400 {
				return &statusError{code: resp.StatusCode}
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&data, "data", "d", "", "request body")
	cmd.Flags().StringArrayVarP(&headers, "header", "H", nil, "request header, repeatable")
	return cmd
}

func newLogoutCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Revoke the session on the backend and clear stored credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.client(cmd)
			if err != nil {
				return err
			}
			defer c.Close()

			if err := c.Logout(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "logged out")
			return nil
		},
	}
}

func newLintCmd(opts *rootOptions) *cobra.Command {
	var failOn string
	cmd := &cobra.Command{
		Use:   "lint",
		Short: "Report risky but valid configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.config()
			if err != nil {
				return err
			}
			ws := cfg.Lint()
			for _, w := range ws {
				fmt.Fprintf(cmd.OutOrStdout(), "%-5s %-28s %s\n", w.Severity, w.Code, w.Message)
			}
			switch failOn {
			case "", "none":
				return nil
			case "warn":
				return ws.AsError(goAuthClient.LintWarn)
			case "high":
				return ws.AsError(goAuthClient.LintHigh)
			default:
				return fmt.Errorf("invalid --fail-on %q", failOn)
			}
		},
	}
	cmd.Flags().StringVar(&failOn, "fail-on", "high", "exit non-zero at this severity: none, warn or high")
	return cmd
}

type statusError struct{ code int }

func (e *statusError) Error() string { return fmt.Sprintf("server responded %d", e.code) }

// exitCode maps errors to process exit codes: 3 for anything that means the user must
// log in again, 4 for an HTTP error status, 1 otherwise.
func exitCode(err error) int {
	var se *statusError
	switch {
	case errors.Is(err, goAuthClient.ErrNoRefreshToken),
		errors.Is(err, goAuthClient.ErrRenewalFailed),
		errors.Is(err, goAuthClient.ErrAuthorizationRejected),
		errors.Is(err, goAuthClient.ErrInvalidCredentials):
		return 3
	case errors.As(err, &se):
		return 4
	default:
		return 1
	}
}
