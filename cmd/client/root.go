package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/muhammadolammi/resumeparser/internal/apiclient"
	"github.com/muhammadolammi/resumeparser/internal/config"
	"github.com/muhammadolammi/resumeparser/internal/logger"
	"github.com/muhammadolammi/resumeparser/internal/render"
	"github.com/muhammadolammi/resumeparser/internal/supabase"
)

// app carries what every subcommand needs.
type app struct {
	cfg    *config.ClientConfig
	auth   *supabase.Client
	store  *supabase.Store
	logger *zap.Logger
}

func newRootCmd() *cobra.Command {
	return newRootCmdFor(&app{})
}

// newRootCmdFor builds the command tree around a; nil dependencies are
// filled from the environment.
func newRootCmdFor(a *app) *cobra.Command {
	var verbose bool

	root := &cobra.Command{
		Use:           "client",
		Short:         "Smart Resume Parser client",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level := "WARN"
			if verbose {
				level = "DEBUG"
			}
			log, err := logger.New(logger.Config{Level: level, Format: "console"})
			if err != nil {
				return err
			}
			a.logger = log
			return a.init()
		},
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(
		a.loginCmd(),
		a.signupCmd(),
		a.logoutCmd(),
		a.whoamiCmd(),
		a.parseCmd(),
	)
	return root
}

func (a *app) init() error {
	if a.cfg == nil {
		a.cfg = config.LoadClient()
	}
	if a.auth == nil {
		if a.cfg.SupabaseURL == "" || a.cfg.SupabaseAnonKey == "" {
			return errors.New("SUPABASE_URL and SUPABASE_ANON_KEY must be set")
		}
		a.auth = supabase.NewClient(a.cfg.SupabaseURL, a.cfg.SupabaseAnonKey)
	}
	if a.store == nil {
		store, err := supabase.NewStore(a.cfg.SessionFile)
		if err != nil {
			return err
		}
		a.store = store
	}
	return nil
}

// currentSession returns the stored session if the provider still accepts it.
func (a *app) currentSession(ctx context.Context) (*supabase.Session, error) {
	session, err := a.store.Load()
	if err != nil {
		return nil, err
	}
	user, err := a.auth.GetUser(ctx, session.AccessToken)
	if err != nil {
		a.logger.Debug("stored session rejected", zap.Error(err))
		return nil, supabase.ErrNotLoggedIn
	}
	session.User = *user
	return session, nil
}

func credentialFlags(cmd *cobra.Command, email, password *string) {
	cmd.Flags().StringVar(email, "email", "", "account email")
	cmd.Flags().StringVar(password, "password", "", "account password (read from stdin when omitted)")
}

func readPassword(in io.Reader, out io.Writer, password string) (string, error) {
	if password != "" {
		return password, nil
	}
	fmt.Fprint(out, "Password: ")
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func (a *app) loginCmd() *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with email and password",
		RunE: func(cmd *cobra.Command, args []string) error {
			pw, err := readPassword(cmd.InOrStdin(), cmd.OutOrStdout(), password)
			if err != nil {
				return err
			}
			session, err := a.auth.SignInWithPassword(cmd.Context(), email, pw)
			if err != nil {
				return err
			}
			if err := a.store.Save(session); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s\n", session.User.Email)
			return nil
		},
	}
	credentialFlags(cmd, &email, &password)
	cmd.MarkFlagRequired("email")
	return cmd
}

func (a *app) signupCmd() *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account",
		RunE: func(cmd *cobra.Command, args []string) error {
			pw, err := readPassword(cmd.InOrStdin(), cmd.OutOrStdout(), password)
			if err != nil {
				return err
			}
			if _, err := a.auth.SignUp(cmd.Context(), email, pw); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Check your email to confirm signup.")
			return nil
		},
	}
	credentialFlags(cmd, &email, &password)
	cmd.MarkFlagRequired("email")
	return cmd
}

func (a *app) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := a.store.Load()
			if err == nil {
				if err := a.auth.SignOut(cmd.Context(), session.AccessToken); err != nil {
					a.logger.Warn("provider sign out failed", zap.Error(err))
				}
			}
			if err := a.store.Clear(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			return nil
		},
	}
}

func (a *app) whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := a.currentSession(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), session.User.Email)
			return nil
		},
	}
}

func (a *app) parseCmd() *cobra.Command {
	var jdPath string
	cmd := &cobra.Command{
		Use:   "parse --jd <file|-> <resume.pdf>...",
		Short: "Score resumes against a job description",
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := a.currentSession(cmd.Context())
			if err != nil {
				return fmt.Errorf("%w: run login first", err)
			}

			jd, err := readJobDescription(cmd.InOrStdin(), jdPath)
			if err != nil {
				return err
			}
			uploads, err := apiclient.ReadUploads(args)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.ErrOrStderr(), "Parsing...")
			client := apiclient.NewClient(a.cfg.APIURL, session.AccessToken)
			results, err := client.ParseResumes(cmd.Context(), jd, uploads)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), render.Cards(results))
			return nil
		},
	}
	cmd.Flags().StringVar(&jdPath, "jd", "", "job description file, - for stdin")
	return cmd
}

func readJobDescription(stdin io.Reader, path string) (string, error) {
	switch path {
	case "":
		return "", nil
	case "-":
		data, err := io.ReadAll(stdin)
		return string(data), err
	default:
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("failed to read job description: %w", err)
		}
		return string(data), nil
	}
}
