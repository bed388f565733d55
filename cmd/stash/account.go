package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sakif/stash/internal/apperror"
	"github.com/sakif/stash/internal/client"
	"github.com/sakif/stash/internal/model"
	"github.com/sakif/stash/internal/session"
)

func (a *app) sessionFile() string {
	if a.cfg.Client.SessionFile != "" {
		return a.cfg.Client.SessionFile
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return filepath.Join(".stash", "session")
	}
	return filepath.Join(dir, "stash", "session")
}

func loadToken(path string) (string, error) {
	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("reading session file: %w", err)
	}
	return strings.TrimSpace(string(raw)), nil
}

func saveToken(path, token string) error {
	if token == "" {
		err := os.Remove(path)
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating session directory: %w", err)
	}
	return os.WriteFile(path, []byte(token+"\n"), 0o600)
}

// requireRemote guards commands that only make sense against a server.
func (a *app) requireRemote() error {
	if a.client == nil {
		return errors.New("this command needs --remote")
	}
	return nil
}

// readPassword takes the flag value, or the first line of stdin.
func readPassword(cmd *cobra.Command, flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

type authFunc func(h *session.Holder, cmd *cobra.Command, email, password string) (*model.User, error)

func newAuthCmd(a *app, use, short string, do authFunc) *cobra.Command {
	var password string
	cmd := &cobra.Command{
		Use:   use + " EMAIL",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireRemote(); err != nil {
				return err
			}
			pw, err := readPassword(cmd, password)
			if err != nil {
				return err
			}
			h := session.New(cmd.Context(), a.client, a.logger)
			user, err := do(h, cmd, args[0], pw)
			if err != nil {
				return err
			}
			if err := saveToken(a.sessionFile(), a.client.Token()); err != nil {
				return fmt.Errorf("saving session: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s\n", user.Email)
			return nil
		},
	}
	cmd.Flags().StringVar(&password, "password", "", "password (read from stdin when empty)")
	return cmd
}

func newLoginCmd(a *app) *cobra.Command {
	return newAuthCmd(a, "login", "Sign in to the server", func(h *session.Holder, cmd *cobra.Command, email, pw string) (*model.User, error) {
		return h.Login(cmd.Context(), email, pw)
	})
}

func newSignupCmd(a *app) *cobra.Command {
	return newAuthCmd(a, "signup", "Create an account on the server", func(h *session.Holder, cmd *cobra.Command, email, pw string) (*model.User, error) {
		return h.Signup(cmd.Context(), email, pw)
	})
}

func newLogoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the server session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireRemote(); err != nil {
				return err
			}
			h := session.New(cmd.Context(), a.client, a.logger)
			remoteErr := h.Logout(cmd.Context())
			if err := saveToken(a.sessionFile(), ""); err != nil {
				return fmt.Errorf("removing session: %w", err)
			}
			if remoteErr != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), "warning: server logout failed:", describeError(remoteErr))
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Signed out")
			return nil
		},
	}
}

func newWhoamiCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show who the commands run as",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.client == nil {
				fmt.Fprintln(cmd.OutOrStdout(), "guest (local database)")
				return nil
			}
			h := session.New(cmd.Context(), a.client, a.logger)
			if err := h.Wait(cmd.Context()); err != nil {
				return err
			}
			if u := h.User(); u != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "%s (%s)\n", u.Email, u.ID)
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), "guest (not signed in)")
			return nil
		},
	}
}

// describeError prints service and API errors the way a user wants to read
// them: the message, plus the status for server errors.
func describeError(err error) string {
	var apiErr *client.APIError
	if errors.As(err, &apiErr) {
		return fmt.Sprintf("%s (HTTP %d)", apiErr.Message, apiErr.Status)
	}
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return err.Error()
}
