package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/pribylovaa/backoffice-console/internal/models"
	"github.com/pribylovaa/backoffice-console/internal/session"
)

func loginCmd(load loader) *cobra.Command {
	var username, password string
	var passwordStdin bool

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and persist the token pair",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := load()
			if err != nil {
				return err
			}

			if passwordStdin {
				password, err = readLine(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("read password: %w", err)
				}
			}
			if password == "" {
				password = os.Getenv("BACKOFFICE_PASSWORD")
			}

			a, err := newApp(cmd.Context(), cfg, log, nil)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.session.Login(cmd.Context(), models.LoginRequest{Username: username, Password: password}); err != nil {
				return err
			}

			return printJSON(cmd.OutOrStdout(), sessionInfo(a))
		},
	}

	cmd.Flags().StringVarP(&username, "username", "u", "", "manager username")
	cmd.Flags().StringVarP(&password, "password", "p", "", "password (or BACKOFFICE_PASSWORD)")
	cmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "read password from stdin")
	_ = cmd.MarkFlagRequired("username")

	return cmd
}

func logoutCmd(load loader) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Drop the persisted session",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := load()
			if err != nil {
				return err
			}

			a, err := newApp(cmd.Context(), cfg, log, nil)
			if err != nil {
				return err
			}
			defer a.Close()

			a.session.Logout(cmd.Context())
			fmt.Fprintln(cmd.OutOrStdout(), "logged out")

			return nil
		},
	}
}

func statusCmd(load loader) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Restore the session (refreshing it if needed) and print its state",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := load()
			if err != nil {
				return err
			}

			a, err := newApp(cmd.Context(), cfg, log, nil)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.session.LoadAuth(cmd.Context()); err != nil {
				log.Warn("session_restore_failed", slog.String("err", err.Error()))
			}

			report := statusReport{SessionInfo: sessionInfo(a)}
			report.Backoffice, err = a.clients.CheckBackoffice(cmd.Context())
			if err != nil {
				log.Warn("backoffice_unhealthy", slog.String("err", err.Error()))
				report.Backoffice = "unavailable"
			}

			return printJSON(cmd.OutOrStdout(), report)
		},
	}
}

func requestCmd(load loader) *cobra.Command {
	var data string
	var headers []string

	cmd := &cobra.Command{
		Use:   "request METHOD PATH",
		Short: "Send an authorized request to the back-office API",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := load()
			if err != nil {
				return err
			}

			a, err := newApp(cmd.Context(), cfg, log, nil)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.session.LoadAuth(cmd.Context()); err != nil {
				return err
			}
			if !a.session.IsAuthenticated() {
				return session.ErrNotAuthenticated
			}

			var body io.Reader
			if data != "" {
				body = strings.NewReader(data)
			}

			target := strings.TrimRight(cfg.API.BaseURL, "/") + "/" + strings.TrimLeft(args[1], "/")
			req, err := http.NewRequestWithContext(cmd.Context(), strings.ToUpper(args[0]), target, body)
			if err != nil {
				return err
			}
			if data != "" {
				req.Header.Set("Content-Type", "application/json")
			}
			for _, h := range headers {
				k, v, ok := strings.Cut(h, ":")
				if !ok {
					return fmt.Errorf("invalid header %q, expected 'Name: value'", h)
				}
				req.Header.Set(strings.TrimSpace(k), strings.TrimSpace(v))
			}

			resp, err := a.clients.HTTP.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			fmt.Fprintf(cmd.ErrOrStderr(), "%s %s\n", resp.Proto, resp.Status)
			if _, err := io.Copy(cmd.OutOrStdout(), resp.Body); err != nil {
				return err
			}
			if resp.StatusCode >= 400 {
				return fmt.Errorf("request failed: %s", resp.Status)
			}

			return nil
		},
	}

	cmd.Flags().StringVarP(&data, "data", "d", "", "request body (JSON)")
	cmd.Flags().StringArrayVarP(&headers, "header", "H", nil, "extra header 'Name: value'")

	return cmd
}

// statusReport — вывод команды status: сессия и состояние back-office gRPC.
type statusReport struct {
	models.SessionInfo
	Backoffice string `json:"backoffice"`
}

func sessionInfo(a *app) models.SessionInfo {
	out := models.SessionInfo{
		Authenticated: a.session.IsAuthenticated(),
		State:         a.session.State().String(),
		Route:         a.router.Current(),
	}
	if p, ok := a.session.Payload(); ok {
		out.Username = p.Username
		out.Subject = p.Subject
		exp := time.Unix(p.ExpiresAt, 0).UTC()
		out.ExpiresAt = &exp
	}

	return out
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func readLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}

	return strings.TrimRight(line, "\r\n"), nil
}
