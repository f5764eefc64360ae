package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/abrahampo1/savecloud/internal/auth"
)

func newLoginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Authenticate with the storage provider in your browser",
		RunE:  runLogin,
	}
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Revoke the grant and remove saved credentials",
		RunE:  runLogout,
	}
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show connection state and the authenticated user",
		RunE:  runStatus,
	}
}

func runLogin(_ *cobra.Command, _ []string) error {
	logger := buildLogger()
	ctx := context.Background()

	a, err := newApp(ctx, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	user, err := a.service.Authenticate(ctx, openBrowser)
	if err != nil {
		if errors.Is(err, auth.ErrNotConfigured) {
			return fmt.Errorf("cloud backup is not configured — set client_id and client_secret")
		}

		if errors.Is(err, auth.ErrAuthorizationDenied) {
			return fmt.Errorf("authorization was denied — your existing session, if any, is unchanged")
		}

		return err
	}

	statusf("Logged in as %s <%s>.\n", user.DisplayName, user.Email)

	return nil
}

func runLogout(_ *cobra.Command, _ []string) error {
	logger := buildLogger()
	ctx := context.Background()

	a, err := newApp(ctx, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.service.Disconnect(ctx); err != nil {
		return err
	}

	statusf("Logged out.\n")

	return nil
}

// statusOutput is the JSON schema for `status --json`.
type statusOutput struct {
	Provider  string `json:"provider"`
	Connected bool   `json:"connected"`
	Email     string `json:"email,omitempty"`
	Name      string `json:"name,omitempty"`
}

func runStatus(_ *cobra.Command, _ []string) error {
	logger := buildLogger()
	ctx := context.Background()

	a, err := newApp(ctx, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	st, err := a.service.Status(ctx)
	if err != nil {
		return err
	}

	out := statusOutput{Provider: a.cfg.Provider, Connected: st.Connected}
	if st.User != nil {
		out.Email = st.User.Email
		out.Name = st.User.DisplayName
	}

	if flagJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")

		return enc.Encode(out)
	}

	fmt.Printf("Provider:  %s\n", out.Provider)

	if !out.Connected {
		fmt.Println("Status:    not connected")
		return nil
	}

	fmt.Println("Status:    connected")

	if out.Name != "" {
		fmt.Printf("User:      %s <%s>\n", out.Name, out.Email)
	}

	return nil
}

// openBrowser launches the system browser at url. The URL is always printed
// to stderr as well, so a headless user can open it elsewhere.
func openBrowser(url string) error {
	fmt.Fprintf(os.Stderr, "To authorize, visit:\n  %s\n", url)

	var cmd *exec.Cmd

	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}

	return cmd.Start()
}
