package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/samber/do/v2"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/amarpathagar/pathagar-server/internal/domain"
	"github.com/amarpathagar/pathagar-server/internal/service"
)

// readPassword reads a password without echo when stdin is a terminal and
// falls back to one line of input otherwise, so the command can be scripted.
func readPassword(in io.Reader, out io.Writer, prompt string) (string, error) {
	fmt.Fprint(out, prompt)
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(out)
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(b)), nil
	}

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func newCreateAdminCommand(opts *rootOptions) *cobra.Command {
	var req service.RegisterRequest

	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create an admin account",
		RunE: func(cmd *cobra.Command, _ []string) error {
			password, err := readPassword(cmd.InOrStdin(), cmd.OutOrStdout(), "Password: ")
			if err != nil {
				return fmt.Errorf("read password: %w", err)
			}
			req.Password = password
			if req.FullName == "" {
				req.FullName = req.Username
			}

			return opts.withContainer(func(injector do.Injector) error {
				authService := do.MustInvoke[*service.AuthService](injector)
				user, err := authService.CreateUser(context.Background(), req, domain.RoleAdmin)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Created admin %s (%s)\n", user.Username, user.ID)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&req.Username, "username", "", "Login name")
	cmd.Flags().StringVar(&req.Email, "email", "", "Email address")
	cmd.Flags().StringVar(&req.FullName, "full-name", "", "Display name (default: the username)")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}
