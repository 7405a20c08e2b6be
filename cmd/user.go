package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/vibast-solutions/ms-go-accounts/app/dto"
	"github.com/vibast-solutions/ms-go-accounts/app/service"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Administer user accounts",
}

var userRegisterCmd = &cobra.Command{
	Use:   "register <fullname> <email>",
	Short: "Register a user account",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		password, err := promptPassword()
		if err != nil {
			return err
		}

		deps, err := newCLIDeps(cmd.Context())
		if err != nil {
			return err
		}
		defer deps.Close()

		fullname, email := args[0], args[1]
		_, err = deps.accounts.Register(cmd.Context(), dto.RegisterInput{
			Fullname: fullname,
			Email:    email,
			Password: password,
		})
		if err != nil {
			if errors.Is(err, service.ErrDuplicateEmail) {
				return fmt.Errorf("email %q is already registered", email)
			}
			return err
		}

		fmt.Printf("registered: %s <%s>\n", fullname, email)
		return nil
	},
}

var userRequestResetCmd = &cobra.Command{
	Use:   "request-reset <email>",
	Short: "Send a password reset email",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := newCLIDeps(cmd.Context())
		if err != nil {
			return err
		}
		defer deps.Close()

		email := args[0]
		if err = deps.accounts.RequestPasswordReset(cmd.Context(), email); err != nil {
			if errors.Is(err, service.ErrNotFound) {
				return fmt.Errorf("no user registered with email %q", email)
			}
			return err
		}

		fmt.Printf("password reset email sent to %s\n", email)
		return nil
	},
}

func init() {
	userCmd.AddCommand(userRegisterCmd)
	userCmd.AddCommand(userRequestResetCmd)
	rootCmd.AddCommand(userCmd)
}

// newCLIDeps runs background tasks inline so mail is sent before the process exits.
func newCLIDeps(ctx context.Context) (*accountDeps, error) {
	cfg, err := loadCLIConfig()
	if err != nil {
		return nil, err
	}
	return buildAccountDeps(ctx, cfg, service.WithAsyncRunner(func(task func()) { task() }))
}

func promptPassword() (string, error) {
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		fmt.Print("Password: ")
		password, err := term.ReadPassword(fd)
		fmt.Println()
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return string(password), nil
	}

	reader := bufio.NewReader(os.Stdin)
	input, err := reader.ReadString('\n')
	if err != nil && input == "" {
		return "", errors.New("password is required on stdin")
	}
	return strings.TrimRight(input, "\r\n"), nil
}
