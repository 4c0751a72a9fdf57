package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Skotchmaster/todo_backend/internal/config"
	"github.com/Skotchmaster/todo_backend/internal/models"
	"github.com/spf13/cobra"
)

func newUserCmd() *cobra.Command {
	userCmd := &cobra.Command{
		Use:   "user",
		Short: "Manage user accounts",
	}

	var email, name, role string
	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a user with a generated initial password",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			a, err := newApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.close()

			var namePtr *string
			if n := strings.TrimSpace(name); n != "" {
				namePtr = &n
			}
			u, password, err := a.userService().Create(cmd.Context(), email, namePtr, role)
			if err != nil {
				return fmt.Errorf("create user %s: %w", email, err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "user created: id=%d email=%s role=%s\n", u.ID, u.Email, u.Role)
			fmt.Fprintf(out, "initial password: %s\n", password)
			return nil
		},
	}
	createCmd.Flags().StringVar(&email, "email", "", "email address")
	createCmd.Flags().StringVar(&name, "name", "", "display name")
	createCmd.Flags().StringVar(&role, "role", models.RoleUser, "role: user or admin")
	_ = createCmd.MarkFlagRequired("email")

	userCmd.AddCommand(createCmd)
	return userCmd
}

func newAdminCmd() *cobra.Command {
	adminCmd := &cobra.Command{
		Use:   "admin",
		Short: "Manage the administrator account",
	}

	var email, password, passwordHash string
	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create the admin account, replacing a regular user with the same email",
		Long: `Create the admin account. The password may be given in clear with
--password or as a bcrypt hash with --password-hash. Without flags the
ADMIN_EMAIL and ADMIN_PASSWORD_HASH environment variables are used.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if email == "" {
				email = cfg.AdminEmail
			}
			if password == "" && passwordHash == "" {
				passwordHash = cfg.AdminPasswordHash
			}
			if err := config.MustNonEmpty(email, "ADMIN_EMAIL"); err != nil {
				return err
			}
			if password == "" && passwordHash == "" {
				return errors.New("one of --password or --password-hash is required")
			}

			a, err := newApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.close()

			if password != "" {
				if passwordHash, err = a.hasher.Hash(password); err != nil {
					return err
				}
			}
			u, created, err := a.userService().EnsureAdmin(cmd.Context(), email, passwordHash)
			if err != nil {
				return fmt.Errorf("create admin %s: %w", email, err)
			}

			if created {
				fmt.Fprintf(cmd.OutOrStdout(), "admin created: id=%d email=%s\n", u.ID, u.Email)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "admin already exists: id=%d email=%s\n", u.ID, u.Email)
			}
			return nil
		},
	}
	createCmd.Flags().StringVar(&email, "email", "", "admin email (default $ADMIN_EMAIL)")
	createCmd.Flags().StringVar(&password, "password", "", "admin password in clear")
	createCmd.Flags().StringVar(&passwordHash, "password-hash", "", "bcrypt hash of the admin password (default $ADMIN_PASSWORD_HASH)")
	createCmd.MarkFlagsMutuallyExclusive("password", "password-hash")

	adminCmd.AddCommand(createCmd)
	return adminCmd
}
