package cli

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/Skotchmaster/todo_backend/internal/config"
	"github.com/Skotchmaster/todo_backend/internal/hash"
	"github.com/spf13/cobra"
)

const minAdminPasswordLength = 8

func newHashPasswordCmd() *cobra.Command {
	var password string
	cmd := &cobra.Command{
		Use:   "hash-password",
		Short: "Print a bcrypt hash suitable for ADMIN_PASSWORD_HASH",
		Long: `Print a bcrypt hash suitable for ADMIN_PASSWORD_HASH. Without
--password the password is read from the first line of stdin.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return errors.New("no password given")
				}
				password = strings.TrimRight(line, "\r\n")
			}
			if len(password) < minAdminPasswordLength {
				return fmt.Errorf("password must be at least %d characters", minAdminPasswordLength)
			}

			h, err := hash.New(config.EnvIntDefault("BCRYPT_COST", hash.DefaultCost))
			if err != nil {
				return err
			}
			out, err := h.Hash(password)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}
	cmd.Flags().StringVar(&password, "password", "", "password to hash")
	return cmd
}
