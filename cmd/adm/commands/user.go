package commands

import (
	"fmt"
	"strings"

	"siteworks/internal/models"
	"siteworks/internal/observability"
	"siteworks/internal/services"
	contextutils "siteworks/internal/utils"

	"github.com/spf13/cobra"
)

// UserCommands returns the user management commands
func UserCommands(userService services.UserServiceInterface, logger *observability.Logger) *cobra.Command {
	userCmd := &cobra.Command{
		Use:   "user",
		Short: "User management commands",
		Long: `User management commands.

Available commands:
  list           - List all users
  create         - Create a user
  reset-password - Reset password for a specific user`,
	}

	userCmd.AddCommand(listCmd(userService, logger))
	userCmd.AddCommand(createCmd(userService, logger))
	userCmd.AddCommand(resetPasswordCmd(userService, logger))

	return userCmd
}

func listCmd(userService services.UserServiceInterface, logger *observability.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all users",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			users, err := userService.ListUsers(ctx)
			if err != nil {
				logger.Error(ctx, "Failed to list users", err, nil)
				return contextutils.WrapError(err, "failed to list users")
			}

			out := cmd.OutOrStdout()
			if len(users) == 0 {
				_, _ = fmt.Fprintln(out, "No users found")
				return nil
			}

			_, _ = fmt.Fprintf(out, "%-5s %-25s %-35s %-6s %-10s\n", "ID", "Name", "Email", "Role", "Created")
			_, _ = fmt.Fprintln(out, strings.Repeat("-", 85))
			for _, u := range users {
				_, _ = fmt.Fprintf(out, "%-5d %-25s %-35s %-6s %-10s\n", u.ID, u.Name, u.Email, u.Role, u.CreatedAt.Format("2006-01-02"))
			}
			return nil
		},
	}
}

func createCmd(userService services.UserServiceInterface, logger *observability.Logger) *cobra.Command {
	var name, email, role string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a user",
		Long:  `Create a user. The password is prompted for.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			r := models.Role(role)
			if !r.Valid() {
				return contextutils.WrapErrorf(contextutils.ErrInvalidInput, "unknown role %q", role)
			}

			password, err := promptNewPassword(cmd)
			if err != nil {
				return err
			}

			user, err := userService.CreateUser(ctx, strings.TrimSpace(name), strings.TrimSpace(email), password, r)
			if err != nil {
				logger.Error(ctx, "Failed to create user", err, map[string]interface{}{"email": email})
				return contextutils.WrapError(err, "failed to create user")
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Created %s %s (ID: %d)\n", user.Role, user.Email, user.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringVar(&email, "email", "", "login email")
	cmd.Flags().StringVar(&role, "role", string(models.RoleUser), "admin or user")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("email")

	return cmd
}

func resetPasswordCmd(userService services.UserServiceInterface, logger *observability.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "reset-password <email>",
		Short: "Reset password for a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			email := strings.TrimSpace(args[0])

			user, err := userService.GetUserByEmail(ctx, email)
			if err != nil {
				logger.Error(ctx, "Failed to get user", err, map[string]interface{}{"email": email})
				return contextutils.WrapErrorf(err, "failed to get user %q", email)
			}
			if user == nil {
				return contextutils.WrapErrorf(contextutils.ErrRecordNotFound, "user %q not found", email)
			}

			password, err := promptNewPassword(cmd)
			if err != nil {
				return err
			}

			if err := userService.UpdateUserPassword(ctx, user.ID, password); err != nil {
				logger.Error(ctx, "Failed to update password", err, map[string]interface{}{"user_id": user.ID})
				return contextutils.WrapErrorf(err, "failed to update password for %q", email)
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Password reset for %s (ID: %d)\n", user.Email, user.ID)
			logger.Info(ctx, "Password reset from CLI", map[string]interface{}{"user_id": user.ID})
			return nil
		},
	}
}
