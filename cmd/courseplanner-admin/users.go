package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	userstore "github.com/hwankr/courseplanner/internal/app/store/users"
	"github.com/hwankr/courseplanner/internal/domain/models"
	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/term"
)

const (
	minPasswordLen = 8
	maxPasswordLen = 72
)

var (
	readPassword = term.ReadPassword

	userEmail string
)

var promoteCmd = &cobra.Command{
	Use:   "promote",
	Short: "Give an existing account the admin role",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDatabase(cmd, func(ctx context.Context, db *mongo.Database, logger *zap.Logger) error {
			users := userstore.New(db)
			u, err := users.GetByEmail(ctx, userEmail)
			if errors.Is(err, mongo.ErrNoDocuments) {
				return fmt.Errorf("no account with email %s", userEmail)
			}
			if err != nil {
				return err
			}
			if u.Role == models.RoleAdmin {
				fmt.Fprintf(cmd.OutOrStdout(), "%s is already an admin\n", u.Email)
				return nil
			}
			if _, err := users.SetRole(ctx, u.ID, models.RoleAdmin); err != nil {
				return err
			}
			logger.Info("account promoted to admin", zap.String("email", u.Email), zap.String("user_id", u.ID.Hex()))
			fmt.Fprintf(cmd.OutOrStdout(), "%s is now an admin\n", u.Email)
			return nil
		})
	},
}

var resetPasswordCmd = &cobra.Command{
	Use:   "reset-password",
	Short: "Set a new password for an account and clear any lockout",
	Long: `reset-password prompts twice for the new password without echoing it.
Google-only accounts gain a password and can sign in either way afterwards.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		pwd, err := promptPassword(cmd)
		if err != nil {
			return err
		}
		hash, err := bcrypt.GenerateFromPassword(pwd, bcrypt.DefaultCost)
		if err != nil {
			return err
		}
		return withDatabase(cmd, func(ctx context.Context, db *mongo.Database, logger *zap.Logger) error {
			users := userstore.New(db)
			u, err := users.GetByEmail(ctx, userEmail)
			if errors.Is(err, mongo.ErrNoDocuments) {
				return fmt.Errorf("no account with email %s", userEmail)
			}
			if err != nil {
				return err
			}
			if err := users.SetPassword(ctx, u.ID, string(hash)); err != nil {
				return err
			}
			logger.Info("password reset", zap.String("email", u.Email), zap.String("user_id", u.ID.Hex()))
			fmt.Fprintf(cmd.OutOrStdout(), "password updated for %s\n", u.Email)
			return nil
		})
	},
}

func init() {
	for _, c := range []*cobra.Command{promoteCmd, resetPasswordCmd} {
		c.Flags().StringVar(&userEmail, "email", "", "account email")
		_ = c.MarkFlagRequired("email")
	}
}

func promptPassword(cmd *cobra.Command) ([]byte, error) {
	out := cmd.ErrOrStderr()
	fd := int(os.Stdin.Fd())

	fmt.Fprint(out, "New password: ")
	pwd, err := readPassword(fd)
	fmt.Fprintln(out)
	if err != nil {
		return nil, err
	}
	if err := checkPassword(pwd); err != nil {
		return nil, err
	}

	fmt.Fprint(out, "Repeat password: ")
	again, err := readPassword(fd)
	fmt.Fprintln(out)
	if err != nil {
		return nil, err
	}
	if string(again) != string(pwd) {
		return nil, errors.New("passwords do not match")
	}
	return pwd, nil
}

func checkPassword(pwd []byte) error {
	if len(pwd) < minPasswordLen || len(pwd) > maxPasswordLen {
		return fmt.Errorf("password must be %d to %d bytes", minPasswordLen, maxPasswordLen)
	}
	return nil
}
