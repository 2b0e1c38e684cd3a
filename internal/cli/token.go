package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"renthub/internal/auth"
	"renthub/internal/models"
)

type tokenOptions struct {
	user   string
	email  string
	role   string
	secret string
	ttl    time.Duration
}

func newTokenCmd() *cobra.Command {
	opts := &tokenOptions{}
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token for local testing",
		Long:  "Mint a signed JWT for a user id and role. The secret defaults to JWT_SECRET.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runToken(cmd, opts)
		},
	}
	cmd.Flags().StringVar(&opts.user, "user", "", "user ObjectID (hex); a new one is generated when empty")
	cmd.Flags().StringVar(&opts.email, "email", "", "email claim")
	cmd.Flags().StringVar(&opts.role, "role", string(models.RoleTenant), "role (tenant|landlord|admin|superadmin)")
	cmd.Flags().StringVar(&opts.secret, "secret", "", "signing secret (default: $JWT_SECRET)")
	cmd.Flags().DurationVar(&opts.ttl, "ttl", time.Hour, "token lifetime")
	return cmd
}

func runToken(cmd *cobra.Command, opts *tokenOptions) error {
	secret := opts.secret
	if secret == "" {
		secret = os.Getenv("JWT_SECRET")
	}
	if secret == "" {
		return fmt.Errorf("no signing secret: pass --secret or set JWT_SECRET")
	}

	userID := primitive.NewObjectID()
	if opts.user != "" {
		var err error
		if userID, err = primitive.ObjectIDFromHex(opts.user); err != nil {
			return fmt.Errorf("invalid --user: %w", err)
		}
	}

	token, err := auth.GenerateJWT(userID, opts.email, models.Role(opts.role), secret, opts.ttl)
	if err != nil {
		return err
	}

	if isJSON() {
		return printJSON(cmd.OutOrStdout(), map[string]any{
			"user_id": userID.Hex(),
			"role":    opts.role,
			"token":   token,
		})
	}
	fmt.Fprintln(cmd.OutOrStdout(), token)
	return nil
}
