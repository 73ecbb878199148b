package cli

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/cobra"
)

func newTokenCmd() *cobra.Command {
	var (
		secret string
		sub    string
		ttl    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a development HS256 bearer token",
		Long:  "Mints a signed JWT for local testing against the HTTP API. Not for production use.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runToken(cmd, secret, sub, ttl)
		},
	}

	cmd.Flags().StringVar(&secret, "secret", "", "HMAC signing secret (required)")
	cmd.Flags().StringVar(&sub, "sub", "", "Principal to embed as the sub claim (required)")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "Token lifetime")
	_ = cmd.MarkFlagRequired("secret")
	_ = cmd.MarkFlagRequired("sub")

	return cmd
}

func runToken(cmd *cobra.Command, secret, sub string, ttl time.Duration) error {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": sub,
		"iat": now.Unix(),
		"exp": now.Add(ttl).Unix(),
	})
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return err
	}
	cmd.Println(signed)
	return nil
}
