package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/equisy/equisy-api/internal/auth"
)

func newCreateSuperuserCmd() *cobra.Command {
	var in auth.RegisterInput

	cmd := &cobra.Command{
		Use:   "create-superuser",
		Short: "Create a platform superuser that signs in on the public host",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if in.Email == "" {
				return errors.New("--email is required")
			}
			if in.Password == "" {
				in.Password = os.Getenv("EQUISY_SUPERUSER_PASSWORD")
			}
			if in.Password == "" {
				pw, err := readPassword(cmd.InOrStdin())
				if err != nil {
					return err
				}
				in.Password = pw
			}

			ctx := cmd.Context()
			a, err := bootstrap(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			u, err := a.auth.CreateSuperuser(ctx, in)
			if err != nil {
				return err
			}

			log.Info().Str("user_id", u.ID.String()).Str("email", u.Email).Msg("superuser created")
			return nil
		},
	}

	cmd.Flags().StringVar(&in.Email, "email", "", "login email")
	cmd.Flags().StringVar(&in.Password, "password", "", "password (or EQUISY_SUPERUSER_PASSWORD, or stdin)")
	cmd.Flags().StringVar(&in.FirstName, "first-name", "", "first name")
	cmd.Flags().StringVar(&in.LastName, "last-name", "", "last name")

	return cmd
}

// readPassword takes the first line of r.
func readPassword(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read password: %w", err)
	}
	pw := strings.TrimRight(line, "\r\n")
	if pw == "" {
		return "", errors.New("password is required")
	}
	return pw, nil
}
