package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/wedsync/guestlist/config"
	"github.com/wedsync/guestlist/internal/auth/jwt"
)

var (
	tokenSubject  string
	tokenRole     string
	tokenWeddings []int
	tokenTTL      time.Duration

	tokenCmd = &cobra.Command{
		Use:   "token",
		Short: "Mint an API token for a subject",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(cfgFile)
			if err != nil {
				return fmt.Errorf("cannot load a config %v", err.Error())
			}
			jwtAuth, ttl, err := jwt.New(&cfg.Auth)
			if err != nil {
				return err
			}
			if tokenTTL > 0 {
				ttl = tokenTTL
			}
			tok, err := jwt.NewToken(jwtAuth, ttl, jwt.Claims{
				Subject:  tokenSubject,
				Role:     jwt.Role(tokenRole),
				Weddings: tokenWeddings,
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
)

func init() {
	tokenCmd.Flags().StringVar(&tokenSubject, "subject", "", "token subject, e.g. the account email")
	tokenCmd.Flags().StringVar(&tokenRole, "role", string(jwt.RoleCouple), "couple, planner or staff")
	tokenCmd.Flags().IntSliceVar(&tokenWeddings, "wedding", nil, "wedding id the token may reach, repeatable")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 0, "token lifetime, defaults to auth.jwt_ttl")
	_ = tokenCmd.MarkFlagRequired("subject")
}
