package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/weiawesome/campus-live/chat-client/internal/apiclient"
)

func init() {
	rootCmd.AddCommand(registerCmd)

	registerCmd.Flags().String("email", "", "account email (default account.email)")
	registerCmd.Flags().String("username", "", "unique username")
	registerCmd.Flags().String("password", "", "password (default account.password)")
	registerCmd.Flags().String("display-name", "", "display name; a generated one is used when empty")
	_ = registerCmd.MarkFlagRequired("username")
}

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create an account on api-service",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		req := apiclient.RegisterRequest{
			Email:    cfg.Account.Email,
			Password: cfg.Account.Password,
		}
		if v, _ := cmd.Flags().GetString("email"); v != "" {
			req.Email = v
		}
		if v, _ := cmd.Flags().GetString("password"); v != "" {
			req.Password = v
		}
		req.Username, _ = cmd.Flags().GetString("username")
		req.DisplayName, _ = cmd.Flags().GetString("display-name")
		if req.Email == "" || req.Password == "" {
			return fmt.Errorf("email and password are required")
		}

		client := apiclient.New(cfg.API.BaseURL, cfg.API.Timeout)
		account, err := client.Register(cmd.Context(), req)
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "registered %s as %q\n", account.Email, account.DisplayName)
		return nil
	},
}
