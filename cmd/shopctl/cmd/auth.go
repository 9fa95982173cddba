package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jrsteele09/go-shop-client/internal/utils"
)

var (
	loginEmail    string
	loginPassword string
	signupName    string
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in to the shop API",
	RunE: func(cmd *cobra.Command, args []string) error {
		user, err := shop.auth.Login(cmd.Context(), loginEmail, loginPassword)
		if err != nil {
			return err
		}
		fmt.Printf("signed in as %s <%s>\n", user.Name, user.Email)
		return nil
	},
}

var signupCmd = &cobra.Command{
	Use:   "signup",
	Short: "Create a new shop account",
	RunE: func(cmd *cobra.Command, args []string) error {
		user, err := shop.auth.Signup(cmd.Context(), signupName, loginEmail, loginPassword)
		if err != nil {
			return err
		}
		fmt.Printf("account created for %s <%s>\n", user.Name, user.Email)
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign out and clear the stored session",
	Run: func(cmd *cobra.Command, args []string) {
		shop.auth.Logout(cmd.Context())
	},
}

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Renew the access token using the stored refresh token",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !shop.auth.RefreshSession(cmd.Context()) {
			return fmt.Errorf("session could not be refreshed, sign in with 'shopctl login'")
		}
		fmt.Println("session refreshed")
		return nil
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in user",
	RunE: func(cmd *cobra.Command, args []string) error {
		user := utils.Value(shop.auth.User())
		if user.ID == "" {
			return fmt.Errorf("not signed in")
		}
		fmt.Printf("%s <%s> roles=%v\n", user.Name, user.Email, user.Roles)
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{loginCmd, signupCmd} {
		c.Flags().StringVar(&loginEmail, "email", "", "account email")
		c.Flags().StringVar(&loginPassword, "password", "", "account password")
		_ = c.MarkFlagRequired("email")
		_ = c.MarkFlagRequired("password")
	}
	signupCmd.Flags().StringVar(&signupName, "name", "", "display name for the new account")
	_ = signupCmd.MarkFlagRequired("name")

	rootCmd.AddCommand(loginCmd, signupCmd, logoutCmd, refreshCmd, whoamiCmd)
}
