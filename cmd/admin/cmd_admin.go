package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/GTDGit/gtd_backoffice/internal/repository"
	"github.com/GTDGit/gtd_backoffice/internal/service"
)

var createAdminFlags struct {
	name     string
	email    string
	password string
	role     string
}

// backoffice-admin create-admin --name --email [--password] [--role]
var createAdminCmd = &cobra.Command{
	Use:   "create-admin",
	Short: "Create an admin user",
	Long:  "Create an admin user. The password falls back to the ADMIN_PASSWORD environment variable.",
	RunE: func(cmd *cobra.Command, args []string) error {
		password := createAdminFlags.password
		if password == "" {
			password = os.Getenv("ADMIN_PASSWORD")
		}

		_, db, err := bootDB(cmd.Context())
		if err != nil {
			return err
		}
		defer db.Close()

		authSvc := service.NewAdminAuthService(repository.NewAdminUserRepository(db))
		user, err := authSvc.CreateAdmin(cmd.Context(), createAdminFlags.name, createAdminFlags.email, password, createAdminFlags.role)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Created admin #%d <%s> (%s)\n", user.ID, user.Email, user.Role)
		return nil
	},
}

func init() {
	f := createAdminCmd.Flags()
	f.StringVar(&createAdminFlags.name, "name", "", "display name")
	f.StringVar(&createAdminFlags.email, "email", "", "login email")
	f.StringVar(&createAdminFlags.password, "password", "", "initial password (min 8 characters)")
	f.StringVar(&createAdminFlags.role, "role", "admin", "role")
	_ = createAdminCmd.MarkFlagRequired("name")
	_ = createAdminCmd.MarkFlagRequired("email")
}
