package commands

import (
	"fmt"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"

	"github.com/redline-cms/redline/internal/web/auth"
)

// NewHashpassCommand creates the hashpass command
func NewHashpassCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "hashpass",
		Short: "Hash a password for redline.yml",
		Long: `Prompt for a password and print its bcrypt hash.

Put the hash in auth.admin_password_hash in redline.yml.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var password string
			prompt := &survey.Password{Message: "Password:"}
			if err := survey.AskOne(prompt, &password, survey.WithValidator(survey.MinLength(8))); err != nil {
				return err
			}

			hash, err := auth.HashPassword(password)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
}
