package commands

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/AlecAivazis/survey/v2"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/redline-cms/redline/internal/web/auth"
)

var initForce bool

// validateSiteName validates the site name
func validateSiteName(name string) error {
	name = strings.TrimSpace(name)

	if len(name) == 0 || len(name) > 100 {
		return fmt.Errorf("site name must be 1-100 characters")
	}

	// Only allow alphanumeric, dash, underscore, and spaces
	matched, _ := regexp.MatchString(`^[a-zA-Z0-9_ -]+$`, name)
	if !matched {
		return fmt.Errorf("site name can only contain letters, numbers, spaces, dashes, and underscores")
	}

	return nil
}

// NewInitCommand creates the init command
func NewInitCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a redline.yml in the current directory",
		Long: `Interactively create a Redline site configuration.

The command prompts for the site name, database, and admin credentials,
then writes redline.yml. The admin password is stored as a bcrypt hash;
the auth secret is generated randomly.

Examples:
  redline init
  redline init --force`,
		RunE: runInit,
	}

	cmd.Flags().BoolVarP(&initForce, "force", "f", false, "Overwrite an existing redline.yml")

	return cmd
}

func runInit(cmd *cobra.Command, args []string) error {
	successColor := color.New(color.FgGreen, color.Bold)
	infoColor := color.New(color.FgCyan)

	if _, err := os.Stat("redline.yml"); err == nil && !initForce {
		return fmt.Errorf("redline.yml already exists (use --force to overwrite)")
	}

	answers := struct {
		SiteName  string
		Driver    string
		URL       string
		AdminUser string
		Password  string
		Port      int
	}{}

	questions := []*survey.Question{
		{
			Name:   "siteName",
			Prompt: &survey.Input{Message: "Site name:", Default: "My Site"},
			Validate: func(ans interface{}) error {
				return validateSiteName(ans.(string))
			},
		},
		{
			Name: "driver",
			Prompt: &survey.Select{
				Message: "Database:",
				Options: []string{"sqlite3", "pgx"},
				Default: "sqlite3",
			},
		},
		{
			Name:   "adminUser",
			Prompt: &survey.Input{Message: "Admin username:", Default: "admin"},
		},
		{
			Name:     "password",
			Prompt:   &survey.Password{Message: "Admin password:"},
			Validate: survey.MinLength(8),
		},
		{
			Name:   "port",
			Prompt: &survey.Input{Message: "Server port:", Default: "3000"},
		},
	}
	if err := survey.Ask(questions, &answers); err != nil {
		return err
	}

	urlPrompt := &survey.Input{Message: "Database URL:", Default: "redline.db"}
	if answers.Driver == "pgx" {
		urlPrompt.Default = "postgres://localhost:5432/redline"
	}
	if err := survey.AskOne(urlPrompt, &answers.URL); err != nil {
		return err
	}

	hash, err := auth.HashPassword(answers.Password)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	secretBytes := make([]byte, 32)
	if _, err := rand.Read(secretBytes); err != nil {
		return fmt.Errorf("failed to generate auth secret: %w", err)
	}
	secret := hex.EncodeToString(secretBytes)

	content := fmt.Sprintf(`site_name: %s

database:
  driver: %s
  url: %s

server:
  host: localhost
  port: %d

auth:
  secret: %s
  token_ttl: 24h
  admin_user: %s
  admin_password_hash: "%s"
  admin_roles: [admin]

redis:
  enabled: false
  addr: localhost:6379

logging:
  level: info
`, answers.SiteName, answers.Driver, answers.URL, answers.Port, secret, answers.AdminUser, hash)

	if err := os.WriteFile("redline.yml", []byte(content), 0600); err != nil {
		return fmt.Errorf("failed to write redline.yml: %w", err)
	}

	successColor.Println("✓ Created redline.yml")
	infoColor.Println("\nNext steps:")
	infoColor.Println("  1. redline migrate")
	infoColor.Println("  2. redline serve")
	return nil
}
