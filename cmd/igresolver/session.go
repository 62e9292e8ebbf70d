package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"igresolver/pkg/logger"
	"igresolver/pkg/session"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Manage stored session credentials",
	Long: `Manage the session credentials the service reads at startup.

The server itself never writes credentials; this command is how they get
into the session file, the system keyring or the encrypted store.

To obtain the values: log into Instagram in a browser, open Developer Tools,
and copy the sessionid and csrftoken cookies.`,
}

var sessionImportCmd = &cobra.Command{
	Use:   "import [username]",
	Short: "Store session credentials",
	Example: `  # Interactive import into the keyring (or encrypted store fallback)
  igresolver session import myaccount

  # Write a plain session file for the server to read
  igresolver session import myaccount --file /etc/igresolver/session.json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSessionImport,
}

var sessionShowCmd = &cobra.Command{
	Use:   "show [username]",
	Short: "Show which credentials the server would load",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runSessionShow,
}

var sessionRemoveCmd = &cobra.Command{
	Use:   "remove [username]",
	Short: "Remove stored credentials",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runSessionRemove,
}

var sessionFilePath string

func init() {
	rootCmd.AddCommand(sessionCmd)
	sessionCmd.AddCommand(sessionImportCmd)
	sessionCmd.AddCommand(sessionShowCmd)
	sessionCmd.AddCommand(sessionRemoveCmd)

	sessionImportCmd.Flags().StringVar(&sessionFilePath, "file", "", "write a plain JSON session file instead of the keyring")
}

func runSessionImport(cmd *cobra.Command, args []string) error {
	reader := bufio.NewReader(os.Stdin)

	var username string
	if len(args) > 0 {
		username = args[0]
	} else {
		fmt.Print("Username: ")
		line, err := reader.ReadString('\n')
		if err != nil {
			return err
		}
		username = strings.TrimSpace(line)
	}
	if username == "" {
		return fmt.Errorf("username is required")
	}

	fmt.Print("Session ID (sessionid cookie): ")
	sessionID, err := readSecret()
	if err != nil {
		return err
	}

	fmt.Print("CSRF Token (csrftoken cookie): ")
	csrfToken, err := readSecret()
	if err != nil {
		return err
	}

	fmt.Print("User Agent (optional, Enter for default): ")
	userAgent, err := reader.ReadString('\n')
	if err != nil {
		return err
	}

	creds := &session.Credentials{
		Username:  username,
		SessionID: sessionID,
		CSRFToken: csrfToken,
		UserAgent: strings.TrimSpace(userAgent),
	}
	if !creds.Valid() {
		return fmt.Errorf("session ID is required")
	}

	store, err := importStore()
	if err != nil {
		return err
	}
	if err := store.Store(creds); err != nil {
		return fmt.Errorf("failed to store credentials: %w", err)
	}

	fmt.Printf("Stored credentials for %s in %s store\n", username, store.Name())
	return nil
}

func runSessionShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if len(args) > 0 {
		cfg.Instagram.SessionUsername = args[0]
	}

	log := logger.GetLogger()
	sess := session.Load(&cfg.Instagram, session.DefaultStores(&cfg.Instagram, log), log)

	creds := sess.Credentials()
	if creds == nil {
		fmt.Println("No session credentials found; the server would run anonymously.")
		return nil
	}

	fmt.Printf("Username:   %s\n", creds.Username)
	fmt.Printf("Session ID: %s\n", maskSecret(creds.SessionID))
	fmt.Printf("CSRF Token: %s\n", maskSecret(creds.CSRFToken))
	return nil
}

func runSessionRemove(cmd *cobra.Command, args []string) error {
	var username string
	if len(args) > 0 {
		username = args[0]
	}

	store, err := importStore()
	if err != nil {
		return err
	}
	if err := store.Delete(username); err != nil {
		return fmt.Errorf("failed to remove credentials: %w", err)
	}

	fmt.Printf("Removed credentials from %s store\n", store.Name())
	return nil
}

// importStore picks the write target: an explicit file, then the keyring,
// then the encrypted store.
func importStore() (session.Store, error) {
	if sessionFilePath != "" {
		return session.NewFileStore(sessionFilePath), nil
	}
	if keyringStore, err := session.NewKeyringStore(); err == nil {
		return keyringStore, nil
	}
	configDir, err := os.UserConfigDir()
	if err != nil {
		configDir = "."
	}
	encStore, err := session.NewEncryptedFileStore(configDir + "/igresolver/credentials.enc")
	if err != nil {
		return nil, fmt.Errorf("no writable credential store available: %w", err)
	}
	return encStore, nil
}

func readSecret() (string, error) {
	value, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(value)), nil
}

func maskSecret(value string) string {
	if len(value) <= 4 {
		return "****"
	}
	return value[:4] + strings.Repeat("*", len(value)-4)
}
