package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"
	"mkarchive/pkg/auth"
)

// authCmd represents the auth command
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage stored API tokens",
	Long: `Manage stored Misskey API tokens securely.

Tokens are stored using:
  - System keychain (when available)
  - Encrypted file with PBKDF2 key derivation
  - Environment variables (read-only fallback)

Never share your token or config files!`,
}

// loginCmd represents the auth login command
var loginCmd = &cobra.Command{
	Use:   "login [host]",
	Short: "Store an API token securely",
	Long: `Store a Misskey API token securely in the system keychain or an
encrypted file, keyed by instance host.

You will be prompted for:
  - Instance host (if not provided)
  - API token (hidden as you type)

To get a token, open Settings > API on your instance and issue an access
token with read permissions.`,
	Example: `  # Interactive login
  mkarchive auth login

  # Login to a specific instance
  mkarchive auth login misskey.example`,
	Args: cobra.MaximumNArgs(1),
	Run:  runLogin,
}

// logoutCmd represents the auth logout command
var logoutCmd = &cobra.Command{
	Use:   "logout <host>",
	Short: "Remove a stored token",
	Long:  `Remove the stored API token for an instance host.`,
	Example: `  # Remove the token for one instance
  mkarchive auth logout misskey.example`,
	Args: cobra.ExactArgs(1),
	Run:  runLogout,
}

// authListCmd represents the auth list command
var authListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all stored accounts",
	Long:  `List all stored instance accounts with masked token values.`,
	Run:   runAuthList,
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(loginCmd)
	authCmd.AddCommand(logoutCmd)
	authCmd.AddCommand(authListCmd)
}

func runLogin(cmd *cobra.Command, args []string) {
	manager, err := auth.NewManager()
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to initialize credential manager:", err)
		os.Exit(1)
	}

	var host string
	if len(args) > 0 {
		host = args[0]
	}

	reader := bufio.NewReader(os.Stdin)

	if host == "" {
		fmt.Print("Instance host (e.g. misskey.example): ")
		input, err := reader.ReadString('\n')
		if err != nil {
			fmt.Fprintln(os.Stderr, "failed to read host:", err)
			os.Exit(1)
		}
		host = strings.TrimSpace(input)
	}

	if host == "" {
		fmt.Fprintln(os.Stderr, "host is required")
		os.Exit(1)
	}
	if strings.Contains(host, "://") {
		fmt.Fprintln(os.Stderr, "host must not include a scheme, use e.g. misskey.example")
		os.Exit(1)
	}

	// Check if an account already exists for this host
	if existing, _ := manager.Retrieve(host); existing != nil {
		fmt.Printf("An account for '%s' already exists. Update token? (y/N): ", host)
		input, _ := reader.ReadString('\n')
		if !strings.HasPrefix(strings.ToLower(strings.TrimSpace(input)), "y") {
			return
		}
	}

	fmt.Print("API token (hidden): ")
	token, err := readPassword()
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to read token:", err)
		os.Exit(1)
	}
	if token == "" {
		fmt.Fprintln(os.Stderr, "token is required")
		os.Exit(1)
	}

	account := &auth.Account{
		Host:         host,
		Token:        token,
		LastModified: time.Now(),
	}

	if err := manager.Store(account); err != nil {
		fmt.Fprintln(os.Stderr, "failed to store credentials:", err)
		os.Exit(1)
	}

	fmt.Println("Token stored for", host)
	fmt.Println("\nArchive a channel with:")
	fmt.Printf("  mkarchive archive <channel-id> --host %s\n", host)
}

func runLogout(cmd *cobra.Command, args []string) {
	manager, err := auth.NewManager()
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to initialize credential manager:", err)
		os.Exit(1)
	}

	host := args[0]
	if err := manager.Delete(host); err != nil {
		fmt.Fprintln(os.Stderr, "failed to remove account:", err)
		os.Exit(1)
	}
	fmt.Println("Account removed:", host)
}

func runAuthList(cmd *cobra.Command, args []string) {
	manager, err := auth.NewManager()
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to initialize credential manager:", err)
		os.Exit(1)
	}

	accounts, err := manager.List()
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to list accounts:", err)
		os.Exit(1)
	}

	if len(accounts) == 0 {
		fmt.Println("No stored accounts. Use 'mkarchive auth login' to add one.")
		return
	}

	fmt.Println("Stored accounts:")
	fmt.Println()
	for i, account := range accounts {
		sanitized := auth.SanitizeAccount(account)
		fmt.Printf("%d. Host: %s\n", i+1, sanitized.Host)
		fmt.Printf("   Token: %s\n", sanitized.Token)
		fmt.Printf("   Last Modified: %s\n", sanitized.LastModified.Format("2006-01-02 15:04:05"))
		fmt.Println()
	}
}

// readPassword reads a secret from stdin without echoing
func readPassword() (string, error) {
	if term.IsTerminal(int(syscall.Stdin)) {
		password, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Println() // New line after password
		if err == nil {
			return string(password), nil
		}
	}

	// Fallback to regular input
	reader := bufio.NewReader(os.Stdin)
	input, err := reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(input), nil
}
