package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
	"mkarchive/pkg/config"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration files",
	Long: `Manage mkarchive configuration files.

Configuration can be loaded from:
  - Command line flags (highest priority)
  - Environment variables (MKARCHIVE_*)
  - Configuration file
  - Default values (lowest priority)`,
}

// configInitCmd represents the config init command
var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create an example configuration file",
	Long: `Create an example configuration file with all available options.

The file will be created in the current directory as '.mkarchive.yaml'
unless a different path is specified with the --config flag.`,
	Run: runConfigInit,
}

// configShowCmd represents the config show command
var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long: `Show the current configuration including values from all sources.

The token is masked for security.`,
	Run: runConfigShow,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
}

func runConfigInit(cmd *cobra.Command, args []string) {
	configPath := configFile
	if configPath == "" {
		configPath = ".mkarchive.yaml"
	}

	if _, err := os.Stat(configPath); err == nil {
		fmt.Fprintln(os.Stderr, "configuration file already exists:", configPath)
		os.Exit(1)
	}

	exampleConfig := `# mkarchive configuration file
#
# Environment variables prefixed with MKARCHIVE_ override these values.
# For example: MKARCHIVE_HOST, MKARCHIVE_TOKEN

# Instance connection
misskey:
  # Bare instance hostname, no scheme (required)
  host: "misskey.example"

  # API token. Prefer 'mkarchive auth login' over writing it here.
  token: ""

  # User agent string (optional)
  user_agent: ""

# Archive run settings
archive:
  # Channel to archive; usually passed on the command line instead
  channel_id: ""

  # Only archive notes created after this note id (optional)
  after: ""

  # Notes requested per page (1-100)
  page_limit: 60

# Request pacing
rate_limit:
  # Fixed delay between consecutive requests in milliseconds.
  # Zero disables the delay.
  request_delay_ms: 10000

# Logging
logging:
  # Log level: debug, info, warn, error
  level: "info"

  # Log file path (optional). Logs go to stderr when empty.
  file: ""
`

	if err := os.WriteFile(configPath, []byte(exampleConfig), 0644); err != nil {
		fmt.Fprintln(os.Stderr, "failed to create configuration file:", err)
		os.Exit(1)
	}

	fmt.Println("Configuration file created:", configPath)
	fmt.Println("\nNext steps:")
	fmt.Println("1. Edit the file and set your instance host")
	fmt.Println("2. Store your token with 'mkarchive auth login'")
	fmt.Println("3. Start archiving with 'mkarchive archive <channel-id>'")
}

func runConfigShow(cmd *cobra.Command, args []string) {
	cfg, err := config.Load(configFile, nil)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to load configuration:", err)
		os.Exit(1)
	}

	displayCfg := *cfg
	if displayCfg.Misskey.Token != "" {
		if len(displayCfg.Misskey.Token) > 8 {
			displayCfg.Misskey.Token = displayCfg.Misskey.Token[:4] + "..." + displayCfg.Misskey.Token[len(displayCfg.Misskey.Token)-4:]
		} else {
			displayCfg.Misskey.Token = "***"
		}
	}

	data, err := yaml.Marshal(&displayCfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to format configuration:", err)
		os.Exit(1)
	}

	fmt.Println("Current configuration:")
	fmt.Println()
	fmt.Print(string(data))

	fmt.Println("\nConfiguration sources (in order of priority):")
	fmt.Println("1. Command line flags")
	fmt.Println("2. Environment variables (MKARCHIVE_*)")
	if configFile != "" {
		fmt.Printf("3. Configuration file: %s\n", configFile)
	} else {
		fmt.Println("3. Configuration file: (not specified)")
	}
	fmt.Println("4. Default values")
}
