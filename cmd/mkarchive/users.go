package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"mkarchive/pkg/archive"
	"mkarchive/pkg/config"
	"mkarchive/pkg/logger"
	"mkarchive/pkg/misskey"
	"mkarchive/pkg/ratelimit"
)

var (
	// Users command flags
	usersHost    string
	usersToken   string
	usersDelayMS int
	usersOutput  string
)

// usersCmd represents the users command
var usersCmd = &cobra.Command{
	Use:   "users <user-id>...",
	Short: "Resolve user ids to full profile records",
	Long: `Resolve one or more user ids to full profile records.

Profiles are fetched strictly in the order given, one request at a time,
with the configured delay after every request. Each profile is written as
a single JSON line. The id list is taken as-is: duplicates are fetched
again, and a failed lookup aborts the remaining ids.`,
	Example: `  # Resolve two users
  mkarchive users 9aaa111 9bbb222 --host misskey.example

  # Resolve into a file without waiting between requests
  mkarchive users 9aaa111 --host misskey.example --request-delay-ms 0 -o users.jsonl`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		runUsers(cmd, args)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(usersCmd)

	usersCmd.Flags().StringVar(&usersHost, "host", "", "instance hostname, e.g. misskey.example")
	usersCmd.Flags().StringVar(&usersToken, "token", "", "API token (prefer stored credentials)")
	usersCmd.Flags().IntVar(&usersDelayMS, "request-delay-ms", 10000, "delay between requests in milliseconds")
	usersCmd.Flags().StringVarP(&usersOutput, "output", "o", "", "write records to file instead of stdout")
}

func runUsers(cmd *cobra.Command, args []string) {
	flags := make(map[string]interface{})
	if usersHost != "" {
		flags["host"] = usersHost
	}
	if usersToken != "" {
		flags["token"] = usersToken
	}
	if usersDelayMS != 10000 {
		flags["request-delay-ms"] = usersDelayMS
	}
	if logLevel != "info" {
		flags["log-level"] = logLevel
	}

	cfg, err := config.Load(configFile, flags)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to load configuration:", err)
		os.Exit(1)
	}

	if err := logger.Initialize(&cfg.Logging); err != nil {
		fmt.Fprintln(os.Stderr, "failed to initialize logger:", err)
		os.Exit(1)
	}
	log := logger.GetLogger()

	token := resolveToken(cfg, log)

	client := misskey.NewClient(cfg.Misskey.Host, token, 30*time.Second, log)
	if cfg.Misskey.UserAgent != "" {
		client.SetHeader("User-Agent", cfg.Misskey.UserAgent)
	}

	sink := archive.NewSink(recordWriter(usersOutput, log), os.Stderr)
	pacer := ratelimit.NewFixedDelay(cfg.RateLimit.RequestDelayMS)

	ids := make([]misskey.UserID, 0, len(args))
	for _, arg := range args {
		ids = append(ids, misskey.UserID(arg))
	}

	resolver := archive.NewResolver(client, sink, pacer, log)
	if err := resolver.Run(ids); err != nil {
		log.WithError(err).Error("profile resolution failed")
		os.Exit(1)
	}
}
