package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"mkarchive/pkg/archive"
	"mkarchive/pkg/auth"
	"mkarchive/pkg/config"
	"mkarchive/pkg/logger"
	"mkarchive/pkg/misskey"
	"mkarchive/pkg/ratelimit"
)

var (
	// Archive command flags
	archiveHost    string
	archiveToken   string
	archiveAfter   string
	archivePages   int
	archiveDelayMS int
	archiveOutput  string
	skipUsers      bool
)

// archiveCmd represents the archive command
var archiveCmd = &cobra.Command{
	Use:   "archive <channel-id>",
	Short: "Archive a channel's timeline from newest to oldest",
	Long: `Archive every note in a Misskey channel's timeline.

This command requires a valid API token, supplied through:
  - Stored credentials (use 'mkarchive auth login' to store)
  - Environment variables (MKARCHIVE_HOST and MKARCHIVE_TOKEN)
  - Configuration file or the --token flag

Pages are written to stdout as one JSON array per line, newest page first.
After the crawl, the profiles of every author seen in the channel are
fetched and written the same way, one profile per line.`,
	Example: `  # Archive a channel using stored credentials
  mkarchive archive 9abc123def --host misskey.example

  # Archive into a file, skipping the profile pass
  mkarchive archive 9abc123def --host misskey.example --output channel.jsonl --skip-users

  # Only archive notes created after a known note id
  mkarchive archive 9abc123def --host misskey.example --after 9xyz456abc

  # Faster crawl against a private test instance
  mkarchive archive 9abc123def --host misskey.test --request-delay-ms 100`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		runArchive(cmd, args)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(archiveCmd)

	archiveCmd.Flags().StringVar(&archiveHost, "host", "", "instance hostname, e.g. misskey.example")
	archiveCmd.Flags().StringVar(&archiveToken, "token", "", "API token (prefer stored credentials)")
	archiveCmd.Flags().StringVar(&archiveAfter, "after", "", "only archive notes created after this note id")
	archiveCmd.Flags().IntVar(&archivePages, "page-limit", 60, "notes requested per page")
	archiveCmd.Flags().IntVar(&archiveDelayMS, "request-delay-ms", 10000, "delay between requests in milliseconds")
	archiveCmd.Flags().StringVarP(&archiveOutput, "output", "o", "", "write records to file instead of stdout")
	archiveCmd.Flags().BoolVar(&skipUsers, "skip-users", false, "skip the author profile pass after the crawl")
}

func runArchive(cmd *cobra.Command, args []string) {
	channelID := strings.TrimSpace(args[0])

	cfg := loadArchiveConfig()

	if err := logger.Initialize(&cfg.Logging); err != nil {
		fmt.Fprintln(os.Stderr, "failed to initialize logger:", err)
		os.Exit(1)
	}
	log := logger.GetLogger()
	log.WithField("version", version).Info("mkarchive starting")

	token := resolveToken(cfg, log)

	client := misskey.NewClient(cfg.Misskey.Host, token, 30*time.Second, log)
	if cfg.Misskey.UserAgent != "" {
		client.SetHeader("User-Agent", cfg.Misskey.UserAgent)
	}

	records := recordWriter(archiveOutput, log)
	sink := archive.NewSink(records, os.Stderr)
	pacer := ratelimit.NewFixedDelay(cfg.RateLimit.RequestDelayMS)

	var after *misskey.NoteID
	if cfg.Archive.After != "" {
		id := misskey.NoteID(cfg.Archive.After)
		after = &id
	}

	crawler := archive.NewCrawler(client, sink, pacer, log, misskey.ChannelID(channelID), after, cfg.Archive.PageLimit)
	if err := crawler.Run(); err != nil {
		log.WithError(err).WithField("channel_id", channelID).Error("archive failed")
		os.Exit(1)
	}

	users := crawler.Users()
	log.WithFields(map[string]interface{}{
		"channel_id": channelID,
		"pages":      crawler.Pages(),
		"users":      len(users),
	}).Info("channel archived")

	if len(users) > 0 {
		ids := make([]string, 0, len(users))
		for _, id := range users {
			ids = append(ids, string(id))
		}
		if err := sink.Progress(archive.ProgressKindLog, "authors: %s", strings.Join(ids, " ")); err != nil {
			log.WithError(err).Error("failed to report author ids")
			os.Exit(1)
		}
	}

	if skipUsers || len(users) == 0 {
		return
	}

	resolver := archive.NewResolver(client, sink, pacer, log)
	if err := resolver.Run(users); err != nil {
		log.WithError(err).Error("profile resolution failed")
		os.Exit(1)
	}
}

// loadArchiveConfig merges flags over env and file configuration.
func loadArchiveConfig() *config.Config {
	flags := make(map[string]interface{})
	if archiveHost != "" {
		flags["host"] = archiveHost
	}
	if archiveToken != "" {
		flags["token"] = archiveToken
	}
	if archiveAfter != "" {
		flags["after"] = archiveAfter
	}
	if archivePages != 60 {
		flags["page-limit"] = archivePages
	}
	if archiveDelayMS != 10000 {
		flags["request-delay-ms"] = archiveDelayMS
	}
	if logLevel != "info" {
		flags["log-level"] = logLevel
	}

	cfg, err := config.Load(configFile, flags)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to load configuration:", err)
		os.Exit(1)
	}
	return cfg
}

// resolveToken returns the API token from the configuration, falling back to
// the credential manager when the configuration carries none.
func resolveToken(cfg *config.Config, log logger.Logger) misskey.Token {
	if cfg.Misskey.Token != "" {
		return misskey.NewToken(cfg.Misskey.Token)
	}

	manager, err := auth.NewManager()
	if err != nil {
		log.WithError(err).Error("failed to initialize credential manager")
		os.Exit(1)
	}

	account, err := manager.Retrieve(cfg.Misskey.Host)
	if err != nil {
		log.WithField("host", cfg.Misskey.Host).Error("no credentials found")
		fmt.Fprintln(os.Stderr, "No API token found for", cfg.Misskey.Host)
		fmt.Fprintln(os.Stderr, "\nTo store a token securely, run:")
		fmt.Fprintln(os.Stderr, "  mkarchive auth login", cfg.Misskey.Host)
		fmt.Fprintln(os.Stderr, "\nOr set environment variables:")
		fmt.Fprintln(os.Stderr, "  export MKARCHIVE_HOST="+cfg.Misskey.Host)
		fmt.Fprintln(os.Stderr, "  export MKARCHIVE_TOKEN=your_api_token")
		os.Exit(1)
	}

	log.WithField("host", account.Host).Info("using stored credentials")
	return misskey.NewToken(account.Token)
}

// recordWriter opens the record output: a file when requested, stdout
// otherwise.
func recordWriter(path string, log logger.Logger) io.Writer {
	if path == "" {
		return os.Stdout
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		log.WithError(err).WithField("path", path).Error("failed to open output file")
		os.Exit(1)
	}
	return f
}
