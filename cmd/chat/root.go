package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/ashureev/caficafe-chat/internal/chatclient"
	"github.com/ashureev/caficafe-chat/internal/config"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

type options struct {
	baseURL         string
	userID          string
	maxLength       int
	monitorInterval time.Duration
	timeout         time.Duration
	noMetadata      bool
	verbose         bool

	cfg    *config.ClientConfig
	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:           "chat",
		Short:         "Chat with the CafiCafe restaurant assistant",
		Long:          "Interactive terminal client for the CafiCafe chatbot. Without a subcommand it starts a chat session.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return opts.load(cmd)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runREPL(cmd.Context(), opts, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.baseURL, "base-url", "", "chatbot origin (overrides CHAT_API_BASE_URL and APP_ENV)")
	flags.StringVar(&opts.userID, "user-id", "", "user ID to send (generated when empty)")
	flags.IntVar(&opts.maxLength, "max-length", 0, "maximum message length in characters, 0 disables the check")
	flags.DurationVar(&opts.monitorInterval, "monitor-interval", 0, "how often to re-check the service while disconnected")
	flags.DurationVar(&opts.timeout, "timeout", 0, "per-request timeout")
	flags.BoolVar(&opts.noMetadata, "no-metadata", false, "send only the message text")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging")

	cmd.AddCommand(newSendCmd(opts), newHealthCmd(opts))
	return cmd
}

// load merges environment configuration with explicitly set flags.
func (o *options) load(cmd *cobra.Command) error {
	level := slog.LevelWarn
	if o.verbose {
		level = slog.LevelDebug
	}
	o.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
	slog.SetDefault(o.logger)

	if err := godotenv.Load(); err != nil {
		o.logger.Debug("No .env file found, using environment variables")
	}

	cfg, err := config.LoadClient()
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("base-url") {
		cfg.BaseURL = o.baseURL
	}
	if flags.Changed("user-id") {
		cfg.UserID = o.userID
	}
	if flags.Changed("max-length") {
		cfg.MaxMessageLength = o.maxLength
	}
	if flags.Changed("monitor-interval") {
		cfg.MonitorInterval = o.monitorInterval
	}
	if flags.Changed("timeout") {
		cfg.RequestTimeout = o.timeout
	}
	if flags.Changed("no-metadata") {
		cfg.SendMetadata = !o.noMetadata
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}

	o.cfg = cfg
	o.logger.Debug("Client configuration loaded", "base_url", cfg.BaseURL, "monitor_interval", cfg.MonitorInterval)
	return nil
}

func (o *options) newClient(observer chatclient.Observer) (*chatclient.Client, error) {
	return chatclient.New(chatclient.Config{
		BaseURL:          o.cfg.BaseURL,
		UserID:           o.cfg.UserID,
		MaxMessageLength: o.cfg.MaxMessageLength,
		RequestTimeout:   o.cfg.RequestTimeout,
		SendMetadata:     o.cfg.SendMetadata,
		Observer:         observer,
	}, o.logger)
}
