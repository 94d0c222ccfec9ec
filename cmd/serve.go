package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/spf13/cobra"

	"github.com/brogergvhs/noveld/internal/bot"
	"github.com/brogergvhs/noveld/internal/config"
	"github.com/brogergvhs/noveld/internal/epub"
	"github.com/brogergvhs/noveld/internal/metadata"
	"github.com/brogergvhs/noveld/internal/providers"
	"github.com/brogergvhs/noveld/internal/providers/generic"
	"github.com/brogergvhs/noveld/internal/scrape"
	"github.com/brogergvhs/noveld/internal/session"
	"github.com/brogergvhs/noveld/internal/ui"
	"github.com/brogergvhs/noveld/internal/util"
)

func init() {
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the Telegram bot. Requires BOT_TOKEN in the environment",
		RunE:  runServe,
	}

	serveCmd.Flags().StringVar(&flagOutput, "output", "", "transient folder for assembled EPUBs")
	serveCmd.Flags().BoolVar(&flagCFBypass, "cf-bypass", false, "enable the Cloudflare bypass transport")

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	token := os.Getenv("BOT_TOKEN")
	if token == "" {
		return fmt.Errorf("BOT_TOKEN is not set; refusing to start")
	}

	cfg, usedPath, err := config.LoadMerged(config.Options{
		IgnoreConfig:     flagIgnoreConfig,
		Debug:            flagDebug,
		Output:           flagOutput,
		CloudflareBypass: flagCFBypass,
	})
	if err != nil {
		return err
	}

	logSvc := ui.NewLogger(cfg.Debug)
	if usedPath != "" {
		fmt.Printf("Config file: %s\n", usedPath)
	}

	if err := os.MkdirAll(cfg.Output, 0755); err != nil {
		return fmt.Errorf("cannot create output folder: %w", err)
	}
	util.SetupInterruptHandler(cfg.Output)

	scrapeClient, err := util.NewHTTPClient(util.HTTPClientOptions{
		Timeout:          time.Duration(cfg.HTTPTimeoutSec) * time.Second,
		UserAgent:        util.PickUserAgent(cfg.UserAgent),
		Cookie:           cfg.Cookie,
		CookieFile:       cfg.CookieFile,
		CloudflareBypass: cfg.CloudflareBypass,
		DebugLogger:      logSvc,
	})
	if err != nil {
		return err
	}

	metaClient, err := util.NewHTTPClient(util.HTTPClientOptions{
		Timeout:          time.Duration(cfg.MetadataTimeoutSec) * time.Second,
		UserAgent:        util.PickUserAgent(cfg.UserAgent),
		CloudflareBypass: cfg.CloudflareBypass,
		DebugLogger:      logSvc,
	})
	if err != nil {
		return err
	}

	registry := providers.NewRegistry(func(p providers.Profile) providers.Scraper {
		return generic.NewScraper(scrapeClient, p, logSvc)
	})

	metaOpts := metadata.DefaultOptions()
	metaOpts.DescMaxLen = cfg.DescMaxLen
	if len(cfg.DescSelectors) > 0 {
		metaOpts.DescSelectors = cfg.DescSelectors
	}
	fetcher := metadata.NewFetcher(metaClient, metaOpts, logSvc)

	sessions := session.NewStore()
	defer sessions.Close()

	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return fmt.Errorf("telegram: %w", err)
	}
	api.Debug = cfg.Debug

	builder := epub.NewBuilder(cfg.Output, logSvc)
	messenger := bot.NewMessenger(api)
	orch := scrape.NewOrchestrator(registry, builder, messenger, logSvc)

	b := bot.New(api, messenger, sessions, fetcher, registry, orch, logSvc, cfg.MaxChapters)

	return b.Run(context.Background())
}
