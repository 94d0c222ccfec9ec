package cmd

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/brogergvhs/noveld/internal/config"
	"github.com/brogergvhs/noveld/internal/epub"
	"github.com/brogergvhs/noveld/internal/providers"
	"github.com/brogergvhs/noveld/internal/providers/generic"
	"github.com/brogergvhs/noveld/internal/ui"
	"github.com/brogergvhs/noveld/internal/util"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
)

var (
	// selection
	flagURL   string
	flagLimit int

	// runtime
	flagOutput   string
	flagCFBypass bool

	// headers/auth
	flagCookie     string
	flagCookieFile string
	flagUserAgent  string
)

func init() {
	downloadCmd := &cobra.Command{
		Use:   "download",
		Short: "Scrape a novel to an EPUB from the terminal. Uses the defaults from the selected config, overwritten by CLI flags",
		RunE:  runDownload,
	}

	// selection
	downloadCmd.Flags().StringVar(&flagURL, "url", "", "novel index page URL")
	downloadCmd.Flags().IntVar(&flagLimit, "limit", 0, "number of chapters to fetch (0 = ask, 999 = all)")

	// runtime
	downloadCmd.Flags().StringVar(&flagOutput, "output", "", "output folder for EPUB files")
	downloadCmd.Flags().BoolVar(&flagCFBypass, "cf-bypass", false, "enable the Cloudflare bypass transport")

	// headers/auth
	downloadCmd.Flags().StringVar(&flagCookie, "cookie", "", "cookie string, e.g. \"key=value; other=123\"")
	downloadCmd.Flags().StringVar(&flagCookieFile, "cookie-file", "", "path to a text file with cookies (one header line)")
	downloadCmd.Flags().StringVar(&flagUserAgent, "user-agent", "", "override User-Agent")

	rootCmd.AddCommand(downloadCmd)
}

func runDownload(cmd *cobra.Command, _ []string) error {
	cfg, usedPath, err := config.LoadMerged(config.Options{
		IgnoreConfig:     flagIgnoreConfig,
		Debug:            flagDebug,
		Output:           flagOutput,
		Cookie:           flagCookie,
		CookieFile:       flagCookieFile,
		UserAgent:        flagUserAgent,
		CloudflareBypass: flagCFBypass,
		DefaultURL:       flagURL,
		DefaultLimit:     flagLimit,
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

	fmt.Println("Full config:")
	cfg.Print()
	fmt.Println()

	if cfg.DefaultURL == "" {
		return fmt.Errorf("missing --url and no default_url in config")
	}

	limit := cfg.DefaultLimit
	if limit <= 0 {
		limit, err = promptLimit()
		if err != nil {
			return err
		}
	}

	client, err := util.NewHTTPClient(util.HTTPClientOptions{
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

	registry := providers.NewRegistry(func(p providers.Profile) providers.Scraper {
		return generic.NewScraper(client, p, logSvc)
	})

	site := registry.Resolve(cfg.DefaultURL)
	fmt.Printf("Site: %s\n\n", site.Name)

	pm := ui.NewProgressManager()
	handle := pm.Register(site.Name)

	start := time.Now()
	novel, err := site.Scraper.ScrapeNovel(context.Background(), cfg.DefaultURL, limit, handle.Update)
	handle.MarkDone()
	pm.Close()

	if err != nil {
		return err
	}
	if novel == nil || len(novel.Chapters) == 0 {
		return fmt.Errorf("no chapters found at %s", cfg.DefaultURL)
	}

	builder := epub.NewBuilder(cfg.Output, logSvc)
	path, err := builder.Assemble(novel.Title, "Fiction", novel.Chapters)
	if err != nil {
		return err
	}

	stats := &ui.Stats{}
	stats.TotalChapters.Add(int64(len(novel.Chapters)))
	if info, err := os.Stat(path); err == nil {
		stats.TotalBytes.Add(info.Size())
	}

	fmt.Println()
	fmt.Println("Download Summary:")
	fmt.Printf("Novel:    %s\n", novel.Title)
	fmt.Printf("Chapters: %d\n", stats.TotalChapters.Load())
	fmt.Printf("Data:     %s\n", util.Human(stats.TotalBytes.Load()))
	fmt.Printf("Time:     %s\n", time.Since(start).Round(time.Second))
	fmt.Printf("File:     %s\n", path)
	fmt.Println("\nAll done.")

	return nil
}

func promptLimit() (int, error) {
	prompt := promptui.Prompt{
		Label: "How many chapters (empty = all)",
		Validate: func(s string) error {
			s = strings.TrimSpace(s)
			if s == "" {
				return nil
			}
			n, err := strconv.Atoi(s)
			if err != nil || n < 1 {
				return fmt.Errorf("enter a positive number")
			}
			return nil
		},
	}

	raw, err := prompt.Run()
	if err != nil {
		return 0, fmt.Errorf("prompt cancelled")
	}

	raw = strings.TrimSpace(raw)
	if raw == "" {
		return providers.AllChapters, nil
	}

	return strconv.Atoi(raw)
}
