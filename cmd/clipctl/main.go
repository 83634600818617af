// clipctl is the ad-hoc scraping CLI: it resolves post URLs through the same
// adapters the service uses, without touching the database.
package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/cliptrack/cliptrack/internal/config"
	"github.com/cliptrack/cliptrack/internal/platform"
	"github.com/cliptrack/cliptrack/internal/scrape"
)

func main() {
	// Local development convenience; a missing .env is not an error.
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:   "clipctl",
		Short: "Scrape short-form video metadata on demand",
	}

	rootCmd.AddCommand(newScrapeCmd())
	rootCmd.AddCommand(newExtractCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newScrapeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scrape <url> [url...]",
		Short: "Fetch and normalize one or more post URLs",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
			scraper := scrape.NewScraper(logger, buildClients(cfg.Platforms)...)

			if len(args) == 1 {
				post, err := scraper.ScrapeURL(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return printJSON(post)
			}

			orchestrator := scrape.NewOrchestrator(scraper, logger, scrape.OrchestratorConfig{
				MaxBatch:     cfg.Ingestion.BatchMax,
				ChunkSize:    cfg.Ingestion.ChunkSize,
				RequestDelay: cfg.Ingestion.RequestDelay,
			})

			outcomes := orchestrator.ScrapeBatch(cmd.Context(), args)
			for _, o := range outcomes {
				if o.Err != nil {
					fmt.Fprintf(os.Stderr, "%s: %v\n", o.URL, o.Err)
					continue
				}
				if err := printJSON(o.Post); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func newExtractCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "extract <url>",
		Short: "Show the platform and content id a URL resolves to",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, ok := platform.DetectPlatform(args[0])
			if !ok {
				return fmt.Errorf("unrecognized host in %q", args[0])
			}

			id, ok := platform.ExtractID(p, args[0])
			if !ok {
				return fmt.Errorf("no content id found in %q", args[0])
			}

			return printJSON(map[string]string{
				"platform": string(p),
				"video_id": id,
			})
		},
	}
}

func buildClients(cfg config.PlatformsConfig) []platform.Client {
	var tiktokOpts []platform.TikTokOption
	if cfg.TikTokBaseURL != "" {
		tiktokOpts = append(tiktokOpts, platform.WithTikTokBaseURL(cfg.TikTokBaseURL))
	}

	var instagramOpts []platform.InstagramOption
	if cfg.InstagramBaseURL != "" {
		instagramOpts = append(instagramOpts, platform.WithInstagramBaseURL(cfg.InstagramBaseURL))
	}

	var youtubeOpts []platform.YouTubeOption
	if cfg.YouTubeBaseURL != "" {
		youtubeOpts = append(youtubeOpts, platform.WithYouTubeBaseURL(cfg.YouTubeBaseURL))
	}

	return []platform.Client{
		platform.NewTikTokClient(cfg.TikTokAPIKey, tiktokOpts...),
		platform.NewInstagramClient(cfg.InstagramAPIKey, instagramOpts...),
		platform.NewYouTubeClient(cfg.YouTubeAPIKey, youtubeOpts...),
	}
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
