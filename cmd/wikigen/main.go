// Command wikigen generates encyclopedia articles from the terminal and
// serves the HTTP API.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/wikigen/wikigen/internal/agent/core"
	"github.com/wikigen/wikigen/internal/agent/telemetry"
	"github.com/wikigen/wikigen/internal/article"
	"github.com/wikigen/wikigen/internal/config"
	"github.com/wikigen/wikigen/internal/server"
)

func main() {
	root := &cobra.Command{
		Use:           "wikigen",
		Short:         "Generate encyclopedia articles with a research/write/edit pipeline",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String("config", "", "path to config file")
	root.AddCommand(newGenerateCmd(), newServeCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	return config.LoadConfig(path)
}

func newGenerateCmd() *cobra.Command {
	var (
		minWords     int
		sections     int
		language     string
		hierarchical bool
		output       string
		verbose      bool
	)
	cmd := &cobra.Command{
		Use:   "generate [topic]",
		Short: "Generate one article and print a report",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			topic := strings.TrimSpace(strings.Join(args, " "))
			if topic == "" {
				return fmt.Errorf("topic must not be empty")
			}
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if language != "" {
				cfg.Wikipedia.Language = language
			}

			logger := log.New(io.Discard, "", 0)
			if verbose {
				logger = log.New(os.Stderr, "", log.LstdFlags)
			}

			process := core.ProcessSequential
			if hierarchical {
				process = core.ProcessHierarchical
			}
			tele := telemetry.New(prometheus.NewRegistry())
			crew, err := core.NewCrew(cfg, process, logger, tele)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), processingDeadline(cfg))
			defer cancel()

			res := crew.Run(ctx, core.RunParams{
				Topic:    topic,
				MinWords: minWords,
				Sections: sections,
			})
			if res.Status != core.StatusSuccess {
				return fmt.Errorf("generation failed after %.2fs: %s", res.ProcessingTime, res.Error)
			}

			printReport(cmd.OutOrStdout(), topic, res)
			if output != "" {
				if err := writeArticle(output, res.Article); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Saved to %s\n", output)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&minWords, "min-words", 0, "minimum article word count (default from config)")
	cmd.Flags().IntVar(&sections, "sections", 0, "number of sections (default from config)")
	cmd.Flags().StringVar(&language, "language", "", "Wikipedia language code, e.g. en or pt")
	cmd.Flags().BoolVar(&hierarchical, "hierarchical", false, "let a coordinator plan the stage order")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write the article JSON to this file")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "log pipeline progress to stderr")
	return cmd
}

func printReport(w io.Writer, topic string, res core.RunResult) {
	title, _ := res.Article["title"].(string)
	if title == "" {
		title = topic
	}
	fmt.Fprintf(w, "Title: %s\n", title)
	fmt.Fprintf(w, "Generated in %.2fs\n", res.ProcessingTime)
	if doc, err := article.FromMap(res.Article, time.Now()); err == nil {
		fmt.Fprintf(w, "Words: %d\n", doc.WordCount())
		if len(doc.Metadata.Keywords) > 0 {
			fmt.Fprintf(w, "Keywords: %s\n", strings.Join(doc.Metadata.Keywords, ", "))
		}
	}
	if !res.Validated {
		fmt.Fprintln(w, "Warning: article did not pass validation, output is best-effort")
	}
}

func writeArticle(path string, doc map[string]interface{}) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode article: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write article: %w", err)
	}
	return nil
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			logger := log.New(os.Stderr, "", log.LstdFlags)

			tele := telemetry.New(nil)
			crew, err := core.NewCrew(cfg, core.ProcessSequential, logger, tele)
			if err != nil {
				return err
			}
			store, err := server.NewTaskStore(cmd.Context(), cfg.Storage)
			if err != nil {
				return err
			}

			srv := server.New(cfg, crew, store, logger)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			errCh := make(chan error, 1)
			go func() { errCh <- srv.Start() }()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
}

func processingDeadline(cfg *config.Config) time.Duration {
	if cfg.General.MaxProcessingTime > 0 {
		return cfg.General.MaxProcessingTime
	}
	return 10 * time.Minute
}
