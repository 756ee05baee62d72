// Command docmark converts PDF documents into styled HTML markup through a
// vision-capable model. One or more documents are processed with a selected
// strategy; multiple inputs run as a parallel batch.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/spherical/docmark/internal/batch"
	"github.com/spherical/docmark/internal/config"
	"github.com/spherical/docmark/internal/llm"
	"github.com/spherical/docmark/internal/observability"
	"github.com/spherical/docmark/internal/pdf"
	"github.com/spherical/docmark/internal/strategy"
	"github.com/spherical/docmark/pkg/docmark"
)

type cliFlags struct {
	strategy      string
	problemPages  string
	solutionPages string
	baseStrategy  string
	keepTemp      bool
	maxWorkers    int
	configPath    string
	verbose       bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("Error: %v", err))
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var flags cliFlags

	cmd := &cobra.Command{
		Use:   "docmark [flags] FILE...",
		Short: "Convert PDF documents to styled HTML markup",
		Long: `docmark converts PDF documents into standalone HTML using a vision-capable
model. Four strategies are available:

  text-based        extracted text + embedded image descriptions
  vision-guided     single-shot generation over rendered page images
  handwritten       multi-turn transcription with diagram extraction
  problem-solution  two-stage problem/solution composition`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, args, flags)
		},
	}

	cmd.Flags().StringVarP(&flags.strategy, "strategy", "s", "",
		"processing strategy: text-based, vision-guided, handwritten, problem-solution (required)")
	cmd.Flags().StringVar(&flags.problemPages, "problem-pages", "",
		`problem page range for problem-solution, e.g. "1-4"`)
	cmd.Flags().StringVar(&flags.solutionPages, "solution-pages", "",
		`solution page range for problem-solution, e.g. "5-end"`)
	cmd.Flags().StringVar(&flags.baseStrategy, "base-strategy", strategy.SelectorTextBased,
		"base strategy for the problem stage: text-based or vision-guided")
	cmd.Flags().BoolVar(&flags.keepTemp, "keep-temp", false,
		"retain per-job temporary workspaces")
	cmd.Flags().IntVar(&flags.maxWorkers, "max-workers", 0,
		"parallel workers for batch mode (default: hardware parallelism)")
	cmd.Flags().StringVar(&flags.configPath, "config", "",
		"path to a YAML config file")
	cmd.Flags().BoolVarP(&flags.verbose, "verbose", "v", false,
		"debug logging")
	_ = cmd.MarkFlagRequired("strategy")

	return cmd
}

func run(cmd *cobra.Command, args []string, flags cliFlags) error {
	_ = godotenv.Load()

	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return err
	}
	if flags.verbose {
		cfg.Log.Level = "debug"
	}
	log := observability.NewLogger(observability.LogConfig{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})

	apiKey, err := cfg.APIKey()
	if err != nil {
		return err
	}
	backend, err := llm.NewAnthropicClient(apiKey, cfg.Backend.Timeout)
	if err != nil {
		return err
	}

	gateway := llm.NewGateway(
		backend,
		llm.NewFileTranscript(cfg.Transcript.Path),
		log,
		llm.RetryPolicy{
			MaxAttempts:    cfg.Retry.MaxAttempts,
			InitialBackoff: cfg.Retry.InitialBackoff,
			MaxBackoff:     cfg.Retry.MaxBackoff,
		},
	)

	runner := docmark.NewRunner(strategy.Deps{
		Gateway: gateway,
		Open:    pdf.Open,
		Models:  cfg.Models,
		Render:  cfg.Render,
		Log:     log,
	})
	opts := docmark.Options{
		Strategy:      flags.strategy,
		ProblemPages:  flags.problemPages,
		SolutionPages: flags.solutionPages,
		BaseStrategy:  flags.baseStrategy,
		KeepTemp:      flags.keepTemp,
	}

	ctx := cmd.Context()
	if len(args) == 1 {
		if err := runner.Convert(ctx, args[0], opts); err != nil {
			return err
		}
		fmt.Println(color.GreenString("✓ %s", args[0]))
		return nil
	}

	jobs := make([]batch.Job, 0, len(args))
	for _, path := range args {
		jobs = append(jobs, batch.Job{
			Name: pdf.Stem(path),
			Run:  func(ctx context.Context) error { return runner.Convert(ctx, path, opts) },
		})
	}

	summary := batch.NewOrchestrator(log, flags.maxWorkers, true).Run(ctx, jobs)
	printSummary(summary)
	if !summary.AllSucceeded() {
		return fmt.Errorf("%d of %d documents failed", summary.Failed, summary.Total)
	}
	return nil
}

func printSummary(s batch.Summary) {
	fmt.Println("\nBatch summary")
	fmt.Println("-------------")
	for name, ok := range s.Results {
		if ok {
			fmt.Println(color.GreenString("  ✓ %s", name))
		} else {
			fmt.Println(color.RedString("  ✗ %s", name))
		}
	}
	fmt.Printf("\n%d succeeded, %d failed, %d total\n", s.Succeeded, s.Failed, s.Total)
}
