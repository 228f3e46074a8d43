package cli

import (
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/noah-isme/gema-eval-api/internal/config"
	"github.com/noah-isme/gema-eval-api/internal/evaluation"
	"github.com/noah-isme/gema-eval-api/internal/repository"
	"github.com/noah-isme/gema-eval-api/internal/service"
	"github.com/noah-isme/gema-eval-api/internal/sink"
	"github.com/noah-isme/gema-eval-api/pkg/ai"
)

type runOpts struct {
	ids         string
	groundTruth string
	responses   string
	routing     string
	judge       string
	out         string
	mode        string
	concurrency int
	jsonOutput  bool
	verbose     bool
}

func newRunCmd() *cobra.Command {
	var opts runOpts

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Evaluate a list of response ids synchronously",
		Long: `Evaluate a list of response ids synchronously.
Log paths default to today's files under the configured log directories.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			applyRunOverrides(&cfg, opts)

			level := zerolog.WarnLevel
			if opts.verbose {
				level = zerolog.InfoLevel
			}
			logger := zerolog.New(zerolog.ConsoleWriter{Out: cmd.ErrOrStderr()}).Level(level).With().Timestamp().Logger()

			judge, err := ai.NewJudge(ai.Settings{
				Provider:         cfg.JudgeProvider,
				Model:            cfg.JudgeModel,
				PassThreshold:    cfg.JudgePassThreshold,
				OpenAIAPIKey:     cfg.OpenAIAPIKey,
				OpenAIBaseURL:    cfg.OpenAIBaseURL,
				AnthropicAPIKey:  cfg.AnthropicAPIKey,
				AnthropicBaseURL: cfg.AnthropicBaseURL,
				Logger:           logger,
			})
			if err != nil {
				return err
			}

			csvSink, err := sink.NewCSVSink(sink.CSVConfig{Dir: cfg.ResultsDir, Mode: cfg.ResultsMode}, logger)
			if err != nil {
				return err
			}

			svc := service.NewEvaluationJobService(service.EvaluationJobConfig{
				RoutingLogDir:  cfg.RoutingLogDir,
				ResponseLogDir: cfg.ResponseLogDir,
				Judge: evaluation.JudgeOptions{
					Concurrency: cfg.JudgeConcurrency,
					Timeout:     cfg.JudgeTimeout,
				},
			}, service.EvaluationJobDependencies{
				Repo:   repository.NewMemoryJobRepository(),
				Sink:   csvSink,
				Judge:  judge,
				Logger: logger,
			})

			result, err := svc.Run(cmd.Context(), service.RunInput{
				Sources: evaluation.Sources{
					IdentifiersPath: opts.ids,
					GroundTruthPath: opts.groundTruth,
					ResponseLogPath: opts.responses,
					RoutingLogPath:  opts.routing,
				},
			})
			if err != nil {
				return fmt.Errorf("evaluation failed: %w", err)
			}

			if opts.jsonOutput {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(map[string]any{
					"result_file": result.Artifact.Ref,
					"summary":     result.Outcome.Summary,
					"warnings":    result.Warnings(),
				})
			}

			renderSummary(cmd.OutOrStdout(), result.Outcome.Summary)
			fmt.Fprintf(cmd.OutOrStdout(), "\nresults: %s\n", result.Artifact.Ref)
			if n := len(result.Diagnostics); n > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "warnings: %d (use --verbose to list them)\n", n)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.ids, "ids", "", "file with one response id per line (required)")
	cmd.Flags().StringVar(&opts.groundTruth, "ground-truth", "", "ground truth CSV with Question and Answers columns (required)")
	cmd.Flags().StringVar(&opts.responses, "responses", "", "response log JSONL (default: today's log)")
	cmd.Flags().StringVar(&opts.routing, "routing", "", "routing log JSONL (default: today's log)")
	cmd.Flags().StringVar(&opts.judge, "judge", "", "judge provider: fallback, openai or anthropic")
	cmd.Flags().StringVar(&opts.out, "out", "", "results directory")
	cmd.Flags().StringVar(&opts.mode, "mode", "", "results mode: append, overwrite or unique")
	cmd.Flags().IntVar(&opts.concurrency, "concurrency", 0, "maximum concurrent judge calls")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "print the summary as JSON")
	cmd.Flags().BoolVar(&opts.verbose, "verbose", false, "log diagnostics to stderr")
	_ = cmd.MarkFlagRequired("ids")
	_ = cmd.MarkFlagRequired("ground-truth")

	return cmd
}

func applyRunOverrides(cfg *config.Config, opts runOpts) {
	if opts.judge != "" {
		cfg.JudgeProvider = opts.judge
	}
	if opts.out != "" {
		cfg.ResultsDir = opts.out
	}
	if opts.mode != "" {
		cfg.ResultsMode = opts.mode
	}
	if opts.concurrency > 0 {
		cfg.JudgeConcurrency = opts.concurrency
	}
}
