package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ghalamif/AegisInsight/internal/adapters/store"
	"github.com/ghalamif/AegisInsight/internal/classifier"
	"github.com/ghalamif/AegisInsight/internal/domain"
	"github.com/ghalamif/AegisInsight/internal/ports"
	"github.com/ghalamif/AegisInsight/pkg/aegisinsight"
)

const defaultConfigPath = "./data/config.yaml"

func newServeCommand() *cobra.Command {
	var cfgPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the JSON query API and Prometheus metrics",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := aegisinsight.LoadConfig(cfgPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			engine, err := aegisinsight.NewEngine(cfg)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return engine.Run(ctx)
		},
	}

	cmd.Flags().StringVar(&cfgPath, "config", defaultConfigPath, "Path to configuration file")
	return cmd
}

func newAskCommand() *cobra.Command {
	var (
		cfgPath      string
		fixture      string
		equipment    string
		analysisType string
		at           string
		asJSON       bool
	)

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Answer one question and print the result",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				cfg *aegisinsight.Config
				err error
			)
			if fixture != "" {
				cfg = aegisinsight.DefaultConfig()
				cfg.Fixture = fixture
			} else if cfg, err = aegisinsight.LoadConfig(cfgPath); err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			req := aegisinsight.Request{Query: strings.Join(args, " "), AnalysisType: domain.AnalysisType(analysisType)}
			if req.AnalysisType != "" && !req.AnalysisType.Analytical() {
				return fmt.Errorf("unknown analysis type %q", analysisType)
			}
			if equipment != "" {
				req.Scope = ports.SingleEquipment(equipment)
			}
			if at != "" {
				if req.Now, err = time.Parse(time.RFC3339, at); err != nil {
					return fmt.Errorf("--at: %w", err)
				}
			}

			engine, err := aegisinsight.NewEngine(cfg, aegisinsight.WithLogger(zap.NewNop()))
			if err != nil {
				return err
			}
			defer engine.Shutdown(cmd.Context())

			res := engine.Handle(cmd.Context(), req)
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(res)
			}
			printResult(cmd, res)
			return nil
		},
	}

	cmd.Flags().StringVar(&cfgPath, "config", defaultConfigPath, "Path to configuration file")
	cmd.Flags().StringVar(&fixture, "fixture", "", "Serve facts from a YAML fixture instead of the configured store")
	cmd.Flags().StringVar(&equipment, "equipment", "", "Restrict the analysis to one equipment ID or code")
	cmd.Flags().StringVar(&analysisType, "type", "", "Force an analysis type (e.g. quality_analysis)")
	cmd.Flags().StringVar(&at, "at", "", "Reference time in RFC3339 (default now)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the full result envelope as JSON")
	return cmd
}

func printResult(cmd *cobra.Command, res aegisinsight.Result) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s [%s] confidence=%.2f data_points=%d window=%s\n",
		res.AnalysisType, res.Tier, res.Confidence, res.DataPoints, res.WindowLabel)
	fmt.Fprintln(out, res.Content)
	for _, w := range res.Warnings {
		fmt.Fprintf(out, "  warning %s: %s\n", w.Code, w.Message)
	}
	for _, v := range res.Visualizations {
		fmt.Fprintf(out, "  chart %s: %s\n", v.Type, v.Title)
	}
}

func newClassifyCommand() *cobra.Command {
	var threshold int

	cmd := &cobra.Command{
		Use:   "classify <question>",
		Short: "Show the analysis type and routing tier of a question",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cls := classifier.New(nil, threshold)
			c := cls.Classify(strings.Join(args, " "))
			fmt.Fprintf(cmd.OutOrStdout(), "type=%s score=%d tier=%s top_n=%d hits=%s\n",
				c.AnalysisType, c.RoutingScore, cls.Route(c.RoutingScore), c.TopN, strings.Join(c.Hits, ","))
			return nil
		},
	}

	cmd.Flags().IntVar(&threshold, "threshold", ports.DefaultRoutingThreshold, "Routing score at which questions go to the analysis tier")
	return cmd
}

func newValidateCommand() *cobra.Command {
	var cfgPath string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Load and validate a config file without starting anything",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := aegisinsight.LoadConfig(cfgPath); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "config %s looks good\n", cfgPath)
			return nil
		},
	}

	cmd.Flags().StringVar(&cfgPath, "config", defaultConfigPath, "Path to configuration file to validate")
	return cmd
}

func newMigrateCommand() *cobra.Command {
	var cfgPath string

	cmd := &cobra.Command{
		Use:       "migrate [up|down|status]",
		Short:     "Apply or inspect the fact schema migrations",
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"up", "down", "status"},
		RunE: func(cmd *cobra.Command, args []string) error {
			direction := "up"
			if len(args) == 1 {
				direction = args[0]
			}
			cfg, err := aegisinsight.LoadConfig(cfgPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if cfg.Timescale.ConnString == "" {
				return fmt.Errorf("timescale.conn_string is required for migrations")
			}

			ctx := cmd.Context()
			db, err := store.Open(ctx, cfg.Timescale.Driver, cfg.Timescale.ConnString, cfg.Timescale.Pool)
			if err != nil {
				return err
			}
			defer db.Close()

			switch direction {
			case "down":
				return store.MigrateDown(ctx, db)
			case "status":
				return store.MigrationStatus(ctx, db)
			default:
				return store.Migrate(ctx, db)
			}
		},
	}

	cmd.Flags().StringVar(&cfgPath, "config", defaultConfigPath, "Path to configuration file")
	return cmd
}

func newStatsCommand() *cobra.Command {
	var (
		url      string
		interval time.Duration
	)

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Poll the Prometheus metrics endpoint and print live counters",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			ticker := time.NewTicker(interval)
			defer ticker.Stop()

			fmt.Fprintf(cmd.OutOrStdout(), "Streaming metrics from %s (Ctrl+C to stop)\n", url)
			for {
				select {
				case <-ctx.Done():
					return nil
				case <-ticker.C:
					line, err := metricsSnapshot(ctx, url)
					if err != nil {
						fmt.Fprintf(os.Stderr, "stats error: %v\n", err)
						continue
					}
					fmt.Fprintln(cmd.OutOrStdout(), line)
				}
			}
		},
	}

	cmd.Flags().StringVar(&url, "url", "http://localhost:9100/metrics", "Prometheus metrics endpoint")
	cmd.Flags().DurationVar(&interval, "interval", 2*time.Second, "Refresh interval")
	return cmd
}
