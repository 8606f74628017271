package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"insider-radar/internal/interfaces"
	"insider-radar/internal/logger"
	"insider-radar/internal/metrics"
	"insider-radar/internal/radar"
	"insider-radar/internal/server"
	"insider-radar/internal/store"
	"insider-radar/internal/types"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd(ctx).Execute()
	stop()
	_ = logger.Shutdown(context.Background())

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd(ctx context.Context) *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "radar",
		Short:         "Track promoter market buying in NSE insider disclosures and screen it on fundamentals",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initializeSystem()
		},
	}
	root.PersistentFlags().StringVar(&configPath, "config", "config.yaml", "path to config file")

	root.AddCommand(scanCmd(ctx, &configPath))
	root.AddCommand(signalsCmd(ctx, &configPath))
	root.AddCommand(serveCmd(ctx, &configPath))
	return root
}

type inputFlags struct {
	file    string
	fromNSE bool
	format  string
	save    bool
	outDir  string
}

func (f *inputFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.file, "file", "f", "", "insider trading CSV exported from NSE")
	cmd.Flags().BoolVar(&f.fromNSE, "nse", false, "download the disclosure CSV from NSE instead of reading --file")
	cmd.Flags().StringVar(&f.format, "format", "", "output format: text, json or csv (default from config)")
	cmd.Flags().BoolVar(&f.save, "save", false, "also save the report under report.output_dir")
	cmd.Flags().StringVar(&f.outDir, "output-dir", "", "override report.output_dir")
}

func (f *inputFlags) apply(cfg *store.Config) {
	if f.format != "" {
		cfg.Report.Format = f.format
	}
	if f.outDir != "" {
		cfg.Report.OutputDir = f.outDir
	}
	if f.save {
		cfg.Report.Save = true
	}
}

func scanCmd(ctx context.Context, configPath *string) *cobra.Command {
	var (
		in          inputFlags
		topN        int
		source      string
		peCeiling   float64
		roeFloor    float64
		debtCeiling float64
		quiet       bool
	)

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Aggregate promoter buys, look up fundamentals and apply the quality gate",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(ctx, *configPath)
			if err != nil {
				return err
			}
			in.apply(cfg)

			flags := cmd.Flags()
			if flags.Changed("top") {
				cfg.Scan.TopN = topN
			}
			if flags.Changed("source") {
				cfg.Fundamentals.Source = strings.ToUpper(source)
			}
			if flags.Changed("pe-ceiling") {
				cfg.Thresholds.PECeiling = peCeiling
			}
			if flags.Changed("roe-floor") {
				cfg.Thresholds.ROEFloor = roeFloor
			}
			if flags.Changed("debt-ceiling") {
				cfg.Thresholds.DebtCeiling = debtCeiling
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			if !cfg.Thresholds.InRange() {
				logger.Warn(ctx, "Thresholds outside recognized ranges, partition may be degenerate",
					"pe_ceiling", cfg.Thresholds.PECeiling,
					"roe_floor", cfg.Thresholds.ROEFloor,
					"debt_ceiling", cfg.Thresholds.DebtCeiling)
			}

			src, err := disclosureSource(cfg, in.file, in.fromNSE)
			if err != nil {
				return err
			}
			scanner, _, err := buildScanner(cfg, nil)
			if err != nil {
				return err
			}

			opts := radar.ScanOptions{TopN: cfg.Scan.TopN, Thresholds: cfg.Thresholds}
			if !quiet {
				opts.Progress = interfaces.ProgressFunc(func(p types.Progress) {
					marker := ""
					if p.Degraded {
						marker = " (data unavailable)"
					}
					fmt.Fprintf(os.Stderr, "[%d/%d] %s%s\n", p.Index, p.Total, p.Symbol, marker)
				})
			}

			report, err := scanner.Scan(ctx, src, opts)
			if err != nil {
				return err
			}
			return emit(cfg, report)
		},
	}

	in.register(cmd)
	cmd.Flags().IntVarP(&topN, "top", "n", 15, "how many top companies to look up")
	cmd.Flags().StringVar(&source, "source", "", "fundamentals source: MOCK or LIVE (default from config)")
	cmd.Flags().Float64Var(&peCeiling, "pe-ceiling", 60, "reject P/E at or above this value")
	cmd.Flags().Float64Var(&roeFloor, "roe-floor", 10, "reject ROE percent at or below this value")
	cmd.Flags().Float64Var(&debtCeiling, "debt-ceiling", 2.0, "reject debt/equity at or above this ratio")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "suppress per-company progress")
	return cmd
}

func signalsCmd(ctx context.Context, configPath *string) *cobra.Command {
	var in inputFlags

	cmd := &cobra.Command{
		Use:   "signals",
		Short: "List companies with promoter market buying, without fundamentals",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(ctx, *configPath)
			if err != nil {
				return err
			}
			in.apply(cfg)
			if err := cfg.Validate(); err != nil {
				return err
			}

			src, err := disclosureSource(cfg, in.file, in.fromNSE)
			if err != nil {
				return err
			}
			scanner, _, err := buildScanner(cfg, nil)
			if err != nil {
				return err
			}

			report, err := scanner.Signals(ctx, src)
			if err != nil {
				return err
			}
			return emit(cfg, report)
		},
	}
	in.register(cmd)
	return cmd
}

func serveCmd(ctx context.Context, configPath *string) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API (upload, progress stream, re-gating, metrics)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(ctx, *configPath)
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			reg := metrics.NewRegistry(true)
			scanner, provider, err := buildScanner(cfg, reg)
			if err != nil {
				return err
			}

			var sources server.SourceHealth
			if h, ok := provider.(server.SourceHealth); ok {
				sources = h
			}

			srv := server.New(server.Config{
				Addr:           cfg.Server.Addr,
				Scanner:        scanner,
				Metrics:        reg,
				Sources:        sources,
				SessionTTL:     time.Duration(cfg.Server.SessionTTLMinutes) * time.Minute,
				MaxUploadBytes: int64(cfg.Server.MaxUploadMB) << 20,
				TopN:           cfg.Scan.TopN,
				Thresholds:     cfg.Thresholds,
			})

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
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	return cmd
}

// emit prints the report and optionally saves it. Empty results are a
// normal exit.
func emit(cfg *store.Config, report *types.ScanReport) error {
	format, err := radar.ParseFormat(cfg.Report.Format)
	if err != nil {
		return err
	}
	reporter := radar.NewReporter(cfg.Report.OutputDir)

	content, err := reporter.GenerateReport(report, format)
	if err != nil {
		return err
	}
	fmt.Println(content)

	if cfg.Report.Save {
		path, err := reporter.SaveReport(report, format)
		if err != nil {
			return fmt.Errorf("could not save report: %w", err)
		}
		fmt.Fprintf(os.Stderr, "Report saved to: %s\n", path)
	}

	switch {
	case report.NoSignals():
		fmt.Fprintln(os.Stderr, "0 companies found with promoter market buying.")
	case report.NoneAccepted():
		fmt.Fprintf(os.Stderr, "Screened %d companies, none passed the quality gate.\n", len(report.Candidates))
	case len(report.Candidates) > 0:
		fmt.Fprintf(os.Stderr, "Found %d of %d companies passing the quality gate.\n",
			len(report.Partition.Accepted), len(report.Candidates))
	}
	return nil
}
