package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/wangwingzero/caac-monitor/internal/config"
	"github.com/wangwingzero/caac-monitor/internal/crawl"
	"github.com/wangwingzero/caac-monitor/internal/download"
	"github.com/wangwingzero/caac-monitor/internal/jsdata"
	"github.com/wangwingzero/caac-monitor/internal/monitor"
	"github.com/wangwingzero/caac-monitor/internal/notify"
	"github.com/wangwingzero/caac-monitor/internal/observability"
	"github.com/wangwingzero/caac-monitor/internal/state"
	"github.com/wangwingzero/caac-monitor/internal/upload"
)

// fetchTimeout bounds a single headless-browser page load.
const fetchTimeout = 60 * time.Second

var runCommand = &cobra.Command{
	Use:   "run",
	Short: "Run one monitoring pass",
	Long: `Fetches the configured category listings, compares them with the stored
snapshot, downloads PDFs for new and updated documents, regenerates the JS
data files, sends notifications, and persists the new snapshot.

Credentials are read from the environment (.env is honored); flags override
paths and behavior.`,
	RunE: runMonitorCmd,
}

var (
	runDays        int
	runCategories  []string
	runPerPage     int
	runStatePath   string
	runDownloadDir string
	runJSDir       string
	runNoDownload  bool
	runNoNotify    bool
	runDryRun      bool
	runForceNotify bool
	runVerbose     bool
)

func init() {
	runCommand.Flags().IntVar(&runDays, "days", 0, "Report documents published within the last N days instead of change detection")
	runCommand.Flags().StringSliceVar(&runCategories, "categories", nil, "Category ids to check (default: 13,14,15)")
	runCommand.Flags().IntVar(&runPerPage, "perpage", 0, "Listing page size (default: 50)")
	runCommand.Flags().StringVar(&runStatePath, "state", "", "Path to the snapshot file (default: data/state.json)")
	runCommand.Flags().StringVar(&runDownloadDir, "download-dir", "", "Directory for downloaded PDFs (default: downloads)")
	runCommand.Flags().StringVar(&runJSDir, "js-dir", "", "Directory for the JS data files (default: js)")
	runCommand.Flags().BoolVar(&runNoDownload, "no-download", false, "Skip PDF download and upload")
	runCommand.Flags().BoolVar(&runNoNotify, "no-notify", false, "Skip notification delivery")
	runCommand.Flags().BoolVar(&runDryRun, "dry-run", false, "Detect changes but write and send nothing")
	runCommand.Flags().BoolVar(&runForceNotify, "force-notify", false, "Send a notification even when nothing changed")
	runCommand.Flags().BoolVarP(&runVerbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(runCommand)
}

func runMonitorCmd(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	cfg, err := config.FromEnv()
	if err != nil {
		return err
	}

	// CLI overrides take priority over environment values.
	if runDays > 0 {
		cfg.Days = runDays
	}
	if len(runCategories) > 0 {
		cfg.Categories = runCategories
	}
	if runPerPage > 0 {
		cfg.PerPage = runPerPage
	}
	if runStatePath != "" {
		cfg.StatePath = runStatePath
	}
	if runDownloadDir != "" {
		cfg.DownloadDir = runDownloadDir
	}
	if runJSDir != "" {
		cfg.JSDir = runJSDir
	}
	cfg.NoDownload = cfg.NoDownload || runNoDownload
	cfg.NoNotify = cfg.NoNotify || runNoNotify
	cfg.DryRun = cfg.DryRun || runDryRun
	cfg.ForceNotify = cfg.ForceNotify || runForceNotify

	if err := cfg.Validate(); err != nil {
		return err
	}

	log, err := buildLogger(runVerbose)
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	store := state.NewStore(cfg.StatePath, log)
	crawler := crawl.New(crawl.Config{
		Fetcher: crawl.NewBrowserFetcher(fetchTimeout, log),
		PerPage: cfg.PerPage,
	}, log)
	downloader := download.New(cfg.DownloadDir, log)
	exporter := jsdata.NewExporter(cfg.JSDir, log)

	uploader, err := upload.NewR2Uploader(ctx, upload.Credentials{
		AccountID:       cfg.R2.AccountID,
		AccessKeyID:     cfg.R2.AccessKeyID,
		SecretAccessKey: cfg.R2.SecretAccessKey,
		Bucket:          cfg.R2.Bucket,
		Domain:          cfg.R2.Domain,
	}, log)
	if err != nil {
		return fmt.Errorf("failed to set up uploader: %w", err)
	}

	notifier := buildNotifier(cfg, log)

	m := monitor.New(cfg, store, crawler, downloader, uploader, exporter, notifier, log)
	summary, err := m.Run(ctx)
	if err != nil {
		return err
	}

	if runVerbose {
		printer := observability.NewPrinter(os.Stdout)
		printer.PrintChanges(summary.Groups)
		printer.PrintSummary(summary)
	} else {
		fmt.Fprintf(os.Stdout, "Run %s: %d new, %d updated, %d downloaded, %d category errors\n",
			summary.RunID, summary.NewCount, summary.UpdatedCount, summary.Downloaded, len(summary.CategoryErrors))
	}
	return nil
}

func buildNotifier(cfg *config.Config, log *zap.Logger) *notify.Notifier {
	var channels []notify.Channel
	if cfg.Email.Enabled() {
		channels = append(channels, notify.NewEmailChannel(cfg.Email.User, cfg.Email.Password, cfg.Email.To, "", log))
	}
	if cfg.PushPlus.Enabled() {
		channels = append(channels, notify.NewPushPlusChannel(cfg.PushPlus.Token))
	}
	if cfg.Telegram.Enabled() {
		channels = append(channels, notify.NewTelegramChannel(cfg.Telegram.BotToken, cfg.Telegram.ChatID))
	}
	return notify.New(log, channels...)
}

func buildLogger(verbose bool) (*zap.Logger, error) {
	logCfg := zap.NewProductionConfig()
	logCfg.Encoding = "console"
	logCfg.EncoderConfig = zap.NewDevelopmentEncoderConfig()
	if verbose {
		logCfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	return logCfg.Build()
}
