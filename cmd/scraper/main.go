package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime/debug"
	"strconv"
	"strings"
	"time"

	"github.com/chromedp/cdproto/browser"
	"github.com/chromedp/chromedp"
	"github.com/joho/godotenv"
	"golang.org/x/time/rate"

	"fdictables/internal/config"
	"fdictables/internal/dataprocessing"
	"fdictables/internal/files"
	"fdictables/internal/infrastructure"
)

// allStates is every jurisdiction the provider reports on. The
// download form accepts up to three jurisdictions per export, so the
// scraper walks this list in groups of three.
var allStates = []string{
	"AL", "AK", "AZ", "AR", "CA", "CO", "CT", "DE", "FL", "GA",
	"HI", "ID", "IL", "IN", "IA", "KS", "KY", "LA", "ME", "MD",
	"MA", "MI", "MN", "MS", "MO", "MT", "NE", "NV", "NH", "NJ",
	"NM", "NY", "NC", "ND", "OH", "OK", "OR", "PA", "RI", "SC",
	"SD", "TN", "TX", "UT", "VT", "VA", "WA", "WV", "WI", "WY",
}

// quarterMonths are the only valid reporting months.
var quarterMonths = []string{"03", "06", "09", "12"}

// institutionTypeAll is the form value selecting all institution types.
const institutionTypeAll = "9"

// csvDownloadLink locates the CSV download anchor. The aria-label
// carries a non-breaking space between the two words.
const csvDownloadLink = "a.custom_download_link[aria-label='Download\u00a0CSV']"

func main() {
	var logger *slog.Logger
	defer func() {
		if r := recover(); r != nil {
			fmt.Printf("PANIC RECOVERED: %v\n", r)
			fmt.Printf("Stack trace:\n%s\n", debug.Stack())
			if logger != nil {
				logger.Error("Scraper panicked",
					slog.Any("panic", r),
					slog.String("stack", string(debug.Stack())))
			}
			os.Exit(1)
		}
	}()

	mode := flag.String("mode", "full", "scrape mode: full | range")
	fromStr := flag.String("from", "201903", "start period (YYYYMM, quarter months only) for range mode")
	toStr := flag.String("to", "", "end period (YYYYMM); empty = current quarter")
	statesFlag := flag.String("states", "", "comma-separated two-letter state codes; empty = all states")
	outDir := flag.String("out", "", "directory to save exports (defaults to <base>/exports)")
	headless := flag.Bool("headless", true, "run browser headless (overrides the configured value when set)")
	flag.Parse()

	headlessSet := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == "headless" {
			headlessSet = true
		}
	})

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Warn("Failed to load config, using defaults", "error", err)
		cfg = config.Default()
	}

	paths := config.NewPaths(cfg.Paths.BaseDir)
	if err := paths.EnsureDirectories(); err != nil {
		fmt.Printf("Error: Failed to create required directories: %v\n", err)
		os.Exit(1)
	}

	if *outDir == "" {
		*outDir = paths.ExportsDir
	}

	if cfg.Logging.FilePath == "" || cfg.Logging.FilePath == "logs/app.log" {
		cfg.Logging.FilePath = paths.GetLogPath("scraper.log")
	}
	logger, err = infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		slog.Warn("Failed to initialize logger, using default", "error", err)
		logger = slog.Default()
	}

	runCtx := infrastructure.ContextWithTraceID(context.Background())
	logger = infrastructure.WithComponent(infrastructure.LoggerWithContext(runCtx), "scraper")

	states := allStates
	if trimmed := strings.TrimSpace(*statesFlag); trimmed != "" {
		states = nil
		for _, code := range strings.Split(trimmed, ",") {
			states = append(states, strings.ToUpper(strings.TrimSpace(code)))
		}
	}

	quarters, err := enumerateQuarters(*mode, *fromStr, *toStr)
	if err != nil {
		logger.Error("Invalid period range", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("FDIC State Tables scraper starting",
		slog.String("mode", *mode),
		slog.Int("state_count", len(states)),
		slog.Int("quarter_count", len(quarters)),
		slog.String("output_dir", *outDir))

	discovery := files.NewDiscovery(*outDir)
	existingFiles, err := discovery.FindExportFiles(".")
	if err != nil {
		logger.Warn("Failed to scan for existing exports", slog.String("error", err.Error()))
	}
	existing := files.ExistingIdentities(existingFiles)
	logger.Info("Found existing export files", slog.Int("count", len(existing)))

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", resolveHeadless(*headless, headlessSet, cfg.Scraper)))

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(runCtx, opts...)
	defer cancelAlloc()

	ctx, cancelCtx := chromedp.NewContext(allocCtx)
	defer cancelCtx()

	// Route browser downloads into the exports directory.
	if err := chromedp.Run(ctx,
		browser.SetDownloadBehavior(browser.SetDownloadBehaviorBehaviorAllow).
			WithDownloadPath(*outDir),
	); err != nil {
		logger.Error("Failed to configure download behavior", slog.String("error", err.Error()))
		os.Exit(1)
	}

	limiter := rate.NewLimiter(rate.Every(cfg.Scraper.RequestInterval), 1)

	downloaded, skipped, failed := 0, 0, 0
	for i := 0; i < len(states); i += 3 {
		group := states[i:min(i+3, len(states))]
		for _, quarter := range quarters {
			id := files.ExportIdentity{States: group, Period: quarter}
			if existing[id.Key()] {
				skipped++
				logger.Debug("Export already downloaded, skipping",
					slog.String("identity", id.Key()))
				continue
			}

			if err := limiter.Wait(ctx); err != nil {
				logger.Error("Rate limiter interrupted", slog.String("error", err.Error()))
				os.Exit(1)
			}

			logger.Info("Downloading export",
				slog.String("states", strings.Join(group, ",")),
				slog.String("period", quarter))

			if err := downloadExport(ctx, cfg.Scraper, *outDir, id, logger); err != nil {
				failed++
				logger.Error("Download failed, continuing with next combination",
					slog.String("identity", id.Key()),
					slog.String("error", err.Error()))
				continue
			}
			downloaded++
		}
	}

	logger.Info("Scraper finished",
		slog.Int("downloaded", downloaded),
		slog.Int("skipped", skipped),
		slog.Int("failed", failed))
}

// resolveHeadless prefers an explicit -headless flag over the
// configured value.
func resolveHeadless(flagValue, flagSet bool, cfg config.ScraperConfig) bool {
	if flagSet {
		return flagValue
	}
	return cfg.Headless
}

// enumerateQuarters builds the YYYYMM period list for the run.
func enumerateQuarters(mode, fromStr, toStr string) ([]string, error) {
	switch mode {
	case "full":
		fromStr = "201903"
		toStr = ""
	case "range":
		// dates come from flags
	default:
		return nil, fmt.Errorf("unknown mode %q", mode)
	}

	if toStr == "" {
		toStr = currentQuarter()
	}

	for _, period := range []string{fromStr, toStr} {
		if err := validateQuarter(period); err != nil {
			return nil, err
		}
	}

	fromYear, _ := strconv.Atoi(fromStr[:4])
	toYear, _ := strconv.Atoi(toStr[:4])

	var quarters []string
	for year := fromYear; year <= toYear; year++ {
		for _, month := range quarterMonths {
			period := fmt.Sprintf("%d%s", year, month)
			if period >= fromStr && period <= toStr {
				quarters = append(quarters, period)
			}
		}
	}

	if len(quarters) == 0 {
		return nil, fmt.Errorf("no quarters between %s and %s", fromStr, toStr)
	}

	return quarters, nil
}

// validateQuarter checks the YYYYMM form and that the month is a
// quarter end.
func validateQuarter(period string) error {
	if len(period) != 6 {
		return fmt.Errorf("period %q must be YYYYMM", period)
	}
	if _, err := strconv.Atoi(period); err != nil {
		return fmt.Errorf("period %q must be numeric: %w", period, err)
	}
	month := period[4:]
	for _, m := range quarterMonths {
		if month == m {
			return nil
		}
	}
	return fmt.Errorf("period %q month must be one of %s", period, strings.Join(quarterMonths, ", "))
}

// currentQuarter returns the most recent completed quarter end.
func currentQuarter() string {
	now := time.Now()
	year := now.Year()
	switch {
	case now.Month() >= time.October:
		return fmt.Sprintf("%d09", year)
	case now.Month() >= time.July:
		return fmt.Sprintf("%d06", year)
	case now.Month() >= time.April:
		return fmt.Sprintf("%d03", year)
	default:
		return fmt.Sprintf("%d12", year-1)
	}
}

// downloadExport drives the provider's download form for one group of
// jurisdictions and one period, waits for the browser download to
// settle, and renames the file to its identity name.
func downloadExport(ctx context.Context, cfg config.ScraperConfig, outDir string, id files.ExportIdentity, logger *slog.Logger) error {
	discovery := files.NewDiscovery(outDir)
	before, err := snapshotCSVNames(discovery)
	if err != nil {
		return fmt.Errorf("failed to snapshot output directory: %w", err)
	}

	dlCtx, cancel := context.WithTimeout(ctx, cfg.DownloadTimeout)
	defer cancel()

	actions := []chromedp.Action{
		chromedp.Navigate(cfg.BaseURL),
		chromedp.WaitVisible("div.custom_download_buttons", chromedp.ByQuery),
	}

	for column, state := range id.States {
		institutionSel := fmt.Sprintf("app-institution-type-list[column='%d'] select", column)
		areaSel := fmt.Sprintf("app-geographical-area-list[column='%d'] select", column)
		dateSel := fmt.Sprintf("app-report-date-list[column='%d'] select", column)

		actions = append(actions,
			setSelectValue(institutionSel, institutionTypeAll),
			setSelectValue(areaSel, state),
			setSelectValue(dateSel, id.Period),
		)
	}

	actions = append(actions,
		chromedp.WaitVisible(csvDownloadLink, chromedp.ByQuery),
		chromedp.Click(csvDownloadLink, chromedp.ByQuery),
	)

	if err := chromedp.Run(dlCtx, actions...); err != nil {
		return fmt.Errorf("browser automation failed: %w", err)
	}

	newFile, err := waitForDownload(dlCtx, discovery, before)
	if err != nil {
		return err
	}

	target, err := renameToIdentity(newFile, outDir, id, logger)
	if err != nil {
		return err
	}

	validateDownload(target, id, logger)
	return nil
}

// validateDownload runs a structural check on a saved export and logs
// what it finds. A malformed download stays on disk for inspection and
// does not fail the run; the processor will skip it later anyway.
func validateDownload(path string, id files.ExportIdentity, logger *slog.Logger) {
	states, err := dataprocessing.ValidateExport(path)
	if err != nil {
		logger.Error("Downloaded export failed validation",
			slog.String("file", filepath.Base(path)),
			slog.String("error", err.Error()))
		return
	}

	if len(states) != len(id.States) {
		logger.Warn("Downloaded export carries an unexpected jurisdiction count",
			slog.String("file", filepath.Base(path)),
			slog.Int("expected", len(id.States)),
			slog.Int("actual", len(states)))
		return
	}

	logger.Info("Downloaded export validated",
		slog.String("file", filepath.Base(path)),
		slog.Int("jurisdiction_count", len(states)))
}

// setSelectValue sets a <select> element's value and dispatches a
// change event so the Angular form reacts to it.
func setSelectValue(selector, value string) chromedp.Action {
	script := fmt.Sprintf(
		`(() => { const el = document.querySelector(%q); el.value = %q; el.dispatchEvent(new Event('change', { bubbles: true })); })()`,
		selector, value)
	return chromedp.Tasks{
		chromedp.WaitVisible(selector, chromedp.ByQuery),
		chromedp.Evaluate(script, nil),
	}
}

// snapshotCSVNames records the CSV files already present so a new
// download can be told apart from them.
func snapshotCSVNames(discovery *files.Discovery) (map[string]bool, error) {
	csvFiles, err := discovery.FindCSVFiles(".")
	if err != nil {
		return nil, err
	}
	names := make(map[string]bool, len(csvFiles))
	for _, file := range csvFiles {
		names[file.Name] = true
	}
	return names, nil
}

// waitForDownload polls the output directory until a new, fully
// written CSV appears or the context expires. The newest arrival is
// the download in progress.
func waitForDownload(ctx context.Context, discovery *files.Discovery, before map[string]bool) (string, error) {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	var lastName string
	var lastSize int64 = -1
	for {
		select {
		case <-ctx.Done():
			return "", fmt.Errorf("timed out waiting for download: %w", ctx.Err())
		case <-ticker.C:
			csvFiles, err := discovery.FindCSVFiles(".")
			if err != nil {
				return "", err
			}

			var fresh []files.FileInfo
			for _, file := range csvFiles {
				if !before[file.Name] {
					fresh = append(fresh, file)
				}
			}

			latest, ok := files.GetLatestFile(fresh)
			if !ok {
				continue
			}
			// Two consecutive polls with the same size means the
			// browser has finished writing.
			if latest.Name == lastName && latest.Size > 0 && latest.Size == lastSize {
				return latest.Path, nil
			}
			lastName, lastSize = latest.Name, latest.Size
		}
	}
}

// renameToIdentity renames a freshly downloaded file to its encoded
// identity name, adding a timestamp suffix on collision. Returns the
// final path.
func renameToIdentity(path, outDir string, id files.ExportIdentity, logger *slog.Logger) (string, error) {
	target := filepath.Join(outDir, id.FileName())
	if _, err := os.Stat(target); err == nil {
		stamp := time.Now().Format("20060102_150405")
		target = filepath.Join(outDir, fmt.Sprintf("%s_%s.csv", id.Key(), stamp))
	}

	if err := os.Rename(path, target); err != nil {
		return "", fmt.Errorf("failed to rename download: %w", err)
	}

	logger.Info("Export saved",
		slog.String("file", filepath.Base(target)))
	return target, nil
}
