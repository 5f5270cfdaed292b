package cli

import (
	"context"
	"fmt"
	"iter"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/wikipub/internal/logging"
	"github.com/ppiankov/wikipub/internal/metrics"
	"github.com/ppiankov/wikipub/internal/model"
	"github.com/ppiankov/wikipub/internal/pipeline"
	"github.com/ppiankov/wikipub/internal/wiki"
)

var (
	transcludes    string
	titlesFile     string
	applyAll       bool
	dryRun         bool
	nonInteractive bool
	outJSON        string
	outMD          string
	metricsFile    string
	language       string
	site           string
	sourceAPI      string
	userAgent      string
	timeout        time.Duration
	noCache        bool
	searchLimit    int
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run [titles...]",
	Short: "Align \"published in\" claims for a set of pages",
	Long: `Run processes pages one at a time: it looks up the page's Wikidata item,
resolves the work the page was published in, compares it with the item's
claims and proposes the smallest edit that aligns them.

Pages come from the command line, a titles file (one per line, # comments)
or the pages transcluding a template. Without any of these, the pages using
the navigation template are processed.

Each edit is confirmed with y(es), n(o) or a(ll); "all" applies every later
edit of the run without asking. Search matches are always picked by hand.

Example:
  wikipub run "Lumír/1925/Číslo 3/Básně"
  wikipub run --titles pages.txt --dry-run --md report.md
  wikipub run --transcludes NavigacePaP --yes --json report.json`,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)

	// Page feed flags
	runCmd.Flags().StringVar(&transcludes, "transcludes", "", "process pages transcluding this template")
	runCmd.Flags().StringVar(&titlesFile, "titles", "", "process titles listed in a file")

	// Session flags
	runCmd.Flags().BoolVarP(&applyAll, "yes", "y", false, "apply every edit without asking (search matches are still picked by hand)")
	runCmd.Flags().BoolVar(&dryRun, "dry-run", false, "propose edits but never write to Wikidata")
	runCmd.Flags().BoolVar(&nonInteractive, "non-interactive", false, "never prompt; decline edits unless --yes is set")
	runCmd.Flags().IntVar(&searchLimit, "search-limit", 0, "maximum similar-title search hits")

	// Output flags
	runCmd.Flags().StringVar(&outJSON, "json", "", "output JSON report path")
	runCmd.Flags().StringVar(&outMD, "md", "", "output Markdown report path")
	runCmd.Flags().StringVar(&metricsFile, "metrics-file", "", "write Prometheus metrics to this textfile")

	// Wiki and HTTP flags
	runCmd.Flags().StringVar(&language, "lang", "", "Wikisource language (e.g. cs, de); derives the API and site id")
	runCmd.Flags().StringVar(&site, "site", "", "site id of the page wiki (e.g. cswikisource)")
	runCmd.Flags().StringVar(&sourceAPI, "source-api", "", "api.php URL of the page wiki")
	runCmd.Flags().StringVar(&userAgent, "ua", "", "HTTP User-Agent")
	runCmd.Flags().DurationVar(&timeout, "timeout", 0, "per-request timeout")
	runCmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the page cache")
}

// applyWikiFlags copies wiki, HTTP and cache flags shared by run and resolve
func applyWikiFlags(cmd *cobra.Command, cfg *model.Config) {
	flags := cmd.Flags()
	if flags.Changed("lang") {
		cfg.Wiki.Language = language
		cfg.Wiki.SourceAPI = fmt.Sprintf("https://%s.wikisource.org/w/api.php", language)
		cfg.Wiki.Site = language + "wikisource"
	}
	if flags.Changed("site") {
		cfg.Wiki.Site = site
	}
	if flags.Changed("source-api") {
		cfg.Wiki.SourceAPI = sourceAPI
	}
	if flags.Changed("ua") {
		cfg.HTTP.UserAgent = userAgent
	}
	if flags.Changed("timeout") {
		cfg.HTTP.Timeout = timeout
	}
	if flags.Changed("no-cache") {
		cfg.Cache.Enabled = !noCache
	}
	if flags.Changed("search-limit") {
		cfg.Session.SearchLimit = searchLimit
	}
}

func applyRunFlags(cmd *cobra.Command, cfg *model.Config) {
	applyWikiFlags(cmd, cfg)

	flags := cmd.Flags()
	if flags.Changed("yes") {
		cfg.Session.ApplyAll = applyAll
	}
	if flags.Changed("dry-run") {
		cfg.Session.DryRun = dryRun
	}
	if flags.Changed("non-interactive") {
		cfg.Session.Interactive = !nonInteractive
	}
	if outJSON != "" {
		cfg.Output.JSONPath = outJSON
	}
	if outMD != "" {
		cfg.Output.MDPath = outMD
	}
	if metricsFile != "" {
		cfg.Output.MetricsFile = metricsFile
	}
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyRunFlags(cmd, cfg)
	log := newLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logging.WithLogger(ctx, &log)
	ctx, runID := logging.WithRunID(ctx, "")
	log = log.With().Str("run_id", runID).Logger()

	m := metrics.New()
	s, err := connect(ctx, cfg, m, log)
	if err != nil {
		return err
	}

	feed, err := pageFeed(ctx, cfg, s.pages, args)
	if err != nil {
		return err
	}

	r, opener := responder(cfg)
	ctrl := pipeline.NewController(cfg, pipeline.Deps{
		Pages:     s.pages,
		Items:     s.items,
		Responder: r,
		Opener:    opener,
		Metrics:   m,
		Log:       log,
	})

	if cfg.Output.Verbose {
		fmt.Fprintf(os.Stderr, "Run %s on %s (dry run: %v, apply all: %v)\n\n",
			runID, cfg.Wiki.Site, cfg.Session.DryRun, cfg.Session.ApplyAll)
	}

	report, _ := ctrl.Run(ctx, feed, model.SessionState{ApplyAll: cfg.Session.ApplyAll})

	renderer := pipeline.NewRenderer(os.Stderr)
	if err := renderer.RenderReport(report, cfg.Output.JSONPath, cfg.Output.MDPath, cfg.Output.Verbose); err != nil {
		return fmt.Errorf("render failed: %w", err)
	}
	if cfg.Output.MetricsFile != "" {
		if err := m.WriteFile(cfg.Output.MetricsFile); err != nil {
			return fmt.Errorf("write metrics: %w", err)
		}
	}

	switch {
	case report.Error != "":
		return fmt.Errorf("run stopped: %s", report.Error)
	case report.Totals.Failed > 0:
		return fmt.Errorf("%d pages failed", report.Totals.Failed)
	}
	return nil
}

// pageFeed chooses the page source: titles on the command line, a titles
// file, or a template's transclusions
func pageFeed(ctx context.Context, cfg *model.Config, pages *wiki.Pages, args []string) (iter.Seq2[model.PagePath, error], error) {
	switch {
	case len(args) > 0 && (titlesFile != "" || transcludes != ""):
		return nil, fmt.Errorf("give titles, --titles or --transcludes, not several")
	case titlesFile != "" && transcludes != "":
		return nil, fmt.Errorf("--titles and --transcludes are mutually exclusive")
	case len(args) > 0:
		return wiki.FromPaths(wiki.ParseTitles(args)), nil
	case titlesFile != "":
		paths, err := wiki.ReadTitlesFromFile(titlesFile)
		if err != nil {
			return nil, fmt.Errorf("read titles: %w", err)
		}
		return wiki.FromPaths(paths), nil
	case transcludes != "":
		return pages.Transclusions(ctx, transcludes), nil
	default:
		return pages.Transclusions(ctx, cfg.Template.Name), nil
	}
}
