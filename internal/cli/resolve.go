package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ppiankov/wikipub/internal/extract"
	"github.com/ppiankov/wikipub/internal/logging"
	"github.com/ppiankov/wikipub/internal/model"
	"github.com/ppiankov/wikipub/internal/reconcile"
	"github.com/ppiankov/wikipub/internal/resolve"
	"github.com/ppiankov/wikipub/internal/wiki"
)

// resolveCmd represents the resolve command
var resolveCmd = &cobra.Command{
	Use:   "resolve <title>",
	Short: "Show what wikipub would do for one page, without editing",
	Long: `Resolve looks up a page, reads its navigation template, resolves the work
it was published in and prints the decision the reconciler would propose.
Nothing is written and no confirmation is asked.

Example:
  wikipub resolve "Lumír/1925/Číslo 3/Básně"
  wikipub resolve --lang de "Die Gartenlaube (1875)/Heft 1"`,
	Args: cobra.ExactArgs(1),
	RunE: runResolve,
}

func init() {
	rootCmd.AddCommand(resolveCmd)

	resolveCmd.Flags().StringVar(&language, "lang", "", "Wikisource language (e.g. cs, de)")
	resolveCmd.Flags().StringVar(&site, "site", "", "site id of the page wiki")
	resolveCmd.Flags().StringVar(&sourceAPI, "source-api", "", "api.php URL of the page wiki")
	resolveCmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the page cache")
	resolveCmd.Flags().IntVar(&searchLimit, "search-limit", 0, "maximum similar-title search hits")
}

// resolution is the printed result of the resolve command
type resolution struct {
	Page       string             `json:"page"`
	Item       model.ItemID       `json:"item,omitempty"`
	Navigation extract.Navigation `json:"navigation"`
	Resolution model.Resolution   `json:"resolution"`
	Claims     []model.Claim      `json:"claims,omitempty"`
	Decision   *model.Decision    `json:"decision,omitempty"`
}

func runResolve(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyWikiFlags(cmd, cfg)
	cfg.Session.DryRun = true
	log := newLogger(cfg)
	ctx := logging.WithLogger(context.Background(), &log)

	s, err := connect(ctx, cfg, nil, log)
	if err != nil {
		return err
	}

	page := model.ParsePath(args[0])
	if page.IsZero() {
		return fmt.Errorf("empty title")
	}
	out := resolution{Page: page.String()}

	text, err := s.pages.Text(ctx, page)
	if err != nil {
		return fmt.Errorf("read %s: %w", page, err)
	}
	out.Navigation = extract.NewNavigationExtractor(cfg.Template).Extract(text)

	resolver := resolve.New(s.pages, s.items, resolve.Options{
		Language:    cfg.Wiki.Language,
		SearchLimit: cfg.Session.SearchLimit,
	}, log)
	out.Resolution = resolver.Resolve(ctx, page, out.Navigation)

	ref, err := wiki.LookupItem(ctx, s.items, page)
	if err != nil {
		return fmt.Errorf("look up item: %w", err)
	}
	if ref.Found() {
		out.Item = ref.ID()
		out.Claims, err = s.items.Claims(ctx, ref.ID(), cfg.Properties.PublishedIn)
		if err != nil {
			return fmt.Errorf("read claims: %w", err)
		}
		d := reconcile.New(cfg.Properties.PublishedIn).Reconcile(out.Claims, out.Resolution)
		out.Decision = &d
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
