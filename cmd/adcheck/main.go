// Command adcheck checks dealership web pages against state advertising
// rules.
//
// Usage:
//
//	adcheck -state OK -type VDP https://dealer.example/used/2021-jeep.htm
//	adcheck -config adcheck.yaml -state CA -parallel 4 url1 url2 url3
//	adcheck -state TX -skip-visual https://dealer.example/
//	adcheck -templates                         # list extraction templates
//	adcheck -decisions dealer.com_vdp          # list cached verdicts
//	adcheck -invalidate-template dealer.com_vdp [-invalidate-rule price_proximity]
//	adcheck -override-url https://dealer.example/ -override-file selectors.yaml
//	adcheck -usage 24h                         # model usage and cost
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hazyhaar/adcheck/analyzer"
	"github.com/hazyhaar/adcheck/browser"
	"github.com/hazyhaar/adcheck/check"
	"github.com/hazyhaar/adcheck/decisions"
	"github.com/hazyhaar/adcheck/extract"
	"github.com/hazyhaar/adcheck/internal/config"
	"github.com/hazyhaar/adcheck/internal/store"
	"github.com/hazyhaar/adcheck/llm"
	"github.com/hazyhaar/adcheck/rules"
	"github.com/hazyhaar/adcheck/templates"
)

type options struct {
	configPath string
	dbPath     string
	state      string
	urlType    string
	skipVisual bool
	template   string
	parallel   int

	listTemplates      bool
	listStates         bool
	listDecisions      string
	invalidateTemplate string
	invalidateRule     string
	overrideURL        string
	overrideFile       string
	usage              string
}

func main() {
	var o options
	flag.StringVar(&o.configPath, "config", "", "path to adcheck.yaml config file")
	flag.StringVar(&o.dbPath, "db", "", "path to SQLite database (overrides config)")
	flag.StringVar(&o.state, "state", "", "state code whose rules apply (OK, CA, TX, NY)")
	flag.StringVar(&o.urlType, "type", rules.PageVDP, "page type: VDP, INVENTORY, HOMEPAGE, ABOUT, SPECIALS, SERVICE, FINANCING")
	flag.BoolVar(&o.skipVisual, "skip-visual", false, "text analysis only")
	flag.StringVar(&o.template, "template", "", "extraction template to try first")
	flag.IntVar(&o.parallel, "parallel", 0, "concurrent checks (default from config)")
	flag.BoolVar(&o.listTemplates, "templates", false, "list extraction templates and exit")
	flag.BoolVar(&o.listStates, "states", false, "list states with rules and exit")
	flag.StringVar(&o.listDecisions, "decisions", "", "list cached verdicts for a template id (\"all\" for every template) and exit")
	flag.StringVar(&o.invalidateTemplate, "invalidate-template", "", "drop cached verdicts of a template id and exit")
	flag.StringVar(&o.invalidateRule, "invalidate-rule", "", "with -invalidate-template, drop only this rule key")
	flag.StringVar(&o.overrideURL, "override-url", "", "create a per-domain template for this URL from -override-file")
	flag.StringVar(&o.overrideFile, "override-file", "", "YAML selector map for -override-url")
	flag.StringVar(&o.usage, "usage", "", "show model usage over a period (e.g. 24h, 0 for all) and exit")
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn, error")
	flag.Parse()

	var level slog.Level
	switch *logLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger, o, flag.Args()); err != nil {
		logger.Error("adcheck: fatal", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger, o options, urls []string) error {
	cfg, err := resolveConfig(o.configPath, o.dbPath)
	if err != nil {
		return err
	}

	provider := rules.NewProvider()
	if cfg.RulesFile != "" {
		n, err := provider.LoadFile(cfg.RulesFile)
		if err != nil {
			return err
		}
		logger.Info("adcheck: rules loaded", "file", cfg.RulesFile, "states", n)
	}
	if o.listStates {
		return printJSON(provider.States())
	}

	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	reg := templates.NewRegistry(st, logger)
	var extra []*extract.Template
	if cfg.TemplatesFile != "" {
		if extra, err = templates.LoadFile(cfg.TemplatesFile); err != nil {
			return err
		}
	}
	if err := reg.Seed(ctx, extra...); err != nil {
		return err
	}
	cache := decisions.New(st, logger)

	if done, err := runAdmin(ctx, o, st, reg, cache); done || err != nil {
		return err
	}

	if len(urls) == 0 {
		flag.Usage()
		return fmt.Errorf("no URLs to check")
	}
	if o.state == "" {
		return fmt.Errorf("-state is required")
	}
	if !rules.KnownPageType(o.urlType) {
		logger.Warn("adcheck: unknown page type, VDP instructions apply", "type", o.urlType)
	}

	checker, closeFn, err := newChecker(cfg, st, reg, cache, provider, logger)
	if err != nil {
		return err
	}
	defer closeFn()

	reqs := make([]check.Request, len(urls))
	for i, u := range urls {
		reqs[i] = check.Request{
			URL:              u,
			Jurisdiction:     o.state,
			URLType:          rules.NormalizePageType(o.urlType),
			SkipVisual:       o.skipVisual,
			TemplateOverride: o.template,
		}
	}

	if len(reqs) == 1 {
		res, err := checker.CheckURL(ctx, reqs[0])
		if err != nil {
			return err
		}
		return printJSON(res)
	}

	parallel := o.parallel
	if parallel <= 0 {
		parallel = cfg.Check.Parallelism
	}
	outcomes := checker.CheckURLs(ctx, reqs, parallel)
	if err := printJSON(outcomes); err != nil {
		return err
	}
	failed := 0
	for _, out := range outcomes {
		if out.Err != nil {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d checks failed", failed, len(outcomes))
	}
	return nil
}

// newChecker builds the model clients, the browser and the pipeline. The
// returned func shuts the browser down.
func newChecker(cfg *config.Config, st *store.Store, reg *templates.Registry, cache *decisions.Cache, provider *rules.Provider, logger *slog.Logger) (*check.Checker, func(), error) {
	cfg.TextModel.Logger = logger
	cfg.VisualModel.Logger = logger
	textClient, err := llm.New(cfg.TextModel)
	if err != nil {
		return nil, nil, fmt.Errorf("text model: %w", err)
	}
	visualClient, err := llm.New(cfg.VisualModel)
	if err != nil {
		return nil, nil, fmt.Errorf("visual model: %w", err)
	}
	textClient = llm.NewRecorder(textClient, st, providerName(cfg.TextModel), cfg.TextModel.Model, logger)
	visualClient = llm.NewRecorder(visualClient, st, providerName(cfg.VisualModel), cfg.VisualModel.Model, logger)

	bcfg := cfg.Browser.BrowserManager()
	bcfg.Logger = logger
	mgr := browser.NewManager(bcfg)

	ccfg := check.Config{
		Browser:             mgr,
		Templates:           reg,
		Decisions:           cache,
		Text:                analyzer.NewTextAnalyzer(textClient, logger),
		Visual:              analyzer.NewVisualVerifier(visualClient, cfg.ScreenshotDir, logger),
		Rules:               provider,
		ArchiveDir:          cfg.ArchiveDir,
		EscalationThreshold: cfg.Check.EscalationThreshold,
		CacheThreshold:      cfg.Check.CacheThreshold,
		Logger:              logger,
	}
	if cfg.Browser.FetchMode == config.FetchAuto {
		ccfg.Static = browser.NewStaticFetcher(
			browser.WithUserAgent(cfg.Browser.UserAgent),
			browser.WithLogger(logger),
		)
	}
	checker, err := check.New(ccfg)
	if err != nil {
		mgr.Close()
		return nil, nil, err
	}
	return checker, func() { mgr.Close() }, nil
}

func providerName(c llm.Config) string {
	if c.Provider == "" {
		return llm.ProviderOpenAI
	}
	return c.Provider
}

func resolveConfig(configPath, dbPath string) (*config.Config, error) {
	cfg := config.Default()
	if configPath != "" {
		var err error
		if cfg, err = config.LoadFile(configPath); err != nil {
			return nil, err
		}
	}
	if dbPath != "" {
		cfg.DBPath = dbPath
	}
	return cfg, nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
