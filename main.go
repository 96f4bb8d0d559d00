// stringsync — keeps Apple .strings localizations in sync with AI translation.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/lproj/stringsync/config"
	"github.com/lproj/stringsync/diff"
	"github.com/lproj/stringsync/gitrev"
	"github.com/lproj/stringsync/i18n"
	"github.com/lproj/stringsync/langmeta"
	"github.com/lproj/stringsync/pipeline"
	"github.com/lproj/stringsync/strfile"
	"github.com/lproj/stringsync/translate"
)

// Version information (set via -ldflags during build)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// ANSI colors
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[0;31m"
	colorGreen  = "\033[0;32m"
	colorYellow = "\033[1;33m"
	colorBlue   = "\033[0;34m"
)

func logInfo(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorBlue+"[INFO]"+colorReset+" "+format+"\n", args...)
}

func logSuccess(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorGreen+"[OK]"+colorReset+" "+format+"\n", args...)
}

func logWarning(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorYellow+"[WARN]"+colorReset+" "+format+"\n", args...)
}

func logError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorRed+"[ERROR]"+colorReset+" "+format+"\n", args...)
}

// ---------------------------------------------------------------------------
// Global flag
// ---------------------------------------------------------------------------

var rootDir string

// ---------------------------------------------------------------------------
// Root command
// ---------------------------------------------------------------------------

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "stringsync",
		Short: "Keep Apple .strings localizations in sync with AI translation",
		Long: `stringsync — keeps Apple .strings localizations in sync.

Diffs the source-language .strings file against a git revision, detects
untranslated gaps in each target language, batches the work under a token
ceiling, translates via a local (Ollama) or remote OpenAI-compatible
backend, and merges the results back while preserving the target files
byte-for-byte outside the touched entries.

Commands:
  status      Show project info and per-language translation coverage
  translate   Translate changed and missing keys for all target languages
  diff        Show source changes against a git revision
  gaps        List untranslated keys per target language
  parse       Validate a .strings file and dump its entries

Configuration lives in .stringsync.yaml at the project root; every flag
overrides its file counterpart.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global persistent flag — inherited by all subcommands
	root.PersistentFlags().StringVar(&rootDir, "root", ".", "Project root directory")

	root.AddCommand(
		newStatusCmd(),
		newTranslateCmd(),
		newDiffCmd(),
		newGapsCmd(),
		newParseCmd(),
		newVersionCmd(),
	)

	return root
}

func main() {
	i18n.Init("")
	if err := newRootCmd().Execute(); err != nil {
		logError("%v", err)
		os.Exit(1)
	}
}

// ---------------------------------------------------------------------------
// version (display version information)
// ---------------------------------------------------------------------------

func newVersionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  `Display version, commit hash, and build date.`,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("stringsync version %s\n", version)
			fmt.Printf("  commit:    %s\n", commit)
			fmt.Printf("  built:     %s\n", date)
		},
	}

	return cmd
}

// ---------------------------------------------------------------------------
// shared helpers
// ---------------------------------------------------------------------------

func loadConfig() *config.Config {
	cfg, err := config.Find(rootDir)
	if err != nil {
		logError("%v", err)
		os.Exit(1)
	}
	return cfg
}

// resolveSource picks the source file: flag > config > default convention.
func resolveSource(cfg *config.Config, flagSource string) string {
	if flagSource != "" {
		return flagSource
	}
	if p := cfg.SourcePath(); p != "" {
		return p
	}
	return filepath.Join(rootDir, "en.lproj", "Localizable.strings")
}

// resolveLangs picks the target languages: flag > config.
func resolveLangs(cfg *config.Config, flagLangs string) []string {
	if flagLangs != "" {
		var langs []string
		for _, l := range strings.Split(flagLangs, ",") {
			if l = strings.TrimSpace(l); l != "" {
				langs = append(langs, l)
			}
		}
		return langs
	}
	return cfg.Languages
}

// oldSourceLoader builds the pipeline's old-revision reader from a git ref.
// An empty ref means no history: every source key counts as added.
func oldSourceLoader(ref, sourcePath string) func(context.Context) ([]byte, error) {
	if ref == "" {
		return nil
	}
	return func(ctx context.Context) ([]byte, error) {
		root, err := gitrev.RepoRoot(ctx, filepath.Dir(sourcePath))
		if err != nil {
			return nil, err
		}
		data, err := gitrev.FileAtRevision(ctx, root, ref, sourcePath)
		if errors.Is(err, gitrev.ErrNotExist) {
			// On disk but never committed: nothing to compare against,
			// so every key counts as added.
			return nil, nil
		}
		return data, err
	}
}

type engineArgs struct {
	backend    string
	baseURL    string
	model      string
	apiKey     string
	proxy      string
	prompt     string
	timeout    time.Duration
	maxRetries int
	verbose    bool
}

// resolveEngine merges flags over config and constructs the backend engine.
func resolveEngine(cfg *config.Config, a engineArgs) translate.Engine {
	backend := a.backend
	if backend == "" {
		backend = cfg.Backend.Type
	}
	if backend == "" {
		backend = config.BackendLocal
	}

	key := a.apiKey
	if key == "" {
		key = os.Getenv("STRINGSYNC_API_KEY")
	}

	opts := translate.Options{
		BaseURL:      a.baseURL,
		Model:        a.model,
		APIKey:       key,
		Proxy:        a.proxy,
		Timeout:      a.timeout,
		MaxRetries:   a.maxRetries,
		SystemPrompt: a.prompt,
		Verbose:      a.verbose,
		OnLog: func(format string, args ...any) {
			logInfo(format, args...)
		},
	}
	if opts.BaseURL == "" {
		opts.BaseURL = cfg.Backend.BaseURL
	}
	if opts.Model == "" {
		opts.Model = cfg.Backend.Model
	}
	if opts.Timeout == 0 {
		opts.Timeout = time.Duration(cfg.Backend.Timeout)
	}
	if opts.MaxRetries == 0 {
		opts.MaxRetries = cfg.Backend.MaxRetries
	}
	if opts.SystemPrompt == "" {
		opts.SystemPrompt = cfg.Backend.Prompt
	}

	if opts.Model == "" {
		logError("No model specified. Use --model or set backend.model in %s", config.FileName)
		os.Exit(1)
	}

	switch backend {
	case config.BackendLocal:
		return translate.NewLocalEngine(opts)
	case config.BackendRemote:
		eng, err := translate.NewRemoteEngine(opts)
		if err != nil {
			logError("%v", err)
			os.Exit(1)
		}
		return eng
	default:
		logError("Unknown backend %q (valid: local, remote)", backend)
		os.Exit(1)
		return nil
	}
}

// signalContext returns a context cancelled on the first interrupt.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)
	go func() {
		<-sigCh
		logWarning("Interrupted, finishing in-flight work...")
		cancel()
	}()

	return ctx, cancel
}

// progressFunc renders per-language progress bars. Parallel runs fall back
// to plain log lines so concurrent bars do not fight over the terminal.
func progressFunc(parallel int, verbose bool) func(lang string, done, total int) {
	if parallel > 1 || verbose {
		return func(lang string, done, total int) {
			logInfo("  %s: %d/%d batches", lang, done, total)
		}
	}

	var mu sync.Mutex
	bars := map[string]*progressbar.ProgressBar{}
	return func(lang string, done, total int) {
		mu.Lock()
		defer mu.Unlock()
		bar, ok := bars[lang]
		if !ok {
			bar = progressbar.NewOptions(total,
				progressbar.OptionEnableColorCodes(true),
				progressbar.OptionShowCount(),
				progressbar.OptionSetWidth(40),
				progressbar.OptionSetDescription(fmt.Sprintf("[cyan]%s[reset]", lang)),
				progressbar.OptionSetTheme(progressbar.Theme{
					Saucer:        "[green]=[reset]",
					SaucerHead:    "[green]>[reset]",
					SaucerPadding: " ",
					BarStart:      "[",
					BarEnd:        "]",
				}))
			bars[lang] = bar
		}
		_ = bar.Set(done)
		if done >= total {
			_ = bar.Finish()
			fmt.Fprintln(os.Stderr)
			delete(bars, lang)
		}
	}
}

// ---------------------------------------------------------------------------
// translate (the whole pipeline: diff, gaps, batch, translate, merge)
// ---------------------------------------------------------------------------

func newTranslateCmd() *cobra.Command {
	var (
		// Target selection
		source string
		langs  string
		ref    string

		// Backend selection
		backend string
		baseURL string
		model   string
		apiKey  string
		proxy   string

		// Translation behavior
		maxTokens int
		prompt    string
		verbose   bool
		dryRun    bool

		// Parallelization
		parallel int

		// Network
		timeout    time.Duration
		maxRetries int
	)

	cmd := &cobra.Command{
		Use:   "translate",
		Short: "Translate changed and missing keys using AI",
		Long: `Translate changed and missing keys for all target languages.

Diffs the source .strings file against --ref (keys added or with changed
values need re-translation), detects untranslated gaps in each target
file, batches the work under the --max-tokens ceiling, calls the backend,
and merges translations back preserving untouched lines byte-for-byte.

Examples:
  # Translate using a local Ollama server
  stringsync translate --model llama3.2

  # Translate against a remote OpenAI-compatible endpoint
  stringsync translate --backend remote --base-url https://api.openai.com/v1 --model gpt-4o

  # Only specific languages, four at a time
  stringsync translate --model llama3.2 --lang de,fr,ja --parallel 4

  # Show what would be translated without calling the backend
  stringsync translate --model llama3.2 --dry-run`,
		Run: func(cmd *cobra.Command, args []string) {
			runTranslate(translateArgs{
				source: source, langs: langs, ref: ref,
				refSet:  cmd.Flags().Changed("ref"),
				backend: backend, baseURL: baseURL, model: model,
				apiKey: apiKey, proxy: proxy,
				maxTokens: maxTokens, maxTokensSet: cmd.Flags().Changed("max-tokens"),
				prompt: prompt, verbose: verbose, dryRun: dryRun,
				parallel: parallel, parallelSet: cmd.Flags().Changed("parallel"),
				timeout: timeout, maxRetries: maxRetries,
			})
		},
	}

	// Backend selection
	cmd.Flags().StringVar(&backend, "backend", "", "Translation backend: local (Ollama) or remote (OpenAI-compatible)")
	cmd.Flags().StringVar(&model, "model", "", "Model name")
	cmd.Flags().StringVar(&apiKey, "api-key", "", "API key for remote backends (or STRINGSYNC_API_KEY env var)")
	cmd.Flags().StringVar(&baseURL, "base-url", "", "Custom API base URL")

	// Target selection
	cmd.Flags().StringVar(&source, "source", "", "Source .strings file (default from config)")
	cmd.Flags().StringVar(&langs, "lang", "", "Languages to translate (comma-separated, default: all configured)")
	cmd.Flags().StringVar(&ref, "ref", "", "Git revision to diff the source against (default HEAD; 'none' disables)")

	// Translation behavior
	cmd.Flags().IntVar(&maxTokens, "max-tokens", 0, "Estimated token ceiling per batch (0 = config default)")
	cmd.Flags().StringVar(&prompt, "prompt", "", "Custom system prompt (use {{targetLang}} placeholder)")
	cmd.Flags().BoolVar(&verbose, "verbose", false, "Enable detailed logging")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Show what would be translated without calling the backend")

	// Parallelization
	cmd.Flags().IntVar(&parallel, "parallel", 0, "Languages translated concurrently (0 = config default)")

	// Network
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "Request timeout (0 = backend default)")
	cmd.Flags().StringVar(&proxy, "proxy", "", "HTTP/HTTPS proxy URL")
	cmd.Flags().IntVar(&maxRetries, "max-retries", 0, "Maximum retries on rate limit and server errors")

	// Backend completion
	_ = cmd.RegisterFlagCompletionFunc("backend", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return []string{
			"local\tOllama local server",
			"remote\tOpenAI-compatible endpoint (requires --base-url)",
		}, cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}

type translateArgs struct {
	source, langs, ref      string
	refSet                  bool
	backend, baseURL, model string
	apiKey, proxy           string
	maxTokens               int
	maxTokensSet            bool
	prompt                  string
	verbose, dryRun         bool
	parallel                int
	parallelSet             bool
	timeout                 time.Duration
	maxRetries              int
}

func runTranslate(a translateArgs) {
	cfg := loadConfig()

	sourcePath := resolveSource(cfg, a.source)
	targetLangs := resolveLangs(cfg, a.langs)
	if len(targetLangs) == 0 {
		logError("No target languages. Specify them with --lang or in %s, e.g.:", config.FileName)
		fmt.Fprintf(os.Stderr, "  stringsync translate --lang de,fr,ja --model llama3.2\n")
		os.Exit(1)
	}

	ref := cfg.Ref
	if a.refSet {
		ref = a.ref
	}
	if ref == "none" {
		ref = ""
	}

	maxTokens := cfg.MaxTokens
	if a.maxTokensSet {
		maxTokens = a.maxTokens
	}
	parallel := cfg.Parallel
	if a.parallelSet {
		parallel = a.parallel
	}

	engine := resolveEngine(cfg, engineArgs{
		backend: a.backend, baseURL: a.baseURL, model: a.model,
		apiKey: a.apiKey, proxy: a.proxy, prompt: a.prompt,
		timeout: a.timeout, maxRetries: a.maxRetries, verbose: a.verbose,
	})

	logInfo("Backend: %s, Model: %s", engine.Name(), firstNonEmpty(a.model, cfg.Backend.Model))
	if ref != "" {
		logInfo("Diffing %s against %s", sourcePath, ref)
	} else {
		logInfo("No revision to diff against, treating every key as new")
	}
	logInfo("Languages: %s", strings.Join(targetLangs, ", "))

	ctx, cancel := signalContext()
	defer cancel()

	if !a.dryRun {
		if err := engine.Ping(ctx); err != nil {
			logError(i18n.T("Backend is not reachable: %v"), err)
			os.Exit(1)
		}
	}

	opts := pipeline.Options{
		SourcePath:  sourcePath,
		SourceLang:  cfg.SourceLang,
		Languages:   targetLangs,
		OldSource:   oldSourceLoader(ref, sourcePath),
		Engine:      engine,
		MaxTokens:   maxTokens,
		Parallel:    parallel,
		DryRun:      a.dryRun,
		CallTimeout: a.timeout,
		OnLog: func(format string, args ...any) {
			if a.verbose {
				logInfo(format, args...)
			}
		},
		OnProgress: progressFunc(parallel, a.verbose),
	}

	report, err := pipeline.New(opts).Run(ctx)
	if err != nil {
		if ctx.Err() != nil {
			logWarning("Translation interrupted")
			os.Exit(1)
		}
		logError("%v", err)
		os.Exit(1)
	}

	printReport(report)
	if !report.Ok() {
		os.Exit(1)
	}
}

// firstNonEmpty returns the first non-empty string.
func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}

func printReport(r *pipeline.Report) {
	if r.DryRun {
		for i := range r.Languages {
			lr := &r.Languages[i]
			if lr.Err != nil {
				logError("%s: %v", lr.Lang, lr.Err)
				continue
			}
			if len(lr.Items) == 0 {
				logInfo("%s: up to date", lr.Lang)
				continue
			}
			logInfo("%s: %d keys in %d batches -> %s", lr.Lang, len(lr.Items), len(lr.Batches), lr.Path)
			for _, it := range lr.Items {
				fmt.Printf("  %s  [%s]\n", it.Key, it.Reason)
			}
		}
		logInfo(i18n.T("Dry run, no files were written."))
		return
	}

	translated := 0
	for i := range r.Languages {
		lr := &r.Languages[i]
		meta := langmeta.Resolve(lr.Lang)
		switch {
		case lr.Err != nil:
			logError("%s (%s): %v", lr.Lang, meta.Name, lr.Err)
		case len(lr.KeyErrors) > 0:
			logWarning("%s (%s): %d updated, %d added, %d failed",
				lr.Lang, meta.Name, len(lr.Merge.Updated), len(lr.Merge.Added), len(lr.KeyErrors))
			for _, ke := range lr.KeyErrors {
				logWarning("  %q: %v", ke.Key, ke.Err)
			}
		case !lr.Merge.Changed() && len(lr.Items) == 0:
			logInfo("%s (%s): up to date", lr.Lang, meta.Name)
		default:
			logSuccess("%s (%s): %d updated, %d added, %d removed -> %s",
				lr.Lang, meta.Name, len(lr.Merge.Updated), len(lr.Merge.Added), len(lr.Merge.Removed), lr.Path)
		}
		translated += len(lr.Merge.Updated) + len(lr.Merge.Added)
	}

	if failed := r.FailedKeys(); failed > 0 {
		logError(i18n.N("%d key failed", "%d keys failed", failed), failed)
	} else if translated == 0 {
		logSuccess(i18n.T("All languages are up to date."))
	} else {
		logSuccess(i18n.N("%d key translated", "%d keys translated", translated), translated)
	}
}

// ---------------------------------------------------------------------------
// diff (read-only: source changes against a revision)
// ---------------------------------------------------------------------------

func newDiffCmd() *cobra.Command {
	var (
		source string
		ref    string
	)

	cmd := &cobra.Command{
		Use:   "diff",
		Short: "Show source changes against a git revision",
		Long: `Show which source keys were added, modified, or removed since a
git revision. Comment-only edits are not listed; they never trigger
re-translation.`,
		Run: func(cmd *cobra.Command, args []string) {
			runDiff(source, ref)
		},
	}

	cmd.Flags().StringVar(&source, "source", "", "Source .strings file (default from config)")
	cmd.Flags().StringVar(&ref, "ref", "", "Git revision to diff against (default HEAD)")

	return cmd
}

func runDiff(source, ref string) {
	cfg := loadConfig()
	sourcePath := resolveSource(cfg, source)
	if ref == "" {
		ref = cfg.Ref
	}

	cur, err := strfile.ParseFile(sourcePath)
	if err != nil {
		logError("Reading %s: %v", sourcePath, err)
		os.Exit(1)
	}

	ctx, cancel := signalContext()
	defer cancel()

	old := strfile.New()
	if load := oldSourceLoader(ref, sourcePath); load != nil {
		data, err := load(ctx)
		if err != nil {
			logError("Reading %s at %s: %v", sourcePath, ref, err)
			os.Exit(1)
		}
		if data != nil {
			if old, err = strfile.Parse(data); err != nil {
				logError("Parsing %s at %s: %v", sourcePath, ref, err)
				os.Exit(1)
			}
		}
	}

	changes := diff.Diff(old, cur)
	if changes.Empty() {
		logSuccess("No changes since %s", ref)
		return
	}
	for _, k := range changes.Added {
		fmt.Printf("+ %s\n", k)
	}
	for _, k := range changes.Modified {
		fmt.Printf("~ %s\n", k)
	}
	for _, k := range changes.Removed {
		fmt.Printf("- %s\n", k)
	}
	logInfo("%d added, %d modified, %d removed",
		len(changes.Added), len(changes.Modified), len(changes.Removed))
}

// ---------------------------------------------------------------------------
// gaps (read-only: untranslated keys per language)
// ---------------------------------------------------------------------------

func newGapsCmd() *cobra.Command {
	var (
		source string
		langs  string
	)

	cmd := &cobra.Command{
		Use:   "gaps",
		Short: "List untranslated keys per target language",
		Long: `List keys present in the source file but missing (or empty) in each
target language file. A missing target file means every key is a gap.`,
		Run: func(cmd *cobra.Command, args []string) {
			runGaps(source, langs)
		},
	}

	cmd.Flags().StringVar(&source, "source", "", "Source .strings file (default from config)")
	cmd.Flags().StringVar(&langs, "lang", "", "Languages to check (comma-separated, default: all configured)")

	return cmd
}

func runGaps(source, langs string) {
	cfg := loadConfig()
	sourcePath := resolveSource(cfg, source)
	targetLangs := resolveLangs(cfg, langs)
	if len(targetLangs) == 0 {
		logError("No target languages. Specify them with --lang or in %s", config.FileName)
		os.Exit(1)
	}

	src, err := strfile.ParseFile(sourcePath)
	if err != nil {
		logError("Reading %s: %v", sourcePath, err)
		os.Exit(1)
	}

	total := 0
	for _, lang := range targetLangs {
		path := pipeline.DefaultTargetPath(sourcePath, lang)
		target := strfile.New()
		if _, err := os.Stat(path); err == nil {
			if target, err = strfile.ParseFile(path); err != nil {
				logError("Reading %s: %v", path, err)
				continue
			}
		}
		gaps := diff.Gaps(src, target)
		total += len(gaps)
		if len(gaps) == 0 {
			logSuccess("%s: complete (%d keys)", lang, src.Len())
			continue
		}
		logInfo("%s: %d of %d keys untranslated", lang, len(gaps), src.Len())
		for _, k := range gaps {
			fmt.Printf("  %s\n", k)
		}
	}
	if total == 0 {
		logSuccess(i18n.T("All languages are up to date."))
	}
}

// ---------------------------------------------------------------------------
// parse (read-only: validate a .strings file)
// ---------------------------------------------------------------------------

func newParseCmd() *cobra.Command {
	var dump bool

	cmd := &cobra.Command{
		Use:   "parse <file.strings>",
		Short: "Validate a .strings file and dump its entries",
		Long: `Parse a .strings file, report format errors with line numbers, and
optionally dump the decoded entries. Exits non-zero on malformed input.`,
		Args: cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			runParse(args[0], dump)
		},
	}

	cmd.Flags().BoolVar(&dump, "entries", false, "Dump decoded key/value pairs")

	return cmd
}

func runParse(path string, dump bool) {
	f, err := strfile.ParseFile(path)
	if err != nil {
		logError("%s: %v", path, err)
		os.Exit(1)
	}

	for _, w := range f.Warnings {
		logWarning("%s: %s", path, w)
	}

	logSuccess("%s: %d entries, %s", path, f.Len(), f.Encoding)
	if dump {
		for _, e := range f.Entries() {
			if e.Comment != "" {
				fmt.Printf("# %s\n", e.Comment)
			}
			fmt.Printf("%s = %s\n", e.Key, e.Value)
		}
	}
}

// ---------------------------------------------------------------------------
// status (read-only: project info + per-language coverage)
// ---------------------------------------------------------------------------

func newStatusCmd() *cobra.Command {
	var ping bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show project info and per-language translation coverage",
		Long: `Show the resolved configuration, source file statistics, and
per-language translation coverage. Does not modify any files.`,
		Run: func(cmd *cobra.Command, args []string) {
			runStatus(ping)
		},
	}

	cmd.Flags().BoolVar(&ping, "ping", false, "Probe the configured backend for availability")

	return cmd
}

func runStatus(ping bool) {
	cfg := loadConfig()
	sourcePath := resolveSource(cfg, "")

	fmt.Printf("Project root:    %s\n", firstNonEmpty(cfg.Dir, rootDir))
	fmt.Printf("Source file:     %s (%s)\n", sourcePath, langmeta.Resolve(cfg.SourceLang).Name)
	fmt.Printf("Diff revision:   %s\n", cfg.Ref)
	fmt.Printf("Backend:         %s", cfg.Backend.Type)
	if cfg.Backend.Model != "" {
		fmt.Printf(" (%s)", cfg.Backend.Model)
	}
	fmt.Println()

	src, err := strfile.ParseFile(sourcePath)
	if err != nil {
		logError("Reading %s: %v", sourcePath, err)
		os.Exit(1)
	}
	fmt.Printf("Source keys:     %d (%s)\n", src.Len(), src.Encoding)
	fmt.Println()

	langs := append([]string(nil), cfg.Languages...)
	sort.Strings(langs)
	if len(langs) == 0 {
		logWarning("No target languages configured in %s", config.FileName)
	}

	for _, lang := range langs {
		meta := langmeta.Resolve(lang)
		path := pipeline.DefaultTargetPath(sourcePath, lang)

		target := strfile.New()
		exists := false
		if _, err := os.Stat(path); err == nil {
			exists = true
			if target, err = strfile.ParseFile(path); err != nil {
				fmt.Printf("  %s %-8s %-20s parse error: %v\n", meta.Flag, lang, meta.Native, err)
				continue
			}
		}

		gaps := diff.Gaps(src, target)
		done := src.Len() - len(gaps)
		pct := 0
		if src.Len() > 0 {
			pct = done * 100 / src.Len()
		}
		note := ""
		if !exists {
			note = " (file missing)"
		}
		fmt.Printf("  %s %-8s %-20s %3d%% (%d/%d)%s\n",
			meta.Flag, lang, meta.Native, pct, done, src.Len(), note)
	}

	if ping {
		fmt.Println()
		engine := resolveEngine(cfg, engineArgs{})
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := engine.Ping(ctx); err != nil {
			logError(i18n.T("Backend is not reachable: %v"), err)
			os.Exit(1)
		}
		logSuccess("Backend %s is reachable", engine.Name())
	}
}
