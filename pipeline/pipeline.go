// Package pipeline orchestrates the per-language translation flow:
// diff the source against its old revision, detect gaps in each target
// file, compose token-bounded batches, translate them, and merge the
// results back. Languages run sequentially or on a bounded worker pool;
// each language owns its target file exclusively.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/lproj/stringsync/batch"
	"github.com/lproj/stringsync/diff"
	"github.com/lproj/stringsync/merge"
	"github.com/lproj/stringsync/strfile"
	"github.com/lproj/stringsync/translate"
)

// State tracks a language's progress through the pipeline.
type State int

const (
	StatePending State = iota
	StateDiffing
	StateBatching
	StateTranslating
	StateMerging
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateDiffing:
		return "diffing"
	case StateBatching:
		return "batching"
	case StateTranslating:
		return "translating"
	case StateMerging:
		return "merging"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// StorageError means a target file could not be read or written. It is
// fatal for that language only; other languages continue.
type StorageError struct {
	Path string
	Err  error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Path, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// KeyError records one key whose translation failed.
type KeyError struct {
	Key string
	Err error
}

// Options configures a run. All inputs are explicit; the orchestrator
// keeps no ambient state between runs.
type Options struct {
	// SourcePath is the source-language .strings file.
	SourcePath string
	// SourceLang is the source language code (default "en").
	SourceLang string
	// Languages are the target language codes, one pipeline each.
	Languages []string
	// OldSource supplies the source file's bytes at the old revision,
	// typically backed by the version-control system. Nil (or a nil
	// byte slice) means no old revision: every source key counts as
	// added.
	OldSource func(ctx context.Context) ([]byte, error)
	// Engine performs the actual translation calls.
	Engine translate.Engine
	// MaxTokens is the per-batch estimated token ceiling (0 = one batch).
	MaxTokens int
	// Estimate overrides the token estimator (default batch.DefaultEstimator).
	Estimate batch.Estimator
	// Parallel is the language fan-out (<=1 = sequential).
	Parallel int
	// DryRun stops after batching and reports what would be translated.
	DryRun bool
	// TargetPath overrides target file resolution. The default follows
	// the .lproj convention: <base>/<lang>.lproj/<source file name>.
	TargetPath func(sourcePath, lang string) string
	// CallTimeout bounds a single translation call (0 = engine default).
	CallTimeout time.Duration

	// OnLog emits progress messages.
	OnLog func(format string, args ...any)
	// OnProgress is called after each batch of a language completes.
	OnProgress func(lang string, done, total int)
}

func (o *Options) log(format string, args ...any) {
	if o.OnLog != nil {
		o.OnLog(format, args...)
	}
}

func (o *Options) progress(lang string, done, total int) {
	if o.OnProgress != nil {
		o.OnProgress(lang, done, total)
	}
}

func (o *Options) sourceLang() string {
	if o.SourceLang != "" {
		return o.SourceLang
	}
	return "en"
}

func (o *Options) targetPath(lang string) string {
	if o.TargetPath != nil {
		return o.TargetPath(o.SourcePath, lang)
	}
	return DefaultTargetPath(o.SourcePath, lang)
}

// DefaultTargetPath maps en.lproj/Localizable.strings to
// <lang>.lproj/Localizable.strings next to it. Sources outside an
// .lproj directory get sibling <lang>.strings files.
func DefaultTargetPath(sourcePath, lang string) string {
	dir := filepath.Dir(sourcePath)
	if filepath.Ext(dir) == ".lproj" {
		return filepath.Join(filepath.Dir(dir), lang+".lproj", filepath.Base(sourcePath))
	}
	return filepath.Join(dir, lang+".strings")
}

// LangReport is the outcome of one language's pipeline.
type LangReport struct {
	Lang  string
	State State
	Path  string

	// Items and Batches are what the language would translate; filled
	// in dry runs and real runs alike, before any backend call.
	Items   []batch.WorkItem
	Batches []batch.Batch

	// Merge summarizes the applied changes (zero value in dry runs).
	Merge merge.Stats
	// KeyErrors lists keys that failed even after the single-item retry.
	KeyErrors []KeyError
	// Err is set when the language failed as a whole (storage or parse).
	Err error
}

// Failed reports whether anything went wrong for this language.
func (r *LangReport) Failed() bool {
	return r.Err != nil || len(r.KeyErrors) > 0
}

// Report is the outcome of a whole run.
type Report struct {
	Changes   diff.ChangeSet
	Languages []LangReport
	DryRun    bool
}

// Ok reports whether every language completed with zero failed keys.
func (r *Report) Ok() bool {
	for i := range r.Languages {
		if r.Languages[i].Failed() {
			return false
		}
	}
	return true
}

// FailedKeys returns the total number of per-key failures.
func (r *Report) FailedKeys() int {
	n := 0
	for i := range r.Languages {
		n += len(r.Languages[i].KeyErrors)
	}
	return n
}

// Orchestrator runs the translation pipeline for a set of languages.
type Orchestrator struct {
	opts Options
}

// New creates an orchestrator. The options are fixed at construction;
// backend selection happens here, never inside the pipeline.
func New(opts Options) *Orchestrator {
	return &Orchestrator{opts: opts}
}

// Run executes the pipeline for every configured language.
//
// Source-side problems (unreadable or malformed source file, old
// revision retrieval failure) abort the run. Per-language problems are
// recorded in the report and do not stop other languages. The returned
// report is complete even when some languages failed.
func (o *Orchestrator) Run(ctx context.Context) (*Report, error) {
	src, err := strfile.ParseFile(o.opts.SourcePath)
	if err != nil {
		return nil, fmt.Errorf("source file: %w", err)
	}

	changes, err := o.sourceChanges(ctx, src)
	if err != nil {
		return nil, err
	}

	report := &Report{Changes: changes, DryRun: o.opts.DryRun}
	report.Languages = make([]LangReport, len(o.opts.Languages))

	run := func(ctx context.Context, i int) error {
		lang := o.opts.Languages[i]
		report.Languages[i] = o.runLanguage(ctx, lang, src, changes)
		return nil
	}

	if o.opts.Parallel > 1 && len(o.opts.Languages) > 1 {
		idx := make([]int, len(o.opts.Languages))
		for i := range idx {
			idx[i] = i
		}
		runParallel(ctx, idx, o.opts.Parallel, run)
	} else {
		for i := range o.opts.Languages {
			if ctx.Err() != nil {
				break
			}
			_ = run(ctx, i)
		}
	}

	if err := ctx.Err(); err != nil {
		return report, err
	}
	return report, nil
}

// sourceChanges diffs the current source parse against the old revision.
func (o *Orchestrator) sourceChanges(ctx context.Context, src *strfile.File) (diff.ChangeSet, error) {
	if o.opts.OldSource == nil {
		// No revision to compare against: treat every key as added so
		// gap detection drives the work list.
		return diff.Diff(strfile.New(), src), nil
	}

	oldData, err := o.opts.OldSource(ctx)
	if err != nil {
		return diff.ChangeSet{}, fmt.Errorf("old source revision: %w", err)
	}
	if oldData == nil {
		return diff.Diff(strfile.New(), src), nil
	}

	oldFile, err := strfile.Parse(oldData)
	if err != nil {
		return diff.ChangeSet{}, fmt.Errorf("old source revision: %w", err)
	}
	return diff.Diff(oldFile, src), nil
}

// runLanguage drives one language through the state machine. It never
// returns an error: failures land in the report.
func (o *Orchestrator) runLanguage(ctx context.Context, lang string, src *strfile.File, changes diff.ChangeSet) LangReport {
	rep := LangReport{Lang: lang, State: StatePending, Path: o.opts.targetPath(lang)}

	fail := func(err error) LangReport {
		rep.State = StateFailed
		rep.Err = err
		return rep
	}

	// Diffing: load the target and work out what this language needs.
	rep.State = StateDiffing
	target, err := loadTarget(rep.Path)
	if err != nil {
		return fail(err)
	}

	rep.Items = workItems(src, target, changes)

	// Batching.
	rep.State = StateBatching
	rep.Batches = batch.Compose(rep.Items, o.opts.MaxTokens, o.opts.Estimate)

	if o.opts.DryRun {
		rep.State = StateDone
		return rep
	}

	if len(rep.Items) == 0 && len(changes.Removed) == 0 {
		rep.State = StateDone
		return rep
	}

	// Translating.
	rep.State = StateTranslating
	var results []batch.TranslationResult
	done := 0
	for _, b := range rep.Batches {
		if err := ctx.Err(); err != nil {
			return fail(err)
		}
		results = append(results, o.translateBatch(ctx, b, lang)...)
		done += len(b.Items)
		o.opts.progress(lang, done, len(rep.Items))
	}

	for _, res := range results {
		if res.Err != nil {
			rep.KeyErrors = append(rep.KeyErrors, KeyError{Key: res.Key, Err: res.Err})
		}
	}

	// Merging: the final serial step; nobody else touches this file.
	rep.State = StateMerging
	rep.Merge = merge.Apply(target, src, results, changes.Removed)
	if rep.Merge.Changed() {
		if err := os.MkdirAll(filepath.Dir(rep.Path), 0755); err != nil {
			return fail(&StorageError{Path: rep.Path, Err: err})
		}
		if err := target.WriteFile(rep.Path); err != nil {
			return fail(&StorageError{Path: rep.Path, Err: err})
		}
	}

	rep.State = StateDone
	return rep
}

// translateBatch calls the engine for one batch. On any batch-level
// failure every item is retried individually; items that still fail
// come back with their error attached.
func (o *Orchestrator) translateBatch(ctx context.Context, b batch.Batch, lang string) []batch.TranslationResult {
	callCtx, cancel := o.callContext(ctx)
	results, err := o.opts.Engine.TranslateBatch(callCtx, b, o.opts.sourceLang(), lang)
	cancel()
	if err == nil {
		return results
	}

	o.opts.log("[%s] batch of %d failed (%v), retrying items individually", lang, len(b.Items), err)

	out := make([]batch.TranslationResult, 0, len(b.Items))
	for _, item := range b.Items {
		if cerr := ctx.Err(); cerr != nil {
			out = append(out, batch.TranslationResult{Key: item.Key, Err: cerr})
			continue
		}
		callCtx, cancel := o.callContext(ctx)
		res, serr := o.opts.Engine.TranslateSingle(callCtx, item, o.opts.sourceLang(), lang)
		cancel()
		if serr != nil {
			out = append(out, batch.TranslationResult{Key: item.Key, Err: serr})
			continue
		}
		out = append(out, res)
	}
	return out
}

func (o *Orchestrator) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if o.opts.CallTimeout > 0 {
		return context.WithTimeout(ctx, o.opts.CallTimeout)
	}
	return context.WithCancel(ctx)
}

// workItems builds the language's work list: changed source keys first,
// then gaps not already covered, both in source order.
func workItems(src, target *strfile.File, changes diff.ChangeSet) []batch.WorkItem {
	translatable := changes.Translatable()
	changed := make(map[string]bool, len(translatable))
	for _, k := range translatable {
		changed[k] = true
	}

	var items []batch.WorkItem
	for _, e := range src.Entries() {
		if changed[e.Key] {
			items = append(items, batch.WorkItem{Key: e.Key, SourceText: e.Value, Reason: batch.ReasonChanged})
		}
	}
	for _, key := range diff.Gaps(src, target) {
		if changed[key] {
			continue
		}
		items = append(items, batch.WorkItem{Key: key, SourceText: src.Get(key).Value, Reason: batch.ReasonMissing})
	}
	return items
}

// loadTarget parses a target file; a missing file is an empty target.
func loadTarget(path string) (*strfile.File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return strfile.New(), nil
		}
		return nil, &StorageError{Path: path, Err: err}
	}
	f, err := strfile.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// runParallel runs tasks on a bounded worker pool.
func runParallel(ctx context.Context, tasks []int, maxConcurrent int, fn func(context.Context, int) error) {
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	sem := make(chan struct{}, maxConcurrent)
	var wg sync.WaitGroup
	for _, task := range tasks {
		if ctx.Err() != nil {
			break
		}
		sem <- struct{}{}
		wg.Add(1)
		go func(i int) {
			defer func() {
				<-sem
				wg.Done()
			}()
			_ = fn(ctx, i)
		}(task)
	}
	wg.Wait()
}
