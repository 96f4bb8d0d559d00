// Package translate implements the translation backends used to fill
// .strings batches: a local Ollama server and remote OpenAI-compatible
// HTTP endpoints. Both speak the chat-completions format and return
// batch translations as a JSON array, one element per input string.
package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"math"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/lproj/stringsync/batch"
	"github.com/lproj/stringsync/langmeta"
)

// ---------------------------------------------------------------------------
// Errors
// ---------------------------------------------------------------------------

// BackendError means a translation call failed or timed out. It is
// recoverable: the orchestrator retries the affected keys individually.
type BackendError struct {
	Backend string
	Err     error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("%s backend: %v", e.Backend, e.Err)
}

func (e *BackendError) Unwrap() error { return e.Err }

// IncompleteBatchError means the backend response could not be mapped
// one-to-one onto the requested keys (wrong count or unparseable array).
// It triggers the single-item fallback, never an aborted run.
type IncompleteBatchError struct {
	Want int
	Got  int
}

func (e *IncompleteBatchError) Error() string {
	return fmt.Sprintf("incomplete batch response: got %d translations, want %d", e.Got, e.Want)
}

// ---------------------------------------------------------------------------
// Engine port
// ---------------------------------------------------------------------------

// Engine is the capability the pipeline uses to obtain translations.
// Implementations must return exactly one result per batch item or fail
// the call wholesale; they never silently drop keys.
type Engine interface {
	// TranslateBatch translates every item of b in order.
	TranslateBatch(ctx context.Context, b batch.Batch, sourceLang, targetLang string) ([]batch.TranslationResult, error)
	// TranslateSingle translates one item, used as the fallback when a
	// batch response cannot be applied.
	TranslateSingle(ctx context.Context, item batch.WorkItem, sourceLang, targetLang string) (batch.TranslationResult, error)
	// Ping checks that the backend is reachable and ready.
	Ping(ctx context.Context) error
	// Name identifies the backend in logs and errors.
	Name() string
}

// ---------------------------------------------------------------------------
// Options
// ---------------------------------------------------------------------------

// Options configures an engine.
type Options struct {
	// BaseURL is the API base URL. Defaults to the local Ollama server
	// for LocalEngine; required for RemoteEngine.
	BaseURL string
	// Model is the model identifier (required).
	Model string
	// APIKey authenticates remote endpoints (empty for local).
	APIKey string
	// Proxy is an optional HTTP/HTTPS proxy URL.
	Proxy string
	// Timeout bounds a single API call. Default 120s.
	Timeout time.Duration
	// MaxRetries is the retry budget for rate limits and 5xx. Default 3.
	MaxRetries int
	// SystemPrompt overrides the built-in system prompt. The literal
	// {{targetLang}} is replaced with the target language name.
	SystemPrompt string
	// Temperature for the chat call. Default 0.3.
	Temperature float64
	// OnLog emits log messages during translation.
	OnLog func(format string, args ...any)
	// Verbose enables request-level debug logging.
	Verbose bool
}

func (o *Options) effectiveTimeout() time.Duration {
	if o.Timeout > 0 {
		return o.Timeout
	}
	return 120 * time.Second
}

func (o *Options) effectiveMaxRetries() int {
	if o.MaxRetries > 0 {
		return o.MaxRetries
	}
	return 3
}

func (o *Options) effectiveTemperature() float64 {
	if o.Temperature > 0 {
		return o.Temperature
	}
	return 0.3
}

func (o *Options) log(format string, args ...any) {
	if o.OnLog != nil {
		o.OnLog(format, args...)
	}
}

// ---------------------------------------------------------------------------
// System prompt
// ---------------------------------------------------------------------------

// DefaultSystemPrompt instructs the model to translate UI strings and
// answer with a bare JSON array.
const DefaultSystemPrompt = `You are a professional translator specializing in software and product localization. You are translating UI strings for a software application from {{sourceLang}} to {{targetLang}}.

IMPORTANT TRANSLATION PRINCIPLES:
- Translate for NATURALNESS and FLUENCY in {{targetLang}}, not word-for-word
- Use established IT terminology standard in the {{targetLang}} tech community
- Maintain the original tone and intent

TECHNICAL REQUIREMENTS:
- Return ONLY a JSON array of translated strings, one for each input entry, in the same order.
- Preserve all format specifiers exactly as-is (%@, %s, %d, %1$@, etc.).
- Preserve leading/trailing whitespace, newlines, and punctuation patterns.
- Keep brand names and proper nouns unchanged.
- Return ONLY the JSON array, no explanations or markdown code blocks.`

func renderPrompt(override, sourceLang, targetLang string) string {
	p := override
	if p == "" {
		p = DefaultSystemPrompt
	}
	p = strings.ReplaceAll(p, "{{sourceLang}}", langmeta.Name(sourceLang))
	p = strings.ReplaceAll(p, "{{targetLang}}", langmeta.Name(targetLang))
	return p
}

func buildBatchPrompt(b batch.Batch) string {
	var sb strings.Builder
	sb.WriteString("Translate these entries:\n\n")
	for i, it := range b.Items {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, escapeForPrompt(it.SourceText))
	}
	fmt.Fprintf(&sb, "\nReturn a JSON array with exactly %d translated strings.", len(b.Items))
	return sb.String()
}

func buildSinglePrompt(item batch.WorkItem) string {
	return fmt.Sprintf("Translate this entry:\n\n1. %s\n\nReturn a JSON array with exactly 1 translated string.",
		escapeForPrompt(item.SourceText))
}

// escapeForPrompt keeps multi-line strings on one numbered line.
func escapeForPrompt(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "\n", "\\n")
	return s
}

// ---------------------------------------------------------------------------
// Response parsing
// ---------------------------------------------------------------------------

var markdownCodeBlock = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*```")

// parseTranslations extracts the JSON array of translated strings from
// a model response. A count mismatch or unparseable array yields an
// IncompleteBatchError.
func parseTranslations(content string, want int) ([]string, error) {
	content = strings.TrimSpace(content)

	// Strip markdown code fences if present.
	if m := markdownCodeBlock.FindStringSubmatch(content); len(m) > 1 {
		content = m[1]
	}

	// Locate the JSON array in the response.
	startIdx := strings.Index(content, "[")
	endIdx := strings.LastIndex(content, "]")
	if startIdx < 0 || endIdx <= startIdx {
		return nil, &IncompleteBatchError{Want: want, Got: 0}
	}
	content = content[startIdx : endIdx+1]

	var translations []string
	if err := json.Unmarshal([]byte(content), &translations); err != nil {
		return nil, &IncompleteBatchError{Want: want, Got: 0}
	}

	if len(translations) != want {
		return nil, &IncompleteBatchError{Want: want, Got: len(translations)}
	}

	return translations, nil
}

// ---------------------------------------------------------------------------
// Rate limit state (shared pause across language workers)
// ---------------------------------------------------------------------------

type rateLimitState struct {
	mu          sync.Mutex
	pausedUntil time.Time
}

func (r *rateLimitState) pause(d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	until := time.Now().Add(d)
	if until.After(r.pausedUntil) {
		r.pausedUntil = until
	}
}

func (r *rateLimitState) waitIfPaused(ctx context.Context) error {
	r.mu.Lock()
	wait := time.Until(r.pausedUntil)
	r.mu.Unlock()
	if wait <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(wait):
		return nil
	}
}

// ---------------------------------------------------------------------------
// HTTP engine core
// ---------------------------------------------------------------------------

// httpEngine is the shared chat-completions client behind both engine
// variants.
type httpEngine struct {
	name     string
	chatURL  string
	probeURL string
	opts     Options
	client   *http.Client
	rl       rateLimitState
}

func newHTTPEngine(name, chatURL, probeURL string, opts Options) *httpEngine {
	return &httpEngine{
		name:     name,
		chatURL:  chatURL,
		probeURL: probeURL,
		opts:     opts,
		client:   makeHTTPClient(opts.Proxy, opts.effectiveTimeout()),
	}
}

func makeHTTPClient(proxyURL string, timeout time.Duration) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if proxyURL != "" {
		if parsed, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(parsed)
		}
	} else {
		transport.Proxy = http.ProxyFromEnvironment
	}
	return &http.Client{Transport: transport, Timeout: timeout}
}

func (e *httpEngine) Name() string { return e.name }

func buildChatRequest(model, systemPrompt, userPrompt string, temperature float64) ([]byte, error) {
	type msg struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	}
	req := struct {
		Model       string  `json:"model"`
		Messages    []msg   `json:"messages"`
		Temperature float64 `json:"temperature"`
		Stream      bool    `json:"stream"`
	}{
		Model: model,
		Messages: []msg{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		Temperature: temperature,
		Stream:      false,
	}
	return json.Marshal(req)
}

// extractResponseText pulls the assistant text out of a chat-completions
// response body.
func extractResponseText(body []byte) (string, error) {
	var raw map[string]any
	if err := json.Unmarshal(body, &raw); err != nil {
		return "", fmt.Errorf("invalid JSON response: %w", err)
	}

	if errObj, ok := raw["error"]; ok {
		if errMap, ok := errObj.(map[string]any); ok {
			if msg, ok := errMap["message"].(string); ok {
				return "", fmt.Errorf("API error: %s", msg)
			}
		}
		return "", fmt.Errorf("API error: %v", errObj)
	}

	if choices, ok := raw["choices"].([]any); ok && len(choices) > 0 {
		if choice, ok := choices[0].(map[string]any); ok {
			if message, ok := choice["message"].(map[string]any); ok {
				if content, ok := message["content"].(string); ok {
					return content, nil
				}
			}
		}
	}

	// Ollama native generate format.
	if resp, ok := raw["response"].(string); ok {
		return resp, nil
	}

	return "", fmt.Errorf("could not extract text from response: %s", truncate(string(body), 500))
}

// call posts one chat request, retrying on transport errors, 429, and
// 5xx with exponential backoff.
func (e *httpEngine) call(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	body, err := buildChatRequest(e.opts.Model, systemPrompt, userPrompt, e.opts.effectiveTemperature())
	if err != nil {
		return "", fmt.Errorf("building request: %w", err)
	}

	maxRetries := e.opts.effectiveMaxRetries()
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if err := e.rl.waitIfPaused(ctx); err != nil {
			return "", err
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		default:
		}

		req, err := http.NewRequestWithContext(ctx, "POST", e.chatURL, bytes.NewReader(body))
		if err != nil {
			return "", fmt.Errorf("creating request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		if e.opts.APIKey != "" {
			req.Header.Set("Authorization", "Bearer "+e.opts.APIKey)
		}

		if e.opts.Verbose {
			log.Printf("[DEBUG] %s attempt %d: POST %s", e.name, attempt+1, e.chatURL)
		}

		resp, err := e.client.Do(req)
		if err != nil {
			if attempt < maxRetries && ctx.Err() == nil {
				if err := backoff(ctx, attempt); err != nil {
					return "", err
				}
				continue
			}
			return "", fmt.Errorf("API request failed: %w", err)
		}

		respBody, _ := io.ReadAll(resp.Body)
		resp.Body.Close()

		if resp.StatusCode == http.StatusTooManyRequests {
			retryDelay := retryAfter(resp)
			e.opts.log("rate limited, waiting %v (attempt %d/%d)", retryDelay, attempt+1, maxRetries)
			// Pause sibling workers sharing this engine too.
			e.rl.pause(retryDelay)
			if attempt < maxRetries {
				select {
				case <-ctx.Done():
					return "", ctx.Err()
				case <-time.After(retryDelay):
				}
				continue
			}
			return "", fmt.Errorf("rate limited after %d retries", maxRetries)
		}

		if resp.StatusCode != http.StatusOK {
			if attempt < maxRetries && resp.StatusCode >= 500 {
				if err := backoff(ctx, attempt); err != nil {
					return "", err
				}
				continue
			}
			return "", fmt.Errorf("API returned status %d: %s", resp.StatusCode, truncate(string(respBody), 500))
		}

		return extractResponseText(respBody)
	}

	return "", fmt.Errorf("exhausted all %d retries", maxRetries)
}

func backoff(ctx context.Context, attempt int) error {
	wait := time.Duration(math.Pow(2, float64(attempt))) * time.Second
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(wait):
		return nil
	}
}

// retryAfter derives the wait before retrying a 429. Honors the
// Retry-After header, falls back to 30s.
func retryAfter(resp *http.Response) time.Duration {
	if h := resp.Header.Get("Retry-After"); h != "" {
		if d, err := time.ParseDuration(h + "s"); err == nil && d > 0 {
			return d
		}
	}
	return 30 * time.Second
}

// ---------------------------------------------------------------------------
// Engine methods (shared by both variants)
// ---------------------------------------------------------------------------

// TranslateBatch translates all items of b in order. Any failure fails
// the whole call; a response that cannot be mapped one result per item
// yields an IncompleteBatchError.
func (e *httpEngine) TranslateBatch(ctx context.Context, b batch.Batch, sourceLang, targetLang string) ([]batch.TranslationResult, error) {
	if len(b.Items) == 0 {
		return nil, nil
	}

	systemPrompt := renderPrompt(e.opts.SystemPrompt, sourceLang, targetLang)
	text, err := e.call(ctx, systemPrompt, buildBatchPrompt(b))
	if err != nil {
		return nil, &BackendError{Backend: e.name, Err: err}
	}

	translations, err := parseTranslations(text, len(b.Items))
	if err != nil {
		return nil, err
	}

	results := make([]batch.TranslationResult, len(b.Items))
	for i, it := range b.Items {
		results[i] = batch.TranslationResult{Key: it.Key, Text: unescapeFromPrompt(translations[i])}
	}
	return results, nil
}

// TranslateSingle translates one item.
func (e *httpEngine) TranslateSingle(ctx context.Context, item batch.WorkItem, sourceLang, targetLang string) (batch.TranslationResult, error) {
	systemPrompt := renderPrompt(e.opts.SystemPrompt, sourceLang, targetLang)
	text, err := e.call(ctx, systemPrompt, buildSinglePrompt(item))
	if err != nil {
		return batch.TranslationResult{}, &BackendError{Backend: e.name, Err: err}
	}

	translations, err := parseTranslations(text, 1)
	if err != nil {
		// Tolerate a bare string answer for single-item calls.
		cleaned := strings.TrimSpace(text)
		if m := markdownCodeBlock.FindStringSubmatch(cleaned); len(m) > 1 {
			cleaned = strings.TrimSpace(m[1])
		}
		cleaned = strings.Trim(cleaned, `"`)
		if cleaned == "" {
			return batch.TranslationResult{}, err
		}
		return batch.TranslationResult{Key: item.Key, Text: unescapeFromPrompt(cleaned)}, nil
	}
	return batch.TranslationResult{Key: item.Key, Text: unescapeFromPrompt(translations[0])}, nil
}

// Ping checks backend reachability.
func (e *httpEngine) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, "GET", e.probeURL, nil)
	if err != nil {
		return err
	}
	if e.opts.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+e.opts.APIKey)
	}
	resp, err := e.client.Do(req)
	if err != nil {
		return &BackendError{Backend: e.name, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return &BackendError{Backend: e.name, Err: fmt.Errorf("probe returned status %d", resp.StatusCode)}
	}
	return nil
}

// unescapeFromPrompt reverses escapeForPrompt on model output.
func unescapeFromPrompt(s string) string {
	if !strings.Contains(s, "\\") {
		return s
	}
	var sb strings.Builder
	sb.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			switch s[i+1] {
			case 'n':
				sb.WriteByte('\n')
				i++
				continue
			case '\\':
				sb.WriteByte('\\')
				i++
				continue
			}
		}
		sb.WriteByte(s[i])
	}
	return sb.String()
}

// ---------------------------------------------------------------------------
// Engine variants
// ---------------------------------------------------------------------------

// DefaultLocalBaseURL is the local Ollama server's OpenAI-compatible API.
const DefaultLocalBaseURL = "http://localhost:11434/v1"

// LocalEngine talks to a local Ollama server.
type LocalEngine struct {
	*httpEngine
}

// NewLocalEngine creates the local (Ollama) backend.
func NewLocalEngine(opts Options) *LocalEngine {
	base := strings.TrimRight(opts.BaseURL, "/")
	if base == "" {
		base = DefaultLocalBaseURL
	}
	// Ollama's native tags endpoint lives next to the /v1 API.
	probe := strings.TrimSuffix(base, "/v1") + "/api/tags"
	return &LocalEngine{newHTTPEngine("ollama", base+"/chat/completions", probe, opts)}
}

// RemoteEngine talks to an OpenAI-compatible remote endpoint
// (HuggingFace router, Groq, or any custom deployment).
type RemoteEngine struct {
	*httpEngine
}

// NewRemoteEngine creates the remote backend. BaseURL must point at an
// OpenAI-compatible API root (e.g. https://router.huggingface.co/v1).
func NewRemoteEngine(opts Options) (*RemoteEngine, error) {
	base := strings.TrimRight(opts.BaseURL, "/")
	if base == "" {
		return nil, fmt.Errorf("remote backend requires a base URL")
	}
	return &RemoteEngine{newHTTPEngine("remote", base+"/chat/completions", base+"/models", opts)}, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
