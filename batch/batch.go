// Package batch groups pending translation work into token-bounded
// batches for efficient request packing.
package batch

// Reason records why a key needs translation.
type Reason string

const (
	// ReasonChanged marks keys added or modified in the source since
	// the old revision.
	ReasonChanged Reason = "changed"
	// ReasonMissing marks keys absent or empty in the target file.
	ReasonMissing Reason = "missing"
)

// WorkItem is one pending translation obligation: one key for one
// target language.
type WorkItem struct {
	Key        string
	SourceText string
	Reason     Reason
}

// Batch is an ordered group of work items submitted together.
type Batch struct {
	Items []WorkItem
}

// Keys returns the item keys in batch order.
func (b Batch) Keys() []string {
	keys := make([]string, len(b.Items))
	for i, it := range b.Items {
		keys[i] = it.Key
	}
	return keys
}

// TranslationResult is the outcome for a single work item.
type TranslationResult struct {
	Key  string
	Text string
	// Err is non-nil when translation of this key failed; Text is then
	// meaningless and the target entry must be left untouched.
	Err error
}

// Estimator approximates the token cost of a text. Swapping the policy
// does not affect batching logic.
type Estimator func(text string) int

// DefaultEstimator approximates tokens as ceil(bytes/4), the usual
// rule of thumb for LLM tokenizers.
func DefaultEstimator(text string) int {
	n := len(text)
	if n == 0 {
		return 0
	}
	return (n + 3) / 4
}

// Compose packs items into batches whose estimated cost stays within
// maxTokens, preserving input order. Packing is greedy: items accumulate
// into the current batch until the next one would exceed the ceiling,
// which closes the batch. An item whose own cost exceeds the ceiling is
// emitted as a singleton batch and packing continues after it.
//
// The output is deterministic for a given item order and estimator, and
// the concatenation of all batches equals the input exactly. A ceiling
// of zero or less disables the bound and yields a single batch.
func Compose(items []WorkItem, maxTokens int, estimate Estimator) []Batch {
	if len(items) == 0 {
		return nil
	}
	if estimate == nil {
		estimate = DefaultEstimator
	}
	if maxTokens <= 0 {
		return []Batch{{Items: items}}
	}

	var batches []Batch
	var cur []WorkItem
	used := 0

	flush := func() {
		if len(cur) > 0 {
			batches = append(batches, Batch{Items: cur})
			cur = nil
			used = 0
		}
	}

	for _, it := range items {
		cost := estimate(it.SourceText)
		if cost > maxTokens {
			// Oversized item: close the running batch to keep order,
			// ship the item alone, and carry on.
			flush()
			batches = append(batches, Batch{Items: []WorkItem{it}})
			continue
		}
		if used+cost > maxTokens {
			flush()
		}
		cur = append(cur, it)
		used += cost
	}
	flush()

	return batches
}
