package handler

import (
	"sync"
	"unicode"

	"github.com/hpn/hpn-symai-bridge/internal/domain"
)

// TokensPerWord approximates tokens from words when the provider reports no usage (1 word ≈ 1.3 tokens).
const TokensPerWord = 1.3

// UsageTracker accumulates token usage and outcomes across queries.
// Local Ollama builds often omit usage, so answers without it are estimated.
type UsageTracker struct {
	mu       sync.Mutex
	snapshot UsageSnapshot
}

// UsageSnapshot is a point-in-time copy of the tracker's counters.
type UsageSnapshot struct {
	Queries          int64                   `json:"queries"`
	Failures         int64                   `json:"failures"`
	ByStatus         map[domain.Status]int64 `json:"by_status"`
	PromptTokens     int64                   `json:"prompt_tokens"`
	CompletionTokens int64                   `json:"completion_tokens"`
	TotalTokens      int64                   `json:"total_tokens"`
	EstimatedTokens  int64                   `json:"estimated_tokens"`
}

// NewUsageTracker creates an empty tracker.
func NewUsageTracker() *UsageTracker {
	return &UsageTracker{
		snapshot: UsageSnapshot{ByStatus: make(map[domain.Status]int64)},
	}
}

// Record adds one query result.
func (u *UsageTracker) Record(result domain.Result) {
	u.mu.Lock()
	defer u.mu.Unlock()

	s := &u.snapshot
	s.Queries++
	s.ByStatus[result.Metadata.Status]++
	if result.Failed() {
		s.Failures++
	}

	if usage := result.Metadata.Usage; usage != nil {
		s.PromptTokens += int64(usage.PromptTokens)
		s.CompletionTokens += int64(usage.CompletionTokens)
		s.TotalTokens += int64(usage.TotalTokens)
		return
	}
	if !result.Failed() {
		s.EstimatedTokens += int64(EstimateTokens(result.Text))
	}
}

// Snapshot returns a copy of the counters.
func (u *UsageTracker) Snapshot() UsageSnapshot {
	u.mu.Lock()
	defer u.mu.Unlock()

	out := u.snapshot
	out.ByStatus = make(map[domain.Status]int64, len(u.snapshot.ByStatus))
	for k, v := range u.snapshot.ByStatus {
		out.ByStatus[k] = v
	}
	return out
}

// EstimateTokens estimates the number of tokens in a text string.
// Uses a lightweight approximation: 1 word ≈ 1.3 tokens.
func EstimateTokens(text string) int {
	if text == "" {
		return 0
	}

	// Count words by splitting on whitespace and punctuation
	wordCount := 0
	inWord := false

	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsNumber(r) {
			if !inWord {
				wordCount++
				inWord = true
			}
		} else {
			inWord = false
		}
	}

	// Apply the 1.3 multiplier
	tokens := int(float64(wordCount) * TokensPerWord)
	if tokens == 0 && wordCount > 0 {
		tokens = 1
	}

	return tokens
}
