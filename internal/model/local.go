package model

import (
	"context"
	"hash/fnv"
	"math"
	"regexp"
	"sort"
	"strings"
	"sync"
)

// EmbeddingDim is the dimensionality of locally produced embeddings.
const EmbeddingDim = 384

// tokenPattern splits text into lowercase word tokens for hashing and
// sentence scoring.
var tokenPattern = regexp.MustCompile(`[a-zA-Z0-9]+`)

// sentencePattern splits text on sentence-ending punctuation.
var sentencePattern = regexp.MustCompile(`[.!?]+\s+`)

// summaryStopWords are excluded from sentence frequency scoring.
var summaryStopWords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "and": {}, "or": {}, "but": {},
	"in": {}, "on": {}, "at": {}, "to": {}, "of": {}, "for": {},
	"is": {}, "are": {}, "was": {}, "were": {}, "be": {}, "been": {},
	"this": {}, "that": {}, "with": {}, "as": {}, "by": {}, "we": {},
	"it": {}, "its": {}, "from": {},
}

// LocalEmbedder produces deterministic feature-hashed embeddings without any
// network dependency. Each token is hashed into one of EmbeddingDim buckets
// with a hash-derived sign, and the resulting vector is L2-normalized. The
// same text always yields the same vector.
type LocalEmbedder struct {
	loadOnce sync.Once
}

// NewLocalEmbedder creates a LocalEmbedder. The underlying state is loaded
// lazily on first use.
func NewLocalEmbedder() *LocalEmbedder {
	return &LocalEmbedder{}
}

// load prepares the embedder state. It runs at most once, on the first Embed
// call, so constructing the service stays cheap.
func (e *LocalEmbedder) load() {
	e.loadOnce.Do(func() {
		// Nothing heavyweight today: hashing needs no table. The once guard
		// keeps the load point stable if a weight file is added later.
	})
}

// Embed returns one EmbeddingDim-dimensional vector per input text. Empty
// texts produce zero vectors. The context is checked between texts so large
// batches can be cancelled.
func (e *LocalEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	e.load()

	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		vectors[i] = e.embedOne(text)
	}
	return vectors, nil
}

// embedOne hashes a single text into a normalized vector.
func (e *LocalEmbedder) embedOne(text string) []float32 {
	vec := make([]float32, EmbeddingDim)
	tokens := tokenPattern.FindAllString(strings.ToLower(text), -1)
	if len(tokens) == 0 {
		return vec
	}

	for _, token := range tokens {
		h := fnv.New32a()
		h.Write([]byte(token))
		sum := h.Sum32()

		bucket := int(sum % EmbeddingDim)
		// One hash bit picks the sign so collisions cancel rather than pile up.
		sign := float32(1)
		if sum&(1<<31) != 0 {
			sign = -1
		}
		vec[bucket] += sign
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		return vec
	}
	scale := float32(1 / math.Sqrt(norm))
	for i := range vec {
		vec[i] *= scale
	}
	return vec
}

// LocalSummarizer produces extractive summaries by scoring sentences against
// document-level word frequencies and keeping the top sentences in their
// original order. It has no network dependency and never fails.
type LocalSummarizer struct {
	// maxSentences caps the number of sentences in a summary.
	maxSentences int

	loadOnce sync.Once
}

// NewLocalSummarizer creates a LocalSummarizer keeping at most maxSentences
// sentences per summary. A non-positive value falls back to 3.
func NewLocalSummarizer(maxSentences int) *LocalSummarizer {
	if maxSentences <= 0 {
		maxSentences = 3
	}
	return &LocalSummarizer{maxSentences: maxSentences}
}

func (s *LocalSummarizer) load() {
	s.loadOnce.Do(func() {})
}

// Summarize returns an extractive summary of text. maxLength bounds the
// summary in words, approximating the remote model's token bound; a
// non-positive value leaves only the sentence cap. Texts already within both
// bounds are returned trimmed but otherwise unchanged. The error return
// exists to satisfy the summarizer contract and is always nil.
func (s *LocalSummarizer) Summarize(ctx context.Context, text string, maxLength int) (string, error) {
	s.load()
	if err := ctx.Err(); err != nil {
		return "", err
	}

	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return "", nil
	}

	sentences := splitSentences(trimmed)
	if len(sentences) <= s.maxSentences &&
		(maxLength <= 0 || wordCount(trimmed) <= maxLength) {
		return trimmed, nil
	}

	freqs := wordFrequencies(trimmed)

	type scoredSentence struct {
		index int
		score float64
	}
	scored := make([]scoredSentence, len(sentences))
	for i, sentence := range sentences {
		scored[i] = scoredSentence{index: i, score: sentenceScore(sentence, freqs)}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].score > scored[j].score
	})

	// Take sentences in score order while they fit the word budget. The
	// highest-scoring sentence is always kept so the summary is never empty.
	var top []scoredSentence
	words := 0
	for _, sc := range scored {
		if len(top) == s.maxSentences {
			break
		}
		n := wordCount(sentences[sc.index])
		if maxLength > 0 && len(top) > 0 && words+n > maxLength {
			continue
		}
		top = append(top, sc)
		words += n
	}
	sort.Slice(top, func(i, j int) bool {
		return top[i].index < top[j].index
	})

	parts := make([]string, len(top))
	for i, sc := range top {
		sentence := sentences[sc.index]
		// Splitting strips terminal punctuation; restore it for readable output.
		if !strings.HasSuffix(sentence, ".") && !strings.HasSuffix(sentence, "!") && !strings.HasSuffix(sentence, "?") {
			sentence += "."
		}
		parts[i] = sentence
	}
	return strings.Join(parts, " "), nil
}

// splitSentences breaks text into trimmed, non-empty sentences.
func splitSentences(text string) []string {
	raw := sentencePattern.Split(text, -1)
	sentences := make([]string, 0, len(raw))
	for _, s := range raw {
		s = strings.TrimSpace(s)
		if s != "" {
			sentences = append(sentences, s)
		}
	}
	return sentences
}

// wordCount counts word tokens in text.
func wordCount(text string) int {
	return len(tokenPattern.FindAllString(text, -1))
}

// wordFrequencies counts non-stop-word tokens across the whole text.
func wordFrequencies(text string) map[string]int {
	freqs := make(map[string]int)
	for _, token := range tokenPattern.FindAllString(strings.ToLower(text), -1) {
		if _, stop := summaryStopWords[token]; stop {
			continue
		}
		freqs[token]++
	}
	return freqs
}

// sentenceScore sums document-level frequencies of the sentence's tokens,
// normalized by sentence length so long sentences do not dominate.
func sentenceScore(sentence string, freqs map[string]int) float64 {
	tokens := tokenPattern.FindAllString(strings.ToLower(sentence), -1)
	if len(tokens) == 0 {
		return 0
	}
	total := 0
	for _, token := range tokens {
		total += freqs[token]
	}
	return float64(total) / float64(len(tokens))
}
