package analysis

import (
	"fmt"
	"math"
	"math/rand"
	"regexp"
	"sort"
	"strings"
	"unicode"

	"github.com/litreview/litreview-service/internal/domain"
)

// Cluster count bounds: k = clamp(n/10, 3, 7), further capped at n so tiny
// collections never produce empty clusters.
const (
	minClusters = 3
	maxClusters = 7

	// clusterSeed fixes the k-means initialization for reproducible runs.
	clusterSeed = 42

	// maxIterations bounds the Lloyd iteration count.
	maxIterations = 100
)

// titleWordPattern matches lowercase alphabetic words of length >= 4,
// the token shape eligible for theme labels.
var titleWordPattern = regexp.MustCompile(`\b[a-z]{4,}\b`)

// labelStopWords are tokens too generic to serve as theme labels.
// The set is an explicit, versioned contract: changing it changes labels.
var labelStopWords = map[string]struct{}{
	"with":     {},
	"from":     {},
	"using":    {},
	"based":    {},
	"analysis": {},
	"study":    {},
	"research": {},
	"paper":    {},
}

// ClusterCount returns the number of theme clusters for n papers.
func ClusterCount(n int) int {
	k := n / 10
	if k < minClusters {
		k = minClusters
	}
	if k > maxClusters {
		k = maxClusters
	}
	if k > n {
		k = n
	}
	return k
}

// ClusterThemes partitions papers into themes by k-means over their
// embeddings and derives a human-readable label per cluster. Every paper is
// assigned to exactly one theme (its Theme field is set), and the sum of
// group sizes equals the input size. embeddings[i] must correspond to
// papers[i]. Results are deterministic for fixed inputs.
func ClusterThemes(papers []*domain.Paper, embeddings [][]float32) map[string][]*domain.Paper {
	themes := make(map[string][]*domain.Paper)
	if len(papers) == 0 {
		return themes
	}

	k := ClusterCount(len(papers))
	assignment := kmeans(embeddings, k)
	labels := deriveThemeLabels(papers, assignment, k)

	for i, p := range papers {
		label := labels[assignment[i]]
		p.Theme = label
		themes[label] = append(themes[label], p)
	}
	return themes
}

// kmeans runs fixed-seed Lloyd iterations and returns the cluster index for
// each point. Ties in distance go to the lowest cluster index.
func kmeans(points [][]float32, k int) []int {
	n := len(points)
	assignment := make([]int, n)
	if k <= 1 {
		return assignment
	}

	rng := rand.New(rand.NewSource(clusterSeed))

	// Initialize centroids from k distinct points.
	perm := rng.Perm(n)
	centroids := make([][]float64, k)
	for c := 0; c < k; c++ {
		centroids[c] = toFloat64(points[perm[c]])
	}

	for iter := 0; iter < maxIterations; iter++ {
		changed := false
		for i, p := range points {
			best := nearestCentroid(p, centroids)
			if best != assignment[i] || iter == 0 {
				if best != assignment[i] {
					changed = true
				}
				assignment[i] = best
			}
		}
		if iter > 0 && !changed {
			break
		}

		// Recompute centroids; an empty cluster keeps its previous centroid.
		dim := len(centroids[0])
		sums := make([][]float64, k)
		counts := make([]int, k)
		for c := range sums {
			sums[c] = make([]float64, dim)
		}
		for i, p := range points {
			c := assignment[i]
			counts[c]++
			for d := 0; d < dim && d < len(p); d++ {
				sums[c][d] += float64(p[d])
			}
		}
		for c := 0; c < k; c++ {
			if counts[c] == 0 {
				continue
			}
			for d := 0; d < dim; d++ {
				centroids[c][d] = sums[c][d] / float64(counts[c])
			}
		}
	}
	return assignment
}

// nearestCentroid returns the index of the closest centroid by squared
// euclidean distance, lowest index winning ties.
func nearestCentroid(p []float32, centroids [][]float64) int {
	best := 0
	bestDist := math.Inf(1)
	for c, centroid := range centroids {
		var dist float64
		for d := 0; d < len(centroid); d++ {
			var v float64
			if d < len(p) {
				v = float64(p[d])
			}
			diff := v - centroid[d]
			dist += diff * diff
		}
		if dist < bestDist {
			bestDist = dist
			best = c
		}
	}
	return best
}

func toFloat64(v []float32) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = float64(x)
	}
	return out
}

// deriveThemeLabels picks a label per cluster from the most frequent
// eligible title token not already used by an earlier cluster. Candidates
// are ordered by frequency descending, then by discovery order within the
// cluster's titles. A cluster with no eligible token falls back to
// "Theme {index+1}".
func deriveThemeLabels(papers []*domain.Paper, assignment []int, k int) []string {
	type tokenCount struct {
		token string
		count int
		order int
	}

	labels := make([]string, k)
	used := make(map[string]struct{})

	for c := 0; c < k; c++ {
		counts := make(map[string]*tokenCount)
		var discovered []*tokenCount

		for i, p := range papers {
			if assignment[i] != c {
				continue
			}
			for _, token := range titleWordPattern.FindAllString(strings.ToLower(p.Title), -1) {
				if _, stop := labelStopWords[token]; stop {
					continue
				}
				tc, ok := counts[token]
				if !ok {
					tc = &tokenCount{token: token, order: len(discovered)}
					counts[token] = tc
					discovered = append(discovered, tc)
				}
				tc.count++
			}
		}

		sort.SliceStable(discovered, func(i, j int) bool {
			if discovered[i].count != discovered[j].count {
				return discovered[i].count > discovered[j].count
			}
			return discovered[i].order < discovered[j].order
		})

		labels[c] = fmt.Sprintf("Theme %d", c+1)
		for _, tc := range discovered {
			label := capitalize(tc.token)
			if _, taken := used[label]; taken {
				continue
			}
			labels[c] = label
			break
		}
		used[labels[c]] = struct{}{}
	}
	return labels
}

// capitalize upper-cases the first rune of a token.
func capitalize(s string) string {
	if s == "" {
		return s
	}
	runes := []rune(s)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
