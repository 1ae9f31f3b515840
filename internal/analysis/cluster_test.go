package analysis

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/litreview/litreview-service/internal/domain"
)

func TestClusterCount(t *testing.T) {
	tests := []struct {
		n    int
		want int
	}{
		{3, 3},
		{25, 3},  // clamp(2, 3, 7) = 3
		{30, 3},
		{50, 5},
		{70, 7},  // clamp(7, 3, 7) = 7
		{500, 7}, // clamp(50, 3, 7) = 7
		{2, 2},   // capped at n
		{1, 1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ClusterCount(tt.n), "n=%d", tt.n)
	}
}

// clusterTestPapers builds n papers in three well-separated embedding groups.
func clusterTestPapers(n int) ([]*domain.Paper, [][]float32) {
	papers := make([]*domain.Paper, n)
	embeddings := make([][]float32, n)
	topics := []struct {
		title string
		vec   []float32
	}{
		{"Quantum Computing Advances in Quantum Hardware", []float32{1, 0, 0}},
		{"Neural Networks for Neural Image Recognition", []float32{0, 1, 0}},
		{"Climate Modeling and Climate Prediction Systems", []float32{0, 0, 1}},
	}
	for i := 0; i < n; i++ {
		topic := topics[i%3]
		papers[i] = &domain.Paper{
			PaperID: fmt.Sprintf("p%d", i),
			Title:   topic.title,
		}
		// Small deterministic jitter keeps points distinct within a group.
		jitter := float32(i/3) * 0.001
		vec := make([]float32, 3)
		copy(vec, topic.vec)
		vec[i%3] += jitter
		embeddings[i] = vec
	}
	return papers, embeddings
}

func TestClusterThemesPartitionInvariant(t *testing.T) {
	for _, n := range []int{3, 12, 25, 70} {
		t.Run(fmt.Sprintf("n=%d", n), func(t *testing.T) {
			papers, embeddings := clusterTestPapers(n)
			themes := ClusterThemes(papers, embeddings)

			total := 0
			for _, group := range themes {
				total += len(group)
			}
			assert.Equal(t, n, total, "partition must preserve the paper count")

			for _, p := range papers {
				require.NotEmpty(t, p.Theme, "every paper gets a theme")
				assert.Contains(t, themes, p.Theme)
			}
		})
	}
}

func TestClusterThemesDeterministic(t *testing.T) {
	papers1, embeddings := clusterTestPapers(30)
	papers2, _ := clusterTestPapers(30)

	ClusterThemes(papers1, embeddings)
	ClusterThemes(papers2, embeddings)

	for i := range papers1 {
		assert.Equal(t, papers1[i].Theme, papers2[i].Theme, "fixed seed must reproduce assignments")
	}
}

func TestClusterThemesEmptyInput(t *testing.T) {
	themes := ClusterThemes(nil, nil)
	assert.Empty(t, themes)
}

func TestDeriveThemeLabels(t *testing.T) {
	t.Run("picks most frequent eligible token", func(t *testing.T) {
		papers := []*domain.Paper{
			{Title: "quantum computing with quantum gates"},
			{Title: "quantum entanglement research"},
			{Title: "neural networks neural layers"},
		}
		assignment := []int{0, 0, 1}
		labels := deriveThemeLabels(papers, assignment, 2)

		assert.Equal(t, "Quantum", labels[0])
		assert.Equal(t, "Neural", labels[1])
	})

	t.Run("skips stop words and short tokens", func(t *testing.T) {
		papers := []*domain.Paper{
			{Title: "a study based on analysis of ion gas"},
		}
		labels := deriveThemeLabels(papers, []int{0}, 1)
		// "study", "based", "analysis" are stopped; "ion"/"gas"/"a"/"of"/"on" too short.
		assert.Equal(t, "Theme 1", labels[0])
	})

	t.Run("does not reuse a label across clusters", func(t *testing.T) {
		papers := []*domain.Paper{
			{Title: "graph learning graph models"},
			{Title: "graph theory graph sampling"},
		}
		assignment := []int{0, 1}
		labels := deriveThemeLabels(papers, assignment, 2)

		assert.Equal(t, "Graph", labels[0])
		// Second cluster's top token is taken; falls through to the next by
		// frequency then discovery order.
		assert.Equal(t, "Theory", labels[1])
	})

	t.Run("frequency ties break by discovery order", func(t *testing.T) {
		papers := []*domain.Paper{
			{Title: "robotics automation"},
		}
		labels := deriveThemeLabels(papers, []int{0}, 1)
		assert.Equal(t, "Robotics", labels[0])
	})

	t.Run("empty cluster falls back to indexed label", func(t *testing.T) {
		papers := []*domain.Paper{
			{Title: "quantum computing"},
		}
		// Cluster 1 has no members.
		labels := deriveThemeLabels(papers, []int{0}, 2)
		assert.Equal(t, "Quantum", labels[0])
		assert.Equal(t, "Theme 2", labels[1])
	})
}
