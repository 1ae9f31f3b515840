package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/litreview/litreview-service/internal/domain"
)

// Renderer writes a report to a durable artifact and returns its location.
// Stage 7 depends on this interface so document formats stay pluggable.
type Renderer interface {
	Render(ctx context.Context, sessionID string, report *domain.Report) (string, error)
}

// MarkdownRenderer writes the report synthesis as a markdown file named
// review_<sessionID>.md in the configured output directory.
type MarkdownRenderer struct {
	outputDir string
}

// NewMarkdownRenderer creates a renderer writing into outputDir. The
// directory is created on first render.
func NewMarkdownRenderer(outputDir string) *MarkdownRenderer {
	if outputDir == "" {
		outputDir = "output"
	}
	return &MarkdownRenderer{outputDir: outputDir}
}

// Render writes the artifact and returns its path.
func (r *MarkdownRenderer) Render(ctx context.Context, sessionID string, report *domain.Report) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	if err := os.MkdirAll(r.outputDir, 0o755); err != nil {
		return "", fmt.Errorf("creating output directory: %w", err)
	}

	path := filepath.Join(r.outputDir, fmt.Sprintf("review_%s.md", sessionID))
	if err := os.WriteFile(path, []byte(report.Synthesis), 0o644); err != nil {
		return "", fmt.Errorf("writing artifact: %w", err)
	}
	return path, nil
}
