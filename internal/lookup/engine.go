// Package lookup matches runtime fingerprints against the stored novel corpus.
package lookup

import (
	"context"
	"log/slog"
	"time"

	"github.com/fumikura/novelmatch/internal/common"
	"github.com/fumikura/novelmatch/internal/entity"
	"github.com/fumikura/novelmatch/internal/repository"
)

const maxSuggestions = 5

// Suggestion is a near-miss novel with the number of fingerprint lines it
// shares with the query (2 or 3; 3 only occurs transiently when the exact
// match raced with a delete).
type Suggestion struct {
	Novel        *entity.Novel `json:"novel"`
	MatchedLines int           `json:"matched_lines"`
}

// MatchResult is the outcome of one lookup call.
type MatchResult struct {
	Match       bool          `json:"match"`
	Novel       *entity.Novel `json:"novel,omitempty"`
	Lines       [3]string     `json:"lines"`
	Suggestions []Suggestion  `json:"suggestions,omitempty"`
	DurationMS  int64         `json:"duration_ms"`
}

type Engine struct {
	novels repository.NovelRepository
	logs   repository.LookupLogRepository
	logger *slog.Logger
}

func NewEngine(novels repository.NovelRepository, logs repository.LookupLogRepository, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{novels: novels, logs: logs, logger: logger}
}

// Lookup normalizes the three word lists and resolves them against the novel
// corpus: an exact triple match wins; on a miss, novels sharing at least two
// lines come back as suggestions. Exactly one audit log row is written per
// call, hit or miss, including when the corpus query itself fails.
func (e *Engine) Lookup(ctx context.Context, line1, line2, line3 []string) (*MatchResult, error) {
	start := time.Now()
	result := &MatchResult{
		Lines: [3]string{
			entity.NormalizeLine(line1),
			entity.NormalizeLine(line2),
			entity.NormalizeLine(line3),
		},
	}

	defer func() {
		result.DurationMS = time.Since(start).Milliseconds()
		log := &entity.LookupLog{
			Line1:      result.Lines[0],
			Line2:      result.Lines[1],
			Line3:      result.Lines[2],
			Success:    result.Match,
			DurationMS: result.DurationMS,
		}
		if result.Novel != nil {
			id := result.Novel.ID
			log.MatchedNovelID = &id
		}
		if err := e.logs.Insert(ctx, log); err != nil {
			// The audit row must not break the caller, but losing it is
			// worth shouting about.
			e.logger.Error("lookup audit write failed", "error", err)
		}
	}()

	if result.Lines[0] == "" && result.Lines[1] == "" && result.Lines[2] == "" {
		return result, common.NewAppError(common.CodeInvalidInput, "all fingerprint lines are empty", nil)
	}

	novel, err := e.novels.FindByLines(ctx, result.Lines[0], result.Lines[1], result.Lines[2])
	if err != nil {
		return result, err
	}
	if novel != nil {
		result.Match = true
		result.Novel = novel
		e.logger.Info("lookup hit", "novel_id", novel.ID, "duration_ms", time.Since(start).Milliseconds())
		return result, nil
	}

	candidates, err := e.novels.FindSuggestions(ctx, result.Lines[0], result.Lines[1], result.Lines[2], maxSuggestions)
	if err != nil {
		return result, err
	}
	for _, c := range candidates {
		result.Suggestions = append(result.Suggestions, Suggestion{
			Novel:        c,
			MatchedLines: matchedLines(c, result.Lines),
		})
	}
	e.logger.Info("lookup miss", "suggestions", len(result.Suggestions))
	return result, nil
}

func matchedLines(n *entity.Novel, lines [3]string) int {
	count := 0
	if n.Line1 == lines[0] {
		count++
	}
	if n.Line2 == lines[1] {
		count++
	}
	if n.Line3 == lines[2] {
		count++
	}
	return count
}
