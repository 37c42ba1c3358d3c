package lookup

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/fumikura/novelmatch/internal/common"
	"github.com/fumikura/novelmatch/internal/entity"
)

type fakeNovels struct {
	novels []*entity.Novel
}

func (f *fakeNovels) Create(ctx context.Context, n *entity.Novel) error { return nil }

func (f *fakeNovels) GetByID(ctx context.Context, id uuid.UUID) (*entity.Novel, error) {
	for _, n := range f.novels {
		if n.ID == id {
			return n, nil
		}
	}
	return nil, common.NewAppError(common.CodeNotFound, "novel not found", nil)
}

func (f *fakeNovels) FindByLines(ctx context.Context, l1, l2, l3 string) (*entity.Novel, error) {
	for _, n := range f.novels {
		if n.Line1 == l1 && n.Line2 == l2 && n.Line3 == l3 {
			return n, nil
		}
	}
	return nil, nil
}

func (f *fakeNovels) FindSuggestions(ctx context.Context, l1, l2, l3 string, limit int) ([]*entity.Novel, error) {
	var out []*entity.Novel
	for _, n := range f.novels {
		hits := 0
		if n.Line1 == l1 {
			hits++
		}
		if n.Line2 == l2 {
			hits++
		}
		if n.Line3 == l3 {
			hits++
		}
		if hits >= 2 && len(out) < limit {
			out = append(out, n)
		}
	}
	return out, nil
}

func (f *fakeNovels) Delete(ctx context.Context, id uuid.UUID) error { return nil }

type fakeLogs struct {
	inserted []*entity.LookupLog
}

func (f *fakeLogs) Insert(ctx context.Context, l *entity.LookupLog) error {
	f.inserted = append(f.inserted, l)
	return nil
}

func (f *fakeLogs) RecentFailures(ctx context.Context, limit int) ([]*entity.LookupLog, error) {
	return nil, nil
}

func storedNovel(l1, l2, l3 string) *entity.Novel {
	return &entity.Novel{ID: uuid.New(), Title: "t", Line1: l1, Line2: l2, Line3: l3, Language: "en"}
}

func TestLookupExactMatch(t *testing.T) {
	novel := storedNovel("the storm was", "unlike any other", "felix had seen")
	novels := &fakeNovels{novels: []*entity.Novel{novel}}
	logs := &fakeLogs{}
	eng := NewEngine(novels, logs, nil)

	res, err := eng.Lookup(context.Background(),
		[]string{"The", "storm", "was"},
		[]string{"Unlike", "any", "other"},
		[]string{"Felix", "had", "seen"})
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if !res.Match {
		t.Fatal("expected exact match")
	}
	if res.Novel == nil || res.Novel.ID != novel.ID {
		t.Fatalf("matched wrong novel: %+v", res.Novel)
	}
	if res.Lines[0] != "the storm was" || res.Lines[1] != "unlike any other" || res.Lines[2] != "felix had seen" {
		t.Fatalf("normalized lines = %v", res.Lines)
	}
	if len(res.Suggestions) != 0 {
		t.Fatalf("hit should carry no suggestions, got %d", len(res.Suggestions))
	}
}

func TestLookupTwoOfThreeSuggestion(t *testing.T) {
	near := storedNovel("the storm was", "unlike any other", "something else entirely")
	far := storedNovel("the storm was", "a different line", "another different line")
	novels := &fakeNovels{novels: []*entity.Novel{near, far}}
	logs := &fakeLogs{}
	eng := NewEngine(novels, logs, nil)

	res, err := eng.Lookup(context.Background(),
		[]string{"the", "storm", "was"},
		[]string{"unlike", "any", "other"},
		[]string{"felix", "had", "seen"})
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if res.Match {
		t.Fatal("expected a miss")
	}
	if len(res.Suggestions) != 1 {
		t.Fatalf("suggestions = %d, want 1 (one-of-three must not qualify)", len(res.Suggestions))
	}
	if res.Suggestions[0].Novel.ID != near.ID {
		t.Fatal("wrong suggestion returned")
	}
	if res.Suggestions[0].MatchedLines != 2 {
		t.Fatalf("MatchedLines = %d, want 2", res.Suggestions[0].MatchedLines)
	}
}

func TestLookupAlwaysWritesOneLog(t *testing.T) {
	novel := storedNovel("the storm was", "unlike any other", "felix had seen")
	novels := &fakeNovels{novels: []*entity.Novel{novel}}
	logs := &fakeLogs{}
	eng := NewEngine(novels, logs, nil)

	if _, err := eng.Lookup(context.Background(),
		[]string{"the", "storm", "was"}, []string{"unlike", "any", "other"}, []string{"felix", "had", "seen"}); err != nil {
		t.Fatalf("hit lookup: %v", err)
	}
	if _, err := eng.Lookup(context.Background(),
		[]string{"no"}, []string{"such"}, []string{"novel"}); err != nil {
		t.Fatalf("miss lookup: %v", err)
	}

	if len(logs.inserted) != 2 {
		t.Fatalf("log rows = %d, want exactly one per call", len(logs.inserted))
	}
	hit, miss := logs.inserted[0], logs.inserted[1]
	if !hit.Success || hit.MatchedNovelID == nil || *hit.MatchedNovelID != novel.ID {
		t.Fatalf("hit log = %+v", hit)
	}
	if miss.Success || miss.MatchedNovelID != nil {
		t.Fatalf("miss log = %+v", miss)
	}
	if miss.Line1 != "no" || miss.Line2 != "such" || miss.Line3 != "novel" {
		t.Fatalf("miss log lines = %q %q %q", miss.Line1, miss.Line2, miss.Line3)
	}
}

func TestLookupEmptyInputStillLogged(t *testing.T) {
	novels := &fakeNovels{}
	logs := &fakeLogs{}
	eng := NewEngine(novels, logs, nil)

	_, err := eng.Lookup(context.Background(), nil, nil, nil)
	if !common.HasCode(err, common.CodeInvalidInput) {
		t.Fatalf("err = %v, want INVALID_INPUT", err)
	}
	if len(logs.inserted) != 1 {
		t.Fatalf("log rows = %d, want 1", len(logs.inserted))
	}
}
