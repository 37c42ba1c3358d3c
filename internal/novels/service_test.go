package novels

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"

	"github.com/fumikura/novelmatch/internal/common"
	"github.com/fumikura/novelmatch/internal/entity"
)

type fakeRepo struct {
	novels []*entity.Novel
}

func (f *fakeRepo) Create(ctx context.Context, n *entity.Novel) error {
	for _, existing := range f.novels {
		if existing.Line1 == n.Line1 && existing.Line2 == n.Line2 &&
			existing.Line3 == n.Line3 && existing.Language == n.Language {
			return common.NewAppError(common.CodeDuplicateNovel, "duplicate fingerprint", nil)
		}
	}
	f.novels = append(f.novels, n)
	return nil
}

func (f *fakeRepo) GetByID(ctx context.Context, id uuid.UUID) (*entity.Novel, error) {
	for _, n := range f.novels {
		if n.ID == id {
			return n, nil
		}
	}
	return nil, common.NewAppError(common.CodeNotFound, "novel not found", nil)
}

func (f *fakeRepo) FindByLines(ctx context.Context, l1, l2, l3 string) (*entity.Novel, error) {
	return nil, nil
}

func (f *fakeRepo) FindSuggestions(ctx context.Context, l1, l2, l3 string, limit int) ([]*entity.Novel, error) {
	return nil, nil
}

func (f *fakeRepo) Delete(ctx context.Context, id uuid.UUID) error {
	for i, n := range f.novels {
		if n.ID == id {
			f.novels = append(f.novels[:i], f.novels[i+1:]...)
			return nil
		}
	}
	return common.NewAppError(common.CodeNotFound, "novel not found", nil)
}

func validInput() CreateNovelInput {
	return CreateNovelInput{
		Title:      "I Am a Cat",
		Line1Words: []string{"The", "storm", "was"},
		Line2Words: []string{"Unlike", "any", "other"},
		Line3Words: []string{"Felix", "had", "seen"},
		TargetURL:  "https://reader.example.com/novels/123",
		Language:   "en",
	}
}

func TestCreateNormalizesLines(t *testing.T) {
	repo := &fakeRepo{}
	svc := NewService(repo, nil)

	n, err := svc.Create(context.Background(), validInput())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if n.Line1 != "the storm was" || n.Line2 != "unlike any other" || n.Line3 != "felix had seen" {
		t.Fatalf("normalized lines = %q %q %q", n.Line1, n.Line2, n.Line3)
	}
	if n.RawLine1 == nil || *n.RawLine1 != "The storm was" {
		t.Fatalf("raw line should keep casing, got %v", n.RawLine1)
	}
}

func TestCreateDuplicateTriple(t *testing.T) {
	repo := &fakeRepo{}
	svc := NewService(repo, nil)

	if _, err := svc.Create(context.Background(), validInput()); err != nil {
		t.Fatalf("first Create: %v", err)
	}
	in := validInput()
	in.Title = "Same Opening, Different Book"
	_, err := svc.Create(context.Background(), in)
	if !common.HasCode(err, common.CodeDuplicateNovel) {
		t.Fatalf("err = %v, want DUPLICATE_NOVEL", err)
	}
}

func TestCreateInputValidation(t *testing.T) {
	svc := NewService(&fakeRepo{}, nil)

	cases := []struct {
		name   string
		mutate func(*CreateNovelInput)
	}{
		{"missing title", func(in *CreateNovelInput) { in.Title = "" }},
		{"missing language", func(in *CreateNovelInput) { in.Language = "" }},
		{"missing url", func(in *CreateNovelInput) { in.TargetURL = "" }},
		{"relative url", func(in *CreateNovelInput) { in.TargetURL = "/novels/123" }},
		{"ftp url", func(in *CreateNovelInput) { in.TargetURL = "ftp://host/file" }},
		{"missing line", func(in *CreateNovelInput) { in.Line2Words = nil }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := validInput()
			tc.mutate(&in)
			_, err := svc.Create(context.Background(), in)
			if !common.HasCode(err, common.CodeInvalidInput) {
				t.Fatalf("err = %v, want INVALID_INPUT", err)
			}
		})
	}
}

func TestValidateMetadata(t *testing.T) {
	good := json.RawMessage(`{"publisher": "Shinchosha", "published_year": 1905, "tags": ["classic"]}`)
	if err := ValidateMetadata(good); err != nil {
		t.Fatalf("valid metadata rejected: %v", err)
	}
	if err := ValidateMetadata(nil); err != nil {
		t.Fatalf("nil metadata rejected: %v", err)
	}

	bad := []json.RawMessage{
		json.RawMessage(`{"published_year": "nineteen-oh-five"}`),
		json.RawMessage(`{"unexpected_key": true}`),
		json.RawMessage(`not json`),
		json.RawMessage(`{"published_year": 10}`),
	}
	for _, m := range bad {
		if err := ValidateMetadata(m); !common.HasCode(err, common.CodeInvalidInput) {
			t.Fatalf("metadata %s: err = %v, want INVALID_INPUT", m, err)
		}
	}
}
