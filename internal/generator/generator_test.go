package generator

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"testing"
	"time"
)

type fakeModel struct {
	response string
	err      error
	calls    int
	last     Request
}

func (f *fakeModel) Complete(ctx context.Context, req Request) (string, error) {
	f.calls++
	f.last = req
	return f.response, f.err
}

func newTestGenerator(t *testing.T, model Model, now time.Time) *Generator {
	t.Helper()
	g, err := New(model, Options{Prompt: "Write about technology."})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	g.now = func() time.Time { return now }
	return g
}

func TestGenerateContent(t *testing.T) {
	now := time.Date(2026, 10, 16, 0, 0, 0, 0, time.UTC)
	model := &fakeModel{
		response: `{"post":{"title":"GPT-5 and the Future!! ","markdownContent":"# GPT-5\n\nBody."}}`,
	}
	g := newTestGenerator(t, model, now)

	content, err := g.GenerateContent(context.Background())
	if err != nil {
		t.Fatalf("GenerateContent() error = %v", err)
	}

	if content.Title != "GPT-5 and the Future!! " {
		t.Errorf("Title = %q", content.Title)
	}
	if content.RawMarkdown != "# GPT-5\n\nBody." {
		t.Errorf("RawMarkdown = %q", content.RawMarkdown)
	}
	ts := strconv.FormatInt(now.Unix(), 10)
	if want := "gpt-5-and-the-future-" + ts; content.Slug != want {
		t.Errorf("Slug = %q, want %q", content.Slug, want)
	}
	if strings.Count(content.Slug, ts) != 1 {
		t.Errorf("Slug %q should contain the timestamp exactly once", content.Slug)
	}

	if model.calls != 1 {
		t.Errorf("model called %d times, want 1", model.calls)
	}
	if model.last.Schema != ArticleSchema {
		t.Error("request did not carry the article schema")
	}
	if !strings.Contains(model.last.Prompt, "October 2026") {
		t.Errorf("prompt %q does not mention the current month", model.last.Prompt)
	}
}

func TestGenerateContentMalformed(t *testing.T) {
	tests := []struct {
		name     string
		response string
	}{
		{"not json", "Here is your article: ..."},
		{"missing post", `{"title":"x","markdownContent":"y"}`},
		{"missing title", `{"post":{"markdownContent":"y"}}`},
		{"wrong type", `{"post":{"title":42,"markdownContent":"y"}}`},
		{"extra field in post", `{"post":{"title":"x","markdownContent":"y","tags":["a"]}}`},
		{"extra top level field", `{"post":{"title":"x","markdownContent":"y"},"note":"hi"}`},
		{"array", `[{"post":{"title":"x","markdownContent":"y"}}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := newTestGenerator(t, &fakeModel{response: tt.response}, time.Now())

			_, err := g.GenerateContent(context.Background())

			var malformed *MalformedGenerationError
			if !errors.As(err, &malformed) {
				t.Fatalf("GenerateContent() error = %v, want MalformedGenerationError", err)
			}
			if malformed.Raw != tt.response {
				t.Errorf("Raw = %q, want the model response", malformed.Raw)
			}
		})
	}
}

func TestGenerateContentModelError(t *testing.T) {
	upstream := errors.New("connection reset by peer")
	g := newTestGenerator(t, &fakeModel{err: upstream}, time.Now())

	_, err := g.GenerateContent(context.Background())
	if !errors.Is(err, upstream) {
		t.Fatalf("GenerateContent() error = %v, want wrapped upstream error", err)
	}

	var malformed *MalformedGenerationError
	if errors.As(err, &malformed) {
		t.Error("transport failure must not be reported as malformed generation")
	}
}

func TestGenerateContentEmptyTitle(t *testing.T) {
	now := time.Unix(1700000000, 0)
	g := newTestGenerator(t, &fakeModel{response: `{"post":{"title":"","markdownContent":"body"}}`}, now)

	content, err := g.GenerateContent(context.Background())
	if err != nil {
		t.Fatalf("GenerateContent() error = %v", err)
	}
	if content.Slug != "-1700000000" {
		t.Errorf("Slug = %q, want -1700000000", content.Slug)
	}
}

func TestNewValidation(t *testing.T) {
	if _, err := New(nil, Options{Prompt: "x"}); err == nil {
		t.Error("New(nil model) returned no error")
	}
	if _, err := New(&fakeModel{}, Options{}); err == nil {
		t.Error("New() without prompt returned no error")
	}
}

func TestProviderCredentials(t *testing.T) {
	if _, err := NewOpenAIModel("", "gpt-4o"); err == nil {
		t.Error("NewOpenAIModel without key returned no error")
	}
	if _, err := NewAnthropicModel(""); err == nil {
		t.Error("NewAnthropicModel without key returned no error")
	}
}
