package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/blog0/narrator/internal/models"
)

const testPostID = "7d1f6c1e-5a7b-4f0e-9a43-2f1f3a0c9b11"

func samplePost() *models.Post {
	created := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	return &models.Post{
		ID:          testPostID,
		AuthorID:    "a1b2c3d4-0000-4000-8000-000000000001",
		Title:       "Edge AI chips",
		RawMarkdown: "# Edge AI chips\n\nBody text.",
		Summary:     "Edge AI in one line.",
		CreatedAt:   created,
		UpdatedAt:   created,
	}
}

func TestAudioJobSuccess(t *testing.T) {
	store := newMemoryPosts(samplePost())
	store.clock = func() time.Time { return samplePost().UpdatedAt.Add(time.Hour) }
	synth := &fakeSynth{}
	media := newFakeMedia()
	job := NewAudioJob(store, synth, media, discardLogger(), time.Minute)

	result, err := job.Run(context.Background(), testPostID)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if result.State != StateCompleted {
		t.Errorf("State = %s, want %s", result.State, StateCompleted)
	}
	if len(synth.calls) != 2 || synth.calls[0] != "# Edge AI chips\n\nBody text." || synth.calls[1] != "Edge AI in one line." {
		t.Errorf("synthesis calls = %q, want body then summary", synth.calls)
	}
	if got := media.uploads[testPostID+"_raw_markdown.mp3"]; got != "audio:# Edge AI chips\n\nBody text." {
		t.Errorf("body upload = %q", got)
	}
	if got := media.uploads[testPostID+"_summary.mp3"]; got != "audio:Edge AI in one line." {
		t.Errorf("summary upload = %q", got)
	}

	post := store.get(testPostID)
	if store.writes != 1 {
		t.Errorf("post written %d times, want 1", store.writes)
	}
	if post.RawMarkdownAudioURL == nil || *post.RawMarkdownAudioURL != result.RawMarkdownAudioURL {
		t.Errorf("raw_markdown_audio_url = %v, want %q", post.RawMarkdownAudioURL, result.RawMarkdownAudioURL)
	}
	if post.SummaryAudioURL == nil || *post.SummaryAudioURL != result.SummaryAudioURL {
		t.Errorf("summary_audio_url = %v, want %q", post.SummaryAudioURL, result.SummaryAudioURL)
	}
	if post.RawMarkdown != "# Edge AI chips\n\nBody text." {
		t.Errorf("raw_markdown was modified: %q", post.RawMarkdown)
	}
	if !post.UpdatedAt.After(samplePost().UpdatedAt) {
		t.Errorf("updated_at did not advance: %v", post.UpdatedAt)
	}
}

func TestAudioJobNotFound(t *testing.T) {
	store := newMemoryPosts()
	synth := &fakeSynth{}
	media := newFakeMedia()
	job := NewAudioJob(store, synth, media, discardLogger(), time.Minute)

	result, err := job.Run(context.Background(), testPostID)

	var notFound *PostNotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("Run() error = %v, want *PostNotFoundError", err)
	}
	if notFound.PostID != testPostID {
		t.Errorf("PostID = %q", notFound.PostID)
	}
	if result.State != StateNotFound || result.FailedAt != StateFetchingPost {
		t.Errorf("State = %s, FailedAt = %s", result.State, result.FailedAt)
	}
	if len(synth.calls) != 0 || media.calls != 0 {
		t.Errorf("outbound calls: synth=%d upload=%d, want none", len(synth.calls), media.calls)
	}
	if !IsFatal(err) {
		t.Error("not found must be fatal")
	}
}

func TestAudioJobEmptyContent(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(p *models.Post)
		variant Variant
	}{
		{"empty body", func(p *models.Post) { p.RawMarkdown = "" }, VariantRawMarkdown},
		{"whitespace body", func(p *models.Post) { p.RawMarkdown = "  \n" }, VariantRawMarkdown},
		{"empty summary", func(p *models.Post) { p.Summary = "" }, VariantSummary},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			post := samplePost()
			tt.mutate(post)
			store := newMemoryPosts(post)
			synth := &fakeSynth{}
			media := newFakeMedia()

			result, err := NewAudioJob(store, synth, media, discardLogger(), time.Minute).Run(context.Background(), testPostID)

			var empty *EmptyContentError
			if !errors.As(err, &empty) {
				t.Fatalf("Run() error = %v, want *EmptyContentError", err)
			}
			if empty.Variant != tt.variant {
				t.Errorf("Variant = %s, want %s", empty.Variant, tt.variant)
			}
			if result.State != StateFailed {
				t.Errorf("State = %s, want failed", result.State)
			}
			if len(synth.calls) != 0 || media.calls != 0 || store.writes != 0 {
				t.Errorf("expected no side effects, got synth=%d upload=%d writes=%d", len(synth.calls), media.calls, store.writes)
			}
		})
	}
}

func TestAudioJobBodySynthesisFails(t *testing.T) {
	store := newMemoryPosts(samplePost())
	upstream := errors.New("elevenlabs: 503")
	synth := &fakeSynth{failOn: 1, err: upstream}
	media := newFakeMedia()

	result, err := NewAudioJob(store, synth, media, discardLogger(), time.Minute).Run(context.Background(), testPostID)

	if !errors.Is(err, upstream) {
		t.Fatalf("Run() error = %v, want upstream error", err)
	}
	var stepErr *StepError
	if !errors.As(err, &stepErr) || stepErr.State != StateSynthesizingBody {
		t.Errorf("error = %v, want StepError at %s", err, StateSynthesizingBody)
	}
	if result.FailedAt != StateSynthesizingBody || result.State != StateFailed {
		t.Errorf("State = %s, FailedAt = %s", result.State, result.FailedAt)
	}
	if len(synth.calls) != 1 {
		t.Errorf("synthesis calls = %d, want 1 (summary never attempted)", len(synth.calls))
	}
	if media.calls != 0 || store.writes != 0 {
		t.Errorf("uploads = %d, writes = %d, want none", media.calls, store.writes)
	}
	if IsFatal(err) {
		t.Error("upstream synthesis failure should be retryable")
	}
	post := store.get(testPostID)
	if post.RawMarkdownAudioURL != nil || post.SummaryAudioURL != nil {
		t.Error("post audio fields changed after failed run")
	}
}

func TestAudioJobHaltStates(t *testing.T) {
	upstream := errors.New("boom")

	tests := []struct {
		name       string
		synthFail  int
		uploadFail int
		setErr     error
		wantState  State
	}{
		{"summary synthesis", 2, 0, nil, StateSynthesizingSummary},
		{"body upload", 0, 1, nil, StateUploadingBody},
		{"summary upload", 0, 2, nil, StateUploadingSummary},
		{"persist", 0, 0, upstream, StatePersisting},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMemoryPosts(samplePost())
			store.setErr = tt.setErr
			synth := &fakeSynth{failOn: tt.synthFail, err: upstream}
			media := newFakeMedia()
			media.failOn = tt.uploadFail
			media.err = upstream

			result, err := NewAudioJob(store, synth, media, discardLogger(), time.Minute).Run(context.Background(), testPostID)
			if !errors.Is(err, upstream) {
				t.Fatalf("Run() error = %v, want upstream error", err)
			}
			if result.FailedAt != tt.wantState {
				t.Errorf("FailedAt = %s, want %s", result.FailedAt, tt.wantState)
			}
			if store.writes != 0 {
				t.Errorf("writes = %d, want 0", store.writes)
			}
			if result.RawMarkdownAudioURL != "" || result.SummaryAudioURL != "" {
				t.Error("failed run reported audio URLs")
			}
		})
	}
}

func TestAudioJobIdempotentRerun(t *testing.T) {
	store := newMemoryPosts(samplePost())
	media := newFakeMedia()
	job := NewAudioJob(store, &fakeSynth{}, media, discardLogger(), time.Minute)

	media.run = 1
	if _, err := job.Run(context.Background(), testPostID); err != nil {
		t.Fatalf("first Run() error = %v", err)
	}

	media.run = 2
	second, err := job.Run(context.Background(), testPostID)
	if err != nil {
		t.Fatalf("second Run() error = %v", err)
	}

	post := store.get(testPostID)
	if *post.RawMarkdownAudioURL != second.RawMarkdownAudioURL || *post.SummaryAudioURL != second.SummaryAudioURL {
		t.Errorf("stored URLs (%s, %s) do not match the second run", *post.RawMarkdownAudioURL, *post.SummaryAudioURL)
	}
	if len(store.posts) != 1 {
		t.Errorf("post count = %d, want 1", len(store.posts))
	}
	if store.writes != 2 {
		t.Errorf("writes = %d, want one per run", store.writes)
	}
}

func TestAudioJobTimeout(t *testing.T) {
	store := newMemoryPosts(samplePost())
	synth := &fakeSynth{block: true}
	media := newFakeMedia()

	result, err := NewAudioJob(store, synth, media, discardLogger(), 20*time.Millisecond).Run(context.Background(), testPostID)

	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Run() error = %v, want deadline exceeded", err)
	}
	if result.State != StateFailed || result.FailedAt != StateSynthesizingBody {
		t.Errorf("State = %s, FailedAt = %s", result.State, result.FailedAt)
	}
	if store.writes != 0 {
		t.Errorf("writes = %d, want 0 after timeout", store.writes)
	}
}

func TestAudioFileName(t *testing.T) {
	if got := AudioFileName("abc", VariantRawMarkdown); got != "abc_raw_markdown.mp3" {
		t.Errorf("AudioFileName() = %q", got)
	}
	if got := AudioFileName("abc", VariantSummary); got != "abc_summary.mp3" {
		t.Errorf("AudioFileName() = %q", got)
	}
}
