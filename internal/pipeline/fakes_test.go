package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/blog0/narrator/internal/models"
	"github.com/blog0/narrator/internal/posts"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// memoryPosts is an in-memory PostStore that counts writes.
type memoryPosts struct {
	mu      sync.Mutex
	posts   map[string]*models.Post
	writes  int
	findErr error
	setErr  error
	clock   func() time.Time
}

func newMemoryPosts(list ...*models.Post) *memoryPosts {
	m := &memoryPosts{posts: map[string]*models.Post{}, clock: time.Now}
	for _, p := range list {
		m.posts[p.ID] = p
	}
	return m
}

func (m *memoryPosts) FindByID(ctx context.Context, id string) (*models.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.findErr != nil {
		return nil, m.findErr
	}
	p, ok := m.posts[id]
	if !ok {
		return nil, fmt.Errorf("post %s: %w", id, posts.ErrNotFound)
	}
	cp := *p
	return &cp, nil
}

func (m *memoryPosts) SetAudioURLs(ctx context.Context, id, raw, summary string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	if m.setErr != nil {
		return m.setErr
	}
	p, ok := m.posts[id]
	if !ok {
		return fmt.Errorf("post %s: %w", id, posts.ErrNotFound)
	}
	m.writes++
	p.RawMarkdownAudioURL = &raw
	p.SummaryAudioURL = &summary
	if now := m.clock(); now.After(p.UpdatedAt) {
		p.UpdatedAt = now
	}
	return nil
}

func (m *memoryPosts) get(id string) *models.Post {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *m.posts[id]
	return &cp
}

// fakeSynth returns "audio:<text>" and can fail on a given call number.
type fakeSynth struct {
	calls  []string
	failOn int
	err    error
	block  bool
}

func (f *fakeSynth) Synthesize(ctx context.Context, text string) ([]byte, error) {
	f.calls = append(f.calls, text)
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if f.failOn == len(f.calls) {
		return nil, f.err
	}
	return []byte("audio:" + text), nil
}

// fakeMedia records uploads and returns URLs that include a run counter.
type fakeMedia struct {
	uploads map[string]string
	calls   int
	run     int
	failOn  int
	err     error
}

func newFakeMedia() *fakeMedia {
	return &fakeMedia{uploads: map[string]string{}}
}

func (f *fakeMedia) Upload(ctx context.Context, name string, content io.Reader) (string, error) {
	f.calls++
	if f.failOn == f.calls {
		return "", f.err
	}
	data, err := io.ReadAll(content)
	if err != nil {
		return "", err
	}
	f.uploads[name] = string(data)
	return fmt.Sprintf("https://media.example.com/run%d/%s", f.run, name), nil
}
