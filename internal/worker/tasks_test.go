package worker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/blog0/narrator/internal/pipeline"
	"github.com/hibiken/asynq"
)

type fakeEnqueuer struct {
	tasks []*asynq.Task
	err   error
}

func (f *fakeEnqueuer) EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	f.tasks = append(f.tasks, task)
	if f.err != nil {
		return nil, f.err
	}
	return &asynq.TaskInfo{ID: "task-1", Type: task.Type()}, nil
}

func (f *fakeEnqueuer) Close() error { return nil }

const validPostID = "0b9e4c55-7d43-4a3b-8a5e-3e6f3c7b2a10"

func TestEnqueueGeneratePostAudio(t *testing.T) {
	queue := &fakeEnqueuer{}
	client := &Client{queue: queue}

	if err := client.EnqueueGeneratePostAudio(context.Background(), validPostID); err != nil {
		t.Fatalf("EnqueueGeneratePostAudio() error = %v", err)
	}

	if len(queue.tasks) != 1 {
		t.Fatalf("enqueued %d tasks, want 1", len(queue.tasks))
	}
	task := queue.tasks[0]
	if task.Type() != TaskGeneratePostAudio {
		t.Errorf("task type = %s", task.Type())
	}
	var payload map[string]string
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		t.Fatalf("payload is not JSON: %v", err)
	}
	if payload["postId"] != validPostID {
		t.Errorf("payload = %v, want postId %s", payload, validPostID)
	}
}

func TestEnqueueGeneratePostAudioErrors(t *testing.T) {
	tests := []struct {
		name       string
		postID     string
		queueErr   error
		wantErr    error
		wantQueued int
	}{
		{name: "invalid id", postID: "not-a-uuid", wantErr: ErrInvalidPostID, wantQueued: 0},
		{name: "empty id", postID: "", wantErr: ErrInvalidPostID, wantQueued: 0},
		{name: "duplicate", postID: validPostID, queueErr: asynq.ErrDuplicateTask, wantErr: ErrAlreadyQueued, wantQueued: 1},
		{name: "redis down", postID: validPostID, queueErr: errors.New("dial tcp: connection refused"), wantQueued: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			queue := &fakeEnqueuer{err: tt.queueErr}
			client := &Client{queue: queue}

			err := client.EnqueueGeneratePostAudio(context.Background(), tt.postID)
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
			if tt.queueErr != nil && tt.wantErr == nil && !errors.Is(err, tt.queueErr) {
				t.Errorf("error = %v, want wrapped %v", err, tt.queueErr)
			}
			if len(queue.tasks) != tt.wantQueued {
				t.Errorf("enqueue calls = %d, want %d", len(queue.tasks), tt.wantQueued)
			}
		})
	}
}

func TestNewGeneratePostTask(t *testing.T) {
	task := newGeneratePostTask(time.Minute)
	if task.Type() != TaskGeneratePost {
		t.Errorf("task type = %s", task.Type())
	}
	if len(task.Payload()) != 0 {
		t.Errorf("payload = %q, want empty", task.Payload())
	}
}

func TestGeneratePostAudioOptionsTimeout(t *testing.T) {
	tests := []struct {
		name    string
		timeout time.Duration
		want    time.Duration
	}{
		{"configured", 12 * time.Minute, 12 * time.Minute},
		{"zero uses job default", 0, pipeline.DefaultAudioTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got time.Duration
			for _, opt := range generatePostAudioOptions(tt.timeout) {
				if opt.Type() == asynq.TimeoutOpt {
					got = opt.Value().(time.Duration)
				}
			}
			if got != tt.want {
				t.Errorf("task timeout = %v, want %v", got, tt.want)
			}
		})
	}
}
