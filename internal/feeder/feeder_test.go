package feeder

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"strconv"
	"testing"
	"time"

	"github.com/drive-search/pipeline/internal/bus"
	"github.com/drive-search/pipeline/internal/model"
)

// pagedSource serves a fixed listing in pages of two.
type pagedSource struct {
	refs []model.FileRef
}

func (s *pagedSource) ListPage(ctx context.Context, pageToken string) ([]model.FileRef, string, error) {
	offset := 0
	if pageToken != "" {
		offset, _ = strconv.Atoi(pageToken)
	}
	if offset >= len(s.refs) {
		return nil, "", nil
	}
	end := offset + 2
	next := ""
	if end < len(s.refs) {
		next = strconv.Itoa(end)
	} else {
		end = len(s.refs)
	}
	return s.refs[offset:end], next, nil
}

func (s *pagedSource) GetBytes(ctx context.Context, fileID string) ([]byte, error) {
	return nil, nil
}

func (s *pagedSource) IsSupportedType(mimeType string) bool {
	return mimeType != "image/png"
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestFeeder_PublishesAllSupportedFiles(t *testing.T) {
	src := &pagedSource{refs: []model.FileRef{
		{ID: "f1", Name: "a.txt", MIMEType: "text/plain", ModifiedTime: "2024-03-01T10:00:00Z"},
		{ID: "f2", Name: "b.png", MIMEType: "image/png", ModifiedTime: "2024-03-01T10:01:00Z"},
		{ID: "f3", Name: "c.pdf", MIMEType: "application/pdf", ModifiedTime: "2024-03-01T10:02:00Z"},
		{ID: "f4", Name: "d.md", MIMEType: "text/markdown", ModifiedTime: "2024-03-01T10:03:00Z"},
	}}
	b := bus.NewInMemory(16)
	defer b.Close()

	f := New(src, b, "drive-files", testLogger())
	published, err := f.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if published != 3 {
		t.Fatalf("expected 3 published, got %d", published)
	}

	// The unsupported png never reaches the topic; order is preserved
	// across page boundaries.
	for _, want := range []string{"f1", "f3", "f4"} {
		msg, err := b.Poll(context.Background(), "drive-files", time.Second)
		if err != nil || msg == nil {
			t.Fatalf("missing record %q: msg=%v err=%v", want, msg, err)
		}
		if msg.Key != want {
			t.Errorf("expected key %q, got %q", want, msg.Key)
		}
		var ref model.FileRef
		if err := json.Unmarshal(msg.Value, &ref); err != nil {
			t.Fatalf("decode record %q: %v", want, err)
		}
		if ref.ID != want {
			t.Errorf("expected id %q in payload, got %q", want, ref.ID)
		}
		if ref.ModifiedTime == "" {
			t.Errorf("record %q: expected modified time carried through", want)
		}
	}
	if depth := b.Depth("drive-files"); depth != 0 {
		t.Errorf("expected no extra records, %d left", depth)
	}
}

// chanWatcher replays a fixed event stream.
type chanWatcher struct {
	refs []model.FileRef
}

func (w *chanWatcher) Watch(ctx context.Context) (<-chan model.FileRef, error) {
	out := make(chan model.FileRef)
	go func() {
		defer close(out)
		for _, ref := range w.refs {
			select {
			case out <- ref:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

func TestFeeder_WatchFiltersUnsupportedTypes(t *testing.T) {
	w := &chanWatcher{refs: []model.FileRef{
		{ID: "f1", Name: "a.txt", MIMEType: "text/plain", ModifiedTime: "2024-03-01T10:00:00Z"},
		{ID: "f2", Name: "b.png", MIMEType: "image/png", ModifiedTime: "2024-03-01T10:01:00Z"},
		{ID: "f3", Name: "c.pdf", MIMEType: "application/pdf", ModifiedTime: "2024-03-01T10:02:00Z"},
	}}
	b := bus.NewInMemory(16)
	defer b.Close()

	f := New(&pagedSource{}, b, "drive-files", testLogger())
	// The watcher closes its channel after the replay, so RunWatch returns.
	if err := f.RunWatch(context.Background(), w); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, want := range []string{"f1", "f3"} {
		msg, err := b.Poll(context.Background(), "drive-files", time.Second)
		if err != nil || msg == nil {
			t.Fatalf("missing record %q: msg=%v err=%v", want, msg, err)
		}
		if msg.Key != want {
			t.Errorf("expected key %q, got %q", want, msg.Key)
		}
	}
	if depth := b.Depth("drive-files"); depth != 0 {
		t.Errorf("unsupported file must not be published, %d records left", depth)
	}
}

func TestFeeder_WatchStopsOnCancellation(t *testing.T) {
	// An endless watcher; only cancellation ends the run.
	blocked := make(chan model.FileRef)
	watch := watcherFunc(func(ctx context.Context) (<-chan model.FileRef, error) {
		return blocked, nil
	})

	b := bus.NewInMemory(16)
	defer b.Close()
	f := New(&pagedSource{}, b, "drive-files", testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.RunWatch(ctx, watch) }()
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("cancellation must not be an error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("RunWatch did not stop on cancellation")
	}
}

type watcherFunc func(ctx context.Context) (<-chan model.FileRef, error)

func (f watcherFunc) Watch(ctx context.Context) (<-chan model.FileRef, error) {
	return f(ctx)
}

func TestFeeder_EmptySource(t *testing.T) {
	b := bus.NewInMemory(16)
	defer b.Close()

	f := New(&pagedSource{}, b, "drive-files", testLogger())
	published, err := f.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if published != 0 {
		t.Errorf("expected nothing published, got %d", published)
	}
}
