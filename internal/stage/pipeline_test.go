package stage

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/drive-search/pipeline/internal/blobstore"
	"github.com/drive-search/pipeline/internal/bus"
	"github.com/drive-search/pipeline/internal/chunker"
	"github.com/drive-search/pipeline/internal/dedup"
	"github.com/drive-search/pipeline/internal/feeder"
	"github.com/drive-search/pipeline/internal/model"
	"github.com/drive-search/pipeline/internal/runner"
	"github.com/drive-search/pipeline/internal/source"
)

// TestPipeline_EndToEnd drives a directory of documents through feeder,
// parse and chunk over an in-memory bus, then re-runs the listing to
// verify nothing is reprocessed.
func TestPipeline_EndToEnd(t *testing.T) {
	root := t.TempDir()
	longText := strings.Repeat("Every document ends up as chunks. ", 20)
	if err := os.WriteFile(filepath.Join(root, "a.txt"), []byte(longText), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "b.md"), []byte("# Notes\n\nShort body."), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "c.bin"), []byte{0x00, 0x01}, 0o644); err != nil {
		t.Fatal(err)
	}

	log := testLogger()
	src, err := source.NewDir(root, 10, log)
	if err != nil {
		t.Fatal(err)
	}
	b := bus.NewInMemory(64)
	defer b.Close()
	store := blobstore.NewMemory()
	index := dedup.NewMemory()

	textChunker, err := chunker.New(100, 20)
	if err != nil {
		t.Fatal(err)
	}

	parseRunner := runner.New(
		NewParse(src, store, index, "drive-files", "drive-files-parsed", log),
		b,
		runner.Config{PollTimeout: 10 * time.Millisecond, IdleTimeout: 50 * time.Millisecond},
		log,
	)
	chunkRunner := runner.New(
		NewChunk(store, textChunker, "drive-files-parsed", "drive-files-chunks", log),
		b,
		runner.Config{PollTimeout: 10 * time.Millisecond, IdleTimeout: 50 * time.Millisecond},
		log,
	)

	ctx := context.Background()
	feed := feeder.New(src, b, "drive-files", log)

	published, err := feed.Run(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if published != 2 {
		t.Fatalf("expected 2 supported files published, got %d", published)
	}

	if err := parseRunner.Run(ctx); err != nil {
		t.Fatalf("parse runner: %v", err)
	}
	if err := chunkRunner.Run(ctx); err != nil {
		t.Fatalf("chunk runner: %v", err)
	}

	chunksByFile := drainChunks(t, b)
	if len(chunksByFile) != 2 {
		t.Fatalf("expected chunks for 2 files, got %d", len(chunksByFile))
	}
	if len(chunksByFile["a.txt"]) < 2 {
		t.Errorf("expected the long file split into several chunks, got %d", len(chunksByFile["a.txt"]))
	}
	if len(chunksByFile["b.md"]) != 1 {
		t.Errorf("expected one chunk for the short file, got %d", len(chunksByFile["b.md"]))
	}
	for fileID, chunks := range chunksByFile {
		for i, ch := range chunks {
			if ch.ChunkIndex != i {
				t.Errorf("%s: expected index %d, got %d", fileID, i, ch.ChunkIndex)
			}
			if ch.TotalChunks != len(chunks) {
				t.Errorf("%s: expected total %d, got %d", fileID, len(chunks), ch.TotalChunks)
			}
		}
	}

	// Re-listing the unchanged directory must produce no new work.
	if _, err := feed.Run(ctx); err != nil {
		t.Fatal(err)
	}
	rerun := runner.New(
		NewParse(src, store, index, "drive-files", "drive-files-parsed", log),
		b,
		runner.Config{PollTimeout: 10 * time.Millisecond, IdleTimeout: 50 * time.Millisecond},
		log,
	)
	if err := rerun.Run(ctx); err != nil {
		t.Fatalf("second parse run: %v", err)
	}
	snap := rerun.Snapshot()
	if snap.Skipped != 2 || snap.Emitted != 0 {
		t.Errorf("expected both files skipped on rerun, got %+v", snap)
	}
	if depth := b.Depth("drive-files-parsed"); depth != 0 {
		t.Errorf("rerun must not emit parsed records, %d found", depth)
	}
}

func drainChunks(t *testing.T, b *bus.InMemory) map[string][]model.Chunk {
	t.Helper()
	out := make(map[string][]model.Chunk)
	for {
		msg, err := b.Poll(context.Background(), "drive-files-chunks", 20*time.Millisecond)
		if err != nil {
			t.Fatal(err)
		}
		if msg == nil {
			return out
		}
		var ch model.Chunk
		if err := json.Unmarshal(msg.Value, &ch); err != nil {
			t.Fatal(err)
		}
		out[ch.FileID] = append(out[ch.FileID], ch)
	}
}
