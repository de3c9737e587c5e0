package stage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/drive-search/pipeline/internal/blobstore"
	"github.com/drive-search/pipeline/internal/bus"
	"github.com/drive-search/pipeline/internal/chunker"
	"github.com/drive-search/pipeline/internal/model"
)

// Chunk turns successful ParsedFile records into Chunk records by loading
// the stored text and windowing it.
type Chunk struct {
	store   blobstore.Store
	chunker *chunker.TextChunker
	in      string
	out     string
	log     *slog.Logger
	now     func() time.Time
}

func NewChunk(store blobstore.Store, c *chunker.TextChunker, inTopic, outTopic string, log *slog.Logger) *Chunk {
	return &Chunk{
		store:   store,
		chunker: c,
		in:      inTopic,
		out:     outTopic,
		log:     log,
		now:     time.Now,
	}
}

func (c *Chunk) Name() string        { return "chunk" }
func (c *Chunk) InputTopic() string  { return c.in }
func (c *Chunk) OutputTopic() string { return c.out }

func (c *Chunk) Process(ctx context.Context, msg *bus.Message) ([]bus.OutMessage, error) {
	var parsed model.ParsedFile
	if err := json.Unmarshal(msg.Value, &parsed); err != nil {
		return nil, fmt.Errorf("decode parsed file: %w", err)
	}

	log := c.log.With("file_id", parsed.ID, "file_name", parsed.Name)

	if parsed.ParseStatus != model.ParseSuccess || parsed.StoragePath == "" {
		log.Info("skipping file without parsed content", "status", parsed.ParseStatus)
		return nil, nil
	}

	text, err := c.store.Load(ctx, parsed.StoragePath)
	if errors.Is(err, blobstore.ErrNotFound) {
		// The parse stage's write may not be visible yet; skip silently.
		log.Info("parsed content not available yet", "storage_path", parsed.StoragePath)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", parsed.StoragePath, err)
	}
	if text == "" {
		log.Info("no parsed content to chunk", "storage_path", parsed.StoragePath)
		return nil, nil
	}

	chunks := c.chunker.Chunk(text, parsed.ID)
	if len(chunks) == 0 {
		log.Warn("no chunks produced")
		return nil, nil
	}

	// Every chunk of one file shares a single emission timestamp.
	timestamp := c.now().UTC().Format(time.RFC3339)

	out := make([]bus.OutMessage, 0, len(chunks))
	for _, ch := range chunks {
		record := model.Chunk{
			ChunkID:        ch.ID,
			ChunkIndex:     ch.Index,
			ChunkText:      ch.Text,
			StartPosition:  ch.Start,
			EndPosition:    ch.End,
			TotalChunks:    ch.Total,
			FileID:         parsed.ID,
			FileName:       parsed.Name,
			ChunkTimestamp: timestamp,
		}
		value, err := json.Marshal(record)
		if err != nil {
			return nil, fmt.Errorf("encode chunk %s: %w", ch.ID, err)
		}
		out = append(out, bus.OutMessage{Topic: c.out, Key: ch.ID, Value: value})
	}

	stats := chunker.Summarize(chunks)
	log.Info("chunked file",
		"chunks", stats.TotalChunks,
		"characters", stats.TotalCharacters,
		"avg_size", int(stats.AverageSize),
	)
	return out, nil
}
