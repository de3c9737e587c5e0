// Package feeder publishes source file references onto the bus so the
// parse stage can pick them up.
package feeder

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/drive-search/pipeline/internal/bus"
	"github.com/drive-search/pipeline/internal/model"
	"github.com/drive-search/pipeline/internal/source"
)

// Feeder lists a source page by page and publishes every supported file
// reference to the files topic, keyed by file ID.
type Feeder struct {
	source source.Source
	bus    bus.Bus
	topic  string
	log    *slog.Logger
}

func New(src source.Source, b bus.Bus, topic string, log *slog.Logger) *Feeder {
	return &Feeder{
		source: src,
		bus:    b,
		topic:  topic,
		log:    log.With("component", "feeder"),
	}
}

// Run walks the full listing once. Files with unsupported MIME types are
// counted but not published.
func (f *Feeder) Run(ctx context.Context) (int, error) {
	var published, unsupported int
	pageToken := ""

	for {
		refs, next, err := f.source.ListPage(ctx, pageToken)
		if err != nil {
			return published, fmt.Errorf("list source files: %w", err)
		}
		for _, ref := range refs {
			if !f.source.IsSupportedType(ref.MIMEType) {
				unsupported++
				continue
			}
			if err := f.publish(ctx, ref); err != nil {
				return published, err
			}
			published++
		}
		if next == "" {
			break
		}
		pageToken = next
	}

	f.log.Info("source listing complete", "published", published, "unsupported", unsupported)
	return published, nil
}

// RunWatch publishes file references as a watcher reports them, until the
// context is cancelled or the watch channel closes.
func (f *Feeder) RunWatch(ctx context.Context, w source.Watcher) error {
	events, err := w.Watch(ctx)
	if err != nil {
		return fmt.Errorf("start source watch: %w", err)
	}
	f.log.Info("watching source for new files")

	for {
		select {
		case <-ctx.Done():
			return nil
		case ref, ok := <-events:
			if !ok {
				return nil
			}
			if !f.source.IsSupportedType(ref.MIMEType) {
				continue
			}
			if err := f.publish(ctx, ref); err != nil {
				return err
			}
		}
	}
}

func (f *Feeder) publish(ctx context.Context, ref model.FileRef) error {
	payload, err := json.Marshal(ref)
	if err != nil {
		return fmt.Errorf("encode file reference %s: %w", ref.ID, err)
	}
	if err := f.bus.Publish(ctx, f.topic, ref.ID, payload); err != nil {
		return fmt.Errorf("publish file %s: %w", ref.ID, err)
	}
	f.log.Debug("file published", "file_id", ref.ID, "name", ref.Name)
	return nil
}
