// Package stage implements the per-record processing of the pipeline
// phases: parse (FileRef → ParsedFile) and chunk (ParsedFile → Chunks).
package stage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/drive-search/pipeline/internal/blobstore"
	"github.com/drive-search/pipeline/internal/bus"
	"github.com/drive-search/pipeline/internal/dedup"
	"github.com/drive-search/pipeline/internal/extractor"
	"github.com/drive-search/pipeline/internal/model"
	"github.com/drive-search/pipeline/internal/source"
)

// Parse turns FileRef records into ParsedFile records: dedup by
// modification time, fetch, extract, store. Stage-level failures become
// terminal-status records; only undecodable input surfaces as an error.
type Parse struct {
	source source.Source
	store  blobstore.Store
	index  dedup.Index
	in     string
	out    string
	log    *slog.Logger
	now    func() time.Time
}

func NewParse(src source.Source, store blobstore.Store, index dedup.Index, inTopic, outTopic string, log *slog.Logger) *Parse {
	return &Parse{
		source: src,
		store:  store,
		index:  index,
		in:     inTopic,
		out:    outTopic,
		log:    log,
		now:    time.Now,
	}
}

func (p *Parse) Name() string        { return "parse" }
func (p *Parse) InputTopic() string  { return p.in }
func (p *Parse) OutputTopic() string { return p.out }

func (p *Parse) Process(ctx context.Context, msg *bus.Message) ([]bus.OutMessage, error) {
	var ref model.FileRef
	if err := json.Unmarshal(msg.Value, &ref); err != nil {
		return nil, fmt.Errorf("decode file ref: %w", err)
	}

	parsed := p.processRef(ctx, ref)
	if parsed == nil {
		return nil, nil
	}

	value, err := json.Marshal(parsed)
	if err != nil {
		return nil, fmt.Errorf("encode parsed file %s: %w", ref.ID, err)
	}
	return []bus.OutMessage{{Topic: p.out, Key: ref.ID, Value: value}}, nil
}

// processRef runs the parse pipeline for one file. It returns nil when
// the file is skipped (unsupported type or stale modification time) and
// a terminal-status record otherwise.
func (p *Parse) processRef(ctx context.Context, ref model.FileRef) *model.ParsedFile {
	log := p.log.With("file_id", ref.ID, "file_name", ref.Name)

	if !p.source.IsSupportedType(ref.MIMEType) {
		log.Info("skipping unsupported type", "mime_type", ref.MIMEType)
		return nil
	}

	// Skip unless strictly newer than the last processed version.
	if last, ok := p.index.LastModified(ref.ID); ok && ref.ModifiedTime != "" && ref.ModifiedTime <= last {
		log.Info("skipping already processed file", "modified_time", ref.ModifiedTime)
		return nil
	}

	parsed := p.parse(ctx, ref, log)

	// One index update per attempted file, success or terminal failure.
	if ref.ModifiedTime != "" {
		if err := p.index.Mark(ref.ID, ref.ModifiedTime); err != nil {
			log.Error("dedup index update failed", "error", err)
		}
	}

	log.Info("processed file", "status", parsed.ParseStatus)
	return parsed
}

func (p *Parse) parse(ctx context.Context, ref model.FileRef, log *slog.Logger) *model.ParsedFile {
	parsed := &model.ParsedFile{
		ID:             ref.ID,
		Name:           ref.Name,
		MIMEType:       ref.MIMEType,
		ModifiedTime:   ref.ModifiedTime,
		ParseTimestamp: p.now().UTC().Format(time.RFC3339),
	}

	data, err := p.source.GetBytes(ctx, ref.ID)
	if err != nil {
		log.Error("download failed", "error", err)
		return terminal(parsed, model.ParseDownloadFailed, fmt.Sprintf("failed to download file: %s", err))
	}

	ex, err := extractor.ForMIME(extractMIME(ref.MIMEType))
	if err != nil {
		return terminal(parsed, model.ParseFailed, err.Error())
	}

	text, err := ex.Extract(data)
	if err != nil {
		log.Error("extraction failed", "error", err)
		return terminal(parsed, model.ParseFailed, fmt.Sprintf("document parsing failed: %s", err))
	}
	if strings.TrimSpace(text) == "" {
		return terminal(parsed, model.ParseEmpty, "document contains no extractable text")
	}

	storagePath := fmt.Sprintf("parsed/%s.txt", ref.ID)
	metadata := map[string]string{
		"file_id":         ref.ID,
		"file_name":       ref.Name,
		"parse_timestamp": parsed.ParseTimestamp,
		"text_length":     strconv.Itoa(utf8.RuneCountInString(text)),
	}
	if err := p.store.Save(ctx, storagePath, text, metadata); err != nil {
		// Extraction succeeded, but without stored text the record is
		// unusable downstream.
		log.Error("storage write failed", "error", err)
		return terminal(parsed, model.ParseFailed, fmt.Sprintf("failed to save to storage: %s", err))
	}

	length := utf8.RuneCountInString(text)
	parsed.ParseStatus = model.ParseSuccess
	parsed.StoragePath = storagePath
	parsed.TextLength = &length
	return parsed
}

// extractMIME resolves virtual workspace types to the exported format
// their bytes arrive in.
func extractMIME(mimeType string) string {
	if exported, ok := source.ExportMIME(mimeType); ok {
		return exported
	}
	return mimeType
}

func terminal(parsed *model.ParsedFile, status model.ParseStatus, message string) *model.ParsedFile {
	parsed.ParseStatus = status
	parsed.ErrorMessage = &message
	return parsed
}
