package source

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/drive-search/pipeline/internal/extractor"
	"github.com/drive-search/pipeline/internal/model"
)

// Dir serves documents from a local directory tree. File ids are
// slash-separated paths relative to the root; modification times come
// from the filesystem.
type Dir struct {
	root     string
	pageSize int
	log      *slog.Logger
}

func NewDir(root string, pageSize int, log *slog.Logger) (*Dir, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("source root %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("source root %s is not a directory", root)
	}
	if pageSize <= 0 {
		pageSize = 100
	}
	return &Dir{root: root, pageSize: pageSize, log: log}, nil
}

// ListPage walks the tree once per call and pages through the sorted
// file list. The page token is the numeric offset of the next page.
func (d *Dir) ListPage(ctx context.Context, pageToken string) ([]model.FileRef, string, error) {
	offset := 0
	if pageToken != "" {
		n, err := strconv.Atoi(pageToken)
		if err != nil || n < 0 {
			return nil, "", fmt.Errorf("invalid page token %q", pageToken)
		}
		offset = n
	}

	refs, err := d.listAll(ctx)
	if err != nil {
		return nil, "", err
	}
	if offset >= len(refs) {
		return nil, "", nil
	}

	end := offset + d.pageSize
	nextToken := ""
	if end < len(refs) {
		nextToken = strconv.Itoa(end)
	} else {
		end = len(refs)
	}
	return refs[offset:end], nextToken, nil
}

func (d *Dir) listAll(ctx context.Context) ([]model.FileRef, error) {
	var refs []model.FileRef
	err := filepath.WalkDir(d.root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if entry.IsDir() {
			return nil
		}
		ref, ok := d.refFor(path, entry)
		if !ok {
			return nil
		}
		refs = append(refs, ref)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", d.root, err)
	}
	sort.Slice(refs, func(i, j int) bool { return refs[i].ID < refs[j].ID })
	return refs, nil
}

func (d *Dir) refFor(path string, entry fs.DirEntry) (model.FileRef, bool) {
	rel, err := filepath.Rel(d.root, path)
	if err != nil {
		return model.FileRef{}, false
	}
	info, err := entry.Info()
	if err != nil {
		return model.FileRef{}, false
	}
	return model.FileRef{
		ID:           filepath.ToSlash(rel),
		Name:         filepath.Base(path),
		MIMEType:     mimeForPath(path),
		ModifiedTime: info.ModTime().UTC().Format(time.RFC3339),
	}, true
}

func (d *Dir) GetBytes(ctx context.Context, fileID string) ([]byte, error) {
	full := filepath.Join(d.root, filepath.FromSlash(fileID))
	rel, err := filepath.Rel(d.root, full)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return nil, fmt.Errorf("file id %q escapes source root", fileID)
	}
	data, err := os.ReadFile(full)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", fileID, err)
	}
	return data, nil
}

// IsSupportedType accepts types with a direct extractor plus virtual
// types whose exported form has one.
func (d *Dir) IsSupportedType(mimeType string) bool {
	if extractor.IsSupported(mimeType) {
		return true
	}
	if exported, ok := ExportMIME(mimeType); ok {
		return extractor.IsSupported(exported)
	}
	return false
}

// Watch emits a FileRef for every created or written supported file
// under the root.
func (d *Dir) Watch(ctx context.Context) (<-chan model.FileRef, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}

	// Watch the root and all existing subdirectories; new subdirectories
	// are added as their create events arrive.
	err = filepath.WalkDir(d.root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() {
			return watcher.Add(path)
		}
		return nil
	})
	if err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watch %s: %w", d.root, err)
	}

	out := make(chan model.FileRef)
	go func() {
		defer close(out)
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				d.handleEvent(ctx, event, watcher, out)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				d.log.Warn("watch error", "error", err)
			}
		}
	}()
	return out, nil
}

func (d *Dir) handleEvent(ctx context.Context, event fsnotify.Event, watcher *fsnotify.Watcher, out chan<- model.FileRef) {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return
	}
	info, err := os.Stat(event.Name)
	if err != nil {
		return
	}
	if info.IsDir() {
		if event.Has(fsnotify.Create) {
			if err := watcher.Add(event.Name); err != nil {
				d.log.Warn("watch subdirectory", "path", event.Name, "error", err)
			}
		}
		return
	}

	rel, err := filepath.Rel(d.root, event.Name)
	if err != nil {
		return
	}
	ref := model.FileRef{
		ID:           filepath.ToSlash(rel),
		Name:         filepath.Base(event.Name),
		MIMEType:     mimeForPath(event.Name),
		ModifiedTime: info.ModTime().UTC().Format(time.RFC3339),
	}
	select {
	case out <- ref:
	case <-ctx.Done():
	}
}

// mimeForPath maps a file extension to the MIME type reported on the
// files topic.
func mimeForPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt":
		return "text/plain"
	case ".csv":
		return "text/csv"
	case ".md", ".markdown":
		return "text/markdown"
	case ".html", ".htm":
		return "text/html"
	case ".pdf":
		return "application/pdf"
	case ".docx":
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case ".odt":
		return "application/vnd.oasis.opendocument.text"
	case ".rtf":
		return "application/rtf"
	case ".doc":
		return "application/msword"
	default:
		return "application/octet-stream"
	}
}
