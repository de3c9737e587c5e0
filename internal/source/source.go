// Package source abstracts the remote file listing the pipeline ingests.
package source

import (
	"context"

	"github.com/drive-search/pipeline/internal/model"
)

// Source lists file metadata in pages and fetches raw document bytes.
type Source interface {
	// ListPage returns one page of file metadata and the token for the
	// next page, empty when this was the last page. An empty pageToken
	// requests the first page.
	ListPage(ctx context.Context, pageToken string) ([]model.FileRef, string, error)
	// GetBytes fetches the raw bytes of one file. For virtual workspace
	// documents this is the exported form per ExportMIME.
	GetBytes(ctx context.Context, fileID string) ([]byte, error)
	// IsSupportedType reports whether the source can deliver this MIME
	// type in a parseable form.
	IsSupportedType(mimeType string) bool
}

// Watcher is implemented by sources that can push change notifications
// instead of being re-listed.
type Watcher interface {
	// Watch emits a FileRef for every new or changed file until ctx is
	// done. The channel is closed on return.
	Watch(ctx context.Context) (<-chan model.FileRef, error)
}

// exportMIMEs maps workspace-style virtual document types to the concrete
// format their bytes are exported as.
var exportMIMEs = map[string]string{
	"application/vnd.google-apps.document":     "application/pdf",
	"application/vnd.google-apps.spreadsheet":  "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	"application/vnd.google-apps.presentation": "application/vnd.openxmlformats-officedocument.presentationml.presentation",
	"application/vnd.google-apps.drawing":      "image/png",
}

// ExportMIME returns the concrete MIME type a virtual document type is
// exported as, and whether the type is exportable at all.
func ExportMIME(mimeType string) (string, bool) {
	m, ok := exportMIMEs[mimeType]
	return m, ok
}
