// Package model defines the records that flow between pipeline stages.
//
// The JSON field names match the wire schemas of the deployed topics
// (drive-files, drive-files-parsed, drive-files-chunks) and must not change.
package model

// ParseStatus is the terminal status of one parse attempt.
type ParseStatus string

const (
	ParseSuccess        ParseStatus = "success"
	ParseFailed         ParseStatus = "failed"
	ParseEmpty          ParseStatus = "empty"
	ParseDownloadFailed ParseStatus = "download_failed"
)

// FileRef identifies a remote document as listed by the file source.
// It is immutable once received; ID is the stable dedup key.
type FileRef struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	MIMEType     string `json:"mimeType"`
	ModifiedTime string `json:"modifiedTime"`
}

// ParsedFile is the outcome of parsing one FileRef. A re-parse produces a
// new ParsedFile, never an update. StoragePath is set only on success;
// TextLength and ErrorMessage are nullable on the wire, so they are
// pointers here.
type ParsedFile struct {
	ID             string      `json:"id"`
	Name           string      `json:"name"`
	MIMEType       string      `json:"mimeType"`
	ModifiedTime   string      `json:"modifiedTime"`
	StoragePath    string      `json:"storagePath"`
	TextLength     *int        `json:"textLength"`
	ParseTimestamp string      `json:"parseTimestamp"`
	ParseStatus    ParseStatus `json:"parseStatus"`
	ErrorMessage   *string     `json:"errorMessage"`
}

// Chunk is one window of a file's cleaned text. ChunkIndex is 0-based and
// dense within a file; TotalChunks is the same on every chunk of the file.
// Positions are character offsets into the cleaned text.
type Chunk struct {
	ChunkID        string `json:"chunkId"`
	ChunkIndex     int    `json:"chunkIndex"`
	ChunkText      string `json:"chunkText"`
	StartPosition  int    `json:"startPosition"`
	EndPosition    int    `json:"endPosition"`
	TotalChunks    int    `json:"totalChunks"`
	FileID         string `json:"fileId"`
	FileName       string `json:"fileName"`
	ChunkTimestamp string `json:"chunkTimestamp"`
}
