package port

import (
	"context"
	"io"
)

// ArchiveObject is one source document sent to the archive. Metadata is
// stored alongside the object so a copy can be traced back to its run.
type ArchiveObject struct {
	Bucket      string
	Key         string
	Body        io.Reader
	ContentType string
	Size        int64
	Metadata    map[string]string
}

// ArchivedObject is where an archived document ended up.
type ArchivedObject struct {
	Location string
	ETag     string
}

// SourceArchive keeps copies of processed source documents.
type SourceArchive interface {
	Put(ctx context.Context, obj ArchiveObject) (*ArchivedObject, error)
}
