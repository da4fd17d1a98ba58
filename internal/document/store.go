package document

import (
	"context"
	"io"
)

// Store is the storage backend behind the document service. The
// filename handed to Save is already sanitized and category-prefixed.
type Store interface {
	Save(ctx context.Context, ref Ref, filename string, contentType string, r io.Reader) (Document, error)
	List(ctx context.Context, ref Ref) ([]Document, error)
	Open(ctx context.Context, ref Ref, filename string) (io.ReadCloser, error)
	Delete(ctx context.Context, ref Ref, filename string) error
	DeleteAll(ctx context.Context, ref Ref) error
}
