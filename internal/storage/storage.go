package storage

import (
	"context"
	"io"
)

// ObjectStore uploads binary objects and returns a publicly readable URL.
// Implementations back onto the Supabase storage bucket or S3, selected
// by configuration.
type ObjectStore interface {
	Upload(ctx context.Context, path string, r io.Reader, contentType string) (string, error)
}
