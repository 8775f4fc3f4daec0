package storage

import (
	"context"
	"fmt"
	"io"
	"strings"

	storage_go "github.com/supabase-community/storage-go"
	supa "github.com/supabase-community/supabase-go"
)

// SupabaseStore uploads objects into a Supabase storage bucket with
// public read access.
type SupabaseStore struct {
	client  *supa.Client
	bucket  string
	baseURL string
}

func NewSupabaseStore(client *supa.Client, bucket, baseURL string) *SupabaseStore {
	return &SupabaseStore{client: client, bucket: bucket, baseURL: baseURL}
}

func (s *SupabaseStore) Upload(ctx context.Context, path string, r io.Reader, contentType string) (string, error) {
	_, err := s.client.Storage.UploadFile(s.bucket, path, r, storage_go.FileOptions{
		ContentType: &contentType,
	})
	if err != nil {
		return "", fmt.Errorf("upload %s to bucket %s: %w", path, s.bucket, err)
	}

	publicURL := s.client.Storage.GetPublicUrl(s.bucket, path).SignedURL
	if !strings.HasPrefix(publicURL, "http") {
		// Relative URLs need the project base URL prepended.
		publicURL = strings.TrimSuffix(s.baseURL, "/") + "/" + strings.TrimPrefix(publicURL, "/")
	}
	return publicURL, nil
}
