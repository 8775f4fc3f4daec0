package config

import (
	"fmt"
	"os"
)

// Settings collects the environment-driven configuration for the service.
// All credentials are injected via environment variables; nothing is
// hard-coded.
type Settings struct {
	Port string

	// GitHub Actions job runner
	GitHubToken string
	RepoOwner   string
	RepoName    string

	// External AI services
	DeepgramAPIKey   string
	ReplicateAPIKey  string
	ElevenLabsAPIKey string

	// Object storage: "supabase" (default) or "s3"
	StorageBackend string
	StorageBucket  string
	S3Region       string

	// Optional transcription cache
	RedisAddr string
}

// LoadSettings reads settings from the environment and validates the
// fields the pipeline cannot run without.
func LoadSettings() (*Settings, error) {
	s := &Settings{
		Port:             getEnv("PORT", "8080"),
		GitHubToken:      os.Getenv("GITHUB_TOKEN"),
		RepoOwner:        os.Getenv("GITHUB_REPO_OWNER"),
		RepoName:         os.Getenv("GITHUB_REPO_NAME"),
		DeepgramAPIKey:   os.Getenv("DEEPGRAM_API_KEY"),
		ReplicateAPIKey:  os.Getenv("REPLICATE_API_KEY"),
		ElevenLabsAPIKey: os.Getenv("ELEVENLABS_API_KEY"),
		StorageBackend:   getEnv("STORAGE_BACKEND", "supabase"),
		StorageBucket:    getEnv("STORAGE_BUCKET", "avatars"),
		S3Region:         getEnv("AWS_REGION", "us-east-1"),
		RedisAddr:        os.Getenv("REDIS_ADDR"),
	}

	if s.GitHubToken == "" || s.RepoOwner == "" || s.RepoName == "" {
		return nil, fmt.Errorf("GITHUB_TOKEN, GITHUB_REPO_OWNER and GITHUB_REPO_NAME must be set")
	}
	if s.StorageBackend != "supabase" && s.StorageBackend != "s3" {
		return nil, fmt.Errorf("unsupported STORAGE_BACKEND %q (expected supabase or s3)", s.StorageBackend)
	}

	return s, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
