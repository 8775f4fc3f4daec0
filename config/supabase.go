package config

import (
	"fmt"
	"log"
	"os"

	supa "github.com/supabase-community/supabase-go"
)

var SupabaseClient *supa.Client

// InitSupabase initializes the Supabase client using environment variables.
// SUPABASE_URL and SUPABASE_SERVICE_KEY are required; there is no baked-in
// fallback key.
func InitSupabase() error {
	supabaseURL := os.Getenv("SUPABASE_URL")
	if supabaseURL == "" {
		return fmt.Errorf("SUPABASE_URL must be set")
	}

	supabaseKey := os.Getenv("SUPABASE_SERVICE_KEY")
	if supabaseKey == "" {
		return fmt.Errorf("SUPABASE_SERVICE_KEY must be set")
	}

	client, err := supa.NewClient(supabaseURL, supabaseKey, nil)
	if err != nil {
		return fmt.Errorf("error initializing Supabase client: %w", err)
	}

	SupabaseClient = client
	log.Println("Supabase client initialized successfully.")
	return nil
}

// GetSupabaseURL returns the Supabase URL used for API requests.
func GetSupabaseURL() string {
	return os.Getenv("SUPABASE_URL")
}

// GetSupabaseKey returns the Supabase API key used for authentication.
func GetSupabaseKey() string {
	return os.Getenv("SUPABASE_SERVICE_KEY")
}
