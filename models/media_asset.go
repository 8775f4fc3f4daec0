package models

import (
	"time"

	"github.com/google/uuid"
)

// MediaAsset represents one user-supplied or generated source file.
// The record is created on upload initiation and is immutable once probed.
type MediaAsset struct {
	ID          uuid.UUID  `json:"id"`
	UserID      string     `json:"user_id"`
	Title       string     `json:"title"`
	StoragePath string     `json:"storage_path"`
	SourceURL   *string    `json:"source_url,omitempty"`
	Duration    *float64   `json:"duration,omitempty"` // seconds
	Width       *int       `json:"width,omitempty"`
	Height      *int       `json:"height,omitempty"`
	Format      *string    `json:"format,omitempty"`
	Status      string     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}
