package store

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/supabase-community/postgrest-go"
	supa "github.com/supabase-community/supabase-go"

	"videosync/models"
)

const (
	workflowTable   = "render_workflows"
	userVideoTable  = "user_videos"
	mediaAssetTable = "media_assets"
)

// ErrRecordNotFound is returned when a database record is not found.
var ErrRecordNotFound = errors.New("record not found")

// Store persists pipeline state in the hosted Postgres database via
// PostgREST.
type Store struct {
	client *supa.Client
}

func New(client *supa.Client) *Store {
	return &Store{client: client}
}

// InsertWorkflow writes a new render workflow row. Workflow history is
// append-only; rows are never deleted.
func (s *Store) InsertWorkflow(workflow models.RenderWorkflow) error {
	_, _, err := s.client.From(workflowTable).
		Insert(workflow, false, "", "minimal", "").
		Execute()
	if err != nil {
		return fmt.Errorf("insert render workflow for run %d: %w", workflow.WorkflowID, err)
	}
	return nil
}

// ListWorkflowsByUser returns a user's workflows, newest first.
func (s *Store) ListWorkflowsByUser(userID string) ([]models.RenderWorkflow, error) {
	bodyBytes, _, err := s.client.From(workflowTable).
		Select("*", "", false).
		Eq("user_id", userID).
		Order("created_at", &postgrest.OrderOpts{Ascending: false}).
		Execute()
	if err != nil {
		return nil, fmt.Errorf("list workflows for user %s: %w", userID, err)
	}

	var workflows []models.RenderWorkflow
	if err := json.Unmarshal(bodyBytes, &workflows); err != nil {
		return nil, fmt.Errorf("unmarshal workflows for user %s: %w", userID, err)
	}
	if workflows == nil {
		workflows = []models.RenderWorkflow{}
	}
	return workflows, nil
}

// ListActiveWorkflows returns every workflow not yet in a terminal state.
func (s *Store) ListActiveWorkflows() ([]models.RenderWorkflow, error) {
	bodyBytes, _, err := s.client.From(workflowTable).
		Select("*", "", false).
		In("status", []string{string(models.StatusQueued), string(models.StatusInProgress)}).
		Order("created_at", &postgrest.OrderOpts{Ascending: true}).
		Execute()
	if err != nil {
		return nil, fmt.Errorf("list active workflows: %w", err)
	}

	var workflows []models.RenderWorkflow
	if err := json.Unmarshal(bodyBytes, &workflows); err != nil {
		return nil, fmt.Errorf("unmarshal active workflows: %w", err)
	}
	return workflows, nil
}

// TransitionWorkflow updates a workflow row only if its status still
// matches the previously observed one. It reports whether a row was
// updated; false means another poll tick won the race, so terminal
// processing must not be repeated.
func (s *Store) TransitionWorkflow(id uuid.UUID, from, to models.WorkflowStatus, fields map[string]interface{}) (bool, error) {
	updateData := map[string]interface{}{"status": string(to)}
	for k, v := range fields {
		updateData[k] = v
	}

	_, count, err := s.client.From(workflowTable).
		Update(updateData, "minimal", "exact").
		Eq("id", id.String()).
		Eq("status", string(from)).
		Execute()
	if err != nil {
		return false, fmt.Errorf("transition workflow %s from %s to %s: %w", id, from, to, err)
	}
	return count > 0, nil
}

// InsertUserVideo writes a rendered video row.
func (s *Store) InsertUserVideo(video models.UserVideo) error {
	_, _, err := s.client.From(userVideoTable).
		Insert(video, false, "", "minimal", "").
		Execute()
	if err != nil {
		return fmt.Errorf("insert user video %s: %w", video.Name, err)
	}
	return nil
}

// ListUserVideos returns a user's rendered videos, newest first.
func (s *Store) ListUserVideos(userID string) ([]models.UserVideo, error) {
	bodyBytes, _, err := s.client.From(userVideoTable).
		Select("*", "", false).
		Eq("user_id", userID).
		Order("created_at", &postgrest.OrderOpts{Ascending: false}).
		Execute()
	if err != nil {
		return nil, fmt.Errorf("list videos for user %s: %w", userID, err)
	}

	var videos []models.UserVideo
	if err := json.Unmarshal(bodyBytes, &videos); err != nil {
		return nil, fmt.Errorf("unmarshal videos for user %s: %w", userID, err)
	}
	if videos == nil {
		videos = []models.UserVideo{}
	}
	return videos, nil
}

// DeleteUserVideo removes a rendered video row. The workflow row that
// produced it is untouched.
func (s *Store) DeleteUserVideo(userID string, videoID uuid.UUID) (bool, error) {
	_, count, err := s.client.From(userVideoTable).
		Delete("minimal", "exact").
		Eq("id", videoID.String()).
		Eq("user_id", userID).
		Execute()
	if err != nil {
		return false, fmt.Errorf("delete user video %s: %w", videoID, err)
	}
	return count > 0, nil
}

// InsertMediaAsset writes a new source asset row.
func (s *Store) InsertMediaAsset(asset models.MediaAsset) error {
	_, _, err := s.client.From(mediaAssetTable).
		Insert(asset, false, "", "minimal", "").
		Execute()
	if err != nil {
		return fmt.Errorf("insert media asset %s: %w", asset.ID, err)
	}
	return nil
}

// GetMediaAsset fetches one asset by id.
func (s *Store) GetMediaAsset(id uuid.UUID) (*models.MediaAsset, error) {
	bodyBytes, _, err := s.client.From(mediaAssetTable).
		Select("*", "", false).
		Eq("id", id.String()).
		Execute()
	if err != nil {
		return nil, fmt.Errorf("fetch media asset %s: %w", id, err)
	}

	var assets []models.MediaAsset
	if err := json.Unmarshal(bodyBytes, &assets); err != nil {
		return nil, fmt.Errorf("unmarshal media asset %s: %w", id, err)
	}
	if len(assets) == 0 {
		return nil, ErrRecordNotFound
	}
	return &assets[0], nil
}

// UpdateMediaAsset patches fields on an asset row.
func (s *Store) UpdateMediaAsset(id uuid.UUID, fields map[string]interface{}) error {
	_, _, err := s.client.From(mediaAssetTable).
		Update(fields, "minimal", "").
		Eq("id", id.String()).
		Execute()
	if err != nil {
		return fmt.Errorf("update media asset %s: %w", id, err)
	}
	return nil
}
