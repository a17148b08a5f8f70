package service

import (
	"context"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/hireline/hireline/internal/model"
	"github.com/hireline/hireline/internal/repository"
)

// Folder errors.
var (
	ErrFolderNotFound     = repository.ErrFolderNotFound
	ErrFolderExists       = repository.ErrFolderExists
	ErrFolderItemNotFound = repository.ErrFolderItemNotFound
	ErrFolderItemExists   = repository.ErrFolderItemExists
)

const maxMoveJobs = 100

// FolderService handles a user's saved-job folders.
type FolderService struct {
	repo   *repository.Repository
	logger *slog.Logger
}

// NewFolderService creates a new FolderService.
func NewFolderService(repo *repository.Repository, logger *slog.Logger) *FolderService {
	return &FolderService{
		repo:   repo,
		logger: logger.With("component", "service.folder"),
	}
}

// CreateFolder creates a folder for the caller.
func (s *FolderService) CreateFolder(ctx context.Context, actor *model.AuthContext, name, description string) (*model.Folder, error) {
	if err := validateFolder(name, description); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	folder := &model.Folder{
		ID:          newID(),
		UserID:      actor.UserID,
		Name:        strings.TrimSpace(name),
		Description: description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.CreateFolder(ctx, folder); err != nil {
		return nil, err
	}
	return folder, nil
}

// GetFolder returns one of the caller's folders.
func (s *FolderService) GetFolder(ctx context.Context, actor *model.AuthContext, id string) (*model.Folder, error) {
	folder, err := s.repo.GetFolderByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if folder.UserID != actor.UserID {
		return nil, ErrFolderNotFound
	}
	return folder, nil
}

// ListFolders returns a page of the caller's folders.
func (s *FolderService) ListFolders(ctx context.Context, actor *model.AuthContext, page PageRequest) (*Page[*model.Folder], error) {
	folders, next, err := s.repo.ListFolders(ctx, actor.UserID, page.Cursor, page.limit())
	if err != nil {
		return nil, err
	}
	return newPage(folders, next), nil
}

// UpdateFolder renames a folder or changes its description.
func (s *FolderService) UpdateFolder(ctx context.Context, actor *model.AuthContext, id string, name, description *string) (*model.Folder, error) {
	folder, err := s.GetFolder(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if name != nil {
		folder.Name = *name
	}
	if description != nil {
		folder.Description = *description
	}
	if err := validateFolder(folder.Name, folder.Description); err != nil {
		return nil, err
	}
	folder.Name = strings.TrimSpace(folder.Name)

	if err := s.repo.UpdateFolder(ctx, folder); err != nil {
		return nil, err
	}
	return folder, nil
}

// DeleteFolder removes a folder and its memberships.
func (s *FolderService) DeleteFolder(ctx context.Context, actor *model.AuthContext, id string) error {
	if _, err := s.GetFolder(ctx, actor, id); err != nil {
		return err
	}
	return s.repo.DeleteFolder(ctx, id)
}

// AddJob saves a job into one of the caller's folders.
func (s *FolderService) AddJob(ctx context.Context, actor *model.AuthContext, folderID, jobID, note string) (*model.FolderItem, error) {
	if jobID == "" {
		return nil, invalid("job_id is required")
	}
	if len(note) > 1000 {
		return nil, invalid("note must be at most 1000 characters")
	}
	if _, err := s.GetFolder(ctx, actor, folderID); err != nil {
		return nil, err
	}

	item := &model.FolderItem{
		FolderID: folderID,
		JobID:    jobID,
		Note:     note,
		AddedAt:  time.Now().UTC(),
	}
	if err := s.repo.AddFolderItem(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

// RemoveJob removes a job from one of the caller's folders.
func (s *FolderService) RemoveJob(ctx context.Context, actor *model.AuthContext, folderID, jobID string) error {
	if _, err := s.GetFolder(ctx, actor, folderID); err != nil {
		return err
	}
	return s.repo.RemoveFolderItem(ctx, folderID, jobID)
}

// ListJobs returns a page of the jobs saved in a folder.
func (s *FolderService) ListJobs(ctx context.Context, actor *model.AuthContext, folderID string, page PageRequest) (*Page[*model.FolderItem], error) {
	if _, err := s.GetFolder(ctx, actor, folderID); err != nil {
		return nil, err
	}
	items, next, err := s.repo.ListFolderItems(ctx, folderID, page.Cursor, page.limit())
	if err != nil {
		return nil, err
	}
	return newPage(items, next), nil
}

// MoveJobs moves memberships from one of the caller's folders to another in
// a single transaction.
func (s *FolderService) MoveJobs(ctx context.Context, actor *model.AuthContext, sourceID, targetID string, jobIDs []string) (*model.FolderMoveResult, error) {
	jobIDs, err := validateMove(sourceID, targetID, jobIDs)
	if err != nil {
		return nil, err
	}

	result, err := s.repo.MoveFolderItems(ctx, actor.UserID, sourceID, targetID, jobIDs)
	if err != nil {
		return nil, err
	}

	s.logger.Info("folder items moved",
		"source_folder_id", sourceID,
		"target_folder_id", targetID,
		"moved", len(result.Moved),
		"skipped", len(result.Skipped),
	)
	return result, nil
}

func validateFolder(name, description string) error {
	if err := validateLength("name", name, 1, 100); err != nil {
		return err
	}
	return validateLength("description", description, 0, 1000)
}

// validateMove checks a move request and returns the de-duplicated job IDs
// in request order.
func validateMove(sourceID, targetID string, jobIDs []string) ([]string, error) {
	if targetID == "" {
		return nil, invalid("target_folder_id is required")
	}
	if sourceID == targetID {
		return nil, invalid("target folder must differ from source folder")
	}

	unique := make([]string, 0, len(jobIDs))
	for _, id := range jobIDs {
		if id == "" {
			return nil, invalid("job_ids must not contain empty values")
		}
		if !slices.Contains(unique, id) {
			unique = append(unique, id)
		}
	}
	if len(unique) == 0 {
		return nil, invalid("job_ids is required")
	}
	if len(unique) > maxMoveJobs {
		return nil, invalid("at most %d jobs can be moved at once", maxMoveJobs)
	}
	return unique, nil
}
