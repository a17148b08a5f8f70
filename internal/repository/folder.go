package repository

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/hireline/hireline/internal/model"
	"github.com/jackc/pgx/v5"
)

// Common errors for folder repository operations.
var (
	ErrFolderNotFound     = errors.New("folder not found")
	ErrFolderExists       = errors.New("folder name already exists")
	ErrFolderItemNotFound = errors.New("job is not in folder")
	ErrFolderItemExists   = errors.New("job already in folder")
)

const folderColumns = `f.id, f.user_id, f.name, f.description,
	(SELECT COUNT(*) FROM folder_items fi WHERE fi.folder_id = f.id) AS job_count,
	f.created_at, f.updated_at`

// CreateFolder inserts a new folder.
func (r *Repository) CreateFolder(ctx context.Context, f *model.Folder) error {
	query := `
		INSERT INTO folders (id, user_id, name, description, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.pool.Exec(ctx, query, f.ID, f.UserID, f.Name, f.Description, f.CreatedAt, f.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrFolderExists
		}
		if isForeignKeyViolation(err) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to create folder: %w", err)
	}
	return nil
}

// GetFolderByID retrieves a folder by its ID.
func (r *Repository) GetFolderByID(ctx context.Context, id string) (*model.Folder, error) {
	query := `SELECT ` + folderColumns + ` FROM folders f WHERE f.id = $1`

	f, err := scanFolder(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrFolderNotFound
		}
		return nil, fmt.Errorf("failed to get folder: %w", err)
	}
	return f, nil
}

// ListFolders retrieves a paginated list of a user's folders.
func (r *Repository) ListFolders(ctx context.Context, userID, cursor string, limit int) ([]*model.Folder, string, error) {
	qb := newQueryBuilder(`SELECT `+folderColumns+` FROM folders f WHERE f.user_id = $1`, userID)
	if err := qb.pageBy("f.created_at", "f.id", cursor, limit); err != nil {
		return nil, "", err
	}

	folders, err := collect(ctx, r.pool, "folders", scanFolder, qb.sql, qb.args...)
	if err != nil {
		return nil, "", err
	}

	folders, next := trimPage(folders, limit, func(f *model.Folder) (string, time.Time) { return f.ID, f.CreatedAt })
	return folders, next, nil
}

// UpdateFolder updates a folder's name and description.
func (r *Repository) UpdateFolder(ctx context.Context, f *model.Folder) error {
	query := `
		UPDATE folders SET name = $2, description = $3
		WHERE id = $1
		RETURNING updated_at
	`

	err := r.pool.QueryRow(ctx, query, f.ID, f.Name, f.Description).Scan(&f.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrFolderNotFound
		}
		if isUniqueViolation(err) {
			return ErrFolderExists
		}
		return fmt.Errorf("failed to update folder: %w", err)
	}
	return nil
}

// DeleteFolder removes a folder and its memberships.
func (r *Repository) DeleteFolder(ctx context.Context, id string) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM folders WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete folder: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrFolderNotFound
	}
	return nil
}

// AddFolderItem saves a job into a folder.
func (r *Repository) AddFolderItem(ctx context.Context, item *model.FolderItem) error {
	query := `
		INSERT INTO folder_items (folder_id, job_id, note, added_at)
		VALUES ($1, $2, $3, $4)
	`

	_, err := r.pool.Exec(ctx, query, item.FolderID, item.JobID, item.Note, item.AddedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrFolderItemExists
		}
		if isForeignKeyViolation(err) {
			if violatedConstraint(err) == "folder_items_folder_id_fkey" {
				return ErrFolderNotFound
			}
			return ErrJobNotFound
		}
		return fmt.Errorf("failed to add folder item: %w", err)
	}
	return nil
}

// RemoveFolderItem removes a job from a folder.
func (r *Repository) RemoveFolderItem(ctx context.Context, folderID, jobID string) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM folder_items WHERE folder_id = $1 AND job_id = $2`, folderID, jobID)
	if err != nil {
		return fmt.Errorf("failed to remove folder item: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrFolderItemNotFound
	}
	return nil
}

// ListFolderItems retrieves the jobs saved in a folder, most recent first.
func (r *Repository) ListFolderItems(ctx context.Context, folderID, cursor string, limit int) ([]*model.FolderItem, string, error) {
	qb := newQueryBuilder(`
		SELECT fi.folder_id, fi.note, fi.added_at, `+prefixed("j", jobColumns)+`
		FROM folder_items fi
		JOIN jobs j ON j.id = fi.job_id
		WHERE fi.folder_id = $1`, folderID)
	if err := qb.pageBy("fi.added_at", "fi.job_id", cursor, limit); err != nil {
		return nil, "", err
	}

	items, err := collect(ctx, r.pool, "folder items", scanFolderItem, qb.sql, qb.args...)
	if err != nil {
		return nil, "", err
	}

	items, next := trimPage(items, limit, func(i *model.FolderItem) (string, time.Time) { return i.JobID, i.AddedAt })
	return items, next, nil
}

// MoveFolderItems moves job memberships from one folder to another in a
// single transaction. Both folders must belong to userID. Jobs that are not
// in the source folder are reported as skipped; jobs already in the target
// keep their existing target row.
func (r *Repository) MoveFolderItems(ctx context.Context, userID, sourceID, targetID string, jobIDs []string) (*model.FolderMoveResult, error) {
	result := &model.FolderMoveResult{
		SourceFolderID: sourceID,
		TargetFolderID: targetID,
		Moved:          []string{},
		Skipped:        []string{},
	}

	err := r.WithTx(ctx, func(tx pgx.Tx) error {
		// Lock both folders in a stable order so concurrent moves cannot deadlock.
		var owned int
		err := tx.QueryRow(ctx, `
			SELECT COUNT(*) FROM (
				SELECT id FROM folders WHERE id = ANY($1) AND user_id = $2
				ORDER BY id FOR UPDATE
			) locked
		`, []string{sourceID, targetID}, userID).Scan(&owned)
		if err != nil {
			return fmt.Errorf("failed to lock folders: %w", err)
		}
		if owned != 2 {
			return ErrFolderNotFound
		}

		rows, err := tx.Query(ctx, `
			DELETE FROM folder_items
			WHERE folder_id = $1 AND job_id = ANY($2)
			RETURNING job_id, note
		`, sourceID, jobIDs)
		if err != nil {
			return fmt.Errorf("failed to remove source items: %w", err)
		}

		notes := make(map[string]string)
		var movedID, movedNote string
		_, err = pgx.ForEachRow(rows, []any{&movedID, &movedNote}, func() error {
			notes[movedID] = movedNote
			return nil
		})
		if err != nil {
			return fmt.Errorf("failed to read moved items: %w", err)
		}

		batch := &pgx.Batch{}
		for _, jobID := range jobIDs {
			note, ok := notes[jobID]
			if !ok {
				if !slices.Contains(result.Skipped, jobID) {
					result.Skipped = append(result.Skipped, jobID)
				}
				continue
			}
			if slices.Contains(result.Moved, jobID) {
				continue
			}
			result.Moved = append(result.Moved, jobID)
			batch.Queue(`
				INSERT INTO folder_items (folder_id, job_id, note, added_at)
				VALUES ($1, $2, $3, NOW())
				ON CONFLICT (folder_id, job_id) DO NOTHING
			`, targetID, jobID, note)
		}
		if batch.Len() == 0 {
			return nil
		}

		results := tx.SendBatch(ctx, batch)
		for i := 0; i < batch.Len(); i++ {
			if _, err := results.Exec(); err != nil {
				_ = results.Close()
				return fmt.Errorf("failed to insert target item: %w", err)
			}
		}
		return results.Close()
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func scanFolder(row pgx.Row) (*model.Folder, error) {
	var f model.Folder
	err := row.Scan(&f.ID, &f.UserID, &f.Name, &f.Description, &f.JobCount, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// scanFolderItem reads a folder_items row joined with its job.
func scanFolderItem(row pgx.Row) (*model.FolderItem, error) {
	var item model.FolderItem
	var j model.Job
	err := row.Scan(
		&item.FolderID, &item.Note, &item.AddedAt,
		&j.ID, &j.CompanyID, &j.PostedBy, &j.Title, &j.Description, &j.Location,
		&j.EmploymentType, &j.Remote, &j.SalaryMin, &j.SalaryMax, &j.Currency,
		&j.Status, &j.PublishedAt, &j.ClosesAt, &j.ViewCount, &j.CreatedAt, &j.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	item.JobID = j.ID
	item.Job = &j
	return &item, nil
}
