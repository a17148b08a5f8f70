package model

import "time"

// Folder groups saved jobs for a user.
type Folder struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	JobCount    int       `json:"job_count"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// FolderItem is a job saved in a folder.
type FolderItem struct {
	FolderID string    `json:"folder_id"`
	JobID    string    `json:"job_id"`
	Note     string    `json:"note,omitempty"`
	AddedAt  time.Time `json:"added_at"`
	Job      *Job      `json:"job,omitempty"`
}

// FolderMoveResult reports the outcome of moving items between folders.
type FolderMoveResult struct {
	SourceFolderID string   `json:"source_folder_id"`
	TargetFolderID string   `json:"target_folder_id"`
	Moved          []string `json:"moved"`
	Skipped        []string `json:"skipped"`
}
