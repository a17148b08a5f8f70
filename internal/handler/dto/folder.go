package dto

// FolderRequest is used for both create and partial update.
type FolderRequest struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
}

// AddFolderJobRequest saves a job into a folder.
type AddFolderJobRequest struct {
	JobID string `json:"job_id"`
	Note  string `json:"note,omitempty"`
}

// MoveJobsRequest moves saved jobs to another folder.
type MoveJobsRequest struct {
	TargetFolderID string   `json:"target_folder_id"`
	JobIDs         []string `json:"job_ids"`
}
