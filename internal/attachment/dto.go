package attachment

import "github.com/frahmantamala/support-ticketing/internal/core/common/pagination"

type UploadResponse struct {
	Message string `json:"message"`
	File    *File  `json:"file"`
}

type ListResponse struct {
	Files []*File `json:"files"`
}

type UserFilesResponse struct {
	Files []*File `json:"files"`
	pagination.Meta
}

// Stats summarizes the attachments on tickets visible to the caller.
type Stats struct {
	TotalFiles     int64            `json:"total_files"`
	TotalSizeBytes int64            `json:"total_size_bytes"`
	TotalSizeMB    float64          `json:"total_size_mb"`
	FilesByType    map[string]int64 `json:"files_by_type"`
}
