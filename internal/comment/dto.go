package comment

import "github.com/frahmantamala/support-ticketing/internal/core/common/pagination"

type ContentDTO struct {
	Content string `json:"content" validate:"required,max=5000"`
}

type ListResponse struct {
	Comments []*Comment `json:"comments"`
}

type UserCommentsResponse struct {
	Comments []*Comment `json:"comments"`
	pagination.Meta
}
