package comment

import (
	"time"

	commentDatamodel "github.com/frahmantamala/support-ticketing/internal/core/datamodel/comment"
)

type Comment struct {
	ID                 int64     `json:"id"`
	TicketID           int64     `json:"ticket_id"`
	TicketTitle        string    `json:"ticket_title,omitempty"`
	AuthorID           int64     `json:"user_id"`
	AuthorName         string    `json:"user_name"`
	AuthorOrganization string    `json:"user_organization"`
	Content            string    `json:"content"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`

	ticketCreatorID int64
}

// TicketCreatorID is the creator of the parent ticket, used for visibility.
func (c *Comment) TicketCreatorID() int64 {
	return c.ticketCreatorID
}

func ToDataModel(c *Comment) *commentDatamodel.Comment {
	return &commentDatamodel.Comment{
		ID:        c.ID,
		TicketID:  c.TicketID,
		AuthorID:  c.AuthorID,
		Content:   c.Content,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

func FromView(v *commentDatamodel.CommentView) *Comment {
	return &Comment{
		ID:                 v.ID,
		TicketID:           v.TicketID,
		TicketTitle:        v.TicketTitle,
		AuthorID:           v.AuthorID,
		AuthorName:         v.AuthorName,
		AuthorOrganization: v.AuthorOrganization,
		Content:            v.Content,
		CreatedAt:          v.CreatedAt.UTC(),
		UpdatedAt:          v.UpdatedAt.UTC(),
		ticketCreatorID:    v.TicketCreatorID,
	}
}

func FromViewSlice(rows []*commentDatamodel.CommentView) []*Comment {
	out := make([]*Comment, 0, len(rows))
	for _, v := range rows {
		out = append(out, FromView(v))
	}
	return out
}
