package ticket

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"time"

	errors "github.com/frahmantamala/support-ticketing/internal"
	"github.com/frahmantamala/support-ticketing/internal/access"
	"github.com/frahmantamala/support-ticketing/internal/core/common/validation"
)

const (
	maxTitleLength       = 200
	maxDescriptionLength = 10000
)

// OptionalString distinguishes an absent JSON field from an explicit null.
type OptionalString struct {
	Set   bool
	Value *string
}

func (o *OptionalString) UnmarshalJSON(data []byte) error {
	o.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		o.Value = nil
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	o.Value = &s
	return nil
}

func SetString(s string) OptionalString {
	return OptionalString{Set: true, Value: &s}
}

func ClearString() OptionalString {
	return OptionalString{Set: true}
}

// Changes is a partial ticket update. Nil pointers and an unset TimelineDate
// leave the field untouched.
type Changes struct {
	Title        *string        `json:"title"`
	Description  *string        `json:"description"`
	CategoryID   *int64         `json:"category_id"`
	TicketType   *string        `json:"ticket_type"`
	Priority     *string        `json:"priority"`
	Status       *string        `json:"status"`
	Progress     *int           `json:"progress"`
	TimelineDate OptionalString `json:"timeline_date"`
}

func (c Changes) HasContent() bool {
	return c.Title != nil || c.Description != nil || c.CategoryID != nil || c.TicketType != nil || c.Priority != nil
}

func (c Changes) HasWorkflow() bool {
	return c.Status != nil || c.Progress != nil || c.TimelineDate.Set
}

func (c Changes) IsEmpty() bool {
	return !c.HasContent() && !c.HasWorkflow()
}

// CategoryChecker reports whether a category exists and is active.
type CategoryChecker interface {
	CategoryIsActive(ctx context.Context, id int64) (bool, error)
}

// ApplyUpdate validates changes against the current ticket and the actor's
// rights and returns the updated copy. The current ticket is never modified,
// so a rejected update leaves no partial state behind.
func ApplyUpdate(ctx context.Context, current *Ticket, actor access.Actor, changes Changes, categories CategoryChecker, now time.Time) (*Ticket, error) {
	canCore := access.CanEditTicketCore(actor, current.CreatorID)
	canWorkflow := access.CanEditTicketWorkflow(actor)

	// creator and internal grants are independent; either opens content fields
	if changes.HasContent() && !canCore && !canWorkflow {
		return nil, errors.ErrAccessDenied
	}
	if changes.HasWorkflow() && !canWorkflow {
		return nil, errors.ErrAccessDenied
	}

	title := validation.SanitizeTextPtr(changes.Title)
	description := validation.SanitizeTextPtr(changes.Description)

	v := validation.NewValidator()
	v.Field("title", title).NotBlank().MaxLength(maxTitleLength)
	v.Field("description", description).NotBlank().MaxLength(maxDescriptionLength)
	v.Field("ticket_type", changes.TicketType).NotBlank().OneOf(string(TypeIssue), string(TypeEnhancement))
	if changes.CategoryID != nil && *changes.CategoryID <= 0 {
		v.Field("category_id", *changes.CategoryID).Custom(func(interface{}) *errors.AppError {
			return errors.NewValidationFieldError("category_id", "category_id must be positive", errors.ErrCodeValidationFailed)
		})
	}
	if err := v.Validate(); err != nil {
		return nil, err
	}

	next := current.clone()

	if changes.CategoryID != nil && *changes.CategoryID != current.CategoryID {
		ok, err := categories.CategoryIsActive(ctx, *changes.CategoryID)
		if err != nil {
			return nil, errors.NewStorageError("failed to check category", err)
		}
		if !ok {
			return nil, errors.NewInvalidCategory(*changes.CategoryID)
		}
		next.CategoryID = *changes.CategoryID
	}

	if changes.TicketType != nil {
		next.TicketType = Type(*changes.TicketType)
	}
	if changes.Priority != nil {
		next.Priority = Priority(strings.TrimSpace(*changes.Priority))
	}
	// the resulting pair is what must be valid, not either half against the old value
	if changes.TicketType != nil || changes.Priority != nil {
		if err := ValidatePriority(next.TicketType, next.Priority); err != nil {
			return nil, err
		}
	}

	// a supplied status is always a transition, so resubmitting the current
	// status is rejected like any other edge missing from the graph
	if changes.Status != nil {
		to := Status(*changes.Status)
		if err := ValidateTransition(current.Status, to); err != nil {
			return nil, err
		}
		next.Status = to
	}

	if changes.Progress != nil {
		if err := ValidateProgress(*changes.Progress); err != nil {
			return nil, err
		}
		next.Progress = *changes.Progress
	}

	if changes.TimelineDate.Set {
		if changes.TimelineDate.Value == nil || strings.TrimSpace(*changes.TimelineDate.Value) == "" {
			next.TimelineDate = nil
		} else {
			d, err := validation.ParseDate("timeline_date", *changes.TimelineDate.Value)
			if err != nil {
				return nil, err
			}
			next.TimelineDate = &d
		}
	}

	if title != nil {
		next.Title = *title
	}
	if description != nil {
		next.Description = *description
	}
	next.UpdatedAt = now
	return next, nil
}
