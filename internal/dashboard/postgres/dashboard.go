package postgres

import (
	"context"
	"fmt"

	"github.com/frahmantamala/support-ticketing/internal/access"
	"github.com/frahmantamala/support-ticketing/internal/dashboard"
	"github.com/jmoiron/sqlx"
)

const factsQuery = `
SELECT t.id, t.category_id,
	COALESCE(c.name, '') AS category_name,
	COALESCE(c.is_active, FALSE) AS category_active,
	t.ticket_type, t.priority, t.status, t.progress,
	t.timeline_date, t.created_at, t.updated_at
FROM tickets t
LEFT JOIN categories c ON c.id = t.category_id`

const ticketEventsQuery = `
SELECT t.id AS ticket_id, t.title AS ticket_title,
	COALESCE(u.name, '') AS user_name,
	t.created_at AS at
FROM tickets t
LEFT JOIN users u ON u.id = t.creator_id`

const commentEventsQuery = `
SELECT cm.ticket_id, t.title AS ticket_title,
	COALESCE(u.name, '') AS user_name,
	cm.created_at AS at
FROM comments cm
JOIN tickets t ON t.id = cm.ticket_id
LEFT JOIN users u ON u.id = cm.author_id`

// Repository runs the reporting reads as plain SQL through sqlx.
type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) dashboard.Repository {
	return &Repository{db: db}
}

// where appends the visibility predicate for the tickets alias t.
func where(query string, scope access.Scope) (string, []interface{}) {
	if scope.Restricted() {
		return query + " WHERE t.creator_id = ?", []interface{}{scope.CreatorID()}
	}
	return query, nil
}

func (r *Repository) Facts(ctx context.Context, scope access.Scope) ([]dashboard.Fact, error) {
	query, args := where(factsQuery, scope)

	facts := []dashboard.Fact{}
	if err := r.db.SelectContext(ctx, &facts, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("dashboard facts: %w", err)
	}
	return facts, nil
}

func (r *Repository) RecentTicketEvents(ctx context.Context, scope access.Scope, limit int) ([]dashboard.Event, error) {
	query, args := where(ticketEventsQuery, scope)
	query += " ORDER BY t.created_at DESC, t.id DESC LIMIT ?"
	args = append(args, limit)

	events := []dashboard.Event{}
	if err := r.db.SelectContext(ctx, &events, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("recent ticket events: %w", err)
	}
	return events, nil
}

func (r *Repository) RecentCommentEvents(ctx context.Context, scope access.Scope, limit int) ([]dashboard.Event, error) {
	query, args := where(commentEventsQuery, scope)
	query += " ORDER BY cm.created_at DESC, cm.id DESC LIMIT ?"
	args = append(args, limit)

	events := []dashboard.Event{}
	if err := r.db.SelectContext(ctx, &events, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("recent comment events: %w", err)
	}
	return events, nil
}
