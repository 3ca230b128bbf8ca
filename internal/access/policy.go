package access

// CanViewTicket reports whether the actor may read a ticket created by creatorID.
func CanViewTicket(a Actor, creatorID int64) bool {
	return VisibilityFor(a).Allows(creatorID)
}

// CanEditTicketCore covers title, description, category, type and priority.
func CanEditTicketCore(a Actor, creatorID int64) bool {
	return a.ID == creatorID
}

// CanEditTicketWorkflow covers status, progress and timeline date.
func CanEditTicketWorkflow(a Actor) bool {
	return a.IsInternal()
}

func CanDeleteTicket(a Actor) bool {
	return a.IsAdmin()
}

func CanEditComment(a Actor, authorID int64) bool {
	return a.ID == authorID
}

func CanDeleteComment(a Actor, authorID int64) bool {
	return a.ID == authorID || a.IsAdmin()
}

func CanDeleteFile(a Actor, uploaderID int64) bool {
	return a.ID == uploaderID || a.IsAdmin()
}

func CanManageCategories(a Actor) bool {
	return a.IsAdmin()
}

func CanManageUsers(a Actor) bool {
	return a.IsAdmin()
}

// CanViewInactiveCategories gates listing and reading deactivated categories.
func CanViewInactiveCategories(a Actor) bool {
	return a.IsAdmin()
}

// CanViewUserContent gates per-user listings such as a user's comments.
func CanViewUserContent(a Actor, ownerID int64) bool {
	return a.ID == ownerID || a.IsAdmin()
}

// CanFilterByCreator is false for external actors, who are already scoped
// to their own tickets.
func CanFilterByCreator(a Actor) bool {
	return a.IsInternal()
}
