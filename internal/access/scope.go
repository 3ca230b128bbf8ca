package access

// Scope is the ticket visibility predicate derived from an actor. Repositories
// receive a Scope, never an organization, and translate it into a query filter.
type Scope struct {
	restricted bool
	creatorID  int64
}

// VisibilityFor returns the unrestricted scope for internal actors and a
// creator-only scope for everyone else.
func VisibilityFor(a Actor) Scope {
	if a.IsInternal() {
		return Scope{}
	}
	return Scope{restricted: true, creatorID: a.ID}
}

// Unrestricted is the scope used by maintenance paths that act on behalf of
// the system rather than a user.
func Unrestricted() Scope {
	return Scope{}
}

func (s Scope) Restricted() bool {
	return s.restricted
}

// CreatorID is meaningful only when Restricted is true.
func (s Scope) CreatorID() int64 {
	return s.creatorID
}

func (s Scope) Allows(creatorID int64) bool {
	return !s.restricted || s.creatorID == creatorID
}
