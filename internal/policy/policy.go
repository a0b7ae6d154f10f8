package policy

// Actor is the authenticated principal a decision is made for.
type Actor struct {
	UserID  string
	IsStaff bool
}

// CanManageCatalog reports whether the actor may create, update, or delete
// titles and genres.
func CanManageCatalog(actor Actor) bool {
	return actor.IsStaff
}

// CanEditReview reports whether the actor may modify the review. Only the
// author may edit; staff status grants no edit rights.
func CanEditReview(actor Actor, authorID string) bool {
	return actor.UserID != "" && actor.UserID == authorID
}

// CanDeleteReview reports whether the actor may delete the review. The author
// and staff may both delete.
func CanDeleteReview(actor Actor, authorID string) bool {
	if actor.IsStaff {
		return true
	}
	return actor.UserID != "" && actor.UserID == authorID
}

// CanReadUser reports whether the actor may read the user record.
func CanReadUser(actor Actor, userID string) bool {
	if actor.IsStaff {
		return true
	}
	return actor.UserID != "" && actor.UserID == userID
}

// CanUpdateUser reports whether the actor may modify the user record. Users
// only manage themselves.
func CanUpdateUser(actor Actor, userID string) bool {
	return actor.UserID != "" && actor.UserID == userID
}

// CanDeleteUser reports whether the actor may delete the user record. Staff
// may remove any account, users their own.
func CanDeleteUser(actor Actor, userID string) bool {
	if actor.IsStaff {
		return true
	}
	return actor.UserID != "" && actor.UserID == userID
}

// CanSearchMetadata reports whether the actor may query the external
// metadata provider.
func CanSearchMetadata(actor Actor) bool {
	return actor.IsStaff
}
