package repositories

import "github.com/reelview/backend/internal/db"

// The sentinels live in db so packages underneath the repositories, such as
// the auth gate, can classify storage errors without importing this package.
var (
	ErrNotFound = db.ErrNotFound
	ErrConflict = db.ErrConflict
)
