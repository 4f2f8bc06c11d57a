package instance

import "errors"

// ErrBadTree is returned when an operation is issued before the instance's
// tree is initialized (spec.md §7). New always initializes one, so this is
// a defensive check against a zero-value Instance rather than a path
// exercised by normal use.
var ErrBadTree = errors.New("instance: tree not initialized")
