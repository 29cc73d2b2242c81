package game

import "errors"

// Error taxonomy for lifecycle operations. Item-validation failures
// (ErrEmptyItem, ErrDuplicateItem) are expected outcomes the caller surfaces
// inline; the rest are structural and bubble up as user-visible failures.
var (
	// ErrNotFound indicates the game (or invite code) does not exist.
	ErrNotFound = errors.New("game: not found")

	// ErrAlreadyStarted indicates a join attempt after the game left creating.
	ErrAlreadyStarted = errors.New("game: already started")

	// ErrAlreadyJoined indicates the user is already a member. Join is
	// intentionally not idempotent; a second call gets this error.
	ErrAlreadyJoined = errors.New("game: already joined")

	// ErrGameFull indicates the game is at max player capacity.
	ErrGameFull = errors.New("game: full")

	// ErrEmptyItem indicates an item whose trimmed text is empty.
	ErrEmptyItem = errors.New("game: item text is empty")

	// ErrDuplicateItem indicates the trimmed item already exists in the
	// relevant list.
	ErrDuplicateItem = errors.New("game: item already exists")

	// ErrNotEnoughItems indicates a start attempt before every applicable
	// item pool can fill a size*size board.
	ErrNotEnoughItems = errors.New("game: not enough items to fill the board")

	// ErrInvalidTransition indicates an operation attempted outside the
	// status it is valid in.
	ErrInvalidTransition = errors.New("game: invalid status transition")

	// ErrInvalidArgument indicates an unsupported size, mode, or model at
	// creation time.
	ErrInvalidArgument = errors.New("game: invalid argument")
)
