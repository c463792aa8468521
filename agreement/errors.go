package agreement

import "errors"

// Every rejected operation returns one of these (possibly wrapped with more
// context). A rejected call leaves the escrow or order untouched.
var (
	ErrAlreadyFinalized    = errors.New("already finalized")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrOutOfWindow         = errors.New("out of time window")
	ErrInvalidSecret       = errors.New("invalid secret")
	ErrInvalidProof        = errors.New("invalid merkle proof")
	ErrReplayedIndex       = errors.New("secret index already used")
	ErrInvalidFillAmount   = errors.New("invalid fill amount")
	ErrMalformedImmutables = errors.New("malformed immutables")
)
