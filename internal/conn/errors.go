package conn

import "errors"

var (
	// ErrRejected is returned by SetParam when the server refuses the
	// offered encoding. Callers fall back to a simpler encoding.
	ErrRejected = errors.New("conn: param rejected")

	// ErrGone is returned by handle operations after the bound object or
	// the handle itself has been destroyed.
	ErrGone = errors.New("conn: object gone")
)
