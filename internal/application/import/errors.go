package importapp

import (
	"errors"
	"fmt"
)

// ErrCodeImportPersistence is recorded in the history of uploads aborted by a store failure
const ErrCodeImportPersistence = "ERR_IMPORT_PERSISTENCE"

// PersistenceError reports a store failure that aborted an upload. The
// upload's own transaction has been rolled back.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// IsPersistenceError reports whether err is, or wraps, a PersistenceError
func IsPersistenceError(err error) bool {
	var pe *PersistenceError
	return errors.As(err, &pe)
}
