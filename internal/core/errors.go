package core

import "errors"

// Sentinel error kinds propagated out of every stage of a run. Callers use
// errors.Is against these to decide whether a failure is fatal to the run
// (ErrStoreUnavailable, ErrConfigInvalid) or should simply be logged and
// skipped (ErrInputEmpty, ErrDataInconsistency).
var (
	// ErrInputEmpty means a run's article query returned nothing for the
	// window. Not fatal: the run still writes its log files and exits 0.
	ErrInputEmpty = errors.New("core: no articles in window")

	// ErrStoreUnavailable means a storage backend could not serve a
	// request (connection refused, timeout, auth failure). Fatal: the run
	// aborts rather than produce a partial result.
	ErrStoreUnavailable = errors.New("core: store unavailable")

	// ErrDataInconsistency means a single record failed to parse or
	// referenced data that no longer exists (e.g. an event's article id
	// has no matching row). The offending record is skipped; the run
	// continues.
	ErrDataInconsistency = errors.New("core: data inconsistency")

	// ErrConfigInvalid means configuration failed validation at
	// construction time (threshold out of [0,1], missing embeddings path,
	// unknown storage backend). Fatal before any run starts.
	ErrConfigInvalid = errors.New("core: invalid configuration")
)
