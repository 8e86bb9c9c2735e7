package btree

import "errors"

var (
	// ErrBadIndexInfo means the metadata page of an existing index file
	// disagrees with the relation name, attribute offset or type it was
	// opened with.
	ErrBadIndexInfo = errors.New("index metadata does not match the requested relation, offset or type")

	// ErrBadOpcodes means StartScan was called with an operator outside
	// {GT, GTE} for the low bound or {LT, LTE} for the high bound.
	ErrBadOpcodes = errors.New("scan bounds accept only GT/GTE below and LT/LTE above")

	ErrBadScanRange = errors.New("scan low value is greater than high value")

	// ErrNoSuchKeyFound is raised by StartScan after it has ended the scan:
	// no entry satisfies both bounds.
	ErrNoSuchKeyFound = errors.New("no key satisfies the scan criteria")

	ErrScanNotInitialized = errors.New("no scan in progress")

	// ErrIndexScanCompleted leaves the scan active; the caller still owns the
	// EndScan call.
	ErrIndexScanCompleted = errors.New("scan exhausted the qualifying range")
)
