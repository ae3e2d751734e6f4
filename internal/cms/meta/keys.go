// Package meta implements the key/value metadata store attached to content
// records, plus the copy engine used when duplicating records and when
// capturing or restoring metadata alongside native snapshots.
package meta

// Reserved metadata keys. These are bookkeeping entries owned by the host or
// by the shadow-revision subsystem and must never leak through generic copy
// or delete operations.
const (
	// KeyEditLock is the host's concurrency lock ("user X is editing").
	KeyEditLock = "_edit_lock"
	// KeyEditLast records the last editor's user id.
	KeyEditLast = "_edit_last"
	// KeyShadowOf is set on a shadow record and points at its original.
	KeyShadowOf = "_shadow_of"
	// KeyShadowID is set on an original record and points at its shadow.
	KeyShadowID = "_shadow_id"
	// KeyMetaInRevision marks a snapshot whose metadata was captured.
	KeyMetaInRevision = "_meta_in_revision"
	// KeyTrashPriorStatus remembers a record's status before trashing.
	KeyTrashPriorStatus = "_trash_prior_status"
)

// CopyContext distinguishes the direction a copy or delete runs in, so key
// filters can protect different keys per direction.
type CopyContext int

const (
	// ContextDuplicate is a record duplication (shadow create/publish).
	ContextDuplicate CopyContext = iota
	// ContextCapture is metadata capture onto a fresh snapshot.
	ContextCapture
	// ContextRestore is metadata restoration from a snapshot.
	ContextRestore
)

// String returns the string representation of the copy context.
func (c CopyContext) String() string {
	switch c {
	case ContextDuplicate:
		return "duplicate"
	case ContextCapture:
		return "capture"
	case ContextRestore:
		return "restore"
	default:
		return "unknown"
	}
}

// ExcludeSet is a set of metadata keys protected from copy/delete.
type ExcludeSet map[string]struct{}

// Contains reports whether the key is excluded.
func (s ExcludeSet) Contains(key string) bool {
	_, ok := s[key]
	return ok
}

// KeyFilter lets embedding code protect additional keys. Filters receive the
// accumulated key list and return a possibly-extended one.
type KeyFilter interface {
	ExcludeKeys(ctx CopyContext, keys []string) []string
}

// KeyFilterFunc adapts a function to the KeyFilter interface.
type KeyFilterFunc func(ctx CopyContext, keys []string) []string

// ExcludeKeys implements KeyFilter.
func (f KeyFilterFunc) ExcludeKeys(ctx CopyContext, keys []string) []string {
	return f(ctx, keys)
}

// baseExcludeKeys are protected in every context.
var baseExcludeKeys = []string{
	KeyEditLock,
	KeyEditLast,
	KeyShadowOf,
	KeyShadowID,
	KeyMetaInRevision,
	KeyTrashPriorStatus,
}

// Exclusions accumulates the exclude-key set from the base keys and any
// registered filters. Filters run in registration order.
type Exclusions struct {
	filters []KeyFilter
}

// NewExclusions creates an empty filter chain over the base key set.
func NewExclusions() *Exclusions {
	return &Exclusions{}
}

// Register appends a key filter to the chain.
func (e *Exclusions) Register(f KeyFilter) {
	e.filters = append(e.filters, f)
}

// For builds the exclude set for the given copy context.
func (e *Exclusions) For(ctx CopyContext) ExcludeSet {
	keys := make([]string, len(baseExcludeKeys))
	copy(keys, baseExcludeKeys)
	for _, f := range e.filters {
		keys = f.ExcludeKeys(ctx, keys)
	}
	set := make(ExcludeSet, len(keys))
	for _, k := range keys {
		set[k] = struct{}{}
	}
	return set
}
