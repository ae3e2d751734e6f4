// Package record implements the SQL-backed content record store and its
// save/trash/delete lifecycle. Every lifecycle mutation publishes typed
// events so the revision and shadow subsystems can react.
package record

import (
	"sort"
	"time"
)

// Record statuses.
const (
	// StatusDraft marks an unpublished record.
	StatusDraft = "draft"
	// StatusPublish marks a published record.
	StatusPublish = "publish"
	// StatusTrash marks a trashed record.
	StatusTrash = "trash"
	// StatusInherit marks a snapshot record; it displays as its parent's status.
	StatusInherit = "inherit"
)

// TypeRevision is the reserved record type for native snapshots.
const TypeRevision = "revision"

// Record is a content record. Snapshots reuse the same shape with
// Type=revision and ParentID pointing at the record they capture.
type Record struct {
	ID        int64
	GUID      string
	Type      string
	Status    string
	Slug      string
	Title     string
	Body      string
	ParentID  int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TypeDef describes a registered content type.
type TypeDef struct {
	Name string
	// SupportsRevisions enables native snapshots (and thereby shadows).
	SupportsRevisions bool
	// EditCapability is the capability required to edit records of the type.
	EditCapability string
}

// Types is the content type registry.
type Types struct {
	defs map[string]TypeDef
}

// NewTypes creates a registry with the built-in revision type.
func NewTypes() *Types {
	t := &Types{defs: make(map[string]TypeDef)}
	t.Register(TypeDef{Name: TypeRevision, SupportsRevisions: false, EditCapability: "edit_revisions"})
	return t
}

// Register adds or replaces a type definition.
func (t *Types) Register(def TypeDef) {
	t.defs[def.Name] = def
}

// Get returns the definition for a type name.
func (t *Types) Get(name string) (TypeDef, bool) {
	def, ok := t.defs[name]
	return def, ok
}

// Names returns the registered type names in sorted order.
func (t *Types) Names() []string {
	names := make([]string, 0, len(t.defs))
	for name := range t.defs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SupportsRevisions reports whether the named type supports snapshots.
func (t *Types) SupportsRevisions(name string) bool {
	def, ok := t.defs[name]
	return ok && def.SupportsRevisions
}
