// Package event provides the synchronous lifecycle event bus that ties the
// content store to the revision and shadow subsystems. Events form a closed
// set of variants with typed payloads; handlers run in ascending priority
// order within the request that triggered them.
package event

// Type identifies an event variant.
type Type int

const (
	// StatusTransition fires when a record save changes its status.
	StatusTransition Type = iota
	// RecordSaved fires after a record has been created or updated.
	RecordSaved
	// BeforeDelete fires before a record is permanently deleted.
	BeforeDelete
	// Trashed fires after a record has been moved to the trash.
	Trashed
	// Untrashed fires after a record has been restored from the trash.
	Untrashed
	// RevisionCreated fires after a native snapshot has been created.
	RevisionCreated
	// RevisionRestored fires after a snapshot's content has been restored.
	RevisionRestored
)

// String returns the string representation of the event type.
func (t Type) String() string {
	switch t {
	case StatusTransition:
		return "status_transition"
	case RecordSaved:
		return "record_saved"
	case BeforeDelete:
		return "before_delete"
	case Trashed:
		return "trashed"
	case Untrashed:
		return "untrashed"
	case RevisionCreated:
		return "revision_created"
	case RevisionRestored:
		return "revision_restored"
	default:
		return "unknown"
	}
}

// Event is implemented by every payload struct.
type Event interface {
	EventType() Type
}

// StatusTransitionEvent carries a status change observed during a save.
type StatusTransitionEvent struct {
	RecordID   int64
	RecordType string
	OldStatus  string
	NewStatus  string
}

// EventType implements Event.
func (StatusTransitionEvent) EventType() Type { return StatusTransition }

// RecordSavedEvent fires at the end of the save pipeline for a record.
type RecordSavedEvent struct {
	RecordID   int64
	RecordType string
	Status     string
}

// EventType implements Event.
func (RecordSavedEvent) EventType() Type { return RecordSaved }

// BeforeDeleteEvent fires before a permanent delete is executed.
type BeforeDeleteEvent struct {
	RecordID   int64
	RecordType string
}

// EventType implements Event.
func (BeforeDeleteEvent) EventType() Type { return BeforeDelete }

// TrashedEvent fires after a record lands in the trash.
type TrashedEvent struct {
	RecordID int64
}

// EventType implements Event.
func (TrashedEvent) EventType() Type { return Trashed }

// UntrashedEvent fires after a record leaves the trash.
type UntrashedEvent struct {
	RecordID int64
}

// EventType implements Event.
func (UntrashedEvent) EventType() Type { return Untrashed }

// RevisionCreatedEvent fires after a snapshot record exists.
type RevisionCreatedEvent struct {
	SnapshotID int64
	ParentID   int64
}

// EventType implements Event.
func (RevisionCreatedEvent) EventType() Type { return RevisionCreated }

// RevisionRestoredEvent fires after snapshot content was written back.
type RevisionRestoredEvent struct {
	RecordID   int64
	SnapshotID int64
}

// EventType implements Event.
func (RevisionRestoredEvent) EventType() Type { return RevisionRestored }
