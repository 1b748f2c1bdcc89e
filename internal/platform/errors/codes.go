// Package errors provides structured error handling for widget data flows.
package errors

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Link errors
	CodeLinkTitleLength Code = "LINK_TITLE_LENGTH"
	CodeLinkURLInvalid  Code = "LINK_URL_INVALID"
	CodeLinkDuplicate   Code = "LINK_DUPLICATE_URL"

	// Session errors
	CodeSessionNameLength Code = "SESSION_NAME_LENGTH"
	CodeSessionNameTaken  Code = "SESSION_NAME_TAKEN"
	CodeSessionLast       Code = "SESSION_LAST_REMAINING"
	CodeSessionNotFound   Code = "SESSION_NOT_FOUND"

	// Sync errors
	CodeSyncUserRequired  Code = "SYNC_USER_ID_REQUIRED"
	CodeSyncLocalRead     Code = "SYNC_LOCAL_READ_FAILED"
	CodeSyncLocalWrite    Code = "SYNC_LOCAL_WRITE_FAILED"
	CodeSyncLocalEncode   Code = "SYNC_LOCAL_ENCODE_FAILED"
	CodeSyncRemoteFailure Code = "SYNC_REMOTE_FAILED"
	CodeSyncNotRegistered Code = "SYNC_PROVIDER_NOT_REGISTERED"

	// Widget registry errors
	CodeWidgetUnknownType Code = "WIDGET_UNKNOWN_TYPE"

	// Storage errors
	CodeNotFound Code = "NOT_FOUND"
)

// Kind groups codes by how callers are expected to react.
type Kind int

const (
	// KindUnknown covers unclassified failures.
	KindUnknown Kind = iota
	// KindValidation covers rejected user input; surfaced inline, no state change.
	KindValidation
	// KindDuplicate covers uniqueness collisions; surfaced inline.
	KindDuplicate
	// KindLocalPersistence covers local write failures; in-memory state stays
	// authoritative and the operation may be retried.
	KindLocalPersistence
	// KindRemote covers network/backend failures; degraded to local state.
	KindRemote
	// KindNotFound covers legitimate empty state, never user-visible.
	KindNotFound
)

// KindOf classifies a code per the widget error taxonomy.
func KindOf(code Code) Kind {
	switch code {
	case CodeLinkTitleLength, CodeLinkURLInvalid, CodeSessionNameLength,
		CodeSessionLast, CodeSyncUserRequired:
		return KindValidation
	case CodeLinkDuplicate, CodeSessionNameTaken:
		return KindDuplicate
	case CodeSyncLocalRead, CodeSyncLocalWrite, CodeSyncLocalEncode:
		return KindLocalPersistence
	case CodeSyncRemoteFailure:
		return KindRemote
	case CodeNotFound, CodeSessionNotFound, CodeSyncNotRegistered, CodeWidgetUnknownType:
		return KindNotFound
	default:
		return KindUnknown
	}
}
