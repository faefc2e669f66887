package session

// EventType identifies a session state change.
type EventType int

const (
	EventStoresChanged EventType = iota + 1
	EventSelectionChanged
	EventConversationChanged
	EventSyncChanged
	EventUploadProgress
	EventQueryStarted
	EventQueryFinished
)

func (t EventType) String() string {
	switch t {
	case EventStoresChanged:
		return "stores_changed"
	case EventSelectionChanged:
		return "selection_changed"
	case EventConversationChanged:
		return "conversation_changed"
	case EventSyncChanged:
		return "sync_changed"
	case EventUploadProgress:
		return "upload_progress"
	case EventQueryStarted:
		return "query_started"
	case EventQueryFinished:
		return "query_finished"
	default:
		return "unknown"
	}
}

// Event describes a change. StoreID is set for store-scoped events,
// Percent for upload progress, Err for failed operations and for a
// selection lost to a vanished store.
type Event struct {
	Type    EventType
	StoreID string
	Percent int
	Err     error
}
