package followers

// Frame is one raw server-sent event as delivered by the stream transport.
// An empty Name is the default (progress) message.
type Frame struct {
	Name string
	Data []byte
}

// Event names carried on the wire.
const (
	EventCursor = "cursor"
	EventDone   = "done"
	EventError  = "error"
)

// ProgressEvent is the default message payload: a running total of fetched
// profiles plus, optionally, a batch of newly scored records and/or an
// updated cursor.
type ProgressEvent struct {
	TotalFetched *int        `json:"total_fetched,omitempty"`
	Cursor       string      `json:"cursor,omitempty"`
	Followers    []RawRecord `json:"followers,omitempty"`
}

// CursorEvent updates only the resumption token.
type CursorEvent struct {
	Cursor string `json:"cursor"`
}

// DoneEvent is the terminal payload: the authoritative final follower list.
type DoneEvent struct {
	Count      int         `json:"count"`
	Followers  []RawRecord `json:"followers"`
	NextCursor string      `json:"next_cursor,omitempty"`
}
