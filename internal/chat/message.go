// Package chat defines the message model exchanged between clients and
// persisted by the store.
package chat

// Message is the unit of communication. Clients publish it over the
// WebSocket channel and the same shape is echoed back on the broadcast
// topic and returned by the history endpoint.
//
// The timestamp is an opaque client-supplied marker; ordering is always
// store insertion order, never derived from this field. Roomid tags a
// message with a logical room but does not partition broadcast or
// history: every subscriber sees every room's traffic.
type Message struct {
	ID        string `json:"id,omitempty"`
	Content   string `json:"content"`
	Sender    string `json:"sender"`
	Timestamp string `json:"timestamp"`
	RoomID    int    `json:"roomid"`
}
