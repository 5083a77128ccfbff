// Package notify broadcasts catalog change events to connected WebSocket
// clients. Delivery is best effort: slow or dead consumers are dropped, and
// an event that reaches nobody is not an error.
package notify

import "time"

// Event types emitted by the catalog layer.
const (
	EventArtistCreated  = "ARTIST_CREATED"
	EventArtistUpdated  = "ARTIST_UPDATED"
	EventArtistDeleted  = "ARTIST_DELETED"
	EventAlbumCreated   = "ALBUM_CREATED"
	EventAlbumUpdated   = "ALBUM_UPDATED"
	EventAlbumDeleted   = "ALBUM_DELETED"
	EventCoverUploaded  = "COVER_UPLOADED"
	EventRegionalSynced = "REGIONAL_SYNCED"
)

// Event is the wire envelope pushed to subscribers.
type Event struct {
	Type     string    `json:"type"`
	Message  string    `json:"message"`
	Data     any       `json:"data,omitempty"`
	Username string    `json:"username,omitempty"`
	At       time.Time `json:"at"`
}

// NewEvent stamps an event with the current time.
func NewEvent(eventType, message string, data any, username string) Event {
	return Event{
		Type:     eventType,
		Message:  message,
		Data:     data,
		Username: username,
		At:       time.Now().UTC(),
	}
}
