package domain

// Room is a named, password-protected chat channel. Names are compared with
// plain case-sensitive equality; passwords are stored and compared in
// plaintext, matching the access-by-obscurity model of the product.
type Room struct {
	Name      string `json:"name"`
	Password  string `json:"password"`
	CreatedAt string `json:"createdAt"`
}

// Message is an append-only, timestamped entry within a room.
type Message struct {
	Text      string `json:"text"`
	Timestamp string `json:"timestamp"`
	Sender    string `json:"sender"`
}

// RoomInfo describes one directory entry when room enumeration is enabled
// (local backend only; the shared backend hides the directory on purpose).
type RoomInfo struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	CreatedAt    string `json:"createdAt"`
	MessageCount int    `json:"messageCount"`
}
