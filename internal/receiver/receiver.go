package receiver

import "time"

// Email represents a fetched email message.
type Email struct {
	ID      string    // unique identifier (Message-ID or UID)
	Date    time.Time // date the email was sent/received
	Content []byte    // raw RFC 5322 message bytes
}

// Receiver fetches candidate emails from a remote mail server. A single
// Fetch covers one scan run; implementations narrow the result server-side
// where the protocol allows it.
type Receiver interface {
	// Fetch returns emails from approximately the last processDays days.
	Fetch(processDays int) ([]Email, error)

	// Close releases any resources held by the receiver.
	Close() error
}
