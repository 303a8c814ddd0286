package event

import "strings"

// Visibility mirrors the platform's notification visibility levels.
type Visibility string

const (
	VisibilityPublic  Visibility = "public"
	VisibilityPrivate Visibility = "private"
	VisibilitySecret  Visibility = "secret"
	VisibilityUnknown Visibility = "unknown"
)

func ParseVisibility(s string) Visibility {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "public":
		return VisibilityPublic
	case "private":
		return VisibilityPrivate
	case "secret":
		return VisibilitySecret
	default:
		return VisibilityUnknown
	}
}

// Message is the narrow capability the extractor needs from a structured
// message entry. The ingestion layer adapts platform payloads into this
// interface; the extractor never inspects platform types itself.
type Message interface {
	Text() string
}

// Payload is a raw notification as delivered by the device agent. Optional
// style fields carry the fallback content used when the primary text is
// redacted on the lock screen.
type Payload struct {
	Package    string
	Title      string
	Text       string
	Visibility Visibility
	PostedAt   int64

	BigText            string
	TextLines          []string
	Messages           []Message
	RemoteInputHistory []string

	// Public is the non-sensitive version of a redacted notification,
	// when the posting app supplies one. Only Title and Text are read.
	Public *Payload
}

// Event is the normalized result of extraction. It is consumed synchronously
// by the pipeline; dispatchers copy the fields they need.
type Event struct {
	SourcePackage  string
	Title          string
	Text           string
	Visibility     Visibility
	PostedAtMillis int64
}
