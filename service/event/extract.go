package event

import "strings"

// RedactedPlaceholder is the platform's stand-in text for notifications whose
// content is hidden by lock-screen privacy settings.
const RedactedPlaceholder = "内容已隐藏"

// systemPackage posts the synthetic notifications that carry remote input
// history (direct-reply previews).
const systemPackage = "android"

// Extract normalizes a raw payload into an Event. For PRIVATE and SECRET
// notifications the content may be redacted, so it prefers the public version
// when one exists and then walks the style fields in fixed priority order:
// big text, joined text lines, the newest structured message, and finally
// remote input history for the platform's own synthetic notifications.
// Extraction never fails; missing fields simply leave the best value found
// so far, and title/text are always defined (possibly empty) strings.
func Extract(p Payload) Event {
	title := p.Title
	text := p.Text

	if p.Visibility == VisibilityPrivate || p.Visibility == VisibilitySecret {
		if p.Public != nil {
			if p.Public.Title != "" {
				title = p.Public.Title
			}
			if p.Public.Text != "" {
				text = p.Public.Text
			}
		}

		if redacted(text) && p.BigText != "" {
			text = p.BigText
		}

		if redacted(text) && len(p.TextLines) > 0 {
			if joined := strings.Join(p.TextLines, "\n"); joined != "" {
				text = joined
			}
		}

		if redacted(text) && len(p.Messages) > 0 {
			if msgText := lastMessageText(p.Messages); msgText != "" {
				text = msgText
			}
		}

		if redacted(text) && p.Package == systemPackage && len(p.RemoteInputHistory) > 0 {
			if joined := strings.Join(p.RemoteInputHistory, "\n"); joined != "" {
				text = joined
			}
		}
	}

	return Event{
		SourcePackage:  p.Package,
		Title:          title,
		Text:           text,
		Visibility:     p.Visibility,
		PostedAtMillis: p.PostedAt,
	}
}

func redacted(text string) bool {
	return text == "" || text == RedactedPlaceholder
}

// lastMessageText reads the newest structured message. Adapters wrap foreign
// payloads, so a nil entry or a panicking accessor is treated as "no content".
func lastMessageText(messages []Message) (text string) {
	defer func() {
		if recover() != nil {
			text = ""
		}
	}()

	last := messages[len(messages)-1]
	if last == nil {
		return ""
	}
	return last.Text()
}
