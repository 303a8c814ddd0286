package rule

import (
	"strings"

	"msgbox/service/event"
)

type Type string

const (
	TypeHTTP Type = "http"
	TypeMQTT Type = "mqtt"
)

// ForwardRule binds one source app to one destination: an HTTP webhook or an
// MQTT broker/topic. A rule is one type or the other; fields of the unused
// variant are ignored at dispatch time.
type ForwardRule struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Type           Type   `json:"type"`
	AppPackageName string `json:"appPackageName"`
	AppName        string `json:"appName"`
	FilterKeywords string `json:"filterKeywords"`

	// HTTP
	ServerURL string `json:"serverUrl,omitempty"`

	// MQTT
	BrokerHost      string `json:"brokerHost,omitempty"`
	Port            string `json:"port,omitempty"`
	ClientID        string `json:"clientId,omitempty"`
	Username        string `json:"username,omitempty"`
	Password        string `json:"password,omitempty"`
	Topic           string `json:"topic,omitempty"`
	MessageTemplate string `json:"messageTemplate,omitempty"`
}

// Keywords splits the comma-separated filter, trimming whitespace and
// dropping empty tokens. An empty result means the rule matches all content.
func (r ForwardRule) Keywords() []string {
	var keywords []string
	for _, token := range strings.Split(r.FilterKeywords, ",") {
		token = strings.TrimSpace(token)
		if token != "" {
			keywords = append(keywords, token)
		}
	}
	return keywords
}

// Matches reports whether this rule applies to the event: the package must
// match exactly (an empty package matches nothing), and when keywords are
// present at least one must appear verbatim in "{title} {text}". Matching is
// case-sensitive.
func (r ForwardRule) Matches(ev event.Event) bool {
	if r.AppPackageName == "" || r.AppPackageName != ev.SourcePackage {
		return false
	}

	keywords := r.Keywords()
	if len(keywords) == 0 {
		return true
	}

	content := ev.Title + " " + ev.Text
	for _, keyword := range keywords {
		if strings.Contains(content, keyword) {
			return true
		}
	}
	return false
}

// Match filters rules down to those applicable to the event. Order is not
// significant; all matching rules fire independently.
func Match(ev event.Event, rules []ForwardRule) []ForwardRule {
	var matched []ForwardRule
	for _, r := range rules {
		if r.Matches(ev) {
			matched = append(matched, r)
		}
	}
	return matched
}
