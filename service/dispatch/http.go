package dispatch

import (
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"msgbox/service/event"
	"msgbox/service/rule"
	"msgbox/service/template"
)

// HTTPDispatcher posts webhook requests for HTTP rules. Dispatch is
// fire-and-forget: the request runs on its own goroutine and the outcome is
// only logged, never returned.
type HTTPDispatcher struct {
	client *http.Client
	logger *slog.Logger
}

func NewHTTPDispatcher(timeout time.Duration, logger *slog.Logger) *HTTPDispatcher {
	return &HTTPDispatcher{
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout: timeout,
				}).DialContext,
				TLSHandshakeTimeout:   timeout,
				ResponseHeaderTimeout: timeout,
			},
		},
		logger: logger,
	}
}

// Dispatch renders the rule's URL template ($title/$text only, values
// percent-encoded) and issues the POST asynchronously.
func (d *HTTPDispatcher) Dispatch(r rule.ForwardRule, ev event.Event) {
	target := template.RenderURL(r.ServerURL, template.Context{
		Title: ev.Title,
		Text:  ev.Text,
	})

	go d.post(r, target)
}

func (d *HTTPDispatcher) post(r rule.ForwardRule, target string) {
	req, err := http.NewRequest(http.MethodPost, target, strings.NewReader(""))
	if err != nil {
		d.logger.Warn("Invalid webhook URL", "rule", r.Name, "url", target, "error", err)
		return
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := d.client.Do(req)
	if err != nil {
		d.logger.Warn("Webhook request failed", "rule", r.Name, "url", target, "error", err)
		return
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body) //nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		d.logger.Warn("Webhook returned non-2xx status", "rule", r.Name, "url", target, "status", resp.StatusCode)
		return
	}

	d.logger.Debug("Webhook delivered", "rule", r.Name, "status", resp.StatusCode)
}
