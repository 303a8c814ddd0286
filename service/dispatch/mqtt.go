package dispatch

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"msgbox/service/event"
	"msgbox/service/rule"
	"msgbox/service/template"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

const (
	defaultPort    = "1883"
	clientIDPrefix = "MessageBox_"
)

// MQTTDispatcher publishes one message per call over an ephemeral broker
// session: connect, publish at QoS 1, disconnect. Sessions are never pooled
// or reused across calls. Dispatch blocks until the attempt completes; the
// pipeline offloads it to worker goroutines.
type MQTTDispatcher struct {
	connectTimeout time.Duration
	logger         *slog.Logger

	// now is stubbed in tests; it feeds $time and generated client ids.
	now func() time.Time
}

func NewMQTTDispatcher(connectTimeout time.Duration, logger *slog.Logger) *MQTTDispatcher {
	return &MQTTDispatcher{
		connectTimeout: connectTimeout,
		logger:         logger,
		now:            time.Now,
	}
}

// Dispatch attempts a single publish for the rule. Validation and transport
// faults are logged and swallowed; nothing propagates to the caller.
func (d *MQTTDispatcher) Dispatch(r rule.ForwardRule, ev event.Event) {
	if err := d.publish(r, ev); err != nil {
		d.logger.Warn("MQTT dispatch failed", "rule", r.Name, "broker", r.BrokerHost, "error", err)
		return
	}
	d.logger.Debug("MQTT message published", "rule", r.Name, "topic", r.Topic)
}

func (d *MQTTDispatcher) publish(r rule.ForwardRule, ev event.Event) error {
	if strings.TrimSpace(r.BrokerHost) == "" {
		return fmt.Errorf("broker host is blank")
	}

	now := d.now()
	payload := buildPayload(r, ev, now.UnixMilli())

	opts := mqtt.NewClientOptions().
		AddBroker(brokerAddr(r)).
		SetClientID(clientID(r, now)).
		SetCleanSession(true).
		SetConnectTimeout(d.connectTimeout).
		SetAutoReconnect(false).
		SetConnectRetry(false)
	if r.Username != "" {
		opts.SetUsername(r.Username)
		opts.SetPassword(r.Password)
	}

	client := mqtt.NewClient(opts)

	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("connect: %w", token.Error())
	}
	// The session is closed on every exit path past this point, including
	// validation and publish failures.
	defer client.Disconnect(250)

	if strings.TrimSpace(r.Topic) == "" {
		return fmt.Errorf("topic is blank")
	}

	if token := client.Publish(r.Topic, 1, false, payload); token.Wait() && token.Error() != nil {
		return fmt.Errorf("publish: %w", token.Error())
	}

	return nil
}

// brokerAddr resolves the connection target, defaulting the port to 1883.
func brokerAddr(r rule.ForwardRule) string {
	port := strings.TrimSpace(r.Port)
	if port == "" {
		port = defaultPort
	}
	return "tcp://" + strings.TrimSpace(r.BrokerHost) + ":" + port
}

// clientID uses the rule's client id when set, otherwise synthesizes one per
// call so concurrent publishes do not collide on broker-side identity.
func clientID(r rule.ForwardRule, now time.Time) string {
	if id := strings.TrimSpace(r.ClientID); id != "" {
		return id
	}
	return clientIDPrefix + strconv.FormatInt(now.UnixMilli(), 10)
}

type defaultPayload struct {
	AppPackage string `json:"app_package"`
	AppName    string `json:"app_name"`
	Title      string `json:"title"`
	Content    string `json:"content"`
	Time       int64  `json:"time"`
}

// buildPayload renders the rule's message template with the full placeholder
// vocabulary, or falls back to the default JSON object when no template is
// configured.
func buildPayload(r rule.ForwardRule, ev event.Event, nowMillis int64) []byte {
	if r.MessageTemplate != "" {
		rendered := template.Render(r.MessageTemplate, template.Context{
			Title:      ev.Title,
			Text:       ev.Text,
			AppPackage: ev.SourcePackage,
			AppName:    r.AppName,
			TimeMillis: nowMillis,
		})
		return []byte(rendered)
	}

	payload, _ := json.Marshal(defaultPayload{ //nolint:errcheck // flat struct, cannot fail
		AppPackage: ev.SourcePackage,
		AppName:    r.AppName,
		Title:      ev.Title,
		Content:    ev.Text,
		Time:       nowMillis,
	})
	return payload
}
