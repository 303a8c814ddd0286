package dispatch

import (
	"bufio"
	"encoding/json"
	"io"
	"net"
	"testing"
	"time"

	"msgbox/service/event"
	"msgbox/service/rule"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBrokerAddr(t *testing.T) {
	assert.Equal(t, "tcp://broker.example:1883", brokerAddr(rule.ForwardRule{BrokerHost: "broker.example"}))
	assert.Equal(t, "tcp://broker.example:8883", brokerAddr(rule.ForwardRule{BrokerHost: "broker.example", Port: "8883"}))
	assert.Equal(t, "tcp://broker.example:1883", brokerAddr(rule.ForwardRule{BrokerHost: " broker.example ", Port: " "}))
}

func TestClientID(t *testing.T) {
	now := time.UnixMilli(1700000000000)

	assert.Equal(t, "custom", clientID(rule.ForwardRule{ClientID: "custom"}, now))
	assert.Equal(t, "MessageBox_1700000000000", clientID(rule.ForwardRule{}, now))
	assert.Equal(t, "MessageBox_1700000000000", clientID(rule.ForwardRule{ClientID: "  "}, now))
}

func TestBuildPayloadDefaultJSON(t *testing.T) {
	r := rule.ForwardRule{AppName: "Chat"}
	ev := event.Event{SourcePackage: "com.chat.app", Title: "Alice", Text: "hello"}

	payload := buildPayload(r, ev, 1700000000000)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(payload, &decoded))
	assert.Equal(t, map[string]any{
		"app_package": "com.chat.app",
		"app_name":    "Chat",
		"title":       "Alice",
		"content":     "hello",
		"time":        float64(1700000000000),
	}, decoded)
}

func TestBuildPayloadTemplate(t *testing.T) {
	r := rule.ForwardRule{AppName: "Chat", MessageTemplate: "$app_name/$app_package $title: $text @$time"}
	ev := event.Event{SourcePackage: "com.chat.app", Title: "Alice", Text: "hello"}

	payload := buildPayload(r, ev, 42)

	assert.Equal(t, "Chat/com.chat.app Alice: hello @42", string(payload))
}

func TestPublishBlankHostFailsWithoutConnecting(t *testing.T) {
	d := NewMQTTDispatcher(time.Second, discardLogger())

	err := d.publish(rule.ForwardRule{BrokerHost: "  ", Topic: "t"}, event.Event{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker host is blank")
}

func TestDispatchSwallowsFailures(t *testing.T) {
	d := NewMQTTDispatcher(time.Second, discardLogger())

	require.NotPanics(t, func() {
		d.Dispatch(rule.ForwardRule{Name: "broken"}, event.Event{})
	})
}

// Packet types of the stub broker's wire protocol (MQTT 3.1.1 fixed header).
const (
	packetConnect    = 1
	packetPublish    = 3
	packetDisconnect = 14
	packetPingReq    = 12
)

type stubPacket struct {
	packetType byte
	qos        byte
	topic      string
	payload    []byte
}

// stubBroker speaks just enough MQTT to accept one client session: it acks
// CONNECT and QoS-1 PUBLISH packets and records everything it receives.
func stubBroker(t *testing.T) (host, port string, packets chan stubPacket) {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = ln.Close()
	})

	host, port, err = net.SplitHostPort(ln.Addr().String())
	require.NoError(t, err)

	packets = make(chan stubPacket, 16)

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		reader := bufio.NewReader(conn)
		for {
			header, body, err := readMQTTPacket(reader)
			if err != nil {
				return
			}

			pkt := stubPacket{packetType: header >> 4, qos: (header >> 1) & 0x3}

			switch pkt.packetType {
			case packetConnect:
				_, _ = conn.Write([]byte{0x20, 0x02, 0x00, 0x00}) // CONNACK, accepted
			case packetPublish:
				topicLen := int(body[0])<<8 | int(body[1])
				pkt.topic = string(body[2 : 2+topicLen])
				rest := body[2+topicLen:]
				if pkt.qos > 0 {
					_, _ = conn.Write([]byte{0x40, 0x02, rest[0], rest[1]}) // PUBACK
					rest = rest[2:]
				}
				pkt.payload = append([]byte(nil), rest...)
			case packetPingReq:
				_, _ = conn.Write([]byte{0xD0, 0x00}) // PINGRESP
			}

			packets <- pkt
		}
	}()

	return host, port, packets
}

func readMQTTPacket(r *bufio.Reader) (byte, []byte, error) {
	header, err := r.ReadByte()
	if err != nil {
		return 0, nil, err
	}

	length := 0
	multiplier := 1
	for {
		b, err := r.ReadByte()
		if err != nil {
			return 0, nil, err
		}
		length += int(b&0x7f) * multiplier
		if b&0x80 == 0 {
			break
		}
		multiplier *= 128
	}

	body := make([]byte, length)
	if _, err := io.ReadFull(r, body); err != nil {
		return 0, nil, err
	}
	return header, body, nil
}

func collectPackets(t *testing.T, packets chan stubPacket, want int) []stubPacket {
	t.Helper()
	var got []stubPacket
	for len(got) < want {
		select {
		case pkt := <-packets:
			got = append(got, pkt)
		case <-time.After(5 * time.Second):
			t.Fatalf("timed out after %d of %d packets", len(got), want)
		}
	}
	return got
}

func TestPublishRoundTrip(t *testing.T) {
	host, port, packets := stubBroker(t)
	d := NewMQTTDispatcher(5*time.Second, discardLogger())

	r := rule.ForwardRule{
		Name:            "broker",
		BrokerHost:      host,
		Port:            port,
		ClientID:        "test-client",
		Topic:           "notify/chat",
		MessageTemplate: "$title|$text",
	}
	ev := event.Event{SourcePackage: "com.chat.app", Title: "Alice", Text: "hello"}

	require.NoError(t, d.publish(r, ev))

	got := collectPackets(t, packets, 3)
	assert.Equal(t, byte(packetConnect), got[0].packetType)
	assert.Equal(t, byte(packetPublish), got[1].packetType)
	assert.Equal(t, byte(1), got[1].qos)
	assert.Equal(t, "notify/chat", got[1].topic)
	assert.Equal(t, "Alice|hello", string(got[1].payload))
	assert.Equal(t, byte(packetDisconnect), got[2].packetType)
}

func TestPublishBlankTopicAbortsAfterConnect(t *testing.T) {
	host, port, packets := stubBroker(t)
	d := NewMQTTDispatcher(5*time.Second, discardLogger())

	r := rule.ForwardRule{
		Name:       "broker",
		BrokerHost: host,
		Port:       port,
		ClientID:   "test-client",
		Topic:      "   ",
	}

	err := d.publish(r, event.Event{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "topic is blank")

	// The session was opened and then closed without a publish.
	got := collectPackets(t, packets, 2)
	assert.Equal(t, byte(packetConnect), got[0].packetType)
	assert.Equal(t, byte(packetDisconnect), got[1].packetType)
}

func TestPublishConnectRefused(t *testing.T) {
	d := NewMQTTDispatcher(time.Second, discardLogger())

	err := d.publish(rule.ForwardRule{BrokerHost: "127.0.0.1", Port: "1", Topic: "t"}, event.Event{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connect")
}
