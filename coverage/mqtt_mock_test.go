package coverage

import (
	"errors"
	"testing"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

func TestMockClient_PublishRecords(t *testing.T) {
	mock := NewMockClient()
	mock.SetConnected(true)

	token := mock.Publish("a/topic", 1, true, []byte("payload"))
	if token.Error() != nil {
		t.Fatalf("Publish() error: %v", token.Error())
	}

	messages := mock.GetPublishedMessages()
	if len(messages) != 1 {
		t.Fatalf("recorded %d messages, want 1", len(messages))
	}
	m := messages[0]
	if m.Topic != "a/topic" || string(m.Payload) != "payload" || m.QoS != 1 || !m.Retain {
		t.Errorf("recorded message = %+v", m)
	}
}

func TestMockClient_PublishWhileDisconnected(t *testing.T) {
	mock := NewMockClient()

	token := mock.Publish("a/topic", 0, false, "payload")
	if token.Error() == nil {
		t.Error("Publish() while disconnected should error")
	}
	if len(mock.GetPublishedMessages()) != 0 {
		t.Error("disconnected publish should not be recorded")
	}
}

func TestMockClient_PublishErrorInjection(t *testing.T) {
	mock := NewMockClient()
	mock.SetConnected(true)
	mock.SetPublishError(errors.New("boom"))

	token := mock.Publish("a/topic", 0, false, "payload")
	if token.Error() == nil {
		t.Error("injected publish error not surfaced")
	}
}

func TestMockClient_SimulateMessage_Wildcard(t *testing.T) {
	mock := NewMockClient()
	mock.SetConnected(true)

	var gotTopics []string
	handler := func(c mqtt.Client, msg mqtt.Message) {
		gotTopics = append(gotTopics, msg.Topic())
	}

	token := mock.Subscribe("netcover/query/+", 0, handler)
	if token.Error() != nil {
		t.Fatalf("Subscribe() error: %v", token.Error())
	}

	mock.SimulateMessage("netcover/query/kiosk-7", []byte("{}"))
	mock.SimulateMessage("netcover/query/a/b", []byte("{}"))  // too deep for +
	mock.SimulateMessage("other/query/kiosk-7", []byte("{}")) // wrong prefix

	if len(gotTopics) != 1 || gotTopics[0] != "netcover/query/kiosk-7" {
		t.Errorf("delivered topics = %v, want only netcover/query/kiosk-7", gotTopics)
	}
}

func TestMockClient_SimulateMessage_ExactMatch(t *testing.T) {
	mock := NewMockClient()
	mock.SetConnected(true)

	delivered := 0
	mock.Subscribe("netcover/density", 0, func(c mqtt.Client, msg mqtt.Message) {
		delivered++
	})

	mock.SimulateMessage("netcover/density", []byte("{}"))
	mock.SimulateMessage("netcover/other", []byte("{}"))

	if delivered != 1 {
		t.Errorf("delivered = %d, want 1", delivered)
	}
}

func TestMockClient_Unsubscribe(t *testing.T) {
	mock := NewMockClient()
	mock.SetConnected(true)

	delivered := 0
	mock.Subscribe("a/topic", 0, func(c mqtt.Client, msg mqtt.Message) {
		delivered++
	})
	mock.Unsubscribe("a/topic")
	mock.SimulateMessage("a/topic", []byte("{}"))

	if delivered != 0 {
		t.Errorf("delivered = %d after unsubscribe, want 0", delivered)
	}
}

func TestMockClient_ConnectDisconnect(t *testing.T) {
	mock := NewMockClient()
	if mock.IsConnected() {
		t.Error("new mock should start disconnected")
	}

	mock.Connect()
	if !mock.IsConnected() {
		t.Error("mock should be connected after Connect()")
	}

	mock.Disconnect(0)
	if mock.IsConnected() {
		t.Error("mock should be disconnected after Disconnect()")
	}
}
