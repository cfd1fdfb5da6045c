package coverage

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// QueryHandler is called when a coverage query arrives over MQTT.
// requestID is the last topic segment, so requesters can subscribe to their
// own result topic. err is non-nil when the payload failed to parse or
// validate; q is only meaningful when err is nil.
type QueryHandler func(requestID string, q QueryPoint, err error)

// queryRequest is the wire format accepted on the query topic.
type queryRequest struct {
	Latitude  float64  `json:"latitude"`
	Longitude float64  `json:"longitude"`
	RadiusKm  *float64 `json:"radiusKm,omitempty"`
	K         *int     `json:"k,omitempty"`
}

// MQTTClient manages the MQTT connection and the query-topic subscription
// for the live analysis service.
type MQTTClient struct {
	client       mqtt.Client
	config       *Config
	queryHandler QueryHandler
	isConnected  bool
	mu           sync.RWMutex
}

// InitMQTT initializes an MQTT client with the provided configuration.
// If neither the MQTT_BROKER env var nor config.MQTT.Broker is set, MQTT is
// disabled and this returns (nil, nil).
func InitMQTT(config *Config, handler QueryHandler) (*MQTTClient, error) {
	broker := os.Getenv("MQTT_BROKER")
	if broker == "" && config != nil && config.MQTT.Broker != "" {
		broker = config.MQTT.Broker
	}

	if broker == "" {
		log.Println("MQTT disabled: MQTT_BROKER not set")
		return nil, nil
	}

	if config == nil || config.MQTT.QueryTopic == "" {
		return nil, fmt.Errorf("MQTT enabled but no query topic configured")
	}

	client := &MQTTClient{
		config:       config,
		queryHandler: handler,
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(broker)

	clientID := os.Getenv("MQTT_CLIENT_ID")
	if clientID == "" && config.MQTT.ClientID != "" {
		clientID = config.MQTT.ClientID
	}
	if clientID == "" {
		clientID = "netcover"
	}
	opts.SetClientID(clientID)

	username := os.Getenv("MQTT_USERNAME")
	if username == "" && config.MQTT.Username != "" {
		username = config.MQTT.Username
	}
	if username != "" {
		opts.SetUsername(username)
		password := os.Getenv("MQTT_PASSWORD")
		if password == "" && config.MQTT.Password != "" {
			password = config.MQTT.Password
		}
		opts.SetPassword(password)
	}

	// Connection settings
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(5 * time.Second)
	opts.SetMaxReconnectInterval(60 * time.Second)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(10 * time.Second)
	opts.SetCleanSession(false) // preserve the query subscription on reconnect
	opts.SetOrderMatters(false)

	opts.SetOnConnectHandler(client.onConnect)
	opts.SetConnectionLostHandler(client.onConnectionLost)
	opts.SetReconnectingHandler(client.onReconnecting)

	client.client = mqtt.NewClient(opts)

	go client.connectWithRetry()

	return client, nil
}

// connectWithRetry attempts to connect to the MQTT broker with exponential backoff
func (c *MQTTClient) connectWithRetry() {
	retryDelay := 1 * time.Second
	maxRetryDelay := 60 * time.Second

	for {
		log.Println("Connecting to MQTT broker...")

		token := c.client.Connect()
		if token.WaitTimeout(10 * time.Second) {
			if token.Error() == nil {
				log.Println("Successfully connected to MQTT broker")
				c.setConnected(true)
				return
			}
			log.Printf("MQTT connection failed: %v", token.Error())
		} else {
			log.Println("MQTT connection timeout")
		}

		log.Printf("Retrying MQTT connection in %v...", retryDelay)
		time.Sleep(retryDelay)
		retryDelay *= 2
		if retryDelay > maxRetryDelay {
			retryDelay = maxRetryDelay
		}
	}
}

// onConnect is called when the MQTT connection is established
func (c *MQTTClient) onConnect(client mqtt.Client) {
	c.setConnected(true)

	topic := c.config.MQTT.QueryTopic
	log.Printf("MQTT connected, subscribing to query topic %s", topic)

	token := client.Subscribe(topic, 0, c.handleQueryMessage)
	if token.WaitTimeout(5*time.Second) && token.Error() != nil {
		log.Printf("Error subscribing to %s: %v", topic, token.Error())
	} else {
		log.Printf("Successfully subscribed to %s", topic)
	}
}

// onConnectionLost is called when the MQTT connection is lost.
// Auto-reconnect is enabled, so this is typically a transient event.
func (c *MQTTClient) onConnectionLost(client mqtt.Client, err error) {
	log.Printf("MQTT connection interrupted (%v), auto-reconnect will retry", err)
	c.setConnected(false)
}

// onReconnecting is called when the client attempts to reconnect
func (c *MQTTClient) onReconnecting(client mqtt.Client, opts *mqtt.ClientOptions) {
	log.Println("MQTT reconnecting...")
}

// handleQueryMessage parses an incoming query payload and forwards it to the
// registered handler.
func (c *MQTTClient) handleQueryMessage(client mqtt.Client, msg mqtt.Message) {
	payload := msg.Payload()
	requestID := requestIDFromTopic(msg.Topic())
	log.Printf("Received coverage query %s (topic: %s, size: %d bytes)",
		requestID, msg.Topic(), len(payload))

	q, err := c.parseQuery(payload)
	if c.queryHandler != nil {
		c.queryHandler(requestID, q, err)
	} else if err != nil {
		log.Printf("Error parsing query %s: %v", requestID, err)
	}
}

// parseQuery builds a QueryPoint from a JSON payload, falling back to the
// configured analysis defaults for omitted fields.
func (c *MQTTClient) parseQuery(payload []byte) (QueryPoint, error) {
	var req queryRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return QueryPoint{}, fmt.Errorf("parsing query payload: %w", err)
	}

	q := c.config.Query(req.Latitude, req.Longitude)
	if req.RadiusKm != nil {
		q.RadiusKm = *req.RadiusKm
	}
	if req.K != nil {
		q.K = *req.K
	}

	if !q.GeoPoint.Valid() {
		return QueryPoint{}, &ValidationError{
			Field:  "query point",
			Reason: fmt.Sprintf("(%g, %g) outside WGS84 range", req.Latitude, req.Longitude),
		}
	}
	return q, nil
}

// requestIDFromTopic extracts the requester identifier from the last topic
// segment. Example: "netcover/query/kiosk-7" -> "kiosk-7".
func requestIDFromTopic(topic string) string {
	parts := strings.Split(topic, "/")
	return parts[len(parts)-1]
}

// IsConnected returns true if the MQTT client is connected
func (c *MQTTClient) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.isConnected
}

// setConnected updates the connection status
func (c *MQTTClient) setConnected(connected bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.isConnected = connected
}

// Disconnect gracefully closes the MQTT connection
func (c *MQTTClient) Disconnect() {
	if c.client != nil && c.client.IsConnected() {
		log.Println("Disconnecting from MQTT broker...")
		c.client.Disconnect(250) // 250ms quiesce time
		c.setConnected(false)
	}
}

// GetClient returns the underlying MQTT client for publishing
func (c *MQTTClient) GetClient() mqtt.Client {
	return c.client
}

// newMQTTClientWithMock creates an MQTTClient with a provided mqtt.Client.
// This is used for testing with mock clients.
func newMQTTClientWithMock(client mqtt.Client, config *Config, handler QueryHandler) *MQTTClient {
	return &MQTTClient{
		client:       client,
		config:       config,
		queryHandler: handler,
	}
}
