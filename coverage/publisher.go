package coverage

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// Publisher publishes coverage results and density reports to MQTT. The
// latest result per requester is retained so late subscribers see their most
// recent answer.
type Publisher struct {
	client        mqtt.Client
	publishPrefix string
	qos           byte
	retain        bool
	results       map[string]*CoverageResult
	mu            sync.RWMutex
}

// NewPublisher creates a result publisher.
// If client is nil, publishing is disabled (for testing).
func NewPublisher(client mqtt.Client) *Publisher {
	prefix := os.Getenv("MQTT_PUBLISH_PREFIX")
	if prefix == "" {
		prefix = "netcover"
	}

	return &Publisher{
		client:        client,
		publishPrefix: prefix,
		qos:           0,    // QoS 0 for query answers (fire and forget)
		retain:        true, // retain the latest result per requester
		results:       make(map[string]*CoverageResult),
	}
}

// SetPrefix overrides the topic prefix (normally from config).
func (p *Publisher) SetPrefix(prefix string) {
	if prefix != "" {
		p.publishPrefix = prefix
	}
}

// PublishResult publishes one requester's coverage result to
// {prefix}/results/{requestID} and refreshes the combined results topic.
func (p *Publisher) PublishResult(requestID string, res CoverageResult) error {
	if p.client == nil || !p.client.IsConnected() {
		return fmt.Errorf("MQTT client not connected")
	}

	p.mu.Lock()
	p.results[requestID] = &res
	p.mu.Unlock()

	if err := p.publishIndividual(requestID, &res); err != nil {
		log.Printf("Error publishing result for %s: %v", requestID, err)
		return err
	}

	if err := p.publishCombined(); err != nil {
		log.Printf("Error publishing combined results: %v", err)
		return err
	}

	return nil
}

func (p *Publisher) publishIndividual(requestID string, res *CoverageResult) error {
	topic := fmt.Sprintf("%s/results/%s", p.publishPrefix, requestID)

	payload, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("marshaling result: %w", err)
	}

	token := p.client.Publish(topic, p.qos, p.retain, payload)
	if token.WaitTimeout(2*time.Second) && token.Error() != nil {
		return fmt.Errorf("publishing to %s: %w", topic, token.Error())
	}

	log.Printf("Published result for %s: covered=%v confidence=%s region=%s",
		requestID, res.Covered, res.Confidence, res.Region)
	return nil
}

func (p *Publisher) publishCombined() error {
	p.mu.RLock()
	results := make(map[string]*CoverageResult, len(p.results))
	for id, res := range p.results {
		results[id] = res
	}
	p.mu.RUnlock()

	if len(results) == 0 {
		return nil
	}

	topic := fmt.Sprintf("%s/results", p.publishPrefix)

	message := map[string]interface{}{
		"results":   results,
		"timestamp": time.Now().Unix(),
	}

	payload, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("marshaling combined results: %w", err)
	}

	token := p.client.Publish(topic, p.qos, p.retain, payload)
	if token.WaitTimeout(2*time.Second) && token.Error() != nil {
		return fmt.Errorf("publishing to %s: %w", topic, token.Error())
	}

	return nil
}

// PublishDensity publishes the per-region density report to
// {prefix}/density.
func (p *Publisher) PublishDensity(report DensityReport) error {
	if p.client == nil || !p.client.IsConnected() {
		return fmt.Errorf("MQTT client not connected")
	}

	topic := fmt.Sprintf("%s/density", p.publishPrefix)

	payload, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshaling density report: %w", err)
	}

	token := p.client.Publish(topic, p.qos, p.retain, payload)
	if token.WaitTimeout(2*time.Second) && token.Error() != nil {
		return fmt.Errorf("publishing to %s: %w", topic, token.Error())
	}

	log.Printf("Published density report: %d regions, %d sites", len(report.Counts), report.Total)
	return nil
}

// GetResult returns the last published result for a requester.
func (p *Publisher) GetResult(requestID string) (*CoverageResult, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	res, ok := p.results[requestID]
	return res, ok
}

// GetAllResults returns a copy of all retained results.
func (p *Publisher) GetAllResults() map[string]*CoverageResult {
	p.mu.RLock()
	defer p.mu.RUnlock()

	results := make(map[string]*CoverageResult, len(p.results))
	for id, res := range p.results {
		resCopy := *res
		results[id] = &resCopy
	}
	return results
}

// ClearResult drops a requester's retained result.
func (p *Publisher) ClearResult(requestID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.results, requestID)
}

// SetQoS sets the Quality of Service level for publishing (0, 1, or 2)
func (p *Publisher) SetQoS(qos byte) {
	if qos <= 2 {
		p.qos = qos
	}
}

// SetRetain sets whether published messages should be retained by the broker
func (p *Publisher) SetRetain(retain bool) {
	p.retain = retain
}
