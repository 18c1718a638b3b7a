package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/pavitra93/go-property-management/shared/utils"
	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

// KafkaProducer publishes events through a worker pool
type KafkaProducer struct {
	writer      *kafka.Writer
	topic       string
	eventChan   chan Event
	workerCount int
	wg          sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

// NewKafkaProducer creates a producer writing to topic on broker
func NewKafkaProducer(broker, topic string) *KafkaProducer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(broker),
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
		BatchSize:    100,
	}

	kp := &KafkaProducer{
		writer:      writer,
		topic:       topic,
		eventChan:   make(chan Event, 1000),
		workerCount: 4,
	}

	kp.startWorkers()

	return kp
}

func (kp *KafkaProducer) startWorkers() {
	for i := 0; i < kp.workerCount; i++ {
		kp.wg.Add(1)
		go kp.worker(i)
	}

	utils.Logger.Infof("[Kafka] Started %d event workers for topic %s", kp.workerCount, kp.topic)
}

// worker drains the queue until Close
func (kp *KafkaProducer) worker(id int) {
	defer kp.wg.Done()

	for event := range kp.eventChan {
		if err := kp.send(event); err != nil {
			utils.Logger.WithFields(logrus.Fields{
				"worker":   id,
				"event_id": event.ID,
				"type":     event.Type,
			}).WithError(err).Error("failed to publish event")
		}
	}
}

// Publish queues an event without blocking; a full queue drops it
func (kp *KafkaProducer) Publish(event Event) error {
	kp.mu.RLock()
	defer kp.mu.RUnlock()
	if kp.closed {
		return fmt.Errorf("producer closed, event %s dropped", event.ID)
	}

	select {
	case kp.eventChan <- event:
		return nil
	default:
		return fmt.Errorf("event queue full, event %s dropped", event.ID)
	}
}

func (kp *KafkaProducer) send(event Event) error {
	message, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	// keyed by property so a property's events stay ordered
	msg := kafka.Message{
		Topic: kp.topic,
		Key:   []byte(event.PropertyID),
		Value: message,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.Type)},
			{Key: "property_id", Value: []byte(event.PropertyID)},
		},
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := kp.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write event to Kafka: %w", err)
	}

	return nil
}

// Close flushes queued events and shuts the writer down
func (kp *KafkaProducer) Close() error {
	kp.mu.Lock()
	if kp.closed {
		kp.mu.Unlock()
		return nil
	}
	kp.closed = true
	close(kp.eventChan)
	kp.mu.Unlock()

	kp.wg.Wait()

	if err := kp.writer.Close(); err != nil {
		return fmt.Errorf("failed to close Kafka writer: %w", err)
	}

	utils.Logger.Info("[Kafka] Producer shut down")
	return nil
}
