package monitor

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/golang/glog"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/sasl/plain"
)

const (
	KafkaBatchInterval  = 1 * time.Second
	KafkaRequestTimeout = 60 * time.Second
	KafkaBatchSize      = 100
	KafkaChannelSize    = 100
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type KafkaProducer struct {
	writer  messageWriter
	topic   string
	events  chan LotteryEvent
	lottery string

	quit     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// LotteryEvent is the envelope of every message published to the topic
type LotteryEvent struct {
	ID        *string `json:"id,omitempty"`
	Type      *string `json:"type"`
	Timestamp *string `json:"timestamp"`
	Lottery   *string `json:"lottery,omitempty"`
	Data      any     `json:"data"`
}

var kafkaProducer *KafkaProducer

// InitKafkaProducer starts publishing lottery events to topic. lotteryAddress identifies
// this lottery in every event.
func InitKafkaProducer(bootstrapServers, user, password, topic, lotteryAddress string) error {
	producer, err := newKafkaProducer(bootstrapServers, user, password, topic, lotteryAddress)
	if err != nil {
		return err
	}
	kafkaProducer = producer
	go producer.processEvents()
	return nil
}

// StopKafkaProducer flushes queued events and closes the writer
func StopKafkaProducer() {
	if kafkaProducer == nil {
		return
	}
	kafkaProducer.stop()
	kafkaProducer = nil
}

func newKafkaProducer(bootstrapServers, user, password, topic, lotteryAddress string) (*KafkaProducer, error) {
	if bootstrapServers == "" || topic == "" {
		return nil, fmt.Errorf("kafka bootstrap servers and topic are required")
	}
	dialer := &kafka.Dialer{
		Timeout:   KafkaRequestTimeout,
		DualStack: true,
	}

	if user != "" && password != "" {
		tls := &tls.Config{
			MinVersion: tls.VersionTLS12,
		}
		sasl := &plain.Mechanism{
			Username: user,
			Password: password,
		}
		dialer.SASLMechanism = sasl
		dialer.TLS = tls
	}

	writer := kafka.NewWriter(kafka.WriterConfig{
		Brokers:  []string{bootstrapServers},
		Topic:    topic,
		Balancer: kafka.CRC32Balancer{},
		Dialer:   dialer,
	})

	return newProducerWithWriter(writer, topic, lotteryAddress), nil
}

func newProducerWithWriter(w messageWriter, topic, lotteryAddress string) *KafkaProducer {
	return &KafkaProducer{
		writer:  w,
		topic:   topic,
		events:  make(chan LotteryEvent, KafkaChannelSize),
		lottery: lotteryAddress,
		quit:    make(chan struct{}),
		done:    make(chan struct{}),
	}
}

func (p *KafkaProducer) processEvents() {
	defer close(p.done)
	ticker := time.NewTicker(KafkaBatchInterval)
	defer ticker.Stop()

	var eventsBatch []kafka.Message

	appendEvent := func(event LotteryEvent) {
		value, err := json.Marshal(event)
		if err != nil {
			glog.Errorf("error while marshalling lottery event to Kafka, err=%v", err)
			return
		}
		eventsBatch = append(eventsBatch, kafka.Message{
			Key:   []byte(*event.ID),
			Value: value,
		})
	}

	for {
		select {
		case event := <-p.events:
			appendEvent(event)

			// Send batch if it reaches the defined size
			if len(eventsBatch) >= KafkaBatchSize {
				p.sendBatch(eventsBatch)
				eventsBatch = nil
			}

		case <-ticker.C:
			if len(eventsBatch) > 0 {
				p.sendBatch(eventsBatch)
				eventsBatch = nil
			}

		case <-p.quit:
		drain:
			for {
				select {
				case event := <-p.events:
					appendEvent(event)
				default:
					break drain
				}
			}
			if len(eventsBatch) > 0 {
				p.sendBatch(eventsBatch)
			}
			return
		}
	}
}

func (p *KafkaProducer) sendBatch(eventsBatch []kafka.Message) {
	// We retry sending messages to Kafka in case of a failure
	kafkaWriteRetries := 3
	var writeErr error
	for i := 0; i < kafkaWriteRetries; i++ {
		writeErr = p.writer.WriteMessages(context.Background(), eventsBatch...)
		if writeErr == nil {
			return
		}
		glog.Warningf("error while sending lottery event batch to Kafka, retrying, topic=%s, try=%d, err=%v", p.topic, i, writeErr)
	}
	if writeErr != nil {
		glog.Errorf("error while sending lottery event batch to Kafka, the events are lost, count=%d err=%v", len(eventsBatch), writeErr)
	}
}

func (p *KafkaProducer) enqueue(eventType string, data any) bool {
	event := LotteryEvent{
		ID:        stringPtr(uuid.New().String()),
		Lottery:   stringPtr(p.lottery),
		Type:      &eventType,
		Timestamp: stringPtr(fmt.Sprint(time.Now().UnixMilli())),
		Data:      data,
	}

	select {
	case p.events <- event:
		return true
	default:
		glog.Warningf("kafka producer event queue is full, dropping event %q", eventType)
		return false
	}
}

func (p *KafkaProducer) stop() {
	p.stopOnce.Do(func() {
		close(p.quit)
		<-p.done
		if err := p.writer.Close(); err != nil {
			glog.Errorf("error closing Kafka writer topic=%s err=%v", p.topic, err)
		}
	})
}

// SendQueueEventAsync queues an event for the next batch. Events are dropped when Kafka is
// not configured or the queue is full.
func SendQueueEventAsync(eventType string, data any) {
	if kafkaProducer == nil {
		return
	}
	kafkaProducer.enqueue(eventType, data)
}

func stringPtr(s string) *string {
	return &s
}
