package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/confluentinc/confluent-kafka-go/kafka"
	"github.com/sirupsen/logrus"
)

type KafkaOptions struct {
	Brokers string
	Topic   string
	GroupID string
}

var _ ImportQueue = (*KafkaQueue)(nil)

// KafkaQueue publishes import events to a kafka topic keyed by resource id.
type KafkaQueue struct {
	producer *kafka.Producer
	opts     KafkaOptions
}

func NewKafkaQueue(opts KafkaOptions) (*KafkaQueue, error) {
	if opts.Topic == "" {
		opts.Topic = ImportTopic
	}
	if opts.GroupID == "" {
		opts.GroupID = "mediahub"
	}
	p, err := kafka.NewProducer(&kafka.ConfigMap{
		"bootstrap.servers": opts.Brokers,
		"acks":              "all",
	})
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return &KafkaQueue{producer: p, opts: opts}, nil
}

func (q *KafkaQueue) PublishImport(ctx context.Context, ev *ImportEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	delivery := make(chan kafka.Event, 1)
	msg := &kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &q.opts.Topic, Partition: kafka.PartitionAny},
		Key:            []byte(ev.ResourceID.String()),
		Value:          data,
	}
	if err := q.producer.Produce(msg, delivery); err != nil {
		return err
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case e := <-delivery:
		m, ok := e.(*kafka.Message)
		if !ok {
			return fmt.Errorf("kafka delivery: unexpected event %v", e)
		}
		return m.TopicPartition.Error
	}
}

// SubscribeImports starts a consumer in the configured group.
func (q *KafkaQueue) SubscribeImports(ctx context.Context) (<-chan *ImportEvent, error) {
	c, err := kafka.NewConsumer(&kafka.ConfigMap{
		"bootstrap.servers": q.opts.Brokers,
		"group.id":          q.opts.GroupID,
		"auto.offset.reset": "earliest",
	})
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	if err := c.SubscribeTopics([]string{q.opts.Topic}, nil); err != nil {
		_ = c.Close()
		return nil, err
	}

	out := make(chan *ImportEvent)
	go func() {
		defer close(out)
		defer c.Close()

		for ctx.Err() == nil {
			msg, err := c.ReadMessage(500 * time.Millisecond)
			if err != nil {
				var kerr kafka.Error
				if errors.As(err, &kerr) && kerr.Code() == kafka.ErrTimedOut {
					continue
				}
				logrus.Errorf("kafka: read import event: %v", err)
				continue
			}

			var ev ImportEvent
			if err := json.Unmarshal(msg.Value, &ev); err != nil {
				logrus.Warnf("kafka: skipping malformed import event at %v: %v", msg.TopicPartition, err)
				continue
			}
			select {
			case out <- &ev:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

func (q *KafkaQueue) Close() error {
	q.producer.Flush(5000)
	q.producer.Close()
	return nil
}
