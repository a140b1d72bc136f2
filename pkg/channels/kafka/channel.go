// Package kafka provides a Kafka backed event channel so several studio
// instances (or external consumers) can follow the same change feed.
package kafka

import (
	"errors"
	"fmt"

	"github.com/IBM/sarama"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-kafka/v3/pkg/kafka"
)

// ErrNoBrokers is returned when no Kafka broker address is configured.
var ErrNoBrokers = errors.New("no kafka brokers configured")

// Config selects the cluster and consumer group of the change feed.
type Config struct {
	Brokers []string

	// ConsumerGroup defaults to "cg-<ServiceName>". Instances sharing a group
	// split the feed; give each instance its own group to see every event.
	ConsumerGroup string
	ServiceName   string
	Tracing       bool
}

func (c Config) consumerGroup() string {
	if c.ConsumerGroup != "" {
		return c.ConsumerGroup
	}

	return "cg-" + c.ServiceName
}

// CreateChannel creates a publisher and a subscriber for the change feed.
// Subscribers start from the newest offset: the feed reports live changes and
// is never replayed.
func CreateChannel(logger watermill.LoggerAdapter, cfg Config) (*kafka.Publisher, *kafka.Subscriber, error) {
	if len(cfg.Brokers) == 0 || cfg.Brokers[0] == "" {
		return nil, nil, ErrNoBrokers
	}

	saramaSubscriberConfig := kafka.DefaultSaramaSubscriberConfig()
	saramaSubscriberConfig.Consumer.Offsets.Initial = sarama.OffsetNewest
	saramaSubscriberConfig.ClientID = cfg.ServiceName

	subscriber, err := kafka.NewSubscriber(
		kafka.SubscriberConfig{
			Brokers:               cfg.Brokers,
			Unmarshaler:           kafka.DefaultMarshaler{},
			OverwriteSaramaConfig: saramaSubscriberConfig,
			ConsumerGroup:         cfg.consumerGroup(),
			OTELEnabled:           cfg.Tracing,
		},
		logger,
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create kafka subscriber: %w", err)
	}

	saramaPublisherConfig := kafka.DefaultSaramaSyncPublisherConfig()
	saramaPublisherConfig.ClientID = cfg.ServiceName

	publisher, err := kafka.NewPublisher(
		kafka.PublisherConfig{
			Brokers:               cfg.Brokers,
			Marshaler:             kafka.DefaultMarshaler{},
			OverwriteSaramaConfig: saramaPublisherConfig,
			OTELEnabled:           cfg.Tracing,
		},
		logger,
	)
	if err != nil {
		_ = subscriber.Close()

		return nil, nil, fmt.Errorf("failed to create kafka publisher: %w", err)
	}

	return publisher, subscriber, nil
}
