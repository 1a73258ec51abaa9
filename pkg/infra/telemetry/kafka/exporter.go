package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/confluentinc/confluent-kafka-go/kafka"
	"github.com/mitchellh/mapstructure"

	"github.com/NeuralTrust/CareGuard/pkg/domain/telemetry"
	"github.com/NeuralTrust/CareGuard/pkg/version"
)

const (
	ExporterName = "kafka"
)

type Config struct {
	Brokers  string                 `mapstructure:"brokers"`
	Topic    string                 `mapstructure:"topic"`
	ClientID string                 `mapstructure:"client_id"`
	Producer map[string]interface{} `mapstructure:"producer"`
}

type Exporter struct {
	cfg      Config
	producer *kafka.Producer
}

func NewKafkaExporter() *Exporter {
	return &Exporter{}
}

func (p *Exporter) Name() string {
	return ExporterName
}

func (p *Exporter) ValidateConfig(settings map[string]interface{}) error {
	conf, err := decode(settings)
	if err != nil {
		return err
	}
	if strings.TrimSpace(conf.Brokers) == "" {
		return errors.New("kafka brokers are required")
	}
	if conf.Topic == "" {
		return errors.New("kafka topic is required")
	}
	return nil
}

func (p *Exporter) WithSettings(settings map[string]interface{}) (telemetry.Exporter, error) {
	conf, err := decode(settings)
	if err != nil {
		return nil, err
	}
	cm := &kafka.ConfigMap{
		"bootstrap.servers": conf.Brokers,
		"client.id":         conf.clientID(),
	}
	for k, v := range conf.Producer {
		if err := cm.SetKey(k, v); err != nil {
			return nil, fmt.Errorf("invalid kafka producer setting %s: %w", k, err)
		}
	}
	producer, err := kafka.NewProducer(cm)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}
	return &Exporter{
		cfg:      conf,
		producer: producer,
	}, nil
}

func (p *Exporter) Export(ctx context.Context, env telemetry.Envelope) error {
	if p.producer == nil {
		return errors.New("kafka producer is not initialized")
	}
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("failed to marshal envelope: %w", err)
	}
	deliveryChan := make(chan kafka.Event, 1)

	err = p.producer.Produce(&kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &p.cfg.Topic, Partition: kafka.PartitionAny},
		Key:            []byte(env.Key),
		Value:          data,
		Headers:        []kafka.Header{{Key: "kind", Value: []byte(env.Kind)}},
	}, deliveryChan)
	if err != nil {
		return fmt.Errorf("failed to produce message: %w", err)
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case e := <-deliveryChan:
		m, ok := e.(*kafka.Message)
		if !ok {
			return fmt.Errorf("unexpected delivery event: %v", e)
		}
		if m.TopicPartition.Error != nil {
			return fmt.Errorf("delivery failed: %w", m.TopicPartition.Error)
		}
	}
	return nil
}

func (p *Exporter) Close() {
	if p.producer != nil {
		p.producer.Flush(5000)
		p.producer.Close()
	}
}

func (c Config) clientID() string {
	if c.ClientID != "" {
		return c.ClientID
	}
	return version.ClientID("")
}

func decode(settings map[string]interface{}) (Config, error) {
	var conf Config
	if err := mapstructure.Decode(settings, &conf); err != nil {
		return conf, fmt.Errorf("invalid kafka config: %w", err)
	}
	return conf, nil
}
