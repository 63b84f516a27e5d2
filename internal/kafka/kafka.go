// Package kafka prepares the preview-task topic and waits for the broker to come up
package kafka

import (
	"context"
	"errors"
	"fmt"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/wb-go/wbf/zlog"
)

// TopicConfigs builds single-partition topic configs, enough for one preview worker group
func TopicConfigs(topics ...string) []kafkago.TopicConfig {
	res := make([]kafkago.TopicConfig, 0, len(topics))
	for _, t := range topics {
		res = append(res, kafkago.TopicConfig{
			Topic:             t,
			NumPartitions:     1,
			ReplicationFactor: 1,
		})
	}
	return res
}

// InitKafkaTopics creates topics, already existing ones count as success
func InitKafkaTopics(ctx context.Context, brokerAddr string, delay time.Duration, topics ...string) error {
	client := &kafkago.Client{
		Addr:    kafkago.TCP(brokerAddr),
		Timeout: 10 * time.Second,
	}

	req := kafkago.CreateTopicsRequest{Topics: TopicConfigs(topics...)}

	for {
		resp, err := client.CreateTopics(ctx, &req)
		if err == nil {
			failed := failedTopics(resp.Errors)
			if len(failed) == 0 {
				zlog.Logger.Info().Strs("topics", topics).Msg("Kafka topics are ready")
				return nil
			}
			err = fmt.Errorf("topics not created: %v", failed)
		}
		zlog.Logger.Warn().Err(err).Dur("retry_in", delay).Msg("Failed to create kafka topics")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
}

func failedTopics(errs map[string]error) map[string]error {
	failed := make(map[string]error)
	for topic, err := range errs {
		if err == nil || errors.Is(err, kafkago.TopicAlreadyExists) {
			continue
		}
		failed[topic] = err
	}
	return failed
}

// WaitKafkaReady dials the broker until it answers or ctx is done
func WaitKafkaReady(ctx context.Context, brokerAddr string, delay time.Duration) error {
	dialer := &kafkago.Dialer{Timeout: 5 * time.Second}
	for {
		conn, err := dialer.DialContext(ctx, "tcp", brokerAddr)
		if err == nil {
			if errConn := conn.Close(); errConn != nil {
				zlog.Logger.Warn().Err(errConn).Msg("Failed to close connection after testing Kafka readiness")
			}
			zlog.Logger.Info().Str("broker", brokerAddr).Msg("Kafka is ready")
			return nil
		}
		zlog.Logger.Info().Err(err).Dur("retry_in", delay).Msg("Kafka not ready")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
}
