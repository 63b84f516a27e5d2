package kafka

import (
	"context"
	"errors"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
)

func TestTopicConfigs(t *testing.T) {
	cfgs := TopicConfigs("previews", "dead-letters")
	require.Len(t, cfgs, 2)
	require.Equal(t, "previews", cfgs[0].Topic)
	require.Equal(t, 1, cfgs[1].NumPartitions)
	require.Equal(t, 1, cfgs[1].ReplicationFactor)
}

func TestFailedTopics(t *testing.T) {
	failed := failedTopics(map[string]error{
		"ok":      nil,
		"exists":  kafkago.TopicAlreadyExists,
		"invalid": errors.New("invalid replication factor"),
	})
	require.Len(t, failed, 1)
	require.Contains(t, failed, "invalid")
}

func TestWaitKafkaReady_Canceled(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	// nothing listens on port 1
	err := WaitKafkaReady(ctx, "127.0.0.1:1", 10*time.Millisecond)
	require.Error(t, err)
}
