//go:build integration

package audit_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	"caregate/internal/audit"
	"caregate/pkg/testutil/containers"
)

func TestKafkaSink_ProducesAuditEvents(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	redpanda := containers.GetManager().GetRedpanda(t)
	topic := "caregate.audit.test"

	sink, err := audit.NewKafkaSink(ctx, []string{redpanda.Broker}, topic)
	require.NoError(t, err)
	defer sink.Close()

	event := audit.Event{
		Timestamp:  time.Now().UTC(),
		Action:     audit.ActionLoginSucceeded,
		AccountID:  "acc-1",
		Role:       "patient",
		ClientType: "web",
		Outcome:    "ok",
	}
	require.NoError(t, sink.Append(ctx, event))

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(redpanda.Broker),
		kgo.ConsumeTopics(topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	require.NoError(t, err)
	defer consumer.Close()

	fetchCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	fetches := consumer.PollFetches(fetchCtx)
	require.NoError(t, fetches.Err())

	records := fetches.Records()
	require.NotEmpty(t, records)

	var got audit.Event
	require.NoError(t, json.Unmarshal(records[0].Value, &got))
	require.Equal(t, audit.ActionLoginSucceeded, got.Action)
	require.Equal(t, "acc-1", got.AccountID)
	require.Equal(t, []byte("acc-1"), records[0].Key)
}
