package events

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/trustify/trustify/pkg/config"
)

func TestNewPublisherDisabledReturnsNil(t *testing.T) {
	pub, err := NewPublisher(config.EventsConfig{Enabled: false})
	require.NoError(t, err)
	require.Nil(t, pub)
}

func TestNilPublisherPublishIsNoOp(t *testing.T) {
	var pub *Publisher
	err := pub.Publish(context.Background(), IngestResultEvent{
		ID:         "evt-1",
		Type:       "ingest.completed",
		DocumentID: "sha256:deadbeef",
		Format:     "spdx",
		Timestamp:  time.Now().UTC(),
	})
	require.NoError(t, err)
}

func TestNilPublisherCloseIsNoOp(t *testing.T) {
	var pub *Publisher
	require.NoError(t, pub.Close())
}
