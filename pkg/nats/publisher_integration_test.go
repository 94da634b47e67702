package nats

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/abgdnv/retailinventory/pkg/config"
	"github.com/abgdnv/retailinventory/pkg/messaging"
	"github.com/abgdnv/retailinventory/pkg/messaging/events"
	"github.com/google/uuid"
	natsgo "github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	tcnats "github.com/testcontainers/testcontainers-go/modules/nats"
)

const skipIntegrationTests = "INVENTORY_SKIP_INTEGRATION_TESTS"
const natsImg = "nats:2.11.6-alpine"

type PublisherSuite struct {
	suite.Suite
	ctx           context.Context
	natsContainer *tcnats.NATSContainer
	nc            *natsgo.Conn
	js            jetstream.JetStream
}

func (s *PublisherSuite) SetupSuite() {
	s.ctx = context.Background()

	var err error
	s.natsContainer, err = tcnats.Run(s.ctx, natsImg)
	require.NoError(s.T(), err, "Failed to run NATS container")

	natsURL, err := s.natsContainer.ConnectionString(s.ctx)
	require.NoError(s.T(), err)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.nc, err = NewClient(config.NATSConfig{Url: natsURL, Timeout: 5 * time.Second}, logger)
	require.NoError(s.T(), err, "Failed to connect to NATS")

	s.js, err = NewJetStreamContext(s.nc)
	require.NoError(s.T(), err, "Failed to get JetStream context")
}

func (s *PublisherSuite) TearDownSuite() {
	s.nc.Close()
	if err := testcontainers.TerminateContainer(s.natsContainer); err != nil {
		s.T().Logf("Failed to terminate NATS container: %v", err)
	}
}

func TestPublisherIntegration(t *testing.T) {
	if os.Getenv(skipIntegrationTests) == "1" {
		t.Skip("Skipping integration tests based on " + skipIntegrationTests + " env var")
	}
	suite.Run(t, new(PublisherSuite))
}

func (s *PublisherSuite) TestPublish_DeduplicatesByEventID() {
	// given
	streamName := "INVENTORY-" + uuid.NewString()
	cfg := config.NATSConfig{Stream: streamName, MaxAge: time.Hour, DuplicateWindow: 2 * time.Minute}
	subjects := []string{messaging.ProductsDeletedSubject, messaging.ProductsRestoredSubject}
	require.NoError(s.T(), EnsureStream(s.ctx, s.js, cfg, subjects))
	s.T().Cleanup(func() { _ = s.js.DeleteStream(s.ctx, streamName) })
	// ensuring twice updates the existing stream
	require.NoError(s.T(), EnsureStream(s.ctx, s.js, cfg, subjects))

	publisher := NewNatsPublisher(s.js)
	event := events.NewLifecycleEvent(events.KindProduct, 22, 5, events.TransitionDeleted, "owner",
		time.Date(2025, 7, 1, 10, 0, 0, 0, time.UTC))

	// when
	require.NoError(s.T(), publisher.Publish(s.ctx, event))
	require.NoError(s.T(), publisher.Publish(s.ctx, event))

	// then
	stream, err := s.js.Stream(s.ctx, streamName)
	require.NoError(s.T(), err)
	info, err := stream.Info(s.ctx)
	require.NoError(s.T(), err)
	require.Equal(s.T(), uint64(1), info.State.Msgs)

	msg, err := stream.GetLastMsgForSubject(s.ctx, messaging.ProductsDeletedSubject)
	require.NoError(s.T(), err)
	var got events.LifecycleEvent
	require.NoError(s.T(), json.Unmarshal(msg.Data, &got))
	require.Equal(s.T(), event.EventID, got.EventID)
	require.Equal(s.T(), int64(22), got.RecordID)
	require.Equal(s.T(), "owner", got.Actor)
}
