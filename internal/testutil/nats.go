package testutil

import (
	"testing"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/require"
)

// StartJetStream starts an embedded NATS server with JetStream enabled and
// returns a connection to it. The server listens on a random local port.
func StartJetStream(t *testing.T) (*nats.Conn, nats.JetStreamContext, func()) {
	t.Helper()

	opts := &server.Options{
		Host:           "127.0.0.1",
		Port:           server.RANDOM_PORT,
		NoLog:          true,
		NoSigs:         true,
		MaxControlLine: 4096,
		JetStream:      true,
		StoreDir:       t.TempDir(),
	}

	s, err := server.NewServer(opts)
	require.NoError(t, err)

	go s.Start()
	if !s.ReadyForConnections(10 * time.Second) {
		t.Fatal("Unable to start NATS server")
	}

	nc, err := nats.Connect(s.ClientURL(), nats.Timeout(5*time.Second))
	require.NoError(t, err)

	js, err := nc.JetStream(nats.MaxWait(5 * time.Second))
	require.NoError(t, err)

	cleanup := func() {
		nc.Close()
		s.Shutdown()
	}

	return nc, js, cleanup
}

// AddStream creates a file-backed stream for the given subjects
func AddStream(t *testing.T, js nats.JetStreamContext, name string, subjects ...string) {
	t.Helper()

	_, err := js.AddStream(&nats.StreamConfig{
		Name:     name,
		Subjects: subjects,
		Storage:  nats.FileStorage,
	})
	require.NoError(t, err)
}

// ConsumeMessages collects messages published on subject for the given duration
func ConsumeMessages(js nats.JetStreamContext, subject string, duration time.Duration) ([]*nats.Msg, error) {
	var messages []*nats.Msg
	msgChan := make(chan *nats.Msg, 100)
	sub, err := js.Subscribe(subject, func(msg *nats.Msg) {
		msgChan <- msg
	}, nats.DeliverAll())
	if err != nil {
		return nil, err
	}
	defer sub.Unsubscribe()

	timer := time.NewTimer(duration)
	defer timer.Stop()

	for {
		select {
		case msg := <-msgChan:
			messages = append(messages, msg)
		case <-timer.C:
			return messages, nil
		}
	}
}
