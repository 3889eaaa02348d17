package infrastructure

import (
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// InitNATS connects to JetStream and ensures the TICKS stream exists. The
// relay republishes normalized ticks on ticks.raw.<market>.<code> and
// completed bars on ticks.kbar.<unit>.<code>.
func InitNATS(url string, logger *zap.Logger) (*nats.Conn, nats.JetStreamContext, error) {
	nc, err := nats.Connect(url)
	if err != nil {
		return nil, nil, err
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, nil, err
	}

	cfg := &nats.StreamConfig{
		Name:     "TICKS",
		Subjects: []string{"ticks.raw.*.*", "ticks.kbar.*.*"},
	}
	if _, err = js.AddStream(cfg); err != nil {
		// stream may already exist with an older subject set
		if _, err = js.UpdateStream(cfg); err != nil {
			logger.Warn("failed to create or update stream", zap.Error(err))
		}
	}

	return nc, js, nil
}
