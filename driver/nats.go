package driver

import (
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

const (
	natsName          = "storefront"
	natsReconnectWait = 2 * time.Second
	natsMaxReconnects = 10
)

// ConnectNATS connects to the NATS server with reconnects logged through logger.
func ConnectNATS(url string, logger *zap.Logger) (*nats.Conn, error) {
	conn, err := nats.Connect(url,
		nats.Name(natsName),
		nats.Timeout(dialTimeout),
		nats.ReconnectWait(natsReconnectWait),
		nats.MaxReconnects(natsMaxReconnects),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("NATS disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("NATS reconnected", zap.String("url", c.ConnectedUrl()))
		}),
	)
	if err != nil {
		logger.Error("NATS connection error", zap.String("url", url), zap.Error(err))
		return nil, fmt.Errorf("failed to connect to nats at %s: %w", url, err)
	}

	logger.Info("Connected to NATS", zap.String("url", conn.ConnectedUrl()))
	return conn, nil
}
