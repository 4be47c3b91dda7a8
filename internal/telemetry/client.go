package telemetry

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/sysdeck/agent/internal/config"
	"go.uber.org/zap"
)

// Client wraps the NATS connection used for snapshot publishing and for
// serving remote commands. Snapshots go through JetStream, commands use
// Core NATS request/reply.
type Client struct {
	conn   *nats.Conn
	js     nats.JetStreamContext
	logger *zap.Logger
	config *config.NATSConfig
}

// NewClient connects with the configured auth and TLS settings. JetStream
// availability is verified up front so a server without it fails here
// instead of on the first snapshot publish.
func NewClient(cfg *config.NATSConfig, logger *zap.Logger) (*Client, error) {
	opts, err := connectOptions(cfg, logger)
	if err != nil {
		return nil, err
	}

	logger.Info("connecting to NATS", zap.Strings("urls", cfg.URLs))
	conn, err := nats.Connect(strings.Join(cfg.URLs, ","), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	logger.Info("connected to NATS",
		zap.String("url", conn.ConnectedUrl()),
		zap.String("server_id", conn.ConnectedServerId()),
		zap.Bool("tls", conn.TLSRequired()))

	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}
	if _, err := js.AccountInfo(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("JetStream not available on NATS server (is JetStream enabled?): %w", err)
	}

	return &Client{conn: conn, js: js, logger: logger, config: cfg}, nil
}

func connectOptions(cfg *config.NATSConfig, logger *zap.Logger) ([]nats.Option, error) {
	opts := []nats.Option{
		nats.Name("sysdeck-agent"),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			logger.Warn("NATS disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("NATS reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			logger.Info("NATS connection closed")
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			logger.Error("NATS async error", zap.String("subject", sub.Subject), zap.Error(err))
		}),
	}

	if cfg.TLS.Enabled {
		tc, err := buildTLSConfig(&cfg.TLS)
		if err != nil {
			return nil, err
		}
		if cfg.TLS.InsecureSkipVerify {
			logger.Warn("TLS certificate verification disabled")
		}
		opts = append(opts, nats.Secure(tc))
	}

	switch cfg.Auth.Type {
	case "creds":
		opts = append(opts, nats.UserCredentials(cfg.Auth.CredsFile))
	case "token":
		opts = append(opts, nats.Token(cfg.Auth.Token))
	case "userpass":
		opts = append(opts, nats.UserInfo(cfg.Auth.Username, cfg.Auth.Password))
	case "none", "":
	default:
		return nil, fmt.Errorf("invalid auth type: %s", cfg.Auth.Type)
	}
	return opts, nil
}

func buildTLSConfig(cfg *config.TLSConfig) (*tls.Config, error) {
	tc := &tls.Config{
		MinVersion:         tls.VersionTLS12,
		InsecureSkipVerify: cfg.InsecureSkipVerify,
	}
	if cfg.CAFile != "" {
		pem, err := os.ReadFile(cfg.CAFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read CA certificate: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("failed to parse CA certificate %s", cfg.CAFile)
		}
		tc.RootCAs = pool
	}
	if cfg.CertFile != "" && cfg.KeyFile != "" {
		cert, err := tls.LoadX509KeyPair(cfg.CertFile, cfg.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load client certificate: %w", err)
		}
		tc.Certificates = []tls.Certificate{cert}
	}
	return tc, nil
}

// Publish queues a snapshot on JetStream. Snapshot traffic is
// fire-and-forget; ack failures are logged, never surfaced to the poller.
func (c *Client) Publish(subject string, data []byte) error {
	future, err := c.js.PublishAsync(subject, data)
	if err != nil {
		return fmt.Errorf("failed to queue publish to %s: %w", subject, err)
	}
	go func() {
		select {
		case <-future.Ok():
			c.logger.Debug("published snapshot",
				zap.String("subject", subject),
				zap.Int("bytes", len(data)))
		case err := <-future.Err():
			c.logger.Warn("snapshot publish failed after retries",
				zap.String("subject", subject),
				zap.Error(err))
		}
	}()
	return nil
}

// Subscribe registers a Core NATS handler for one command subject.
func (c *Client) Subscribe(subject string, handler nats.MsgHandler) (*nats.Subscription, error) {
	sub, err := c.conn.Subscribe(subject, handler)
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to %s: %w", subject, err)
	}
	c.logger.Debug("subscribed", zap.String("subject", subject))
	return sub, nil
}

// Drain flushes in-flight messages and closes the connection. If the
// context expires first the connection is closed hard.
func (c *Client) Drain(ctx context.Context) error {
	if c.conn.IsClosed() {
		return nil
	}

	done := make(chan error, 1)
	go func() { done <- c.conn.Drain() }()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("NATS drain: %w", err)
		}
		return nil
	case <-ctx.Done():
		c.logger.Warn("NATS drain timed out, forcing close")
		c.conn.Close()
		return fmt.Errorf("drain aborted: %w", ctx.Err())
	}
}

// Close closes the connection without draining.
func (c *Client) Close() {
	c.conn.Close()
}

// IsConnected reports whether the connection is currently up.
func (c *Client) IsConnected() bool {
	return c.conn.IsConnected()
}

// Stats returns connection statistics.
func (c *Client) Stats() nats.Statistics {
	return c.conn.Stats()
}

// SnapshotSubject builds the JetStream subject for one category snapshot.
func SnapshotSubject(prefix, deviceID, category string) string {
	return fmt.Sprintf("%s.%s.sysinfo.%s", prefix, deviceID, category)
}

// CommandSubject builds the Core NATS subject for a remote command.
func CommandSubject(prefix, deviceID, command string) string {
	return fmt.Sprintf("%s.%s.cmd.%s", prefix, deviceID, command)
}

// timestamp is the wire format shared by all responses and snapshots.
func timestamp() string {
	return time.Now().UTC().Format(time.RFC3339)
}
