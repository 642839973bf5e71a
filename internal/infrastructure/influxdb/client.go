package influxdb

import (
	"context"
	"fmt"
	"sync"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"

	"github.com/tintworks/tintcore/internal/infrastructure/config"
)

const (
	// defaultBatchSize is used when the config does not specify one.
	defaultBatchSize = 100

	// defaultFlushInterval (seconds) is used when the config does not
	// specify one.
	defaultFlushInterval = 10

	// pingTimeout bounds the connectivity check at startup.
	pingTimeout = 5 * time.Second
)

// Client wraps the InfluxDB v2 client for transition telemetry.
//
// Writes go through the non-blocking write API: points are batched in
// memory and flushed on a timer, so a slow or unreachable InfluxDB
// never stalls a tint command.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
type Client struct {
	client   influxdb2.Client
	writeAPI api.WriteAPI
	cfg      config.InfluxDBConfig

	connected bool
	connMu    sync.RWMutex

	// onError is invoked for asynchronous write failures (optional).
	onError   func(error)
	onErrorMu sync.RWMutex

	// done stops the error-channel goroutine on Close.
	done chan struct{}
}

// Connect creates an InfluxDB client and verifies connectivity.
//
// Returns ErrDisabled when telemetry is turned off in config; callers
// should treat that as "run without telemetry", not as a failure.
func Connect(cfg config.InfluxDBConfig) (*Client, error) {
	if !cfg.Enabled {
		return nil, ErrDisabled
	}
	if cfg.URL == "" {
		return nil, fmt.Errorf("%w: url is required", ErrInvalidConfig)
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("%w: bucket is required", ErrInvalidConfig)
	}

	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	flushInterval := cfg.FlushInterval
	if flushInterval <= 0 {
		flushInterval = defaultFlushInterval
	}

	options := influxdb2.DefaultOptions().
		SetBatchSize(uint(batchSize)).
		SetFlushInterval(uint(flushInterval * 1000))

	client := influxdb2.NewClientWithOptions(cfg.URL, cfg.Token, options)

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	ok, err := client.Ping(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}
	if !ok {
		client.Close()
		return nil, fmt.Errorf("%w: ping returned not ready", ErrConnectionFailed)
	}

	c := &Client{
		client:    client,
		writeAPI:  client.WriteAPI(cfg.Org, cfg.Bucket),
		cfg:       cfg,
		connected: true,
		done:      make(chan struct{}),
	}

	go c.consumeWriteErrors()

	return c, nil
}

// consumeWriteErrors drains the async write error channel. Without a
// consumer the channel fills and the write API blocks.
func (c *Client) consumeWriteErrors() {
	errCh := c.writeAPI.Errors()
	for {
		select {
		case err, open := <-errCh:
			if !open {
				return
			}
			if handler := c.errorHandler(); handler != nil {
				handler(err)
			}
		case <-c.done:
			return
		}
	}
}

// SetOnError registers a handler for asynchronous write failures.
// If not set, failed writes are silently dropped.
func (c *Client) SetOnError(handler func(error)) {
	c.onErrorMu.Lock()
	c.onError = handler
	c.onErrorMu.Unlock()
}

func (c *Client) errorHandler() func(error) {
	c.onErrorMu.RLock()
	defer c.onErrorMu.RUnlock()
	return c.onError
}

// IsConnected reports whether the client passed its startup ping and
// has not been closed.
func (c *Client) IsConnected() bool {
	c.connMu.RLock()
	defer c.connMu.RUnlock()
	return c.connected
}

// HealthCheck pings the InfluxDB server.
func (c *Client) HealthCheck(ctx context.Context) error {
	if !c.IsConnected() {
		return ErrNotConnected
	}

	ok, err := c.client.Ping(ctx)
	if err != nil {
		return fmt.Errorf("influxdb health check: %w", err)
	}
	if !ok {
		return fmt.Errorf("influxdb health check: %w", ErrNotConnected)
	}
	return nil
}

// Flush forces all batched points to be written immediately.
func (c *Client) Flush() {
	if c.IsConnected() {
		c.writeAPI.Flush()
	}
}

// Close flushes pending points and shuts down the client.
func (c *Client) Close() error {
	c.connMu.Lock()
	if !c.connected {
		c.connMu.Unlock()
		return nil
	}
	c.connected = false
	c.connMu.Unlock()

	close(c.done)
	c.writeAPI.Flush()
	c.client.Close()

	return nil
}
