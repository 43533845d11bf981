package amqp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"martelinho/internal/log"
)

// Circuit breaker states
const (
	StateClosed int32 = iota
	StateOpen
	StateHalfOpen
)

const (
	maxFailures    = 5
	openTimeout    = 30 * time.Second
	maxBackoff     = 30 * time.Second
	maxAttempts    = 3
	publishTimeout = 5 * time.Second
)

var ErrCircuitOpen = errors.New("circuit breaker is open")

// Client publishes service events to a topic exchange. The connection is
// re-established on demand; after repeated failures the circuit opens and
// publishing fails fast until openTimeout elapses.
type Client struct {
	url          string
	exchangeName string
	routingKey   string
	logger       *log.Logger

	mu      sync.Mutex
	conn    *amqp091.Connection
	channel *amqp091.Channel

	failureCount int64
	state        int32
	lastFailure  time.Time
}

// NewClient connects and declares the exchange. routingKey is the prefix of
// every published routing key ("services" gives "services.created").
func NewClient(url, exchangeName, routingKey string, logger *log.Logger) (*Client, error) {
	if logger == nil {
		logger = log.Discard()
	}
	c := &Client{
		url:          url,
		exchangeName: exchangeName,
		routingKey:   routingKey,
		logger:       logger.WithComponent(log.ComponentAMQP),
	}
	if err := c.connect(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Client) connect() error {
	conn, err := amqp091.Dial(c.url)
	if err != nil {
		return fmt.Errorf("dial AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}

	err = channel.ExchangeDeclare(
		c.exchangeName, // name
		"topic",        // type
		true,           // durable
		false,          // auto-deleted
		false,          // internal
		false,          // no-wait
		nil,            // arguments
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return fmt.Errorf("declare exchange: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.channel = channel
	c.mu.Unlock()
	return nil
}

func (c *Client) connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil && !c.conn.IsClosed() && c.channel != nil && !c.channel.IsClosed()
}

// PublishServiceEvent publishes e with a persistent delivery mode.
func (c *Client) PublishServiceEvent(ctx context.Context, e ServiceEvent) error {
	if c.isCircuitOpen() {
		return fmt.Errorf("publish %s: %w", e.Type, ErrCircuitOpen)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	body, err := e.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	key := c.routingKeyFor(e.Type)

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(exponentialBackoff(attempt - 1)):
			}
		}
		if !c.connected() {
			if err := c.connect(); err != nil {
				lastErr = err
				c.recordFailure()
				continue
			}
		}
		lastErr = c.publish(ctx, key, body)
		if lastErr == nil {
			c.recordSuccess()
			c.logger.InfoContext(ctx, "Published service event",
				log.FieldRoutingKey, key,
				log.FieldServiceID, e.ServiceID,
				log.FieldTenantID, e.TenantID)
			return nil
		}
		c.recordFailure()
		if !isConnectionError(lastErr) {
			break
		}
	}
	return fmt.Errorf("publish %s: %w", e.Type, lastErr)
}

func (c *Client) publish(ctx context.Context, key string, body []byte) error {
	c.mu.Lock()
	channel := c.channel
	c.mu.Unlock()
	if channel == nil {
		return amqp091.ErrClosed
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	return channel.PublishWithContext(
		ctx,
		c.exchangeName, // exchange
		key,            // routing key
		false,          // mandatory
		false,          // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
}

// routingKeyFor maps "service.created" to "<prefix>.created".
func (c *Client) routingKeyFor(t EventType) string {
	action := string(t)
	if i := strings.LastIndexByte(action, '.'); i >= 0 {
		action = action[i+1:]
	}
	if c.routingKey == "" {
		return action
	}
	return c.routingKey + "." + action
}

func (c *Client) isCircuitOpen() bool {
	if atomic.LoadInt32(&c.state) != StateOpen {
		return false
	}
	c.mu.Lock()
	last := c.lastFailure
	c.mu.Unlock()
	if time.Since(last) > openTimeout {
		atomic.StoreInt32(&c.state, StateHalfOpen)
		return false
	}
	return true
}

func (c *Client) recordSuccess() {
	atomic.StoreInt64(&c.failureCount, 0)
	atomic.StoreInt32(&c.state, StateClosed)
}

func (c *Client) recordFailure() {
	n := atomic.AddInt64(&c.failureCount, 1)
	c.mu.Lock()
	c.lastFailure = time.Now()
	c.mu.Unlock()
	if n >= maxFailures || atomic.LoadInt32(&c.state) == StateHalfOpen {
		if atomic.SwapInt32(&c.state, StateOpen) != StateOpen {
			c.logger.Warn("AMQP circuit opened", "failures", n)
		}
	}
}

// exponentialBackoff returns 1s, 2s, 4s ... capped at maxBackoff.
func exponentialBackoff(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	if attempt > 5 {
		return maxBackoff
	}
	d := time.Second << attempt
	if d > maxBackoff {
		return maxBackoff
	}
	return d
}

func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, amqp091.ErrClosed) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, s := range []string{"connection", "eof", "broken pipe", "closed network"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.channel != nil {
		c.channel.Close()
		c.channel = nil
	}
	if c.conn != nil {
		err := c.conn.Close()
		c.conn = nil
		return err
	}
	return nil
}
