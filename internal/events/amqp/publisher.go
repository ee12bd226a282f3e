// Package amqp publishes change events to a RabbitMQ exchange.
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

	"fintrack/internal/events"
	"fintrack/internal/log"
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
	publishTimeout = 5 * time.Second
	maxBackoff     = 30 * time.Second
)

var (
	ErrCircuitOpen = errors.New("circuit breaker is open")
	ErrBackoff     = errors.New("reconnect backing off")
)

// Publisher sends events.Change messages to a durable direct exchange. A
// dropped connection is re-dialled on the next publish, spaced out by an
// exponential backoff, and repeated failures open a circuit breaker so a
// dead broker costs nothing per mutation.
type Publisher struct {
	url          string
	exchangeName string
	routingKey   string
	logger       *log.Logger

	mu      sync.Mutex
	conn    *amqp091.Connection
	channel *amqp091.Channel

	state        int32
	failureCount int64
	lastFailure  time.Time
	attempts     int
	nextDial     time.Time
}

func NewPublisher(url, exchangeName, routingKey string, logger *log.Logger) (*Publisher, error) {
	p := &Publisher{
		url:          url,
		exchangeName: exchangeName,
		routingKey:   routingKey,
		logger:       log.OrDiscard(logger).WithComponent(log.ComponentEvents),
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.connect(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Publisher) connect() error {
	conn, err := amqp091.Dial(p.url)
	if err != nil {
		return fmt.Errorf("dial AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}

	if err := p.setup(channel); err != nil {
		channel.Close()
		conn.Close()
		return fmt.Errorf("setup exchange and queue: %w", err)
	}

	p.conn, p.channel = conn, channel
	p.attempts = 0
	return nil
}

func (p *Publisher) setup(ch *amqp091.Channel) error {
	err := ch.ExchangeDeclare(
		p.exchangeName, // name
		"direct",       // type
		true,           // durable
		false,          // auto-deleted
		false,          // internal
		false,          // no-wait
		nil,            // arguments
	)
	if err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	// The queue shares the routing key's name so changes are retained even
	// before any consumer has bound.
	if _, err := ch.QueueDeclare(p.routingKey, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}
	if err := ch.QueueBind(p.routingKey, p.routingKey, p.exchangeName, false, nil); err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}
	return nil
}

// Publish sends c as a persistent JSON message.
func (p *Publisher) Publish(ctx context.Context, c events.Change) error {
	if p.isCircuitOpen() {
		return ErrCircuitOpen
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	body, err := c.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	ch, err := p.ensureChannel()
	if err != nil {
		p.recordFailure()
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	err = ch.PublishWithContext(
		ctx,
		p.exchangeName, // exchange
		p.routingKey,   // routing key
		false,          // mandatory
		false,          // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Timestamp:    c.Timestamp,
			Type:         string(c.Op),
			Body:         body,
		},
	)
	if err != nil {
		p.recordFailure()
		if isConnectionError(err) {
			p.dropConnection()
		}
		return fmt.Errorf("publish message: %w", err)
	}

	p.recordSuccess()
	p.logger.DebugContext(ctx, "Published change",
		log.FieldEntity, c.Entity,
		log.FieldOperation, string(c.Op),
		log.FieldVersion, c.Version,
		"exchange", p.exchangeName)
	return nil
}

func (p *Publisher) ensureChannel() (*amqp091.Channel, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.channel != nil && !p.channel.IsClosed() {
		return p.channel, nil
	}
	if now := time.Now(); now.Before(p.nextDial) {
		return nil, ErrBackoff
	}
	p.closeLocked()
	if err := p.connect(); err != nil {
		p.nextDial = time.Now().Add(exponentialBackoff(p.attempts))
		p.attempts++
		p.logger.Warn("AMQP reconnect failed", log.FieldError, err.Error(), "attempt", p.attempts)
		return nil, err
	}
	p.logger.Info("AMQP connection re-established", "exchange", p.exchangeName)
	return p.channel, nil
}

func (p *Publisher) dropConnection() {
	p.mu.Lock()
	p.closeLocked()
	p.mu.Unlock()
}

func (p *Publisher) closeLocked() {
	if p.channel != nil {
		p.channel.Close()
		p.channel = nil
	}
	if p.conn != nil {
		p.conn.Close()
		p.conn = nil
	}
}

func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	var err error
	if p.channel != nil {
		p.channel.Close()
		p.channel = nil
	}
	if p.conn != nil {
		err = p.conn.Close()
		p.conn = nil
	}
	return err
}

func (p *Publisher) isCircuitOpen() bool {
	switch atomic.LoadInt32(&p.state) {
	case StateOpen:
		p.mu.Lock()
		last := p.lastFailure
		p.mu.Unlock()
		if time.Since(last) > openTimeout {
			atomic.CompareAndSwapInt32(&p.state, StateOpen, StateHalfOpen)
			return false
		}
		return true
	default:
		return false
	}
}

func (p *Publisher) recordSuccess() {
	atomic.StoreInt64(&p.failureCount, 0)
	atomic.StoreInt32(&p.state, StateClosed)
}

func (p *Publisher) recordFailure() {
	p.mu.Lock()
	p.lastFailure = time.Now()
	p.mu.Unlock()
	n := atomic.AddInt64(&p.failureCount, 1)
	if n >= maxFailures || atomic.LoadInt32(&p.state) == StateHalfOpen {
		if atomic.SwapInt32(&p.state, StateOpen) != StateOpen {
			p.logger.Warn("AMQP circuit breaker opened", "failures", n)
		}
	}
}

// exponentialBackoff doubles from one second, capped at maxBackoff.
func exponentialBackoff(attempt int) time.Duration {
	if attempt > 5 {
		return maxBackoff
	}
	d := time.Second << uint(attempt)
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
	for _, s := range []string{"connection refused", "connection closed", "eof", "broken pipe", "use of closed network connection", "channel/connection is not open"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}
