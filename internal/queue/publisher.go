package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const (
	ExchangeName = "bowar.events"
	ExchangeKind = "topic"

	minRedial = time.Second
	maxRedial = 30 * time.Second
)

// ErrDisconnected is returned by Publish while the broker is unreachable
// and the next redial is not due yet.
var ErrDisconnected = errors.New("rabbitmq: not connected")

type eventChannel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// session is one open connection with its publishing channel.  closed
// fires (or is closed) when the broker drops the connection.
type session struct {
	conn   io.Closer
	ch     eventChannel
	closed <-chan *amqp.Error
}

func dialSession(url string) (*session, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("rabbitmq channel: %w", err)
	}
	if err := ch.ExchangeDeclare(ExchangeName, ExchangeKind, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("rabbitmq exchange declare: %w", err)
	}
	return &session{conn: conn, ch: ch, closed: conn.NotifyClose(make(chan *amqp.Error, 1))}, nil
}

// Publisher keeps one connection and channel open to the broker and redials
// lazily, with backoff, after the broker drops it.  A channel is not safe
// for concurrent publishes, so Publish serializes on mu.
type Publisher struct {
	mu      sync.Mutex
	url     string
	dial    func(url string) (*session, error)
	now     func() time.Time
	sess    *session
	backoff time.Duration
	retryAt time.Time
	log     *zap.Logger
}

// NewPublisher dials url and declares the durable topic exchange.  The
// first dial must succeed; later outages are recovered by Publish.
func NewPublisher(url string, log *zap.Logger) (*Publisher, error) {
	return newPublisher(url, dialSession, log)
}

func newPublisher(url string, dial func(string) (*session, error), log *zap.Logger) (*Publisher, error) {
	sess, err := dial(url)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Publisher{url: url, dial: dial, now: time.Now, sess: sess, backoff: minRedial, log: log}, nil
}

// connected returns the live session, redialing when the last one was
// dropped.  Callers hold mu.
func (p *Publisher) connected() (*session, error) {
	if p.sess != nil {
		select {
		case err := <-p.sess.closed:
			p.log.Warn("rabbitmq connection closed", zap.Error(err))
			p.drop()
		default:
			return p.sess, nil
		}
	}
	if p.now().Before(p.retryAt) {
		return nil, ErrDisconnected
	}
	sess, err := p.dial(p.url)
	if err != nil {
		p.retryAt = p.now().Add(p.backoff)
		p.log.Warn("rabbitmq redial failed", zap.Error(err), zap.Duration("retry_in", p.backoff))
		if p.backoff < maxRedial {
			p.backoff *= 2
		}
		return nil, err
	}
	p.log.Info("rabbitmq reconnected")
	p.sess, p.backoff, p.retryAt = sess, minRedial, time.Time{}
	return sess, nil
}

func (p *Publisher) drop() {
	if p.sess == nil {
		return
	}
	_ = p.sess.ch.Close()
	_ = p.sess.conn.Close()
	p.sess = nil
}

// Publish sends ev as a persistent JSON message routed by its type.
func (p *Publisher) Publish(ctx context.Context, ev ActivityEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	sess, err := p.connected()
	if err != nil {
		return fmt.Errorf("publish %s: %w", ev.Type, err)
	}
	if err := sess.ch.PublishWithContext(ctx, ExchangeName, ev.Type, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}); err != nil {
		p.drop()
		return fmt.Errorf("publish %s: %w", ev.Type, err)
	}
	p.log.Debug("event published", zap.String("exchange", ExchangeName), zap.String("routing_key", ev.Type))
	return nil
}

func (p *Publisher) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.drop()
}
