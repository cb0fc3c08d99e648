package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

var queues = []string{MessageEventsQueue}

var errPublisherReconnecting = errors.New("rabbitmq publisher is reconnecting")

// connectToRabbitMQ retries the dial up to MaxConnectRetry times. Closing stop
// abandons the remaining attempts.
func connectToRabbitMQ(url string, stop <-chan struct{}) (*amqp.Connection, error) {
	var conn *amqp.Connection
	var err error
	for i := 0; i < MaxConnectRetry; i++ {
		conn, err = amqp.Dial(url)
		if err == nil {
			slog.Info("connected to rabbitmq")
			return conn, nil
		}
		slog.Warn("failed to connect to rabbitmq", "attempt", i+1, "max_attempts", MaxConnectRetry, "error", err)
		if !sleepOrStop(RetryDelay, stop) {
			return nil, fmt.Errorf("stopped connecting to rabbitmq: %w", err)
		}
	}
	slog.Error("failed to connect to rabbitmq", "attempts", MaxConnectRetry, "error", err)
	return nil, fmt.Errorf("failed to connect to rabbitmq after %d attempts: %w", MaxConnectRetry, err)
}

// sleepOrStop returns false if stop was closed before d elapsed.
func sleepOrStop(d time.Duration, stop <-chan struct{}) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-stop:
		return false
	}
}

func declareQueues(channel *amqp.Channel) error {
	for _, queue := range queues {
		if _, err := channel.QueueDeclare(queue, true, false, false, false, nil); err != nil {
			return fmt.Errorf("failed to declare rabbitmq queue %s: %w", queue, err)
		}
	}
	return nil
}

// RabbitMQPublisher publishes events on a single channel. While the broker is
// unreachable it keeps reconnecting in the background and publishes fail
// immediately with errPublisherReconnecting.
type RabbitMQPublisher struct {
	connLock sync.RWMutex // guards conn and channel, never held across network calls
	conn     *amqp.Connection
	channel  *amqp.Channel

	url        string
	stop       chan struct{}
	destructor sync.Once
}

var _ Publisher = (*RabbitMQPublisher)(nil)

func NewRabbitMQPublisher(rabbitMQURL string) (*RabbitMQPublisher, error) {
	p := newRabbitMQPublisher(rabbitMQURL)
	if err := p.connect(); err != nil {
		return nil, err
	}
	return p, nil
}

func newRabbitMQPublisher(rabbitMQURL string) *RabbitMQPublisher {
	return &RabbitMQPublisher{url: rabbitMQURL, stop: make(chan struct{})}
}

func (p *RabbitMQPublisher) isClosed() bool {
	select {
	case <-p.stop:
		return true
	default:
		return false
	}
}

func (p *RabbitMQPublisher) connect() error {
	conn, err := connectToRabbitMQ(p.url, p.stop)
	if err != nil {
		return err
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		slog.Error("failed to open rabbitmq channel", "error", err)
		return fmt.Errorf("failed to open rabbitmq channel: %w", err)
	}

	if err := declareQueues(channel); err != nil {
		conn.Close()
		return err
	}

	p.connLock.Lock()
	if p.isClosed() {
		p.connLock.Unlock()
		conn.Close()
		return ErrQueueClosed
	}
	p.conn = conn
	p.channel = channel
	p.connLock.Unlock()

	slog.Info("rabbitmq channel opened and queues declared")

	go p.handleReconnect(channel)

	return nil
}

func (p *RabbitMQPublisher) handleReconnect(channel *amqp.Channel) {
	notifyClose := make(chan *amqp.Error, 1)
	channel.NotifyClose(notifyClose)

	err, ok := <-notifyClose
	if !ok { // channel is just closed on graceful close
		slog.Info("rabbitmq channel closed")
		return
	}

	slog.Warn("rabbitmq connection closed, attempting to reconnect", "error", err)

	p.connLock.Lock()
	p.channel = nil
	p.conn = nil
	p.connLock.Unlock()

	p.reconnect()
}

// reconnect dials until it succeeds or the publisher is closed.
func (p *RabbitMQPublisher) reconnect() {
	for !p.isClosed() {
		if p.connect() == nil {
			slog.Info("successfully reconnected to rabbitmq")
			return
		}
		if !sleepOrStop(RetryDelay*10, p.stop) {
			return
		}
	}
}

func (p *RabbitMQPublisher) currentChannel() (*amqp.Channel, error) {
	if p.isClosed() {
		return nil, ErrQueueClosed
	}

	p.connLock.RLock()
	defer p.connLock.RUnlock()

	if p.channel == nil || p.channel.IsClosed() {
		return nil, errPublisherReconnecting
	}
	return p.channel, nil
}

func (p *RabbitMQPublisher) publishTaskInternal(ctx context.Context, queueName string, payload interface{}) error {
	channel, err := p.currentChannel()
	if err != nil {
		return fmt.Errorf("failed to publish %s: %w", queueName, err)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		slog.Error("failed to marshal payload", "queue", queueName, "error", err)
		return fmt.Errorf("failed to marshal %s payload: %w", queueName, err)
	}

	ctx, cancel := context.WithTimeout(ctx, PublishTimeout)
	defer cancel()

	err = channel.PublishWithContext(ctx,
		"",        // exchange (default)
		queueName, // routing key (queue name)
		false,     // mandatory
		false,     // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
		})

	if err != nil {
		slog.Error("failed to publish task, potential connection issue", "queue", queueName, "error", err)
		return fmt.Errorf("failed to publish %s: %w", queueName, err)
	}

	return nil
}

func (p *RabbitMQPublisher) PublishMessagePosted(ctx context.Context, payload MessagePostedPayload) error {
	return p.publishTaskInternal(ctx, MessageEventsQueue, payload)
}

func (p *RabbitMQPublisher) Close() {
	p.destructor.Do(func() {
		close(p.stop)

		p.connLock.Lock()
		conn := p.conn
		p.conn = nil
		p.channel = nil
		p.connLock.Unlock()

		if conn == nil {
			return
		}
		if err := conn.Close(); err != nil {
			slog.Error("error closing rabbitmq connection", "error", err)
		}
	})
}

type RabbitMQTask struct {
	d amqp.Delivery
}

func (t *RabbitMQTask) Type() string {
	return t.d.RoutingKey
}

func (t *RabbitMQTask) Payload() []byte {
	return t.d.Body
}

func (t *RabbitMQTask) Ack() error {
	return t.d.Ack(false)
}

// Nack does not requeue the delivery.
func (t *RabbitMQTask) Nack() error {
	return t.d.Nack(false, false)
}

func (t *RabbitMQTask) Reject() error {
	return t.d.Reject(false)
}

type RabbitMQReceiver struct {
	tasks chan Task
	url   string
	stop  chan struct{}
	once  sync.Once
}

var _ Receiver = (*RabbitMQReceiver)(nil)

func NewRabbitMQReceiver(rabbitMQURL string) (*RabbitMQReceiver, error) {
	c := &RabbitMQReceiver{
		tasks: make(chan Task),
		url:   rabbitMQURL,
		stop:  make(chan struct{}),
	}

	if err := c.receiveTasks(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *RabbitMQReceiver) consume(msgs <-chan amqp.Delivery) {
	for d := range msgs {
		select {
		case c.tasks <- &RabbitMQTask{d: d}:
		case <-c.stop:
			return
		}
	}
}

func (c *RabbitMQReceiver) receiveTasks() error {
	conn, err := connectToRabbitMQ(c.url, c.stop)
	if err != nil {
		return err
	}
	channel, err := conn.Channel()
	if err != nil {
		slog.Error("failed to open rabbitmq channel", "error", err)
		conn.Close()
		return fmt.Errorf("failed to open rabbitmq channel: %w", err)
	}

	// one unacked message at a time per receiver
	if err := channel.Qos(1, 0, false); err != nil {
		slog.Error("failed to set channel qos", "error", err)
		conn.Close()
		return fmt.Errorf("failed to set channel qos: %w", err)
	}

	if err := declareQueues(channel); err != nil {
		conn.Close()
		return err
	}

	for _, queue := range queues {
		msgs, err := channel.Consume(queue, "", false, false, false, false, nil)
		if err != nil {
			slog.Error("failed to consume from rabbitmq queue", "queue", queue, "error", err)
			conn.Close()
			return fmt.Errorf("failed to consume from rabbitmq queue %s: %w", queue, err)
		}

		go c.consume(msgs)
	}

	go c.handleReconnect(conn, channel)

	return nil
}

func (c *RabbitMQReceiver) handleReconnect(conn *amqp.Connection, channel *amqp.Channel) {
	notifyClose := make(chan *amqp.Error, 1)
	channel.NotifyClose(notifyClose)

	select {
	case err, ok := <-notifyClose:
		if !ok {
			slog.Info("rabbitmq channel closed")
			return
		}

		slog.Warn("rabbitmq connection closed, attempting to reconnect", "error", err)

		for {
			select {
			case <-c.stop:
				return
			default:
			}
			if c.receiveTasks() == nil {
				slog.Info("successfully restarted rabbitmq consumer")
				return
			}
			if !sleepOrStop(RetryDelay*10, c.stop) {
				return
			}
		}
	case <-c.stop:
		slog.Info("stopping rabbitmq consumer")
		if err := conn.Close(); err != nil {
			slog.Error("error closing rabbitmq conn", "error", err)
		}
		return
	}
}

func (c *RabbitMQReceiver) Tasks() <-chan Task {
	return c.tasks
}

func (c *RabbitMQReceiver) Close() {
	c.once.Do(func() {
		close(c.stop)
	})
}
