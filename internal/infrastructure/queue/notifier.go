package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/erp/prestashop-connector/internal/domain/connector"
	"github.com/erp/prestashop-connector/internal/infrastructure/config"
)

// JobEvent is the message published when a job is done or failed
type JobEvent struct {
	JobID      string     `json:"job_id"`
	BackendID  string     `json:"backend_id"`
	Model      string     `json:"model"`
	Method     string     `json:"method"`
	ExternalID int64      `json:"external_id,omitempty"`
	Status     string     `json:"status"`
	Attempts   int        `json:"attempts"`
	Result     string     `json:"result,omitempty"`
	Error      string     `json:"error,omitempty"`
	DoneAt     *time.Time `json:"done_at,omitempty"`
}

// AMQPNotifier publishes job events on a RabbitMQ topic exchange. The
// routing key is "<routing key>.<status>".
type AMQPNotifier struct {
	exchange   string
	routingKey string
	logger     *zap.Logger

	mu     sync.Mutex
	conn   *amqp.Connection
	ch     *amqp.Channel
	closed bool
}

// NewAMQPNotifier connects to RabbitMQ and declares the exchange
func NewAMQPNotifier(ctx context.Context, cfg *config.RabbitMQConfig, logger *zap.Logger) (*AMQPNotifier, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	conn, err := amqp.DialConfig(cfg.URL(), amqp.Config{
		Dial: func(network, addr string) (net.Conn, error) {
			return (&net.Dialer{Timeout: 10 * time.Second}).DialContext(ctx, network, addr)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to open a channel to RabbitMQ: %w", err)
	}
	if err := ch.ExchangeDeclare(cfg.Exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("failed to declare exchange %s: %w", cfg.Exchange, err)
	}

	logger.Info("Job notifier connected",
		zap.String("host", cfg.Host),
		zap.String("exchange", cfg.Exchange),
	)
	return &AMQPNotifier{
		exchange:   cfg.Exchange,
		routingKey: cfg.RoutingKey,
		logger:     logger,
		conn:       conn,
		ch:         ch,
	}, nil
}

// Notify publishes the state of a job
func (n *AMQPNotifier) Notify(ctx context.Context, job *connector.Job) error {
	msg, err := jobMessage(job)
	if err != nil {
		return err
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return ErrNotifierClosed
	}

	key := n.routingKey + "." + string(job.Status)
	if err := n.ch.PublishWithContext(ctx, n.exchange, key, false, false, msg); err != nil {
		return fmt.Errorf("failed to publish job event: %w", err)
	}
	n.logger.Debug("Published job event",
		zap.String("job_id", job.ID.String()),
		zap.String("routing_key", key),
	)
	return nil
}

// Close closes the channel and the connection
func (n *AMQPNotifier) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return nil
	}
	n.closed = true
	if err := n.ch.Close(); err != nil {
		_ = n.conn.Close()
		return err
	}
	return n.conn.Close()
}

func jobMessage(job *connector.Job) (amqp.Publishing, error) {
	body, err := json.Marshal(JobEvent{
		JobID:      job.ID.String(),
		BackendID:  job.BackendID.String(),
		Model:      job.Model,
		Method:     string(job.Method),
		ExternalID: job.Args.ExternalID,
		Status:     string(job.Status),
		Attempts:   job.Attempts,
		Result:     job.Result,
		Error:      job.Error,
		DoneAt:     job.DoneAt,
	})
	if err != nil {
		return amqp.Publishing{}, err
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    job.ID.String(),
		Timestamp:    job.UpdatedAt,
		Type:         "connector.job." + string(job.Status),
		Body:         body,
		Headers: amqp.Table{
			"backend_id": job.BackendID.String(),
			"model":      job.Model,
		},
	}, nil
}
