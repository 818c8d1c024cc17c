package core

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/nandanugg/proximity/config"
	"github.com/nandanugg/proximity/module/core/domain"
	handler "github.com/nandanugg/proximity/module/core/internal/handler/http"
	"github.com/nandanugg/proximity/module/core/internal/handler/subscriber"
	"github.com/nandanugg/proximity/module/core/internal/metrics"
	"github.com/nandanugg/proximity/module/core/internal/repository/database/postgres"
	"github.com/nandanugg/proximity/module/core/internal/repository/notifier"
	"github.com/nandanugg/proximity/module/core/internal/repository/notifier/mail"
	"github.com/nandanugg/proximity/module/core/internal/repository/publisher"
	"github.com/nandanugg/proximity/module/core/internal/repository/publisher/kafka"
	"github.com/nandanugg/proximity/module/core/internal/repository/publisher/nats"
	"github.com/nandanugg/proximity/module/core/internal/repository/publisher/rabbitmq"
	"github.com/nandanugg/proximity/module/core/internal/repository/publisher/s3"
	"github.com/nandanugg/proximity/module/core/service"
)

type Module struct {
	Receiver *service.GeofenceReceiver
	Manager  *service.GeofenceManager
	History  *service.HistoryPublisher

	handler        *handler.HistoryHandler
	channel        *subscriber.GeofenceChannel
	listeners      []service.GeofenceListener
	uploadInterval time.Duration
	closers        []io.Closer
}

func Build(ctx context.Context, cfg *config.Config, db *sql.DB, amqpConn *amqp.Connection, mqttClient mqtt.Client) (*Module, error) {
	metrics.Register()

	historyRepo := postgres.NewHistoryRepo(db)
	if err := historyRepo.EnsureSchema(ctx); err != nil {
		return nil, err
	}

	transport, closer, err := newTransport(ctx, cfg, amqpConn)
	if err != nil {
		return nil, fmt.Errorf("history transport: %w", err)
	}

	actionCfgs, err := config.LoadActions(cfg.ActionsFile)
	if err != nil {
		return nil, err
	}
	rules, err := toActionRules(actionCfgs)
	if err != nil {
		return nil, err
	}

	clock := service.SystemClock{}
	historySvc := service.NewHistoryPublisher(historyRepo, transport, clock, cfg.HistoryCacheTTL)
	manager := service.NewGeofenceManager(true)
	channel := subscriber.NewGeofenceChannel(mqttClient, cfg.GeofenceTopic)
	receiver := service.NewGeofenceReceiver(channel, manager)

	listeners := []service.GeofenceListener{
		service.NewHistoryListener(historySvc, clock),
		service.NewActionTrigger(rules, newPresenter(cfg), historySvc, clock),
	}

	m := &Module{
		Receiver:       receiver,
		Manager:        manager,
		History:        historySvc,
		handler:        handler.NewHistoryHandler(historySvc, manager, receiver),
		channel:        channel,
		listeners:      listeners,
		uploadInterval: cfg.HistoryUploadInterval,
	}
	if closer != nil {
		m.closers = append(m.closers, closer)
	}
	return m, nil
}

func (m *Module) RegisterRoutes(r *gin.RouterGroup) {
	m.handler.Register(r)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

// StartSubscribers registers the module's listeners, which opens the
// geofence broadcast subscription.
func (m *Module) StartSubscribers() error {
	for _, l := range m.listeners {
		if err := m.Receiver.AddListener(l); err != nil {
			return err
		}
	}
	return nil
}

// StopSubscribers removes every module listener, even when some removals
// fail, so the broadcast subscription is always released.
func (m *Module) StopSubscribers() error {
	var errs []error
	for _, l := range m.listeners {
		if err := m.Receiver.RemoveListener(l); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// OnMQTTConnect is installed as an MQTT connect hook; it restores the geofence
// subscription that a clean-session reconnect dropped.
func (m *Module) OnMQTTConnect(client mqtt.Client) {
	m.channel.OnConnect(client)
}

// RunHistoryUpload blocks, publishing history periodically until ctx is done.
func (m *Module) RunHistoryUpload(ctx context.Context) {
	m.History.Run(ctx, m.uploadInterval)
}

func (m *Module) Close() error {
	var firstErr error
	for _, c := range m.closers {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func newTransport(ctx context.Context, cfg *config.Config, amqpConn *amqp.Connection) (publisher.HistoryTransport, io.Closer, error) {
	switch cfg.HistoryTransport {
	case "rabbitmq":
		if amqpConn == nil {
			return nil, nil, fmt.Errorf("rabbitmq transport requires a connection")
		}
		p, err := rabbitmq.NewHistoryPublisher(amqpConn)
		if err != nil {
			return nil, nil, err
		}
		return p, p, nil
	case "kafka":
		p := kafka.NewHistoryPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		return p, p, nil
	case "nats":
		p, err := nats.NewHistoryPublisher(cfg.NATSURL, cfg.NATSSubject)
		if err != nil {
			return nil, nil, err
		}
		return p, p, nil
	case "s3":
		p, err := s3.NewHistoryPublisher(ctx, cfg.S3Bucket, cfg.S3Prefix, cfg.S3Region, cfg.S3Endpoint)
		if err != nil {
			return nil, nil, err
		}
		return p, nil, nil
	}
	return nil, nil, fmt.Errorf("unknown transport %q", cfg.HistoryTransport)
}

func newPresenter(cfg *config.Config) notifier.ActionPresenter {
	if cfg.SMTPHost == "" || len(cfg.NotifyRecipients) == 0 {
		return notifier.LogPresenter{}
	}
	return mail.NewActionPresenter(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword, cfg.NotifyRecipients)
}

func toActionRules(cfgs []config.ActionConfig) ([]domain.ActionRule, error) {
	rules := make([]domain.ActionRule, 0, len(cfgs))
	for i, c := range cfgs {
		id, err := uuid.Parse(c.UUID)
		if err != nil {
			return nil, fmt.Errorf("action %d: uuid: %w", i, err)
		}
		if _, err := domain.ParseGeofenceData(c.Fence); err != nil {
			return nil, fmt.Errorf("action %d: %w", i, err)
		}
		trigger, err := domain.ParseScanEventType(c.Trigger)
		if err != nil {
			return nil, fmt.Errorf("action %d: %w", i, err)
		}
		rules = append(rules, domain.ActionRule{
			Fence:   c.Fence,
			Trigger: trigger,
			Action: domain.Action{
				UUID:    id,
				Type:    c.Type,
				Subject: c.Subject,
				Body:    c.Body,
				URL:     c.URL,
			},
		})
	}
	return rules, nil
}
