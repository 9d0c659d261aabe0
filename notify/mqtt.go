// Package notify publishes accepted assignments to workers over MQTT.
package notify

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"shift-scheduler/config"
	"shift-scheduler/logger"
	"shift-scheduler/models"
)

// ErrPublishTimeout is returned when the broker does not confirm a publish in time.
var ErrPublishTimeout = errors.New("mqtt publish timed out")

// Shift is one hour a worker was assigned.
type Shift struct {
	Hour     int               `json:"hour"`
	Window   models.TimeWindow `json:"window"`
	SlotTier models.Tier       `json:"slot_tier"`
	Fixed    bool              `json:"fixed"`
}

// Message is published once per assigned worker.
type Message struct {
	RunID         string  `json:"run_id"`
	Day           string  `json:"day"`
	WorkerCode    int     `json:"worker_code"`
	TotalAssigned int     `json:"total_assigned"`
	Shifts        []Shift `json:"shifts"`
}

type pahoClient interface {
	IsConnected() bool
	Connect() paho.Token
	Disconnect(quiesce uint)
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
}

var newMQTTClient = func(opts *paho.ClientOptions) pahoClient {
	return paho.NewClient(opts)
}

// MQTTNotifier publishes to "<topic_prefix>/<worker_code>".
type MQTTNotifier struct {
	cli     pahoClient
	prefix  string
	qos     byte
	retain  bool
	timeout time.Duration
	log     logger.Logger
}

// NewMQTTNotifier connects to the configured broker.
func NewMQTTNotifier(cfg config.NotifyConfig, log logger.Logger) (*MQTTNotifier, error) {
	if log == nil {
		log = logger.NopLogger{}
	}
	clientID := cfg.ClientID
	if clientID == "" {
		clientID = "shift-scheduler-" + uuid.NewString()
	}
	opts := paho.NewClientOptions().AddBroker(cfg.Broker).SetClientID(clientID)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}
	opts.OnConnectionLost = func(_ paho.Client, err error) {
		log.Errorf("connection lost: %v", err)
	}

	timeout := time.Duration(cfg.TimeoutMS) * time.Millisecond
	c := newMQTTClient(opts)
	token := c.Connect()
	if !token.WaitTimeout(timeout) {
		return nil, fmt.Errorf("connect %s: %w", cfg.Broker, ErrPublishTimeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect %s: %w", cfg.Broker, err)
	}
	log.Infof("MQTT connected to %s as %s", cfg.Broker, clientID)

	return &MQTTNotifier{
		cli:     c,
		prefix:  cfg.TopicPrefix,
		qos:     cfg.QoS,
		retain:  cfg.Retain,
		timeout: timeout,
		log:     log,
	}, nil
}

// Messages groups assignments per worker, ordered by worker code then hour.
func Messages(runID, day string, assignments []models.Assignment) []Message {
	byWorker := make(map[int]*Message)
	for _, a := range assignments {
		m, ok := byWorker[a.WorkerCode]
		if !ok {
			m = &Message{RunID: runID, Day: day, WorkerCode: a.WorkerCode}
			byWorker[a.WorkerCode] = m
		}
		m.TotalAssigned = max(m.TotalAssigned, a.WorkerTotal)
		m.Shifts = append(m.Shifts, Shift{Hour: a.Hour, Window: a.Window, SlotTier: a.SlotTier, Fixed: a.Fixed})
	}

	out := make([]Message, 0, len(byWorker))
	for _, m := range byWorker {
		slices.SortFunc(m.Shifts, func(a, b Shift) int { return cmp.Compare(a.Hour, b.Hour) })
		out = append(out, *m)
	}
	slices.SortFunc(out, func(a, b Message) int { return cmp.Compare(a.WorkerCode, b.WorkerCode) })
	return out
}

// Publish sends one message per assigned worker. It stops at the first failure.
func (n *MQTTNotifier) Publish(ctx context.Context, runID, day string, plan *models.Plan) error {
	for _, msg := range Messages(runID, day, plan.Assignments) {
		if err := ctx.Err(); err != nil {
			return err
		}
		payload, err := json.Marshal(msg)
		if err != nil {
			return err
		}
		topic := fmt.Sprintf("%s/%d", n.prefix, msg.WorkerCode)
		token := n.cli.Publish(topic, n.qos, n.retain, payload)
		if !token.WaitTimeout(n.timeout) {
			return fmt.Errorf("%s: %w", topic, ErrPublishTimeout)
		}
		if err := token.Error(); err != nil {
			n.log.Errorf("publish to %s failed: %v", topic, err)
			return fmt.Errorf("publish %s: %w", topic, err)
		}
		n.log.Debugf("published %d shifts to %s", len(msg.Shifts), topic)
	}
	return nil
}

// Close gracefully closes the MQTT connection.
func (n *MQTTNotifier) Close() {
	if n.cli != nil && n.cli.IsConnected() {
		n.cli.Disconnect(250)
	}
}
