package forecast

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/AditiSurve17/intelligent-cloud-waste-detector/internal/models"
	"github.com/AditiSurve17/intelligent-cloud-waste-detector/internal/providers/aws/common"
)

// Alert is a high-cost forecast notification.
type Alert struct {
	Prediction models.Prediction `json:"prediction"`
	Threshold  float64           `json:"threshold"`
	At         time.Time         `json:"at"`
}

// Subject is the alert title used by every notifier.
const Subject = "[CloudWasteDetector] ALERT: High Cost Forecast"

// Message renders the alert as plain text.
func (a Alert) Message() string {
	var b strings.Builder
	fmt.Fprintln(&b, "High cost forecast detected")
	fmt.Fprintf(&b, "Date:             %s\n", a.At.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "Forecasted cost:  $%.2f (threshold $%.2f)\n", a.Prediction.EnsemblePrediction, a.Threshold)
	fmt.Fprintf(&b, "Confidence score: %.1f%%\n", a.Prediction.ConfidenceScore)
	fmt.Fprintf(&b, "Range:            $%.2f - $%.2f\n", a.Prediction.ForecastRange.Min, a.Prediction.ForecastRange.Max)
	fmt.Fprintf(&b, "Recommendation:   %s", a.Prediction.Recommendation)
	return b.String()
}

// Notifier delivers forecast alerts.
type Notifier interface {
	Notify(ctx context.Context, a Alert) error
}

// SNSNotifier publishes alerts to an SNS topic.
type SNSNotifier struct {
	client   common.SNSClient
	topicARN string
}

func NewSNSNotifier(client common.SNSClient, topicARN string) *SNSNotifier {
	return &SNSNotifier{client: client, topicARN: topicARN}
}

func (n *SNSNotifier) Notify(ctx context.Context, a Alert) error {
	_, err := n.client.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(n.topicARN),
		Subject:  aws.String(Subject),
		Message:  aws.String(a.Message()),
	})
	if err != nil {
		return fmt.Errorf("publish alert to %s: %w", n.topicARN, err)
	}
	return nil
}

// MQTTConfig configures the MQTT alert notifier.
type MQTTConfig struct {
	Broker   string // host:port
	Topic    string
	ClientID string
	Username string
	Password string
}

// mqttPublisher is the part of mqtt.Client the notifier uses.
type mqttPublisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Disconnect(quiesce uint)
}

// MQTTNotifier publishes alerts as JSON to an MQTT topic.
type MQTTNotifier struct {
	client  mqttPublisher
	topic   string
	timeout time.Duration
}

// NewMQTTNotifier connects to the broker.
func NewMQTTNotifier(cfg MQTTConfig) (*MQTTNotifier, error) {
	if cfg.Broker == "" {
		return nil, errors.New("MQTT broker address is required")
	}
	if cfg.Topic == "" {
		cfg.Topic = "cwd/alerts/forecast"
	}
	if cfg.ClientID == "" {
		cfg.ClientID = "cwd"
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s", cfg.Broker))
	opts.SetClientID(cfg.ClientID)
	opts.SetAutoReconnect(true)
	opts.SetConnectTimeout(10 * time.Second)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("connect to MQTT broker %s: %w", cfg.Broker, token.Error())
	}
	return &MQTTNotifier{client: client, topic: cfg.Topic, timeout: 10 * time.Second}, nil
}

func (n *MQTTNotifier) Notify(ctx context.Context, a Alert) error {
	payload, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("encode alert: %w", err)
	}
	token := n.client.Publish(n.topic, 1, false, payload)

	select {
	case <-token.Done():
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(n.timeout):
		return fmt.Errorf("publish alert to %s: timed out after %s", n.topic, n.timeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish alert to %s: %w", n.topic, err)
	}
	return nil
}

// Close disconnects from the broker.
func (n *MQTTNotifier) Close() {
	n.client.Disconnect(250)
}

// MultiNotifier fans an alert out to several notifiers and joins their
// errors. Every notifier is tried.
type MultiNotifier []Notifier

func (m MultiNotifier) Notify(ctx context.Context, a Alert) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, a); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
