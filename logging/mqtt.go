package logging

import (
	"context"
	"net"
	"time"

	"github.com/eclipse/paho.golang/packets"
	"github.com/eclipse/paho.golang/paho"
	"github.com/pkg/errors"

	"github.com/gavinwade12/canLogger/protocols/can"
)

// MQTTConfig describes the broker records are published to.
type MQTTConfig struct {
	Broker   string `mapstructure:"broker"` // host:port
	Topic    string `mapstructure:"topic"`
	ClientID string `mapstructure:"clientid"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	QoS      byte   `mapstructure:"qos"`
}

// Publisher is the part of a paho client the MQTT sink needs.
type Publisher interface {
	Publish(ctx context.Context, p *paho.Publish) (*paho.PublishResponse, error)
}

// MQTTSink publishes each record as JSON to <topic>/<message name>. Frames
// not in the database go to <topic>/raw.
type MQTTSink struct {
	pub     Publisher
	topic   string
	qos     byte
	timeout time.Duration
	close   func() error
}

const mqttPublishTimeout = 5 * time.Second

// NewMQTTSink returns a sink publishing through pub.
func NewMQTTSink(pub Publisher, topic string, qos byte) *MQTTSink {
	return &MQTTSink{pub: pub, topic: topic, qos: qos, timeout: mqttPublishTimeout}
}

// DialMQTT connects to the configured broker and returns a sink publishing to it.
func DialMQTT(ctx context.Context, cfg MQTTConfig, l can.Logger) (*MQTTSink, error) {
	if l == nil {
		l = can.NopLogger
	}

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", cfg.Broker)
	if err != nil {
		return nil, errors.Wrapf(err, "connecting to %s", cfg.Broker)
	}
	l.Debugf("connected to %s", cfg.Broker)

	client := paho.NewClient(paho.ClientConfig{
		Conn: packets.NewThreadSafeConn(conn),
	})

	cp := &paho.Connect{
		KeepAlive:    30,
		ClientID:     cfg.ClientID,
		CleanStart:   true,
		Username:     cfg.Username,
		Password:     []byte(cfg.Password),
		UsernameFlag: cfg.Username != "",
		PasswordFlag: cfg.Password != "",
	}

	ca, err := client.Connect(ctx, cp)
	if err != nil {
		conn.Close()
		return nil, errors.Wrap(err, "mqtt connect")
	}
	if ca.ReasonCode != 0 {
		conn.Close()
		reason := ""
		if ca.Properties != nil {
			reason = ca.Properties.ReasonString
		}
		return nil, errors.Errorf("mqtt connect to %s: %d - %s", cfg.Broker, ca.ReasonCode, reason)
	}

	s := NewMQTTSink(client, cfg.Topic, cfg.QoS)
	s.close = func() error {
		return client.Disconnect(&paho.Disconnect{ReasonCode: 0})
	}
	return s, nil
}

func (s *MQTTSink) topicFor(r Record) string {
	if r.Message == nil {
		return s.topic + "/raw"
	}
	return s.topic + "/" + r.Message.Name
}

func (s *MQTTSink) Write(r Record) error {
	payload, err := MarshalRecord(r)
	if err != nil {
		return wrapSink(err, "mqtt")
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	_, err = s.pub.Publish(ctx, &paho.Publish{
		Topic:   s.topicFor(r),
		QoS:     s.qos,
		Retain:  false,
		Payload: payload,
	})
	return wrapSink(err, "mqtt")
}

func (s *MQTTSink) Close() error {
	if s.close == nil {
		return nil
	}
	return wrapSink(s.close(), "mqtt")
}
