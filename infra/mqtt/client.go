// Package mqtt publishes background task status changes to an MQTT broker.
package mqtt

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/alphapile/pilesched/core/monitoring"
	"github.com/alphapile/pilesched/infra/logger"
)

// DefaultTopic prefixes task status topics.
const DefaultTopic = "pilesched/tasks"

// Auth methods accepted in Config.AuthMethod.
const (
	AuthPassword    = "username_password"
	AuthCertificate = "certificate"
	AuthBoth        = "both"
)

// Config is the mqtt section. The notifier is disabled while Broker is
// empty.
type Config struct {
	Broker     string      `json:"broker"`
	ClientID   string      `json:"client_id"`
	Username   string      `json:"username"`
	Password   string      `json:"password"`
	Topic      string      `json:"topic"`
	QoS        byte        `json:"qos"`
	UseTLS     bool        `json:"use_tls"`
	ClientCert string      `json:"client_cert"`
	ClientKey  string      `json:"client_key"`
	CABundle   string      `json:"ca_bundle"`
	AuthMethod string      `json:"auth_method"`
	LWTTopic   string      `json:"lwt_topic"`
	LWTPayload string      `json:"lwt_payload"`
	LWTQoS     byte        `json:"lwt_qos"`
	LWTRetain  bool        `json:"lwt_retain"`
	MaxRetries int         `json:"max_retries"`
	BackoffMS  int         `json:"backoff_ms"`
	TLSConfig  *tls.Config `json:"-"`
}

// Enabled reports whether a broker is configured.
func (c Config) Enabled() bool { return c.Broker != "" }

// SetDefaults fills the topic, client id and retry policy.
func (c *Config) SetDefaults() {
	c.Topic = strings.TrimSuffix(c.Topic, "/")
	if c.Topic == "" {
		c.Topic = DefaultTopic
	}
	if c.ClientID == "" {
		c.ClientID = "pilesched"
	}
	if c.AuthMethod == "" {
		c.AuthMethod = AuthPassword
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.BackoffMS <= 0 {
		c.BackoffMS = 100
	}
}

// Validate checks QoS levels and the auth method. Certificate auth needs TLS.
func (c Config) Validate() error {
	if c.QoS > 2 || c.LWTQoS > 2 {
		return fmt.Errorf("qos must be 0, 1 or 2")
	}
	switch c.AuthMethod {
	case "", AuthPassword:
	case AuthCertificate, AuthBoth:
		if !c.UseTLS {
			return fmt.Errorf("auth_method %q requires use_tls", c.AuthMethod)
		}
	default:
		return fmt.Errorf("unknown auth_method %q", c.AuthMethod)
	}
	return nil
}

// LoadTLSConfig builds the client TLS configuration. An explicit TLSConfig
// wins over the certificate paths.
func (c Config) LoadTLSConfig() (*tls.Config, error) {
	if c.TLSConfig != nil {
		return c.TLSConfig, nil
	}
	out := &tls.Config{MinVersion: tls.VersionTLS12}
	if c.CABundle != "" {
		pem, err := os.ReadFile(c.CABundle)
		if err != nil {
			return nil, fmt.Errorf("read ca bundle: %w", err)
		}
		out.RootCAs = x509.NewCertPool()
		if !out.RootCAs.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("ca bundle %s holds no certificate", c.CABundle)
		}
	}
	if c.AuthMethod == AuthCertificate || c.AuthMethod == AuthBoth {
		if c.ClientCert == "" || c.ClientKey == "" {
			return nil, errors.New("certificate auth requires client_cert and client_key")
		}
		cert, err := tls.LoadX509KeyPair(c.ClientCert, c.ClientKey)
		if err != nil {
			return nil, fmt.Errorf("load client certificate: %w", err)
		}
		out.Certificates = []tls.Certificate{cert}
	}
	return out, nil
}

// NewClientOptions translates cfg into paho options.
func NewClientOptions(cfg Config) (*paho.ClientOptions, error) {
	opts := paho.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetCleanSession(true)
	if cfg.AuthMethod != AuthCertificate {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}
	if cfg.UseTLS {
		tlsCfg, err := cfg.LoadTLSConfig()
		if err != nil {
			return nil, err
		}
		opts.SetTLSConfig(tlsCfg)
	}
	if cfg.LWTTopic != "" {
		opts.SetWill(cfg.LWTTopic, cfg.LWTPayload, cfg.LWTQoS, cfg.LWTRetain)
	}
	return opts, nil
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

// PahoClient publishes JSON messages below a topic prefix.
type PahoClient struct {
	cli     pahoClient
	prefix  string
	qos     byte
	retries int
	backoff time.Duration
	log     logger.Logger
}

// NewPahoClient applies defaults to cfg and connects to the broker.
func NewPahoClient(cfg Config) (*PahoClient, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	opts, err := NewClientOptions(cfg)
	if err != nil {
		return nil, err
	}
	log := logger.New("mqtt_client")
	opts.SetOnConnectHandler(func(paho.Client) {
		log.Infof("connected to %s", cfg.Broker)
	})
	opts.SetConnectionLostHandler(func(_ paho.Client, err error) {
		log.Errorf("connection to %s lost: %v", cfg.Broker, err)
	})
	opts.SetReconnectingHandler(func(paho.Client, *paho.ClientOptions) {
		log.Warnf("reconnecting to %s", cfg.Broker)
	})

	cli := newMQTTClient(opts)
	if token := cli.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("connect %s: %w", cfg.Broker, token.Error())
	}
	return &PahoClient{
		cli:     cli,
		prefix:  cfg.Topic,
		qos:     cfg.QoS,
		retries: cfg.MaxRetries,
		backoff: time.Duration(cfg.BackoffMS) * time.Millisecond,
		log:     log,
	}, nil
}

// Topic joins suffix to the configured prefix.
func (p *PahoClient) Topic(suffix string) string {
	return p.prefix + "/" + strings.TrimPrefix(suffix, "/")
}

// PublishJSON encodes v and publishes it, retrying with exponential
// backoff. The last error is reported to the monitor.
func (p *PahoClient) PublishJSON(topic string, retained bool, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}
	wait := p.backoff
	for attempt := 1; ; attempt++ {
		token := p.cli.Publish(topic, p.qos, retained, payload)
		token.Wait()
		err = token.Error()
		if err == nil {
			p.log.Debugf("published %d bytes to %s", len(payload), topic)
			return nil
		}
		p.log.Warnf("publish to %s failed (attempt %d): %v", topic, attempt, err)
		if attempt > p.retries {
			break
		}
		time.Sleep(wait)
		wait *= 2
	}
	monitoring.CaptureException(err, map[string]string{"module": "mqtt", "topic": topic})
	return err
}

// Disconnect closes the connection, giving in-flight messages 250ms.
func (p *PahoClient) Disconnect() {
	if p.cli != nil && p.cli.IsConnected() {
		p.cli.Disconnect(250)
	}
}
