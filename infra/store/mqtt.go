package store

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/kilianp07/conformance/core/model"
)

// MQTTConfig defines the broker connection and publishing parameters.
type MQTTConfig struct {
	Broker      string      `json:"broker"`
	ClientID    string      `json:"client_id"`
	Username    string      `json:"username"`
	Password    string      `json:"password"`
	TopicPrefix string      `json:"topic_prefix"`
	QoS         byte        `json:"qos"`
	Retain      bool        `json:"retain"`
	UseTLS      bool        `json:"use_tls"`
	ClientCert  string      `json:"client_cert"`
	ClientKey   string      `json:"client_key"`
	CABundle    string      `json:"ca_bundle"`
	MaxRetries  int         `json:"max_retries"`
	BackoffMS   int         `json:"backoff_ms"`
	TLSConfig   *tls.Config `json:"-"`
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

// MQTTStore publishes each result to <prefix>/<case>/<group key>.
type MQTTStore struct {
	cli        pahoClient
	prefix     string
	qos        byte
	retain     bool
	maxRetries int
	backoff    time.Duration
}

// NewMQTTStore connects to the broker.
func NewMQTTStore(cfg MQTTConfig) (*MQTTStore, error) {
	if cfg.Broker == "" {
		return nil, errors.New("mqtt: empty broker")
	}
	opts, err := NewClientOptions(cfg)
	if err != nil {
		return nil, err
	}
	c := newMQTTClient(opts)
	if token := c.Connect(); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}
	prefix := strings.TrimSuffix(cfg.TopicPrefix, "/")
	if prefix == "" {
		prefix = "conformance"
	}
	return &MQTTStore{
		cli:        c,
		prefix:     prefix,
		qos:        cfg.QoS,
		retain:     cfg.Retain,
		maxRetries: cfg.MaxRetries,
		backoff:    time.Duration(cfg.BackoffMS) * time.Millisecond,
	}, nil
}

// NewClientOptions builds mqtt client options from cfg.
func NewClientOptions(cfg MQTTConfig) (*paho.ClientOptions, error) {
	id := cfg.ClientID
	if id == "" {
		id = "conformance-" + uuid.NewString()
	}
	opts := paho.NewClientOptions().AddBroker(cfg.Broker).SetClientID(id)
	opts.AutoReconnect = true
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}
	if cfg.UseTLS {
		tlsCfg, err := cfg.LoadTLSConfig()
		if err != nil {
			return nil, err
		}
		opts.SetTLSConfig(tlsCfg)
	}
	return opts, nil
}

// LoadTLSConfig loads the TLS configuration from the file paths in the config.
func (c MQTTConfig) LoadTLSConfig() (*tls.Config, error) {
	if c.TLSConfig != nil {
		return c.TLSConfig, nil
	}
	if c.ClientCert == "" || c.ClientKey == "" || c.CABundle == "" {
		return nil, fmt.Errorf("tls config requires client_cert, client_key and ca_bundle")
	}
	cert, err := tls.LoadX509KeyPair(c.ClientCert, c.ClientKey)
	if err != nil {
		return nil, fmt.Errorf("load cert: %w", err)
	}
	caBytes, err := os.ReadFile(c.CABundle)
	if err != nil {
		return nil, fmt.Errorf("read ca: %w", err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(caBytes) {
		return nil, fmt.Errorf("ca bundle %s holds no certificate", c.CABundle)
	}
	return &tls.Config{Certificates: []tls.Certificate{cert}, RootCAs: pool, MinVersion: tls.VersionTLS12}, nil
}

// Topic returns the topic a result is published on.
func (s *MQTTStore) Topic(res model.FitnessResult) string {
	name := res.Case
	if name == "" {
		name = "default"
	}
	return fmt.Sprintf("%s/%s/%s", s.prefix, name, res.Key)
}

// Put publishes res, retrying with a linear backoff.
func (s *MQTTStore) Put(ctx context.Context, res model.FitnessResult) error {
	payload, err := json.Marshal(res)
	if err != nil {
		return err
	}
	topic := s.Topic(res)
	for attempt := 0; ; attempt++ {
		token := s.cli.Publish(topic, s.qos, s.retain, payload)
		token.Wait()
		err = token.Error()
		if err == nil || attempt >= s.maxRetries {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.backoff * time.Duration(attempt+1)):
		}
	}
}

// Close disconnects from the broker.
func (s *MQTTStore) Close() error {
	if s.cli.IsConnected() {
		s.cli.Disconnect(250)
	}
	return nil
}
