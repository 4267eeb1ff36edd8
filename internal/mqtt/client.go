// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package mqtt republishes zone events to an MQTT broker.
package mqtt

import (
	"context"
	"errors"
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/ManuGH/sonox/internal/log"
	platformnet "github.com/ManuGH/sonox/internal/platform/net"
)

const (
	keepAlive      = 60 * time.Second
	connectTimeout = 10 * time.Second
	quiesceMillis  = 250
)

// ErrNotConnected is returned by Publish while the broker connection is down.
var ErrNotConnected = errors.New("mqtt: not connected")

// Publisher sends one payload to a topic.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload []byte) error
}

// Config holds the broker connection settings.
type Config struct {
	Broker      string
	Username    string
	Password    string
	ClientID    string
	TopicPrefix string
	RetryDelay  time.Duration
	MaxRetries  int
}

// Client is a Publisher backed by paho with automatic reconnects.
type Client struct {
	client paho.Client
	broker string
}

// Dial starts connecting to the broker and returns immediately. The
// connection is retried in the background until Close.
func Dial(cfg Config) (*Client, error) {
	broker, err := platformnet.BrokerURL(cfg.Broker)
	if err != nil {
		return nil, fmt.Errorf("mqtt broker: %w", err)
	}
	clientID := cfg.ClientID
	if clientID == "" {
		clientID = "sonox"
	}
	// Suffix keeps two instances with the same config from kicking each other off.
	clientID += "-" + uuid.NewString()[:8]

	logger := log.WithComponent("mqtt")
	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetUsername(cfg.Username).
		SetPassword(cfg.Password).
		SetKeepAlive(keepAlive).
		SetConnectTimeout(connectTimeout).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(max(cfg.RetryDelay, time.Second)).
		SetOnConnectHandler(func(paho.Client) {
			logger.Info().Str(log.FieldEvent, "mqtt.connected").Str("broker", broker).Msg("mqtt connected")
		}).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			logger.Warn().Err(err).Str(log.FieldEvent, "mqtt.connection_lost").Msg("mqtt connection lost")
		}).
		SetReconnectingHandler(func(paho.Client, *paho.ClientOptions) {
			logger.Info().Str(log.FieldEvent, "mqtt.reconnecting").Msg("mqtt reconnecting")
		})

	c := paho.NewClient(opts)
	c.Connect()
	return &Client{client: c, broker: broker}, nil
}

// Broker returns the normalized broker URL.
func (c *Client) Broker() string { return c.broker }

// Publish sends payload with QoS 0.
func (c *Client) Publish(ctx context.Context, topic string, payload []byte) error {
	if !c.client.IsConnectionOpen() {
		return ErrNotConnected
	}
	tok := c.client.Publish(topic, 0, false, payload)
	select {
	case <-tok.Done():
		return tok.Error()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close disconnects from the broker.
func (c *Client) Close() {
	c.client.Disconnect(quiesceMillis)
}
