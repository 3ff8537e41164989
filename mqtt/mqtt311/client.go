// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

// Package mqtt311 provides an MQTT 3.1.1 transport backed by the Paho MQTT
// client. It feeds the same session as the MQTT v5 client, so scenario code
// can switch protocol versions without changes.
package mqtt311

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"sync"
	"time"

	"github.com/Azure-Samples/MqttApplicationSamples/internal/log"
	"github.com/Azure-Samples/MqttApplicationSamples/mqtt"
	"github.com/Azure-Samples/MqttApplicationSamples/mqtt/internal"
	pahomqtt "github.com/eclipse/paho.mqtt.golang"
)

// The broker URL is informational; connections come from the provider.
const providerBroker = "tcp://connection-provider"

// Quiesce period granted to in-flight work on disconnect, in milliseconds.
const disconnectQuiesce = 250

// Client is an MQTT 3.1.1 mqtt.Transport. Token completions are posted to a
// single callback goroutine that feeds the Session.
type Client struct {
	opts     mqtt.Options
	session  *mqtt.Session
	dispatch *internal.Dispatcher
	bg       *internal.Background
	ids      internal.RequestIDs
	log      log.Logger

	mu    sync.Mutex
	state mqtt.ClientState
	paho  pahomqtt.Client
}

// UnsupportedOptionError is returned when a publish asks for something MQTT
// 3.1.1 cannot carry.
type UnsupportedOptionError struct {
	Option string
}

func (e *UnsupportedOptionError) Error() string {
	return fmt.Sprintf("%s is not supported by MQTT 3.1.1", e.Option)
}

// NewClient creates a client that will open its network connection with conn.
// It always connects with a clean session and never reconnects on its own.
func NewClient(conn mqtt.ConnectionProvider, opt ...mqtt.Option) *Client {
	var opts mqtt.Options
	opts.Apply(opt)

	if opts.ClientID == "" {
		opts.ClientID = internal.RandomClientID("go311")
	}
	if opts.KeepAlive == 0 {
		opts.KeepAlive = mqtt.DefaultKeepAlive
	}

	c := &Client{
		opts:     opts,
		session:  mqtt.NewSession(&opts),
		dispatch: internal.NewDispatcher(),
		bg:       internal.NewBackground(&mqtt.ClientStateError{State: mqtt.ShutDown}),
		log:      log.Wrap(opts.Logger),
	}

	po := pahomqtt.NewClientOptions()
	po.AddBroker(providerBroker)
	po.SetClientID(opts.ClientID)
	po.SetCleanSession(true)
	po.SetAutoReconnect(false)
	po.SetConnectRetry(false)
	po.SetOrderMatters(true)
	po.SetKeepAlive(time.Duration(opts.KeepAlive) * time.Second)
	if opts.ConnectTimeout > 0 {
		po.SetConnectTimeout(opts.ConnectTimeout)
	}
	if opts.Username != "" {
		po.SetUsername(opts.Username)
	}
	if opts.Password != nil {
		po.SetPassword(string(opts.Password))
	}
	po.SetCustomOpenConnectionFn(
		func(*url.URL, pahomqtt.ClientOptions) (net.Conn, error) {
			ctx, cancel := c.bg.With(context.Background())
			defer cancel()
			if opts.ConnectTimeout > 0 {
				var cancelTimeout context.CancelFunc
				ctx, cancelTimeout = context.WithTimeout(ctx, opts.ConnectTimeout)
				defer cancelTimeout()
			}
			return conn(ctx)
		},
	)
	po.SetDefaultPublishHandler(c.onMessage)
	po.SetConnectionLostHandler(c.onConnectionLost)

	c.paho = pahomqtt.NewClient(po)
	return c
}

// Session returns the session this client feeds.
func (c *Client) Session() *mqtt.Session {
	return c.session
}

// ClientID returns the MQTT client identifier.
func (c *Client) ClientID() string {
	return c.opts.ClientID
}

// Connect starts opening the connection and sending CONNECT. It returns
// immediately; wait on Session().Status for the outcome.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != mqtt.NotStarted {
		return &mqtt.ClientStateError{State: c.state}
	}
	c.state = mqtt.Started

	token := c.paho.Connect()
	go func() {
		ctx, cancel := c.bg.With(ctx)
		defer cancel()

		if err := wait(ctx, token); err != nil {
			c.post(func() { c.session.OnConnectError(err) })
			return
		}
		code := token.(*pahomqtt.ConnectToken).ReturnCode()
		switch err := token.Error(); {
		case code >= 1 && code <= 5:
			c.post(func() { c.session.OnConnect(connackReason(code), "") })
		case err != nil:
			c.post(func() { c.session.OnConnectError(err) })
		default:
			c.post(func() { c.session.OnConnect(0, "") })
		}
	}()
	return nil
}

// Disconnect sends DISCONNECT and shuts the client down. The client cannot be
// reconnected.
func (c *Client) Disconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case mqtt.NotStarted, mqtt.ShutDown:
		return &mqtt.ClientStateError{State: c.state}
	}
	c.state = mqtt.ShutDown

	c.paho.Disconnect(disconnectQuiesce)
	c.bg.Close()
	c.dispatch.Post(func() { c.session.OnDisconnect(nil) })
	c.dispatch.Close()
	return nil
}

// Subscribe sends SUBSCRIBE for one topic filter.
func (c *Client) Subscribe(
	ctx context.Context,
	topicFilter string,
	qos mqtt.QoS,
) (uint16, error) {
	if qos > 1 {
		return 0, &UnsupportedOptionError{Option: "QoS 2"}
	}
	if err := c.started(); err != nil {
		return 0, err
	}

	id := c.ids.Next()
	token := c.paho.Subscribe(topicFilter, byte(qos), nil)

	go func() {
		ctx, cancel := c.bg.With(ctx)
		defer cancel()

		if err := wait(ctx, token); err != nil {
			c.log.Err(ctx, err, slog.String("topic_filter", topicFilter))
			return
		}
		code, ok := token.(*pahomqtt.SubscribeToken).Result()[topicFilter]
		if !ok {
			c.log.Err(ctx, token.Error(), slog.String("topic_filter", topicFilter))
			return
		}
		c.post(func() { c.session.OnSubscribeAck(id, []byte{code}) })
	}()
	return id, nil
}

// Unsubscribe sends UNSUBSCRIBE for one topic filter.
func (c *Client) Unsubscribe(
	ctx context.Context,
	topicFilter string,
) (uint16, error) {
	if err := c.started(); err != nil {
		return 0, err
	}

	id := c.ids.Next()
	token := c.paho.Unsubscribe(topicFilter)

	go func() {
		ctx, cancel := c.bg.With(ctx)
		defer cancel()

		err := wait(ctx, token)
		if err == nil {
			err = token.Error()
		}
		if err != nil {
			c.log.Err(ctx, err, slog.String("topic_filter", topicFilter))
			return
		}
		c.post(func() { c.session.OnUnsubscribeAck(id) })
	}()
	return id, nil
}

// Publish sends PUBLISH. Completion means PUBACK for QoS 1, or the packet
// having been written for QoS 0.
func (c *Client) Publish(
	ctx context.Context,
	topic string,
	payload []byte,
	opt ...mqtt.PublishOption,
) (uint16, error) {
	var opts mqtt.PublishOptions
	opts.Apply(opt)

	if err := validate(&opts); err != nil {
		return 0, err
	}
	if err := c.started(); err != nil {
		return 0, err
	}

	id := c.ids.Next()
	token := c.paho.Publish(topic, byte(opts.QoS), opts.Retain, payload)

	go func() {
		ctx, cancel := c.bg.With(ctx)
		defer cancel()

		err := wait(ctx, token)
		if err == nil {
			err = token.Error()
		}
		if err != nil {
			c.log.Err(ctx, err, slog.String("topic", topic))
			return
		}
		c.post(func() { c.session.OnPublishAck(id, 0) })
	}()
	return id, nil
}

func (c *Client) onMessage(_ pahomqtt.Client, m pahomqtt.Message) {
	msg := &mqtt.Message{
		Topic:   m.Topic(),
		Payload: m.Payload(),
		PublishOptions: mqtt.PublishOptions{
			QoS:    mqtt.QoS(m.Qos()),
			Retain: m.Retained(),
		},
	}
	c.post(func() { c.session.OnMessage(msg) })
}

func (c *Client) onConnectionLost(_ pahomqtt.Client, err error) {
	c.post(func() { c.session.OnDisconnect(err) })
}

// post hands an event to the callback goroutine. Events arriving after
// shutdown are dropped.
func (c *Client) post(event func()) {
	if !c.dispatch.Post(event) {
		c.log.Debug(context.Background(), "event dropped after shutdown")
	}
}

func (c *Client) started() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != mqtt.Started {
		return &mqtt.ClientStateError{State: c.state}
	}
	return nil
}

// wait blocks until the token completes or ctx is done.
func wait(ctx context.Context, token pahomqtt.Token) error {
	select {
	case <-token.Done():
		return nil
	case <-ctx.Done():
		return context.Cause(ctx)
	}
}

// validate rejects options whose loss would change the meaning of a publish.
// The content type and payload format indicator only describe the payload,
// so they are dropped.
func validate(opts *mqtt.PublishOptions) error {
	switch {
	case opts.QoS > 1:
		return &UnsupportedOptionError{Option: "QoS 2"}
	case opts.CorrelationData != nil:
		return &UnsupportedOptionError{Option: "correlation data"}
	case opts.MessageExpiry != 0:
		return &UnsupportedOptionError{Option: "message expiry"}
	case opts.ResponseTopic != "":
		return &UnsupportedOptionError{Option: "response topic"}
	case len(opts.UserProperties) != 0:
		return &UnsupportedOptionError{Option: "user properties"}
	default:
		return nil
	}
}

// connackReason maps an MQTT 3.1.1 CONNACK return code to the MQTT v5 reason
// code with the same meaning. Codes above 5 are Paho's internal network
// errors and never reach it.
func connackReason(code byte) byte {
	switch code {
	case 1:
		return 0x84 // unsupported protocol version
	case 2:
		return 0x85 // client identifier not valid
	case 3:
		return 0x88 // server unavailable
	case 4:
		return 0x86 // bad user name or password
	case 5:
		return 0x87 // not authorized
	default:
		return 0x80 // unspecified error
	}
}
