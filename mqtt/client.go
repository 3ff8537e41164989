// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package mqtt

import (
	"context"
	"log/slog"
	"sync"

	"github.com/Azure-Samples/MqttApplicationSamples/internal/log"
	"github.com/Azure-Samples/MqttApplicationSamples/mqtt/internal"
	"github.com/eclipse/paho.golang/paho"
	"github.com/eclipse/paho.golang/paho/session/state"
)

// Client is an MQTT v5 Transport backed by the Paho client. Every paho call
// runs on its own goroutine; its outcome is posted to a single callback
// goroutine that feeds the Session.
type Client struct {
	conn     ConnectionProvider
	opts     Options
	session  *Session
	dispatch *internal.Dispatcher
	bg       *internal.Background
	ids      internal.RequestIDs
	log      logger

	mu    sync.Mutex
	state ClientState
	paho  *paho.Client
}

// NewClient creates a client that will open its network connection with conn.
// It always connects with a clean start.
func NewClient(conn ConnectionProvider, opt ...Option) *Client {
	var opts Options
	opts.Apply(opt)

	if opts.ClientID == "" {
		opts.ClientID = internal.RandomClientID("go")
	}
	if opts.KeepAlive == 0 {
		opts.KeepAlive = DefaultKeepAlive
	}

	return &Client{
		conn:     conn,
		opts:     opts,
		session:  NewSession(&opts),
		dispatch: internal.NewDispatcher(),
		bg:       internal.NewBackground(&ClientStateError{State: ShutDown}),
		log:      logger{log.Wrap(opts.Logger)},
	}
}

// Session returns the session this client feeds.
func (c *Client) Session() *Session {
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

	if c.state != NotStarted {
		return &ClientStateError{State: c.state}
	}
	c.state = Started

	go c.connect(ctx)
	return nil
}

func (c *Client) connect(ctx context.Context) {
	ctx, cancel := c.bg.With(ctx)
	defer cancel()

	if c.opts.ConnectTimeout > 0 {
		var cancelTimeout context.CancelFunc
		ctx, cancelTimeout = context.WithTimeout(ctx, c.opts.ConnectTimeout)
		defer cancelTimeout()
	}

	conn, err := c.conn(ctx)
	if err != nil {
		c.post(func() { c.session.OnConnectError(err) })
		return
	}

	pc := paho.NewClient(paho.ClientConfig{
		Conn:               conn,
		ClientID:           c.opts.ClientID,
		Session:            state.NewInMemory(),
		OnClientError:      c.onClientError,
		OnServerDisconnect: c.onServerDisconnect,
	})
	pc.AddOnPublishReceived(c.onPublishReceived)

	c.mu.Lock()
	if c.state == ShutDown {
		c.mu.Unlock()
		_ = conn.Close()
		return
	}
	c.paho = pc
	c.mu.Unlock()

	cp := &paho.Connect{
		ClientID:   c.opts.ClientID,
		CleanStart: true,
		KeepAlive:  c.opts.KeepAlive,
	}
	if c.opts.Username != "" {
		cp.UsernameFlag = true
		cp.Username = c.opts.Username
	}
	if c.opts.Password != nil {
		cp.PasswordFlag = true
		cp.Password = c.opts.Password
	}
	c.log.Packet(ctx, "connect", cp)

	connack, err := pc.Connect(ctx, cp)
	switch {
	case connack != nil:
		c.log.Packet(ctx, "connack", connack)
		var reason string
		if connack.Properties != nil {
			reason = connack.Properties.ReasonString
		}
		c.post(func() { c.session.OnConnect(connack.ReasonCode, reason) })
	case err != nil:
		c.post(func() {
			c.session.OnConnectError(&ConnectionError{
				message: "error sending CONNECT",
				wrapped: err,
			})
		})
	}
}

// Disconnect sends DISCONNECT and shuts the client down. The client cannot be
// reconnected.
func (c *Client) Disconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case NotStarted, ShutDown:
		return &ClientStateError{State: c.state}
	}
	c.state = ShutDown

	var err error
	if c.paho != nil {
		d := &paho.Disconnect{ReasonCode: 0}
		c.log.Packet(context.Background(), "disconnect", d)
		if e := c.paho.Disconnect(d); e != nil {
			err = &ConnectionError{message: "error sending DISCONNECT", wrapped: e}
		}
	}

	c.bg.Close()
	c.dispatch.Post(func() { c.session.OnDisconnect(nil) })
	c.dispatch.Close()
	return err
}

// Subscribe sends SUBSCRIBE for one topic filter.
func (c *Client) Subscribe(
	ctx context.Context,
	topicFilter string,
	qos QoS,
) (uint16, error) {
	if err := validateQoS(qos); err != nil {
		return 0, err
	}
	pc, err := c.client()
	if err != nil {
		return 0, err
	}

	id := c.ids.Next()
	sub := &paho.Subscribe{
		Subscriptions: []paho.SubscribeOptions{{
			Topic: topicFilter,
			QoS:   byte(qos),
		}},
	}

	go func() {
		ctx, cancel := c.bg.With(ctx)
		defer cancel()

		c.log.Packet(ctx, "subscribe", sub)
		suback, err := pc.Subscribe(ctx, sub)
		if suback == nil {
			c.log.Err(ctx, err, slog.String("topic_filter", topicFilter))
			return
		}
		c.post(func() { c.session.OnSubscribeAck(id, suback.Reasons) })
	}()
	return id, nil
}

// Unsubscribe sends UNSUBSCRIBE for one topic filter.
func (c *Client) Unsubscribe(
	ctx context.Context,
	topicFilter string,
) (uint16, error) {
	pc, err := c.client()
	if err != nil {
		return 0, err
	}

	id := c.ids.Next()
	unsub := &paho.Unsubscribe{Topics: []string{topicFilter}}

	go func() {
		ctx, cancel := c.bg.With(ctx)
		defer cancel()

		c.log.Packet(ctx, "unsubscribe", unsub)
		unsuback, err := pc.Unsubscribe(ctx, unsub)
		if unsuback == nil {
			c.log.Err(ctx, err, slog.String("topic_filter", topicFilter))
			return
		}
		for _, code := range unsuback.Reasons {
			if code >= 0x80 {
				c.log.Warn(ctx, "unsubscribe failed",
					slog.String("topic_filter", topicFilter),
					slog.String("reason", ReasonString(code)),
				)
			}
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
	opt ...PublishOption,
) (uint16, error) {
	var opts PublishOptions
	opts.Apply(opt)

	if err := validateQoS(opts.QoS); err != nil {
		return 0, err
	}
	pc, err := c.client()
	if err != nil {
		return 0, err
	}

	id := c.ids.Next()
	pub := buildPublish(topic, payload, &opts)

	go func() {
		ctx, cancel := c.bg.With(ctx)
		defer cancel()

		c.log.Packet(ctx, "publish", pub)
		res, err := pc.Publish(ctx, pub)
		var code byte
		switch {
		case res != nil:
			code = res.ReasonCode
			if code >= 0x80 {
				c.log.Warn(ctx, "publish not accepted",
					slog.String("topic", topic),
					slog.String("reason", ReasonString(code)),
				)
			}
		case err != nil:
			c.log.Err(ctx, err, slog.String("topic", topic))
			return
		}
		c.post(func() { c.session.OnPublishAck(id, code) })
	}()
	return id, nil
}

func (c *Client) onPublishReceived(pr paho.PublishReceived) (bool, error) {
	msg := buildMessage(pr.Packet)
	c.post(func() { c.session.OnMessage(msg) })
	return true, nil
}

func (c *Client) onServerDisconnect(d *paho.Disconnect) {
	err := &DisconnectError{ReasonCode: d.ReasonCode}
	c.post(func() { c.session.OnDisconnect(err) })
}

func (c *Client) onClientError(err error) {
	err = &ConnectionError{message: "connection lost", wrapped: err}
	c.post(func() { c.session.OnDisconnect(err) })
}

// post hands an event to the callback goroutine. Events arriving after
// shutdown are dropped.
func (c *Client) post(event func()) {
	if !c.dispatch.Post(event) {
		c.log.Debug(context.Background(), "event dropped after shutdown")
	}
}

func (c *Client) client() (*paho.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch {
	case c.state != Started:
		return nil, &ClientStateError{State: c.state}
	case c.paho == nil:
		return nil, &ConnectionError{message: "connection not yet established"}
	default:
		return c.paho, nil
	}
}

func validateQoS(qos QoS) error {
	if qos > 1 {
		return &InvalidArgumentError{message: "unsupported QoS level"}
	}
	return nil
}

func buildPublish(
	topic string,
	payload []byte,
	opts *PublishOptions,
) *paho.Publish {
	pub := &paho.Publish{
		QoS:     byte(opts.QoS),
		Retain:  opts.Retain,
		Topic:   topic,
		Payload: payload,
		Properties: &paho.PublishProperties{
			ContentType:     opts.ContentType,
			CorrelationData: opts.CorrelationData,
			ResponseTopic:   opts.ResponseTopic,
			User:            internal.MapToUserProperties(opts.UserProperties),
		},
	}
	if opts.PayloadFormat != PayloadFormatBytes {
		format := byte(opts.PayloadFormat)
		pub.Properties.PayloadFormat = &format
	}
	if opts.MessageExpiry > 0 {
		expiry := opts.MessageExpiry
		pub.Properties.MessageExpiry = &expiry
	}
	return pub
}

func buildMessage(p *paho.Publish) *Message {
	msg := &Message{
		Topic:   p.Topic,
		Payload: p.Payload,
		PublishOptions: PublishOptions{
			QoS:    QoS(p.QoS),
			Retain: p.Retain,
		},
	}
	if props := p.Properties; props != nil {
		msg.ContentType = props.ContentType
		msg.CorrelationData = props.CorrelationData
		msg.ResponseTopic = props.ResponseTopic
		msg.UserProperties = internal.UserPropertiesToMap(props.User)
		if props.MessageExpiry != nil {
			msg.MessageExpiry = *props.MessageExpiry
		}
		if props.PayloadFormat != nil {
			msg.PayloadFormat = PayloadFormat(*props.PayloadFormat)
		}
	}
	return msg
}
