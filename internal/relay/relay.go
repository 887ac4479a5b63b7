// relay.go — Forwards engine bus events to a Redis pub/sub channel and
// reads them back, so a dashboard in another process can follow a session.
//
// Publishing never blocks the render path: bus handlers enqueue into a
// bounded channel drained by one background worker; when the queue is full
// the event is dropped and counted.
package relay

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"github.com/brennhill/renderlens/internal/bus"
	"github.com/brennhill/renderlens/internal/logging"
	"github.com/brennhill/renderlens/internal/types"
	"github.com/brennhill/renderlens/internal/util"
)

// DefaultQueueSize bounds events waiting to be published.
const DefaultQueueSize = 1024

// ErrClosed is returned when publishing through a closed Publisher.
var ErrClosed = errors.New("relay: publisher closed")

// Envelope is the wire form of one relayed bus event.
type Envelope struct {
	SessionID string          `json:"session_id"`
	Topic     types.Topic     `json:"topic"`
	At        time.Time       `json:"at"`
	Payload   json.RawMessage `json:"payload"`
}

// Decode unmarshals the payload into v.
func (e Envelope) Decode(v any) error {
	return json.Unmarshal(e.Payload, v)
}

// PublisherOptions configures a Publisher.
type PublisherOptions struct {
	Channel   string
	SessionID string
	QueueSize int
	Logger    *log.Logger
}

// Publisher relays bus events to Redis.
type Publisher struct {
	rc        redis.UniversalClient
	channel   string
	sessionID string
	logger    *log.Entry

	mu     sync.RWMutex
	closed bool
	queue  chan Envelope
	done   chan struct{}

	started   atomic.Bool
	published atomic.Int64
	dropped   atomic.Int64
}

// NewPublisher creates a publisher. Call Start to begin draining the queue.
func NewPublisher(rc redis.UniversalClient, opts PublisherOptions) *Publisher {
	if opts.QueueSize <= 0 {
		opts.QueueSize = DefaultQueueSize
	}
	return &Publisher{
		rc:        rc,
		channel:   opts.Channel,
		sessionID: opts.SessionID,
		logger:    logging.Component(opts.Logger, "relay").WithField("channel", opts.Channel),
		queue:     make(chan Envelope, opts.QueueSize),
		done:      make(chan struct{}),
	}
}

// Attach forwards every event published on b. The returned function detaches.
func (p *Publisher) Attach(b *bus.Bus) func() {
	return b.SubscribeAll(func(ev bus.Event) {
		if err := p.Enqueue(ev.Topic, ev.Payload); err != nil && !errors.Is(err, ErrClosed) {
			p.logger.WithError(err).WithField("topic", string(ev.Topic)).Debug("event not relayed")
		}
	})
}

// Enqueue marshals payload and queues it for publishing. A full queue drops
// the event and returns an error.
func (p *Publisher) Enqueue(topic types.Topic, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	env := Envelope{SessionID: p.sessionID, Topic: topic, At: time.Now().UTC(), Payload: data}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrClosed
	}
	select {
	case p.queue <- env:
		return nil
	default:
		p.dropped.Add(1)
		return errors.New("relay queue full")
	}
}

// Start launches the worker that publishes queued events until ctx is
// cancelled or Close drains the queue.
func (p *Publisher) Start(ctx context.Context) {
	if !p.started.CompareAndSwap(false, true) {
		return
	}
	util.SafeGo(p.logger, "relay-publisher", func() {
		defer close(p.done)
		for {
			select {
			case <-ctx.Done():
				return
			case env, ok := <-p.queue:
				if !ok {
					return
				}
				p.publish(ctx, env)
			}
		}
	})
}

func (p *Publisher) publish(ctx context.Context, env Envelope) {
	data, err := json.Marshal(env)
	if err != nil {
		p.logger.WithError(err).Error("marshal envelope")
		return
	}
	if err := p.rc.Publish(ctx, p.channel, data).Err(); err != nil {
		p.logger.WithError(err).WithField("topic", string(env.Topic)).Warn("publish failed")
		return
	}
	p.published.Add(1)
}

// Close stops accepting events and waits for queued ones to be published,
// or for ctx to expire.
func (p *Publisher) Close(ctx context.Context) error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.queue)
	}
	p.mu.Unlock()

	if !p.started.Load() {
		return nil
	}
	select {
	case <-p.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Published returns how many events reached Redis.
func (p *Publisher) Published() int64 { return p.published.Load() }

// Dropped returns how many events were discarded because the queue was full.
func (p *Publisher) Dropped() int64 { return p.dropped.Load() }

// ============================================
// Subscriber
// ============================================

// WatchOptions configures Watch.
type WatchOptions struct {
	Channel   string
	SessionID string        // when set, envelopes from other sessions are skipped
	Reconnect time.Duration // delay before resubscribing, default 1s
	OnReady   func()        // called each time the subscription is confirmed
	Logger    *log.Logger
}

// Watch subscribes to the relay channel and calls fn for every envelope until
// ctx is cancelled. Lost subscriptions are re-established.
func Watch(ctx context.Context, rc redis.UniversalClient, opts WatchOptions, fn func(Envelope)) error {
	if opts.Reconnect <= 0 {
		opts.Reconnect = time.Second
	}
	logger := logging.Component(opts.Logger, "relay").WithField("channel", opts.Channel)

	for {
		sub := rc.Subscribe(ctx, opts.Channel)
		if _, err := sub.Receive(ctx); err != nil {
			_ = sub.Close()
			if ctx.Err() != nil {
				return nil
			}
			logger.WithError(err).Warn("subscribe failed, retrying")
			if !sleep(ctx, opts.Reconnect) {
				return nil
			}
			continue
		}
		if opts.OnReady != nil {
			opts.OnReady()
		}

		if done := drain(ctx, sub.Channel(), opts.SessionID, logger, fn); done {
			_ = sub.Close()
			return nil
		}
		_ = sub.Close()
		logger.Error("pubsub channel closed, reconnecting")
		if !sleep(ctx, opts.Reconnect) {
			return nil
		}
	}
}

// drain reads messages until ctx ends (true) or the channel closes (false).
func drain(ctx context.Context, ch <-chan *redis.Message, session string, logger *log.Entry, fn func(Envelope)) bool {
	for {
		select {
		case <-ctx.Done():
			return true
		case msg, ok := <-ch:
			if !ok {
				return false
			}
			var env Envelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				logger.WithError(err).Warn("unable to parse relayed event")
				continue
			}
			if session != "" && env.SessionID != session {
				continue
			}
			util.SafeCall(logger, "relay-watch", func() { fn(env) })
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
