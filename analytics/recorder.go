package analytics

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// TopicEvents carries accepted events to the persisting subscriber.
const TopicEvents = "analytics.events"

// DedupWindow is how long an identical event from the same device is
// ignored.
const DedupWindow = 5 * time.Minute

// Drop reasons passed to RecorderHooks.Dropped.
const (
	DropDuplicate = "duplicate"
	DropInvalid   = "invalid"
)

// RecorderHooks observe the recorder. Nil hooks are skipped.
type RecorderHooks struct {
	Accepted  func(eventType string)
	Dropped   func(reason string)
	Persisted func(e Event, err error)
}

// Recorder accepts events, drops repeats and hands the rest to an
// in-process bus whose subscriber writes them to the store.
type Recorder struct {
	bus    *gochannel.GoChannel
	writer Writer
	logger *zap.Logger
	hooks  RecorderHooks
	now    func() time.Time

	mu   sync.Mutex
	seen map[string]time.Time

	done chan struct{}
}

// NewRecorder starts the persisting subscriber. Call Close to stop it.
func NewRecorder(writer Writer, logger *zap.Logger, hooks RecorderHooks) (*Recorder, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	bus := gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer:            256,
		BlockPublishUntilSubscriberAck: false,
	}, zapLogger{logger.Named("bus")})

	messages, err := bus.Subscribe(context.Background(), TopicEvents)
	if err != nil {
		bus.Close()
		return nil, errors.Wrap(err, "analytics: subscribe")
	}
	r := &Recorder{
		bus:    bus,
		writer: writer,
		logger: logger,
		hooks:  hooks,
		now:    time.Now,
		seen:   make(map[string]time.Time),
		done:   make(chan struct{}),
	}
	go r.persist(messages)
	return r, nil
}

// Record validates e and publishes it. It reports false without error
// when e repeats an event seen within DedupWindow.
func (r *Recorder) Record(ctx context.Context, e Event) (bool, error) {
	if err := e.Validate(); err != nil {
		r.drop(DropInvalid)
		return false, err
	}
	now := r.now().UTC()
	if !r.firstSeen(e.dedupKey(), now) {
		r.drop(DropDuplicate)
		return false, nil
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	e.CreatedAt = now

	payload, err := json.Marshal(e)
	if err != nil {
		return false, errors.Wrap(err, "analytics: encode event")
	}
	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.SetContext(ctx)
	if err := r.bus.Publish(TopicEvents, msg); err != nil {
		return false, errors.Wrap(err, "analytics: publish")
	}
	if r.hooks.Accepted != nil {
		r.hooks.Accepted(e.Type)
	}
	return true, nil
}

func (r *Recorder) drop(reason string) {
	if r.hooks.Dropped != nil {
		r.hooks.Dropped(reason)
	}
}

// firstSeen records key and reports whether it was absent from the window.
func (r *Recorder) firstSeen(key string, now time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if at, ok := r.seen[key]; ok && now.Sub(at) < DedupWindow {
		return false
	}
	if len(r.seen) >= 4096 {
		for k, at := range r.seen {
			if now.Sub(at) >= DedupWindow {
				delete(r.seen, k)
			}
		}
	}
	r.seen[key] = now
	return true
}

func (r *Recorder) persist(messages <-chan *message.Message) {
	defer close(r.done)
	for msg := range messages {
		var e Event
		if err := json.Unmarshal(msg.Payload, &e); err != nil {
			r.logger.Error("decode event", zap.Error(err))
			msg.Ack()
			continue
		}
		// The request context is gone by now.
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := r.writer.Insert(ctx, e)
		cancel()
		if err != nil {
			r.logger.Error("persist event", zap.String("event_type", e.Type), zap.Error(err))
		}
		if r.hooks.Persisted != nil {
			r.hooks.Persisted(e, err)
		}
		msg.Ack()
	}
}

// Close stops accepting events and waits for the subscriber to finish.
func (r *Recorder) Close() error {
	err := r.bus.Close()
	<-r.done
	return err
}

// zapLogger adapts zap to watermill's logger interface.
type zapLogger struct {
	l *zap.Logger
}

func (z zapLogger) fields(f watermill.LogFields) []zap.Field {
	out := make([]zap.Field, 0, len(f))
	for k, v := range f {
		out = append(out, zap.Any(k, v))
	}
	return out
}

func (z zapLogger) Error(msg string, err error, f watermill.LogFields) {
	z.l.Error(msg, append(z.fields(f), zap.Error(err))...)
}

func (z zapLogger) Info(msg string, f watermill.LogFields)  { z.l.Info(msg, z.fields(f)...) }
func (z zapLogger) Debug(msg string, f watermill.LogFields) { z.l.Debug(msg, z.fields(f)...) }
func (z zapLogger) Trace(msg string, f watermill.LogFields) { z.l.Debug(msg, z.fields(f)...) }

func (z zapLogger) With(f watermill.LogFields) watermill.LoggerAdapter {
	return zapLogger{z.l.With(z.fields(f)...)}
}
