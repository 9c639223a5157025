package broker

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"sync"

	"github.com/redis/go-redis/v9"

	"railbook/pkg/envelope"
)

// BookingsChannel carries every booking lifecycle transition. Admin and
// reporting collaborators subscribe here instead of polling the store.
const BookingsChannel = "railbook.bookings"

type HandlerFunc func(envelope.Envelope)

// catch-all handler key; real actions never contain "*"
const anyAction = "*"

// Broker is a thin envelope bus over redis pub/sub.
type Broker struct {
	rdb      *redis.Client
	ctx      context.Context
	cancel   context.CancelFunc
	handlers sync.Map // action -> HandlerFunc
}

func New() *Broker {
	redisURL := os.Getenv("REDIS_URL")
	if redisURL == "" {
		redisURL = "redis://localhost:6379"
	}

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		log.Fatal("[BROKER] invalid redis url:", err)
	}

	rdb := redis.NewClient(opt)
	ctx, cancel := context.WithCancel(context.Background())

	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatal("[BROKER] redis ping failed:", err)
	}

	return &Broker{rdb: rdb, ctx: ctx, cancel: cancel}
}

func (b *Broker) Publish(channel string, env envelope.Envelope) error {
	data, err := env.Marshal()
	if err != nil {
		return err
	}
	return b.rdb.Publish(b.ctx, channel, data).Err()
}

// On registers a handler for one action. Envelopes with no matching
// handler (and no catch-all) are dropped.
func (b *Broker) On(action string, fn HandlerFunc) {
	b.handlers.Store(action, fn)
}

// OnAny registers a catch-all handler; the admin feed uses it to relay
// every booking transition regardless of action.
func (b *Broker) OnAny(fn HandlerFunc) {
	b.handlers.Store(anyAction, fn)
}

// Subscribe starts consuming the given channels in the background,
// dispatching each envelope to the catch-all and per-action handlers.
func (b *Broker) Subscribe(channels ...string) {
	sub := b.rdb.Subscribe(b.ctx, channels...)
	ch := sub.Channel()

	go func() {
		defer sub.Close()
		for {
			select {
			case <-b.ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var env envelope.Envelope
				if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
					continue
				}
				if fn, ok := b.handlers.Load(anyAction); ok {
					go fn.(HandlerFunc)(env)
				}
				if fn, ok := b.handlers.Load(env.Action); ok {
					go fn.(HandlerFunc)(env)
				}
			}
		}
	}()
}

func (b *Broker) Close() {
	b.cancel()
	b.rdb.Close()
}
