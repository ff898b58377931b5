package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"enrollment-docgen/internal/config"
	"enrollment-docgen/internal/domain"
	"enrollment-docgen/internal/domain/model"
	"enrollment-docgen/internal/domain/ports/queue"
	"enrollment-docgen/internal/infra/metrics"
)

// Queue is an at-least-once task queue on Redis lists.
//
// Enqueue LPUSHes onto the ready list. Receive moves entries atomically onto
// an in-flight list (BRPOPLPUSH) and records a visibility deadline in a ZSET.
// Ack removes the entry from both. A periodic reclaimer pushes entries whose
// deadline passed back onto the ready list with an incremented delivery
// count, or onto the dead-letter list once the delivery limit is exceeded.
type Queue struct {
	cli *redis.Client
	log zerolog.Logger

	readyKey    string
	inflightKey string
	deadlineKey string
	deadKey     string

	visibility    time.Duration
	maxDeliveries int
}

var _ queue.Queue = (*Queue)(nil)

func NewQueue(c *Client, cfg *config.QueueConfig, logger *zerolog.Logger) *Queue {
	base := "queue:" + cfg.Name
	return &Queue{
		cli:           c.cli,
		log:           logger.With().Str("component", "RedisQueue").Logger(),
		readyKey:      base + ":ready",
		inflightKey:   base + ":inflight",
		deadlineKey:   base + ":deadlines",
		deadKey:       base + ":dead",
		visibility:    cfg.VisibilityTimeout,
		maxDeliveries: cfg.MaxDeliveries,
	}
}

// entry is the wire form stored on the Redis lists. Deliveries counts
// finished delivery attempts; the attempt in progress is Deliveries+1.
type entry struct {
	ID         string          `json:"id"`
	Deliveries int             `json:"deliveries"`
	Body       json.RawMessage `json:"body"`
}

func (q *Queue) Enqueue(ctx context.Context, payload model.TaskPayload) error {
	body, err := payload.Encode()
	if err != nil {
		return err
	}
	raw, err := json.Marshal(entry{ID: newULID(), Body: body})
	if err != nil {
		return err
	}
	if err := q.cli.LPush(ctx, q.readyKey, raw).Err(); err != nil {
		return fmt.Errorf("%w: enqueue: %v", domain.ErrTransport, err)
	}
	return nil
}

func (q *Queue) ReceiveBatch(ctx context.Context, maxMessages int, wait time.Duration) ([]queue.Envelope, error) {
	if maxMessages <= 0 {
		return nil, nil
	}

	// Block for the first message only, then drain without blocking.
	raw, err := q.cli.BRPopLPush(ctx, q.readyKey, q.inflightKey, wait).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: receive: %v", domain.ErrTransport, err)
	}

	envs := make([]queue.Envelope, 0, maxMessages)
	env, err := q.admit(ctx, raw)
	if err != nil {
		return nil, err
	}
	envs = append(envs, env)

	for len(envs) < maxMessages {
		raw, err := q.cli.RPopLPush(ctx, q.readyKey, q.inflightKey).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				break
			}
			return envs, fmt.Errorf("%w: receive: %v", domain.ErrTransport, err)
		}
		env, err := q.admit(ctx, raw)
		if err != nil {
			return envs, err
		}
		envs = append(envs, env)
	}
	return envs, nil
}

// admit records the visibility deadline for a just-received entry and wraps
// it in an envelope.
func (q *Queue) admit(ctx context.Context, raw string) (queue.Envelope, error) {
	deadline := float64(time.Now().Add(q.visibility).UnixMilli())
	if err := q.cli.ZAdd(ctx, q.deadlineKey, &redis.Z{Score: deadline, Member: raw}).Err(); err != nil {
		return nil, fmt.Errorf("%w: deadline: %v", domain.ErrTransport, err)
	}
	var e entry
	if err := json.Unmarshal([]byte(raw), &e); err != nil {
		// Malformed list entry: the envelope still surfaces, carrying the
		// raw body so the consumer can fail and ack it.
		q.log.Warn().Str("raw", raw).Msg("malformed queue entry")
		return &envelope{q: q, raw: raw, body: []byte(raw), receipt: newULID(), deliveries: 1}, nil
	}
	return &envelope{q: q, raw: raw, body: e.Body, receipt: newULID(), deliveries: e.Deliveries + 1}, nil
}

// luaMove removes one occurrence of an in-flight entry and, only if it was
// still there, pushes its replacement onto the destination list. One script
// call, so a crash can never leave the entry removed but not re-pushed.
var luaMove = redis.NewScript(`
local removed = redis.call("LREM", KEYS[1], 1, ARGV[1])
if removed > 0 then
	redis.call("LPUSH", KEYS[2], ARGV[2])
end
redis.call("ZREM", KEYS[3], ARGV[1])
return removed`)

// Reclaim returns expired in-flight entries to the ready list. Entries past
// the delivery limit go to the dead-letter list instead. Returns how many
// entries were moved.
func (q *Queue) Reclaim(ctx context.Context) (int, error) {
	if err := q.adoptOrphans(ctx); err != nil {
		return 0, err
	}

	now := fmt.Sprintf("%d", time.Now().UnixMilli())
	expired, err := q.cli.ZRangeByScore(ctx, q.deadlineKey, &redis.ZRangeBy{Min: "-inf", Max: now}).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: reclaim scan: %v", domain.ErrTransport, err)
	}

	moved := 0
	for _, raw := range expired {
		var e entry
		if err := json.Unmarshal([]byte(raw), &e); err != nil {
			q.log.Warn().Str("raw", raw).Msg("dropping malformed in-flight entry")
			q.cli.LRem(ctx, q.inflightKey, 1, raw)
			q.cli.ZRem(ctx, q.deadlineKey, raw)
			continue
		}
		e.Deliveries++
		updated, err := json.Marshal(e)
		if err != nil {
			return moved, err
		}

		dest := q.readyKey
		dead := e.Deliveries >= q.maxDeliveries
		if dead {
			dest = q.deadKey
		}
		// The LREM inside the script is the guard: if the consumer acked
		// between the scan and now, nothing is moved.
		n, err := luaMove.Run(ctx, q.cli, []string{q.inflightKey, dest, q.deadlineKey}, raw, string(updated)).Int()
		if err != nil {
			return moved, fmt.Errorf("%w: reclaim: %v", domain.ErrTransport, err)
		}
		if n == 0 {
			continue
		}
		if dead {
			metrics.IncQueueDeadLettered()
			q.log.Warn().Str("entry_id", e.ID).Int("deliveries", e.Deliveries).Msg("entry dead-lettered")
		} else {
			metrics.IncQueueReclaimed()
		}
		moved++
	}
	return moved, nil
}

// adoptOrphans assigns a fresh visibility deadline to in-flight entries that
// have none, left behind by a consumer that crashed between the list move in
// ReceiveBatch and the deadline write. ZADD NX keeps live deadlines
// untouched, so an entry mid-admit just keeps the deadline its receiver is
// about to record.
func (q *Queue) adoptOrphans(ctx context.Context) error {
	raws, err := q.cli.LRange(ctx, q.inflightKey, 0, -1).Result()
	if err != nil {
		return fmt.Errorf("%w: orphan scan: %v", domain.ErrTransport, err)
	}
	if len(raws) == 0 {
		return nil
	}
	deadline := float64(time.Now().Add(q.visibility).UnixMilli())
	for _, raw := range raws {
		if err := q.cli.ZAddNX(ctx, q.deadlineKey, &redis.Z{Score: deadline, Member: raw}).Err(); err != nil {
			return fmt.Errorf("%w: orphan adopt: %v", domain.ErrTransport, err)
		}
	}
	return nil
}

// RunReclaimer ticks Reclaim until the context is done, also refreshing the
// queue depth gauge. Run in its own goroutine.
func (q *Queue) RunReclaimer(ctx context.Context, interval time.Duration) {
	q.log.Info().Dur("interval", interval).Msg("queue reclaimer started")
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			q.log.Info().Msg("queue reclaimer stopping")
			return
		case <-ticker.C:
			if n, err := q.Reclaim(ctx); err != nil {
				q.log.Error().Err(err).Msg("reclaim failed")
			} else if n > 0 {
				q.log.Info().Int("count", n).Msg("reclaimed in-flight entries")
			}
			if depth, err := q.cli.LLen(ctx, q.readyKey).Result(); err == nil {
				metrics.SetQueueDepth(int(depth))
			}
		}
	}
}

type envelope struct {
	q          *Queue
	raw        string
	body       []byte
	receipt    string
	deliveries int
}

var _ queue.Envelope = (*envelope)(nil)

func (e *envelope) Payload() []byte    { return e.body }
func (e *envelope) Receipt() string    { return e.receipt }
func (e *envelope) DeliveryCount() int { return e.deliveries }

func (e *envelope) Ack(ctx context.Context) error {
	if err := e.q.cli.LRem(ctx, e.q.inflightKey, 1, e.raw).Err(); err != nil {
		return fmt.Errorf("%w: ack: %v", domain.ErrTransport, err)
	}
	return e.q.cli.ZRem(ctx, e.q.deadlineKey, e.raw).Err()
}

func newULID() string {
	return ulid.Make().String()
}
