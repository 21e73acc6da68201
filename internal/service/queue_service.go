package service

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"podcast-pipeline-service/internal/entity"
)

// ErrNoMessage is returned by ClaimBlocking when nothing arrived in time.
var ErrNoMessage = errors.New("no message")

// Delivery is one claimed stage message. Raw is the exact list payload and is
// what Ack removes from the processing list; Attempt counts how many times
// this payload has been claimed (redeliveries included).
type Delivery struct {
	Raw     string
	Message entity.StageMessage
	Attempt int64
}

type Queue interface {
	Enqueue(ctx context.Context, msg entity.StageMessage) error
	ClaimBlocking(ctx context.Context, timeout time.Duration) (Delivery, error)
	Ack(ctx context.Context, d Delivery) error
	RequeueStale(ctx context.Context, olderThan time.Duration, max int64) (int64, error)
}

// redisStageQueue is a reliable queue over Redis lists.
// Claim: BRPOPLPUSH queue -> processing, claim time recorded in a ZSET
// Ack:   LREM from processing + drop the delivery bookkeeping
// RequeueStale: entries claimed longer than olderThan ago move back to the
// queue (reaper, at-least-once delivery)
type redisStageQueue struct {
	rdb           *redis.Client
	queueKey      string
	processingKey string
	deliveriesKey string
	claimsKey     string
}

func NewRedisStageQueue(rdb *redis.Client, queueKey, processingKey, deliveriesKey string) Queue {
	return &redisStageQueue{
		rdb:           rdb,
		queueKey:      queueKey,
		processingKey: processingKey,
		deliveriesKey: deliveriesKey,
		claimsKey:     processingKey + ":claims",
	}
}

func (q *redisStageQueue) Enqueue(ctx context.Context, msg entity.StageMessage) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return q.rdb.LPush(ctx, q.queueKey, payload).Err()
}

func (q *redisStageQueue) ClaimBlocking(ctx context.Context, timeout time.Duration) (Delivery, error) {
	raw, err := q.rdb.BRPopLPush(ctx, q.queueKey, q.processingKey, timeout).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Delivery{}, ErrNoMessage
		}
		return Delivery{}, err
	}

	// the claim time drives the staleness reaper; a re-claim refreshes it
	if err := q.rdb.ZAdd(ctx, q.claimsKey, redis.Z{
		Score:  float64(time.Now().UnixMilli()),
		Member: raw,
	}).Err(); err != nil {
		q.release(ctx, raw)
		return Delivery{}, err
	}

	attempt, err := q.rdb.HIncrBy(ctx, q.deliveriesKey, raw, 1).Result()
	if err != nil {
		// can't track redeliveries => put it back rather than risk a loop
		q.release(ctx, raw)
		return Delivery{}, err
	}

	var msg entity.StageMessage
	if err := json.Unmarshal([]byte(raw), &msg); err != nil {
		// poison payload: drop it for good
		_ = q.rdb.LRem(ctx, q.processingKey, 1, raw).Err()
		_ = q.rdb.HDel(ctx, q.deliveriesKey, raw).Err()
		_ = q.rdb.ZRem(ctx, q.claimsKey, raw).Err()
		return Delivery{}, err
	}

	return Delivery{Raw: raw, Message: msg, Attempt: attempt}, nil
}

// release puts a half-claimed payload straight back on the queue.
func (q *redisStageQueue) release(ctx context.Context, raw string) {
	_ = q.rdb.LRem(ctx, q.processingKey, 1, raw).Err()
	_ = q.rdb.ZRem(ctx, q.claimsKey, raw).Err()
	_ = q.rdb.LPush(ctx, q.queueKey, raw).Err()
}

// Ack removes the delivery from the processing list. Bookkeeping is cleared
// only when this delivery was still the live one: if the reaper already moved
// the payload back to the queue, the counter must survive so the redelivery
// bound keeps applying to the re-queued message.
func (q *redisStageQueue) Ack(ctx context.Context, d Delivery) error {
	removed, err := q.rdb.LRem(ctx, q.processingKey, 1, d.Raw).Result()
	if err != nil {
		return err
	}
	if removed > 0 {
		_ = q.rdb.HDel(ctx, q.deliveriesKey, d.Raw).Err()
		_ = q.rdb.ZRem(ctx, q.claimsKey, d.Raw).Err()
	}
	return nil
}

// RequeueStale moves processing entries whose claim is older than olderThan
// back to the queue. In-flight deliveries stay put: the caller passes a
// threshold above the stage handler deadline, so only work lost with a dead
// worker becomes claimable again. The delivery counter survives the move and
// the redelivery bound still applies.
func (q *redisStageQueue) RequeueStale(ctx context.Context, olderThan time.Duration, max int64) (int64, error) {
	cutoff := time.Now().Add(-olderThan).UnixMilli()
	raws, err := q.rdb.ZRangeByScore(ctx, q.claimsKey, &redis.ZRangeBy{
		Min:   "-inf",
		Max:   strconv.FormatInt(cutoff, 10),
		Count: max,
	}).Result()
	if err != nil {
		return 0, err
	}

	var moved int64
	for _, raw := range raws {
		removed, err := q.rdb.LRem(ctx, q.processingKey, 1, raw).Result()
		if err != nil {
			return moved, err
		}
		if removed > 0 {
			if err := q.rdb.LPush(ctx, q.queueKey, raw).Err(); err != nil {
				return moved, err
			}
			moved++
		}
		// an already-acked entry just loses its stale claim record
		_ = q.rdb.ZRem(ctx, q.claimsKey, raw).Err()
	}
	return moved, nil
}
