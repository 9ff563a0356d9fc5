package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Member is a presence entry for one user in one document room.
type Member struct {
	UserID      uint64    `json:"userId"`
	UserName    string    `json:"userName"`
	UserEmail   string    `json:"userEmail"`
	ConnectedAt time.Time `json:"connectedAt"`
}

// PresenceCache keeps room membership in Redis so it survives host-level
// eviction of in-memory room state. Entries expire unless refreshed by
// heartbeats; the room's own map is only a best-effort cache over this.
type PresenceCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewPresenceCache(client *redis.Client, ttl time.Duration) *PresenceCache {
	return &PresenceCache{client: client, ttl: ttl}
}

func deadlineKey(docID string) string { return fmt.Sprintf("presence:doc:%s", docID) }
func metaKey(docID string) string     { return fmt.Sprintf("presence:doc:%s:meta", docID) }

// AddMember upserts a member and refreshes its expiry deadline.
func (p *PresenceCache) AddMember(ctx context.Context, docID string, m Member) error {
	if p.client == nil {
		return nil
	}

	payload, err := json.Marshal(m)
	if err != nil {
		return err
	}

	field := strconv.FormatUint(m.UserID, 10)
	deadline := float64(time.Now().Add(p.ttl).Unix())

	pipe := p.client.TxPipeline()
	pipe.ZAdd(ctx, deadlineKey(docID), redis.Z{Score: deadline, Member: field})
	pipe.HSet(ctx, metaKey(docID), field, payload)
	pipe.Expire(ctx, deadlineKey(docID), p.ttl*2)
	pipe.Expire(ctx, metaKey(docID), p.ttl*2)
	_, err = pipe.Exec(ctx)
	return err
}

func (p *PresenceCache) RemoveMember(ctx context.Context, docID string, userID uint64) error {
	if p.client == nil {
		return nil
	}

	field := strconv.FormatUint(userID, 10)
	pipe := p.client.TxPipeline()
	pipe.ZRem(ctx, deadlineKey(docID), field)
	pipe.HDel(ctx, metaKey(docID), field)
	_, err := pipe.Exec(ctx)
	return err
}

// AliveMembers returns the members whose deadline has not passed, pruning
// expired entries as a side effect.
func (p *PresenceCache) AliveMembers(ctx context.Context, docID string) ([]Member, error) {
	if p.client == nil {
		return nil, nil
	}

	now := float64(time.Now().Unix())
	p.client.ZRemRangeByScore(ctx, deadlineKey(docID), "-inf", fmt.Sprintf("(%f", now))

	fields, err := p.client.ZRangeByScore(ctx, deadlineKey(docID), &redis.ZRangeBy{
		Min: fmt.Sprintf("%f", now),
		Max: "+inf",
	}).Result()
	if err != nil || len(fields) == 0 {
		return nil, err
	}

	raw, err := p.client.HMGet(ctx, metaKey(docID), fields...).Result()
	if err != nil {
		return nil, err
	}

	members := make([]Member, 0, len(raw))
	for _, v := range raw {
		s, ok := v.(string)
		if !ok {
			continue
		}
		var m Member
		if err := json.Unmarshal([]byte(s), &m); err != nil {
			continue
		}
		members = append(members, m)
	}
	return members, nil
}
