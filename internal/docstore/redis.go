package docstore

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/go-redis/redis/v8"

	"github.com/partygames/bingo/internal/game"
)

const (
	gameKeyPrefix   = "bingo:game:"
	inviteKeyPrefix = "bingo:invite:"
	playerKeyPrefix = "bingo:player:"

	gameChanPrefix   = "bingo:events:game:"
	playerChanPrefix = "bingo:events:player:"

	// Retries for the optimistic WATCH transaction in Update before giving up.
	updateRetries = 5
)

// RedisStore is the shared-state Store backend: documents as JSON strings,
// membership and invite-code lookups via SET indexes, change notification via
// pub/sub. Update uses WATCH-based optimistic transactions, so concurrent
// writers on the same game retry instead of losing updates.
//
// Pub/sub delivery is at-most-once and not ordered across servers; watchers
// that miss an event re-sync on the next one. That matches the casual-game
// consistency the core tolerates.
type RedisStore struct {
	client *redis.Client
	logger *log.Logger
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(ctx context.Context, logger *log.Logger, addr, password string, db int) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return &RedisStore{
		client: client,
		logger: logger.WithPrefix("docstore-redis"),
	}, nil
}

func (s *RedisStore) Get(ctx context.Context, id string) (*game.Game, error) {
	data, err := s.client.Get(ctx, gameKeyPrefix+id).Result()
	if err == redis.Nil {
		return nil, game.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get game: %w", err)
	}
	return decodeGame([]byte(data))
}

func (s *RedisStore) Put(ctx context.Context, g *game.Game) error {
	data, err := json.Marshal(g)
	if err != nil {
		return fmt.Errorf("encode game: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, gameKeyPrefix+g.ID, data, 0)
	if g.InviteCode != "" {
		pipe.Set(ctx, inviteKeyPrefix+g.InviteCode, g.ID, 0)
	}
	for _, p := range g.Players {
		pipe.SAdd(ctx, playerKeyPrefix+p, g.ID)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("put game: %w", err)
	}

	s.publish(ctx, Event{Type: EventPut, GameID: g.ID, Game: g}, nil)
	return nil
}

func (s *RedisStore) Update(ctx context.Context, id string, fn func(*game.Game) error) (*game.Game, error) {
	key := gameKeyPrefix + id
	var next, prev *game.Game

	txn := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Result()
		if err == redis.Nil {
			return game.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("get game: %w", err)
		}

		prev, err = decodeGame([]byte(data))
		if err != nil {
			return err
		}
		next = prev.Clone()
		if err := fn(next); err != nil {
			return err
		}

		encoded, err := json.Marshal(next)
		if err != nil {
			return fmt.Errorf("encode game: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, encoded, 0)
			// Index maintenance for players who joined or left.
			for _, p := range next.Players {
				if !prev.HasPlayer(p) {
					pipe.SAdd(ctx, playerKeyPrefix+p, id)
				}
			}
			for _, p := range prev.Players {
				if !next.HasPlayer(p) {
					pipe.SRem(ctx, playerKeyPrefix+p, id)
				}
			}
			return nil
		})
		return err
	}

	for i := 0; i < updateRetries; i++ {
		err := s.client.Watch(ctx, txn, key)
		if err == redis.TxFailedErr {
			continue // concurrent writer, retry against the fresh state
		}
		if err != nil {
			return nil, err
		}
		s.publish(ctx, Event{Type: EventPut, GameID: id, Game: next}, prev)
		return next, nil
	}
	return nil, fmt.Errorf("update game %s: too many conflicting writers", id)
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	prev, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	pipe := s.client.TxPipeline()
	pipe.Del(ctx, gameKeyPrefix+id)
	if prev.InviteCode != "" {
		pipe.Del(ctx, inviteKeyPrefix+prev.InviteCode)
	}
	for _, p := range prev.Players {
		pipe.SRem(ctx, playerKeyPrefix+p, id)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("delete game: %w", err)
	}

	s.publish(ctx, Event{Type: EventDelete, GameID: id}, prev)
	return nil
}

func (s *RedisStore) ByPlayer(ctx context.Context, userID string) ([]*game.Game, error) {
	ids, err := s.client.SMembers(ctx, playerKeyPrefix+userID).Result()
	if err != nil {
		return nil, fmt.Errorf("player index: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = gameKeyPrefix + id
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("fetch games: %w", err)
	}

	var out []*game.Game
	for _, v := range values {
		data, ok := v.(string)
		if !ok {
			continue // stale index entry
		}
		g, err := decodeGame([]byte(data))
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, nil
}

func (s *RedisStore) ByInviteCode(ctx context.Context, code string) (*game.Game, error) {
	id, err := s.client.Get(ctx, inviteKeyPrefix+code).Result()
	if err == redis.Nil {
		return nil, game.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("invite index: %w", err)
	}
	return s.Get(ctx, id)
}

func (s *RedisStore) Watch(ctx context.Context, id string) (*Subscription, error) {
	return s.subscribe(ctx, gameChanPrefix+id)
}

func (s *RedisStore) WatchPlayer(ctx context.Context, userID string) (*Subscription, error) {
	return s.subscribe(ctx, playerChanPrefix+userID)
}

func (s *RedisStore) subscribe(ctx context.Context, channel string) (*Subscription, error) {
	pubsub := s.client.Subscribe(ctx, channel)
	// Force the subscription to be established before returning.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("subscribe %s: %w", channel, err)
	}

	out := make(chan Event, subBuffer)
	go func() {
		defer close(out)
		for msg := range pubsub.Channel() {
			var ev Event
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				s.logger.Warn("Dropping undecodable event", "channel", channel, "error", err)
				continue
			}
			select {
			case out <- ev:
			default:
				s.logger.Warn("Subscriber buffer full, dropping event", "channel", channel)
			}
		}
	}()

	return &Subscription{C: out, cancel: func() { _ = pubsub.Close() }}, nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

// publish fans a change notification out to the game channel and the feed of
// every player in the new or previous document state. Best effort: a lost
// publish only delays watchers until the next change.
func (s *RedisStore) publish(ctx context.Context, ev Event, prev *game.Game) {
	payload, err := json.Marshal(ev)
	if err != nil {
		s.logger.Error("Failed to encode event", "error", err)
		return
	}

	channels := []string{gameChanPrefix + ev.GameID}
	seen := make(map[string]bool)
	appendPlayers := func(g *game.Game) {
		if g == nil {
			return
		}
		for _, p := range g.Players {
			if !seen[p] {
				seen[p] = true
				channels = append(channels, playerChanPrefix+p)
			}
		}
	}
	appendPlayers(ev.Game)
	appendPlayers(prev)

	for _, ch := range channels {
		if err := s.client.Publish(ctx, ch, payload).Err(); err != nil {
			s.logger.Warn("Failed to publish event", "channel", ch, "error", err)
		}
	}
}

func decodeGame(data []byte) (*game.Game, error) {
	var g game.Game
	if err := json.Unmarshal(data, &g); err != nil {
		return nil, fmt.Errorf("decode game: %w", err)
	}
	return &g, nil
}
