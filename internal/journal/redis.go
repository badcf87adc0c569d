package journal

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/goodtune/tabletime/internal/config"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	dayKeyPrefix = "tabletime:journal:"
	daysSetKey   = "tabletime:journal:days"
)

// RedisJournal stores one Redis list per business day
type RedisJournal struct {
	client    *redis.Client
	retention time.Duration
	appendSc  *redis.Script
}

// Open creates a new Redis-backed journal
func Open(cfg config.RedisConfig, retentionDays int) (*RedisJournal, error) {
	// Parse timeouts
	dialTimeout, err := time.ParseDuration(cfg.DialTimeout)
	if err != nil {
		return nil, fmt.Errorf("invalid dial_timeout: %w", err)
	}

	readTimeout, err := time.ParseDuration(cfg.ReadTimeout)
	if err != nil {
		return nil, fmt.Errorf("invalid read_timeout: %w", err)
	}

	writeTimeout, err := time.ParseDuration(cfg.WriteTimeout)
	if err != nil {
		return nil, fmt.Errorf("invalid write_timeout: %w", err)
	}

	// Determine address
	addr := cfg.Host
	if cfg.Port > 0 {
		addr = fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	}

	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  dialTimeout,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
	})

	// Ping to verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisJournal(client, retentionDays), nil
}

// NewRedisJournal wraps an existing client
func NewRedisJournal(client *redis.Client, retentionDays int) *RedisJournal {
	return &RedisJournal{
		client:    client,
		retention: time.Duration(retentionDays) * 24 * time.Hour,
		appendSc:  redis.NewScript(appendEventScript),
	}
}

// Append adds an event to its day's list. Missing IDs and timestamps are
// filled in.
func (j *RedisJournal) Append(ctx context.Context, event Event) error {
	if event.Day == "" {
		return fmt.Errorf("journal event has no day")
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.At.IsZero() {
		event.At = time.Now()
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	keys := []string{dayKey(event.Day), daysSetKey}
	args := []interface{}{
		event.Day,
		string(payload),
		int64(j.retention.Seconds()),
	}

	return j.appendSc.Run(ctx, j.client, keys, args...).Err()
}

// List returns a day's events in append order
func (j *RedisJournal) List(ctx context.Context, day string) ([]Event, error) {
	raw, err := j.client.LRange(ctx, dayKey(day), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, ErrNotFound
	}

	events := make([]Event, 0, len(raw))
	for _, item := range raw {
		var event Event
		if err := json.Unmarshal([]byte(item), &event); err != nil {
			return nil, fmt.Errorf("unmarshal event: %w", err)
		}
		events = append(events, event)
	}
	return events, nil
}

// Days returns the days that still have entries, oldest first
func (j *RedisJournal) Days(ctx context.Context) ([]string, error) {
	members, err := j.client.SMembers(ctx, daysSetKey).Result()
	if err != nil {
		return nil, err
	}

	// Drop days whose list has expired
	pipe := j.client.Pipeline()
	cmds := make([]*redis.IntCmd, len(members))
	for i, day := range members {
		cmds[i] = pipe.Exists(ctx, dayKey(day))
	}
	if len(members) > 0 {
		if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
			return nil, err
		}
	}

	days := make([]string, 0, len(members))
	var expired []interface{}
	for i, day := range members {
		if cmds[i].Val() > 0 {
			days = append(days, day)
		} else {
			expired = append(expired, day)
		}
	}
	if len(expired) > 0 {
		if err := j.client.SRem(ctx, daysSetKey, expired...).Err(); err != nil {
			return nil, fmt.Errorf("prune expired days: %w", err)
		}
	}

	sort.Strings(days)
	return days, nil
}

// Close closes the Redis connection
func (j *RedisJournal) Close() error {
	return j.client.Close()
}

func dayKey(day string) string {
	return dayKeyPrefix + day
}
