package redis

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const (
	ActiveCheckKey = "liveness:active_check_enabled"
	// GenerationKey counts how many times the active check went from off to
	// on. Replicas compare it to notice a toggle they did not handle.
	GenerationKey = "liveness:active_check_generation"
)

// Mode is the global active-check flag together with its enable generation.
type Mode struct {
	Enabled    bool
	Generation int64
}

// IModeStore holds the global active-check flag.
type IModeStore interface {
	Mode(ctx context.Context) Mode
	ActiveCheckEnabled(ctx context.Context) bool
	SetActiveCheck(ctx context.Context, enabled bool) error
	// Toggle flips the flag and returns the new value.
	Toggle(ctx context.Context) (bool, error)
	Close() error
}

// New connects to REDIS_ADDRESS. When no address is configured the flag lives
// in process memory only.
func New(defaultEnabled bool) IModeStore {
	redisAddr := os.Getenv("REDIS_ADDRESS")
	if redisAddr == "" {
		logrus.Info("REDIS_ADDRESS not set, keeping active check mode in memory")
		return NewMemoryStore(defaultEnabled)
	}

	db, _ := strconv.Atoi(os.Getenv("REDIS_DB"))
	redisPassword := os.Getenv("REDIS_PASSWORD")

	logrus.Info(fmt.Sprintf("Connecting to Redis at %s...", redisAddr))

	client := redis.NewClient(&redis.Options{
		Addr:     redisAddr,
		Password: redisPassword,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := client.Ping(ctx).Result(); err != nil {
		logrus.Error(fmt.Sprintf("Failed to connect to Redis: %v", err))
	} else {
		logrus.Info("Successfully connected to Redis")
		if err := client.SetNX(ctx, ActiveCheckKey, formatFlag(defaultEnabled), 0).Err(); err != nil {
			logrus.Error(fmt.Sprintf("Error seeding %s: %v", ActiveCheckKey, err))
		}
	}

	store := &redisStore{client: client}
	store.cached = Mode{Enabled: defaultEnabled}
	return store
}

type redisStore struct {
	client *redis.Client

	// cached is the last mode read from or written to redis. It answers
	// reads while redis is unreachable.
	mu     sync.RWMutex
	cached Mode
}

func (r *redisStore) remember(mode Mode) {
	r.mu.Lock()
	r.cached = mode
	r.mu.Unlock()
}

func (r *redisStore) last() Mode {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.cached
}

func (r *redisStore) Mode(ctx context.Context) Mode {
	vals, err := r.client.MGet(ctx, ActiveCheckKey, GenerationKey).Result()
	if err != nil {
		logrus.Error(fmt.Sprintf("Error getting %s: %v", ActiveCheckKey, err))
		return r.last()
	}
	if len(vals) != 2 || vals[0] == nil {
		return r.last()
	}

	flag, _ := vals[0].(string)
	gen, _ := vals[1].(string)
	mode := Mode{Enabled: parseFlag(flag), Generation: parseGeneration(gen)}
	r.remember(mode)
	return mode
}

func (r *redisStore) ActiveCheckEnabled(ctx context.Context) bool {
	return r.Mode(ctx).Enabled
}

var setScript = redis.NewScript(`
local old = redis.call("GET", KEYS[1])
redis.call("SET", KEYS[1], ARGV[1])
if ARGV[1] == "1" and old ~= "1" then
	redis.call("INCR", KEYS[2])
end
local g = redis.call("GET", KEYS[2]) or "0"
return {ARGV[1], tostring(g)}
`)

func (r *redisStore) SetActiveCheck(ctx context.Context, enabled bool) error {
	logrus.Debug(fmt.Sprintf("Setting %s to %v", ActiveCheckKey, enabled))
	vals, err := setScript.Run(ctx, r.client, []string{ActiveCheckKey, GenerationKey}, formatFlag(enabled)).StringSlice()
	if err != nil {
		logrus.Error(fmt.Sprintf("Error setting %s: %v", ActiveCheckKey, err))
		return err
	}
	r.remember(modeFromReply(vals))
	return nil
}

var toggleScript = redis.NewScript(`
local v = redis.call("GET", KEYS[1])
if v == "1" then v = "0" else v = "1" end
redis.call("SET", KEYS[1], v)
if v == "1" then
	redis.call("INCR", KEYS[2])
end
local g = redis.call("GET", KEYS[2]) or "0"
return {v, tostring(g)}
`)

func (r *redisStore) Toggle(ctx context.Context) (bool, error) {
	vals, err := toggleScript.Run(ctx, r.client, []string{ActiveCheckKey, GenerationKey}).StringSlice()
	if err != nil {
		logrus.Error(fmt.Sprintf("Error toggling %s: %v", ActiveCheckKey, err))
		return r.last().Enabled, err
	}

	mode := modeFromReply(vals)
	r.remember(mode)
	logrus.Debug(fmt.Sprintf("Toggled %s to %v (generation %d)", ActiveCheckKey, mode.Enabled, mode.Generation))
	return mode.Enabled, nil
}

func (r *redisStore) Close() error {
	return r.client.Close()
}

type memoryStore struct {
	mu   sync.Mutex
	mode Mode
}

func NewMemoryStore(enabled bool) IModeStore {
	return &memoryStore{mode: Mode{Enabled: enabled}}
}

func (m *memoryStore) Mode(context.Context) Mode {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mode
}

func (m *memoryStore) ActiveCheckEnabled(ctx context.Context) bool {
	return m.Mode(ctx).Enabled
}

func (m *memoryStore) SetActiveCheck(_ context.Context, enabled bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.set(enabled)
	return nil
}

func (m *memoryStore) Toggle(context.Context) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.set(!m.mode.Enabled)
	return m.mode.Enabled, nil
}

func (m *memoryStore) set(enabled bool) {
	if enabled && !m.mode.Enabled {
		m.mode.Generation++
	}
	m.mode.Enabled = enabled
}

func (m *memoryStore) Close() error {
	return nil
}

func formatFlag(enabled bool) string {
	if enabled {
		return "1"
	}
	return "0"
}

func parseFlag(val string) bool {
	enabled, err := strconv.ParseBool(val)
	return err == nil && enabled
}

func parseGeneration(val string) int64 {
	gen, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0
	}
	return gen
}

func modeFromReply(vals []string) Mode {
	if len(vals) != 2 {
		return Mode{}
	}
	return Mode{Enabled: parseFlag(vals[0]), Generation: parseGeneration(vals[1])}
}
