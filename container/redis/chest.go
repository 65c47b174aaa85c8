// Package redis implements container.Container backed by Redis, for sites
// shared by actors in different processes. Contents live in a Redis hash
// and the advisory lock is a SET NX lease with a holder token, so a lock
// taken by one actor is visible to every other actor on the site.
//
// Usage:
//
//	client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
//	c := redischest.New(client, id.NewContainerID(), 500,
//	    redischest.WithHolder("farmhand-2"),
//	)
package redis

import (
	"context"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Spiderbuttons/autosort/container"
	"github.com/Spiderbuttons/autosort/id"
	"github.com/Spiderbuttons/autosort/item"
)

// Compile-time interface checks.
var (
	_ container.Container = (*Chest)(nil)
	_ container.Input     = (*Chest)(nil)
)

const keyPrefix = "autosort:"

// opTimeout bounds each Redis round trip made from the ctx-less
// container.Container methods.
const opTimeout = 5 * time.Second

// insertScript atomically inserts up to the free capacity into the
// contents hash and returns the leftover quantity.
var insertScript = redis.NewScript(`
local total = 0
for _, v in ipairs(redis.call('HVALS', KEYS[1])) do
  total = total + tonumber(v)
end
local cap = tonumber(ARGV[1])
local qty = tonumber(ARGV[3])
local take = qty
if cap > 0 then
  local free = cap - total
  if free < 0 then free = 0 end
  if take > free then take = free end
end
if take > 0 then
  redis.call('HINCRBY', KEYS[1], ARGV[2], take)
end
return qty - take
`)

// unlockScript releases the lease only if the holder token matches.
var unlockScript = redis.NewScript(`
if redis.call('GET', KEYS[1]) == ARGV[1] then
  return redis.call('DEL', KEYS[1])
end
return 0
`)

// drainScript returns the full contents hash and deletes it in one step.
var drainScript = redis.NewScript(`
local all = redis.call('HGETALL', KEYS[1])
redis.call('DEL', KEYS[1])
return all
`)

// Option configures a Chest.
type Option func(*Chest)

// WithHolder sets the lease holder token (typically the actor's identity).
func WithHolder(holder string) Option {
	return func(c *Chest) { c.holder = holder }
}

// WithLockTTL sets the lease TTL. A crashed holder frees the container
// once the lease expires. Default 30s.
func WithLockTTL(ttl time.Duration) Option {
	return func(c *Chest) { c.lockTTL = ttl }
}

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Chest) { c.logger = l }
}

// Chest is a Redis-backed container. The caller owns the Redis client
// lifecycle. Contents are stored as a hash of kind -> quantity under
// "autosort:ctr:{id}:contents"; the advisory lock is the lease key
// "autosort:ctr:{id}:lock".
type Chest struct {
	client   redis.Cmdable
	ident    id.ContainerID
	capacity int
	holder   string
	lockTTL  time.Duration
	logger   *slog.Logger
}

// New creates a Redis-backed chest holding at most capacity units.
// Zero capacity means unbounded.
func New(client redis.Cmdable, ident id.ContainerID, capacity int, opts ...Option) *Chest {
	c := &Chest{
		client:   client,
		ident:    ident,
		capacity: capacity,
		holder:   id.NewContainerID().String(),
		lockTTL:  30 * time.Second,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ID implements container.Container.
func (c *Chest) ID() id.ContainerID { return c.ident }

// TryLock implements container.Container. It attempts to take the lease
// without blocking; a Redis error counts as a failed lock so the sort
// skips the container rather than mutating it blind.
func (c *Chest) TryLock() bool {
	ctx, cancel := c.opCtx()
	defer cancel()

	ok, err := c.client.SetNX(ctx, c.lockKey(), c.holder, c.lockTTL).Result()
	if err != nil {
		c.logger.Warn("container lock probe failed",
			slog.String("container_id", c.ident.String()),
			slog.String("error", err.Error()),
		)
		return false
	}
	return ok
}

// Unlock implements container.Container. Releasing a lease another actor
// has since acquired is a no-op.
func (c *Chest) Unlock() {
	ctx, cancel := c.opCtx()
	defer cancel()

	if err := unlockScript.Run(ctx, c.client, []string{c.lockKey()}, c.holder).Err(); err != nil {
		c.logger.Warn("container unlock failed",
			slog.String("container_id", c.ident.String()),
			slog.String("error", err.Error()),
		)
	}
}

// Insert implements container.Container. The capacity check and the
// increment run in one Lua script so concurrent inserts from other
// processes cannot overfill the container.
func (c *Chest) Insert(st item.Stack) *item.Stack {
	if st.IsEmpty() {
		return nil
	}

	ctx, cancel := c.opCtx()
	defer cancel()

	left, err := insertScript.Run(ctx, c.client,
		[]string{c.contentsKey()},
		c.capacity, fieldKey(st), st.Qty,
	).Int()
	if err != nil {
		// Treat an unreachable backend as a full container: the stack
		// stays with the caller and is never lost.
		c.logger.Warn("container insert failed",
			slog.String("container_id", c.ident.String()),
			slog.String("error", err.Error()),
		)
		leftover := st
		return &leftover
	}

	if left > st.Qty {
		panic("container/redis: insert returned leftover larger than given")
	}
	if left == 0 {
		return nil
	}
	leftover := st.WithQty(left)
	return &leftover
}

// SnapshotAndClear implements container.Input.
func (c *Chest) SnapshotAndClear() []item.Stack {
	ctx, cancel := c.opCtx()
	defer cancel()

	vals, err := drainScript.Run(ctx, c.client, []string{c.contentsKey()}).StringSlice()
	if err != nil {
		c.logger.Warn("container drain failed",
			slog.String("container_id", c.ident.String()),
			slog.String("error", err.Error()),
		)
		return nil
	}

	// HGETALL alternates field, value.
	stacks := make([]item.Stack, 0, len(vals)/2)
	for i := 0; i+1 < len(vals); i += 2 {
		qty, convErr := strconv.Atoi(vals[i+1])
		if convErr != nil || qty <= 0 {
			continue
		}
		stacks = append(stacks, parseFieldKey(vals[i]).WithQty(qty))
	}
	return stacks
}

// AppendAll implements container.Input. It ignores capacity: returned
// leftovers must never be dropped.
func (c *Chest) AppendAll(stacks []item.Stack) {
	ctx, cancel := c.opCtx()
	defer cancel()

	pipe := c.client.Pipeline()
	for _, st := range stacks {
		if st.IsEmpty() {
			continue
		}
		pipe.HIncrBy(ctx, c.contentsKey(), fieldKey(st), int64(st.Qty))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		c.logger.Error("container restore failed",
			slog.String("container_id", c.ident.String()),
			slog.String("error", err.Error()),
		)
	}
}

// Contents returns the chest's stacks. Order follows Redis hash iteration
// and is not significant.
func (c *Chest) Contents(ctx context.Context) ([]item.Stack, error) {
	fields, err := c.client.HGetAll(ctx, c.contentsKey()).Result()
	if err != nil {
		return nil, err
	}

	stacks := make([]item.Stack, 0, len(fields))
	for field, raw := range fields {
		qty, convErr := strconv.Atoi(raw)
		if convErr != nil || qty <= 0 {
			continue
		}
		stacks = append(stacks, parseFieldKey(field).WithQty(qty))
	}
	return stacks, nil
}

func (c *Chest) opCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), opTimeout)
}

func (c *Chest) contentsKey() string {
	return keyPrefix + "ctr:" + c.ident.String() + ":contents"
}

func (c *Chest) lockKey() string {
	return keyPrefix + "ctr:" + c.ident.String() + ":lock"
}

// fieldKey encodes a stack's kind as a hash field: name|category|num.
// Name and category are query-escaped so a literal "|" in either cannot
// shift the separators.
func fieldKey(st item.Stack) string {
	return url.QueryEscape(st.Name) + "|" + url.QueryEscape(st.Category) + "|" + strconv.Itoa(st.CategoryNum)
}

// parseFieldKey decodes a hash field back into a zero-quantity stack.
func parseFieldKey(field string) item.Stack {
	parts := strings.SplitN(field, "|", 3)
	st := item.Stack{Name: unescape(parts[0])}
	if len(parts) > 1 {
		st.Category = unescape(parts[1])
	}
	if len(parts) > 2 {
		st.CategoryNum, _ = strconv.Atoi(parts[2])
	}
	return st
}

// unescape tolerates fields written before escaping was introduced.
func unescape(s string) string {
	out, err := url.QueryUnescape(s)
	if err != nil {
		return s
	}
	return out
}
