package queue

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// HeartbeatTTL is how long a tool heartbeat key lives.
const HeartbeatTTL = 30 * time.Second

// Key names shared with other consumers of the queue.
const availableToolsKey = "tools:available"

// Client is the Redis surface used by workers and submitters.
type Client interface {
	// Push appends a work item to queue.
	Push(ctx context.Context, queue string, item WorkItem) error

	// Pop blocks for up to timeout waiting for a work item. It returns
	// (nil, nil) when the timeout elapses.
	Pop(ctx context.Context, queue string, timeout time.Duration) (*WorkItem, error)

	// Publish sends a result on channel.
	Publish(ctx context.Context, channel string, result Result) error

	// Subscribe streams results published on channel until ctx is done.
	Subscribe(ctx context.Context, channel string) (<-chan Result, error)

	// RegisterTool stores meta and adds the tool to the available set.
	RegisterTool(ctx context.Context, meta ToolMeta) error

	// ListTools returns every registered tool's metadata.
	ListTools(ctx context.Context) ([]ToolMeta, error)

	// Heartbeat refreshes the tool's health key.
	Heartbeat(ctx context.Context, toolName string) error

	GetWorkerCount(ctx context.Context, service string) (int, error)
	IncrementWorkerCount(ctx context.Context, service string) error
	DecrementWorkerCount(ctx context.Context, service string) error

	Ping(ctx context.Context) error
	Close() error
}

// RedisOptions configures the Redis connection.
type RedisOptions struct {
	// URL is the Redis connection URL. Default: redis://localhost:6379
	URL string

	// TLS optionally enables TLS for the connection
	TLS *tls.Config

	// ConnectTimeout bounds the initial dial and ping. Default: 5s
	ConnectTimeout time.Duration

	// ReadTimeout is the socket read timeout. Default: 30s
	ReadTimeout time.Duration

	// WriteTimeout is the socket write timeout. Default: 5s
	WriteTimeout time.Duration
}

// RedisClient implements Client with go-redis.
type RedisClient struct {
	client *redis.Client
}

// RedisAddr returns the host:port a Redis URL points at.
func RedisAddr(url string) (string, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return "", fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	return opts.Addr, nil
}

// NewRedisClient connects to Redis and verifies the connection with PING.
func NewRedisClient(opts RedisOptions) (*RedisClient, error) {
	if opts.URL == "" {
		opts.URL = "redis://localhost:6379"
	}
	if opts.ConnectTimeout == 0 {
		opts.ConnectTimeout = 5 * time.Second
	}
	if opts.ReadTimeout == 0 {
		opts.ReadTimeout = 30 * time.Second
	}
	if opts.WriteTimeout == 0 {
		opts.WriteTimeout = 5 * time.Second
	}

	redisOpts, err := redis.ParseURL(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	if opts.TLS != nil {
		redisOpts.TLSConfig = opts.TLS
	}
	redisOpts.DialTimeout = opts.ConnectTimeout
	redisOpts.ReadTimeout = opts.ReadTimeout
	redisOpts.WriteTimeout = opts.WriteTimeout
	redisOpts.ContextTimeoutEnabled = true

	client := redis.NewClient(redisOpts)

	ctx, cancel := context.WithTimeout(context.Background(), opts.ConnectTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisClient{client: client}, nil
}

func (c *RedisClient) Push(ctx context.Context, queue string, item WorkItem) error {
	data, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("failed to marshal work item: %w", err)
	}

	if err := c.client.LPush(ctx, queue, data).Err(); err != nil {
		return fmt.Errorf("failed to push to queue %s: %w", queue, err)
	}
	return nil
}

func (c *RedisClient) Pop(ctx context.Context, queue string, timeout time.Duration) (*WorkItem, error) {
	result, err := c.client.BRPop(ctx, timeout, queue).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to pop from queue %s: %w", queue, err)
	}

	if len(result) != 2 {
		return nil, fmt.Errorf("unexpected BRPOP result length: %d", len(result))
	}

	var item WorkItem
	if err := json.Unmarshal([]byte(result[1]), &item); err != nil {
		return nil, fmt.Errorf("failed to unmarshal work item: %w", err)
	}
	return &item, nil
}

func (c *RedisClient) Publish(ctx context.Context, channel string, result Result) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}

	if err := c.client.Publish(ctx, channel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish to channel %s: %w", channel, err)
	}
	return nil
}

func (c *RedisClient) Subscribe(ctx context.Context, channel string) (<-chan Result, error) {
	pubsub := c.client.Subscribe(ctx, channel)

	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to channel %s: %w", channel, err)
	}

	resultChan := make(chan Result)

	go func() {
		defer close(resultChan)
		defer pubsub.Close()

		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}

				var result Result
				if err := json.Unmarshal([]byte(msg.Payload), &result); err != nil {
					continue
				}

				select {
				case resultChan <- result:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return resultChan, nil
}

func (c *RedisClient) RegisterTool(ctx context.Context, meta ToolMeta) error {
	if err := meta.IsValid(); err != nil {
		return fmt.Errorf("invalid tool metadata: %w", err)
	}

	tagsJSON, err := json.Marshal(meta.Tags)
	if err != nil {
		return fmt.Errorf("failed to marshal tags: %w", err)
	}

	metaKey := formatKeyName("tool", meta.Name, "meta")
	if err := c.client.HSet(ctx, metaKey,
		"name", meta.Name,
		"title", meta.Title,
		"description", meta.Description,
		"service", meta.Service,
		"version", meta.Version,
		"schema", meta.Schema,
		"tags", string(tagsJSON),
	).Err(); err != nil {
		return fmt.Errorf("failed to set tool metadata: %w", err)
	}

	if err := c.client.SAdd(ctx, availableToolsKey, meta.Name).Err(); err != nil {
		return fmt.Errorf("failed to add tool to available set: %w", err)
	}
	return nil
}

// ListTools skips names whose metadata hash has vanished.
func (c *RedisClient) ListTools(ctx context.Context) ([]ToolMeta, error) {
	toolNames, err := c.client.SMembers(ctx, availableToolsKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get available tools: %w", err)
	}

	tools := make([]ToolMeta, 0, len(toolNames))
	for _, name := range toolNames {
		fields, err := c.client.HGetAll(ctx, formatKeyName("tool", name, "meta")).Result()
		if err != nil || len(fields) == 0 {
			continue
		}

		meta := ToolMeta{
			Name:        fields["name"],
			Title:       fields["title"],
			Description: fields["description"],
			Service:     fields["service"],
			Version:     fields["version"],
			Schema:      fields["schema"],
		}
		if tagsStr, ok := fields["tags"]; ok {
			var tags []string
			if err := json.Unmarshal([]byte(tagsStr), &tags); err == nil {
				meta.Tags = tags
			}
		}
		tools = append(tools, meta)
	}

	return tools, nil
}

func (c *RedisClient) Heartbeat(ctx context.Context, toolName string) error {
	healthKey := formatKeyName("tool", toolName, "health")
	if err := c.client.Set(ctx, healthKey, "ok", HeartbeatTTL).Err(); err != nil {
		return fmt.Errorf("failed to set heartbeat for tool %s: %w", toolName, err)
	}
	return nil
}

func (c *RedisClient) GetWorkerCount(ctx context.Context, service string) (int, error) {
	countStr, err := c.client.Get(ctx, workersKey(service)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to get worker count for %s: %w", service, err)
	}

	count, err := strconv.Atoi(countStr)
	if err != nil {
		return 0, fmt.Errorf("invalid worker count value: %w", err)
	}
	return count, nil
}

func (c *RedisClient) IncrementWorkerCount(ctx context.Context, service string) error {
	if err := c.client.Incr(ctx, workersKey(service)).Err(); err != nil {
		return fmt.Errorf("failed to increment worker count for %s: %w", service, err)
	}
	return nil
}

func (c *RedisClient) DecrementWorkerCount(ctx context.Context, service string) error {
	if err := c.client.Decr(ctx, workersKey(service)).Err(); err != nil {
		return fmt.Errorf("failed to decrement worker count for %s: %w", service, err)
	}
	return nil
}

func (c *RedisClient) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisClient) Close() error {
	return c.client.Close()
}

func workersKey(service string) string {
	return formatKeyName("service", service, "workers")
}

// formatKeyName joins key parts with colons, the Redis naming convention.
func formatKeyName(parts ...string) string {
	return strings.Join(parts, ":")
}
