package lock

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"DRFashion-Sync/internal/connection"
	"DRFashion-Sync/internal/logger"
	"DRFashion-Sync/internal/ssh"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "drsync:run:"

// Deletes the key only if it still carries our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Extends the TTL only while the key still carries our token.
var refreshScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

// RedisGuard shares the lock between processes through SET NX with a TTL.
// A holder renews the TTL every ttl/3 until release, so the TTL only bounds
// how long a crashed run can block the next one.
type RedisGuard struct {
	client    *redis.Client
	ttl       time.Duration
	timeout   time.Duration
	forwarder *ssh.LocalForwarder
}

func NewRedisGuard(config connection.ConnectionConfig, ttl time.Duration) (*RedisGuard, error) {
	port := config.Port
	if port <= 0 {
		port = 6379
	}
	addr := net.JoinHostPort(config.Host, strconv.Itoa(port))

	g := &RedisGuard{ttl: ttl}
	if g.ttl <= 0 {
		g.ttl = connection.DefaultLockTTLSeconds * time.Second
	}

	if config.UseSSH {
		forwarder, err := ssh.NewLocalForwarder(config.SSH, config.Host, port)
		if err != nil {
			return nil, fmt.Errorf("创建 SSH 隧道失败: %w", err)
		}
		g.forwarder = forwarder
		addr = forwarder.LocalAddr
		logger.Infof("Redis 通过 SSH 隧道连接: %s -> %s:%d", addr, config.Host, port)
	}

	g.timeout = time.Duration(config.Timeout) * time.Second
	if g.timeout <= 0 {
		g.timeout = 30 * time.Second
	}
	g.client = redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     config.Password,
		DB:           config.RedisDB,
		DialTimeout:  g.timeout,
		ReadTimeout:  g.timeout,
		WriteTimeout: g.timeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), g.timeout)
	defer cancel()
	if err := g.client.Ping(ctx).Err(); err != nil {
		_ = g.Close()
		return nil, fmt.Errorf("Redis 连接失败: %w", err)
	}

	logger.Infof("Redis 连接成功: %s DB=%d", addr, config.RedisDB)
	return g, nil
}

func (g *RedisGuard) Acquire(ctx context.Context, key string) (func(), error) {
	token, err := newToken()
	if err != nil {
		return nil, err
	}
	redisKey := keyPrefix + key

	ok, err := g.client.SetNX(ctx, redisKey, token, g.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire %s: %w", redisKey, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrHeld, key)
	}

	stop := make(chan struct{})
	done := make(chan struct{})
	go g.keepAlive(redisKey, token, stop, done)

	var once sync.Once
	return func() {
		once.Do(func() {
			close(stop)
			<-done
			rctx, cancel := context.WithTimeout(context.Background(), g.timeout)
			defer cancel()
			if err := releaseScript.Run(rctx, g.client, []string{redisKey}, token).Err(); err != nil {
				logger.Error(err, "释放同步锁失败：key=%s", redisKey)
			}
		})
	}, nil
}

// keepAlive renews redisKey until stop is closed or the key is lost.
func (g *RedisGuard) keepAlive(redisKey, token string, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	interval := g.ttl / 3
	if interval <= 0 {
		interval = g.ttl
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}

		ctx, cancel := context.WithTimeout(context.Background(), g.timeout)
		n, err := refreshScript.Run(ctx, g.client, []string{redisKey}, token, g.ttl.Milliseconds()).Int64()
		cancel()
		if err != nil {
			logger.Warnf("续期同步锁失败：key=%s，原因：%v", redisKey, err)
			continue
		}
		if n == 0 {
			logger.Errorf("同步锁已丢失，停止续期：key=%s", redisKey)
			return
		}
	}
}

func (g *RedisGuard) Close() error {
	var err error
	if g.client != nil {
		err = g.client.Close()
		g.client = nil
	}
	if g.forwarder != nil {
		_ = g.forwarder.Close()
		g.forwarder = nil
	}
	return err
}

func newToken() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate lock token: %w", err)
	}
	return hex.EncodeToString(b), nil
}
