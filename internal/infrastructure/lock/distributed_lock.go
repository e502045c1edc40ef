package lock

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/go-redis/redis/v8"
)

// ============================================================================
// 分布式锁
// ============================================================================
//
// 加锁：SET key owner NX EX ttl
// 释放：Lua 脚本比较 owner 后再 DEL，避免释放别人持有的锁
//
// 钱包相关的"检查再修改"都在锁内完成：
//   比赛锁  match:lock:<matchID>：报名名额检查 + 占位、比赛结算只能有一个在进行
//   钱包锁  wallet:lock:<userID>：报名扣款与提现预扣不能交错
//
// 同时需要两把锁时固定先比赛锁后钱包锁，防止互相等待。
//
// ============================================================================

var (
	ErrLockFailed = errors.New("获取分布式锁失败")
)

const unlockScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
else
	return 0
end
`

// DistributedLock 分布式锁
type DistributedLock struct {
	client     *redis.Client
	key        string
	value      string // 锁持有者标识
	expiration time.Duration
}

func NewDistributedLock(client *redis.Client, key, value string, expiration time.Duration) *DistributedLock {
	return &DistributedLock{
		client:     client,
		key:        key,
		value:      value,
		expiration: expiration,
	}
}

// NewMatchLock 比赛维度的锁
func NewMatchLock(client *redis.Client, matchID, owner string, ttl time.Duration) *DistributedLock {
	return NewDistributedLock(client, fmt.Sprintf("match:lock:%s", matchID), owner, ttl)
}

// NewWalletLock 用户钱包维度的锁，不同用户互不影响
func NewWalletLock(client *redis.Client, userID, owner string, ttl time.Duration) *DistributedLock {
	return NewDistributedLock(client, fmt.Sprintf("wallet:lock:%s", userID), owner, ttl)
}

func (l *DistributedLock) Key() string {
	return l.key
}

// TryLock 非阻塞加锁
func (l *DistributedLock) TryLock(ctx context.Context) (bool, error) {
	return l.client.SetNX(ctx, l.key, l.value, l.expiration).Result()
}

// Lock 带重试的加锁
func (l *DistributedLock) Lock(ctx context.Context, retryInterval time.Duration, maxRetries int) error {
	for i := 0; i < maxRetries; i++ {
		success, err := l.TryLock(ctx)
		if err != nil {
			return err
		}
		if success {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retryInterval):
		}
	}
	return ErrLockFailed
}

func (l *DistributedLock) Unlock(ctx context.Context) error {
	return l.client.Eval(ctx, unlockScript, []string{l.key}, l.value).Err()
}

// LockAll 按传入顺序依次加锁，任一失败则释放已获得的锁
// 返回的 release 按相反顺序释放
func LockAll(ctx context.Context, retryInterval time.Duration, maxRetries int, locks ...*DistributedLock) (func(), error) {
	acquired := make([]*DistributedLock, 0, len(locks))
	release := func() {
		for i := len(acquired) - 1; i >= 0; i-- {
			// 释放不跟随请求 ctx，请求取消后仍要把锁还回去
			if err := acquired[i].Unlock(context.Background()); err != nil {
				log.Printf("[Lock] 释放锁失败: key=%s, err=%v", acquired[i].key, err)
			}
		}
	}

	for _, l := range locks {
		if err := l.Lock(ctx, retryInterval, maxRetries); err != nil {
			release()
			return nil, fmt.Errorf("%s: %w", l.key, err)
		}
		acquired = append(acquired, l)
	}
	return release, nil
}
