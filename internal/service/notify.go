package service

import (
	"context"
	"encoding/json"
	"time"

	"ffarena/internal/config"
	"ffarena/internal/event"
	"ffarena/internal/infrastructure/lock"
	"ffarena/internal/model"
	"ffarena/internal/repository"
	"ffarena/pkg/idgen"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// changeNotifier 变更通知
//
// stage 在业务事务内写发件箱（Kafka 开启时），publish 在提交后推送进程内事件总线。
// 事务回滚时两者都不会发生。
type changeNotifier struct {
	bus        *event.Bus
	outboxRepo *repository.OutboxRepository
	topic      string
}

func newChangeNotifier(db *gorm.DB, bus *event.Bus, cfg *config.Config) *changeNotifier {
	n := &changeNotifier{bus: bus, outboxRepo: repository.NewOutboxRepository(db)}
	if cfg.Kafka.Enabled {
		n.topic = cfg.Kafka.Topic.ChangeEvent
	}
	return n
}

func (n *changeNotifier) stage(ctx context.Context, tx *gorm.DB, events ...event.Event) error {
	if n.topic == "" || len(events) == 0 {
		return nil
	}

	msgs := make([]*model.OutboxMessage, 0, len(events))
	for _, e := range events {
		payload, err := json.Marshal(e)
		if err != nil {
			return err
		}
		msgs = append(msgs, &model.OutboxMessage{
			EventKind:  string(e.Kind),
			MessageKey: string(e.Kind),
			Topic:      n.topic,
			Payload:    string(payload),
			Status:     model.OutboxStatusPending,
		})
	}
	return n.outboxRepo.Create(ctx, tx, msgs...)
}

func (n *changeNotifier) publish(events ...event.Event) {
	if n.bus == nil {
		return
	}
	n.bus.Publish(events...)
}

// locker 生成本次请求的锁，持有者标识用随机 UUID
type locker struct {
	rdb *redis.Client
	ttl time.Duration
}

func newLocker(rdb *redis.Client, cfg *config.Config) locker {
	return locker{rdb: rdb, ttl: cfg.Business.LockTTL()}
}

func (l locker) match(matchID string) *lock.DistributedLock {
	return lock.NewMatchLock(l.rdb, matchID, uuid.NewString(), l.ttl)
}

func (l locker) wallet(userID string) *lock.DistributedLock {
	return lock.NewWalletLock(l.rdb, userID, uuid.NewString(), l.ttl)
}

func (l locker) acquire(ctx context.Context, locks ...*lock.DistributedLock) (func(), error) {
	return lock.LockAll(ctx, 100*time.Millisecond, 30, locks...)
}

func newFlow(userID, refNo, bucket, flowType string, before, delta int64, remark string) *model.AccountFlow {
	return &model.AccountFlow{
		FlowNo:        idgen.GenerateFlowNo(),
		UserID:        userID,
		RefNo:         refNo,
		Bucket:        bucket,
		Amount:        delta,
		Type:          flowType,
		BalanceBefore: before,
		BalanceAfter:  before + delta,
		Remark:        remark,
	}
}
