package idgen

import (
	"fmt"
	"log"
	"math/rand"
	"sync"
	"time"
)

// ============================================================================
// 雪花算法 ID 生成器
// ============================================================================
//
//   0 - 41位时间戳 - 10位机器ID - 12位序列号
//
// 比赛ID、交易号、流水号都由它生成，保证多实例部署下不冲突。
// 用户的 6 位数字ID是展示用的，单独随机生成，见 NumericID。
//
// ============================================================================

const (
	epoch          = int64(1704067200000) // 2024-01-01 00:00:00 UTC
	workerIDBits   = 10
	sequenceBits   = 12
	maxWorkerID    = -1 ^ (-1 << workerIDBits)
	maxSequence    = -1 ^ (-1 << sequenceBits)
	workerIDShift  = sequenceBits
	timestampShift = sequenceBits + workerIDBits
)

// Snowflake 雪花算法ID生成器
type Snowflake struct {
	mu        sync.Mutex
	timestamp int64
	workerID  int64
	sequence  int64
}

var (
	defaultGenerator *Snowflake
	once             sync.Once

	randMu sync.Mutex
	rnd    = rand.New(rand.NewSource(time.Now().UnixNano()))
)

// NewSnowflake 创建指定机器ID的生成器
func NewSnowflake(workerID int64) (*Snowflake, error) {
	if workerID < 0 || workerID > maxWorkerID {
		return nil, fmt.Errorf("workerID 必须在 0-%d 之间", maxWorkerID)
	}
	return &Snowflake{workerID: workerID}, nil
}

// Init 初始化默认ID生成器
func Init(workerID int64) {
	once.Do(func() {
		g, err := NewSnowflake(workerID)
		if err != nil {
			log.Fatalf("%v", err)
		}
		defaultGenerator = g
	})
}

func NextID() int64 {
	Init(1)
	return defaultGenerator.Generate()
}

// Generate 生成ID，同一毫秒内序列号用完时自旋到下一毫秒
func (s *Snowflake) Generate() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UnixMilli()
	if now < s.timestamp {
		// 时钟回拨时沿用上次时间戳，靠序列号保证唯一
		now = s.timestamp
	}

	if now == s.timestamp {
		s.sequence = (s.sequence + 1) & maxSequence
		if s.sequence == 0 {
			for now <= s.timestamp {
				now = time.Now().UnixMilli()
			}
		}
	} else {
		s.sequence = 0
	}
	s.timestamp = now

	return ((now - epoch) << timestampShift) | (s.workerID << workerIDShift) | s.sequence
}

func withPrefix(prefix string) string {
	return fmt.Sprintf("%s%d", prefix, NextID())
}

// GenerateMatchID 比赛ID，格式：m + 雪花ID
func GenerateMatchID() string {
	return withPrefix("m")
}

// GenerateTransactionID 交易号，格式：TXN + 雪花ID
func GenerateTransactionID() string {
	return withPrefix("TXN")
}

// GenerateFlowNo 流水号
func GenerateFlowNo() string {
	return withPrefix("FLW")
}

// GenerateWithdrawReference 提现申请的对账参考号，格式：EXTRACT- + 雪花ID
func GenerateWithdrawReference() string {
	return withPrefix("EXTRACT-")
}

// NumericID 生成 100000-999999 之间的均匀随机数，不做碰撞检查
func NumericID() int {
	randMu.Lock()
	defer randMu.Unlock()
	return 100000 + rnd.Intn(900000)
}
