package service

import (
	"context"
	"log"

	"ffarena/internal/config"
	"ffarena/internal/infrastructure/cache"
	"ffarena/internal/model"
	"ffarena/internal/repository"

	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

// RoomNotification 房间信息已发布的提醒
type RoomNotification struct {
	MatchID   string `json:"match_id"`
	Title     string `json:"title"`
	RoomID    string `json:"room_id"`
	RoomPass  string `json:"room_pass"`
	StartTime string `json:"start_time"`
}

// NotificationService 已报名且房间信息已发布的比赛提醒，已读标记存在 Redis
type NotificationService struct {
	rdb       *redis.Client
	cfg       *config.Config
	matchRepo *repository.MatchRepository
}

func NewNotificationService(db *gorm.DB, rdb *redis.Client, cfg *config.Config) *NotificationService {
	return &NotificationService{
		rdb:       rdb,
		cfg:       cfg,
		matchRepo: repository.NewMatchRepository(db),
	}
}

// Pending 未确认的提醒：已报名、未结束、房间号和密码都已发布
func (s *NotificationService) Pending(ctx context.Context, accountID string) ([]RoomNotification, error) {
	completed := false
	matches, err := s.matchRepo.List(ctx, repository.MatchFilter{Completed: &completed, JoinedBy: accountID})
	if err != nil {
		return nil, err
	}

	seen, err := s.rdb.SMembers(ctx, cache.NotificationSeenKey(accountID)).Result()
	if err != nil && err != redis.Nil {
		log.Printf("[Notification] 读取已读标记失败: userID=%s, err=%v", accountID, err)
	}
	seenSet := make(map[string]struct{}, len(seen))
	for _, id := range seen {
		seenSet[id] = struct{}{}
	}

	notes := []RoomNotification{}
	for _, m := range matches {
		if !m.HasRoomCredentials() {
			continue
		}
		if _, ok := seenSet[m.ID]; ok {
			continue
		}
		notes = append(notes, toNotification(m))
	}
	return notes, nil
}

func toNotification(m *model.Match) RoomNotification {
	return RoomNotification{
		MatchID:   m.ID,
		Title:     m.Title,
		RoomID:    m.RoomID,
		RoomPass:  m.RoomPass,
		StartTime: m.StartTime.Format("2006-01-02 15:04"),
	}
}

// Acknowledge 标记提醒已读，过期后未结束的比赛会再次提醒
func (s *NotificationService) Acknowledge(ctx context.Context, accountID, matchID string) error {
	if matchID == "" {
		return validationErrorf(KindMissingField, "缺少比赛ID")
	}

	key := cache.NotificationSeenKey(accountID)
	pipe := s.rdb.TxPipeline()
	pipe.SAdd(ctx, key, matchID)
	pipe.Expire(ctx, key, s.cfg.Business.NotificationTTL())
	_, err := pipe.Exec(ctx)
	return err
}
