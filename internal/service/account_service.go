package service

import (
	"context"
	"errors"
	"log"
	"strings"

	"ffarena/internal/config"
	"ffarena/internal/event"
	"ffarena/internal/infrastructure/cache"
	"ffarena/internal/model"
	"ffarena/internal/repository"
	"ffarena/pkg/idgen"

	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

const defaultDisplayName = "Soldier"

type AccountService struct {
	db          *gorm.DB
	rdb         *redis.Client
	cfg         *config.Config
	accountRepo *repository.AccountRepository
	flowRepo    *repository.FlowRepository
	notifier    *changeNotifier
}

func NewAccountService(db *gorm.DB, rdb *redis.Client, cfg *config.Config, bus *event.Bus) *AccountService {
	s := &AccountService{
		db:          db,
		rdb:         rdb,
		cfg:         cfg,
		accountRepo: repository.NewAccountRepository(db),
		flowRepo:    repository.NewFlowRepository(db),
		notifier:    newChangeNotifier(db, bus, cfg),
	}
	if bus != nil {
		// 任何账户变动都可能改变排名
		bus.Subscribe(event.KindAccounts, func(event.Event) {
			s.InvalidateLeaderboard(context.Background())
		})
	}
	return s
}

// Identity 身份提供方登录回调给出的用户信息
type Identity struct {
	ID          string
	DisplayName string
	Email       string
	Phone       string
}

// NewAccount 用身份信息构造新账户：生成 6 位数字ID，余额与战绩清零，非管理员
func NewAccount(identity Identity) *model.Account {
	return &model.Account{
		ID:        identity.ID,
		NumericID: idgen.NumericID(),
		Name:      displayName(identity),
		Email:     identity.Email,
		Phone:     identity.Phone,
	}
}

func displayName(identity Identity) string {
	if identity.DisplayName != "" {
		return identity.DisplayName
	}
	if identity.Email != "" {
		return strings.SplitN(identity.Email, "@", 2)[0]
	}
	if identity.Phone != "" {
		return identity.Phone
	}
	return defaultDisplayName
}

// LoadOrCreate 按身份标识读取账户，不存在则创建
// 对同一身份重复调用，数字ID始终是第一次创建时的值
func (s *AccountService) LoadOrCreate(ctx context.Context, identity Identity) (*model.Account, error) {
	if identity.ID == "" {
		return nil, validationErrorf(KindMissingField, "缺少用户身份标识")
	}

	account, err := s.accountRepo.GetByID(ctx, nil, identity.ID)
	if err == nil {
		return account, nil
	}
	if !errors.Is(err, repository.ErrAccountNotFound) {
		return nil, err
	}

	account, err = s.accountRepo.GetOrCreate(ctx, NewAccount(identity))
	if err != nil {
		return nil, err
	}

	log.Printf("新用户注册: id=%s, numericID=%d", account.ID, account.NumericID)
	s.notifier.publish(event.New(event.KindAccounts, "create", account.ID))
	return account, nil
}

func (s *AccountService) GetAccount(ctx context.Context, id string) (*model.Account, error) {
	return s.accountRepo.GetByID(ctx, nil, id)
}

func (s *AccountService) ListAccounts(ctx context.Context, page, pageSize int) ([]*model.Account, int64, error) {
	page, pageSize = normalizePage(page, pageSize)
	return s.accountRepo.List(ctx, page, pageSize)
}

// UpdateProfile 更新展示信息，余额与战绩字段不能通过这里修改
func (s *AccountService) UpdateProfile(ctx context.Context, id, name, phone, avatarURL string) (*model.Account, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, validationErrorf(KindMissingField, "昵称不能为空")
	}

	if err := s.accountRepo.UpdateProfile(ctx, id, name, strings.TrimSpace(phone), strings.TrimSpace(avatarURL)); err != nil {
		return nil, err
	}

	s.notifier.publish(event.New(event.KindAccounts, "profile", id))
	return s.accountRepo.GetByID(ctx, nil, id)
}

func (s *AccountService) SetAdmin(ctx context.Context, id string, isAdmin bool) error {
	if err := s.accountRepo.SetAdmin(ctx, id, isAdmin); err != nil {
		return err
	}
	log.Printf("管理员标记变更: id=%s, isAdmin=%v", id, isAdmin)
	s.notifier.publish(event.New(event.KindAccounts, "admin", id))
	return nil
}

func (s *AccountService) ListFlows(ctx context.Context, id string, page, pageSize int) ([]*model.AccountFlow, int64, error) {
	page, pageSize = normalizePage(page, pageSize)
	return s.flowRepo.ListByUserID(ctx, id, page, pageSize)
}

// ============================================================================
// 排行榜
// ============================================================================

type LeaderboardEntry struct {
	Rank               int    `json:"rank"`
	ID                 string `json:"id"`
	NumericID          int    `json:"numeric_id"`
	Name               string `json:"name"`
	AvatarURL          string `json:"avatar_url,omitempty"`
	TotalKills         int64  `json:"total_kills"`
	TotalEarnings      int64  `json:"total_earnings"`
	TotalMatchesJoined int64  `json:"total_matches_joined"`
}

const leaderboardSize = 100

// Leaderboard 总奖金降序、击杀降序，结果缓存在 Redis，账户变动时失效
func (s *AccountService) Leaderboard(ctx context.Context) ([]LeaderboardEntry, error) {
	key := cache.LeaderboardKey()

	var entries []LeaderboardEntry
	if hit, err := cache.GetJSON(ctx, s.rdb, key, &entries); err != nil {
		log.Printf("[Leaderboard] 读取缓存失败: %v", err)
	} else if hit {
		return entries, nil
	}

	accounts, err := s.accountRepo.Leaderboard(ctx, leaderboardSize)
	if err != nil {
		return nil, err
	}

	entries = make([]LeaderboardEntry, 0, len(accounts))
	for i, a := range accounts {
		entries = append(entries, LeaderboardEntry{
			Rank:               i + 1,
			ID:                 a.ID,
			NumericID:          a.NumericID,
			Name:               a.Name,
			AvatarURL:          a.AvatarURL,
			TotalKills:         a.TotalKills,
			TotalEarnings:      a.TotalEarnings,
			TotalMatchesJoined: a.TotalMatchesJoined,
		})
	}

	if err := cache.SetJSON(ctx, s.rdb, key, entries, s.cfg.Business.LeaderboardTTL()); err != nil {
		log.Printf("[Leaderboard] 写入缓存失败: %v", err)
	}
	return entries, nil
}

func (s *AccountService) InvalidateLeaderboard(ctx context.Context) {
	if err := s.rdb.Del(ctx, cache.LeaderboardKey()).Err(); err != nil {
		log.Printf("[Leaderboard] 清除缓存失败: %v", err)
	}
}

func normalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	return page, pageSize
}
