package event

import (
	"log"
	"sync"
	"time"
)

// Kind 变更所属的数据集合，订阅方按集合订阅，只重新读取自己关心的数据
type Kind string

const (
	KindAccounts     Kind = "accounts"
	KindMatches      Kind = "matches"
	KindTransactions Kind = "transactions"
	KindSettings     Kind = "settings"
)

// Event 一次已提交的数据变更
type Event struct {
	Kind   Kind      `json:"kind"`
	Action string    `json:"action"`
	IDs    []string  `json:"ids,omitempty"`
	Owners []string  `json:"owners,omitempty"` // 交易事件所属用户
	At     time.Time `json:"at"`
}

func New(kind Kind, action string, ids ...string) Event {
	return Event{Kind: kind, Action: action, IDs: ids, At: time.Now()}
}

// WithOwners 标记事件所属用户
func (e Event) WithOwners(userIDs ...string) Event {
	e.Owners = userIDs
	return e
}

// ScopedTo 返回普通用户能看到的事件视图。
// 账户事件只保留该用户自己的 ID，交易事件只推给所属用户，其余集合是公开数据。
func (e Event) ScopedTo(userID string) (Event, bool) {
	switch e.Kind {
	case KindAccounts:
		if !contains(e.IDs, userID) {
			return Event{}, false
		}
		e.IDs = []string{userID}
		return e, true
	case KindTransactions:
		if !contains(e.Owners, userID) {
			return Event{}, false
		}
		e.Owners = []string{userID}
		return e, true
	}
	return e, true
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

type Handler func(Event)

// Bus 进程内事件总线
//
// Publish 在调用方 goroutine 中同步执行订阅者，订阅者看到的一定是刚提交的数据。
// 订阅者 panic 只记录日志，不影响其他订阅者和发布方。
type Bus struct {
	mu     sync.RWMutex
	nextID int
	subs   map[Kind]map[int]Handler
	all    map[int]Handler
}

func NewBus() *Bus {
	return &Bus{
		subs: make(map[Kind]map[int]Handler),
		all:  make(map[int]Handler),
	}
}

// Subscribe 订阅某一类变更，返回取消订阅函数
func (b *Bus) Subscribe(kind Kind, h Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	if b.subs[kind] == nil {
		b.subs[kind] = make(map[int]Handler)
	}
	b.subs[kind][id] = h

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.subs[kind], id)
	}
}

// SubscribeAll 订阅全部变更
func (b *Bus) SubscribeAll(h Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	b.all[id] = h

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.all, id)
	}
}

func (b *Bus) Publish(events ...Event) {
	for _, e := range events {
		for _, h := range b.handlers(e.Kind) {
			b.dispatch(h, e)
		}
	}
}

func (b *Bus) handlers(kind Kind) []Handler {
	b.mu.RLock()
	defer b.mu.RUnlock()

	hs := make([]Handler, 0, len(b.subs[kind])+len(b.all))
	for _, h := range b.subs[kind] {
		hs = append(hs, h)
	}
	for _, h := range b.all {
		hs = append(hs, h)
	}
	return hs
}

func (b *Bus) dispatch(h Handler, e Event) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[EventBus] 订阅者处理失败: kind=%s, action=%s, panic=%v", e.Kind, e.Action, r)
		}
	}()
	h(e)
}
