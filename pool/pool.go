package pool

import (
	"errors"
	"math/rand"
	"sync"
	"time"

	"kirogate/config"
	"kirogate/logger"
	"kirogate/types"
)

// ErrNoAccountAvailable 账号池中没有active状态的账号
var ErrNoAccountAvailable = errors.New("没有可用账号")

// ErrAccountNotFound 指定账号不存在
var ErrAccountNotFound = errors.New("账号不存在")

// Pool 上游账号池，状态变更只发生在本结构内
type Pool struct {
	mu       sync.Mutex
	accounts []*types.Account
	policy   types.SelectionPolicy

	rrIndex int
	// 冷却恢复的世代计数，过期定时器据此失效
	cooldownGen map[string]uint64

	persister *Persister
	cooldown  time.Duration
}

// Option 池的可选配置
type Option func(*Pool)

// WithCooldownInterval 覆盖默认冷却时长
func WithCooldownInterval(d time.Duration) Option {
	return func(p *Pool) { p.cooldown = d }
}

// WithPersister 绑定花名册持久化器
func WithPersister(persister *Persister) Option {
	return func(p *Pool) { p.persister = persister }
}

// New 创建账号池
func New(accounts []types.Account, policy types.SelectionPolicy, opts ...Option) *Pool {
	p := &Pool{
		policy:      policy,
		cooldownGen: make(map[string]uint64),
		cooldown:    config.CooldownInterval,
	}
	for i := range accounts {
		account := accounts[i]
		if account.Status == "" {
			account.Status = types.AccountActive
		}
		p.accounts = append(p.accounts, &account)
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Select 按策略选取一个active账号并记账，返回账号快照
func (p *Pool) Select() (types.Account, error) {
	p.mu.Lock()

	active := make([]*types.Account, 0, len(p.accounts))
	for _, account := range p.accounts {
		if account.Status == types.AccountActive {
			active = append(active, account)
		}
	}
	if len(active) == 0 {
		p.mu.Unlock()
		return types.Account{}, ErrNoAccountAvailable
	}

	var chosen *types.Account
	switch p.policy {
	case types.SelectRandom:
		chosen = active[rand.Intn(len(active))]
	case types.SelectLeastUsed:
		chosen = active[0]
		for _, account := range active[1:] {
			if account.RequestCount < chosen.RequestCount {
				chosen = account
			}
		}
	default: // round_robin
		chosen = active[p.rrIndex%len(active)]
		p.rrIndex++
	}

	chosen.RequestCount++
	chosen.LastUsedAt = time.Now()
	snapshot := chosen.Clone()
	p.mu.Unlock()

	p.schedulePersist()
	return snapshot, nil
}

// RecordRateLimit 记录限流错误，账号进入冷却并安排定时恢复
func (p *Pool) RecordRateLimit(accountID string) {
	p.mu.Lock()
	account := p.findLocked(accountID)
	if account == nil {
		p.mu.Unlock()
		return
	}
	account.ErrorCount++
	if account.Status != types.AccountActive {
		p.mu.Unlock()
		p.schedulePersist()
		return
	}
	account.Status = types.AccountCooldown
	p.cooldownGen[accountID]++
	gen := p.cooldownGen[accountID]
	p.mu.Unlock()

	logger.Warn("账号进入冷却",
		logger.String("account_id", accountID),
		logger.Duration("cooldown", p.cooldown))

	time.AfterFunc(p.cooldown, func() {
		p.recoverFromCooldown(accountID, gen)
	})
	p.schedulePersist()
}

// recoverFromCooldown 冷却到期的一次性恢复，状态或世代变化时放弃
func (p *Pool) recoverFromCooldown(accountID string, gen uint64) {
	p.mu.Lock()
	account := p.findLocked(accountID)
	if account == nil || account.Status != types.AccountCooldown || p.cooldownGen[accountID] != gen {
		p.mu.Unlock()
		return
	}
	account.Status = types.AccountActive
	p.mu.Unlock()

	logger.Info("账号冷却结束，恢复可用", logger.String("account_id", accountID))
	p.schedulePersist()
}

// RecordError 记录一次非限流错误
func (p *Pool) RecordError(accountID string) {
	p.mu.Lock()
	if account := p.findLocked(accountID); account != nil {
		account.ErrorCount++
	}
	p.mu.Unlock()
	p.schedulePersist()
}

// SetStatus 管理动作直接设置账号状态
func (p *Pool) SetStatus(accountID string, status types.AccountStatus) error {
	p.mu.Lock()
	account := p.findLocked(accountID)
	if account == nil {
		p.mu.Unlock()
		return ErrAccountNotFound
	}
	account.Status = status
	// 世代前进使在途的冷却恢复失效
	p.cooldownGen[accountID]++
	p.mu.Unlock()

	p.schedulePersist()
	return nil
}

// MarkInvalid 持续认证失败后将账号置为invalid
func (p *Pool) MarkInvalid(accountID string) {
	if err := p.SetStatus(accountID, types.AccountInvalid); err == nil {
		logger.Error("账号已置为invalid", logger.String("account_id", accountID))
	}
}

// UpdateUsage 刷新账号的用量快照
func (p *Pool) UpdateUsage(accountID string, usage *types.UsageSnapshot) {
	p.mu.Lock()
	if account := p.findLocked(accountID); account != nil {
		account.Usage = usage
	}
	p.mu.Unlock()
	p.schedulePersist()
}

// Snapshot 返回全部账号的拷贝，用于状态接口与持久化
func (p *Pool) Snapshot() []types.Account {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]types.Account, 0, len(p.accounts))
	for _, account := range p.accounts {
		out = append(out, account.Clone())
	}
	return out
}

// Get 按ID返回账号快照
func (p *Pool) Get(accountID string) (types.Account, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if account := p.findLocked(accountID); account != nil {
		return account.Clone(), true
	}
	return types.Account{}, false
}

func (p *Pool) findLocked(accountID string) *types.Account {
	for _, account := range p.accounts {
		if account.ID == accountID {
			return account
		}
	}
	return nil
}

// schedulePersist 请求一次花名册落盘，不阻塞调用方
func (p *Pool) schedulePersist() {
	if p.persister == nil {
		return
	}
	p.persister.Request(p.Snapshot)
}
