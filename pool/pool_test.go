package pool

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"kirogate/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testAccounts(ids ...string) []types.Account {
	accounts := make([]types.Account, 0, len(ids))
	for _, id := range ids {
		accounts = append(accounts, types.Account{ID: id, Name: "账号" + id})
	}
	return accounts
}

func TestSelectEmptyPool(t *testing.T) {
	p := New(nil, types.SelectRoundRobin)
	_, err := p.Select()
	assert.ErrorIs(t, err, ErrNoAccountAvailable)
}

func TestSelectRoundRobin(t *testing.T) {
	p := New(testAccounts("a", "b", "c"), types.SelectRoundRobin)

	var order []string
	for i := 0; i < 6; i++ {
		account, err := p.Select()
		require.NoError(t, err)
		order = append(order, account.ID)
	}
	assert.Equal(t, []string{"a", "b", "c", "a", "b", "c"}, order, "轮询应依次覆盖全部账号")
}

func TestSelectLeastUsed(t *testing.T) {
	p := New([]types.Account{
		{ID: "busy", RequestCount: 10},
		{ID: "idle", RequestCount: 1},
	}, types.SelectLeastUsed)

	account, err := p.Select()
	require.NoError(t, err)
	assert.Equal(t, "idle", account.ID, "最少使用策略应选取请求数最低的账号")
}

func TestSelectRandomOnlyActive(t *testing.T) {
	accounts := testAccounts("a", "b")
	accounts[0].Status = types.AccountInvalid
	p := New(accounts, types.SelectRandom)

	for i := 0; i < 10; i++ {
		account, err := p.Select()
		require.NoError(t, err)
		assert.Equal(t, "b", account.ID, "非active账号不应被选中")
	}
}

func TestSelectCountsRequests(t *testing.T) {
	p := New(testAccounts("a"), types.SelectRoundRobin)

	first, err := p.Select()
	require.NoError(t, err)
	assert.Equal(t, int64(1), first.RequestCount)
	assert.False(t, first.LastUsedAt.IsZero())

	second, err := p.Select()
	require.NoError(t, err)
	assert.Equal(t, int64(2), second.RequestCount, "每次选取应累加请求计数")
}

func TestRecordRateLimitCooldownAndRecovery(t *testing.T) {
	p := New(testAccounts("a"), types.SelectRoundRobin,
		WithCooldownInterval(30*time.Millisecond))

	p.RecordRateLimit("a")

	account, ok := p.Get("a")
	require.True(t, ok)
	assert.Equal(t, types.AccountCooldown, account.Status)
	assert.Equal(t, int64(1), account.ErrorCount)

	_, err := p.Select()
	assert.ErrorIs(t, err, ErrNoAccountAvailable, "冷却中的账号不可选取")

	// 冷却到期后自动恢复
	assert.Eventually(t, func() bool {
		account, _ := p.Get("a")
		return account.Status == types.AccountActive
	}, time.Second, 10*time.Millisecond, "冷却到期后账号应恢复active")
}

func TestCooldownRecoverySuppressedAfterStatusChange(t *testing.T) {
	p := New(testAccounts("a"), types.SelectRoundRobin,
		WithCooldownInterval(30*time.Millisecond))

	p.RecordRateLimit("a")
	require.NoError(t, p.SetStatus("a", types.AccountDisabled))

	// 等待超过冷却时长，定时恢复不应覆盖管理动作
	time.Sleep(100 * time.Millisecond)
	account, _ := p.Get("a")
	assert.Equal(t, types.AccountDisabled, account.Status, "状态已被管理动作改变时定时恢复应被抑制")
}

func TestRecordRateLimitOnNonActiveKeepsStatus(t *testing.T) {
	accounts := testAccounts("a")
	accounts[0].Status = types.AccountInvalid
	p := New(accounts, types.SelectRoundRobin, WithCooldownInterval(time.Minute))

	p.RecordRateLimit("a")
	account, _ := p.Get("a")
	assert.Equal(t, types.AccountInvalid, account.Status, "非active账号限流时不进入冷却")
	assert.Equal(t, int64(1), account.ErrorCount, "错误计数仍然累加")
}

func TestSetStatusUnknownAccount(t *testing.T) {
	p := New(testAccounts("a"), types.SelectRoundRobin)
	assert.ErrorIs(t, p.SetStatus("missing", types.AccountDisabled), ErrAccountNotFound)
}

func TestMarkInvalid(t *testing.T) {
	p := New(testAccounts("a"), types.SelectRoundRobin)
	p.MarkInvalid("a")

	account, _ := p.Get("a")
	assert.Equal(t, types.AccountInvalid, account.Status)

	_, err := p.Select()
	assert.ErrorIs(t, err, ErrNoAccountAvailable)
}

func TestUpdateUsage(t *testing.T) {
	p := New(testAccounts("a"), types.SelectRoundRobin)
	p.UpdateUsage("a", &types.UsageSnapshot{UsageLimit: 100, CurrentUsage: 40, Available: 60})

	account, _ := p.Get("a")
	require.NotNil(t, account.Usage)
	assert.Equal(t, 60, account.Usage.Available)
}

func TestSnapshotIsCopy(t *testing.T) {
	p := New(testAccounts("a"), types.SelectRoundRobin)

	snapshot := p.Snapshot()
	require.Len(t, snapshot, 1)
	snapshot[0].Status = types.AccountDisabled

	account, _ := p.Get("a")
	assert.Equal(t, types.AccountActive, account.Status, "快照修改不应影响池内状态")
}

func TestPersisterRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "accounts.json")
	persister := NewPersister(path)

	p := New(testAccounts("a", "b"), types.SelectRoundRobin, WithPersister(persister))
	_, err := p.Select()
	require.NoError(t, err)

	// 落盘是异步的，轮询等待文件出现
	var loaded []types.Account
	assert.Eventually(t, func() bool {
		loaded, err = LoadRoster(path)
		return err == nil && len(loaded) == 2
	}, time.Second, 10*time.Millisecond, "花名册应被写入磁盘")

	assert.Equal(t, "a", loaded[0].ID)
	assert.Equal(t, int64(1), loaded[0].RequestCount, "落盘内容应包含最新计数")
}

func TestLoadRosterMissingFile(t *testing.T) {
	accounts, err := LoadRoster(filepath.Join(t.TempDir(), "absent.json"))
	assert.NoError(t, err, "文件缺失不是错误")
	assert.Empty(t, accounts)
}

func TestLoadRosterInvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0600))

	_, err := LoadRoster(path)
	assert.Error(t, err)
}
