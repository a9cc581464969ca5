package pool

import (
	"fmt"
	"os"
	"sync"

	"kirogate/logger"
	"kirogate/types"
	"kirogate/utils"
)

// Persister 花名册的合并落盘器，写请求可合并但最终盘面等于最后一次内存状态
type Persister struct {
	path string

	mu      sync.Mutex
	writing bool
	pending bool
}

// NewPersister 创建花名册持久化器
func NewPersister(path string) *Persister {
	return &Persister{path: path}
}

// LoadRoster 从磁盘加载账号花名册，文件缺失时返回空列表
func LoadRoster(path string) ([]types.Account, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("读取账号文件失败: %w", err)
	}

	var accounts []types.Account
	if err := utils.SafeUnmarshal(data, &accounts); err != nil {
		return nil, fmt.Errorf("解析账号文件失败: %w", err)
	}
	return accounts, nil
}

// Request 请求一次落盘，写进行中时只做标记，由写完成后的收尾补写
func (w *Persister) Request(snapshot func() []types.Account) {
	w.mu.Lock()
	if w.writing {
		w.pending = true
		w.mu.Unlock()
		return
	}
	w.writing = true
	w.mu.Unlock()

	go w.writeLoop(snapshot)
}

// writeLoop 持续落盘直到没有挂起的写请求
func (w *Persister) writeLoop(snapshot func() []types.Account) {
	for {
		if err := w.writeOnce(snapshot()); err != nil {
			logger.Error("账号花名册落盘失败", logger.Err(err), logger.String("path", w.path))
		}

		w.mu.Lock()
		if !w.pending {
			w.writing = false
			w.mu.Unlock()
			return
		}
		w.pending = false
		w.mu.Unlock()
	}
}

// writeOnce 临时文件加原子改名，避免半写状态
func (w *Persister) writeOnce(accounts []types.Account) error {
	data, err := utils.SafeMarshalIndent(accounts, "", "  ")
	if err != nil {
		return fmt.Errorf("序列化账号花名册失败: %w", err)
	}

	tempPath := w.path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0600); err != nil {
		return fmt.Errorf("写入临时文件失败: %w", err)
	}
	if err := os.Rename(tempPath, w.path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("替换账号文件失败: %w", err)
	}
	return nil
}
