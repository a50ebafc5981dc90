package sizer

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// Snapshot 为可持久化的完整学习状态：Q表、当前探索率与更新步数。
type Snapshot struct {
	Table   map[string]map[string]float64 `json:"q_table"`
	Epsilon float64                       `json:"epsilon"`
	Step    int                           `json:"step"`
	Actions []float64                     `json:"actions"`
}

// TableStore 抽象Q表的持久化边界，便于替换后端存储。
// Load 的第二个返回值表示存储中是否已有快照。
type TableStore interface {
	Load() (Snapshot, bool, error)
	Save(Snapshot) error
}

// FileStore 以 JSON 文件保存快照。
type FileStore struct {
	path string
}

// NewFileStore 创建基于文件的快照存储。
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load 读取快照文件，文件不存在时返回空快照且不报错。
func (s *FileStore) Load() (Snapshot, bool, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Snapshot{}, false, nil
		}
		return Snapshot{}, false, fmt.Errorf("读取Q表文件失败: %w", err)
	}

	var snapshot Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return Snapshot{}, false, fmt.Errorf("解析Q表文件失败: %w", err)
	}
	return snapshot, true, nil
}

// Save 将快照写入文件，必要时创建目录。
func (s *FileStore) Save(snapshot Snapshot) error {
	if dir := filepath.Dir(s.path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("创建Q表目录失败: %w", err)
		}
	}

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return fmt.Errorf("序列化Q表失败: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("写入Q表文件失败: %w", err)
	}
	return nil
}
