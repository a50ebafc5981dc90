package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"lob-sim/internal/sizer"
)

// QTableStore 把Q表快照持久化到 SQLite，单行单快照。
// 实现 sizer.TableStore，可与文件存储互换。
type QTableStore struct {
	db *sql.DB
}

// NewQTableStore 创建存储并确保表结构存在。
func NewQTableStore(s *Store) (*QTableStore, error) {
	const schema = `
CREATE TABLE IF NOT EXISTS rl_snapshot (
    id      INTEGER PRIMARY KEY CHECK (id = 1),
    payload TEXT NOT NULL
);`
	if _, err := s.DB().Exec(schema); err != nil {
		return nil, fmt.Errorf("初始化Q表存储失败: %w", err)
	}
	return &QTableStore{db: s.DB()}, nil
}

// Load 读取快照，不存在时返回空快照且不报错。
func (q *QTableStore) Load() (sizer.Snapshot, bool, error) {
	var payload string
	err := q.db.QueryRow("SELECT payload FROM rl_snapshot WHERE id = 1").Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return sizer.Snapshot{}, false, nil
	}
	if err != nil {
		return sizer.Snapshot{}, false, fmt.Errorf("读取Q表快照失败: %w", err)
	}

	var snapshot sizer.Snapshot
	if err := json.Unmarshal([]byte(payload), &snapshot); err != nil {
		return sizer.Snapshot{}, false, fmt.Errorf("解析Q表快照失败: %w", err)
	}
	return snapshot, true, nil
}

// Save 覆盖写入快照。
func (q *QTableStore) Save(snapshot sizer.Snapshot) error {
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("序列化Q表快照失败: %w", err)
	}
	_, err = q.db.Exec(
		"INSERT INTO rl_snapshot (id, payload) VALUES (1, ?) ON CONFLICT (id) DO UPDATE SET payload = excluded.payload",
		string(payload),
	)
	if err != nil {
		return fmt.Errorf("写入Q表快照失败: %w", err)
	}
	return nil
}
