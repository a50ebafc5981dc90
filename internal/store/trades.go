package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// TradeRecord 为离线训练消费的历史成交记录。
// 记录由外部绩效模块写入，这里只提供回放所需的读取能力。
type TradeRecord struct {
	ID        int64
	Ticker    string
	Action    string // LONG / SHORT
	SizePct   float64
	PnlBps    float64
	Outcome   string // WIN / LOSS / FLAT / VETOED
	CreatedAt time.Time
}

// TradeReader 按时间顺序读取已执行的成交记录。
type TradeReader struct {
	db *sql.DB
}

// NewTradeReader 创建读取器并确保表结构存在。
func NewTradeReader(s *Store) (*TradeReader, error) {
	const schema = `
CREATE TABLE IF NOT EXISTS trade_records (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    ticker     TEXT NOT NULL,
    action     TEXT NOT NULL,
    size_pct   REAL NOT NULL,
    pnl_bps    REAL NOT NULL,
    outcome    TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);`
	if _, err := s.DB().Exec(schema); err != nil {
		return nil, fmt.Errorf("初始化成交记录表失败: %w", err)
	}
	return &TradeReader{db: s.DB()}, nil
}

// ListExecuted 返回全部已执行（非否决）的记录，用于离线回放训练。
func (r *TradeReader) ListExecuted(ctx context.Context) ([]TradeRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, ticker, action, size_pct, pnl_bps, outcome, created_at
FROM trade_records
WHERE outcome IN ('WIN', 'LOSS', 'FLAT')
ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("查询成交记录失败: %w", err)
	}
	defer rows.Close()

	var records []TradeRecord
	for rows.Next() {
		var rec TradeRecord
		if err := rows.Scan(&rec.ID, &rec.Ticker, &rec.Action, &rec.SizePct, &rec.PnlBps, &rec.Outcome, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("扫描成交记录失败: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("遍历成交记录失败: %w", err)
	}
	return records, nil
}

// Insert 写入一条记录，主要用于测试与数据准备。
func (r *TradeReader) Insert(ctx context.Context, rec TradeRecord) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO trade_records (ticker, action, size_pct, pnl_bps, outcome)
VALUES (?, ?, ?, ?, ?)`,
		rec.Ticker, rec.Action, rec.SizePct, rec.PnlBps, rec.Outcome,
	)
	if err != nil {
		return fmt.Errorf("写入成交记录失败: %w", err)
	}
	return nil
}
