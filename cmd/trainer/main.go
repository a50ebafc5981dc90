package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"time"

	"go.uber.org/zap"

	"lob-sim/internal/config"
	"lob-sim/internal/log"
	"lob-sim/internal/sizer"
	"lob-sim/internal/store"
)

func main() {
	var configPath string
	var epochs int
	var verbose bool
	var reset bool
	flag.StringVar(&configPath, "config", "", "配置文件路径，默认使用 configs/config.yaml")
	flag.IntVar(&epochs, "epochs", 3, "对历史记录的回放轮数")
	flag.BoolVar(&verbose, "verbose", false, "打印每条记录的更新详情")
	flag.BoolVar(&reset, "reset", false, "训练前清空已有Q表")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	logger, err := log.NewLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer func(logger *zap.Logger) {
		_ = logger.Sync()
	}(logger)

	sqliteStore, err := store.NewSQLite(cfg.Database)
	if err != nil {
		logger.Error("初始化数据库失败", zap.Error(err))
		os.Exit(1)
	}
	defer func() {
		if closeErr := sqliteStore.Close(); closeErr != nil {
			logger.Warn("关闭数据库失败", zap.Error(closeErr))
		}
	}()

	reader, err := store.NewTradeReader(sqliteStore)
	if err != nil {
		logger.Error("初始化成交记录读取失败", zap.Error(err))
		os.Exit(1)
	}

	records, err := reader.ListExecuted(context.Background())
	if err != nil {
		logger.Error("读取成交记录失败", zap.Error(err))
		os.Exit(1)
	}
	if len(records) == 0 {
		logger.Info("没有可回放的成交记录，先运行模拟产生数据")
		return
	}

	tableStore, err := openTableStore(cfg, sqliteStore)
	if err != nil {
		logger.Error("初始化Q表存储失败", zap.Error(err))
		os.Exit(1)
	}

	sizerCfg := sizer.Config{
		Alpha:        cfg.Sizer.Alpha,
		Gamma:        cfg.Sizer.Gamma,
		Epsilon:      cfg.Sizer.Epsilon,
		EpsilonDecay: cfg.Sizer.EpsilonDecay,
		EpsilonMin:   cfg.Sizer.EpsilonMin,
	}
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	positionSizer := sizer.New(sizerCfg, tableStore, rng, logger)

	if reset {
		positionSizer.Reset()
		logger.Info("已清空Q表，从零开始训练")
	}

	stepBefore := positionSizer.Step()
	logger.Info("离线训练开始",
		zap.Int("records", len(records)),
		zap.Int("epochs", epochs),
	)

	var totalReward float64
	totalUpdates := 0

	for epoch := 1; epoch <= epochs; epoch++ {
		var epochReward float64
		for i, record := range records {
			state := recordToState(record)

			var next *sizer.State
			if i+1 < len(records) {
				nextState := recordToState(records[i+1])
				next = &nextState
			}

			positionSizer.Update(state, record.SizePct, record.PnlBps, next)
			epochReward += record.PnlBps
			totalReward += record.PnlBps
			totalUpdates++

			if verbose {
				logger.Info("回放更新",
					zap.Int("epoch", epoch),
					zap.String("ticker", record.Ticker),
					zap.String("action", record.Action),
					zap.Float64("size_pct", record.SizePct),
					zap.Float64("reward_bps", record.PnlBps),
				)
			}
		}

		logger.Info("回放轮次完成",
			zap.Int("epoch", epoch),
			zap.Float64("avg_reward_bps", epochReward/float64(len(records))),
			zap.Float64("epsilon", positionSizer.Epsilon()),
		)
	}

	if err := positionSizer.Save(); err != nil {
		logger.Error("保存Q表失败", zap.Error(err))
		os.Exit(1)
	}

	summary := positionSizer.Summary()
	logger.Info("离线训练完成",
		zap.Int("step_before", stepBefore),
		zap.Int("step_after", summary.Step),
		zap.Int("total_updates", totalUpdates),
		zap.Float64("avg_reward_bps", totalReward/float64(totalUpdates)),
		zap.Int("states_visited", summary.StatesVisited),
		zap.Float64("epsilon", summary.Epsilon),
	)
	for _, entry := range summary.Policy {
		logger.Info("贪心策略",
			zap.String("state", entry.StateKey),
			zap.Float64("best_action_pct", entry.BestActionPct),
		)
	}
}

// recordToState 从历史记录近似重建状态。
// 记录中未保存完整的研究载荷，置信度与风格按结果和方向推断，
// 回撤与波动率暂用默认值。
func recordToState(record store.TradeRecord) sizer.State {
	confidence := 0.5
	if record.Outcome == "WIN" {
		confidence = 0.8
	}
	regime := "RISK_OFF"
	if record.Action == "LONG" {
		regime = "RISK_ON"
	}
	return sizer.State{
		SignalConfidence: confidence,
		Regime:           regime,
		DrawdownPct:      0,
		VIX:              18.4,
	}
}

func openTableStore(cfg *config.Config, sqliteStore *store.Store) (sizer.TableStore, error) {
	if cfg.Sizer.Store == "sqlite" {
		return store.NewQTableStore(sqliteStore)
	}
	return sizer.NewFileStore(cfg.Sizer.Path), nil
}
