package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"lob-sim/internal/book"
	"lob-sim/internal/config"
	"lob-sim/internal/execution"
	"lob-sim/internal/indicator"
	"lob-sim/internal/log"
	"lob-sim/internal/sizer"
	"lob-sim/internal/store"
)

// fallbackVIX 与常年均值接近，场景既无显式波动率也无收盘价时使用。
const fallbackVIX = 18.4

func main() {
	var configPath string
	var seed int64
	flag.StringVar(&configPath, "config", "", "配置文件路径，默认使用 configs/config.yaml")
	flag.Int64Var(&seed, "seed", 0, "随机种子，覆盖配置中的 simulation.seed")
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

	if seed == 0 {
		seed = cfg.Simulation.Seed
	}

	tableStore, closeStore, err := openTableStore(cfg)
	if err != nil {
		logger.Error("初始化Q表存储失败", zap.Error(err))
		os.Exit(1)
	}
	defer func() {
		if closeErr := closeStore(); closeErr != nil {
			logger.Warn("关闭存储失败", zap.Error(closeErr))
		}
	}()

	if len(cfg.Simulation.Scenarios) == 0 {
		logger.Warn("配置中没有模拟场景，直接退出")
		return
	}

	sizerCfg := sizer.Config{
		Alpha:        cfg.Sizer.Alpha,
		Gamma:        cfg.Sizer.Gamma,
		Epsilon:      cfg.Sizer.Epsilon,
		EpsilonDecay: cfg.Sizer.EpsilonDecay,
		EpsilonMin:   cfg.Sizer.EpsilonMin,
	}
	positionSizer := sizer.New(sizerCfg, tableStore, rand.New(rand.NewSource(seed)), logger)

	// 先串行取仓位推荐，保证单一随机源只有一个写者；
	// 之后的模拟各自持有独立的订单簿与随机流，可并行。
	scenarios := cfg.Simulation.Scenarios
	sizePcts := make([]float64, len(scenarios))
	for i, scenario := range scenarios {
		state := buildState(scenario, logger)
		sizePcts[i] = positionSizer.Recommend(state)
		logger.Info("仓位推荐",
			zap.String("scenario", scenario.Name),
			zap.String("state", state.Key()),
			zap.Float64("size_pct", sizePcts[i]),
		)
	}

	execCfg := execution.Config{
		TWAPChildren:    cfg.Execution.TWAPChildren,
		TWAPDurationMin: cfg.Execution.TWAPDurationMin,
		VWAPDurationMin: cfg.Execution.VWAPDurationMin,
		ReplenishRatio:  cfg.Execution.ReplenishRatio,
		NoiseSdRatio:    cfg.Execution.NoiseSdRatio,
		DefaultNAVUSD:   cfg.Simulation.NAVUSD,
	}

	results := make([]execution.SimulationResult, len(scenarios))
	group, _ := errgroup.WithContext(context.Background())

	for i, scenario := range scenarios {
		group.Go(func() error {
			rng := rand.New(rand.NewSource(seed + int64(i)))

			spreadBps := scenario.SpreadBps
			if spreadBps <= 0 {
				spreadBps = cfg.Book.DefaultSpreadBps
			}
			lob := book.New(scenario.Ticker, scenario.MidPrice, spreadBps, rng)

			scheduler := execution.NewScheduler(execCfg, rng, logger)
			results[i] = scheduler.Simulate(
				execution.Decision{
					Ticker:     scenario.Ticker,
					Action:     scenario.Action,
					SizePct:    sizePcts[i],
					EntryPrice: scenario.EntryPrice,
				},
				execution.Plan{
					Strategy:            scenario.Strategy,
					DurationMin:         scenario.DurationMin,
					ChildOrders:         scenario.ChildOrders,
					ExpectedSlippageBps: scenario.ExpectedSlippageBps,
				},
				execution.Portfolio{NAVUSD: cfg.Simulation.NAVUSD},
				lob,
			)

			depth := lob.Depth(cfg.Book.DepthLevels)
			logger.Debug("模拟结束后的盘口",
				zap.String("scenario", scenario.Name),
				zap.Float64("mid", depth.Mid),
				zap.Float64("spread_bps", depth.SpreadBps),
				zap.Int("bid_levels", len(depth.Bids)),
				zap.Int("ask_levels", len(depth.Asks)),
			)
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		logger.Error("模拟运行异常", zap.Error(err))
		os.Exit(1)
	}

	for i, result := range results {
		logger.Info("模拟完成",
			zap.String("scenario", scenarios[i].Name),
			zap.String("ticker", result.Ticker),
			zap.String("strategy", string(result.Strategy)),
			zap.String("action", result.Action),
			zap.Float64("target_qty", result.TotalTargetQty),
			zap.Float64("filled_qty", result.TotalFilledQty),
			zap.Float64("fill_rate_pct", result.FillRatePct),
			zap.Float64("avg_fill_price", result.AvgFillPrice),
			zap.Float64("arrival_mid", result.ArrivalMidPrice),
			zap.Float64("expected_slippage_bps", result.ExpectedSlippageBps),
			zap.Float64("actual_slippage_bps", result.ActualSlippageBps),
			zap.Float64("slippage_delta_bps", result.SlippageDeltaBps),
			zap.Float64("notional_usd", result.TotalNotionalUSD),
			zap.Int("children", len(result.Children)),
			zap.Duration("duration", result.Duration),
		)
	}

	logger.Info("全部模拟完成", zap.Int("scenarios", len(results)))
}

// buildState 组装仓位状态；场景缺少显式波动率时退回已实现波动率估算。
func buildState(scenario config.ScenarioConfig, logger *zap.Logger) sizer.State {
	vix := scenario.VIX
	if vix <= 0 && len(scenario.Closes) > 0 {
		estimated, err := indicator.RealizedVolIndex(scenario.Closes, 0)
		if err != nil {
			logger.Warn("估算波动率失败", zap.String("scenario", scenario.Name), zap.Error(err))
		} else {
			vix = estimated
		}
	}
	if vix <= 0 {
		vix = fallbackVIX
	}

	return sizer.State{
		SignalConfidence: scenario.Confidence,
		Regime:           scenario.Regime,
		DrawdownPct:      scenario.DrawdownPct,
		VIX:              vix,
	}
}

// openTableStore 依据配置选择Q表后端，返回存储与释放函数。
func openTableStore(cfg *config.Config) (sizer.TableStore, func() error, error) {
	if cfg.Sizer.Store == "sqlite" {
		sqliteStore, err := store.NewSQLite(cfg.Database)
		if err != nil {
			return nil, nil, err
		}
		qtable, err := store.NewQTableStore(sqliteStore)
		if err != nil {
			_ = sqliteStore.Close()
			return nil, nil, err
		}
		return qtable, sqliteStore.Close, nil
	}
	return sizer.NewFileStore(cfg.Sizer.Path), func() error { return nil }, nil
}
