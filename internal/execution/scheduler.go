package execution

import (
	"math"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"lob-sim/internal/book"
)

// Config 控制拆单调度的默认行为。
type Config struct {
	TWAPChildren    int     // TWAP 默认子单数
	TWAPDurationMin float64 // TWAP 默认执行时长（分钟）
	VWAPDurationMin float64 // VWAP 默认执行时长（分钟），全交易日为 390
	ReplenishRatio  float64 // 每个子单成交后按比例回补对手盘
	NoiseSdRatio    float64 // 子单间中间价漂移的标准差（相对入场价）
	DefaultNAVUSD   float64 // 组合净值缺省值
}

func (c Config) normalize() Config {
	cfg := c
	if cfg.TWAPChildren <= 0 {
		cfg.TWAPChildren = 6
	}
	if cfg.TWAPDurationMin <= 0 {
		cfg.TWAPDurationMin = 30
	}
	if cfg.VWAPDurationMin <= 0 {
		cfg.VWAPDurationMin = 390
	}
	if cfg.ReplenishRatio <= 0 {
		cfg.ReplenishRatio = 0.3
	}
	if cfg.NoiseSdRatio <= 0 {
		cfg.NoiseSdRatio = 0.0005
	}
	if cfg.DefaultNAVUSD <= 0 {
		cfg.DefaultNAVUSD = 10_000_000
	}
	return cfg
}

// Scheduler 把一次交易决策按策略拆分成对订单簿的子单序列并汇总结果。
type Scheduler struct {
	cfg    Config
	rng    *rand.Rand
	logger *zap.Logger
}

// NewScheduler 创建调度器。rng 为 nil 时使用时间种子；确定性测试必须显式注入。
func NewScheduler(cfg Config, rng *rand.Rand, logger *zap.Logger) *Scheduler {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		cfg:    cfg.normalize(),
		rng:    rng,
		logger: logger,
	}
}

// Simulate 执行一次完整的模拟：按策略生成子单序列，逐个撮合并回补流动性。
// 目标数量为零或为负时降级为全零结果而非报错。
func (s *Scheduler) Simulate(decision Decision, plan Plan, portfolio Portfolio, lob *book.Book) SimulationResult {
	strategy := ParseStrategy(plan.Strategy)

	sizePct := decision.SizePct
	if sizePct <= 0 {
		sizePct = plan.AdjustedSizePct
	}

	entry := decision.EntryPrice
	if entry <= 0 {
		if mid, ok := lob.Mid(); ok {
			entry = mid
		} else {
			entry = 100.0
		}
	}

	nav := portfolio.NAVUSD
	if nav <= 0 {
		nav = s.cfg.DefaultNAVUSD
	}

	ticker := decision.Ticker
	if ticker == "" {
		ticker = lob.Ticker()
	}

	side := actionToSide(decision.Action)
	totalQty := navToQty(nav, sizePct, entry)

	arrivalMid := entry
	if mid, ok := lob.Mid(); ok {
		arrivalMid = mid
	}

	if totalQty <= 0 {
		s.logger.Warn("目标数量无效，降级为零结果",
			zap.String("ticker", ticker),
			zap.Float64("size_pct", sizePct),
			zap.Float64("entry_price", entry),
		)
		result := aggregate(ticker, decision.Action, strategy, nil, arrivalMid, 0, plan.ExpectedSlippageBps, 0)
		result.Notes = "目标数量无效，未执行"
		return result
	}

	childQtys, durationMin := s.sliceTargets(strategy, plan, totalQty)

	interval := time.Duration(0)
	if n := len(childQtys); n > 0 && durationMin > 0 {
		interval = time.Duration(durationMin * 60 / float64(n) * float64(time.Second))
	}

	children := make([]ChildOrderResult, 0, len(childQtys))
	elapsed := time.Duration(0)

	for i, childQty := range childQtys {
		// 子单之间用零均值高斯噪声模拟自然漂移
		noise := s.rng.NormFloat64() * entry * s.cfg.NoiseSdRatio
		newMid := arrivalMid + noise
		lob.SetReferenceMid(newMid)

		result, err := lob.MatchMarketOrder(side, childQty)
		if err != nil {
			s.logger.Warn("子单撮合失败", zap.Int("child", i+1), zap.Error(err))
			break
		}

		s.replenish(lob, side, newMid, result.TotalFilledQty*s.cfg.ReplenishRatio)

		children = append(children, ChildOrderResult{
			ChildIndex:   i + 1,
			Side:         side,
			TargetQty:    childQty,
			Fills:        result.Fills,
			AvgFillPrice: result.AvgFillPrice,
			FilledQty:    result.TotalFilledQty,
			UnfilledQty:  result.UnfilledQty,
			SlippageBps:  result.SlippageBps,
			Offset:       elapsed,
		})

		s.logger.Debug("子单完成",
			zap.Int("child", i+1),
			zap.Float64("target_qty", childQty),
			zap.Float64("filled_qty", result.TotalFilledQty),
			zap.Float64("slippage_bps", result.SlippageBps),
		)

		elapsed += interval
	}

	duration := time.Duration(durationMin * 60 * float64(time.Second))
	return aggregate(ticker, decision.Action, strategy, children, arrivalMid, totalQty, plan.ExpectedSlippageBps, duration)
}

// sliceTargets 按策略计算每个子单的目标数量与总时长（分钟）。
func (s *Scheduler) sliceTargets(strategy Strategy, plan Plan, totalQty float64) ([]float64, float64) {
	switch strategy {
	case StrategyMarket:
		return []float64{totalQty}, 0

	case StrategyVWAP:
		n := plan.ChildOrders
		if n <= 0 || n > len(vwapWeights) {
			n = len(vwapWeights)
		}
		duration := plan.DurationMin
		if duration <= 0 {
			duration = s.cfg.VWAPDurationMin
		}

		// 取前 n 个权重并归一化
		weights := vwapWeights[:n]
		var sum float64
		for _, w := range weights {
			sum += w
		}
		qtys := make([]float64, n)
		for i, w := range weights {
			qtys[i] = totalQty * w / sum
		}
		return qtys, duration

	default: // TWAP
		n := plan.ChildOrders
		if n <= 0 {
			n = s.cfg.TWAPChildren
		}
		duration := plan.DurationMin
		if duration <= 0 {
			duration = s.cfg.TWAPDurationMin
		}
		qtys := make([]float64, n)
		for i := range qtys {
			qtys[i] = totalQty / float64(n)
		}
		return qtys, duration
	}
}

// replenish 在对手盘回补少量挂单，价格为新中间价外推半个报价价差。
// 防止长调度耗尽流动性，同时保留可见的价格冲击。
func (s *Scheduler) replenish(lob *book.Book, side book.TakerSide, mid, qty float64) {
	if qty <= 0 || mid <= 0 {
		return
	}
	halfSpread := mid * lob.QuotedSpreadBps() / 2 / 10_000
	if side == book.TakerBuy {
		_ = lob.AddLimitOrder(book.SideAsk, roundPrice(mid+halfSpread), qty)
		return
	}
	_ = lob.AddLimitOrder(book.SideBid, roundPrice(mid-halfSpread), qty)
}

func navToQty(navUSD, sizePct, price float64) float64 {
	if price <= 0 {
		return 0
	}
	return navUSD * sizePct / 100 / price
}

func aggregate(ticker, action string, strategy Strategy, children []ChildOrderResult, arrivalMid, totalQty, expectedSlippage float64, duration time.Duration) SimulationResult {
	var totalFilled, weightedSum float64
	for _, c := range children {
		totalFilled += c.FilledQty
		if c.FilledQty > 0 {
			weightedSum += c.AvgFillPrice * c.FilledQty
		}
	}

	fillRate := 0.0
	if totalQty > 0 {
		fillRate = totalFilled / totalQty * 100
	}

	avgFill := arrivalMid
	if totalFilled > 0 {
		avgFill = weightedSum / totalFilled
	}

	actualSlippage := 0.0
	if arrivalMid > 0 {
		actualSlippage = math.Abs(avgFill-arrivalMid) / arrivalMid * 10_000
	}

	return SimulationResult{
		Ticker:              ticker,
		Action:              action,
		Strategy:            strategy,
		TotalTargetQty:      totalQty,
		TotalFilledQty:      totalFilled,
		UnfilledQty:         totalQty - totalFilled,
		FillRatePct:         fillRate,
		AvgFillPrice:        avgFill,
		ArrivalMidPrice:     arrivalMid,
		ExpectedSlippageBps: expectedSlippage,
		ActualSlippageBps:   actualSlippage,
		SlippageDeltaBps:    actualSlippage - expectedSlippage,
		TotalNotionalUSD:    avgFill * totalFilled,
		Children:            children,
		Duration:            duration,
	}
}

func roundPrice(v float64) float64 {
	return math.Round(v*10_000) / 10_000
}
