package execution

import (
	"strings"

	"lob-sim/internal/book"
)

// Strategy 表示拆单策略。
type Strategy string

const (
	StrategyMarket Strategy = "MARKET"
	StrategyTWAP   Strategy = "TWAP"
	StrategyVWAP   Strategy = "VWAP"
)

// vwapWeights 为 NYSE 风格的 U 型日内成交量曲线（16 个 30 分钟桶）。
// 开盘与收盘前权重最高，午间最低。
var vwapWeights = []float64{
	0.085, 0.062, 0.048, 0.041, 0.038, 0.036, // 09:30–12:00
	0.034, 0.033, 0.034, 0.036, 0.038, 0.041, // 12:00–15:00
	0.052, 0.068, 0.094, 0.120, // 15:00–16:00 收盘冲刺
}

// ParseStrategy 解析计划中的策略字段，大小写不敏感。
// LIMIT/ICEBERG 及无法识别的值回退到 TWAP 拆单逻辑。
func ParseStrategy(raw string) Strategy {
	switch Strategy(strings.ToUpper(strings.TrimSpace(raw))) {
	case StrategyMarket:
		return StrategyMarket
	case StrategyVWAP:
		return StrategyVWAP
	default:
		return StrategyTWAP
	}
}

// 把 LONG/BUY 映射为吃卖方，SHORT/SELL 映射为吃买方。
func actionToSide(action string) book.TakerSide {
	switch strings.ToUpper(strings.TrimSpace(action)) {
	case "LONG", "BUY":
		return book.TakerBuy
	default:
		return book.TakerSell
	}
}
