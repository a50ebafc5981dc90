package sizer

import (
	"fmt"
	"strings"
)

// State 汇总驱动仓位决策的市场与组合因子。
type State struct {
	SignalConfidence float64 // 信号置信度 0–1
	Regime           string  // 自由文本的市场风格标签
	DrawdownPct      float64 // 当前回撤百分比 0–100
	VIX              float64 // 波动率指数
}

// Key 把连续状态离散化为 "conf|regime|dd|vix" 形式的桶键。
// 四个因子各三个桶，最多 81 个不同状态。
func (s State) Key() string {
	var conf string
	switch {
	case s.SignalConfidence < 0.5:
		conf = "low"
	case s.SignalConfidence < 0.75:
		conf = "med"
	default:
		conf = "high"
	}

	regime := "neutral"
	raw := strings.ToUpper(s.Regime)
	switch {
	case strings.Contains(raw, "ON") || strings.Contains(raw, "BULL"):
		regime = "on"
	case strings.Contains(raw, "OFF") || strings.Contains(raw, "BEAR"):
		regime = "off"
	}

	var dd string
	switch {
	case s.DrawdownPct < 3:
		dd = "ok"
	case s.DrawdownPct < 7:
		dd = "caution"
	default:
		dd = "danger"
	}

	var vix string
	switch {
	case s.VIX < 15:
		vix = "calm"
	case s.VIX < 25:
		vix = "normal"
	default:
		vix = "stressed"
	}

	return fmt.Sprintf("%s|%s|%s|%s", conf, regime, dd, vix)
}
