package indicator

import (
	"fmt"
	"math"

	talib "github.com/markcheno/go-talib"
)

// defaultWindow 为已实现波动率的默认滚动窗口（交易日）。
const defaultWindow = 20

// RealizedVolIndex 用收盘价序列估算年化已实现波动率（百分比）。
// 量纲与 VIX 对齐，场景未提供外部波动率时作为仓位状态的回退来源。
func RealizedVolIndex(closes []float64, window int) (float64, error) {
	if window <= 1 {
		window = defaultWindow
	}
	if len(closes) < window+1 {
		return 0, fmt.Errorf("计算波动率失败: 收盘价数量不足，至少需要 %d 个", window+1)
	}

	returns := make([]float64, 0, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		if closes[i-1] <= 0 || closes[i] <= 0 {
			return 0, fmt.Errorf("计算波动率失败: 收盘价必须为正")
		}
		returns = append(returns, math.Log(closes[i]/closes[i-1]))
	}

	std := talib.StdDev(returns, window, 1)
	latest := std[len(std)-1]
	if math.IsNaN(latest) {
		return 0, fmt.Errorf("计算波动率失败: 窗口内数据无效")
	}

	// 按 252 个交易日年化
	return latest * math.Sqrt(252) * 100, nil
}
