package indicator

import (
	"math"
	"testing"
)

func TestRealizedVolIndexConstantPrices(t *testing.T) {
	closes := make([]float64, 30)
	for i := range closes {
		closes[i] = 100
	}

	vol, err := RealizedVolIndex(closes, 20)
	if err != nil {
		t.Fatalf("RealizedVolIndex: %v", err)
	}
	if vol != 0 {
		t.Errorf("constant prices must have zero volatility, got %f", vol)
	}
}

func TestRealizedVolIndexPositiveForMovingPrices(t *testing.T) {
	closes := make([]float64, 30)
	for i := range closes {
		// 交替 ±1% 的走势
		if i%2 == 0 {
			closes[i] = 100
		} else {
			closes[i] = 101
		}
	}

	vol, err := RealizedVolIndex(closes, 20)
	if err != nil {
		t.Fatalf("RealizedVolIndex: %v", err)
	}
	if vol <= 0 {
		t.Errorf("expected positive volatility, got %f", vol)
	}
	// ±1% 日波动的年化量级应落在两位数到三位数之间
	if vol < 10 || vol > 500 {
		t.Errorf("volatility magnitude implausible: %f", vol)
	}
}

func TestRealizedVolIndexErrors(t *testing.T) {
	if _, err := RealizedVolIndex([]float64{100, 101}, 20); err == nil {
		t.Errorf("expected error for insufficient closes")
	}
	closes := make([]float64, 30)
	for i := range closes {
		closes[i] = 100
	}
	closes[10] = -1
	if _, err := RealizedVolIndex(closes, 20); err == nil {
		t.Errorf("expected error for non-positive close")
	}

	// window 缺省时退回默认窗口
	valid := make([]float64, 30)
	base := 100.0
	for i := range valid {
		base *= 1 + 0.001*math.Sin(float64(i))
		valid[i] = base
	}
	if _, err := RealizedVolIndex(valid, 0); err != nil {
		t.Errorf("default window should succeed with 30 closes: %v", err)
	}
}
