package execution

import (
	"math"
	"math/rand"
	"testing"

	"lob-sim/internal/book"
)

func newTestScheduler(seed int64) *Scheduler {
	return NewScheduler(Config{}, rand.New(rand.NewSource(seed)), nil)
}

func TestParseStrategy(t *testing.T) {
	cases := map[string]Strategy{
		"MARKET":  StrategyMarket,
		"market":  StrategyMarket,
		"VWAP":    StrategyVWAP,
		" vwap ":  StrategyVWAP,
		"TWAP":    StrategyTWAP,
		"LIMIT":   StrategyTWAP,
		"ICEBERG": StrategyTWAP,
		"":        StrategyTWAP,
		"unknown": StrategyTWAP,
	}
	for raw, want := range cases {
		if got := ParseStrategy(raw); got != want {
			t.Errorf("ParseStrategy(%q) = %s, want %s", raw, got, want)
		}
	}
}

func TestTWAPSliceTargets(t *testing.T) {
	s := newTestScheduler(1)

	qtys, duration := s.sliceTargets(StrategyTWAP, Plan{ChildOrders: 4, DurationMin: 20}, 1000)
	if len(qtys) != 4 {
		t.Fatalf("expected 4 children, got %d", len(qtys))
	}
	var sum float64
	for _, q := range qtys {
		if math.Abs(q-250) > 1e-9 {
			t.Errorf("expected each child target 250, got %f", q)
		}
		sum += q
	}
	if math.Abs(sum-1000) > 1e-9 {
		t.Errorf("child targets must sum to total, got %f", sum)
	}
	if duration != 20 {
		t.Errorf("expected duration 20, got %f", duration)
	}

	// 未指定子单数时使用默认值
	qtys, duration = s.sliceTargets(StrategyTWAP, Plan{}, 600)
	if len(qtys) != 6 {
		t.Errorf("expected default 6 children, got %d", len(qtys))
	}
	if duration != 30 {
		t.Errorf("expected default duration 30, got %f", duration)
	}
}

func TestVWAPSliceTargets(t *testing.T) {
	s := newTestScheduler(2)

	for _, n := range []int{1, 4, 10, 16} {
		qtys, _ := s.sliceTargets(StrategyVWAP, Plan{ChildOrders: n}, 1000)
		if len(qtys) != n {
			t.Fatalf("n=%d: expected %d children, got %d", n, n, len(qtys))
		}
		var sum float64
		for _, q := range qtys {
			sum += q
		}
		if math.Abs(sum-1000) > 1e-6 {
			t.Errorf("n=%d: renormalized targets must sum to total, got %f", n, sum)
		}
	}

	// 超出曲线桶数时截断到 16
	qtys, duration := s.sliceTargets(StrategyVWAP, Plan{ChildOrders: 40}, 1000)
	if len(qtys) != 16 {
		t.Errorf("expected cap at 16 children, got %d", len(qtys))
	}
	if duration != 390 {
		t.Errorf("expected default full-session duration 390, got %f", duration)
	}

	// U 型曲线：收盘桶重于午间桶
	qtys, _ = s.sliceTargets(StrategyVWAP, Plan{ChildOrders: 16}, 1000)
	if qtys[15] <= qtys[7] {
		t.Errorf("close bucket should outweigh midday bucket: %f vs %f", qtys[15], qtys[7])
	}
}

func TestMarketStrategySingleChild(t *testing.T) {
	s := newTestScheduler(3)
	lob := book.New("NVDA", 150, 5, rand.New(rand.NewSource(3)))

	result := s.Simulate(
		Decision{Ticker: "NVDA", Action: "LONG", SizePct: 1.0, EntryPrice: 150},
		Plan{Strategy: "MARKET"},
		Portfolio{NAVUSD: 1_000_000},
		lob,
	)

	if result.Strategy != StrategyMarket {
		t.Errorf("expected MARKET strategy, got %s", result.Strategy)
	}
	if len(result.Children) != 1 {
		t.Fatalf("expected single child, got %d", len(result.Children))
	}
	if result.Duration != 0 {
		t.Errorf("expected zero duration, got %s", result.Duration)
	}
	if result.Children[0].Side != book.TakerBuy {
		t.Errorf("LONG should consume asks, got side %s", result.Children[0].Side)
	}
}

func TestTWAPFullFillScenario(t *testing.T) {
	s := newTestScheduler(4)
	lob := book.New("NVDA", 150, 5, rand.New(rand.NewSource(4)))

	// NAV 与入场价选择使目标恰为 1000 股
	result := s.Simulate(
		Decision{Ticker: "NVDA", Action: "LONG", SizePct: 1.5, EntryPrice: 150},
		Plan{Strategy: "TWAP", DurationMin: 30, ChildOrders: 4, ExpectedSlippageBps: 2},
		Portfolio{NAVUSD: 10_000_000},
		lob,
	)

	if math.Abs(result.TotalTargetQty-1000) > 1e-9 {
		t.Fatalf("expected target 1000 shares, got %f", result.TotalTargetQty)
	}
	if len(result.Children) != 4 {
		t.Fatalf("expected 4 children, got %d", len(result.Children))
	}
	for _, child := range result.Children {
		if math.Abs(child.TargetQty-250) > 1e-9 {
			t.Errorf("expected child target 250, got %f", child.TargetQty)
		}
	}
	if result.FillRatePct != 100.0 {
		t.Errorf("expected full fill, rate=%f", result.FillRatePct)
	}
	if slip := math.Abs(result.AvgFillPrice-150) / 150 * 10_000; slip > 10 {
		t.Errorf("avg fill should stay within a few bps of 150, got %f (%.1f bps)", result.AvgFillPrice, slip)
	}
	if math.Abs(result.SlippageDeltaBps-(result.ActualSlippageBps-2)) > 1e-9 {
		t.Errorf("slippage delta mismatch: %f", result.SlippageDeltaBps)
	}
	if math.Abs(result.TotalNotionalUSD-result.AvgFillPrice*result.TotalFilledQty) > 1e-6 {
		t.Errorf("notional mismatch: %f", result.TotalNotionalUSD)
	}
}

func TestQuantityConservationAcrossChildren(t *testing.T) {
	s := newTestScheduler(5)
	lob := book.New("NVDA", 150, 5, rand.New(rand.NewSource(5)))

	// 远超簿内流动性的目标，触发部分成交
	result := s.Simulate(
		Decision{Ticker: "NVDA", Action: "LONG", SizePct: 5, EntryPrice: 150},
		Plan{Strategy: "TWAP", DurationMin: 10, ChildOrders: 4},
		Portfolio{NAVUSD: 100_000_000},
		lob,
	)

	if diff := math.Abs(result.TotalFilledQty + result.UnfilledQty - result.TotalTargetQty); diff > 1e-6 {
		t.Errorf("filled+unfilled != target, diff=%g", diff)
	}
	if result.FillRatePct <= 0 || result.FillRatePct >= 100 {
		t.Errorf("expected partial fill rate in (0,100), got %f", result.FillRatePct)
	}
	if result.UnfilledQty <= 0 {
		t.Errorf("expected starvation to show as unfilled qty")
	}
}

func TestDegenerateTargetYieldsZeroResult(t *testing.T) {
	s := newTestScheduler(6)
	lob := book.New("NVDA", 150, 5, rand.New(rand.NewSource(6)))

	result := s.Simulate(
		Decision{Ticker: "NVDA", Action: "LONG", SizePct: 0, EntryPrice: 150},
		Plan{Strategy: "TWAP"},
		Portfolio{NAVUSD: 10_000_000},
		lob,
	)

	if result.TotalTargetQty != 0 || result.TotalFilledQty != 0 || result.UnfilledQty != 0 {
		t.Errorf("expected all-zero outcome, got %+v", result)
	}
	if result.FillRatePct != 0 {
		t.Errorf("expected zero fill rate, got %f", result.FillRatePct)
	}
	if len(result.Children) != 0 {
		t.Errorf("expected no children, got %d", len(result.Children))
	}
	if result.Notes == "" {
		t.Errorf("expected degradation note")
	}
}

func TestEntryPriceFallsBackToBookMid(t *testing.T) {
	s := newTestScheduler(7)
	lob := book.New("NVDA", 200, 5, rand.New(rand.NewSource(7)))

	result := s.Simulate(
		Decision{Ticker: "NVDA", Action: "SHORT", SizePct: 1.0},
		Plan{Strategy: "MARKET"},
		Portfolio{NAVUSD: 2_000_000},
		lob,
	)

	// entry 缺省时用簿内中间价折算目标数量
	expected := 2_000_000 * 1.0 / 100 / 200
	if math.Abs(result.TotalTargetQty-expected) > 1e-9 {
		t.Errorf("expected target %f from mid fallback, got %f", expected, result.TotalTargetQty)
	}
	if result.Children[0].Side != book.TakerSell {
		t.Errorf("SHORT should consume bids, got %s", result.Children[0].Side)
	}
}

func TestSimulationDeterminism(t *testing.T) {
	run := func() SimulationResult {
		s := newTestScheduler(99)
		lob := book.New("NVDA", 150, 5, rand.New(rand.NewSource(99)))
		return s.Simulate(
			Decision{Ticker: "NVDA", Action: "LONG", SizePct: 1.5, EntryPrice: 150},
			Plan{Strategy: "VWAP", DurationMin: 390, ChildOrders: 8, ExpectedSlippageBps: 3},
			Portfolio{NAVUSD: 10_000_000},
			lob,
		)
	}

	a := run()
	b := run()

	if a.TotalFilledQty != b.TotalFilledQty ||
		a.AvgFillPrice != b.AvgFillPrice ||
		a.ActualSlippageBps != b.ActualSlippageBps ||
		a.TotalNotionalUSD != b.TotalNotionalUSD {
		t.Fatalf("identical seeds must give bit-identical aggregates:\n%+v\n%+v", a, b)
	}
	if len(a.Children) != len(b.Children) {
		t.Fatalf("child count differs: %d vs %d", len(a.Children), len(b.Children))
	}
	for i := range a.Children {
		ca, cb := a.Children[i], b.Children[i]
		if ca.TargetQty != cb.TargetQty || ca.FilledQty != cb.FilledQty ||
			ca.AvgFillPrice != cb.AvgFillPrice || ca.SlippageBps != cb.SlippageBps {
			t.Errorf("child %d differs between runs", i)
		}
	}
}

func TestReplenishKeepsLaterSlicesLiquid(t *testing.T) {
	s := newTestScheduler(8)
	lob := book.New("NVDA", 150, 5, rand.New(rand.NewSource(8)))

	result := s.Simulate(
		Decision{Ticker: "NVDA", Action: "LONG", SizePct: 2.0, EntryPrice: 150},
		Plan{Strategy: "TWAP", DurationMin: 60, ChildOrders: 8},
		Portfolio{NAVUSD: 10_000_000},
		lob,
	)

	// 回补保证长调度下后段子单仍有成交
	last := result.Children[len(result.Children)-1]
	if last.FilledQty <= 0 {
		t.Errorf("expected final slice to find liquidity after replenishment")
	}
}
