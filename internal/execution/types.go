package execution

import (
	"time"

	"lob-sim/internal/book"
)

// Decision 描述上游给出的一次交易意图。
type Decision struct {
	Ticker     string
	Action     string // LONG / SHORT / BUY / SELL
	SizePct    float64
	EntryPrice float64
}

// Plan 描述执行层面的拆单计划。
type Plan struct {
	Strategy            string
	DurationMin         float64
	ChildOrders         int
	ExpectedSlippageBps float64
	AdjustedSizePct     float64 // Decision.SizePct 缺省时的回退值
}

// Portfolio 提供计算目标数量所需的组合信息。
type Portfolio struct {
	NAVUSD float64
}

// ChildOrderResult 记录单个子单的执行情况。
type ChildOrderResult struct {
	ChildIndex   int
	Side         book.TakerSide
	TargetQty    float64
	Fills        []book.Fill
	AvgFillPrice float64
	FilledQty    float64
	UnfilledQty  float64
	SlippageBps  float64
	Offset       time.Duration // 相对执行开始的时间偏移
}

// SimulationResult 汇总一次完整的模拟执行。
type SimulationResult struct {
	Ticker              string
	Action              string
	Strategy            Strategy
	TotalTargetQty      float64
	TotalFilledQty      float64
	UnfilledQty         float64
	FillRatePct         float64
	AvgFillPrice        float64
	ArrivalMidPrice     float64
	ExpectedSlippageBps float64 // 来自上游执行计划的预估
	ActualSlippageBps   float64 // 订单簿模拟得到的实际值
	SlippageDeltaBps    float64 // 实际 - 预估，正值表示劣于预期
	TotalNotionalUSD    float64
	Children            []ChildOrderResult
	Duration            time.Duration
	Notes               string
}
