package book

import (
	"errors"
	"time"
)

// Side 表示挂单所在的方向。
type Side string

const (
	SideBid Side = "bid"
	SideAsk Side = "ask"
)

// TakerSide 表示市价单的吃单方向。
type TakerSide string

const (
	TakerBuy  TakerSide = "buy"
	TakerSell TakerSide = "sell"
)

// ErrInvalidSide 表示传入了无法识别的订单方向。
var ErrInvalidSide = errors.New("book: 无效的订单方向")

// Fill 记录一笔成交。
type Fill struct {
	Price     float64
	Qty       float64
	Timestamp time.Time
}

// MatchResult 汇总一次市价单撮合的结果。
type MatchResult struct {
	Fills          []Fill
	AvgFillPrice   float64 // 按成交量加权
	TotalFilledQty float64
	UnfilledQty    float64
	SlippageBps    float64 // 相对撮合时刻的参考中间价
}

// PriceLevel 为盘口快照中的一档。
type PriceLevel struct {
	Price float64
	Qty   float64
}

// DepthView 为盘口前N档的只读视图。
type DepthView struct {
	Bids      []PriceLevel
	Asks      []PriceLevel
	Mid       float64
	SpreadBps float64
}
