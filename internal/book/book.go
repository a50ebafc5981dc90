package book

import (
	"container/heap"
	"math"
	"math/rand"
	"sort"
	"time"
)

const (
	seedLevels     = 8
	levelStepRatio = 0.0005 // 相邻档位间隔 5 bps
	seedMinQty     = 500.0
	seedMaxQty     = 3000.0
)

// Book 维护单一标的的合成流动性，按价格-时间优先撮合市价单。
//
// 买卖两侧分别使用单调优先队列：买方按 (价格降序, 序号升序)，
// 卖方按 (价格升序, 序号升序)，堆顶始终是最优价位中最早的挂单。
type Book struct {
	ticker       string
	referenceMid float64 // 滑点基准，可被调度器的价格漂移更新
	spreadBps    float64
	bids         bidQueue
	asks         askQueue
	seq          uint64
	rng          *rand.Rand
	now          func() time.Time
}

// New 创建订单簿并围绕中间价播种 8 档合成流动性。
// 档位价差为 5 bps，档位数量随距离按 1/sqrt(i+1) 衰减以模拟逐渐变薄的深度。
// rng 为 nil 时使用时间种子；确定性测试必须显式注入。
func New(ticker string, midPrice, spreadBps float64, rng *rand.Rand) *Book {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	b := &Book{
		ticker:       ticker,
		referenceMid: midPrice,
		spreadBps:    spreadBps,
		rng:          rng,
		now:          time.Now,
	}
	b.seed(midPrice, spreadBps)
	return b
}

func (b *Book) seed(mid, spreadBps float64) {
	halfSpread := mid * (spreadBps / 2) / 10_000
	bestBid := mid - halfSpread
	bestAsk := mid + halfSpread

	for i := 0; i < seedLevels; i++ {
		decay := math.Sqrt(1 / float64(i+1))
		price := roundPrice(bestBid - float64(i)*mid*levelStepRatio)
		qty := (seedMinQty + b.rng.Float64()*(seedMaxQty-seedMinQty)) * decay
		_ = b.AddLimitOrder(SideBid, price, qty)
	}
	for i := 0; i < seedLevels; i++ {
		decay := math.Sqrt(1 / float64(i+1))
		price := roundPrice(bestAsk + float64(i)*mid*levelStepRatio)
		qty := (seedMinQty + b.rng.Float64()*(seedMaxQty-seedMinQty)) * decay
		_ = b.AddLimitOrder(SideAsk, price, qty)
	}
}

// AddLimitOrder 向订单簿添加一条挂单并维持优先级顺序。
func (b *Book) AddLimitOrder(side Side, price, qty float64) error {
	b.seq++
	order := restingOrder{price: price, seq: b.seq, qty: qty}
	switch side {
	case SideBid:
		heap.Push(&b.bids, order)
	case SideAsk:
		heap.Push(&b.asks, order)
	default:
		return ErrInvalidSide
	}
	return nil
}

// MatchMarketOrder 用市价单吃掉对手盘流动性。
//
// side=buy 消耗卖方，side=sell 消耗买方；始终从最优价开始，
// 同价位按最早挂单优先。部分成交的挂单保留原始序号，
// 即保留其原有的时间优先级而非作为新单重新排队。
// 滑点以调用时刻的参考中间价为基准；对手盘为空时返回零成交、零滑点。
func (b *Book) MatchMarketOrder(side TakerSide, qty float64) (MatchResult, error) {
	if side != TakerBuy && side != TakerSell {
		return MatchResult{}, ErrInvalidSide
	}

	refMid := b.referenceMid
	if refMid <= 0 {
		if mid, ok := b.Mid(); ok {
			refMid = mid
		}
	}

	var fills []Fill
	remaining := qty

	for remaining > 0 {
		top := b.peek(side)
		if top == nil {
			break
		}

		fillQty := math.Min(remaining, top.qty)
		fills = append(fills, Fill{Price: top.price, Qty: fillQty, Timestamp: b.now().UTC()})
		remaining -= fillQty

		if fillQty >= top.qty {
			b.popBest(side)
		} else {
			// 序号与价格不变，堆序不受影响，原地减量即可
			top.qty -= fillQty
		}
	}

	var totalFilled, weightedSum float64
	for _, f := range fills {
		totalFilled += f.Qty
		weightedSum += f.Price * f.Qty
	}

	avgFill := 0.0
	slippage := 0.0
	if totalFilled > 0 {
		avgFill = weightedSum / totalFilled
		if refMid > 0 {
			slippage = math.Abs(avgFill-refMid) / refMid * 10_000
		}
	}

	return MatchResult{
		Fills:          fills,
		AvgFillPrice:   avgFill,
		TotalFilledQty: totalFilled,
		UnfilledQty:    remaining,
		SlippageBps:    slippage,
	}, nil
}

func (b *Book) peek(side TakerSide) *restingOrder {
	if side == TakerBuy {
		if len(b.asks) == 0 {
			return nil
		}
		return &b.asks[0]
	}
	if len(b.bids) == 0 {
		return nil
	}
	return &b.bids[0]
}

func (b *Book) popBest(side TakerSide) {
	if side == TakerBuy {
		heap.Pop(&b.asks)
		return
	}
	heap.Pop(&b.bids)
}

// Ticker 返回标的代码。
func (b *Book) Ticker() string {
	return b.ticker
}

// BestBid 返回最优买价。
func (b *Book) BestBid() (float64, bool) {
	if len(b.bids) == 0 {
		return 0, false
	}
	return b.bids[0].price, true
}

// BestAsk 返回最优卖价。
func (b *Book) BestAsk() (float64, bool) {
	if len(b.asks) == 0 {
		return 0, false
	}
	return b.asks[0].price, true
}

// Mid 返回最优买卖价的均值，任一侧为空时不可用。
func (b *Book) Mid() (float64, bool) {
	bid, okB := b.BestBid()
	ask, okA := b.BestAsk()
	if !okB || !okA {
		return 0, false
	}
	return (bid + ask) / 2, true
}

// SpreadBps 返回当前盘口价差（基点）。
func (b *Book) SpreadBps() (float64, bool) {
	bid, okB := b.BestBid()
	ask, okA := b.BestAsk()
	if !okB || !okA {
		return 0, false
	}
	mid := (bid + ask) / 2
	if mid <= 0 {
		return 0, false
	}
	return (ask - bid) / mid * 10_000, true
}

// QuotedSpreadBps 返回建簿时的报价价差。
func (b *Book) QuotedSpreadBps() float64 {
	return b.spreadBps
}

// ReferenceMid 返回当前滑点基准中间价。
func (b *Book) ReferenceMid() float64 {
	return b.referenceMid
}

// SetReferenceMid 更新滑点基准中间价，用于模拟子单之间的价格漂移。
func (b *Book) SetReferenceMid(mid float64) {
	b.referenceMid = mid
}

// Depth 返回买卖双方前 levels 条挂单及计算出的中间价与价差。
func (b *Book) Depth(levels int) DepthView {
	view := DepthView{}

	bids := make(bidQueue, len(b.bids))
	copy(bids, b.bids)
	sort.Sort(bids)
	for i := 0; i < len(bids) && i < levels; i++ {
		view.Bids = append(view.Bids, PriceLevel{Price: bids[i].price, Qty: bids[i].qty})
	}

	asks := make(askQueue, len(b.asks))
	copy(asks, b.asks)
	sort.Sort(asks)
	for i := 0; i < len(asks) && i < levels; i++ {
		view.Asks = append(view.Asks, PriceLevel{Price: asks[i].price, Qty: asks[i].qty})
	}

	if mid, ok := b.Mid(); ok {
		view.Mid = mid
	}
	if spread, ok := b.SpreadBps(); ok {
		view.SpreadBps = spread
	}
	return view
}

func roundPrice(v float64) float64 {
	return math.Round(v*10_000) / 10_000
}
