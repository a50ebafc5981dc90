package book

// restingOrder 是队列中的一条挂单，seq 用于同价位的时间优先级。
type restingOrder struct {
	price float64
	seq   uint64
	qty   float64
}

// bidQueue 按 (价格降序, 序号升序) 排列，堆顶为最优买价。
type bidQueue []restingOrder

func (q bidQueue) Len() int { return len(q) }

func (q bidQueue) Less(i, j int) bool {
	if q[i].price != q[j].price {
		return q[i].price > q[j].price
	}
	return q[i].seq < q[j].seq
}

func (q bidQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *bidQueue) Push(x any) { *q = append(*q, x.(restingOrder)) }

func (q *bidQueue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	*q = old[:n-1]
	return item
}

// askQueue 按 (价格升序, 序号升序) 排列，堆顶为最优卖价。
type askQueue []restingOrder

func (q askQueue) Len() int { return len(q) }

func (q askQueue) Less(i, j int) bool {
	if q[i].price != q[j].price {
		return q[i].price < q[j].price
	}
	return q[i].seq < q[j].seq
}

func (q askQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *askQueue) Push(x any) { *q = append(*q, x.(restingOrder)) }

func (q *askQueue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	*q = old[:n-1]
	return item
}
