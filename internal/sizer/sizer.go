package sizer

import (
	"math"
	"math/rand"
	"strconv"
	"time"

	"go.uber.org/zap"
)

// MaxPositionPct 为仓位硬上限（占净值百分比），无论学习值如何都不突破。
const MaxPositionPct = 5.0

// optimisticInit 为新状态的初始Q值，略偏乐观以鼓励早期探索。
const optimisticInit = 0.5

// rewardClipBps 限制单次收益对学习的影响，极端值不会破坏表的稳定性。
const rewardClipBps = 50.0

// actions 为固定的离散动作集：仓位占净值的百分比。
var actions = []float64{1, 2, 3, 4, 5}

// Config 为Q学习的超参数。
type Config struct {
	Alpha        float64 // 学习率
	Gamma        float64 // 折扣因子
	Epsilon      float64 // 初始探索率
	EpsilonDecay float64 // 每次更新后的衰减系数
	EpsilonMin   float64 // 探索率下限
}

func (c Config) normalize() Config {
	cfg := c
	if cfg.Alpha <= 0 {
		cfg.Alpha = 0.10
	}
	if cfg.Gamma <= 0 {
		cfg.Gamma = 0.90
	}
	if cfg.Epsilon <= 0 {
		cfg.Epsilon = 0.15
	}
	if cfg.EpsilonDecay <= 0 {
		cfg.EpsilonDecay = 0.995
	}
	if cfg.EpsilonMin <= 0 {
		cfg.EpsilonMin = 0.02
	}
	return cfg
}

// Sizer 为表格型 ε-greedy Q学习仓位决策器。
//
// 状态由 State.Key 离散化，动作为固定的五档仓位百分比，
// 学习状态（Q表、探索率、步数）通过注入的 TableStore 持久化，
// 跨进程存活；存储缺失或损坏时从空表重新开始，不致命。
type Sizer struct {
	cfg     Config
	table   map[string]map[string]float64
	epsilon float64
	step    int
	rng     *rand.Rand
	store   TableStore
	logger  *zap.Logger
}

// New 创建仓位决策器并从存储载入历史学习状态。
// rng 为 nil 时使用时间种子；确定性测试必须显式注入。
func New(cfg Config, store TableStore, rng *rand.Rand, logger *zap.Logger) *Sizer {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg = cfg.normalize()

	s := &Sizer{
		cfg:     cfg,
		table:   make(map[string]map[string]float64),
		epsilon: cfg.Epsilon,
		rng:     rng,
		store:   store,
		logger:  logger,
	}
	s.load()
	return s
}

func (s *Sizer) load() {
	if s.store == nil {
		return
	}
	snapshot, ok, err := s.store.Load()
	if err != nil {
		s.logger.Warn("载入Q表失败，使用空表重新开始", zap.Error(err))
		return
	}
	if !ok {
		return
	}
	if snapshot.Table != nil {
		s.table = snapshot.Table
	}
	if snapshot.Epsilon > 0 {
		s.epsilon = snapshot.Epsilon
	}
	s.step = snapshot.Step
	s.logger.Info("载入Q表完成",
		zap.Int("states", len(s.table)),
		zap.Int("step", s.step),
		zap.Float64("epsilon", s.epsilon),
	)
}

// Save 将当前学习状态写入存储。
func (s *Sizer) Save() error {
	if s.store == nil {
		return nil
	}
	return s.store.Save(Snapshot{
		Table:   s.table,
		Epsilon: s.epsilon,
		Step:    s.step,
		Actions: append([]float64(nil), actions...),
	})
}

// Recommend 返回给定状态下推荐的仓位百分比。
// 以概率 ε 均匀随机探索，否则取当前状态下学习值最高的动作；
// 学习值并列时按动作升序取第一个，保证确定性。输出不超过硬上限。
func (s *Sizer) Recommend(state State) float64 {
	key := state.Key()

	var action float64
	if s.rng.Float64() < s.epsilon {
		action = actions[s.rng.Intn(len(actions))]
	} else {
		action = s.bestAction(key)
	}

	return math.Min(action, MaxPositionPct)
}

// Update 在观察到收益后执行一次Q学习更新。
//
// rewardBps 为已实现盈亏（基点），裁剪到 ±50 后映射到 [-1, 1]；
// 实际仓位不在动作集内时按绝对距离吸附到最近的动作。
// 每次更新后探索率按衰减系数下降，受下限保护。
func (s *Sizer) Update(state State, actionTaken, rewardBps float64, next *State) {
	key := state.Key()
	ak := actionKey(snapAction(actionTaken))

	reward := math.Max(-rewardClipBps, math.Min(rewardClipBps, rewardBps)) / rewardClipBps

	maxNext := 0.0
	if next != nil {
		row := s.row(next.Key())
		maxNext = row[actionKey(actions[0])]
		for _, a := range actions[1:] {
			if q := row[actionKey(a)]; q > maxNext {
				maxNext = q
			}
		}
	}

	row := s.row(key)
	old := row[ak]
	row[ak] = old + s.cfg.Alpha*(reward+s.cfg.Gamma*maxNext-old)

	s.step++
	s.epsilon = math.Max(s.cfg.EpsilonMin, s.epsilon*s.cfg.EpsilonDecay)
}

// Reset 清空学习状态，探索率回到初始值。
func (s *Sizer) Reset() {
	s.table = make(map[string]map[string]float64)
	s.epsilon = s.cfg.Epsilon
	s.step = 0
}

// Epsilon 返回当前探索率。
func (s *Sizer) Epsilon() float64 {
	return s.epsilon
}

// Step 返回累计更新次数。
func (s *Sizer) Step() int {
	return s.step
}

func (s *Sizer) row(key string) map[string]float64 {
	row, ok := s.table[key]
	if !ok {
		row = make(map[string]float64, len(actions))
		for _, a := range actions {
			row[actionKey(a)] = optimisticInit
		}
		s.table[key] = row
	}
	return row
}

func (s *Sizer) bestAction(key string) float64 {
	row := s.row(key)
	best := actions[0]
	bestQ := row[actionKey(best)]
	for _, a := range actions[1:] {
		if q := row[actionKey(a)]; q > bestQ {
			best = a
			bestQ = q
		}
	}
	return best
}

// snapAction 把任意仓位值吸附到最近的离散动作。
func snapAction(v float64) float64 {
	best := actions[0]
	bestDist := math.Abs(v - best)
	for _, a := range actions[1:] {
		if dist := math.Abs(v - a); dist < bestDist {
			best = a
			bestDist = dist
		}
	}
	return best
}

func actionKey(a float64) string {
	return strconv.FormatFloat(a, 'f', 1, 64)
}
