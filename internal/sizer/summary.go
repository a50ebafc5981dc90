package sizer

import "sort"

// PolicyEntry 描述单个状态的贪心策略与各动作学习值。
type PolicyEntry struct {
	StateKey      string
	BestActionPct float64
	QValues       map[string]float64
}

// PolicySummary 为当前策略的只读快照，用于调试与展示。
type PolicySummary struct {
	Step          int
	Epsilon       float64
	StatesVisited int
	Policy        []PolicyEntry
}

// Summary 返回所有已见状态的贪心策略，按状态键排序。
func (s *Sizer) Summary() PolicySummary {
	keys := make([]string, 0, len(s.table))
	for key := range s.table {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	policy := make([]PolicyEntry, 0, len(keys))
	for _, key := range keys {
		row := s.table[key]
		values := make(map[string]float64, len(row))
		for action, q := range row {
			values[action] = q
		}
		policy = append(policy, PolicyEntry{
			StateKey:      key,
			BestActionPct: s.bestAction(key),
			QValues:       values,
		})
	}

	return PolicySummary{
		Step:          s.step,
		Epsilon:       s.epsilon,
		StatesVisited: len(s.table),
		Policy:        policy,
	}
}
