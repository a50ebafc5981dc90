package config

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/multierr"
)

// Config 聚合了模拟引擎运行所需的全部配置项。
type Config struct {
	App        AppConfig        `mapstructure:"app"`
	Book       BookConfig       `mapstructure:"book"`
	Execution  ExecutionConfig  `mapstructure:"execution"`
	Sizer      SizerConfig      `mapstructure:"sizer"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Simulation SimulationConfig `mapstructure:"simulation"`
}

// AppConfig 控制应用级参数。
type AppConfig struct {
	Environment string `mapstructure:"environment"`
}

// BookConfig 控制订单簿的默认参数。
type BookConfig struct {
	DefaultSpreadBps float64 `mapstructure:"default_spread_bps"`
	DepthLevels      int     `mapstructure:"depth_levels"`
}

// ExecutionConfig 控制拆单调度的默认行为。
type ExecutionConfig struct {
	TWAPChildren    int     `mapstructure:"twap_children"`
	TWAPDurationMin float64 `mapstructure:"twap_duration_min"`
	VWAPDurationMin float64 `mapstructure:"vwap_duration_min"`
	ReplenishRatio  float64 `mapstructure:"replenish_ratio"`
	NoiseSdRatio    float64 `mapstructure:"noise_sd_ratio"`
}

// SizerConfig 控制仓位决策器的超参数与持久化方式。
type SizerConfig struct {
	Alpha        float64 `mapstructure:"alpha"`
	Gamma        float64 `mapstructure:"gamma"`
	Epsilon      float64 `mapstructure:"epsilon"`
	EpsilonDecay float64 `mapstructure:"epsilon_decay"`
	EpsilonMin   float64 `mapstructure:"epsilon_min"`
	Store        string  `mapstructure:"store"` // file | sqlite
	Path         string  `mapstructure:"path"`  // store=file 时的快照路径
}

// DatabaseConfig 管理数据库连接。
type DatabaseConfig struct {
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	InMemory        bool          `mapstructure:"in_memory"`
}

// LoggingConfig 控制日志输出。
type LoggingConfig struct {
	Level            string   `mapstructure:"level"`
	Encoding         string   `mapstructure:"encoding"`
	Development      bool     `mapstructure:"development"`
	OutputPaths      []string `mapstructure:"output_paths"`
	ErrorOutputPaths []string `mapstructure:"error_output_paths"`
}

// SimulationConfig 描述一次批量模拟运行。
type SimulationConfig struct {
	NAVUSD    float64          `mapstructure:"nav_usd"`
	Seed      int64            `mapstructure:"seed"`
	Scenarios []ScenarioConfig `mapstructure:"scenarios"`
}

// ScenarioConfig 定义单个模拟场景：建簿参数、交易意图与仓位状态输入。
type ScenarioConfig struct {
	Name                string    `mapstructure:"name"`
	Ticker              string    `mapstructure:"ticker"`
	MidPrice            float64   `mapstructure:"mid_price"`
	SpreadBps           float64   `mapstructure:"spread_bps"`
	Action              string    `mapstructure:"action"`
	EntryPrice          float64   `mapstructure:"entry_price"`
	Strategy            string    `mapstructure:"strategy"`
	DurationMin         float64   `mapstructure:"duration_min"`
	ChildOrders         int       `mapstructure:"child_orders"`
	ExpectedSlippageBps float64   `mapstructure:"expected_slippage_bps"`
	Confidence          float64   `mapstructure:"confidence"`
	Regime              string    `mapstructure:"regime"`
	DrawdownPct         float64   `mapstructure:"drawdown_pct"`
	VIX                 float64   `mapstructure:"vix"`
	Closes              []float64 `mapstructure:"closes"` // vix 缺省时用于估算波动率
}

// Validate 对配置进行基本校验。
func (c *Config) Validate() error {
	var err error

	if c.App.Environment == "" {
		err = multierr.Append(err, errors.New("app.environment 不能为空"))
	}
	if c.Book.DefaultSpreadBps <= 0 {
		err = multierr.Append(err, errors.New("book.default_spread_bps 必须大于0"))
	}
	if c.Book.DepthLevels <= 0 {
		err = multierr.Append(err, errors.New("book.depth_levels 必须大于0"))
	}
	if c.Execution.ReplenishRatio <= 0 || c.Execution.ReplenishRatio >= 1 {
		err = multierr.Append(err, errors.New("execution.replenish_ratio 必须位于(0,1)"))
	}
	if c.Execution.NoiseSdRatio <= 0 {
		err = multierr.Append(err, errors.New("execution.noise_sd_ratio 必须大于0"))
	}
	if c.Sizer.Alpha <= 0 || c.Sizer.Alpha > 1 {
		err = multierr.Append(err, errors.New("sizer.alpha 必须位于(0,1]"))
	}
	if c.Sizer.Gamma <= 0 || c.Sizer.Gamma > 1 {
		err = multierr.Append(err, errors.New("sizer.gamma 必须位于(0,1]"))
	}
	if c.Sizer.Epsilon <= 0 || c.Sizer.Epsilon > 1 {
		err = multierr.Append(err, errors.New("sizer.epsilon 必须位于(0,1]"))
	}
	if c.Sizer.EpsilonDecay <= 0 || c.Sizer.EpsilonDecay > 1 {
		err = multierr.Append(err, errors.New("sizer.epsilon_decay 必须位于(0,1]"))
	}
	if c.Sizer.EpsilonMin <= 0 || c.Sizer.EpsilonMin >= c.Sizer.Epsilon {
		err = multierr.Append(err, errors.New("sizer.epsilon_min 必须为正且小于 sizer.epsilon"))
	}
	if c.Sizer.Store != "file" && c.Sizer.Store != "sqlite" {
		err = multierr.Append(err, errors.New("sizer.store 必须为 file 或 sqlite"))
	}
	if c.Sizer.Store == "file" && c.Sizer.Path == "" {
		err = multierr.Append(err, errors.New("sizer.path 不能为空"))
	}
	if !c.Database.InMemory && c.Database.Path == "" {
		err = multierr.Append(err, errors.New("database.path 不能为空"))
	}
	if c.Logging.Level == "" {
		err = multierr.Append(err, errors.New("logging.level 不能为空"))
	}

	for i, scenario := range c.Simulation.Scenarios {
		if scenario.Ticker == "" {
			err = multierr.Append(err, fmt.Errorf("simulation.scenarios[%d].ticker 不能为空", i))
		}
		if scenario.MidPrice <= 0 {
			err = multierr.Append(err, fmt.Errorf("simulation.scenarios[%d].mid_price 必须大于0", i))
		}
		if scenario.SpreadBps < 0 {
			err = multierr.Append(err, fmt.Errorf("simulation.scenarios[%d].spread_bps 不能为负", i))
		}
	}

	return err
}
