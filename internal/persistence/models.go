package persistence

import "time"

// TradingMode mirrors BotState.trading_mode.
type TradingMode string

const (
	ModePaper TradingMode = "Paper"
	ModeLive  TradingMode = "Live"
)

// BotState is the durable, process-wide singleton: authoritative for
// whether the bot should be running across restarts.
type BotState struct {
	IsRunning      bool
	TradingMode    TradingMode
	RiskPercentage float64
	MaxRiskAmount  float64
	LastUpdated    time.Time
	SessionID      string
	Configuration  map[string]interface{}
}

// DailyMetrics is the per-date trading rollup.
type DailyMetrics struct {
	Date            time.Time
	DailyPnL        float64
	CumulativePnL   float64
	TradesCount     int
	Wins            int
	Losses          int
	WinRate         float64
	MaxDrawdown     float64
	AccountBalance  float64
	RiskUtilization float64
}

// TradeRecord is the append-only record of a closed (or still-open)
// position, plus its reasoning/session/timeframe/SMC-steps audit
// trail.
type TradeRecord struct {
	ID           int64
	Ticket       uint64
	OpenTime     time.Time
	CloseTime    *time.Time
	Symbol       string
	Direction    string
	Entry        float64
	Exit         *float64
	StopLoss     float64
	TakeProfit   float64
	Lot          float64
	PnL          *float64
	Status       string
	Confidence   float64
	SetupQuality int
	SMCSteps     []string
	Reasoning    string
	Session      string
	Timeframe    string
}

// MarketAnalysisSnapshot is a persisted, replayable MarketAnalysis.
type MarketAnalysisSnapshot struct {
	ID           int64
	At           time.Time
	Timeframe    string
	Price        float64
	Trend        string
	Session      string
	OBCount      int
	BOSDetected  bool
	GrabsCount   int
	VWAP         float64
	RSI          float64
	ATR          float64
	SetupQuality int
	AIConfidence *float64
	Analysis     map[string]interface{}
}

// SystemEventRecord is one row of the append-only audit log.
type SystemEventRecord struct {
	ID       int64
	At       time.Time
	Kind     string
	Severity string
	Message  string
	Details  map[string]interface{}
}
