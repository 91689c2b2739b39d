// Package supervisor implements the always-on trading daemon: the
// periodic decision loop, lifecycle (start/stop/status), heartbeat,
// persistence of bot state and trade history, and event emission.
package supervisor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/followthefloww9/gold-digger/internal/ai"
	"github.com/followthefloww9/gold-digger/internal/analysis"
	"github.com/followthefloww9/gold-digger/internal/bar"
	"github.com/followthefloww9/gold-digger/internal/broker"
	"github.com/followthefloww9/gold-digger/internal/events"
	"github.com/followthefloww9/gold-digger/internal/marketdata"
	"github.com/followthefloww9/gold-digger/internal/persistence"
	"github.com/followthefloww9/gold-digger/internal/risk"
	"github.com/followthefloww9/gold-digger/internal/signal"
)

// ShutdownPolicy controls what Stop does with open positions: leave
// them running ("stop but hold") or liquidate everything.
type ShutdownPolicy string

const (
	ShutdownHold      ShutdownPolicy = "hold"
	ShutdownLiquidate ShutdownPolicy = "liquidate"
)

// Config is the daemon's recognized configuration surface.
type Config struct {
	Symbol              bar.Symbol
	Timeframe           bar.Timeframe
	RiskPercentage      float64
	MaxRiskAmount       float64
	MaxRiskPerTrade     float64
	MaxDailyLoss        float64
	MaxPositions        int
	MaxTradesPerDay     int
	AnalysisInterval    time.Duration
	HeartbeatInterval   time.Duration
	AITimeout           time.Duration
	AICacheTTL          time.Duration
	AIRequestsPerMinute int
	MinConfidence       float64
	ShutdownPolicy      ShutdownPolicy
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() Config {
	return Config{
		Symbol:              bar.XAUUSD,
		Timeframe:           bar.M5,
		RiskPercentage:      0.01,
		MaxRiskAmount:       1000,
		MaxRiskPerTrade:     0.02,
		MaxDailyLoss:        500,
		MaxPositions:        3,
		MaxTradesPerDay:     4,
		AnalysisInterval:    60 * time.Second,
		HeartbeatInterval:   30 * time.Second,
		AITimeout:           20 * time.Second,
		AICacheTTL:          300 * time.Second,
		AIRequestsPerMinute: 60,
		MinConfidence:       0.60,
		ShutdownPolicy:      ShutdownHold,
	}
}

// OverallStatus is the control-surface status enum.
type OverallStatus string

const (
	StatusOnline   OverallStatus = "ONLINE"
	StatusStarting OverallStatus = "STARTING"
	StatusStopping OverallStatus = "STOPPING"
	StatusOffline  OverallStatus = "OFFLINE"
	StatusError    OverallStatus = "ERROR"
)

// StatusSnapshot is the control surface's status() response.
type StatusSnapshot struct {
	OverallStatus   OverallStatus
	DaemonRunning   bool
	DatabaseRunning bool
	TradingMode     persistence.TradingMode
	RiskPercentage  float64
	MaxRiskAmount   float64
	LastHeartbeat   time.Time
	Uptime          time.Duration
	TradesToday     int
	OpenPositions   int
	SessionID       string
}

// StartResult is the lifecycle verdict of Start.
type StartResult string

const (
	StartOK             StartResult = "ok"
	StartAlreadyRunning StartResult = "already_running"
)

// StopResult is the lifecycle verdict of Stop.
type StopResult string

const (
	StopOK         StopResult = "ok"
	StopNotRunning StopResult = "not_running"
)

// Supervisor is the single control-plane value: owned by main, passed
// by reference, no mutable globals. It is the only writer of the risk
// counters and the only caller of BrokerExecutor mutations, so broker
// operations for the symbol are naturally serialized in tick order.
type Supervisor struct {
	db        *persistence.DB
	bus       *events.Bus
	source    marketdata.Source
	executor  *broker.Executor
	gate      *risk.Gate
	validator *ai.Validator // nil if AI is not configured; never blocks trading
	logger    zerolog.Logger

	mu            sync.Mutex
	cfg           Config
	mode          persistence.TradingMode
	running       bool
	sessionID     string
	startedAt     time.Time
	lastHeartbeat time.Time
	cancel        context.CancelFunc
	doneCh        chan struct{}
}

// New builds a Supervisor bound to its collaborators. cfg carries the
// initial tunables; Start may override trading mode and risk fields
// from its own arguments.
func New(db *persistence.DB, bus *events.Bus, source marketdata.Source, executor *broker.Executor, gate *risk.Gate, validator *ai.Validator, cfg Config, logger zerolog.Logger) *Supervisor {
	return &Supervisor{
		db: db, bus: bus, source: source, executor: executor, gate: gate, validator: validator,
		cfg: cfg, mode: persistence.ModePaper,
		logger: logger.With().Str("component", "supervisor").Logger(),
	}
}

// Start begins the daemon loop. A restart after a crash (bot state
// still marked running in the database with no live process) is
// handled the same way: Start always reconciles open positions against
// the broker's authoritative list before resuming new-entry logic.
func (s *Supervisor) Start(ctx context.Context, paper bool, riskPct, maxRisk float64) (StartResult, error) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return StartAlreadyRunning, nil
	}

	if riskPct > 0 {
		s.cfg.RiskPercentage = riskPct
	}
	if maxRisk > 0 {
		s.cfg.MaxRiskAmount = maxRisk
	}
	s.mode = persistence.ModeLive
	if paper {
		s.mode = persistence.ModePaper
	}
	s.sessionID = uuid.NewString()
	s.startedAt = time.Now().UTC()
	s.running = true
	s.doneCh = make(chan struct{})

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.mu.Unlock()

	// Cold-restart recovery: trades the log still records as OPEN are
	// cross-referenced against the broker before the executor (whose
	// in-memory set starts empty) takes over ownership.
	if s.db != nil && s.db.Pool != nil {
		if open, err := s.db.OpenTrades(runCtx); err == nil {
			s.reconcileStartup(runCtx, open)
		} else {
			s.bus.Publish(events.Event{Kind: events.KindError, Severity: events.SeverityHigh, Message: "load open trades on start failed: " + err.Error()})
		}
	}

	forced, err := s.executor.Reconcile(runCtx)
	if err != nil {
		s.bus.Publish(events.Event{Kind: events.KindError, Severity: events.SeverityHigh, Message: "reconcile on start failed: " + err.Error()})
	}
	for _, pos := range forced {
		s.persistClose(runCtx, pos)
	}

	// Re-seed the daily trade cap from the durable trade log so a
	// mid-day restart can't reset the per-day budget.
	if s.db != nil && s.db.Pool != nil {
		now := time.Now().UTC()
		startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
		if n, err := s.db.TradesToday(runCtx, startOfDay); err == nil {
			s.gate.SeedDailyTrades(n)
		}
	}

	st := &persistence.BotState{
		IsRunning: true, TradingMode: s.mode, RiskPercentage: s.cfg.RiskPercentage,
		MaxRiskAmount: s.cfg.MaxRiskAmount, SessionID: s.sessionID,
	}
	if err := s.db.SaveBotState(runCtx, st); err != nil {
		s.bus.Publish(events.Event{Kind: events.KindError, Severity: events.SeverityCritical, Message: "save bot state on start failed: " + err.Error()})
	}

	s.logger.Info().Str("session_id", s.sessionID).Str("mode", string(s.mode)).Msg("daemon started")
	s.bus.Publish(events.DaemonStarted(s.sessionID))

	go s.loop(runCtx)

	return StartOK, nil
}

// reconcileStartup cross-references trades recorded as OPEN in the
// database against the broker's authoritative position list: tickets
// the broker still holds are adopted into the executor, the rest are
// marked CLOSED_FORCED at the last known price with a CRITICAL
// reconciliation event.
func (s *Supervisor) reconcileStartup(ctx context.Context, open []persistence.TradeRecord) {
	if len(open) == 0 {
		return
	}

	live, err := s.executor.Port().Positions(ctx)
	if err != nil {
		s.bus.Publish(events.Event{Kind: events.KindError, Severity: events.SeverityHigh, Message: "startup reconcile: broker positions unavailable: " + err.Error()})
		return
	}
	liveByTicket := make(map[uint64]broker.PortPosition, len(live))
	for _, lp := range live {
		liveByTicket[lp.Ticket] = lp
	}

	for _, tr := range open {
		if lp, ok := liveByTicket[tr.Ticket]; ok {
			s.executor.Adopt(lp)
			s.logger.Info().Uint64("ticket", tr.Ticket).Msg("adopted broker-held position from trade log")
			continue
		}

		exit := tr.Entry
		if bid, _, _, perr := s.source.CurrentPrice(ctx, s.cfg.Symbol); perr == nil && bid > 0 {
			exit = bid
		}
		pnl := broker.PnL(broker.Side(tr.Direction), tr.Entry, exit, broker.Ounces(tr.Lot))
		if err := s.db.CloseTrade(ctx, tr.Ticket, time.Now().UTC(), exit, pnl, string(broker.StatusClosedForced)); err != nil {
			s.bus.Publish(events.Event{Kind: events.KindError, Severity: events.SeverityHigh, Message: "startup reconcile: persist forced close failed: " + err.Error()})
		}
		s.gate.RegisterTradeClosed(pnl)
		s.logger.Warn().Uint64("ticket", tr.Ticket).Float64("exit", exit).Msg("force-closed trade the broker no longer reports")
		s.bus.Publish(events.StateReconciliation(tr.Ticket, exit))
	}
}

// Stop is cooperative: it cancels the run context, waits up to 30s for
// the current tick to finish, applies the shutdown policy, and marks
// the bot stopped in the database.
func (s *Supervisor) Stop(ctx context.Context) (StopResult, error) {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return StopNotRunning, nil
	}
	cancel := s.cancel
	done := s.doneCh
	sessionID := s.sessionID
	s.mu.Unlock()

	cancel()

	select {
	case <-done:
	case <-time.After(30 * time.Second):
	}

	if s.cfg.ShutdownPolicy == ShutdownLiquidate {
		if err := s.executor.LiquidateAll(ctx); err != nil {
			s.bus.Publish(events.Event{Kind: events.KindError, Severity: events.SeverityHigh, Message: "liquidate on stop failed: " + err.Error()})
		}
	}

	s.mu.Lock()
	s.running = false
	s.mu.Unlock()

	st, err := s.db.LoadBotState(ctx)
	if err != nil {
		st = &persistence.BotState{}
	}
	st.IsRunning = false
	st.TradingMode = s.mode
	_ = s.db.SaveBotState(ctx, st)

	s.logger.Info().Str("session_id", sessionID).Msg("daemon stopped")
	s.bus.Publish(events.DaemonStopped(sessionID))

	return StopOK, nil
}

// ForceCleanup marks the daemon stopped in the database without
// running the cooperative shutdown sequence, for an operator
// recovering from a stuck or crashed process.
func (s *Supervisor) ForceCleanup(ctx context.Context) error {
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()

	st, err := s.db.LoadBotState(ctx)
	if err != nil {
		st = &persistence.BotState{}
	}
	st.IsRunning = false
	if err := s.db.SaveBotState(ctx, st); err != nil {
		return fmt.Errorf("supervisor: force cleanup: %w", err)
	}
	return nil
}

// Status derives overall_status from the live daemon flag and the
// durable bot state: ONLINE when both report running, OFFLINE when
// neither does, STARTING/STOPPING when they disagree, ERROR when the
// database is unreachable.
func (s *Supervisor) Status(ctx context.Context) StatusSnapshot {
	s.mu.Lock()
	daemonRunning := s.running
	sessionID := s.sessionID
	startedAt := s.startedAt
	lastHeartbeat := s.lastHeartbeat
	mode := s.mode
	riskPct := s.cfg.RiskPercentage
	maxRisk := s.cfg.MaxRiskAmount
	s.mu.Unlock()

	st, err := s.db.LoadBotState(ctx)
	botRunning := daemonRunning
	dbHealthy := err == nil
	if err == nil {
		botRunning = st.IsRunning
	}

	overall := StatusOffline
	switch {
	case daemonRunning && botRunning:
		overall = StatusOnline
	case !daemonRunning && botRunning:
		overall = StatusStarting
	case daemonRunning && !botRunning:
		overall = StatusStopping
	}
	if !dbHealthy {
		overall = StatusError
	}

	var uptime time.Duration
	if daemonRunning {
		uptime = time.Since(startedAt)
	}

	return StatusSnapshot{
		OverallStatus:   overall,
		DaemonRunning:   daemonRunning,
		DatabaseRunning: dbHealthy,
		TradingMode:     mode,
		RiskPercentage:  riskPct,
		MaxRiskAmount:   maxRisk,
		LastHeartbeat:   lastHeartbeat,
		Uptime:          uptime,
		TradesToday:     s.gate.DailyTradeCount(),
		OpenPositions:   s.executor.OpenCount(),
		SessionID:       sessionID,
	}
}

// loop is the single long-lived control task: it runs the per-tick
// sequence at HeartbeatInterval until cancelled.
func (s *Supervisor) loop(ctx context.Context) {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.cfg.HeartbeatInterval)
	defer ticker.Stop()

	var lastAnalysis time.Time

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if err := s.tick(ctx, now, &lastAnalysis); err != nil {
				s.logger.Error().Err(err).Msg("tick failed")
				s.bus.Publish(events.Event{Kind: events.KindError, Severity: events.SeverityMedium, Message: "tick error: " + err.Error()})
			}
		}
	}
}

// tick runs one pass of the decision loop: counter rollover, bot-state
// reconciliation, exit evaluation, then (on the analysis cadence) the
// entry pipeline, and finally the heartbeat. Exit evaluation always
// precedes entry evaluation.
func (s *Supervisor) tick(ctx context.Context, now time.Time, lastAnalysis *time.Time) error {
	// 1. Roll daily/hourly counters when the UTC date/hour changes.
	s.gate.ResetCountersIfElapsed(now)

	// 2. Reconcile durable bot state; a false flag here means an
	// operator (or another surface) stopped the bot out of band. When
	// no database is attached, the in-memory running flag stands alone.
	if s.db != nil && s.db.Pool != nil {
		st, err := s.db.LoadBotState(ctx)
		if err == nil && !st.IsRunning {
			return nil
		}
	}

	// 3. Evaluate exits for every open position on this tick's price.
	bid, _, _, err := s.source.CurrentPrice(ctx, s.cfg.Symbol)
	if err != nil {
		s.bus.Publish(events.ConnectivityLost("marketdata", err))
		return nil
	}
	bars, err := s.source.Bars(ctx, s.cfg.Symbol, s.cfg.Timeframe, 1)
	if err == nil && len(bars) > 0 {
		last := bars[len(bars)-1]
		closed, evalErr := s.executor.EvaluateTick(ctx, s.cfg.Symbol, bid, last.High, last.Low)
		if evalErr != nil {
			s.bus.Publish(events.Event{Kind: events.KindError, Severity: events.SeverityMedium, Message: "evaluate tick: " + evalErr.Error()})
		}
		for _, pos := range closed {
			s.persistClose(ctx, pos)
		}
	}

	// 4. New-entry logic, gated on analysis cadence, capacity, the
	// daily trade cap, and the market session.
	analysisDue := lastAnalysis.IsZero() || now.Sub(*lastAnalysis) >= s.cfg.AnalysisInterval
	marketOpen := MarketOpen(now)
	if analysisDue {
		*lastAnalysis = now
		if !s.executor.AtCapacity() && s.gate.DailyTradeCount() < s.cfg.MaxTradesPerDay && marketOpen {
			s.runAnalysisAndEntry(ctx, now)
		}
	}

	// 5. Heartbeat + periodic lifecycle event. Analysis snapshots are
	// persisted inside runAnalysisAndEntry as they are produced.
	s.mu.Lock()
	s.lastHeartbeat = now
	s.mu.Unlock()
	s.bus.Publish(events.Event{
		Kind: events.KindLifecycle, Severity: events.SeverityLow,
		Message: "heartbeat", At: now,
		Details: map[string]interface{}{"market_open": marketOpen, "session": string(CurrentSession(now))},
	})

	return nil
}

const analysisBarCount = 200

// runAnalysisAndEntry runs the SMC + signal + AI + risk pipeline and,
// on approval, opens a position. Every stage short-circuits to a
// logged, non-fatal outcome rather than aborting the tick.
func (s *Supervisor) runAnalysisAndEntry(ctx context.Context, now time.Time) {
	bars, err := s.source.Bars(ctx, s.cfg.Symbol, s.cfg.Timeframe, analysisBarCount)
	if err != nil {
		s.bus.Publish(events.Event{Kind: events.KindWarning, Severity: events.SeverityLow, Message: "skip tick: market data unavailable: " + err.Error()})
		return
	}

	ma, err := analysis.Analyze(s.cfg.Symbol, s.cfg.Timeframe, bars)
	if err != nil {
		s.bus.Publish(events.Event{Kind: events.KindWarning, Severity: events.SeverityLow, Message: "skip tick: analysis invalid input: " + err.Error()})
		return
	}
	s.persistAnalysis(ctx, ma, nil)

	acct, err := s.executor.Port().AccountInfo(ctx)
	if err != nil {
		s.bus.Publish(events.ConnectivityLost("broker", err))
		return
	}

	sig := signal.Evaluate(ma, signal.Config{
		AccountBalance: acct.Balance,
		RiskPercentage: s.cfg.RiskPercentage,
		MaxRiskAmount:  s.cfg.MaxRiskAmount,
		MinRiskReward:  1.5,
	})
	if sig.Direction == signal.Hold {
		return
	}

	if s.validator != nil {
		sig = s.validator.Validate(ctx, sig, ai.PromptContext{
			Symbol:         string(s.cfg.Symbol),
			CurrentPrice:   ma.CurrentPrice,
			Timeframe:      string(s.cfg.Timeframe),
			Session:        string(CurrentSession(now)),
			AccountBalance: acct.Balance,
			RiskPercentage: s.cfg.RiskPercentage,
		})
		if sig.Direction == signal.Hold {
			s.bus.Publish(events.SignalRejected(sig.Reasons))
			return
		}
	}

	decision := s.gate.Evaluate(sig, risk.AccountInfo{Balance: acct.Balance, Equity: acct.Equity})
	if !decision.Approved {
		s.bus.Publish(events.RiskBreach(decision.Reasons))
		return
	}

	side := broker.Buy
	if sig.Direction == signal.Sell {
		side = broker.Sell
	}

	pos, err := s.executor.Open(ctx, broker.OpenParams{
		Symbol: s.cfg.Symbol, Side: side, Volume: decision.AdjustedLotSize,
		StopLoss: sig.StopLoss, TakeProfit: sig.TakeProfit, Comment: "smc-ai-signal",
		ConfidenceAtEntry: sig.Confidence, SetupQualityAtEntry: sig.SetupQuality, SMCStepsAtEntry: sig.Reasons,
	})
	if err != nil {
		s.bus.Publish(events.Event{Kind: events.KindError, Severity: events.SeverityMedium, Message: "broker rejected order: " + err.Error()})
		return
	}

	s.gate.RegisterTradeOpened()
	s.persistOpen(ctx, pos, sig, now)
	s.logger.Info().Uint64("ticket", pos.Ticket).Str("side", string(pos.Side)).Float64("entry", pos.EntryPrice).Float64("lot", pos.Volume).Msg("position opened")
	s.bus.Publish(events.TradeOpened(pos.Ticket, string(pos.Symbol), string(pos.Side), pos.EntryPrice, pos.Volume))
}

func (s *Supervisor) persistAnalysis(ctx context.Context, ma *analysis.MarketAnalysis, aiConfidence *float64) {
	_ = s.db.InsertMarketAnalysis(ctx, &persistence.MarketAnalysisSnapshot{
		At: ma.At, Timeframe: string(ma.Timeframe), Price: ma.CurrentPrice, Trend: string(ma.Trend),
		Session: string(CurrentSession(ma.At)), OBCount: len(ma.OrderBlocks), BOSDetected: ma.BOS.Detected,
		GrabsCount: len(ma.LiquidityGrabs), VWAP: ma.Indicators.VWAP, RSI: ma.Indicators.RSI, ATR: ma.Indicators.ATR,
		SetupQuality: ma.SetupQuality, AIConfidence: aiConfidence,
	})
}

func (s *Supervisor) persistOpen(ctx context.Context, pos *broker.Position, sig *signal.Signal, now time.Time) {
	_, err := s.db.InsertTradeOpen(ctx, &persistence.TradeRecord{
		Ticket: pos.Ticket, OpenTime: pos.OpenedAt, Symbol: string(pos.Symbol), Direction: string(pos.Side),
		Entry: pos.EntryPrice, StopLoss: pos.StopLoss, TakeProfit: pos.TakeProfit, Lot: pos.Volume,
		Confidence: sig.Confidence, SetupQuality: sig.SetupQuality, SMCSteps: sig.Reasons,
		Reasoning: fmt.Sprintf("%v", sig.Reasons), Session: string(CurrentSession(now)), Timeframe: string(s.cfg.Timeframe),
	})
	if err != nil {
		s.bus.Publish(events.Event{Kind: events.KindError, Severity: events.SeverityHigh, Message: "persist trade open failed: " + err.Error()})
	}
}

func (s *Supervisor) persistClose(ctx context.Context, pos *broker.Position) {
	var exit, pnl float64
	if pos.ExitPrice != nil {
		exit = *pos.ExitPrice
	}
	if pos.RealizedPnL != nil {
		pnl = *pos.RealizedPnL
	}

	if err := s.db.CloseTrade(ctx, pos.Ticket, pos.ClosedAt, exit, pnl, string(pos.Status)); err != nil {
		s.bus.Publish(events.Event{Kind: events.KindError, Severity: events.SeverityHigh, Message: "persist trade close failed: " + err.Error()})
	}
	s.gate.RegisterTradeClosed(pnl)

	today := time.Now().UTC().Truncate(24 * time.Hour)
	metrics, _ := s.db.DailyMetricsFor(ctx, today)
	metrics.Date = today
	metrics.DailyPnL += pnl
	metrics.CumulativePnL += pnl
	metrics.TradesCount++
	if pnl >= 0 {
		metrics.Wins++
	} else {
		metrics.Losses++
	}
	if drawdown := -metrics.DailyPnL; drawdown > metrics.MaxDrawdown {
		metrics.MaxDrawdown = drawdown
	}
	if acct, err := s.executor.Port().AccountInfo(ctx); err == nil {
		metrics.AccountBalance = acct.Balance
	}
	if s.cfg.MaxDailyLoss > 0 && metrics.DailyPnL < 0 {
		metrics.RiskUtilization = -metrics.DailyPnL / s.cfg.MaxDailyLoss
	}
	_ = s.db.UpsertDailyMetrics(ctx, metrics)

	s.logger.Info().Uint64("ticket", pos.Ticket).Str("status", string(pos.Status)).Float64("exit", exit).Float64("pnl", pnl).Msg("position closed")
	if pos.Status == broker.StatusClosedForced {
		s.bus.Publish(events.StateReconciliation(pos.Ticket, exit))
	} else {
		s.bus.Publish(events.TradeClosed(pos.Ticket, string(pos.Status), exit, pnl))
	}
}
