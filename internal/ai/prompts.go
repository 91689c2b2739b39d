package ai

import (
	"fmt"
	"strings"

	"github.com/followthefloww9/gold-digger/internal/signal"
)

const systemPrompt = `You are a second-opinion validator for an automated gold (XAU/USD)
trading system. You are given a technical signal already produced by
a Smart Money Concepts pipeline. Respond ONLY with a JSON object of
the shape {"decision":"BUY|SELL|HOLD","confidence":0.0-1.0,
"entry":number,"stop_loss":number,"take_profit":number,
"reasoning":"text"}. You may corroborate or veto the technical
direction; you may never invent a direction the technical signal did
not already propose.`

// PromptContext is the compact market context sent alongside a
// non-HOLD Signal.
type PromptContext struct {
	Symbol         string
	CurrentPrice   float64
	Timeframe      string
	Session        string
	AccountBalance float64
	RiskPercentage float64
}

// BuildPrompt renders the structured validation template: symbol,
// price, timeframe, session, the full SMC findings list, indicator
// values, account context, and the technical signal itself.
func BuildPrompt(sig *signal.Signal, ctx PromptContext) (system, user string) {
	var b strings.Builder

	fmt.Fprintf(&b, "Symbol: %s\n", ctx.Symbol)
	fmt.Fprintf(&b, "Current price: %.2f\n", ctx.CurrentPrice)
	fmt.Fprintf(&b, "Timeframe: %s\n", ctx.Timeframe)
	fmt.Fprintf(&b, "Session: %s\n", ctx.Session)
	fmt.Fprintf(&b, "Account balance: %.2f\n", ctx.AccountBalance)
	fmt.Fprintf(&b, "Risk percentage: %.2f%%\n", ctx.RiskPercentage*100)

	b.WriteString("SMC findings:\n")
	fmt.Fprintf(&b, "  trend: %s\n", sig.Analysis.Trend)
	fmt.Fprintf(&b, "  break of structure: detected=%v direction=%s strength=%.1f\n",
		sig.Analysis.BOS.Detected, sig.Analysis.BOS.Direction, sig.Analysis.BOS.Strength)
	sl := sig.Analysis.SessionLevels
	fmt.Fprintf(&b, "  session levels: high=%.2f low=%.2f prev_day_high=%.2f prev_day_low=%.2f weekly_high=%.2f weekly_low=%.2f\n",
		sl.SessionHigh, sl.SessionLow, sl.PrevDayHigh, sl.PrevDayLow, sl.WeeklyHigh, sl.WeeklyLow)
	fmt.Fprintf(&b, "  order blocks: %d\n", len(sig.Analysis.OrderBlocks))
	for _, ob := range sig.Analysis.OrderBlocks {
		fmt.Fprintf(&b, "    %s top=%.2f bottom=%.2f strength=%.1f status=%s\n", ob.Kind, ob.Top, ob.Bottom, ob.Strength, ob.Status)
	}
	fmt.Fprintf(&b, "  liquidity grabs: %d\n", len(sig.Analysis.LiquidityGrabs))
	for _, g := range sig.Analysis.LiquidityGrabs {
		fmt.Fprintf(&b, "    %s price=%.2f strength=%.1f\n", g.Kind, g.Price, g.Strength)
	}
	fmt.Fprintf(&b, "  setup quality: %d/10\n", sig.Analysis.SetupQuality)

	b.WriteString("Indicators:\n")
	fmt.Fprintf(&b, "  vwap=%.2f ema21=%.2f ema50=%.2f ema200=%.2f rsi=%.1f atr=%.2f\n",
		sig.Analysis.Indicators.VWAP, sig.Analysis.Indicators.EMA21, sig.Analysis.Indicators.EMA50,
		sig.Analysis.Indicators.EMA200, sig.Analysis.Indicators.RSI, sig.Analysis.Indicators.ATR)

	b.WriteString("Technical signal:\n")
	fmt.Fprintf(&b, "  direction=%s confidence=%.2f entry=%.2f stop_loss=%.2f take_profit=%.2f risk_reward=%.2f\n",
		sig.Direction, sig.Confidence, sig.Entry, sig.StopLoss, sig.TakeProfit, sig.RiskRewardRatio)

	return systemPrompt, b.String()
}
