package ai

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Decision is the normalized reply from the AI, regardless of which
// branch parsed it.
type Decision struct {
	Decision   string // BUY, SELL, or HOLD
	Confidence float64
	Entry      float64
	StopLoss   float64
	TakeProfit float64
	Reasoning  string
}

// ErrUnparseable means neither the strict nor the permissive branch
// could make sense of the reply; the caller falls through to the
// technical-only path.
var ErrUnparseable = fmt.Errorf("ai: unparseable reply")

var codeBlockPattern = regexp.MustCompile("(?s)^```(?:json)?\\s*\\n?(.*?)\\n?```$")

// stripMarkdownCodeBlock removes a fenced code block wrapper some
// providers add around JSON replies.
func stripMarkdownCodeBlock(reply string) string {
	reply = strings.TrimSpace(reply)
	if matches := codeBlockPattern.FindStringSubmatch(reply); len(matches) > 1 {
		return strings.TrimSpace(matches[1])
	}
	return reply
}

type strictReply struct {
	Decision   string  `json:"decision"`
	Confidence float64 `json:"confidence"`
	Entry      float64 `json:"entry"`
	StopLoss   float64 `json:"stop_loss"`
	TakeProfit float64 `json:"take_profit"`
	Reasoning  string  `json:"reasoning"`
}

// Parse tries a strict JSON branch first, falling back to a
// permissive tagged key/value text branch; both produce the same
// Decision shape.
func Parse(reply string) (Decision, error) {
	if d, err := parseStrict(reply); err == nil {
		return d, nil
	}
	if d, err := parsePermissive(reply); err == nil {
		return d, nil
	}
	return Decision{}, ErrUnparseable
}

func parseStrict(reply string) (Decision, error) {
	cleaned := stripMarkdownCodeBlock(reply)
	var r strictReply
	if err := json.Unmarshal([]byte(cleaned), &r); err != nil {
		return Decision{}, err
	}
	if r.Decision == "" {
		return Decision{}, fmt.Errorf("ai: missing decision field")
	}
	return Decision{
		Decision:   strings.ToUpper(r.Decision),
		Confidence: r.Confidence,
		Entry:      r.Entry,
		StopLoss:   r.StopLoss,
		TakeProfit: r.TakeProfit,
		Reasoning:  r.Reasoning,
	}, nil
}

var tagLinePattern = regexp.MustCompile(`(?i)^\s*([a-z_]+)\s*[:=]\s*(.+?)\s*$`)

// parsePermissive accepts a tagged key/value text reply, one
// "key: value" pair per line, e.g.:
//
//	decision: BUY
//	confidence: 0.8
//	reasoning: strong bullish structure
func parsePermissive(reply string) (Decision, error) {
	lines := strings.Split(reply, "\n")
	fields := map[string]string{}
	for _, line := range lines {
		if m := tagLinePattern.FindStringSubmatch(line); m != nil {
			fields[strings.ToLower(m[1])] = m[2]
		}
	}

	decision, ok := fields["decision"]
	if !ok || decision == "" {
		return Decision{}, fmt.Errorf("ai: no decision tag found")
	}

	d := Decision{
		Decision:  strings.ToUpper(strings.TrimSpace(decision)),
		Reasoning: fields["reasoning"],
	}
	d.Confidence = parseFloatOr(fields["confidence"], 0)
	d.Entry = parseFloatOr(fields["entry"], 0)
	d.StopLoss = parseFloatOr(fields["stop_loss"], 0)
	d.TakeProfit = parseFloatOr(fields["take_profit"], 0)
	return d, nil
}

func parseFloatOr(s string, fallback float64) float64 {
	if s == "" {
		return fallback
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return fallback
	}
	return v
}
