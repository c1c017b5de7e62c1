package alert

import (
	"fmt"
	"strings"
)

// Field aliases accepted from different Pine script styles.
var (
	sideKeys   = []string{"side", "signal", "action"}
	symbolKeys = []string{"symbol", "ticker", "s", "tv_symbol"}
	tfKeys     = []string{"tf", "timeframe", "interval"}
	priceKeys  = []string{"price", "p"}
	slKeys     = []string{"sl", "stop", "stoploss"}
	noteKeys   = []string{"note", "comment", "msg", "message"}
	timeKeys   = []string{"time", "timestamp", "t"}
)

// Format builds the Telegram message for a payload. Recognized fields are
// composed into labeled lines; a payload carrying none of them but a raw text
// is forwarded verbatim so hand-written alerts survive untouched.
func Format(botName string, p Payload) string {
	side := First(p, sideKeys...)
	symbol := First(p, symbolKeys...)
	tf := First(p, tfKeys...)
	price := First(p, priceKeys...)
	sl := First(p, slKeys...)
	tp1 := First(p, "tp1")
	tp2 := First(p, "tp2")
	tp3 := First(p, "tp3")
	note := First(p, noteKeys...)
	ts := First(p, timeKeys...)

	raw := First(p, "raw")
	if side == "" && symbol == "" && price == "" && sl == "" &&
		tp1 == "" && tp2 == "" && tp3 == "" && note == "" && raw != "" {
		return fmt.Sprintf("🤖 %s\n\n📩 Webhook:\n%s", botName, raw)
	}

	lines := []string{"🤖 " + botName}
	if side != "" {
		lines = append(lines, fmt.Sprintf("%s Signal: %s", SideEmoji(side), side))
	}
	if symbol != "" {
		lines = append(lines, "💱 Symbol: "+symbol)
	}
	if tf != "" {
		lines = append(lines, "⏱ TF: "+tf)
	}
	if price != "" {
		lines = append(lines, "💰 Price: "+price)
	}
	if sl != "" {
		lines = append(lines, "🛡 SL: "+sl)
	}
	var targets []string
	for _, tp := range []string{tp1, tp2, tp3} {
		if tp != "" {
			targets = append(targets, tp)
		}
	}
	if len(targets) > 0 {
		lines = append(lines, "🎯 Targets: "+strings.Join(targets, " | "))
	}
	if ts != "" {
		lines = append(lines, "🕒 Time: "+ts)
	}
	if note != "" {
		lines = append(lines, "\n📝 Note: "+note)
	}

	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// SideEmoji maps a trade direction to its status emoji: green for longs, red
// for shorts, yellow for anything unrecognized.
func SideEmoji(side string) string {
	up := strings.ToUpper(side)
	switch {
	case strings.Contains(up, "BUY") || strings.Contains(up, "LONG"):
		return "🟢"
	case strings.Contains(up, "SELL") || strings.Contains(up, "SHORT"):
		return "🔴"
	default:
		return "🟡"
	}
}

// Side returns the payload's trade direction, empty if absent.
func Side(p Payload) string { return First(p, sideKeys...) }

// Symbol returns the payload's instrument, empty if absent.
func Symbol(p Payload) string { return First(p, symbolKeys...) }
