package alert

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatComposedMessage(t *testing.T) {
	p := Payload{
		"side":   "BUY",
		"symbol": "XAUUSD",
		"tf":     "15m",
		"price":  "2345.6",
		"sl":     "2339.0",
		"tp1":    "2350.0",
		"tp2":    "2355.0",
		"note":   "break of structure",
		"time":   "2026-08-25T12:00:00Z",
	}

	msg := Format("OBSIDIAN GOLD PRIME", p)

	expected := strings.Join([]string{
		"🤖 OBSIDIAN GOLD PRIME",
		"🟢 Signal: BUY",
		"💱 Symbol: XAUUSD",
		"⏱ TF: 15m",
		"💰 Price: 2345.6",
		"🛡 SL: 2339.0",
		"🎯 Targets: 2350.0 | 2355.0",
		"🕒 Time: 2026-08-25T12:00:00Z",
		"",
		"📝 Note: break of structure",
	}, "\n")
	assert.Equal(t, expected, msg)
}

func TestFormatRawFallback(t *testing.T) {
	p := ParseKVText("fire at will")
	msg := Format("OBSIDIAN GOLD PRIME", p)

	assert.Equal(t, "🤖 OBSIDIAN GOLD PRIME\n\n📩 Webhook:\nfire at will", msg)
}

func TestFormatRawWinsWithoutSignalFields(t *testing.T) {
	// tf and time alone do not make a signal; with raw text available the
	// message is forwarded verbatim instead.
	p := Payload{"tf": "15m", "raw": "tf=15m"}
	msg := Format("BOT", p)

	assert.Equal(t, "🤖 BOT\n\n📩 Webhook:\ntf=15m", msg)
}

func TestFormatComposesWithoutRaw(t *testing.T) {
	// A structured payload never carries raw text, so even a lone tf field
	// composes.
	p := Payload{"tf": "15m"}
	msg := Format("BOT", p)

	assert.Equal(t, "🤖 BOT\n⏱ TF: 15m", msg)
}

func TestFormatOmitsMissingFields(t *testing.T) {
	p := Payload{"side": "SELL", "symbol": "XAUUSD"}
	msg := Format("BOT", p)

	assert.Contains(t, msg, "🔴 Signal: SELL")
	assert.Contains(t, msg, "💱 Symbol: XAUUSD")
	assert.NotContains(t, msg, "💰 Price:")
	assert.NotContains(t, msg, "🎯 Targets:")
	assert.NotContains(t, msg, "📝 Note:")
}

func TestFormatFieldAliases(t *testing.T) {
	p := Payload{
		"action":   "LONG",
		"ticker":   "XAUUSD",
		"interval": "1h",
		"p":        "2345",
		"stop":     "2339",
		"comment":  "alias check",
	}
	msg := Format("BOT", p)

	assert.Contains(t, msg, "🟢 Signal: LONG")
	assert.Contains(t, msg, "💱 Symbol: XAUUSD")
	assert.Contains(t, msg, "⏱ TF: 1h")
	assert.Contains(t, msg, "💰 Price: 2345")
	assert.Contains(t, msg, "🛡 SL: 2339")
	assert.Contains(t, msg, "📝 Note: alias check")
}

func TestSideEmoji(t *testing.T) {
	tests := []struct {
		side     string
		expected string
	}{
		{"BUY", "🟢"},
		{"buy", "🟢"},
		{"strong long", "🟢"},
		{"SELL", "🔴"},
		{"short", "🔴"},
		{"close", "🟡"},
		{"", "🟡"},
	}

	for _, tt := range tests {
		t.Run(tt.side, func(t *testing.T) {
			assert.Equal(t, tt.expected, SideEmoji(tt.side))
		})
	}
}
