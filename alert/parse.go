// Package alert normalizes TradingView webhook payloads. TradingView sends
// whatever the alert author typed: JSON, form fields, or free-form text like
// "secret=XXX|side=BUY|symbol=XAUUSD", so every entry path funnels into the
// same Payload shape before anything downstream looks at it.
package alert

import (
	"encoding/json"
	"fmt"
	"mime"
	"mime/multipart"
	"net/url"
	"strconv"
	"strings"
)

// Payload is a parsed alert. Values keep their JSON types; Str flattens them
// on the way out.
type Payload map[string]any

// secretKeys are accepted aliases for the shared secret, in priority order.
var secretKeys = []string{"secret", "token", "passphrase", "webhook_secret"}

// Parse turns a request body into a Payload using the content type as a
// hint. Anything that fails structured parsing falls back to key/value text;
// an alert that reaches us is always worth relaying in some form.
func Parse(contentType string, body []byte) Payload {
	ct := strings.ToLower(contentType)
	text := strings.TrimSpace(string(body))

	switch {
	case strings.Contains(ct, "application/json"):
		if p, err := parseJSON(text); err == nil {
			return p
		}
		return ParseKVText(text)
	case strings.Contains(ct, "application/x-www-form-urlencoded"):
		if p, err := parseForm(text); err == nil {
			return p
		}
		return ParseKVText(text)
	case strings.Contains(ct, "multipart/form-data"):
		if p, err := parseMultipart(contentType, body); err == nil {
			return p
		}
		return ParseKVText(text)
	default:
		// TradingView often posts the alert message verbatim with a plain
		// text content type. If that message is itself JSON, honor it.
		if strings.HasPrefix(text, "{") && strings.HasSuffix(text, "}") {
			if p, err := parseJSON(text); err == nil {
				return p
			}
		}
		return ParseKVText(text)
	}
}

func parseJSON(text string) (Payload, error) {
	if text == "" {
		return Payload{}, nil
	}
	var p Payload
	if err := json.Unmarshal([]byte(text), &p); err != nil {
		return nil, err
	}
	return p, nil
}

func parseForm(text string) (Payload, error) {
	values, err := url.ParseQuery(text)
	if err != nil {
		return nil, err
	}
	p := make(Payload, len(values))
	for k, v := range values {
		if len(v) > 0 {
			p[k] = v[0]
		}
	}
	return p, nil
}

func parseMultipart(contentType string, body []byte) (Payload, error) {
	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return nil, err
	}
	boundary, ok := params["boundary"]
	if !ok {
		return nil, fmt.Errorf("multipart body without boundary")
	}
	form, err := multipart.NewReader(strings.NewReader(string(body)), boundary).ReadForm(1 << 20)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = form.RemoveAll()
	}()
	p := make(Payload, len(form.Value))
	for k, v := range form.Value {
		if len(v) > 0 {
			p[k] = v[0]
		}
	}
	return p, nil
}

// ParseKVText parses free-form alert text. The original text is preserved
// under "raw"; newline, semicolon and comma all act as pair separators, and
// each pair splits on the first "=" or, failing that, the first ":".
func ParseKVText(text string) Payload {
	p := Payload{"raw": text}
	normalized := strings.NewReplacer("\n", "|", ";", "|", ",", "|").Replace(text)
	for _, part := range strings.Split(normalized, "|") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		var key, value string
		if i := strings.Index(part, "="); i >= 0 {
			key, value = part[:i], part[i+1:]
		} else if i := strings.Index(part, ":"); i >= 0 {
			key, value = part[:i], part[i+1:]
		} else {
			continue
		}
		key = strings.ToLower(strings.TrimSpace(key))
		if key != "" {
			p[key] = strings.TrimSpace(value)
		}
	}
	return p
}

// ExtractSecret pulls the shared secret out of the payload. The first
// matching alias wins and is removed from the returned copy; an empty string
// means no secret was provided. Only the matched key is dropped, so the
// payload the formatter sees is otherwise exactly what the sender sent.
func ExtractSecret(p Payload) (string, Payload) {
	for _, k := range secretKeys {
		v, ok := p[k]
		if !ok || v == nil {
			continue
		}
		rest := make(Payload, len(p))
		for key, value := range p {
			if key != k {
				rest[key] = value
			}
		}
		return strings.TrimSpace(Str(v)), rest
	}
	return "", p
}

// Str flattens a payload value to the string form used in messages.
func Str(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprintf("%v", t)
	}
}

// First returns the first non-empty value among the given keys.
func First(p Payload, keys ...string) string {
	for _, k := range keys {
		if v, ok := p[k]; ok {
			if s := Str(v); s != "" {
				return s
			}
		}
	}
	return ""
}
