package inventory

import (
	"fmt"
	"strings"

	"github.com/spf13/cast"

	"github.com/rflorenc/foreman-inventory/internal/models"
)

// Pattern is a compiled group pattern like "{app}-{tier}". Literal braces
// are written {{ and }}. Compile once at configuration load; expansion never
// fails, it only declines.
type Pattern struct {
	raw      string
	segments []patternSegment
}

// patternSegment is either a literal chunk (key == "") or a placeholder.
type patternSegment struct {
	literal string
	key     string
}

// CompilePattern parses a group pattern. Empty patterns, unbalanced braces,
// empty placeholders and placeholder names outside [A-Za-z0-9_] are rejected
// here so bad configuration surfaces before any host is processed.
func CompilePattern(raw string) (Pattern, error) {
	if raw == "" {
		return Pattern{}, fmt.Errorf("empty pattern")
	}
	p := Pattern{raw: raw}
	var lit strings.Builder
	flush := func() {
		if lit.Len() > 0 {
			p.segments = append(p.segments, patternSegment{literal: lit.String()})
			lit.Reset()
		}
	}
	for i := 0; i < len(raw); {
		switch raw[i] {
		case '{':
			if i+1 < len(raw) && raw[i+1] == '{' {
				lit.WriteByte('{')
				i += 2
				continue
			}
			end := strings.IndexByte(raw[i+1:], '}')
			if end < 0 {
				return Pattern{}, fmt.Errorf("pattern %q: unbalanced '{'", raw)
			}
			key := raw[i+1 : i+1+end]
			if key == "" {
				return Pattern{}, fmt.Errorf("pattern %q: empty placeholder", raw)
			}
			if !validPlaceholder(key) {
				return Pattern{}, fmt.Errorf("pattern %q: invalid placeholder %q", raw, key)
			}
			flush()
			p.segments = append(p.segments, patternSegment{key: key})
			i += end + 2
		case '}':
			if i+1 < len(raw) && raw[i+1] == '}' {
				lit.WriteByte('}')
				i += 2
				continue
			}
			return Pattern{}, fmt.Errorf("pattern %q: unbalanced '}'", raw)
		default:
			lit.WriteByte(raw[i])
			i++
		}
	}
	flush()
	return p, nil
}

// MustCompilePattern is CompilePattern for patterns known good at compile
// time, mainly tests.
func MustCompilePattern(raw string) Pattern {
	p, err := CompilePattern(raw)
	if err != nil {
		panic(err)
	}
	return p
}

// Expand substitutes params into the pattern and sanitizes the result. ok is
// false when any referenced key is missing from params; a partially
// substituted group name is never produced.
func (p Pattern) Expand(params models.Params) (string, bool) {
	var b strings.Builder
	for _, seg := range p.segments {
		if seg.key == "" {
			b.WriteString(seg.literal)
			continue
		}
		v, ok := params[seg.key]
		if !ok {
			return "", false
		}
		b.WriteString(cast.ToString(v))
	}
	return Sanitize(b.String()), true
}

// String returns the original pattern text.
func (p Pattern) String() string { return p.raw }

func validPlaceholder(key string) bool {
	for i := 0; i < len(key); i++ {
		c := key[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '_':
		default:
			return false
		}
	}
	return true
}
