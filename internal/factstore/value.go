package factstore

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Value is a native fact value. The variant is closed: Symbol, String,
// Integer and Float.
type Value interface {
	factValue()
	// String returns the literal text that parses back to the same value.
	String() string
}

// Symbol is a bare word such as True, nil or pizza_size.
type Symbol string

// String is a double-quoted string literal.
type String string

// Integer is a 64-bit integer literal.
type Integer int64

// Float is a floating point literal.
type Float float64

func (Symbol) factValue()  {}
func (String) factValue()  {}
func (Integer) factValue() {}
func (Float) factValue()   {}

func (s Symbol) String() string { return string(s) }

func (s String) String() string { return Quote(string(s)) }

func (i Integer) String() string { return strconv.FormatInt(int64(i), 10) }

// String always renders a fraction or exponent so the literal reads back as a Float.
func (f Float) String() string {
	s := strconv.FormatFloat(float64(f), 'g', -1, 64)
	if !strings.ContainsAny(s, ".eEn") {
		s += ".0"
	}
	return s
}

// Quote renders s as a string literal, escaping backslashes and double quotes.
func Quote(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('"')
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '"' || c == '\\' {
			b.WriteByte('\\')
		}
		b.WriteByte(c)
	}
	b.WriteByte('"')
	return b.String()
}

var (
	integerPattern = regexp.MustCompile(`^[+-]?[0-9]+$`)
	floatPattern   = regexp.MustCompile(`^[+-]?([0-9]+\.[0-9]*|\.[0-9]+|[0-9]+)([eE][+-]?[0-9]+)?$`)
)

// ParseAtom classifies an unquoted token as an Integer, Float or Symbol.
func ParseAtom(text string) (Value, error) {
	if text == "" {
		return nil, fmt.Errorf("empty atom")
	}
	if integerPattern.MatchString(text) {
		n, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("integer %s out of range", text)
		}
		return Integer(n), nil
	}
	if floatPattern.MatchString(text) {
		f, err := strconv.ParseFloat(text, 64)
		if err != nil || math.IsInf(f, 0) {
			return nil, fmt.Errorf("float %s out of range", text)
		}
		return Float(f), nil
	}
	if strings.HasPrefix(text, "?") || strings.HasPrefix(text, "$?") {
		return nil, fmt.Errorf("variable %s not allowed in a fact", text)
	}
	return Symbol(text), nil
}

// IsSymbolText reports whether text would be read back as a Symbol when
// written bare.
func IsSymbolText(text string) bool {
	if text == "" || strings.ContainsAny(text, "()\"; \t\r\n") {
		return false
	}
	v, err := ParseAtom(text)
	if err != nil {
		return false
	}
	_, ok := v.(Symbol)
	return ok
}

// Text returns the textual content of a Symbol or String, and false for numbers.
func Text(v Value) (string, bool) {
	switch val := v.(type) {
	case Symbol:
		return string(val), true
	case String:
		return string(val), true
	}
	return "", false
}

// FormatValues renders values as a space-separated literal list.
func FormatValues(values []Value) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = v.String()
	}
	return strings.Join(parts, " ")
}
