package logging

import (
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/buffer"
	"go.uber.org/zap/zapcore"

	"github.com/fyrsmithlabs/notaclin/internal/config"
)

const masked = "[REDACTED]"

// RedactedString logs only the length of val.
func RedactedString(key, val string) zap.Field {
	return zap.String(key, "[REDACTED:"+strconv.Itoa(len(val))+"]")
}

// Secret logs a config.Secret as its length. Secrets are never logged by
// value, even with redaction disabled.
func Secret(key string, val config.Secret) zap.Field {
	return RedactedString(key, val.Value())
}

// redactor holds the compiled redaction rules.
type redactor struct {
	keys     map[string]struct{}
	patterns []*regexp.Regexp
}

func newRedactor(cfg RedactionConfig) (*redactor, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	patterns, err := compilePatterns(cfg.Patterns)
	if err != nil {
		return nil, err
	}
	r := &redactor{keys: make(map[string]struct{}, len(cfg.Keys)), patterns: patterns}
	for _, k := range cfg.Keys {
		r.keys[strings.ToLower(k)] = struct{}{}
	}
	return r, nil
}

func (r *redactor) key(k string) bool {
	_, ok := r.keys[strings.ToLower(k)]
	return ok
}

// scrub replaces every pattern match inside s.
func (r *redactor) scrub(s string) string {
	for _, re := range r.patterns {
		s = re.ReplaceAllString(s, masked)
	}
	return s
}

// RedactingEncoder masks sensitive keys and scrubs identifier patterns out
// of string values before the wrapped encoder sees them.
type RedactingEncoder struct {
	zapcore.Encoder
	r *redactor
}

// NewRedactingEncoder wraps base. With redaction disabled base is returned
// unchanged.
func NewRedactingEncoder(base zapcore.Encoder, cfg RedactionConfig) (zapcore.Encoder, error) {
	r, err := newRedactor(cfg)
	if err != nil {
		return nil, err
	}
	if r == nil {
		return base, nil
	}
	return &RedactingEncoder{Encoder: base, r: r}, nil
}

func (e *RedactingEncoder) AddString(key, val string) {
	if e.r.key(key) {
		e.Encoder.AddString(key, masked)
		return
	}
	e.Encoder.AddString(key, e.r.scrub(val))
}

func (e *RedactingEncoder) AddByteString(key string, val []byte) {
	if e.r.key(key) {
		e.Encoder.AddString(key, masked)
		return
	}
	e.Encoder.AddString(key, e.r.scrub(string(val)))
}

func (e *RedactingEncoder) AddBinary(key string, val []byte) {
	if e.r.key(key) {
		e.Encoder.AddString(key, masked)
		return
	}
	e.Encoder.AddBinary(key, val)
}

// AddReflected masks the whole value under a sensitive key. Nested fields
// of reflected values are not inspected.
func (e *RedactingEncoder) AddReflected(key string, val any) error {
	if e.r.key(key) {
		e.Encoder.AddString(key, masked)
		return nil
	}
	return e.Encoder.AddReflected(key, val)
}

func (e *RedactingEncoder) AddArray(key string, arr zapcore.ArrayMarshaler) error {
	if e.r.key(key) {
		e.Encoder.AddString(key, masked)
		return nil
	}
	return e.Encoder.AddArray(key, arr)
}

func (e *RedactingEncoder) AddObject(key string, obj zapcore.ObjectMarshaler) error {
	if e.r.key(key) {
		e.Encoder.AddString(key, masked)
		return nil
	}
	return e.Encoder.AddObject(key, obj)
}

// EncodeEntry scrubs the message and routes the call-site fields through
// the masking Add methods.
func (e *RedactingEncoder) EncodeEntry(ent zapcore.Entry, fields []zapcore.Field) (*buffer.Buffer, error) {
	ent.Message = e.r.scrub(ent.Message)
	enc := e.Clone().(*RedactingEncoder)
	for _, f := range fields {
		f.AddTo(enc)
	}
	return enc.Encoder.EncodeEntry(ent, nil)
}

func (e *RedactingEncoder) Clone() zapcore.Encoder {
	return &RedactingEncoder{Encoder: e.Encoder.Clone(), r: e.r}
}
