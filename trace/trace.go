// Package trace carries span contexts across the replica update stream. A
// span context identifies the trace an update belongs to and holds the
// correlation id of the operation, so log lines emitted while processing an
// update can be tied back to it. Spans never influence the processing
// result.
package trace

import (
	"context"
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"
	"github.com/vocdoni/utt-core/log"
)

// ErrMalformedSpan is returned when a binary span context cannot be
// decoded.
var ErrMalformedSpan = errors.New("malformed span context")

// maxSpanSize bounds the size of a binary span context.
const maxSpanSize = 1024

// SpanContext identifies a span within a trace.
type SpanContext struct {
	TraceID       uuid.UUID `cbor:"0,keyasint"`
	SpanID        uuid.UUID `cbor:"1,keyasint"`
	ParentID      uuid.UUID `cbor:"2,keyasint,omitempty"`
	Name          string    `cbor:"3,keyasint,omitempty"`
	CorrelationID string    `cbor:"4,keyasint,omitempty"`
}

// NewRootSpan starts a new trace.
func NewRootSpan(name, correlationID string) SpanContext {
	return SpanContext{
		TraceID:       uuid.New(),
		SpanID:        uuid.New(),
		Name:          name,
		CorrelationID: correlationID,
	}
}

// Child returns a new span of the same trace whose parent is s. The
// correlation id is inherited.
func (s SpanContext) Child(name string) SpanContext {
	return SpanContext{
		TraceID:       s.TraceID,
		SpanID:        uuid.New(),
		ParentID:      s.SpanID,
		Name:          name,
		CorrelationID: s.CorrelationID,
	}
}

// IsRoot reports whether s has no parent.
func (s SpanContext) IsRoot() bool {
	return s.ParentID == uuid.Nil
}

// IsZero reports whether s is the empty span context.
func (s SpanContext) IsZero() bool {
	return s.TraceID == uuid.Nil
}

// LogFields returns the key-value pairs identifying s in log lines.
func (s SpanContext) LogFields() []any {
	return []any{
		"traceId", s.TraceID.String(),
		"spanId", s.SpanID.String(),
		"span", s.Name,
		"correlationId", s.CorrelationID,
	}
}

// Inject encodes s into its binary form.
func Inject(s SpanContext) ([]byte, error) {
	encOpts := cbor.CoreDetEncOptions()
	em, err := encOpts.EncMode()
	if err != nil {
		return nil, fmt.Errorf("encode span: %w", err)
	}
	return em.Marshal(s)
}

// Extract decodes a binary span context produced by Inject.
func Extract(data []byte) (SpanContext, error) {
	var s SpanContext
	if len(data) == 0 || len(data) > maxSpanSize {
		return s, fmt.Errorf("%w: size %d", ErrMalformedSpan, len(data))
	}
	if err := cbor.Unmarshal(data, &s); err != nil {
		return SpanContext{}, fmt.Errorf("%w: %v", ErrMalformedSpan, err)
	}
	if s.IsZero() || s.SpanID == uuid.Nil {
		return SpanContext{}, fmt.Errorf("%w: missing identifiers", ErrMalformedSpan)
	}
	return s, nil
}

// CreateChildSpanFromBinary extracts the span context carried by data and
// returns a child span called childName. If data is empty or cannot be
// decoded a new root span is returned instead, so a bad trace context never
// blocks the traced operation. A non empty correlationID overrides the
// inherited one.
func CreateChildSpanFromBinary(data []byte, childName, correlationID string) SpanContext {
	if len(data) == 0 {
		return NewRootSpan(childName, correlationID)
	}
	parent, err := Extract(data)
	if err != nil {
		log.Debugw("discarding span context", "error", err.Error(), "correlationId", correlationID)
		return NewRootSpan(childName, correlationID)
	}
	child := parent.Child(childName)
	if correlationID != "" {
		child.CorrelationID = correlationID
	}
	return child
}

type spanKey struct{}

// WithSpan returns a copy of ctx carrying s.
func WithSpan(ctx context.Context, s SpanContext) context.Context {
	return context.WithValue(ctx, spanKey{}, s)
}

// FromContext returns the span carried by ctx, if any.
func FromContext(ctx context.Context) (SpanContext, bool) {
	s, ok := ctx.Value(spanKey{}).(SpanContext)
	return s, ok
}
