package trace

import (
	"context"
	"errors"
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/google/uuid"
)

func TestInjectExtract(t *testing.T) {
	c := qt.New(t)
	root := NewRootSpan("update", "cid-1")
	c.Assert(root.IsRoot(), qt.IsTrue)
	c.Assert(root.IsZero(), qt.IsFalse)

	data, err := Inject(root)
	c.Assert(err, qt.IsNil)
	// deterministic encoding
	data2, err := Inject(root)
	c.Assert(err, qt.IsNil)
	c.Assert(data, qt.DeepEquals, data2)

	got, err := Extract(data)
	c.Assert(err, qt.IsNil)
	c.Assert(got, qt.DeepEquals, root)

	for _, bad := range [][]byte{nil, {0xff}, {0xa0}, make([]byte, maxSpanSize+1)} {
		_, err := Extract(bad)
		c.Assert(errors.Is(err, ErrMalformedSpan), qt.IsTrue)
	}
}

func TestCreateChildSpanFromBinary(t *testing.T) {
	c := qt.New(t)
	root := NewRootSpan("replica", "cid-root")
	data, err := Inject(root)
	c.Assert(err, qt.IsNil)

	child := CreateChildSpanFromBinary(data, "burn", "")
	c.Assert(child.TraceID, qt.Equals, root.TraceID)
	c.Assert(child.ParentID, qt.Equals, root.SpanID)
	c.Assert(child.SpanID, qt.Not(qt.Equals), root.SpanID)
	c.Assert(child.CorrelationID, qt.Equals, "cid-root")
	c.Assert(child.Name, qt.Equals, "burn")

	overridden := CreateChildSpanFromBinary(data, "burn", "cid-2")
	c.Assert(overridden.CorrelationID, qt.Equals, "cid-2")

	// empty or broken contexts start a new trace
	fresh := CreateChildSpanFromBinary(nil, "burn", "cid-3")
	c.Assert(fresh.IsRoot(), qt.IsTrue)
	c.Assert(fresh.TraceID, qt.Not(qt.Equals), uuid.Nil)
	c.Assert(fresh.CorrelationID, qt.Equals, "cid-3")
	broken := CreateChildSpanFromBinary([]byte{1, 2, 3}, "burn", "cid-4")
	c.Assert(broken.IsRoot(), qt.IsTrue)
}

func TestContext(t *testing.T) {
	c := qt.New(t)
	_, ok := FromContext(context.Background())
	c.Assert(ok, qt.IsFalse)

	s := NewRootSpan("x", "cid")
	got, ok := FromContext(WithSpan(context.Background(), s))
	c.Assert(ok, qt.IsTrue)
	c.Assert(got, qt.DeepEquals, s)
	c.Assert(s.LogFields(), qt.HasLen, 8)
}
