package instrumentation

import (
	"context"
	"errors"
	"testing"
)

func TestSpanAttributeBuilder(t *testing.T) {
	attrs := NewSpanAttributeBuilder().
		WithTool("marvin_mark_done").
		WithSession("session:abc").
		WithItem("t1").
		WithReadOnly(false).
		Build()

	if len(attrs) != 4 {
		t.Fatalf("expected 4 attributes, got %d", len(attrs))
	}

	attrMap := make(map[string]interface{})
	for _, attr := range attrs {
		attrMap[string(attr.Key)] = attr.Value.AsInterface()
	}
	if attrMap[SpanAttrTool] != "marvin_mark_done" {
		t.Errorf("expected tool 'marvin_mark_done', got %v", attrMap[SpanAttrTool])
	}
	if attrMap[SpanAttrSession] != "session:abc" {
		t.Errorf("expected session 'session:abc', got %v", attrMap[SpanAttrSession])
	}
	if attrMap[SpanAttrResourceID] != "t1" {
		t.Errorf("expected item 't1', got %v", attrMap[SpanAttrResourceID])
	}
	if attrMap[SpanAttrReadOnly] != false {
		t.Errorf("expected read_only false, got %v", attrMap[SpanAttrReadOnly])
	}
}

func TestSpanAttributeBuilder_EmptyValues(t *testing.T) {
	attrs := NewSpanAttributeBuilder().
		WithTool("marvin_get_labels").
		WithSession("").
		WithItem("").
		Build()

	if len(attrs) != 1 {
		t.Errorf("expected 1 attribute (only tool), got %d", len(attrs))
	}
}

func TestSpans_WithoutProvider(t *testing.T) {
	ctx := context.Background()

	ctx, span := StartToolSpan(ctx, "marvin_get_labels")
	SetSpanSuccess(span)
	span.End()

	_, span = StartUpstreamSpan(ctx, "GET", "/labels")
	SetSpanError(span, errors.New("boom"))
	SetSpanError(span, nil)
	span.End()

	_, span = StartSpan(ctx, "custom")
	span.End()
}

func TestGetTraceID_NoSpan(t *testing.T) {
	if id := GetTraceID(context.Background()); id != "" {
		t.Errorf("expected empty trace id, got %q", id)
	}
	if id := GetSpanID(context.Background()); id != "" {
		t.Errorf("expected empty span id, got %q", id)
	}
}
