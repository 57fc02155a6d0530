package errors

import (
	"fmt"
	"testing"
)

func TestNewf_Message(t *testing.T) {
	err := Newf(MissingBinding, "Variable '%s' not found", "total")
	if err.Error() != "Variable 'total' not found" {
		t.Errorf("message = %q", err.Error())
	}
	if err.Code != MissingBinding {
		t.Errorf("code = %d", err.Code)
	}
}

func TestNew_DefaultMessage(t *testing.T) {
	err := New(FigureNotFound)
	if err.Error() != "figure not found" {
		t.Errorf("message = %q", err.Error())
	}
}

func TestCodeOf_ThroughWrapping(t *testing.T) {
	inner := New(Timeout)
	outer := fmt.Errorf("solution run: %w", inner)
	if CodeOf(outer) != Timeout {
		t.Errorf("code = %d, want Timeout", CodeOf(outer))
	}
	if !Is(outer, Timeout) {
		t.Error("Is(outer, Timeout) = false")
	}
	if Is(outer, ParseFailed) {
		t.Error("Is(outer, ParseFailed) = true")
	}
}

func TestCodeOf_PlainError(t *testing.T) {
	if CodeOf(fmt.Errorf("boom")) != Unknown {
		t.Error("plain error should map to Unknown")
	}
	if CodeOf(nil) != Unknown {
		t.Error("nil should map to Unknown")
	}
}

func TestWrap_Nil(t *testing.T) {
	if Wrap(nil, LoadFailed) != nil {
		t.Error("Wrap(nil) should be nil")
	}
}

func TestWithDetail(t *testing.T) {
	err := New(SeriesIndex).WithDetail("line_index", 2)
	if err.Details["line_index"] != 2 {
		t.Errorf("details = %v", err.Details)
	}
}

func TestIsUsage(t *testing.T) {
	for _, c := range []ErrorCode{NotExecuted, UnknownKind, InvalidParam} {
		if !c.IsUsage() {
			t.Errorf("%s should be a usage code", c.Name())
		}
	}
	if Timeout.IsUsage() {
		t.Error("timeout is not a usage code")
	}
}
