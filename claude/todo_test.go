package claude

import (
	"encoding/json"
	"testing"
)

func TestParseTodoWriteInput(t *testing.T) {
	input := json.RawMessage(`{"todos":[
		{"content":"Run tests","status":"pending","activeForm":"Running tests"},
		{"content":"Fix bug","status":"in_progress","activeForm":"Fixing bug"},
		{"content":"Write docs","status":"completed","activeForm":"Writing docs"}
	]}`)

	items, err := ParseTodoWriteInput(input)
	if err != nil {
		t.Fatalf("ParseTodoWriteInput: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("items = %d, want 3", len(items))
	}
	if items[0].Content != "Run tests" || items[0].Status != TodoStatusPending {
		t.Errorf("first item = %+v", items[0])
	}
	if items[1].ActiveForm != "Fixing bug" {
		t.Errorf("ActiveForm = %q, want Fixing bug", items[1].ActiveForm)
	}

	pending, inProgress, completed := CountTodosByStatus(items)
	if pending != 1 || inProgress != 1 || completed != 1 {
		t.Errorf("counts = %d/%d/%d, want 1/1/1", pending, inProgress, completed)
	}
}

func TestParseTodoWriteInput_Errors(t *testing.T) {
	if _, err := ParseTodoWriteInput(nil); err == nil {
		t.Error("expected error for empty input")
	}
	if _, err := ParseTodoWriteInput(json.RawMessage(`{"todos":[]}`)); err == nil {
		t.Error("expected error for zero todos")
	}
	if _, err := ParseTodoWriteInput(json.RawMessage(`not json`)); err == nil {
		t.Error("expected error for malformed input")
	}
}
