package marvin

import (
	"encoding/json"
	"testing"
)

func TestTimestamp_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		input string
		want  Timestamp
	}{
		{`1710460800000`, 1710460800000},
		{`1710460800000.0`, 1710460800000},
		{`"2024-03-15"`, 1710460800000},
		{`"2024-03-15T00:00:00Z"`, 1710460800000},
		{`null`, 0},
		{`""`, 0},
		{`"someday"`, 0},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			var got Timestamp
			if err := json.Unmarshal([]byte(tt.input), &got); err != nil {
				t.Fatalf("Unmarshal(%s) error = %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("Unmarshal(%s) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}
}

func TestTimestamp_UnmarshalJSON_Invalid(t *testing.T) {
	var got Timestamp
	if err := json.Unmarshal([]byte(`{"a":1}`), &got); err == nil {
		t.Error("expected error for object input")
	}
}

func TestMillis_UnmarshalJSON(t *testing.T) {
	var task Task
	if err := json.Unmarshal([]byte(`{"_id":"t1","title":"x","timeEstimate":1800000.0,"dueDate":null}`), &task); err != nil {
		t.Fatalf("Unmarshal error = %v", err)
	}
	if task.TimeEstimate != 1800000 {
		t.Errorf("TimeEstimate = %d, want 1800000", task.TimeEstimate)
	}
	if !task.DueDate.IsZero() {
		t.Errorf("DueDate = %d, want zero", task.DueDate)
	}
}
