package models

import (
	"encoding/json"
	"testing"
)

func TestNewID_Unique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := NewID()
		if id == "" {
			t.Fatal("NewID() returned empty string")
		}
		if seen[id] {
			t.Fatalf("NewID() returned duplicate id %q", id)
		}
		seen[id] = true
	}
}

func TestEncodeMetadata(t *testing.T) {
	tests := []struct {
		name     string
		entities map[string][]string
		want     string
	}{
		{
			name:     "nil map",
			entities: nil,
			want:     "{}",
		},
		{
			name:     "empty map",
			entities: map[string][]string{},
			want:     "{}",
		},
		{
			name:     "single category",
			entities: map[string][]string{"emails": {"a@example.com"}},
			want:     `{"emails":["a@example.com"]}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EncodeMetadata(tt.entities)
			if got != tt.want {
				t.Errorf("EncodeMetadata() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestEncodeMetadata_RoundTrip(t *testing.T) {
	entities := map[string][]string{
		"emails": {"a@example.com", "b@example.com"},
		"dates":  {"2024-01-02"},
	}

	var decoded map[string][]string
	if err := json.Unmarshal([]byte(EncodeMetadata(entities)), &decoded); err != nil {
		t.Fatalf("metadata is not valid JSON: %v", err)
	}
	if len(decoded["emails"]) != 2 || decoded["dates"][0] != "2024-01-02" {
		t.Errorf("round trip mismatch: %v", decoded)
	}
}
