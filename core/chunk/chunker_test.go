package chunk

import (
	"reflect"
	"testing"
)

func TestSplit(t *testing.T) {
	tokens := []string{"a", "b", "c", "d", "e"}
	tests := []struct {
		size int
		want [][]string
	}{
		{0, [][]string{{"a", "b", "c", "d", "e"}}},
		{2, [][]string{{"a", "b"}, {"c", "d"}, {"e"}}},
		{5, [][]string{{"a", "b", "c", "d", "e"}}},
		{9, [][]string{{"a", "b", "c", "d", "e"}}},
	}
	for _, tt := range tests {
		got := New(tt.size).Split(tokens)
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("size %d: expected %v, got %v", tt.size, tt.want, got)
		}
	}
}

func TestSplitEmpty(t *testing.T) {
	if got := New(3).Split(nil); got != nil {
		t.Errorf("Expected nil, got %v", got)
	}
}
