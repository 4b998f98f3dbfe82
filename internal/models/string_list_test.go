package models

import (
	"reflect"
	"testing"
)

func TestStringListNormalized(t *testing.T) {
	got := StringList{" Fruit ", "", "Fruit", "Citrus", "  "}.Normalized()
	want := StringList{"Fruit", "Citrus"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestStringListNormalizedEmpty(t *testing.T) {
	got := StringList{}.Normalized()
	if len(got) != 0 {
		t.Fatalf("expected empty list, got %v", got)
	}
}
