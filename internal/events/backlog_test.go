package events

import (
	"strconv"
	"testing"
)

func TestBacklog_Since(t *testing.T) {
	b := NewBacklog(100)

	for i := int64(1); i <= 10; i++ {
		b.Push(i, []byte(strconv.FormatInt(i, 10)))
	}

	got := b.Since(7)
	if len(got) != 3 {
		t.Fatalf("Since(7): expected 3, got %d", len(got))
	}
	for i, data := range got {
		want := strconv.Itoa(i + 8)
		if string(data) != want {
			t.Errorf("entry[%d] = %s, want %s", i, data, want)
		}
	}
}

func TestBacklog_Wraparound(t *testing.T) {
	b := NewBacklog(5) // tiny buffer

	// Push 8 entries: the first 3 are evicted
	for i := int64(1); i <= 8; i++ {
		b.Push(i, []byte(strconv.FormatInt(i, 10)))
	}

	got := b.Since(0)
	if len(got) != 5 {
		t.Fatalf("Since(0): expected 5, got %d", len(got))
	}
	if string(got[0]) != "4" {
		t.Errorf("oldest entry = %s, want 4", got[0])
	}
	if string(got[4]) != "8" {
		t.Errorf("newest entry = %s, want 8", got[4])
	}
}

func TestBacklog_CopiesInput(t *testing.T) {
	b := NewBacklog(2)
	data := []byte("abc")
	b.Push(1, data)
	data[0] = 'x'

	if got := b.Since(0); string(got[0]) != "abc" {
		t.Errorf("backlog kept caller's slice: %s", got[0])
	}
}

func TestBacklog_Empty(t *testing.T) {
	b := NewBacklog(10)
	if got := b.Since(0); len(got) != 0 {
		t.Fatalf("empty backlog Since should return 0, got %d", len(got))
	}
}
