package redis

import (
	"context"
	"sync"
	"testing"
)

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(false)

	if s.ActiveCheckEnabled(ctx) {
		t.Fatal("initial value should be false")
	}

	enabled, err := s.Toggle(ctx)
	if err != nil || !enabled {
		t.Fatalf("Toggle() = %v, %v; want true, nil", enabled, err)
	}
	if !s.ActiveCheckEnabled(ctx) {
		t.Error("toggle not persisted")
	}

	if err := s.SetActiveCheck(ctx, false); err != nil {
		t.Fatal(err)
	}
	if s.ActiveCheckEnabled(ctx) {
		t.Error("SetActiveCheck(false) ignored")
	}
}

func TestMemoryStoreConcurrentToggle(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(false)

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Toggle(ctx)
		}()
	}
	wg.Wait()

	if s.ActiveCheckEnabled(ctx) {
		t.Error("an even number of toggles must restore the initial value")
	}
}

func TestParseFlag(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"1", true},
		{"true", true},
		{"0", false},
		{"false", false},
		{"", false},
		{"garbage", false},
	}
	for _, tt := range tests {
		if got := parseFlag(tt.in); got != tt.want {
			t.Errorf("parseFlag(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
	if parseFlag(formatFlag(true)) != true || parseFlag(formatFlag(false)) != false {
		t.Error("formatFlag and parseFlag disagree")
	}
}

func TestMemoryStoreGeneration(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(true)

	steps := []struct {
		name  string
		apply func() error
		want  Mode
	}{
		{name: "initial", apply: func() error { return nil }, want: Mode{Enabled: true, Generation: 0}},
		{name: "toggle off", apply: func() error { _, err := s.Toggle(ctx); return err }, want: Mode{Enabled: false, Generation: 0}},
		{name: "toggle on", apply: func() error { _, err := s.Toggle(ctx); return err }, want: Mode{Enabled: true, Generation: 1}},
		{name: "set on while on", apply: func() error { return s.SetActiveCheck(ctx, true) }, want: Mode{Enabled: true, Generation: 1}},
		{name: "set off", apply: func() error { return s.SetActiveCheck(ctx, false) }, want: Mode{Enabled: false, Generation: 1}},
		{name: "set on", apply: func() error { return s.SetActiveCheck(ctx, true) }, want: Mode{Enabled: true, Generation: 2}},
	}

	for _, step := range steps {
		if err := step.apply(); err != nil {
			t.Fatalf("%s: %v", step.name, err)
		}
		if got := s.Mode(ctx); got != step.want {
			t.Errorf("%s: Mode() = %+v, want %+v", step.name, got, step.want)
		}
	}
}

func TestModeFromReply(t *testing.T) {
	tests := []struct {
		in   []string
		want Mode
	}{
		{[]string{"1", "3"}, Mode{Enabled: true, Generation: 3}},
		{[]string{"0", "3"}, Mode{Enabled: false, Generation: 3}},
		{[]string{"1", "junk"}, Mode{Enabled: true}},
		{[]string{"1"}, Mode{}},
	}
	for _, tt := range tests {
		if got := modeFromReply(tt.in); got != tt.want {
			t.Errorf("modeFromReply(%v) = %+v, want %+v", tt.in, got, tt.want)
		}
	}
}
