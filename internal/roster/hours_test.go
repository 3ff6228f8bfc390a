package roster

import (
	"errors"
	"reflect"
	"testing"
)

func TestDefaultHoursMatchTarget(t *testing.T) {
	if got := Total(DefaultHours()); got != TargetWeeklyHours {
		t.Errorf("Total(DefaultHours()) = %d, want %d", got, TargetWeeklyHours)
	}
	if len(DefaultHours()) != len(HoursSubjects) {
		t.Errorf("defaults cover %d codes, catalog lists %d", len(DefaultHours()), len(HoursSubjects))
	}
	for _, sub := range HoursSubjects {
		if _, ok := DefaultHours()[sub.Code]; !ok {
			t.Errorf("no default for %s", sub.Code)
		}
	}
}

func TestStatus(t *testing.T) {
	tests := []struct {
		total int
		want  HoursStatus
	}{
		{29, HoursGood},
		{30, HoursNormal},
		{32, HoursNormal},
		{33, HoursWarning},
		{26, HoursNormal},
		{25, HoursWarning},
		{0, HoursWarning},
	}
	for _, tt := range tests {
		if got := Status(tt.total); got != tt.want {
			t.Errorf("Status(%d) = %s, want %s", tt.total, got, tt.want)
		}
	}
}

func TestHoursGetSave(t *testing.T) {
	a := newAdapter(0)
	h := NewHoursStore(a, testOptions()...)
	h.Load()

	cfg, saved := h.Get("1-1")
	if saved || !reflect.DeepEqual(cfg, DefaultHours()) {
		t.Errorf("Get(unsaved) = %v, %v; want defaults", cfg, saved)
	}
	cfg["special-kokugo"] = 99
	if again, _ := h.Get("1-1"); again["special-kokugo"] != 4 {
		t.Error("Get returned shared defaults")
	}

	custom := HoursConfig{"special-kokugo": 5, "special-jiritsu": 3}
	if err := h.Save("1-1", custom); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}

	reloaded := NewHoursStore(a, testOptions()...)
	reloaded.Load()
	got, saved := reloaded.Get("1-1")
	if !saved || !reflect.DeepEqual(got, custom) {
		t.Errorf("reloaded = %v, %v; want %v", got, saved, custom)
	}
}

func TestHoursSaveValidation(t *testing.T) {
	h := NewHoursStore(newAdapter(0), testOptions()...)
	h.Load()

	if err := h.Save(" ", DefaultHours()); !errors.Is(err, ErrEmptyName) {
		t.Errorf("expected ErrEmptyName, got %v", err)
	}
	if err := h.Save("1-1", HoursConfig{"special-rika": -1}); !errors.Is(err, ErrInvalidHours) {
		t.Errorf("expected ErrInvalidHours, got %v", err)
	}
	for _, cfg := range []HoursConfig{nil, {}} {
		if err := h.Save("1-1", cfg); !errors.Is(err, ErrInvalidHours) {
			t.Errorf("Save(%v): expected ErrInvalidHours, got %v", cfg, err)
		}
	}
	if _, saved := h.Get("1-1"); saved {
		t.Error("empty budget was marked as saved")
	}
	if len(h.All()) != 0 {
		t.Error("rejected budget was stored")
	}
}

func TestHoursPrune(t *testing.T) {
	h := NewHoursStore(newAdapter(0), testOptions()...)
	h.Load()
	h.Save("1-1", DefaultHours())
	h.Save("1-2", DefaultHours())

	n, err := h.Prune([]string{"1-1", "9-9"})
	if err != nil || n != 1 {
		t.Fatalf("Prune() = %d, %v", n, err)
	}
	if !reflect.DeepEqual(h.ClassIDs(), []string{"1-2"}) {
		t.Errorf("remaining = %v", h.ClassIDs())
	}

	if ok, _ := h.Reset("1-2"); !ok {
		t.Error("Reset of a saved budget reported nothing removed")
	}
	if ok, _ := h.Reset("1-2"); ok {
		t.Error("second Reset reported a removal")
	}
}
