package roster

import (
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"
)

// TargetWeeklyHours is the weekly hour budget of a special-support class.
const TargetWeeklyHours = 29

// hoursTolerance is how far a total may drift from the target before it is
// flagged.
const hoursTolerance = 3

// HoursSubject is one subject line of a special-support hour budget.
type HoursSubject struct {
	Code string
	Name string
}

// HoursSubjects lists the budget subjects in display order.
var HoursSubjects = []HoursSubject{
	{Code: "special-kokugo", Name: "国語"},
	{Code: "special-shakai", Name: "社会"},
	{Code: "special-sugaku", Name: "数学"},
	{Code: "special-rika", Name: "理科"},
	{Code: "special-ongaku", Name: "音楽"},
	{Code: "special-bijutsu", Name: "美術"},
	{Code: "special-taiiku", Name: "保健体育"},
	{Code: "special-gijutsu", Name: "技術・家庭"},
	{Code: "special-gaikokugo", Name: "外国語"},
	{Code: "special-doutoku", Name: "道徳"},
	{Code: "special-sougou", Name: "総合"},
	{Code: "special-tokkatsu", Name: "特活"},
	{Code: "special-jiritsu", Name: "自立活動"},
	{Code: "special-sagyou", Name: "作業学習"},
}

// DefaultHours returns the budget that adds up to TargetWeeklyHours.
func DefaultHours() HoursConfig {
	return HoursConfig{
		"special-kokugo":    4,
		"special-shakai":    2,
		"special-sugaku":    4,
		"special-rika":      2,
		"special-ongaku":    2,
		"special-bijutsu":   1,
		"special-taiiku":    3,
		"special-gijutsu":   2,
		"special-gaikokugo": 3,
		"special-doutoku":   1,
		"special-sougou":    2,
		"special-tokkatsu":  1,
		"special-jiritsu":   1,
		"special-sagyou":    1,
	}
}

// HoursStatus classifies a weekly total against TargetWeeklyHours.
type HoursStatus string

const (
	HoursGood    HoursStatus = "good"
	HoursNormal  HoursStatus = "normal"
	HoursWarning HoursStatus = "warning"
)

// Total sums every entry of cfg.
func Total(cfg HoursConfig) int {
	total := 0
	for _, h := range cfg {
		total += h
	}
	return total
}

// Status reports good for an exact match, warning when the total is more
// than three hours off, and normal otherwise.
func Status(total int) HoursStatus {
	diff := total - TargetWeeklyHours
	switch {
	case diff == 0:
		return HoursGood
	case diff > hoursTolerance || diff < -hoursTolerance:
		return HoursWarning
	default:
		return HoursNormal
	}
}

// HoursStore keeps the per-class special-support hour budgets.
type HoursStore struct {
	listeners

	mu      sync.RWMutex
	configs map[string]HoursConfig

	persist Persistence
	opts    options
}

// NewHoursStore returns an empty store backed by p. Call Load to read it.
func NewHoursStore(p Persistence, opts ...Option) *HoursStore {
	return &HoursStore{
		configs: map[string]HoursConfig{},
		persist: p,
		opts:    buildOptions(opts),
	}
}

// Load reads every saved budget. Missing or unreadable data yields none.
func (h *HoursStore) Load() {
	var configs map[string]HoursConfig
	if !h.persist.Load(KeyHoursConfig, &configs) || configs == nil {
		configs = map[string]HoursConfig{}
	}

	h.mu.Lock()
	h.configs = configs
	h.mu.Unlock()
}

// Get returns the budget of classID. Classes without a saved budget get a
// copy of DefaultHours and ok is false.
func (h *HoursStore) Get(classID string) (cfg HoursConfig, ok bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if saved, found := h.configs[classID]; found {
		return maps.Clone(saved), true
	}
	return DefaultHours(), false
}

// All returns a copy of every saved budget keyed by class id.
func (h *HoursStore) All() map[string]HoursConfig {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make(map[string]HoursConfig, len(h.configs))
	for id, cfg := range h.configs {
		out[id] = maps.Clone(cfg)
	}
	return out
}

// ClassIDs returns the ids with a saved budget, sorted.
func (h *HoursStore) ClassIDs() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return slices.Sorted(maps.Keys(h.configs))
}

// Save stores cfg as the budget of classID, replacing any previous one.
// An empty cfg is rejected; use Reset to fall back to DefaultHours.
func (h *HoursStore) Save(classID string, cfg HoursConfig) error {
	classID = strings.TrimSpace(classID)

	var errs ValidationErrors
	if classID == "" {
		errs.add("class", "class id is required", nil, ErrEmptyName)
	}
	if len(cfg) == 0 {
		errs.add("hours", "at least one subject budget is required", nil, ErrInvalidHours)
	}
	for _, code := range slices.Sorted(maps.Keys(cfg)) {
		if cfg[code] < 0 {
			errs.add(code, "hours must not be negative", cfg[code], ErrInvalidHours)
		}
	}
	if err := errs.err(); err != nil {
		return err
	}

	h.mu.Lock()
	h.configs[classID] = maps.Clone(cfg)
	err := h.commitLocked()
	h.mu.Unlock()

	h.opts.logger.Debug("saved hours config", "class", classID, "total", Total(cfg))
	h.notify(Change{Kind: ChangeHours})
	return err
}

// Reset drops the saved budget of classID so it falls back to DefaultHours.
func (h *HoursStore) Reset(classID string) (bool, error) {
	n, err := h.Prune([]string{classID})
	return n > 0, err
}

// Prune deletes the budgets of the given class ids and returns how many
// existed.
func (h *HoursStore) Prune(classIDs []string) (int, error) {
	h.mu.Lock()
	var removed []string
	for _, id := range classIDs {
		if _, ok := h.configs[id]; ok {
			delete(h.configs, id)
			removed = append(removed, id)
		}
	}
	if len(removed) == 0 {
		h.mu.Unlock()
		return 0, nil
	}
	err := h.commitLocked()
	h.mu.Unlock()

	h.notify(Change{Kind: ChangeHours, Removed: removed})
	return len(removed), err
}

func (h *HoursStore) commitLocked() error {
	if !h.persist.Save(KeyHoursConfig, h.configs) {
		return fmt.Errorf("hours config: %w", ErrSaveFailed)
	}
	return nil
}
