package monitor

import (
	"context"
	"fmt"
	"sync"

	"github.com/urldev/plugin-monitor/pkg/store"
)

// SaveFunc is called after the slug list has been saved.
type SaveFunc func(ctx context.Context, slugs []string)

// Settings persists the slug list.
type Settings struct {
	store store.Store

	mu    sync.RWMutex
	hooks []SaveFunc
}

// NewSettings creates a new Settings.
func NewSettings(st store.Store) *Settings {
	return &Settings{store: st}
}

// OnSave registers a function called, in registration order, after each save.
func (s *Settings) OnSave(fn SaveFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.hooks = append(s.hooks, fn)
}

// Raw returns the stored slug list as entered.
func (s *Settings) Raw(ctx context.Context) (string, error) {
	return loadOption(ctx, s.store)
}

// Slugs returns the stored slug list.
func (s *Settings) Slugs(ctx context.Context) ([]string, error) {
	raw, err := loadOption(ctx, s.store)
	if err != nil {
		return nil, err
	}

	return ParseSlugs(raw), nil
}

// Save stores the slug list and runs the save hooks.
func (s *Settings) Save(ctx context.Context, raw string) error {
	err := s.store.Set(ctx, OptionKey, []byte(raw), 0)
	if err != nil {
		return fmt.Errorf("failed to store settings: %w", err)
	}

	s.mu.RLock()
	hooks := make([]SaveFunc, len(s.hooks))
	copy(hooks, s.hooks)
	s.mu.RUnlock()

	slugs := ParseSlugs(raw)
	for _, hook := range hooks {
		hook(ctx, slugs)
	}

	return nil
}

// Seed stores the slug list unless one is already stored. Save hooks are not run.
func (s *Settings) Seed(ctx context.Context, raw string) (bool, error) {
	_, found, err := s.store.Get(ctx, OptionKey)
	if err != nil {
		return false, fmt.Errorf("failed to read settings: %w", err)
	}

	if found {
		return false, nil
	}

	err = s.store.Set(ctx, OptionKey, []byte(raw), 0)
	if err != nil {
		return false, fmt.Errorf("failed to store settings: %w", err)
	}

	return true, nil
}

func loadOption(ctx context.Context, st store.Store) (string, error) {
	data, _, err := st.Get(ctx, OptionKey)
	if err != nil {
		return "", fmt.Errorf("failed to read settings: %w", err)
	}

	return string(data), nil
}
