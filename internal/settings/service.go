// Package settings owns the map display configuration and broadcasts
// changes to every subscriber in the process.
package settings

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/maniartech/signals"

	"github.com/LinkesAuge/duneatlas/internal/poi"
	"github.com/LinkesAuge/duneatlas/internal/storage"
)

// SettingName keys the map settings document in storage.
const SettingName = "map_settings"

// ErrBadIconSizes is returned when the icon size triple is not ordered
// min <= base <= max or not positive.
var ErrBadIconSizes = errors.New("icon sizes must satisfy 0 < min <= base <= max")

// Service loads and persists map settings. Every successful Put is
// emitted on a synchronous signal so open map views re-render with the
// new configuration.
type Service struct {
	store  storage.SettingsStore
	signal signals.Signal[poi.MapSettings]
	logger *slog.Logger
}

func NewService(store storage.SettingsStore, logger *slog.Logger) *Service {
	return &Service{
		store:  store,
		signal: signals.NewSync[poi.MapSettings](),
		logger: logger,
	}
}

// Get returns the stored settings, or the defaults when nothing has
// been stored yet.
func (s *Service) Get(ctx context.Context) (poi.MapSettings, error) {
	ms := poi.DefaultMapSettings()
	found, err := s.store.GetSetting(ctx, SettingName, &ms)
	if err != nil {
		return poi.MapSettings{}, fmt.Errorf("load map settings: %w", err)
	}
	if !found {
		return poi.DefaultMapSettings(), nil
	}
	if ms.DefaultVisibleTypes == nil {
		ms.DefaultVisibleTypes = []string{}
	}
	return ms, nil
}

// Put validates, persists and broadcasts new settings. Subscribers run
// before Put returns.
func (s *Service) Put(ctx context.Context, ms poi.MapSettings) error {
	if ms.IconMinSize <= 0 || ms.IconMinSize > ms.IconBaseSize || ms.IconBaseSize > ms.IconMaxSize {
		return ErrBadIconSizes
	}
	if ms.DefaultVisibleTypes == nil {
		ms.DefaultVisibleTypes = []string{}
	}
	if err := s.store.PutSetting(ctx, SettingName, ms); err != nil {
		return fmt.Errorf("store map settings: %w", err)
	}
	s.logger.Info("map settings updated",
		"icon_base", ms.IconBaseSize,
		"subscribers", s.signal.Len())
	s.signal.Emit(ctx, ms)
	return nil
}

// Subscribe registers a listener under a key. The same key subscribes
// at most once; subscribers must Unsubscribe on teardown.
func (s *Service) Subscribe(key string, fn func(context.Context, poi.MapSettings)) {
	s.signal.AddListener(fn, key)
}

// Unsubscribe removes the listener registered under key.
func (s *Service) Unsubscribe(key string) {
	s.signal.RemoveListener(key)
}
