package enginemodule

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/hashicorp/go-hclog"

	"github.com/mantonx/playerd/internal/config"
	"github.com/mantonx/playerd/internal/errors"
	"github.com/mantonx/playerd/internal/events"
	"github.com/mantonx/playerd/internal/types"
)

// Manager discovers engines from manifest directories and serves lookups.
// Each immediate subdirectory of the engine directory holding an engine.cue
// file is one engine.
type Manager struct {
	cfg      config.EngineConfig
	logger   hclog.Logger
	parser   *ManifestParser
	eventBus events.EventBus

	mu      sync.RWMutex
	engines map[string]types.Engine

	watcher  *fsnotify.Watcher
	stopCh   chan struct{}
	wg       sync.WaitGroup
	started  bool
}

// NewManager creates an engine manager.
func NewManager(cfg config.EngineConfig, logger hclog.Logger, eventBus events.EventBus) *Manager {
	return &Manager{
		cfg:      cfg,
		logger:   logger.Named("discovery"),
		parser:   NewManifestParser(),
		eventBus: eventBus,
		engines:  make(map[string]types.Engine),
		stopCh:   make(chan struct{}),
	}
}

// Start performs the initial scan and, when hot reload is enabled, begins
// watching the engine directory for added or removed engines.
func (m *Manager) Start(ctx context.Context) error {
	if err := os.MkdirAll(m.cfg.EngineDir, 0o755); err != nil {
		return fmt.Errorf("failed to create engine directory: %w", err)
	}

	if err := m.Refresh(ctx); err != nil {
		return err
	}

	if m.cfg.EnableHotReload {
		watcher, err := fsnotify.NewWatcher()
		if err != nil {
			return fmt.Errorf("failed to create engine watcher: %w", err)
		}
		if err := watcher.Add(m.cfg.EngineDir); err != nil {
			watcher.Close()
			return fmt.Errorf("failed to watch engine directory: %w", err)
		}
		m.watcher = watcher

		m.wg.Add(1)
		go m.watchLoop()
		m.logger.Info("engine hot reload enabled", "dir", m.cfg.EngineDir)
	}

	m.started = true
	return nil
}

// Stop ends the watch loop and shuts down every engine.
func (m *Manager) Stop(ctx context.Context) error {
	if m.watcher != nil {
		close(m.stopCh)
		m.watcher.Close()
		m.wg.Wait()
	}

	m.mu.Lock()
	engines := make([]types.Engine, 0, len(m.engines))
	for _, engine := range m.engines {
		engines = append(engines, engine)
	}
	m.engines = make(map[string]types.Engine)
	m.mu.Unlock()

	var firstErr error
	for _, engine := range engines {
		if err := engine.Shutdown(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Refresh rescans the engine directory. Newly discovered engines are added,
// engines whose directory disappeared are removed. Engines that fail to parse
// are logged and skipped; one bad manifest must not take down the rest.
func (m *Manager) Refresh(ctx context.Context) error {
	entries, err := os.ReadDir(m.cfg.EngineDir)
	if err != nil {
		return fmt.Errorf("failed to read engine directory: %w", err)
	}

	seen := make(map[string]bool)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		engineDir := filepath.Join(m.cfg.EngineDir, entry.Name())
		if _, err := os.Stat(filepath.Join(engineDir, ManifestFileName)); err != nil {
			continue
		}

		manifest, err := m.parser.ParseManifest(engineDir)
		if err != nil {
			m.logger.Warn("skipping engine with invalid manifest", "dir", engineDir, "error", err)
			m.publishEngineEvent(events.EventEngineError, entry.Name(), fmt.Sprintf("invalid manifest: %v", err))
			continue
		}
		if !manifest.Enabled {
			m.logger.Debug("skipping disabled engine", "engine_id", manifest.ID)
			continue
		}

		seen[manifest.ID] = true
		m.addEngine(manifest)
	}

	// Drop engines whose directory went away.
	m.mu.Lock()
	var removed []types.Engine
	for id, engine := range m.engines {
		if !seen[id] {
			removed = append(removed, engine)
			delete(m.engines, id)
		}
	}
	m.mu.Unlock()

	for _, engine := range removed {
		m.logger.Info("engine removed", "engine_id", engine.ID())
		m.publishEngineEvent(events.EventEngineRemoved, engine.ID(), "")
		if err := engine.Shutdown(ctx); err != nil {
			m.logger.Warn("engine shutdown failed", "engine_id", engine.ID(), "error", err)
		}
	}

	return nil
}

// addEngine builds the driver for a manifest and registers it. Already-known
// engine IDs are kept as-is; manifest edits require a daemon restart.
func (m *Manager) addEngine(manifest *Manifest) {
	m.mu.Lock()
	if _, exists := m.engines[manifest.ID]; exists {
		m.mu.Unlock()
		return
	}
	m.mu.Unlock()

	var engine types.Engine
	switch manifest.Type {
	case "mpv":
		engine = NewMPVEngine(manifest, m.cfg, m.logger)
	case "fake":
		engine = newFakeEngineFromManifest(manifest)
	default:
		// Validate() rejects unknown types before we get here.
		return
	}

	m.mu.Lock()
	m.engines[manifest.ID] = engine
	m.mu.Unlock()

	m.logger.Info("engine discovered", "engine_id", manifest.ID, "type", manifest.Type, "name", manifest.Name)
	m.publishEngineEvent(events.EventEngineDiscovered, manifest.ID, "")
}

// watchLoop reacts to engine directory changes. Changes are debounced because
// unpacking an engine produces a burst of filesystem events.
func (m *Manager) watchLoop() {
	defer m.wg.Done()

	var debounce *time.Timer
	trigger := make(chan struct{}, 1)

	for {
		select {
		case <-m.stopCh:
			return

		case event, ok := <-m.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Remove|fsnotify.Rename|fsnotify.Write) == 0 {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(500*time.Millisecond, func() {
				select {
				case trigger <- struct{}{}:
				default:
				}
			})

		case err, ok := <-m.watcher.Errors:
			if !ok {
				return
			}
			m.logger.Warn("engine watcher error", "error", err)

		case <-trigger:
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			if err := m.Refresh(ctx); err != nil {
				m.logger.Warn("engine rescan failed", "error", err)
			}
			cancel()
		}
	}
}

func (m *Manager) publishEngineEvent(eventType events.EventType, engineID, message string) {
	if m.eventBus == nil {
		return
	}
	event := events.NewEvent(eventType, "enginemodule", "Engine "+string(eventType), message)
	event.Data = map[string]interface{}{"engine_id": engineID}
	_ = m.eventBus.PublishAsync(event)
}

// ListEngines returns the discovered engines sorted by ID.
func (m *Manager) ListEngines() []types.EngineInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()

	infos := make([]types.EngineInfo, 0, len(m.engines))
	for _, engine := range m.engines {
		infos = append(infos, engine.Info())
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].ID < infos[j].ID })
	return infos
}

// GetEngine retrieves an engine by ID.
func (m *Manager) GetEngine(engineID string) (types.Engine, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	engine, exists := m.engines[engineID]
	if !exists {
		return nil, errors.NewNotFoundError("engine", engineID)
	}
	return engine, nil
}

// DefaultEngine returns the engine sessions use when none is requested: the
// configured default if set, otherwise the first engine by ID.
func (m *Manager) DefaultEngine() (types.Engine, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.cfg.DefaultEngine != "" {
		engine, exists := m.engines[m.cfg.DefaultEngine]
		if !exists {
			return nil, errors.NewNotFoundError("engine", m.cfg.DefaultEngine)
		}
		return engine, nil
	}

	if len(m.engines) == 0 {
		return nil, errors.NewNotFoundError("engine", "default")
	}

	ids := make([]string, 0, len(m.engines))
	for id := range m.engines {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return m.engines[ids[0]], nil
}

// RegisterEngine adds an engine instance directly, bypassing manifest
// discovery. Used by tests.
func (m *Manager) RegisterEngine(engine types.Engine) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.engines[engine.ID()] = engine
}
