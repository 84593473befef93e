// Package settings persists the user configuration with encrypted secrets and
// reloads it when the file is edited externally.
package settings

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fernet/fernet-go"
	"github.com/fsnotify/fsnotify"

	"github.com/j-veylop/creditbar/internal/logger"
	"github.com/j-veylop/creditbar/internal/models"
)

// noTTL disables the token age check; stored secrets never expire.
const noTTL = -1 * time.Second

// Event represents a settings service event.
type Event struct {
	Type   EventType
	Config models.AppConfig
	Error  error
}

// EventType defines the type of settings event.
type EventType int

const (
	// EventConfigSaved follows a Save through this service.
	EventConfigSaved EventType = iota
	// EventConfigReloaded follows an external edit of the file.
	EventConfigReloaded
	// EventError reports a watcher or reload failure.
	EventError
)

// Service owns the configuration file.
type Service struct {
	mu            sync.RWMutex
	cfg           models.AppConfig
	filePath      string
	key           *fernet.Key
	watcher       *fsnotify.Watcher
	eventChan     chan Event
	stopChan      chan struct{}
	debounceTimer *time.Timer
	closeOnce     sync.Once
}

// New loads (or creates) the configuration at filePath, using the key at
// keyPath to protect secrets, and starts watching the file.
func New(filePath, keyPath string) (*Service, error) {
	s := &Service{
		cfg:       models.DefaultAppConfig(),
		filePath:  filePath,
		eventChan: make(chan Event, 100),
		stopChan:  make(chan struct{}),
	}

	if err := os.MkdirAll(filepath.Dir(filePath), 0o750); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	key, err := loadOrCreateKey(keyPath)
	if err != nil {
		return nil, err
	}
	s.key = key

	cfg, err := s.readFile()
	switch {
	case errors.Is(err, os.ErrNotExist):
		if err := s.writeFile(s.cfg); err != nil {
			return nil, fmt.Errorf("failed to create settings file: %w", err)
		}
	case err != nil:
		return nil, fmt.Errorf("failed to load settings: %w", err)
	default:
		s.cfg = cfg
	}

	if err := s.startWatcher(); err != nil {
		return nil, fmt.Errorf("failed to start file watcher: %w", err)
	}

	return s, nil
}

// Events returns the event channel for subscribing to configuration changes.
func (s *Service) Events() <-chan Event {
	return s.eventChan
}

// Get returns the current configuration including secrets.
func (s *Service) Get() models.AppConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

// Save validates and persists cfg, replacing the current configuration.
func (s *Service) Save(cfg models.AppConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	if err := s.writeFile(cfg); err != nil {
		s.mu.Unlock()
		return err
	}
	s.cfg = cfg
	s.mu.Unlock()

	s.sendEvent(Event{Type: EventConfigSaved, Config: cfg})
	return nil
}

// Update applies fn to a copy of the configuration and saves the result.
func (s *Service) Update(fn func(*models.AppConfig)) (models.AppConfig, error) {
	cfg := s.Get()
	fn(&cfg)
	if err := s.Save(cfg); err != nil {
		return models.AppConfig{}, err
	}
	return cfg, nil
}

// diskConfig is the file layout. Secret fields hold fernet tokens.
type diskConfig struct {
	models.AppConfig
	Encrypted bool `json:"secrets_encrypted,omitempty"`
}

func (s *Service) readFile() (models.AppConfig, error) {
	data, err := os.ReadFile(s.filePath)
	if err != nil {
		return models.AppConfig{}, err
	}
	return s.parse(data)
}

func (s *Service) parse(data []byte) (models.AppConfig, error) {
	disk := diskConfig{AppConfig: models.DefaultAppConfig()}
	if err := json.Unmarshal(data, &disk); err != nil {
		return models.AppConfig{}, fmt.Errorf("failed to parse settings: %w", err)
	}

	cfg := disk.AppConfig
	if disk.Encrypted {
		var err error
		if cfg.SessionCookie, err = s.decrypt(cfg.SessionCookie); err != nil {
			return models.AppConfig{}, fmt.Errorf("session cookie: %w", err)
		}
		if cfg.OrbToken, err = s.decrypt(cfg.OrbToken); err != nil {
			return models.AppConfig{}, fmt.Errorf("portal token: %w", err)
		}
	}
	return cfg, nil
}

// writeFile saves atomically via a temp file. Caller holds the lock or is
// still constructing the service.
func (s *Service) writeFile(cfg models.AppConfig) error {
	disk := diskConfig{AppConfig: cfg, Encrypted: true}

	var err error
	if disk.SessionCookie, err = s.encrypt(cfg.SessionCookie); err != nil {
		return err
	}
	if disk.OrbToken, err = s.encrypt(cfg.OrbToken); err != nil {
		return err
	}

	data, err := json.MarshalIndent(disk, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}

	tmpFile := s.filePath + ".tmp"
	if err := os.WriteFile(tmpFile, data, 0o600); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}

	if err := os.Rename(tmpFile, s.filePath); err != nil {
		if removeErr := os.Remove(tmpFile); removeErr != nil {
			logger.Error("failed to remove temp file", "error", removeErr)
		}
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	return nil
}

func (s *Service) encrypt(plain string) (string, error) {
	if plain == "" {
		return "", nil
	}
	tok, err := fernet.EncryptAndSign([]byte(plain), s.key)
	if err != nil {
		return "", fmt.Errorf("encrypt: %w", err)
	}
	return string(tok), nil
}

func (s *Service) decrypt(token string) (string, error) {
	if token == "" {
		return "", nil
	}
	msg := fernet.VerifyAndDecrypt([]byte(token), noTTL, []*fernet.Key{s.key})
	if msg == nil {
		return "", errors.New("decrypt: invalid token or wrong key")
	}
	return string(msg), nil
}

// loadOrCreateKey reads the fernet key at path, generating one on first run.
func loadOrCreateKey(path string) (*fernet.Key, error) {
	data, err := os.ReadFile(path)
	if err == nil {
		key, err := fernet.DecodeKey(strings.TrimSpace(string(data)))
		if err != nil {
			return nil, fmt.Errorf("decode key %s: %w", path, err)
		}
		return key, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("read key: %w", err)
	}

	var k fernet.Key
	if err := k.Generate(); err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("create key directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(k.Encode()+"\n"), 0o600); err != nil {
		return nil, fmt.Errorf("save key: %w", err)
	}
	logger.Info("generated settings key", "path", path)
	return &k, nil
}

// startWatcher starts the file system watcher.
func (s *Service) startWatcher() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	s.watcher = watcher

	// Watch the directory so atomic renames are seen.
	if err := watcher.Add(filepath.Dir(s.filePath)); err != nil {
		if closeErr := watcher.Close(); closeErr != nil {
			logger.Error("failed to close watcher", "error", closeErr)
		}
		return err
	}

	go s.watchLoop()
	return nil
}

// watchLoop handles file system events with debouncing.
func (s *Service) watchLoop() {
	const debounceInterval = 100 * time.Millisecond

	for {
		select {
		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}

			if filepath.Base(event.Name) != filepath.Base(s.filePath) {
				continue
			}

			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				s.mu.Lock()
				if s.debounceTimer != nil {
					s.debounceTimer.Stop()
				}
				s.debounceTimer = time.AfterFunc(debounceInterval, s.handleFileChange)
				s.mu.Unlock()
			}

		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			s.sendEvent(Event{Type: EventError, Error: err})

		case <-s.stopChan:
			return
		}
	}
}

// handleFileChange reloads the file and reports a change when the content
// differs from what is held.
func (s *Service) handleFileChange() {
	cfg, err := s.readFile()
	if errors.Is(err, os.ErrNotExist) {
		return
	}
	if err != nil {
		logger.Warn("ignoring unreadable settings file", "path", s.filePath, "error", err)
		s.sendEvent(Event{Type: EventError, Error: err})
		return
	}
	if err := cfg.Validate(); err != nil {
		logger.Warn("ignoring invalid settings file", "path", s.filePath, "error", err)
		s.sendEvent(Event{Type: EventError, Error: err})
		return
	}

	s.mu.Lock()
	if cfg == s.cfg {
		s.mu.Unlock()
		return
	}
	s.cfg = cfg
	s.mu.Unlock()

	logger.Info("settings reloaded from disk", "path", s.filePath)
	s.sendEvent(Event{Type: EventConfigReloaded, Config: cfg})
}

// sendEvent sends an event to the event channel non-blocking.
func (s *Service) sendEvent(event Event) {
	select {
	case s.eventChan <- event:
	default:
		// Channel full, drop oldest event
		select {
		case <-s.eventChan:
		default:
		}
		select {
		case s.eventChan <- event:
		default:
		}
	}
}

// Close stops the file watcher and cleans up resources.
func (s *Service) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.stopChan)

		s.mu.Lock()
		if s.debounceTimer != nil {
			s.debounceTimer.Stop()
		}
		s.mu.Unlock()

		if s.watcher != nil {
			err = s.watcher.Close()
		}
	})
	return err
}
