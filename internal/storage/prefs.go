package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/berrythewa/gpsio-bridge/internal/types"

	"go.etcd.io/bbolt"
	"go.uber.org/zap"
)

const (
	preferencesBucket = "preferences"
	sessionBucket     = "session"
)

// ErrClosed is returned by operations on a closed store
var ErrClosed = errors.New("store is closed")

// PreferenceStore is the key-value store behind the options panel
type PreferenceStore interface {
	Load() (types.Preferences, error)
	Save(patch types.PreferencesPatch) error
	Reset() (types.Preferences, error)
}

// SessionStore holds flags that live for a single daemon run
type SessionStore interface {
	UpdatePopupShown() (bool, error)
	SetUpdatePopupShown(shown bool) error
	ResetSession() error
}

// BoltStore persists preferences and session flags in a bbolt database.
// Each key is stored separately, JSON encoded, so a partial save never
// touches the other keys.
type BoltStore struct {
	db     *bbolt.DB
	logger *zap.Logger
}

// Config holds configuration for BoltStore initialization
type Config struct {
	Path    string
	Logger  *zap.Logger
	Timeout time.Duration
}

// Open opens (creating if needed) the store at cfg.Path
func Open(cfg Config) (*BoltStore, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = time.Second
	}

	db, err := bbolt.Open(cfg.Path, 0600, &bbolt.Options{Timeout: timeout})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt database: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range []string{preferencesBucket, sessionBucket} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	logger.Debug("Preference store opened", zap.String("db_path", cfg.Path))

	return &BoltStore{db: db, logger: logger}, nil
}

// Load returns the stored preferences with defaults for missing keys
func (s *BoltStore) Load() (types.Preferences, error) {
	prefs := types.DefaultPreferences()
	if s.db == nil {
		return prefs, ErrClosed
	}

	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(preferencesBucket))
		fields := map[string]interface{}{
			types.KeyMethod:        &prefs.Method,
			types.KeyTimeSel:       &prefs.TimeSel,
			types.KeyRecentSel:     &prefs.RecentSel,
			types.KeySize:          &prefs.Size,
			types.KeySizeSel:       &prefs.SizeSel,
			types.KeyRemoveNumbers: &prefs.RemoveNumbers,
		}
		for key, dst := range fields {
			v := b.Get([]byte(key))
			if v == nil {
				continue
			}
			if err := json.Unmarshal(v, dst); err != nil {
				// keep the default rather than failing the whole load
				s.logger.Warn("Ignoring unreadable preference",
					zap.String("key", key),
					zap.ByteString("value", v),
					zap.Error(err))
			}
		}
		return nil
	})
	if err != nil {
		return types.DefaultPreferences(), fmt.Errorf("failed to load preferences: %w", err)
	}
	return prefs, nil
}

// Save writes the keys set in patch. Values are not validated.
func (s *BoltStore) Save(patch types.PreferencesPatch) error {
	if s.db == nil {
		return ErrClosed
	}
	values := patch.Values()
	if len(values) == 0 {
		return nil
	}

	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(preferencesBucket))
		for key, value := range values {
			encoded, err := json.Marshal(value)
			if err != nil {
				return fmt.Errorf("failed to encode %s: %w", key, err)
			}
			if err := b.Put([]byte(key), encoded); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save preferences: %w", err)
	}

	s.logger.Debug("Preferences saved", zap.Any("values", values))
	return nil
}

// Reset stores the default preferences and returns them
func (s *BoltStore) Reset() (types.Preferences, error) {
	defaults := types.DefaultPreferences()
	if err := s.Save(defaults.Patch()); err != nil {
		return defaults, err
	}
	return defaults, nil
}

// UpdatePopupShown reports whether the host update notice was already shown this session
func (s *BoltStore) UpdatePopupShown() (bool, error) {
	if s.db == nil {
		return false, ErrClosed
	}
	var shown bool
	err := s.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket([]byte(sessionBucket)).Get([]byte(types.KeyUpdatePopupShown))
		if v == nil {
			return nil
		}
		return json.Unmarshal(v, &shown)
	})
	if err != nil {
		return false, fmt.Errorf("failed to read session flag: %w", err)
	}
	return shown, nil
}

// SetUpdatePopupShown records whether the update notice has been shown
func (s *BoltStore) SetUpdatePopupShown(shown bool) error {
	if s.db == nil {
		return ErrClosed
	}
	encoded, _ := json.Marshal(shown)
	err := s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(sessionBucket)).Put([]byte(types.KeyUpdatePopupShown), encoded)
	})
	if err != nil {
		return fmt.Errorf("failed to write session flag: %w", err)
	}
	return nil
}

// ResetSession clears all session flags; called once at daemon start
func (s *BoltStore) ResetSession() error {
	if s.db == nil {
		return ErrClosed
	}
	err := s.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.DeleteBucket([]byte(sessionBucket)); err != nil && !errors.Is(err, bbolt.ErrBucketNotFound) {
			return err
		}
		_, err := tx.CreateBucket([]byte(sessionBucket))
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to reset session: %w", err)
	}
	s.logger.Debug("Session flags reset")
	return nil
}

// Close closes the database
func (s *BoltStore) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}
