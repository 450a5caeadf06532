package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/yndnr/chartered-cli/internal/core/domain"
	"github.com/yndnr/chartered-cli/internal/storage"
	"github.com/yndnr/chartered-cli/internal/telemetry/logger"
	"github.com/yndnr/chartered-cli/pkg/crypto/adaptive"
)

// Storage keys.
const (
	SessionKey = "auth.auth"
	SaltKey    = "auth.salt"
)

// sessionRecord is the persisted form of a session.
type sessionRecord struct {
	UserUUID   string  `json:"userUuid"`
	AuthKey    string  `json:"authKey"`
	Expires    int64   `json:"expires"` // Unix milliseconds
	PictureURL *string `json:"pictureUrl"`
}

// sealedRecord wraps an encrypted sessionRecord.
type sealedRecord struct {
	Cipher adaptive.CipherType `json:"cipher"`
	Data   []byte              `json:"data"`
}

// SessionPersistence reads and writes the session record.
//
// Load never fails: missing, corrupt, undecryptable and incomplete
// records all load as nil.
type SessionPersistence struct {
	kv     storage.KVEngine
	key    []byte // nil when records are stored in clear
	logger logger.Logger
}

// PersistenceOption configures a SessionPersistence.
type PersistenceOption func(*persistenceOptions)

type persistenceOptions struct {
	passphrase string
	logger     logger.Logger
}

// WithPassphrase encrypts records with a key derived from passphrase.
func WithPassphrase(passphrase string) PersistenceOption {
	return func(o *persistenceOptions) { o.passphrase = passphrase }
}

// WithPersistenceLogger sets the logger. Default: logger.Default().
func WithPersistenceLogger(l logger.Logger) PersistenceOption {
	return func(o *persistenceOptions) { o.logger = l }
}

// NewSessionPersistence creates a persistence layer over kv. With a
// passphrase, the per-installation salt is read from (or created in) kv.
func NewSessionPersistence(kv storage.KVEngine, opts ...PersistenceOption) (*SessionPersistence, error) {
	if kv == nil {
		return nil, fmt.Errorf("persistence: kv engine is required")
	}

	var o persistenceOptions
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = logger.Default()
	}

	p := &SessionPersistence{kv: kv, logger: o.logger}

	if o.passphrase != "" {
		salt, err := loadOrCreateSalt(kv)
		if err != nil {
			return nil, err
		}
		key, err := adaptive.DeriveKey([]byte(o.passphrase), salt)
		if err != nil {
			return nil, fmt.Errorf("persistence: derive key: %w", err)
		}
		p.key = key
	}

	return p, nil
}

func loadOrCreateSalt(kv storage.KVEngine) ([]byte, error) {
	salt, err := kv.Get(SaltKey)
	if err == nil && len(salt) == adaptive.SaltLength {
		return salt, nil
	}
	if err != nil && !errors.Is(err, storage.ErrKeyNotFound) {
		return nil, fmt.Errorf("persistence: read salt: %w", err)
	}

	salt, err = adaptive.NewSalt()
	if err != nil {
		return nil, fmt.Errorf("persistence: generate salt: %w", err)
	}
	if err := kv.Set(SaltKey, salt); err != nil {
		return nil, fmt.Errorf("persistence: write salt: %w", err)
	}
	return salt, nil
}

// Encrypted reports whether records are sealed at rest.
func (p *SessionPersistence) Encrypted() bool {
	return p.key != nil
}

// Load returns the stored session, or nil.
func (p *SessionPersistence) Load() *domain.Session {
	data, err := p.kv.Get(SessionKey)
	if errors.Is(err, storage.ErrKeyNotFound) {
		return nil
	}
	if err != nil {
		p.logger.Warn("read session record", "error", err)
		return nil
	}

	data, err = p.open(data)
	if err != nil {
		p.logger.Warn("session record unreadable, treating as logged out", "error", err)
		return nil
	}

	// A blanked record ("null") is a stored logout.
	var rec *sessionRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		p.logger.Warn("session record corrupt, treating as logged out", "error", err)
		return nil
	}
	if rec == nil {
		return nil
	}

	s := rec.toSession()
	if err := s.Validate(); err != nil {
		p.logger.Warn("session record incomplete, treating as logged out", "error", err)
		return nil
	}
	return s
}

// Save writes s, or removes the record when s is nil.
func (p *SessionPersistence) Save(s *domain.Session) error {
	if s == nil {
		if err := p.kv.Delete(SessionKey); err != nil {
			return fmt.Errorf("persistence: delete session: %w", err)
		}
		return nil
	}

	data, err := json.Marshal(recordFromSession(s))
	if err != nil {
		return fmt.Errorf("persistence: encode session: %w", err)
	}

	data, err = p.seal(data)
	if err != nil {
		return err
	}

	if err := p.kv.Set(SessionKey, data); err != nil {
		return fmt.Errorf("persistence: write session: %w", err)
	}
	return nil
}

func (p *SessionPersistence) seal(plaintext []byte) ([]byte, error) {
	if p.key == nil {
		return plaintext, nil
	}

	c, err := adaptive.New(p.key)
	if err != nil {
		return nil, fmt.Errorf("persistence: cipher: %w", err)
	}
	ciphertext, err := c.Encrypt(plaintext, []byte(SessionKey))
	if err != nil {
		return nil, fmt.Errorf("persistence: encrypt: %w", err)
	}
	return json.Marshal(sealedRecord{Cipher: c.Type(), Data: ciphertext})
}

// open returns the plaintext record. Clear records pass through when no
// key is configured; sealed records require one.
func (p *SessionPersistence) open(data []byte) ([]byte, error) {
	var sealed sealedRecord
	isSealed := json.Unmarshal(data, &sealed) == nil && sealed.Cipher != ""

	switch {
	case p.key == nil && !isSealed:
		return data, nil
	case p.key == nil:
		return nil, fmt.Errorf("record is encrypted and no passphrase is configured")
	case !isSealed:
		return nil, fmt.Errorf("record is not encrypted but a passphrase is configured")
	}

	c, err := adaptive.NewWithType(p.key, sealed.Cipher)
	if err != nil {
		return nil, err
	}
	plaintext, err := c.Decrypt(sealed.Data, []byte(SessionKey))
	if err != nil {
		return nil, fmt.Errorf("decrypt: %w", err)
	}
	return plaintext, nil
}

func recordFromSession(s *domain.Session) sessionRecord {
	rec := sessionRecord{
		UserUUID: s.UserID,
		AuthKey:  s.Token,
		Expires:  s.ExpiresAt.UnixMilli(),
	}
	if s.PictureURL != "" {
		pic := s.PictureURL
		rec.PictureURL = &pic
	}
	return rec
}

func (r *sessionRecord) toSession() *domain.Session {
	s := &domain.Session{
		UserID: r.UserUUID,
		Token:  r.AuthKey,
	}
	if r.Expires != 0 {
		s.ExpiresAt = time.UnixMilli(r.Expires).UTC()
	}
	if r.PictureURL != nil {
		s.PictureURL = *r.PictureURL
	}
	return s
}
