package session

import (
	"context"
	"errors"
	"sync"
	"time"

	mysqlDriver "github.com/go-sql-driver/mysql"
	"gorm.io/gorm"

	"github.com/gatherly/web/internal/models"
	"github.com/gatherly/web/internal/upstream"
)

// State is the persisted shape of a session.
type State struct {
	Email           string
	Name            string
	Role            string
	IsEmailVerified bool
	IsLoggedIn      bool
	LastVerified    time.Time
}

func (st State) session() Session {
	sess := Session{IsLoggedIn: st.IsLoggedIn, LastVerified: st.LastVerified}
	if st.IsLoggedIn {
		sess.User = &upstream.User{
			Email:           st.Email,
			Name:            st.Name,
			Role:            st.Role,
			IsEmailVerified: st.IsEmailVerified,
		}
	}
	return sess
}

// Persister stores session state keyed by client key.
type Persister interface {
	// Load returns nil with no error when no state exists for clientKey.
	Load(ctx context.Context, clientKey string) (*State, error)
	Save(ctx context.Context, clientKey string, st State) error
	Delete(ctx context.Context, clientKey string) error
	// PurgeStale removes sessions not verified since cutoff and reports how
	// many rows went away.
	PurgeStale(ctx context.Context, cutoff time.Time) (int64, error)
}

// GormPersister keeps sessions in the session_records table.
type GormPersister struct {
	db *gorm.DB
}

func NewGormPersister(db *gorm.DB) *GormPersister {
	return &GormPersister{db: db}
}

func (p *GormPersister) Load(ctx context.Context, clientKey string) (*State, error) {
	var rec models.SessionRecord
	err := p.db.WithContext(ctx).Where("client_key = ?", clientKey).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &State{
		Email:           rec.Email,
		Name:            rec.Name,
		Role:            rec.Role,
		IsEmailVerified: rec.IsEmailVerified,
		IsLoggedIn:      rec.IsLoggedIn,
		LastVerified:    rec.LastVerified,
	}, nil
}

func (p *GormPersister) Save(ctx context.Context, clientKey string, st State) error {
	rec := models.SessionRecord{
		ClientKey:       clientKey,
		Email:           st.Email,
		Name:            st.Name,
		Role:            st.Role,
		IsEmailVerified: st.IsEmailVerified,
		IsLoggedIn:      st.IsLoggedIn,
		LastVerified:    st.LastVerified,
	}
	err := p.db.WithContext(ctx).Create(&rec).Error
	if err == nil {
		return nil
	}
	// A concurrent create for the same browser loses the race on the unique
	// client_key index. Fall through to an update in that case.
	var mysqlErr *mysqlDriver.MySQLError
	if errors.As(err, &mysqlErr) && mysqlErr.Number == 1062 {
		return p.db.WithContext(ctx).
			Model(&models.SessionRecord{}).
			Where("client_key = ?", clientKey).
			Updates(map[string]interface{}{
				"email":             st.Email,
				"name":              st.Name,
				"role":              st.Role,
				"is_email_verified": st.IsEmailVerified,
				"is_logged_in":      st.IsLoggedIn,
				"last_verified":     st.LastVerified,
			}).Error
	}
	return err
}

func (p *GormPersister) Delete(ctx context.Context, clientKey string) error {
	return p.db.WithContext(ctx).
		Where("client_key = ?", clientKey).
		Delete(&models.SessionRecord{}).Error
}

func (p *GormPersister) PurgeStale(ctx context.Context, cutoff time.Time) (int64, error) {
	res := p.db.WithContext(ctx).
		Where("last_verified < ?", cutoff).
		Delete(&models.SessionRecord{})
	return res.RowsAffected, res.Error
}

// MemoryPersister is the in-process fallback used when no database is
// configured, and by tests.
type MemoryPersister struct {
	mu       sync.RWMutex
	sessions map[string]State
}

func NewMemoryPersister() *MemoryPersister {
	return &MemoryPersister{sessions: make(map[string]State)}
}

func (p *MemoryPersister) Load(_ context.Context, clientKey string) (*State, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	st, found := p.sessions[clientKey]
	if !found {
		return nil, nil
	}
	return &st, nil
}

func (p *MemoryPersister) Save(_ context.Context, clientKey string, st State) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sessions[clientKey] = st
	return nil
}

func (p *MemoryPersister) Delete(_ context.Context, clientKey string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.sessions, clientKey)
	return nil
}

func (p *MemoryPersister) PurgeStale(_ context.Context, cutoff time.Time) (int64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	var purged int64
	for key, st := range p.sessions {
		if st.LastVerified.Before(cutoff) {
			delete(p.sessions, key)
			purged++
		}
	}
	return purged, nil
}
