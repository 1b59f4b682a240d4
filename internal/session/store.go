package session

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"o2d-dashboard/internal/access"
	"o2d-dashboard/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Session 已恢复的会话（identity 在会话期内不变，登录时整体替换）
type Session struct {
	ID       string
	Identity models.Identity
	Access   []string
	Token    string
}

// Store 会话存储（Redis）
// 每个会话持有四个独立的键：identity JSON、access 集合、continuation token、
// 最后访问的视图。各键可独立读写，损坏的键按"不存在"处理，从不让启动失败。
type Store struct {
	kv      KVStore
	catalog *access.Catalog
	ttl     time.Duration
	logger  *zap.Logger
}

func NewStore(kv KVStore, catalog *access.Catalog, ttl time.Duration, logger *zap.Logger) *Store {
	return &Store{
		kv:      kv,
		catalog: catalog,
		ttl:     ttl,
		logger:  logger,
	}
}

func keyUser(sid string) string   { return "o2d:session:" + sid + ":user" }
func keyAccess(sid string) string { return "o2d:session:" + sid + ":access" }
func keyToken(sid string) string  { return "o2d:session:" + sid + ":token" }
func keyView(sid string) string   { return "o2d:session:" + sid + ":view" }

// Create issues a fresh session id and persists the authenticated state.
func (s *Store) Create(ctx context.Context, identity models.Identity, accessSet []string, token string) (string, error) {
	sid := uuid.NewString()
	if err := s.Persist(ctx, sid, identity, accessSet, token); err != nil {
		return "", err
	}
	return sid, nil
}

// Persist 写入会话状态（identity / access / token 三个键）
func (s *Store) Persist(ctx context.Context, sid string, identity models.Identity, accessSet []string, token string) error {
	userJSON, err := json.Marshal(identity)
	if err != nil {
		return err
	}
	accessJSON, err := json.Marshal(accessSet)
	if err != nil {
		return err
	}

	if err := s.kv.Set(ctx, keyUser(sid), string(userJSON), s.ttl); err != nil {
		return err
	}
	if err := s.kv.Set(ctx, keyAccess(sid), string(accessJSON), s.ttl); err != nil {
		return err
	}
	return s.kv.Set(ctx, keyToken(sid), token, s.ttl)
}

// Restore loads a session. Malformed or missing entries degrade to "no
// session" (for the identity) or are re-derived (for the access set); this
// never returns an error to the caller.
//
// When the stored identity still carries the "all" sentinel, the access set
// is re-expanded against the current catalog and re-persisted, so catalog
// growth between logins grants "all" users the new screens without re-login.
func (s *Store) Restore(ctx context.Context, sid string) (*Session, bool) {
	if sid == "" {
		return nil, false
	}

	userJSON, err := s.kv.Get(ctx, keyUser(sid))
	if err != nil {
		return nil, false
	}
	var identity models.Identity
	if err := json.Unmarshal([]byte(userJSON), &identity); err != nil {
		s.logger.Debug("Discarding corrupt session identity", zap.String("session_id", sid))
		return nil, false
	}

	accessSet := s.restoreAccess(ctx, sid, identity)

	token, err := s.kv.Get(ctx, keyToken(sid))
	if err != nil {
		token = ""
	}

	return &Session{
		ID:       sid,
		Identity: identity,
		Access:   accessSet,
		Token:    token,
	}, true
}

func (s *Store) restoreAccess(ctx context.Context, sid string, identity models.Identity) []string {
	if strings.ToLower(strings.TrimSpace(identity.Access)) == access.AllSentinel {
		// Sentinel users track the live catalog, not the stored snapshot.
		expanded := access.Resolve(identity.Access, s.catalog)
		if accessJSON, err := json.Marshal(expanded); err == nil {
			if err := s.kv.Set(ctx, keyAccess(sid), string(accessJSON), s.ttl); err != nil {
				s.logger.Warn("Failed to re-persist expanded access set",
					zap.String("session_id", sid),
					zap.Error(err),
				)
			}
		}
		return expanded
	}

	accessJSON, err := s.kv.Get(ctx, keyAccess(sid))
	if err == nil {
		var stored []string
		if err := json.Unmarshal([]byte(accessJSON), &stored); err == nil {
			return stored
		}
		s.logger.Debug("Discarding corrupt session access set", zap.String("session_id", sid))
	}
	// Missing or corrupt: re-derive from the identity's raw field.
	return access.Resolve(identity.Access, s.catalog)
}

// Clear 清除会话（登出时调用，包含最后访问视图）
func (s *Store) Clear(ctx context.Context, sid string) error {
	return s.kv.Del(ctx, keyUser(sid), keyAccess(sid), keyToken(sid), keyView(sid))
}

// LastView returns the persisted last-active view id for the session.
func (s *Store) LastView(ctx context.Context, sid string) (string, bool) {
	view, err := s.kv.Get(ctx, keyView(sid))
	if err != nil || view == "" {
		return "", false
	}
	return view, true
}

// SetLastView persists the last-active view id.
func (s *Store) SetLastView(ctx context.Context, sid string, viewID string) error {
	return s.kv.Set(ctx, keyView(sid), viewID, s.ttl)
}
