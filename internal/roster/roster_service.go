package roster

import (
	"context"
	"encoding/json"
	"time"

	"github.com/One-johnson/sheepshep-sub001/internal/domain"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	keyPrefix       = "roster:"
	DefaultCacheTTL = 5 * time.Minute
	ownedMembersKey = keyPrefix + "owned_members:"
	ledGroupsKey    = keyPrefix + "led_groups:"
	groupMembersKey = keyPrefix + "group_members:"
	overseerKey     = keyPrefix + "overseer:"
	overseenKey     = keyPrefix + "overseen:"
	adminsKey       = keyPrefix + "admins"
)

// Provider resolves the ownership edges of the congregation hierarchy:
// shepherd -> members, group leader -> group roster, pastor -> shepherds.
// It is a pure read; results are cached in redis for ttl and concurrent
// misses for the same key are coalesced.
//
//go:generate mockgen -source=roster_service.go -destination=mock/roster_provider_mock.go -package=mock
type Provider interface {
	GetOwnedMembers(ctx context.Context, actorID uuid.UUID) ([]uuid.UUID, error)
	GetLedGroups(ctx context.Context, actorID uuid.UUID) ([]uuid.UUID, error)
	GetOwnedGroupMembers(ctx context.Context, actorID, groupID uuid.UUID) ([]uuid.UUID, error)
	GetOversightEdge(ctx context.Context, shepherdID uuid.UUID) (uuid.UUID, error)
	GetOverseenShepherds(ctx context.Context, pastorID uuid.UUID) ([]uuid.UUID, error)
	ListAdmins(ctx context.Context) ([]uuid.UUID, error)
}

type provider struct {
	repo   Repository
	rdb    *redis.Client
	ttl    time.Duration
	sf     *singleflight.Group
	logger *zap.Logger
}

func NewProvider(repo Repository, rdb *redis.Client, ttl time.Duration, logger ...*zap.Logger) Provider {
	l := zap.L().Named("roster.provider")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("roster.provider")
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &provider{
		repo:   repo,
		rdb:    rdb,
		ttl:    ttl,
		sf:     &singleflight.Group{},
		logger: l,
	}
}

func (p *provider) GetOwnedMembers(ctx context.Context, actorID uuid.UUID) ([]uuid.UUID, error) {
	return p.cachedIDs(ctx, ownedMembersKey+actorID.String(), func(ctx context.Context) ([]uuid.UUID, error) {
		return p.repo.FindMemberIDsByShepherd(ctx, actorID)
	})
}

func (p *provider) GetLedGroups(ctx context.Context, actorID uuid.UUID) ([]uuid.UUID, error) {
	return p.cachedIDs(ctx, ledGroupsKey+actorID.String(), func(ctx context.Context) ([]uuid.UUID, error) {
		return p.repo.FindGroupIDsByLeader(ctx, actorID)
	})
}

func (p *provider) GetOwnedGroupMembers(ctx context.Context, actorID, groupID uuid.UUID) ([]uuid.UUID, error) {
	key := groupMembersKey + actorID.String() + ":" + groupID.String()
	return p.cachedIDs(ctx, key, func(ctx context.Context) ([]uuid.UUID, error) {
		return p.repo.FindGroupMemberIDs(ctx, actorID, groupID)
	})
}

// GetOversightEdge returns the pastor overseeing shepherdID, or uuid.Nil.
func (p *provider) GetOversightEdge(ctx context.Context, shepherdID uuid.UUID) (uuid.UUID, error) {
	ids, err := p.cachedIDs(ctx, overseerKey+shepherdID.String(), func(ctx context.Context) ([]uuid.UUID, error) {
		id, err := p.repo.FindOverseerID(ctx, shepherdID)
		if err != nil || id == uuid.Nil {
			return nil, err
		}
		return []uuid.UUID{id}, nil
	})
	if err != nil || len(ids) == 0 {
		return uuid.Nil, err
	}
	return ids[0], nil
}

func (p *provider) GetOverseenShepherds(ctx context.Context, pastorID uuid.UUID) ([]uuid.UUID, error) {
	return p.cachedIDs(ctx, overseenKey+pastorID.String(), func(ctx context.Context) ([]uuid.UUID, error) {
		return p.repo.FindUserIDsByOverseer(ctx, pastorID)
	})
}

func (p *provider) ListAdmins(ctx context.Context) ([]uuid.UUID, error) {
	return p.cachedIDs(ctx, adminsKey, func(ctx context.Context) ([]uuid.UUID, error) {
		return p.repo.FindUserIDsByRole(ctx, string(domain.RoleAdmin))
	})
}

func (p *provider) cachedIDs(ctx context.Context, key string, load func(context.Context) ([]uuid.UUID, error)) ([]uuid.UUID, error) {
	if p.rdb != nil {
		if cached, err := p.rdb.Get(ctx, key).Bytes(); err == nil {
			var ids []uuid.UUID
			if json.Unmarshal(cached, &ids) == nil {
				return ids, nil
			}
		} else if err != redis.Nil {
			p.logger.Warn("roster cache read failed", zap.String("key", key), zap.Error(err))
		}
	}

	v, err, _ := p.sf.Do(key, func() (interface{}, error) {
		ids, err := load(ctx)
		if err != nil {
			return nil, err
		}
		if ids == nil {
			ids = []uuid.UUID{}
		}

		if p.rdb != nil {
			if payload, err := json.Marshal(ids); err == nil {
				if err := p.rdb.Set(ctx, key, payload, p.ttl).Err(); err != nil {
					p.logger.Warn("roster cache write failed", zap.String("key", key), zap.Error(err))
				}
			}
		}
		return ids, nil
	})
	if err != nil {
		p.logger.Error("roster lookup failed", zap.String("key", key), zap.Error(err))
		return nil, err
	}
	return v.([]uuid.UUID), nil
}

// Contains reports whether id is in ids.
func Contains(ids []uuid.UUID, id uuid.UUID) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
