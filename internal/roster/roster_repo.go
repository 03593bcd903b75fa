package roster

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

//go:generate mockgen -source=roster_repo.go -destination=mock/roster_repo_mock.go -package=mock
type Repository interface {
	FindMemberIDsByShepherd(ctx context.Context, shepherdID uuid.UUID) ([]uuid.UUID, error)
	FindGroupIDsByLeader(ctx context.Context, leaderID uuid.UUID) ([]uuid.UUID, error)
	FindGroupMemberIDs(ctx context.Context, leaderID, groupID uuid.UUID) ([]uuid.UUID, error)
	FindOverseerID(ctx context.Context, userID uuid.UUID) (uuid.UUID, error)
	FindUserIDsByOverseer(ctx context.Context, overseerID uuid.UUID) ([]uuid.UUID, error)
	FindUserIDsByRole(ctx context.Context, role string) ([]uuid.UUID, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) FindMemberIDsByShepherd(ctx context.Context, shepherdID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&Member{}).
		Where("shepherd_id = ?", shepherdID).
		Pluck("id", &ids).Error
	return ids, err
}

func (r *repository) FindGroupIDsByLeader(ctx context.Context, leaderID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&Group{}).
		Where("leader_id = ?", leaderID).
		Pluck("id", &ids).Error
	return ids, err
}

// FindGroupMemberIDs returns the roster of groupID only when leaderID leads it.
func (r *repository) FindGroupMemberIDs(ctx context.Context, leaderID, groupID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Table("group_members").
		Joins(`JOIN "groups" ON "groups".id = group_members.group_id`).
		Where("group_members.group_id = ?", groupID).
		Where(`"groups".leader_id = ?`, leaderID).
		Pluck("group_members.member_id", &ids).Error
	return ids, err
}

// FindOverseerID returns uuid.Nil when the user has no overseer or does not exist.
func (r *repository) FindOverseerID(ctx context.Context, userID uuid.UUID) (uuid.UUID, error) {
	var u User
	err := r.db.WithContext(ctx).
		Select("id", "overseer_id").
		First(&u, "id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return uuid.Nil, nil
	}
	if err != nil {
		return uuid.Nil, err
	}
	if u.OverseerID == nil {
		return uuid.Nil, nil
	}
	return *u.OverseerID, nil
}

func (r *repository) FindUserIDsByOverseer(ctx context.Context, overseerID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&User{}).
		Where("overseer_id = ?", overseerID).
		Pluck("id", &ids).Error
	return ids, err
}

func (r *repository) FindUserIDsByRole(ctx context.Context, role string) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&User{}).
		Where("role = ?", role).
		Pluck("id", &ids).Error
	return ids, err
}
