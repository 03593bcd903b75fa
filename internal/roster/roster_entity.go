package roster

import "github.com/google/uuid"

// The roster tables are owned by the congregation directory; this package only
// reads them.

type Member struct {
	ID         uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	FullName   string     `gorm:"column:full_name"`
	ShepherdID *uuid.UUID `gorm:"column:shepherd_id;type:uuid;index"`
}

func (Member) TableName() string {
	return "members"
}

type User struct {
	ID         uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	FullName   string     `gorm:"column:full_name"`
	Role       string     `gorm:"column:role;type:varchar(20)"`
	OverseerID *uuid.UUID `gorm:"column:overseer_id;type:uuid;index"`
}

func (User) TableName() string {
	return "users"
}

type Group struct {
	ID       uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	Name     string    `gorm:"column:name"`
	LeaderID uuid.UUID `gorm:"column:leader_id;type:uuid;index"`
}

func (Group) TableName() string {
	return "groups"
}

type GroupMember struct {
	GroupID  uuid.UUID `gorm:"column:group_id;type:uuid;primaryKey"`
	MemberID uuid.UUID `gorm:"column:member_id;type:uuid;primaryKey"`
}

func (GroupMember) TableName() string {
	return "group_members"
}
