package domain

import "time"

// Entity represents a domain entity with identity.
type Entity interface {
	ID() int64
	CreatedAt() time.Time
	UpdatedAt() time.Time
	Equals(other Entity) bool
}

// BaseEntity provides common entity functionality.
// Identifiers are assigned by the store; a zero ID means the entity is not persisted yet.
type BaseEntity struct {
	id        int64
	createdAt time.Time
	updatedAt time.Time
}

// NewBaseEntity creates a transient entity stamped with the given time.
func NewBaseEntity(now time.Time) BaseEntity {
	now = now.UTC()
	return BaseEntity{
		createdAt: now,
		updatedAt: now,
	}
}

// RehydrateBaseEntity recreates an entity from persisted state.
func RehydrateBaseEntity(id int64, createdAt, updatedAt time.Time) BaseEntity {
	return BaseEntity{
		id:        id,
		createdAt: createdAt,
		updatedAt: updatedAt,
	}
}

func (e BaseEntity) ID() int64            { return e.id }
func (e BaseEntity) CreatedAt() time.Time { return e.createdAt }
func (e BaseEntity) UpdatedAt() time.Time { return e.updatedAt }

// IsTransient reports whether the entity has not been stored yet.
func (e BaseEntity) IsTransient() bool { return e.id == 0 }

// AssignID records the identifier generated by the store.
func (e *BaseEntity) AssignID(id int64) {
	e.id = id
}

// Touch updates the updatedAt timestamp.
func (e *BaseEntity) Touch(now time.Time) {
	e.updatedAt = now.UTC()
}

// Equals checks if two entities have the same identity.
// Transient entities are never equal to anything.
func (e BaseEntity) Equals(other Entity) bool {
	if other == nil || e.id == 0 {
		return false
	}
	return e.id == other.ID()
}
