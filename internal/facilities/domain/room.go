package domain

import (
	"strings"
	"time"

	sharedDomain "github.com/felixgeelhaar/roomkeeper/internal/shared/domain"
)

// Room is a bookable space. Its status is never set directly; it only
// changes by applying a Derivation.
type Room struct {
	sharedDomain.BaseAggregateRoot
	name       string
	categoryID int64
	capacity   int
	building   string
	floor      int
	features   []string
	status     RoomStatus
}

// RoomDetails are the descriptive attributes of a room.
type RoomDetails struct {
	Name       string
	CategoryID int64
	Capacity   int
	Building   string
	Floor      int
	Features   []string
}

// NewRoom registers a room. New rooms start VACANT.
func NewRoom(details RoomDetails, now time.Time) (*Room, error) {
	name := strings.TrimSpace(details.Name)
	if name == "" {
		return nil, ErrRoomNameRequired
	}
	if details.Capacity < 0 {
		return nil, ErrInvalidCapacity
	}

	return &Room{
		BaseAggregateRoot: sharedDomain.NewBaseAggregateRoot(now),
		name:              name,
		categoryID:        details.CategoryID,
		capacity:          details.Capacity,
		building:          strings.TrimSpace(details.Building),
		floor:             details.Floor,
		features:          normalizeFeatures(details.Features),
		status:            RoomStatusVacant,
	}, nil
}

// RehydrateRoom rebuilds a room from storage.
func RehydrateRoom(id int64, details RoomDetails, status RoomStatus, createdAt, updatedAt time.Time) *Room {
	return &Room{
		BaseAggregateRoot: sharedDomain.RehydrateBaseAggregateRoot(sharedDomain.RehydrateBaseEntity(id, createdAt, updatedAt)),
		name:              details.Name,
		categoryID:        details.CategoryID,
		capacity:          details.Capacity,
		building:          details.Building,
		floor:             details.Floor,
		features:          details.Features,
		status:            status,
	}
}

func (r *Room) Name() string       { return r.name }
func (r *Room) CategoryID() int64  { return r.categoryID }
func (r *Room) Capacity() int      { return r.capacity }
func (r *Room) Building() string   { return r.building }
func (r *Room) Floor() int         { return r.floor }
func (r *Room) Status() RoomStatus { return r.status }

// Features returns a copy of the room's feature tags.
func (r *Room) Features() []string {
	out := make([]string, len(r.features))
	copy(out, r.features)
	return out
}

// ApplyDerivation sets the status computed by DeriveStatus. It reports whether
// the stored status changed and raises RoomStatusChanged when it did.
func (r *Room) ApplyDerivation(d Derivation) (bool, error) {
	if d.RoomID() != r.ID() {
		return false, ErrDerivationMismatch
	}
	if d.Status() == r.status {
		return false, nil
	}

	from := r.status
	r.status = d.Status()
	r.Touch(d.DerivedAt())
	r.AddDomainEvent(NewRoomStatusChanged(r.ID(), from, d))
	return true, nil
}

func normalizeFeatures(features []string) []string {
	seen := make(map[string]struct{}, len(features))
	out := make([]string, 0, len(features))
	for _, f := range features {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		out = append(out, f)
	}
	return out
}
