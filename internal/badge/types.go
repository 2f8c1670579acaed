package badge

import (
	"strconv"
	"time"
)

// UserID identifies a user owned by an external identity subsystem.
// The engine only needs it to be comparable and hashable.
type UserID int64

// String returns the decimal form of the id.
func (id UserID) String() string {
	return strconv.FormatInt(int64(id), 10)
}

// ParseUserID parses a decimal user id.
func ParseUserID(s string) (UserID, error) {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, err
	}
	return UserID(v), nil
}

// Badge is a persisted achievement definition.
type Badge struct {
	ID               int64     `json:"id"`
	Slug             string    `json:"slug"`
	Name             string    `json:"name"`
	Description      string    `json:"description"`
	Image            string    `json:"image,omitempty"`
	HolderCount      int64     `json:"holder_count"`
	ManualAssignment bool      `json:"manual_assignment"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// Award records that a user holds a badge.
type Award struct {
	BadgeSlug string    `json:"badge"`
	UserID    UserID    `json:"user_id"`
	AwardedAt time.Time `json:"awarded_at"`
}

// Fields is the payload used to create a badge.
// An empty Slug is derived from Name with Slugify.
type Fields struct {
	Name             string
	Slug             string
	Description      string
	Image            string
	ManualAssignment bool
}

// Patch is a partial update of a badge's mutable metadata.
// Nil fields are left untouched. Slug and HolderCount are deliberately absent.
type Patch struct {
	Name             *string
	Description      *string
	Image            *string
	ManualAssignment *bool
}

// Empty reports whether the patch changes nothing.
func (p Patch) Empty() bool {
	return p.Name == nil && p.Description == nil && p.Image == nil && p.ManualAssignment == nil
}

// Diff returns the patch that turns b into the given fields.
// Only fields whose values differ are set.
func Diff(b Badge, f Fields) Patch {
	var p Patch
	if b.Name != f.Name {
		p.Name = &f.Name
	}
	if b.Description != f.Description {
		p.Description = &f.Description
	}
	if b.Image != f.Image {
		p.Image = &f.Image
	}
	if b.ManualAssignment != f.ManualAssignment {
		p.ManualAssignment = &f.ManualAssignment
	}
	return p
}

// Stat compares the live award count of a badge with its stored counter.
type Stat struct {
	Slug        string `json:"slug"`
	Name        string `json:"name"`
	LiveCount   int64  `json:"live_count"`
	StoredCount int64  `json:"stored_count"`
}

// InSync reports whether the denormalized counter matches the award relation.
func (s Stat) InSync() bool {
	return s.LiveCount == s.StoredCount
}
