// Package project provides the data structures for diamond-painting
// projects and the reference records (companies, artists, tags) used to
// classify them.
package project

import (
	"fmt"
	"time"
)

// Status describes where a project sits in its owner's collection.
type Status string

const (
	// StatusWishlist marks a kit the owner wants but doesn't own.
	StatusWishlist Status = "wishlist"
	// StatusPurchased marks a kit that has been ordered.
	StatusPurchased Status = "purchased"
	// StatusStash marks an owned kit that hasn't been started.
	StatusStash Status = "stash"
	// StatusProgress marks a kit currently being worked.
	StatusProgress Status = "progress"
	// StatusOnHold marks a started kit that is paused.
	StatusOnHold Status = "onhold"
	// StatusCompleted marks a finished kit.
	StatusCompleted Status = "completed"
	// StatusArchived marks a kit removed from the active collection.
	StatusArchived Status = "archived"
	// StatusDestashed marks a kit that was sold or given away.
	StatusDestashed Status = "destashed"
)

// Statuses lists every valid project status.
var Statuses = []Status{
	StatusWishlist,
	StatusPurchased,
	StatusStash,
	StatusProgress,
	StatusOnHold,
	StatusCompleted,
	StatusArchived,
	StatusDestashed,
}

// Valid reports whether s is a member of the status enum.
func (s Status) Valid() bool {
	for _, v := range Statuses {
		if s == v {
			return true
		}
	}
	return false
}

// DrillShapes lists the known drill shapes. This set is static; it is
// not stored in the database.
var DrillShapes = []string{"round", "square"}

// ValidDrillShape reports whether shape is a known drill shape.
func ValidDrillShape(shape string) bool {
	for _, s := range DrillShapes {
		if shape == s {
			return true
		}
	}
	return false
}

// Project represents a single diamond-painting project.
type Project struct {
	ID     string `json:"id"`
	UserID string `json:"user_id"`

	Title  string `json:"title"`
	Status Status `json:"status"`

	CompanyID  string `json:"company_id,omitempty"`
	ArtistID   string `json:"artist_id,omitempty"`
	DrillShape string `json:"drill_shape,omitempty"`

	// YearFinished is set once the project reaches completed status.
	// Zero means not finished (or finish year unknown).
	YearFinished int `json:"year_finished,omitempty"`

	// MiniKit marks small-format kits that the dashboard can exclude.
	MiniKit bool `json:"mini_kit,omitempty"`

	Tags []string `json:"tags,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Validate checks that the Project has valid field values.
func (p *Project) Validate() error {
	if p.ID == "" {
		return fmt.Errorf("id is required")
	}
	if p.UserID == "" {
		return fmt.Errorf("user_id is required")
	}
	if p.Title == "" {
		return fmt.Errorf("title is required")
	}
	if len(p.Title) > 500 {
		return fmt.Errorf("title must be 500 characters or less (got %d)", len(p.Title))
	}
	if !p.Status.Valid() {
		return fmt.Errorf("invalid status %q", p.Status)
	}
	if p.DrillShape != "" && !ValidDrillShape(p.DrillShape) {
		return fmt.Errorf("invalid drill shape %q", p.DrillShape)
	}
	if p.CreatedAt.IsZero() {
		return fmt.Errorf("created_at is required")
	}
	if p.UpdatedAt.IsZero() {
		return fmt.Errorf("updated_at is required")
	}
	return nil
}

// SetDefaults applies default values for optional fields.
func (p *Project) SetDefaults() {
	if p.Status == "" {
		p.Status = StatusStash
	}
	if p.Tags == nil {
		p.Tags = []string{}
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = time.Now()
	}
}

// Clone returns a deep copy of the project.
func (p Project) Clone() Project {
	out := p
	if p.Tags != nil {
		out.Tags = append([]string(nil), p.Tags...)
	}
	return out
}

// Company is a kit manufacturer.
type Company struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Artist is the artist credited on a kit's artwork.
type Artist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Tag is a user-defined label with a display color.
type Tag struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color,omitempty"`
}
