// Package roster defines the core types shared across the harvesting
// subsystems: the Player record extracted from the source tables and the
// Snapshot produced by a completed crawl run.
package roster

import (
	"fmt"
	"time"
)

// Player is one harvested entity from the source's rating tables.
type Player struct {
	// ExternalID is the stable key pulled out of the detail link when the
	// source exposes one. Empty when absent.
	ExternalID string `json:"external_id,omitempty"`

	Name        string `json:"name"`
	Position    string `json:"position"`
	Team        string `json:"team"`
	Nationality string `json:"nationality"`

	// Numeric fields are pointers so "no value" survives serialization;
	// a zero here would be indistinguishable from a missing cell.
	Height *int `json:"height,omitempty"`
	Weight *int `json:"weight,omitempty"`
	Age    *int `json:"age,omitempty"`
	Rating *int `json:"rating,omitempty"`

	// SourceURL is the absolute URL of the player's detail page, possibly
	// empty when the row carried no link.
	SourceURL string `json:"source_url,omitempty"`
}

// MergeKey is the identity used to detect duplicates across pages and runs:
// the external id when present, otherwise a composite of name, team and age.
func (p Player) MergeKey() string {
	if p.ExternalID != "" {
		return "id:" + p.ExternalID
	}
	age := -1
	if p.Age != nil {
		age = *p.Age
	}
	return fmt.Sprintf("c:%s|%s|%d", p.Name, p.Team, age)
}

// Snapshot is the complete, deduplicated result of one crawl run. It is a
// fresh value each time; the crawl core never mutates a published snapshot.
type Snapshot struct {
	Players     []Player  `json:"players"`
	PageCount   int       `json:"page_count"`
	GeneratedAt time.Time `json:"generated_at"`
}
