package asset

import (
	"strings"
	"time"
)

// Stage represents where an asset sits in its storage lifecycle.
type Stage string

const (
	StageUploaded Stage = "uploaded"
	StageArchived Stage = "archived"
	StageExported Stage = "exported"
	StageDeleted  Stage = "deleted"
)

var allStages = []Stage{
	StageUploaded,
	StageArchived,
	StageExported,
	StageDeleted,
}

var stageOrder = map[Stage]int{
	StageUploaded: 0,
	StageArchived: 1,
	StageExported: 2,
}

var stageSet = func() map[Stage]struct{} {
	set := make(map[Stage]struct{}, len(allStages))
	for _, stage := range allStages {
		set[stage] = struct{}{}
	}
	return set
}()

// AllStages returns the ordered list of known stages.
func AllStages() []Stage {
	cp := make([]Stage, len(allStages))
	copy(cp, allStages)
	return cp
}

// ParseStage converts a string into a known Stage.
func ParseStage(value string) (Stage, bool) {
	normalized := Stage(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := stageSet[normalized]
	return normalized, ok
}

// CanTransition reports whether moving from one stage to another respects the
// forward-only ordering. Deleted is reachable from any live stage and is
// absorbing; an asset never re-enters an earlier stage, and a repeat of the
// current stage is not a legal move.
func CanTransition(from, to Stage) bool {
	if _, ok := stageSet[from]; !ok {
		return false
	}
	if _, ok := stageSet[to]; !ok {
		return false
	}
	if from == StageDeleted {
		return false
	}
	if to == StageDeleted {
		return true
	}
	return stageOrder[to] == stageOrder[from]+1
}

// Next returns the stage that follows the given one in the forward ordering.
// Exported and Deleted have no successor.
func Next(stage Stage) (Stage, bool) {
	switch stage {
	case StageUploaded:
		return StageArchived, true
	case StageArchived:
		return StageExported, true
	default:
		return "", false
	}
}

// Terminal reports whether a stage has no forward successor.
func (s Stage) Terminal() bool {
	return s == StageExported || s == StageDeleted
}

// Asset is a user-supplied file tracked through its lifecycle stages.
// ID and Checksum are assigned at ingest and never change afterwards;
// Stage and StoragePath move together under the registry's compare-and-swap.
type Asset struct {
	ID           string
	Stage        Stage
	StoragePath  string
	Checksum     string
	SizeBytes    int64
	DeclaredName string
	Category     Category
	OwnerRef     string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	ExpiresAt    *time.Time
}

// Live reports whether the asset still has a file on disk.
func (a *Asset) Live() bool {
	return a != nil && a.Stage != StageDeleted
}
