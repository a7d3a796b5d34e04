package models

import (
	"time"
)

// Pipeline run statuses.
const (
	RunStatusSucceeded = "succeeded"
	RunStatusFailed    = "failed"
)

// Pipeline stages, in the order a submission moves through them.
const (
	StageUserResolve = "user_resolve"
	StageAnalyze     = "analyze"
	StageMemory      = "memory_update"
	StagePersist     = "persist"
)

// PipelineRun is the audit record of one journal submission, stored in MongoDB.
type PipelineRun struct {
	RunID           string    `bson:"_id" json:"runId"`
	UserID          string    `bson:"user_id" json:"userId"`
	EntryID         int64     `bson:"entry_id,omitempty" json:"entryId,omitempty"`
	Status          string    `bson:"status" json:"status"`
	FailedStage     string    `bson:"failed_stage,omitempty" json:"failedStage,omitempty"`
	Error           string    `bson:"error,omitempty" json:"error,omitempty"`
	TranscriptChars int       `bson:"transcript_chars" json:"transcriptChars"`
	MoodScore       string    `bson:"mood_score,omitempty" json:"moodScore,omitempty"`
	NewMemories     []string  `bson:"new_memories,omitempty" json:"newMemories,omitempty"`
	MemoryCommitted bool      `bson:"memory_committed" json:"memoryCommitted"`
	SafetyFlagged   bool      `bson:"safety_flagged" json:"safetyFlagged"`
	SafetyMatches   []string  `bson:"safety_matches,omitempty" json:"safetyMatches,omitempty"`
	AnalyzeMillis   int64     `bson:"analyze_ms" json:"analyzeMs"`
	MemoryMillis    int64     `bson:"memory_ms" json:"memoryMs"`
	TotalMillis     int64     `bson:"total_ms" json:"totalMs"`
	CreatedAt       time.Time `bson:"created_at" json:"createdAt"`
}
