// Package registry persists named factor definitions and replay run
// history. It never stores a parsed tree: factors are kept as their
// canonical S-expression string and reconstructed via factor.Parse on
// every load, so a stored definition can never drift from what the
// parser would currently produce for it.
package registry

import "time"

// FactorDefinition is a named, persisted factor expression.
type FactorDefinition struct {
	ID          int64     `gorm:"column:id;primaryKey;autoIncrement"`
	Name        string    `gorm:"column:name;type:varchar(128);uniqueIndex"`
	Expression  string    `gorm:"column:expression;type:text"`
	Description string    `gorm:"column:description;type:varchar(512)"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName returns the table name for FactorDefinition.
func (FactorDefinition) TableName() string {
	return "factor_definitions"
}

// RunStatus is the lifecycle state of a replay run.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// ReplayRun records one invocation of the replay driver over a set of
// factors, for later audit — which factors failed, how many batches
// were processed, and where the output was archived.
type ReplayRun struct {
	ID            int64      `gorm:"column:id;primaryKey;autoIncrement"`
	RunID         string     `gorm:"column:run_id;type:varchar(64);uniqueIndex"`
	Status        RunStatus  `gorm:"column:status;type:varchar(16)"`
	FactorCount   int        `gorm:"column:factor_count"`
	BatchCount    int        `gorm:"column:batch_count"`
	FailedCount   int        `gorm:"column:failed_count"`
	StorageKey    string     `gorm:"column:storage_key;type:varchar(256)"`
	ErrorSummary  string     `gorm:"column:error_summary;type:text"`
	StartedAt     time.Time  `gorm:"column:started_at"`
	CompletedAt   *time.Time `gorm:"column:completed_at"`
}

// TableName returns the table name for ReplayRun.
func (ReplayRun) TableName() string {
	return "replay_runs"
}
