package output

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/flanksource/spec-unit/models"
	"github.com/samber/lo"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Run is one check invocation exported to a sqlite report
type Run struct {
	ID          uint `gorm:"primaryKey"`
	CreatedAt   time.Time
	FileCount   int
	RuleCount   int
	Violations  []ViolationRecord   `gorm:"foreignKey:RunID;constraint:OnDelete:CASCADE"`
	Unparseable []UnparseableRecord `gorm:"foreignKey:RunID;constraint:OnDelete:CASCADE"`
	RuleErrors  []RuleErrorRecord   `gorm:"foreignKey:RunID;constraint:OnDelete:CASCADE"`
}

// ViolationRecord is a violation row
type ViolationRecord struct {
	ID       uint   `gorm:"primaryKey"`
	RunID    uint   `gorm:"index;not null"`
	File     string `gorm:"index;not null"`
	Line     int
	Column   int
	Rule     string `gorm:"index;not null"`
	Severity string `gorm:"not null"`
	Message  string
	Code     string
	Kind     string
	FullName string
}

// UnparseableRecord is a file that could not be parsed
type UnparseableRecord struct {
	ID      uint   `gorm:"primaryKey"`
	RunID   uint   `gorm:"index;not null"`
	File    string `gorm:"not null"`
	Line    int
	Message string
}

// RuleErrorRecord is a rule evaluation that failed and was skipped
type RuleErrorRecord struct {
	ID      uint   `gorm:"primaryKey"`
	RunID   uint   `gorm:"index;not null"`
	Rule    string `gorm:"index;not null"`
	File    string `gorm:"not null"`
	Line    int
	Message string
}

func (RuleErrorRecord) TableName() string {
	return "rule_errors"
}

// OpenReportDB opens (or creates) a sqlite report database and migrates its schema
func OpenReportDB(path string) (*gorm.DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}

	db, err := gorm.Open(sqlite.Open(path+"?_foreign_keys=on&_busy_timeout=5000"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	if err := db.AutoMigrate(&Run{}, &ViolationRecord{}, &UnparseableRecord{}, &RuleErrorRecord{}); err != nil {
		closeDB(db)
		return nil, fmt.Errorf("failed to migrate %s: %w", path, err)
	}
	return db, nil
}

func closeDB(db *gorm.DB) {
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

// WriteSQLite appends the result as a new run to the sqlite database at path.
// Earlier runs are kept so the file can back a trend dashboard.
func WriteSQLite(path string, result *models.AnalysisResult) error {
	db, err := OpenReportDB(path)
	if err != nil {
		return err
	}
	defer closeDB(db)

	run := Run{
		FileCount: result.FileCount,
		RuleCount: result.RuleCount,
		Violations: lo.Map(result.Violations, func(v models.Violation, _ int) ViolationRecord {
			return ViolationRecord{
				File:     models.RelativePath(v.File),
				Line:     v.Line,
				Column:   v.Column,
				Rule:     v.Rule,
				Severity: string(v.Severity),
				Message:  v.Message,
				Code:     v.Code,
				Kind:     v.Kind.String(),
				FullName: v.FullName,
			}
		}),
		Unparseable: lo.Map(result.Unparseable, func(f models.ParseFailure, _ int) UnparseableRecord {
			return UnparseableRecord{File: models.RelativePath(f.File), Line: f.Line, Message: f.Message}
		}),
		RuleErrors: lo.Map(result.RuleErrors, func(e models.RuleError, _ int) RuleErrorRecord {
			return RuleErrorRecord{Rule: e.Rule, File: models.RelativePath(e.File), Line: e.Line, Message: e.Message}
		}),
	}
	if err := db.Create(&run).Error; err != nil {
		return fmt.Errorf("failed to write report to %s: %w", path, err)
	}
	return nil
}
