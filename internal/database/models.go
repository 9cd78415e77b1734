package database

import (
	"time"
)

// CleanedMeasurement is one flagged photometric measurement as stored
// in the database sink.
type CleanedMeasurement struct {
	ID           uint    `gorm:"primaryKey;autoIncrement;column:id"`
	RunID        string  `gorm:"column:run_id;index;not null"`
	TNSName      string  `gorm:"column:tnsname;index;not null"`
	Filter       string  `gorm:"column:filter;not null"`
	ControlIndex int     `gorm:"column:control_index;default:0"` // 0 for the primary curve
	MJD          float64 `gorm:"column:mjd;not null"`
	FluxUJy      float64 `gorm:"column:flux_ujy"`
	FluxErr      float64 `gorm:"column:flux_err"`
	Chi2         float64 `gorm:"column:chi2"`
	Flag         int64   `gorm:"column:flag;not null"`

	CreatedAt time.Time `gorm:"column:created_at;default:CURRENT_TIMESTAMP"`
}

// TableName specifies the table name for CleanedMeasurement
func (CleanedMeasurement) TableName() string {
	return "cleaned_measurements"
}

// AveragedBinRow is one bad-day averaging bin as stored in the
// database sink.
type AveragedBinRow struct {
	ID        uint    `gorm:"primaryKey;autoIncrement;column:id"`
	RunID     string  `gorm:"column:run_id;index;not null"`
	TNSName   string  `gorm:"column:tnsname;index;not null"`
	Filter    string  `gorm:"column:filter;not null"`
	BinSize   float64 `gorm:"column:bin_size;not null"`
	MJDCenter float64 `gorm:"column:mjd_center;not null"`
	FluxUJy   float64 `gorm:"column:flux_ujy"`
	FluxErr   float64 `gorm:"column:flux_err"`
	Stdev     float64 `gorm:"column:stdev"`
	X2        float64 `gorm:"column:x2"`
	Nclip     int     `gorm:"column:nclip"`
	Ngood     int     `gorm:"column:ngood"`
	Flag      int64   `gorm:"column:flag;not null"`

	CreatedAt time.Time `gorm:"column:created_at;default:CURRENT_TIMESTAMP"`
}

// TableName specifies the table name for AveragedBinRow
func (AveragedBinRow) TableName() string {
	return "averaged_bins"
}
