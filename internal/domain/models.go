// Package domain defines the persistence models for QR codes, scan events,
// device selections, and region analytics. These types are mapped with GORM
// and form the core data layer of the tracking application.
package domain

import (
	"time"

	"gorm.io/gorm"
)

// RegionHurry, RegionMindfully and RegionDistracted form the closed set of
// selection categories the Region Aggregator accepts. Any other label is a
// plain free-form selection and never reaches the aggregator.
const (
	RegionHurry      = "hurry"
	RegionMindfully  = "mindfully"
	RegionDistracted = "distracted"
)

// ValidRegions lists the closed category set in a stable order.
var ValidRegions = []string{RegionHurry, RegionMindfully, RegionDistracted}

// IsValidRegion reports whether name belongs to the closed category set.
func IsValidRegion(name string) bool {
	switch name {
	case RegionHurry, RegionMindfully, RegionDistracted:
		return true
	default:
		return false
	}
}

// QRCode represents one generated scannable code. The short QRID is embedded
// in both the tracked initial URL (pointing back at the scan endpoint) and
// the final landing URL, and keys the stored SVG artifact.
//
// Invariant: ScanCount always equals the number of ScanEvent rows for this
// code. Both are written in the same transaction by the scan recorder.
type QRCode struct {
	ID            string         `json:"id"            gorm:"type:char(36);primaryKey"`
	QRID          string         `json:"qrId"          gorm:"type:varchar(12);not null;uniqueIndex:ux_qr_qrid"`
	QRName        string         `json:"qrName"        gorm:"type:varchar(255);not null"`
	InitialURL    string         `json:"initialUrl"    gorm:"type:text;not null"`
	FinalURL      string         `json:"finalUrl"      gorm:"type:text;not null"`
	ScanCount     int64          `json:"scanCount"     gorm:"not null;default:0"`
	LastScannedAt *time.Time     `json:"lastScannedAt"`
	CreatedAt     time.Time      `json:"createdAt"`
	UpdatedAt     time.Time      `json:"updatedAt"`
	DeletedAt     gorm.DeletedAt `json:"-"             gorm:"index"`

	// ScanHistory is the ordered sequence of recorded scans.
	ScanHistory []ScanEvent `json:"scanHistory" gorm:"foreignKey:QRID;references:QRID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for QRCode.
func (QRCode) TableName() string { return "qr_codes" }

// ScanEvent records a single scan of a code: when it happened, the
// best-effort client IP ("unknown" when undeterminable), the user agent,
// and the resolved device identifier when one was available.
type ScanEvent struct {
	ID        uint      `json:"-"         gorm:"primaryKey;autoIncrement"`
	QRID      string    `json:"qrId"      gorm:"type:varchar(12);not null;index:idx_scan_qr,priority:1"`
	ScannedAt time.Time `json:"scannedAt" gorm:"not null;index:idx_scan_qr,priority:2"`
	IPAddress string    `json:"ipAddress" gorm:"type:varchar(64);not null;default:'unknown'"`
	UserAgent string    `json:"userAgent" gorm:"type:text"`
	DeviceID  *string   `json:"deviceId"  gorm:"type:varchar(24)"`
}

// TableName returns the database table name for ScanEvent.
func (ScanEvent) TableName() string { return "scan_events" }

// Selection holds the latest selection a device made for a code. The
// (DeviceID, QRID) pair is unique: a later selection for the same pair fully
// replaces the attribute values while keeping the original row identity.
// Devices that could not be identified (fail-open resolver) share the empty
// device id.
type Selection struct {
	ID        string         `json:"selectionId" gorm:"type:char(36);primaryKey"`
	DeviceID  string         `json:"deviceId"    gorm:"type:varchar(24);not null;uniqueIndex:ux_selection_device_qr,priority:1"`
	QRID      string         `json:"qrId"        gorm:"type:varchar(12);not null;index;uniqueIndex:ux_selection_device_qr,priority:2"`
	Selection string         `json:"selection"   gorm:"type:varchar(128);not null"`
	CoordX    *float64       `json:"coordX"`
	CoordY    *float64       `json:"coordY"`
	IPAddress string         `json:"ipAddress"   gorm:"type:varchar(64);not null;default:'unknown'"`
	Timestamp time.Time      `json:"timestamp"   gorm:"not null"`
	LocalTime string         `json:"timestampLocal" gorm:"type:varchar(32)"` // display-formatted, config timezone
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

// TableName returns the database table name for Selection.
func (Selection) TableName() string { return "selections" }

// RegionAnalytics keeps running per-code counts for the closed category set.
// Rows are created lazily on the first qualifying selection and only ever
// incremented.
//
// Invariant: TotalSelections always equals Hurry+Mindfully+Distracted. Both
// sides are incremented in a single atomic UPDATE.
type RegionAnalytics struct {
	ID              string         `json:"-"               gorm:"type:char(36);primaryKey"`
	QRID            string         `json:"qrId"            gorm:"type:varchar(12);not null;uniqueIndex:ux_analytics_qrid"`
	Hurry           int64          `json:"hurry"           gorm:"not null;default:0"`
	Mindfully       int64          `json:"mindfully"       gorm:"not null;default:0"`
	Distracted      int64          `json:"distracted"      gorm:"not null;default:0"`
	TotalSelections int64          `json:"totalSelections" gorm:"not null;default:0"`
	LastUpdated     *time.Time     `json:"lastUpdated"`
	CreatedAt       time.Time      `json:"createdAt"`
	UpdatedAt       time.Time      `json:"updatedAt"`
	DeletedAt       gorm.DeletedAt `json:"-" gorm:"index"`
}

// TableName returns the database table name for RegionAnalytics.
func (RegionAnalytics) TableName() string { return "region_analytics" }

// RegionCounts returns the per-category counters as a map keyed by region
// name, in the shape the analytics endpoints expose.
func (a *RegionAnalytics) RegionCounts() map[string]int64 {
	return map[string]int64{
		RegionHurry:      a.Hurry,
		RegionMindfully:  a.Mindfully,
		RegionDistracted: a.Distracted,
	}
}
