package scanner

import "time"

// DeviceRecord is one terminal's row in the registry.
type DeviceRecord struct {
	Hostname  string     `gorm:"column:hostname;primaryKey;size:255"`
	Location  string     `gorm:"column:location;size:255;not null"`
	IsActive  bool       `gorm:"column:is_active;not null;default:false;index:idx_pi_devices_active"`
	LastSeen  *time.Time `gorm:"column:last_seen"`
	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (DeviceRecord) TableName() string {
	return "pi_devices"
}

// ScanEvent is one accepted scan. Rows are insert-only and the table has
// no key of its own.
type ScanEvent struct {
	JobNumber string `gorm:"column:job_number;size:32;index"`
	// Barcode duplicates JobNumber for readers of the legacy column.
	Barcode    string    `gorm:"column:barcode;size:32"`
	PiIP       string    `gorm:"column:pi_ip;size:64"`
	PiHostname string    `gorm:"column:pi_hostname;size:255;index"`
	Location   string    `gorm:"column:location;size:255"`
	ScannedAt  time.Time `gorm:"column:scanned_at;index"`
}

func (ScanEvent) TableName() string {
	return "scan_log"
}

// PlaceholderLocation is assigned to auto-registered terminals until an
// administrator sets a real location.
func PlaceholderLocation(hostname string) string {
	return "UNASSIGNED (" + hostname + ")"
}

// ErrorLocation is reported when the registry cannot be reached.
func ErrorLocation(hostname string) string {
	return "ERROR: " + hostname
}
