package registry

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// DeviceType classifies a registered device.
type DeviceType string

const (
	DeviceTypePC     DeviceType = "PC"
	DeviceTypeIPhone DeviceType = "iPhone"
)

// Valid reports whether the device type is one of the known kinds.
func (t DeviceType) Valid() bool {
	return t == DeviceTypePC || t == DeviceTypeIPhone
}

// Device is one registered device owned by a user. The MAC address is the
// identity used for presence matching.
type Device struct {
	Type       DeviceType `json:"type"`
	Name       string     `json:"name"`
	MACAddress string     `json:"macAddress"`
}

// DeviceList is a JSONB-backed ordered list of devices.
type DeviceList []Device

// Scan implements sql.Scanner for PostgreSQL JSONB columns.
func (d *DeviceList) Scan(value interface{}) error {
	if value == nil {
		*d = nil
		return nil
	}

	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, d)
	case string:
		return json.Unmarshal([]byte(v), d)
	default:
		return fmt.Errorf("cannot scan %T into DeviceList", value)
	}
}

// Value implements driver.Valuer for PostgreSQL JSONB columns.
func (d DeviceList) Value() (driver.Value, error) {
	if d == nil {
		return "[]", nil
	}
	return json.Marshal(d)
}

// User is one registered office member. ID is the chat-platform user id and
// is immutable once set; it doubles as the document key within a workspace.
type User struct {
	ID        string     `db:"user_id" json:"id"`
	Name      string     `db:"display_name" json:"name"`
	Devices   DeviceList `db:"devices" json:"deviceList"`
	CreatedAt time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time  `db:"updated_at" json:"updatedAt"`
}

// OwnsMAC reports whether any of the user's devices carries the given MAC
// address. Comparison is case-insensitive with no separator normalization.
func (u *User) OwnsMAC(mac string) bool {
	for i := range u.Devices {
		if strings.EqualFold(u.Devices[i].MACAddress, mac) {
			return true
		}
	}
	return false
}
