package registry

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeviceTypeValid(t *testing.T) {
	assert.True(t, DeviceTypePC.Valid())
	assert.True(t, DeviceTypeIPhone.Valid())
	assert.False(t, DeviceType("Android").Valid())
	assert.False(t, DeviceType("pc").Valid())
	assert.False(t, DeviceType("").Valid())
}

func TestDeviceListScan(t *testing.T) {
	raw := `[{"type":"PC","name":"MacBook","macAddress":"aa:bb:cc:dd:ee:ff"}]`

	var fromBytes DeviceList
	require.NoError(t, fromBytes.Scan([]byte(raw)))
	require.Len(t, fromBytes, 1)
	assert.Equal(t, DeviceTypePC, fromBytes[0].Type)
	assert.Equal(t, "aa:bb:cc:dd:ee:ff", fromBytes[0].MACAddress)

	var fromString DeviceList
	require.NoError(t, fromString.Scan(raw))
	assert.Equal(t, fromBytes, fromString)

	var fromNil DeviceList
	require.NoError(t, fromNil.Scan(nil))
	assert.Nil(t, fromNil)

	var fromInt DeviceList
	assert.Error(t, fromInt.Scan(42))
}

func TestDeviceListValue(t *testing.T) {
	var empty DeviceList
	v, err := empty.Value()
	require.NoError(t, err)
	assert.Equal(t, "[]", v)

	list := DeviceList{{Type: DeviceTypeIPhone, Name: "iPhone", MACAddress: "aa:bb:cc:dd:ee:ff"}}
	v, err = list.Value()
	require.NoError(t, err)
	assert.JSONEq(t, `[{"type":"iPhone","name":"iPhone","macAddress":"aa:bb:cc:dd:ee:ff"}]`, string(v.([]byte)))
}

func TestUserOwnsMAC(t *testing.T) {
	u := User{
		ID:   "U1",
		Name: "田中",
		Devices: DeviceList{
			{Type: DeviceTypePC, Name: "MacBook", MACAddress: "AA:BB:CC:DD:EE:FF"},
			{Type: DeviceTypeIPhone, Name: "iPhone", MACAddress: "11:22:33:44:55:66"},
		},
	}

	assert.True(t, u.OwnsMAC("aa:bb:cc:dd:ee:ff"))
	assert.True(t, u.OwnsMAC("AA:BB:CC:DD:EE:FF"))
	assert.True(t, u.OwnsMAC("11:22:33:44:55:66"))
	assert.False(t, u.OwnsMAC("aa-bb-cc-dd-ee-ff"))
	assert.False(t, u.OwnsMAC("ff:ff:ff:ff:ff:ff"))
	assert.False(t, u.OwnsMAC(""))

	var noDevices User
	assert.False(t, noDevices.OwnsMAC("aa:bb:cc:dd:ee:ff"))
}

func TestUserJSONShape(t *testing.T) {
	u := User{
		ID:   "U1",
		Name: "田中",
		Devices: DeviceList{
			{Type: DeviceTypePC, Name: "MacBook", MACAddress: "aa:bb:cc:dd:ee:ff"},
		},
	}

	data, err := json.Marshal(u)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Contains(t, decoded, "id")
	assert.Contains(t, decoded, "name")
	assert.Contains(t, decoded, "deviceList")

	devices := decoded["deviceList"].([]interface{})
	device := devices[0].(map[string]interface{})
	assert.Contains(t, device, "type")
	assert.Contains(t, device, "macAddress")
}
