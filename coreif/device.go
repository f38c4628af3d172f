package coreif

// Device is a libretro input device type, optionally with a subclass in the
// upper bits.
type Device uint

// Base device types.
const (
	DeviceNone Device = iota
	DeviceJoypad
	DeviceMouse
	DeviceKeyboard
	DeviceLightgun
	DeviceAnalog
	DevicePointer
)

// DeviceMask extracts the base type from a subclassed device.
const DeviceMask Device = 0xff

// Subclass builds a device subclass of base.
func Subclass(base Device, id uint) Device {
	return Device((id+1)<<8) | base
}

// Known subclasses.
var (
	DeviceJoypadMultitap     = Subclass(DeviceJoypad, 0)
	DeviceLightgunSuperScope = Subclass(DeviceLightgun, 0)
	DeviceLightgunJustifier  = Subclass(DeviceLightgun, 1)
	DeviceLightgunJustifiers = Subclass(DeviceLightgun, 2)
)

// Base returns the device with its subclass bits removed.
func (d Device) Base() Device {
	return d & DeviceMask
}

// Valid reports whether d is a base device or one of the known subclasses.
func (d Device) Valid() bool {
	if d <= DeviceAnalog {
		return true
	}
	switch d {
	case DeviceJoypadMultitap, DeviceLightgunSuperScope, DeviceLightgunJustifier, DeviceLightgunJustifiers:
		return true
	}
	return false
}

// String returns the device name.
func (d Device) String() string {
	switch d {
	case DeviceNone:
		return "none"
	case DeviceJoypad:
		return "joypad"
	case DeviceMouse:
		return "mouse"
	case DeviceKeyboard:
		return "keyboard"
	case DeviceLightgun:
		return "lightgun"
	case DeviceAnalog:
		return "analog"
	case DevicePointer:
		return "pointer"
	case DeviceJoypadMultitap:
		return "multitap"
	case DeviceLightgunSuperScope:
		return "super scope"
	case DeviceLightgunJustifier:
		return "justifier"
	case DeviceLightgunJustifiers:
		return "justifiers"
	}
	return "unknown"
}
