package input

// MaxPorts is the number of controller ports tracked.
const MaxPorts = 8

// DigitalAxisOffset separates the identities of digital axes from ordinary
// buttons on the same controller. Decimal so it is easy to spot in logs.
const DigitalAxisOffset = 1000

// Control is a frontend-normalized input slot. Each port stores one value
// per control.
type Control int

// Joypad controls follow the libretro joypad id order so a joypad id maps
// directly onto a control.
const (
	JoypadB Control = iota
	JoypadY
	JoypadSelect
	JoypadStart
	JoypadUp
	JoypadDown
	JoypadLeft
	JoypadRight
	JoypadA
	JoypadX
	JoypadL
	JoypadR
	JoypadL2
	JoypadR2
	JoypadL3
	JoypadR3

	AnalogLeftX
	AnalogLeftY
	AnalogRightX
	AnalogRightY

	MouseX
	MouseY
	MouseLeft
	MouseRight

	LightgunX
	LightgunY
	LightgunTrigger
	LightgunCursor
	LightgunTurbo
	LightgunPause
	LightgunStart

	ControlCount
)

// Device-relative ids used by GetInput.
const (
	mouseIDRight       = 3
	lightgunIDStart    = 6
	analogIDY          = 1
	analogIndexRight   = 1
	analogAxesPerStick = 2
)

// Analog range of the core ABI.
const (
	analogMax      = 0x7fff
	analogMin      = -0x8000
	analogDeadzone = 0.01
)

// HatDirection is a hat switch direction bitmask.
type HatDirection uint8

const (
	HatUp HatDirection = 1 << iota
	HatRight
	HatDown
	HatLeft
)

// Action is a host input action bound to a raw event.
type Action struct {
	ID     int
	Name   string
	Amount float32
}
