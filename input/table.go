// Package input stores per-port controller state for a running core and
// answers the core's input queries.
package input

import (
	"math"
	"sync"

	"github.com/rs/zerolog"

	"github.com/pixl-project/retroplayer/coreif"
)

type itemKind uint8

const (
	itemKey itemKind = iota
	itemButton
	itemHat
	itemAxis
)

// deviceItem identifies the raw event that activated a control so the
// matching release can clear it.
type deviceItem struct {
	controller uint
	kind       itemKind
	key        uint32
	button     uint
	hat        uint
	hatDir     HatDirection
	axis       uint
}

// StateTable holds the value of every control on every port.
type StateTable struct {
	mu          sync.Mutex
	state       [MaxPorts][ControlCount]int16
	items       map[deviceItem]Control
	firstAction int
	log         zerolog.Logger
}

// NewStateTable returns an empty table. firstAction is the host action id
// that maps onto JoypadB; the following ControlCount action ids map onto the
// remaining controls in order.
func NewStateTable(firstAction int, log zerolog.Logger) *StateTable {
	return &StateTable{
		items:       make(map[deviceItem]Control),
		firstAction: firstAction,
		log:         log.With().Str("component", "input").Logger(),
	}
}

// TranslateAction maps a host action id onto a control.
func (t *StateTable) TranslateAction(actionID int) (Control, bool) {
	c := actionID - t.firstAction
	if c < 0 || c >= int(ControlCount) {
		return 0, false
	}
	return Control(c), true
}

// Reset releases every control.
func (t *StateTable) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.state = [MaxPorts][ControlCount]int16{}
	clear(t.items)
}

// GetInput answers a core input query. Out of range requests are logged and
// read as 0.
func (t *StateTable) GetInput(port, device, index, id uint) int16 {
	if port < MaxPorts {
		base := coreif.Device(device).Base()
		switch base {
		case coreif.DeviceJoypad:
			if id <= uint(JoypadR3) {
				return t.read(port, JoypadB+Control(id))
			}
			t.log.Error().Uint("id", id).Msg("joypad id out of bounds")
		case coreif.DeviceMouse:
			if id <= mouseIDRight {
				return t.read(port, MouseX+Control(id))
			}
			t.log.Error().Uint("id", id).Msg("mouse id out of bounds")
		case coreif.DeviceLightgun:
			if id <= lightgunIDStart {
				return t.read(port, LightgunX+Control(id))
			}
			t.log.Error().Uint("id", id).Msg("lightgun id out of bounds")
		case coreif.DeviceAnalog:
			if id <= analogIDY && index <= analogIndexRight {
				return t.read(port, AnalogLeftX+Control(index*analogAxesPerStick+id))
			}
			t.log.Error().Uint("id", id).Uint("index", index).Msg("analog id/index out of bounds")
		case coreif.DeviceKeyboard:
			t.log.Error().Msg("keyboard input is not supported")
		}
	}
	t.log.Error().
		Uint("port", port).
		Uint("device", device).
		Uint("index", index).
		Uint("id", id).
		Msg("invalid input query")
	return 0
}

func (t *StateTable) read(port uint, c Control) int16 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state[port][c]
}

// ProcessKeyDown presses the control bound to action for a keyboard key.
func (t *StateTable) ProcessKeyDown(controller uint, key uint32, action Action) {
	t.press(deviceItem{controller: controller, kind: itemKey, key: key}, controller, action)
}

// ProcessKeyUp releases whatever the key pressed.
func (t *StateTable) ProcessKeyUp(controller uint, key uint32) {
	t.release(deviceItem{controller: controller, kind: itemKey, key: key}, controller)
}

// ProcessButtonDown presses the control bound to action for a button.
func (t *StateTable) ProcessButtonDown(controller, button uint, action Action) {
	t.press(deviceItem{controller: controller, kind: itemButton, button: button}, controller, action)
}

// ProcessButtonUp releases whatever the button pressed.
func (t *StateTable) ProcessButtonUp(controller, button uint) {
	t.release(deviceItem{controller: controller, kind: itemButton, button: button}, controller)
}

// ProcessDigitalAxisDown treats an axis crossing its threshold as a button
// press.
func (t *StateTable) ProcessDigitalAxisDown(controller, axis uint, action Action) {
	item := deviceItem{controller: controller + DigitalAxisOffset, kind: itemButton, button: axis}
	t.press(item, controller, action)
}

// ProcessDigitalAxisUp releases a digital axis.
func (t *StateTable) ProcessDigitalAxisUp(controller, axis uint) {
	item := deviceItem{controller: controller + DigitalAxisOffset, kind: itemButton, button: axis}
	t.release(item, controller)
}

// ProcessHatDown presses the control bound to action for a hat direction.
func (t *StateTable) ProcessHatDown(controller, hat uint, dir HatDirection, action Action) {
	t.press(deviceItem{controller: controller, kind: itemHat, hat: hat, hatDir: dir}, controller, action)
}

// ProcessHatUp releases a hat direction.
func (t *StateTable) ProcessHatUp(controller, hat uint, dir HatDirection) {
	t.release(deviceItem{controller: controller, kind: itemHat, hat: hat, hatDir: dir}, controller)
}

// ProcessAnalogAxis records an analog axis position. A centered axis
// releases the control it last drove.
func (t *StateTable) ProcessAnalogAxis(controller, axis uint, action Action) {
	item := deviceItem{controller: controller, kind: itemAxis, axis: axis}
	value := AnalogValue(action.Amount)
	if value == 0 {
		t.release(item, controller)
		return
	}

	c, ok := t.TranslateAction(action.ID)
	if !ok || !t.validPort(controller) {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.bind(item, controller, c, value)
}

func (t *StateTable) press(item deviceItem, port uint, action Action) {
	c, ok := t.TranslateAction(action.ID)
	if !ok || !t.validPort(port) {
		return
	}

	t.log.Debug().
		Uint("controller", item.controller).
		Str("action", action.Name).
		Int("control", int(c)).
		Msg("down")

	t.mu.Lock()
	defer t.mu.Unlock()
	t.bind(item, port, c, 1)
}

// bind points item at c, clearing the control item drove before. Callers
// hold t.mu.
func (t *StateTable) bind(item deviceItem, port uint, c Control, value int16) {
	if prev, ok := t.items[item]; ok && prev != c {
		t.state[port][prev] = 0
	}
	t.items[item] = c
	t.state[port][c] = value
}

func (t *StateTable) release(item deviceItem, port uint) {
	t.mu.Lock()
	defer t.mu.Unlock()

	c, ok := t.items[item]
	if !ok {
		return
	}
	delete(t.items, item)
	if port < MaxPorts {
		t.state[port][c] = 0
	}
	t.log.Debug().
		Uint("controller", item.controller).
		Int("control", int(c)).
		Msg("up")
}

func (t *StateTable) validPort(port uint) bool {
	if port >= MaxPorts {
		t.log.Error().Uint("controller", port).Msg("controller out of bounds")
		return false
	}
	return true
}

// AnalogValue converts an axis amount in [-1, 1] to the core's signed 16-bit
// range. Amounts within the deadzone read as 0; overflow clamps.
func AnalogValue(amount float32) int16 {
	a := float64(amount)
	switch {
	case math.Abs(a) <= analogDeadzone:
		return 0
	case a > 0:
		v := math.Trunc(analogMax * a)
		if v > analogMax {
			v = analogMax
		}
		return int16(v)
	default:
		v := math.Trunc(analogMin * -a)
		if v < analogMin {
			v = analogMin
		}
		return int16(v)
	}
}
