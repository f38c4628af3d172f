package libretro

// Callbacks holds the function pointers a core registered during
// environment negotiation. The bridge only stores them; the session invokes
// them later. A zero field means the core did not register that callback.
type Callbacks struct {
	KeyboardEvent uintptr

	DiskSetEjectState     uintptr
	DiskGetEjectState     uintptr
	DiskGetImageIndex     uintptr
	DiskSetImageIndex     uintptr
	DiskGetNumImages      uintptr
	DiskReplaceImageIndex uintptr
	DiskAddImageIndex     uintptr

	HWContextReset   uintptr
	HWContextDestroy uintptr

	Audio         uintptr
	AudioSetState uintptr

	FrameTime uintptr

	CameraFrameRawFramebuffer uintptr
	CameraFrameOpenGLTexture  uintptr
	CameraInitialized         uintptr
	CameraDeinitialized       uintptr

	LocationInitialized   uintptr
	LocationDeinitialized uintptr
}

// HasDiskControl reports whether the core registered a disk control
// interface.
func (c *Callbacks) HasDiskControl() bool {
	return c.DiskGetNumImages != 0
}

// Trampolines holds the C-callable addresses of frontend functions written
// into service interfaces requested by a core. They are produced by the
// platform loader; a zero address leaves the corresponding field untouched.
type Trampolines struct {
	HWGetCurrentFramebuffer uintptr
	HWGetProcAddress        uintptr

	RumbleSetState uintptr

	SensorSetState uintptr
	SensorGetInput uintptr

	CameraStart uintptr
	CameraStop  uintptr

	Log uintptr

	PerfGetTimeUsec    uintptr
	PerfGetCPUFeatures uintptr
	PerfGetCounter     uintptr
	PerfRegister       uintptr
	PerfStart          uintptr
	PerfStop           uintptr
	PerfLog            uintptr

	LocationStart       uintptr
	LocationStop        uintptr
	LocationGetPosition uintptr
	LocationSetInterval uintptr
}

func assign(dst *uintptr, addr uintptr) {
	if addr != 0 {
		*dst = addr
	}
}

// ServiceBinder is implemented by loaded cores that can expose Services to
// foreign code. BindServices routes every trampoline to s and returns their
// addresses.
type ServiceBinder interface {
	BindServices(s *Services) Trampolines
}
