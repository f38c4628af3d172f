package libretro

import "unsafe"

// StringBufferSize is the capacity of a StringBuffer including the
// terminating NUL.
const StringBufferSize = 8192

// StringBuffer is bridge-owned storage for a string handed to a core. Its
// address is stable for the lifetime of the bridge, but every Set overwrites
// the previous contents: a core must not hold the pointer across a second
// call of the same kind.
type StringBuffer struct {
	data [StringBufferSize]byte
}

// Set copies s into the buffer, truncating it to StringBufferSize-1 bytes,
// and returns a pointer to the NUL-terminated result.
func (b *StringBuffer) Set(s string) *byte {
	n := copy(b.data[:StringBufferSize-1], s)
	clear(b.data[n:])
	return &b.data[0]
}

// String returns the current contents.
func (b *StringBuffer) String() string {
	return GoString(&b.data[0])
}

// GoString copies a NUL-terminated C string. nil yields "".
func GoString(p *byte) string {
	if p == nil {
		return ""
	}
	n := 0
	for *elementAt(p, n) != 0 {
		n++
	}
	return string(unsafe.Slice(p, n))
}

// CString returns a NUL-terminated copy of s in Go memory. The result must be
// kept reachable for as long as foreign code may read it.
func CString(s string) *byte {
	b := make([]byte, len(s)+1)
	copy(b, s)
	return &b[0]
}
