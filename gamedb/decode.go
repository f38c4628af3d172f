package gamedb

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// MessagePack type bytes used by RDB files.
const (
	mpFixMapMask = 0xf0
	mpFixMap     = 0x80
	mpFixStrMask = 0xe0
	mpFixStr     = 0xa0
	mpNil        = 0xc0
	mpFalse      = 0xc2
	mpTrue       = 0xc3
	mpBin8       = 0xc4
	mpBin16      = 0xc5
	mpBin32      = 0xc6
	mpUint8      = 0xcc
	mpUint16     = 0xcd
	mpUint32     = 0xce
	mpUint64     = 0xcf
	mpInt8       = 0xd0
	mpInt16      = 0xd1
	mpInt32      = 0xd2
	mpInt64      = 0xd3
	mpStr8       = 0xd9
	mpStr16      = 0xda
	mpStr32      = 0xdb
	mpMap16      = 0xde
	mpMap32      = 0xdf
)

var errTruncated = errors.New("truncated data")

// value is a decoded scalar: a number, or raw string/binary bytes.
type value struct {
	raw   []byte
	num   uint64
	isNum bool
}

// uint returns the value as an unsigned number. Binary values are read
// big-endian.
func (v value) uint() uint64 {
	if v.isNum {
		return v.num
	}
	var n uint64
	for _, b := range v.raw {
		n = n<<8 | uint64(b)
	}
	return n
}

type decoder struct {
	data []byte
	pos  int
}

func (d *decoder) peek() (byte, error) {
	if d.pos >= len(d.data) {
		return 0, errTruncated
	}
	return d.data[d.pos], nil
}

func (d *decoder) take(n int) ([]byte, error) {
	if n < 0 || d.pos+n > len(d.data) {
		return nil, errTruncated
	}
	b := d.data[d.pos : d.pos+n]
	d.pos += n
	return b, nil
}

// length reads a big-endian length of size bytes.
func (d *decoder) length(size int) (int, error) {
	b, err := d.take(size)
	if err != nil {
		return 0, err
	}
	switch size {
	case 1:
		return int(b[0]), nil
	case 2:
		return int(binary.BigEndian.Uint16(b)), nil
	default:
		return int(binary.BigEndian.Uint32(b)), nil
	}
}

// mapHeader reads the start of a map and returns its entry count. ok is
// false at the nil that ends the record list.
func (d *decoder) mapHeader() (n int, ok bool, err error) {
	t, err := d.peek()
	if err != nil {
		return 0, false, err
	}
	d.pos++
	switch {
	case t == mpNil:
		return 0, false, nil
	case t&mpFixMapMask == mpFixMap:
		return int(t &^ mpFixMapMask), true, nil
	case t == mpMap16:
		n, err = d.length(2)
	case t == mpMap32:
		n, err = d.length(4)
	default:
		return 0, false, fmt.Errorf("expected map at offset %d, found type 0x%02x", d.pos-1, t)
	}
	return n, err == nil, err
}

func (d *decoder) value() (value, error) {
	t, err := d.peek()
	if err != nil {
		return value{}, err
	}
	d.pos++

	switch {
	case t < 0x80:
		return value{num: uint64(t), isNum: true}, nil
	case t&mpFixStrMask == mpFixStr:
		raw, err := d.take(int(t &^ mpFixStrMask))
		return value{raw: raw}, err
	case t >= 0xe0:
		return value{num: uint64(int64(int8(t))), isNum: true}, nil
	}

	switch t {
	case mpNil, mpFalse:
		return value{isNum: true}, nil
	case mpTrue:
		return value{num: 1, isNum: true}, nil
	case mpStr8, mpBin8, mpStr16, mpBin16, mpStr32, mpBin32:
		size := map[byte]int{mpStr8: 1, mpBin8: 1, mpStr16: 2, mpBin16: 2, mpStr32: 4, mpBin32: 4}[t]
		n, err := d.length(size)
		if err != nil {
			return value{}, err
		}
		raw, err := d.take(n)
		return value{raw: raw}, err
	case mpUint8, mpUint16, mpUint32, mpUint64, mpInt8, mpInt16, mpInt32, mpInt64:
		size := 1 << ((t - mpUint8) % 4)
		raw, err := d.take(size)
		if err != nil {
			return value{}, err
		}
		v := value{raw: raw}.uint()
		if t >= mpInt8 {
			shift := 64 - 8*size
			v = uint64(int64(v<<shift) >> shift)
		}
		return value{num: v, isNum: true}, nil
	}
	return value{}, fmt.Errorf("unsupported type 0x%02x at offset %d", t, d.pos-1)
}
