package minidb

func marshalUint32(buf []byte, value uint32, offset uint64) {
	buf[offset+0] = byte(value >> 0)
	buf[offset+1] = byte(value >> 8)
	buf[offset+2] = byte(value >> 16)
	buf[offset+3] = byte(value >> 24)
}

func unmarshalUint32(buf []byte, offset uint64) uint32 {
	return 0 |
		(uint32(buf[offset+0]) << 0) |
		(uint32(buf[offset+1]) << 8) |
		(uint32(buf[offset+2]) << 16) |
		(uint32(buf[offset+3]) << 24)
}

func marshalUint64(buf []byte, value uint64, offset uint64) {
	buf[offset+0] = byte(value >> 0)
	buf[offset+1] = byte(value >> 8)
	buf[offset+2] = byte(value >> 16)
	buf[offset+3] = byte(value >> 24)
	buf[offset+4] = byte(value >> 32)
	buf[offset+5] = byte(value >> 40)
	buf[offset+6] = byte(value >> 48)
	buf[offset+7] = byte(value >> 56)
}

func unmarshalUint64(buf []byte, offset uint64) uint64 {
	return 0 |
		(uint64(buf[offset+0]) << 0) |
		(uint64(buf[offset+1]) << 8) |
		(uint64(buf[offset+2]) << 16) |
		(uint64(buf[offset+3]) << 24) |
		(uint64(buf[offset+4]) << 32) |
		(uint64(buf[offset+5]) << 40) |
		(uint64(buf[offset+6]) << 48) |
		(uint64(buf[offset+7]) << 56)
}

func marshalUint16(buf []byte, value uint16, offset uint64) {
	buf[offset+0] = byte(value >> 0)
	buf[offset+1] = byte(value >> 8)
}

func unmarshalUint16(buf []byte, offset uint64) uint16 {
	return 0 |
		(uint16(buf[offset+0]) << 0) |
		(uint16(buf[offset+1]) << 8)
}
