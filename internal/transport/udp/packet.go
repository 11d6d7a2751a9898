// SPDX-License-Identifier: MIT
package udp

import (
	"encoding/binary"
	"errors"
	"math"
)

/*
Spectrum packet layout (BigEndian):

+-----------------------------------------------------------------------------+
| Field             | Data Type      | Size (Bytes) | Description             |
|-------------------|----------------|--------------|-------------------------|
| Sequence Number   | uint32         | 4            | Monotonically increasing|
| Timestamp         | int64          | 8            | Nanoseconds since epoch |
| Bin Width         | float32        | 4            | Hz per magnitude bin    |
| Magnitude Count   | uint16         | 2            | Number of floats (N)    |
| Magnitudes        | []float32      | N * 4        | Normalized magnitudes   |
+-----------------------------------------------------------------------------+
*/

// HeaderSize is the size of the fixed packet header in bytes.
const HeaderSize = 4 + 8 + 4 + 2

// ErrShortPacket is returned by ParsePacket for truncated input.
var ErrShortPacket = errors.New("udp: short packet")

// Packet is a decoded spectrum packet.
type Packet struct {
	Sequence   uint32
	Timestamp  int64
	BinWidth   float32
	Magnitudes []float32
}

// AppendPacket encodes a packet onto dst and returns the extended slice.
// At most math.MaxUint16 magnitudes are written.
func AppendPacket(dst []byte, seq uint32, timestamp int64, binWidth float32, mags []float64) []byte {
	if len(mags) > math.MaxUint16 {
		mags = mags[:math.MaxUint16]
	}
	dst = binary.BigEndian.AppendUint32(dst, seq)
	dst = binary.BigEndian.AppendUint64(dst, uint64(timestamp))
	dst = binary.BigEndian.AppendUint32(dst, math.Float32bits(binWidth))
	dst = binary.BigEndian.AppendUint16(dst, uint16(len(mags)))
	for _, m := range mags {
		dst = binary.BigEndian.AppendUint32(dst, math.Float32bits(float32(m)))
	}
	return dst
}

// ParsePacket decodes b.
func ParsePacket(b []byte) (Packet, error) {
	if len(b) < HeaderSize {
		return Packet{}, ErrShortPacket
	}
	p := Packet{
		Sequence:  binary.BigEndian.Uint32(b[0:]),
		Timestamp: int64(binary.BigEndian.Uint64(b[4:])),
		BinWidth:  math.Float32frombits(binary.BigEndian.Uint32(b[12:])),
	}
	n := int(binary.BigEndian.Uint16(b[16:]))
	body := b[HeaderSize:]
	if len(body) < n*4 {
		return Packet{}, ErrShortPacket
	}
	p.Magnitudes = make([]float32, n)
	for i := range p.Magnitudes {
		p.Magnitudes[i] = math.Float32frombits(binary.BigEndian.Uint32(body[i*4:]))
	}
	return p, nil
}
