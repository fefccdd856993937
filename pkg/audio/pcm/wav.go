package pcm

import "encoding/binary"

// EncodeWAV wraps samples in a minimal 16-bit mono RIFF/WAVE container, the
// format speech recognition endpoints accept for uploads.
func EncodeWAV(samples []float32, sampleRate int) []byte {
	data := EncodeS16LE(samples)
	buf := make([]byte, 0, 44+len(data))
	le := binary.LittleEndian

	u32 := func(v uint32) []byte { b := make([]byte, 4); le.PutUint32(b, v); return b }
	u16 := func(v uint16) []byte { b := make([]byte, 2); le.PutUint16(b, v); return b }

	buf = append(buf, "RIFF"...)
	buf = append(buf, u32(uint32(36+len(data)))...)
	buf = append(buf, "WAVE"...)

	buf = append(buf, "fmt "...)
	buf = append(buf, u32(16)...)
	buf = append(buf, u16(1)...) // PCM
	buf = append(buf, u16(1)...) // mono
	buf = append(buf, u32(uint32(sampleRate))...)
	buf = append(buf, u32(uint32(sampleRate*2))...) // byte rate
	buf = append(buf, u16(2)...)                    // block align
	buf = append(buf, u16(16)...)                   // bits per sample

	buf = append(buf, "data"...)
	buf = append(buf, u32(uint32(len(data)))...)
	buf = append(buf, data...)
	return buf
}
