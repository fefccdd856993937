package resampler

import "io"

// frameReader wraps an io.Reader so every Read returns a multiple of
// frameSize bytes, buffering any unaligned remainder until the next call.
type frameReader struct {
	buffer    []byte // leftover bytes, at most frameSize-1
	buffered  int
	frameSize int
	r         io.Reader
}

func newFrameReader(r io.Reader, frameSize int) *frameReader {
	return &frameReader{
		buffer:    make([]byte, frameSize-1),
		frameSize: frameSize,
		r:         r,
	}
}

// Read reads into p, returning 0 or a multiple of frameSize bytes. Returns
// io.ErrShortBuffer if len(p) < frameSize. On EOF a trailing partial frame is
// reported as io.ErrUnexpectedEOF.
func (fr *frameReader) Read(p []byte) (n int, err error) {
	if len(p) < fr.frameSize {
		return 0, io.ErrShortBuffer
	}
	p = p[:len(p)/fr.frameSize*fr.frameSize]

	if fr.buffered > 0 {
		n = copy(p, fr.buffer[:fr.buffered])
		fr.buffered = 0
	}

	rn, err := fr.r.Read(p[n:])
	n += rn
	if err != nil {
		if n%fr.frameSize != 0 && err == io.EOF {
			return n, io.ErrUnexpectedEOF
		}
		return n, err
	}
	if mod := n % fr.frameSize; mod != 0 {
		n -= mod
		copy(fr.buffer[:mod], p[n:n+mod])
		fr.buffered = mod
	}
	return n, nil
}
