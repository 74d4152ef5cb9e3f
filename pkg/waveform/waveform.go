// Package waveform reads and writes RIFF/WAVE PCM audio, the wire format
// both synthesis back ends produce: 16-bit PCM, 16 kHz for the
// unit-selection path, and whatever sample rate the parametric engine's
// "-s" option produced otherwise.
//
// The reader walks RIFF chunks rather than assuming a fixed 44-byte
// header, since the fmt chunk size can vary.
package waveform

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// Waveform is a single-channel or multi-channel 16-bit PCM buffer plus the
// format metadata read from (or to be written into) a RIFF/WAVE container.
type Waveform struct {
	SampleRate int
	Channels   int
	Samples    []int16 // interleaved if Channels > 1
}

// DurationSeconds returns the waveform's length in seconds.
func (w *Waveform) DurationSeconds() float64 {
	if w.SampleRate == 0 || w.Channels == 0 {
		return 0
	}
	frames := len(w.Samples) / w.Channels
	return float64(frames) / float64(w.SampleRate)
}

// Resample returns w converted to rate by linear interpolation. Only
// mono buffers are resampled; a multi-channel or same-rate waveform is
// returned unchanged.
func (w *Waveform) Resample(rate int) *Waveform {
	if rate <= 0 || rate == w.SampleRate || w.Channels > 1 || len(w.Samples) < 2 {
		return w
	}
	srcSamples := len(w.Samples)
	dstSamples := int(int64(srcSamples) * int64(rate) / int64(w.SampleRate))
	if dstSamples == 0 {
		return &Waveform{SampleRate: rate, Channels: w.Channels}
	}

	out := make([]int16, dstSamples)
	ratio := float64(w.SampleRate) / float64(rate)
	for i := range out {
		srcPos := float64(i) * ratio
		srcIdx := int(srcPos)
		frac := srcPos - float64(srcIdx)

		s0 := w.Samples[srcIdx]
		s1 := s0
		if srcIdx+1 < srcSamples {
			s1 = w.Samples[srcIdx+1]
		}
		out[i] = int16(float64(s0)*(1-frac) + float64(s1)*frac)
	}
	return &Waveform{SampleRate: rate, Channels: w.Channels, Samples: out}
}

// Read parses a RIFF/WAVE PCM container from r.
func Read(r io.Reader) (*Waveform, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("waveform: read: %w", err)
	}
	return Parse(data)
}

// Parse scans the RIFF/WAVE container in wav and decodes its PCM samples.
//
// Chunks are walked from byte 12 onward rather than assuming a fixed
// 44-byte header, since the "fmt " sub-chunk's size varies (16 bytes for
// plain PCM, more for extensible formats) and a "LIST" or other metadata
// chunk may precede "data".
func Parse(wav []byte) (*Waveform, error) {
	if len(wav) < 12 {
		return nil, errors.New("waveform: too short to be a valid RIFF file")
	}
	if string(wav[0:4]) != "RIFF" {
		return nil, errors.New("waveform: missing RIFF header")
	}
	if string(wav[8:12]) != "WAVE" {
		return nil, errors.New("waveform: missing WAVE identifier")
	}

	var sampleRate, channels, bitsPerSample int
	foundFmt := false

	offset := 12
	for offset+8 <= len(wav) {
		chunkID := string(wav[offset : offset+4])
		chunkSize := int(binary.LittleEndian.Uint32(wav[offset+4 : offset+8]))
		body := offset + 8

		switch chunkID {
		case "fmt ":
			if chunkSize >= 16 && body+16 <= len(wav) {
				fmtData := wav[body:]
				channels = int(binary.LittleEndian.Uint16(fmtData[2:4]))
				sampleRate = int(binary.LittleEndian.Uint32(fmtData[4:8]))
				bitsPerSample = int(binary.LittleEndian.Uint16(fmtData[14:16]))
				foundFmt = true
			}
		case "data":
			if !foundFmt {
				return nil, errors.New("waveform: data chunk before fmt chunk")
			}
			if bitsPerSample != 16 {
				return nil, fmt.Errorf("waveform: unsupported bits-per-sample %d (only 16-bit PCM is supported)", bitsPerSample)
			}
			end := body + chunkSize
			if end > len(wav) {
				end = len(wav)
			}
			raw := wav[body:end]
			samples := make([]int16, len(raw)/2)
			for i := range samples {
				samples[i] = int16(binary.LittleEndian.Uint16(raw[i*2 : i*2+2]))
			}
			return &Waveform{SampleRate: sampleRate, Channels: channels, Samples: samples}, nil
		}

		offset = body + chunkSize
		if chunkSize%2 != 0 {
			offset++
		}
	}
	return nil, errors.New("waveform: missing data chunk")
}

// WriteRIFF serializes w as a canonical 16-bit PCM RIFF/WAVE container.
func (w *Waveform) WriteRIFF(out io.Writer) error {
	channels := w.Channels
	if channels == 0 {
		channels = 1
	}
	const bitsPerSample = 16
	byteRate := w.SampleRate * channels * bitsPerSample / 8
	blockAlign := channels * bitsPerSample / 8
	dataSize := len(w.Samples) * 2
	riffSize := 36 + dataSize

	buf := make([]byte, 0, 44+dataSize)
	buf = append(buf, "RIFF"...)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(riffSize))
	buf = append(buf, "WAVE"...)

	buf = append(buf, "fmt "...)
	buf = binary.LittleEndian.AppendUint32(buf, 16)
	buf = binary.LittleEndian.AppendUint16(buf, 1) // PCM
	buf = binary.LittleEndian.AppendUint16(buf, uint16(channels))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(w.SampleRate))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(byteRate))
	buf = binary.LittleEndian.AppendUint16(buf, uint16(blockAlign))
	buf = binary.LittleEndian.AppendUint16(buf, bitsPerSample)

	buf = append(buf, "data"...)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(dataSize))
	for _, s := range w.Samples {
		buf = binary.LittleEndian.AppendUint16(buf, uint16(s))
	}

	_, err := out.Write(buf)
	return err
}
