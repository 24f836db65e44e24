package stt

import (
	"bytes"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/go-audio/wav"
)

// Probe reports the playback length of audio.
func Probe(audio Audio) (time.Duration, error) {
	switch normalizeFormat(audio.Format) {
	case FormatWAV:
		dec := wav.NewDecoder(bytes.NewReader(audio.Data))
		if !dec.IsValidFile() {
			return 0, fmt.Errorf("%w: invalid wav payload", ErrUnsupportedFormat)
		}
		d, err := dec.Duration()
		if err != nil {
			return 0, fmt.Errorf("wav duration: %w", err)
		}
		return d, nil
	case FormatPCM16:
		if audio.SampleRate <= 0 || audio.Channels <= 0 {
			return 0, fmt.Errorf("%w: pcm16 needs sample rate and channels", ErrUnsupportedFormat)
		}
		frames := len(audio.Data) / 2 / audio.Channels
		return time.Duration(frames) * time.Second / time.Duration(audio.SampleRate), nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedFormat, audio.Format)
	}
}

// DurationSeconds rounds the probed length half-up to whole seconds.
func DurationSeconds(audio Audio) (int, error) {
	d, err := Probe(audio)
	if err != nil {
		return 0, err
	}
	return int(math.Floor(d.Seconds() + 0.5)), nil
}

func normalizeFormat(format string) string {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "wav", "wave", "audio/wav", "audio/x-wav", "audio/wave":
		return FormatWAV
	case "pcm", "pcm16", "s16le", "audio/l16":
		return FormatPCM16
	default:
		return format
	}
}
