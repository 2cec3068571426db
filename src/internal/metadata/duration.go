package metadata

import (
	"os"
	"strings"

	"github.com/gopxl/beep/v2/mp3"
)

// probeDuration best-effort decodes path purely to measure its length; it
// never plays audio (playback is out of scope, spec §1 Non-goals). Only mp3
// is probed today — other containers simply report ok=false and the caller
// leaves Duration nil, which is a valid song state per spec §3.
func probeDuration(path string) (seconds int, ok bool) {
	if !strings.EqualFold(extOf(path), ".mp3") {
		return 0, false
	}

	f, err := os.Open(path)
	if err != nil {
		return 0, false
	}
	defer f.Close()

	streamer, format, err := mp3.Decode(f)
	if err != nil {
		return 0, false
	}
	defer streamer.Close()

	d := format.SampleRate.D(streamer.Len())
	return int(d.Seconds()), true
}

func extOf(path string) string {
	i := strings.LastIndexByte(path, '.')
	if i < 0 {
		return ""
	}
	return path[i:]
}
