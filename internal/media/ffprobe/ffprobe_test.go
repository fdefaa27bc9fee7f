package ffprobe

import (
	"encoding/json"
	"testing"
)

const sampleReport = `{
  "streams": [
    {"index": 0, "codec_name": "h264", "codec_type": "video", "width": 1920, "height": 1080, "r_frame_rate": "30000/1001"},
    {"index": 1, "codec_name": "aac", "codec_type": "audio", "sample_rate": "48000", "channels": 2}
  ],
  "format": {"filename": "clip.mp4", "duration": "42.300000", "size": "1048576", "bit_rate": "1500000", "format_name": "mov,mp4,m4a"}
}`

func decodeSample(t *testing.T) Result {
	t.Helper()
	var result Result
	if err := json.Unmarshal([]byte(sampleReport), &result); err != nil {
		t.Fatalf("decode sample: %v", err)
	}
	return result
}

func TestResultAccessors(t *testing.T) {
	result := decodeSample(t)

	if got := result.DurationSeconds(); got != 42.3 {
		t.Fatalf("duration = %v, want 42.3", got)
	}
	if got := result.SizeBytes(); got != 1048576 {
		t.Fatalf("size = %d, want 1048576", got)
	}

	video := result.VideoStream()
	if video == nil || video.CodecName != "h264" || video.Width != 1920 {
		t.Fatalf("video stream = %+v", video)
	}
	audio := result.AudioStream()
	if audio == nil || audio.CodecName != "aac" || audio.Channels != 2 {
		t.Fatalf("audio stream = %+v", audio)
	}
}

func TestBitRateBPSFallsBackToVideoStream(t *testing.T) {
	result := decodeSample(t)
	if got := result.BitRateBPS(); got != 1500000 {
		t.Fatalf("container bit rate = %d, want 1500000", got)
	}

	// No container-level rate: the first video stream's rate is used.
	result.Format.BitRate = ""
	result.Streams[0].BitRate = "1200000"
	if got := result.BitRateBPS(); got != 1200000 {
		t.Fatalf("fallback bit rate = %d, want 1200000", got)
	}

	result.Streams[0].BitRate = ""
	if got := result.BitRateBPS(); got != 0 {
		t.Fatalf("bit rate with no sources = %d, want 0", got)
	}
}

func TestStreamFPS(t *testing.T) {
	tests := []struct {
		rate string
		want float64
	}{
		{"30/1", 30},
		{"30000/1001", 30000.0 / 1001.0},
		{"24", 24},
		{"0/0", 0},
		{"", 0},
		{"abc", 0},
	}
	for _, tc := range tests {
		s := Stream{FrameRate: tc.rate}
		if got := s.FPS(); got != tc.want {
			t.Errorf("FPS(%q) = %v, want %v", tc.rate, got, tc.want)
		}
	}
}

func TestMissingStreamsReturnNil(t *testing.T) {
	var result Result
	if result.VideoStream() != nil || result.AudioStream() != nil {
		t.Fatal("empty result returned a stream")
	}
	if result.DurationSeconds() != 0 {
		t.Fatal("empty result reported a duration")
	}
}

func TestParseFloatRejectsNegativesAndGarbage(t *testing.T) {
	tests := []struct {
		input string
		want  float64
	}{
		{"1.5", 1.5},
		{" 2 ", 2},
		{"-3", 0},
		{"nope", 0},
		{"", 0},
	}
	for _, tc := range tests {
		if got := parseFloat(tc.input); got != tc.want {
			t.Errorf("parseFloat(%q) = %v, want %v", tc.input, got, tc.want)
		}
	}
}
