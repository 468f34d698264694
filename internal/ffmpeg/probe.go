package ffmpeg

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// VideoMetadata contains metadata about a video file
type VideoMetadata struct {
	Duration float64
	Width    int
	Height   int
	Codec    string
	HasAudio bool
	BitRate  int64
}

// Aspect returns width/height, or zero when dimensions are unknown.
func (m *VideoMetadata) Aspect() float64 {
	if m.Height == 0 {
		return 0
	}
	return float64(m.Width) / float64(m.Height)
}

type probeOutput struct {
	Streams []probeStream `json:"streams"`
	Format  probeFormat   `json:"format"`
}

type probeStream struct {
	CodecType  string `json:"codec_type"`
	CodecName  string `json:"codec_name"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	Duration   string `json:"duration"`
	NbFrames   string `json:"nb_frames"`
	RFrameRate string `json:"r_frame_rate"`
	BitRate    string `json:"bit_rate"`
}

type probeFormat struct {
	Duration string `json:"duration"`
	BitRate  string `json:"bit_rate"`
}

// ParseProbe decodes ffprobe JSON. Duration comes from the video stream,
// then the container, then frame count over frame rate.
func ParseProbe(data []byte) (*VideoMetadata, error) {
	var out probeOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, errors.Wrap(err, "decode ffprobe output")
	}
	if len(out.Streams) == 0 {
		return nil, errors.New("no streams found in video")
	}

	var video *probeStream
	meta := &VideoMetadata{}
	for i := range out.Streams {
		s := &out.Streams[i]
		switch s.CodecType {
		case "video":
			if video == nil {
				video = s
			}
		case "audio":
			meta.HasAudio = true
		}
	}
	if video == nil {
		return nil, errors.New("no video stream found")
	}

	duration := parseFloat(video.Duration)
	if duration <= 0 {
		duration = parseFloat(out.Format.Duration)
	}
	if duration <= 0 {
		if frames := parseFloat(video.NbFrames); frames > 0 {
			if rate := parseRate(video.RFrameRate); rate > 0 {
				duration = frames / rate
			}
		}
	}
	if duration <= 0 {
		return nil, errors.New("could not determine video duration")
	}

	meta.Duration = duration
	meta.Width = video.Width
	meta.Height = video.Height
	meta.Codec = video.CodecName
	if br, err := strconv.ParseInt(out.Format.BitRate, 10, 64); err == nil {
		meta.BitRate = br
	} else if br, err := strconv.ParseInt(video.BitRate, 10, 64); err == nil {
		meta.BitRate = br
	}
	return meta, nil
}

func parseFloat(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return v
}

func parseRate(s string) float64 {
	nums := strings.Split(s, "/")
	if len(nums) != 2 {
		return 0
	}
	num := parseFloat(nums[0])
	den := parseFloat(nums[1])
	if den == 0 {
		return 0
	}
	return num / den
}
