package platform

import (
	"github.com/ZacxDev/reel-splitter/internal/ffmpeg"
	"github.com/ZacxDev/reel-splitter/pkg/types"
	"github.com/pkg/errors"
	"golang.org/x/exp/slices"
)

// Platform is a publish target that constrains how segments and reels are
// encoded.
type Platform interface {
	// GetName returns the platform name
	GetName() string

	// GetMaxDimensions returns the output canvas size
	GetMaxDimensions() (width, height int)

	// GetMaxDuration returns the maximum allowed clip duration in seconds
	GetMaxDuration() int

	GetVideoCodec() string
	GetAudioCodec() string
	GetAudioBitrate() string

	// GetOutputFormat returns the container extension without the dot
	GetOutputFormat() string
}

// DefaultName is used when no platform is configured.
const DefaultName = string(types.ProcessingPlatformInstagramReel)

var platforms = make(map[string]Platform)

// Register adds a platform to the registry
func Register(p Platform) {
	platforms[p.GetName()] = p
}

// Get returns a platform by name. An empty name selects DefaultName.
func Get(name string) (Platform, error) {
	if name == "" {
		name = DefaultName
	}
	p, ok := platforms[name]
	if !ok {
		return nil, errors.Errorf("unsupported platform: %s", name)
	}
	return p, nil
}

// GetSupportedPlatforms returns the registered names, sorted.
func GetSupportedPlatforms() []string {
	names := make([]string, 0, len(platforms))
	for name := range platforms {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Encoding derives transcoder output settings for p at the given frame rate.
func Encoding(p Platform, fps int) ffmpeg.Encoding {
	enc := ffmpeg.DefaultEncoding()
	enc.VideoCodec = p.GetVideoCodec()
	enc.AudioCodec = p.GetAudioCodec()
	enc.AudioBitrate = p.GetAudioBitrate()
	if fps > 0 {
		enc.FrameRate = fps
	}
	return enc
}

// CheckDuration rejects clip lengths the platform would refuse.
func CheckDuration(p Platform, seconds int) error {
	if seconds > p.GetMaxDuration() {
		return errors.Errorf("chunk duration %ds exceeds %s maximum of %ds", seconds, p.GetName(), p.GetMaxDuration())
	}
	return nil
}
