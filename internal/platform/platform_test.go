package platform

import (
	"reflect"
	"testing"
)

func TestGetDefault(t *testing.T) {
	p, err := Get("")
	if err != nil {
		t.Fatal(err)
	}
	if p.GetName() != DefaultName {
		t.Errorf("Get(\"\") = %s, want %s", p.GetName(), DefaultName)
	}
	if _, err := Get("myspace"); err == nil {
		t.Error("expected error for unknown platform")
	}
}

func TestGetSupportedPlatforms(t *testing.T) {
	want := []string{"instagram-reel", "tiktok"}
	if got := GetSupportedPlatforms(); !reflect.DeepEqual(got, want) {
		t.Errorf("GetSupportedPlatforms() = %v, want %v", got, want)
	}
}

func TestEncoding(t *testing.T) {
	p, _ := Get("tiktok")
	enc := Encoding(p, 24)
	if enc.VideoCodec != "libx264" || enc.AudioCodec != "aac" || enc.FrameRate != 24 {
		t.Errorf("Encoding() = %+v", enc)
	}
	if !enc.FastStart || enc.PixelFormat != "yuv420p" {
		t.Errorf("Encoding() lost defaults: %+v", enc)
	}
}

func TestCheckDuration(t *testing.T) {
	p, _ := Get("instagram-reel")
	if err := CheckDuration(p, 30); err != nil {
		t.Errorf("CheckDuration(30) = %v", err)
	}
	if err := CheckDuration(p, 91); err == nil {
		t.Error("CheckDuration(91) expected error")
	}
}
