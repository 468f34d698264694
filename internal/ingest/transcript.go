package ingest

import (
	"bufio"
	"os"
	"regexp"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

var cueTag = regexp.MustCompile(`<[^>]*>`)

// transcriptFromVTT flattens a WebVTT subtitle file into plain text. Cue
// timings, identifiers and markup are dropped, and a line repeated by the
// next cue is kept once, as auto-generated captions roll each line over.
func transcriptFromVTT(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", errors.Wrap(err, "open subtitles")
	}
	defer f.Close()

	var lines []string
	last := ""
	inHeader := true
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if inHeader {
			if line == "" {
				inHeader = false
			}
			continue
		}
		switch {
		case line == "",
			strings.Contains(line, "-->"),
			strings.HasPrefix(line, "NOTE"),
			strings.HasPrefix(line, "STYLE"),
			isCueID(line):
			continue
		}
		line = strings.TrimSpace(cueTag.ReplaceAllString(line, ""))
		if line == "" || line == last {
			continue
		}
		lines = append(lines, line)
		last = line
	}
	if err := sc.Err(); err != nil {
		return "", errors.Wrap(err, "read subtitles")
	}
	return strings.Join(lines, " "), nil
}

func isCueID(line string) bool {
	for _, r := range line {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

type subtitleFile struct {
	Ext      string `json:"ext"`
	Filepath string `json:"filepath"`
}

// pickSubtitles returns the first vtt track by language code.
func pickSubtitles(subs map[string]subtitleFile) string {
	langs := make([]string, 0, len(subs))
	for lang := range subs {
		langs = append(langs, lang)
	}
	sort.Strings(langs)
	for _, lang := range langs {
		if s := subs[lang]; s.Ext == "vtt" && s.Filepath != "" {
			return s.Filepath
		}
	}
	return ""
}
