package bancho

import (
	"regexp"
	"strconv"
	"strings"
)

type StatStatus int

const (
	StatusNone StatStatus = iota
	StatusIdle
	StatusAfk
	StatusPlaying
	StatusPaused
	StatusLobby
	StatusMultiplayer
	StatusMultiplaying
	StatusWatching
	StatusEditing
	StatusModding
	StatusTesting
	StatusSubmitting
	StatusOsuDirect
	StatusUnknown
)

var statusNames = map[string]StatStatus{
	"idle":         StatusIdle,
	"afk":          StatusAfk,
	"playing":      StatusPlaying,
	"paused":       StatusPaused,
	"lobby":        StatusLobby,
	"multiplayer":  StatusMultiplayer,
	"multiplaying": StatusMultiplaying,
	"watching":     StatusWatching,
	"editing":      StatusEditing,
	"modding":      StatusModding,
	"testing":      StatusTesting,
	"submitting":   StatusSubmitting,
	"osudirect":    StatusOsuDirect,
}

var statusLabels = [...]string{
	StatusNone:         "None",
	StatusIdle:         "Idle",
	StatusAfk:          "Afk",
	StatusPlaying:      "Playing",
	StatusPaused:       "Paused",
	StatusLobby:        "Lobby",
	StatusMultiplayer:  "Multiplayer",
	StatusMultiplaying: "Multiplaying",
	StatusWatching:     "Watching",
	StatusEditing:      "Editing",
	StatusModding:      "Modding",
	StatusTesting:      "Testing",
	StatusSubmitting:   "Submitting",
	StatusOsuDirect:    "OsuDirect",
	StatusUnknown:      "Unknown",
}

func (s StatStatus) String() string {
	if s < 0 || int(s) >= len(statusLabels) {
		return "Unknown"
	}
	return statusLabels[s]
}

func parseStatStatus(word string) StatStatus {
	word = strings.TrimSpace(word)
	if word == "" {
		return StatusNone
	}
	if s, ok := statusNames[strings.ToLower(word)]; ok {
		return s
	}
	return StatusUnknown
}

type StatusSnapshot struct {
	Name     string
	ID       int
	Status   StatStatus
	Score    int64
	Rank     int
	Plays    int
	Level    int
	Accuracy float64
}

var (
	reStatHeader   = regexp.MustCompile(`^Stats for \((.+)\)\[(.*)\](?:\s+is (.+))?:$`)
	reStatScore    = regexp.MustCompile(`^Score:\s+([\d,]+)\s+\(#([\d,]+)\)$`)
	reStatPlays    = regexp.MustCompile(`^Plays:\s+([\d,]+)\s+\(lv(\d+)\)$`)
	reStatAccuracy = regexp.MustCompile(`^Accuracy:\s+([\d.]+)%$`)
	reTrailingID   = regexp.MustCompile(`(\d+)$`)
)

// StatusBlockParser reads the 4-line "!stats" block:
//
//	Stats for (name)[https://osu.ppy.sh/u/123] is Playing:
//	Score:    18,163,827,124 (#9,773)
//	Plays:    22,496 (lv101)
//	Accuracy: 97.53%
type StatusBlockParser struct {
	current *StatusSnapshot
	step    int
	result  *StatusSnapshot
}

func NewStatusBlockParser() *StatusBlockParser {
	return &StatusBlockParser{}
}

func (p *StatusBlockParser) Accumulating() bool { return p.current != nil }

// Result is nil until all four lines of a block were consumed.
func (p *StatusBlockParser) Result() *StatusSnapshot { return p.result }

// FeedLine returns true when the line was consumed. A header always starts a
// new block; any other line must be the next one of the current block.
func (p *StatusBlockParser) FeedLine(line string) bool {
	line = strings.TrimRight(line, "\r\n")

	if m := reStatHeader.FindStringSubmatch(line); m != nil {
		snap := &StatusSnapshot{Name: m[1], Status: parseStatStatus(m[3])}
		if id := reTrailingID.FindString(m[2]); id != "" {
			snap.ID = atoi(id)
		}
		p.current = snap
		p.step = 1
		p.result = nil
		return true
	}
	if p.current == nil {
		return false
	}

	switch p.step {
	case 1:
		m := reStatScore.FindStringSubmatch(line)
		if m == nil {
			return false
		}
		score, err := strconv.ParseInt(strings.ReplaceAll(m[1], ",", ""), 10, 64)
		if err != nil {
			return false
		}
		p.current.Score = score
		p.current.Rank = atoi(m[2])
	case 2:
		m := reStatPlays.FindStringSubmatch(line)
		if m == nil {
			return false
		}
		p.current.Plays = atoi(m[1])
		p.current.Level = atoi(m[2])
	case 3:
		m := reStatAccuracy.FindStringSubmatch(line)
		if m == nil {
			return false
		}
		acc, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			return false
		}
		p.current.Accuracy = acc
		p.result = p.current
		p.current = nil
		p.step = 0
		return true
	default:
		return false
	}
	p.step++
	return true
}
