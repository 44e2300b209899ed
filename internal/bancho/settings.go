package bancho

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// NameFieldWidth is the fixed width of the player name column in a
// "!mp settings" slot line. Names may contain spaces, so the column is sliced,
// not split.
const NameFieldWidth = 15

// MaxSlots is the room capacity.
const MaxSlots = 16

type SlotRecord struct {
	Slot    int
	Ready   string
	ID      int
	Name    string
	IsHost  bool
	Team    Team
	Options string
}

type RoomSnapshot struct {
	Name         string
	ID           int
	BeatmapID    int
	BeatmapTitle string
	TeamMode     string
	WinCondition string
	ActiveMods   string
	PlayerCount  int
	Players      []SlotRecord
}

// Host returns the record flagged as host, if any.
func (s *RoomSnapshot) Host() (SlotRecord, bool) {
	for _, p := range s.Players {
		if p.IsHost {
			return p, true
		}
	}
	return SlotRecord{}, false
}

var (
	reRoomHeader = regexp.MustCompile(`^Room name: (.+), History: \S*?(\d+)$`)
	reBeatmap    = regexp.MustCompile(`^Beatmap: https?://osu\.ppy\.sh/b/(\d+) (.+)$`)
	reTeamMode   = regexp.MustCompile(`^Team mode: (\w+), Win condition: (\w+)$`)
	reActiveMods = regexp.MustCompile(`^Active mods: (.+)$`)
	rePlayers    = regexp.MustCompile(`^Players: (\d+)$`)
	reSlot       = regexp.MustCompile(`^Slot (\d+)\s+(.+?)\s+https?://osu\.ppy\.sh/u/(\d+) (.*)$`)
)

// RoomSnapshotParser accumulates a "!mp settings" dump line by line.
type RoomSnapshotParser struct {
	current      *RoomSnapshot
	declared     int
	accumulating bool
	result       *RoomSnapshot
}

func NewRoomSnapshotParser() *RoomSnapshotParser {
	return &RoomSnapshotParser{declared: -1}
}

// Accumulating reports whether a header has been seen and the roster is not
// complete yet.
func (p *RoomSnapshotParser) Accumulating() bool { return p.accumulating }

// Result is nil until a dump has been read completely.
func (p *RoomSnapshotParser) Result() *RoomSnapshot { return p.result }

// Reset drops a dump that is still being read.
func (p *RoomSnapshotParser) Reset() {
	p.current = nil
	p.declared = -1
	p.accumulating = false
}

// FeedLine returns true when the line was consumed.
func (p *RoomSnapshotParser) FeedLine(line string) bool {
	line = strings.TrimRight(line, "\r\n")

	if m := reRoomHeader.FindStringSubmatch(line); m != nil {
		p.current = &RoomSnapshot{Name: m[1], ID: atoi(m[2])}
		p.declared = -1
		p.accumulating = true
		p.result = nil
		return true
	}
	if !p.accumulating {
		return false
	}

	switch {
	case matchInto(reBeatmap, line, func(m []string) {
		p.current.BeatmapID = atoi(m[1])
		p.current.BeatmapTitle = m[2]
	}):
	case matchInto(reTeamMode, line, func(m []string) {
		p.current.TeamMode = m[1]
		p.current.WinCondition = m[2]
	}):
	case matchInto(reActiveMods, line, func(m []string) {
		p.current.ActiveMods = m[1]
	}):
	case matchInto(rePlayers, line, func(m []string) {
		p.declared = atoi(m[1])
		p.current.PlayerCount = p.declared
	}):
	case matchInto(reSlot, line, func(m []string) {
		p.current.Players = append(p.current.Players, parseSlot(m))
	}):
	default:
		return false
	}

	p.tryComplete()
	return true
}

func (p *RoomSnapshotParser) tryComplete() {
	if p.declared < 0 || len(p.current.Players) != p.declared {
		return
	}
	sort.SliceStable(p.current.Players, func(i, j int) bool {
		return p.current.Players[i].Slot < p.current.Players[j].Slot
	})
	p.result = p.current
	p.current = nil
	p.accumulating = false
}

func matchInto(re *regexp.Regexp, line string, apply func(m []string)) bool {
	m := re.FindStringSubmatch(line)
	if m == nil {
		return false
	}
	apply(m)
	return true
}

// parseSlot режет колонку ника ровно по NameFieldWidth символов, в остатке
// необязательный блок "[Host / Team Blue / Hidden]".
func parseSlot(m []string) SlotRecord {
	rec := SlotRecord{
		Slot:  atoi(m[1]),
		Ready: m[2],
		ID:    atoi(m[3]),
	}
	rest := []rune(m[4])
	var tail string
	if len(rest) > NameFieldWidth {
		rec.Name = strings.TrimRight(string(rest[:NameFieldWidth]), " ")
		tail = strings.TrimSpace(string(rest[NameFieldWidth:]))
	} else {
		rec.Name = strings.TrimRight(string(rest), " ")
	}

	if strings.HasPrefix(tail, "[") && strings.HasSuffix(tail, "]") {
		rec.Options = tail[1 : len(tail)-1]
		for _, opt := range strings.Split(rec.Options, " / ") {
			opt = strings.TrimSpace(opt)
			switch {
			case opt == "Host":
				rec.IsHost = true
			case strings.HasPrefix(opt, "Team "):
				rec.Team = parseTeam(strings.TrimPrefix(opt, "Team "))
			}
		}
	}
	return rec
}

// FormatSlotLine renders a record the way BanchoBot prints it.
func FormatSlotLine(r SlotRecord) string {
	var b strings.Builder
	b.WriteString("Slot ")
	b.WriteString(strconv.Itoa(r.Slot))
	b.WriteString(strings.Repeat(" ", max(1, 3-len(strconv.Itoa(r.Slot)))))
	ready := r.Ready
	if ready == "" {
		ready = "Not Ready"
	}
	b.WriteString(ready)
	b.WriteString(strings.Repeat(" ", max(1, 10-len(ready))))
	b.WriteString("https://osu.ppy.sh/u/")
	b.WriteString(strconv.Itoa(r.ID))
	b.WriteString(" ")
	name := []rune(r.Name)
	if len(name) > NameFieldWidth {
		name = name[:NameFieldWidth]
	}
	b.WriteString(string(name))
	b.WriteString(strings.Repeat(" ", NameFieldWidth-len(name)))

	var opts []string
	if r.IsHost {
		opts = append(opts, "Host")
	}
	if r.Team != TeamNone {
		opts = append(opts, "Team "+r.Team.String())
	}
	if len(opts) > 0 {
		b.WriteString(" [")
		b.WriteString(strings.Join(opts, " / "))
		b.WriteString("]")
	}
	return b.String()
}

// Lines renders the whole dump, header first.
func (s *RoomSnapshot) Lines() []string {
	lines := []string{
		"Room name: " + s.Name + ", History: https://osu.ppy.sh/mp/" + strconv.Itoa(s.ID),
	}
	if s.BeatmapID != 0 {
		lines = append(lines, "Beatmap: https://osu.ppy.sh/b/"+strconv.Itoa(s.BeatmapID)+" "+s.BeatmapTitle)
	}
	mode, win := s.TeamMode, s.WinCondition
	if mode == "" {
		mode = "HeadToHead"
	}
	if win == "" {
		win = "Score"
	}
	lines = append(lines, "Team mode: "+mode+", Win condition: "+win)
	if s.ActiveMods != "" {
		lines = append(lines, "Active mods: "+s.ActiveMods)
	}
	lines = append(lines, "Players: "+strconv.Itoa(len(s.Players)))
	for _, p := range s.Players {
		lines = append(lines, FormatSlotLine(p))
	}
	return lines
}
