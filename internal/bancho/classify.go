// Package bancho parses the text protocol of the BanchoBot moderator account:
// single-line replies (Classify) and the two multi-line dumps produced by
// "!mp settings" and "!stats" (RoomSnapshotParser, StatusBlockParser).
//
// The grammar is prose written for humans, so matching is done with an
// ordered table. Order matters: several replies are textual prefixes or near
// duplicates of each other.
package bancho

import (
	"regexp"
	"strconv"
	"strings"
)

// BotName is the nick of the moderator account.
const BotName = "BanchoBot"

type matcher func(line string) (Response, bool)

func literal(text string, r Response) matcher {
	return func(line string) (Response, bool) {
		if line == text {
			return r, true
		}
		return nil, false
	}
}

func pattern(expr string, build func(m []string) (Response, bool)) matcher {
	re := regexp.MustCompile(expr)
	return func(line string) (Response, bool) {
		m := re.FindStringSubmatch(line)
		if m == nil {
			return nil, false
		}
		return build(m)
	}
}

func settingsLine(expr string) matcher {
	return pattern(expr, func(m []string) (Response, bool) { return Settings{Line: m[0]}, true })
}

func statsLine(expr string) matcher {
	return pattern(expr, func(m []string) (Response, bool) { return Stats{Line: m[0]}, true })
}

// buckets индексируются первым символом строки: дешёвый отсев до регулярок.
var buckets = map[byte][]matcher{
	'A': {
		literal("All players are ready", AllPlayersReady{}),
		literal("Aborted the match", AbortedMatch{}),
		pattern(`^Added (.+) to the match referees$`, func(m []string) (Response, bool) {
			return AddedReferee{Name: m[1]}, true
		}),
		settingsLine(`^Active mods: .*$`),
		statsLine(`^Accuracy: .*$`),
	},
	'B': {
		pattern(`^Beatmap changed to: (.+) \(https?://osu\.ppy\.sh/b/(\d+)\)$`, func(m []string) (Response, bool) {
			return BeatmapChanged{Title: m[1], BeatmapID: atoi(m[2])}, true
		}),
		settingsLine(`^Beatmap: .*$`),
	},
	'C': {
		literal("Cleared match host", ClearedHost{}),
		literal("Countdown aborted", AbortedStartTimer{}),
		literal("Countdown finished", TimerFinished{}),
		pattern(`^Countdown ends in (.+)$`, func(m []string) (Response, bool) {
			sec, ok := ParseCountdown(m[1])
			return TimerCountdown{Seconds: sec}, ok
		}),
		// пароль проверяем раньше общего "Changed match settings"
		literal("Changed the match password", PasswordChanged{}),
		pattern(`^Changed match settings to (\d+) slots(?:, (\w+))?(?:, (\w+))?$`, func(m []string) (Response, bool) {
			return SettingsChanged{Size: atoi(m[1]), TeamMode: m[2], WinCondition: m[3]}, true
		}),
		pattern(`^Changed match to size (\d+)$`, func(m []string) (Response, bool) {
			return MatchSizeChanged{Size: atoi(m[1])}, true
		}),
		pattern(`^Changed match host to (.+)$`, func(m []string) (Response, bool) {
			return HostTransferred{Name: m[1]}, true
		}),
		pattern(`^Changed beatmap to https?://osu\.ppy\.sh/b/(\d+) ?(.*)$`, func(m []string) (Response, bool) {
			return BeatmapSet{BeatmapID: atoi(m[1]), Title: m[2]}, true
		}),
		literal("Closed the match", MatchClosed{}),
		pattern(`^Created the tournament match https?://osu\.ppy\.sh/mp/(\d+) (.+)$`, func(m []string) (Response, bool) {
			return TournamentMatchCreated{MatchID: atoi(m[1]), Title: m[2]}, true
		}),
	},
	'D': {
		pattern(`^Disabled all mods, (enabled|disabled) FreeMod$`, func(m []string) (Response, bool) {
			return ModsChanged{FreeMod: m[1] == "enabled"}, true
		}),
		literal("Disabled FreeMod", ModsChanged{}),
	},
	'E': {
		literal("Enabled FreeMod", ModsChanged{FreeMod: true}),
		pattern(`^Enabled (.+), (enabled|disabled) FreeMod$`, func(m []string) (Response, bool) {
			return ModsChanged{Mods: m[1], FreeMod: m[2] == "enabled"}, true
		}),
	},
	'G': {
		literal("Good luck, have fun!", StartTimerFinished{}),
	},
	'H': {
		literal("Host is changing map...", BeatmapChanging{}),
	},
	'I': {
		literal("Invalid map ID provided", InvalidBeatmap{}),
		pattern(`^Invited (.+) to the room$`, func(m []string) (Response, bool) {
			return Invited{Name: m[1]}, true
		}),
	},
	'K': {
		pattern(`^Kicked (.+) from the match\.$`, func(m []string) (Response, bool) {
			return KickedPlayer{Name: m[1]}, true
		}),
	},
	'L': {
		literal("Locked the match", LockedMatch{}),
	},
	'M': {
		literal("Match referees:", ListRefs{}),
		pattern(`^Match starts in (.+)$`, func(m []string) (Response, bool) {
			sec, ok := ParseCountdown(m[1])
			return StartCountdown{Seconds: sec}, ok
		}),
		pattern(`^Moved (.+) into slot (\d+)$`, func(m []string) (Response, bool) {
			return MovedPlayer{Name: m[1], Slot: atoi(m[2])}, true
		}),
	},
	'P': {
		settingsLine(`^Players: \d+$`),
		statsLine(`^Plays: .*$`),
	},
	'Q': {
		pattern(`^Queued the match to start in (.+)$`, func(m []string) (Response, bool) {
			sec, ok := ParseCountdown(m[1])
			return QueuedStart{Seconds: sec}, ok
		}),
	},
	'R': {
		literal("Removed the match password", PasswordRemoved{}),
		pattern(`^Removed (.+) from the match referees$`, func(m []string) (Response, bool) {
			return RemovedReferee{Name: m[1]}, true
		}),
		settingsLine(`^Room name: .*$`),
	},
	'S': {
		statsLine(`^Stats for \(.+\)\[.*\].*:$`),
		statsLine(`^Score: .*$`),
		settingsLine(`^Slot \d+\s+.+ https?://osu\.ppy\.sh/u/\d+ .*$`),
	},
	'T': {
		literal("The match has started!", MatchStarted{}),
		literal("The match has finished!", MatchFinished{}),
		literal("The match is already in progress", MatchAlreadyInProgress{}),
		literal("The match is not in progress", MatchNotInProgress{}),
		settingsLine(`^Team mode: .*$`),
	},
	'U': {
		literal("User not found", UserNotFound{}),
		literal("Unlocked the match", UnlockedMatch{}),
	},
}

// subjects начинаются с произвольного ника, поэтому по первому символу их не
// разложить, проверяются после корзин.
var subjects = []matcher{
	pattern(`^(.+) joined in slot (\d+)(?: for team (red|blue))?\.$`, func(m []string) (Response, bool) {
		return PlayerJoined{Name: m[1], Slot: atoi(m[2]), Team: parseTeam(m[3])}, true
	}),
	pattern(`^(.+) left the game\.$`, func(m []string) (Response, bool) {
		return PlayerLeft{Name: m[1]}, true
	}),
	pattern(`^(.+) became the host\.$`, func(m []string) (Response, bool) {
		return HostChanged{Name: m[1]}, true
	}),
	pattern(`^(.+) moved to slot (\d+)$`, func(m []string) (Response, bool) {
		return PlayerMovedSlot{Name: m[1], Slot: atoi(m[2])}, true
	}),
	pattern(`^(.+) finished playing \(Score: (\d+), (PASSED|FAILED)\)\.$`, func(m []string) (Response, bool) {
		score, err := strconv.ParseInt(m[2], 10, 64)
		if err != nil {
			return nil, false
		}
		return PlayerFinished{Name: m[1], Score: score, Passed: m[3] == "PASSED"}, true
	}),
	pattern(`^(.+) rolls (\d+) point\(s\)$`, func(m []string) (Response, bool) {
		return Rolled{Name: m[1], Points: atoi(m[2])}, true
	}),
	pattern(`^(.+) changed to (Red|Blue)$`, func(m []string) (Response, bool) {
		return PlayerChangedTeam{Name: m[1], Team: parseTeam(m[2])}, true
	}),
}

// Classify maps one BanchoBot line to its Response. It never fails: lines it
// does not recognise come back as Unhandled.
func Classify(line string) Response {
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return Unhandled{Line: line}
	}
	for _, m := range buckets[line[0]] {
		if r, ok := m(line); ok {
			return r
		}
	}
	for _, m := range subjects {
		if r, ok := m(line); ok {
			return r
		}
	}
	return Unhandled{Line: line}
}

var reCountdown = regexp.MustCompile(`^(?:(\d+) minutes?)?(?:(?: and )?(\d+) seconds?)?$`)

// ParseCountdown converts "1 minute and 30 seconds", "2 minutes" or
// "10 seconds" into a number of seconds.
func ParseCountdown(text string) (int, bool) {
	m := reCountdown.FindStringSubmatch(strings.TrimSpace(text))
	if m == nil || (m[1] == "" && m[2] == "") {
		return 0, false
	}
	total := 0
	if m[1] != "" {
		total += atoi(m[1]) * 60
	}
	if m[2] != "" {
		total += atoi(m[2])
	}
	return total, true
}

func parseTeam(s string) Team {
	switch strings.ToLower(s) {
	case "red":
		return TeamRed
	case "blue":
		return TeamBlue
	default:
		return TeamNone
	}
}

// atoi is only called on \d+ groups.
func atoi(s string) int {
	n, _ := strconv.Atoi(strings.ReplaceAll(s, ",", ""))
	return n
}
