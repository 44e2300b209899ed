package lobby

import (
	"strconv"
	"strings"
	"time"

	"github.com/Meowhal/osu-ahr-sub001/internal/bancho"
	"github.com/Meowhal/osu-ahr-sub001/internal/transport"
)

func (l *Lobby) onMessage(from, target, text string) {
	private := !transport.IsChannel(target)
	if !private {
		if target != l.channel {
			return
		}
		switch l.status {
		case StatusEntering, StatusEntered, StatusLeaving:
		default:
			return
		}
	}

	if from == bancho.BotName {
		l.handleBancho(text, private)
		return
	}
	if private || from == l.tr.Nick() {
		return
	}

	id := l.roster.getOrCreate(from)
	name := l.roster.get(id).Name
	l.emit(ChatMessage{Player: id, Name: name, Text: text})
	if cmd, param, ok := ParseCommand(text); ok {
		l.emit(ChatCommand{Player: id, Name: name, Command: cmd, Param: param})
	}
}

// ParseCommand splits "!cmd param" or "*cmd param". The command is lowercased.
func ParseCommand(text string) (command, param string, ok bool) {
	text = strings.TrimSpace(text)
	if len(text) < 2 || (text[0] != '!' && text[0] != '*') {
		return "", "", false
	}
	command, param, _ = strings.Cut(text, " ")
	return strings.ToLower(command), strings.TrimSpace(param), true
}

func (l *Lobby) handleBancho(line string, private bool) {
	r := bancho.Classify(line)

	switch r.(type) {
	case bancho.Settings:
		if l.roomParser.FeedLine(line) && !l.roomParser.Accumulating() && l.roomParser.Result() != nil {
			l.applySettings(l.roomParser.Result())
		}
	case bancho.Stats:
		if l.statParser.FeedLine(line) && !l.statParser.Accumulating() && l.statParser.Result() != nil {
			l.applyStatus(l.statParser.Result())
		}
	case bancho.Unhandled:
		// список рефери идёт только в канал комнаты
		if !private && time.Now().Before(l.refsUntil) {
			l.addReferee(strings.TrimSpace(line))
		} else {
			l.log.Debug().Str("line", line).Bool("private", private).Msg("unhandled bancho line")
		}
	default:
		l.apply(r, private)
	}

	l.emit(ResponseReceived{Response: r, Private: private})
}

// apply maps one classified line to its state mutation.
func (l *Lobby) apply(r bancho.Response, private bool) {
	switch v := r.(type) {
	case bancho.PlayerJoined:
		l.raiseJoined(v.Name, v.Slot, v.Team, r)
	case bancho.PlayerLeft:
		l.raiseLeft(v.Name, r)
	case bancho.HostChanged:
		l.raiseHostChanged(v.Name, r)
	case bancho.PlayerMovedSlot:
		l.raiseMoved(v.Name, v.Slot, r)
	case bancho.PlayerChangedTeam:
		l.raiseTeam(v.Name, v.Team, r)
	case bancho.PlayerFinished:
		l.raiseFinished(v, r)

	case bancho.MatchStarted:
		l.onMatchStarted()
	case bancho.MatchFinished:
		l.onMatchFinished()
	case bancho.AbortedMatch:
		l.onMatchAborted()
	case bancho.AllPlayersReady:
		l.emit(AllPlayersReady{})
	case bancho.MatchAlreadyInProgress:
		if !l.matching {
			l.matching = true
			l.unexpected("match is in progress", r)
		}
	case bancho.MatchNotInProgress:
		if l.matching {
			l.matching = false
			l.unexpected("match is not in progress", r)
		}

	case bancho.BeatmapChanged:
		l.beatmapID, l.beatmapTitle = v.BeatmapID, v.Title
	case bancho.BeatmapSet:
		l.beatmapID, l.beatmapTitle = v.BeatmapID, v.Title

	case bancho.QueuedStart, bancho.StartCountdown:
		l.startTimerActive = true
	case bancho.StartTimerFinished, bancho.AbortedStartTimer:
		l.startTimerActive = false

	case bancho.ClearedHost:
		l.clearHost(false)

	case bancho.AddedReferee:
		l.addReferee(v.Name)
	case bancho.RemovedReferee:
		if id, ok := l.roster.find(v.Name); ok {
			l.roster.get(id).Roles &^= RoleReferee
		}
	case bancho.ListRefs:
		l.refsUntil = time.Now().Add(l.opts.RefListWindow)

	case bancho.MatchClosed:
		if l.status == StatusEntered {
			l.status = StatusLeaving
		}
	case bancho.TournamentMatchCreated:
		l.onRoomCreated(v, private)

	case bancho.HostTransferred, bancho.KickedPlayer, bancho.MovedPlayer, bancho.Invited,
		bancho.BeatmapChanging, bancho.InvalidBeatmap, bancho.Rolled,
		bancho.TimerCountdown, bancho.TimerFinished,
		bancho.PasswordChanged, bancho.PasswordRemoved,
		bancho.SettingsChanged, bancho.MatchSizeChanged, bancho.ModsChanged,
		bancho.LockedMatch, bancho.UnlockedMatch, bancho.UserNotFound:
		// подтверждения команд; само изменение приходит отдельной строкой
	}
}

func (l *Lobby) onRoomCreated(v bancho.TournamentMatchCreated, private bool) {
	if !private || l.status != StatusMaking {
		return
	}
	l.setChannel("#mp_"+strconv.Itoa(v.MatchID), v.MatchID)
	l.roomName = v.Title
	l.log.Info().Int("room", v.MatchID).Msg("room created")
	if err := l.tr.Join(l.channel); err != nil {
		l.log.Error().Err(err).Msg("join created room")
	}
}

func (l *Lobby) addReferee(name string) {
	if name == "" {
		return
	}
	id := l.roster.getOrCreate(name)
	l.roster.get(id).Roles |= RoleReferee
}

// unexpected reports a rejected mutation and asks for a fresh dump.
func (l *Lobby) unexpected(reason string, r bancho.Response) {
	l.log.Warn().Str("reason", reason).Stringer("kind", r.Kind()).Msg("unexpected action")
	l.emit(UnexpectedAction{Reason: reason, Response: r})
	l.requestSettings()
}
