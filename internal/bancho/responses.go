package bancho

// Kind identifies a Response variant.
type Kind int

const (
	KindUnhandled Kind = iota
	KindHostChanged
	KindUserNotFound
	KindMatchFinished
	KindAbortedMatch
	KindMatchStarted
	KindPlayerFinished
	KindPlayerJoined
	KindPlayerMovedSlot
	KindPlayerChangedTeam
	KindPlayerLeft
	KindBeatmapChanged
	KindBeatmapChanging
	KindClearedHost
	KindSettings
	KindStats
	KindAllPlayersReady
	KindQueuedStart
	KindStartCountdown
	KindStartTimerFinished
	KindAbortedStartTimer
	KindTimerCountdown
	KindTimerFinished
	KindPasswordChanged
	KindPasswordRemoved
	KindSettingsChanged
	KindMatchSizeChanged
	KindAddedReferee
	KindRemovedReferee
	KindListRefs
	KindRolled
	KindKickedPlayer
	KindMovedPlayer
	KindHostTransferred
	KindMatchClosed
	KindTournamentMatchCreated
	KindInvited
	KindModsChanged
	KindBeatmapSet
	KindMatchAlreadyInProgress
	KindMatchNotInProgress
	KindLockedMatch
	KindUnlockedMatch
	KindInvalidBeatmap
)

var kindNames = [...]string{
	KindUnhandled:              "Unhandled",
	KindHostChanged:            "HostChanged",
	KindUserNotFound:           "UserNotFound",
	KindMatchFinished:          "MatchFinished",
	KindAbortedMatch:           "AbortedMatch",
	KindMatchStarted:           "MatchStarted",
	KindPlayerFinished:         "PlayerFinished",
	KindPlayerJoined:           "PlayerJoined",
	KindPlayerMovedSlot:        "PlayerMovedSlot",
	KindPlayerChangedTeam:      "PlayerChangedTeam",
	KindPlayerLeft:             "PlayerLeft",
	KindBeatmapChanged:         "BeatmapChanged",
	KindBeatmapChanging:        "BeatmapChanging",
	KindClearedHost:            "ClearedHost",
	KindSettings:               "Settings",
	KindStats:                  "Stats",
	KindAllPlayersReady:        "AllPlayersReady",
	KindQueuedStart:            "QueuedStart",
	KindStartCountdown:         "StartCountdown",
	KindStartTimerFinished:     "StartTimerFinished",
	KindAbortedStartTimer:      "AbortedStartTimer",
	KindTimerCountdown:         "TimerCountdown",
	KindTimerFinished:          "TimerFinished",
	KindPasswordChanged:        "PasswordChanged",
	KindPasswordRemoved:        "PasswordRemoved",
	KindSettingsChanged:        "SettingsChanged",
	KindMatchSizeChanged:       "MatchSizeChanged",
	KindAddedReferee:           "AddedReferee",
	KindRemovedReferee:         "RemovedReferee",
	KindListRefs:               "ListRefs",
	KindRolled:                 "Rolled",
	KindKickedPlayer:           "KickedPlayer",
	KindMovedPlayer:            "MovedPlayer",
	KindHostTransferred:        "HostTransferred",
	KindMatchClosed:            "MatchClosed",
	KindTournamentMatchCreated: "TournamentMatchCreated",
	KindInvited:                "Invited",
	KindModsChanged:            "ModsChanged",
	KindBeatmapSet:             "BeatmapSet",
	KindMatchAlreadyInProgress: "MatchAlreadyInProgress",
	KindMatchNotInProgress:     "MatchNotInProgress",
	KindLockedMatch:            "LockedMatch",
	KindUnlockedMatch:          "UnlockedMatch",
	KindInvalidBeatmap:         "InvalidBeatmap",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "Unknown"
	}
	return kindNames[k]
}

// Response is one classified BanchoBot line. The set of implementations is
// closed: every variant lives in this file.
type Response interface {
	Kind() Kind
	isResponse()
}

type Team int

const (
	TeamNone Team = iota
	TeamRed
	TeamBlue
)

func (t Team) String() string {
	switch t {
	case TeamRed:
		return "Red"
	case TeamBlue:
		return "Blue"
	default:
		return "None"
	}
}

// ---------- player subject lines ----------

type PlayerJoined struct {
	Name string
	Slot int
	Team Team
}

type PlayerLeft struct{ Name string }

type HostChanged struct{ Name string }

type PlayerMovedSlot struct {
	Name string
	Slot int
}

type PlayerChangedTeam struct {
	Name string
	Team Team
}

type PlayerFinished struct {
	Name   string
	Score  int64
	Passed bool
}

type Rolled struct {
	Name   string
	Points int
}

// ---------- match flow ----------

type MatchStarted struct{}
type MatchFinished struct{}
type AbortedMatch struct{}
type AllPlayersReady struct{}

type BeatmapChanged struct {
	BeatmapID int
	Title     string
}

type BeatmapChanging struct{}

// BeatmapSet is the reply to a referee-issued map change.
type BeatmapSet struct {
	BeatmapID int
	Title     string
}

type InvalidBeatmap struct{}

// QueuedStart is the reply to "!mp start N".
type QueuedStart struct{ Seconds int }

// StartCountdown is a periodic "Match starts in ..." notice.
type StartCountdown struct{ Seconds int }

type StartTimerFinished struct{}
type AbortedStartTimer struct{}

type TimerCountdown struct{ Seconds int }
type TimerFinished struct{}

type MatchAlreadyInProgress struct{}
type MatchNotInProgress struct{}

// ---------- referee replies ----------

type ClearedHost struct{}

// HostTransferred is the reply to "!mp host"; the HostChanged line follows it.
type HostTransferred struct{ Name string }

type PasswordChanged struct{}
type PasswordRemoved struct{}

type SettingsChanged struct {
	Size         int
	TeamMode     string
	WinCondition string
}

type MatchSizeChanged struct{ Size int }

type ModsChanged struct {
	Mods    string
	FreeMod bool
}

type AddedReferee struct{ Name string }
type RemovedReferee struct{ Name string }

// ListRefs opens a referee listing; the names follow as unmarked lines.
type ListRefs struct{}

type KickedPlayer struct{ Name string }

type MovedPlayer struct {
	Name string
	Slot int
}

type Invited struct{ Name string }

type MatchClosed struct{}

type TournamentMatchCreated struct {
	MatchID int
	Title   string
}

type LockedMatch struct{}
type UnlockedMatch struct{}

type UserNotFound struct{}

// ---------- snapshot lines ----------

// Settings is any line of a "!mp settings" dump.
type Settings struct{ Line string }

// Stats is any line of a "!stats" block.
type Stats struct{ Line string }

type Unhandled struct{ Line string }

func (PlayerJoined) Kind() Kind           { return KindPlayerJoined }
func (PlayerLeft) Kind() Kind             { return KindPlayerLeft }
func (HostChanged) Kind() Kind            { return KindHostChanged }
func (PlayerMovedSlot) Kind() Kind        { return KindPlayerMovedSlot }
func (PlayerChangedTeam) Kind() Kind      { return KindPlayerChangedTeam }
func (PlayerFinished) Kind() Kind         { return KindPlayerFinished }
func (Rolled) Kind() Kind                 { return KindRolled }
func (MatchStarted) Kind() Kind           { return KindMatchStarted }
func (MatchFinished) Kind() Kind          { return KindMatchFinished }
func (AbortedMatch) Kind() Kind           { return KindAbortedMatch }
func (AllPlayersReady) Kind() Kind        { return KindAllPlayersReady }
func (BeatmapChanged) Kind() Kind         { return KindBeatmapChanged }
func (BeatmapChanging) Kind() Kind        { return KindBeatmapChanging }
func (BeatmapSet) Kind() Kind             { return KindBeatmapSet }
func (InvalidBeatmap) Kind() Kind         { return KindInvalidBeatmap }
func (QueuedStart) Kind() Kind            { return KindQueuedStart }
func (StartCountdown) Kind() Kind         { return KindStartCountdown }
func (StartTimerFinished) Kind() Kind     { return KindStartTimerFinished }
func (AbortedStartTimer) Kind() Kind      { return KindAbortedStartTimer }
func (TimerCountdown) Kind() Kind         { return KindTimerCountdown }
func (TimerFinished) Kind() Kind          { return KindTimerFinished }
func (MatchAlreadyInProgress) Kind() Kind { return KindMatchAlreadyInProgress }
func (MatchNotInProgress) Kind() Kind     { return KindMatchNotInProgress }
func (ClearedHost) Kind() Kind            { return KindClearedHost }
func (HostTransferred) Kind() Kind        { return KindHostTransferred }
func (PasswordChanged) Kind() Kind        { return KindPasswordChanged }
func (PasswordRemoved) Kind() Kind        { return KindPasswordRemoved }
func (SettingsChanged) Kind() Kind        { return KindSettingsChanged }
func (MatchSizeChanged) Kind() Kind       { return KindMatchSizeChanged }
func (ModsChanged) Kind() Kind            { return KindModsChanged }
func (AddedReferee) Kind() Kind           { return KindAddedReferee }
func (RemovedReferee) Kind() Kind         { return KindRemovedReferee }
func (ListRefs) Kind() Kind               { return KindListRefs }
func (KickedPlayer) Kind() Kind           { return KindKickedPlayer }
func (MovedPlayer) Kind() Kind            { return KindMovedPlayer }
func (Invited) Kind() Kind                { return KindInvited }
func (MatchClosed) Kind() Kind            { return KindMatchClosed }
func (TournamentMatchCreated) Kind() Kind { return KindTournamentMatchCreated }
func (LockedMatch) Kind() Kind            { return KindLockedMatch }
func (UnlockedMatch) Kind() Kind          { return KindUnlockedMatch }
func (UserNotFound) Kind() Kind           { return KindUserNotFound }
func (Settings) Kind() Kind               { return KindSettings }
func (Stats) Kind() Kind                  { return KindStats }
func (Unhandled) Kind() Kind              { return KindUnhandled }

func (PlayerJoined) isResponse()           {}
func (PlayerLeft) isResponse()             {}
func (HostChanged) isResponse()            {}
func (PlayerMovedSlot) isResponse()        {}
func (PlayerChangedTeam) isResponse()      {}
func (PlayerFinished) isResponse()         {}
func (Rolled) isResponse()                 {}
func (MatchStarted) isResponse()           {}
func (MatchFinished) isResponse()          {}
func (AbortedMatch) isResponse()           {}
func (AllPlayersReady) isResponse()        {}
func (BeatmapChanged) isResponse()         {}
func (BeatmapChanging) isResponse()        {}
func (BeatmapSet) isResponse()             {}
func (InvalidBeatmap) isResponse()         {}
func (QueuedStart) isResponse()            {}
func (StartCountdown) isResponse()         {}
func (StartTimerFinished) isResponse()     {}
func (AbortedStartTimer) isResponse()      {}
func (TimerCountdown) isResponse()         {}
func (TimerFinished) isResponse()          {}
func (MatchAlreadyInProgress) isResponse() {}
func (MatchNotInProgress) isResponse()     {}
func (ClearedHost) isResponse()            {}
func (HostTransferred) isResponse()        {}
func (PasswordChanged) isResponse()        {}
func (PasswordRemoved) isResponse()        {}
func (SettingsChanged) isResponse()        {}
func (MatchSizeChanged) isResponse()       {}
func (ModsChanged) isResponse()            {}
func (AddedReferee) isResponse()           {}
func (RemovedReferee) isResponse()         {}
func (ListRefs) isResponse()               {}
func (KickedPlayer) isResponse()           {}
func (MovedPlayer) isResponse()            {}
func (Invited) isResponse()                {}
func (MatchClosed) isResponse()            {}
func (TournamentMatchCreated) isResponse() {}
func (LockedMatch) isResponse()            {}
func (UnlockedMatch) isResponse()          {}
func (UserNotFound) isResponse()           {}
func (Settings) isResponse()               {}
func (Stats) isResponse()                  {}
func (Unhandled) isResponse()              {}
