package lobby

import "github.com/Meowhal/osu-ahr-sub001/internal/bancho"

// Event is a domain event emitted by the room after the mutation that caused
// it has been applied. Handlers run on the room goroutine.
type Event interface{ isEvent() }

type JoinedRoom struct {
	Channel string
	RoomID  int
	Created bool
}

type PlayerJoined struct {
	Player       PlayerID
	Name         string
	Slot         int
	Team         bancho.Team
	FromSettings bool
}

type PlayerLeft struct {
	Player       PlayerID
	Name         string
	FromSettings bool
}

type PlayerMoved struct {
	Player PlayerID
	Name   string
	From   int
	To     int
}

type PlayerChangedTeam struct {
	Player PlayerID
	Name   string
	Team   bancho.Team
}

// HostChanged with Player == NoPlayer means the host was cleared.
type HostChanged struct {
	Player       PlayerID
	Name         string
	FromSettings bool
}

type MatchStarted struct {
	BeatmapID int
	Title     string
}

type PlayerFinished struct {
	Player PlayerID
	Name   string
	Score  int64
	Passed bool
}

type MatchFinished struct{}

type MatchAborted struct {
	Finished int
	Playing  int
}

type AllPlayersReady struct{}

type ChatMessage struct {
	Player PlayerID
	Name   string
	Text   string
}

type ChatCommand struct {
	Player  PlayerID
	Name    string
	Command string
	Param   string
}

// ResponseReceived carries every classified BanchoBot line, Unhandled included.
type ResponseReceived struct {
	Response bancho.Response
	Private  bool
}

type SettingsParsed struct {
	Snapshot *bancho.RoomSnapshot
}

// SettingsFixed is emitted once per applied dump, after the per-player events.
type SettingsFixed struct {
	Snapshot    *bancho.RoomSnapshot
	Joined      []PlayerID
	Left        []PlayerID
	HostChanged bool
}

type StatusParsed struct {
	Player   PlayerID
	Snapshot *bancho.StatusSnapshot
}

// PluginMessage is the cross-plugin bus: collaborators signal each other
// through the room without referencing one another.
type PluginMessage struct {
	Type string
	Args []string
}

type UnexpectedAction struct {
	Reason   string
	Response bancho.Response
}

type SentMessage struct {
	Target string
	Text   string
}

type LeftChannel struct {
	Channel string
	Reason  string
}

func (JoinedRoom) isEvent()        {}
func (PlayerJoined) isEvent()      {}
func (PlayerLeft) isEvent()        {}
func (PlayerMoved) isEvent()       {}
func (PlayerChangedTeam) isEvent() {}
func (HostChanged) isEvent()       {}
func (MatchStarted) isEvent()      {}
func (PlayerFinished) isEvent()    {}
func (MatchFinished) isEvent()     {}
func (MatchAborted) isEvent()      {}
func (AllPlayersReady) isEvent()   {}
func (ChatMessage) isEvent()       {}
func (ChatCommand) isEvent()       {}
func (ResponseReceived) isEvent()  {}
func (SettingsParsed) isEvent()    {}
func (SettingsFixed) isEvent()     {}
func (StatusParsed) isEvent()      {}
func (PluginMessage) isEvent()     {}
func (UnexpectedAction) isEvent()  {}
func (SentMessage) isEvent()       {}
func (LeftChannel) isEvent()       {}
