package lobby

import (
	"strings"

	"golang.org/x/text/cases"

	"github.com/Meowhal/osu-ahr-sub001/internal/bancho"
)

// PlayerID is a stable handle into the room's identity arena.
type PlayerID int

// NoPlayer is the zero handle: no host, no pending transfer.
const NoPlayer PlayerID = -1

type Role uint8

const (
	RolePlayer Role = 1 << iota
	RoleHost
	RoleAuthorized
	RoleReferee
	RoleCreator
)

func (r Role) Has(o Role) bool { return r&o == o }

func (r Role) String() string {
	if r == 0 {
		return "None"
	}
	var parts []string
	for _, x := range []struct {
		role Role
		name string
	}{
		{RolePlayer, "Player"},
		{RoleHost, "Host"},
		{RoleAuthorized, "Authorized"},
		{RoleReferee, "Referee"},
		{RoleCreator, "Creator"},
	} {
		if r.Has(x.role) {
			parts = append(parts, x.name)
		}
	}
	return strings.Join(parts, "|")
}

// MatchStatus is a member's phase in the current match.
type MatchStatus int

const (
	MatchStatusNone MatchStatus = iota
	MatchStatusInLobby
	MatchStatusPlaying
	MatchStatusFinished
)

func (s MatchStatus) String() string {
	switch s {
	case MatchStatusInLobby:
		return "InLobby"
	case MatchStatusPlaying:
		return "Playing"
	case MatchStatusFinished:
		return "Finished"
	default:
		return "None"
	}
}

// Player is a value copy of an identity. Collaborators keep the Handle and
// re-read through Lobby.Player.
type Player struct {
	Handle  PlayerID
	Name    string
	Key     string
	ID      int
	Roles   Role
	Slot    int
	Team    bancho.Team
	Status  MatchStatus
	Stat    *bancho.StatusSnapshot
	Profile any
}

func (p Player) IsHost() bool { return p.Roles.Has(RoleHost) }

// CommandName is how the player is addressed in "!mp" commands.
func (p Player) CommandName() string {
	return strings.ReplaceAll(p.Name, " ", "_")
}

// NormalizeName case-folds and replaces spaces with underscores: "Foo Bar"
// and "foo_bar" are the same account.
func NormalizeName(name string) string {
	// cases.Caser хранит состояние, поэтому новый на каждый вызов
	folded := cases.Fold().String(strings.TrimSpace(name))
	return strings.ReplaceAll(folded, " ", "_")
}

// roster is the identity arena. Entries are never removed.
type roster struct {
	players []*Player
	byKey   map[string]PlayerID
}

func newRoster() *roster {
	return &roster{byKey: make(map[string]PlayerID)}
}

func (r *roster) getOrCreate(name string) PlayerID {
	key := NormalizeName(name)
	if id, ok := r.byKey[key]; ok {
		return id
	}
	id := PlayerID(len(r.players))
	r.players = append(r.players, &Player{
		Handle: id,
		Name:   strings.TrimSpace(name),
		Key:    key,
	})
	r.byKey[key] = id
	return id
}

func (r *roster) find(name string) (PlayerID, bool) {
	id, ok := r.byKey[NormalizeName(name)]
	return id, ok
}

func (r *roster) get(id PlayerID) *Player {
	if id < 0 || int(id) >= len(r.players) {
		return nil
	}
	return r.players[id]
}

func (r *roster) len() int { return len(r.players) }
