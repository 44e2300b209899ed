package feed

import (
	"fmt"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/Meowhal/osu-ahr-sub001/internal/lobby"
)

// Frame converts a room event to the wire form observers receive. Events that
// observers don't care about return (nil, nil).
func Frame(channel string, ev lobby.Event) (*structpb.Struct, error) {
	typ, fields := describe(ev)
	if typ == "" {
		return nil, nil
	}
	m := map[string]any{"type": typ, "channel": channel}
	for k, v := range fields {
		m[k] = v
	}
	s, err := structpb.NewStruct(m)
	if err != nil {
		return nil, fmt.Errorf("feed: frame %s: %w", typ, err)
	}
	return s, nil
}

func describe(ev lobby.Event) (string, map[string]any) {
	switch e := ev.(type) {
	case lobby.JoinedRoom:
		return "JoinedRoom", map[string]any{"room_id": e.RoomID, "created": e.Created}
	case lobby.PlayerJoined:
		return "PlayerJoined", map[string]any{
			"player": e.Name, "slot": e.Slot, "team": e.Team.String(), "from_settings": e.FromSettings,
		}
	case lobby.PlayerLeft:
		return "PlayerLeft", map[string]any{"player": e.Name, "from_settings": e.FromSettings}
	case lobby.PlayerMoved:
		return "PlayerMoved", map[string]any{"player": e.Name, "from": e.From, "to": e.To}
	case lobby.PlayerChangedTeam:
		return "PlayerChangedTeam", map[string]any{"player": e.Name, "team": e.Team.String()}
	case lobby.HostChanged:
		return "HostChanged", map[string]any{"player": e.Name, "from_settings": e.FromSettings}
	case lobby.MatchStarted:
		return "MatchStarted", map[string]any{"beatmap_id": e.BeatmapID, "title": e.Title}
	case lobby.PlayerFinished:
		return "PlayerFinished", map[string]any{"player": e.Name, "score": e.Score, "passed": e.Passed}
	case lobby.MatchFinished:
		return "MatchFinished", nil
	case lobby.MatchAborted:
		return "MatchAborted", map[string]any{"finished": e.Finished, "playing": e.Playing}
	case lobby.AllPlayersReady:
		return "AllPlayersReady", nil
	case lobby.ChatMessage:
		return "ChatMessage", map[string]any{"player": e.Name, "text": e.Text}
	case lobby.SettingsFixed:
		return "SettingsFixed", map[string]any{
			"players":      len(e.Snapshot.Players),
			"joined":       len(e.Joined),
			"left":         len(e.Left),
			"host_changed": e.HostChanged,
		}
	case lobby.StatusParsed:
		return "StatusParsed", map[string]any{
			"player": e.Snapshot.Name, "status": e.Snapshot.Status.String(), "rank": e.Snapshot.Rank,
		}
	case lobby.PluginMessage:
		args := make([]any, len(e.Args))
		for i, a := range e.Args {
			args[i] = a
		}
		return "PluginMessage", map[string]any{"plugin_type": e.Type, "args": args}
	case lobby.UnexpectedAction:
		return "UnexpectedAction", map[string]any{"reason": e.Reason, "kind": e.Response.Kind().String()}
	case lobby.SentMessage:
		return "SentMessage", map[string]any{"target": e.Target, "text": e.Text}
	case lobby.LeftChannel:
		return "LeftChannel", map[string]any{"reason": e.Reason}
	}
	// ChatCommand, ResponseReceived, SettingsParsed: дублируют другие кадры
	return "", nil
}
