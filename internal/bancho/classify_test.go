package bancho

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		line string
		want Response
	}{
		{"p1 joined in slot 1.", PlayerJoined{Name: "p1", Slot: 1, Team: TeamNone}},
		{"p1 joined in slot 4 for team blue.", PlayerJoined{Name: "p1", Slot: 4, Team: TeamBlue}},
		{"a b c joined in slot 16 for team red.", PlayerJoined{Name: "a b c", Slot: 16, Team: TeamRed}},
		{"p1 became the host.", HostChanged{Name: "p1"}},
		{"p1 left the game.", PlayerLeft{Name: "p1"}},
		{"p1 moved to slot 3", PlayerMovedSlot{Name: "p1", Slot: 3}},
		{"p1 changed to Blue", PlayerChangedTeam{Name: "p1", Team: TeamBlue}},
		{"p1 finished playing (Score: 861492, PASSED).", PlayerFinished{Name: "p1", Score: 861492, Passed: true}},
		{"p 2 finished playing (Score: 0, FAILED).", PlayerFinished{Name: "p 2", Score: 0, Passed: false}},
		{"p1 rolls 42 point(s)", Rolled{Name: "p1", Points: 42}},

		{"The match has started!", MatchStarted{}},
		{"The match has finished!", MatchFinished{}},
		{"Aborted the match", AbortedMatch{}},
		{"All players are ready", AllPlayersReady{}},
		{"Host is changing map...", BeatmapChanging{}},
		{"Beatmap changed to: Silent Siren - Hachigatsu no Yoru [August] (https://osu.ppy.sh/b/853167)",
			BeatmapChanged{BeatmapID: 853167, Title: "Silent Siren - Hachigatsu no Yoru [August]"}},
		{"Changed beatmap to https://osu.ppy.sh/b/75 Kenji Ninuma - DISCOPRINCE", BeatmapSet{BeatmapID: 75, Title: "Kenji Ninuma - DISCOPRINCE"}},
		{"Invalid map ID provided", InvalidBeatmap{}},
		{"Cleared match host", ClearedHost{}},
		{"Changed match host to p1", HostTransferred{Name: "p1"}},

		{"Queued the match to start in 30 seconds", QueuedStart{Seconds: 30}},
		{"Match starts in 1 minute and 30 seconds", StartCountdown{Seconds: 90}},
		{"Match starts in 10 seconds", StartCountdown{Seconds: 10}},
		{"Good luck, have fun!", StartTimerFinished{}},
		{"Countdown aborted", AbortedStartTimer{}},
		{"Countdown ends in 2 minutes", TimerCountdown{Seconds: 120}},
		{"Countdown finished", TimerFinished{}},

		{"Changed the match password", PasswordChanged{}},
		{"Removed the match password", PasswordRemoved{}},
		{"Changed match settings to 16 slots, HeadToHead, Score", SettingsChanged{Size: 16, TeamMode: "HeadToHead", WinCondition: "Score"}},
		{"Changed match settings to 8 slots", SettingsChanged{Size: 8}},
		{"Changed match to size 12", MatchSizeChanged{Size: 12}},
		{"Enabled Hidden, HardRock, disabled FreeMod", ModsChanged{Mods: "Hidden, HardRock", FreeMod: false}},
		{"Disabled all mods, enabled FreeMod", ModsChanged{FreeMod: true}},
		{"Enabled FreeMod", ModsChanged{FreeMod: true}},

		{"Added p1 to the match referees", AddedReferee{Name: "p1"}},
		{"Removed p1 from the match referees", RemovedReferee{Name: "p1"}},
		{"Match referees:", ListRefs{}},
		{"Kicked p1 from the match.", KickedPlayer{Name: "p1"}},
		{"Moved p1 into slot 5", MovedPlayer{Name: "p1", Slot: 5}},
		{"Invited p1 to the room", Invited{Name: "p1"}},
		{"Closed the match", MatchClosed{}},
		{"Created the tournament match https://osu.ppy.sh/mp/52612489 4-5* | Auto Host Rotate",
			TournamentMatchCreated{MatchID: 52612489, Title: "4-5* | Auto Host Rotate"}},
		{"Locked the match", LockedMatch{}},
		{"Unlocked the match", UnlockedMatch{}},
		{"The match is already in progress", MatchAlreadyInProgress{}},
		{"The match is not in progress", MatchNotInProgress{}},
		{"User not found", UserNotFound{}},

		{"Room name: 4-5* | Auto Host Rotate, History: https://osu.ppy.sh/mp/53084403",
			Settings{Line: "Room name: 4-5* | Auto Host Rotate, History: https://osu.ppy.sh/mp/53084403"}},
		{"Players: 5", Settings{Line: "Players: 5"}},
		{"Slot 1  Not Ready https://osu.ppy.sh/u/8286882 gviz            [Host]",
			Settings{Line: "Slot 1  Not Ready https://osu.ppy.sh/u/8286882 gviz            [Host]"}},
		{"Stats for (gviz)[https://osu.ppy.sh/u/8286882] is Multiplayer:",
			Stats{Line: "Stats for (gviz)[https://osu.ppy.sh/u/8286882] is Multiplayer:"}},
		{"Accuracy: 97.53%", Stats{Line: "Accuracy: 97.53%"}},

		{"hello world", Unhandled{Line: "hello world"}},
		{"", Unhandled{Line: ""}},
		{"Countdown ends in soon", Unhandled{Line: "Countdown ends in soon"}},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.line))
		})
	}
}

// Ники, совпадающие с началом служебных фраз, не должны ломать разбор.
func TestClassify_SubjectNamesThatLookLikeBuckets(t *testing.T) {
	assert.Equal(t, PlayerJoined{Name: "Beatmap", Slot: 2}, Classify("Beatmap joined in slot 2."))
	assert.Equal(t, HostChanged{Name: "The match"}, Classify("The match became the host."))
	assert.Equal(t, PlayerLeft{Name: "Aborted"}, Classify("Aborted left the game."))
}

func TestClassify_KindString(t *testing.T) {
	assert.Equal(t, "PlayerJoined", Classify("p1 joined in slot 1.").Kind().String())
	assert.Equal(t, "Unhandled", Classify("???").Kind().String())
	assert.Equal(t, "Unknown", Kind(999).String())
}

func TestParseCountdown(t *testing.T) {
	tests := []struct {
		text string
		want int
		ok   bool
	}{
		{"30 seconds", 30, true},
		{"1 second", 1, true},
		{"1 minute", 60, true},
		{"2 minutes and 5 seconds", 125, true},
		{"", 0, false},
		{"a while", 0, false},
	}
	for _, tt := range tests {
		got, ok := ParseCountdown(tt.text)
		assert.Equal(t, tt.ok, ok, tt.text)
		assert.Equal(t, tt.want, got, tt.text)
	}
}
