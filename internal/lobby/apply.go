package lobby

import (
	"sort"

	"github.com/Meowhal/osu-ahr-sub001/internal/bancho"
)

// ---------- single-line mutations ----------

func (l *Lobby) raiseJoined(name string, slot int, team bancho.Team, r bancho.Response) {
	id := l.roster.getOrCreate(name)
	switch {
	case l.IsMember(id):
		l.unexpected("joined twice: "+name, r)
		return
	case len(l.active) >= bancho.MaxSlots:
		l.unexpected("room is full", r)
		return
	case slot < 1 || slot > bancho.MaxSlots:
		l.unexpected("bad slot", r)
		return
	}
	l.addMember(id, slot, team, false)
}

func (l *Lobby) raiseLeft(name string, r bancho.Response) {
	id, ok := l.roster.find(name)
	if !ok || !l.IsMember(id) {
		l.unexpected("left without joining: "+name, r)
		return
	}
	l.removeMember(id, false)
}

func (l *Lobby) raiseHostChanged(name string, r bancho.Response) {
	id := l.roster.getOrCreate(name)
	if !l.IsMember(id) {
		l.unexpected("host is not a member: "+name, r)
		return
	}
	l.setHost(id, false)
}

func (l *Lobby) raiseMoved(name string, slot int, r bancho.Response) {
	id, ok := l.roster.find(name)
	if !ok || !l.IsMember(id) {
		l.unexpected("moved without joining: "+name, r)
		return
	}
	if slot < 1 || slot > bancho.MaxSlots {
		l.unexpected("bad slot", r)
		return
	}
	p := l.roster.get(id)
	from := p.Slot
	p.Slot = slot
	l.emit(PlayerMoved{Player: id, Name: p.Name, From: from, To: slot})
}

func (l *Lobby) raiseTeam(name string, team bancho.Team, r bancho.Response) {
	id, ok := l.roster.find(name)
	if !ok || !l.IsMember(id) {
		l.unexpected("changed team without joining: "+name, r)
		return
	}
	p := l.roster.get(id)
	p.Team = team
	l.emit(PlayerChangedTeam{Player: id, Name: p.Name, Team: team})
}

func (l *Lobby) raiseFinished(v bancho.PlayerFinished, r bancho.Response) {
	id, ok := l.roster.find(v.Name)
	if !ok || !l.IsMember(id) {
		l.unexpected("finished without joining: "+v.Name, r)
		return
	}
	p := l.roster.get(id)
	p.Status = MatchStatusFinished
	l.emit(PlayerFinished{Player: id, Name: p.Name, Score: v.Score, Passed: v.Passed})
}

func (l *Lobby) addMember(id PlayerID, slot int, team bancho.Team, fromSettings bool) {
	p := l.roster.get(id)
	l.active[id] = struct{}{}
	p.Roles |= RolePlayer
	p.Slot = slot
	p.Team = team
	p.Status = MatchStatusInLobby
	l.emit(PlayerJoined{Player: id, Name: p.Name, Slot: slot, Team: team, FromSettings: fromSettings})
}

func (l *Lobby) removeMember(id PlayerID, fromSettings bool) {
	p := l.roster.get(id)
	delete(l.active, id)
	p.Roles &^= RolePlayer | RoleHost
	p.Status = MatchStatusNone
	p.Slot = 0
	if l.host == id {
		l.host = NoPlayer
	}
	if l.hostPending == id {
		l.resolveTransfer(ErrTargetLeft)
	}
	l.emit(PlayerLeft{Player: id, Name: p.Name, FromSettings: fromSettings})
}

func (l *Lobby) setHost(id PlayerID, fromSettings bool) {
	if old := l.roster.get(l.host); old != nil {
		old.Roles &^= RoleHost
	}
	p := l.roster.get(id)
	p.Roles |= RoleHost
	l.host = id

	if l.hostPending != NoPlayer {
		if l.hostPending == id {
			l.resolveTransfer(nil)
		} else {
			l.resolveTransfer(ErrAnotherHost)
		}
	}
	l.emit(HostChanged{Player: id, Name: p.Name, FromSettings: fromSettings})
}

func (l *Lobby) clearHost(fromSettings bool) {
	if l.host == NoPlayer {
		return
	}
	if old := l.roster.get(l.host); old != nil {
		old.Roles &^= RoleHost
	}
	l.host = NoPlayer
	l.emit(HostChanged{Player: NoPlayer, FromSettings: fromSettings})
}

// ---------- match phase ----------

func (l *Lobby) onMatchStarted() {
	l.matching = true
	l.startTimerActive = false
	for id := range l.active {
		l.roster.get(id).Status = MatchStatusPlaying
	}
	l.emit(MatchStarted{BeatmapID: l.beatmapID, Title: l.beatmapTitle})
}

// onMatchFinished keeps Finished marks until the next start so that handlers
// can still count results.
func (l *Lobby) onMatchFinished() {
	l.matching = false
	for id := range l.active {
		if p := l.roster.get(id); p.Status == MatchStatusPlaying {
			p.Status = MatchStatusInLobby
		}
	}
	l.emit(MatchFinished{})
}

func (l *Lobby) onMatchAborted() {
	ev := MatchAborted{Finished: l.CountFinished(), Playing: l.CountPlaying()}
	l.matching = false
	for id := range l.active {
		l.roster.get(id).Status = MatchStatusInLobby
	}
	l.emit(ev)
}

// ---------- snapshots ----------

// applySettings reconciles membership and host with a complete dump. Afterwards
// the active set equals the dump's roster.
func (l *Lobby) applySettings(snap *bancho.RoomSnapshot) {
	l.settingsPending = false
	l.settingsAttempts = 0
	l.settingsRetry.Cancel()
	l.settingsExpiry.Cancel()
	l.emit(SettingsParsed{Snapshot: snap})

	l.roomName = snap.Name
	l.beatmapID, l.beatmapTitle = snap.BeatmapID, snap.BeatmapTitle

	inDump := make(map[PlayerID]bancho.SlotRecord, len(snap.Players))
	for _, rec := range snap.Players {
		inDump[l.roster.getOrCreate(rec.Name)] = rec
	}

	prevHost := l.host
	fixed := SettingsFixed{Snapshot: snap}
	for _, id := range l.activeIDs() {
		if _, ok := inDump[id]; !ok {
			l.removeMember(id, true)
			fixed.Left = append(fixed.Left, id)
		}
	}

	hostID := NoPlayer
	for _, rec := range snap.Players {
		id := l.roster.getOrCreate(rec.Name)
		p := l.roster.get(id)
		if rec.ID > 0 {
			p.ID = rec.ID
		}
		if rec.IsHost {
			hostID = id
		}
		if !l.IsMember(id) {
			l.addMember(id, rec.Slot, rec.Team, true)
			fixed.Joined = append(fixed.Joined, id)
			continue
		}
		p.Slot = rec.Slot
		p.Team = rec.Team
	}

	switch {
	case hostID != NoPlayer && hostID != l.host:
		l.setHost(hostID, true)
	case hostID == NoPlayer && l.host != NoPlayer:
		l.clearHost(true)
	}
	fixed.HostChanged = l.host != prevHost

	// передача, не подтверждённая вовремя, решается по снимку
	if l.hostPending != NoPlayer && l.transferTimedOut {
		if l.host == l.hostPending {
			l.resolveTransfer(nil)
		} else {
			l.resolveTransfer(ErrTransferUnconfirmed)
		}
	}

	l.log.Info().
		Int("players", len(l.active)).
		Int("joined", len(fixed.Joined)).
		Int("left", len(fixed.Left)).
		Bool("host_changed", fixed.HostChanged).
		Msg("settings applied")
	l.emit(fixed)
	l.resolveSettings(snap)
}

func (l *Lobby) applyStatus(snap *bancho.StatusSnapshot) {
	id := l.roster.getOrCreate(snap.Name)
	p := l.roster.get(id)
	p.Stat = snap
	if snap.ID > 0 {
		p.ID = snap.ID
	}

	key := NormalizeName(snap.Name)
	for _, w := range l.statusWaiters[key] {
		w.timer.Cancel()
		w.ch <- StatusResult{Player: id, Snapshot: snap}
	}
	delete(l.statusWaiters, key)

	l.emit(StatusParsed{Player: id, Snapshot: snap})
}

// activeIDs returns the active set ordered by slot, then by handle.
func (l *Lobby) activeIDs() []PlayerID {
	ids := make([]PlayerID, 0, len(l.active))
	for id := range l.active {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		a, b := l.roster.get(ids[i]), l.roster.get(ids[j])
		if a.Slot != b.Slot {
			return a.Slot < b.Slot
		}
		return a.Handle < b.Handle
	})
	return ids
}
