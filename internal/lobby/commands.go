package lobby

import (
	"fmt"
	"time"

	"github.com/Meowhal/osu-ahr-sub001/internal/bancho"
	"github.com/Meowhal/osu-ahr-sub001/internal/deferred"
)

// ---------- outbound ----------

// SendMessage says text in the room channel and reports whether it went out.
func (l *Lobby) SendMessage(text string) bool {
	if l.channel == "" || (l.status != StatusEntered && l.status != StatusLeaving) {
		l.log.Debug().Str("text", text).Msg("drop message: not in room")
		return false
	}
	if err := l.tr.Say(l.channel, text); err != nil {
		l.log.Error().Err(err).Str("text", text).Msg("send message")
		return false
	}
	l.emit(SentMessage{Target: l.channel, Text: text})
	return true
}

// SendMessageWithCooldown sends only when tag was not used within cooldown.
// It reports whether the message went out; a dropped message leaves the
// cooldown untouched.
func (l *Lobby) SendMessageWithCooldown(text, tag string, cooldown time.Duration) bool {
	now := time.Now()
	if last, ok := l.cooldowns[tag]; ok && now.Sub(last) < cooldown {
		return false
	}
	if !l.SendMessage(text) {
		return false
	}
	l.cooldowns[tag] = now
	return true
}

// DeferMessage sends text after delay. Calls with the same tag coalesce: the
// latest text wins, the deadline moves only when resetDeadline is set. Empty
// text cancels.
func (l *Lobby) DeferMessage(text, tag string, delay time.Duration, resetDeadline bool) {
	if text == "" {
		l.CancelDeferredMessage(tag)
		return
	}
	a, ok := l.deferreds[tag]
	if !ok {
		a = deferred.New(func(text string) { l.SendMessage(text) }, deferred.WithDispatcher[string](l.dispatch))
		l.deferreds[tag] = a
	}
	a.Start(delay, text, resetDeadline)
}

func (l *Lobby) CancelDeferredMessage(tag string) {
	if a, ok := l.deferreds[tag]; ok {
		a.Cancel()
	}
}

// SendMultilineWithInterval sends lines[0] through the cooldown gate and, only
// if it went out, schedules the rest one interval apart. Reports whether the
// first line was sent.
func (l *Lobby) SendMultilineWithInterval(lines []string, interval time.Duration, tag string, cooldown time.Duration) bool {
	if len(lines) == 0 {
		return false
	}
	if !l.SendMessageWithCooldown(lines[0], tag, cooldown) {
		return false
	}
	for i, line := range lines[1:] {
		l.DeferMessage(line, fmt.Sprintf("%s#%d", tag, i+1), interval*time.Duration(i+1), true)
	}
	return true
}

// SendPluginMessage publishes a PluginMessage to every subscriber.
func (l *Lobby) SendPluginMessage(typ string, args ...string) {
	l.emit(PluginMessage{Type: typ, Args: args})
}

// AbortMatch sends "!mp abort". State changes when BanchoBot confirms.
func (l *Lobby) AbortMatch() error {
	if l.status != StatusEntered {
		return ErrBadStatus
	}
	l.SendMessage("!mp abort")
	return nil
}

// ---------- host transfer ----------

// TransferHost sends "!mp host" for id. The transfer is confirmed only by a
// host-changed line naming id; on timeout a settings dump decides.
func (l *Lobby) TransferHost(id PlayerID) error {
	if l.status != StatusEntered {
		return ErrBadStatus
	}
	p := l.roster.get(id)
	if p == nil || !l.IsMember(id) {
		return ErrNotMember
	}
	if l.host == id && l.hostPending == NoPlayer {
		return nil
	}
	if l.hostPending != NoPlayer && l.hostPending != id {
		l.resolveTransfer(ErrAnotherHost)
	}
	l.hostPending = id
	l.transferTimedOut = false
	l.transferTimer.Start(l.opts.HostTransferTimeout, id, true)
	l.SendMessage("!mp host " + p.CommandName())
	return nil
}

// TransferHostAsync is TransferHost with a result: nil, ErrAnotherHost,
// ErrTargetLeft, ErrTransferUnconfirmed or ErrRoomClosed.
func (l *Lobby) TransferHostAsync(id PlayerID) <-chan error {
	ch := make(chan error, 1)
	if err := l.TransferHost(id); err != nil {
		ch <- err
		return ch
	}
	if l.hostPending == NoPlayer {
		ch <- nil
		return ch
	}
	l.hostWaiters = append(l.hostWaiters, ch)
	return ch
}

func (l *Lobby) onTransferTimeout(target PlayerID) {
	if l.hostPending != target || l.status != StatusEntered {
		return
	}
	l.transferTimedOut = true
	l.log.Warn().Int("target", int(target)).Msg("host transfer not confirmed, resyncing")
	l.requestSettings()
}

func (l *Lobby) resolveTransfer(err error) {
	l.hostPending = NoPlayer
	l.transferTimedOut = false
	l.transferTimer.Cancel()
	for _, ch := range l.hostWaiters {
		ch <- err
	}
	l.hostWaiters = nil
}

// ---------- status ----------

type StatusResult struct {
	Player   PlayerID
	Snapshot *bancho.StatusSnapshot
	Err      error
}

type statusWaiter struct {
	id    PlayerID
	ch    chan StatusResult
	timer *deferred.Action[struct{}]
}

// RequestStatus sends "!stats <name>" either to BanchoBot directly or in the
// room channel. The result arrives with the next status block for the same
// normalized name; concurrent requests for one name share that block.
func (l *Lobby) RequestStatus(id PlayerID, private bool, timeout time.Duration) <-chan StatusResult {
	ch := make(chan StatusResult, 1)
	p := l.roster.get(id)
	switch {
	case l.status == StatusLeft:
		ch <- StatusResult{Player: id, Err: ErrRoomClosed}
		return ch
	case p == nil:
		ch <- StatusResult{Player: id, Err: ErrNotMember}
		return ch
	case !private && l.status != StatusEntered:
		ch <- StatusResult{Player: id, Err: ErrBadStatus}
		return ch
	}
	if timeout <= 0 {
		timeout = l.opts.StatusTimeout
	}

	cmd := "!stats " + p.CommandName()
	if private {
		if err := l.tr.Say(bancho.BotName, cmd); err != nil {
			ch <- StatusResult{Player: id, Err: err}
			return ch
		}
		l.emit(SentMessage{Target: bancho.BotName, Text: cmd})
	} else {
		l.SendMessage(cmd)
	}

	key := p.Key
	w := &statusWaiter{id: id, ch: ch}
	w.timer = deferred.New(func(struct{}) { l.expireStatus(key, w) }, deferred.WithDispatcher[struct{}](l.dispatch))
	l.statusWaiters[key] = append(l.statusWaiters[key], w)
	w.timer.Start(timeout, struct{}{}, true)
	return ch
}

func (l *Lobby) expireStatus(key string, w *statusWaiter) {
	ws := l.statusWaiters[key]
	for i, x := range ws {
		if x != w {
			continue
		}
		l.statusWaiters[key] = append(ws[:i:i], ws[i+1:]...)
		if len(l.statusWaiters[key]) == 0 {
			delete(l.statusWaiters, key)
		}
		w.ch <- StatusResult{Player: w.id, Err: ErrStatusTimeout}
		return
	}
}

// ---------- settings ----------

// LoadSettings asks for a dump and returns a channel receiving the applied
// snapshot. It yields nil if the room goes away or every attempt is lost.
// Concurrent calls share one request.
func (l *Lobby) LoadSettings() <-chan *bancho.RoomSnapshot {
	ch := make(chan *bancho.RoomSnapshot, 1)
	if l.status != StatusEntered {
		ch <- nil
		return ch
	}
	l.settingsWaiters = append(l.settingsWaiters, ch)
	l.requestSettings()
	return ch
}

// requestSettings sends "!mp settings" at most once per SettingsCooldown and
// not while an earlier dump is still expected. A request inside the cooldown
// is postponed to its end. Every send arms settingsExpiry.
func (l *Lobby) requestSettings() bool {
	if l.status != StatusEntered {
		return false
	}
	now := time.Now()
	if l.settingsPending && now.Sub(l.settingsRequested) < l.opts.SettingsTimeout {
		return false
	}
	if last, ok := l.cooldowns[settingsTag]; ok {
		if wait := l.opts.SettingsCooldown - now.Sub(last); wait > 0 {
			l.settingsRetry.Start(wait, struct{}{}, false)
			return false
		}
	}
	l.settingsRetry.Cancel()
	l.cooldowns[settingsTag] = now
	l.settingsPending = true
	l.settingsRequested = now
	l.settingsAttempts++
	l.settingsExpiry.Start(l.opts.SettingsTimeout, struct{}{}, true)
	l.SendMessage("!mp settings")
	return true
}

// onSettingsTimeout fires when no complete dump arrived in SettingsTimeout:
// the reply was lost or some of its lines were.
func (l *Lobby) onSettingsTimeout(struct{}) {
	if !l.settingsPending || l.status != StatusEntered {
		return
	}
	l.settingsPending = false
	if l.settingsAttempts < l.opts.SettingsAttempts {
		l.log.Debug().Int("attempt", l.settingsAttempts+1).Msg("settings dump lost, retrying")
		l.requestSettings()
		return
	}

	l.log.Warn().Int("attempts", l.settingsAttempts).Msg("settings dump lost, giving up")
	l.settingsAttempts = 0
	l.roomParser.Reset()
	if l.hostPending != NoPlayer && l.transferTimedOut {
		l.resolveTransfer(ErrTransferUnconfirmed)
	}
	l.resolveSettings(nil)
}

func (l *Lobby) resolveSettings(snap *bancho.RoomSnapshot) {
	for _, ch := range l.settingsWaiters {
		ch <- snap
	}
	l.settingsWaiters = nil
}
