package bot

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/Meowhal/osu-ahr-sub001/internal/lobby"
)

var errNotAuthorized = errors.New("not authorized")

// сплит с поддержкой кавычек: *host "some player"
var reArg = regexp.MustCompile(`"([^"]*)"|(\S+)`)

const (
	helpTag      = "help"
	helpCooldown = 10 * time.Second
	infoCooldown = 5 * time.Second
)

// HandleCommand runs on the room goroutine. Anything that waits for BanchoBot
// finishes in its own goroutine and reports back through Post.
func (bot *RoomBot) HandleCommand(c lobby.ChatCommand) error {
	lb := bot.lb
	args := splitArgs(c.Param)

	if strings.HasPrefix(c.Command, "*") {
		p, _ := lb.Player(c.Player)
		if !p.Roles.Has(lobby.RoleAuthorized) {
			return errNotAuthorized
		}
	}

	switch c.Command {

	case "!help":
		lb.SendMultilineWithInterval([]string{
			"!help | !info | !stats [name]",
			"owners: *host <name> | *resync | *abort | *say <text>",
		}, time.Second, helpTag, helpCooldown)
		return nil

	case "!info":
		lb.SendMessageWithCooldown(bot.roomInfo(), "info", infoCooldown)
		return nil

	case "!stats":
		target := c.Player
		if len(args) > 0 {
			target = lb.GetOrCreate(args[0])
		}
		bot.replyStatus(target)
		return nil

	// ---------- owners ----------
	case "*host":
		if len(args) == 0 {
			return fmt.Errorf("usage: *host <name>")
		}
		id, ok := lb.Find(args[0])
		if !ok || !lb.IsMember(id) {
			return fmt.Errorf("%s is not in the room", args[0])
		}
		bot.replyTransfer(id)
		return nil

	case "*resync":
		ch := lb.LoadSettings()
		bot.wg.Add(1)
		go func() {
			defer bot.wg.Done()
			if snap := <-ch; snap != nil {
				lb.Post(func() {
					lb.SendMessage(fmt.Sprintf("resynced: %d players", len(snap.Players)))
				})
			}
		}()
		return nil

	case "*abort":
		return lb.AbortMatch()

	case "*say":
		if c.Param == "" {
			return fmt.Errorf("usage: *say <text>")
		}
		lb.SendMessage(c.Param)
		return nil

	default:
		// чужие команды (!queue, !skip ...) обрабатывают плагины
		if strings.HasPrefix(c.Command, "*") {
			return fmt.Errorf("unknown command. try !help")
		}
		return nil
	}
}

func (bot *RoomBot) roomInfo() string {
	lb := bot.lb
	host := "none"
	if p, ok := lb.Player(lb.Host()); ok {
		host = p.Name
	}
	phase := "idle"
	if lb.Matching() {
		phase = fmt.Sprintf("playing %d, finished %d", lb.CountPlaying(), lb.CountFinished())
	}
	return fmt.Sprintf("%s: %d players, host %s, %s", lb.RoomName(), lb.PlayerCount(), host, phase)
}

func (bot *RoomBot) replyStatus(id lobby.PlayerID) {
	lb := bot.lb
	ch := lb.RequestStatus(id, true, 0)
	bot.wg.Add(1)
	go func() {
		defer bot.wg.Done()
		res := <-ch
		lb.Post(func() {
			if res.Err != nil {
				p, _ := lb.Player(id)
				lb.SendMessage(fmt.Sprintf("stats for %s: %v", p.Name, res.Err))
				return
			}
			s := res.Snapshot
			lb.SendMessage(fmt.Sprintf("%s is %s, #%d, lv%d, %.2f%%", s.Name, s.Status, s.Rank, s.Level, s.Accuracy))
		})
	}()
}

func (bot *RoomBot) replyTransfer(id lobby.PlayerID) {
	lb := bot.lb
	ch := lb.TransferHostAsync(id)
	bot.wg.Add(1)
	go func() {
		defer bot.wg.Done()
		err := <-ch
		if err == nil || errors.Is(err, lobby.ErrRoomClosed) {
			return
		}
		lb.Post(func() {
			p, _ := lb.Player(id)
			lb.SendMessage(fmt.Sprintf("host transfer to %s failed: %v", p.Name, err))
		})
	}()
}

func splitArgs(s string) []string {
	var out []string
	for _, m := range reArg.FindAllStringSubmatch(s, -1) {
		if m[1] != "" {
			out = append(out, m[1])
		} else {
			out = append(out, m[2])
		}
	}
	return out
}
