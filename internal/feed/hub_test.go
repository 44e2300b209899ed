package feed

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/Meowhal/osu-ahr-sub001/internal/bancho"
	"github.com/Meowhal/osu-ahr-sub001/internal/lobby"
)

func newTestHub(t *testing.T) (*Hub, *httptest.Server) {
	t.Helper()
	nop := zerolog.Nop()
	h := NewHub(Options{PingPeriod: 50 * time.Millisecond, Logger: &nop})
	srv := httptest.NewServer(h)
	t.Cleanup(func() {
		h.Close()
		srv.Close()
	})
	return h, srv
}

func dial(t *testing.T, srv *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/" + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) (int, *structpb.Struct) {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	mt, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var s structpb.Struct
	if mt == websocket.TextMessage {
		require.NoError(t, protojson.Unmarshal(data, &s))
	} else {
		require.NoError(t, proto.Unmarshal(data, &s))
	}
	return mt, &s
}

func field(s *structpb.Struct, key string) any {
	v, ok := s.GetFields()[key]
	if !ok {
		return nil
	}
	return v.AsInterface()
}

func TestHub_BinaryObserver(t *testing.T) {
	h, srv := newTestHub(t)
	conn := dial(t, srv, "")

	mt, hello := readFrame(t, conn)
	assert.Equal(t, websocket.BinaryMessage, mt)
	assert.Equal(t, "Hello", field(hello, "type"))
	assert.NotEmpty(t, field(hello, "peer"))
	assert.Equal(t, 1, h.Peers())

	frame, err := Frame("#mp_1", lobby.PlayerJoined{Name: "p1", Slot: 3, Team: bancho.TeamRed})
	require.NoError(t, err)
	require.NoError(t, h.Publish(frame))

	_, got := readFrame(t, conn)
	assert.Equal(t, "PlayerJoined", field(got, "type"))
	assert.Equal(t, "#mp_1", field(got, "channel"))
	assert.Equal(t, "p1", field(got, "player"))
	assert.Equal(t, float64(3), field(got, "slot"))
	assert.Equal(t, "Red", field(got, "team"))
}

func TestHub_JSONObserver(t *testing.T) {
	h, srv := newTestHub(t)
	conn := dial(t, srv, "?format=json")

	mt, _ := readFrame(t, conn)
	assert.Equal(t, websocket.TextMessage, mt)

	frame, err := Frame("#mp_1", lobby.PluginMessage{Type: "skip", Args: []string{"a", "b"}})
	require.NoError(t, err)
	require.NoError(t, h.Publish(frame))

	_, got := readFrame(t, conn)
	assert.Equal(t, "PluginMessage", field(got, "type"))
	assert.Equal(t, []any{"a", "b"}, field(got, "args"))
}

func TestHub_SurvivesPings(t *testing.T) {
	h, srv := newTestHub(t)
	conn := dial(t, srv, "")
	readFrame(t, conn)

	// клиентский ReadMessage отвечает на ping сам; соединение не должно упасть
	go func() {
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()
	time.Sleep(300 * time.Millisecond)
	assert.Equal(t, 1, h.Peers())
}

func TestHub_DisconnectRemovesPeer(t *testing.T) {
	h, srv := newTestHub(t)
	conn := dial(t, srv, "")
	readFrame(t, conn)
	require.NoError(t, conn.Close())

	require.Eventually(t, func() bool { return h.Peers() == 0 }, time.Second, 10*time.Millisecond)
}

func TestHub_CloseRejectsPublish(t *testing.T) {
	h, srv := newTestHub(t)
	conn := dial(t, srv, "")
	readFrame(t, conn)

	h.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)

	frame, _ := Frame("#mp_1", lobby.MatchFinished{})
	assert.ErrorIs(t, h.Publish(frame), ErrClosed)
}

func TestFrame_SkipsNoisyEvents(t *testing.T) {
	frame, err := Frame("#mp_1", lobby.ResponseReceived{Response: bancho.Unhandled{Line: "x"}})
	require.NoError(t, err)
	assert.Nil(t, frame)

	frame, err = Frame("#mp_1", lobby.ChatCommand{Command: "!help"})
	require.NoError(t, err)
	assert.Nil(t, frame)
}

func TestFrame_UnexpectedAction(t *testing.T) {
	frame, err := Frame("#mp_1", lobby.UnexpectedAction{Reason: "room is full", Response: bancho.PlayerJoined{Name: "x"}})
	require.NoError(t, err)
	assert.Equal(t, "room is full", field(frame, "reason"))
	assert.Equal(t, bancho.KindPlayerJoined.String(), field(frame, "kind"))
}
