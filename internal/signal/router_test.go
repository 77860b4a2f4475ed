package signal

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/bridgewatch/internal/companion"
	"git.home.luguber.info/inful/bridgewatch/internal/supervisor"
)

type fakeConn struct {
	state        supervisor.ConnectionState
	connected    []companion.Identity
	disconnected int
	refreshed    int
	requested    int
}

func (f *fakeConn) State() supervisor.ConnectionState { return f.state }

func (f *fakeConn) ReportConnected(id companion.Identity) {
	f.connected = append(f.connected, id)
	f.state = supervisor.ConnectionState{Connected: true, Identity: &id}
}

func (f *fakeConn) ReportDisconnected() {
	f.disconnected++
	f.state = supervisor.ConnectionState{}
}

func (f *fakeConn) PageRefreshed() { f.refreshed++ }

func (f *fakeConn) DiscoveryRequested() bool {
	f.requested++
	return true
}

type staticServer struct{}

func (staticServer) Server() (string, int) { return "localhost", 3035 }

func newRouter() (*Router, *fakeConn, *[]string) {
	conn := &fakeConn{}
	var status []string
	r := NewRouter(conn, staticServer{}, func(s string) { status = append(status, s) }, nil)
	return r, conn, &status
}

func decode(t *testing.T, raw string) Signal {
	t.Helper()
	var s Signal
	require.NoError(t, json.Unmarshal([]byte(raw), &s))
	return s
}

func TestConnectionStatusUpdate(t *testing.T) {
	r, conn, _ := newRouter()

	require.NoError(t, r.Handle(decode(t, `{"type":"CONNECTION_STATUS_UPDATE","isConnected":true}`)))
	require.NoError(t, r.Handle(decode(t, `{"type":"CONNECTION_STATUS_UPDATE","isConnected":true}`)))
	require.Len(t, conn.connected, 1, "already connected: nothing to report")
	assert.Equal(t, "reconnected", conn.connected[0].Version)
	assert.Equal(t, 3035, conn.connected[0].Port)

	require.NoError(t, r.Handle(decode(t, `{"type":"CONNECTION_STATUS_UPDATE","isConnected":false}`)))
	assert.Equal(t, 1, conn.disconnected)
}

func TestInitiateAutoDiscovery(t *testing.T) {
	r, conn, status := newRouter()

	require.NoError(t, r.Handle(decode(t, `{"type":"INITIATE_AUTO_DISCOVERY","reason":"page_refresh"}`)))
	require.NoError(t, r.Handle(decode(t, `{"type":"INITIATE_AUTO_DISCOVERY","forceRestart":true}`)))
	require.NoError(t, r.Handle(decode(t, `{"type":"INITIATE_AUTO_DISCOVERY","reason":"manual"}`)))

	assert.Equal(t, 2, conn.refreshed)
	assert.Equal(t, 1, conn.requested)
	assert.Equal(t, []string{
		"Page refreshed. Restarting server discovery...",
		"Page refreshed. Restarting server discovery...",
	}, *status)
}

func TestServerValidation(t *testing.T) {
	r, conn, _ := newRouter()

	require.NoError(t, r.Handle(decode(t, `{"type":"SERVER_VALIDATION_SUCCESS","serverHost":"10.0.0.3","serverPort":3031,"serverInfo":{"name":"Browser Tools Server","version":"1.2.0"}}`)))
	require.Len(t, conn.connected, 1)
	assert.Equal(t, "10.0.0.3", conn.connected[0].Host)
	assert.Equal(t, "1.2.0", conn.connected[0].Version)

	require.NoError(t, r.Handle(decode(t, `{"type":"SERVER_VALIDATION_FAILED","reason":"signature_mismatch"}`)))
	assert.Equal(t, 1, conn.disconnected)
	assert.Equal(t, 0, conn.requested)

	for _, reason := range []string{"connection_error", "http_error"} {
		require.NoError(t, r.Handle(Signal{Type: ServerValidationFailed, Reason: reason}))
	}
	assert.Equal(t, 3, conn.disconnected)
	assert.Equal(t, 2, conn.requested)
}

func TestWebSocketConnected(t *testing.T) {
	r, conn, _ := newRouter()

	require.NoError(t, r.Handle(decode(t, `{"type":"WEBSOCKET_CONNECTED","serverHost":"127.0.0.1","serverPort":3030}`)))
	require.NoError(t, r.Handle(decode(t, `{"type":"WEBSOCKET_CONNECTED","serverHost":"127.0.0.1","serverPort":3030}`)))

	require.Len(t, conn.connected, 1)
	assert.Equal(t, "connected via WebSocket", conn.connected[0].Version)
	assert.Equal(t, 3030, conn.connected[0].Port)
}

func TestInvalidSignals(t *testing.T) {
	r, _, _ := newRouter()
	var seen []Type
	r.OnSignal(func(t Type) { seen = append(seen, t) })

	assert.Error(t, r.Handle(Signal{}))
	assert.Error(t, r.Handle(Signal{Type: "SOMETHING_ELSE"}))
	assert.Error(t, r.Handle(Signal{Type: ConnectionStatusUpdate}))
	assert.Error(t, r.Handle(Signal{Type: ServerValidationSuccess, ServerHost: "x"}))
	assert.Empty(t, seen)
}
