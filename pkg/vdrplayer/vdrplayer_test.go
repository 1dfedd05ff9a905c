package vdrplayer_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.bug.st/serial"

	"github.com/bft-labs/vdrplayer/internal/domain"
	"github.com/bft-labs/vdrplayer/pkg/vdrplayer"
)

const mixedLog = `# VDR capture
received_at,protocol,raw_data
1000,0183,"$GPRMC,123519,A*6A<0D><0A>"
1200,NMEA2000,00 00 00 01 F0 05 00 00 00 00 00 00 01 FF
2500,0183,"$GPGGA,123520*47<0D><0A>"
`

func writeLog(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "monitor.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func freePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())
	return port
}

type sleepRecorder struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (s *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delays = append(s.delays, d)
	return ctx.Err()
}

func (s *sleepRecorder) Delays() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Duration(nil), s.delays...)
}

type recordingHandler struct {
	vdrplayer.BaseEventHandler

	mu      sync.Mutex
	states  []vdrplayer.State
	sent    int
	skipped []string
	passes  []int
}

func (h *recordingHandler) OnStateChange(e vdrplayer.StateChangeEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.states = append(h.states, e.Current)
}

func (h *recordingHandler) OnRowSent(vdrplayer.RowSentEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sent++
}

func (h *recordingHandler) OnRowSkipped(e vdrplayer.RowSkippedEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.skipped = append(h.skipped, e.Reason)
}

func (h *recordingHandler) OnPassCompleted(e vdrplayer.PassCompletedEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.passes = append(h.passes, e.Pass)
}

func TestReplay_TCP(t *testing.T) {
	cfg := vdrplayer.DefaultConfig()
	cfg.Interface = "127.0.0.1"
	cfg.Port = freePort(t)
	cfg.Count = 2
	cfg.LogFile = writeLog(t, mixedLog)

	sleeper := &sleepRecorder{}
	handler := &recordingHandler{}
	var progress bytes.Buffer

	r, err := vdrplayer.New(cfg,
		vdrplayer.WithSleeper(sleeper.sleep),
		vdrplayer.WithEventHandler(handler),
		vdrplayer.WithProgressOutput(&progress),
	)
	require.NoError(t, err)
	assert.Equal(t, vdrplayer.StateIdle, r.Status())
	assert.NotEmpty(t, r.Session())

	require.NoError(t, r.Start(context.Background()))

	var conn net.Conn
	require.Eventually(t, func() bool {
		c, err := net.Dial("tcp", net.JoinHostPort(cfg.Interface, strconv.Itoa(cfg.Port)))
		if err != nil {
			return false
		}
		conn = c
		return true
	}, 5*time.Second, 10*time.Millisecond)
	defer conn.Close()

	data, err := io.ReadAll(conn)
	require.NoError(t, err)
	require.NoError(t, r.Wait())

	one := "$GPRMC,123519,A*6A\r\n$GPGGA,123520*47\r\n"
	assert.Equal(t, one+one, string(data))
	assert.Equal(t, []time.Duration{1500 * time.Millisecond, 1500 * time.Millisecond}, sleeper.Delays())
	assert.Equal(t, vdrplayer.StateStopped, r.Status())

	assert.Equal(t, []vdrplayer.State{
		vdrplayer.StateListening,
		vdrplayer.StateServing,
		vdrplayer.StateClosing,
		vdrplayer.StateStopped,
	}, handler.states)
	assert.Equal(t, 4, handler.sent)
	assert.Equal(t, []int{1, 2}, handler.passes)
	assert.Contains(t, progress.String(), "Processed 2/3")
}

func TestReplay_UDP(t *testing.T) {
	peer, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	defer peer.Close()

	cfg := vdrplayer.DefaultConfig()
	cfg.Role = "udp"
	cfg.Messages = "2000"
	cfg.Destination = "127.0.0.1"
	cfg.Port = peer.LocalAddr().(*net.UDPAddr).Port
	cfg.Speed = 0
	cfg.Quiet = true
	cfg.LogFile = writeLog(t, mixedLog)

	r, err := vdrplayer.New(cfg, vdrplayer.WithProgressOutput(io.Discard))
	require.NoError(t, err)
	require.NoError(t, r.Run(context.Background()))

	buf := make([]byte, 1500)
	require.NoError(t, peer.SetReadDeadline(time.Now().Add(5*time.Second)))
	n, _, err := peer.ReadFromUDP(buf)
	require.NoError(t, err)
	assert.Equal(t, "A000001.200 01F01 1F001 FF\r\n", string(buf[:n]))
	assert.Equal(t, vdrplayer.StateStopped, r.Status())
}

func TestReplay_SignalK(t *testing.T) {
	cfg := vdrplayer.DefaultConfig()
	cfg.Role = "signalk"
	cfg.Interface = "127.0.0.1"
	cfg.Port = freePort(t)
	cfg.Speed = 0
	cfg.LogFile = writeLog(t, `received_at,protocol,raw_data
1000,SignalK,"{""updates"":[]}"
1100,0183,"$GPRMC*6A"
`)

	r, err := vdrplayer.New(cfg, vdrplayer.WithProgressOutput(io.Discard))
	require.NoError(t, err)
	assert.Equal(t, "signalk", r.Config().Messages)
	require.NoError(t, r.Start(context.Background()))

	var ws *websocket.Conn
	require.Eventually(t, func() bool {
		c, _, err := websocket.DefaultDialer.Dial("ws://"+net.JoinHostPort(cfg.Interface, strconv.Itoa(cfg.Port))+"/signalk/v1/stream", nil)
		if err != nil {
			return false
		}
		ws = c
		return true
	}, 5*time.Second, 10*time.Millisecond)
	defer ws.Close()

	typ, msg, err := ws.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, websocket.TextMessage, typ)
	assert.Equal(t, "{\"updates\":[]}\r\n", string(msg))

	_, _, err = ws.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "got %v", err)

	require.NoError(t, r.Wait())
	assert.Equal(t, vdrplayer.StateStopped, r.Status())
}

type fakePort struct {
	bytes.Buffer
	closed bool
}

func (p *fakePort) Close() error {
	p.closed = true
	return nil
}

func TestReplay_SerialWithMetrics(t *testing.T) {
	cfg := vdrplayer.DefaultConfig()
	cfg.Role = "serial"
	cfg.Device = "/dev/ttyFAKE0"
	cfg.Speed = 0
	cfg.LogFile = writeLog(t, mixedLog+"3000,0183,\n")

	port := &fakePort{}
	var device string
	opener := func(dev string, _ *serial.Mode) (vdrplayer.SerialPort, error) {
		device = dev
		return port, nil
	}
	reg := prometheus.NewRegistry()
	handler := &recordingHandler{}

	r, err := vdrplayer.New(cfg,
		vdrplayer.WithSerialOpener(opener),
		vdrplayer.WithMetricsRegistry(reg),
		vdrplayer.WithEventHandler(handler),
		vdrplayer.WithProgressOutput(io.Discard),
	)
	require.NoError(t, err)
	require.NoError(t, r.Run(context.Background()))

	assert.Equal(t, "/dev/ttyFAKE0", device)
	assert.True(t, port.closed)
	assert.Equal(t, "$GPRMC,123519,A*6A\r\n$GPGGA,123520*47\r\n", port.String())
	assert.Equal(t, []string{"empty"}, handler.skipped)

	assert.Equal(t, 1.0, counterValue(t, reg, "vdrplayer_replay_passes_completed_total"))
	assert.Equal(t, 2.0, counterValue(t, reg, "vdrplayer_replay_rows_sent_total"))
}

func TestReplay_StopWhileListening(t *testing.T) {
	cfg := vdrplayer.DefaultConfig()
	cfg.Interface = "127.0.0.1"
	cfg.Port = freePort(t)
	cfg.LogFile = writeLog(t, mixedLog)

	r, err := vdrplayer.New(cfg, vdrplayer.WithProgressOutput(io.Discard))
	require.NoError(t, err)
	require.NoError(t, r.Start(context.Background()))

	require.Eventually(t, func() bool {
		return r.Status() == vdrplayer.StateListening
	}, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, r.Stop())
	assert.Equal(t, vdrplayer.StateStopped, r.Status())
	assert.ErrorIs(t, r.Start(context.Background()), domain.ErrAlreadyRunning)
}

func TestReplay_MissingLogFails(t *testing.T) {
	cfg := vdrplayer.DefaultConfig()
	cfg.LogFile = filepath.Join(t.TempDir(), "absent.csv")

	r, err := vdrplayer.New(cfg)
	require.NoError(t, err)

	err = r.Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, vdrplayer.StateFailed, r.Status())
	assert.True(t, r.Status().Done())
}

func TestReplay_WaitsForLogFile(t *testing.T) {
	peer, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	defer peer.Close()

	cfg := vdrplayer.DefaultConfig()
	cfg.Role = "udp"
	cfg.Destination = "127.0.0.1"
	cfg.Port = peer.LocalAddr().(*net.UDPAddr).Port
	cfg.Speed = 0
	cfg.Wait = true
	cfg.LogFile = filepath.Join(t.TempDir(), "late.csv")

	r, err := vdrplayer.New(cfg, vdrplayer.WithProgressOutput(io.Discard))
	require.NoError(t, err)
	require.NoError(t, r.Start(context.Background()))

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, vdrplayer.StateIdle, r.Status())
	tmp := cfg.LogFile + ".part"
	require.NoError(t, os.WriteFile(tmp, []byte(mixedLog), 0o644))
	require.NoError(t, os.Rename(tmp, cfg.LogFile))

	require.NoError(t, r.Wait())

	buf := make([]byte, 1500)
	require.NoError(t, peer.SetReadDeadline(time.Now().Add(5*time.Second)))
	n, _, err := peer.ReadFromUDP(buf)
	require.NoError(t, err)
	assert.Equal(t, "$GPRMC,123519,A*6A\r\n", string(buf[:n]))
}

func TestNew_InvalidConfig(t *testing.T) {
	cfg := vdrplayer.DefaultConfig()
	cfg.Messages = "0184"
	_, err := vdrplayer.New(cfg)
	assert.ErrorIs(t, err, domain.ErrUnsupportedKind)

	cfg = vdrplayer.DefaultConfig()
	cfg.Count = 0
	_, err = vdrplayer.New(cfg)
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)
}

func TestReplay_WaitBeforeStart(t *testing.T) {
	r, err := vdrplayer.New(vdrplayer.DefaultConfig())
	require.NoError(t, err)
	assert.True(t, errors.Is(r.Wait(), domain.ErrNotRunning))
	assert.True(t, errors.Is(r.Stop(), domain.ErrNotRunning))
}

func counterValue(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	total := 0.0
	for _, f := range families {
		if f.GetName() != name {
			continue
		}
		for _, m := range f.GetMetric() {
			total += m.GetCounter().GetValue()
		}
	}
	return total
}
