package toytcp

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()

	cfg, err := ParseConfig([]byte("[General]\nmanager-addr = 127.0.0.1:0\n[Echo]\nlisten = 127.0.0.1:0\n"))
	require.NoError(t, err)

	one := &One{stats: new(Stats)}
	m := NewManager(one, cfg)
	require.NotNil(t, m)
	one.manager = m
	return m
}

func get(t *testing.T, h http.Handler, path string) (int, string) {
	t.Helper()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec.Code, rec.Body.String()
}

func TestManagerIndex(t *testing.T) {
	m := newTestManager(t)
	m.one.stats.TCPReceived.Add(1234567)
	m.one.stats.TCPBadChecksum.Add(3)

	code, body := get(t, m.Handler(), "/")
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, "<title>toytcp</title>")
	assert.Contains(t, body, "1,234,567")
	assert.Contains(t, body, "TCP Bad Checksum</th><td>3</td>")
}

func TestManagerEcho(t *testing.T) {
	m := newTestManager(t)
	now := time.Now()
	m.accumulate(ConnData{Src: "10.0.0.1", Dst: "10.0.0.1:5000", Upload: 1000, Download: 1000}, now)
	m.accumulate(ConnData{Src: "10.0.0.1", Dst: "10.0.0.1:5001", Upload: 24, Download: 24}, now)
	m.accumulate(ConnData{Src: "10.0.0.2", Dst: "10.0.0.2:6000", Upload: 1, Download: 1}, now)

	record := m.clients["10.0.0.1"]
	require.NotNil(t, record)
	assert.Equal(t, int64(1024), record.Upload)
	assert.Len(t, record.Details, 2)

	code, body := get(t, m.Handler(), "/echo/")
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, "Entries: 2")
	assert.Contains(t, body, "Total: 2,050")

	code, body = get(t, m.Handler(), "/echo/10.0.0.1")
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, "Echo Client Detail: 10.0.0.1")
	assert.Contains(t, body, "10.0.0.1:5001")
}

func TestManagerConfig(t *testing.T) {
	m := newTestManager(t)

	code, body := get(t, m.Handler(), "/config/")
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, "manager-addr")
}

func TestManagerReport(t *testing.T) {
	m := newTestManager(t)
	go m.consumeData()
	defer close(m.dataCh)

	m.Report(ConnData{Src: "10.0.0.3", Upload: 5, Download: 5})

	assert.Eventually(t, func() bool {
		m.mu.Lock()
		defer m.mu.Unlock()
		_, ok := m.clients["10.0.0.3"]
		return ok
	}, time.Second, 10*time.Millisecond)
}

func TestFormatNumberComma(t *testing.T) {
	cases := map[int64]string{
		0:        "0",
		7:        "7",
		1000:     "1,000",
		1001:     "1,001",
		-1234567: "-1,234,567",
	}
	for v, s := range cases {
		assert.Equal(t, s, formatNumberComma(v))
	}
}

func TestNewManagerDisabled(t *testing.T) {
	cfg, err := ParseConfig([]byte("[Echo]\nlisten = 127.0.0.1:0\n"))
	require.NoError(t, err)
	assert.Nil(t, NewManager(&One{}, cfg))
}
