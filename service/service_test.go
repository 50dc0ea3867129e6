package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/devops-mcp/config"
)

type syncBuffer struct {
	mux    sync.Mutex
	buffer bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mux.Lock()
	defer b.mux.Unlock()
	return b.buffer.Write(p)
}

func (b *syncBuffer) String() string {
	b.mux.Lock()
	defer b.mux.Unlock()
	return b.buffer.String()
}

func newTestService(t *testing.T, cfg *config.Config) (*Service, *syncBuffer) {
	t.Helper()
	output := &syncBuffer{}
	srv, err := New(context.Background(), cfg, slog.New(slog.NewTextHandler(output, nil)))
	require.NoError(t, err)
	return srv, output
}

func TestService_ServeHTTP(t *testing.T) {
	srv, output := newTestService(t, &config.Config{
		Transport:      config.TransportHTTP,
		HTTPPort:       8000,
		AuthMethod:     config.AuthMethodPAT,
		AllowedOrigins: []string{"http://localhost:*"},
	})
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- srv.ServeListener(ctx, listener)
	}()
	endpoint := fmt.Sprintf("http://%v/mcp", listener.Addr())

	resp, err := http.Post(endpoint, "application/json", strings.NewReader(`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2025-03-26","capabilities":{},"clientInfo":{"name":"test","version":"1"}}}`))
	require.NoError(t, err)
	var envelope struct {
		Result struct {
			ServerInfo struct {
				Name string `json:"name"`
			} `json:"serverInfo"`
		} `json:"result"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, Name, envelope.Result.ServerInfo.Name)
	sessionID := resp.Header.Get("Mcp-Session-Id")
	require.NotEmpty(t, sessionID)
	assert.Equal(t, 1, srv.Server().Sessions().Len())

	request, err := http.NewRequest(http.MethodPost, endpoint, strings.NewReader(`{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"list_projects"}}`))
	require.NoError(t, err)
	request.Header.Set("Mcp-Session-Id", sessionID)
	resp, err = http.DefaultClient.Do(request)
	require.NoError(t, err)
	var called struct {
		Result struct {
			IsError bool `json:"isError"`
			Content []struct {
				Text string `json:"text"`
			} `json:"content"`
		} `json:"result"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&called))
	resp.Body.Close()
	assert.True(t, called.Result.IsError)
	require.Len(t, called.Result.Content, 1)
	assert.Contains(t, called.Result.Content[0].Text, config.EnvPersonalAccessToken)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
	assert.Equal(t, 0, srv.Server().Sessions().Len())
	assert.Equal(t, 1, strings.Count(output.String(), "Azure DevOps MCP Server running on :8000"))
}

func TestService_ServeBindFailure(t *testing.T) {
	for _, port := range []int{-1, 70000} {
		srv, output := newTestService(t, &config.Config{Transport: config.TransportHTTP, HTTPPort: port})
		err := srv.Serve(context.Background())
		assert.Error(t, err, port)
		assert.NotContains(t, output.String(), "running on", port)
	}
}

func TestService_Address(t *testing.T) {
	srv, _ := newTestService(t, &config.Config{Transport: config.TransportHTTP, HTTPPort: 9123})
	assert.Equal(t, ":9123", srv.Address())
}

func TestOptions_Overrides(t *testing.T) {
	options := &Options{Transport: "http", Port: "9001"}
	get := lookup(options.overrides())
	value, ok := get(config.EnvTransport)
	assert.True(t, ok)
	assert.Equal(t, "http", value)
	value, _ = get(config.EnvHTTPPort)
	assert.Equal(t, "9001", value)
}

func TestRun_Help(t *testing.T) {
	assert.NoError(t, Run([]string{"--help"}))
	assert.Error(t, Run([]string{"--transport", "carrier-pigeon"}))
}
