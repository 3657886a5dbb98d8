package cmd

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/slotbot/internal/server"
)

func TestReplyText(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr bool
	}{
		{name: "string", raw: `"Slot is available."`, want: "Slot is available."},
		{name: "object with output", raw: `{"output":"Booked."}`, want: "Booked."},
		{name: "object with response", raw: `{"response":"Booked."}`, want: "Booked."},
		{name: "output wins over response", raw: `{"response":"b","output":"a"}`, want: "a"},
		{name: "object without known field", raw: `{"other":1}`, want: `{"other":1}`},
		{name: "missing", raw: ``, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := replyText(json.RawMessage(tt.raw))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestChatClient_Send(t *testing.T) {
	var got server.ChatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/chat", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"response":"Slot is available."}`))
	}))
	defer srv.Close()

	client := newChatClient(srv.URL+"/", time.Second)
	reply := client.Send(context.Background(), "Is 3:00 pm on 04-07-2025 free?")

	assert.Equal(t, "Slot is available.", reply)
	assert.Equal(t, "Is 3:00 pm on 04-07-2025 free?", got.Message)
	assert.Equal(t, client.sessionID, got.SessionID)
	assert.NotEmpty(t, got.SessionID)
}

func TestChatClient_SendErrors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "server error",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
				_, _ = w.Write([]byte(`{"response":"Sorry"}`))
			},
		},
		{
			name: "invalid json",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(`not json`))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			client := newChatClient(srv.URL, time.Second)
			assert.Equal(t, chatError, client.Send(context.Background(), "hello"))
		})
	}

	t.Run("unreachable backend", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		url := srv.URL
		srv.Close()

		client := newChatClient(url, time.Second)
		assert.Equal(t, chatError, client.Send(context.Background(), "hello"))
	})
}

func TestRunChatREPL(t *testing.T) {
	var messages []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req server.ChatRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		messages = append(messages, req.Message)
		_, _ = w.Write([]byte(`{"response":"echo: ` + req.Message + `"}`))
	}))
	defer srv.Close()

	in := strings.NewReader("book at 3pm\n\nquit\nnot sent\n")
	var out strings.Builder

	err := runChatREPL(context.Background(), newChatClient(srv.URL, time.Second), in, &out)
	require.NoError(t, err)

	assert.Equal(t, []string{"book at 3pm"}, messages)
	assert.Contains(t, out.String(), chatGreeting)
	assert.Contains(t, out.String(), "assistant: echo: book at 3pm")
}
