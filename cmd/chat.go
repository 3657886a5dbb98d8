package cmd

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/teemow/slotbot/internal/config"
	"github.com/teemow/slotbot/internal/server"
)

const (
	chatGreeting = "Hello! How can I help you with booking or checking appointments?"
	chatError    = "Sorry, there was an error communicating with the backend."
)

var chatFlagKeys = map[string]string{
	"backend-url": config.KeyBackendURL,
}

func newChatCmd() *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "chat [message]",
		Short: "Chat with a running slotbot backend",
		Long: `Send messages to the POST /chat endpoint of a running "slotbot serve".

With arguments, the joined arguments are sent as a single message and the
reply is printed. Without arguments an interactive session starts; type
"exit" or "quit" (or send EOF) to leave.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, chatFlagKeys)
			if err != nil {
				return err
			}
			client := newChatClient(cfg.BackendURL, timeout)

			if len(args) > 0 {
				fmt.Fprintln(cmd.OutOrStdout(), client.Send(cmd.Context(), strings.Join(args, " ")))
				return nil
			}
			return runChatREPL(cmd.Context(), client, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}

	cmd.Flags().String("backend-url", config.DefaultBackendURL, "URL of the slotbot backend. Can also use BACKEND_URL env var.")
	cmd.Flags().DurationVar(&timeout, "timeout", 60*time.Second, "Timeout for a single request")

	return cmd
}

// chatClient talks to the chat endpoint. One client is one session.
type chatClient struct {
	url        string
	sessionID  string
	httpClient *http.Client
}

func newChatClient(backendURL string, timeout time.Duration) *chatClient {
	return &chatClient{
		url:        strings.TrimSuffix(backendURL, "/") + "/chat",
		sessionID:  uuid.NewString(),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Send posts message and returns the text to show to the user. Failures
// are reported as a fixed error message.
func (c *chatClient) Send(ctx context.Context, message string) string {
	reply, err := c.send(ctx, message)
	if err != nil {
		return chatError
	}
	return reply
}

func (c *chatClient) send(ctx context.Context, message string) (string, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	body, err := json.Marshal(server.ChatRequest{Message: message, SessionID: c.sessionID})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("backend returned %s", resp.Status)
	}

	var payload struct {
		Response json.RawMessage `json:"response"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	return replyText(payload.Response)
}

// replyText renders the response field, which is either a string or an
// object whose "output" or "response" field holds the text.
func replyText(raw json.RawMessage) (string, error) {
	if len(raw) == 0 {
		return "", fmt.Errorf("response field missing")
	}

	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return text, nil
	}

	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err != nil {
		return string(raw), nil
	}
	for _, key := range []string{"output", "response"} {
		if v, ok := obj[key]; ok {
			if s, ok := v.(string); ok {
				return s, nil
			}
			return fmt.Sprint(v), nil
		}
	}
	return string(raw), nil
}

func runChatREPL(ctx context.Context, client *chatClient, in io.Reader, out io.Writer) error {
	fmt.Fprintf(out, "assistant: %s\n", chatGreeting)

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "you: ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}

		message := strings.TrimSpace(scanner.Text())
		switch strings.ToLower(message) {
		case "":
			continue
		case "exit", "quit":
			return nil
		}

		fmt.Fprintf(out, "assistant: %s\n", client.Send(ctx, message))
	}
}
