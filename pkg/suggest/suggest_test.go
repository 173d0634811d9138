package suggest

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os/exec"
	"strings"
	"testing"
	"time"
	"unicode/utf8"
)

func TestParseAccepts(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want []string
	}{
		{"object", `{"subtasks": ["Design schema", "Write handler"]}`, []string{"Design schema", "Write handler"}},
		{"bare array", `["a", "b", "c"]`, []string{"a", "b", "c"}},
		{"trims names", `{"subtasks": ["  padded  "]}`, []string{"padded"}},
		{"code fence", "Here you go:\n```json\n{\"subtasks\": [\"x\"]}\n```\n", []string{"x"}},
		{"extra keys", `{"subtasks": ["x"], "model": "m"}`, []string{"x"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Parse([]byte(tc.raw))
			if err != nil {
				t.Fatalf("Parse: %v", err)
			}
			if strings.Join(got, "|") != strings.Join(tc.want, "|") {
				t.Fatalf("Parse = %q, want %q", got, tc.want)
			}
		})
	}
}

// TestParseRejects verifies malformed batches are rejected as a whole.
func TestParseRejects(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		path string
	}{
		{"empty", ``, ""},
		{"prose", `Sure! Here are some subtasks: design, build`, ""},
		{"string", `"just text"`, ""},
		{"subtasks not array", `{"subtasks": "design"}`, "subtasks"},
		{"missing key", `{"tasks": ["x"]}`, ""},
		{"number element", `{"subtasks": ["ok", 3]}`, "subtasks[1]"},
		{"null element", `["ok", null]`, "subtasks[1]"},
		{"blank element", `["ok", "   "]`, "subtasks[1]"},
		{"empty list", `{"subtasks": []}`, "subtasks"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Parse([]byte(tc.raw))
			if !errors.Is(err, ErrUpstreamFormat) {
				t.Fatalf("Parse = %q, %v; want ErrUpstreamFormat", got, err)
			}
			if got != nil {
				t.Fatalf("rejected batch returned names %q", got)
			}
			var fe *FormatError
			if !errors.As(err, &fe) {
				t.Fatalf("error %T is not a FormatError", err)
			}
			if tc.path != "" && fe.Path != tc.path {
				t.Errorf("path = %q, want %q", fe.Path, tc.path)
			}
		})
	}
}

func TestHTTPSuggester(t *testing.T) {
	var gotName string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			TaskName string `json:"taskName"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		gotName = req.TaskName
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"subtasks": ["one", "two"]}`))
	}))
	defer srv.Close()

	raw, err := NewHTTPSuggester(srv.URL, 5*time.Second).Suggest(context.Background(), "Build login page")
	if err != nil {
		t.Fatalf("Suggest: %v", err)
	}
	if gotName != "Build login page" {
		t.Errorf("server saw taskName %q", gotName)
	}
	names, err := Parse(raw)
	if err != nil || len(names) != 2 {
		t.Fatalf("Parse = %q, %v", names, err)
	}
}

func TestHTTPSuggesterUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := NewHTTPSuggester(srv.URL, 5*time.Second).Suggest(context.Background(), "x")
	if !errors.Is(err, ErrUpstream) {
		t.Fatalf("got %v, want ErrUpstream", err)
	}
}

func mockCommand(t *testing.T, name string, args ...string) *[]string {
	t.Helper()
	original := CommandContext
	t.Cleanup(func() { CommandContext = original })

	var captured []string
	CommandContext = func(ctx context.Context, bin string, a ...string) *exec.Cmd {
		captured = append([]string{bin}, a...)
		return exec.CommandContext(ctx, name, args...)
	}
	return &captured
}

// TestCommandSuggesterUnwrapsEnvelope verifies the CLI's {"result": ...}
// wrapper is removed before parsing.
func TestCommandSuggesterUnwrapsEnvelope(t *testing.T) {
	envelope := `{"type":"result","is_error":false,"result":"{\"subtasks\": [\"a\", \"b\"]}"}`
	captured := mockCommand(t, "echo", "-n", envelope)

	raw, err := (&CommandSuggester{}).Suggest(context.Background(), "Ship it")
	if err != nil {
		t.Fatalf("Suggest: %v", err)
	}
	names, err := Parse(raw)
	if err != nil || len(names) != 2 {
		t.Fatalf("Parse = %q, %v", names, err)
	}

	args := *captured
	if args[0] != "claude" || args[1] != "-p" || !strings.Contains(args[2], "Ship it") {
		t.Errorf("command = %q", args)
	}
}

func TestCommandSuggesterCustomArgs(t *testing.T) {
	captured := mockCommand(t, "echo", "-n", `["x"]`)

	s := &CommandSuggester{Binary: "llm", Args: []string{"--model", "small"}}
	raw, err := s.Suggest(context.Background(), "Ship it")
	if err != nil {
		t.Fatalf("Suggest: %v", err)
	}
	if string(raw) != `["x"]` {
		t.Errorf("raw = %s", raw)
	}
	args := *captured
	if len(args) != 4 || args[0] != "llm" || args[1] != "--model" || !strings.Contains(args[3], "Ship it") {
		t.Errorf("command = %q", args)
	}
}

func TestCommandSuggesterFailures(t *testing.T) {
	t.Run("non-zero exit", func(t *testing.T) {
		mockCommand(t, "false")
		if _, err := (&CommandSuggester{}).Suggest(context.Background(), "x"); !errors.Is(err, ErrUpstream) {
			t.Fatalf("got %v, want ErrUpstream", err)
		}
	})
	t.Run("error envelope", func(t *testing.T) {
		mockCommand(t, "echo", "-n", `{"is_error":true,"result":"rate limited"}`)
		if _, err := (&CommandSuggester{}).Suggest(context.Background(), "x"); !errors.Is(err, ErrUpstream) {
			t.Fatalf("got %v, want ErrUpstream", err)
		}
	})
}

func TestTruncateKeepsRunes(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"short", 10, "short"},
		{"  padded  ", 6, "padded"},
		{"abcdef", 3, "abc..."},
		{"héllo", 2, "h..."},
		{"日本語", 4, "日..."},
	}
	for _, tt := range tests {
		got := truncate(tt.in, tt.n)
		if got != tt.want || !utf8.ValidString(got) {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.n, got, tt.want)
		}
	}

	long := strings.Repeat("é", 300)
	if got := truncate(long, 501); !utf8.ValidString(got) || len(got) > 503 {
		t.Fatalf("truncate long = %d bytes, valid %v", len(got), utf8.ValidString(got))
	}
}
