package cli

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/gofiber/fiber/v2"
)

var providerEnv = []string{
	"SENDGRID_API_KEY", "NOTIFY_EMAIL_TO", "NOTIFY_EMAIL_FROM",
	"TWILIO_ACCOUNT_SID", "TWILIO_AUTH_TOKEN", "TWILIO_WHATSAPP_FROM", "NOTIFY_WHATSAPP_TO",
	"CALLMEBOT_PHONE", "CALLMEBOT_APIKEY",
	"SENDGRID_BASE_URL", "TWILIO_BASE_URL", "CALLMEBOT_BASE_URL",
	"HTTP_TIMEOUT_SECONDS", "API_PORT", "NOTIFY_EMAIL_FROM_NAME",
}

// isolateEnv unsets every variable the CLI reads; t.Setenv restores them afterwards.
func isolateEnv(t *testing.T) {
	t.Helper()

	for _, name := range providerEnv {
		t.Setenv(name, "")
		if err := os.Unsetenv(name); err != nil {
			t.Fatalf("unset %s: %v", name, err)
		}
	}
	t.Setenv("LOG_LEVEL", "error")
}

type countingServer struct {
	*httptest.Server
	hits atomic.Int32
}

func newCountingServer(t *testing.T, handler http.HandlerFunc) *countingServer {
	t.Helper()

	cs := &countingServer{}
	cs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cs.hits.Add(1)
		handler(w, r)
	}))
	t.Cleanup(cs.Close)
	return cs
}

func runCLI(t *testing.T, args ...string) (string, string, error) {
	t.Helper()

	var stdout, stderr bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--env-file", filepath.Join(t.TempDir(), "absent.env")}, args...))

	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestEmailCommandSendsThroughSendGrid(t *testing.T) {
	isolateEnv(t)

	var payload map[string]any
	server := newCountingServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v3/mail/send" {
			t.Errorf("path = %s, want /v3/mail/send", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sg-key" {
			t.Errorf("authorization = %q", got)
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		w.Header().Set("X-Message-Id", "msg-1")
		w.WriteHeader(http.StatusAccepted)
	})
	t.Setenv("SENDGRID_BASE_URL", server.URL)
	t.Setenv("SENDGRID_API_KEY", "sg-key")
	t.Setenv("NOTIFY_EMAIL_TO", "ops@example.com")

	stdout, _, err := runCLI(t, "email", "--subject", "Task Complete", "--body", "The build finished.")
	if err != nil {
		t.Fatalf("email command error = %v", err)
	}
	if !strings.Contains(stdout, "Email sent successfully") {
		t.Fatalf("stdout = %q", stdout)
	}
	if server.hits.Load() != 1 {
		t.Fatalf("sendgrid hits = %d, want 1", server.hits.Load())
	}

	personalizations, ok := payload["personalizations"].([]any)
	if !ok || len(personalizations) != 1 {
		t.Fatalf("personalizations = %v, want one entry", payload["personalizations"])
	}
	personalization, _ := personalizations[0].(map[string]any)
	if personalization["subject"] != "Task Complete" {
		t.Fatalf("subject = %v, want Task Complete", personalization["subject"])
	}

	content, ok := payload["content"].([]any)
	if !ok || len(content) != 1 {
		t.Fatalf("content = %v, want one entry", payload["content"])
	}
	part, _ := content[0].(map[string]any)
	if part["type"] != "text/plain" || part["value"] != "The build finished." {
		t.Fatalf("content[0] = %v, want text/plain body", part)
	}
}

func TestEmailCommandFailures(t *testing.T) {
	testCases := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{name: "missing subject", args: []string{"email", "--body", "text"}, wantErr: "--subject is required"},
		{name: "missing body", args: []string{"email", "--subject", "hi"}, wantErr: "--body or --html is required"},
		{name: "api key not configured", args: []string{"email", "--subject", "hi", "--body", "text"}, wantErr: "SENDGRID_API_KEY not configured"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			isolateEnv(t)

			server := newCountingServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusAccepted)
			})
			t.Setenv("SENDGRID_BASE_URL", server.URL)
			t.Setenv("NOTIFY_EMAIL_TO", "ops@example.com")

			_, _, err := runCLI(t, tc.args...)
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("error = %v, want containing %q", err, tc.wantErr)
			}
			if server.hits.Load() != 0 {
				t.Fatal("no request should reach SendGrid")
			}
		})
	}
}

func TestWhatsAppCommandFallsBackToCallMeBot(t *testing.T) {
	isolateEnv(t)

	twilio := newCountingServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"code":20003,"message":"Authenticate"}`)
	})
	var gotText string
	callMeBot := newCountingServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotText = r.URL.Query().Get("text")
		_, _ = io.WriteString(w, "Message queued")
	})

	t.Setenv("TWILIO_BASE_URL", twilio.URL)
	t.Setenv("TWILIO_ACCOUNT_SID", "AC123")
	t.Setenv("TWILIO_AUTH_TOKEN", "secret")
	t.Setenv("NOTIFY_WHATSAPP_TO", "whatsapp:+15550001111")
	t.Setenv("CALLMEBOT_BASE_URL", callMeBot.URL)
	t.Setenv("CALLMEBOT_PHONE", "+15550001111")
	t.Setenv("CALLMEBOT_APIKEY", "cmb-key")

	metricsPath := filepath.Join(t.TempDir(), "notify.prom")
	stdout, _, err := runCLI(t, "--metrics-file", metricsPath, "whatsapp", "deploy", "done")
	if err != nil {
		t.Fatalf("whatsapp command error = %v", err)
	}
	if !strings.Contains(stdout, "via callmebot") {
		t.Fatalf("stdout = %q, want callmebot confirmation", stdout)
	}
	if twilio.hits.Load() != 1 || callMeBot.hits.Load() != 1 {
		t.Fatalf("hits = twilio:%d callmebot:%d, want 1 each", twilio.hits.Load(), callMeBot.hits.Load())
	}
	if gotText != "deploy done" {
		t.Fatalf("text = %q, want deploy done", gotText)
	}

	dump, err := os.ReadFile(metricsPath)
	if err != nil {
		t.Fatalf("read metrics file: %v", err)
	}
	if !strings.Contains(string(dump), `notify_dispatch_provider_fallback_total{from="twilio"} 1`) {
		t.Fatalf("metrics file missing fallback counter:\n%s", dump)
	}
}

func TestWhatsAppCommandFailures(t *testing.T) {
	testCases := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{name: "no message", args: []string{"whatsapp"}, wantErr: "message is required"},
		{name: "unknown provider", args: []string{"whatsapp", "--provider", "sms", "hi"}, wantErr: "unknown WhatsApp provider"},
		{name: "nothing configured", args: []string{"whatsapp", "hi"}, wantErr: "no WhatsApp provider configured or all providers failed"},
		{name: "forced provider not configured", args: []string{"whatsapp", "--provider", "callmebot", "hi"}, wantErr: "CALLMEBOT_PHONE not configured"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			isolateEnv(t)

			_, _, err := runCLI(t, tc.args...)
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("error = %v, want containing %q", err, tc.wantErr)
			}
		})
	}
}

func TestServerReadiness(t *testing.T) {
	isolateEnv(t)
	t.Setenv("SENDGRID_API_KEY", "sg-key")
	t.Setenv("NOTIFY_EMAIL_TO", "ops@example.com")

	opts := &rootOptions{envFile: filepath.Join(t.TempDir(), "absent.env")}
	rt, err := opts.bootstrap(io.Discard, false)
	if err != nil {
		t.Fatalf("bootstrap() error = %v", err)
	}
	app, err := newServer(rt)
	if err != nil {
		t.Fatalf("newServer() error = %v", err)
	}

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()

	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200, body=%s", resp.StatusCode, body)
	}
	if !strings.Contains(string(body), `"sendgrid":"configured"`) || !strings.Contains(string(body), `"twilio":"missing"`) {
		t.Fatalf("body = %s", body)
	}

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	metricsBody, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if !strings.Contains(string(metricsBody), `notify_dispatch_http_requests_total{method="GET",path="/readyz",status="200"} 1`) {
		t.Fatalf("metrics body missing readyz request:\n%s", metricsBody)
	}
}
