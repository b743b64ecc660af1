package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/sha1n/mcp-refqa-server/internal/pdftext"
	"github.com/sha1n/mcp-refqa-server/internal/qa"
	"github.com/sha1n/mcp-refqa-server/tests/integration/testkit"
)

const questionText = "1. Is customer data encrypted at rest? (Reference: SEC-1)\n" +
	"2. How long are backups retained? (Reference: OPS-2)\n" +
	"3. Describe zebra migration patterns. (Reference: ZZZ-9)\n"

// questionPages puts one question on each PDF page.
func questionPages() []string {
	return strings.Split(strings.TrimSpace(questionText), "\n")
}

func writeReferences(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string][]byte{
		"security.pdf":   pdftext.BuildPDF("All customer data is encrypted at rest using AES-256."),
		"operations.txt": []byte("Backups run nightly and are retained for thirty days."),
	}
	for name, data := range files {
		if err := os.WriteFile(filepath.Join(dir, name), data, 0644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

// startServer runs the full application over HTTP and waits until the corpus is loaded.
func startServer(t *testing.T, opts *testkit.FlagOptions) string {
	t.Helper()

	env := testkit.NewTestEnv(testkit.NewServerService(testkit.NewTestFlags(t, opts)))
	props, err := env.Start()
	if err != nil {
		t.Fatalf("Failed to start server: %v", err)
	}
	t.Cleanup(func() {
		if err := env.Stop(); err != nil {
			t.Errorf("Failed to stop server: %v", err)
		}
	})

	baseURL := props["base_url"].(string)
	waitForReferences(t, baseURL)
	return baseURL
}

func waitForReferences(t *testing.T, baseURL string) {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		var health struct {
			References bool `json:"references"`
		}
		resp, err := http.Get(baseURL + "/health")
		if err == nil {
			_ = json.NewDecoder(resp.Body).Decode(&health)
			_ = resp.Body.Close()
			if health.References {
				return
			}
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("Timed out waiting for references to load")
}

func doRequest(t *testing.T, req *http.Request, apiKey string) (*http.Response, []byte) {
	t.Helper()
	if apiKey != "" {
		req.Header.Set("X-API-Key", apiKey)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s failed: %v", req.Method, req.URL, err)
	}
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("Failed to read body: %v", err)
	}
	return resp, body
}

func uploadRequest(t *testing.T, url, filename string, data []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := part.Write(data); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	req, err := http.NewRequest(http.MethodPost, url, &buf)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func TestHTTP_UploadAnswerExport(t *testing.T) {
	baseURL := startServer(t, &testkit.FlagOptions{ReferencesDir: writeReferences(t)})

	resp, body := doRequest(t, uploadRequest(t, baseURL+"/api/v1/sessions", "questions.pdf", pdftext.BuildPDF(questionPages()...)), "")
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", resp.StatusCode, body)
	}
	var session qa.Session
	if err := json.Unmarshal(body, &session); err != nil {
		t.Fatalf("Failed to decode session: %v", err)
	}
	if len(session.Questions) != 3 {
		t.Fatalf("Expected 3 questions, got %d", len(session.Questions))
	}

	req, _ := http.NewRequest(http.MethodPost, baseURL+"/api/v1/sessions/"+session.ID+"/answers", nil)
	resp, body = doRequest(t, req, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", resp.StatusCode, body)
	}
	if err := json.Unmarshal(body, &session); err != nil {
		t.Fatalf("Failed to decode session: %v", err)
	}
	if got := session.Questions[0].SourceFile; got != "security.pdf" {
		t.Errorf("Expected question 1 sourced from security.pdf, got %q", got)
	}
	if got := session.Questions[1].SourceFile; got != "operations.txt" {
		t.Errorf("Expected question 2 sourced from operations.txt, got %q", got)
	}
	if session.Questions[2].SourceFile != "" {
		t.Errorf("Expected question 3 unanswered, got source %q", session.Questions[2].SourceFile)
	}

	req, _ = http.NewRequest(http.MethodGet, baseURL+"/api/v1/sessions/"+session.ID+"/export", nil)
	resp, body = doRequest(t, req, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", resp.StatusCode, body)
	}
	if cd := resp.Header.Get("Content-Disposition"); !strings.Contains(cd, "questions-and-answers.txt") {
		t.Errorf("Unexpected Content-Disposition: %q", cd)
	}
	report := string(body)
	if !strings.HasPrefix(report, "Question 1: Is customer data encrypted at rest? (Reference: SEC-1)") {
		t.Errorf("Unexpected report start:\n%s", report)
	}
	if !strings.Contains(report, "Source: N/A") {
		t.Errorf("Expected unanswered question with N/A source:\n%s", report)
	}
}

func TestHTTP_RejectsInvalidUploads(t *testing.T) {
	baseURL := startServer(t, &testkit.FlagOptions{ReferencesDir: writeReferences(t)})

	resp, body := doRequest(t, uploadRequest(t, baseURL+"/api/v1/sessions", "questions.docx", []byte("x")), "")
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected 400 for a non-PDF upload, got %d: %s", resp.StatusCode, body)
	}

	resp, body = doRequest(t, uploadRequest(t, baseURL+"/api/v1/sessions", "questions.pdf", nil), "")
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected 400 for an empty upload, got %d: %s", resp.StatusCode, body)
	}

	req, _ := http.NewRequest(http.MethodGet, baseURL+"/api/v1/sessions/missing", nil)
	resp, body = doRequest(t, req, "")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("Expected 404 for an unknown session, got %d: %s", resp.StatusCode, body)
	}
}

func TestHTTP_ReloadPicksUpNewDocuments(t *testing.T) {
	dir := writeReferences(t)
	baseURL := startServer(t, &testkit.FlagOptions{ReferencesDir: dir})

	if err := os.WriteFile(filepath.Join(dir, "network.txt"), []byte("Firewalls deny inbound traffic by default."), 0644); err != nil {
		t.Fatal(err)
	}

	req, _ := http.NewRequest(http.MethodPost, baseURL+"/api/v1/references/reload", nil)
	resp, body := doRequest(t, req, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", resp.StatusCode, body)
	}

	req, _ = http.NewRequest(http.MethodGet, baseURL+"/api/v1/references/network.txt", nil)
	resp, body = doRequest(t, req, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", resp.StatusCode, body)
	}
	if !strings.Contains(string(body), "Firewalls deny inbound traffic") {
		t.Errorf("Unexpected document body: %s", body)
	}

	req, _ = http.NewRequest(http.MethodGet, baseURL+"/api/v1/references/search?q=firewalls", nil)
	resp, body = doRequest(t, req, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", resp.StatusCode, body)
	}
	if !strings.Contains(string(body), "network.txt") {
		t.Errorf("Expected search hit in network.txt, got: %s", body)
	}
}

func TestHTTP_APIKeyAuth(t *testing.T) {
	baseURL := startServer(t, &testkit.FlagOptions{
		ReferencesDir: writeReferences(t),
		AuthType:      "apikey",
		APIKeys:       []string{"secret-key"},
	})

	req, _ := http.NewRequest(http.MethodGet, baseURL+"/api/v1/references", nil)
	resp, _ := doRequest(t, req, "")
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("Expected 401 without a key, got %d", resp.StatusCode)
	}

	req, _ = http.NewRequest(http.MethodGet, baseURL+"/api/v1/references", nil)
	resp, body := doRequest(t, req, "secret-key")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200 with a key, got %d: %s", resp.StatusCode, body)
	}
	if !strings.Contains(string(body), "security.pdf") || !strings.Contains(string(body), "operations.txt") {
		t.Errorf("Expected both references listed, got: %s", body)
	}
}

func TestMCP_SSEAnswerRoundTrip(t *testing.T) {
	baseURL := startServer(t, &testkit.FlagOptions{ReferencesDir: writeReferences(t)})
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client := mcp.NewClient(&mcp.Implementation{Name: "integration-client", Version: "1.0.0"}, nil)
	session, err := client.Connect(ctx, &mcp.SSEClientTransport{Endpoint: baseURL + "/sse"}, nil)
	if err != nil {
		t.Fatalf("Failed to connect over SSE: %v", err)
	}
	defer func() { _ = session.Close() }()

	res, err := session.CallTool(ctx, &mcp.CallToolParams{
		Name:      "load_questions",
		Arguments: map[string]any{"text": questionText, "name": "inline"},
	})
	if err != nil {
		t.Fatalf("load_questions failed: %v", err)
	}
	if res.IsError {
		t.Fatalf("load_questions returned error: %v", res.Content)
	}
	loaded := res.Content[0].(*mcp.TextContent).Text
	id := sessionIDFrom(t, loaded)

	res, err = session.CallTool(ctx, &mcp.CallToolParams{
		Name:      "answer_questions",
		Arguments: map[string]any{"session_id": id},
	})
	if err != nil {
		t.Fatalf("answer_questions failed: %v", err)
	}
	if res.IsError {
		t.Fatalf("answer_questions returned error: %v", res.Content)
	}
	answers := res.Content[0].(*mcp.TextContent).Text
	if !strings.Contains(answers, "Answered 2 of 3 questions") {
		t.Errorf("Unexpected answer summary:\n%s", answers)
	}

	output := filepath.Join(t.TempDir(), "report.txt")
	res, err = session.CallTool(ctx, &mcp.CallToolParams{
		Name:      "export_results",
		Arguments: map[string]any{"session_id": id, "output_path": output},
	})
	if err != nil {
		t.Fatalf("export_results failed: %v", err)
	}
	if res.IsError {
		t.Fatalf("export_results returned error: %v", res.Content)
	}
	data, err := os.ReadFile(output)
	if err != nil {
		t.Fatalf("Report not written: %v", err)
	}
	if !strings.Contains(string(data), "(Source: operations.txt)") {
		t.Errorf("Report missing cited source:\n%s", data)
	}
}

// sessionIDFrom finds the "Session: <id>" line of a load_questions result.
func sessionIDFrom(t *testing.T, text string) string {
	t.Helper()
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(strings.ReplaceAll(line, "*", ""))
		if rest, ok := strings.CutPrefix(line, "Session:"); ok {
			return strings.TrimSpace(rest)
		}
	}
	t.Fatalf("No session id in result:\n%s", text)
	return ""
}
