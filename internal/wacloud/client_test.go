package wacloud

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"
)

// capturedRequest records one POST received by the fake Graph API.
type capturedRequest struct {
	Path    string
	Auth    string
	Payload map[string]interface{}
}

func newFakeGraphAPI(t *testing.T, status int, respBody string) (*httptest.Server, *[]capturedRequest) {
	t.Helper()
	var captured []capturedRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]interface{}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("fake graph api: bad body: %v", err)
		}
		captured = append(captured, capturedRequest{
			Path:    r.URL.Path,
			Auth:    r.Header.Get("Authorization"),
			Payload: payload,
		})
		w.WriteHeader(status)
		w.Write([]byte(respBody))
	}))
	return srv, &captured
}

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	c, err := NewClient(WithToken("tok"), WithPhoneNumberID("12345"), WithBaseURL(baseURL))
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	return c
}

func TestNewClientRequiresCredentials(t *testing.T) {
	if _, err := NewClient(WithPhoneNumberID("12345")); err == nil {
		t.Error("expected error without token")
	}
	if _, err := NewClient(WithToken("tok")); err == nil {
		t.Error("expected error without phone number id")
	}
}

func TestSendTextPostsPayload(t *testing.T) {
	srv, captured := newFakeGraphAPI(t, http.StatusOK, `{"messages":[{"id":"wamid.1"}]}`)
	defer srv.Close()
	c := newTestClient(t, srv.URL)

	if err := c.SendText(context.Background(), "2348011112222", "On the way"); err != nil {
		t.Fatalf("SendText failed: %v", err)
	}
	if len(*captured) != 1 {
		t.Fatalf("expected 1 request, got %d", len(*captured))
	}
	req := (*captured)[0]
	if req.Path != "/12345/messages" {
		t.Errorf("unexpected path %q", req.Path)
	}
	if req.Auth != "Bearer tok" {
		t.Errorf("unexpected auth header %q", req.Auth)
	}
	if req.Payload["type"] != "text" || req.Payload["to"] != "2348011112222" {
		t.Errorf("unexpected payload %v", req.Payload)
	}
	text, _ := req.Payload["text"].(map[string]interface{})
	if text["body"] != "On the way" {
		t.Errorf("unexpected body %v", text)
	}
}

func TestSendTextChunksLongBodies(t *testing.T) {
	srv, captured := newFakeGraphAPI(t, http.StatusOK, `{}`)
	defer srv.Close()
	c := newTestClient(t, srv.URL)

	long := strings.Repeat("a", MaxTextLength) + "\n" + strings.Repeat("b", 100)
	if err := c.SendText(context.Background(), "2348011112222", long); err != nil {
		t.Fatalf("SendText failed: %v", err)
	}
	if len(*captured) != 2 {
		t.Errorf("expected 2 chunked requests, got %d", len(*captured))
	}
}

func TestSendTextRejectsEmptyInput(t *testing.T) {
	c := newTestClient(t, "http://unused")
	if err := c.SendText(context.Background(), "", "hi"); err == nil {
		t.Error("expected error for empty recipient")
	}
	if err := c.SendText(context.Background(), "2348011112222", ""); err == nil {
		t.Error("expected error for empty body")
	}
}

func TestSendButtonsShapesInteractive(t *testing.T) {
	srv, captured := newFakeGraphAPI(t, http.StatusOK, `{}`)
	defer srv.Close()
	c := newTestClient(t, srv.URL)

	buttons := []ReplyButton{{ID: "accept|s1", Title: "Accept"}, {ID: "decline|s1", Title: "Decline"}}
	if err := c.SendButtons(context.Background(), "2348011112222", "New delivery", buttons, "SwiftSend", ""); err != nil {
		t.Fatalf("SendButtons failed: %v", err)
	}
	req := (*captured)[0]
	if req.Payload["type"] != "interactive" {
		t.Fatalf("unexpected payload type %v", req.Payload["type"])
	}
	interactive, _ := req.Payload["interactive"].(map[string]interface{})
	if interactive["type"] != "button" {
		t.Errorf("unexpected interactive type %v", interactive["type"])
	}
	if _, ok := interactive["header"]; !ok {
		t.Error("header should be present when supplied")
	}
	if _, ok := interactive["footer"]; ok {
		t.Error("footer should be omitted when empty")
	}
	action, _ := interactive["action"].(map[string]interface{})
	rendered, _ := action["buttons"].([]interface{})
	if len(rendered) != 2 {
		t.Errorf("expected 2 buttons, got %d", len(rendered))
	}
}

func TestSendButtonsRejectsBadCounts(t *testing.T) {
	c := newTestClient(t, "http://unused")
	if err := c.SendButtons(context.Background(), "234", "x", nil, "", ""); err == nil {
		t.Error("expected error for zero buttons")
	}
	four := []ReplyButton{{ID: "1"}, {ID: "2"}, {ID: "3"}, {ID: "4"}}
	if err := c.SendButtons(context.Background(), "234", "x", four, "", ""); err == nil {
		t.Error("expected error for too many buttons")
	}
}

func TestSendListRequiresSections(t *testing.T) {
	c := newTestClient(t, "http://unused")
	if err := c.SendList(context.Background(), "234", "pick one", "Choose", nil); err == nil {
		t.Error("expected error for empty sections")
	}
}

func TestAPIErrorDecoding(t *testing.T) {
	errBody := `{"error":{"code":131047,"type":"OAuthException","message":"Re-engagement message"}}`
	srv, _ := newFakeGraphAPI(t, http.StatusBadRequest, errBody)
	defer srv.Close()
	c := newTestClient(t, srv.URL)

	err := c.SendText(context.Background(), "2348011112222", "hello again")
	if err == nil {
		t.Fatal("expected error")
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %T: %v", err, err)
	}
	if !apiErr.WindowClosed() {
		t.Errorf("code 131047 should report a closed window")
	}
	if apiErr.Code != ErrCodeReengagement {
		t.Errorf("unexpected code %d", apiErr.Code)
	}
}

func TestNonJSONErrorFallsBackToStatus(t *testing.T) {
	srv, _ := newFakeGraphAPI(t, http.StatusBadGateway, "upstream broke")
	defer srv.Close()
	c := newTestClient(t, srv.URL)

	err := c.SendText(context.Background(), "2348011112222", "hi")
	if err == nil {
		t.Fatal("expected error")
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		t.Errorf("plain error expected for undecodable body, got %v", apiErr)
	}
	if !strings.Contains(err.Error(), "502") {
		t.Errorf("error should carry the status: %v", err)
	}
}

func TestChunkTextShortBodyUnchanged(t *testing.T) {
	chunks := ChunkText("short message")
	if len(chunks) != 1 || chunks[0] != "short message" {
		t.Errorf("short body should pass through, got %v", chunks)
	}
}

func TestChunkTextSplitsAtNewline(t *testing.T) {
	head := strings.Repeat("a", MaxTextLength-100)
	tail := strings.Repeat("b", 300)
	chunks := ChunkText(head + "\n" + tail)
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	if chunks[0] != head {
		t.Errorf("first chunk should end at the newline, got len %d", len(chunks[0]))
	}
	if chunks[1] != tail {
		t.Errorf("second chunk should start after the newline, got len %d", len(chunks[1]))
	}
	for i, ch := range chunks {
		if len(ch) > MaxTextLength {
			t.Errorf("chunk %d exceeds the limit: %d", i, len(ch))
		}
	}
}

func TestChunkTextHardSplitWithoutNewline(t *testing.T) {
	body := strings.Repeat("x", MaxTextLength+500)
	chunks := ChunkText(body)
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	if len(chunks[0]) != MaxTextLength || len(chunks[1]) != 500 {
		t.Errorf("unexpected chunk sizes %d, %d", len(chunks[0]), len(chunks[1]))
	}
}

func TestChunkTextNeverSplitsARune(t *testing.T) {
	// 4095 ASCII bytes put the two-byte rune astride the 4096 boundary.
	body := strings.Repeat("a", MaxTextLength-1) + "é" + strings.Repeat("b", 200)
	chunks := ChunkText(body)
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	if len(chunks[0]) != MaxTextLength-1 {
		t.Errorf("cut should back up to the rune start, first chunk len %d", len(chunks[0]))
	}
	if !strings.HasPrefix(chunks[1], "é") {
		t.Errorf("second chunk should start with the whole rune, got %q", chunks[1][:4])
	}
	for i, ch := range chunks {
		if !utf8.ValidString(ch) {
			t.Errorf("chunk %d is not valid UTF-8", i)
		}
	}
}
