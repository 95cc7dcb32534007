package messaging

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestCloudAPIService_SendMessage(t *testing.T) {
	var gotPath, gotAuth string
	var gotBody map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		raw, _ := io.ReadAll(r.Body)
		json.Unmarshal(raw, &gotBody)
		w.Write([]byte(`{"messages":[{"id":"wamid.x"}]}`))
	}))
	defer srv.Close()

	svc, err := NewCloudAPIService(WithPhoneNumberID("12345"), WithAccessToken("tok"), WithGraphURL(srv.URL+"/v20.0/"))
	if err != nil {
		t.Fatalf("NewCloudAPIService failed: %v", err)
	}
	if err := svc.SendMessage(context.Background(), "+971500000001", "Hi there"); err != nil {
		t.Fatalf("SendMessage failed: %v", err)
	}
	if gotPath != "/v20.0/12345/messages" {
		t.Errorf("unexpected path %q", gotPath)
	}
	if gotAuth != "Bearer tok" {
		t.Errorf("unexpected auth header %q", gotAuth)
	}
	if gotBody["to"] != "971500000001" || gotBody["messaging_product"] != "whatsapp" || gotBody["type"] != "text" {
		t.Errorf("unexpected body %+v", gotBody)
	}
	text, _ := gotBody["text"].(map[string]interface{})
	if text["body"] != "Hi there" {
		t.Errorf("unexpected text %+v", text)
	}
	select {
	case r := <-svc.Receipts():
		if r.To != "971500000001" {
			t.Errorf("unexpected receipt %+v", r)
		}
	default:
		t.Error("expected a sent receipt")
	}
}

func TestCloudAPIService_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"message":"Invalid OAuth access token"}}`))
	}))
	defer srv.Close()

	svc, err := NewCloudAPIService(WithPhoneNumberID("1"), WithAccessToken("bad"), WithGraphURL(srv.URL))
	if err != nil {
		t.Fatalf("NewCloudAPIService failed: %v", err)
	}
	err = svc.SendMessage(context.Background(), "971500000001", "hi")
	if err == nil || !strings.Contains(err.Error(), "401") || !strings.Contains(err.Error(), "Invalid OAuth") {
		t.Fatalf("expected 401 error with body, got %v", err)
	}
}

func TestCloudAPIService_RequiresCredentials(t *testing.T) {
	t.Setenv("WHATSAPP_PHONE_NUMBER_ID", "")
	t.Setenv("WHATSAPP_ACCESS_TOKEN", "")
	if _, err := NewCloudAPIService(); err == nil {
		t.Fatal("expected error without credentials")
	}
	t.Setenv("WHATSAPP_PHONE_NUMBER_ID", "42")
	t.Setenv("WHATSAPP_ACCESS_TOKEN", "env-token")
	svc, err := NewCloudAPIService()
	if err != nil {
		t.Fatalf("expected env fallback, got %v", err)
	}
	if svc.endpoint != DefaultGraphURL+"/42/messages" {
		t.Errorf("unexpected endpoint %q", svc.endpoint)
	}
}

func TestVerifySignature(t *testing.T) {
	body := []byte(`{"object":"whatsapp_business_account"}`)
	header := Sign("s3cret", body)
	if !strings.HasPrefix(header, "sha256=") {
		t.Fatalf("unexpected header %q", header)
	}
	if !VerifySignature("s3cret", body, header) {
		t.Error("expected valid signature")
	}
	if VerifySignature("other", body, header) {
		t.Error("wrong secret accepted")
	}
	if VerifySignature("s3cret", append(body, ' '), header) {
		t.Error("tampered body accepted")
	}
	for _, bad := range []string{"", "sha256=", "sha1=abcd", "sha256=zz", "nohash"} {
		if VerifySignature("s3cret", body, bad) {
			t.Errorf("malformed header %q accepted", bad)
		}
	}
}
