package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/AbdulMannan19/Ritaj-Cafe-AI/internal/calendar"
	"github.com/AbdulMannan19/Ritaj-Cafe-AI/internal/flow"
	"github.com/AbdulMannan19/Ritaj-Cafe-AI/internal/messaging"
	"github.com/AbdulMannan19/Ritaj-Cafe-AI/internal/models"
	"github.com/AbdulMannan19/Ritaj-Cafe-AI/internal/ordering"
	"github.com/AbdulMannan19/Ritaj-Cafe-AI/internal/store"
	"github.com/AbdulMannan19/Ritaj-Cafe-AI/internal/testutil"
)

const testAdminToken = "s3cret"

type testEnv struct {
	server   *Server
	handler  http.Handler
	store    *store.InMemoryStore
	sink     *messaging.LogService
	model    *testutil.FixedModel
	registry *flow.Registry
	bindings *flow.CallBindings
}

func newTestEnv(t *testing.T, opts ...Option) *testEnv {
	t.Helper()
	st := testutil.NewMenuStore(t, testutil.TestMenu()[:2]...)

	days := calendar.FixedDay("Wednesday")
	ledger := ordering.NewLedger(st)
	model := &testutil.FixedModel{Reply: "Hello from Ritaj!"}
	loop := flow.NewLoop(model, flow.NewDispatcher(ledger, days))
	factory, err := flow.NewSessionFactory(loop, flow.NewMenuPrompt(ordering.NewCatalog(st, days)))
	if err != nil {
		t.Fatalf("NewSessionFactory failed: %v", err)
	}
	registry := flow.NewRegistry(factory)
	bindings := flow.NewCallBindings()
	sink := messaging.NewLogService()
	responses := messaging.NewResponseHandler(sink, registry.Chat, messaging.WithDeduplicator(st))

	opts = append([]Option{WithVerifyToken("verify-me"), WithAdminToken(testAdminToken)}, opts...)
	srv := NewServer(Deps{
		Registry:  registry,
		Bindings:  bindings,
		Ledger:    ledger,
		Days:      days,
		Store:     st,
		Messaging: sink,
		Responses: responses,
	}, opts...)
	return &testEnv{
		server:   srv,
		handler:  srv.Handler(),
		store:    st,
		sink:     sink,
		model:    model,
		registry: registry,
		bindings: bindings,
	}
}

func (e *testEnv) do(method, path, body string, headers ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rr := httptest.NewRecorder()
	e.handler.ServeHTTP(rr, req)
	return rr
}

func decodeMap(t *testing.T, rr *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("Response is not a JSON object: %v (%s)", err, rr.Body.String())
	}
	return out
}

func TestHealthHandler(t *testing.T) {
	env := newTestEnv(t)
	rr := env.do(http.MethodGet, "/health", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rr.Code)
	}
	if got := decodeMap(t, rr)["status"]; got != "ok" {
		t.Errorf("Expected status ok, got %v", got)
	}
	if rr.Header().Get(RequestIDHeader) == "" {
		t.Error("Expected a request id header")
	}
}

func TestMethodNotAllowed(t *testing.T) {
	env := newTestEnv(t)
	rr := env.do(http.MethodGet, "/call/webhook", "")
	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("Expected 405, got %d", rr.Code)
	}
	if rr.Header().Get("Allow") != http.MethodPost {
		t.Errorf("Expected Allow POST, got %q", rr.Header().Get("Allow"))
	}
}

func TestCallWebhookValidation(t *testing.T) {
	env := newTestEnv(t)
	tests := []struct {
		name    string
		body    string
		code    int
		message string
	}{
		{"empty body", "", http.StatusBadRequest, "No data provided"},
		{"no call id", `{"call":{"from_number":"+971500000001"}}`, http.StatusBadRequest, "call_id is required"},
		{"no phone", `{"call":{"call_id":"c1"}}`, http.StatusBadRequest, "phone_number is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := env.do(http.MethodPost, "/call/webhook", tt.body)
			if rr.Code != tt.code {
				t.Fatalf("Expected %d, got %d", tt.code, rr.Code)
			}
			if got := decodeMap(t, rr)["message"]; got != tt.message {
				t.Errorf("Expected message %q, got %v", tt.message, got)
			}
		})
	}
}

func TestCallWebhookBindsCaller(t *testing.T) {
	env := newTestEnv(t)
	rr := env.do(http.MethodPost, "/call/webhook", `{"call":{"call_id":"c1","caller_id":"+971500000001"}}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	out := decodeMap(t, rr)
	if out["message"] != "Call registered successfully" || out["phone_number"] != "+971500000001" || out["call_id"] != "c1" {
		t.Errorf("Unexpected body: %v", out)
	}
	if phone, ok := env.bindings.Resolve("c1"); !ok || phone != "+971500000001" {
		t.Errorf("Expected binding to +971500000001, got %q (%v)", phone, ok)
	}
}

func TestCallPlaceOrderFlow(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(http.MethodPost, "/call/place-order", `{"call":{"call_id":"c9"},"args":{"items":{"Burger":1},"delivery_address":"1 Main St"}}`)
	if rr.Code != http.StatusBadRequest || decodeMap(t, rr)["message"] != "No phone number for call_id: c9" {
		t.Fatalf("Expected unbound call error, got %d: %s", rr.Code, rr.Body.String())
	}

	env.bindings.Bind("c1", "+971500000001")
	rr = env.do(http.MethodPost, "/call/place-order", `{"call":{"call_id":"c1"},"args":{"delivery_address":"1 Main St"}}`)
	if rr.Code != http.StatusBadRequest || decodeMap(t, rr)["message"] != "items is required" {
		t.Fatalf("Expected items error, got %d: %s", rr.Code, rr.Body.String())
	}
	rr = env.do(http.MethodPost, "/call/place-order", `{"call":{"call_id":"c1"},"args":{"items":{"Burger":1}}}`)
	if rr.Code != http.StatusBadRequest || decodeMap(t, rr)["message"] != "delivery_address is required" {
		t.Fatalf("Expected address error, got %d: %s", rr.Code, rr.Body.String())
	}

	rr = env.do(http.MethodPost, "/call/place-order", `{"call":{"call_id":"c1"},"args":{"items":{"Burger":2,"Fries":"1"},"delivery_address":"1 Main St"}}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	out := decodeMap(t, rr)
	if out["message"] != "Order placed successfully" || out["order_id"] != float64(1) {
		t.Errorf("Unexpected body: %v", out)
	}

	rr = env.do(http.MethodPost, "/call/place-order", `{"call":{"call_id":"c1"},"args":{"items":{"Unicorn Steak":1},"delivery_address":"1 Main St"}}`)
	if rr.Code != http.StatusInternalServerError || decodeMap(t, rr)["message"] != "Failed to place order" {
		t.Fatalf("Expected ledger miss to fail, got %d: %s", rr.Code, rr.Body.String())
	}

	rr = env.do(http.MethodPost, "/call/order-status", `{"call":{"call_id":"c1"}}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rr.Code)
	}
	var views []models.OrderView
	if err := json.Unmarshal(rr.Body.Bytes(), &views); err != nil {
		t.Fatalf("Expected a JSON array: %v", err)
	}
	if len(views) != 1 || views[0].TotalAmount != 1300 || views[0].Items["Burger"] != 2 {
		t.Errorf("Unexpected order views: %+v", views)
	}
}

func TestCallSendMenuAndCurrentDay(t *testing.T) {
	env := newTestEnv(t)
	rr := env.do(http.MethodPost, "/call/send-menu", `{"call":{"call_id":"c2"}}`)
	if rr.Code != http.StatusBadRequest || decodeMap(t, rr)["message"] != "No phone for call_id: c2" {
		t.Fatalf("Expected unbound call error, got %d: %s", rr.Code, rr.Body.String())
	}

	env.bindings.Bind("c2", "+971500000002")
	rr = env.do(http.MethodPost, "/call/send-menu", `{"call":{"call_id":"c2"}}`)
	if rr.Code != http.StatusOK || decodeMap(t, rr)["message"] != "Menu link sent" {
		t.Fatalf("Expected menu sent, got %d: %s", rr.Code, rr.Body.String())
	}
	sent := env.sink.Sent()
	if len(sent) != 1 || sent[0].From != "971500000002" || sent[0].Body != "Here's our complete menu: https://baba-chai.vercel.app" {
		t.Errorf("Unexpected sent messages: %+v", sent)
	}

	rr = env.do(http.MethodPost, "/call/get-current-day", `{}`)
	if rr.Code != http.StatusOK || decodeMap(t, rr)["day"] != "Wednesday" {
		t.Errorf("Expected Wednesday, got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestCallChatUsesSession(t *testing.T) {
	env := newTestEnv(t)
	env.bindings.Bind("c3", "+971500000003")

	rr := env.do(http.MethodPost, "/call/chat", `{"call":{"call_id":"c3"},"args":{"message":"  "}}`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400 for blank message, got %d", rr.Code)
	}
	rr = env.do(http.MethodPost, "/call/chat", `{"call":{"call_id":"c3"},"args":{"message":"hi"}}`)
	if rr.Code != http.StatusOK || decodeMap(t, rr)["reply"] != "Hello from Ritaj!" {
		t.Fatalf("Expected reply, got %d: %s", rr.Code, rr.Body.String())
	}
	if _, ok := env.registry.Lookup("+971500000003"); !ok {
		t.Error("Expected a live session for the bound caller")
	}
}

func TestChatWebhookVerify(t *testing.T) {
	env := newTestEnv(t)
	rr := env.do(http.MethodGet, "/chat/webhook?hub.mode=subscribe&hub.verify_token=verify-me&hub.challenge=12345", "")
	if rr.Code != http.StatusOK || rr.Body.String() != "12345" {
		t.Fatalf("Expected challenge echo, got %d: %q", rr.Code, rr.Body.String())
	}
	rr = env.do(http.MethodGet, "/chat/webhook?hub.mode=subscribe&hub.verify_token=wrong&hub.challenge=12345", "")
	if rr.Code != http.StatusForbidden || rr.Body.String() != "Verification failed" {
		t.Fatalf("Expected 403, got %d: %q", rr.Code, rr.Body.String())
	}
}

const inboundMessage = `{"entry":[{"changes":[{"value":{"messages":[{"id":"wamid.1","from":"971500000004","text":{"body":"hi"}}]}}]}]}`

func TestChatWebhookRepliesOncePerMessageID(t *testing.T) {
	env := newTestEnv(t)
	for i := 0; i < 2; i++ {
		rr := env.do(http.MethodPost, "/chat/webhook", inboundMessage)
		if rr.Code != http.StatusOK || decodeMap(t, rr)["status"] != "EVENT_RECEIVED" {
			t.Fatalf("Delivery %d: expected EVENT_RECEIVED, got %d: %s", i, rr.Code, rr.Body.String())
		}
	}
	sent := env.sink.Sent()
	if len(sent) != 1 {
		t.Fatalf("Expected exactly one reply, got %d", len(sent))
	}
	if sent[0].From != "971500000004" || sent[0].Body != "Hello from Ritaj!" {
		t.Errorf("Unexpected reply: %+v", sent[0])
	}
	if env.model.Calls() != 1 {
		t.Errorf("Expected one model call, got %d", env.model.Calls())
	}
}

func TestChatWebhookEvents(t *testing.T) {
	env := newTestEnv(t)
	tests := []struct {
		name   string
		body   string
		status string
	}{
		{"status only", `{"entry":[{"changes":[{"value":{"statuses":[{"id":"x"}]}}]}]}`, "EVENT_RECEIVED"},
		{"no entry", `{"object":"whatsapp_business_account"}`, "ERROR"},
		{"not json", `{{{`, "ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := env.do(http.MethodPost, "/chat/webhook", tt.body)
			if rr.Code != http.StatusOK {
				t.Fatalf("Expected 200, got %d", rr.Code)
			}
			if got := decodeMap(t, rr)["status"]; got != tt.status {
				t.Errorf("Expected %s, got %v", tt.status, got)
			}
		})
	}
	if len(env.sink.Sent()) != 0 {
		t.Error("Expected no replies for non-message events")
	}
}

func TestChatWebhookSignature(t *testing.T) {
	env := newTestEnv(t, WithAppSecret("app-secret"))
	rr := env.do(http.MethodPost, "/chat/webhook", inboundMessage, messaging.SignatureHeader, "sha256=deadbeef")
	if rr.Code != http.StatusForbidden {
		t.Fatalf("Expected 403 for bad signature, got %d", rr.Code)
	}
	sig := messaging.Sign("app-secret", []byte(inboundMessage))
	rr = env.do(http.MethodPost, "/chat/webhook", inboundMessage, messaging.SignatureHeader, sig)
	if rr.Code != http.StatusOK || decodeMap(t, rr)["status"] != "EVENT_RECEIVED" {
		t.Fatalf("Expected signed delivery to be accepted, got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestChatWebhookRateLimit(t *testing.T) {
	env := newTestEnv(t, WithRateLimit(0.001, 1))
	first := strings.Replace(inboundMessage, "wamid.1", "wamid.a", 1)
	second := strings.Replace(inboundMessage, "wamid.1", "wamid.b", 1)
	env.do(http.MethodPost, "/chat/webhook", first)
	rr := env.do(http.MethodPost, "/chat/webhook", second)
	if rr.Code != http.StatusOK || decodeMap(t, rr)["status"] != "EVENT_RECEIVED" {
		t.Fatalf("Expected limited delivery to be acknowledged, got %d", rr.Code)
	}
	if len(env.sink.Sent()) != 1 {
		t.Errorf("Expected the second message to be dropped, got %d replies", len(env.sink.Sent()))
	}
}

func TestChatPlaceOrder(t *testing.T) {
	env := newTestEnv(t)
	rr := env.do(http.MethodPost, "/chat/place-order", `{"items":{"Burger":1}}`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400, got %d", rr.Code)
	}
	if got := decodeMap(t, rr)["message"]; got != "Missing required fields: ['delivery_address', 'phone_number']" {
		t.Errorf("Unexpected message: %v", got)
	}

	rr = env.do(http.MethodPost, "/chat/place-order", `{"args":{"items":{"Fries":3},"delivery_address":"2 Side St","phone_number":"971500000005"}}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", rr.Code, rr.Body.String())
	}

	rr = env.do(http.MethodGet, "/chat/order-status", "")
	if rr.Code != http.StatusBadRequest || decodeMap(t, rr)["message"] != "phone_number is required" {
		t.Fatalf("Expected phone error, got %d: %s", rr.Code, rr.Body.String())
	}
	rr = env.do(http.MethodGet, "/chat/order-status?phone_number=971500000005", "")
	var views []models.OrderView
	if err := json.Unmarshal(rr.Body.Bytes(), &views); err != nil {
		t.Fatalf("Expected a JSON array: %v", err)
	}
	if len(views) != 1 || views[0].TotalAmount != 900 {
		t.Errorf("Unexpected views: %+v", views)
	}
}

func TestChatNotifyStatus(t *testing.T) {
	env := newTestEnv(t)
	rr := env.do(http.MethodPost, "/chat/notify-status", `{"order_id":42}`)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("Expected 404, got %d", rr.Code)
	}

	id, err := env.store.InsertOrder(context.Background(), models.Order{
		Items: map[int64]int{1: 1}, TotalAmount: 500, DeliveryAddress: "x",
		CustomerPhone: "+971500000006", Status: models.OrderStatusPreparing, OrderDate: time.Now(),
	})
	if err != nil {
		t.Fatalf("InsertOrder failed: %v", err)
	}
	rr = env.do(http.MethodPost, "/chat/notify-status", `{"order_id":`+jsonInt(id)+`}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	sent := env.sink.Sent()
	if len(sent) != 1 || sent[0].Body != "Your order #1 is being prepared." {
		t.Errorf("Unexpected notification: %+v", sent)
	}
}

func jsonInt(id int64) string {
	b, _ := json.Marshal(id)
	return string(b)
}

func TestAdminRequiresToken(t *testing.T) {
	env := newTestEnv(t)
	rr := env.do(http.MethodGet, "/admin/menu", "")
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("Expected 401, got %d", rr.Code)
	}
	rr = env.do(http.MethodGet, "/admin/menu", "", "Authorization", "Bearer wrong")
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("Expected 401 for wrong token, got %d", rr.Code)
	}
	rr = env.do(http.MethodGet, "/admin/menu", "", "Authorization", "Bearer "+testAdminToken)
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rr.Code)
	}
}

func TestAdminRoutesDisabledWithoutToken(t *testing.T) {
	env := newTestEnv(t, WithAdminToken(""))
	rr := env.do(http.MethodGet, "/admin/menu", "", "Authorization", "Bearer anything")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("Expected 404, got %d", rr.Code)
	}
}

func TestAdminMenuCRUD(t *testing.T) {
	env := newTestEnv(t)
	auth := []string{"Authorization", "Bearer " + testAdminToken}

	rr := env.do(http.MethodPost, "/admin/menu", `{"name":"Karak Tea","category":"Drinks","price":2.5,"is_available":true}`, auth...)
	if rr.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	rr = env.do(http.MethodPost, "/admin/menu", `{"category":"Drinks","price":1}`, auth...)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400 for missing name, got %d", rr.Code)
	}

	rr = env.do(http.MethodPut, "/admin/menu/3", `{"name":"Karak Tea","category":"Drinks","price":3,"is_available":false}`, auth...)
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	item, err := env.store.GetMenuItem(context.Background(), 3)
	if err != nil || item.Price != 300 || item.IsAvailable {
		t.Fatalf("Expected updated item, got %+v (%v)", item, err)
	}

	rr = env.do(http.MethodDelete, "/admin/menu/99", "", auth...)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("Expected 404, got %d", rr.Code)
	}
	rr = env.do(http.MethodDelete, "/admin/menu/abc", "", auth...)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400, got %d", rr.Code)
	}
	rr = env.do(http.MethodDelete, "/admin/menu/3", "", auth...)
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rr.Code)
	}
}

func TestAdminOrderStatusLifecycle(t *testing.T) {
	env := newTestEnv(t)
	auth := []string{"Authorization", "Bearer " + testAdminToken}
	env.bindings.Bind("c1", "+971500000007")
	rr := env.do(http.MethodPost, "/call/place-order", `{"call":{"call_id":"c1"},"args":{"items":{"Burger":1},"delivery_address":"1 Main St"}}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d", rr.Code)
	}

	rr = env.do(http.MethodPut, "/admin/orders/1/status", `{"status":"DELIVERED"}`, auth...)
	if rr.Code != http.StatusConflict {
		t.Fatalf("Expected 409 skipping ON_ROUTE, got %d: %s", rr.Code, rr.Body.String())
	}
	rr = env.do(http.MethodPut, "/admin/orders/1/status", `{"status":"LOST"}`, auth...)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400 for unknown status, got %d", rr.Code)
	}
	rr = env.do(http.MethodPut, "/admin/orders/7/status", `{"status":"ON_ROUTE"}`, auth...)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("Expected 404, got %d", rr.Code)
	}

	rr = env.do(http.MethodPut, "/admin/orders/1/status", `{"status":"ON_ROUTE","courier_name":"Ali","courier_phone_number":"+971500000099"}`, auth...)
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	sent := env.sink.Sent()
	if len(sent) != 1 || !strings.Contains(sent[0].Body, "is on the way") || !strings.Contains(sent[0].Body, "Ali") {
		t.Errorf("Expected courier notification, got %+v", sent)
	}

	rr = env.do(http.MethodGet, "/admin/orders", "", auth...)
	var resp struct {
		Result []models.OrderView `json:"result"`
	}
	if err := json.NewDecoder(bytes.NewReader(rr.Body.Bytes())).Decode(&resp); err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if len(resp.Result) != 1 || resp.Result[0].Status != models.OrderStatusOnRoute {
		t.Errorf("Unexpected orders: %+v", resp.Result)
	}
}

func TestAdminSessions(t *testing.T) {
	env := newTestEnv(t)
	auth := []string{"Authorization", "Bearer " + testAdminToken}

	rr := env.do(http.MethodDelete, "/admin/sessions/+971500000008", "", auth...)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("Expected 404 without a session, got %d", rr.Code)
	}

	if _, err := env.registry.Chat(context.Background(), "+971500000008", "hi"); err != nil {
		t.Fatalf("Chat failed: %v", err)
	}
	rr = env.do(http.MethodGet, "/admin/sessions", "", auth...)
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), `"sessions":1`) {
		t.Fatalf("Expected one session, got %d: %s", rr.Code, rr.Body.String())
	}

	rr = env.do(http.MethodPost, "/admin/sessions/refresh", "", auth...)
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), `"refreshed":1`) {
		t.Fatalf("Expected refresh of all sessions, got %d: %s", rr.Code, rr.Body.String())
	}
	rr = env.do(http.MethodPost, "/admin/sessions/refresh", `{"phone_number":"+971599999999"}`, auth...)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("Expected 404 for unknown session, got %d", rr.Code)
	}

	rr = env.do(http.MethodDelete, "/admin/sessions/+971500000008", "", auth...)
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestSenderLimiterSweep(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	l := newSenderLimiter(1, 1)
	l.now = func() time.Time { return now }

	if !l.Allow("a") {
		t.Fatal("Expected first message to pass")
	}
	if l.Allow("a") {
		t.Fatal("Expected burst to be exhausted")
	}
	if !l.Allow("b") {
		t.Fatal("Expected independent bucket per sender")
	}

	now = now.Add(limiterIdleTTL + time.Second)
	if removed := l.Sweep(); removed != 2 {
		t.Errorf("Expected 2 buckets swept, got %d", removed)
	}
	if l.len() != 0 {
		t.Errorf("Expected no buckets left, got %d", l.len())
	}

	var disabled *senderLimiter
	if !disabled.Allow("x") {
		t.Error("Expected nil limiter to allow")
	}
}
