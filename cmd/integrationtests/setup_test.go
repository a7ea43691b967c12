package integrationtests

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"auction-house/internal/access"
	bidding "auction-house/internal/biddingService"
	"auction-house/internal/ledger"
	"auction-house/internal/notify"
	"auction-house/internal/server"
	settlement "auction-house/internal/settlementService"
	submission "auction-house/internal/submissionService"
	handler "auction-house/services/auction/handler"
)

const adminID = "admin-1"

// TestEnv bundles the router with the backing store so tests can assert on
// persisted state directly.
type TestEnv struct {
	Router *gin.Engine
	Store  *ledger.MemoryLedger
}

// SetupTestEnv wires the full stack over the in-memory ledger. Both system
// flags start closed, as in production.
func SetupTestEnv() *TestEnv {
	gin.SetMode(gin.TestMode)

	store := ledger.NewMemoryLedger()
	dispatcher := notify.LogDispatcher{}
	gate := access.NewGate(store, []string{adminID}, dispatcher)

	biddingSvc := bidding.NewBiddingService(store, gate, dispatcher)
	submissionSvc := submission.NewSubmissionService(store, gate, dispatcher)
	settlementSvc := settlement.NewSettlementService(store, dispatcher, settlement.LogStripper{})

	auctionHandler := handler.NewAuctionHandler(biddingSvc, submissionSvc, settlementSvc, gate, dispatcher, store)
	return &TestEnv{
		Router: server.SetupRouter(auctionHandler, gate),
		Store:  store,
	}
}

// Do executes a request as the given actor and parses the JSON envelope.
func (e *TestEnv) Do(t *testing.T, method, url, actorID string, body any) (map[string]any, *httptest.ResponseRecorder) {
	t.Helper()

	var reqBody []byte
	switch v := body.(type) {
	case nil:
	case []byte:
		reqBody = v
	case string:
		reqBody = []byte(v)
	default:
		var err error
		reqBody, err = json.Marshal(v)
		if err != nil {
			t.Fatalf("failed to marshal body: %v", err)
		}
	}

	req := httptest.NewRequest(method, url, bytes.NewReader(reqBody))
	req.Header.Set("Content-Type", "application/json")
	if actorID != "" {
		req.Header.Set("X-Actor-ID", actorID)
		req.Header.Set("X-Actor-Name", "Name of "+actorID)
	}

	w := httptest.NewRecorder()
	e.Router.ServeHTTP(w, req)

	var resp map[string]any
	if len(w.Body.Bytes()) > 0 {
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("failed to unmarshal response: %v", err)
		}
	}
	return resp, w
}

// Data unwraps the data field of a response envelope as an object.
func Data(t *testing.T, resp map[string]any) map[string]any {
	t.Helper()
	data, ok := resp["data"].(map[string]any)
	if !ok {
		t.Fatalf("response has no object data: %v", resp)
	}
	return data
}
