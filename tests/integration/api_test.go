package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"salvage-auction-engine/internal/adapter/broadcast"
	httpHandler "salvage-auction-engine/internal/adapter/http/handler"
	"salvage-auction-engine/internal/adapter/notify"
	redisStorage "salvage-auction-engine/internal/adapter/storage/redis"
	"salvage-auction-engine/internal/core/domain"
	"salvage-auction-engine/internal/core/ports"
	"salvage-auction-engine/internal/service"
	"salvage-auction-engine/pkg/logger"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSchedulerSecret = "test-sweep-secret"

// testApp builds a full application stack on in-memory Redis (miniredis) and
// in-memory postgres repos. This exercises the real HTTP layer, middleware,
// handlers, services, and Redis stores end-to-end.

type testApp struct {
	server *httptest.Server
	redis  *miniredis.Miniredis
	cancel context.CancelFunc

	vendorRepo  *inMemoryVendorRepo
	auctionRepo *inMemoryAuctionRepo
	bidRepo     *inMemoryBidRepo
	paymentRepo *inMemoryPaymentRepo
	walletRepo  *inMemoryWalletRepo
	txRepo      *inMemoryTransactionRepo
	hashSvc     ports.HashService
	walletSvc   ports.WalletService
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)

	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})

	// Redis stores
	idempotencyCache := redisStorage.NewIdempotencyCache(rdb)
	otpStore := redisStorage.NewOTPStore(rdb)
	presenceStore := redisStorage.NewPresenceStore(rdb)
	rateLimitStore := redisStorage.NewRateLimitStore(rdb)

	// In-memory repos
	vendorRepo := newInMemoryVendorRepo()
	auctionRepo := newInMemoryAuctionRepo()
	bidRepo := newInMemoryBidRepo()
	paymentRepo := newInMemoryPaymentRepo()
	walletRepo := newInMemoryWalletRepo()
	txRepo := newInMemoryTransactionRepo()
	idempotencyRepo := newInMemoryIdempotencyRepo()
	auditRepo := newInMemoryAuditRepo()
	transactor := newSerializingTransactor()

	log := logger.New("debug", false)

	ctx, cancel := context.WithCancel(context.Background())
	hub := broadcast.NewHub(log)
	go hub.Run(ctx)
	bridge := broadcast.NewRedisBridge(rdb, hub, log)
	go bridge.Run(ctx)

	// Empty gateway URL disables outbound delivery.
	notifier := notify.NewHTTPNotifier("", "", &http.Client{Timeout: time.Second}, log)

	hashSvc := service.NewArgon2HashService()
	tokenSvc := service.NewJWTTokenService("test-jwt-secret-key-32bytes!!", 24*time.Hour, "test-issuer")
	auditSvc := service.NewAuditService(auditRepo, log)
	otpSvc := service.NewOTPService(otpStore, rateLimitStore, notifier, log)

	authSvc := service.NewAuthService(vendorRepo, hashSvc, tokenSvc)
	walletSvc := service.NewWalletService(walletRepo, txRepo, idempotencyRepo, idempotencyCache, auditSvc, transactor, log)
	presenceSvc := service.NewPresenceService(presenceStore, bridge, 0, log)
	extensionCtrl := service.NewExtensionController(auctionRepo, auditSvc, 5*time.Minute, 2*time.Minute, log)
	biddingSvc := service.NewBiddingService(auctionRepo, bidRepo, vendorRepo, walletRepo, otpSvc, extensionCtrl, bridge, notifier, auditSvc, 50_000_000, log)
	closureSvc := service.NewClosureService(auctionRepo, bidRepo, paymentRepo, walletSvc, presenceSvc, bridge, notifier, auditSvc, transactor, 24*time.Hour, log)
	deadlineSvc := service.NewDeadlineService(paymentRepo, vendorRepo, auctionRepo, walletSvc, notifier, auditSvc, 72*time.Hour, log)

	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		AuthSvc:         authSvc,
		OTPSvc:          otpSvc,
		BiddingSvc:      biddingSvc,
		WalletSvc:       walletSvc,
		PresenceSvc:     presenceSvc,
		ClosureSvc:      closureSvc,
		DeadlineSvc:     deadlineSvc,
		AuctionRepo:     auctionRepo,
		BidRepo:         bidRepo,
		TokenSvc:        tokenSvc,
		Hub:             hub,
		SchedulerSecret: testSchedulerSecret,
		HealthCheckers:  []ports.HealthChecker{redisStorage.NewHealthCheck(rdb)},
		Logger:          log,
	})

	server := httptest.NewServer(router)

	return &testApp{
		server:      server,
		redis:       mr,
		cancel:      cancel,
		vendorRepo:  vendorRepo,
		auctionRepo: auctionRepo,
		bidRepo:     bidRepo,
		paymentRepo: paymentRepo,
		walletRepo:  walletRepo,
		txRepo:      txRepo,
		hashSvc:     hashSvc,
		walletSvc:   walletSvc,
	}
}

func (a *testApp) close() {
	a.cancel()
	a.server.Close()
	a.redis.Close()
}

// --- Seeding helpers ---

func (a *testApp) seedVendor(t *testing.T, phone, password string, tier domain.VendorTier) *domain.Vendor {
	t.Helper()
	hash, err := a.hashSvc.Hash(password)
	require.NoError(t, err)
	now := time.Now().UTC()
	vendor := &domain.Vendor{
		ID:           uuid.New(),
		Phone:        phone,
		Name:         "Vendor " + phone,
		PasswordHash: hash,
		Tier:         tier,
		Status:       domain.VendorStatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	a.vendorRepo.add(vendor)
	return vendor
}

func (a *testApp) seedWallet(t *testing.T, vendorID uuid.UUID, available, frozen int64) *domain.Wallet {
	t.Helper()
	now := time.Now().UTC()
	wallet := &domain.Wallet{
		ID:        uuid.New(),
		VendorID:  vendorID,
		Balance:   available + frozen,
		Available: available,
		Frozen:    frozen,
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, wallet.CheckInvariant())
	require.NoError(t, a.walletRepo.Create(context.Background(), wallet))
	return wallet
}

func (a *testApp) seedAuction(t *testing.T, caseRef string, minIncrement int64, endsIn time.Duration) *domain.Auction {
	t.Helper()
	now := time.Now().UTC()
	auction := &domain.Auction{
		ID:              uuid.New(),
		CaseRef:         caseRef,
		StartTime:       now.Add(-time.Hour),
		EndTime:         now.Add(endsIn),
		OriginalEndTime: now.Add(endsIn),
		MinIncrement:    minIncrement,
		Status:          domain.AuctionStatusActive,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	require.NoError(t, a.auctionRepo.Create(context.Background(), auction))
	return auction
}

// --- HTTP helpers ---

func postJSON(t *testing.T, url, token string, body any) *http.Response {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(payload))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func getJSON(t *testing.T, url, token string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, url, nil)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func postSweep(t *testing.T, url, secret string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, url, nil)
	require.NoError(t, err)
	if secret != "" {
		req.Header.Set("X-Scheduler-Secret", secret)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	defer resp.Body.Close()
	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

func dataOf(t *testing.T, body map[string]interface{}) map[string]interface{} {
	t.Helper()
	data, ok := body["data"].(map[string]interface{})
	require.True(t, ok, "response has no data object: %v", body)
	return data
}

func (a *testApp) login(t *testing.T, phone, password string) string {
	t.Helper()
	resp := postJSON(t, a.server.URL+"/api/v1/auth/login", "", map[string]string{
		"phone":    phone,
		"password": password,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	data := dataOf(t, decodeBody(t, resp))
	token, _ := data["token"].(string)
	require.NotEmpty(t, token)
	return token
}

// requestOTP triggers code issuance via the API and reads the code straight
// out of miniredis, standing in for the SMS delivery leg.
func (a *testApp) requestOTP(t *testing.T, phone string) string {
	t.Helper()
	resp := postJSON(t, a.server.URL+"/api/v1/auth/otp", "", map[string]string{"phone": phone})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
	code := a.redis.HGet("otp:"+phone, "code")
	require.Len(t, code, 6)
	return code
}

// --- Integration Tests ---

func TestIntegration_HealthCheck(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	resp, err := http.Get(app.server.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "healthy", body["status"])
}

func TestIntegration_LoginAndGetWallet(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	vendor := app.seedVendor(t, "+84901000001", "StrongPass123!", domain.TierTwo)
	app.seedWallet(t, vendor.ID, 500000, 100000)

	token := app.login(t, "+84901000001", "StrongPass123!")

	resp := getJSON(t, app.server.URL+"/api/v1/wallet", token)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	data := dataOf(t, decodeBody(t, resp))
	assert.Equal(t, float64(600000), data["balance"])
	assert.Equal(t, float64(500000), data["available"])
	assert.Equal(t, float64(100000), data["frozen"])
}

func TestIntegration_LoginWrongCredentials(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	app.seedVendor(t, "+84901000002", "StrongPass123!", domain.TierTwo)

	resp := postJSON(t, app.server.URL+"/api/v1/auth/login", "", map[string]string{
		"phone":    "+84901000002",
		"password": "wrong",
	})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestIntegration_WalletRequiresAuth(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	resp := getJSON(t, app.server.URL+"/api/v1/wallet", "")
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestIntegration_DepositAndLedger(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	vendor := app.seedVendor(t, "+84901000003", "StrongPass123!", domain.TierTwo)
	app.seedWallet(t, vendor.ID, 0, 0)
	token := app.login(t, "+84901000003", "StrongPass123!")

	depositBody := map[string]interface{}{
		"amount":       int64(500000),
		"reference_id": "PAY-REF-1001",
	}
	resp := postJSON(t, app.server.URL+"/api/v1/wallet/deposits", token, depositBody)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	data := dataOf(t, decodeBody(t, resp))
	assert.Equal(t, "CREDIT", data["type"])
	assert.Equal(t, float64(500000), data["balance_after"])
	firstTxID := data["id"]

	// The payment callback retries; the replay must return the original
	// transaction without crediting twice.
	resp2 := postJSON(t, app.server.URL+"/api/v1/wallet/deposits", token, depositBody)
	require.Equal(t, http.StatusCreated, resp2.StatusCode)
	data2 := dataOf(t, decodeBody(t, resp2))
	assert.Equal(t, firstTxID, data2["id"])

	respBal := getJSON(t, app.server.URL+"/api/v1/wallet", token)
	balData := dataOf(t, decodeBody(t, respBal))
	assert.Equal(t, float64(500000), balData["balance"])

	respTx := getJSON(t, app.server.URL+"/api/v1/wallet/transactions?page=1&page_size=10", token)
	assert.Equal(t, http.StatusOK, respTx.StatusCode)
	txData := dataOf(t, decodeBody(t, respTx))
	assert.Equal(t, float64(1), txData["total"])
	items := txData["items"].([]interface{})
	require.Len(t, items, 1)
	entry := items[0].(map[string]interface{})
	assert.Equal(t, "PAY-REF-1001", entry["reference_id"])
}

func TestIntegration_AuctionListAndDetail(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	auction := app.seedAuction(t, "CASE-5521", 10000, time.Hour)

	respList := getJSON(t, app.server.URL+"/api/v1/auctions", "")
	assert.Equal(t, http.StatusOK, respList.StatusCode)
	listBody := decodeBody(t, respList)
	listData := listBody["data"].([]interface{})
	require.Len(t, listData, 1)
	first := listData[0].(map[string]interface{})
	assert.Equal(t, "CASE-5521", first["case_ref"])
	assert.Equal(t, float64(10000), first["min_next_bid"])

	respGet := getJSON(t, app.server.URL+"/api/v1/auctions/"+auction.ID.String(), "")
	assert.Equal(t, http.StatusOK, respGet.StatusCode)
	detail := dataOf(t, decodeBody(t, respGet))
	assert.Equal(t, "ACTIVE", detail["status"])
	assert.Greater(t, detail["closes_in_seconds"], float64(0))

	respMissing := getJSON(t, app.server.URL+"/api/v1/auctions/"+uuid.NewString(), "")
	defer respMissing.Body.Close()
	assert.Equal(t, http.StatusNotFound, respMissing.StatusCode)
}

func TestIntegration_BidEndToEnd(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	vendor := app.seedVendor(t, "+84901000004", "StrongPass123!", domain.TierTwo)
	app.seedWallet(t, vendor.ID, 10_000_000, 0)
	auction := app.seedAuction(t, "CASE-7001", 10000, time.Hour)

	token := app.login(t, "+84901000004", "StrongPass123!")
	code := app.requestOTP(t, "+84901000004")

	resp := postJSON(t, app.server.URL+"/api/v1/auctions/"+auction.ID.String()+"/bids", token, map[string]interface{}{
		"amount":   int64(150000),
		"otp_code": code,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	data := dataOf(t, decodeBody(t, resp))
	assert.Equal(t, float64(150000), data["amount"])
	assert.Equal(t, float64(160000), data["min_next_bid"])
	assert.NotEmpty(t, data["bid_id"])

	// The accepted bid is visible on the public detail view.
	respGet := getJSON(t, app.server.URL+"/api/v1/auctions/"+auction.ID.String(), "")
	detail := dataOf(t, decodeBody(t, respGet))
	assert.Equal(t, float64(150000), detail["current_bid"])
	assert.Equal(t, float64(160000), detail["min_next_bid"])

	// A second bid below the new minimum is rejected with the live floor.
	code2 := app.requestOTP(t, "+84901000004")
	respLow := postJSON(t, app.server.URL+"/api/v1/auctions/"+auction.ID.String()+"/bids", token, map[string]interface{}{
		"amount":   int64(155000),
		"otp_code": code2,
	})
	assert.Equal(t, http.StatusUnprocessableEntity, respLow.StatusCode)
	lowBody := decodeBody(t, respLow)
	assert.Equal(t, "BID_002", lowBody["error_code"])
}

func TestIntegration_BidRejectsBadOTP(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	vendor := app.seedVendor(t, "+84901000005", "StrongPass123!", domain.TierTwo)
	app.seedWallet(t, vendor.ID, 10_000_000, 0)
	auction := app.seedAuction(t, "CASE-7002", 10000, time.Hour)
	token := app.login(t, "+84901000005", "StrongPass123!")

	// No code was ever issued for this phone.
	resp := postJSON(t, app.server.URL+"/api/v1/auctions/"+auction.ID.String()+"/bids", token, map[string]interface{}{
		"amount":   int64(150000),
		"otp_code": "000000",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Equal(t, "OTP_001", body["error_code"])
	assert.Equal(t, 0, app.bidRepo.count(auction.ID))
}

func TestIntegration_TierOneCeiling(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	vendor := app.seedVendor(t, "+84901000006", "StrongPass123!", domain.TierOne)
	app.seedWallet(t, vendor.ID, 100_000_000, 0)
	auction := app.seedAuction(t, "CASE-7003", 10000, time.Hour)
	token := app.login(t, "+84901000006", "StrongPass123!")
	code := app.requestOTP(t, "+84901000006")

	resp := postJSON(t, app.server.URL+"/api/v1/auctions/"+auction.ID.String()+"/bids", token, map[string]interface{}{
		"amount":   int64(60_000_000),
		"otp_code": code,
	})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Equal(t, "BID_003", body["error_code"])
}

func TestIntegration_BidInsufficientFunds(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	vendor := app.seedVendor(t, "+84901000007", "StrongPass123!", domain.TierTwo)
	app.seedWallet(t, vendor.ID, 1000, 0)
	auction := app.seedAuction(t, "CASE-7004", 10000, time.Hour)
	token := app.login(t, "+84901000007", "StrongPass123!")
	code := app.requestOTP(t, "+84901000007")

	resp := postJSON(t, app.server.URL+"/api/v1/auctions/"+auction.ID.String()+"/bids", token, map[string]interface{}{
		"amount":   int64(50000),
		"otp_code": code,
	})
	assert.Equal(t, http.StatusPaymentRequired, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Equal(t, "WAL_001", body["error_code"])
}

func TestIntegration_AntiSnipeExtension(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	vendor := app.seedVendor(t, "+84901000008", "StrongPass123!", domain.TierTwo)
	app.seedWallet(t, vendor.ID, 10_000_000, 0)
	// Ends inside the anti-snipe window with less time left than the
	// guaranteed runway, so the bid must push the end out.
	auction := app.seedAuction(t, "CASE-7005", 10000, 90*time.Second)
	originalEnd := auction.EndTime

	token := app.login(t, "+84901000008", "StrongPass123!")
	code := app.requestOTP(t, "+84901000008")

	resp := postJSON(t, app.server.URL+"/api/v1/auctions/"+auction.ID.String()+"/bids", token, map[string]interface{}{
		"amount":   int64(20000),
		"otp_code": code,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	data := dataOf(t, decodeBody(t, resp))
	assert.Equal(t, true, data["extended"])

	stored, err := app.auctionRepo.GetByID(context.Background(), auction.ID)
	require.NoError(t, err)
	assert.True(t, stored.EndTime.After(originalEnd))
	assert.Equal(t, 1, stored.ExtensionCount)
}

func TestIntegration_ClosureSweep(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	winner := app.seedVendor(t, "+84901000009", "StrongPass123!", domain.TierTwo)
	app.seedWallet(t, winner.ID, 1_000_000, 0)

	// Expired auction with a standing high bid.
	auction := app.seedAuction(t, "CASE-8001", 10000, -time.Minute)
	amount := int64(300000)
	swapped, err := app.auctionRepo.CompareAndSwapBid(context.Background(), auction.ID, winner.ID, amount, 0)
	require.NoError(t, err)
	require.True(t, swapped)
	require.NoError(t, app.bidRepo.Append(context.Background(), &domain.Bid{
		ID:         uuid.New(),
		AuctionID:  auction.ID,
		VendorID:   winner.ID,
		Amount:     amount,
		AcceptedAt: time.Now().UTC(),
	}))

	// Missing scheduler secret is rejected outright.
	respNoAuth := postSweep(t, app.server.URL+"/internal/sweeps/closure", "")
	assert.Equal(t, http.StatusUnauthorized, respNoAuth.StatusCode)
	respNoAuth.Body.Close()

	resp := postSweep(t, app.server.URL+"/internal/sweeps/closure", testSchedulerSecret)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	data := dataOf(t, decodeBody(t, resp))
	assert.Equal(t, float64(1), data["closed"])

	stored, err := app.auctionRepo.GetByID(context.Background(), auction.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.AuctionStatusClosed, stored.Status)

	payment, err := app.paymentRepo.GetOpenByAuction(context.Background(), auction.ID)
	require.NoError(t, err)
	require.NotNil(t, payment)
	assert.Equal(t, domain.PaymentStatusPending, payment.Status)
	assert.Equal(t, amount, payment.Amount)
	assert.True(t, payment.FundsFrozen)

	// The settlement hold landed on the winner's wallet.
	wallet, err := app.walletRepo.GetByVendorID(context.Background(), winner.ID)
	require.NoError(t, err)
	assert.Equal(t, amount, wallet.Frozen)
	assert.Equal(t, int64(700000), wallet.Available)
	require.NoError(t, wallet.CheckInvariant())

	// Re-running the sweep is a no-op.
	respAgain := postSweep(t, app.server.URL+"/internal/sweeps/closure", testSchedulerSecret)
	require.Equal(t, http.StatusOK, respAgain.StatusCode)
	dataAgain := dataOf(t, decodeBody(t, respAgain))
	assert.Nil(t, dataAgain["closed"])
}

func TestIntegration_DeadlineSweep_Forfeit(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	vendor := app.seedVendor(t, "+84901000010", "StrongPass123!", domain.TierTwo)
	amount := int64(400000)
	app.seedWallet(t, vendor.ID, 100000, amount)

	auction := app.seedAuction(t, "CASE-8002", 10000, -80*time.Hour)
	_, err := app.auctionRepo.Close(context.Background(), nil, auction.ID)
	require.NoError(t, err)

	now := time.Now().UTC()
	require.NoError(t, app.paymentRepo.Create(context.Background(), nil, &domain.PaymentObligation{
		ID:          uuid.New(),
		AuctionID:   auction.ID,
		VendorID:    vendor.ID,
		Amount:      amount,
		Status:      domain.PaymentStatusOverdue,
		Deadline:    now.Add(-49 * time.Hour),
		FundsFrozen: true,
		CreatedAt:   now.Add(-73 * time.Hour),
		UpdatedAt:   now.Add(-25 * time.Hour),
	}))

	resp := postSweep(t, app.server.URL+"/internal/sweeps/deadlines", testSchedulerSecret)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	data := dataOf(t, decodeBody(t, resp))
	assert.Equal(t, float64(1), data["forfeited"])
	assert.Equal(t, float64(1), data["vendors_suspended"])
	assert.Equal(t, float64(1), data["holds_released"])

	// The hold is released; forfeiture costs standing, not money.
	wallet, err := app.walletRepo.GetByVendorID(context.Background(), vendor.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), wallet.Frozen)
	assert.Equal(t, int64(500000), wallet.Available)
	require.NoError(t, wallet.CheckInvariant())

	// The obligation no longer claims funds it does not hold.
	obligations, err := app.paymentRepo.ListForfeitedWithHeldFunds(context.Background())
	require.NoError(t, err)
	assert.Empty(t, obligations)

	stored, err := app.vendorRepo.GetByID(context.Background(), vendor.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.VendorStatusSuspended, stored.Status)
	require.NotNil(t, stored.SuspendedUntil)

	// The case went back on the block as a fresh auction.
	active, err := app.auctionRepo.ListActive(context.Background())
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "CASE-8002", active[0].CaseRef)
	assert.NotEqual(t, auction.ID, active[0].ID)
	assert.Nil(t, active[0].CurrentBid)

	// The suspended vendor is locked out at login.
	respLogin := postJSON(t, app.server.URL+"/api/v1/auth/login", "", map[string]string{
		"phone":    "+84901000010",
		"password": "StrongPass123!",
	})
	assert.Equal(t, http.StatusForbidden, respLogin.StatusCode)
	loginBody := decodeBody(t, respLogin)
	assert.Equal(t, "AUTH_003", loginBody["error_code"])
}
