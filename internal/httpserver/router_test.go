package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"storefront/internal/domain"
	"storefront/internal/payment"
	"storefront/internal/repository/kv"
	orderrepo "storefront/internal/repository/order"
	productrepo "storefront/internal/repository/product"
	"storefront/internal/service/admin"
	cartsvc "storefront/internal/service/cart"
	ordersvc "storefront/internal/service/order"
	"storefront/internal/watermark"
)

const testSession = "6f1c2a8e-0d4b-4b57-9a55-3b7f3e0f4b21"

func logDiscard() *log.Logger {
	return log.New(io.Discard, "", 0)
}

type stubProductService struct {
	products []domain.Product
	updates  []productrepo.PriceUpdate
	uploaded string
}

func (s *stubProductService) List(_ context.Context) ([]domain.Product, error) {
	return s.products, nil
}

func (s *stubProductService) UpdatePrice(ctx context.Context, name string, price int64) error {
	return s.UpdatePrices(ctx, []productrepo.PriceUpdate{{Name: name, Price: price}})
}

func (s *stubProductService) UpdatePrices(_ context.Context, updates []productrepo.PriceUpdate) error {
	for _, u := range updates {
		if u.Price <= 0 {
			return domain.ErrInvalidInput
		}
		found := false
		for i := range s.products {
			if s.products[i].Name == u.Name {
				s.products[i].Price = u.Price
				found = true
			}
		}
		if !found {
			return domain.ErrNotFound
		}
	}
	s.updates = append(s.updates, updates...)
	return nil
}

func (s *stubProductService) Upload(_ context.Context, text string) ([]domain.UploadedProduct, error) {
	s.uploaded = text
	return []domain.UploadedProduct{{Name: "Ghee", Category: "Dairy", Unit: "1kg", Price: 600}}, nil
}

type stubCategories struct{}

func (stubCategories) List(_ context.Context) ([]domain.Category, error) {
	return []domain.Category{{Name: "Dairy", ProductCount: 2, MinPrice: 40, MaxPrice: 50}}, nil
}

type stubOrderRepo struct {
	orders []domain.Order
}

func (s *stubOrderRepo) Create(_ context.Context, in orderrepo.CreateInput) (*domain.Order, error) {
	o := domain.Order{
		ID:           int64(len(s.orders) + 1),
		CustomerName: in.CustomerName,
		PhoneNumber:  in.PhoneNumber,
		Address:      in.Address,
		Notes:        in.Notes,
		TotalAmount:  150,
		Timestamp:    time.Now().UnixNano(),
		Items:        in.Items,
	}
	s.orders = append(s.orders, o)
	return &o, nil
}

func (s *stubOrderRepo) GetByID(_ context.Context, id int64) (*domain.Order, error) {
	for i := range s.orders {
		if s.orders[i].ID == id {
			return &s.orders[i], nil
		}
	}
	return nil, domain.ErrNotFound
}

func (s *stubOrderRepo) List(_ context.Context) ([]domain.Order, error) {
	return append([]domain.Order(nil), s.orders...), nil
}

type testEnv struct {
	router   *gin.Engine
	products *stubProductService
	orders   *stubOrderRepo
	token    string
}

func newTestEnv(t *testing.T, dir payment.Directory) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	products := &stubProductService{products: []domain.Product{
		{Name: "Milk", Category: "Dairy", Unit: "1L", Price: 50},
		{Name: "Curd", Category: "Dairy", Unit: "500g", Price: 40},
	}}
	orders := &stubOrderRepo{}
	carts := cartsvc.New(kv.NewMemory(), products, nil)
	orderSvc := ordersvc.New(orders, carts, products, dir, watermark.New(kv.NewMemory(), nil), nil)
	tokens := admin.NewTokenManager("test-secret")
	token, _, err := tokens.Issue("tester", time.Hour)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	router, err := buildRouter(logDiscard(), nil, Deps{
		ProductSvc:            products,
		CategorySvc:           stubCategories{},
		CartSvc:               carts,
		OrderSvc:              orderSvc,
		Tokens:                tokens,
		CheckoutRatePerMinute: 600,
	})
	if err != nil {
		t.Fatalf("build router: %v", err)
	}
	return &testEnv{router: router, products: products, orders: orders, token: token}
}

func (e *testEnv) do(method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) cart(method, path, body string) *httptest.ResponseRecorder {
	return e.do(method, path, body, map[string]string{cartSessionHeader: testSession})
}

func (e *testEnv) admin(method, path, body string) *httptest.ResponseRecorder {
	return e.do(method, path, body, map[string]string{"Authorization": "Bearer " + e.token})
}

func TestBuildRouterRequiresServices(t *testing.T) {
	if _, err := buildRouter(logDiscard(), nil, Deps{}); err == nil {
		t.Fatalf("expected error for missing deps")
	}
}

func TestHealthAndReady(t *testing.T) {
	env := newTestEnv(t, payment.DefaultDirectory("DAIRY FIELD"))
	if rec := env.do(http.MethodGet, "/healthz", "", nil); rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec := env.do(http.MethodGet, "/readyz", "", nil); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 without db, got %d", rec.Code)
	}
}

func TestListProductsFiltersCategory(t *testing.T) {
	env := newTestEnv(t, payment.DefaultDirectory("DAIRY FIELD"))
	env.products.products = append(env.products.products, domain.Product{Name: "Honey", Category: "Pantry", Unit: "250g", Price: 120})

	rec := env.do(http.MethodGet, "/products?category=pantry", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body struct {
		Products []domain.Product `json:"products"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Products) != 1 || body.Products[0].Name != "Honey" {
		t.Fatalf("unexpected products: %+v", body.Products)
	}
}

func TestListCategories(t *testing.T) {
	env := newTestEnv(t, payment.DefaultDirectory("DAIRY FIELD"))
	rec := env.do(http.MethodGet, "/categories", "", nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"productCount":2`) {
		t.Fatalf("unexpected categories %d %s", rec.Code, rec.Body.String())
	}
}

func TestCartSessionIsMintedAndEchoed(t *testing.T) {
	env := newTestEnv(t, payment.DefaultDirectory("DAIRY FIELD"))
	rec := env.do(http.MethodGet, "/cart", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rec.Code, rec.Body.String())
	}
	if rec.Header().Get(cartSessionHeader) == "" {
		t.Fatalf("expected minted session header")
	}

	rec = env.do(http.MethodGet, "/cart", "", map[string]string{cartSessionHeader: "bogus"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad session, got %d", rec.Code)
	}
}

func TestCartFlowAndPricedView(t *testing.T) {
	env := newTestEnv(t, payment.DefaultDirectory("DAIRY FIELD"))

	for i := 0; i < 2; i++ {
		if rec := env.cart(http.MethodPost, "/cart/items", `{"productName":"Milk"}`); rec.Code != http.StatusOK {
			t.Fatalf("add: expected 200, got %d body=%s", rec.Code, rec.Body.String())
		}
	}
	if rec := env.cart(http.MethodPost, "/cart/items", `{"productName":"Ghee"}`); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown product, got %d", rec.Code)
	}
	rec := env.cart(http.MethodPatch, "/cart/items/Milk", `{"quantity":3}`)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"count":3`) {
		t.Fatalf("unexpected update response %d %s", rec.Code, rec.Body.String())
	}

	env.products.products[0].Price = 60
	rec = env.cart(http.MethodGet, "/cart/priced", "")
	var priced struct {
		Reconciliation domain.Reconciliation `json:"reconciliation"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &priced); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if priced.Reconciliation.Total != 180 || priced.Reconciliation.HasMissingLines {
		t.Fatalf("unexpected reconciliation %+v", priced.Reconciliation)
	}

	if rec := env.cart(http.MethodDelete, "/cart/items/Milk", ""); !strings.Contains(rec.Body.String(), `"count":0`) {
		t.Fatalf("expected empty cart after remove, got %s", rec.Body.String())
	}
	if rec := env.cart(http.MethodDelete, "/cart", ""); rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
}

func TestCheckoutCreatesAnnotatedOrder(t *testing.T) {
	env := newTestEnv(t, payment.DefaultDirectory("DAIRY FIELD"))
	env.cart(http.MethodPost, "/cart/items", `{"productName":"Milk"}`)

	body := `{"customerName":"Asha","phoneNumber":"9876543210","address":"12 Lake Road","notes":"Ring twice","payment":{"transactionRef":"4242","flow":"qr"}}`
	rec := env.cart(http.MethodPost, "/checkout", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d body=%s", rec.Code, rec.Body.String())
	}
	if len(env.orders.orders) != 1 {
		t.Fatalf("expected one order")
	}

	rec = env.do(http.MethodGet, "/orders/1", "", nil)
	var view struct {
		UserNotes string `json:"userNotes"`
		Payment   *struct {
			Method         string `json:"method"`
			TransactionRef string `json:"transactionRef"`
		} `json:"payment"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &view); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if view.UserNotes != "Ring twice" || view.Payment == nil || view.Payment.TransactionRef != "4242" || view.Payment.Method != "Google Pay" {
		t.Fatalf("unexpected view %s", rec.Body.String())
	}

	if rec := env.cart(http.MethodPost, "/checkout", body); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for emptied cart, got %d", rec.Code)
	}
}

func TestCheckoutErrors(t *testing.T) {
	env := newTestEnv(t, payment.DefaultDirectory("DAIRY FIELD"))
	env.cart(http.MethodPost, "/cart/items", `{"productName":"Curd"}`)

	rec := env.cart(http.MethodPost, "/checkout", `{"customerName":"","phoneNumber":"123","address":""}`)
	if rec.Code != http.StatusBadRequest || !strings.Contains(rec.Body.String(), "phoneNumber") {
		t.Fatalf("expected validation 400, got %d %s", rec.Code, rec.Body.String())
	}

	env.products.products = env.products.products[:1]
	rec = env.cart(http.MethodPost, "/checkout", `{"customerName":"Asha","phoneNumber":"9876543210","address":"x"}`)
	if rec.Code != http.StatusConflict || !strings.Contains(rec.Body.String(), `"isMissing":true`) {
		t.Fatalf("expected 409 with reconciliation, got %d %s", rec.Code, rec.Body.String())
	}
}

func TestCheckoutRateLimited(t *testing.T) {
	gin.SetMode(gin.TestMode)
	products := &stubProductService{}
	carts := cartsvc.New(kv.NewMemory(), products, nil)
	orderSvc := ordersvc.New(&stubOrderRepo{}, carts, products, payment.Directory{}, watermark.New(kv.NewMemory(), nil), nil)
	router, err := buildRouter(logDiscard(), nil, Deps{
		ProductSvc:            products,
		CategorySvc:           stubCategories{},
		CartSvc:               carts,
		OrderSvc:              orderSvc,
		Tokens:                admin.NewTokenManager("x"),
		CheckoutRatePerMinute: 1,
	})
	if err != nil {
		t.Fatalf("build router: %v", err)
	}
	codes := make([]int, 0, 2)
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/checkout", strings.NewReader(`{}`))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set(cartSessionHeader, testSession)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	if codes[0] == http.StatusTooManyRequests || codes[1] != http.StatusTooManyRequests {
		t.Fatalf("expected second call limited, got %v", codes)
	}
}

func TestPaymentEndpoints(t *testing.T) {
	env := newTestEnv(t, payment.DefaultDirectory("DAIRY FIELD"))

	rec := env.do(http.MethodGet, "/payment/config", "", nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"configured":true`) || !strings.Contains(rec.Body.String(), `"defaultPayeeId":"gpay-phone"`) {
		t.Fatalf("unexpected config %d %s", rec.Code, rec.Body.String())
	}

	rec = env.do(http.MethodGet, "/payment/intent?amount=150", "", nil)
	var intent payment.Intent
	if err := json.Unmarshal(rec.Body.Bytes(), &intent); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if intent.URI != "upi://pay?pa=9494237076%40paytm&pn=DAIRY+FIELD&am=150&cu=INR&tn=DAIRY+FIELD+Order" {
		t.Fatalf("unexpected uri %s", intent.URI)
	}

	if rec := env.do(http.MethodGet, "/payment/intent?amount=0", "", nil); rec.Code != http.StatusBadRequest || !strings.Contains(rec.Body.String(), `"field":"amount"`) {
		t.Fatalf("expected 400 naming the amount field, got %d %s", rec.Code, rec.Body.String())
	}
	if rec := env.do(http.MethodGet, "/payment/intent?amount=abc", "", nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad amount, got %d", rec.Code)
	}

	rec = env.do(http.MethodGet, "/payment/qr.png?amount=150", "", nil)
	if rec.Code != http.StatusOK || rec.Header().Get("Content-Type") != "image/png" {
		t.Fatalf("unexpected qr response %d %s", rec.Code, rec.Header().Get("Content-Type"))
	}
	if !bytes.HasPrefix(rec.Body.Bytes(), []byte("\x89PNG")) {
		t.Fatalf("expected png signature")
	}
}

func TestPaymentUnavailable(t *testing.T) {
	env := newTestEnv(t, payment.Directory{MerchantName: "DAIRY FIELD"})
	if rec := env.do(http.MethodGet, "/payment/intent?amount=150", "", nil); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}

func TestPaymentMisconfiguredPayeeIsUnavailable(t *testing.T) {
	env := newTestEnv(t, payment.Directory{
		MerchantName: "DAIRY FIELD",
		Payees:       []payment.PayeeEndpoint{{ID: "bad", Kind: payment.AddressLinked, Value: "no-at-sign"}},
	})
	if rec := env.do(http.MethodGet, "/payment/intent?amount=150", "", nil); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}

func TestCartQuantityAboveCapRejected(t *testing.T) {
	env := newTestEnv(t, payment.DefaultDirectory("DAIRY FIELD"))
	env.cart(http.MethodPost, "/cart/items", `{"productName":"Milk"}`)
	if rec := env.cart(http.MethodPatch, "/cart/items/Milk", `{"quantity":4611686018427387904}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d %s", rec.Code, rec.Body.String())
	}
	rec := env.cart(http.MethodGet, "/cart", "")
	if !strings.Contains(rec.Body.String(), `"count":1`) {
		t.Fatalf("quantity must be unchanged, got %s", rec.Body.String())
	}
}

func TestAdminRequiresToken(t *testing.T) {
	env := newTestEnv(t, payment.DefaultDirectory("DAIRY FIELD"))
	if rec := env.do(http.MethodGet, "/admin/orders", "", nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if rec := env.do(http.MethodGet, "/admin/orders", "", map[string]string{"Authorization": "Bearer nope"}); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if rec := env.do(http.MethodGet, "/admin/orders", "", map[string]string{"Authorization": "Basic abc"}); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestAdminOrderFeed(t *testing.T) {
	env := newTestEnv(t, payment.DefaultDirectory("DAIRY FIELD"))
	env.cart(http.MethodPost, "/cart/items", `{"productName":"Milk"}`)
	env.cart(http.MethodPost, "/checkout", `{"customerName":"Asha","phoneNumber":"9876543210","address":"12 Lake Road"}`)

	rec := env.admin(http.MethodGet, "/admin/orders", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"newCount":1`) {
		t.Fatalf("unexpected feed %d %s", rec.Code, rec.Body.String())
	}
	if rec := env.admin(http.MethodPost, "/admin/orders/seen", ""); rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	rec = env.admin(http.MethodGet, "/admin/orders", "")
	if !strings.Contains(rec.Body.String(), `"newCount":0`) {
		t.Fatalf("expected 0 new, got %s", rec.Body.String())
	}
	if rec := env.admin(http.MethodDelete, "/admin/orders/seen", ""); rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}

	rec = env.admin(http.MethodGet, "/admin/orders/1/pickup-note", "")
	want := "DAIRY FIELD Order Pickup\nOrder ID: #1\nCustomer Phone: 9876543210\nDelivery Address: 12 Lake Road\nItems: Milk x 1"
	if rec.Code != http.StatusOK || rec.Body.String() != want {
		t.Fatalf("unexpected pickup note %d %q", rec.Code, rec.Body.String())
	}
	if rec := env.admin(http.MethodGet, "/admin/orders/99/pickup-note", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if rec := env.admin(http.MethodGet, "/admin/orders/abc/pickup-note", ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestAdminPrices(t *testing.T) {
	env := newTestEnv(t, payment.DefaultDirectory("DAIRY FIELD"))
	if rec := env.admin(http.MethodPut, "/admin/products/Milk/price", `{"price":55}`); rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d %s", rec.Code, rec.Body.String())
	}
	if env.products.products[0].Price != 55 {
		t.Fatalf("expected price 55, got %d", env.products.products[0].Price)
	}
	if rec := env.admin(http.MethodPut, "/admin/products/Ghee/price", `{"price":55}`); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if rec := env.admin(http.MethodPut, "/admin/products/Milk/price", `{"price":0}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if rec := env.admin(http.MethodPut, "/admin/products/prices", `[{"name":"Curd","price":45}]`); rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d %s", rec.Code, rec.Body.String())
	}
}

func TestAdminUploadPassesRawText(t *testing.T) {
	env := newTestEnv(t, payment.DefaultDirectory("DAIRY FIELD"))
	text := "name,category,unit,price\nGhee,Dairy,1kg,600"
	rec := env.do(http.MethodPost, "/admin/products/upload", text, map[string]string{
		"Authorization": "Bearer " + env.token,
		"Content-Type":  "text/csv",
	})
	if rec.Code != http.StatusCreated || !strings.Contains(rec.Body.String(), `"count":1`) {
		t.Fatalf("unexpected upload response %d %s", rec.Code, rec.Body.String())
	}
	if env.products.uploaded != text {
		t.Fatalf("expected raw body forwarded, got %q", env.products.uploaded)
	}
}

func TestClientLimiterSweepsIdleClients(t *testing.T) {
	now := time.Unix(0, 0)
	l := newClientLimiter(60, func() time.Time { return now })
	if !l.allow("1.1.1.1") {
		t.Fatalf("first call should pass")
	}
	now = now.Add(time.Hour)
	l.allow("2.2.2.2")
	if _, ok := l.clients["1.1.1.1"]; ok {
		t.Fatalf("expected idle client swept")
	}
}

func TestNewServerShutsDownCleanly(t *testing.T) {
	if _, err := New(":0", logDiscard(), nil, Deps{}); err == nil {
		t.Fatalf("expected error for missing deps")
	}

	products := &stubProductService{}
	carts := cartsvc.New(kv.NewMemory(), products, nil)
	srv, err := New("127.0.0.1:0", logDiscard(), nil, Deps{
		ProductSvc:  products,
		CategorySvc: stubCategories{},
		CartSvc:     carts,
		OrderSvc:    ordersvc.New(&stubOrderRepo{}, carts, products, payment.Directory{}, watermark.New(kv.NewMemory(), nil), nil),
		Tokens:      admin.NewTokenManager("x"),
	})
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}
