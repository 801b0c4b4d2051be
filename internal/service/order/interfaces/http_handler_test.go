package interfaces

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"go.opentelemetry.io/otel/trace/noop"

	"bazaar/internal/service/order/application"
	"bazaar/internal/service/order/domain"
)

// memStockRepo 是 domain.StockRepository 的内存实现。
type memStockRepo struct {
	mu    sync.Mutex
	items map[string]*domain.StockItem
}

func (r *memStockRepo) Save(ctx context.Context, item *domain.StockItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[item.ProductID] = item
	return nil
}

func (r *memStockRepo) FindByProductID(ctx context.Context, productID string) (*domain.StockItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.items[productID]
	if !ok {
		return nil, domain.ErrProductNotFound
	}
	return item, nil
}

func newStockHandler() (*OrderHandler, *memStockRepo) {
	repo := &memStockRepo{items: make(map[string]*domain.StockItem)}
	svc := application.NewOrderApplicationService(
		nil, nil, repo, nil, nil, nil,
		time.Second,
		application.DefaultRetryPolicy(),
		noop.NewTracerProvider().Tracer("test"),
	)
	return NewOrderHandler(svc), repo
}

func TestUpsertStockValidation(t *testing.T) {
	cases := []struct {
		name       string
		body       string
		wantStatus int
	}{
		{"valid finite stock", `{"productId":"prod-1","price":1250,"quantity":10}`, http.StatusNoContent},
		{"valid unlimited stock", `{"productId":"digital-1","price":199}`, http.StatusNoContent},
		{"zero quantity allowed", `{"productId":"prod-2","price":100,"quantity":0}`, http.StatusNoContent},
		{"negative quantity", `{"productId":"prod-1","price":100,"quantity":-5}`, http.StatusBadRequest},
		{"negative price", `{"productId":"prod-1","price":-1,"quantity":10}`, http.StatusBadRequest},
		{"missing product id", `{"price":100,"quantity":10}`, http.StatusBadRequest},
		{"malformed body", `{"productId":`, http.StatusBadRequest},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			handler, _ := newStockHandler()
			req := httptest.NewRequest(http.MethodPut, "/admin/stock", strings.NewReader(tc.body))
			rec := httptest.NewRecorder()

			handler.upsertStockHandler(rec, req)

			if rec.Code != tc.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tc.wantStatus)
			}
		})
	}
}

func TestUpsertStockPersistsItem(t *testing.T) {
	handler, repo := newStockHandler()

	req := httptest.NewRequest(http.MethodPut, "/admin/stock",
		strings.NewReader(`{"productId":"prod-1","price":1250,"quantity":10}`))
	rec := httptest.NewRecorder()
	handler.upsertStockHandler(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusNoContent)
	}

	item, err := repo.FindByProductID(context.Background(), "prod-1")
	if err != nil {
		t.Fatalf("stock item not saved: %v", err)
	}
	if item.Price != 1250 || item.Quantity == nil || *item.Quantity != 10 {
		t.Errorf("saved item = %+v, want price 1250 quantity 10", item)
	}

	// 被拒绝的负库存不能覆盖已有条目
	rec = httptest.NewRecorder()
	handler.upsertStockHandler(rec, httptest.NewRequest(http.MethodPut, "/admin/stock",
		strings.NewReader(`{"productId":"prod-1","price":1250,"quantity":-3}`)))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("negative quantity status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
	item, _ = repo.FindByProductID(context.Background(), "prod-1")
	if item.Quantity == nil || *item.Quantity != 10 {
		t.Errorf("rejected request mutated stock: %+v", item)
	}
}
