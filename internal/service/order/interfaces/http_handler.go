// internal/service/order/interfaces/http_handler.go
package interfaces

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"bazaar/internal/pkg/logger"
	"bazaar/internal/service/order/application"
	"bazaar/internal/service/order/domain"
	"bazaar/internal/service/order/infrastructure/rule"
)

const serviceName = "order-service"

var (
	ordersPlacedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bazaar_orders_placed_total",
		Help: "Number of successfully placed orders.",
	})
	orderFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bazaar_order_failures_total",
		Help: "Number of failed placement attempts by reason.",
	}, []string{"reason"})
)

// OrderHandler 封装了订单服务的 HTTP 处理器。
// 上游请求层被假定已完成身份校验，这里只做最薄的解码和错误映射。
type OrderHandler struct {
	service *application.OrderApplicationService
}

func NewOrderHandler(service *application.OrderApplicationService) *OrderHandler {
	return &OrderHandler{service: service}
}

// RegisterRoutes 在 ServeMux 上注册所有路由。
func (h *OrderHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("POST /orders/place", h.placeOrderHandler)
	mux.HandleFunc("GET /orders/{id}", h.getOrderHandler)
	mux.HandleFunc("PUT /admin/stock", h.upsertStockHandler)
}

func (h *OrderHandler) placeOrderHandler(w http.ResponseWriter, r *http.Request) {
	propagator := otel.GetTextMapPropagator()
	ctx := propagator.Extract(r.Context(), propagation.HeaderCarrier(r.Header))

	tracer := otel.Tracer(serviceName)
	ctx, span := tracer.Start(ctx, "http.PlaceOrder")
	defer span.End()

	var req application.PlaceOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		orderFailuresTotal.WithLabelValues("bad_request").Inc()
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	resp, err := h.service.PlaceOrder(ctx, &req)
	if err != nil {
		h.writePlacementError(ctx, w, err)
		return
	}

	ordersPlacedTotal.Inc()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(resp)
}

// writePlacementError 把领域错误映射为 HTTP 状态码。
// 关键区分：锁超时是瞬时竞争（可重试），售罄是业务终态（别再试了）。
func (h *OrderHandler) writePlacementError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrEmptyOrder):
		orderFailuresTotal.WithLabelValues("bad_request").Inc()
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, rule.ErrPolicyRejected):
		orderFailuresTotal.WithLabelValues("policy_rejected").Inc()
		http.Error(w, err.Error(), http.StatusForbidden)
	case errors.Is(err, domain.ErrProductNotFound):
		orderFailuresTotal.WithLabelValues("product_not_found").Inc()
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, domain.ErrInsufficientStock):
		orderFailuresTotal.WithLabelValues("insufficient_stock").Inc()
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, domain.ErrLockTimeout):
		orderFailuresTotal.WithLabelValues("lock_timeout").Inc()
		w.Header().Set("Retry-After", "1")
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
	default:
		orderFailuresTotal.WithLabelValues("internal").Inc()
		logger.Ctx(ctx).Error().Err(err).Msg("order placement failed")
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func (h *OrderHandler) getOrderHandler(w http.ResponseWriter, r *http.Request) {
	propagator := otel.GetTextMapPropagator()
	ctx := propagator.Extract(r.Context(), propagation.HeaderCarrier(r.Header))

	tracer := otel.Tracer(serviceName)
	ctx, span := tracer.Start(ctx, "http.GetOrder")
	defer span.End()

	resp, err := h.service.GetOrder(ctx, r.PathValue("id"))
	if errors.Is(err, domain.ErrOrderNotFound) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	if err != nil {
		logger.Ctx(ctx).Error().Err(err).Msg("order lookup failed")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// upsertStockHandler (运营和测试用) 创建或覆盖一个库存条目。
func (h *OrderHandler) upsertStockHandler(w http.ResponseWriter, r *http.Request) {
	propagator := otel.GetTextMapPropagator()
	ctx := propagator.Extract(r.Context(), propagation.HeaderCarrier(r.Header))

	tracer := otel.Tracer(serviceName)
	ctx, span := tracer.Start(ctx, "http.UpsertStock")
	defer span.End()

	var req application.UpsertStockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ProductID == "" {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	// 负价格或负库存一旦入库会破坏账本的不变量（余额永不为负）
	if req.Price < 0 || (req.Quantity != nil && *req.Quantity < 0) {
		http.Error(w, "price and quantity must be non-negative", http.StatusBadRequest)
		return
	}

	if err := h.service.UpsertStock(ctx, &req); err != nil {
		logger.Ctx(ctx).Error().Err(err).Msg("stock upsert failed")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
