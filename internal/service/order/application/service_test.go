package application

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.opentelemetry.io/otel/trace/noop"
	"golang.org/x/sync/errgroup"

	"bazaar/internal/service/order/domain"
	"bazaar/internal/service/order/domain/port"
)

// memLocker 在进程内模拟协调存储：同一个键同一时刻只有一个持有者，
// 每次持有对应一个唯一令牌，释放必须令牌匹配才生效。
// 它额外记录每个键的释放次数，用于验证恰好释放一次的义务。
type memLocker struct {
	mu            sync.Mutex
	held          map[string]string // key -> 当前持有者的令牌
	seq           int
	acquires      int
	releases      map[string]int
	staleReleases int // 令牌不匹配、被忽略的释放尝试
}

func newMemLocker() *memLocker {
	return &memLocker{held: make(map[string]string), releases: make(map[string]int)}
}

func (l *memLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (string, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.acquires++
	if _, taken := l.held[key]; taken {
		return "", false
	}
	l.seq++
	token := "token-" + strconv.Itoa(l.seq)
	l.held[key] = token
	return token, true
}

func (l *memLocker) Release(ctx context.Context, key string, token string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[key] == token {
		delete(l.held, key)
		l.releases[key]++
		return
	}
	l.staleReleases++
}

// expire 模拟锁的 TTL 到期：协调存储丢弃当前持有者的条目。
func (l *memLocker) expire(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.held, key)
}

func (l *memLocker) holder(key string) (string, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	token, ok := l.held[key]
	return token, ok
}

// deniedLocker 模拟始终抢不到锁（或存储不可达）的情形。
type deniedLocker struct {
	releases atomic.Int32
}

func (l *deniedLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (string, bool) {
	return "", false
}

func (l *deniedLocker) Release(ctx context.Context, key string, token string) {
	l.releases.Add(1)
}

// memLedger 是 domain.InventoryLedger 的内存实现。
// 它模拟单个本地事务的全有或全无语义，并记录两类并发违例：
// 是否有两个执行同时进入临界区，以及库存是否出现过负值。
type memLedger struct {
	mu     sync.Mutex
	stock  map[string]*int64 // nil 表示无限库存
	price  map[string]int64
	orders []*domain.Order

	inflight    atomic.Int32
	maxInflight atomic.Int32

	failWith error
	calls    atomic.Int32
}

func newMemLedger() *memLedger {
	return &memLedger{stock: make(map[string]*int64), price: make(map[string]int64)}
}

func (l *memLedger) setStock(productID string, price int64, quantity *int64) {
	l.stock[productID] = quantity
	l.price[productID] = price
}

func (l *memLedger) PlaceOrder(ctx context.Context, userID string, productIDs []string) (*domain.Order, error) {
	l.calls.Add(1)
	cur := l.inflight.Add(1)
	defer l.inflight.Add(-1)
	for {
		max := l.maxInflight.Load()
		if cur <= max || l.maxInflight.CompareAndSwap(max, cur) {
			break
		}
	}

	if l.failWith != nil {
		return nil, l.failWith
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	// 先全量校验，有任何一件不足整单失败，不留部分扣减
	counts := make(map[string]int)
	for _, id := range productIDs {
		q, ok := l.stock[id]
		if !ok {
			return nil, domain.ErrProductNotFound
		}
		counts[id]++
		if q != nil && *q-int64(counts[id]) < 0 {
			return nil, domain.ErrInsufficientStock
		}
	}

	lines := make([]domain.OrderLine, 0, len(productIDs))
	for _, id := range productIDs {
		if q := l.stock[id]; q != nil {
			*q--
			if *q < 0 {
				panic("stock went negative") // 不变量被破坏，测试立即失败
			}
		}
		lines = append(lines, domain.OrderLine{ProductID: id, Price: l.price[id]})
	}

	order, err := domain.NewOrder(userID, lines, time.Now())
	if err != nil {
		return nil, err
	}
	l.orders = append(l.orders, order)
	return order, nil
}

func (l *memLedger) quantity(productID string) *int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.stock[productID]
}

// recordingProducer 记录发布出去的事件。
type recordingProducer struct {
	mu     sync.Mutex
	events []*domain.OrderPlaced
}

func (p *recordingProducer) Publish(ctx context.Context, event *domain.OrderPlaced) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

// denyPolicy 拒绝所有请求。
type denyPolicy struct{ err error }

func (p *denyPolicy) Allow(ctx context.Context, userID string, productIDs []string) error {
	return p.err
}

func newTestService(locker port.DistributedLocker, ledger domain.InventoryLedger, producer *recordingProducer) *OrderApplicationService {
	svc := NewOrderApplicationService(
		ledger, nil, nil, locker, nil, nil,
		time.Second,
		RetryPolicy{Interval: time.Millisecond, Budget: 5 * time.Second},
		noop.NewTracerProvider().Tracer("test"),
	)
	if producer != nil {
		svc.notifier = producer
	}
	return svc
}

func TestPlaceOrderConcurrentFiniteStock(t *testing.T) {
	cases := []struct {
		name     string
		stock    int64
		attempts int
	}{
		{"stock 10 attempts 100", 10, 100},
		{"stock 3 attempts 200", 3, 200},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ledger := newMemLedger()
			q := tc.stock
			ledger.setStock("prod-1", 500, &q)
			locker := newMemLocker()
			svc := newTestService(locker, ledger, nil)

			var successes, soldOut atomic.Int32
			g := new(errgroup.Group)
			for i := 0; i < tc.attempts; i++ {
				g.Go(func() error {
					_, err := svc.PlaceOrder(context.Background(), &PlaceOrderRequest{
						UserID:     "buyer-1",
						ProductIDs: []string{"prod-1"},
					})
					switch {
					case err == nil:
						successes.Add(1)
					case errors.Is(err, domain.ErrInsufficientStock):
						soldOut.Add(1)
					default:
						return err
					}
					return nil
				})
			}
			if err := g.Wait(); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if got := successes.Load(); got != int32(tc.stock) {
				t.Errorf("successes = %d, want %d", got, tc.stock)
			}
			if got := soldOut.Load(); got != int32(tc.attempts)-int32(tc.stock) {
				t.Errorf("sold out failures = %d, want %d", got, tc.attempts-int(tc.stock))
			}
			if remaining := ledger.quantity("prod-1"); remaining == nil || *remaining != 0 {
				t.Errorf("final stock = %v, want 0", remaining)
			}
			if max := ledger.maxInflight.Load(); max > 1 {
				t.Errorf("critical section entered by %d executions at once", max)
			}
			key := LockKeyForProducts([]string{"prod-1"})
			if locker.releases[key] != tc.attempts {
				t.Errorf("lock released %d times, want once per acquisition (%d)", locker.releases[key], tc.attempts)
			}
		})
	}
}

func TestPlaceOrderUnlimitedStock(t *testing.T) {
	ledger := newMemLedger()
	ledger.setStock("digital-1", 199, nil) // nil 数量即无限哨兵
	svc := newTestService(newMemLocker(), ledger, nil)

	g := new(errgroup.Group)
	for i := 0; i < 50; i++ {
		g.Go(func() error {
			_, err := svc.PlaceOrder(context.Background(), &PlaceOrderRequest{
				UserID:     "buyer-1",
				ProductIDs: []string{"digital-1"},
			})
			return err
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("unlimited stock placement failed: %v", err)
	}
	if q := ledger.quantity("digital-1"); q != nil {
		t.Errorf("unlimited stock was decremented to %d", *q)
	}
}

func TestPlaceOrderTotalEqualsSumOfLines(t *testing.T) {
	ledger := newMemLedger()
	qa, qb := int64(5), int64(5)
	ledger.setStock("prod-a", 1250, &qa)
	ledger.setStock("prod-b", 775, &qb)
	svc := newTestService(newMemLocker(), ledger, nil)

	resp, err := svc.PlaceOrder(context.Background(), &PlaceOrderRequest{
		UserID:     "buyer-1",
		ProductIDs: []string{"prod-b", "prod-a", "prod-b"},
	})
	if err != nil {
		t.Fatalf("PlaceOrder: %v", err)
	}

	var sum int64
	for _, line := range resp.Lines {
		sum += line.Price
	}
	if resp.TotalPrice != sum {
		t.Errorf("total %d != sum of line prices %d", resp.TotalPrice, sum)
	}
	if want := int64(1250 + 775*2); resp.TotalPrice != want {
		t.Errorf("total = %d, want %d", resp.TotalPrice, want)
	}
	if resp.CorrelationID == "" {
		t.Error("correlation id missing")
	}
	// 重复的商品 ID 不去重，每次出现扣一件
	if q := ledger.quantity("prod-b"); q == nil || *q != 3 {
		t.Errorf("prod-b stock = %v, want 3", q)
	}
}

func TestPlaceOrderLockTimeoutLeavesStateUnchanged(t *testing.T) {
	ledger := newMemLedger()
	q := int64(5)
	ledger.setStock("prod-1", 100, &q)
	locker := &deniedLocker{}

	svc := NewOrderApplicationService(
		ledger, nil, nil, locker, nil, nil,
		time.Second,
		RetryPolicy{Interval: 2 * time.Millisecond, Budget: 20 * time.Millisecond},
		noop.NewTracerProvider().Tracer("test"),
	)

	_, err := svc.PlaceOrder(context.Background(), &PlaceOrderRequest{
		UserID:     "buyer-1",
		ProductIDs: []string{"prod-1"},
	})
	if !errors.Is(err, domain.ErrLockTimeout) {
		t.Fatalf("err = %v, want ErrLockTimeout", err)
	}
	if ledger.calls.Load() != 0 {
		t.Error("ledger was invoked without the lock")
	}
	if got := ledger.quantity("prod-1"); got == nil || *got != 5 {
		t.Errorf("stock changed to %v after timeout", got)
	}
	if locker.releases.Load() != 0 {
		t.Error("release called without a successful acquisition")
	}
}

func TestPlaceOrderReleasesLockOnLedgerError(t *testing.T) {
	ledger := newMemLedger()
	ledger.failWith = domain.ErrInsufficientStock
	locker := newMemLocker()
	svc := newTestService(locker, ledger, nil)

	_, err := svc.PlaceOrder(context.Background(), &PlaceOrderRequest{
		UserID:     "buyer-1",
		ProductIDs: []string{"prod-1"},
	})
	if !errors.Is(err, domain.ErrInsufficientStock) {
		t.Fatalf("ledger error not propagated unchanged, got %v", err)
	}

	key := LockKeyForProducts([]string{"prod-1"})
	if locker.releases[key] != 1 {
		t.Errorf("lock released %d times, want exactly 1", locker.releases[key])
	}
	if _, held := locker.holder(key); held {
		t.Error("lock still held after failed placement")
	}
}

func TestPlaceOrderEmptyRequest(t *testing.T) {
	svc := newTestService(newMemLocker(), newMemLedger(), nil)

	for _, req := range []*PlaceOrderRequest{
		{UserID: "", ProductIDs: []string{"p"}},
		{UserID: "buyer-1", ProductIDs: nil},
	} {
		if _, err := svc.PlaceOrder(context.Background(), req); !errors.Is(err, domain.ErrEmptyOrder) {
			t.Errorf("PlaceOrder(%+v) = %v, want ErrEmptyOrder", req, err)
		}
	}
}

func TestPlaceOrderPolicyRejectionBeforeLock(t *testing.T) {
	rejected := errors.New("too many items")
	locker := newMemLocker()
	ledger := newMemLedger()
	svc := newTestService(locker, ledger, nil)
	svc.policy = &denyPolicy{err: rejected}

	_, err := svc.PlaceOrder(context.Background(), &PlaceOrderRequest{
		UserID:     "buyer-1",
		ProductIDs: []string{"prod-1"},
	})
	if !errors.Is(err, rejected) {
		t.Fatalf("err = %v, want policy rejection", err)
	}
	if locker.acquires != 0 {
		t.Error("lock touched for a policy-rejected request")
	}
	if ledger.calls.Load() != 0 {
		t.Error("ledger touched for a policy-rejected request")
	}
}

func TestPlaceOrderPublishesEventAfterCommit(t *testing.T) {
	ledger := newMemLedger()
	q := int64(1)
	ledger.setStock("prod-1", 300, &q)
	producer := &recordingProducer{}
	svc := newTestService(newMemLocker(), ledger, producer)

	resp, err := svc.PlaceOrder(context.Background(), &PlaceOrderRequest{
		UserID:     "buyer-1",
		ProductIDs: []string{"prod-1"},
	})
	if err != nil {
		t.Fatalf("PlaceOrder: %v", err)
	}

	if len(producer.events) != 1 {
		t.Fatalf("published %d events, want 1", len(producer.events))
	}
	event := producer.events[0]
	if event.OrderID != resp.OrderID || len(event.ProductIDs) != 1 || event.ProductIDs[0] != "prod-1" {
		t.Errorf("unexpected event payload: %+v", event)
	}

	// 售罄的第二次尝试不能发事件
	if _, err := svc.PlaceOrder(context.Background(), &PlaceOrderRequest{
		UserID:     "buyer-2",
		ProductIDs: []string{"prod-1"},
	}); !errors.Is(err, domain.ErrInsufficientStock) {
		t.Fatalf("second attempt err = %v, want ErrInsufficientStock", err)
	}
	if len(producer.events) != 1 {
		t.Errorf("event published for a failed placement")
	}
}

// barrierLedger 卡在临界区里，直到测试放行。
type barrierLedger struct {
	entered chan string
	release chan struct{}
}

func (l *barrierLedger) PlaceOrder(ctx context.Context, userID string, productIDs []string) (*domain.Order, error) {
	l.entered <- productIDs[0]
	<-l.release
	return domain.NewOrder(userID, []domain.OrderLine{{ProductID: productIDs[0], Price: 1}}, time.Now())
}

func TestPlaceOrderDisjointSetsRunConcurrently(t *testing.T) {
	ledger := &barrierLedger{entered: make(chan string, 2), release: make(chan struct{})}
	svc := newTestService(newMemLocker(), ledger, nil)

	g := new(errgroup.Group)
	for _, id := range []string{"prod-a", "prod-b"} {
		g.Go(func() error {
			_, err := svc.PlaceOrder(context.Background(), &PlaceOrderRequest{
				UserID:     "buyer-1",
				ProductIDs: []string{id},
			})
			return err
		})
	}

	// 两个不相交的请求必须能同时进入各自的临界区
	for i := 0; i < 2; i++ {
		select {
		case <-ledger.entered:
		case <-time.After(2 * time.Second):
			t.Fatal("disjoint item sets were serialized against each other")
		}
	}
	close(ledger.release)
	if err := g.Wait(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// funcLedger 把临界区交给测试提供的函数。
type funcLedger struct {
	fn func(ctx context.Context, userID string, productIDs []string) (*domain.Order, error)
}

func (l *funcLedger) PlaceOrder(ctx context.Context, userID string, productIDs []string) (*domain.Order, error) {
	return l.fn(ctx, userID, productIDs)
}

func TestPlaceOrderStaleReleaseKeepsSuccessorLock(t *testing.T) {
	locker := newMemLocker()
	key := LockKeyForProducts([]string{"prod-1"})

	// 临界区拖过了 TTL：锁过期，另一个持有者抢到同一个键。
	// 原持有者结束后的延迟释放拿的是自己的旧令牌，必须放不掉新锁。
	var successorToken string
	ledger := &funcLedger{fn: func(ctx context.Context, userID string, productIDs []string) (*domain.Order, error) {
		locker.expire(key)
		token, ok := locker.Acquire(context.Background(), key, time.Second)
		if !ok {
			t.Fatal("successor could not take over the expired lock")
		}
		successorToken = token
		return domain.NewOrder(userID, []domain.OrderLine{{ProductID: "prod-1", Price: 100}}, time.Now())
	}}
	svc := newTestService(locker, ledger, nil)

	if _, err := svc.PlaceOrder(context.Background(), &PlaceOrderRequest{
		UserID:     "buyer-1",
		ProductIDs: []string{"prod-1"},
	}); err != nil {
		t.Fatalf("PlaceOrder: %v", err)
	}

	token, held := locker.holder(key)
	if !held || token != successorToken {
		t.Errorf("successor's lock gone after stale release, holder = %q, want %q", token, successorToken)
	}
	locker.mu.Lock()
	stale := locker.staleReleases
	locker.mu.Unlock()
	if stale != 1 {
		t.Errorf("stale release attempts = %d, want 1", stale)
	}
}
