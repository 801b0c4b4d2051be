package domain

import (
	"errors"
	"testing"
)

func TestStockItemDecrement(t *testing.T) {
	q := int64(2)
	item := &StockItem{ProductID: "p", Price: 100, Quantity: &q}

	if err := item.Decrement(); err != nil {
		t.Fatalf("first decrement: %v", err)
	}
	if err := item.Decrement(); err != nil {
		t.Fatalf("second decrement: %v", err)
	}
	if *item.Quantity != 0 {
		t.Errorf("quantity = %d, want 0", *item.Quantity)
	}

	// 第三次必须整体失败，且余量保持为 0，绝不为负
	if err := item.Decrement(); !errors.Is(err, ErrInsufficientStock) {
		t.Errorf("err = %v, want ErrInsufficientStock", err)
	}
	if *item.Quantity != 0 {
		t.Errorf("quantity went negative: %d", *item.Quantity)
	}
}

func TestStockItemUnlimitedSentinel(t *testing.T) {
	item := &StockItem{ProductID: "p", Price: 100, Quantity: nil}
	if !item.Unlimited() {
		t.Fatal("nil quantity should mean unlimited")
	}
	for i := 0; i < 1000; i++ {
		if err := item.Decrement(); err != nil {
			t.Fatalf("unlimited decrement failed: %v", err)
		}
	}
	if item.Quantity != nil {
		t.Error("unlimited sentinel was replaced by a finite quantity")
	}
}
