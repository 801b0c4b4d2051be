package application

import (
	"strings"
	"testing"
)

func TestLockKeyForProductsOrderInvariant(t *testing.T) {
	a := LockKeyForProducts([]string{"prod-a", "prod-b"})
	b := LockKeyForProducts([]string{"prod-b", "prod-a"})
	if a != b {
		t.Errorf("permutations produced different keys: %q vs %q", a, b)
	}
}

func TestLockKeyForProductsNamespaced(t *testing.T) {
	key := LockKeyForProducts([]string{"prod-1"})
	if !strings.HasPrefix(key, lockKeyNamespace) {
		t.Errorf("key %q missing namespace prefix %q", key, lockKeyNamespace)
	}
}

func TestLockKeyForProductsKeepsDuplicates(t *testing.T) {
	single := LockKeyForProducts([]string{"prod-1"})
	doubled := LockKeyForProducts([]string{"prod-1", "prod-1"})
	if single == doubled {
		t.Error("duplicate product ids collapsed into the single-item key")
	}
}

func TestLockKeyForProductsDoesNotMutateInput(t *testing.T) {
	ids := []string{"z", "a", "m"}
	LockKeyForProducts(ids)
	if ids[0] != "z" || ids[1] != "a" || ids[2] != "m" {
		t.Errorf("input slice reordered: %v", ids)
	}
}

func TestLockKeyDisjointSetsDiffer(t *testing.T) {
	if LockKeyForProducts([]string{"prod-a"}) == LockKeyForProducts([]string{"prod-b"}) {
		t.Error("disjoint item sets collided on one key")
	}
}
