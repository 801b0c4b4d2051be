// internal/service/order/application/lockkey.go
package application

import (
	"sort"
	"strings"
)

// lockKeyNamespace 是所有下单锁在协调存储里的固定前缀。
const lockKeyNamespace = "bazaar:order:lock:"

// LockKeyForProducts 从请求的商品集合推导出规范锁键：
// 升序排序后用固定分隔符拼接，再加上命名空间前缀。
// 同一商品集合的任意排列得到同一个键，
// 从而让多商品请求之间不存在加锁顺序环，杜绝死锁。
func LockKeyForProducts(productIDs []string) string {
	ids := append([]string(nil), productIDs...)
	sort.Strings(ids)
	return lockKeyNamespace + strings.Join(ids, ",")
}
