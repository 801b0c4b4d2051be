// internal/zookeeper/lock.go
package zookeeper

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-zookeeper/zk"
)

const lockRoot = "/bazaar_order_locks" // 所有下单锁的根节点

// Conn 封装了一个 ZooKeeper 会话。
type Conn struct {
	conn *zk.Conn
}

// Connect 建立到 ZooKeeper 集群的会话。
func Connect(servers []string, sessionTimeout time.Duration) (*Conn, error) {
	conn, _, err := zk.Connect(servers, sessionTimeout)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to zookeeper: %w", err)
	}
	return &Conn{conn: conn}, nil
}

// Close 关闭会话，所有临时节点随之消失。
func (c *Conn) Close() {
	c.conn.Close()
}

// TryLock 是基于临时节点的非阻塞互斥锁：
// 创建成功即持有锁，节点已存在即竞争失败，单次尝试不等待。
// 临时节点随会话消亡，起到与 TTL 等价的兜底作用。
type TryLock struct {
	conn *Conn
}

// NewTryLock 创建锁实例并确保根节点存在。
func NewTryLock(conn *Conn) (*TryLock, error) {
	_, err := conn.conn.Create(lockRoot, []byte{}, 0, zk.WorldACL(zk.PermAll))
	if err != nil && err != zk.ErrNodeExists {
		return nil, fmt.Errorf("failed to create lock root node: %w", err)
	}
	return &TryLock{conn: conn}, nil
}

// TryAcquire 尝试以 token 为持有者标识抢占 key 对应的锁节点。
// 返回 (true, nil) 表示当前调用者持有锁。
func (l *TryLock) TryAcquire(key, token string) (bool, error) {
	_, err := l.conn.conn.Create(l.nodePath(key), []byte(token), zk.FlagEphemeral, zk.WorldACL(zk.PermAll))
	if err == zk.ErrNodeExists {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to create lock node: %w", err)
	}
	return true, nil
}

// ReleaseIfOwner 只在节点仍记录着自己的 token 时删除它。
// 删除带上读取时的版本号，节点在比较和删除之间易主时删除会失败，
// 这样就不会误删后继持有者的锁。
func (l *TryLock) ReleaseIfOwner(key, token string) error {
	path := l.nodePath(key)
	data, stat, err := l.conn.conn.Get(path)
	if err == zk.ErrNoNode {
		return nil // 已经过期或被释放
	}
	if err != nil {
		return fmt.Errorf("failed to read lock node: %w", err)
	}
	if string(data) != token {
		return nil // 锁已易主，不是我们的了
	}
	if err := l.conn.conn.Delete(path, stat.Version); err != nil && err != zk.ErrNoNode && err != zk.ErrBadVersion {
		return fmt.Errorf("failed to delete lock node: %w", err)
	}
	return nil
}

// nodePath 把锁键转成合法的节点名。键里不允许出现路径分隔符。
func (l *TryLock) nodePath(key string) string {
	return lockRoot + "/" + strings.ReplaceAll(key, "/", "|")
}
