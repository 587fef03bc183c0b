package rediskey

import (
	"fmt"
	"strconv"
)

// Lock namespaces, one per settled entity kind.
const (
	LaunchedEventPrefix = "LAUNCHED_EVENT"
	DuelPrefix          = "DUEL"
)

func NamespaceKey(namespace, key string) string {
	return fmt.Sprintf("%s:%s", namespace, key)
}

// LaunchedEventLock returns "LAUNCHED_EVENT:{id}"
func LaunchedEventLock(id int64) string {
	return NamespaceKey(LaunchedEventPrefix, strconv.FormatInt(id, 10))
}

// DuelLock returns "DUEL:{id}"
func DuelLock(id int64) string {
	return NamespaceKey(DuelPrefix, strconv.FormatInt(id, 10))
}
