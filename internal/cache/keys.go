package cache

import "fmt"

type KeyPrefix string

const (
	PrefixLink      KeyPrefix = "link" // link:slug
	PrefixRateLimit KeyPrefix = "rate" // rate:clientIP
)

// KeyBuilder builds namespaced cache keys.
type KeyBuilder struct {
	namespace string
}

func NewKeyBuilder(namespace string) *KeyBuilder {
	return &KeyBuilder{namespace: namespace}
}

func (k *KeyBuilder) Build(prefix KeyPrefix, parts ...string) string {
	key := string(prefix)

	if k.namespace != "" {
		key = k.namespace + ":" + key
	}

	for _, part := range parts {
		key += ":" + part
	}

	return key
}

// Link builds the key caching a link record by slug.
func (k *KeyBuilder) Link(slug string) string {
	return k.Build(PrefixLink, slug)
}

// RateLimit builds the key counting requests from a client IP.
func (k *KeyBuilder) RateLimit(clientIP string) string {
	return k.Build(PrefixRateLimit, clientIP)
}

func (k *KeyBuilder) Pattern(prefix KeyPrefix) string {
	if k.namespace != "" {
		return fmt.Sprintf("%s:%s:*", k.namespace, prefix)
	}
	return fmt.Sprintf("%s:*", prefix)
}

var DefaultKeyBuilder = NewKeyBuilder("")

var CacheKeys = struct {
	Link      func(string) string
	RateLimit func(string) string
}{
	Link:      DefaultKeyBuilder.Link,
	RateLimit: DefaultKeyBuilder.RateLimit,
}
