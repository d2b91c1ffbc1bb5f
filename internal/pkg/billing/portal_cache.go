package billing

import (
	"encoding/json"
	"fmt"

	"github.com/MarcChevalier/Tastevin/internal/pkg/cache"
)

// redisPortalCache keeps portal links in the shared Redis cache. Entries
// carry their own FetchedAt; the TTL is a backstop.
type redisPortalCache struct{}

// NewPortalCache returns the Redis-backed portal link cache.
func NewPortalCache() PortalCache {
	return redisPortalCache{}
}

func portalCacheKey(userID uint) string {
	return fmt.Sprintf("billing:portal:%d", userID)
}

func (redisPortalCache) GetPortalLink(userID uint) (*PortalLink, bool) {
	raw, err := cache.Get(portalCacheKey(userID))
	if err != nil || raw == "" {
		return nil, false
	}
	var link PortalLink
	if err := json.Unmarshal([]byte(raw), &link); err != nil {
		return nil, false
	}
	return &link, true
}

func (redisPortalCache) SetPortalLink(userID uint, link *PortalLink) {
	encoded, err := json.Marshal(link)
	if err != nil {
		return
	}
	_ = cache.Set(portalCacheKey(userID), string(encoded), portalMaxAge)
}
