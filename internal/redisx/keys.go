package redisx

import "time"

const (
	// Cart per customer: cart:{customer_id} -> JSON cart
	KeyCart = "cart:%s"

	// Cache status order: order_status:{order_id} -> {"status": "...", "updated_at": "..."}
	KeyOrderStatus = "order_status:%s"

	// Dedup event processing: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"

	// Feed per vendor: zset vendor_feed:{vendor_id}, score = created_at (unix)
	KeyVendorFeed = "vendor_feed:%s"

	// Ringkasan order untuk feed: hash feed_order:{order_id}
	KeyFeedOrder = "feed_order:%s"
)

var (
	TTLCart        = 7 * 24 * time.Hour
	TTLStatusCache = 5 * time.Minute
	TTLDedup       = 48 * time.Hour
	TTLFeedOrder   = 7 * 24 * time.Hour
)

// VendorFeedLimit caps how many order ids a vendor feed keeps.
const VendorFeedLimit = 500
