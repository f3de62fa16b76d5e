package limits

// Resource represents a countable organization resource type.
type Resource string

// Predefined resource types.
const (
	ResourceLocations Resource = "locations"
	ResourceUsers     Resource = "users"
	ResourceFeedbacks Resource = "feedbacks" // counted per calendar month
)

// Unlimited represents a resource with no limit (-1).
const Unlimited int64 = -1

// UsageInfo contains the current usage and limit for a resource.
type UsageInfo struct {
	Current int64 `json:"current"`
	Limit   int64 `json:"limit"`
}
