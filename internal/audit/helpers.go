package audit

import (
	"fmt"

	"github.com/efs-sdk/accessmanager/internal/buildinfo"
)

// CreateUserAgent is sent to upstream services so their logs can be
// correlated with ours.
func CreateUserAgent(correlationID, principalID string) string {
	return fmt.Sprintf("accessmanager/%s (correlation_id=%s; principal=%s)",
		buildinfo.Version, correlationID, principalID)
}
