package core

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"
)

// ErrMalformedToken is returned when a token carries no parseable expiry.
var ErrMalformedToken = errors.New("malformed access token")

// OperationClass is the tier of a storage access token.
type OperationClass string

const (
	ClassRead   OperationClass = "READ"
	ClassWrite  OperationClass = "WRITE"
	ClassDelete OperationClass = "DELETE"
)

// ParseOperationClass accepts the class names case-insensitively.
func ParseOperationClass(s string) (OperationClass, error) {
	switch c := OperationClass(strings.ToUpper(strings.TrimSpace(s))); c {
	case ClassRead, ClassWrite, ClassDelete:
		return c, nil
	}
	return "", fmt.Errorf("unknown operation class '%s'", s)
}

func (c OperationClass) String() string {
	return string(c)
}

// StorageTarget names a container (space) inside an organization's storage account.
type StorageTarget struct {
	Organization string `json:"organization"`
	Space        string `json:"space"`
}

// Key returns the normalized form used for cache lookups.
func (t StorageTarget) Key() StorageTarget {
	return StorageTarget{
		Organization: strings.ToLower(t.Organization),
		Space:        strings.ToLower(t.Space),
	}
}

// Equal compares two targets ignoring case.
func (t StorageTarget) Equal(o StorageTarget) bool {
	return strings.EqualFold(t.Organization, o.Organization) &&
		strings.EqualFold(t.Space, o.Space)
}

func (t StorageTarget) String() string {
	return t.Organization + "/" + t.Space
}

// AccessToken is a signed, time-limited storage token. The expiry is only ever
// read from the token itself.
type AccessToken struct {
	Class        OperationClass `json:"class"`
	Organization string         `json:"organization"`
	Space        string         `json:"space"`
	Token        string         `json:"-"`
}

func (t AccessToken) Target() StorageTarget {
	return StorageTarget{Organization: t.Organization, Space: t.Space}
}

// expiryPattern finds the se= parameter. It only accepts calendar-valid
// timestamps (leap years included) with a Z or ±hh:mm offset.
var expiryPattern = regexp.MustCompile(`(?:^|[?&])se=(?P<expiry>` +
	`(?:[1-9]\d{3}-(?:(?:0[1-9]|1[0-2])-(?:0[1-9]|1\d|2[0-8])|(?:0[13-9]|1[0-2])-(?:29|30)|(?:0[13578]|1[02])-31)` +
	`|(?:[1-9]\d(?:0[48]|[2468][048]|[13579][26])|(?:[2468][048]|[13579][26])00)-02-29)` +
	`T(?:[01]\d|2[0-3]):[0-5]\d:[0-5]\d(?:Z|[+-][01]\d:[0-5]\d))(?:&|$)`)

// ExpiresAt extracts the se= field of the token.
func (t AccessToken) ExpiresAt() (time.Time, error) {
	decoded, err := url.QueryUnescape(t.Token)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}
	m := expiryPattern.FindStringSubmatch(decoded)
	if m == nil {
		return time.Time{}, fmt.Errorf("%w: no expiry field", ErrMalformedToken)
	}
	expiry, err := time.Parse(time.RFC3339, m[expiryPattern.SubexpIndex("expiry")])
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}
	return expiry, nil
}

// IsValid reports whether the token stays usable for at least buffer.
func (t AccessToken) IsValid(buffer time.Duration) (bool, error) {
	return t.IsValidAt(time.Now(), buffer)
}

// IsValidAt is IsValid against a fixed point in time.
func (t AccessToken) IsValidAt(now time.Time, buffer time.Duration) (bool, error) {
	expiry, err := t.ExpiresAt()
	if err != nil {
		return false, err
	}
	return now.Before(expiry.Add(-buffer)), nil
}
