package backup

import (
	"fmt"
	"strings"
)

// Scheme is the URI scheme of backup locations.
const Scheme = "s3"

// ParseDestinationPrefix splits a destination prefix into bucket and key prefix.
// Both "s3://bucket/path" and "bucket/path" are accepted; the key prefix may be empty.
func ParseDestinationPrefix(prefix string) (bucket, keyPrefix string, err error) {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return "", "", fmt.Errorf("%w: destination prefix is empty", ErrConfiguration)
	}

	rest := prefix
	if scheme, remainder, found := strings.Cut(prefix, "://"); found {
		if !strings.EqualFold(scheme, Scheme) {
			return "", "", fmt.Errorf("%w: unsupported destination scheme %q", ErrConfiguration, scheme)
		}
		rest = remainder
	}

	bucket, keyPrefix, _ = strings.Cut(rest, "/")
	keyPrefix = strings.TrimLeft(keyPrefix, "/")
	if bucket == "" {
		return "", "", fmt.Errorf("%w: destination prefix %q has no bucket", ErrConfiguration, prefix)
	}

	return bucket, keyPrefix, nil
}

// BuildObjectKey joins a key prefix and archive name.
//
// Example: ("backups/", "srv-1-backup.tar.gz") → "backups/srv-1-backup.tar.gz"
func BuildObjectKey(keyPrefix, archiveName string) string {
	keyPrefix = strings.TrimRight(keyPrefix, "/")
	if keyPrefix == "" {
		return archiveName
	}
	return keyPrefix + "/" + archiveName
}

// FormatLocation renders bucket and key as an s3:// URI.
func FormatLocation(bucket, key string) string {
	return fmt.Sprintf("%s://%s/%s", Scheme, bucket, key)
}

// ParseLocation is the inverse of FormatLocation. A location without the
// s3 scheme, a bucket or a key is rejected with ErrValidation.
//
// Keys are taken verbatim: "%", "?" and "#" are part of the key, not URL syntax.
func ParseLocation(location string) (bucket, key string, err error) {
	scheme, rest, found := strings.Cut(location, "://")
	if !found || scheme != Scheme {
		return "", "", fmt.Errorf("%w: location %q must use the %s:// scheme", ErrValidation, location, Scheme)
	}

	bucket, key, _ = strings.Cut(rest, "/")
	key = strings.TrimLeft(key, "/")
	if bucket == "" || key == "" {
		return "", "", fmt.Errorf("%w: location %q must name a bucket and key", ErrValidation, location)
	}
	if strings.ContainsAny(bucket, " \t\r\n") {
		return "", "", fmt.Errorf("%w: invalid bucket name %q", ErrValidation, bucket)
	}

	return bucket, key, nil
}
