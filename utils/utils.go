package utils

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// NewBrowserKey returns a fresh opaque key identifying one browser.
func NewBrowserKey() string {
	return uuid.NewString()
}

// ValidBrowserKey reports whether key looks like a key from NewBrowserKey.
func ValidBrowserKey(key string) bool {
	_, err := uuid.Parse(key)
	return err == nil
}

// ObjectName names an upload after the upload time in unix milliseconds and
// the extension of the original file. A name without a dot is used whole as
// the extension.
func ObjectName(now time.Time, filename string) string {
	ext := filename
	if i := strings.LastIndex(filename, "."); i >= 0 {
		ext = filename[i+1:]
	}
	return strconv.FormatInt(now.UnixMilli(), 10) + "." + ext
}
