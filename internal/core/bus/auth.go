package bus

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// ErrAuthFailed reports a missing, malformed, expired or forged stream token.
var ErrAuthFailed = errors.New("authentication verification failed")

// AuthOptions gates publish and play with a signed-expiry token. An empty
// secret disables verification entirely.
type AuthOptions struct {
	Play    bool
	Publish bool
	Secret  string
}

// verifyAuth checks the sign query parameter, which must be
// "<unix-expiry>-<hex md5 of "{path}-{expiry}-{secret}">".
func verifyAuth(secret, path string, query url.Values) bool {
	if secret == "" {
		return true
	}
	parts := strings.Split(query.Get("sign"), "-")
	if len(parts) != 2 {
		return false
	}
	exp, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return false
	}
	if exp < time.Now().Unix() {
		return false
	}
	sum := md5.Sum([]byte(fmt.Sprintf("%s-%d-%s", path, exp, secret)))
	return parts[1] == hex.EncodeToString(sum[:])
}
