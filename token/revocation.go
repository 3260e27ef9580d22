package token

import (
	"sync"
	"time"

	"github.com/pkg/errors"
)

// Denylist holds the jti of access tokens that were ended by logout before
// their exp. An entry only lives until its token would have lapsed; after that
// the signature check rejects the token on its own.
type Denylist struct {
	lock    sync.RWMutex
	entries map[string]time.Time // jti -> exp
	nowFunc func() time.Time
}

func NewDenylist(nowFunc func() time.Time) *Denylist {
	if nowFunc == nil {
		nowFunc = time.Now
	}
	return &Denylist{entries: make(map[string]time.Time), nowFunc: nowFunc}
}

// Revoke denylists the access token jti until exp.
func (d *Denylist) Revoke(jti string, exp time.Time) error {
	if jti == "" {
		return errors.New("[Denylist.Revoke] access token has no jti")
	}
	d.lock.Lock()
	defer d.lock.Unlock()
	if exp.After(d.nowFunc()) {
		d.entries[jti] = exp
	}
	return nil
}

// RevokeSessions denylists every access token issued to a user, given as
// jti -> exp, and drops entries that have lapsed. It returns how many tokens
// were still live.
func (d *Denylist) RevokeSessions(sessions map[string]time.Time) int {
	d.lock.Lock()
	defer d.lock.Unlock()
	now := d.nowFunc()
	for jti, exp := range d.entries {
		if !exp.After(now) {
			delete(d.entries, jti)
		}
	}
	added := 0
	for jti, exp := range sessions {
		if jti == "" || !exp.After(now) {
			continue
		}
		d.entries[jti] = exp
		added++
	}
	return added
}

// IsRevoked implements jwt.RevokedChecker.
func (d *Denylist) IsRevoked(jti string) bool {
	d.lock.RLock()
	defer d.lock.RUnlock()
	_, ok := d.entries[jti]
	return ok
}

func (d *Denylist) Len() int {
	d.lock.RLock()
	defer d.lock.RUnlock()
	return len(d.entries)
}
