package access

import (
	"github.com/crestcms/crest/internal/models"
	"gorm.io/gorm"
)

// Context carries everything one request's access checks need: the identity,
// the transport metadata tenant resolution reads, the store handle, and a
// memo for derived facts. It is built by middleware, passed by reference, and
// dies with the request; nothing in it may be shared across requests.
type Context struct {
	DB   *gorm.DB
	User *models.User

	// Raw Cookie header; the resolver parses it itself.
	CookieHeader string
	Host         string

	// PresetTenant is set by trusted upstream handling (domain-based routing)
	// and wins over cookies. Its shape is loose; it is normalized on read.
	PresetTenant interface{}

	memo map[memoKey]interface{}
}

type memoKey struct {
	purpose string
	id      uint
}

func NewContext(db *gorm.DB, user *models.User, cookieHeader, host string) *Context {
	return &Context{
		DB:           db,
		User:         user,
		CookieHeader: cookieHeader,
		Host:         host,
	}
}

// memoize computes a derived fact once per request. Negative outcomes are
// memoized too, so a failing lookup is not retried within the same request.
func (rc *Context) memoize(purpose string, id uint, compute func() interface{}) interface{} {
	if rc.memo == nil {
		rc.memo = make(map[memoKey]interface{})
	}
	key := memoKey{purpose: purpose, id: id}
	if v, ok := rc.memo[key]; ok {
		return v
	}
	v := compute()
	rc.memo[key] = v
	return v
}
