package e2etest

import (
	"net/http"
	"net/http/cookiejar"
	"net/url"

	"github.com/myrjola/sheerluck-engine/internal/errors"
)

// unsafeCookieJar keeps cookies marked Secure over plain HTTP, which the test servers speak.
type unsafeCookieJar struct {
	jar *cookiejar.Jar
}

func newUnsafeCookieJar() (*unsafeCookieJar, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, errors.Wrap(err, "new cookie jar")
	}
	return &unsafeCookieJar{jar: jar}, nil
}

func (u *unsafeCookieJar) SetCookies(target *url.URL, cookies []*http.Cookie) {
	for _, cookie := range cookies {
		cookie.Secure = false
	}
	u.jar.SetCookies(target, cookies)
}

func (u *unsafeCookieJar) Cookies(target *url.URL) []*http.Cookie {
	return u.jar.Cookies(target)
}
