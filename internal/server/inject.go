package server

import (
	"bytes"
	"net/http"
	"strings"
)

const (
	maxInjectSize = 512 * 1024
	scriptTag     = `<script async src="/livereload.js"></script>`
)

// injectLiveReload inserts the live-reload client into HTML page responses.
func injectLiveReload(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p := r.URL.Path
		if p != "" && !strings.HasSuffix(p, "/") && !strings.HasSuffix(p, ".html") {
			next.ServeHTTP(w, r)
			return
		}
		inj := &injector{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(inj, r)
		inj.finalize()
	})
}

// injector buffers an HTML response up to maxInjectSize and adds the script
// before </body>. Larger or non-HTML responses pass through untouched.
type injector struct {
	http.ResponseWriter
	status        int
	buf           []byte
	headerWritten bool
	passthrough   bool
}

func (i *injector) WriteHeader(code int) {
	i.status = code
	if i.passthrough {
		i.ResponseWriter.WriteHeader(code)
		i.headerWritten = true
	}
}

func (i *injector) Write(data []byte) (int, error) {
	if !i.passthrough && i.buf == nil {
		ct := i.Header().Get("Content-Type")
		if ct != "" && !strings.Contains(ct, "text/html") {
			i.startPassthrough()
			return i.ResponseWriter.Write(data)
		}
		i.buf = make([]byte, 0, 32*1024)
	}
	if i.passthrough {
		return i.ResponseWriter.Write(data)
	}
	if len(i.buf)+len(data) > maxInjectSize {
		i.Header().Del("Content-Length")
		i.startPassthrough()
		if _, err := i.ResponseWriter.Write(i.buf); err != nil {
			return 0, err
		}
		i.buf = nil
		return i.ResponseWriter.Write(data)
	}
	i.buf = append(i.buf, data...)
	return len(data), nil
}

func (i *injector) startPassthrough() {
	i.passthrough = true
	if !i.headerWritten {
		i.ResponseWriter.WriteHeader(i.status)
		i.headerWritten = true
	}
}

func (i *injector) finalize() {
	if i.passthrough || len(i.buf) == 0 {
		if !i.headerWritten {
			i.ResponseWriter.WriteHeader(i.status)
		}
		return
	}
	body := i.buf
	if idx := bytes.LastIndex(body, []byte("</body>")); idx >= 0 {
		body = append(body[:idx:idx], append([]byte(scriptTag), body[idx:]...)...)
	} else {
		body = append(body, scriptTag...)
	}
	i.Header().Del("Content-Length")
	i.ResponseWriter.WriteHeader(i.status)
	_, _ = i.ResponseWriter.Write(body)
}
