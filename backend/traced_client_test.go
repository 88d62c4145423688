package backend

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

func TestTracedClientMetrics(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.Copy(io.Discard, r.Body)
		time.Sleep(10 * time.Millisecond)
		io.WriteString(w, `{"response":"ok"}`)
	}))
	defer srv.Close()

	c := NewTracedClient(5 * time.Second)
	var wg sync.WaitGroup
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			req, err := http.NewRequest(http.MethodPost, srv.URL, bytes.NewReader(make([]byte, 64<<10)))
			if err != nil {
				t.Error(err)
				return
			}
			resp, err := c.Do(req)
			if err != nil {
				t.Error(err)
				return
			}
			if resp.StatusCode != http.StatusOK || string(resp.Body) != `{"response":"ok"}` {
				t.Errorf("got %d %q", resp.StatusCode, resp.Body)
			}
			m := resp.Metrics
			if m.TTFB <= 0 || m.Total < m.TTFB {
				t.Errorf("metrics = %+v", m)
			}
		}()
	}
	wg.Wait()
}
