package middleware

import (
	"bytes"
	"compress/gzip"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func gzipTestHandler(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	defer r.Body.Close()

	contentType := r.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "text/plain"
	}
	w.Header().Set("Content-Type", contentType)

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("received: " + string(body)))
}

func TestGzipMiddleware(t *testing.T) {
	type want struct {
		statusCode      int
		contentEncoding string
		bodyContains    string
	}

	tests := []struct {
		name        string
		requestBody string
		headers     map[string]string
		want        want
	}{
		{
			name:        "plain request and response",
			requestBody: "hello",
			headers:     map[string]string{},
			want: want{
				statusCode:   http.StatusOK,
				bodyContains: "received: hello",
			},
		},
		{
			name:        "client accepts gzip",
			requestBody: "hello",
			headers: map[string]string{
				"Accept-Encoding": "gzip",
			},
			want: want{
				statusCode:      http.StatusOK,
				contentEncoding: "gzip",
				bodyContains:    "received: hello",
			},
		},
		{
			name:        "gzipped request body",
			requestBody: "compressed payload",
			headers: map[string]string{
				"Content-Encoding": "gzip",
			},
			want: want{
				statusCode:   http.StatusOK,
				bodyContains: "received: compressed payload",
			},
		},
		{
			name:        "broken gzip body",
			requestBody: "not actually gzip",
			headers: map[string]string{
				"Content-Encoding": "gzip",
				"X-Raw-Body":       "1",
			},
			want: want{
				statusCode: http.StatusBadRequest,
			},
		},
	}

	handler := GzipMiddleware(http.HandlerFunc(gzipTestHandler))

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body io.Reader
			if tt.headers["Content-Encoding"] == "gzip" && tt.headers["X-Raw-Body"] == "" {
				var buf bytes.Buffer
				gw := gzip.NewWriter(&buf)
				if _, err := gw.Write([]byte(tt.requestBody)); err != nil {
					t.Fatalf("gzip write: %v", err)
				}
				if err := gw.Close(); err != nil {
					t.Fatalf("gzip close: %v", err)
				}
				body = &buf
			} else {
				body = strings.NewReader(tt.requestBody)
			}

			r := httptest.NewRequest(http.MethodPost, "/", body)
			for k, v := range tt.headers {
				if k == "X-Raw-Body" {
					continue
				}
				r.Header.Set(k, v)
			}

			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, r)

			res := rec.Result()
			defer res.Body.Close()

			if res.StatusCode != tt.want.statusCode {
				t.Fatalf("status = %d, want %d", res.StatusCode, tt.want.statusCode)
			}

			if tt.want.contentEncoding != "" && res.Header.Get("Content-Encoding") != tt.want.contentEncoding {
				t.Fatalf("content encoding = %q, want %q", res.Header.Get("Content-Encoding"), tt.want.contentEncoding)
			}

			if tt.want.bodyContains == "" {
				return
			}

			var reader io.Reader = res.Body
			if res.Header.Get("Content-Encoding") == "gzip" {
				gr, err := gzip.NewReader(res.Body)
				if err != nil {
					t.Fatalf("gzip reader: %v", err)
				}
				defer gr.Close()
				reader = gr
			}

			data, err := io.ReadAll(reader)
			if err != nil {
				t.Fatalf("read body: %v", err)
			}
			if !strings.Contains(string(data), tt.want.bodyContains) {
				t.Fatalf("body = %q, want containing %q", string(data), tt.want.bodyContains)
			}
		})
	}
}
