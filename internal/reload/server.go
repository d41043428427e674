package reload

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/conneroisu/pressify/internal/errors"
	"github.com/conneroisu/pressify/internal/logging"
	"github.com/conneroisu/pressify/internal/platform"
)

const (
	// SocketPath is where browsers connect for reload messages.
	SocketPath = "/__pressify/ws"
	// ClientPath serves the injected client script.
	ClientPath = "/__pressify/client.js"
)

// Options configure a Server.
type Options struct {
	// Host and Port are where the proxy listens. Port 0 picks a free port.
	Host string
	Port int
	// Target is the upstream WordPress server.
	Target *url.URL
	// Open opens the proxy URL in a browser once listening.
	Open bool
}

// Server is the reload proxy.
type Server struct {
	opts     Options
	hub      *Hub
	proxy    *httputil.ReverseProxy
	server   *http.Server
	listener net.Listener
	adapter  platform.Adapter
	logger   logging.Logger
}

// NewServer creates a reload proxy for opts.Target. adapter opens the
// browser and may be nil when opts.Open is false.
func NewServer(opts Options, adapter platform.Adapter, logger logging.Logger) *Server {
	if logger == nil {
		logger = logging.Discard()
	}
	logger = logger.WithComponent("reload")

	s := &Server{
		opts:    opts,
		hub:     NewHub(logger, "127.0.0.1:*", "localhost:*"),
		adapter: adapter,
		logger:  logger,
	}

	s.proxy = &httputil.ReverseProxy{
		Rewrite: func(r *httputil.ProxyRequest) {
			r.SetURL(opts.Target)
			r.Out.Host = r.In.Host
			// Injection needs an uncompressed body
			r.Out.Header.Del("Accept-Encoding")
		},
		ModifyResponse: s.modifyResponse,
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			s.logger.Warn(r.Context(), err, "Upstream request failed", "path", r.URL.Path)
			http.Error(w, "WordPress is not reachable yet: "+err.Error(), http.StatusBadGateway)
		},
	}

	mux := http.NewServeMux()
	mux.Handle(SocketPath, s.hub)
	mux.HandleFunc(ClientPath, s.handleClient)
	mux.Handle("/", s.proxy)

	s.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Hub returns the websocket hub.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Start listens and serves in the background until ctx is done or
// Shutdown is called.
func (s *Server) Start(ctx context.Context) error {
	addr := net.JoinHostPort(s.opts.Host, strconv.Itoa(s.opts.Port))
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return errors.NewIOError("PROXY_LISTEN_FAILED", "cannot listen on "+addr, err).
			WithHint("set PROXY_PORT in .env to a free port")
	}
	s.listener = listener

	go s.hub.Run(ctx)
	go func() {
		if err := s.server.Serve(listener); err != nil && err != http.ErrServerClosed {
			s.logger.Error(ctx, err, "Reload proxy stopped")
		}
	}()

	s.logger.Info(ctx, "Reload proxy listening", "url", s.URL(), "target", s.opts.Target.String())

	if s.opts.Open && s.adapter != nil {
		if err := s.adapter.OpenURL(s.URL()); err != nil {
			s.logger.Warn(ctx, err, "Cannot open browser", "url", s.URL())
		}
	}
	return nil
}

// URL returns the address browsers should use.
func (s *Server) URL() string {
	if s.listener == nil {
		return fmt.Sprintf("http://%s", net.JoinHostPort(s.opts.Host, strconv.Itoa(s.opts.Port)))
	}
	return "http://" + s.listener.Addr().String()
}

// Shutdown stops accepting requests and waits for active ones.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// Notify implements Notifier.
func (s *Server) Notify(ctx context.Context, mode Mode, pattern string) {
	msg := NewMessage(mode, pattern)
	s.logger.Debug(ctx, "Reloading browsers", "type", msg.Type, "pattern", pattern, "clients", s.hub.Count())
	s.hub.Broadcast(ctx, msg)
}

func (s *Server) handleClient(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = io.WriteString(w, clientScript)
}

func (s *Server) modifyResponse(resp *http.Response) error {
	s.rewriteLocation(resp)

	if !strings.HasPrefix(resp.Header.Get("Content-Type"), "text/html") || resp.Header.Get("Content-Encoding") != "" {
		return nil
	}

	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return err
	}

	injected, err := InjectScript(body, ClientPath)
	if err != nil {
		// Serve the page as-is rather than fail the request
		s.logger.Warn(resp.Request.Context(), err, "Cannot inject reload client", "path", resp.Request.URL.Path)
		injected = body
	}

	resp.Body = io.NopCloser(bytes.NewReader(injected))
	resp.ContentLength = int64(len(injected))
	resp.Header.Set("Content-Length", strconv.Itoa(len(injected)))
	return nil
}

// rewriteLocation keeps redirects from the upstream on the proxy host.
func (s *Server) rewriteLocation(resp *http.Response) {
	location := resp.Header.Get("Location")
	if location == "" {
		return
	}
	u, err := url.Parse(location)
	if err != nil || u.Host != s.opts.Target.Host {
		return
	}
	u.Scheme = "http"
	u.Host = resp.Request.Host
	resp.Header.Set("Location", u.String())
}
