// Package web bridges the host facade to browser clients. Remote calls
// arrive over a WebSocket as [seq, function, ...args] arrays and are answered
// with [seq] or [seq, result]; listener values are pushed under the sequence
// number of the add_*_listener call. A plain HTTP server hosts the UI files.
//
// Sockets are read and written on their own goroutines, but every facade
// call happens in Tick, which must run on the session's control goroutine.
package web

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"regexp"
	"strconv"
	"sync"
	"time"

	"github.com/Conceptual-Machines/dawscript-go/host"
	"github.com/Conceptual-Machines/dawscript-go/metrics"
	"github.com/Conceptual-Machines/dawscript-go/models"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	DefaultWSPort   = 49152
	DefaultHTTPPort = 8080

	shutdownTimeout = 2 * time.Second
)

// UnknownFunctionError is sent back for calls to functions the bridge does
// not expose.
type UnknownFunctionError = host.UnknownFunctionError

// Options configures a Server.
type Options struct {
	// Ports default to DefaultWSPort and DefaultHTTPPort in the application
	// config. Zero picks a free port.
	WSPort   int
	HTTPPort int
	// Htdocs is the directory served over HTTP. Empty serves only the
	// built-in client script.
	Htdocs string
	// Addrs are the bind addresses. Nil binds loopback and the LAN address.
	Addrs []string
}

type event struct {
	client *client
	req    *models.RemoteRequest
	// closed is set when the client disconnected.
	closed bool
}

// Server is the remote bridge. Start and Stop it from the controller hooks,
// and call Tick once per host tick.
type Server struct {
	opts     Options
	log      logrus.FieldLogger
	metrics  *metrics.SentryMetrics
	upgrader websocket.Upgrader

	facade  *host.Facade
	codec   *Codec
	servers []*http.Server
	wsAddrs []net.Addr
	clients map[string]*client

	mu      sync.Mutex
	pending []event
	conns   map[*client]struct{}
}

func NewServer(opts Options, m *metrics.SentryMetrics, log logrus.FieldLogger) *Server {
	return &Server{
		opts:    opts,
		log:     log.WithField("component", "web"),
		metrics: m,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
		clients: make(map[string]*client),
		conns:   make(map[*client]struct{}),
	}
}

// Start binds both servers on every address and returns the URLs the UI
// can be opened at. It fails only when no address could be bound.
func (s *Server) Start(f *host.Facade) ([]string, error) {
	s.facade = f
	s.codec = NewCodec(f)

	addrs := s.opts.Addrs
	if addrs == nil {
		addrs = []string{"127.0.0.1"}
		if lan, err := lanAddress(); err == nil {
			addrs = append(addrs, lan)
		} else {
			s.log.WithError(err).Debug("no LAN address")
		}
	}

	wsMux := http.NewServeMux()
	wsMux.HandleFunc("/", s.handleWS)
	for _, addr := range addrs {
		if ln, err := s.serve(addr, s.opts.WSPort, wsMux); err != nil {
			s.log.WithError(err).WithField("addr", addr).Warn("websocket server not started")
		} else {
			s.wsAddrs = append(s.wsAddrs, ln)
		}
	}
	if len(s.wsAddrs) == 0 {
		s.Stop()
		return nil, errors.New("could not start websocket server")
	}

	files := newFileHandler(s.opts.Htdocs)
	var urls []string
	for _, addr := range addrs {
		ln, err := s.serve(addr, s.opts.HTTPPort, files)
		if err != nil {
			s.Stop()
			return nil, fmt.Errorf("start http server: %w", err)
		}
		urls = append(urls, s.url(ln))
	}

	s.log.WithField("urls", urls).Info("web bridge started")
	return urls, nil
}

func (s *Server) serve(addr string, port int, h http.Handler) (net.Addr, error) {
	ln, err := net.Listen("tcp", net.JoinHostPort(addr, strconv.Itoa(port)))
	if err != nil {
		return nil, err
	}
	srv := &http.Server{Handler: h, ReadHeaderTimeout: 5 * time.Second}
	s.servers = append(s.servers, srv)
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.WithError(err).Error("server stopped")
		}
	}()
	return ln.Addr(), nil
}

func (s *Server) url(httpAddr net.Addr) string {
	u := "http://" + httpAddr.String()
	if port := s.wsAddrs[0].(*net.TCPAddr).Port; port != DefaultWSPort {
		u += "?port=" + strconv.Itoa(port)
	}
	return u
}

// WSAddrs returns the addresses the WebSocket server listens on.
func (s *Server) WSAddrs() []net.Addr {
	return s.wsAddrs
}

// Stop closes every connection, drops the listeners of every client and
// shuts the servers down.
func (s *Server) Stop() {
	s.mu.Lock()
	for c := range s.conns {
		c.close()
	}
	s.conns = make(map[*client]struct{})
	s.pending = nil
	s.mu.Unlock()

	for id := range s.clients {
		s.dropClient(id)
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	for _, srv := range s.servers {
		if err := srv.Shutdown(ctx); err != nil {
			s.log.WithError(err).Warn("server shutdown")
		}
	}
	s.servers = nil
	s.wsAddrs = nil
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.WithError(err).Debug("websocket upgrade failed")
		return
	}
	c := newClient(conn, s.log)
	s.mu.Lock()
	s.conns[c] = struct{}{}
	s.mu.Unlock()
	s.log.WithField("client", c.id).Debug("client connected")

	go c.writeLoop()
	go c.readLoop(s.enqueue)
}

func (s *Server) enqueue(e event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e.closed {
		delete(s.conns, e.client)
	}
	s.pending = append(s.pending, e)
}

// Tick processes the requests received since the previous tick.
func (s *Server) Tick() {
	s.mu.Lock()
	pending := s.pending
	s.pending = nil
	s.mu.Unlock()

	for _, e := range pending {
		if e.closed {
			s.dropClient(e.client.id)
			continue
		}
		s.clients[e.client.id] = e.client
		if e.req != nil {
			s.handle(e.client, e.req)
		}
	}
}

// ForgetListeners drops the remote listener bookkeeping of every client.
// Called on project load, after the session has dropped the registrations.
func (s *Server) ForgetListeners() {
	for _, c := range s.clients {
		c.subs = make(map[int64]subscription)
	}
}

func (s *Server) dropClient(id string) {
	c, ok := s.clients[id]
	if !ok {
		return
	}
	delete(s.clients, id)
	n := s.facade.RemoveClientListeners(id)
	c.subs = nil
	s.log.WithFields(logrus.Fields{"client": id, "listeners": n}).Debug("client disconnected")
}

var listenerFunc = regexp.MustCompile(`^(add|remove)_([a-z_]+)_listener$`)

// parseListenerFunc splits add_<prop>_listener and remove_<prop>_listener.
func parseListenerFunc(name string) (action string, prop host.Property, ok bool) {
	m := listenerFunc.FindStringSubmatch(name)
	if m == nil {
		return "", "", false
	}
	prop, ok = host.ParseProperty(m[2])
	return m[1], prop, ok
}

func (s *Server) handle(c *client, req *models.RemoteRequest) {
	start := time.Now()
	resp, err := s.call(c, req)
	s.metrics.RecordRemoteCall(context.Background(), req.Func, time.Since(start), err == nil)
	if err != nil {
		s.log.WithError(err).WithField("func", req.Func).Warn("remote call failed")
		resp = models.ErrorReply(req.Seq, err)
	}
	c.send(resp)
}

func (s *Server) call(c *client, req *models.RemoteRequest) (models.RemoteResponse, error) {
	if action, prop, ok := parseListenerFunc(req.Func); ok {
		if action == "add" {
			return s.addListener(c, req, prop)
		}
		return s.removeListener(c, req, prop)
	}

	args := make([]any, len(req.Args))
	for i, raw := range req.Args {
		v, err := s.codec.Decode(raw)
		if err != nil {
			return models.RemoteResponse{}, err
		}
		args[i] = v
	}

	// The write is observed on the next reconciler pass, so arming the echo
	// window after a successful call still hides it from the writer.
	if prop, ok := host.SetterProperty(req.Func); ok && len(args) > 0 {
		if _, err := s.facade.Call(req.Func, args...); err != nil {
			return models.RemoteResponse{}, err
		}
		if err := s.facade.MuteEcho(args[0], prop, c.id); err != nil {
			s.log.WithError(err).WithField("func", req.Func).Warn("echo suppression")
		}
		return models.Ack(req.Seq), nil
	}

	result, err := s.facade.Call(req.Func, args...)
	if err != nil {
		return models.RemoteResponse{}, err
	}
	payload, err := s.codec.Encode(result)
	if err != nil {
		return models.RemoteResponse{}, err
	}
	return models.Reply(req.Seq, payload), nil
}

func (s *Server) addListener(c *client, req *models.RemoteRequest, prop host.Property) (models.RemoteResponse, error) {
	if len(req.Args) < 1 {
		return models.RemoteResponse{}, &host.ArgumentError{Func: req.Func, Want: "a handle"}
	}
	target, err := s.codec.Decode(req.Args[0])
	if err != nil {
		return models.RemoteResponse{}, err
	}

	seq := req.Seq
	id, err := s.facade.AddListener(target, prop, c.id, func(v any) {
		payload, err := s.codec.Encode(v)
		if err != nil {
			s.log.WithError(err).Warn("encode listener value")
			return
		}
		c.send(models.Reply(seq, payload))
	})
	if err != nil {
		return models.RemoteResponse{}, err
	}
	c.subs[seq] = subscription{target: target, prop: prop, id: id}
	return models.Ack(seq), nil
}

// removeListener takes the sequence number of the add call. Unknown numbers,
// and numbers of a listener on another property, are logged and
// acknowledged.
func (s *Server) removeListener(c *client, req *models.RemoteRequest, prop host.Property) (models.RemoteResponse, error) {
	if len(req.Args) < 1 {
		return models.RemoteResponse{}, &host.ArgumentError{Func: req.Func, Want: "a listener sequence number"}
	}
	v, err := s.codec.Decode(req.Args[0])
	if err != nil {
		return models.RemoteResponse{}, err
	}
	n, ok := v.(float64)
	if !ok {
		return models.RemoteResponse{}, &host.ArgumentError{Func: req.Func, Want: "a listener sequence number", Got: v}
	}

	sub, ok := c.subs[int64(n)]
	if !ok || sub.prop != prop {
		s.log.WithFields(logrus.Fields{"seq": int64(n), "prop": string(prop)}).Info("listener not registered")
		return models.Ack(req.Seq), nil
	}
	delete(c.subs, int64(n))
	if err := s.facade.RemoveListener(sub.target, sub.prop, sub.id); err != nil {
		return models.RemoteResponse{}, err
	}
	return models.Ack(req.Seq), nil
}

// lanAddress returns the address of the interface routing to the internet.
// Dialing UDP sends no packets.
func lanAddress() (string, error) {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		return "", err
	}
	defer conn.Close()
	return conn.LocalAddr().(*net.UDPAddr).IP.String(), nil
}
