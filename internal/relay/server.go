package relay

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gopkg.in/op/go-logging.v1"

	"ledgerchat/internal/crypto"
	"ledgerchat/internal/domain"
)

const (
	maxBodyBytes = 1 << 20
	// maxClockSkew bounds how far a write's signed time may be from the
	// node clock. Signed writes are remembered for this long either side.
	maxClockSkew = 5 * time.Minute
)

// Server serves a domain.Ledger over HTTP.
type Server struct {
	ledger domain.Ledger
	log    *logging.Logger
	mux    *http.ServeMux

	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
	writes   *prometheus.CounterVec

	now  func() time.Time
	seen replayGuard
}

// replayGuard remembers accepted writes until their signed time falls out
// of the skew window.
type replayGuard struct {
	mu   sync.Mutex
	seen map[[sha256.Size]byte]time.Time
}

// admit records key and reports whether it was new.
func (g *replayGuard) admit(key [sha256.Size]byte, expires, now time.Time) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.seen == nil {
		g.seen = make(map[[sha256.Size]byte]time.Time)
	}
	for k, exp := range g.seen {
		if now.After(exp) {
			delete(g.seen, k)
		}
	}
	if _, dup := g.seen[key]; dup {
		return false
	}
	g.seen[key] = expires
	return true
}

// NewServer returns a handler for l. Metrics are registered on reg and
// served from /metrics; pass nil to run without them.
func NewServer(l domain.Ledger, log *logging.Logger, reg *prometheus.Registry) *Server {
	s := &Server{
		ledger: l,
		log:    log,
		mux:    http.NewServeMux(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ledgerd",
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status code.",
		}, []string{"route", "code"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "ledgerd",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		writes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ledgerd",
			Name:      "ledger_writes_total",
			Help:      "Successful ledger writes by kind.",
		}, []string{"kind"}),
		now: time.Now,
	}

	s.handle("POST /accounts", s.register)
	s.handle("GET /accounts/{addr}", s.lookup)
	s.handle("POST /links", s.publishLink)
	s.handle("GET /links/events", s.linkEvents)
	s.handle("GET /links/{owner}/{peer}", s.readLink)
	s.handle("POST /messages", s.appendMessage)
	s.handle("GET /messages", s.query)
	s.handle("GET /block", s.block)

	if reg != nil {
		reg.MustRegister(s.requests, s.latency, s.writes)
		s.mux.Handle("GET /metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	}
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.mux.ServeHTTP(w, r) }

type statusWriter struct {
	http.ResponseWriter
	status int
	n      int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	n, err := w.ResponseWriter.Write(b)
	w.n += n
	return n, err
}

// handle wraps h with the access log, a request id and metrics.
func (s *Server) handle(pattern string, h http.HandlerFunc) {
	s.mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		id := r.Header.Get("X-Request-Id")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-Id", id)
		sw := &statusWriter{ResponseWriter: w}
		r.Body = http.MaxBytesReader(sw, r.Body, maxBodyBytes)

		h(sw, r)

		d := time.Since(start)
		s.requests.WithLabelValues(pattern, strconv.Itoa(sw.status)).Inc()
		s.latency.WithLabelValues(pattern).Observe(d.Seconds())
		s.log.Debugf("%s %s %s %d %dB %s [%s]", r.Method, r.URL.Path, r.RemoteAddr, sw.status, sw.n, d, id)
	})
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	sender, body, ok := s.authenticate(w, r)
	if !ok {
		return
	}
	var req registerRequest
	if !s.decode(w, body, &req) {
		return
	}
	if err := req.validate(); err != nil {
		s.fail(w, http.StatusBadRequest, codeBadRequest, err)
		return
	}
	var x [32]byte
	copy(x[:], req.PubX)
	if err := s.ledger.Register(r.Context(), sender, req.WrappedKey, x, req.Parity); err != nil {
		s.failErr(w, err)
		return
	}
	s.writes.WithLabelValues("account").Inc()
	s.reply(w, http.StatusCreated, struct{}{})
}

func (s *Server) lookup(w http.ResponseWriter, r *http.Request) {
	who, ok := s.pathAddress(w, r, "addr")
	if !ok {
		return
	}
	acct, found, err := s.ledger.Lookup(r.Context(), who)
	if err != nil {
		s.failErr(w, err)
		return
	}
	if !found {
		s.fail(w, http.StatusNotFound, codeNotFound, errors.New("account not found"))
		return
	}
	s.reply(w, http.StatusOK, accountToWire(acct))
}

func (s *Server) publishLink(w http.ResponseWriter, r *http.Request) {
	sender, body, ok := s.authenticate(w, r)
	if !ok {
		return
	}
	var req linkRequest
	if !s.decode(w, body, &req) {
		return
	}
	if len(req.ForSelf) == 0 || len(req.ForPeer) == 0 {
		s.fail(w, http.StatusBadRequest, codeBadRequest, errors.New("for_self and for_peer are required"))
		return
	}
	if !s.requireRegistered(w, r, sender, domain.ErrNotRegistered) ||
		!s.requireRegistered(w, r, req.Peer, domain.ErrPeerNotRegistered) {
		return
	}
	publish := s.ledger.LaunchLink
	if req.Rotate {
		publish = s.ledger.PublishLink
	}
	ev, err := publish(r.Context(), sender, req.Peer, req.ForSelf, req.ForPeer)
	if err != nil {
		s.failErr(w, err)
		return
	}
	s.writes.WithLabelValues("link").Inc()
	s.reply(w, http.StatusCreated, linkEvent(ev))
}

func (s *Server) readLink(w http.ResponseWriter, r *http.Request) {
	owner, ok := s.pathAddress(w, r, "owner")
	if !ok {
		return
	}
	peer, ok := s.pathAddress(w, r, "peer")
	if !ok {
		return
	}
	link, found, err := s.ledger.ReadLink(r.Context(), owner, peer)
	if err != nil {
		s.failErr(w, err)
		return
	}
	if !found {
		s.fail(w, http.StatusNotFound, codeNotFound, errors.New("link not found"))
		return
	}
	s.reply(w, http.StatusOK, linkResponse{
		Owner:  link.Owner,
		Peer:   link.Peer,
		Secret: link.Secret,
		Epoch:  link.Epoch,
		Block:  link.Block,
	})
}

func (s *Server) linkEvents(w http.ResponseWriter, r *http.Request) {
	var (
		f   domain.LinkFilter
		err error
	)
	q := r.URL.Query()
	if f.Initializer, err = queryAddress(q.Get("initializer")); err == nil {
		if f.Peer, err = queryAddress(q.Get("peer")); err == nil {
			f.FromBlock, f.ToBlock, err = queryRange(q.Get("from"), q.Get("to"))
		}
	}
	if err != nil {
		s.fail(w, http.StatusBadRequest, codeBadRequest, err)
		return
	}
	evs, err := s.ledger.LinkEvents(r.Context(), f)
	if err != nil {
		s.failErr(w, err)
		return
	}
	out := make([]linkEvent, 0, len(evs))
	for _, ev := range evs {
		out = append(out, linkEvent(ev))
	}
	s.reply(w, http.StatusOK, out)
}

func (s *Server) appendMessage(w http.ResponseWriter, r *http.Request) {
	sender, body, ok := s.authenticate(w, r)
	if !ok {
		return
	}
	var req appendRequest
	if !s.decode(w, body, &req) {
		return
	}
	if len(req.Ciphertext) == 0 {
		s.fail(w, http.StatusBadRequest, codeBadRequest, errors.New("ciphertext is required"))
		return
	}
	if !s.requireRegistered(w, r, sender, domain.ErrNotRegistered) {
		return
	}
	rcpt, err := s.ledger.Append(r.Context(), sender, req.Recipient, req.Ciphertext, req.Timestamp)
	if err != nil {
		s.failErr(w, err)
		return
	}
	s.writes.WithLabelValues("message").Inc()
	s.reply(w, http.StatusCreated, rcpt)
}

func (s *Server) query(w http.ResponseWriter, r *http.Request) {
	var (
		f   domain.MessageFilter
		err error
	)
	q := r.URL.Query()
	if f.Sender, err = queryAddress(q.Get("sender")); err == nil {
		if f.Recipient, err = queryAddress(q.Get("recipient")); err == nil {
			f.FromBlock, f.ToBlock, err = queryRange(q.Get("from"), q.Get("to"))
		}
	}
	if err != nil {
		s.fail(w, http.StatusBadRequest, codeBadRequest, err)
		return
	}
	evs, err := s.ledger.Query(r.Context(), f)
	if err != nil {
		s.failErr(w, err)
		return
	}
	out := make([]message, 0, len(evs))
	for _, ev := range evs {
		out = append(out, messageToWire(ev))
	}
	s.reply(w, http.StatusOK, out)
}

func (s *Server) block(w http.ResponseWriter, r *http.Request) {
	n, err := s.ledger.BlockNumber(r.Context())
	if err != nil {
		s.failErr(w, err)
		return
	}
	s.reply(w, http.StatusOK, blockResponse{Block: n})
}

func (s *Server) requireRegistered(w http.ResponseWriter, r *http.Request, who domain.Address, missing error) bool {
	_, ok, err := s.ledger.Lookup(r.Context(), who)
	if err != nil {
		s.failErr(w, err)
		return false
	}
	if !ok {
		s.failErr(w, missing)
		return false
	}
	return true
}

// authenticate checks the write signature on r and returns the sender and
// the body it covers. It has replied when ok is false.
func (s *Server) authenticate(w http.ResponseWriter, r *http.Request) (sender domain.Address, body []byte, ok bool) {
	sender, err := domain.ParseAddress(r.Header.Get(SenderHeader))
	if err != nil {
		s.fail(w, http.StatusBadRequest, codeBadRequest, errors.New("missing or invalid "+SenderHeader))
		return domain.Address{}, nil, false
	}
	ts, err := strconv.ParseInt(r.Header.Get(TimeHeader), 10, 64)
	if err != nil {
		s.unauthorized(w, sender, errors.New("missing or invalid "+TimeHeader))
		return domain.Address{}, nil, false
	}
	sig, err := hex.DecodeString(strings.TrimPrefix(r.Header.Get(SignatureHeader), "0x"))
	if err != nil || len(sig) == 0 {
		s.unauthorized(w, sender, errors.New("missing or invalid "+SignatureHeader))
		return domain.Address{}, nil, false
	}
	if body, err = io.ReadAll(r.Body); err != nil {
		s.fail(w, http.StatusBadRequest, codeBadRequest, err)
		return domain.Address{}, nil, false
	}

	now := s.now()
	signed := time.UnixMilli(ts)
	if d := now.Sub(signed); d > maxClockSkew || d < -maxClockSkew {
		s.unauthorized(w, sender, fmt.Errorf("signed time %s outside the allowed skew", signed.UTC().Format(time.RFC3339)))
		return domain.Address{}, nil, false
	}
	digest := writeDigest(r.Method, r.URL.Path, sender, ts, body)
	signer, err := crypto.RecoverAddress(digest, sig)
	if err != nil {
		s.unauthorized(w, sender, err)
		return domain.Address{}, nil, false
	}
	if signer != sender {
		s.unauthorized(w, sender, fmt.Errorf("signed by %s", signer))
		return domain.Address{}, nil, false
	}
	// Keyed on the digest so a re-encoded signature of the same write is
	// still a replay.
	if !s.seen.admit(sha256.Sum256(digest), signed.Add(maxClockSkew), now) {
		s.unauthorized(w, sender, errors.New("replayed write"))
		return domain.Address{}, nil, false
	}
	return sender, body, true
}

func (s *Server) unauthorized(w http.ResponseWriter, sender domain.Address, err error) {
	s.log.Warningf("rejected write for %s: %v", sender, err)
	s.fail(w, http.StatusUnauthorized, codeUnauthorized, err)
}

func (s *Server) pathAddress(w http.ResponseWriter, r *http.Request, name string) (domain.Address, bool) {
	a, err := domain.ParseAddress(r.PathValue(name))
	if err != nil {
		s.fail(w, http.StatusBadRequest, codeBadRequest, err)
		return domain.Address{}, false
	}
	return a, true
}

func (s *Server) decode(w http.ResponseWriter, body []byte, v any) bool {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		s.fail(w, http.StatusBadRequest, codeBadRequest, err)
		return false
	}
	return true
}

func (s *Server) reply(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Warningf("write response: %v", err)
	}
}

func (s *Server) fail(w http.ResponseWriter, status int, code string, err error) {
	s.reply(w, status, errorResponse{Error: err.Error(), Code: code})
}

func (s *Server) failErr(w http.ResponseWriter, err error) {
	for code, sentinel := range codeErrors {
		if errors.Is(err, sentinel) {
			s.fail(w, http.StatusConflict, code, err)
			return
		}
	}
	s.log.Errorf("ledger: %v", err)
	s.fail(w, http.StatusInternalServerError, codeInternal, errors.New("internal error"))
}

func queryAddress(s string) (*domain.Address, error) {
	if s == "" {
		return nil, nil
	}
	a, err := domain.ParseAddress(s)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func queryRange(from, to string) (uint64, uint64, error) {
	var f, t uint64
	var err error
	if from != "" {
		if f, err = strconv.ParseUint(from, 10, 64); err != nil {
			return 0, 0, err
		}
	}
	if to != "" {
		if t, err = strconv.ParseUint(to, 10, 64); err != nil {
			return 0, 0, err
		}
	}
	return f, t, nil
}
