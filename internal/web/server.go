package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vadiminshakov/banksim/internal/dashboard"
	"github.com/vadiminshakov/banksim/internal/domain"
	"github.com/vadiminshakov/banksim/internal/events"
	"github.com/vadiminshakov/banksim/internal/services/clock"
	"github.com/vadiminshakov/banksim/internal/services/funding"
)

const heartbeatInterval = 30 * time.Second

type viewSource interface {
	Build() dashboard.View
	Slot() int
	Mortgage(id int64) (domain.MortgageApplication, domain.ClientAccount, error)
}

type fundingSource interface {
	State() funding.State
	Subscribe() chan funding.State
	Unsubscribe(ch chan funding.State)
	Approve(ctx context.Context, slot int, mortgage domain.MortgageApplication, client domain.ClientAccount) (funding.State, error)
	ConfirmFunding(ctx context.Context, amount decimal.Decimal) (funding.State, error)
	Cancel() error
}

// Server exposes the dashboard as JSON, the game clock and funding workflow
// as SSE streams, and the funding workflow's actions as POST routes.
type Server struct {
	Addr    string
	Views   viewSource
	Clock   *events.Broadcaster[clock.Reading]
	Funding fundingSource
	// MaxFunding caps a single down payment top-up; zero means no cap.
	MaxFunding decimal.Decimal
	logger     *zap.Logger
}

// NewServer creates a new web server instance.
func NewServer(addr string, views viewSource, clockEvents *events.Broadcaster[clock.Reading], fundingState fundingSource, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{Addr: addr, Views: views, Clock: clockEvents, Funding: fundingState, logger: logger}
}

// Handler returns the server's routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/dashboard", s.handleDashboard)
	mux.HandleFunc("/clock/stream", s.handleClockStream)
	mux.HandleFunc("/funding/stream", s.handleFundingStream)
	mux.HandleFunc("POST /mortgages/{id}/approve", s.handleApprove)
	mux.HandleFunc("POST /funding/confirm", s.handleConfirm)
	mux.HandleFunc("POST /funding/cancel", s.handleCancel)
	return mux
}

// Start runs the HTTP server (blocking) and shuts it down when ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	server := &http.Server{
		Addr:              s.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	s.logger.Info("dashboard server listening", zap.String("addr", s.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, indexHTML)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if s.Views == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		fmt.Fprint(w, "dashboard not available")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	if err := json.NewEncoder(w).Encode(s.Views.Build()); err != nil {
		s.logger.Warn("encode dashboard", zap.Error(err))
	}
}

func (s *Server) handleClockStream(w http.ResponseWriter, r *http.Request) {
	if s.Clock == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		fmt.Fprint(w, "clock not available")
		return
	}

	ch := s.Clock.Subscribe()
	defer s.Clock.Unsubscribe(ch)

	stream[clock.Reading](w, r, s.logger, "clock", nil, ch)
}

func (s *Server) handleFundingStream(w http.ResponseWriter, r *http.Request) {
	if s.Funding == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		fmt.Fprint(w, "funding workflow not available")
		return
	}

	ch := s.Funding.Subscribe()
	defer s.Funding.Unsubscribe(ch)

	initial := s.Funding.State()
	stream[funding.State](w, r, s.logger, "funding", &initial, ch)
}

type actionResponse struct {
	State funding.State `json:"state"`
	Error string        `json:"error,omitempty"`
}

type confirmRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

func (s *Server) handleApprove(w http.ResponseWriter, r *http.Request) {
	if s.Funding == nil || s.Views == nil {
		http.Error(w, "funding workflow not available", http.StatusServiceUnavailable)
		return
	}

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		http.Error(w, "invalid mortgage id", http.StatusBadRequest)
		return
	}

	mortgage, client, err := s.Views.Mortgage(id)
	if err != nil {
		s.respond(w, s.Funding.State(), err)
		return
	}

	// the workflow outlives a dropped connection
	st, err := s.Funding.Approve(context.WithoutCancel(r.Context()), s.Views.Slot(), mortgage, client)
	s.respond(w, st, err)
}

func (s *Server) handleConfirm(w http.ResponseWriter, r *http.Request) {
	if s.Funding == nil {
		http.Error(w, "funding workflow not available", http.StatusServiceUnavailable)
		return
	}

	var req confirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	amount := domain.Round2(req.Amount)
	if !amount.IsPositive() {
		s.respond(w, s.Funding.State(), domain.NewValidationError("amount", "must be greater than 0"))
		return
	}
	if s.MaxFunding.IsPositive() && amount.GreaterThan(s.MaxFunding) {
		s.respond(w, s.Funding.State(), domain.NewValidationError("amount",
			"must not exceed "+domain.FormatMoney(s.MaxFunding)))
		return
	}

	st, err := s.Funding.ConfirmFunding(context.WithoutCancel(r.Context()), amount)
	s.respond(w, st, err)
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	if s.Funding == nil {
		http.Error(w, "funding workflow not available", http.StatusServiceUnavailable)
		return
	}

	err := s.Funding.Cancel()
	s.respond(w, s.Funding.State(), err)
}

func (s *Server) respond(w http.ResponseWriter, st funding.State, err error) {
	resp := actionResponse{State: st}
	status := http.StatusOK
	if err != nil {
		resp.Error = err.Error()
		status = statusFor(err)
		s.logger.Warn("funding action failed", zap.Int("status", status), zap.Error(err))
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.logger.Warn("encode funding response", zap.Error(err))
	}
}

func statusFor(err error) int {
	switch {
	case domain.IsValidation(err):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, funding.ErrWorkflowBusy), errors.Is(err, funding.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized
	default:
		return http.StatusBadGateway
	}
}

// stream writes every value from ch as an SSE event until the client leaves.
func stream[T any](w http.ResponseWriter, r *http.Request, logger *zap.Logger, name string, initial *T, ch <-chan T) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	send := func(v T) bool {
		payload, err := json.Marshal(v)
		if err != nil {
			logger.Warn("encode stream event", zap.String("event", name), zap.Error(err))
			return true
		}
		if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", name, payload); err != nil {
			return false
		}
		flusher.Flush()
		return true
	}

	if initial != nil && !send(*initial) {
		return
	}

	// send a comment heartbeat so proxies keep the connection
	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			fmt.Fprintf(w, ": ping\n\n")
			flusher.Flush()
		case v, ok := <-ch:
			if !ok || !send(v) {
				return
			}
		}
	}
}

const indexHTML = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="utf-8" />
  <title>Banksim</title>
  <style>
    body { font-family: 'Space Mono', monospace; margin: 2rem; color: #111; }
    h1 { font-size: 1.2rem; }
    .clock { font-size: 1.6rem; margin-bottom: 1rem; }
    table { border-collapse: collapse; margin-bottom: 1.5rem; }
    td, th { border: 1px solid #ddd; padding: .25rem .6rem; text-align: right; }
    th { background: #f6f6f6; }
    .stale { color: #d7263d; }
  </style>
</head>
<body>
  <h1>Banksim</h1>
  <div class="clock"><span id="date">---</span> <small id="countdown"></small> <small id="stale" class="stale"></small></div>
  <table id="totals"></table>
  <table id="clients"></table>
  <table id="mortgages"></table>
  <div id="funding"></div>
  <script>
    const rows = (el, pairs) => {
      el.innerHTML = pairs.map(p => '<tr>' + p.map(c => '<td>' + c + '</td>').join('') + '</tr>').join('');
    };
    async function refresh() {
      const res = await fetch('/dashboard');
      if (!res.ok) return;
      const v = await res.json();
      document.getElementById('stale').textContent = v.stale ? 'refreshing' : '';
      rows(document.getElementById('totals'), [
        ['Bank liquid cash', v.totals.bank_liquid_cash],
        ['Client funds', v.totals.total_client_funds],
        ['Combined liquid cash', v.totals.combined_liquid_cash],
        ['Available property value', v.totals.available_property_value],
        ['Invested S&amp;P 500', v.totals.invested_sp500],
        ['Total assets', v.totals.total_assets],
        ['Mortgage rate', v.totals.mortgage_rate],
      ]);
      rows(document.getElementById('clients'), (v.clients || []).map(c => [c.id, c.name, c.checking, c.savings, c.remaining_withdrawal]));
      rows(document.getElementById('mortgages'), (v.mortgages || []).map(m => [
        m.id, m.client_id, m.property_price, m.down_payment, m.status,
        m.status === 'PENDING' ? '<button onclick="post(\'/mortgages/' + m.id + '/approve\')">approve</button>' : '',
      ]));
    }
    async function post(path, body) {
      const res = await fetch(path, {method: 'POST', headers: {'Content-Type': 'application/json'}, body: body ? JSON.stringify(body) : null});
      const out = await res.json().catch(() => null);
      if (out && out.error) alert(out.error);
      refresh();
    }
    function showFunding(st) {
      const el = document.getElementById('funding');
      if (st.phase === 'FUNDING_NEEDED' && st.funding) {
        el.innerHTML = 'Client ' + st.funding.client.name + ' needs ' + st.funding.amount_needed +
          ' <input id="amount" value="' + st.funding.amount_needed + '" />' +
          ' <button onclick="post(\'/funding/confirm\', {amount: document.getElementById(\'amount\').value})">fund</button>' +
          ' <button onclick="post(\'/funding/cancel\')">cancel</button>';
      } else if (st.phase === 'FAILED') {
        el.innerHTML = 'Approval failed: ' + st.message + ' <button onclick="post(\'/funding/cancel\')">dismiss</button>';
      } else {
        el.textContent = st.phase === 'IDLE' ? '' : st.phase;
      }
    }
    const fs = new EventSource('/funding/stream');
    fs.addEventListener('funding', e => showFunding(JSON.parse(e.data)));
    const es = new EventSource('/clock/stream');
    es.addEventListener('clock', e => {
      const r = JSON.parse(e.data);
      document.getElementById('date').textContent = r.label;
      document.getElementById('countdown').textContent = r.known ? 'next month in ' + r.seconds_until_next_month + 's' : '';
    });
    refresh();
    setInterval(refresh, 5000);
  </script>
</body>
</html>
`
