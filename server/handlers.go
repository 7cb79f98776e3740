package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rustyeddy/papertrader/ledger"
	"github.com/rustyeddy/papertrader/market"
	"github.com/rustyeddy/papertrader/session"
	"github.com/rustyeddy/papertrader/view"
	"go.uber.org/zap"
)

var ErrUnknownAction = errors.New("unknown action")

// ActionRequest is one dashboard action. Qty is used by buy, sell and
// follow; Ticker, Period and Interval by fetch.
type ActionRequest struct {
	Action   string `json:"action"`
	Ticker   string `json:"ticker,omitempty"`
	Period   string `json:"period,omitempty"`
	Interval string `json:"interval,omitempty"`
	Qty      int64  `json:"qty,omitempty"`
}

type ActionResponse struct {
	Trade     *ledger.Trade  `json:"trade,omitempty"`
	Dashboard view.Dashboard `json:"dashboard"`
}

// wsMessage is what the socket sends back: a dashboard, or an error with
// the dashboard unchanged.
type wsMessage struct {
	Type      string          `json:"type"`
	Trade     *ledger.Trade   `json:"trade,omitempty"`
	Error     string          `json:"error,omitempty"`
	Dashboard *view.Dashboard `json:"dashboard,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	jsonOK(w, http.StatusOK, map[string]any{
		"ok":       true,
		"version":  s.version,
		"sessions": s.store.Len(),
	})
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	sess := s.store.Create()
	jsonOK(w, http.StatusCreated, sess.Dashboard())
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	jsonOK(w, http.StatusOK, sess.Dashboard())
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Delete(r.PathValue("id")); err != nil {
		jsonErr(w, statusFor(err), err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAction(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}

	var req ActionRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		jsonErr(w, http.StatusBadRequest, "bad json: "+err.Error())
		return
	}

	tr, err := apply(r.Context(), sess, req)
	if err != nil {
		s.log.Info("action failed",
			zap.String("session", sess.ID()),
			zap.String("action", req.Action),
			zap.Error(err),
		)
		jsonErr(w, statusFor(err), err.Error())
		return
	}
	jsonOK(w, http.StatusOK, ActionResponse{Trade: tr, Dashboard: sess.Dashboard()})
}

func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	sess, err := s.store.Get(r.PathValue("id"))
	if err != nil {
		jsonErr(w, http.StatusNotFound, err.Error())
		return nil, false
	}
	return sess, true
}

// apply runs req against sess. Trades return the executed fill.
func apply(ctx context.Context, sess *session.Session, req ActionRequest) (*ledger.Trade, error) {
	var (
		tr  ledger.Trade
		err error
	)
	switch strings.ToLower(strings.TrimSpace(req.Action)) {
	case "fetch":
		period, interval, perr := parseRange(req.Period, req.Interval)
		if perr != nil {
			return nil, perr
		}
		return nil, sess.Fetch(ctx, req.Ticker, period, interval)
	case "buy":
		tr, err = sess.Buy(req.Qty)
	case "sell":
		tr, err = sess.Sell(req.Qty)
	case "follow":
		tr, err = sess.Follow(req.Qty)
	case "reset":
		sess.Reset()
		return nil, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAction, req.Action)
	}
	if err != nil {
		return nil, err
	}
	return &tr, nil
}

func parseRange(p, i string) (market.Period, market.Interval, error) {
	period, err := market.ParsePeriod(p)
	if err != nil {
		return "", "", err
	}
	interval, err := market.ParseInterval(i)
	if err != nil {
		return "", "", err
	}
	return period, interval, nil
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, session.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrUnknownAction),
		errors.Is(err, market.ErrEmptyTicker),
		errors.Is(err, market.ErrUnknownPeriod),
		errors.Is(err, market.ErrUnknownInterval),
		errors.Is(err, ledger.ErrInvalidQuantity),
		errors.Is(err, ledger.ErrInvalidPrice):
		return http.StatusBadRequest
	case errors.Is(err, market.ErrNoData):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ledger.ErrInsufficientFunds),
		errors.Is(err, ledger.ErrInsufficientShares),
		errors.Is(err, ledger.ErrPriceUnavailable),
		errors.Is(err, session.ErrNoTicker),
		errors.Is(err, session.ErrNothingToFollow):
		return http.StatusConflict
	case errors.Is(err, market.ErrBadBar):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

const (
	wsWriteWait = 10 * time.Second
	wsPongWait  = 60 * time.Second

	// Must be shorter than wsPongWait.
	wsPingPeriod = wsPongWait * 9 / 10
)

// handleWS pushes the dashboard on connect and after every action read
// from the socket.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("ws upgrade", zap.Error(err))
		return
	}
	defer conn.Close()

	log := s.log.With(zap.String("session", sess.ID()))
	log.Debug("ws connected")

	send := func(m wsMessage) error {
		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
		return conn.WriteJSON(m)
	}

	d := sess.Dashboard()
	if err := send(wsMessage{Type: "dashboard", Dashboard: &d}); err != nil {
		return
	}

	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	done := make(chan struct{})
	defer close(done)
	go s.pingLoop(conn, done, log)

	for {
		var req ActionRequest
		if err := conn.ReadJSON(&req); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Warn("ws read", zap.Error(err))
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))

		tr, err := apply(r.Context(), sess, req)
		msg := wsMessage{Type: "dashboard", Trade: tr}
		if err != nil {
			msg = wsMessage{Type: "error", Error: err.Error()}
		}
		d := sess.Dashboard()
		msg.Dashboard = &d
		if err := send(msg); err != nil {
			log.Warn("ws write", zap.Error(err))
			return
		}
	}
}

// pingLoop keeps an idle connection alive until done is closed.
// WriteControl may run alongside the handler's own writes.
func (s *Server) pingLoop(conn *websocket.Conn, done <-chan struct{}, log *zap.Logger) {
	t := time.NewTicker(s.pingPeriod)
	defer t.Stop()
	for {
		select {
		case <-done:
			return
		case <-t.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait)); err != nil {
				log.Debug("ws ping", zap.Error(err))
				return
			}
		}
	}
}
