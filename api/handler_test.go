package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitfsorg/raffle-go/config"
	"github.com/bitfsorg/raffle-go/metrics"
	"github.com/bitfsorg/raffle-go/prize"
	"github.com/bitfsorg/raffle-go/raffle"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var (
	authority = raffle.Address{0xF0, 0x01}
	alice     = raffle.Address{0xA1, 0x02}
	bob       = raffle.Address{0xB2, 0x03}
)

// Fee of 100 base units with 2 decimals, i.e. "1" coin.
const (
	fee      = 100
	decimals = 2
)

type testServer struct {
	raffle *raffle.Raffle
	router *gin.Engine
}

func newTestServer(t *testing.T, minter *prize.Minter) *testServer {
	t.Helper()
	opts := []raffle.Option{}
	if minter != nil {
		opts = append(opts, raffle.WithPrizeIssuer(minter))
	}
	r, err := raffle.New(raffle.Config{EntryFee: fee, Authority: authority},
		raffle.EntropyFunc(func(context.Context) (*big.Int, error) { return big.NewInt(0), nil }),
		raffle.NewBalances(), opts...)
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	r.Subscribe(metrics.New(reg, r).Observe)
	return &testServer{raffle: r, router: NewRouter(NewHandler(r, minter, decimals, true), reg)}
}

func encode(t *testing.T, a raffle.Address) string {
	t.Helper()
	s, err := a.Encode(true)
	require.NoError(t, err)
	return s
}

func (s *testServer) do(t *testing.T, method, path string, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var out map[string]interface{}
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	}
	return w, out
}

func (s *testServer) enter(t *testing.T, a raffle.Address) {
	t.Helper()
	w, _ := s.do(t, http.MethodPost, "/api/v1/enter", EnterRequest{Address: encode(t, a), Amount: "1"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, nil)
	w, body := s.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", body["status"])
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestRequestID_Reused(t *testing.T) {
	s := newTestServer(t, nil)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Header().Get("X-Request-ID"))
}

func TestStatus(t *testing.T) {
	s := newTestServer(t, nil)
	w, body := s.do(t, http.MethodGet, "/api/v1/status", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, body["open"])
	assert.Equal(t, "1", body["entry_fee"])
	assert.Equal(t, encode(t, authority), body["authority"])
	assert.Equal(t, float64(0), body["participants"])
	assert.Equal(t, s.raffle.RoundID(), body["round_id"])
}

func TestEnter(t *testing.T) {
	s := newTestServer(t, nil)

	t.Run("accepted", func(t *testing.T) {
		w, body := s.do(t, http.MethodPost, "/api/v1/enter", EnterRequest{Address: encode(t, alice), Amount: "1.00"})
		require.Equal(t, http.StatusCreated, w.Code)
		assert.Equal(t, float64(1), body["participants"])
	})

	tests := []struct {
		name   string
		req    interface{}
		status int
	}{
		{"wrong fee", EnterRequest{Address: encode(t, bob), Amount: "0.5"}, http.StatusBadRequest},
		{"too precise", EnterRequest{Address: encode(t, bob), Amount: "1.001"}, http.StatusBadRequest},
		{"bad address", EnterRequest{Address: "not-an-address", Amount: "1"}, http.StatusBadRequest},
		{"missing amount", map[string]string{"address": encode(t, bob)}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, body := s.do(t, http.MethodPost, "/api/v1/enter", tt.req)
			assert.Equal(t, tt.status, w.Code)
			assert.NotEmpty(t, body["error"])
		})
	}
	assert.Len(t, s.raffle.Participants(), 1)
}

func TestCloseAndResults(t *testing.T) {
	s := newTestServer(t, nil)
	s.enter(t, alice)
	s.enter(t, bob)

	w, _ := s.do(t, http.MethodPost, "/api/v1/close", AuthorityRequest{Authority: encode(t, alice)})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, body := s.do(t, http.MethodPost, "/api/v1/close", AuthorityRequest{Authority: encode(t, authority)})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, encode(t, alice), body["winner"])
	assert.Equal(t, float64(0), body["winner_index"])
	assert.Equal(t, []interface{}{encode(t, alice), encode(t, bob)}, body["participants"])
	assert.Equal(t, "1", body["entry_fee"])

	w, _ = s.do(t, http.MethodPost, "/api/v1/close", AuthorityRequest{Authority: encode(t, authority)})
	assert.Equal(t, http.StatusConflict, w.Code)

	w, _ = s.do(t, http.MethodPost, "/api/v1/enter", EnterRequest{Address: encode(t, bob), Amount: "1"})
	assert.Equal(t, http.StatusConflict, w.Code)

	for _, path := range []string{"/api/v1/results/0", "/api/v1/results/latest"} {
		w, body = s.do(t, http.MethodGet, path, nil)
		require.Equal(t, http.StatusOK, w.Code, path)
		assert.Equal(t, encode(t, alice), body["winner"], path)
		assert.Equal(t, float64(0), body["round"], path)
	}

	w, _ = s.do(t, http.MethodGet, "/api/v1/results/1", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w, _ = s.do(t, http.MethodGet, "/api/v1/results/abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestClose_EmptyRound(t *testing.T) {
	s := newTestServer(t, nil)
	w, _ := s.do(t, http.MethodPost, "/api/v1/close", AuthorityRequest{Authority: encode(t, authority)})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestRefundAndWithdraw(t *testing.T) {
	s := newTestServer(t, nil)
	s.enter(t, alice)
	s.enter(t, bob)
	s.enter(t, bob)
	_, err := s.raffle.CloseAndSelectWinner(context.Background(), authority)
	require.NoError(t, err)

	w, body := s.do(t, http.MethodGet, "/api/v1/refunds/"+encode(t, bob), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "2", body["amount"])

	w, body = s.do(t, http.MethodGet, "/api/v1/refunds/"+encode(t, alice), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "0", body["amount"])

	w, body = s.do(t, http.MethodPost, "/api/v1/withdraw", WithdrawRequest{Address: encode(t, bob)})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "2", body["amount"])

	w, _ = s.do(t, http.MethodPost, "/api/v1/withdraw", WithdrawRequest{Address: encode(t, bob)})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = s.do(t, http.MethodGet, "/api/v1/refunds/garbage", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestOpen(t *testing.T) {
	s := newTestServer(t, nil)
	w, _ := s.do(t, http.MethodPost, "/api/v1/open", AuthorityRequest{Authority: encode(t, authority)})
	assert.Equal(t, http.StatusConflict, w.Code)

	s.enter(t, alice)
	_, err := s.raffle.CloseAndSelectWinner(context.Background(), authority)
	require.NoError(t, err)
	before := s.raffle.RoundID()

	w, _ = s.do(t, http.MethodPost, "/api/v1/open", AuthorityRequest{Authority: encode(t, bob)})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, body := s.do(t, http.MethodPost, "/api/v1/open", AuthorityRequest{Authority: encode(t, authority)})
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEqual(t, before, body["round_id"])
	assert.True(t, s.raffle.IsRoundOpen())
}

func TestParticipantsAndAudit(t *testing.T) {
	s := newTestServer(t, nil)
	s.enter(t, alice)
	s.enter(t, bob)

	w, body := s.do(t, http.MethodGet, "/api/v1/participants", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []interface{}{encode(t, alice), encode(t, bob)}, body["participants"])

	_, err := s.raffle.CloseAndSelectWinner(context.Background(), authority)
	require.NoError(t, err)

	w, body = s.do(t, http.MethodGet, "/api/v1/participants", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []interface{}{encode(t, alice), encode(t, bob)}, body["participants"])

	w, body = s.do(t, http.MethodGet, "/api/v1/audit", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, body["balanced"])
	assert.Equal(t, "2", body["received"])
	assert.Equal(t, "0", body["held"])
	assert.Equal(t, "1", body["outstanding"])
	assert.Equal(t, "1", body["retained"])
	assert.Equal(t, "0", body["paid"])
}

func TestPrizes(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		s := newTestServer(t, nil)
		w, _ := s.do(t, http.MethodGet, "/api/v1/prizes/"+encode(t, alice), nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("enabled", func(t *testing.T) {
		minter, err := prize.NewMinter(prize.NewMemTokenStore(), "")
		require.NoError(t, err)
		s := newTestServer(t, minter)
		s.enter(t, alice)
		_, err = s.raffle.CloseAndSelectWinner(context.Background(), authority)
		require.NoError(t, err)

		w, body := s.do(t, http.MethodGet, "/api/v1/prizes/"+encode(t, alice), nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, float64(1), body["tokens"])
		assert.Equal(t, float64(1), body["total_supply"])
	})
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t, nil)
	s.enter(t, alice)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "raffle_entries_total 1")
	assert.Contains(t, w.Body.String(), "raffle_current_participants 1")
}

func TestMetricsEndpoint_Absent(t *testing.T) {
	r, err := raffle.New(raffle.Config{EntryFee: fee, Authority: authority},
		raffle.EntropyFunc(func(context.Context) (*big.Int, error) { return big.NewInt(0), nil }),
		raffle.NewBalances())
	require.NoError(t, err)
	router := NewRouter(NewHandler(r, nil, decimals, true), nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{raffle.ErrInvalidAddress, http.StatusBadRequest},
		{fmt.Errorf("%w: paid 1", raffle.ErrIncorrectFee), http.StatusBadRequest},
		{config.ErrInvalidAmount, http.StatusBadRequest},
		{config.ErrAmountOutOfRange, http.StatusBadRequest},
		{raffle.ErrNotAuthorized, http.StatusForbidden},
		{raffle.ErrNoRefundAvailable, http.StatusNotFound},
		{raffle.ErrInvalidRoundIndex, http.StatusNotFound},
		{prize.ErrTokenNotFound, http.StatusNotFound},
		{raffle.ErrRoundClosed, http.StatusConflict},
		{raffle.ErrRoundAlreadyClosed, http.StatusConflict},
		{raffle.ErrRoundAlreadyOpen, http.StatusConflict},
		{raffle.ErrNoParticipants, http.StatusConflict},
		{fmt.Errorf("%w: %w", raffle.ErrEntropyUnavailable, errors.New("rpc down")), http.StatusBadGateway},
		{raffle.ErrTransferFailed, http.StatusBadGateway},
		{raffle.ErrConservationViolated, http.StatusInternalServerError},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, StatusFor(tt.err))
		})
	}
}
