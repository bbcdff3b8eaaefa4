package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/StrawberryMilk21/tetrichain-sub001/internal/config"
	"github.com/StrawberryMilk21/tetrichain-sub001/internal/dependencies/mocks"
	"github.com/StrawberryMilk21/tetrichain-sub001/internal/factory"
	"github.com/StrawberryMilk21/tetrichain-sub001/internal/metrics"
	"github.com/StrawberryMilk21/tetrichain-sub001/internal/services/wallet"
	"github.com/StrawberryMilk21/tetrichain-sub001/internal/storage/memory"
	"github.com/StrawberryMilk21/tetrichain-sub001/internal/testutil"
)

type APISuite struct {
	suite.Suite
	app    *factory.App
	server *httptest.Server
}

func TestAPISuite(t *testing.T) {
	suite.Run(t, new(APISuite))
}

func (s *APISuite) SetupTest() {
	logger := testutil.NopLogger()
	clk := mocks.NewMockClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))

	s.app = factory.NewWithDependencies(
		config.Default(),
		memory.New(),
		clk,
		mocks.NewMockRandom(),
		wallet.NewNoop(logger),
		logger,
	)

	router := NewRouter(RouterConfig{
		Logger:      logger,
		WSHandler:   http.NotFoundHandler(),
		Registry:    s.app.Registry,
		Matchmaking: s.app.Matchmaking,
		Metrics:     s.app.Metrics,
	})
	s.server = httptest.NewServer(router)
}

func (s *APISuite) TearDownTest() {
	s.server.Close()
}

func (s *APISuite) TestHealth() {
	resp, err := http.Get(s.server.URL + "/api/v1/health")
	s.Require().NoError(err)
	defer resp.Body.Close()

	s.Equal(http.StatusOK, resp.StatusCode)
	s.Equal("application/json", resp.Header.Get("Content-Type"))

	var body map[string]string
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&body))
	s.Equal("ok", body["status"])
}

func (s *APISuite) TestStatus() {
	s.Require().NoError(s.app.Registry.Authenticate("0xAAA", "Alice", testutil.NewFakeSender()))
	s.Require().NoError(s.app.Matchmaking.Join(context.Background(), "0xAAA", "Alice", 10))

	resp, err := http.Get(s.server.URL + "/api/v1/status")
	s.Require().NoError(err)
	defer resp.Body.Close()

	s.Equal(http.StatusOK, resp.StatusCode)

	var body statusResponse
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&body))
	s.Equal(1, body.ConnectedPlayers)
	s.Equal(1, body.QueueSize)
}

func (s *APISuite) TestMetrics() {
	s.app.Metrics.RoomOpened()
	s.app.Metrics.BattleStarted()

	resp, err := http.Get(s.server.URL + "/api/v1/metrics")
	s.Require().NoError(err)
	defer resp.Body.Close()

	s.Equal(http.StatusOK, resp.StatusCode)

	var body metrics.Snapshot
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&body))
	s.Equal(int64(1), body.ActiveRooms)
	s.Equal(int64(1), body.ActiveBattles)
}

func (s *APISuite) TestMethodNotAllowed() {
	resp, err := http.Post(s.server.URL+"/api/v1/health", "application/json", nil)
	s.Require().NoError(err)
	defer resp.Body.Close()

	s.Equal(http.StatusMethodNotAllowed, resp.StatusCode)
}
