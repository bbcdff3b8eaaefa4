package matchmaking

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/StrawberryMilk21/tetrichain-sub001/internal/dependencies/mocks"
	"github.com/StrawberryMilk21/tetrichain-sub001/internal/metrics"
	"github.com/StrawberryMilk21/tetrichain-sub001/internal/model"
	"github.com/StrawberryMilk21/tetrichain-sub001/internal/protocol"
	"github.com/StrawberryMilk21/tetrichain-sub001/internal/registry"
	"github.com/StrawberryMilk21/tetrichain-sub001/internal/services/room"
	"github.com/StrawberryMilk21/tetrichain-sub001/internal/services/wallet"
	"github.com/StrawberryMilk21/tetrichain-sub001/internal/storage/memory"
	"github.com/StrawberryMilk21/tetrichain-sub001/internal/testutil"
)

type MatchmakingSuite struct {
	suite.Suite
	ctx      context.Context
	storage  *memory.Storage
	clock    *mocks.MockClock
	registry *registry.Registry
	service  *Service

	alice *testutil.FakeSender
	bob   *testutil.FakeSender
}

func TestMatchmakingSuite(t *testing.T) {
	suite.Run(t, new(MatchmakingSuite))
}

func (s *MatchmakingSuite) SetupTest() {
	logger := testutil.NopLogger()
	s.ctx = context.Background()
	s.storage = memory.New()
	s.clock = mocks.NewMockClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	s.registry = registry.New(time.Second, s.clock, logger)

	rooms := room.NewManager(s.storage, s.registry, s.clock, mocks.NewMockRandom(), metrics.New(), room.DefaultConfig(), logger)

	s.service = New(s.storage, s.registry, rooms, wallet.NewNoop(logger), s.clock, Config{
		JoinTimeout:     50 * time.Millisecond,
		PairingInterval: 10 * time.Millisecond,
		WagerTolerance:  0.2,
	}, logger)

	s.alice = testutil.NewFakeSender()
	s.bob = testutil.NewFakeSender()
	s.Require().NoError(s.registry.Authenticate("0xAAA", "Alice", s.alice))
	s.Require().NoError(s.registry.Authenticate("0xBBB", "Bob", s.bob))
}

func (s *MatchmakingSuite) TearDownTest() {
	s.service.Stop()
}

func (s *MatchmakingSuite) TestJoinRejectsNonPositiveWager() {
	err := s.service.Join(s.ctx, "0xAAA", "Alice", 0)
	s.ErrorIs(err, model.ErrInvalidWager)

	err = s.service.Join(s.ctx, "0xAAA", "Alice", -5)
	s.ErrorIs(err, model.ErrInvalidWager)
}

func (s *MatchmakingSuite) TestDuplicateJoinIsNoOp() {
	s.Require().NoError(s.service.Join(s.ctx, "0xAAA", "Alice", 10))
	s.Require().NoError(s.service.Join(s.ctx, "0xAAA", "Alice", 10))

	size, err := s.service.QueueSize(s.ctx)
	s.Require().NoError(err)
	s.Equal(1, size)
}

func (s *MatchmakingSuite) TestLeave() {
	s.Require().NoError(s.service.Join(s.ctx, "0xAAA", "Alice", 10))

	removed, err := s.service.Leave(s.ctx, "0xAAA")
	s.Require().NoError(err)
	s.True(removed)

	removed, err = s.service.Leave(s.ctx, "0xAAA")
	s.Require().NoError(err)
	s.False(removed)
}

func (s *MatchmakingSuite) TestWagersCompatible() {
	s.True(WagersCompatible(10, 10, 0.2))
	s.True(WagersCompatible(10, 12, 0.2))
	s.True(WagersCompatible(12, 10, 0.2))
	s.True(WagersCompatible(10, 8, 0.2))
	s.False(WagersCompatible(10, 13, 0.2))
	s.False(WagersCompatible(10, 7.9, 0.2))
}

func (s *MatchmakingSuite) TestPairingMatchesCompatibleWagers() {
	s.Require().NoError(s.service.Join(s.ctx, "0xAAA", "Alice", 10))
	s.Require().NoError(s.service.Join(s.ctx, "0xBBB", "Bob", 11))

	s.service.RunPairingPass(s.ctx)

	aliceFound := s.alice.EventsOfType(protocol.EventMatchmakingFound)
	bobFound := s.bob.EventsOfType(protocol.EventMatchmakingFound)
	s.Require().Len(aliceFound, 1)
	s.Require().Len(bobFound, 1)

	// The room wager is the larger of the two
	payload := aliceFound[0].Payload.(protocol.MatchFoundPayload)
	s.Equal(11.0, payload.Wager)
	s.Equal("0xBBB", payload.Opponent)

	size, err := s.service.QueueSize(s.ctx)
	s.Require().NoError(err)
	s.Equal(0, size)
}

func (s *MatchmakingSuite) TestPairingSkipsIncompatibleWagers() {
	s.Require().NoError(s.service.Join(s.ctx, "0xAAA", "Alice", 10))
	s.Require().NoError(s.service.Join(s.ctx, "0xBBB", "Bob", 100))

	s.service.RunPairingPass(s.ctx)

	s.Empty(s.alice.EventsOfType(protocol.EventMatchmakingFound))
	s.Empty(s.bob.EventsOfType(protocol.EventMatchmakingFound))

	size, err := s.service.QueueSize(s.ctx)
	s.Require().NoError(err)
	s.Equal(2, size)
}

func (s *MatchmakingSuite) TestPairingMakesOnePairPerPass() {
	carol := testutil.NewFakeSender()
	dave := testutil.NewFakeSender()
	s.Require().NoError(s.registry.Authenticate("0xCCC", "Carol", carol))
	s.Require().NoError(s.registry.Authenticate("0xDDD", "Dave", dave))

	s.Require().NoError(s.service.Join(s.ctx, "0xAAA", "Alice", 10))
	s.Require().NoError(s.service.Join(s.ctx, "0xBBB", "Bob", 10))
	s.Require().NoError(s.service.Join(s.ctx, "0xCCC", "Carol", 10))
	s.Require().NoError(s.service.Join(s.ctx, "0xDDD", "Dave", 10))

	s.service.RunPairingPass(s.ctx)

	size, err := s.service.QueueSize(s.ctx)
	s.Require().NoError(err)
	s.Equal(2, size)

	s.service.RunPairingPass(s.ctx)

	size, err = s.service.QueueSize(s.ctx)
	s.Require().NoError(err)
	s.Equal(0, size)
}

func (s *MatchmakingSuite) TestMatchedPlayersShareRoom() {
	s.Require().NoError(s.service.Join(s.ctx, "0xAAA", "Alice", 10))
	s.Require().NoError(s.service.Join(s.ctx, "0xBBB", "Bob", 10))

	s.service.RunPairingPass(s.ctx)

	aliceFound := s.alice.EventsOfType(protocol.EventMatchmakingFound)
	bobFound := s.bob.EventsOfType(protocol.EventMatchmakingFound)
	s.Require().Len(aliceFound, 1)
	s.Require().Len(bobFound, 1)

	alicePayload := aliceFound[0].Payload.(protocol.MatchFoundPayload)
	bobPayload := bobFound[0].Payload.(protocol.MatchFoundPayload)
	s.Equal(alicePayload.RoomID, bobPayload.RoomID)

	roomID, err := s.storage.GetPlayerRoom(s.ctx, "0xAAA")
	s.Require().NoError(err)
	s.Equal(model.RoomID(alicePayload.RoomID), roomID)
}

func (s *MatchmakingSuite) TestTimeoutRemovesAndNotifies() {
	s.Require().NoError(s.service.Join(s.ctx, "0xAAA", "Alice", 10))

	s.Require().Eventually(func() bool {
		return len(s.alice.EventsOfType(protocol.EventMatchmakingTimeout)) == 1
	}, time.Second, 5*time.Millisecond)

	size, err := s.service.QueueSize(s.ctx)
	s.Require().NoError(err)
	s.Equal(0, size)
}

func (s *MatchmakingSuite) TestLeaveBeforeTimeoutSuppressesNotification() {
	s.Require().NoError(s.service.Join(s.ctx, "0xAAA", "Alice", 10))

	removed, err := s.service.Leave(s.ctx, "0xAAA")
	s.Require().NoError(err)
	s.True(removed)

	time.Sleep(120 * time.Millisecond)
	s.Empty(s.alice.EventsOfType(protocol.EventMatchmakingTimeout))
}

func (s *MatchmakingSuite) TestBackgroundPairingPass() {
	s.service.Start()

	s.Require().NoError(s.service.Join(s.ctx, "0xAAA", "Alice", 10))
	s.Require().NoError(s.service.Join(s.ctx, "0xBBB", "Bob", 10))

	s.Require().Eventually(func() bool {
		return len(s.alice.EventsOfType(protocol.EventMatchmakingFound)) == 1 &&
			len(s.bob.EventsOfType(protocol.EventMatchmakingFound)) == 1
	}, time.Second, 5*time.Millisecond)
}
