package wallet

import (
	"context"
	"log/slog"

	"github.com/StrawberryMilk21/tetrichain-sub001/internal/model"
)

// Service is the external blockchain collaborator. The battle server
// consumes it but never implements transaction execution; callers must
// tolerate failure without blocking or reversing a decided outcome.
type Service interface {
	// TransferWager moves both stakes to the winner.
	TransferWager(ctx context.Context, winner, loser model.PlayerIdentity, wager float64) error

	// DisplayName resolves the on-chain display name for an identity.
	DisplayName(ctx context.Context, identity model.PlayerIdentity) (string, error)
}

// Noop is the default wallet implementation used when no chain backend
// is configured. Transfers succeed without side effects and name
// lookups report absence.
type Noop struct {
	logger *slog.Logger
}

// NewNoop creates a no-op wallet service.
func NewNoop(logger *slog.Logger) *Noop {
	return &Noop{logger: logger.With(slog.String("component", "wallet"))}
}

var _ Service = (*Noop)(nil)

func (n *Noop) TransferWager(ctx context.Context, winner, loser model.PlayerIdentity, wager float64) error {
	n.logger.Info("wager transfer skipped (no chain backend)",
		slog.String("winner", string(winner)),
		slog.String("loser", string(loser)),
		slog.Float64("wager", wager))
	return nil
}

func (n *Noop) DisplayName(ctx context.Context, identity model.PlayerIdentity) (string, error) {
	return "", model.ErrNameUnavailable
}
