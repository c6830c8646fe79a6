package workers

import (
	"context"
	"log/slog"
	"time"

	application "evoting/contexts/identity-access/passkey-ceremony/application"
	"evoting/contexts/identity-access/passkey-ceremony/ports"
)

// ChallengeSweeper deletes abandoned ceremony challenges from stores that
// have no native expiry.
type ChallengeSweeper struct {
	Challenges ports.ChallengeStore
	Clock      ports.Clock
	Logger     *slog.Logger
}

func (w ChallengeSweeper) RunOnce(ctx context.Context) (int, error) {
	logger := application.ResolveLogger(w.Logger)
	now := time.Now().UTC()
	if w.Clock != nil {
		now = w.Clock.Now().UTC()
	}
	removed, err := w.Challenges.DeleteExpiredChallenges(ctx, now)
	if err != nil {
		logger.Error("challenge sweep failed",
			"event", "passkey_challenge_sweep_failed",
			"module", "identity-access/passkey-ceremony",
			"layer", "worker",
			"error", err.Error(),
		)
		return 0, err
	}
	if removed > 0 {
		logger.Info("expired challenges removed",
			"event", "passkey_challenge_sweep_completed",
			"module", "identity-access/passkey-ceremony",
			"layer", "worker",
			"removed", removed,
		)
	}
	return removed, nil
}
