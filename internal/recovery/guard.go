// Package recovery is the fault supervisor for the exam-taking routes.
// Any panic raised while serving them is caught here: the live session
// slot is copied to a backup slot before anything else, then the student
// gets a recovery response instead of silent answer loss.
package recovery

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/satforge/exam-engine/internal/config"
	"github.com/satforge/exam-engine/internal/middleware"
	"github.com/satforge/exam-engine/internal/response"
	"github.com/satforge/exam-engine/internal/slot"
)

// Guard snapshots sessions on faults and serves the recovery actions.
type Guard struct {
	slots slot.Store
	log   zerolog.Logger
}

// NewGuard creates a recovery guard over the given slot store.
func NewGuard(slots slot.Store, log zerolog.Logger) *Guard {
	return &Guard{
		slots: slots,
		log:   log.With().Str("component", "recovery_guard").Logger(),
	}
}

// RecoveryActions describes what the student can do after a fault. The
// reload action re-mounts the session from its durable slot; exiting to
// the dashboard keeps the session so the student can return and resume.
type RecoveryActions struct {
	Message string `json:"message"`
	Reload  string `json:"reload"`
	Exit    string `json:"exit"`
}

// Middleware catches panics beneath the exam subtree. The backup copy is
// best-effort: a failure to back up is logged, never escalated, so the
// crash handler itself can never crash.
//
// An in-flight module submission at the time of the fault is considered
// failed; the student re-initiates it after recovery. Nothing is retried
// automatically.
func (g *Guard) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				g.log.Error().
					Interface("panic", r).
					Str("path", c.Request.URL.Path).
					Msg("Rendering fault in exam subtree")

				if claims := middleware.GetClaims(c); claims != nil {
					g.Backup(c.Request.Context(), claims.UserID)
				}

				c.AbortWithStatusJSON(http.StatusInternalServerError, response.Response{
					Error: &response.ErrorBody{
						Code:    response.ErrExamFault,
						Message: response.GetMessage(response.ErrExamFault),
					},
					Data: RecoveryActions{
						Message: "Your answers are saved. Reload to pick up where you left off.",
						Reload:  "/api/v1/exam/attempts/recover",
						Exit:    "/dashboard",
					},
					Metadata: response.BuildMetadata(c),
				})
			}
		}()
		c.Next()
	}
}

// Backup copies the student's live slot to the backup slot. The backup is
// write-only insurance for operator inspection; the recover path re-hydrates
// from the live slot, so nothing ever reads the backup in the serving path.
func (g *Guard) Backup(ctx context.Context, userID int) {
	live := config.SlotKey.SessionSlot(userID)
	backup := config.SlotKey.BackupSlot(userID)

	payload, err := g.slots.Load(ctx, live)
	if err != nil {
		if !errors.Is(err, slot.ErrNotFound) {
			g.log.Warn().Err(err).Int("user_id", userID).Msg("Backup skipped: live slot unreadable")
		}
		return
	}
	if err := g.slots.Save(ctx, backup, payload); err != nil {
		g.log.Warn().Err(err).Int("user_id", userID).Msg("Backup copy failed")
		return
	}
	g.log.Info().Int("user_id", userID).Msg("Session backed up")
}
