package controller

import (
	"log"
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"gorm.io/gorm"

	"leadpilot/engine"
	"leadpilot/models"
	"leadpilot/utils"
)

// SessionController owns the per-user session runners. Runners live in
// memory only; an aborted or crashed session is simply restarted, the
// worklist is rebuilt from lead state which advancement already persisted.
type SessionController struct {
	DB     *gorm.DB
	Logger *log.Logger
	Clock  engine.Clock
	Tasks  *TaskController

	mu      sync.Mutex
	runners map[uint]*engine.Runner

	socketsMu sync.Mutex
	sockets   map[uint]map[*websocket.Conn]bool
}

func NewSessionController(db *gorm.DB, logger *log.Logger, tasks *TaskController) *SessionController {
	return &SessionController{
		DB:      db,
		Logger:  logger,
		Clock:   engine.SystemClock,
		Tasks:   tasks,
		runners: make(map[uint]*engine.Runner),
		sockets: make(map[uint]map[*websocket.Conn]bool),
	}
}

func (sc *SessionController) runnerFor(userID uint) (*engine.Runner, bool) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	runner, ok := sc.runners[userID]
	return runner, ok
}

// StartSession snapshots the user's due leads into a worklist and begins
// walking it. A session already in progress is rejected, not replaced.
func (sc *SessionController) StartSession(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	sc.mu.Lock()
	defer sc.mu.Unlock()

	if runner, ok := sc.runners[user.ID]; ok && runner.State() == engine.StateSession {
		return utils.ErrorResponse(c, fiber.StatusConflict, "A session is already running", nil)
	}

	leads, strategies, err := loadLeadsAndStrategies(sc.DB, user.ID)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to build worklist", err)
	}

	now := sc.Clock.Now()
	worklist := engine.BuildWorklist(now, leads, strategies)
	runner := engine.NewRunner(worklist)
	current, _ := runner.StartSession(now)
	sc.runners[user.ID] = runner

	utils.LogEvent("session_started", map[string]interface{}{
		"user_id":  user.ID,
		"worklist": len(worklist),
	})
	sc.publish(user.ID, fiber.Map{
		"event":   "session_started",
		"total":   len(worklist),
		"current": current,
	})

	return c.JSON(utils.SuccessResponse(fiber.Map{
		"state":    runner.State(),
		"worklist": worklist,
		"current":  current,
	}))
}

// GetCurrent returns the entry the session is positioned on
func (sc *SessionController) GetCurrent(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	runner, ok := sc.runnerFor(user.ID)
	if !ok {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "No session started", nil)
	}

	current, _ := runner.Current()
	return c.JSON(utils.SuccessResponse(fiber.Map{
		"state":   runner.State(),
		"current": current,
		"summary": runner.Summary(),
	}))
}

type sessionStepRequest struct {
	LeadID uint   `json:"lead_id" validate:"required"`
	Note   string `json:"note" validate:"omitempty,max=5000"`
}

// CompleteSessionStep completes the identified lead's current step and
// moves the session to the next worklist entry. A lead that vanished or
// changed strategy since the snapshot is treated as already resolved.
func (sc *SessionController) CompleteSessionStep(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var req sessionStepRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}

	runner, ok := sc.runnerFor(user.ID)
	if !ok || runner.State() != engine.StateSession {
		return utils.ErrorResponse(c, fiber.StatusConflict, "No session in progress", nil)
	}

	completed := false
	var lead models.Lead
	err := sc.DB.Where("id = ? AND user_id = ?", req.LeadID, user.ID).First(&lead).Error
	switch {
	case err == nil:
		if _, err := sc.Tasks.completeStep(user, &lead, req.Note); err != nil {
			// Stale worklist entry: the lead moved on without us. Resolve
			// it and keep the session walking.
			utils.LogEvent("session_step_stale", map[string]interface{}{
				"user_id": user.ID,
				"lead_id": req.LeadID,
				"error":   err.Error(),
			})
		} else {
			completed = true
		}
	case err == gorm.ErrRecordNotFound:
		// Lead vanished since the snapshot; nothing to complete.
	default:
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch lead", err)
	}

	// Only a step that actually ran counts as completed; anything the
	// session merely moved past is a skip.
	if completed {
		next, _ := runner.Complete(req.LeadID)
		return sc.stepResponse(c, user.ID, runner, next, "step_completed")
	}
	next, _ := runner.Skip(req.LeadID)
	return sc.stepResponse(c, user.ID, runner, next, "step_skipped")
}

// SkipSessionStep moves past the lead without completing its step
func (sc *SessionController) SkipSessionStep(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var req sessionStepRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}

	runner, ok := sc.runnerFor(user.ID)
	if !ok || runner.State() != engine.StateSession {
		return utils.ErrorResponse(c, fiber.StatusConflict, "No session in progress", nil)
	}

	next, _ := runner.Skip(req.LeadID)
	return sc.stepResponse(c, user.ID, runner, next, "step_skipped")
}

func (sc *SessionController) stepResponse(c *fiber.Ctx, userID uint, runner *engine.Runner, next *engine.WorklistEntry, event string) error {
	summary := runner.Summary()
	sc.publish(userID, fiber.Map{
		"event":   event,
		"state":   runner.State(),
		"next":    next,
		"summary": summary,
	})

	if runner.State() == engine.StateDone {
		utils.LogEvent("session_finished", map[string]interface{}{
			"user_id":   userID,
			"completed": summary.Completed,
			"skipped":   summary.Skipped,
		})
	}

	return c.JSON(utils.SuccessResponse(fiber.Map{
		"state":   runner.State(),
		"next":    next,
		"summary": summary,
	}))
}

// AbortSession exits the session, discarding the remaining worklist
func (sc *SessionController) AbortSession(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	runner, ok := sc.runnerFor(user.ID)
	if !ok {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "No session started", nil)
	}

	runner.Abort()
	summary := runner.Summary()

	sc.mu.Lock()
	delete(sc.runners, user.ID)
	sc.mu.Unlock()

	sc.publish(user.ID, fiber.Map{
		"event":   "session_aborted",
		"summary": summary,
	})
	return c.JSON(utils.SuccessResponse(fiber.Map{
		"state":   engine.StateIdle,
		"summary": summary,
	}))
}

// GetSummary reports progress of the current or last session
func (sc *SessionController) GetSummary(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	runner, ok := sc.runnerFor(user.ID)
	if !ok {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "No session started", nil)
	}

	return c.JSON(utils.SuccessResponse(fiber.Map{
		"state":   runner.State(),
		"summary": runner.Summary(),
	}))
}

// ProgressSocket streams session events to the client. The socket is
// read-discarding; all traffic flows server to client.
func (sc *SessionController) ProgressSocket() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		userID, ok := conn.Locals("userID").(uint)
		if !ok {
			conn.Close()
			return
		}

		sc.socketsMu.Lock()
		if sc.sockets[userID] == nil {
			sc.sockets[userID] = make(map[*websocket.Conn]bool)
		}
		sc.sockets[userID][conn] = true
		sc.socketsMu.Unlock()

		defer func() {
			sc.socketsMu.Lock()
			delete(sc.sockets[userID], conn)
			sc.socketsMu.Unlock()
			conn.Close()
		}()

		// Block until the client hangs up
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})
}

func (sc *SessionController) publish(userID uint, event fiber.Map) {
	sc.socketsMu.Lock()
	defer sc.socketsMu.Unlock()
	for conn := range sc.sockets[userID] {
		if err := conn.WriteJSON(event); err != nil {
			delete(sc.sockets[userID], conn)
			conn.Close()
		}
	}
}
