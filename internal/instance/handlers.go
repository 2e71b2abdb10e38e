package instance

import (
	"context"
	"errors"

	"github.com/jackandcarter/Adventure-2.0-sub000/internal/combat"
	"github.com/jackandcarter/Adventure-2.0-sub000/internal/net/intake"
	"github.com/jackandcarter/Adventure-2.0-sub000/internal/net/proto"
	"github.com/jackandcarter/Adventure-2.0-sub000/internal/net/router"
	"github.com/jackandcarter/Adventure-2.0-sub000/internal/sim"
)

// RegisterHandlers installs the gameplay message handlers on r.
func (m *Manager) RegisterHandlers(r *router.Router) {
	router.Handle(r, proto.TypeMovementInput, m.handleMovement)
	router.Handle(r, proto.TypeAbilityCast, m.handleAbilityCast)
	router.Handle(r, proto.TypeDungeonInteract, m.handleInteract)
	router.Handle(r, proto.TypeDungeonStart, m.handleStart)
}

func (m *Manager) commandContext(req router.Request) (intake.CommandContext, error) {
	s, ok := m.InstanceForPlayer(req.Session.PlayerID)
	if !ok {
		return intake.CommandContext{}, router.Errorf(proto.ErrorNotInInstance, "player %s is not in an instance", req.Session.PlayerID)
	}
	return intake.CommandContext{Room: s.Room(), Now: m.deps.Clock.Now}, nil
}

func (m *Manager) handleMovement(ctx context.Context, req router.Request, in proto.MovementInput, _ router.Sender) error {
	cc, err := m.commandContext(req)
	if err != nil {
		return err
	}
	_, err = intake.StageMovement(cc, req.Session.PlayerID, req.Envelope.RequestID, in)
	switch {
	case errors.Is(err, sim.ErrQueueFull):
		// Movement is superseded by the next sample.
		return nil
	case errors.Is(err, intake.ErrInvalidCommand):
		return router.Errorf(proto.ErrorBadFormat, "%v", err)
	}
	return err
}

func (m *Manager) handleAbilityCast(ctx context.Context, req router.Request, in proto.AbilityCastRequest, sender router.Sender) error {
	cc, err := m.commandContext(req)
	if err != nil {
		return err
	}
	_, err = intake.StageAbilityCast(cc, req.Session.PlayerID, req.Envelope.RequestID, in)
	switch {
	case errors.Is(err, sim.ErrQueueFull):
		return reply(ctx, sender, req, proto.TypeAbilityCast, proto.AbilityCastResult{
			AbilityID:    in.AbilityID,
			DenialReason: string(combat.DenialQueueFull),
		})
	case errors.Is(err, intake.ErrInvalidCommand):
		return router.Errorf(proto.ErrorBadFormat, "%v", err)
	}
	return err
}

func (m *Manager) handleInteract(ctx context.Context, req router.Request, in proto.DungeonInteractRequest, sender router.Sender) error {
	cc, err := m.commandContext(req)
	if err != nil {
		return err
	}
	_, err = intake.StageInteract(cc, req.Session.PlayerID, req.Envelope.RequestID, in)
	switch {
	case errors.Is(err, sim.ErrQueueFull):
		return reply(ctx, sender, req, proto.TypeDungeonInteract, proto.DungeonInteractResult{
			Action:   in.Action,
			TargetID: in.TargetID,
			Reason:   string(combat.DenialQueueFull),
		})
	case errors.Is(err, intake.ErrInvalidCommand):
		return router.Errorf(proto.ErrorBadFormat, "%v", err)
	}
	return err
}

// handleStart places the player in their party's instance, starting one if
// needed, and answers with the full layout.
func (m *Manager) handleStart(ctx context.Context, req router.Request, in proto.DungeonStartRequest, sender router.Sender) error {
	s, err := m.StartForPlayer(ctx, req.Session.PlayerID, in.PartyID, in.Seed)
	switch {
	case errors.Is(err, ErrPartyNotFound):
		return router.Errorf(proto.ErrorPartyNotFound, "%v", err)
	case errors.Is(err, ErrEmptyParty):
		return router.Errorf(proto.ErrorEmptyParty, "%v", err)
	case errors.Is(err, ErrPlayerInInstance):
		return router.Errorf(proto.ErrorInInstance, "%v", err)
	case err != nil:
		return err
	}
	return s.sendLayout(ctx, req.Session.PlayerID, req.ConnectionID, req.Envelope.RequestID, sender)
}

func reply(ctx context.Context, sender router.Sender, req router.Request, messageType string, payload any) error {
	env, err := proto.NewEnvelope(messageType, req.Session.SessionID, req.Envelope.RequestID, payload)
	if err != nil {
		return err
	}
	return sender.Send(ctx, env)
}
