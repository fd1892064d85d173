package orchestrator

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/shaiso/Journey/internal/domain"
	"github.com/shaiso/Journey/internal/engine"
	"github.com/shaiso/Journey/internal/mq"
	"github.com/shaiso/Journey/internal/repo"
	"github.com/shaiso/Journey/internal/telemetry"
)

// handleJourneyStarted обрабатывает событие о новом journey.
func (o *Orchestrator) handleJourneyStarted(ctx context.Context, delivery *mq.Delivery) error {
	payload, err := mq.ParsePayload[mq.JourneyStartedPayload](&delivery.Message)
	if err != nil {
		return mq.Discard(fmt.Errorf("parse journey.started payload: %w", err))
	}

	o.logger.Debug("received journey.started event", "journey_id", payload.JourneyID)
	return o.handleAdvance(ctx, payload.JourneyID)
}

// handleSubmissionReceived обрабатывает событие об отправке формы.
func (o *Orchestrator) handleSubmissionReceived(ctx context.Context, delivery *mq.Delivery) error {
	payload, err := mq.ParsePayload[mq.SubmissionReceivedPayload](&delivery.Message)
	if err != nil {
		return mq.Discard(fmt.Errorf("parse submission.received payload: %w", err))
	}

	o.logger.Debug("received submission.received event",
		"journey_id", payload.JourneyID,
		"node_id", payload.NodeID,
	)
	return o.handleAdvance(ctx, payload.JourneyID)
}

func (o *Orchestrator) handleAdvance(ctx context.Context, journeyID uuid.UUID) error {
	err := o.Advance(ctx, journeyID)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrJourneyNotFound), errors.Is(err, ErrJourneyFinished):
		o.logger.Debug("journey not advanced", "journey_id", journeyID, "reason", err)
		return nil
	case errors.Is(err, ErrBlueprintNotFound), errors.Is(err, ErrInvalidGraph):
		return mq.Discard(err)
	default:
		return err
	}
}

// Advance продвигает journey:
//  1. Загружает отправки и актуальные blueprint и привязки
//  2. Завершает journey, если все формы отправлены
//  3. Для новых готовых узлов вычисляет prefill, сохраняет его и публикует form.ready
func (o *Orchestrator) Advance(ctx context.Context, journeyID uuid.UUID) error {
	state, err := o.loadState(ctx, journeyID)
	if err != nil {
		return err
	}

	state.advance.Lock()
	defer state.advance.Unlock()

	logger := telemetry.WithJourneyID(o.logger, journeyID.String())

	subs, err := o.submissions.ListByJourney(ctx, journeyID)
	if err != nil {
		return fmt.Errorf("list submissions: %w", err)
	}
	state.SetSubmissions(subs)

	if state.IsComplete() {
		return o.completeJourney(ctx, state)
	}

	for _, nodeID := range state.PendingReady() {
		if err := o.dispatchNode(ctx, state, nodeID); err != nil {
			// Остальные узлы не зависят от этого, продолжаем
			logger.Error("failed to dispatch node", "node_id", nodeID, "error", err)
		}
	}

	return nil
}

// loadState возвращает состояние journey, обновлённое из БД.
func (o *Orchestrator) loadState(ctx context.Context, journeyID uuid.UUID) (*JourneyState, error) {
	journey, err := o.journeys.GetByID(ctx, journeyID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			o.removeActive(journeyID)
			return nil, fmt.Errorf("%w: %s", ErrJourneyNotFound, journeyID)
		}
		return nil, fmt.Errorf("get journey: %w", err)
	}
	if journey.IsFinished() {
		o.removeActive(journeyID)
		return nil, ErrJourneyFinished
	}

	bp, err := o.blueprints.GetByID(ctx, journey.BlueprintID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrBlueprintNotFound, journey.BlueprintID)
		}
		return nil, fmt.Errorf("get blueprint: %w", err)
	}
	if err := engine.Validate(&bp.Graph); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidGraph, err)
	}

	mappings, err := o.mappings.Get(ctx, bp.ID)
	if err != nil {
		return nil, fmt.Errorf("get mappings: %w", err)
	}

	if state := o.getActive(journeyID); state != nil {
		state.Refresh(bp, mappings)
		return state, nil
	}

	state := NewJourneyState(journey, bp, mappings, o.logger)
	state = o.addActive(state)

	o.logger.Info("journey state loaded",
		"journey_id", journeyID,
		"blueprint_id", bp.ID,
		"forms", state.Graph.Size(),
	)
	return state, nil
}

// dispatchNode вычисляет prefill узла, сохраняет его и публикует form.ready.
func (o *Orchestrator) dispatchNode(ctx context.Context, state *JourneyState, nodeID domain.NodeID) error {
	prefills := state.ComputePrefills(nodeID, o.now())

	if err := o.submissions.ReplacePrefills(ctx, state.JourneyID(), nodeID, prefills); err != nil {
		return fmt.Errorf("save prefills: %w", err)
	}

	formID, _ := state.Graph.FormIDForNode(nodeID)
	payload := mq.FormReadyPayload{
		JourneyID:   state.JourneyID(),
		BlueprintID: state.Blueprint.ID,
		NodeID:      nodeID,
		FormID:      formID,
		Prefill:     prefillValues(prefills),
	}

	if o.publisher != nil {
		if err := o.publisher.PublishFormReady(ctx, payload); err != nil {
			// Prefill сохранён, узел будет объявлен повторно при следующем продвижении
			return fmt.Errorf("publish form.ready: %w", err)
		}
	}

	state.MarkNotified(nodeID)

	o.logger.Info("form ready",
		"journey_id", state.JourneyID(),
		"node_id", nodeID,
		"form_id", formID,
		"prefilled", len(prefills),
	)
	return nil
}

// completeJourney переводит journey в COMPLETED.
func (o *Orchestrator) completeJourney(ctx context.Context, state *JourneyState) error {
	journey := state.Journey
	journey.MarkCompleted()

	err := o.journeys.Update(ctx, journey)
	if errors.Is(err, repo.ErrInvalidState) {
		// Journey отменили параллельно
		o.removeActive(journey.ID)
		return ErrJourneyFinished
	}
	if err != nil {
		return fmt.Errorf("update journey status: %w", err)
	}

	o.removeActive(journey.ID)
	o.logger.Info("journey completed",
		"journey_id", journey.ID,
		"blueprint_id", journey.BlueprintID,
		"forms", state.Graph.Size(),
	)
	return nil
}

func prefillValues(prefills []domain.Prefill) map[string]any {
	if len(prefills) == 0 {
		return nil
	}
	values := make(map[string]any, len(prefills))
	for _, p := range prefills {
		values[p.FieldID] = p.Value
	}
	return values
}
