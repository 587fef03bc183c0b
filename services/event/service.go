package event

import (
	"context"
	"fmt"
	"time"

	"seeker-engine/pkg/db/option"
	"seeker-engine/pkg/errutil"
	"seeker-engine/pkg/fsm"
	"seeker-engine/pkg/repository"
	"seeker-engine/services/personage"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	ErrNotFound      = errutil.NewSentinel(errutil.StatusNotFound, "launched event not found")
	ErrNotActive     = errutil.NewSentinel(errutil.StatusConflict, "launched event is not active")
	ErrAlreadyJoined = errutil.NewSentinel(errutil.StatusConflict, "personage already joined the event")
)

// LaunchedEventService owns launched events and their projections.
type LaunchedEventService struct {
	db   *gorm.DB
	node *snowflake.Node

	event     repository.Repository[Event]
	launched  repository.Repository[LaunchedEvent]
	group     repository.Repository[GroupEvent]
	joined    repository.Repository[PersonageEvent]
	personage *personage.Service
}

type LaunchedEventParams struct {
	fx.In
	DB        *gorm.DB
	Node      *snowflake.Node
	Personage *personage.Service
}

func NewLaunchedEventService(p LaunchedEventParams) *LaunchedEventService {
	return &LaunchedEventService{
		db:        p.DB,
		node:      p.Node,
		event:     repository.ProvideStore[Event](p.DB),
		launched:  repository.ProvideStore[LaunchedEvent](p.DB),
		group:     repository.ProvideStore[GroupEvent](p.DB),
		joined:    repository.ProvideStore[PersonageEvent](p.DB),
		personage: p.Personage,
	}
}

func (s *LaunchedEventService) WithTrx(tx *gorm.DB) *LaunchedEventService {
	return &LaunchedEventService{
		db:        tx,
		node:      s.node,
		event:     s.event.WithTrx(tx),
		launched:  s.launched.WithTrx(tx),
		group:     s.group.WithTrx(tx),
		joined:    s.joined.WithTrx(tx),
		personage: s.personage.WithTrx(tx),
	}
}

func (s *LaunchedEventService) GetEvent(ctx context.Context, eventID int64) (*Event, error) {
	e, err := s.event.FindOne(ctx, &Event{ID: eventID})
	if err != nil {
		return nil, fmt.Errorf("load event %d: %w", eventID, err)
	}
	if e == nil {
		return nil, errutil.NotFound(fmt.Sprintf("event %d not found", eventID), nil)
	}
	return e, nil
}

// Launch starts a new ACTIVE occurrence of the event template.
func (s *LaunchedEventService) Launch(ctx context.Context, eventID int64, start time.Time) (*LaunchedEvent, error) {
	e, err := s.GetEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}

	start = start.UTC()
	le := &LaunchedEvent{
		ID:        s.node.Generate().Int64(),
		EventID:   e.ID,
		StartDate: start,
		EndDate:   start.Add(e.Duration),
		Status:    StatusActive,
	}
	if err := s.launched.Create(ctx, le); err != nil {
		return nil, fmt.Errorf("launch event %d: %w", eventID, err)
	}

	zap.L().Info("event launched",
		zap.Int64("launched_event_id", le.ID),
		zap.String("code", e.Code),
		zap.Time("end_date", le.EndDate),
	)
	return le, nil
}

// AttachGroup records the group message that shows the launched event.
func (s *LaunchedEventService) AttachGroup(ctx context.Context, launchedEventID, groupID int64, messageID *int64) error {
	return s.group.Create(ctx, &GroupEvent{
		LaunchedEventID: launchedEventID,
		GroupID:         groupID,
		MessageID:       messageID,
	})
}

// Join registers a participant. Only ACTIVE events accept participants.
func (s *LaunchedEventService) Join(ctx context.Context, launchedEventID, personageID int64) error {
	le, err := s.GetByID(ctx, launchedEventID)
	if err != nil {
		return err
	}
	if le.Status != StatusActive {
		return ErrNotActive
	}

	existing, err := s.joined.FindOne(ctx, &PersonageEvent{LaunchedEventID: launchedEventID, PersonageID: personageID})
	if err != nil {
		return err
	}
	if existing != nil {
		return ErrAlreadyJoined
	}

	return s.joined.Create(ctx, &PersonageEvent{LaunchedEventID: launchedEventID, PersonageID: personageID})
}

func (s *LaunchedEventService) GetByID(ctx context.Context, id int64, opts ...option.QueryOption) (*LaunchedEvent, error) {
	le, err := s.launched.FindOne(ctx, &LaunchedEvent{ID: id}, opts...)
	if err != nil {
		return nil, fmt.Errorf("load launched event %d: %w", id, err)
	}
	if le == nil {
		return nil, fmt.Errorf("launched event %d: %w", id, ErrNotFound)
	}
	return le, nil
}

// GetExpiredActive lists ACTIVE launched events whose end date is before now.
func (s *LaunchedEventService) GetExpiredActive(ctx context.Context, now time.Time) ([]*LaunchedEvent, error) {
	return s.launched.Find(ctx, &LaunchedEvent{Status: StatusActive},
		option.ApplyOperator(option.Condition{
			Field:    "end_date",
			Operator: option.LT,
			Value:    now.UTC(),
		}),
		option.WithSortBy(option.QuerySortBy{SortBy: "end_date", OrderBy: "asc"}),
	)
}

func (s *LaunchedEventService) GetGroupEvents(ctx context.Context, launchedEventID int64) ([]*GroupEvent, error) {
	return s.group.Find(ctx, &GroupEvent{LaunchedEventID: launchedEventID},
		option.WithSortBy(option.QuerySortBy{SortBy: "group_id", OrderBy: "asc"}),
	)
}

// GetParticipants loads the personages that joined, in join order.
func (s *LaunchedEventService) GetParticipants(ctx context.Context, launchedEventID int64) ([]*personage.Personage, error) {
	rows, err := s.joined.Find(ctx, &PersonageEvent{LaunchedEventID: launchedEventID},
		option.WithSortBy(option.QuerySortBy{SortBy: "created_at", OrderBy: "asc"}),
	)
	if err != nil {
		return nil, fmt.Errorf("load participants of %d: %w", launchedEventID, err)
	}

	ids := make([]int64, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.PersonageID)
	}
	return s.personage.GetByIDs(ctx, ids)
}

// Close moves an ACTIVE launched event to the state reached by t. The write
// only lands if the stored status still matches le.Status.
func (s *LaunchedEventService) Close(ctx context.Context, le *LaunchedEvent, t Transition) error {
	next, err := Machine.Next(le.Status, t)
	if err != nil {
		return err
	}

	n, err := s.launched.UpdateWhere(ctx,
		map[string]any{"id": le.ID, "status": string(le.Status)},
		map[string]any{"status": string(next)},
	)
	if err != nil {
		return fmt.Errorf("close launched event %d: %w", le.ID, err)
	}
	if n == 0 {
		return &fsm.TransitionError{Machine: "launched_event", From: string(le.Status), Event: string(t)}
	}

	le.Status = next
	return nil
}
