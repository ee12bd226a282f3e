package screens

import (
	"context"

	"fintrack/internal/aggregate"
	"fintrack/internal/api"
	"fintrack/internal/core"
	"fintrack/internal/events"
	"fintrack/internal/listsync"
)

type GoalController = listsync.Controller[core.Goal, core.GoalDraft]

// GoalCard is one goal with its derived progress.
type GoalCard struct {
	Goal     core.Goal
	Progress aggregate.Progress
}

type Goals struct {
	*GoalController
	repo api.GoalRepository
}

func NewGoals(d Deps) *Goals {
	repo := api.Goals(d.Client)
	ctrl := listsync.New[core.Goal, core.GoalDraft](repo, listsync.Config[core.Goal, core.GoalDraft]{
		Name:      "goals",
		Noun:      "goal",
		NewDraft:  core.NewGoalDraft,
		DraftFrom: core.GoalDraftFrom,
		Publisher: d.Publisher,
		Notify:    d.Notify,
		Logger:    d.Logger,
		Clock:     d.clock(),
	})
	return &Goals{GoalController: ctrl, repo: repo}
}

func (s *Goals) Load(ctx context.Context) error {
	return s.Refresh(ctx)
}

// Contribute adds the amount typed by the user to a goal. The text must parse
// to a positive amount; otherwise nothing is sent.
func (s *Goals) Contribute(ctx context.Context, goalID int64, amountText string) error {
	amount, err := core.ParseAmount(amountText)
	if err != nil {
		return &core.ValidationError{Field: "amount", Message: "Please enter a valid amount"}
	}
	return s.Apply(ctx, listsync.Mutation{
		Op:      events.OpContribute,
		ID:      goalID,
		Failure: "Failed to add contribution",
		Call: func(ctx context.Context) error {
			return s.repo.Contribute(ctx, goalID, amount)
		},
	})
}

// Cards derives progress for every goal in the current snapshot.
func (s *Goals) Cards() []GoalCard {
	items := s.Items()
	cards := make([]GoalCard, len(items))
	for i, g := range items {
		cards[i] = s.Card(g)
	}
	return cards
}

func (s *Goals) Card(g core.Goal) GoalCard {
	return GoalCard{Goal: g, Progress: aggregate.GoalProgress(g)}
}
