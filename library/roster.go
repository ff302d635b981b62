package library

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// Roster owns the learner registry.
type Roster struct {
	store   Store
	lending *Lending
	now     Clock
	log     *slog.Logger
}

func NewRoster(store Store, lending *Lending, now Clock, logger *slog.Logger) *Roster {
	return &Roster{store: store, lending: lending, now: now, log: orDiscard(logger)}
}

func normalizeLearner(l *Learner) {
	l.Name = strings.TrimSpace(l.Name)
	l.Surname = strings.TrimSpace(l.Surname)
	l.Grade = strings.TrimSpace(l.Grade)
	l.ContactNo = strings.TrimSpace(l.ContactNo)
	l.DateOfBirth = DateOf(l.DateOfBirth)
}

func checkLearner(l *Learner) error {
	if err := checkStruct(l); err != nil {
		return err
	}
	if l.DateOfBirth.IsZero() || l.DateOfBirth.Year() <= 1 {
		return fmt.Errorf("%w: date of birth is required", ErrInvalidInput)
	}
	return nil
}

func (r *Roster) Create(ctx context.Context, l *Learner) (*Learner, error) {
	normalizeLearner(l)
	if err := checkLearner(l); err != nil {
		return nil, err
	}
	l.CreatedAt = r.now()
	id, err := r.store.InsertLearner(ctx, l)
	if err != nil {
		return nil, fmt.Errorf("create learner: %w", err)
	}
	l.ID = id
	r.log.Info("learner registered", "learner_id", id, "grade", l.Grade)
	return l, nil
}

func (r *Roster) Update(ctx context.Context, l *Learner) error {
	normalizeLearner(l)
	if err := checkLearner(l); err != nil {
		return err
	}
	if err := r.store.UpdateLearner(ctx, l); err != nil {
		return fmt.Errorf("update learner %d: %w", l.ID, err)
	}
	return nil
}

// Delete removes a learner with no loan history.
func (r *Roster) Delete(ctx context.Context, id int64) error {
	err := r.store.InTx(ctx, func(repo Repo) error {
		if _, err := repo.GetLearner(ctx, id); err != nil {
			return err
		}
		n, err := repo.CountTransactions(ctx, TransactionFilter{LearnerID: id})
		if err != nil {
			return err
		}
		if n > 0 {
			return ErrReferencedEntity
		}
		return repo.DeleteLearner(ctx, id)
	})
	if err != nil {
		return fmt.Errorf("delete learner %d: %w", id, err)
	}
	r.log.Info("learner deleted", "learner_id", id)
	return nil
}

func (r *Roster) GetByID(ctx context.Context, id int64) (*Learner, error) {
	return r.store.GetLearner(ctx, id)
}

func (r *Roster) All(ctx context.Context) ([]*Learner, error) {
	return r.store.ListLearners(ctx, LearnerFilter{})
}

func (r *Roster) FilterByGrade(ctx context.Context, grade string) ([]*Learner, error) {
	return r.store.ListLearners(ctx, LearnerFilter{Grade: grade})
}

// Search matches term against name, surname and contact number.
func (r *Roster) Search(ctx context.Context, term string) ([]*Learner, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return []*Learner{}, nil
	}
	return r.store.ListLearners(ctx, LearnerFilter{Term: term})
}

func (r *Roster) Count(ctx context.Context) (int, error) {
	return r.store.CountLearners(ctx, LearnerFilter{})
}

// HasOverdueBooks reports whether the learner is blocked from borrowing.
func (r *Roster) HasOverdueBooks(ctx context.Context, learnerID int64) (bool, error) {
	return r.lending.HasOverdueBooks(ctx, learnerID)
}
