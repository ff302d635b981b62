package library

import (
	"context"
	"fmt"

	"github.com/doug-martin/goqu/v9"
)

const tableLearners = "learners"

var learnerColumns = []any{"id", "name", "surname", "grade", "date_of_birth", "contact_no", "created_at"}

type learnerRow struct {
	ID          int64  `db:"id"`
	Name        string `db:"name"`
	Surname     string `db:"surname"`
	Grade       string `db:"grade"`
	DateOfBirth string `db:"date_of_birth"`
	ContactNo   string `db:"contact_no"`
	CreatedAt   string `db:"created_at"`
}

func newLearnerRow(l *Learner) learnerRow {
	return learnerRow{
		ID:          l.ID,
		Name:        l.Name,
		Surname:     l.Surname,
		Grade:       l.Grade,
		DateOfBirth: formatDate(l.DateOfBirth),
		ContactNo:   l.ContactNo,
		CreatedAt:   formatTimestamp(l.CreatedAt),
	}
}

func (row learnerRow) toLearner() (*Learner, error) {
	dob, err := ParseDate(row.DateOfBirth)
	if err != nil {
		return nil, fmt.Errorf("learner %d: %w", row.ID, err)
	}
	created, err := parseTimestamp(row.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("learner %d: bad created_at: %w", row.ID, err)
	}
	return &Learner{
		ID:          row.ID,
		Name:        row.Name,
		Surname:     row.Surname,
		Grade:       row.Grade,
		DateOfBirth: dob,
		ContactNo:   row.ContactNo,
		CreatedAt:   created,
	}, nil
}

func (r *sqlRepo) InsertLearner(ctx context.Context, l *Learner) (int64, error) {
	return r.insert(ctx, `INSERT INTO learners(name,surname,grade,date_of_birth,contact_no,created_at)
        VALUES(:name,:surname,:grade,:date_of_birth,:contact_no,:created_at)`, newLearnerRow(l))
}

func (r *sqlRepo) UpdateLearner(ctx context.Context, l *Learner) error {
	row := newLearnerRow(l)
	return r.execOne(ctx, ErrLearnerNotFound,
		`UPDATE learners SET name=?, surname=?, grade=?, date_of_birth=?, contact_no=? WHERE id=?`,
		row.Name, row.Surname, row.Grade, row.DateOfBirth, row.ContactNo, row.ID)
}

func (r *sqlRepo) DeleteLearner(ctx context.Context, id int64) error {
	err := r.execOne(ctx, ErrLearnerNotFound, `DELETE FROM learners WHERE id=?`, id)
	if isForeignKeyViolation(err) {
		return ErrReferencedEntity
	}
	return err
}

func (r *sqlRepo) GetLearner(ctx context.Context, id int64) (*Learner, error) {
	var row learnerRow
	if err := r.getOne(ctx, &row, ErrLearnerNotFound, `SELECT * FROM learners WHERE id=?`, id); err != nil {
		return nil, err
	}
	return row.toLearner()
}

func learnerQuery(f LearnerFilter) *goqu.SelectDataset {
	ds := dialect().From(tableLearners)
	if f.Grade != "" {
		ds = ds.Where(goqu.C("grade").Eq(f.Grade))
	}
	if f.Term != "" {
		ds = ds.Where(containsAny(f.Term, "name", "surname", "contact_no"))
	}
	return ds
}

// ListLearners returns matching learners ordered by surname, then name.
func (r *sqlRepo) ListLearners(ctx context.Context, f LearnerFilter) ([]*Learner, error) {
	ds := learnerQuery(f).Select(learnerColumns...).
		Order(goqu.C("surname").Asc(), goqu.C("name").Asc(), goqu.C("id").Asc())
	var rows []learnerRow
	if err := r.selectInto(ctx, &rows, ds); err != nil {
		return nil, err
	}
	learners := make([]*Learner, 0, len(rows))
	for _, row := range rows {
		l, err := row.toLearner()
		if err != nil {
			return nil, err
		}
		learners = append(learners, l)
	}
	return learners, nil
}

func (r *sqlRepo) CountLearners(ctx context.Context, f LearnerFilter) (int, error) {
	return r.count(ctx, learnerQuery(f))
}
