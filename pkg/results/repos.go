//nolint:whitespace // can't make both editor and linter happy
package results

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/aarondl/opt/null"
	"github.com/gofrs/uuid/v5"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/stephenafamo/bob"
	"github.com/stephenafamo/bob/dialect/psql"
	"github.com/stephenafamo/bob/dialect/psql/dialect"
	"github.com/stephenafamo/bob/dialect/psql/dm"
	"github.com/stephenafamo/bob/dialect/psql/im"
	"github.com/stephenafamo/bob/dialect/psql/sm"
	"github.com/stephenafamo/bob/dialect/psql/um"
	"github.com/stephenafamo/scan"
)

var ErrNotFound = errors.New("race result not found")

const (
	raceTable  = "race_result"
	entryTable = "race_result_entry"
)

var (
	raceColumns = []string{
		"id", "room_id", "room_name", "track_id", "laps", "weather", "qualifying",
		"started_at", "finished_at", "feedback",
	}
	entryColumns = []string{
		"position", "driver_id", "nickname", "team", "finished",
		"finish_time", "qualify_time",
	}
)

type (
	raceRow struct {
		ID         uuid.UUID        `db:"id"`
		RoomID     string           `db:"room_id"`
		RoomName   string           `db:"room_name"`
		TrackID    string           `db:"track_id"`
		Laps       int              `db:"laps"`
		Weather    string           `db:"weather"`
		Qualifying bool             `db:"qualifying"`
		StartedAt  time.Time        `db:"started_at"`
		FinishedAt time.Time        `db:"finished_at"`
		Feedback   null.Val[string] `db:"feedback"`
	}
	entryRow struct {
		Position    int                 `db:"position"`
		DriverID    string              `db:"driver_id"`
		Nickname    string              `db:"nickname"`
		Team        string              `db:"team"`
		Finished    bool                `db:"finished"`
		FinishTime  decimal.NullDecimal `db:"finish_time"`
		QualifyTime decimal.NullDecimal `db:"qualify_time"`
	}
)

func (r *raceRow) toRace() *Race {
	return &Race{
		ID:         r.ID,
		RoomID:     r.RoomID,
		RoomName:   r.RoomName,
		TrackID:    r.TrackID,
		Laps:       r.Laps,
		Weather:    r.Weather,
		Qualifying: r.Qualifying,
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
		Feedback:   r.Feedback.GetOrZero(),
	}
}

func (e *entryRow) toEntry() *Entry {
	return &Entry{
		Position:    e.Position,
		DriverID:    e.DriverID,
		Nickname:    e.Nickname,
		Team:        e.Team,
		Finished:    e.Finished,
		FinishTime:  e.FinishTime,
		QualifyTime: e.QualifyTime,
	}
}

// Create stores the race and its entries. Callers wrap it in a transaction
// to avoid partial results.
func Create(ctx context.Context, exec bob.Executor, race *Race) error {
	_, err := psql.Insert(
		im.Into(raceTable, raceColumns...),
		im.Values(psql.Arg(
			race.ID, race.RoomID, race.RoomName, race.TrackID, race.Laps, race.Weather,
			race.Qualifying, race.StartedAt, race.FinishedAt,
			null.FromCond(race.Feedback, race.Feedback != ""),
		)),
	).Exec(ctx, exec)
	if err != nil {
		return err
	}
	if len(race.Entries) == 0 {
		return nil
	}
	mods := []bob.Mod[*dialect.InsertQuery]{
		im.Into(entryTable, append([]string{"race_id"}, entryColumns...)...),
	}
	for _, e := range race.Entries {
		mods = append(mods, im.Values(psql.Arg(
			race.ID, e.Position, e.DriverID, e.Nickname, e.Team, e.Finished,
			e.FinishTime, e.QualifyTime,
		)))
	}
	_, err = psql.Insert(mods...).Exec(ctx, exec)
	return err
}

func UpdateFeedback(
	ctx context.Context,
	exec bob.Executor,
	id uuid.UUID,
	feedback string,
) error {
	n, err := psql.Update(
		um.Table(raceTable),
		um.SetCol("feedback").ToArg(feedback),
		um.Where(psql.Quote("id").EQ(psql.Arg(id))),
	).Exec(ctx, exec)
	if err != nil {
		return err
	}
	rows, err := n.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

func LoadByID(ctx context.Context, exec bob.Executor, id uuid.UUID) (
	*Race, error,
) {
	q := psql.Select(
		sm.Columns(lo.ToAnySlice(raceColumns)...),
		sm.From(raceTable),
		sm.Where(psql.Quote("id").EQ(psql.Arg(id))),
	)
	row, err := bob.One(ctx, exec, q, scan.StructMapper[raceRow]())
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	race := row.toRace()
	if race.Entries, err = loadEntries(ctx, exec, id); err != nil {
		return nil, err
	}
	return race, nil
}

// Latest returns the most recently finished races, newest first
func Latest(ctx context.Context, exec bob.Executor, limit int) (
	[]*Race, error,
) {
	q := psql.Select(
		sm.Columns(lo.ToAnySlice(raceColumns)...),
		sm.From(raceTable),
		sm.OrderBy("finished_at").Desc(),
		sm.Limit(limit),
	)
	rows, err := bob.All(ctx, exec, q, scan.StructMapper[raceRow]())
	if err != nil {
		return nil, err
	}
	ret := make([]*Race, 0, len(rows))
	for i := range rows {
		race := rows[i].toRace()
		if race.Entries, err = loadEntries(ctx, exec, race.ID); err != nil {
			return nil, err
		}
		ret = append(ret, race)
	}
	return ret, nil
}

func loadEntries(ctx context.Context, exec bob.Executor, id uuid.UUID) (
	[]*Entry, error,
) {
	q := psql.Select(
		sm.Columns(lo.ToAnySlice(entryColumns)...),
		sm.From(entryTable),
		sm.Where(psql.Quote("race_id").EQ(psql.Arg(id))),
		sm.OrderBy("position").Asc(),
	)
	rows, err := bob.All(ctx, exec, q, scan.StructMapper[entryRow]())
	if err != nil {
		return nil, err
	}
	ret := make([]*Entry, len(rows))
	for i := range rows {
		ret[i] = rows[i].toEntry()
	}
	return ret, nil
}

// deletes a race and its entries, returns number of races deleted.
func DeleteByID(ctx context.Context, exec bob.Executor, id uuid.UUID) (int, error) {
	n, err := psql.Delete(
		dm.From(raceTable),
		dm.Where(psql.Quote("id").EQ(psql.Arg(id))),
	).Exec(ctx, exec)
	if err != nil {
		return 0, err
	}
	rows, err := n.RowsAffected()
	return int(rows), err
}
