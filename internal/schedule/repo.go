package schedule

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/lgrbic/progressor/internal/progression"
	"github.com/lgrbic/progressor/internal/telemetry/tracing"
	"github.com/lgrbic/progressor/pkg"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
)

var ErrResultNotFound = errors.New("workout result not found")

// Repo persists per-program config values and the sparse per-workout,
// per-slot result log.
type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{
		db: db,
	}
}

// GetConfig returns all config entries of a program as a flat map. A program
// without config yields an empty, non-nil map.
func (r *Repo) GetConfig(ctx context.Context, programID string) (_ progression.Config, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.schedule.getconfig")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("program.id", programID))

	rows, err := r.db.Query(
		ctx,
		`SELECT key, value FROM program_config WHERE program_id = $1;`,
		programID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cfg := progression.Config{}
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("rows scan: %w", err)
		}
		cfg[key] = value
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ReplaceConfig swaps the whole config of a program in one transaction.
func (r *Repo) ReplaceConfig(ctx context.Context, programID string, cfg progression.Config) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.schedule.replaceconfig")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("program.id", programID))
	span.SetAttributes(attribute.Int("config.size", len(cfg)))

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	if _, err = tx.Exec(
		ctx,
		`DELETE FROM program_config WHERE program_id = $1;`,
		programID,
	); err != nil {
		return fmt.Errorf("clear config: %w", err)
	}

	for key, value := range cfg {
		if _, err = tx.Exec(
			ctx,
			`INSERT INTO program_config (program_id, key, value) VALUES ($1, $2, $3);`,
			programID, key, value,
		); err != nil {
			if pkg.IsUniqueViolationError(err) {
				// lost the race against a concurrent replace of the same program
				return fmt.Errorf("config key %s replaced concurrently: %w", key, err)
			}
			return fmt.Errorf("insert config key %s: %w", key, err)
		}
	}

	return tx.Commit(ctx)
}

// SetConfigValue upserts a single config entry.
func (r *Repo) SetConfigValue(ctx context.Context, programID, key, value string) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.schedule.setconfigvalue")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("program.id", programID))
	span.SetAttributes(attribute.String("config.key", key))

	_, err = r.db.Exec(
		ctx,
		`INSERT INTO program_config (program_id, key, value)
			VALUES ($1, $2, $3)
			ON CONFLICT (program_id, key) DO UPDATE SET value = EXCLUDED.value;`,
		programID, key, value,
	)
	return err
}

// GetResults loads the sparse result history of a program, shaped the way
// the replay engine consumes it.
func (r *Repo) GetResults(ctx context.Context, programID string) (_ progression.Results, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.schedule.getresults")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("program.id", programID))

	rows, err := r.db.Query(
		ctx,
		`SELECT workout_index, slot_id, result, amrap_reps, rpe
			FROM workout_result
			WHERE program_id = $1
			ORDER BY workout_index, slot_id;`,
		programID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results, err := rows2results(rows)
	if err != nil {
		return nil, err
	}
	return results, nil
}

// UpsertResult stores what the lifter logged for one (workout, slot) pair.
func (r *Repo) UpsertResult(
	ctx context.Context,
	programID string,
	workoutIndex int,
	slotID string,
	res progression.SlotResult,
) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.schedule.upsertresult")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("program.id", programID))
	span.SetAttributes(attribute.Int("workout.index", workoutIndex))
	span.SetAttributes(attribute.String("slot.id", slotID))

	_, err = r.db.Exec(
		ctx,
		`INSERT INTO workout_result (program_id, workout_index, slot_id, result, amrap_reps, rpe)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (program_id, workout_index, slot_id)
			DO UPDATE SET result = EXCLUDED.result, amrap_reps = EXCLUDED.amrap_reps, rpe = EXCLUDED.rpe;`,
		programID, workoutIndex, slotID, string(res.Result), res.AmrapReps, res.RPE,
	)
	return err
}

// DeleteResult removes a logged result, turning that (workout, slot) pair
// back into an implicit pass.
func (r *Repo) DeleteResult(ctx context.Context, programID string, workoutIndex int, slotID string) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.schedule.deleteresult")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("program.id", programID))
	span.SetAttributes(attribute.Int("workout.index", workoutIndex))
	span.SetAttributes(attribute.String("slot.id", slotID))

	tag, err := r.db.Exec(
		ctx,
		`DELETE FROM workout_result WHERE program_id = $1 AND workout_index = $2 AND slot_id = $3;`,
		programID, workoutIndex, slotID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrResultNotFound
	}
	return nil
}

// ResultsCount returns the number of logged results for a program.
func (r *Repo) ResultsCount(ctx context.Context, programID string) (_ int, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.schedule.resultscount")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("program.id", programID))

	var count int
	if err := r.db.QueryRow(
		ctx,
		`SELECT COUNT(*) FROM workout_result WHERE program_id = $1;`,
		programID,
	).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func rows2results(rows pgx.Rows) (progression.Results, error) {
	results := progression.Results{}
	for rows.Next() {
		var workoutIndex int
		var slotID string
		var result string
		var amrapReps *int
		var rpe *int
		if err := rows.Scan(&workoutIndex, &slotID, &result, &amrapReps, &rpe); err != nil {
			return nil, fmt.Errorf("rows scan: %w", err)
		}

		key := strconv.Itoa(workoutIndex)
		if _, ok := results[key]; !ok {
			results[key] = progression.WorkoutResults{}
		}
		results[key][slotID] = progression.SlotResult{
			Result:    progression.Outcome(result),
			AmrapReps: amrapReps,
			RPE:       rpe,
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return results, nil
}
