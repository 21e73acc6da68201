package postgresql

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"podcast-pipeline-service/internal/entity"
	"podcast-pipeline-service/internal/repository"
)

var ErrNotFound = repository.ErrNotFound

type JobRepository struct {
	pool *pgxpool.Pool
}

func NewJobRepository(pool *pgxpool.Pool) *JobRepository {
	return &JobRepository{pool: pool}
}

func (r *JobRepository) Create(ctx context.Context, inputs []entity.InputRef, mainIndex int, opts entity.Options) (uuid.UUID, error) {
	inputsJSON, err := json.Marshal(inputs)
	if err != nil {
		return uuid.Nil, err
	}
	optsJSON, err := json.Marshal(opts)
	if err != nil {
		return uuid.Nil, err
	}

	const q = `
INSERT INTO jobs (stage, inputs, main_index, options)
VALUES ('start', $1, $2, $3)
RETURNING id;
`
	var id uuid.UUID
	if err := r.pool.QueryRow(ctx, q, inputsJSON, mainIndex, optsJSON).Scan(&id); err != nil {
		return uuid.Nil, err
	}
	return id, nil
}

func (r *JobRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.Job, error) {
	const q = `
SELECT id, stage, inputs, main_index, options, artifact, audio_path, result, error, created_at, updated_at
FROM jobs
WHERE id = $1;
`
	row := r.pool.QueryRow(ctx, q, id)
	j, err := scanJob(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return j, nil
}

func (r *JobRepository) List(ctx context.Context, limit, offset int) ([]*entity.Job, error) {
	const q = `
SELECT id, stage, inputs, main_index, options, artifact, audio_path, result, error, created_at, updated_at
FROM jobs
ORDER BY created_at DESC
LIMIT $1 OFFSET $2;
`
	rows, err := r.pool.Query(ctx, q, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []*entity.Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

// CompareAndSetStage is the only mutation path for an existing job. The WHERE
// clause on stage is what makes duplicate queue deliveries lose the race
// instead of overwriting the winner's result.
func (r *JobRepository) CompareAndSetStage(ctx context.Context, id uuid.UUID, expected, next entity.Stage, patch entity.StagePatch) (bool, error) {
	var resultJSON []byte
	if patch.Result != nil {
		b, err := json.Marshal(patch.Result)
		if err != nil {
			return false, err
		}
		resultJSON = b
	}

	const q = `
UPDATE jobs
SET stage = $3,
    artifact = COALESCE($4, artifact),
    audio_path = COALESCE(NULLIF($5, ''), audio_path),
    result = COALESCE($6, result),
    error = COALESCE($7, error),
    updated_at = now()
WHERE id = $1 AND stage = $2;
`
	tag, err := r.pool.Exec(ctx, q, id, string(expected), string(next),
		[]byte(patch.Artifact), patch.AudioPath, resultJSON, patch.Error)
	if err != nil {
		return false, err
	}
	if tag.RowsAffected() == 0 {
		// row gone vs. stage moved: the engine treats both as "drop"
		if _, err := r.GetByID(ctx, id); errors.Is(err, ErrNotFound) {
			return false, ErrNotFound
		}
		return false, nil
	}
	return true, nil
}

func (r *JobRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM jobs WHERE id = $1;`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*entity.Job, error) {
	var (
		j          entity.Job
		stageText  string
		inputsJSON []byte
		optsJSON   []byte
		artifact   []byte
		audioPath  *string
		resultJSON []byte
		errText    *string
		createdAt  time.Time
		updatedAt  time.Time
	)

	if err := row.Scan(
		&j.ID,
		&stageText,
		&inputsJSON,
		&j.MainIndex,
		&optsJSON,
		&artifact,
		&audioPath,
		&resultJSON,
		&errText,
		&createdAt,
		&updatedAt,
	); err != nil {
		return nil, err
	}

	j.Stage = entity.Stage(stageText)
	if err := json.Unmarshal(inputsJSON, &j.Inputs); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(optsJSON, &j.Options); err != nil {
		return nil, err
	}
	if artifact != nil {
		j.Artifact = json.RawMessage(artifact)
	}
	if audioPath != nil {
		j.AudioPath = *audioPath
	}
	if resultJSON != nil {
		var res entity.Result
		if err := json.Unmarshal(resultJSON, &res); err != nil {
			return nil, err
		}
		j.Result = &res
	}
	j.Error = errText
	j.CreatedAt = createdAt
	j.UpdatedAt = updatedAt

	return &j, nil
}
