package repo

import (
	"context"
	"database/sql"
	"strings"

	"mockline/internal/domain"
)

func (r Repo) InsertRun(ctx context.Context, tx *sql.Tx, run domain.Run) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO runs(id,started_at,finished_at,status,path,files_requested,files_written,lines_per_file,workers,error)
VALUES (?,?,?,?,?,?,?,?,?,?)`,
		run.ID, run.StartedAt, nullable(run.FinishedAt), run.Status, run.Path,
		run.FilesRequested, run.FilesWritten, run.LinesPerFile, run.Workers, nullable(run.Error))
	return err
}

func (r Repo) FinishRun(ctx context.Context, tx *sql.Tx, id, status, finishedAt string, filesWritten int, errMsg string) error {
	res, err := tx.ExecContext(ctx, `UPDATE runs SET status=?, finished_at=?, files_written=?, error=? WHERE id=?`,
		status, finishedAt, filesWritten, nullable(errMsg), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) InsertRunFile(ctx context.Context, tx *sql.Tx, f domain.RunFile) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO run_files(run_id,idx,name,lines,bytes,checksum,status,error)
VALUES (?,?,?,?,?,?,?,?)`,
		f.RunID, f.Idx, f.Name, f.Lines, f.Bytes, nullable(f.Checksum), f.Status, nullable(f.Error))
	return err
}

func (r Repo) GetRun(ctx context.Context, id string) (domain.Run, error) {
	var run domain.Run
	var finishedAt, errMsg sql.NullString
	err := r.DB.QueryRowContext(ctx, `SELECT id,started_at,finished_at,status,path,files_requested,files_written,lines_per_file,workers,error FROM runs WHERE id=?`, id).
		Scan(&run.ID, &run.StartedAt, &finishedAt, &run.Status, &run.Path,
			&run.FilesRequested, &run.FilesWritten, &run.LinesPerFile, &run.Workers, &errMsg)
	if err == sql.ErrNoRows {
		return run, ErrNotFound
	}
	if err != nil {
		return run, err
	}
	if finishedAt.Valid {
		run.FinishedAt = finishedAt.String
	}
	if errMsg.Valid {
		run.Error = errMsg.String
	}
	return run, nil
}

type RunFilters struct {
	Status          string
	Limit           int
	CursorStartedAt string
	CursorID        string
}

func (r Repo) ListRuns(ctx context.Context, f RunFilters) ([]domain.Run, error) {
	var clauses []string
	var args []any
	if f.Status != "" {
		clauses = append(clauses, "status=?")
		args = append(args, f.Status)
	}
	if f.CursorStartedAt != "" && f.CursorID != "" {
		clauses = append(clauses, "(started_at < ? OR (started_at = ? AND id < ?))")
		args = append(args, f.CursorStartedAt, f.CursorStartedAt, f.CursorID)
	}
	where := ""
	if len(clauses) > 0 {
		where = "WHERE " + strings.Join(clauses, " AND ")
	}
	query := `SELECT id,started_at,finished_at,status,path,files_requested,files_written,lines_per_file,workers,error FROM runs ` + where + ` ORDER BY started_at DESC, id DESC`
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Run
	for rows.Next() {
		var run domain.Run
		var finishedAt, errMsg sql.NullString
		if err := rows.Scan(&run.ID, &run.StartedAt, &finishedAt, &run.Status, &run.Path,
			&run.FilesRequested, &run.FilesWritten, &run.LinesPerFile, &run.Workers, &errMsg); err != nil {
			return nil, err
		}
		if finishedAt.Valid {
			run.FinishedAt = finishedAt.String
		}
		if errMsg.Valid {
			run.Error = errMsg.String
		}
		res = append(res, run)
	}
	return res, rows.Err()
}

func (r Repo) ListRunFiles(ctx context.Context, runID string) ([]domain.RunFile, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT run_id,idx,name,lines,bytes,checksum,status,error FROM run_files WHERE run_id=? ORDER BY idx ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.RunFile
	for rows.Next() {
		var f domain.RunFile
		var checksum, errMsg sql.NullString
		if err := rows.Scan(&f.RunID, &f.Idx, &f.Name, &f.Lines, &f.Bytes, &checksum, &f.Status, &errMsg); err != nil {
			return nil, err
		}
		if checksum.Valid {
			f.Checksum = checksum.String
		}
		if errMsg.Valid {
			f.Error = errMsg.String
		}
		res = append(res, f)
	}
	return res, rows.Err()
}

func (r Repo) CountRunsByStatus(ctx context.Context) (map[string]int, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT status, count(*) FROM runs GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := map[string]int{}
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		res[status] = count
	}
	return res, rows.Err()
}
