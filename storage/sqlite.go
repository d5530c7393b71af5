package storage

import (
	"database/sql"
	"encoding/json"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"avitowatch/models"
)

// SQLiteStore holds operational data: evaluation runs, the command queue the
// external chat interface writes into, and per-criterion logs. Domain data
// (users, criteria, seen listings) lives in Postgres.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}

	store := &SQLiteStore{db: db}
	if err := store.migrate(); err != nil {
		return nil, err
	}

	return store, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS evaluation_runs (
		id INTEGER PRIMARY KEY,
		started_at DATETIME,
		finished_at DATETIME,
		status TEXT,
		criteria_checked INTEGER,
		listings_found INTEGER,
		listings_novel INTEGER,
		notifications_sent INTEGER,
		errors_count INTEGER
	);

	CREATE TABLE IF NOT EXISTS evaluation_logs (
		id INTEGER PRIMARY KEY,
		run_id INTEGER,
		timestamp DATETIME,
		level TEXT,
		message TEXT,
		criterion_id INTEGER
	);

	CREATE TABLE IF NOT EXISTS commands (
		id INTEGER PRIMARY KEY,
		command TEXT,
		params JSON,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		processed_at DATETIME
	);

	CREATE INDEX IF NOT EXISTS idx_commands_pending ON commands(processed_at) WHERE processed_at IS NULL;
	CREATE INDEX IF NOT EXISTS idx_logs_run ON evaluation_logs(run_id, timestamp);
	CREATE INDEX IF NOT EXISTS idx_runs_status ON evaluation_runs(status, started_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteStore) CreateRun(run *models.EvaluationRun) (int64, error) {
	result, err := s.db.Exec(`
		INSERT INTO evaluation_runs (started_at, status, criteria_checked, listings_found,
			listings_novel, notifications_sent, errors_count)
		VALUES (?, ?, 0, 0, 0, 0, 0)`,
		run.StartedAt, run.Status)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

func (s *SQLiteStore) UpdateRun(run *models.EvaluationRun) error {
	_, err := s.db.Exec(`
		UPDATE evaluation_runs SET finished_at = ?, status = ?, criteria_checked = ?,
			listings_found = ?, listings_novel = ?, notifications_sent = ?, errors_count = ?
		WHERE id = ?`,
		run.FinishedAt, run.Status, run.CriteriaChecked, run.ListingsFound,
		run.ListingsNovel, run.NotificationsSent, run.ErrorsCount, run.ID)
	return err
}

func (s *SQLiteStore) GetLastRun() (*models.EvaluationRun, error) {
	row := s.db.QueryRow(`
		SELECT id, started_at, finished_at, status, criteria_checked, listings_found,
			listings_novel, notifications_sent, errors_count
		FROM evaluation_runs ORDER BY started_at DESC LIMIT 1`)

	var run models.EvaluationRun
	err := row.Scan(&run.ID, &run.StartedAt, &run.FinishedAt, &run.Status, &run.CriteriaChecked,
		&run.ListingsFound, &run.ListingsNovel, &run.NotificationsSent, &run.ErrorsCount)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

func (s *SQLiteStore) Log(runID *int64, level models.LogLevel, message string, criterionID int64) error {
	_, err := s.db.Exec(`
		INSERT INTO evaluation_logs (run_id, timestamp, level, message, criterion_id)
		VALUES (?, ?, ?, ?, ?)`,
		runID, time.Now(), level, message, criterionID)
	return err
}

func (s *SQLiteStore) GetPendingCommands() ([]models.Command, error) {
	rows, err := s.db.Query(`
		SELECT id, command, params, created_at, processed_at
		FROM commands WHERE processed_at IS NULL ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cmds []models.Command
	for rows.Next() {
		var cmd models.Command
		var params sql.NullString
		if err := rows.Scan(&cmd.ID, &cmd.Command, &params, &cmd.CreatedAt, &cmd.ProcessedAt); err != nil {
			return nil, err
		}
		if params.Valid {
			cmd.Params = json.RawMessage(params.String)
		}
		cmds = append(cmds, cmd)
	}
	return cmds, rows.Err()
}

func (s *SQLiteStore) EnqueueCommand(cmdType models.CommandType, params *models.CommandParams) error {
	var raw json.RawMessage
	if params != nil {
		data, err := json.Marshal(params)
		if err != nil {
			return err
		}
		raw = data
	}
	_, err := s.db.Exec(`
		INSERT INTO commands (command, params) VALUES (?, ?)`,
		string(cmdType), []byte(raw))
	return err
}

func (s *SQLiteStore) MarkCommandProcessed(id int64) error {
	_, err := s.db.Exec(`UPDATE commands SET processed_at = ? WHERE id = ?`, time.Now(), id)
	return err
}

func (s *SQLiteStore) ParseCommandParams(cmd *models.Command) (*models.CommandParams, error) {
	if cmd.Params == nil || string(cmd.Params) == "null" {
		return &models.CommandParams{}, nil
	}
	var params models.CommandParams
	if err := json.Unmarshal(cmd.Params, &params); err != nil {
		return nil, err
	}
	return &params, nil
}
