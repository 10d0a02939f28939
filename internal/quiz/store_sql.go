package quiz

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/mind-engage/quizd/internal/db"
	syncx "github.com/mind-engage/quizd/internal/sync"
)

type SQLStore struct {
	conn   *sql.DB
	driver db.Driver
	events *syncx.EventRepo
}

func NewSQLStore(conn *sql.DB, driver db.Driver, events *syncx.EventRepo) *SQLStore {
	return &SQLStore{conn: conn, driver: driver, events: events}
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *SQLStore) q(query string) string { return db.Rebind(s.driver, query) }

// ---------- questions ----------

func (s *SQLStore) CreateQuestion(ctx context.Context, q Question) (Question, error) {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return Question{}, err
	}
	defer tx.Rollback()

	if err := s.checkCategory(ctx, tx, q.CategoryID); err != nil {
		return Question{}, err
	}
	if q.CreatedAt.IsZero() {
		q.CreatedAt = time.Now().UTC()
	}
	var id int64
	err = tx.QueryRowContext(ctx, s.q(`INSERT INTO questions
		(prompt, qtype, difficulty, category_id, text_answer, numeric_answer, image_required, created_at)
		VALUES (?,?,?,?,?,?,?,?) RETURNING id`),
		q.Prompt, string(q.QType), string(q.Difficulty), nullInt(q.CategoryID),
		nullStr(q.TextAnswer), nullF64(q.NumericAnswer), boolInt(q.ImageRequired), q.CreatedAt.UnixMilli(),
	).Scan(&id)
	if err != nil {
		return Question{}, fmt.Errorf("insert question: %w", err)
	}
	if err := s.insertChoices(ctx, tx, id, q.Choices); err != nil {
		return Question{}, err
	}
	if err := tx.Commit(); err != nil {
		return Question{}, err
	}
	return s.GetQuestion(ctx, id)
}

// UpdateQuestion rewrites scalar fields and replaces the whole choice set
// in one transaction. Old choice rows are deleted, never merged.
func (s *SQLStore) UpdateQuestion(ctx context.Context, q Question) (Question, error) {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return Question{}, err
	}
	defer tx.Rollback()

	if err := s.checkCategory(ctx, tx, q.CategoryID); err != nil {
		return Question{}, err
	}
	res, err := tx.ExecContext(ctx, s.q(`UPDATE questions SET
		prompt=?, qtype=?, difficulty=?, category_id=?, text_answer=?, numeric_answer=?, image_required=?
		WHERE id=?`),
		q.Prompt, string(q.QType), string(q.Difficulty), nullInt(q.CategoryID),
		nullStr(q.TextAnswer), nullF64(q.NumericAnswer), boolInt(q.ImageRequired), q.ID)
	if err != nil {
		return Question{}, fmt.Errorf("update question: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return Question{}, ErrQuestionNotFound
	}
	if _, err := tx.ExecContext(ctx, s.q(`DELETE FROM choices WHERE question_id=?`), q.ID); err != nil {
		return Question{}, err
	}
	if err := s.insertChoices(ctx, tx, q.ID, q.Choices); err != nil {
		return Question{}, err
	}
	if err := tx.Commit(); err != nil {
		return Question{}, err
	}
	return s.GetQuestion(ctx, q.ID)
}

func (s *SQLStore) insertChoices(ctx context.Context, tx *sql.Tx, questionID int64, choices []Choice) error {
	for i, c := range choices {
		if _, err := tx.ExecContext(ctx, s.q(`INSERT INTO choices (question_id, position, text, is_correct) VALUES (?,?,?,?)`),
			questionID, i, c.Text, boolInt(c.IsCorrect)); err != nil {
			return fmt.Errorf("insert choice: %w", err)
		}
	}
	return nil
}

func (s *SQLStore) checkCategory(ctx context.Context, x querier, id *int64) error {
	if id == nil {
		return nil
	}
	var one int
	err := x.QueryRowContext(ctx, s.q(`SELECT 1 FROM categories WHERE id=?`), *id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrCategoryNotFound
	}
	return err
}

const questionCols = `id, prompt, qtype, difficulty, category_id, text_answer, numeric_answer, image_required, created_at`

func scanQuestion(sc interface{ Scan(...any) error }) (Question, error) {
	var (
		q         Question
		category  sql.NullInt64
		text      sql.NullString
		numeric   sql.NullFloat64
		imageReq  int64
		createdAt int64
	)
	if err := sc.Scan(&q.ID, &q.Prompt, &q.QType, &q.Difficulty, &category, &text, &numeric, &imageReq, &createdAt); err != nil {
		return Question{}, err
	}
	if category.Valid {
		v := category.Int64
		q.CategoryID = &v
	}
	if text.Valid {
		v := text.String
		q.TextAnswer = &v
	}
	if numeric.Valid {
		v := numeric.Float64
		q.NumericAnswer = &v
	}
	q.ImageRequired = imageReq != 0
	q.CreatedAt = time.UnixMilli(createdAt).UTC()
	return q, nil
}

func (s *SQLStore) GetQuestion(ctx context.Context, id int64) (Question, error) {
	q, err := scanQuestion(s.conn.QueryRowContext(ctx, s.q(`SELECT `+questionCols+` FROM questions WHERE id=?`), id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Question{}, ErrQuestionNotFound
		}
		return Question{}, err
	}
	if q.Choices, err = s.loadChoices(ctx, id); err != nil {
		return Question{}, err
	}
	return q, nil
}

func (s *SQLStore) loadChoices(ctx context.Context, questionID int64) ([]Choice, error) {
	rows, err := s.conn.QueryContext(ctx, s.q(`SELECT id, text, is_correct FROM choices WHERE question_id=? ORDER BY position ASC, id ASC`), questionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]Choice, 0)
	for rows.Next() {
		var c Choice
		var correct int64
		if err := rows.Scan(&c.ID, &c.Text, &correct); err != nil {
			return nil, err
		}
		c.IsCorrect = correct != 0
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *SQLStore) ListQuestions(ctx context.Context, opts QuestionListOpts) ([]Question, error) {
	var (
		where []string
		args  []any
	)
	if opts.QType != "" {
		where = append(where, "qtype=?")
		args = append(args, string(opts.QType))
	}
	if opts.Difficulty != "" {
		where = append(where, "difficulty=?")
		args = append(args, string(opts.Difficulty))
	}
	if opts.CategoryID != 0 {
		where = append(where, "category_id=?")
		args = append(args, opts.CategoryID)
	}
	query := `SELECT ` + questionCols + ` FROM questions`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY id ASC" + limitClause(opts.Limit, opts.Offset)

	rows, err := s.conn.QueryContext(ctx, s.q(query), args...)
	if err != nil {
		return nil, err
	}
	out := make([]Question, 0)
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		out = append(out, q)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	// choices are loaded after the cursor is closed: sqlite runs on one connection
	for i := range out {
		if out[i].Choices, err = s.loadChoices(ctx, out[i].ID); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (s *SQLStore) DeleteQuestion(ctx context.Context, id int64) error {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var one int
	if err := tx.QueryRowContext(ctx, s.q(`SELECT 1 FROM questions WHERE id=?`), id).Scan(&one); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrQuestionNotFound
		}
		return err
	}
	err = tx.QueryRowContext(ctx, s.q(`SELECT 1 FROM attempt_questions WHERE question_id=? LIMIT 1`), id).Scan(&one)
	if err == nil {
		return ErrQuestionInUse
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return err
	}
	if _, err := tx.ExecContext(ctx, s.q(`DELETE FROM choices WHERE question_id=?`), id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, s.q(`DELETE FROM questions WHERE id=?`), id); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLStore) QuestionIDs(ctx context.Context) ([]int64, error) {
	rows, err := s.conn.QueryContext(ctx, `SELECT id FROM questions ORDER BY id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	ids := make([]int64, 0)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ---------- categories ----------

func (s *SQLStore) CreateCategory(ctx context.Context, name string) (Category, error) {
	var one int
	err := s.conn.QueryRowContext(ctx, s.q(`SELECT 1 FROM categories WHERE LOWER(name)=LOWER(?)`), name).Scan(&one)
	if err == nil {
		return Category{}, ErrCategoryExists
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return Category{}, err
	}
	c := Category{Name: name}
	if err := s.conn.QueryRowContext(ctx, s.q(`INSERT INTO categories (name) VALUES (?) RETURNING id`), name).Scan(&c.ID); err != nil {
		return Category{}, fmt.Errorf("insert category: %w", err)
	}
	return c, nil
}

func (s *SQLStore) ListCategories(ctx context.Context) ([]Category, error) {
	rows, err := s.conn.QueryContext(ctx, `SELECT id, name FROM categories ORDER BY name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]Category, 0)
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// ---------- attempts ----------

func (s *SQLStore) CreateAttempt(ctx context.Context, playerUUID string, createdAt time.Time, snapshots []AttemptQuestion) (Attempt, error) {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return Attempt{}, err
	}
	defer tx.Rollback()

	playerID, err := s.ensurePlayer(ctx, tx, playerUUID, createdAt)
	if err != nil {
		return Attempt{}, err
	}
	var attemptID int64
	if err := tx.QueryRowContext(ctx, s.q(`INSERT INTO attempts (player_id, status, total, created_at)
		VALUES (?,?,?,?) RETURNING id`),
		playerID, string(StatusOpen), len(snapshots), createdAt.UnixMilli()).Scan(&attemptID); err != nil {
		return Attempt{}, fmt.Errorf("insert attempt: %w", err)
	}

	for i, aq := range snapshots {
		cj, err := json.Marshal(nonNilChoices(aq.Choices))
		if err != nil {
			return Attempt{}, err
		}
		if _, err := tx.ExecContext(ctx, s.q(`INSERT INTO attempt_questions
			(attempt_id, question_id, position, prompt, qtype, choices_json, text_answer, numeric_answer, image_required)
			VALUES (?,?,?,?,?,?,?,?,?)`),
			attemptID, aq.QuestionID, i, aq.Prompt, string(aq.QType), string(cj),
			nullStr(aq.Key.TextAnswer), nullF64(aq.Key.NumericAnswer), boolInt(aq.Key.ImageRequired)); err != nil {
			return Attempt{}, fmt.Errorf("insert attempt question: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return Attempt{}, err
	}
	return s.GetAttempt(ctx, attemptID)
}

func (s *SQLStore) ensurePlayer(ctx context.Context, tx *sql.Tx, playerUUID string, now time.Time) (int64, error) {
	var id int64
	err := tx.QueryRowContext(ctx, s.q(`SELECT id FROM players WHERE player_uuid=?`), playerUUID).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, err
	}
	if err := tx.QueryRowContext(ctx, s.q(`INSERT INTO players (player_uuid, created_at) VALUES (?,?) RETURNING id`),
		playerUUID, now.UnixMilli()).Scan(&id); err != nil {
		return 0, fmt.Errorf("insert player: %w", err)
	}
	return id, nil
}

const attemptCols = `a.id, p.player_uuid, a.status, a.score, a.total, a.created_at, a.submitted_at`

func scanAttempt(sc interface{ Scan(...any) error }) (Attempt, error) {
	var (
		a         Attempt
		status    string
		score     sql.NullInt64
		createdAt int64
		submitted sql.NullInt64
	)
	if err := sc.Scan(&a.ID, &a.PlayerUUID, &status, &score, &a.Total, &createdAt, &submitted); err != nil {
		return Attempt{}, err
	}
	a.Status = AttemptStatus(status)
	if score.Valid {
		v := int(score.Int64)
		a.Score = &v
	}
	a.CreatedAt = time.UnixMilli(createdAt).UTC()
	if submitted.Valid {
		t := time.UnixMilli(submitted.Int64).UTC()
		a.SubmittedAt = &t
	}
	return a, nil
}

func (s *SQLStore) GetAttempt(ctx context.Context, id int64) (Attempt, error) {
	return s.loadAttempt(ctx, s.conn, id)
}

func (s *SQLStore) loadAttempt(ctx context.Context, x querier, id int64) (Attempt, error) {
	a, err := scanAttempt(x.QueryRowContext(ctx, s.q(`SELECT `+attemptCols+`
		FROM attempts a JOIN players p ON p.id = a.player_id WHERE a.id=?`), id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Attempt{}, ErrAttemptNotFound
		}
		return Attempt{}, err
	}
	if a.AttemptQuestions, err = s.loadAttemptQuestions(ctx, x, id); err != nil {
		return Attempt{}, err
	}
	return a, nil
}

func (s *SQLStore) loadAttemptQuestions(ctx context.Context, x querier, attemptID int64) ([]AttemptQuestion, error) {
	rows, err := x.QueryContext(ctx, s.q(`SELECT id, question_id, prompt, qtype, choices_json, text_answer, numeric_answer,
		image_required, selected_json, text_response, numeric_response, image, is_correct, correct_json, needs_review
		FROM attempt_questions WHERE attempt_id=? ORDER BY position ASC`), attemptID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]AttemptQuestion, 0, AttemptSize)
	for rows.Next() {
		var (
			aq                         AttemptQuestion
			choicesJSON, selectedJSON  string
			textAnswer, textResponse   sql.NullString
			numericAnswer, numericResp sql.NullFloat64
			imageReq, needsReview      int64
			isCorrect                  sql.NullInt64
			correctJSON                sql.NullString
		)
		if err := rows.Scan(&aq.ID, &aq.QuestionID, &aq.Prompt, &aq.QType, &choicesJSON, &textAnswer, &numericAnswer,
			&imageReq, &selectedJSON, &textResponse, &numericResp, &aq.Image, &isCorrect, &correctJSON, &needsReview); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(choicesJSON), &aq.Choices); err != nil {
			return nil, fmt.Errorf("attempt question %d choices: %w", aq.ID, err)
		}
		if err := json.Unmarshal([]byte(selectedJSON), &aq.SelectedChoiceIDs); err != nil {
			aq.SelectedChoiceIDs = []int64{}
		}
		if textAnswer.Valid {
			v := textAnswer.String
			aq.Key.TextAnswer = &v
		}
		if numericAnswer.Valid {
			v := numericAnswer.Float64
			aq.Key.NumericAnswer = &v
		}
		aq.Key.ImageRequired = imageReq != 0
		if textResponse.Valid {
			v := textResponse.String
			aq.TextResponse = &v
		}
		if numericResp.Valid {
			v := numericResp.Float64
			aq.NumericResponse = &v
		}
		if isCorrect.Valid {
			v := isCorrect.Int64 != 0
			aq.IsCorrect = &v
		}
		if correctJSON.Valid {
			if err := json.Unmarshal([]byte(correctJSON.String), &aq.CorrectChoiceIDs); err != nil {
				aq.CorrectChoiceIDs = []int64{}
			}
		}
		aq.NeedsReview = needsReview != 0
		out = append(out, aq)
	}
	return out, rows.Err()
}

func (s *SQLStore) ListAttempts(ctx context.Context, opts AttemptListOpts) ([]Attempt, error) {
	var (
		where []string
		args  []any
	)
	if opts.PlayerUUID != "" {
		where = append(where, "p.player_uuid=?")
		args = append(args, opts.PlayerUUID)
	}
	if opts.Status != "" {
		where = append(where, "a.status=?")
		args = append(args, string(opts.Status))
	}
	query := `SELECT ` + attemptCols + ` FROM attempts a JOIN players p ON p.id = a.player_id`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY a.created_at DESC, a.id DESC" + limitClause(opts.Limit, opts.Offset)

	rows, err := s.conn.QueryContext(ctx, s.q(query), args...)
	if err != nil {
		return nil, err
	}
	out := make([]Attempt, 0)
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	for i := range out {
		if out[i].AttemptQuestions, err = s.loadAttemptQuestions(ctx, s.conn, out[i].ID); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// ScoreAttempt performs the open→scored transition. The status flip is a
// compare-and-set executed before any question row is written, so a losing
// concurrent call rolls back without side effects.
func (s *SQLStore) ScoreAttempt(ctx context.Context, id int64, score ScoreFunc) (Attempt, error) {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return Attempt{}, err
	}
	defer tx.Rollback()

	open, err := s.loadAttempt(ctx, tx, id)
	if err != nil {
		return Attempt{}, err
	}
	if open.Status != StatusOpen {
		return Attempt{}, ErrAlreadySubmitted
	}
	scored := score(open)
	if scored.Score == nil || scored.SubmittedAt == nil {
		return Attempt{}, errors.New("score func returned an unscored attempt")
	}

	res, err := tx.ExecContext(ctx, s.q(`UPDATE attempts SET status=?, score=?, total=?, submitted_at=?
		WHERE id=? AND status=?`),
		string(StatusScored), *scored.Score, scored.Total, scored.SubmittedAt.UnixMilli(), id, string(StatusOpen))
	if err != nil {
		return Attempt{}, fmt.Errorf("score attempt: %w", err)
	}
	if n, _ := res.RowsAffected(); n != 1 {
		return Attempt{}, ErrAlreadySubmitted
	}

	for _, aq := range scored.AttemptQuestions {
		selected, err := json.Marshal(nonNilIDs(aq.SelectedChoiceIDs))
		if err != nil {
			return Attempt{}, err
		}
		correct, err := json.Marshal(nonNilIDs(aq.CorrectChoiceIDs))
		if err != nil {
			return Attempt{}, err
		}
		var isCorrect any
		if aq.IsCorrect != nil {
			isCorrect = boolInt(*aq.IsCorrect)
		}
		if _, err := tx.ExecContext(ctx, s.q(`UPDATE attempt_questions SET
			selected_json=?, text_response=?, numeric_response=?, image=?, is_correct=?, correct_json=?, needs_review=?
			WHERE id=? AND attempt_id=?`),
			string(selected), nullStr(aq.TextResponse), nullF64(aq.NumericResponse), aq.Image,
			isCorrect, string(correct), boolInt(aq.NeedsReview), aq.ID, id); err != nil {
			return Attempt{}, fmt.Errorf("score attempt question %d: %w", aq.ID, err)
		}
	}

	if s.events != nil {
		data, _ := json.Marshal(map[string]any{
			"score":       *scored.Score,
			"total":       scored.Total,
			"player_uuid": scored.PlayerUUID,
		})
		if err := s.events.Append(ctx, tx, syncx.Event{
			Type: syncx.TypeAttemptScored,
			Key:  strconv.FormatInt(id, 10),
			Data: data,
		}); err != nil {
			return Attempt{}, fmt.Errorf("append event: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return Attempt{}, err
	}
	return scored, nil
}

// ---------- helpers ----------

func limitClause(limit, offset int) string {
	if limit <= 0 && offset <= 0 {
		return ""
	}
	if limit <= 0 {
		limit = 1 << 30
	}
	return fmt.Sprintf(" LIMIT %d OFFSET %d", limit, max(offset, 0))
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullStr(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}

func nullF64(p *float64) any {
	if p == nil {
		return nil
	}
	return *p
}

func nullInt(p *int64) any {
	if p == nil {
		return nil
	}
	return *p
}

func nonNilIDs(ids []int64) []int64 {
	if ids == nil {
		return []int64{}
	}
	return ids
}

func nonNilChoices(cs []Choice) []Choice {
	if cs == nil {
		return []Choice{}
	}
	return cs
}
