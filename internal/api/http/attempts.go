package http

import (
	"encoding/csv"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/mind-engage/quizd/internal/quiz"
)

// GET /attempts?player_uuid=...&status=...&limit=50&offset=0
func ListAttemptsHandler(svc *quiz.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		list, err := svc.ListAttempts(r.Context(), quiz.AttemptListOpts{
			PlayerUUID: strings.TrimSpace(q.Get("player_uuid")),
			Status:     quiz.AttemptStatus(strings.TrimSpace(q.Get("status"))),
			Limit:      clampLimit(parseIntDefault(q.Get("limit"), 50), 50, 200),
			Offset:     parseIntDefault(q.Get("offset"), 0),
		})
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

func GetAttemptHandler(svc *quiz.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(r, "attemptID")
		if !ok {
			http.Error(w, "bad attempt id", http.StatusBadRequest)
			return
		}
		a, err := svc.GetAttempt(r.Context(), id)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, a)
	}
}

var csvHeader = []string{"id", "player_uuid", "created_at", "status", "score", "total", "correct_ratio"}

// GET /attempts/export.csv[?player_uuid=...]
func ExportAttemptsCSVHandler(svc *quiz.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		player := strings.TrimSpace(r.URL.Query().Get("player_uuid"))
		const page = 200

		// fetch the first page before committing to a 200
		first, err := svc.ListAttempts(r.Context(), quiz.AttemptListOpts{PlayerUUID: player, Limit: page})
		if err != nil {
			writeError(w, r, err)
			return
		}

		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", `attachment; filename="attempts.csv"`)
		cw := csv.NewWriter(w)
		_ = cw.Write(csvHeader)

		batch, offset := first, 0
		for {
			for _, a := range batch {
				_ = cw.Write(csvRow(a))
			}
			if len(batch) < page {
				break
			}
			offset += page
			batch, err = svc.ListAttempts(r.Context(), quiz.AttemptListOpts{PlayerUUID: player, Limit: page, Offset: offset})
			if err != nil {
				loggerFrom(r.Context()).Sugar().Errorw("csv export aborted", "offset", offset, "err", err)
				break
			}
		}
		cw.Flush()
	}
}

func csvRow(a quiz.Attempt) []string {
	score, ratio := "", ""
	if a.Score != nil {
		score = strconv.Itoa(*a.Score)
		if a.Total > 0 {
			ratio = strconv.FormatFloat(float64(*a.Score)/float64(a.Total), 'f', 2, 64)
		}
	}
	return []string{
		strconv.FormatInt(a.ID, 10),
		a.PlayerUUID,
		a.CreatedAt.UTC().Format(time.RFC3339),
		string(a.Status),
		score,
		strconv.Itoa(a.Total),
		ratio,
	}
}
