package http

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/mind-engage/quizd/internal/quiz"
)

// GET /questions?qtype=&difficulty=&category=&limit=50&offset=0
func ListQuestionsHandler(svc *quiz.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		opts := quiz.QuestionListOpts{
			Difficulty: quiz.Difficulty(q.Get("difficulty")),
			Limit:      clampLimit(parseIntDefault(q.Get("limit"), 50), 50, 500),
			Offset:     parseIntDefault(q.Get("offset"), 0),
		}
		if s := q.Get("qtype"); s != "" {
			opts.QType, _ = quiz.ParseQType(s)
		}
		if s := q.Get("category"); s != "" {
			id, err := strconv.ParseInt(s, 10, 64)
			if err != nil || id <= 0 {
				http.Error(w, "bad category", http.StatusBadRequest)
				return
			}
			opts.CategoryID = id
		}
		list, err := svc.ListQuestions(r.Context(), opts)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

func CreateQuestionHandler(svc *quiz.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in quiz.QuestionInput
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		q, err := svc.CreateQuestion(r.Context(), in)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, q)
	}
}

func GetQuestionHandler(svc *quiz.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(r, "questionID")
		if !ok {
			http.Error(w, "bad question id", http.StatusBadRequest)
			return
		}
		q, err := svc.GetQuestion(r.Context(), id)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, q)
	}
}

// PUT /questions/{questionID} replaces the question, choices included.
func UpdateQuestionHandler(svc *quiz.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(r, "questionID")
		if !ok {
			http.Error(w, "bad question id", http.StatusBadRequest)
			return
		}
		var in quiz.QuestionInput
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		q, err := svc.UpdateQuestion(r.Context(), id, in)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, q)
	}
}

func DeleteQuestionHandler(svc *quiz.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(r, "questionID")
		if !ok {
			http.Error(w, "bad question id", http.StatusBadRequest)
			return
		}
		if err := svc.DeleteQuestion(r.Context(), id); err != nil {
			writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func ListCategoriesHandler(svc *quiz.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := svc.ListCategories(r.Context())
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

func CreateCategoryHandler(svc *quiz.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Name string `json:"name"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		c, err := svc.CreateCategory(r.Context(), req.Name)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, c)
	}
}
