package http

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/http"

	"github.com/mind-engage/quizd/internal/quiz"
)

const (
	maxAnswersBody = 1 << 20  // 1 MiB of JSON answers
	maxUploadBody  = 20 << 20 // multipart with an image
)

// POST /play/start {"player_uuid": "..."}
func StartAttemptHandler(svc *quiz.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			PlayerUUID string `json:"player_uuid"`
		}
		if err := json.NewDecoder(io.LimitReader(r.Body, maxAnswersBody)).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		a, err := svc.CreateAttempt(r.Context(), req.PlayerUUID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, a)
	}
}

// POST /play/submit/{attemptID}
//
// Accepts a JSON body ({"answers": {...}} or the bare map) or a multipart
// form whose "answers" part is text or a file and whose optional "image"
// part is the upload. A repeated submit answers 200 with the stored
// result and Idempotent-Replay: true.
func SubmitAttemptHandler(svc *quiz.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(r, "attemptID")
		if !ok {
			http.Error(w, "bad attempt id", http.StatusBadRequest)
			return
		}

		var sub quiz.Submission
		mt, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
		if mt == "multipart/form-data" {
			r.Body = http.MaxBytesReader(w, r.Body, maxUploadBody)
			if err := r.ParseMultipartForm(8 << 20); err != nil {
				http.Error(w, "bad multipart body", http.StatusBadRequest)
				return
			}
			defer r.MultipartForm.RemoveAll()

			raw, err := answersPart(r)
			if err != nil {
				http.Error(w, "bad answers part", http.StatusBadRequest)
				return
			}
			if sub.Answers, err = quiz.DecodeAnswers(raw); err != nil {
				http.Error(w, "bad answers json", http.StatusBadRequest)
				return
			}
			if f, hdr, err := r.FormFile("image"); err == nil {
				defer f.Close()
				sub.Image = &quiz.Upload{
					Filename:    hdr.Filename,
					ContentType: hdr.Header.Get("Content-Type"),
					Size:        hdr.Size,
					Body:        f,
				}
			} else if !errors.Is(err, http.ErrMissingFile) {
				http.Error(w, "bad image part", http.StatusBadRequest)
				return
			}
		} else {
			raw, err := io.ReadAll(io.LimitReader(r.Body, maxAnswersBody))
			if err != nil {
				http.Error(w, "read body", http.StatusBadRequest)
				return
			}
			if sub.Answers, err = quiz.DecodeAnswers(raw); err != nil {
				http.Error(w, "bad json", http.StatusBadRequest)
				return
			}
		}

		res, err := svc.Submit(r.Context(), id, sub)
		if err != nil {
			writeError(w, r, err)
			return
		}
		if res.Replayed {
			w.Header().Set("Idempotent-Replay", "true")
		}
		writeJSON(w, http.StatusOK, res.Attempt)
	}
}

// answersPart returns the "answers" form value, or the content of an
// "answers" file part when clients send it as a blob.
func answersPart(r *http.Request) ([]byte, error) {
	if v := r.FormValue("answers"); v != "" {
		return []byte(v), nil
	}
	f, _, err := r.FormFile("answers")
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return readPart(f)
}

func readPart(f multipart.File) ([]byte, error) {
	defer f.Close()
	return io.ReadAll(io.LimitReader(f, maxAnswersBody))
}
