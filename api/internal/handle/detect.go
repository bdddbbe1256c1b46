package handle

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"banknote-reader/api/internal/ocr"
	"banknote-reader/api/internal/util"
)

// DetectRequest is the JSON alternative to the multipart upload.
type DetectRequest struct {
	LLMName  string `json:"llm_name"`
	ImageB64 string `json:"image_b64"`
}

func (h *Handle) Detect(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, errorBody{Error: "POST only", SpeechText: "Error: Bad request."})
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, h.opt.MaxUploadBytes)

	up, err := readUpload(r)
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorBody{
				Error:      "image too large: limit " + strconv.FormatInt(tooBig.Limit, 10) + " bytes",
				SpeechText: "The image is too large. Please send a smaller photo.",
			})
			return
		}
		writeError(w, r, err)
		return
	}

	// ключ проверяем до картинки: без него нет смысла декодировать
	engine, err := h.det.Engine(up.llmName)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if up.decodeErr != nil {
		writeError(w, r, up.decodeErr)
		return
	}
	if len(up.img) == 0 {
		writeError(w, r, ocr.NoImage())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.deadline(r))
	defer cancel()

	out, err := h.det.Detect(ctx, engine, up.img)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// deadline: X-Request-Timeout header, then ?timeoutSec=, then the configured default.
func (h *Handle) deadline(r *http.Request) time.Duration {
	for _, ts := range []string{r.Header.Get("X-Request-Timeout"), r.URL.Query().Get("timeoutSec")} {
		if ts == "" {
			continue
		}
		if v, _ := strconv.Atoi(ts); v > 0 {
			return time.Duration(v) * time.Second
		}
	}
	return h.opt.Timeout
}

type upload struct {
	llmName string
	img     []byte // nil when no image was sent
	// decodeErr is reported only after the engine check.
	decodeErr error
}

func readUpload(r *http.Request) (upload, error) {
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if ct == "application/json" {
		return readJSON(r)
	}

	if err := r.ParseMultipartForm(8 << 20); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return upload{}, err
		}
		if errors.Is(err, http.ErrNotMultipart) {
			return upload{llmName: r.URL.Query().Get("llm_name")}, nil
		}
		return upload{}, ocr.BadRequest("bad multipart form", err)
	}
	defer r.MultipartForm.RemoveAll()

	up := upload{llmName: r.FormValue("llm_name")}
	f, _, err := r.FormFile("image")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return up, nil
		}
		return upload{}, ocr.BadRequest("bad image field", err)
	}
	defer f.Close()

	if up.img, err = io.ReadAll(f); err != nil {
		return upload{}, ocr.BadRequest("cannot read image", err)
	}
	return up, nil
}

func readJSON(r *http.Request) (upload, error) {
	var req DetectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return upload{}, err
		}
		return upload{}, ocr.BadRequest("bad json", err)
	}
	up := upload{llmName: req.LLMName}
	if strings.TrimSpace(req.ImageB64) == "" {
		return up, nil
	}
	img, err := util.DecodeImageBase64(req.ImageB64)
	if err != nil {
		up.decodeErr = ocr.ImageDecode(err)
		return up, nil
	}
	if len(img) > 0 {
		up.img = img
	}
	return up, nil
}
