package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"CodeDrop/internal/config"
	"CodeDrop/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ExchangeHandler обрабатывает создание, верификацию, выдачу и удаление
// записей обмена.
type ExchangeHandler struct {
	Service *service.ExchangeService
	Logger  *zap.SugaredLogger
	Config  *config.Config
}

// NewExchangeHandler создаёт хендлер exchanges
func NewExchangeHandler(svc *service.ExchangeService, logger *zap.SugaredLogger, cfg *config.Config) *ExchangeHandler {
	return &ExchangeHandler{Service: svc, Logger: logger, Config: cfg}
}

// CreateRequest — тело структурного создания: одно значение или список.
type CreateRequest struct {
	Data  json.RawMessage   `json:"data,omitempty"`
	Items []json.RawMessage `json:"items,omitempty"`
}

// CreateResponse — ответ на создание записи.
type CreateResponse struct {
	Success   bool   `json:"success"`
	Code      string `json:"code"`
	ItemCount int    `json:"item_count"`
}

// ItemDTO — метаданные элемента в ответах Verify/Get.
type ItemDTO struct {
	Index    int             `json:"index"`
	IsFile   bool            `json:"is_file"`
	FileName string          `json:"file_name,omitempty"`
	FileType string          `json:"file_type,omitempty"`
	FileSize int64           `json:"file_size,omitempty"`
	Consumed bool            `json:"consumed"`
	Data     json.RawMessage `json:"data,omitempty"`
}

// ExchangeResponse — проекция записи обмена.
type ExchangeResponse struct {
	Success    bool      `json:"success"`
	Code       string    `json:"code"`
	Verified   bool      `json:"verified"`
	VerifiedAt *string   `json:"verified_at,omitempty"`
	CreatedAt  string    `json:"created_at"`
	Items      []ItemDTO `json:"items"`
}

// CreateFromData создаёт запись из JSON-значений: либо "data" (одно значение),
// либо "items" (непустой список).
func (h *ExchangeHandler) CreateFromData(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Logger.Warnw("CreateFromData: invalid request body", "error", err)
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	values := req.Items
	if len(values) == 0 && len(req.Data) > 0 && string(req.Data) != "null" {
		values = []json.RawMessage{req.Data}
	}

	res, err := h.Service.CreateFromData(r.Context(), values)
	if err != nil {
		h.serviceError(w, "CreateFromData", err)
		return
	}

	h.writeJSON(w, http.StatusCreated, CreateResponse{Success: true, Code: res.Code, ItemCount: res.ItemCount})
}

// CreateFromFiles создаёт запись из multipart-загрузки (поле "files").
func (h *ExchangeHandler) CreateFromFiles(w http.ResponseWriter, r *http.Request) {
	// Лимит общего тела запроса: все файлы плюс накладные расходы multipart
	maxBody := h.Config.MaxFileBytes()*int64(h.Config.MaxFilesPerUpload) + 10*1024*1024
	r.Body = http.MaxBytesReader(w, r.Body, maxBody)

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		h.Logger.Warnw("CreateFromFiles: invalid multipart form", "error", err)
		h.writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	headers := r.MultipartForm.File["files"]
	if len(headers) > h.Config.MaxFilesPerUpload {
		h.writeError(w, http.StatusBadRequest,
			fmt.Sprintf("too many files (%d, max %d)", len(headers), h.Config.MaxFilesPerUpload))
		return
	}

	files := make([]service.FileUpload, 0, len(headers))
	for _, fh := range headers {
		// Потолок размера проверяем до чтения, чтобы не тянуть
		// заведомо негодный файл в память
		if fh.Size > h.Config.MaxFileBytes() {
			h.Logger.Warnw("CreateFromFiles: payload too large", "file", fh.Filename, "size", fh.Size)
			h.writeError(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("file %q exceeds the size limit", fh.Filename))
			return
		}

		f, err := fh.Open()
		if err != nil {
			h.Logger.Warnw("CreateFromFiles: failed to open file", "file", fh.Filename, "error", err)
			h.writeError(w, http.StatusBadRequest, "failed to read uploaded file")
			return
		}
		data, err := io.ReadAll(f)
		_ = f.Close()
		if err != nil {
			h.Logger.Warnw("CreateFromFiles: failed to read file", "file", fh.Filename, "error", err)
			h.writeError(w, http.StatusBadRequest, "failed to read uploaded file")
			return
		}

		mediaType := fh.Header.Get("Content-Type")
		if mediaType == "" {
			mediaType = "application/octet-stream"
		}
		files = append(files, service.FileUpload{
			Name:      fh.Filename,
			MediaType: mediaType,
			Size:      int64(len(data)),
			Data:      data,
		})
	}

	res, err := h.Service.CreateFromFiles(r.Context(), files)
	if err != nil {
		h.serviceError(w, "CreateFromFiles", err)
		return
	}

	h.writeJSON(w, http.StatusCreated, CreateResponse{Success: true, Code: res.Code, ItemCount: res.ItemCount})
}

// Verify помечает запись верифицированной и возвращает метаданные элементов.
func (h *ExchangeHandler) Verify(w http.ResponseWriter, r *http.Request) {
	info, err := h.Service.Verify(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		h.serviceError(w, "Verify", err)
		return
	}
	h.writeJSON(w, http.StatusOK, exchangeToDTO(info))
}

// Get — то же, что Verify, но без побочного эффекта (для опроса).
func (h *ExchangeHandler) Get(w http.ResponseWriter, r *http.Request) {
	info, err := h.Service.Get(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		h.serviceError(w, "Get", err)
		return
	}
	h.writeJSON(w, http.StatusOK, exchangeToDTO(info))
}

// Consume — одноразовая выдача элемента. Файл уходит сырыми байтами
// с заголовками вложения, структурное значение — JSON-конвертом,
// также оформленным как вложение.
func (h *ExchangeHandler) Consume(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		h.writeError(w, http.StatusNotFound, "item not found")
		return
	}

	payload, err := h.Service.Consume(r.Context(), code, index)
	if err != nil {
		h.serviceError(w, "Consume", err)
		return
	}

	if payload.IsFile {
		w.Header().Set("Content-Type", payload.MediaType)
		w.Header().Set("Content-Length", strconv.FormatInt(payload.ByteSize, 10))
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", payload.FileName))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(payload.Bytes)
		return
	}

	body, err := json.Marshal(payload.Envelope)
	if err != nil {
		h.Logger.Errorw("Consume: failed to marshal envelope", "code", code, "index", index, "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	name := fmt.Sprintf("exchange-%s-item-%d.json", payload.Envelope.Code, index)
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

// Delete полностью удаляет запись и её элементы.
func (h *ExchangeHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.Delete(r.Context(), chi.URLParam(r, "code")); err != nil {
		h.serviceError(w, "Delete", err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// serviceError переводит ошибку сервиса в HTTP-статус и JSON с сообщением.
func (h *ExchangeHandler) serviceError(w http.ResponseWriter, op string, err error) {
	status := http.StatusInternalServerError
	msg := err.Error()
	switch {
	case errors.Is(err, service.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, service.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrAlreadyConsumed):
		status = http.StatusGone
	case errors.Is(err, service.ErrPayloadTooLarge):
		status = http.StatusRequestEntityTooLarge
	default:
		// Внутренние детали наружу не отдаём
		h.Logger.Errorw(op+": service error", "error", err)
		msg = "internal error"
	}
	h.writeError(w, status, msg)
}

func (h *ExchangeHandler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (h *ExchangeHandler) writeError(w http.ResponseWriter, status int, msg string) {
	h.writeJSON(w, status, map[string]any{"success": false, "error": msg})
}

func exchangeToDTO(info service.ExchangeInfo) ExchangeResponse {
	items := make([]ItemDTO, 0, len(info.Items))
	for _, it := range info.Items {
		items = append(items, ItemDTO{
			Index:    it.Index,
			IsFile:   it.IsFile,
			FileName: it.FileName,
			FileType: it.MediaType,
			FileSize: it.ByteSize,
			Consumed: it.Consumed,
			Data:     it.Data,
		})
	}
	resp := ExchangeResponse{
		Success:   true,
		Code:      info.Code,
		Verified:  info.Verified,
		CreatedAt: info.CreatedAt.UTC().Format(time.RFC3339),
		Items:     items,
	}
	if info.VerifiedAt != nil {
		s := info.VerifiedAt.UTC().Format(time.RFC3339)
		resp.VerifiedAt = &s
	}
	return resp
}
