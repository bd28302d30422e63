package handler

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/readingjourney/readingjourney/internal/auth"
	"github.com/readingjourney/readingjourney/internal/cover"
	"github.com/readingjourney/readingjourney/internal/model"
	"github.com/readingjourney/readingjourney/internal/store"
	"github.com/readingjourney/readingjourney/internal/websocket"
)

const dateLayout = "2006-01-02"

// maxImportSize bounds the JSON backup accepted by Import.
const maxImportSize = 5 * 1024 * 1024

type BookHandler struct {
	bookStore *store.BookStore
	covers    *cover.Storage
	hub       *websocket.Hub
	logger    *slog.Logger
}

func NewBookHandler(bs *store.BookStore, cs *cover.Storage, hub *websocket.Hub, logger *slog.Logger) *BookHandler {
	return &BookHandler{
		bookStore: bs,
		covers:    cs,
		hub:       hub,
		logger:    logger,
	}
}

type bookRequest struct {
	Title           string  `json:"title"`
	Author          string  `json:"author"`
	ISBN            string  `json:"isbn"`
	Genre           string  `json:"genre"`
	Rating          float64 `json:"rating"`
	Description     string  `json:"description"`
	CoverURL        string  `json:"cover_image"`
	ReadingStarted  string  `json:"reading_started"`
	ReadingFinished string  `json:"reading_finished"`
}

// params converts the request into store parameters, parsing the date fields.
func (req bookRequest) params() (model.BookParams, error) {
	p := model.BookParams{
		Title:       strings.TrimSpace(req.Title),
		Author:      strings.TrimSpace(req.Author),
		ISBN:        strings.TrimSpace(req.ISBN),
		Genre:       strings.TrimSpace(req.Genre),
		Rating:      req.Rating,
		Description: req.Description,
		CoverURL:    req.CoverURL,
	}
	if req.ReadingStarted != "" {
		t, err := time.Parse(dateLayout, req.ReadingStarted)
		if err != nil {
			return p, fmt.Errorf("reading_started must be a YYYY-MM-DD date")
		}
		p.ReadingStarted = &t
	}
	if req.ReadingFinished != "" {
		t, err := time.Parse(dateLayout, req.ReadingFinished)
		if err != nil {
			return p, fmt.Errorf("reading_finished must be a YYYY-MM-DD date")
		}
		p.ReadingFinished = &t
	}
	return p, nil
}

func (h *BookHandler) List(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())

	books, err := store.Run(h.logger, "book.list_by_user", func() ([]model.Book, error) {
		return h.bookStore.ListByUser(ac.UserID)
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list books")
		return
	}
	if books == nil {
		books = []model.Book{}
	}
	writeJSON(w, http.StatusOK, books)
}

func (h *BookHandler) Get(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())

	book, ok := h.ownedBook(w, r, ac.UserID)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, book)
}

func (h *BookHandler) Create(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())

	var req bookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	p, err := req.params()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := validateBookParams(p); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	book, err := store.Run(h.logger, "book.create", func() (*model.Book, error) {
		return h.bookStore.Create(ac.UserID, p)
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create book")
		return
	}

	h.hub.Broadcast(ac.UserID, websocket.NewMessage("book", "created", book.ID, nil))
	writeJSON(w, http.StatusCreated, book)
}

func (h *BookHandler) Update(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())

	existing, ok := h.ownedBook(w, r, ac.UserID)
	if !ok {
		return
	}

	var req bookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	p, err := req.params()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if p.CoverURL == "" {
		p.CoverURL = existing.CoverURL
	}
	if err := validateBookParams(p); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	book, err := store.Run(h.logger, "book.update", func() (*model.Book, error) {
		return h.bookStore.Update(existing.ID, p)
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to update book")
		return
	}

	h.hub.Broadcast(ac.UserID, websocket.NewMessage("book", "updated", book.ID, nil))
	writeJSON(w, http.StatusOK, book)
}

func (h *BookHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())

	existing, ok := h.ownedBook(w, r, ac.UserID)
	if !ok {
		return
	}

	if _, err := store.Run(h.logger, "book.delete", func() (struct{}, error) {
		return struct{}{}, h.bookStore.Delete(existing.ID)
	}); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to delete book")
		return
	}

	if existing.CoverURL != "" {
		if err := h.covers.Delete(r.Context(), existing.CoverURL); err != nil {
			h.logger.Warn("delete cover", "book_id", existing.ID, "error", err)
		}
	}

	h.hub.Broadcast(ac.UserID, websocket.NewMessage("book", "deleted", existing.ID, nil))
	w.WriteHeader(http.StatusNoContent)
}

func (h *BookHandler) UploadCover(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())

	existing, ok := h.ownedBook(w, r, ac.UserID)
	if !ok {
		return
	}

	if !h.covers.Configured() {
		writeError(w, http.StatusServiceUnavailable, "cover uploads are not configured")
		return
	}

	if err := r.ParseMultipartForm(cover.MaxImageSize); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	file, header, err := r.FormFile("cover")
	if err != nil {
		writeError(w, http.StatusBadRequest, "cover file is required")
		return
	}
	defer file.Close()

	if err := cover.Validate(header.Filename, header.Size); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	url, err := h.covers.Upload(r.Context(), header.Filename, file, header.Size)
	if err != nil {
		h.logger.Error("upload cover", "book_id", existing.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to upload cover")
		return
	}

	book, err := store.Run(h.logger, "book.update_cover", func() (*model.Book, error) {
		return h.bookStore.UpdateCover(existing.ID, url)
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to update cover")
		return
	}

	// The replaced cover is orphaned in the bucket otherwise.
	if existing.CoverURL != "" && existing.CoverURL != url {
		if err := h.covers.Delete(r.Context(), existing.CoverURL); err != nil {
			h.logger.Warn("delete old cover", "book_id", existing.ID, "error", err)
		}
	}

	h.hub.Broadcast(ac.UserID, websocket.NewMessage("book", "updated", book.ID, nil))
	writeJSON(w, http.StatusOK, book)
}

// bookExport is the portable backup form of a book: owner-independent, dates
// as plain YYYY-MM-DD strings.
type bookExport struct {
	Title           string  `json:"title"`
	Author          string  `json:"author,omitempty"`
	ISBN            string  `json:"isbn,omitempty"`
	Genre           string  `json:"genre,omitempty"`
	Rating          float64 `json:"rating,omitempty"`
	Description     string  `json:"description,omitempty"`
	CoverURL        string  `json:"cover_image,omitempty"`
	ReadingStarted  string  `json:"reading_started,omitempty"`
	ReadingFinished string  `json:"reading_finished,omitempty"`
}

func (h *BookHandler) Export(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())

	books, err := store.Run(h.logger, "book.list_by_user", func() ([]model.Book, error) {
		return h.bookStore.ListByUser(ac.UserID)
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to export books")
		return
	}

	out := make([]bookExport, 0, len(books))
	for _, b := range books {
		e := bookExport{
			Title:       b.Title,
			Author:      b.Author,
			ISBN:        b.ISBN,
			Genre:       b.Genre,
			Rating:      b.Rating,
			Description: b.Description,
			CoverURL:    b.CoverURL,
		}
		if b.ReadingStarted != nil {
			e.ReadingStarted = b.ReadingStarted.Format(dateLayout)
		}
		if b.ReadingFinished != nil {
			e.ReadingFinished = b.ReadingFinished.Format(dateLayout)
		}
		out = append(out, e)
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="books_backup.json"`)
	json.NewEncoder(w).Encode(out)
}

func (h *BookHandler) Import(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())

	if err := r.ParseMultipartForm(maxImportSize); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "backup file is required")
		return
	}
	defer file.Close()

	if !strings.HasSuffix(strings.ToLower(header.Filename), ".json") {
		writeError(w, http.StatusBadRequest, "backup must be a .json file")
		return
	}

	var entries []bookRequest
	if err := json.NewDecoder(file).Decode(&entries); err != nil {
		writeError(w, http.StatusBadRequest, "backup must be a JSON array of books")
		return
	}

	valid := make([]model.BookParams, 0, len(entries))
	skipped := 0
	for _, entry := range entries {
		p, err := entry.params()
		if err != nil {
			skipped++
			continue
		}
		if err := validateBookParams(p); err != nil {
			skipped++
			continue
		}
		valid = append(valid, p)
	}

	imported := 0
	if len(valid) > 0 {
		imported, err = store.Run(h.logger, "book.create_many", func() (int, error) {
			return h.bookStore.CreateMany(ac.UserID, valid)
		})
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to import books")
			return
		}
	}

	if imported > 0 {
		h.hub.Broadcast(ac.UserID, websocket.NewMessage("book", "imported", 0, map[string]any{"count": imported}))
	}

	writeJSON(w, http.StatusOK, map[string]int{
		"imported": imported,
		"skipped":  skipped,
	})
}

// ownedBook loads the book in the id path parameter and enforces ownership.
// It writes the error response itself when returning ok=false.
func (h *BookHandler) ownedBook(w http.ResponseWriter, r *http.Request, userID int64) (*model.Book, bool) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return nil, false
	}

	book, err := store.Run(h.logger, "book.get_by_id", func() (*model.Book, error) {
		return h.bookStore.GetByID(id)
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get book")
		return nil, false
	}
	if book == nil {
		writeError(w, http.StatusNotFound, "book not found")
		return nil, false
	}
	if book.UserID != userID {
		// Existence of other users' books is not disclosed.
		writeError(w, http.StatusNotFound, "book not found")
		return nil, false
	}
	return book, true
}
