package catalog

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	authapi "muse/cmd/internal/auth/api"
)

// API exposes the catalog over HTTP. All routes assume an authenticated
// principal; route protection itself is wired at the server layer.
type API struct {
	log     *slog.Logger
	service *Service
	covers  *CoverService
	syncer  *Syncer
}

// NewAPI constructs the catalog API.
func NewAPI(log *slog.Logger, service *Service, covers *CoverService, syncer *Syncer) *API {
	if log == nil {
		log = slog.Default()
	}
	return &API{log: log, service: service, covers: covers, syncer: syncer}
}

// Register wires the catalog routes onto mux.
func (a *API) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/artists", a.handleListArtists)
	mux.HandleFunc("POST /api/v1/artists", a.handleCreateArtist)
	mux.HandleFunc("GET /api/v1/artists/{id}", a.handleGetArtist)
	mux.HandleFunc("PUT /api/v1/artists/{id}", a.handleUpdateArtist)
	mux.HandleFunc("DELETE /api/v1/artists/{id}", a.handleDeleteArtist)

	mux.HandleFunc("GET /api/v1/albums", a.handleListAlbums)
	mux.HandleFunc("POST /api/v1/albums", a.handleCreateAlbum)
	mux.HandleFunc("GET /api/v1/albums/{id}", a.handleGetAlbum)
	mux.HandleFunc("PUT /api/v1/albums/{id}", a.handleUpdateAlbum)
	mux.HandleFunc("DELETE /api/v1/albums/{id}", a.handleDeleteAlbum)

	mux.HandleFunc("POST /api/v1/albums/{id}/covers", a.handleUploadCover)
	mux.HandleFunc("GET /api/v1/albums/{id}/covers", a.handleListCovers)
	mux.HandleFunc("GET /api/v1/covers/{id}/url", a.handleCoverURL)
	mux.HandleFunc("DELETE /api/v1/covers/{id}", a.handleDeleteCover)

	mux.HandleFunc("GET /api/v1/regionals", a.handleListRegionals)
	mux.HandleFunc("POST /api/v1/regionals/sync", a.handleSyncRegionals)
}

type catalogError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (a *API) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *API) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		a.writeJSON(w, http.StatusNotFound, catalogError{Error: "Not Found", Message: "resource not found"})
	case errors.Is(err, ErrInvalidInput):
		a.writeJSON(w, http.StatusBadRequest, catalogError{Error: "Bad Request", Message: err.Error()})
	default:
		a.log.Error("catalog.api_error", "error", err)
		a.writeJSON(w, http.StatusInternalServerError, catalogError{Error: "Internal Server Error", Message: "request failed"})
	}
}

func actorFrom(r *http.Request) string {
	p, _ := authapi.PrincipalFrom(r.Context())
	return p.Username
}

func pageParams(r *http.Request) (int, int) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	size, _ := strconv.Atoi(r.URL.Query().Get("size"))
	return page, size
}

type artistRequest struct {
	Name   string `json:"name"`
	IsBand bool   `json:"isBand"`
}

func (a *API) handleCreateArtist(w http.ResponseWriter, r *http.Request) {
	var req artistRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.writeJSON(w, http.StatusBadRequest, catalogError{Error: "Bad Request", Message: "malformed JSON body"})
		return
	}
	artist, err := a.service.CreateArtist(r.Context(), actorFrom(r), req.Name, req.IsBand)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	a.writeJSON(w, http.StatusCreated, artist)
}

func (a *API) handleGetArtist(w http.ResponseWriter, r *http.Request) {
	artist, err := a.service.GetArtist(r.Context(), r.PathValue("id"))
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, artist)
}

func (a *API) handleListArtists(w http.ResponseWriter, r *http.Request) {
	page, size := pageParams(r)
	result, err := a.service.ListArtists(r.Context(), r.URL.Query().Get("name"), page, size)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, result)
}

func (a *API) handleUpdateArtist(w http.ResponseWriter, r *http.Request) {
	var req artistRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.writeJSON(w, http.StatusBadRequest, catalogError{Error: "Bad Request", Message: "malformed JSON body"})
		return
	}
	artist, err := a.service.UpdateArtist(r.Context(), actorFrom(r), r.PathValue("id"), req.Name, req.IsBand)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, artist)
}

func (a *API) handleDeleteArtist(w http.ResponseWriter, r *http.Request) {
	if err := a.service.DeleteArtist(r.Context(), actorFrom(r), r.PathValue("id")); err != nil {
		a.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type albumRequest struct {
	Title       string   `json:"title"`
	ReleaseYear int      `json:"releaseYear"`
	ArtistIDs   []string `json:"artistIds"`
}

func (a *API) handleCreateAlbum(w http.ResponseWriter, r *http.Request) {
	var req albumRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.writeJSON(w, http.StatusBadRequest, catalogError{Error: "Bad Request", Message: "malformed JSON body"})
		return
	}
	album, err := a.service.CreateAlbum(r.Context(), actorFrom(r), req.Title, req.ReleaseYear, req.ArtistIDs)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	a.writeJSON(w, http.StatusCreated, album)
}

func (a *API) handleGetAlbum(w http.ResponseWriter, r *http.Request) {
	album, err := a.service.GetAlbum(r.Context(), r.PathValue("id"))
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, album)
}

func (a *API) handleListAlbums(w http.ResponseWriter, r *http.Request) {
	page, size := pageParams(r)
	result, err := a.service.ListAlbums(r.Context(), r.URL.Query().Get("artistId"), page, size)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, result)
}

func (a *API) handleUpdateAlbum(w http.ResponseWriter, r *http.Request) {
	var req albumRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.writeJSON(w, http.StatusBadRequest, catalogError{Error: "Bad Request", Message: "malformed JSON body"})
		return
	}
	album, err := a.service.UpdateAlbum(r.Context(), actorFrom(r), r.PathValue("id"), req.Title, req.ReleaseYear, req.ArtistIDs)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, album)
}

func (a *API) handleDeleteAlbum(w http.ResponseWriter, r *http.Request) {
	if err := a.service.DeleteAlbum(r.Context(), actorFrom(r), r.PathValue("id")); err != nil {
		a.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleUploadCover(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(MaxCoverBytes); err != nil {
		a.writeJSON(w, http.StatusBadRequest, catalogError{Error: "Bad Request", Message: "expected multipart form with a file field"})
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		a.writeJSON(w, http.StatusBadRequest, catalogError{Error: "Bad Request", Message: "file field is required"})
		return
	}
	defer func() { _ = file.Close() }()

	cover, err := a.covers.Upload(r.Context(), actorFrom(r), r.PathValue("id"),
		header.Filename, header.Header.Get("Content-Type"), file, header.Size)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	a.writeJSON(w, http.StatusCreated, cover)
}

func (a *API) handleListCovers(w http.ResponseWriter, r *http.Request) {
	covers, err := a.covers.List(r.Context(), r.PathValue("id"))
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	if covers == nil {
		covers = []Cover{}
	}
	a.writeJSON(w, http.StatusOK, covers)
}

func (a *API) handleCoverURL(w http.ResponseWriter, r *http.Request) {
	url, err := a.covers.DownloadURL(r.Context(), r.PathValue("id"))
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, map[string]string{"url": url})
}

func (a *API) handleDeleteCover(w http.ResponseWriter, r *http.Request) {
	if err := a.covers.Delete(r.Context(), actorFrom(r), r.PathValue("id")); err != nil {
		a.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleListRegionals(w http.ResponseWriter, r *http.Request) {
	activeOnly := r.URL.Query().Get("active") == "true"
	rs, err := a.service.ListRegionals(r.Context(), activeOnly)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	if rs == nil {
		rs = []Regional{}
	}
	a.writeJSON(w, http.StatusOK, rs)
}

func (a *API) handleSyncRegionals(w http.ResponseWriter, r *http.Request) {
	result, err := a.syncer.Sync(r.Context(), actorFrom(r))
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, result)
}
