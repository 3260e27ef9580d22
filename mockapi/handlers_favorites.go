package mockapi

import (
	"net/http"
	"strings"

	"github.com/jrsteele09/go-estate-client/favorites"
)

func (s *Server) ListFavoritesHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeData(w, http.StatusOK, s.data.favoriteList(userIDFrom(r)), "")
	}
}

// AddFavoriteHandler is idempotent: adding an existing favorite returns the
// stored copy with 200 instead of 201.
func (s *Server) AddFavoriteHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var item favorites.Item
		if err := decodeBody(r, &item); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		item.ID = strings.TrimSpace(item.ID)
		if item.ID == "" || (item.Type != favorites.TypeProperty && item.Type != favorites.TypeProject) {
			writeError(w, http.StatusBadRequest, "Favorite needs an id and a type of property or project")
			return
		}
		item.AddedAt = s.now()
		saved, created := s.data.addFavorite(userIDFrom(r), item)
		status := http.StatusOK
		if created {
			status = http.StatusCreated
		}
		writeData(w, status, saved, "")
	}
}

func (s *Server) RemoveFavoriteHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.data.removeFavorite(userIDFrom(r), r.PathValue("id")) {
			writeError(w, http.StatusNotFound, "Favorite not found")
			return
		}
		writeData(w, http.StatusOK, nil, "Favorite removed")
	}
}
