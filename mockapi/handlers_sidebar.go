package mockapi

import (
	"errors"
	"net/http"

	"github.com/jrsteele09/go-estate-client/sidebar"
)

var (
	errSidebarNotFound = errors.New("sidebar config not found")
	errSidebarConflict = errors.New("sidebar config version mismatch")
)

func (s *Server) SidebarConfigHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeData(w, http.StatusOK, s.data.sidebarConfig(), "")
	}
}

// UpdateSidebarConfigHandler replaces the sidebar document. The request must
// carry the version it was based on; a stale version is rejected with 409.
func (s *Server) UpdateSidebarConfigHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var patch sidebar.ConfigPatch
		if err := decodeBody(r, &patch); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		for _, item := range patch.Items {
			if item.ID == "" || item.Name == "" || item.Href == "" {
				writeError(w, http.StatusBadRequest, "Menu items need an id, name and href")
				return
			}
		}
		for _, g := range patch.Groups {
			if g.ID == "" || g.ID == sidebar.UngroupedID {
				writeError(w, http.StatusBadRequest, "Invalid group id")
				return
			}
		}
		cfg, err := s.data.replaceSidebar(r.PathValue("id"), patch, s.now())
		switch {
		case errors.Is(err, errSidebarNotFound):
			writeError(w, http.StatusNotFound, "Sidebar config not found")
		case errors.Is(err, errSidebarConflict):
			writeError(w, http.StatusConflict, "Sidebar config was modified by another user")
		default:
			s.logger.Info().Str("user_id", userIDFrom(r)).Int("version", cfg.Version).Msg("sidebar config updated")
			writeData(w, http.StatusOK, cfg, "Sidebar updated")
		}
	}
}
