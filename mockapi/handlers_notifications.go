package mockapi

import (
	"net/http"

	"github.com/jrsteele09/go-estate-client/notifications"
)

const maxNotificationPageSize = 50

func (s *Server) ListNotificationsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, limit := pageParams(r, notifications.DefaultPageLimit, maxNotificationPageSize)
		all, unread := s.data.notificationList(userIDFrom(r))
		start, end := pageBounds(len(all), page, limit)
		writeData(w, http.StatusOK, notifications.Page{
			Notifications: all[start:end],
			UnreadCount:   &unread,
			Pagination:    notifications.Pagination{Page: page, Limit: limit, Total: len(all)},
		}, "")
	}
}

func (s *Server) MarkNotificationReadHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.data.markRead(userIDFrom(r), r.PathValue("id")) {
			writeError(w, http.StatusNotFound, "Notification not found")
			return
		}
		writeData(w, http.StatusOK, nil, "Notification marked as read")
	}
}

func (s *Server) MarkAllNotificationsReadHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		n := s.data.markAllRead(userIDFrom(r))
		writeData(w, http.StatusOK, map[string]int{"updated": n}, "All notifications marked as read")
	}
}
