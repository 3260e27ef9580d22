package mockapi

import (
	"net/http"
	"net/mail"
	"regexp"
	"strings"

	errs "github.com/jrsteele09/go-estate-client/internal/errors"
	"github.com/jrsteele09/go-estate-client/session"
	"github.com/jrsteele09/go-estate-client/users"
)

var phonePattern = regexp.MustCompile(`^\+?[0-9]{9,15}$`)

type authPayload struct {
	User        *users.User `json:"user"`
	AccessToken string      `json:"accessToken"`
}

func (s *Server) setRefreshCookie(w http.ResponseWriter, value string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.config.GetRefreshCookieName(),
		Value:    value,
		Path:     APIPrefix,
		HttpOnly: true,
		Secure:   s.config.GetCookieSecure(),
		SameSite: http.SameSiteLaxMode,
		MaxAge:   maxAge,
	})
}

// accessToken signs a token for user and remembers it for logout-all.
func (s *Server) accessToken(user *users.User) (string, error) {
	access, claims, err := s.tokens.CreateAccessToken(user)
	if err != nil {
		return "", err
	}
	s.data.recordAccessToken(user.ID, claims.ID, claims.ExpiresAt.Time)
	return access, nil
}

// issueSession signs an access token for user and sets a fresh refresh cookie.
func (s *Server) issueSession(w http.ResponseWriter, user *users.User) (*authPayload, error) {
	access, err := s.accessToken(user)
	if err != nil {
		return nil, err
	}
	rt, err := s.refresh.Create(user.ID)
	if err != nil {
		return nil, err
	}
	s.setRefreshCookie(w, rt.Token, int(s.config.GetRefreshTokenExpiry().Seconds()))
	return &authPayload{User: user, AccessToken: access}, nil
}

func (s *Server) LoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var creds session.Credentials
		if err := decodeBody(r, &creds); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		user, err := s.users.GetByEmail(creds.Email)
		if err != nil || !users.CheckPasswordHash(creds.Password, user.PasswordHash) {
			writeError(w, http.StatusUnauthorized, "Email or password is incorrect")
			return
		}
		if user.Status == users.StatusBanned {
			writeError(w, http.StatusForbidden, "Account has been banned")
			return
		}
		payload, err := s.issueSession(w, user)
		if err != nil {
			s.logger.Error().Err(err).Str("user_id", user.ID).Msg("failed to issue session")
			writeError(w, http.StatusInternalServerError, "Failed to sign in")
			return
		}
		writeData(w, http.StatusOK, payload, "Login successful")
	}
}

func (s *Server) RegisterHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var reg session.Registration
		if err := decodeBody(r, &reg); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		reg.Username = strings.TrimSpace(reg.Username)
		if reg.Username == "" {
			writeError(w, http.StatusBadRequest, "Username is required")
			return
		}
		if _, err := mail.ParseAddress(reg.Email); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid email address")
			return
		}
		if err := users.ValidatePasswordStrength(reg.Password); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if reg.PhoneNumber != "" && !phonePattern.MatchString(reg.PhoneNumber) {
			writeError(w, http.StatusBadRequest, "Invalid phone number")
			return
		}
		if existing, err := s.users.GetByEmail(reg.Email); err == nil && existing != nil {
			writeError(w, http.StatusConflict, "Email is already registered")
			return
		}

		hash, err := users.HashPassword(reg.Password)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to register")
			return
		}
		user := &users.User{
			Username:     reg.Username,
			Email:        strings.TrimSpace(reg.Email),
			PhoneNumber:  reg.PhoneNumber,
			Role:         users.RoleUser,
			Status:       users.StatusActive,
			PasswordHash: hash,
			CreatedAt:    s.now(),
		}
		if err := s.users.Upsert(user); err != nil {
			s.logger.Error().Err(err).Msg("failed to store user")
			writeError(w, http.StatusInternalServerError, "Failed to register")
			return
		}
		payload, err := s.issueSession(w, user)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to register")
			return
		}
		writeData(w, http.StatusCreated, payload, "Registration successful")
	}
}

// RefreshHandler exchanges the refresh cookie for a new access token and
// rotates the cookie.
func (s *Server) RefreshHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(s.config.GetRefreshCookieName())
		if err != nil || cookie.Value == "" {
			writeError(w, http.StatusUnauthorized, "No refresh token")
			return
		}
		rt, err := s.refresh.Rotate(cookie.Value)
		if err != nil {
			s.setRefreshCookie(w, "", -1)
			if errs.Is(err, errs.ErrSessionExpired) {
				writeError(w, http.StatusUnauthorized, "Refresh token expired")
				return
			}
			writeError(w, http.StatusUnauthorized, "Invalid refresh token")
			return
		}
		user, err := s.users.GetByID(rt.UserID)
		if err != nil || user.Status == users.StatusBanned {
			s.refresh.Revoke(rt.Token)
			s.setRefreshCookie(w, "", -1)
			writeError(w, http.StatusUnauthorized, "Invalid refresh token")
			return
		}
		access, err := s.accessToken(user)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to refresh session")
			return
		}
		s.setRefreshCookie(w, rt.Token, int(s.config.GetRefreshTokenExpiry().Seconds()))
		writeData(w, http.StatusOK, map[string]string{"accessToken": access}, "")
	}
}

func (s *Server) ProfileHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, err := s.users.GetByID(userIDFrom(r))
		if err != nil {
			writeError(w, http.StatusNotFound, "User not found")
			return
		}
		writeData(w, http.StatusOK, map[string]*users.User{"user": user}, "")
	}
}

func (s *Server) UpdateProfileHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var update users.ProfileUpdate
		if err := decodeBody(r, &update); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		if update.Username != nil && strings.TrimSpace(*update.Username) == "" {
			writeError(w, http.StatusBadRequest, "Username is required")
			return
		}
		if update.PhoneNumber != nil && *update.PhoneNumber != "" && !phonePattern.MatchString(*update.PhoneNumber) {
			writeError(w, http.StatusBadRequest, "Invalid phone number")
			return
		}
		user, err := s.users.UpdateProfile(userIDFrom(r), update)
		if err != nil {
			writeError(w, http.StatusNotFound, "User not found")
			return
		}
		writeData(w, http.StatusOK, map[string]*users.User{"user": user}, "Profile updated")
	}
}

// LogoutHandler ends the current device session. It succeeds without a valid
// access token so that a client with an expired token can still clear its cookie.
func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if claims, err := s.authenticate(r); err == nil {
			if err := s.revoked.Revoke(claims.ID, claims.ExpiresAt.Time); err != nil {
				s.logger.Warn().Err(err).Msg("access token not denylisted")
			}
		}
		if cookie, err := r.Cookie(s.config.GetRefreshCookieName()); err == nil && cookie.Value != "" {
			s.refresh.Revoke(cookie.Value)
		}
		s.setRefreshCookie(w, "", -1)
		writeData(w, http.StatusOK, nil, "Logged out")
	}
}

// LogoutAllHandler revokes every refresh and access token of the user.
func (s *Server) LogoutAllHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := userIDFrom(r)
		n, err := s.refresh.RevokeAll(userID)
		if err != nil {
			s.logger.Error().Err(err).Str("user_id", userID).Msg("failed to revoke refresh tokens")
			writeError(w, http.StatusInternalServerError, "Failed to log out all devices")
			return
		}
		live := s.revoked.RevokeSessions(s.data.endSessions(userID))
		s.setRefreshCookie(w, "", -1)
		s.logger.Info().Str("user_id", userID).Int("sessions", n).Int("access_tokens", live).Msg("logged out all devices")
		writeData(w, http.StatusOK, nil, "Logged out from all devices")
	}
}
