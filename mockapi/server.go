// Package mockapi is an in-memory development backend that speaks the
// marketplace REST contract: auth with a rotating refresh cookie, wallet and
// VNPay-style deposits, notifications, the sidebar document and favorites.
package mockapi

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/jrsteele09/go-estate-client/internal/config"
	"github.com/jrsteele09/go-estate-client/token"
	"github.com/jrsteele09/go-estate-client/token/jwt"
	"github.com/jrsteele09/go-estate-client/token/refresh"
	"github.com/jrsteele09/go-estate-client/users"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// Repos are the persistent collaborators of the server.
type Repos struct {
	Users         users.UserRepo
	RefreshTokens refresh.Repo
}

type Server struct {
	env     string
	mux     *http.ServeMux
	routes  []string
	config  config.Config
	logger  zerolog.Logger
	nowFunc func() time.Time

	users   users.UserRepo
	refresh *refresh.Manager
	tokens  *jwt.Creator
	revoked *token.Denylist
	data    *dataset

	authLimiter *rateLimiter
}

type ServerOption func(*Server)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) ServerOption {
	return func(s *Server) {
		s.nowFunc = nowFunc
	}
}

func WithLogger(logger zerolog.Logger) ServerOption {
	return func(s *Server) {
		s.logger = logger
	}
}

func New(cfg config.Config, repos Repos, options ...ServerOption) (*Server, error) {
	if repos.Users == nil || repos.RefreshTokens == nil {
		return nil, errors.New("[mockapi.New] user and refresh token repos are required")
	}
	s := &Server{
		env:     cfg.GetEnv(),
		mux:     http.NewServeMux(),
		config:  cfg,
		logger:  zerolog.Nop(),
		nowFunc: time.Now,
		users:   repos.Users,
	}
	for _, opt := range options {
		opt(s)
	}

	s.revoked = token.NewDenylist(s.nowFunc)
	s.refresh = refresh.NewManager(repos.RefreshTokens, cfg, refresh.WithNowTime(s.nowFunc))
	s.tokens = jwt.NewCreator(cfg, jwt.WithNowTime(s.nowFunc), jwt.WithRevokedChecker(s.revoked))
	s.data = newDataset()
	s.authLimiter = newRateLimiter(cfg.GetAuthRateLimit(), cfg.GetAuthRateBurst())

	if err := s.InitialiseSystem(); err != nil {
		return nil, errors.Wrap(err, "[mockapi.New] failed to initialise the system")
	}

	s.initRoutes()
	s.logRoutes()
	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)
		if len(parts) > 1 {
			s.logger.Debug().Str("method", parts[0]).Msg(parts[1])
		} else {
			s.logger.Debug().Msg(parts[0])
		}
	}
}

func (s *Server) now() time.Time {
	return s.nowFunc()
}

func describe(method, path string) string {
	return fmt.Sprintf("%s %s", method, path)
}
