package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	appstock "github.com/nursery/backend/internal/application/stock"
	"github.com/nursery/backend/internal/infrastructure/auth"
	"github.com/nursery/backend/internal/infrastructure/logger"
	"github.com/nursery/backend/internal/interfaces/http/dto"
	"go.uber.org/zap"
)

const (
	actorKey     = "actor"
	bearerPrefix = "Bearer "
)

// TokenVerifier validates bearer tokens
type TokenVerifier interface {
	Verify(token string) (*auth.Claims, error)
}

// AuthConfig configures actor resolution.
//
// With a Verifier every request outside SkipPaths must carry a valid bearer
// token. Without one the actor is read from the X-Actor-ID and
// X-Actor-Roles headers, which is only acceptable behind a trusted gateway
// or in development. In both modes mutating requests need an actor.
type AuthConfig struct {
	Verifier  TokenVerifier
	SkipPaths []string
	Logger    *zap.Logger
}

// Authenticate resolves the acting user and stores it on the context
func Authenticate(cfg AuthConfig) gin.HandlerFunc {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	skip := make(map[string]struct{}, len(cfg.SkipPaths))
	for _, p := range cfg.SkipPaths {
		skip[p] = struct{}{}
	}

	return func(c *gin.Context) {
		if _, ok := skip[c.Request.URL.Path]; ok {
			c.Next()
			return
		}

		var actor appstock.Actor
		if cfg.Verifier != nil {
			claims, err := bearerClaims(c, cfg.Verifier)
			if err != nil {
				log.Warn("Authentication failed",
					zap.String("path", c.Request.URL.Path),
					zap.String("request_id", GetRequestID(c)),
					zap.Error(err),
				)
				abortUnauthorized(c, err)
				return
			}
			actor = appstock.Actor{ID: claims.ActorID(), Roles: claims.Roles}
		} else {
			actor = headerActor(c)
		}

		if actor.ID == "" && isMutation(c.Request.Method) {
			abortUnauthorized(c, auth.ErrMissingSubject)
			return
		}

		c.Set(actorKey, actor)
		if actor.ID != "" {
			c.Set(logger.GinActorIDKey, actor.ID)
			c.Request = c.Request.WithContext(logger.WithActorID(c.Request.Context(), actor.ID))
		}
		c.Next()
	}
}

// GetActor returns the actor resolved by Authenticate, or the zero Actor
func GetActor(c *gin.Context) appstock.Actor {
	if v, ok := c.Get(actorKey); ok {
		if a, ok := v.(appstock.Actor); ok {
			return a
		}
	}
	return appstock.Actor{}
}

func bearerClaims(c *gin.Context, v TokenVerifier) (*auth.Claims, error) {
	header := c.GetHeader("Authorization")
	token, found := strings.CutPrefix(header, bearerPrefix)
	if !found || strings.TrimSpace(token) == "" {
		return nil, auth.ErrInvalidToken
	}
	return v.Verify(strings.TrimSpace(token))
}

func headerActor(c *gin.Context) appstock.Actor {
	actor := appstock.Actor{ID: strings.TrimSpace(c.GetHeader(HeaderActorID))}
	for _, r := range strings.Split(c.GetHeader(HeaderActorRoles), ",") {
		if r = strings.TrimSpace(r); r != "" {
			actor.Roles = append(actor.Roles, r)
		}
	}
	return actor
}

func isMutation(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

func abortUnauthorized(c *gin.Context, err error) {
	code, msg := dto.ErrCodeUnauthorized, "Authentication required"
	if errors.Is(err, auth.ErrExpiredToken) {
		code, msg = dto.ErrCodeTokenExpired, "Token has expired"
	}
	c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewErrorResponse(code, msg, GetRequestID(c)))
}
