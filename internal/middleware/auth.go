package middleware

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/societyhub/society_backend/internal/apperr"
	"github.com/societyhub/society_backend/internal/authz"
	"github.com/societyhub/society_backend/internal/logging"
	"github.com/societyhub/society_backend/internal/models"
	"github.com/societyhub/society_backend/internal/response"
	"github.com/societyhub/society_backend/internal/utils"
)

const personKey = "person"

// AuthConfig describes how identity-provider tokens are verified. Tokens
// are HS256 with sub set to the provider's user id.
type AuthConfig struct {
	JWTSecret string
	Issuer    string
}

type Claims struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	jwt.RegisteredClaims
}

// AuthMiddleware verifies the bearer token and loads the caller, creating
// a VISITOR person on first sign-in.
func AuthMiddleware(db *gorm.DB, cfg AuthConfig, log logging.Logger) gin.HandlerFunc {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	parser := jwt.NewParser(opts...)

	return func(c *gin.Context) {
		tokenStr, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok && strings.EqualFold(c.GetHeader("Upgrade"), "websocket") {
			// browsers cannot set headers on websocket upgrades
			tokenStr = c.Query("access_token")
			ok = tokenStr != ""
		}
		if !ok {
			response.Abort(c, log, apperr.Authentication("missing or invalid authorization header"))
			return
		}
		claims := &Claims{}
		token, err := parser.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
			return []byte(cfg.JWTSecret), nil
		})
		if err != nil || !token.Valid {
			response.Abort(c, log, apperr.Authentication("invalid token"))
			return
		}
		if claims.Subject == "" {
			response.Abort(c, log, apperr.Authentication("token has no subject"))
			return
		}

		person, err := loadPerson(c, db, claims)
		if err != nil {
			response.Abort(c, log, err)
			return
		}
		c.Set(personKey, person)
		c.Set(response.PersonIDKey, person.ID)
		c.Next()
	}
}

func bearerToken(header string) (string, bool) {
	if len(header) < len("Bearer ") || !strings.EqualFold(header[:len("Bearer ")], "bearer ") {
		return "", false
	}
	tok := strings.TrimSpace(header[len("Bearer "):])
	return tok, tok != ""
}

// loadPerson finds the person behind claims, registering a visitor on
// first sign-in. A concurrent first sign-in loses the insert and reads the
// winner's row.
func loadPerson(c *gin.Context, db *gorm.DB, claims *Claims) (*models.Person, error) {
	tx := db.WithContext(c.Request.Context())
	person, err := findPerson(tx, claims.Subject)
	if err == nil {
		return person, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.Internal("could not load person", err)
	}

	fresh := models.Person{
		ExternalID: claims.Subject,
		Name:       utils.NormalizeName(claims.Name),
		Email:      strings.ToLower(strings.TrimSpace(claims.Email)),
		Role:       models.RoleVisitor,
	}
	err = tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "external_id"}},
		DoNothing: true,
	}).Create(&fresh).Error
	if err != nil {
		return nil, apperr.Internal("could not register person", err)
	}

	person, err = findPerson(tx, claims.Subject)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.Authentication("person not found")
		}
		return nil, apperr.Internal("could not load person", err)
	}
	return person, nil
}

func findPerson(tx *gorm.DB, externalID string) (*models.Person, error) {
	var person models.Person
	if err := tx.Where("external_id = ?", externalID).First(&person).Error; err != nil {
		return nil, err
	}
	return &person, nil
}

// CurrentPerson returns the caller loaded by AuthMiddleware, or nil.
func CurrentPerson(c *gin.Context) *models.Person {
	v, ok := c.Get(personKey)
	if !ok {
		return nil
	}
	p, _ := v.(*models.Person)
	return p
}

// SetPerson stores p as the caller.
func SetPerson(c *gin.Context, p *models.Person) {
	c.Set(personKey, p)
	c.Set(response.PersonIDKey, p.ID)
}

func RequireRoles(log logging.Logger, roles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := authz.Authorize(CurrentPerson(c), roles...); err != nil {
			response.Abort(c, log, err)
			return
		}
		c.Next()
	}
}
