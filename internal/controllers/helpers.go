package controllers

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/societyhub/society_backend/internal/apperr"
	"github.com/societyhub/society_backend/internal/authz"
	"github.com/societyhub/society_backend/internal/middleware"
	"github.com/societyhub/society_backend/internal/models"
	"github.com/societyhub/society_backend/internal/utils"
)

func currentPerson(c *gin.Context) *models.Person {
	return middleware.CurrentPerson(c)
}

func listParams(c *gin.Context, sorts map[string]string, defaultSort string) utils.ListParams {
	return utils.ParseListParams(c.Query, sorts, defaultSort)
}

// idParam reads a uuid path parameter.
func idParam(c *gin.Context, name string) (string, error) {
	id := strings.TrimSpace(c.Param(name))
	if !utils.ValidID(id) {
		return "", apperr.Validation("invalid " + name)
	}
	return id, nil
}

// queryID reads an optional uuid query parameter.
func queryID(c *gin.Context, name string) (string, error) {
	id := strings.TrimSpace(c.Query(name))
	if id != "" && !utils.ValidID(id) {
		return "", apperr.Validation("invalid " + name)
	}
	return id, nil
}

// listSociety narrows a list to the caller's society. Super admins may pick
// one with ?societyId=; an empty result lists every society.
func listSociety(c *gin.Context) (string, error) {
	scope, err := authz.SocietyScope(currentPerson(c))
	if err != nil || scope != "" {
		return scope, err
	}
	return queryID(c, "societyId")
}

func queryBool(c *gin.Context, key string) bool {
	v := strings.ToLower(strings.TrimSpace(c.Query(key)))
	return v == "true" || v == "1" || v == "yes"
}

func optionalString(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

// targetSociety picks the society a write applies to. Super admins must
// name it; everyone else acts in their own society and may not name another.
func targetSociety(caller *models.Person, requested string) (string, error) {
	scope, err := authz.SocietyScope(caller)
	if err != nil {
		return "", err
	}
	requested = strings.TrimSpace(requested)
	if scope == "" {
		if requested == "" {
			return "", apperr.Validation("societyId is required")
		}
		if !utils.ValidID(requested) {
			return "", apperr.Validation("invalid societyId")
		}
		return requested, nil
	}
	if requested != "" && requested != scope {
		return "", apperr.Authorization("society is outside your scope")
	}
	return scope, nil
}
